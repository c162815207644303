package prng

import "testing"

func TestRealDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		if a.Next() != b.Next() {
			t.Fatalf("sequences diverged at draw %d", i)
		}
	}
}

func TestRealDifferentSeeds(t *testing.T) {
	a := New(1)
	b := New(2)
	same := true
	for i := 0; i < 20; i++ {
		if a.Next() != b.Next() {
			same = false
		}
	}
	if same {
		t.Fatal("expected different seeds to diverge within 20 draws")
	}
}

func TestChanceAlwaysAndNever(t *testing.T) {
	r := New(7)
	for i := 0; i < 10; i++ {
		if !r.Chance(100, 100) {
			t.Fatal("num==den must always succeed")
		}
	}
	r2 := New(7)
	for i := 0; i < 10; i++ {
		if r2.Chance(0, 100) {
			t.Fatal("num==0 must never succeed")
		}
	}
}

func TestControlledSplice(t *testing.T) {
	c := NewControlled(0)
	c.Splice(0, 5)
	c.Splice(2, 9)
	if got := c.Next(); got != 5 {
		t.Fatalf("call 0: got %d, want 5", got)
	}
	_ = c.Next() // call 1, unspliced
	if got := c.Next(); got != 9 {
		t.Fatalf("call 2: got %d, want 9", got)
	}
}

func TestControlledRangeUsesSplicedNext(t *testing.T) {
	c := NewControlled(0)
	c.Splice(0, 50)
	if got := c.Range(0, 100); got != 50 {
		t.Fatalf("Range: got %d, want 50", got)
	}
}

func TestSampleWithinBounds(t *testing.T) {
	r := New(123)
	for i := 0; i < 1000; i++ {
		n := r.Sample(7)
		if n < 0 || n >= 7 {
			t.Fatalf("Sample(7) out of bounds: %d", n)
		}
	}
}

func TestShufflePermutes(t *testing.T) {
	r := New(5)
	data := []int{0, 1, 2, 3, 4, 5, 6, 7}
	r.Shuffle(len(data), func(i, j int) { data[i], data[j] = data[j], data[i] })
	seen := make(map[int]bool)
	for _, v := range data {
		seen[v] = true
	}
	if len(seen) != 8 {
		t.Fatalf("shuffle lost elements: %v", data)
	}
}
