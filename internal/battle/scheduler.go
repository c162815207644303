package battle

import "sort"

// Scheduler orders a turn's Actions into the sequence the turn controller
// executes them in, and supports inserting a new action mid-turn (e.g. a
// pursuit-style follow-up, or a forced switch after a faint) ahead of
// whatever remains.
type Scheduler struct {
	b     *Battle
	queue []Action
}

// NewScheduler returns an empty scheduler bound to b.
func NewScheduler(b *Battle) *Scheduler { return &Scheduler{b: b} }

// Add appends action to the queue with a fresh sub-order tiebreak and
// resorts the whole queue, keeping it ready to pop from at any point.
func (s *Scheduler) Add(a Action) {
	a.SubOrder = s.b.nextSubOrder()
	s.queue = append(s.queue, a)
	s.resort()
}

// InsertNow inserts action immediately at the front of the remaining queue,
// bypassing ordering entirely — used for effects that must resolve before
// anything else still pending.
func (s *Scheduler) InsertNow(a Action) {
	a.SubOrder = s.b.nextSubOrder()
	s.queue = append([]Action{a}, s.queue...)
}

// Len reports how many actions remain queued.
func (s *Scheduler) Len() int { return len(s.queue) }

// Pop removes and returns the next action to execute, or ok=false if the
// queue is empty. Speed on a Move action can change between when it was
// queued and when it's popped (a boost, a paralysis-halving); callers that
// need "speed order as of right now" should resort before popping, which
// UpdateSpeed does.
func (s *Scheduler) Pop() (Action, bool) {
	if len(s.queue) == 0 {
		return Action{}, false
	}
	a := s.queue[0]
	s.queue = s.queue[1:]
	return a, true
}

// Remove drops every queued action belonging to mon h, used when a mon
// faints or switches out mid-turn and its remaining scheduled action (if
// any) should no longer fire.
func (s *Scheduler) Remove(h MonHandle) {
	out := s.queue[:0]
	for _, a := range s.queue {
		if a.Mon != h {
			out = append(out, a)
		}
	}
	s.queue = out
}

// UpdateSpeed re-evaluates each queued action's Speed field from its mon's
// current stat (post-boost, post-status) and resorts, matching the rule
// that speed order is decided at execution time, not at queue time.
func (s *Scheduler) UpdateSpeed(speedOf func(MonHandle) int) {
	for i := range s.queue {
		s.queue[i].Speed = speedOf(s.queue[i].Mon)
	}
	s.resort()
}

func (s *Scheduler) resort() {
	sort.SliceStable(s.queue, func(i, j int) bool {
		a, b := s.queue[i], s.queue[j]
		if a.Kind.order() != b.Kind.order() {
			return a.Kind.order() < b.Kind.order()
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Speed != b.Speed {
			return a.Speed > b.Speed
		}
		return a.SubOrder < b.SubOrder
	})
	s.breakSpeedTies()
}

// breakSpeedTies shuffles runs of actions that are still tied on kind,
// priority, and speed after the stable sort, consulting the PRNG exactly
// once per tied run so replays with the same seed always resolve the same
// way.
func (s *Scheduler) breakSpeedTies() {
	i := 0
	for i < len(s.queue) {
		j := i + 1
		for j < len(s.queue) &&
			s.queue[j].Kind.order() == s.queue[i].Kind.order() &&
			s.queue[j].Priority == s.queue[i].Priority &&
			s.queue[j].Speed == s.queue[i].Speed {
			j++
		}
		if j-i > 1 {
			s.b.PRNG.Shuffle(j-i, func(x, y int) {
				s.queue[i+x], s.queue[i+y] = s.queue[i+y], s.queue[i+x]
			})
		}
		i = j
	}
}
