package battle

import "fmt"

// LogEntry is one append-only record in the battle's event log. Some
// entries are "split": a spectator/opponent sees Public while the mon's own
// side sees Private, which may reveal exact HP or other hidden information
// the public form redacts.
type LogEntry struct {
	Turn    int
	Public  string
	Private string // equal to Public unless the entry is split
	Side    int     // which side's private view differs; -1 if not split
	HasSide bool
}

// LogEmitter accumulates the battle's log and tracks how far each consumer
// has already read, so NewLogs can return only the entries added since the
// last call.
type LogEmitter struct {
	entries []LogEntry
	read    map[int]int // perspective -> entries already returned by NewLogs
}

// NewLogEmitter returns an empty log.
func NewLogEmitter() *LogEmitter { return &LogEmitter{} }

// Len returns the total number of entries recorded so far, letting a caller
// detect whether a nested callback logged anything of its own.
func (l *LogEmitter) Len() int { return len(l.entries) }

// Add appends a plain, unsplit entry.
func (l *LogEmitter) Add(turn int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.entries = append(l.entries, LogEntry{Turn: turn, Public: msg, Private: msg, Side: -1})
}

// AddSplit appends an entry whose private text (seen by mon's own side)
// differs from its public text (seen by everyone else), e.g. to hide exact
// HP behind a percentage.
func (l *LogEmitter) AddSplit(turn, side int, public, private string) {
	l.entries = append(l.entries, LogEntry{Turn: turn, Public: public, Private: private, Side: side, HasSide: true})
}

// FullLog returns every entry's view for the given perspective: side < 0
// means the fully public spectator view; side >= 0 returns that side's
// private view where the entry is split for them.
func (l *LogEmitter) FullLog(side int) []string {
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.view(side))
	}
	return out
}

// NewLogs returns entries added since the last NewLogs call for the given
// perspective, and advances that perspective's read cursor.
func (l *LogEmitter) NewLogs(side int) []string {
	if l.read == nil {
		l.read = map[int]int{}
	}
	start := l.read[side]
	out := make([]string, 0, len(l.entries)-start)
	for _, e := range l.entries[start:] {
		out = append(out, e.view(side))
	}
	l.read[side] = len(l.entries)
	return out
}

func (e LogEntry) view(side int) string {
	if e.HasSide && e.Side == side {
		return e.Private
	}
	return e.Public
}
