package battle

import (
	"sync"

	"github.com/battlecore/battlecore/internal/content"
)

// MonSnapshot is the flattened, JSON-serializable view of one mon a caller
// polling the Battle Host receives, keeping internal mutable state separate
// from the copy handed to a transport layer.
type MonSnapshot struct {
	Species  string `json:"species"`
	Nickname string `json:"nickname"`
	Level    int    `json:"level"`
	CurHP    int    `json:"hp"`
	MaxHP    int    `json:"max_hp"`
	Status   string `json:"status,omitempty"`
	Fainted  bool   `json:"fainted"`
	Active   bool   `json:"active"`
	Position int    `json:"position"`
	Boosts   content.BoostTable `json:"boosts"`
}

// PlayerSnapshot is one player's roster and pending-decision state.
type PlayerSnapshot struct {
	ID    string        `json:"id"`
	Ready bool          `json:"ready"`
	Team  []MonSnapshot `json:"team"`
}

// BattleSnapshot is the complete externally-visible battle state for a
// given viewing perspective: side < 0 sees the fully public view, side >= 0
// also sees that side's private log entries.
type BattleSnapshot struct {
	Turn    int              `json:"turn"`
	Ended   bool             `json:"ended"`
	Winner  int              `json:"winner"`
	Weather string           `json:"weather,omitempty"`
	Terrain string           `json:"terrain,omitempty"`
	Sides   [][]PlayerSnapshot `json:"sides"`
	Log     []string         `json:"log"`
}

func monSnapshot(m *Mon) MonSnapshot {
	return MonSnapshot{
		Species:  m.Species.Name,
		Nickname: m.Nickname,
		Level:    m.Level,
		CurHP:    m.CurHP,
		MaxHP:    m.MaxHP,
		Status:   string(m.Status),
		Fainted:  m.Fainted,
		Active:   m.Active,
		Position: m.Position,
		Boosts:   m.Boosts,
	}
}

// Snapshot returns a point-in-time view of the battle for the given
// perspective (side index, or -1 for the spectator view). This is the
// engine's half of the Battle Host's `battle()` entry point; the transport
// layer (internal/api) wraps it with JSON encoding and performs no
// player authentication.
func (b *Battle) Snapshot(side int) BattleSnapshot {
	snap := BattleSnapshot{
		Turn:    b.Turn,
		Ended:   b.ended,
		Weather: b.Field.Weather,
		Terrain: b.Field.Terrain,
		Log:     b.Log.FullLog(side),
	}
	if b.hasWinner {
		snap.Winner = b.winner
	} else {
		snap.Winner = -1
	}
	for _, s := range b.Sides {
		var players []PlayerSnapshot
		for _, p := range s.Players {
			ps := PlayerSnapshot{ID: p.ID, Ready: p.Ready}
			for _, m := range p.Team {
				ps.Team = append(ps.Team, monSnapshot(m))
			}
			players = append(players, ps)
		}
		snap.Sides = append(snap.Sides, players)
	}
	return snap
}

// PlayerData returns the single player's own snapshot view (their side's
// private perspective), or false if no such player exists.
func (b *Battle) PlayerData(playerID string) (PlayerSnapshot, bool) {
	p, _ := b.findPlayer(playerID)
	if p == nil {
		return PlayerSnapshot{}, false
	}
	ps := PlayerSnapshot{ID: p.ID, Ready: p.Ready}
	for _, m := range p.Team {
		ps.Team = append(ps.Team, monSnapshot(m))
	}
	return ps, true
}

// NewLogs returns the log entries produced since the last NewLogs call for
// the given player's perspective, advancing that perspective's read cursor.
// The public spectator feed uses side -1.
func (b *Battle) NewLogs(side int) []string { return b.Log.NewLogs(side) }

// FullLog returns the entire log from the given perspective, without
// disturbing any NewLogs cursor.
func (b *Battle) FullLog(side int) []string { return b.Log.FullLog(side) }

// UpdateTeam replaces a benched (non-active) team member's moveset or held
// item for playerID — the narrow "team management between battles" hook a
// host needs without reopening the whole Mon constructor (e.g. a learned
// move after a level-up, or re-equipping an item). It refuses to touch an
// active position, since that would invalidate handles mid-battle.
func (b *Battle) UpdateTeam(playerID string, teamIndex int, moves []content.Id, item content.Id) error {
	p, _ := b.findPlayer(playerID)
	if p == nil {
		return &ChoiceError{Reason: ReasonNotYourTurn, Message: "unknown player"}
	}
	m := p.MonAt(teamIndex)
	if m == nil {
		return &ChoiceError{Reason: ReasonInvalidSwitch, Message: "no such team member"}
	}
	if m.Active {
		return &ChoiceError{Reason: ReasonInvalidSwitch, Message: "can't update an active mon mid-battle"}
	}
	if moves != nil {
		newMoves := make([]MonMove, 0, len(moves))
		for _, id := range moves {
			pp := 20
			if md, ok := b.Content.Move(id); ok {
				pp = md.PP
			}
			newMoves = append(newMoves, MonMove{Move: id, PP: pp, MaxPP: pp})
		}
		m.Moves = newMoves
	}
	if item != "" {
		m.Item = item
		m.ItemState = nil
		m.ItemKnockedOff = false
	}
	return nil
}

// Host serializes concurrent access into one otherwise single-threaded
// Battle. The core itself never runs two calls at once; Host is the
// seam a transport layer (internal/api) locks around every call that
// touches battle state, so many HTTP goroutines can share one running
// battle safely.
type Host struct {
	mu sync.Mutex
	B  *Battle
}

// NewHost wraps b for concurrent access.
func NewHost(b *Battle) *Host { return &Host{B: b} }

// SetPlayerChoice submits playerID's choice text under the host lock.
func (h *Host) SetPlayerChoice(playerID, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.SetPlayerChoice(playerID, text)
}

// AdvanceTurn resolves the current turn under the host lock, a no-op error
// if the battle isn't ready to advance yet.
func (h *Host) AdvanceTurn() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.AdvanceTurn()
}

// SubmitReplacement submits a forced-switch replacement under the host lock.
func (h *Host) SubmitReplacement(playerID string, teamIndex int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.SubmitReplacement(playerID, teamIndex)
}

// NeedsReplacement reports which positions are waiting on a replacement
// choice.
func (h *Host) NeedsReplacement() []PositionHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.NeedsReplacement()
}

// Snapshot returns a point-in-time view for the given perspective.
func (h *Host) Snapshot(side int) BattleSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.Snapshot(side)
}

// PlayerData returns one player's own snapshot.
func (h *Host) PlayerData(playerID string) (PlayerSnapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.PlayerData(playerID)
}

// Request returns the decision request the engine is currently waiting on
// from playerID.
func (h *Host) Request(playerID string) (Request, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.Request(playerID)
}

// NewLogs returns (and advances the cursor for) log entries new since the
// last call from this perspective.
func (h *Host) NewLogs(side int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.NewLogs(side)
}

// FullLog returns the complete log from the given perspective.
func (h *Host) FullLog(side int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.FullLog(side)
}

// PushOutsideEffect queues an external effect injection under the host lock.
func (h *Host) PushOutsideEffect(req OutsideEffectRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.B.PushOutsideEffect(req)
}

// AllReady reports whether every player has a pending choice submitted.
func (h *Host) AllReady() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.AllReady()
}

// Ended reports whether the battle has concluded.
func (h *Host) Ended() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.Ended()
}

// EffectCacheStats exposes the effect manager's LRU hit/miss counters for
// the host's cache-hit-ratio gauge.
func (h *Host) EffectCacheStats() (hits, misses int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.EffectManager.CacheStats()
}

// CallbackEvals returns the number of fxlang callback evaluations run so
// far in this battle, for the host's evaluation-count metric.
func (h *Host) CallbackEvals() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.B.EffectManager.CallbackEvals()
}
