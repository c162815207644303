package battle

import "github.com/battlecore/battlecore/internal/content"

// RequestKind tells a player what class of choice the engine is waiting on
// from them.
type RequestKind string

const (
	// RequestTeam asks for a team-preview ordering (`team i j k ...`).
	RequestTeam RequestKind = "team"
	// RequestMove asks for one move/switch/item/pass choice per active
	// position.
	RequestMove RequestKind = "move"
	// RequestSwitch asks for a forced replacement for each listed
	// position, superseding any move request.
	RequestSwitch RequestKind = "switch"
)

// MoveChoiceInfo describes one selectable move slot in a request: its id,
// display name, remaining PP, and whether a disable-style effect currently
// blocks it.
type MoveChoiceInfo struct {
	Move     content.Id `json:"move"`
	Name     string     `json:"name"`
	PP       int        `json:"pp"`
	MaxPP    int        `json:"max_pp"`
	Disabled bool       `json:"disabled"`
}

// ActiveRequestInfo is the legal-choice summary for one of the player's
// active positions.
type ActiveRequestInfo struct {
	Position int              `json:"position"`
	Mon      string           `json:"mon"`
	Moves    []MoveChoiceInfo `json:"moves"`
	Trapped  bool             `json:"trapped"`
	CanTera  bool             `json:"can_tera"`
}

// Request is what the engine is waiting on from one player: the kind of
// choice, the per-position legal moves, and which bench slots a switch
// could bring in.
type Request struct {
	Kind      RequestKind         `json:"kind"`
	Player    string              `json:"player"`
	Actives   []ActiveRequestInfo `json:"actives,omitempty"`
	CanSwitch []int               `json:"can_switch,omitempty"`

	// ForcedSwitches lists the positions awaiting a replacement when Kind
	// is RequestSwitch.
	ForcedSwitches []PositionHandle `json:"forced_switches,omitempty"`
}

// Request builds the current decision request for playerID, or ok=false if
// the player doesn't exist or the battle has ended. A player who has
// already submitted a valid choice for this decision point still receives
// the same request back (resubmitting replaces the earlier choice).
func (b *Battle) Request(playerID string) (Request, bool) {
	p, sideIdx := b.findPlayer(playerID)
	if p == nil || b.ended {
		return Request{}, false
	}
	if b.awaitingTeam {
		return Request{Kind: RequestTeam, Player: playerID}, true
	}

	var canSwitch []int
	for i, m := range p.Team {
		if !m.Fainted && !m.Active {
			canSwitch = append(canSwitch, i)
		}
	}

	var forced []PositionHandle
	for _, r := range b.pendingReplacements {
		if r.Side == p.Side && r.Player == p.Index {
			forced = append(forced, PositionHandle{Side: r.Side, Position: r.Position})
		}
	}
	if len(forced) > 0 {
		return Request{Kind: RequestSwitch, Player: playerID, CanSwitch: canSwitch, ForcedSwitches: forced}, true
	}

	req := Request{Kind: RequestMove, Player: playerID, CanSwitch: canSwitch}
	side := b.sideAt(sideIdx)
	for pos := 0; pos < b.Format.ActivePerSide; pos++ {
		m := side.ActiveAt(b, pos)
		if m == nil {
			continue
		}
		info := ActiveRequestInfo{
			Position: pos,
			Mon:      m.Nickname,
			Trapped:  m.Trapped(),
			CanTera:  !p.Terastallized,
		}
		for _, mv := range m.Moves {
			name := string(mv.Move)
			if md, ok := b.Content.Move(mv.Move); ok {
				name = md.Name
			}
			info.Moves = append(info.Moves, MoveChoiceInfo{
				Move:     mv.Move,
				Name:     name,
				PP:       mv.PP,
				MaxPP:    mv.MaxPP,
				Disabled: mv.Disabled || mv.PP <= 0,
			})
		}
		req.Actives = append(req.Actives, info)
	}
	return req, true
}
