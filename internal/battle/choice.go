package battle

import (
	"strconv"
	"strings"

	"github.com/battlecore/battlecore/internal/content"
)

// parseChoiceText splits a raw choice string into one Choice per active
// position on side sideIdx: one logical choice per active slot,
// separated by ';'.
func parseChoiceText(b *Battle, sideIdx int, text string) ([]Choice, error) {
	parts := strings.Split(text, ";")
	out := make([]Choice, 0, len(parts))
	for _, p := range parts {
		c, err := parseOneChoice(b, sideIdx, strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseOneChoice(b *Battle, sideIdx int, text string) (Choice, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Choice{}, &ChoiceError{Reason: ReasonMalformed, Message: "empty choice"}
	}
	verb := strings.ToLower(fields[0])
	switch verb {
	case "pass":
		return Choice{Kind: ChoicePass}, nil
	case "escape":
		return Choice{Kind: ChoiceEscape}, nil
	case "forfeit":
		return Choice{Kind: ChoiceForfeit}, nil
	case "switch":
		if len(fields) < 2 {
			return Choice{}, &ChoiceError{Reason: ReasonMalformed, Message: "switch requires a team index"}
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return Choice{}, &ChoiceError{Reason: ReasonMalformed, Message: "switch: bad team index"}
		}
		return Choice{Kind: ChoiceSwitch, SwitchTo: idx}, nil
	case "move":
		return parseMoveChoice(b, sideIdx, fields[1:])
	case "item":
		return parseItemChoice(b, sideIdx, fields[1:])
	case "team":
		return Choice{}, &ChoiceError{Reason: ReasonMalformed, Message: "team ordering is only accepted during team preview"}
	case "learnmove":
		// Move learning happens between battles (UpdateTeam); the in-battle
		// verb is recognized so a client gets a semantic rejection rather
		// than an unknown-verb one.
		return Choice{}, &ChoiceError{Reason: ReasonMalformed, Message: "no move is waiting to be learned"}
	default:
		return Choice{}, &ChoiceError{Reason: ReasonMalformed, Message: "unknown choice verb " + verb}
	}
}

// setTeamChoice handles the team-preview phase's `team i j k ...` ordering
// submission: every index must name a distinct team member; members left
// unnamed keep their relative order behind the named ones.
func (b *Battle) setTeamChoice(p *Player, text string) error {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) < 2 || strings.ToLower(fields[0]) != "team" {
		return &ChoiceError{Reason: ReasonMalformed, Message: "team preview requires a team ordering choice"}
	}
	order := make([]int, 0, len(fields)-1)
	seen := map[int]bool{}
	for _, f := range fields[1:] {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n >= len(p.Team) || seen[n] {
			return &ChoiceError{Reason: ReasonMalformed, Message: "team: bad or repeated team index " + f}
		}
		seen[n] = true
		order = append(order, n)
	}
	p.TeamOrder = order
	p.Ready = true
	return nil
}

// applyTeamOrders consumes every player's pending team-preview ordering,
// reordering their roster before the opening switch-ins.
func (b *Battle) applyTeamOrders() {
	for _, s := range b.Sides {
		for _, p := range s.Players {
			if len(p.TeamOrder) > 0 {
				picked := make([]*Mon, 0, len(p.Team))
				taken := make([]bool, len(p.Team))
				for _, i := range p.TeamOrder {
					picked = append(picked, p.Team[i])
					taken[i] = true
				}
				for i, m := range p.Team {
					if !taken[i] {
						picked = append(picked, m)
					}
				}
				p.Team = picked
				b.Log.Add(0, "team|player:%s", p.ID)
			}
			p.TeamOrder = nil
			p.Ready = false
		}
	}
}

// parseTargetArg decodes the shared sign convention: the absolute value is
// the 1-based position, and the sign selects side (positive = foe side,
// negative = ally side), relative to sideIdx.
func parseTargetArg(sideIdx int, arg string) (PositionHandle, bool, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return PositionHandle{}, false, &ChoiceError{Reason: ReasonMalformed, Message: "bad target"}
	}
	if n == 0 {
		return PositionHandle{}, false, &ChoiceError{Reason: ReasonInvalidTarget, Message: "invalid target"}
	}
	abs := n
	foeSide := n > 0
	if abs < 0 {
		abs = -abs
	}
	targetSide := sideIdx
	if foeSide {
		targetSide = 1 - sideIdx
	}
	return PositionHandle{Side: targetSide, Position: abs - 1}, true, nil
}

func parseMoveChoice(b *Battle, sideIdx int, args []string) (Choice, error) {
	if len(args) == 0 {
		return Choice{}, &ChoiceError{Reason: ReasonMalformed, Message: "move requires a slot"}
	}
	csv := strings.Split(strings.Join(args, ""), ",")
	slot, err := strconv.Atoi(strings.TrimSpace(csv[0]))
	if err != nil {
		return Choice{}, &ChoiceError{Reason: ReasonMalformed, Message: "move: bad slot"}
	}
	c := Choice{Kind: ChoiceMove, MoveSlot: slot}
	for _, extra := range csv[1:] {
		extra = strings.TrimSpace(extra)
		switch extra {
		case "mega":
			c.Mega = true
		case "tera":
			c.Tera = true
		case "dyna":
			// accepted, no dynamax mechanic implemented.
		default:
			pos, ok, err := parseTargetArg(sideIdx, extra)
			if err != nil {
				return Choice{}, err
			}
			if ok {
				c.Target, c.HasTarget = pos, true
			}
		}
	}
	return c, nil
}

func parseItemChoice(b *Battle, sideIdx int, args []string) (Choice, error) {
	if len(args) == 0 {
		return Choice{}, &ChoiceError{Reason: ReasonMalformed, Message: "item requires an id"}
	}
	csv := strings.Split(strings.Join(args, ""), ",")
	c := Choice{Kind: ChoiceItem, ItemID: content.NormalizeId(strings.TrimSpace(csv[0]))}
	if len(csv) > 1 {
		pos, ok, err := parseTargetArg(sideIdx, strings.TrimSpace(csv[1]))
		if err != nil {
			// Re-report a bad item target with the item's own name
			// ("invalid target for X Attack").
			if ce, isChoiceErr := err.(*ChoiceError); isChoiceErr && ce.Reason == ReasonInvalidTarget {
				name := string(c.ItemID)
				if item, ok := b.Content.Item(c.ItemID); ok {
					name = item.Name
				}
				return Choice{}, &ChoiceError{Reason: ReasonItemInvalidTarget, Message: "invalid target for " + name}
			}
			return Choice{}, err
		}
		if ok {
			c.Target, c.HasTarget = pos, true
		}
	}
	return c, nil
}
