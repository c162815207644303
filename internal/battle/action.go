package battle

import "github.com/battlecore/battlecore/internal/content"

// ActionKind distinguishes the action flavors the scheduler orders; team
// preview picks never reach this layer, so the kinds start at Start.
type ActionKind int

const (
	ActionStart ActionKind = iota
	ActionSwitch
	ActionItem
	ActionBeforeTurn
	ActionMegaEvo
	ActionMove
	ActionPass
	ActionResidual
)

// order is the action kind's phase bucket: lower runs first, ties broken by
// priority then speed then sub-order, per the scheduler's ordering key.
// BeforeTurn and Residual are never themselves queued (the turn controller
// runs the residual phase itself after the queue drains, and runs no
// BeforeTurn phase); their
// order values are kept only so the enum stays total.
func (k ActionKind) order() int {
	switch k {
	case ActionStart:
		return 0
	case ActionSwitch:
		return 1
	case ActionItem:
		return 1
	case ActionBeforeTurn:
		return 2
	case ActionMegaEvo:
		return 3
	case ActionMove:
		return 4
	case ActionPass:
		// Pass shares the move phase.
		return 4
	case ActionResidual:
		return 6
	}
	return 99
}

// Action is one scheduled unit of work for a turn: a move, a switch, a
// residual tick, or one of the other kinds above. SubOrder breaks ties
// between two same-kind, same-priority, same-speed actions deterministically
// (insertion order), before the PRNG is consulted for a genuine speed tie.
type Action struct {
	Kind     ActionKind
	Mon      MonHandle
	Priority int
	Speed    int
	SubOrder int

	// MoveID/Target are populated for ActionMove. Tera carries the
	// player's terastallize gesture through to execution time.
	MoveID content.Id
	Target PositionHandle
	HasTarget bool
	Tera   bool

	// SwitchTo is the team index a ActionSwitch action brings in.
	SwitchTo int

	// ItemID/ItemTarget are populated for ActionItem.
	ItemID     content.Id
	ItemTarget MonHandle
	HasItemTarget bool
}

// Choice is what a player submitted through SetPlayerChoice for a single
// active position, before it has been materialized into an Action by the
// turn controller. A doubles choice string carries one of these per
// position, separated by ';'.
type Choice struct {
	Kind ChoiceKind

	MoveSlot  int // index into the mon's Moves
	Target    PositionHandle
	HasTarget bool

	SwitchTo int // team index

	ItemID content.Id

	Mega bool
	Tera bool
}

// ChoiceKind is the public taxonomy of a player's decision, echoed back in
// a ChoiceError when a submission is rejected.
type ChoiceKind int

const (
	ChoiceMove ChoiceKind = iota
	ChoiceSwitch
	ChoicePass
	ChoiceItem
	ChoiceEscape
	ChoiceForfeit
)

// ChoiceError reports why SetPlayerChoice rejected a submission, carrying a
// stable Reason tag a client can branch on without parsing prose.
type ChoiceError struct {
	Reason  string
	Message string
}

func (e *ChoiceError) Error() string { return e.Message }

// Failure taxonomy: recoverable
// reasons a client can detect and retry, distinct from structural parse
// errors which are never retried with the same text.
const (
	ReasonUnknownMove    = "unknown_move"
	ReasonMoveDisabled   = "move_disabled"
	ReasonNoPP           = "no_pp"
	ReasonInvalidTarget  = "invalid_target"
	ReasonInvalidSwitch  = "invalid_switch"
	ReasonNotYourTurn    = "not_your_turn"
	ReasonAlreadyFainted = "already_fainted"
	ReasonMustSwitch     = "must_switch"
	ReasonSwitchTrapped  = "switch_trapped"
	ReasonItemInvalidTarget = "item_invalid_target"
	ReasonCannotUseItem  = "cannot_use_item"
	ReasonCannotEscape   = "cannot_escape"
	ReasonCannotForfeit  = "cannot_forfeit"
	ReasonMalformed      = "malformed_choice"
)
