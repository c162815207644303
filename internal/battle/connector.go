package battle

// Connector is a pure value naming where an effect-state record lives,
// without owning it. Every carrier variant the battle
// knows about implements this interface; fxlang scripts receive a
// Connector wrapped as a fxlang.Value (tag "connector") so a callback can
// read/write its own persisted state without knowing which carrier it
// lives on.
type Connector interface {
	// Exists reports whether this connector's effect-state currently has
	// a home — always true for always-present carriers (ability, status
	// slot itself), conditional for removable carriers (item, volatile).
	Exists(b *Battle) bool
	// Get returns the effect-state record, creating one on first access
	// for carriers where Exists is about the *effect* being present, not
	// the record (e.g. a freshly added volatile already has a record).
	Get(b *Battle) *EffectState
}

// ActiveMoveConnector names the effect-state of a move in progress.
type ActiveMoveConnector struct{ Move *ActiveMove }

func (c ActiveMoveConnector) Exists(b *Battle) bool { return c.Move != nil }
func (c ActiveMoveConnector) Get(b *Battle) *EffectState {
	if c.Move == nil {
		return nil
	}
	return c.Move.EffectState
}

// MonAbilityConnector names a mon's current ability's effect-state.
type MonAbilityConnector struct{ Mon MonHandle }

func (c MonAbilityConnector) Exists(b *Battle) bool { return b.monAt(c.Mon) != nil }
func (c MonAbilityConnector) Get(b *Battle) *EffectState {
	m := b.monAt(c.Mon)
	if m == nil {
		return nil
	}
	if m.AbilityState == nil {
		m.AbilityState = NewEffectState()
	}
	return m.AbilityState
}

// MonItemConnector names a mon's held item's effect-state; it does not
// exist once the item is lost.
type MonItemConnector struct{ Mon MonHandle }

func (c MonItemConnector) Exists(b *Battle) bool {
	m := b.monAt(c.Mon)
	return m != nil && m.Item != ""
}
func (c MonItemConnector) Get(b *Battle) *EffectState {
	m := b.monAt(c.Mon)
	if m == nil || m.Item == "" {
		return nil
	}
	if m.ItemState == nil {
		m.ItemState = NewEffectState()
	}
	return m.ItemState
}

// MonStatusConnector names a mon's primary status's effect-state.
type MonStatusConnector struct{ Mon MonHandle }

func (c MonStatusConnector) Exists(b *Battle) bool {
	m := b.monAt(c.Mon)
	return m != nil && m.Status != ""
}
func (c MonStatusConnector) Get(b *Battle) *EffectState {
	m := b.monAt(c.Mon)
	if m == nil || m.Status == "" {
		return nil
	}
	if m.StatusState == nil {
		m.StatusState = NewEffectState()
	}
	return m.StatusState
}

// MonVolatileConnector names one of a mon's volatile conditions by id.
type MonVolatileConnector struct {
	Mon MonHandle
	ID  string
}

func (c MonVolatileConnector) Exists(b *Battle) bool {
	m := b.monAt(c.Mon)
	if m == nil {
		return false
	}
	_, ok := m.Volatiles[c.ID]
	return ok
}
func (c MonVolatileConnector) Get(b *Battle) *EffectState {
	m := b.monAt(c.Mon)
	if m == nil {
		return nil
	}
	return m.Volatiles[c.ID]
}

// SideConditionConnector names a side condition by id.
type SideConditionConnector struct {
	Side int
	ID   string
}

func (c SideConditionConnector) Exists(b *Battle) bool {
	s := b.sideAt(c.Side)
	if s == nil {
		return false
	}
	_, ok := s.Conditions[c.ID]
	return ok
}
func (c SideConditionConnector) Get(b *Battle) *EffectState {
	s := b.sideAt(c.Side)
	if s == nil {
		return nil
	}
	return s.Conditions[c.ID]
}

// WeatherConnector names the field's current weather slot.
type WeatherConnector struct{}

func (c WeatherConnector) Exists(b *Battle) bool { return b.Field.Weather != "" }
func (c WeatherConnector) Get(b *Battle) *EffectState {
	if b.Field.WeatherState == nil {
		b.Field.WeatherState = NewEffectState()
	}
	return b.Field.WeatherState
}

// TerrainConnector names the field's current terrain slot.
type TerrainConnector struct{}

func (c TerrainConnector) Exists(b *Battle) bool { return b.Field.Terrain != "" }
func (c TerrainConnector) Get(b *Battle) *EffectState {
	if b.Field.TerrainState == nil {
		b.Field.TerrainState = NewEffectState()
	}
	return b.Field.TerrainState
}

// PseudoWeatherConnector names one entry of the field's pseudo-weather map.
type PseudoWeatherConnector struct{ ID string }

func (c PseudoWeatherConnector) Exists(b *Battle) bool {
	_, ok := b.Field.PseudoWeather[c.ID]
	return ok
}
func (c PseudoWeatherConnector) Get(b *Battle) *EffectState { return b.Field.PseudoWeather[c.ID] }

// FieldConditionConnector names one entry of the field's room-style global
// condition set.
type FieldConditionConnector struct{ ID string }

func (c FieldConditionConnector) Exists(b *Battle) bool {
	_, ok := b.Field.Conditions[c.ID]
	return ok
}
func (c FieldConditionConnector) Get(b *Battle) *EffectState { return b.Field.Conditions[c.ID] }
