package battle

// Field is the battle-wide environment shared by both sides: weather,
// terrain, and the handful of global pseudo-weather and room-style
// conditions that are not scoped to a single side.
type Field struct {
	Weather      string
	WeatherState *EffectState

	Terrain      string
	TerrainState *EffectState

	// Environment is the static terrain-like backdrop Nature Power reads;
	// unlike Terrain it has no duration and is not itself an effect
	// carrier.
	Environment string

	PseudoWeather map[string]*EffectState
	Conditions    map[string]*EffectState
}

// NewField returns an empty field with no weather or terrain active.
func NewField() *Field {
	return &Field{
		PseudoWeather: map[string]*EffectState{},
		Conditions:    map[string]*EffectState{},
	}
}

// SetWeather installs w as the active weather, replacing any prior weather,
// and returns the fresh effect-state for the caller's End-of-life-state
// initialization (e.g. setting its duration).
func (f *Field) SetWeather(w string) *EffectState {
	f.Weather = w
	f.WeatherState = NewEffectState()
	return f.WeatherState
}

// ClearWeather removes the active weather entirely.
func (f *Field) ClearWeather() {
	f.Weather = ""
	f.WeatherState = nil
}

// SetTerrain installs t as the active terrain, replacing any prior terrain.
func (f *Field) SetTerrain(t string) *EffectState {
	f.Terrain = t
	f.TerrainState = NewEffectState()
	return f.TerrainState
}

// ClearTerrain removes the active terrain entirely.
func (f *Field) ClearTerrain() {
	f.Terrain = ""
	f.TerrainState = nil
}
