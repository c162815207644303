package content

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed data/*.json
var seedData embed.FS

// LocalStore is a read-only, in-memory Store backed by JSON files baked
// into the binary via go:embed — the engine's "DATA_DIR" collaborator for
// tests and small deployments.
type LocalStore struct {
	typeChart  TypeChart
	moves      map[Id]*MoveData
	abilities  map[Id]*AbilityData
	items      map[Id]*ItemData
	species    map[Id]*SpeciesData
	conditions map[Id]*ConditionData
	clauses    map[Id]*ClauseData
	aliases    map[Id]Id
}

// NewLocalStore loads the embedded seed data set and returns it as a Store.
// Loading is a one-time process-startup cost; the returned Store is
// immutable and safe to share across many battles.
func NewLocalStore() (*LocalStore, error) {
	s := &LocalStore{
		moves:      map[Id]*MoveData{},
		abilities:  map[Id]*AbilityData{},
		items:      map[Id]*ItemData{},
		species:    map[Id]*SpeciesData{},
		conditions: map[Id]*ConditionData{},
		clauses:    map[Id]*ClauseData{},
		aliases:    map[Id]Id{},
	}

	if err := loadJSON(&s.typeChart, "data/typechart.json"); err != nil {
		return nil, err
	}
	raw := map[string]*MoveData{}
	if err := loadJSON(&raw, "data/moves.json"); err != nil {
		return nil, err
	}
	for k, v := range raw {
		s.moves[NormalizeId(k)] = v
	}
	rawA := map[string]*AbilityData{}
	if err := loadJSON(&rawA, "data/abilities.json"); err != nil {
		return nil, err
	}
	for k, v := range rawA {
		s.abilities[NormalizeId(k)] = v
	}
	rawI := map[string]*ItemData{}
	if err := loadJSON(&rawI, "data/items.json"); err != nil {
		return nil, err
	}
	for k, v := range rawI {
		s.items[NormalizeId(k)] = v
	}
	rawS := map[string]*SpeciesData{}
	if err := loadJSON(&rawS, "data/species.json"); err != nil {
		return nil, err
	}
	for k, v := range rawS {
		s.species[NormalizeId(k)] = v
	}
	rawC := map[string]*ConditionData{}
	if err := loadJSON(&rawC, "data/conditions.json"); err != nil {
		return nil, err
	}
	for k, v := range rawC {
		s.conditions[NormalizeId(k)] = v
	}
	return s, nil
}

func loadJSON(dst interface{}, path string) error {
	b, err := seedData.ReadFile(path)
	if err != nil {
		return fmt.Errorf("content: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("content: parsing %s: %w", path, err)
	}
	return nil
}

func (s *LocalStore) TypeChart() TypeChart { return s.typeChart }

func (s *LocalStore) Move(id Id) (*MoveData, bool) {
	m, ok := s.moves[id]
	return m, ok
}

func (s *LocalStore) Ability(id Id) (*AbilityData, bool) {
	a, ok := s.abilities[id]
	return a, ok
}

func (s *LocalStore) Item(id Id) (*ItemData, bool) {
	i, ok := s.items[id]
	return i, ok
}

func (s *LocalStore) Species(id Id) (*SpeciesData, bool) {
	sp, ok := s.species[id]
	return sp, ok
}

func (s *LocalStore) Condition(id Id) (*ConditionData, bool) {
	c, ok := s.conditions[id]
	return c, ok
}

func (s *LocalStore) Clause(id Id) (*ClauseData, bool) {
	c, ok := s.clauses[id]
	return c, ok
}

func (s *LocalStore) TranslateAlias(id Id) (Id, bool) {
	a, ok := s.aliases[id]
	return a, ok
}
