package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/battlecore/battlecore/internal/battle"
	"github.com/battlecore/battlecore/internal/config"
	"github.com/battlecore/battlecore/internal/content"
	"github.com/battlecore/battlecore/internal/prng"
)

// MonRequest is the wire shape a caller submits to field one mon.
type MonRequest struct {
	Species  string          `json:"species"`
	Nickname string          `json:"nickname,omitempty"`
	Level    int             `json:"level,omitempty"`
	Gender   string          `json:"gender,omitempty"`
	Nature   string          `json:"nature,omitempty"`
	Ability  string          `json:"ability,omitempty"`
	Item     string          `json:"item,omitempty"`
	Moves    []string        `json:"moves,omitempty"`
	IVs      content.StatTable `json:"ivs,omitempty"`
	EVs      content.StatTable `json:"evs,omitempty"`
}

// PlayerRequest is one side's roster for battle creation.
type PlayerRequest struct {
	ID    string         `json:"id"`
	Team  []MonRequest   `json:"team"`
	Bag   map[string]int `json:"bag,omitempty"`
}

// CreateBattleRequest is the POST /battles body.
type CreateBattleRequest struct {
	Format  string          `json:"format,omitempty"` // "singles" (default) or "doubles"
	Seed    int64           `json:"seed,omitempty"`
	Players []PlayerRequest `json:"players"`
}

func formatByName(name string) battle.Format {
	if name == "doubles" {
		return battle.DoublesFormat
	}
	return battle.SinglesFormat
}

func buildMon(store content.Store, req MonRequest) (*battle.Mon, error) {
	moves := make([]content.Id, 0, len(req.Moves))
	for _, m := range req.Moves {
		moves = append(moves, content.NormalizeId(m))
	}
	spec := battle.MonSpec{
		Species:  content.NormalizeId(req.Species),
		Nickname: req.Nickname,
		Level:    req.Level,
		Gender:   req.Gender,
		Nature:   req.Nature,
		Ability:  content.NormalizeId(req.Ability),
		Item:     content.NormalizeId(req.Item),
		Moves:    moves,
		IVs:      req.IVs,
		EVs:      req.EVs,
	}
	return battle.NewMon(store, spec)
}

// Registry owns every in-progress battle, keyed by a generated id. It is
// the transport layer's collaborator for the Battle Host: internal/battle
// knows nothing about HTTP, and Registry knows nothing about fxlang or the
// move pipeline — it only creates, looks up, and reaps battle.Host values.
type Registry struct {
	store   content.Store
	engine  config.EngineConfig

	mu       sync.RWMutex
	battles  map[string]*battle.Host
}

// NewRegistry returns a registry serving battles against store, using cfg
// for effect-manager limits and the default PRNG seed.
func NewRegistry(store content.Store, cfg config.EngineConfig) *Registry {
	return &Registry{store: store, engine: cfg, battles: map[string]*battle.Host{}}
}

// Count returns the number of currently tracked battles (ended or not),
// feeding the active-battle-count gauge.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.battles)
}

// Create builds a new battle from req and starts it, returning its id and
// host handle.
func (r *Registry) Create(req CreateBattleRequest) (string, *battle.Host, error) {
	if len(req.Players) != 2 {
		return "", nil, fmt.Errorf("api: battle requires exactly 2 players, got %d", len(req.Players))
	}
	seed := req.Seed
	if seed == 0 {
		seed = r.engine.DefaultSeed
	}
	src := prng.New(seed)
	b := battle.NewWithLimits(formatByName(req.Format), src, r.store, r.engine.EffectCacheSize, r.engine.MaxCallbackDepth)

	for sideIdx, pr := range req.Players {
		team := make([]*battle.Mon, 0, len(pr.Team))
		for _, mr := range pr.Team {
			m, err := buildMon(r.store, mr)
			if err != nil {
				return "", nil, fmt.Errorf("api: player %s: %w", pr.ID, err)
			}
			team = append(team, m)
		}
		idx, err := b.AddPlayer(sideIdx, pr.ID, team)
		if err != nil {
			return "", nil, err
		}
		p := b.Sides[sideIdx].Players[idx]
		for itemName, n := range pr.Bag {
			b.GiveItem(p, content.NormalizeId(itemName), n)
		}
	}
	if err := b.Start(); err != nil {
		return "", nil, fmt.Errorf("api: starting battle: %w", err)
	}

	id, err := randomID()
	if err != nil {
		return "", nil, err
	}
	host := battle.NewHost(b)

	r.mu.Lock()
	r.battles[id] = host
	r.mu.Unlock()
	return id, host, nil
}

// Get looks up a tracked battle by id.
func (r *Registry) Get(id string) (*battle.Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.battles[id]
	return h, ok
}

// Reap drops a battle from the registry, freeing its memory once a client
// has read its final log entries. Callers decide when a battle is done
// being polled; the registry itself never expires entries on a timer.
func (r *Registry) Reap(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.battles, id)
}

func randomID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("api: generating battle id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
