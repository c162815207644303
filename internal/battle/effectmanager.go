package battle

import (
	"container/list"
	"fmt"

	"github.com/battlecore/battlecore/internal/content"
	"github.com/battlecore/battlecore/internal/fxlang"
)

// defaultEffectCacheSize/defaultMaxCallbackDepth are the effect manager's
// fallback limits when a battle is constructed without an explicit
// config.EngineConfig (e.g. in tests); NewEffectManagerWithLimits lets a
// host pass both from internal/config.
const (
	defaultEffectCacheSize  = 256
	defaultMaxCallbackDepth = 12
)

// EffectManager parses and caches fxlang programs by effect id for one
// battle. It is not safe for concurrent use; each Battle owns its own
// EffectManager.
type EffectManager struct {
	store content.Store
	owner *Battle

	cache    map[content.Id]*fxlang.Program
	order    *list.List
	elems    map[content.Id]*list.Element

	maxCache int
	maxDepth int
	depth    int

	hits, misses int
	callbackEvals int64
}

// NewEffectManager returns a manager backed by store, used by owner to
// resolve host callbacks during script execution, using the default cache
// size and recursion bound.
func NewEffectManager(store content.Store, owner *Battle) *EffectManager {
	return NewEffectManagerWithLimits(store, owner, defaultEffectCacheSize, defaultMaxCallbackDepth)
}

// NewEffectManagerWithLimits is NewEffectManager with explicit cache-size
// and recursion-depth bounds, the values a host loads from
// config.EngineConfig.
func NewEffectManagerWithLimits(store content.Store, owner *Battle, maxCache, maxDepth int) *EffectManager {
	if maxCache <= 0 {
		maxCache = defaultEffectCacheSize
	}
	if maxDepth <= 0 {
		maxDepth = defaultMaxCallbackDepth
	}
	return &EffectManager{
		store:    store,
		owner:    owner,
		cache:    map[content.Id]*fxlang.Program{},
		order:    list.New(),
		elems:    map[content.Id]*list.Element{},
		maxCache: maxCache,
		maxDepth: maxDepth,
	}
}

// Program returns the parsed fxlang program for the given source, caching
// it under id together with the source text: a move and the condition it
// installs can share an id in the content store (e.g. "perishsong",
// "substitute") while carrying different scripts.
func (em *EffectManager) Program(id content.Id, source string) (*fxlang.Program, error) {
	if source == "" {
		return nil, nil
	}
	key := id + content.Id("\x00"+source)
	if p, ok := em.cache[key]; ok {
		em.order.MoveToFront(em.elems[key])
		em.hits++
		return p, nil
	}
	em.misses++
	prog, err := fxlang.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("effect manager: parse %s: %w", id, err)
	}
	em.put(key, prog)
	return prog, nil
}

// CacheStats returns the number of program-cache hits and misses since
// construction, for a host's cache-hit-ratio gauge.
func (em *EffectManager) CacheStats() (hits, misses int) { return em.hits, em.misses }

// CallbackEvals returns the number of fxlang callback evaluations
// RunCallback has performed so far.
func (em *EffectManager) CallbackEvals() int64 { return em.callbackEvals }

func (em *EffectManager) put(id content.Id, prog *fxlang.Program) {
	if len(em.cache) >= em.maxCache {
		oldest := em.order.Back()
		if oldest != nil {
			oldID := oldest.Value.(content.Id)
			em.order.Remove(oldest)
			delete(em.cache, oldID)
			delete(em.elems, oldID)
		}
	}
	em.cache[id] = prog
	em.elems[id] = em.order.PushFront(id)
}

// Enter increments the callback recursion depth, returning an error instead
// of entering once the bound is exceeded. Callers must call Exit exactly
// once for every successful Enter, typically via defer.
func (em *EffectManager) Enter() error {
	if em.depth >= em.maxDepth {
		return fmt.Errorf("effect manager: callback recursion depth exceeded (%d)", em.maxDepth)
	}
	em.depth++
	return nil
}

// Exit decrements the recursion depth.
func (em *EffectManager) Exit() {
	if em.depth > 0 {
		em.depth--
	}
}

// RunCallback parses (or reuses the cached parse of) source and evaluates
// callback name within it against ctx, guarding recursion depth around the
// call. It returns fxlang.Undefined() with ok=false if the program defines
// no such callback, mirroring fxlang.Eval's own contract.
func (em *EffectManager) RunCallback(id content.Id, source, name string, ctx *fxlang.Context) (result fxlang.Value, ok bool, err error) {
	if source == "" {
		return fxlang.Undefined(), false, nil
	}
	prog, err := em.Program(id, source)
	if err != nil {
		return fxlang.Undefined(), false, err
	}
	if err := em.Enter(); err != nil {
		return fxlang.Undefined(), false, err
	}
	defer em.Exit()
	em.callbackEvals++
	return fxlang.Eval(prog, name, ctx)
}
