package stepper

import (
	"math/rand"
	"sync"

	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/ident"
)

// RNGPool hands out a deterministic, independent *rand.Rand per patch,
// seeded from (runSeed, patch coordinate) rather than visit order — this
// resolves the spec's Open Question on RNG-stream assignment under
// patch-parallelism, since a worker-pool visit order is not itself
// deterministic (spec §5: "the RNG is seeded per patch from a deterministic
// stream").
type RNGPool struct {
	runSeed int64

	mu    sync.Mutex
	byID  map[int64]*rand.Rand
	coord map[int64][2]int // entity id -> (i, j), set by Assign
}

// NewRNGPool builds a pool keyed by runSeed.
func NewRNGPool(runSeed int64) *RNGPool {
	return &RNGPool{runSeed: runSeed, byID: make(map[int64]*rand.Rand), coord: make(map[int64][2]int)}
}

// Assign binds a patch entity to its grid coordinate, computing and caching
// its deterministic RNG stream. Called once per patch at grid construction.
func (p *RNGPool) Assign(patch *entity.Entity, i, j int) {
	seed := ident.PatchRNGSeed(p.runSeed, i, j)
	p.mu.Lock()
	p.byID[patch.ID()] = rand.New(rand.NewSource(seed))
	p.coord[patch.ID()] = [2]int{i, j}
	p.mu.Unlock()
}

// Coord returns the grid coordinate assigned to patch id, if any.
func (p *RNGPool) Coord(id int64) (i, j int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, found := p.coord[id]
	return c[0], c[1], found
}

// For resolves e's RNG: e's own stream if it is itself an assigned patch,
// otherwise its nearest registered ancestor's stream (a child entity shares
// its patch's stream, since spec §5 scopes determinism per patch, not per
// entity).
func (p *RNGPool) For(e *entity.Entity) *rand.Rand {
	p.mu.Lock()
	defer p.mu.Unlock()
	for cur := e; cur != nil; cur = cur.Parent() {
		if rng, ok := p.byID[cur.ID()]; ok {
			return rng
		}
	}
	return nil
}
