// Package external declares the engine's boundary with the outside world
// (spec §6): external-data fetch, export emission, assertion reporting,
// patch-grid construction, and the compiled "model bytecode" record the
// engine consumes. Concrete sinks (CSV/NetCDF writers, raster caches, the
// DSL compiler) are explicitly out of scope — only the interfaces and the
// grid-construction helper live here, grounded on the teacher's narrow
// storage.Backend-style interfaces in datalog/storage.
package external

import (
	"context"

	"github.com/patchsim/engine/geo"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/value"
)

// DataSource is the `fetch(name, geometry, timestep) -> Distribution` hook
// of spec §6. Implementations own their own caching; the engine assumes
// determinism within a timestep for a fixed (name, geometry) but makes no
// idempotency assumption across timesteps.
type DataSource interface {
	Fetch(ctx context.Context, name string, geometry geo.Geometry, timestep int) (value.Distribution, error)
}

// ExportSink receives one (patch_coord, timestep, attribute, value) record
// per `export.*` attribute after every `end` substep, in timestep order.
type ExportSink interface {
	Emit(patchCoord string, timestep int, attribute string, v value.Value)
}

// AssertionSink receives the outcome of every `assert.*` group as it
// occurs. Any ok=false result terminates the run (spec §6).
type AssertionSink interface {
	AssertionResult(entityID int64, attribute string, timestep int, ok bool, message string)
}

// EntityTypeSet names the compiled entity types a ModelProgram declares,
// keyed by type name.
type EntityTypeSet map[string]*handler.EntityType

// ModelProgram is the "model bytecode" record of spec §6: the compiled
// entity types, unit registry, and simulation parameters the DSL compiler
// (out of scope here) produces and this engine consumes. The exact format
// need not be bit-exact; this struct is the in-memory contract.
type ModelProgram struct {
	Types       EntityTypeSet
	Units       *value.Registry
	SimType     string // entity type name of the simulation entity
	PatchType   string // entity type name of the grid's patch entity
	InitialState string
}

// GridConfig is the subset of spec §6's recognized configuration options
// that drives patch-set construction.
type GridConfig struct {
	Size          float64 // grid.size: cell edge length
	LowX, LowY    float64 // grid.low
	HighX, HighY  float64 // grid.high
}

// Dims returns the (cols, rows) of the grid described by cfg.
func (cfg GridConfig) Dims() (cols, rows int) {
	if cfg.Size <= 0 {
		return 0, 0
	}
	cols = int((cfg.HighX-cfg.LowX)/cfg.Size + 0.5)
	rows = int((cfg.HighY-cfg.LowY)/cfg.Size + 0.5)
	return
}

// CellRect returns the (i,j) cell's rectangle within cfg's extent.
func (cfg GridConfig) CellRect(i, j int) geo.Rect {
	x0 := cfg.LowX + float64(i)*cfg.Size
	y0 := cfg.LowY + float64(j)*cfg.Size
	return geo.NewRect(x0, y0, x0+cfg.Size, y0+cfg.Size)
}
