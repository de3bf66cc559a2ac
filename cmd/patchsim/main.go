// Command patchsim runs a compiled model against a run configuration,
// printing the resulting export stream and any assertion diagnostics.
// Flag layout and verbose/annotation wiring adapted from the teacher's
// cmd/datalog/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/patchsim/engine/annotate"
	"github.com/patchsim/engine/config"
	"github.com/patchsim/engine/entity"
	"github.com/patchsim/engine/external"
	"github.com/patchsim/engine/externalcache"
	"github.com/patchsim/engine/geo"
	"github.com/patchsim/engine/handler"
	"github.com/patchsim/engine/report"
	"github.com/patchsim/engine/resolver"
	"github.com/patchsim/engine/stepper"
	"github.com/patchsim/engine/value"
)

func main() {
	var configPath string
	var verbose bool
	var help bool

	flag.StringVar(&configPath, "config", "run.yaml", "run configuration path")
	flag.BoolVar(&verbose, "verbose", false, "verbose mode (show lifecycle annotations)")
	flag.BoolVar(&help, "h", false, "show help")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Runs the built-in demo model against a run configuration.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                       # Run the demo with default settings\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config run.yaml      # Run with an explicit configuration\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -verbose               # Show substep/timestep annotations\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	cfg := loadOrDefault(configPath)
	value.SetDecimalPreference(cfg.FavorBigDecimal)

	cache, err := externalcache.Open(cfg.CachePath)
	if err != nil {
		log.Fatalf("patchsim: opening external cache: %v", err)
	}
	defer cache.Close()

	simType, patchType, treeType := buildDemoModel()

	sim := entity.New(simType, "", geo.NewRect(0, 0, 1, 1), nil)

	gridCfg := external.GridConfig{Size: cfg.Grid.Size, LowX: cfg.Grid.Low[0], LowY: cfg.Grid.Low[1], HighX: cfg.Grid.High[0], HighY: cfg.Grid.High[1]}
	cells := external.BuildPatchSet(gridCfg, patchType, "", cfg.RandSeed)
	if len(cells) == 0 {
		log.Fatalf("patchsim: grid configuration produced no patches")
	}

	reg := stepper.NewRegistry()
	rngPool := stepper.NewRNGPool(cfg.RandSeed)
	for _, c := range cells {
		rngPool.Assign(c.Entity, c.I, c.J)
		tree := entity.New(treeType, "", nil, c.Entity)
		reg.Register(tree)
		c.Entity.SetSlot("tree", value.Ref(value.EntityRef{ID: tree.ID(), TypeName: "Tree"}))
	}

	here := func(e *entity.Entity) *entity.Entity {
		for cur := e; cur != nil; cur = cur.Parent() {
			if cur.Type() == patchType {
				return cur
			}
		}
		return nil
	}
	all := func() (value.Value, error) {
		var refs []value.Value
		for _, e := range reg.All() {
			if e.Type() == treeType {
				refs = append(refs, value.Ref(value.EntityRef{ID: e.ID(), TypeName: "Tree"}))
			}
		}
		return value.FromDistribution(value.NewRealized(refs, value.Dimensionless())), nil
	}
	var collector *annotate.Collector
	if verbose {
		handlerFn := annotate.NewTextHandler(os.Stderr).Handle
		collector = annotate.NewCollector(handlerFn)
	}

	dataSource := externalcache.DataSource{Cache: cache}

	recorder := report.NewRecorder()
	res := resolver.New(sim, here, all, nil, rngPool.For, recorder.AssertionResult, collector)
	externalFactory := resolver.DataSourceFetcher(dataSource, res.Timestep, collector)
	res.SetExternal(externalFactory)
	sim.SetResolver(res)
	for _, c := range cells {
		c.Entity.SetResolver(res)
	}
	for _, e := range reg.All() {
		e.SetResolver(res)
	}

	pool := stepper.NewWorkerPool(cfg.Workers)
	st := stepper.New(sim, cells, reg, pool, res, collector, recorder, cfg.Steps.Low, cfg.Steps.High)

	if err := st.Run(context.Background()); err != nil {
		log.Fatalf("patchsim: run failed: %v", err)
	}

	formatter := report.NewTableFormatter()
	fmt.Println(formatter.FormatExports(recorder.Exports()))
	if failures := recorder.Failures(); len(failures) > 0 {
		fmt.Println(formatter.FormatFailures(failures))
	}
}

// loadOrDefault loads configPath if present, falling back to a small
// built-in demo grid so the binary runs with zero configuration.
func loadOrDefault(configPath string) *config.RunConfig {
	if _, err := os.Stat(configPath); err == nil {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("patchsim: %v", err)
		}
		return cfg
	}
	cfg := config.Default()
	cfg.Steps.Low = 0
	cfg.Steps.High = 5
	cfg.Grid.Size = 10
	cfg.Grid.High = [2]float64{10, 10}
	cfg.Grid.Patch = "Patch"
	cfg.RandSeed = 1
	return cfg
}

// buildDemoModel compiles the spec's S1 "monotonic growth" worked example:
// one patch per grid cell, each owning a single ForeverTree-style organism
// whose age increments every step from its prior value. Demonstrates the
// wiring a real compiled model would exercise; DSL compilation itself is
// out of scope.
func buildDemoModel() (simType, patchType, treeType *handler.EntityType) {
	ageInit := func(env handler.Env) (value.Value, error) {
		return value.Int(0, value.Dimensionless()), nil
	}
	ageStep := func(env handler.Env) (value.Value, error) {
		prior, err := env.Prior("age")
		if err != nil {
			return value.Value{}, err
		}
		n, _ := prior.AsInt()
		return value.Int(n+1, value.Dimensionless()), nil
	}
	exportAge := func(env handler.Env) (value.Value, error) {
		return env.Current("age")
	}

	var err error
	treeType, err = handler.NewEntityType("Tree", []string{"age", "export.age"}, []handler.Declaration{
		{Attribute: "age", Event: handler.Init, Callable: ageInit},
		{Attribute: "age", Event: handler.Step, Callable: ageStep},
		{Attribute: "export.age", Event: handler.Step, Callable: exportAge},
	})
	if err != nil {
		log.Fatalf("patchsim: compiling Tree type: %v", err)
	}

	patchType, err = handler.NewEntityType("Patch", []string{"tree"}, nil)
	if err != nil {
		log.Fatalf("patchsim: compiling Patch type: %v", err)
	}

	simType, err = handler.NewEntityType("Simulation", nil, nil)
	if err != nil {
		log.Fatalf("patchsim: compiling Simulation type: %v", err)
	}

	return simType, patchType, treeType
}
