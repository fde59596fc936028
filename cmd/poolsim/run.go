package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/pooling/internal/admin"
	"github.com/l1jgo/pooling/internal/config"
	"github.com/l1jgo/pooling/internal/core/event"
	coresys "github.com/l1jgo/pooling/internal/core/system"
	"github.com/l1jgo/pooling/internal/data"
	"github.com/l1jgo/pooling/internal/metrics"
	"github.com/l1jgo/pooling/internal/persist"
	"github.com/l1jgo/pooling/internal/pool"
	"github.com/l1jgo/pooling/internal/scene"
	"github.com/l1jgo/pooling/internal/scripting"
	"github.com/l1jgo/pooling/internal/system"
	"go.uber.org/zap"
)

func run(cfgPath string) error {
	// 1. Load config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Optional PostgreSQL for stats history
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var snapshots *persist.SnapshotRepo
	runID := uuid.Nil
	if cfg.Database.Enabled {
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		snapshots = persist.NewSnapshotRepo(db)
		if err := snapshots.StartRun(ctx, cfg.Server.Name, cfg.Pooling.Enabled); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		runID = snapshots.RunID()
		defer func() {
			fctx, fcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer fcancel()
			if err := snapshots.FinishRun(fctx); err != nil {
				log.Warn("finish run", zap.Error(err))
			}
		}()
	}

	printBanner(cfg.Server.Name, runID.String())

	printSection("database")
	if snapshots != nil {
		printOK("PostgreSQL connected, migrations applied")
	} else {
		printSkip("disabled, stats history not recorded")
	}
	fmt.Println()

	// 4. Catalog and scripts
	printSection("data")
	catalog, err := data.LoadCatalog(cfg.Pooling.Catalog)
	if err != nil {
		return fmt.Errorf("load pool catalog: %w", err)
	}
	printStat("pool kinds", catalog.Count())

	luaEngine, err := scripting.NewEngine(cfg.Simulation.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("Lua scripts loaded")
	fmt.Println()

	// 5. World and pools
	printSection("pools")
	bus := event.NewBus()
	world := scene.New(bus, log)
	world.SetHook(scripting.SceneHook(luaEngine))

	registry := pool.NewRegistry(world, pool.Config{
		Passthrough:         !cfg.Pooling.Enabled,
		AutoCreate:          cfg.Pooling.AutoCreate,
		MissingPoolCapacity: cfg.Pooling.MissingPoolCapacity,
		Resolve:             world.Resolver(catalog),
	}, log)
	defer registry.Close()
	registry.Subscribe(bus)
	event.Subscribe(bus, func(ev event.PoolingToggled) {
		log.Info("pooling mode changed", zap.Bool("enabled", ev.Enabled))
	})

	if err := createEagerPools(world, registry, catalog); err != nil {
		return err
	}
	preloaded := 0
	for _, st := range registry.Snapshot() {
		preloaded += st.Available
	}
	printStat("pools created", len(registry.Kinds()))
	printStat("instances preloaded", preloaded)
	fmt.Println()

	// 6. Systems
	board := metrics.NewBoard()
	stats := system.NewStatsSystem(registry, board)
	stats.Publish()

	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	if luaEngine.HasWorkload() {
		runner.Register(system.NewWorkloadSystem(luaEngine, registry, world, cfg.Simulation.MaxCommandsPerTick, log))
	}
	runner.Register(system.NewReloadTimerSystem(world, cfg.Simulation.ReloadEvery))
	runner.Register(stats)
	var persistSys *system.SnapshotPersistSystem
	if snapshots != nil {
		persistSys = system.NewSnapshotPersistSystem(board, snapshots, log, cfg.Database.SnapshotEvery)
		runner.Register(persistSys)
	}
	runner.Register(system.NewCleanupSystem(world))

	// 7. Admin API
	var adminServer *admin.Server
	if cfg.Admin.Enabled {
		adminServer, err = admin.NewServer(cfg.Admin.BindAddress, board, metrics.NewRegistry(board), cfg.Admin.QueueSize, log)
		if err != nil {
			return fmt.Errorf("admin server: %w", err)
		}
		go adminServer.Serve()
		runner.Register(system.NewAdminInputSystem(adminServer.Commands(), world, registry, bus, cfg.Admin.QueueSize, log))
	}

	// 8. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printSection("ready")
	if adminServer != nil {
		printReady(fmt.Sprintf("admin API on %s", adminServer.Addr().String()))
	}
	printReady(fmt.Sprintf("tick loop started (tick: %s, systems: %d)", cfg.Simulation.TickRate, runner.Len()))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()), zap.Uint64("ticks", runner.Ticks()))
			if persistSys != nil {
				persistSys.Flush()
			}
			if adminServer != nil {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := adminServer.Shutdown(sctx); err != nil {
					log.Warn("admin shutdown", zap.Error(err))
				}
				scancel()
			}
			log.Info("poolsim stopped")
			return nil
		}
	}
}

// createEagerPools builds every non-lazy catalog pool in file order.
func createEagerPools(world *scene.Scene, registry *pool.Registry, catalog *data.Catalog) error {
	for _, e := range catalog.Eager() {
		opts, err := world.OptionsFor(e)
		if err != nil {
			return fmt.Errorf("pool catalog: %w", err)
		}
		if _, err := registry.CreatePool(opts); err != nil {
			return fmt.Errorf("pool catalog: %w", err)
		}
	}
	return nil
}
