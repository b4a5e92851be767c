package bootstrap

import (
	"log"

	"github.com/astc-project/astc-backend/config"
	"github.com/astc-project/astc-backend/internal/agents/bizimpact"
	"github.com/astc-project/astc-backend/internal/agents/depanalysis"
	"github.com/astc-project/astc-backend/internal/agents/executor"
	"github.com/astc-project/astc-backend/internal/agents/persona"
	"github.com/astc-project/astc-backend/internal/agents/sapintel"
	"github.com/astc-project/astc-backend/internal/agents/scriptgen"
	"github.com/astc-project/astc-backend/internal/agents/testgen"
	"github.com/astc-project/astc-backend/internal/execution/knowledge"
	"github.com/astc-project/astc-backend/internal/execution/service"
	"github.com/astc-project/astc-backend/internal/framework"
	"github.com/astc-project/astc-backend/internal/framework/messaging"
	"github.com/astc-project/astc-backend/internal/framework/monitor"
	"github.com/astc-project/astc-backend/internal/monitoring"
	"github.com/astc-project/astc-backend/internal/stats"
)

// App holds the constructed application graph. All wiring is explicit so that
// tests can build the same graph with substitutes.
type App struct {
	Framework *framework.Context
	Simulator *service.Simulator
	Hub       *monitoring.Hub
	Stats     *stats.Scheduler
}

// BuildApp constructs the framework, simulator, agents, and background
// components from configuration.
func BuildApp(cfg *config.Config) (*App, error) {
	kb := knowledge.Default()
	if cfg.Simulator.KnowledgeFile != "" {
		loaded, err := knowledge.Load(cfg.Simulator.KnowledgeFile)
		if err != nil {
			return nil, err
		}
		kb = loaded
		log.Printf("Loaded knowledge overrides from %s", cfg.Simulator.KnowledgeFile)
	}

	router := messaging.NewRouter(cfg.Simulator.HistoryLimit)
	mon := monitor.New(cfg.Simulator.HistoryLimit)
	fw := framework.NewContext(router, mon)

	sim := service.New(kb, service.Config{
		MaxConcurrent: cfg.Simulator.MaxConcurrentExecutions,
		TimeScale:     cfg.Simulator.StepTimeScale,
	})

	fw.Register(sapintel.New())
	fw.Register(testgen.New())
	fw.Register(depanalysis.New())
	fw.Register(scriptgen.New())
	fw.Register(executor.New(sim))
	fw.Register(persona.New())
	fw.Register(bizimpact.New())

	hub := monitoring.NewHub(mon)
	go hub.Run()

	app := &App{
		Framework: fw,
		Simulator: sim,
		Hub:       hub,
	}

	if cfg.Simulator.StatsLogSchedule != "" {
		app.Stats = stats.NewScheduler(fw, cfg.Simulator.StatsLogSchedule)
		app.Stats.Start()
	}

	return app, nil
}

// Close releases background resources in reverse construction order.
func (a *App) Close() {
	if a.Stats != nil {
		a.Stats.Stop()
	}
	a.Hub.Stop()
	a.Simulator.Close()
	a.Framework.Monitor.Close()
}
