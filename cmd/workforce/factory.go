package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/fibreflow/workforce/internal/api"
	"github.com/fibreflow/workforce/internal/config"
	"github.com/fibreflow/workforce/internal/memory"
	"github.com/fibreflow/workforce/internal/orchestrator"
	"github.com/fibreflow/workforce/internal/router"
	"github.com/fibreflow/workforce/internal/state"
)

// workforce bundles everything a command needs to serve requests.
type workforce struct {
	cfg     *config.Config
	roster  *config.Roster
	orch    *orchestrator.Orchestrator
	pool    *orchestrator.Pool
	db      *state.DB
	brain   *memory.Brain
	domain  *memory.DomainStore
	signals *api.SignalManager
	logger  *orchestrator.DebugLogger
}

// close releases all held resources.
func (w *workforce) close() {
	if w.signals != nil {
		w.signals.Close()
	}
	if w.brain != nil {
		w.brain.Close()
	}
	if w.db != nil {
		w.db.Close()
	}
	if w.logger != nil {
		w.logger.Close()
	}
}

// buildWorkforce wires the full stack: config, roster, router, ledger,
// memory tiers, signals and the orchestrator.
func buildWorkforce() (*workforce, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	roster, err := config.LoadRoster(filepath.Join(cwd, "configs", "agents"))
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	db, err := state.Open(stateDBPath(cwd))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}

	brain, err := memory.OpenBrain(memory.DefaultBrainPath())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open brain: %w", err)
	}
	if cfg.Memory.OllamaEndpoint != "" {
		brain.SetEmbedder(memory.NewOllamaEmbedder(cfg.Memory.OllamaEndpoint, cfg.Memory.OllamaModel))
	}

	domain, err := memory.NewDomainStore(filepath.Join(cwd, ".workforce", "state"))
	if err != nil {
		brain.Close()
		db.Close()
		return nil, fmt.Errorf("open domain store: %w", err)
	}

	signals, err := api.NewSignalManager(cwd)
	if err != nil {
		brain.Close()
		db.Close()
		return nil, fmt.Errorf("create signal manager: %w", err)
	}

	logger := orchestrator.NewDebugLoggerForDir(cwd)

	clients := func(model anthropic.Model) (*api.Client, error) {
		return api.NewClient(api.ClientConfig{
			Model:         model,
			APIKey:        cfg.Anthropic.APIKey,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Roster:      roster,
		Router:      router.New(roster, cfg.Router.MinScore),
		DB:          db,
		Brain:       brain,
		Domain:      domain,
		Signals:     signals,
		Clients:     clients,
		RunbookDir:  filepath.Join(cwd, "runbooks"),
		TokenBudget: int64(cfg.Defaults.TokenBudget),
		Timeouts:    cfg.TimeoutFor,
		Logger:      logger,
	})
	if err != nil {
		signals.Close()
		brain.Close()
		db.Close()
		return nil, err
	}

	return &workforce{
		cfg:     cfg,
		roster:  roster,
		orch:    orch,
		pool:    orchestrator.NewPool(orch, cfg.Defaults.MaxConcurrent),
		db:      db,
		brain:   brain,
		domain:  domain,
		signals: signals,
		logger:  logger,
	}, nil
}

// stateDBPath prefers a project-local ledger, falling back to the
// global one outside initialized projects.
func stateDBPath(cwd string) string {
	if _, err := os.Stat(filepath.Join(cwd, ".workforce")); err == nil {
		return state.ProjectDBPath(cwd)
	}
	return state.GlobalDBPath()
}
