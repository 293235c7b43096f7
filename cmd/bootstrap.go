package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/abhisek/cogniz/internal/composer"
	"github.com/abhisek/cogniz/internal/config"
	"github.com/abhisek/cogniz/internal/engine"
	"github.com/abhisek/cogniz/internal/logger"
	"github.com/abhisek/cogniz/internal/metrics"
	"github.com/abhisek/cogniz/internal/skillgraph"
	"github.com/abhisek/cogniz/internal/store"
)

// runtime is everything a command needs once configuration is resolved.
type runtime struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *store.Store
	metrics *prometheus.Registry
	engine  *engine.Engine
}

// bootstrap loads config, opens the store and builds the engine.
// Callers must Close the result.
func bootstrap(cmd *cobra.Command) (*runtime, error) {
	ctx := cmd.Context()

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(ctx, cfgPath)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	log := logger.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	reg, err := loadRegistry(cfg, log)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Debug("store opened", "path", dbPath)

	promReg := prometheus.NewRegistry()
	eng := engine.New(ctx, reg, st.KV(),
		engine.WithLogger(log),
		engine.WithMetrics(metrics.New(promReg)),
		engine.WithSnapshotDelay(cfg.SnapshotDelay),
		engine.WithHistoryLimit(cfg.HistoryLimit),
		engine.WithComposerConfig(composerConfig(cfg)),
	)

	return &runtime{cfg: cfg, log: log, store: st, metrics: promReg, engine: eng}, nil
}

// Close flushes pending snapshots and closes the store.
func (rt *runtime) Close() {
	rt.engine.Close()
	if err := rt.store.Close(); err != nil {
		rt.log.Warn("close store", "error", err)
	}
}

func loadRegistry(cfg *config.Config, log *slog.Logger) (*skillgraph.Registry, error) {
	if cfg.CatalogPath == "" {
		return skillgraph.Default(skillgraph.WithLogger(log)), nil
	}
	reg, err := skillgraph.Load(cfg.CatalogPath, skillgraph.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return reg, nil
}

func composerConfig(cfg *config.Config) composer.Config {
	cc := composer.DefaultConfig()
	cc.FocusShare = cfg.FocusShare
	cc.RecentWindow = cfg.RecentWindow
	cc.FatigueThreshold = cfg.FatigueThreshold
	return cc
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
