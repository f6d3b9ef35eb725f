package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spektr-org/pulse/analyst"
	"github.com/spektr-org/pulse/assistant"
	"github.com/spektr-org/pulse/config"
	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/schema"
	"github.com/spektr-org/pulse/store"
	"github.com/spektr-org/pulse/translator"
)

// runtime is everything a command needs, built once from the config.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	cache   *store.Cache
	gateway assistant.Gateway // nil without an API key or with --context-only
	closers []func() error
}

type setupOptions struct {
	llm         bool // build the narrative gateway when a key is configured
	requireData bool // fail when the first load fails
}

// setup opens the fact source, loads the first snapshot and builds the
// gateway. Without requireData a failed first load only logs; the server
// answers 503 until a reload succeeds.
func setup(ctx context.Context, cfg *config.Config, opts setupOptions) (*runtime, error) {
	logger, err := cfg.Log.Logger()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger}

	src, closeSrc, err := store.Open(ctx, cfg.StoreSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s source: %w", cfg.Data.Source, err)
	}
	rt.closers = append(rt.closers, closeSrc)
	rt.cache = store.NewCache(src, store.WithLogger(logger))

	if _, err := rt.cache.Reload(ctx); err != nil {
		if opts.requireData {
			rt.Close()
			return nil, err
		}
		logger.Warn("⚠️ Pulse: starting without data", zap.Error(err))
	}

	if opts.llm && cfg.HasLLM() {
		gw, closeGw, err := assistant.Build(ctx, cfg.GatewaySettings(), logger)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to build %s gateway: %w", cfg.LLM.Provider, err)
		}
		rt.closers = append(rt.closers, closeGw)
		rt.gateway = gw
		logger.Info("🤖 Pulse: narrative answers enabled",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model))
	}
	return rt, nil
}

// analyst builds an Analyst from the analyst section. The LLM translator is
// used only when configured and a gateway exists.
func (rt *runtime) analyst() *analyst.Analyst {
	a := rt.cfg.Analyst

	var kopts []translator.KeywordOption
	if len(a.Years) > 0 {
		kopts = append(kopts, translator.WithYears(a.Years...))
	}
	k := translator.NewKeyword(kopts...)

	opts := []analyst.Option{
		analyst.WithKeyword(k),
		analyst.WithMaxRows(a.MaxRows),
		analyst.WithMaxChars(a.MaxChars),
		analyst.WithHistoryTurns(a.HistoryTurns),
		analyst.WithEngineOptions(engine.WithRankingLimit(a.RankingLimit)),
		analyst.WithLogger(rt.logger),
	}
	if rt.cfg.LLM.Translator == "llm" && rt.gateway != nil {
		var sch *schema.Config
		if snap, err := rt.cache.Snapshot(); err == nil {
			sch = snap.Schema
		}
		opts = append(opts, analyst.WithTranslator(translator.NewLLM(rt.gateway,
			translator.WithSchema(sch),
			translator.WithFallback(k),
			translator.WithLogger(rt.logger),
		)))
	}
	return analyst.New(opts...)
}

// Close releases the source and gateway connections.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	_ = rt.logger.Sync()
	return errors.Join(errs...)
}
