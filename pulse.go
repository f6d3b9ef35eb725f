// Package pulse answers business questions about a sales fact table.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/pulse/analyst"
//	    "github.com/spektr-org/pulse/engine"
//	    "github.com/spektr-org/pulse/store"
//	)
//
//	src, _ := store.NewFileSource("sales_facts.xlsx", "")
//	cache := store.NewCache(src)
//	snap, err := cache.Reload(ctx)
//
//	a := analyst.New()
//	analysis, err := a.Analyze(ctx, "top business by gSales in 2024", snap.View(), nil, engine.Presets{})
//
// The analyst reads the question (keyword tables, or an LLM through the
// translator package), aggregates the snapshot with the engine package and
// assembles a bounded text context. The assistant package turns that context
// into a narrative answer; everything before it is local and deterministic.
//
// Packages:
//
//	engine      fact rows, filters, pivots, growth and share, dashboard KPIs
//	translator  question → ParsedQuery (keyword tables, LLM with fallback)
//	analyst     follow-up detection and context assembly
//	assistant   LLM gateways (Perplexity/OpenAI, Gemini), retry, Redis cache
//	schema      column discovery and aliasing
//	helpers     CSV and Excel parsing
//	store       file, SQL and S3 sources, snapshot cache, scheduled refresh
//	config      defaults, .env, YAML and environment
//	server      gin HTTP API
package pulse
