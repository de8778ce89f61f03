package main

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/partbot/internal/config"
	"github.com/JonMunkholm/partbot/internal/core"
	"github.com/JonMunkholm/partbot/internal/sheets"
)

// components are the store and the core services built on it.
type components struct {
	store    sheets.Store
	ledger   *core.Ledger
	resolver *core.Resolver
	searcher *core.Searcher
}

func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	syn, err := cfg.Synonyms()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Sheets.Location()
	if err != nil {
		return nil, &core.ConfigurationError{Setting: "TIMEZONE", Message: err.Error()}
	}

	store, err := sheets.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	slog.Info("store opened",
		"backend", cfg.Store.Backend,
		"ledger_sheet", cfg.Sheets.Ledger,
		"master_sheet", cfg.Sheets.Master,
		"max_concurrent", cfg.Store.MaxConcurrent,
	)

	return &components{
		store: store,
		ledger: core.NewLedger(store, core.LedgerConfig{
			Sheet:    cfg.Sheets.Ledger,
			Synonyms: syn.Ledger,
			Location: loc,
			Layout:   cfg.Sheets.TimestampLayout,
		}),
		resolver: core.NewResolver(store, cfg.Sheets.Master, syn.Master),
		searcher: core.NewSearcher(store, cfg.Sheets.Master, syn.Master),
	}, nil
}

// limiter returns the store's concurrency limiter, if it has one.
func (c *components) limiter() *sheets.Limiter {
	if l, ok := c.store.(*sheets.Limited); ok {
		return l.Limiter()
	}
	return nil
}

func (c *components) Close() {
	if err := c.store.Close(); err != nil {
		slog.Warn("close store", "error", err)
	}
}
