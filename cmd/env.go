package main

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/acsmap/internal/acs"
	"github.com/sells-group/acsmap/internal/boundary"
	"github.com/sells-group/acsmap/internal/choropleth"
	"github.com/sells-group/acsmap/internal/fetcher"
	"github.com/sells-group/acsmap/internal/history"
	"github.com/sells-group/acsmap/internal/render"
	"github.com/sells-group/acsmap/internal/resilience"
)

// appEnv holds the collaborators shared by the commands.
type appEnv struct {
	Fetcher    *fetcher.HTTPFetcher
	ACS        *acs.Client
	Boundaries *boundary.Store
	History    history.Store // nil when disabled or unavailable
	Palette    render.Palette
}

// initEnv builds the environment from cfg. History is opened only when
// withHistory is set; a history database that cannot be opened is logged and
// skipped so renders still work.
func initEnv(ctx context.Context, withHistory bool) (*appEnv, error) {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		CensusRate: cfg.Fetch.RatePerSec,
	})

	env := &appEnv{
		Fetcher: f,
		ACS: acs.NewClient(f,
			acs.WithBaseURL(cfg.Census.BaseURL),
			acs.WithYear(cfg.Census.Year),
			acs.WithDataset(cfg.Census.Dataset),
			acs.WithAPIKey(cfg.Census.APIKey),
			acs.WithMaxVars(cfg.Census.MaxVarsPerRequest),
		),
		Boundaries: boundary.NewStore(f, cfg.Boundary.Dir,
			boundary.WithBaseURL(cfg.Boundary.BaseURL),
			boundary.WithYear(cfg.Boundary.Year),
			// f already retries transport failures; the store policy only
			// re-downloads archives that fail to extract.
			boundary.WithRetryPolicy(resilience.PolicyFromConfig(cfg.Fetch.MaxRetries, 0)),
		),
		Palette: render.DefaultPalette(),
	}

	if cfg.Render.PaletteFile != "" {
		p, err := render.LoadPalette(cfg.Render.PaletteFile)
		if err != nil {
			return nil, err
		}
		env.Palette = p
	}

	if withHistory && historyEnabled() {
		st, err := openHistory(ctx)
		if err != nil {
			zap.L().Warn("render history disabled", zap.Error(err))
		} else {
			env.History = st
		}
	}
	return env, nil
}

// Close releases the history database.
func (e *appEnv) Close() {
	if e.History != nil {
		_ = e.History.Close()
	}
}

// deps returns the render dependencies backed by the live collaborators.
func (e *appEnv) deps() renderDeps {
	d := renderDeps{
		fetcher:  e.ACS,
		features: e.Boundaries,
		palette:  e.Palette,
		history:  e.History,
	}
	if !cfg.Render.DropMissingZIP {
		d.normalize = append(d.normalize, choropleth.KeepMissing())
	}
	return d
}

func historyEnabled() bool {
	return !strings.EqualFold(cfg.Store.Driver, "none")
}

func openHistory(ctx context.Context) (history.Store, error) {
	return history.Open(ctx, history.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		MaxConns:    cfg.Store.MaxConns,
	})
}
