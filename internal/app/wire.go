package app

import (
	"fmt"
	"net/http"

	"branch-address-scraper/internal/config"
	"branch-address-scraper/internal/fetcher"
	"branch-address-scraper/internal/geocode"
	"branch-address-scraper/internal/observability"
	"branch-address-scraper/internal/scraper"
	"branch-address-scraper/internal/storage"
	"branch-address-scraper/internal/storage/mssql"
)

// Deps holds the wired pipeline and whatever must be released with it.
type Deps struct {
	Orchestrator *Orchestrator
	Geocoder     geocode.Geocoder

	closers []func() error
	logger  *observability.Logger
}

// Build wires fetcher, matcher, geocoder and optional storage from cfg.
func Build(cfg *config.Config, logger *observability.Logger) (*Deps, error) {
	deps := &Deps{logger: logger}

	var pf fetcher.PageFetcher
	if cfg.Rod.Enabled {
		bf := fetcher.NewBrowserFetcher(cfg, logger)
		deps.closers = append(deps.closers, bf.Close)
		pf = bf
	} else {
		pf = fetcher.NewFetcher(cfg, logger)
	}

	deps.Geocoder = NewGeocoder(cfg, logger)

	var repo storage.Repository
	if cfg.Storage.Enabled {
		if cfg.Storage.Driver != "mssql" {
			deps.Close()
			return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
		}
		r, err := mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("initializing storage: %w", err)
		}
		deps.closers = append(deps.closers, r.Close)
		repo = r
	}

	deps.Orchestrator = NewOrchestrator(cfg, logger, pf, scraper.NewMatcher(logger), deps.Geocoder, repo)
	return deps, nil
}

// NewGeocoder returns a lazily built Nominatim client, or a geocoder that
// resolves nothing when geocoding is disabled.
func NewGeocoder(cfg *config.Config, logger *observability.Logger) geocode.Geocoder {
	if !cfg.Geocode.Enabled {
		return geocode.Disabled{}
	}
	return geocode.NewLazy(func() geocode.Geocoder {
		return geocode.NewNominatim(
			geocode.WithBaseURL(cfg.Geocode.BaseURL),
			geocode.WithUserAgent(cfg.Geocode.UserAgent),
			geocode.WithHTTPClient(&http.Client{Timeout: cfg.GetGeocodeTimeout()}),
			geocode.WithMinDelay(cfg.GetGeocodeMinDelay()),
			geocode.WithMaxRetries(cfg.Geocode.MaxRetries),
			geocode.WithErrorWait(cfg.GetGeocodeErrorWait()),
			geocode.WithLogger(logger),
		)
	})
}

func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && d.logger != nil {
			d.logger.Warn("Failed to release resource", "error", err.Error())
		}
	}
	d.closers = nil
}
