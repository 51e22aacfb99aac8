package app

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"branch-address-scraper/internal/checksum"
	"branch-address-scraper/internal/config"
	"branch-address-scraper/internal/fetcher"
	"branch-address-scraper/internal/geocode"
	"branch-address-scraper/internal/normalize"
	"branch-address-scraper/internal/observability"
	"branch-address-scraper/internal/scraper"
	"branch-address-scraper/internal/storage"
)

// BranchRecord is the caller-facing result for one requested branch name.
// Nil fields serialize as null.
type BranchRecord struct {
	BranchName string   `json:"branch_name"`
	Address    *string  `json:"address"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

// FetchError is the only scrape-wide failure: the page could not be
// downloaded, so no branch was looked up.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type ScrapeStats struct {
	Requested int
	Matched   int
	Found     int
	Geocoded  int
}

type Orchestrator struct {
	cfg      *config.Config
	logger   *observability.Logger
	fetcher  fetcher.PageFetcher
	matcher  *scraper.Matcher
	geocoder geocode.Geocoder
	repo     storage.Repository
	checksum *checksum.Generator
}

// NewOrchestrator wires the scrape pipeline. geocoder and repo may be nil:
// a nil geocoder leaves coordinates empty, a nil repo skips persistence.
func NewOrchestrator(
	cfg *config.Config,
	logger *observability.Logger,
	f fetcher.PageFetcher,
	m *scraper.Matcher,
	g geocode.Geocoder,
	repo storage.Repository,
) *Orchestrator {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if m == nil {
		m = scraper.NewMatcher(logger)
	}
	if g == nil {
		g = geocode.Disabled{}
	}
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		fetcher:  f,
		matcher:  m,
		geocoder: g,
		repo:     repo,
		checksum: checksum.NewGenerator(),
	}
}

// Scrape fetches rawURL once and returns one record per non-blank name, in
// the order given, duplicates included. Only a failed fetch (*FetchError) or
// an unparsable page is returned as an error; a branch without an address
// just has nil fields.
func (o *Orchestrator) Scrape(ctx context.Context, rawURL string, branchNames []string) ([]BranchRecord, error) {
	names := normalize.Names(branchNames)
	if len(names) == 0 {
		return []BranchRecord{}, nil
	}

	pageURL := normalize.NormalizeURL(rawURL)
	startedAt := time.Now()

	o.logger.Info("Starting scrape",
		"url", pageURL,
		"branches", len(names),
		"workers", o.workers(),
	)

	resp, err := o.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		o.logger.Error("Fetch failed", "url", pageURL, "error", err.Error())
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	page, err := scraper.NewPage(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}

	records := make([]BranchRecord, len(names))
	matches := make([]scraper.MatchResult, len(names))

	if err := o.lookupAll(ctx, page, names, records, matches); err != nil {
		return nil, err
	}

	stats := ScrapeStats{Requested: len(names)}
	for i := range records {
		if matches[i].MatchedBranchName != "" {
			stats.Matched++
		}
		if records[i].Address != nil {
			stats.Found++
		}
		if records[i].Latitude != nil {
			stats.Geocoded++
		}
	}

	o.persist(ctx, pageURL, startedAt, records)

	o.logger.Info("Scrape completed",
		"url", pageURL,
		"requested", stats.Requested,
		"matched", stats.Matched,
		"found", stats.Found,
		"geocoded", stats.Geocoded,
		"duration", time.Since(startedAt).String(),
	)

	return records, nil
}

func (o *Orchestrator) workers() int {
	if o.cfg == nil || o.cfg.Matching.Workers < 1 {
		return 1
	}
	return o.cfg.Matching.Workers
}

// lookupAll fills records[i] for names[i]. With more than one worker the
// lookups run concurrently over the shared read-only page; each goroutine
// owns its slot so order is kept.
func (o *Orchestrator) lookupAll(ctx context.Context, page *scraper.Page, names []string, records []BranchRecord, matches []scraper.MatchResult) error {
	workers := o.workers()
	if workers == 1 {
		for i, name := range names {
			if err := ctx.Err(); err != nil {
				return err
			}
			records[i], matches[i] = o.lookup(ctx, page, name)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i], matches[i] = o.lookup(gctx, page, name)
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) lookup(ctx context.Context, page *scraper.Page, name string) (BranchRecord, scraper.MatchResult) {
	record := BranchRecord{BranchName: name}

	match := o.matcher.Match(page, name)
	if !match.Found() {
		o.logger.Info("No address found for branch",
			"branch", name,
			"heading_found", match.MatchedBranchName != "",
		)
		return record, match
	}

	addr := match.AddressFull
	record.Address = &addr

	if coords, ok := o.geocoder.Geocode(ctx, addr); ok {
		lat, lon := coords.Latitude, coords.Longitude
		record.Latitude = &lat
		record.Longitude = &lon
	}

	o.logger.Debug("Branch resolved",
		"branch", name,
		"address", addr,
		"geocoded", record.Latitude != nil,
	)
	return record, match
}

func (o *Orchestrator) persist(ctx context.Context, pageURL string, startedAt time.Time, records []BranchRecord) {
	if o.repo == nil {
		return
	}

	run := &storage.ScrapeRun{
		URL:       pageURL,
		StartedAt: startedAt,
		Records:   make([]storage.ResultRecord, 0, len(records)),
	}
	for _, r := range records {
		addr := ""
		if r.Address != nil {
			addr = *r.Address
		}
		run.Records = append(run.Records, storage.ResultRecord{
			BranchName: r.BranchName,
			Address:    r.Address,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			CheckSum:   o.checksum.GenerateRecordHash(pageURL, r.BranchName, addr),
		})
	}

	if err := o.repo.SaveResults(ctx, run); err != nil {
		o.logger.Error("Failed to save scrape results",
			"url", pageURL,
			"error", err.Error(),
		)
		return
	}

	total, err := o.repo.CountByURL(ctx, pageURL)
	if err != nil {
		o.logger.Warn("Failed to count stored results", "url", pageURL, "error", err.Error())
		return
	}
	o.logger.Info("Scrape results saved",
		"url", pageURL,
		"saved", len(run.Records),
		"stored_total", total,
	)
}
