package storage

import (
	"context"
	"time"
)

// ScrapeRun is one scrape of one page: the normalized URL and the records
// produced for the requested branch names, in request order.
type ScrapeRun struct {
	URL       string
	StartedAt time.Time
	Records   []ResultRecord
}

// ResultRecord is a branch result ready for storage. Address, Latitude and
// Longitude are nil when unknown.
type ResultRecord struct {
	BranchName string
	Address    *string
	Latitude   *float64
	Longitude  *float64
	CheckSum   string // SHA256(url|branch|address), upsert key
}

// Repository persists scrape results. Page HTML is never stored.
type Repository interface {
	// SaveResults records the run and upserts each record by CheckSum.
	SaveResults(ctx context.Context, run *ScrapeRun) error

	// CountByURL returns how many distinct results are stored for url.
	CountByURL(ctx context.Context, url string) (int, error)

	Close() error
}
