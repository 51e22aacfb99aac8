package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"branch-address-scraper/internal/observability"
	"branch-address-scraper/internal/storage"
)

const upsertResultQuery = `
	MERGE INTO TblBranchResults AS target
	USING (SELECT @CheckSum AS CheckSum) AS source
	ON target.[CheckSum] = source.CheckSum
	WHEN MATCHED THEN
		UPDATE SET
			[Latitude] = @Latitude,
			[Longitude] = @Longitude,
			[Run_UID] = @RunUID,
			[LastSeen] = @SeenAt
	WHEN NOT MATCHED THEN
		INSERT ([CheckSum], [Run_UID], [URL], [BranchName], [Address], [Latitude], [Longitude], [FirstSeen], [LastSeen])
		VALUES (@CheckSum, @RunUID, @URL, @BranchName, @Address, @Latitude, @Longitude, @SeenAt, @SeenAt);
`

const insertRunQuery = `
	INSERT INTO TblScrapeRuns ([URL], [StartedAt], [BranchCount], [FoundCount])
	OUTPUT INSERTED.[UID]
	VALUES (@URL, @StartedAt, @BranchCount, @FoundCount);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newRepository(db, commandTimeout, logger), nil
}

func newRepository(db *sql.DB, commandTimeout time.Duration, logger *observability.Logger) *Repository {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}
}

// SaveResults writes the run row and upserts every record in one
// transaction. Duplicate names within a run collapse onto one row.
func (r *Repository) SaveResults(ctx context.Context, run *storage.ScrapeRun) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.Error("Failed to roll back transaction", "error", err.Error())
		}
	}()

	found := 0
	for _, rec := range run.Records {
		if rec.Address != nil {
			found++
		}
	}

	var runUID int64
	err = tx.QueryRowContext(ctx, insertRunQuery,
		sql.Named("URL", run.URL),
		sql.Named("StartedAt", run.StartedAt.UTC()),
		sql.Named("BranchCount", len(run.Records)),
		sql.Named("FoundCount", found),
	).Scan(&runUID)
	if err != nil {
		return fmt.Errorf("failed to insert scrape run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertResultQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	seenAt := time.Now().UTC()
	for _, rec := range run.Records {
		_, err := stmt.ExecContext(ctx,
			sql.Named("CheckSum", rec.CheckSum),
			sql.Named("RunUID", runUID),
			sql.Named("URL", run.URL),
			sql.Named("BranchName", rec.BranchName),
			sql.Named("Address", nullString(rec.Address)),
			sql.Named("Latitude", nullFloat(rec.Latitude)),
			sql.Named("Longitude", nullFloat(rec.Longitude)),
			sql.Named("SeenAt", seenAt),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert result for %q: %w", rec.BranchName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.logger.Debug("Scrape results saved",
		"url", run.URL,
		"run_uid", runUID,
		"records", len(run.Records),
		"found", found,
	)
	return nil
}

func (r *Repository) CountByURL(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `SELECT COUNT(*) FROM TblBranchResults WHERE [URL] = @URL`

	var count int
	if err := r.db.QueryRowContext(ctx, query, sql.Named("URL", url)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}

	return count, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
