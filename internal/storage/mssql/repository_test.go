package mssql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"branch-address-scraper/internal/storage"
)

func TestNullString(t *testing.T) {
	if v := nullString(nil); v.Valid {
		t.Errorf("nil address must be NULL, got %+v", v)
	}
	s := "123 Main Street"
	if v := nullString(&s); !v.Valid || v.String != s {
		t.Errorf("nullString = %+v", v)
	}
}

func TestNullFloat(t *testing.T) {
	if v := nullFloat(nil); v.Valid {
		t.Errorf("nil coordinate must be NULL, got %+v", v)
	}
	f := -89.65
	if v := nullFloat(&f); !v.Valid || v.Float64 != f {
		t.Errorf("nullFloat = %+v", v)
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	r := newRepository(nil, 0, nil)
	if err := r.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return newRepository(db, time.Second, nil), mock
}

func testRun() *storage.ScrapeRun {
	addr := "123 Main Street, Springfield, IL 62701"
	lat, lon := 39.78, -89.65
	return &storage.ScrapeRun{
		URL:       "https://example.com/locations",
		StartedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Records: []storage.ResultRecord{
			{BranchName: "Main Branch", Address: &addr, Latitude: &lat, Longitude: &lon, CheckSum: "aaa"},
			{BranchName: "Airport Kiosk", CheckSum: "bbb"},
		},
	}
}

func TestSaveResultsCommitsRunAndRecords(t *testing.T) {
	repo, mock := newMockRepository(t)
	run := testRun()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO TblScrapeRuns").
		WithArgs(
			sql.Named("URL", run.URL),
			sql.Named("StartedAt", run.StartedAt),
			sql.Named("BranchCount", 2),
			sql.Named("FoundCount", 1),
		).
		WillReturnRows(sqlmock.NewRows([]string{"UID"}).AddRow(int64(7)))
	prep := mock.ExpectPrepare("MERGE INTO TblBranchResults")
	prep.ExpectExec().
		WithArgs(
			sql.Named("CheckSum", "aaa"),
			sql.Named("RunUID", int64(7)),
			sql.Named("URL", run.URL),
			sql.Named("BranchName", "Main Branch"),
			sql.Named("Address", "123 Main Street, Springfield, IL 62701"),
			sql.Named("Latitude", 39.78),
			sql.Named("Longitude", -89.65),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(
			sql.Named("CheckSum", "bbb"),
			sql.Named("RunUID", int64(7)),
			sql.Named("URL", run.URL),
			sql.Named("BranchName", "Airport Kiosk"),
			sql.Named("Address", nil),
			sql.Named("Latitude", nil),
			sql.Named("Longitude", nil),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SaveResults(context.Background(), run); err != nil {
		t.Fatalf("SaveResults: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveResultsRollsBackOnUpsertError(t *testing.T) {
	repo, mock := newMockRepository(t)
	run := testRun()
	dbErr := errors.New("deadlock victim")

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO TblScrapeRuns").
		WillReturnRows(sqlmock.NewRows([]string{"UID"}).AddRow(int64(7)))
	mock.ExpectPrepare("MERGE INTO TblBranchResults").
		ExpectExec().
		WillReturnError(dbErr)
	mock.ExpectRollback()

	err := repo.SaveResults(context.Background(), run)
	if !errors.Is(err, dbErr) || !strings.Contains(err.Error(), "Main Branch") {
		t.Fatalf("err = %v, want wrapped upsert error naming the branch", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveResultsRunInsertError(t *testing.T) {
	repo, mock := newMockRepository(t)
	dbErr := errors.New("login timeout")

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO TblScrapeRuns").WillReturnError(dbErr)
	mock.ExpectRollback()

	if err := repo.SaveResults(context.Background(), testRun()); !errors.Is(err, dbErr) {
		t.Fatalf("err = %v, want wrapped run insert error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCountByURL(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM TblBranchResults WHERE [URL] = @URL")).
		WithArgs(sql.Named("URL", "https://example.com/locations")).
		WillReturnRows(sqlmock.NewRows([]string{""}).AddRow(3))

	count, err := repo.CountByURL(context.Background(), "https://example.com/locations")
	if err != nil {
		t.Fatalf("CountByURL: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
