package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"MomentumScanner/internal/domain"
	"MomentumScanner/internal/ports"
)

// ErrNotFound is returned when an analysis id does not exist.
var ErrNotFound = errors.New("analysis not found")

const table = "analysis_results"

var columns = []string{
	"id", "company_name", "filing_report", "filing_result", "filing_error",
	"news_count", "news_result", "status", "is_bookmarked", "created_at",
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_results (
		id SERIAL PRIMARY KEY,
		company_name TEXT NOT NULL,
		filing_report TEXT NOT NULL DEFAULT '',
		filing_result TEXT NOT NULL DEFAULT '',
		filing_error TEXT NOT NULL DEFAULT '',
		news_count INTEGER NOT NULL DEFAULT 0,
		news_result TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'completed',
		is_bookmarked BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_company_name ON analysis_results(company_name)`,
	`CREATE INDEX IF NOT EXISTS idx_created_at ON analysis_results(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bookmarked ON analysis_results(is_bookmarked)`,
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists analysis results into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.AnalysisRepository = (*PostgresRepository)(nil)

// Open connects to Postgres with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the results table and its indexes when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Add stores a finished analysis and returns its id.
func (r *PostgresRepository) Add(ctx context.Context, rec domain.AnalysisRecord) (int64, error) {
	query, args, err := insertQuery(rec).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert analysis: %w", err)
	}
	return id, nil
}

// List returns analyses newest first. A non-positive limit returns every row.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]domain.AnalysisRecord, error) {
	return r.query(ctx, listQuery(limit, offset))
}

// ListBookmarked returns bookmarked analyses newest first.
func (r *PostgresRepository) ListBookmarked(ctx context.Context) ([]domain.AnalysisRecord, error) {
	return r.query(ctx, selectAll().Where(sq.Eq{"is_bookmarked": true}))
}

// Search returns analyses whose company name contains keyword.
func (r *PostgresRepository) Search(ctx context.Context, keyword string) ([]domain.AnalysisRecord, error) {
	return r.query(ctx, searchQuery(keyword))
}

// ToggleBookmark flips the bookmark flag of one analysis.
func (r *PostgresRepository) ToggleBookmark(ctx context.Context, id int64) error {
	return r.exec(ctx, psql.Update(table).
		Set("is_bookmarked", sq.Expr("NOT is_bookmarked")).
		Where(sq.Eq{"id": id}))
}

// Delete removes one analysis.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, psql.Delete(table).Where(sq.Eq{"id": id}))
}

// Count returns the number of stored analyses.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}
	return n, nil
}

// AnalyzedCompanies returns each company name that has at least one analysis.
func (r *PostgresRepository) AnalyzedCompanies(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select("DISTINCT company_name").From(table).OrderBy("company_name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build companies: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return names, nil
}

func (r *PostgresRepository) query(ctx context.Context, b sq.SelectBuilder) ([]domain.AnalysisRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	records := []domain.AnalysisRecord{}
	for rows.Next() {
		var rec domain.AnalysisRecord
		var status string
		if err := rows.Scan(
			&rec.ID, &rec.CompanyName, &rec.FilingReport, &rec.FilingResult, &rec.FilingError,
			&rec.NewsCount, &rec.NewsResult, &status, &rec.Bookmarked, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		rec.Status = domain.AnalysisStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

func (r *PostgresRepository) exec(ctx context.Context, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func selectAll() sq.SelectBuilder {
	return psql.Select(columns...).From(table).OrderBy("created_at DESC", "id DESC")
}

func listQuery(limit, offset int) sq.SelectBuilder {
	b := selectAll()
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}
	return b
}

func searchQuery(keyword string) sq.SelectBuilder {
	return selectAll().Where(sq.Like{"company_name": "%" + keyword + "%"})
}

func insertQuery(rec domain.AnalysisRecord) sq.InsertBuilder {
	status := rec.Status
	if status == "" {
		status = domain.StatusCompleted
	}
	return psql.Insert(table).
		Columns("company_name", "filing_report", "filing_result", "filing_error", "news_count", "news_result", "status").
		Values(rec.CompanyName, rec.FilingReport, rec.FilingResult, rec.FilingError, rec.NewsCount, rec.NewsResult, string(status)).
		Suffix("RETURNING id")
}
