package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/git-guard/internal/core/domain"
)

// ReportRepository persists commit analysis reports for later review. The
// analyzer writes best-effort; a lost report never blocks a commit.
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across analyzer/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS analysis_reports (
	id TEXT PRIMARY KEY,
	developer_id TEXT NOT NULL,
	repo_name TEXT NOT NULL,
	commit_message TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	summary TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_reports_repo ON analysis_reports(repo_name, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ReportRepository) Create(ctx context.Context, report *domain.AnalysisReport) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO analysis_reports (
	id, developer_id, repo_name, commit_message, risk_level, summary, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		report.ID, report.DeveloperID, report.RepoName, report.CommitMessage,
		string(report.RiskLevel), report.Summary, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis report: %w", err)
	}
	return nil
}

func (r *ReportRepository) ListRecent(ctx context.Context, repoName string, limit int) ([]domain.AnalysisReport, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, developer_id, repo_name, commit_message, risk_level, summary, created_at
FROM analysis_reports
WHERE repo_name = $1
ORDER BY created_at DESC
LIMIT $2
`, repoName, limit)
	if err != nil {
		return nil, fmt.Errorf("query analysis reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.AnalysisReport
	for rows.Next() {
		var report domain.AnalysisReport
		var risk string
		err := rows.Scan(
			&report.ID, &report.DeveloperID, &report.RepoName, &report.CommitMessage,
			&risk, &report.Summary, &report.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan analysis report: %w", err)
		}
		report.RiskLevel = domain.RiskLevel(risk)
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analysis reports: %w", err)
	}
	return reports, nil
}
