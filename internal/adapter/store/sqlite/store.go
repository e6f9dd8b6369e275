// Package sqlite implements store.Store on top of database/sql and
// mattn/go-sqlite3, for single-process deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bkyoung/prreview/internal/domain"
	"github.com/bkyoung/prreview/internal/store"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if absent) a SQLite database at dbPath and
// applies the schema. Use ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS installations (
		id INTEGER PRIMARY KEY,
		login TEXT NOT NULL,
		kind TEXT NOT NULL,
		config TEXT NOT NULL DEFAULT '{}',
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS repositories (
		id INTEGER PRIMARY KEY,
		installation_id INTEGER NOT NULL,
		full_name TEXT NOT NULL,
		default_branch TEXT NOT NULL,
		index_status TEXT NOT NULL DEFAULT 'pending',
		last_indexed_sha TEXT,
		last_indexed_at INTEGER,
		FOREIGN KEY (installation_id) REFERENCES installations(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		repository_id INTEGER NOT NULL,
		pr_number INTEGER NOT NULL,
		base_sha TEXT NOT NULL,
		head_sha TEXT NOT NULL,
		status TEXT NOT NULL,
		stage TEXT NOT NULL DEFAULT '',
		finding_count INTEGER NOT NULL DEFAULT 0,
		cost_usd_micros INTEGER NOT NULL DEFAULT 0,
		enqueued_at INTEGER NOT NULL,
		started_at INTEGER,
		completed_at INTEGER,
		terminal_error TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (repository_id) REFERENCES repositories(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS findings (
		id TEXT PRIMARY KEY,
		review_id TEXT NOT NULL,
		file TEXT NOT NULL,
		line_start INTEGER NOT NULL,
		line_end INTEGER NOT NULL,
		diff_position INTEGER,
		severity TEXT NOT NULL,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		suggestion TEXT,
		forge_comment_id INTEGER,
		applied INTEGER NOT NULL DEFAULT 0,
		dismissed INTEGER NOT NULL DEFAULT 0,
		confidence REAL NOT NULL DEFAULT 0,
		FOREIGN KEY (review_id) REFERENCES reviews(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS conversation_threads (
		comment_id INTEGER PRIMARY KEY,
		finding_id TEXT NOT NULL,
		review_id TEXT NOT NULL,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		commit_sha TEXT NOT NULL,
		cached_content BLOB,
		history TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		FOREIGN KEY (finding_id) REFERENCES findings(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_repositories_installation ON repositories(installation_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_repository ON reviews(repository_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_reviews_head ON reviews(repository_id, pr_number, head_sha);
	CREATE INDEX IF NOT EXISTS idx_findings_review ON findings(review_id);
	CREATE INDEX IF NOT EXISTS idx_conversation_threads_finding ON conversation_threads(finding_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timeFromNullable(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0)
	return &t
}

// UpsertInstallation creates or updates an installation.
func (s *Store) UpsertInstallation(ctx context.Context, installation domain.Installation) error {
	config, err := json.Marshal(installation.Config)
	if err != nil {
		return fmt.Errorf("sqlite: marshal installation config: %w", err)
	}

	active := 0
	if installation.Active {
		active = 1
	}

	query := `
		INSERT INTO installations (id, login, kind, config, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			login = excluded.login,
			kind = excluded.kind,
			config = excluded.config,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		installation.ID,
		installation.Login,
		installation.Kind,
		string(config),
		active,
		unixOrZero(installation.CreatedAt),
		unixOrZero(installation.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert installation: %w", err)
	}

	return nil
}

func scanInstallation(row interface {
	Scan(dest ...any) error
}) (domain.Installation, error) {
	var installation domain.Installation
	var config string
	var active int
	var createdAt, updatedAt int64

	err := row.Scan(
		&installation.ID,
		&installation.Login,
		&installation.Kind,
		&config,
		&active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Installation{}, err
	}

	if err := json.Unmarshal([]byte(config), &installation.Config); err != nil {
		return domain.Installation{}, fmt.Errorf("sqlite: unmarshal installation config: %w", err)
	}
	installation.Active = active == 1
	installation.CreatedAt = time.Unix(createdAt, 0)
	installation.UpdatedAt = time.Unix(updatedAt, 0)

	return installation, nil
}

// GetInstallation retrieves an installation by ID.
func (s *Store) GetInstallation(ctx context.Context, id int64) (domain.Installation, error) {
	query := `
		SELECT id, login, kind, config, active, created_at, updated_at
		FROM installations WHERE id = ?
	`

	installation, err := scanInstallation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Installation{}, store.ErrNotFound
		}
		return domain.Installation{}, fmt.Errorf("sqlite: get installation: %w", err)
	}

	return installation, nil
}

// DeactivateInstallation marks an installation inactive, e.g. on a
// GitHub App "deleted" or "suspend" webhook event.
func (s *Store) DeactivateInstallation(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE installations SET active = 0, updated_at = ? WHERE id = ?`,
		time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deactivate installation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deactivate installation affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

// ListActiveInstallations returns every installation not yet deactivated.
func (s *Store) ListActiveInstallations(ctx context.Context) ([]domain.Installation, error) {
	query := `
		SELECT id, login, kind, config, active, created_at, updated_at
		FROM installations WHERE active = 1
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list active installations: %w", err)
	}
	defer rows.Close()

	var installations []domain.Installation
	for rows.Next() {
		installation, err := scanInstallation(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan installation: %w", err)
		}
		installations = append(installations, installation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate installations: %w", err)
	}

	return installations, nil
}

// UpsertRepository creates or updates a repository.
func (s *Store) UpsertRepository(ctx context.Context, repo domain.Repository) error {
	query := `
		INSERT INTO repositories (id, installation_id, full_name, default_branch, index_status, last_indexed_sha, last_indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			installation_id = excluded.installation_id,
			full_name = excluded.full_name,
			default_branch = excluded.default_branch
	`

	_, err := s.db.ExecContext(ctx, query,
		repo.ID,
		repo.InstallationID,
		repo.FullName,
		repo.DefaultBranch,
		repo.IndexStatus,
		repo.LastIndexedSHA,
		nullableUnix(repo.LastIndexedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert repository: %w", err)
	}

	return nil
}

func scanRepository(row interface {
	Scan(dest ...any) error
}) (domain.Repository, error) {
	var repo domain.Repository
	var lastIndexedSHA sql.NullString
	var lastIndexedAt sql.NullInt64

	err := row.Scan(
		&repo.ID,
		&repo.InstallationID,
		&repo.FullName,
		&repo.DefaultBranch,
		&repo.IndexStatus,
		&lastIndexedSHA,
		&lastIndexedAt,
	)
	if err != nil {
		return domain.Repository{}, err
	}

	repo.LastIndexedSHA = lastIndexedSHA.String
	repo.LastIndexedAt = timeFromNullable(lastIndexedAt)

	return repo, nil
}

// GetRepository retrieves a repository by ID.
func (s *Store) GetRepository(ctx context.Context, id int64) (domain.Repository, error) {
	query := `
		SELECT id, installation_id, full_name, default_branch, index_status, last_indexed_sha, last_indexed_at
		FROM repositories WHERE id = ?
	`

	repo, err := scanRepository(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Repository{}, store.ErrNotFound
		}
		return domain.Repository{}, fmt.Errorf("sqlite: get repository: %w", err)
	}

	return repo, nil
}

// ListRepositoriesByInstallation returns every repository under an installation.
func (s *Store) ListRepositoriesByInstallation(ctx context.Context, installationID int64) ([]domain.Repository, error) {
	query := `
		SELECT id, installation_id, full_name, default_branch, index_status, last_indexed_sha, last_indexed_at
		FROM repositories WHERE installation_id = ?
	`

	rows, err := s.db.QueryContext(ctx, query, installationID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list repositories: %w", err)
	}
	defer rows.Close()

	var repos []domain.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan repository: %w", err)
		}
		repos = append(repos, repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate repositories: %w", err)
	}

	return repos, nil
}

// UpdateIndexStatus records the outcome of a repository indexing pass.
func (s *Store) UpdateIndexStatus(ctx context.Context, repositoryID int64, status string, indexedSHA string, indexedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE repositories SET index_status = ?, last_indexed_sha = ?, last_indexed_at = ? WHERE id = ?`,
		status, indexedSHA, unixOrZero(indexedAt), repositoryID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update index status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update index status affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

// CreateReview stores a new review row.
func (s *Store) CreateReview(ctx context.Context, review domain.Review) error {
	query := `
		INSERT INTO reviews (id, repository_id, pr_number, base_sha, head_sha, status, stage, finding_count, cost_usd_micros, enqueued_at, started_at, completed_at, terminal_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		review.ID,
		review.RepositoryID,
		review.PRNumber,
		review.BaseSHA,
		review.HeadSHA,
		review.Status,
		review.Stage,
		review.FindingCount,
		review.CostUSDMicros,
		unixOrZero(review.EnqueuedAt),
		nullableUnix(review.StartedAt),
		nullableUnix(review.CompletedAt),
		review.TerminalError,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create review: %w", err)
	}

	return nil
}

// UpdateReviewStatus transitions a review's status and stage, recording
// a terminal error if the review has failed.
func (s *Store) UpdateReviewStatus(ctx context.Context, reviewID, status, stage, terminalError string) error {
	now := time.Now().Unix()

	query := `
		UPDATE reviews SET
			status = ?,
			stage = ?,
			terminal_error = ?,
			started_at = COALESCE(started_at, CASE WHEN ? = 'processing' THEN ? ELSE NULL END),
			completed_at = CASE WHEN ? IN ('completed', 'failed') THEN ? ELSE completed_at END
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		status, stage, terminalError,
		status, now,
		status, now,
		reviewID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update review status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update review status affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

// IncrementReviewCost adds deltaMicros to a review's accumulated cost.
func (s *Store) IncrementReviewCost(ctx context.Context, reviewID string, deltaMicros int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE reviews SET cost_usd_micros = cost_usd_micros + ? WHERE id = ?`,
		deltaMicros, reviewID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: increment review cost: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: increment review cost affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

func scanReview(row interface {
	Scan(dest ...any) error
}) (domain.Review, error) {
	var review domain.Review
	var enqueuedAt int64
	var startedAt, completedAt sql.NullInt64

	err := row.Scan(
		&review.ID,
		&review.RepositoryID,
		&review.PRNumber,
		&review.BaseSHA,
		&review.HeadSHA,
		&review.Status,
		&review.Stage,
		&review.FindingCount,
		&review.CostUSDMicros,
		&enqueuedAt,
		&startedAt,
		&completedAt,
		&review.TerminalError,
	)
	if err != nil {
		return domain.Review{}, err
	}

	review.EnqueuedAt = time.Unix(enqueuedAt, 0)
	review.StartedAt = timeFromNullable(startedAt)
	review.CompletedAt = timeFromNullable(completedAt)

	return review, nil
}

const reviewColumns = `id, repository_id, pr_number, base_sha, head_sha, status, stage, finding_count, cost_usd_micros, enqueued_at, started_at, completed_at, terminal_error`

// GetReview retrieves a review by ID.
func (s *Store) GetReview(ctx context.Context, reviewID string) (domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`

	review, err := scanReview(s.db.QueryRowContext(ctx, query, reviewID))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Review{}, store.ErrNotFound
		}
		return domain.Review{}, fmt.Errorf("sqlite: get review: %w", err)
	}

	return review, nil
}

// GetReviewByHead retrieves a review by its (repository, PR, head-commit)
// coordinates, used to reattach a retried task to its original record.
func (s *Store) GetReviewByHead(ctx context.Context, repositoryID int64, prNumber int, headSHA string) (domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE repository_id = ? AND pr_number = ? AND head_sha = ?`

	review, err := scanReview(s.db.QueryRowContext(ctx, query, repositoryID, prNumber, headSHA))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Review{}, store.ErrNotFound
		}
		return domain.Review{}, fmt.Errorf("sqlite: get review by head: %w", err)
	}

	return review, nil
}

// SaveFindings stores multiple findings in a single transaction.
func (s *Store) SaveFindings(ctx context.Context, findings []domain.Finding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertFindings(ctx, tx, findings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit findings: %w", err)
	}

	return nil
}

func insertFindings(ctx context.Context, tx *sql.Tx, findings []domain.Finding) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (id, review_id, file, line_start, line_end, diff_position, severity, category, title, body, suggestion, applied, dismissed, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert finding: %w", err)
	}
	defer stmt.Close()

	for _, finding := range findings {
		var diffPosition sql.NullInt64
		if finding.DiffPosition != nil {
			diffPosition = sql.NullInt64{Int64: int64(*finding.DiffPosition), Valid: true}
		}

		applied, dismissed := 0, 0
		if finding.Applied {
			applied = 1
		}
		if finding.Dismissed {
			dismissed = 1
		}

		if _, err := stmt.ExecContext(ctx,
			finding.ID,
			finding.ReviewID,
			finding.File,
			finding.LineStart,
			finding.LineEnd,
			diffPosition,
			finding.Severity,
			finding.Category,
			finding.Title,
			finding.Body,
			finding.Suggestion,
			applied,
			dismissed,
			finding.Confidence,
		); err != nil {
			return fmt.Errorf("sqlite: insert finding: %w", err)
		}
	}

	return nil
}

// CompleteReview atomically transitions a review to a terminal status and
// writes its findings in the same transaction.
func (s *Store) CompleteReview(ctx context.Context, reviewID, status, terminalError string, findings []domain.Finding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	result, err := tx.ExecContext(ctx,
		`UPDATE reviews SET status = ?, terminal_error = ?, finding_count = ?, completed_at = ? WHERE id = ?`,
		status, terminalError, len(findings), now, reviewID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: complete review status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: complete review affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	if err := insertFindings(ctx, tx, findings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit complete review: %w", err)
	}

	return nil
}

// UpdateFindingCommentID records the forge comment ID a finding was posted as.
func (s *Store) UpdateFindingCommentID(ctx context.Context, findingID string, commentID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE findings SET forge_comment_id = ? WHERE id = ?`,
		commentID, findingID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update finding comment id: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update finding comment id affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

// SetFindingApplied marks whether the suggested fix was applied.
func (s *Store) SetFindingApplied(ctx context.Context, findingID string, applied bool) error {
	value := 0
	if applied {
		value = 1
	}

	result, err := s.db.ExecContext(ctx, `UPDATE findings SET applied = ? WHERE id = ?`, value, findingID)
	if err != nil {
		return fmt.Errorf("sqlite: set finding applied: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: set finding applied affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

// SetFindingDismissed marks whether the finding was dismissed by a reviewer.
func (s *Store) SetFindingDismissed(ctx context.Context, findingID string, dismissed bool) error {
	value := 0
	if dismissed {
		value = 1
	}

	result, err := s.db.ExecContext(ctx, `UPDATE findings SET dismissed = ? WHERE id = ?`, value, findingID)
	if err != nil {
		return fmt.Errorf("sqlite: set finding dismissed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: set finding dismissed affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

func scanFinding(row interface {
	Scan(dest ...any) error
}) (domain.Finding, error) {
	var finding domain.Finding
	var diffPosition, forgeCommentID sql.NullInt64
	var applied, dismissed int

	err := row.Scan(
		&finding.ID,
		&finding.ReviewID,
		&finding.File,
		&finding.LineStart,
		&finding.LineEnd,
		&diffPosition,
		&finding.Severity,
		&finding.Category,
		&finding.Title,
		&finding.Body,
		&finding.Suggestion,
		&forgeCommentID,
		&applied,
		&dismissed,
		&finding.Confidence,
	)
	if err != nil {
		return domain.Finding{}, err
	}

	if diffPosition.Valid {
		pos := int(diffPosition.Int64)
		finding.DiffPosition = &pos
	}
	if forgeCommentID.Valid {
		id := forgeCommentID.Int64
		finding.ForgeCommentID = &id
	}
	finding.Applied = applied == 1
	finding.Dismissed = dismissed == 1

	return finding, nil
}

const findingColumns = `id, review_id, file, line_start, line_end, diff_position, severity, category, title, body, suggestion, forge_comment_id, applied, dismissed, confidence`

// GetFinding retrieves a single finding by ID.
func (s *Store) GetFinding(ctx context.Context, findingID string) (domain.Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings WHERE id = ?`

	finding, err := scanFinding(s.db.QueryRowContext(ctx, query, findingID))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Finding{}, store.ErrNotFound
		}
		return domain.Finding{}, fmt.Errorf("sqlite: get finding: %w", err)
	}

	return finding, nil
}

// GetFindingsByReview retrieves all findings for a given review, ordered
// by file position.
func (s *Store) GetFindingsByReview(ctx context.Context, reviewID string) ([]domain.Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings WHERE review_id = ? ORDER BY file ASC, line_start ASC`

	rows, err := s.db.QueryContext(ctx, query, reviewID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get findings by review: %w", err)
	}
	defer rows.Close()

	var findings []domain.Finding
	for rows.Next() {
		finding, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan finding: %w", err)
		}
		findings = append(findings, finding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate findings: %w", err)
	}

	return findings, nil
}

// CreateConversationThread stores a new thread hung off a posted finding comment.
func (s *Store) CreateConversationThread(ctx context.Context, thread domain.ConversationThread) error {
	history, err := json.Marshal(thread.History)
	if err != nil {
		return fmt.Errorf("sqlite: marshal thread history: %w", err)
	}

	query := `
		INSERT INTO conversation_threads (comment_id, finding_id, review_id, file, line, commit_sha, cached_content, history, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		thread.CommentID,
		thread.FindingID,
		thread.ReviewID,
		thread.File,
		thread.Line,
		thread.CommitSHA,
		thread.CachedContent,
		string(history),
		unixOrZero(thread.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create conversation thread: %w", err)
	}

	return nil
}

// GetConversationThread retrieves a thread by the forge comment ID it hangs from.
func (s *Store) GetConversationThread(ctx context.Context, commentID int64) (domain.ConversationThread, error) {
	query := `
		SELECT comment_id, finding_id, review_id, file, line, commit_sha, cached_content, history, created_at
		FROM conversation_threads WHERE comment_id = ?
	`

	var thread domain.ConversationThread
	var history string
	var createdAt int64

	err := s.db.QueryRowContext(ctx, query, commentID).Scan(
		&thread.CommentID,
		&thread.FindingID,
		&thread.ReviewID,
		&thread.File,
		&thread.Line,
		&thread.CommitSHA,
		&thread.CachedContent,
		&history,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ConversationThread{}, store.ErrNotFound
		}
		return domain.ConversationThread{}, fmt.Errorf("sqlite: get conversation thread: %w", err)
	}

	if err := json.Unmarshal([]byte(history), &thread.History); err != nil {
		return domain.ConversationThread{}, fmt.Errorf("sqlite: unmarshal thread history: %w", err)
	}
	thread.CreatedAt = time.Unix(createdAt, 0)

	return thread, nil
}

// AppendConversationTurn appends a turn to a thread's history, trimming
// the oldest turns once maxTurns is exceeded.
func (s *Store) AppendConversationTurn(ctx context.Context, commentID int64, turn domain.ConversationTurn, maxTurns int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer tx.Rollback()

	var historyJSON string
	err = tx.QueryRowContext(ctx, `SELECT history FROM conversation_threads WHERE comment_id = ?`, commentID).Scan(&historyJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		return fmt.Errorf("sqlite: load thread history: %w", err)
	}

	var history []domain.ConversationTurn
	if err := json.Unmarshal([]byte(historyJSON), &history); err != nil {
		return fmt.Errorf("sqlite: unmarshal thread history: %w", err)
	}

	history = append(history, turn)
	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	updated, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("sqlite: marshal thread history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversation_threads SET history = ? WHERE comment_id = ?`, string(updated), commentID); err != nil {
		return fmt.Errorf("sqlite: update thread history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit thread history: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
