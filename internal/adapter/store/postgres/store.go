// Package postgres implements store.Store on top of sqlx and pgx, for
// multi-process deployments where the scheduler's Redis queues and the
// persisted review state are shared across workers.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/bkyoung/prreview/internal/domain"
	"github.com/bkyoung/prreview/internal/store"
)

// Store implements store.Store using PostgreSQL. Schema management is
// external to this package; run the goose migrations under
// internal/adapter/store/postgres/migrations before pointing a Store at
// a fresh database.
type Store struct {
	db *sqlx.DB
}

// NewStore opens a connection pool against dsn (a postgres:// URL).
func NewStore(dsn string) (*Store, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	return &Store{db: db}, nil
}

type installationRow struct {
	ID        int64  `db:"id"`
	Login     string `db:"login"`
	Kind      string `db:"kind"`
	Config    []byte `db:"config"`
	Active    bool   `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r installationRow) toDomain() (domain.Installation, error) {
	installation := domain.Installation{
		ID:        r.ID,
		Login:     r.Login,
		Kind:      r.Kind,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	if len(r.Config) > 0 {
		if err := json.Unmarshal(r.Config, &installation.Config); err != nil {
			return domain.Installation{}, fmt.Errorf("postgres: unmarshal installation config: %w", err)
		}
	}

	return installation, nil
}

// UpsertInstallation creates or updates an installation.
func (s *Store) UpsertInstallation(ctx context.Context, installation domain.Installation) error {
	config, err := json.Marshal(installation.Config)
	if err != nil {
		return fmt.Errorf("postgres: marshal installation config: %w", err)
	}

	const query = `
		INSERT INTO installations (id, login, kind, config, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			login = excluded.login,
			kind = excluded.kind,
			config = excluded.config,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		installation.ID, installation.Login, installation.Kind, config,
		installation.Active, installation.CreatedAt, installation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert installation: %w", err)
	}

	return nil
}

// GetInstallation retrieves an installation by ID.
func (s *Store) GetInstallation(ctx context.Context, id int64) (domain.Installation, error) {
	const query = `SELECT id, login, kind, config, active, created_at, updated_at FROM installations WHERE id = $1`

	var row installationRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return domain.Installation{}, store.ErrNotFound
		}
		return domain.Installation{}, fmt.Errorf("postgres: get installation: %w", err)
	}

	return row.toDomain()
}

// DeactivateInstallation marks an installation inactive.
func (s *Store) DeactivateInstallation(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE installations SET active = false, updated_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("postgres: deactivate installation: %w", err)
	}
	return requireAffected(result, "postgres: deactivate installation")
}

// ListActiveInstallations returns every installation not yet deactivated.
func (s *Store) ListActiveInstallations(ctx context.Context) ([]domain.Installation, error) {
	const query = `SELECT id, login, kind, config, active, created_at, updated_at FROM installations WHERE active = true`

	var rows []installationRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("postgres: list active installations: %w", err)
	}

	installations := make([]domain.Installation, 0, len(rows))
	for _, row := range rows {
		installation, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		installations = append(installations, installation)
	}

	return installations, nil
}

type repositoryRow struct {
	ID             int64          `db:"id"`
	InstallationID int64          `db:"installation_id"`
	FullName       string         `db:"full_name"`
	DefaultBranch  string         `db:"default_branch"`
	IndexStatus    string         `db:"index_status"`
	LastIndexedSHA sql.NullString `db:"last_indexed_sha"`
	LastIndexedAt  sql.NullTime   `db:"last_indexed_at"`
}

func (r repositoryRow) toDomain() domain.Repository {
	repo := domain.Repository{
		ID:             r.ID,
		InstallationID: r.InstallationID,
		FullName:       r.FullName,
		DefaultBranch:  r.DefaultBranch,
		IndexStatus:    r.IndexStatus,
		LastIndexedSHA: r.LastIndexedSHA.String,
	}
	if r.LastIndexedAt.Valid {
		t := r.LastIndexedAt.Time
		repo.LastIndexedAt = &t
	}
	return repo
}

// UpsertRepository creates or updates a repository.
func (s *Store) UpsertRepository(ctx context.Context, repo domain.Repository) error {
	const query = `
		INSERT INTO repositories (id, installation_id, full_name, default_branch, index_status, last_indexed_sha, last_indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			installation_id = excluded.installation_id,
			full_name = excluded.full_name,
			default_branch = excluded.default_branch
	`

	var lastIndexedAt sql.NullTime
	if repo.LastIndexedAt != nil {
		lastIndexedAt = sql.NullTime{Time: *repo.LastIndexedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		repo.ID, repo.InstallationID, repo.FullName, repo.DefaultBranch,
		repo.IndexStatus, repo.LastIndexedSHA, lastIndexedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert repository: %w", err)
	}

	return nil
}

// GetRepository retrieves a repository by ID.
func (s *Store) GetRepository(ctx context.Context, id int64) (domain.Repository, error) {
	const query = `SELECT id, installation_id, full_name, default_branch, index_status, last_indexed_sha, last_indexed_at FROM repositories WHERE id = $1`

	var row repositoryRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return domain.Repository{}, store.ErrNotFound
		}
		return domain.Repository{}, fmt.Errorf("postgres: get repository: %w", err)
	}

	return row.toDomain(), nil
}

// ListRepositoriesByInstallation returns every repository under an installation.
func (s *Store) ListRepositoriesByInstallation(ctx context.Context, installationID int64) ([]domain.Repository, error) {
	const query = `SELECT id, installation_id, full_name, default_branch, index_status, last_indexed_sha, last_indexed_at FROM repositories WHERE installation_id = $1`

	var rows []repositoryRow
	if err := s.db.SelectContext(ctx, &rows, query, installationID); err != nil {
		return nil, fmt.Errorf("postgres: list repositories: %w", err)
	}

	repos := make([]domain.Repository, 0, len(rows))
	for _, row := range rows {
		repos = append(repos, row.toDomain())
	}

	return repos, nil
}

// UpdateIndexStatus records the outcome of a repository indexing pass.
func (s *Store) UpdateIndexStatus(ctx context.Context, repositoryID int64, status string, indexedSHA string, indexedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE repositories SET index_status = $1, last_indexed_sha = $2, last_indexed_at = $3 WHERE id = $4`,
		status, indexedSHA, indexedAt, repositoryID,
	)
	if err != nil {
		return fmt.Errorf("postgres: update index status: %w", err)
	}
	return requireAffected(result, "postgres: update index status")
}

type reviewRow struct {
	ID            string       `db:"id"`
	RepositoryID  int64        `db:"repository_id"`
	PRNumber      int          `db:"pr_number"`
	BaseSHA       string       `db:"base_sha"`
	HeadSHA       string       `db:"head_sha"`
	Status        string       `db:"status"`
	Stage         string       `db:"stage"`
	FindingCount  int          `db:"finding_count"`
	CostUSDMicros int64        `db:"cost_usd_micros"`
	EnqueuedAt    time.Time    `db:"enqueued_at"`
	StartedAt     sql.NullTime `db:"started_at"`
	CompletedAt   sql.NullTime `db:"completed_at"`
	TerminalError string       `db:"terminal_error"`
}

func (r reviewRow) toDomain() domain.Review {
	review := domain.Review{
		ID:            r.ID,
		RepositoryID:  r.RepositoryID,
		PRNumber:      r.PRNumber,
		BaseSHA:       r.BaseSHA,
		HeadSHA:       r.HeadSHA,
		Status:        r.Status,
		Stage:         r.Stage,
		FindingCount:  r.FindingCount,
		CostUSDMicros: r.CostUSDMicros,
		EnqueuedAt:    r.EnqueuedAt,
		TerminalError: r.TerminalError,
	}
	if r.StartedAt.Valid {
		t := r.StartedAt.Time
		review.StartedAt = &t
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		review.CompletedAt = &t
	}
	return review
}

const reviewColumns = `id, repository_id, pr_number, base_sha, head_sha, status, stage, finding_count, cost_usd_micros, enqueued_at, started_at, completed_at, terminal_error`

// CreateReview stores a new review row.
func (s *Store) CreateReview(ctx context.Context, review domain.Review) error {
	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.db.ExecContext(ctx, query,
		review.ID, review.RepositoryID, review.PRNumber, review.BaseSHA, review.HeadSHA,
		review.Status, review.Stage, review.FindingCount, review.CostUSDMicros,
		review.EnqueuedAt, nullTime(review.StartedAt), nullTime(review.CompletedAt), review.TerminalError,
	)
	if err != nil {
		return fmt.Errorf("postgres: create review: %w", err)
	}

	return nil
}

// UpdateReviewStatus transitions a review's status and stage.
func (s *Store) UpdateReviewStatus(ctx context.Context, reviewID, status, stage, terminalError string) error {
	now := time.Now()

	const query = `
		UPDATE reviews SET
			status = $1,
			stage = $2,
			terminal_error = $3,
			started_at = COALESCE(started_at, CASE WHEN $1 = 'processing' THEN $4 ELSE NULL END),
			completed_at = CASE WHEN $1 IN ('completed', 'failed') THEN $4 ELSE completed_at END
		WHERE id = $5
	`

	result, err := s.db.ExecContext(ctx, query, status, stage, terminalError, now, reviewID)
	if err != nil {
		return fmt.Errorf("postgres: update review status: %w", err)
	}
	return requireAffected(result, "postgres: update review status")
}

// IncrementReviewCost adds deltaMicros to a review's accumulated cost.
func (s *Store) IncrementReviewCost(ctx context.Context, reviewID string, deltaMicros int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE reviews SET cost_usd_micros = cost_usd_micros + $1 WHERE id = $2`, deltaMicros, reviewID)
	if err != nil {
		return fmt.Errorf("postgres: increment review cost: %w", err)
	}
	return requireAffected(result, "postgres: increment review cost")
}

// GetReview retrieves a review by ID.
func (s *Store) GetReview(ctx context.Context, reviewID string) (domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	var row reviewRow
	if err := s.db.GetContext(ctx, &row, query, reviewID); err != nil {
		if err == sql.ErrNoRows {
			return domain.Review{}, store.ErrNotFound
		}
		return domain.Review{}, fmt.Errorf("postgres: get review: %w", err)
	}

	return row.toDomain(), nil
}

// GetReviewByHead retrieves a review by its (repository, PR, head-commit) coordinates.
func (s *Store) GetReviewByHead(ctx context.Context, repositoryID int64, prNumber int, headSHA string) (domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE repository_id = $1 AND pr_number = $2 AND head_sha = $3`

	var row reviewRow
	if err := s.db.GetContext(ctx, &row, query, repositoryID, prNumber, headSHA); err != nil {
		if err == sql.ErrNoRows {
			return domain.Review{}, store.ErrNotFound
		}
		return domain.Review{}, fmt.Errorf("postgres: get review by head: %w", err)
	}

	return row.toDomain(), nil
}

type findingRow struct {
	ID             string         `db:"id"`
	ReviewID       string         `db:"review_id"`
	File           string         `db:"file"`
	LineStart      int            `db:"line_start"`
	LineEnd        int            `db:"line_end"`
	DiffPosition   sql.NullInt64  `db:"diff_position"`
	Severity       string         `db:"severity"`
	Category       string         `db:"category"`
	Title          string         `db:"title"`
	Body           string         `db:"body"`
	Suggestion     sql.NullString `db:"suggestion"`
	ForgeCommentID sql.NullInt64  `db:"forge_comment_id"`
	Applied        bool           `db:"applied"`
	Dismissed      bool           `db:"dismissed"`
	Confidence     float64        `db:"confidence"`
}

func (r findingRow) toDomain() domain.Finding {
	finding := domain.Finding{
		ID:         r.ID,
		ReviewID:   r.ReviewID,
		File:       r.File,
		LineStart:  r.LineStart,
		LineEnd:    r.LineEnd,
		Severity:   r.Severity,
		Category:   r.Category,
		Title:      r.Title,
		Body:       r.Body,
		Suggestion: r.Suggestion.String,
		Applied:    r.Applied,
		Dismissed:  r.Dismissed,
		Confidence: r.Confidence,
	}
	if r.DiffPosition.Valid {
		pos := int(r.DiffPosition.Int64)
		finding.DiffPosition = &pos
	}
	if r.ForgeCommentID.Valid {
		id := r.ForgeCommentID.Int64
		finding.ForgeCommentID = &id
	}
	return finding
}

const findingColumns = `id, review_id, file, line_start, line_end, diff_position, severity, category, title, body, suggestion, forge_comment_id, applied, dismissed, confidence`

// SaveFindings stores multiple findings in a single transaction.
func (s *Store) SaveFindings(ctx context.Context, findings []domain.Finding) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertFindings(ctx, tx, findings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit findings: %w", err)
	}

	return nil
}

func insertFindings(ctx context.Context, tx *sqlx.Tx, findings []domain.Finding) error {
	const query = `
		INSERT INTO findings (` + findingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	for _, finding := range findings {
		_, err := tx.ExecContext(ctx, query,
			finding.ID, finding.ReviewID, finding.File, finding.LineStart, finding.LineEnd,
			intPtrToNull(finding.DiffPosition), finding.Severity, finding.Category, finding.Title, finding.Body,
			finding.Suggestion, int64PtrToNull(finding.ForgeCommentID), finding.Applied, finding.Dismissed, finding.Confidence,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert finding: %w", err)
		}
	}

	return nil
}

// CompleteReview atomically transitions a review to a terminal status and
// writes its findings in the same transaction.
func (s *Store) CompleteReview(ctx context.Context, reviewID, status, terminalError string, findings []domain.Finding) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE reviews SET status = $1, terminal_error = $2, finding_count = $3, completed_at = $4 WHERE id = $5`,
		status, terminalError, len(findings), now, reviewID,
	)
	if err != nil {
		return fmt.Errorf("postgres: complete review status: %w", err)
	}
	if err := requireAffected(result, "postgres: complete review"); err != nil {
		return err
	}

	if err := insertFindings(ctx, tx, findings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit complete review: %w", err)
	}

	return nil
}

// UpdateFindingCommentID records the forge comment ID a finding was posted as.
func (s *Store) UpdateFindingCommentID(ctx context.Context, findingID string, commentID int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE findings SET forge_comment_id = $1 WHERE id = $2`, commentID, findingID)
	if err != nil {
		return fmt.Errorf("postgres: update finding comment id: %w", err)
	}
	return requireAffected(result, "postgres: update finding comment id")
}

// SetFindingApplied marks whether the suggested fix was applied.
func (s *Store) SetFindingApplied(ctx context.Context, findingID string, applied bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE findings SET applied = $1 WHERE id = $2`, applied, findingID)
	if err != nil {
		return fmt.Errorf("postgres: set finding applied: %w", err)
	}
	return requireAffected(result, "postgres: set finding applied")
}

// SetFindingDismissed marks whether the finding was dismissed by a reviewer.
func (s *Store) SetFindingDismissed(ctx context.Context, findingID string, dismissed bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE findings SET dismissed = $1 WHERE id = $2`, dismissed, findingID)
	if err != nil {
		return fmt.Errorf("postgres: set finding dismissed: %w", err)
	}
	return requireAffected(result, "postgres: set finding dismissed")
}

// GetFinding retrieves a single finding by ID.
func (s *Store) GetFinding(ctx context.Context, findingID string) (domain.Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings WHERE id = $1`

	var row findingRow
	if err := s.db.GetContext(ctx, &row, query, findingID); err != nil {
		if err == sql.ErrNoRows {
			return domain.Finding{}, store.ErrNotFound
		}
		return domain.Finding{}, fmt.Errorf("postgres: get finding: %w", err)
	}

	return row.toDomain(), nil
}

// GetFindingsByReview retrieves all findings for a given review.
func (s *Store) GetFindingsByReview(ctx context.Context, reviewID string) ([]domain.Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings WHERE review_id = $1 ORDER BY file ASC, line_start ASC`

	var rows []findingRow
	if err := s.db.SelectContext(ctx, &rows, query, reviewID); err != nil {
		return nil, fmt.Errorf("postgres: get findings by review: %w", err)
	}

	findings := make([]domain.Finding, 0, len(rows))
	for _, row := range rows {
		findings = append(findings, row.toDomain())
	}

	return findings, nil
}

type conversationThreadRow struct {
	CommentID     int64     `db:"comment_id"`
	FindingID     string    `db:"finding_id"`
	ReviewID      string    `db:"review_id"`
	File          string    `db:"file"`
	Line          int       `db:"line"`
	CommitSHA     string    `db:"commit_sha"`
	CachedContent []byte    `db:"cached_content"`
	History       []byte    `db:"history"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r conversationThreadRow) toDomain() (domain.ConversationThread, error) {
	thread := domain.ConversationThread{
		CommentID:     r.CommentID,
		FindingID:     r.FindingID,
		ReviewID:      r.ReviewID,
		File:          r.File,
		Line:          r.Line,
		CommitSHA:     r.CommitSHA,
		CachedContent: r.CachedContent,
		CreatedAt:     r.CreatedAt,
	}

	if len(r.History) > 0 {
		if err := json.Unmarshal(r.History, &thread.History); err != nil {
			return domain.ConversationThread{}, fmt.Errorf("postgres: unmarshal thread history: %w", err)
		}
	}

	return thread, nil
}

// CreateConversationThread stores a new thread hung off a posted finding comment.
func (s *Store) CreateConversationThread(ctx context.Context, thread domain.ConversationThread) error {
	history, err := json.Marshal(thread.History)
	if err != nil {
		return fmt.Errorf("postgres: marshal thread history: %w", err)
	}

	const query = `
		INSERT INTO conversation_threads (comment_id, finding_id, review_id, file, line, commit_sha, cached_content, history, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		thread.CommentID, thread.FindingID, thread.ReviewID, thread.File, thread.Line,
		thread.CommitSHA, thread.CachedContent, history, thread.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create conversation thread: %w", err)
	}

	return nil
}

// GetConversationThread retrieves a thread by the forge comment ID it hangs from.
func (s *Store) GetConversationThread(ctx context.Context, commentID int64) (domain.ConversationThread, error) {
	const query = `
		SELECT comment_id, finding_id, review_id, file, line, commit_sha, cached_content, history, created_at
		FROM conversation_threads WHERE comment_id = $1
	`

	var row conversationThreadRow
	if err := s.db.GetContext(ctx, &row, query, commentID); err != nil {
		if err == sql.ErrNoRows {
			return domain.ConversationThread{}, store.ErrNotFound
		}
		return domain.ConversationThread{}, fmt.Errorf("postgres: get conversation thread: %w", err)
	}

	return row.toDomain()
}

// AppendConversationTurn appends a turn to a thread's history, trimming
// the oldest turns once maxTurns is exceeded.
func (s *Store) AppendConversationTurn(ctx context.Context, commentID int64, turn domain.ConversationTurn, maxTurns int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}
	defer tx.Rollback()

	var historyJSON []byte
	err = tx.QueryRowContext(ctx, `SELECT history FROM conversation_threads WHERE comment_id = $1`, commentID).Scan(&historyJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		return fmt.Errorf("postgres: load thread history: %w", err)
	}

	var history []domain.ConversationTurn
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &history); err != nil {
			return fmt.Errorf("postgres: unmarshal thread history: %w", err)
		}
	}

	history = append(history, turn)
	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	updated, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("postgres: marshal thread history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversation_threads SET history = $1 WHERE comment_id = $2`, updated, commentID); err != nil {
		return fmt.Errorf("postgres: update thread history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit thread history: %w", err)
	}

	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func requireAffected(result sql.Result, context string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: affected rows: %w", context, err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func intPtrToNull(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func int64PtrToNull(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

var _ store.Store = (*Store)(nil)
