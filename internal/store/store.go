// Package store declares the persistence contract every review,
// finding, conversation thread, and tenant record flows through,
// independent of the backing database.
package store

import (
	"context"
	"time"

	"github.com/bkyoung/prreview/internal/domain"
)

// Store is implemented by each backing database adapter
// (internal/adapter/store/sqlite, .../postgres).
type Store interface {
	// Installation lifecycle.
	UpsertInstallation(ctx context.Context, installation domain.Installation) error
	GetInstallation(ctx context.Context, id int64) (domain.Installation, error)
	DeactivateInstallation(ctx context.Context, id int64) error
	ListActiveInstallations(ctx context.Context) ([]domain.Installation, error)

	// Repository lifecycle.
	UpsertRepository(ctx context.Context, repo domain.Repository) error
	GetRepository(ctx context.Context, id int64) (domain.Repository, error)
	ListRepositoriesByInstallation(ctx context.Context, installationID int64) ([]domain.Repository, error)
	UpdateIndexStatus(ctx context.Context, repositoryID int64, status string, indexedSHA string, indexedAt time.Time) error

	// Review lifecycle.
	CreateReview(ctx context.Context, review domain.Review) error
	UpdateReviewStatus(ctx context.Context, reviewID, status, stage, terminalError string) error
	IncrementReviewCost(ctx context.Context, reviewID string, deltaMicros int64) error
	GetReview(ctx context.Context, reviewID string) (domain.Review, error)
	GetReviewByHead(ctx context.Context, repositoryID int64, prNumber int, headSHA string) (domain.Review, error)

	// CompleteReview atomically transitions a review to a terminal status
	// (completed or failed) and writes its findings in the same
	// transaction; a completed review with missing findings must never
	// be observable, per the persistence invariant in spec.md §4.11.
	CompleteReview(ctx context.Context, reviewID, status, terminalError string, findings []domain.Finding) error

	// Finding lifecycle.
	SaveFindings(ctx context.Context, findings []domain.Finding) error
	UpdateFindingCommentID(ctx context.Context, findingID string, commentID int64) error
	SetFindingApplied(ctx context.Context, findingID string, applied bool) error
	SetFindingDismissed(ctx context.Context, findingID string, dismissed bool) error
	GetFinding(ctx context.Context, findingID string) (domain.Finding, error)
	GetFindingsByReview(ctx context.Context, reviewID string) ([]domain.Finding, error)

	// Conversation threads, looked up by the forge comment ID they hang from.
	CreateConversationThread(ctx context.Context, thread domain.ConversationThread) error
	GetConversationThread(ctx context.Context, commentID int64) (domain.ConversationThread, error)
	AppendConversationTurn(ctx context.Context, commentID int64, turn domain.ConversationTurn, maxTurns int) error

	Close() error
}

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "store: not found" }
