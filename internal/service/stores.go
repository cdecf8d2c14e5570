package service

import (
	"context"
	"time"

	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/google/uuid"
)

// ResultStore is the durable ExamResult collection. Create must return
// repository.ErrDuplicate when the user already has a result.
type ResultStore interface {
	GetByUser(ctx context.Context, userID int) (*model.ExamResult, error)
	Create(ctx context.Context, res *model.ExamResult) error
	ListCompleted(ctx context.Context) ([]model.CompletedResult, error)
}

// ProgressStore is the per-user liveness collection. Upsert must be a single
// atomic write.
type ProgressStore interface {
	Upsert(ctx context.Context, p *model.ExamProgress) error
	MarkCompleted(ctx context.Context, userID, totalQuestions int, at time.Time) error
	ListActive(ctx context.Context) ([]model.ActiveProgress, error)
}

// ArchiveStore keeps archive snapshots.
type ArchiveStore interface {
	ArchiveAndClear(ctx context.Context, a *model.ExamArchive, userIDs []int) error
	List(ctx context.Context) ([]model.ExamArchive, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Locker grants short exclusive leases. ok is false when another holder
// owns the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
