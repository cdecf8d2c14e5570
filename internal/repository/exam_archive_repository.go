package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cgpaplus/exam-core/internal/database"
	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamArchiveRepository handles archived result snapshots.
type ExamArchiveRepository struct {
	pool *pgxpool.Pool
}

// NewExamArchiveRepository creates a new ExamArchiveRepository.
func NewExamArchiveRepository(pool *pgxpool.Pool) *ExamArchiveRepository {
	return &ExamArchiveRepository{pool: pool}
}

// ArchiveAndClear stores the archive and only then deletes the archived
// results (by owner) and every progress row, all in one transaction.
// Results submitted after the snapshot was taken are left in place.
func (r *ExamArchiveRepository) ArchiveAndClear(ctx context.Context, a *model.ExamArchive, userIDs []int) error {
	raw, err := json.Marshal(a.Results)
	if err != nil {
		return fmt.Errorf("encode archive rows: %w", err)
	}

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO exam_archives (id, label, archived_at, total_participants, results)
			 VALUES ($1, $2, $3, $4, $5)`,
			a.ID, a.Label, a.ArchivedAt, a.TotalParticipants, raw,
		); err != nil {
			return fmt.Errorf("insert archive: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM exam_results WHERE user_id = ANY($1)`, userIDs,
		); err != nil {
			return fmt.Errorf("delete results: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM exam_progress`); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
		return nil
	})
}

// List returns all archives, newest first.
func (r *ExamArchiveRepository) List(ctx context.Context) ([]model.ExamArchive, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, label, archived_at, total_participants, results
		 FROM exam_archives
		 ORDER BY archived_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var archives []model.ExamArchive
	for rows.Next() {
		var a model.ExamArchive
		var raw []byte
		if err := rows.Scan(&a.ID, &a.Label, &a.ArchivedAt, &a.TotalParticipants, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &a.Results); err != nil {
			return nil, fmt.Errorf("decode archive %s: %w", a.ID, err)
		}
		archives = append(archives, a)
	}
	return archives, rows.Err()
}

// Delete removes one archive by id, or returns ErrNotFound.
func (r *ExamArchiveRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exam_archives WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
