package repository

import (
	"context"
	"time"

	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamProgressRepository handles live progress rows.
type ExamProgressRepository struct {
	pool *pgxpool.Pool
}

// NewExamProgressRepository creates a new ExamProgressRepository.
func NewExamProgressRepository(pool *pgxpool.Pool) *ExamProgressRepository {
	return &ExamProgressRepository{pool: pool}
}

// Upsert writes the whole progress row for p.UserID in one statement.
// Concurrent upserts for the same user are last-write-wins.
func (r *ExamProgressRepository) Upsert(ctx context.Context, p *model.ExamProgress) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_progress
		    (user_id, answered_count, total_questions, current_section, current_round,
		     started_at, last_updated_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO UPDATE
		 SET answered_count  = EXCLUDED.answered_count,
		     total_questions = EXCLUDED.total_questions,
		     current_section = EXCLUDED.current_section,
		     current_round   = EXCLUDED.current_round,
		     started_at      = EXCLUDED.started_at,
		     last_updated_at = EXCLUDED.last_updated_at,
		     is_active       = EXCLUDED.is_active`,
		p.UserID, p.AnsweredCount, p.TotalQuestions, p.CurrentSection, p.CurrentRound,
		p.StartedAt, p.LastUpdatedAt, p.IsActive,
	)
	return err
}

// MarkCompleted flips the user's row to inactive with a full answer count.
// It is a no-op when the user never reported progress.
func (r *ExamProgressRepository) MarkCompleted(ctx context.Context, userID, totalQuestions int, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_progress
		 SET is_active = FALSE, answered_count = $2, last_updated_at = $3
		 WHERE user_id = $1`,
		userID, totalQuestions, at,
	)
	return err
}

// ListActive returns active rows joined with user display fields, most answered first.
func (r *ExamProgressRepository) ListActive(ctx context.Context) ([]model.ActiveProgress, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.user_id, u.name, u.email, u.college,
		        p.answered_count, p.total_questions, p.current_section, p.current_round,
		        p.started_at, p.last_updated_at, p.is_active
		 FROM exam_progress p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.is_active
		 ORDER BY p.answered_count DESC, p.started_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var active []model.ActiveProgress
	for rows.Next() {
		var a model.ActiveProgress
		if err := rows.Scan(
			&a.UserID, &a.Name, &a.Email, &a.College,
			&a.AnsweredCount, &a.TotalQuestions, &a.CurrentSection, &a.CurrentRound,
			&a.StartedAt, &a.LastUpdatedAt, &a.IsActive,
		); err != nil {
			return nil, err
		}
		active = append(active, a)
	}
	return active, rows.Err()
}
