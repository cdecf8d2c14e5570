package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamResultRepository handles exam result data access.
type ExamResultRepository struct {
	pool *pgxpool.Pool
}

// NewExamResultRepository creates a new ExamResultRepository.
func NewExamResultRepository(pool *pgxpool.Pool) *ExamResultRepository {
	return &ExamResultRepository{pool: pool}
}

// GetByUser retrieves the result owned by userID, or ErrNotFound.
func (r *ExamResultRepository) GetByUser(ctx context.Context, userID int) (*model.ExamResult, error) {
	res := &model.ExamResult{}
	var answers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, answers, total_correct, total_questions, accuracy,
		        time_taken_seconds, started_at, completed_at
		 FROM exam_results
		 WHERE user_id = $1`, userID,
	).Scan(&res.ID, &res.UserID, &answers, &res.TotalCorrect, &res.TotalQuestions, &res.Accuracy,
		&res.TimeTakenSeconds, &res.StartedAt, &res.CompletedAt)
	if err != nil {
		return nil, translate(err)
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return res, nil
}

// Create inserts a result. A second insert for the same user yields
// ErrDuplicate, whichever of two racing requests loses.
func (r *ExamResultRepository) Create(ctx context.Context, res *model.ExamResult) error {
	answers := res.Answers
	if answers == nil {
		answers = []model.SubmittedAnswer{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO exam_results
		    (user_id, answers, total_correct, total_questions, accuracy,
		     time_taken_seconds, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT ON CONSTRAINT exam_results_user_id_key DO NOTHING
		 RETURNING id`,
		res.UserID, raw, res.TotalCorrect, res.TotalQuestions, res.Accuracy,
		res.TimeTakenSeconds, res.StartedAt, res.CompletedAt,
	).Scan(&res.ID)
	if err != nil {
		// DO NOTHING returns no row when the user already has a result.
		if translated := translate(err); translated == ErrNotFound {
			return ErrDuplicate
		} else {
			return translated
		}
	}
	return nil
}

// ListCompleted returns every result joined with its owner's display fields,
// ordered by score descending then time taken ascending.
func (r *ExamResultRepository) ListCompleted(ctx context.Context) ([]model.CompletedResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT er.user_id, u.name, u.email, u.college,
		        er.total_correct, er.total_questions, er.accuracy,
		        er.time_taken_seconds, er.completed_at
		 FROM exam_results er
		 JOIN users u ON u.id = er.user_id
		 ORDER BY er.total_correct DESC, er.time_taken_seconds ASC, er.completed_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.CompletedResult
	for rows.Next() {
		var c model.CompletedResult
		if err := rows.Scan(
			&c.UserID, &c.Name, &c.Email, &c.College,
			&c.TotalCorrect, &c.TotalQuestions, &c.Accuracy,
			&c.TimeTakenSeconds, &c.CompletedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}
