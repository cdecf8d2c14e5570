package repository

import (
	"context"

	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository writes the user rows read by the exam views. Only the
// bootstrap tool creates users here; registration lives elsewhere.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a user and fills its id and creation time.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, college, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		u.Name, u.Email, u.College, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	return translate(err)
}

// GetByID retrieves a user by id, or ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, college, role, password_hash, created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.College, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}
