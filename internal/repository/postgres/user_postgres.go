package postgres

import (
	"context"

	"docvault/internal/repository"
)

type UserPostgres struct {
	db DBTX
}

func NewUserPostgres(db DBTX) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

func (r *UserPostgres) Ensure(ctx context.Context, id string) error {
	const q = `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
