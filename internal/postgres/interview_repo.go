package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/interview-room/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InterviewRepository only reads: interviews are owned by the REST layer.
type InterviewRepository struct {
	db *pgxpool.Pool
}

func NewInterviewRepository(db *pgxpool.Pool) *InterviewRepository {
	return &InterviewRepository{db: db}
}

func (r *InterviewRepository) Get(ctx context.Context, id domain.InterviewID) (domain.Interview, error) {
	var iv domain.Interview
	query := `SELECT id, title, status FROM interviews WHERE id=$1`
	err := r.db.QueryRow(ctx, query, int64(id)).Scan(&iv.ID, &iv.Title, &iv.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, domain.ErrInterviewNotFound
		}
		return domain.Interview{}, err
	}
	return iv, nil
}

func (r *InterviewRepository) Ping(ctx context.Context) error {
	return Ping(ctx, r.db)
}
