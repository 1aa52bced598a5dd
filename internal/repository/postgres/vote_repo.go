package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"pollbooth/internal/domain/vote"
)

type VoteRepo struct {
	db *sql.DB
}

func NewVoteRepo(db *sql.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

// Create inserts a ledger entry. The UNIQUE (poll_id, user_id)
// constraint makes the duplicate check and the append one atomic
// operation: a concurrent duplicate fails with ErrAlreadyVoted.
func (r *VoteRepo) Create(ctx context.Context, v *vote.Vote) error {
	query := `
        INSERT INTO votes (poll_id, user_id, option_index)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := r.db.QueryRowContext(ctx, query, v.PollID, v.UserID, v.OptionIndex).
		Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return vote.ErrAlreadyVoted
		}
		return err
	}
	return nil
}

func (r *VoteRepo) CountByPoll(ctx context.Context, pollID int64) (map[int]int64, int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT option_index, COUNT(*)
        FROM votes
        WHERE poll_id = $1
        GROUP BY option_index
    `, pollID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	res := make(map[int]int64)
	var total int64
	for rows.Next() {
		var idx int
		var c int64
		if err := rows.Scan(&idx, &c); err != nil {
			return nil, 0, err
		}
		res[idx] = c
		total += c
	}

	return res, total, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
