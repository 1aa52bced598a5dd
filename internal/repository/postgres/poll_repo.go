package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pollbooth/internal/domain/poll"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
        INSERT INTO polls (title, visibility, expires_at, creator_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `, p.Title, p.Visibility, p.ExpiresAt, p.CreatorID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}

	if err := insertOptions(ctx, tx, p.ID, p.Options); err != nil {
		return err
	}
	if err := insertAllowedUsers(ctx, tx, p.ID, p.AllowedUsers); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, error) {
	p := &poll.Poll{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, title, visibility, expires_at, creator_id, created_at, updated_at
        FROM polls WHERE id = $1
    `, id).Scan(&p.ID, &p.Title, &p.Visibility, &p.ExpiresAt, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, poll.ErrPollNotFound
		}
		return nil, err
	}

	if err := r.loadDetails(ctx, []*poll.Poll{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// Update rewrites the poll row together with its option list and
// allowed-users list. Ledger entries whose option index no longer
// exists after an option edit are pruned in the same transaction, so
// the ledger never references an out-of-range index.
func (r *PollRepo) Update(ctx context.Context, p *poll.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE polls
        SET title = $1, visibility = $2, expires_at = $3, updated_at = now()
        WHERE id = $4
    `, p.Title, p.Visibility, p.ExpiresAt, p.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return poll.ErrPollNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM poll_options WHERE poll_id = $1`, p.ID); err != nil {
		return err
	}
	if err := insertOptions(ctx, tx, p.ID, p.Options); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM poll_allowed_users WHERE poll_id = $1`, p.ID); err != nil {
		return err
	}
	if err := insertAllowedUsers(ctx, tx, p.ID, p.AllowedUsers); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
        DELETE FROM votes WHERE poll_id = $1 AND option_index >= $2
    `, p.ID, len(p.Options)); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PollRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return poll.ErrPollNotFound
	}
	return nil
}

func (r *PollRepo) ListAvailable(ctx context.Context, userID int64) ([]poll.Poll, error) {
	return r.list(ctx, `
        SELECT id, title, visibility, expires_at, creator_id, created_at, updated_at
        FROM polls p
        WHERE p.visibility = 'public'
           OR (p.visibility = 'private' AND EXISTS (
                SELECT 1 FROM poll_allowed_users au
                WHERE au.poll_id = p.id AND au.user_id = $1))
        ORDER BY created_at DESC
    `, userID)
}

func (r *PollRepo) ListByCreator(ctx context.Context, creatorID int64) ([]poll.Poll, error) {
	return r.list(ctx, `
        SELECT id, title, visibility, expires_at, creator_id, created_at, updated_at
        FROM polls
        WHERE creator_id = $1
        ORDER BY created_at DESC
    `, creatorID)
}

func (r *PollRepo) ListExpiredVotedBy(ctx context.Context, userID int64) ([]poll.Poll, error) {
	return r.list(ctx, `
        SELECT id, title, visibility, expires_at, creator_id, created_at, updated_at
        FROM polls p
        WHERE p.expires_at <= now()
          AND EXISTS (SELECT 1 FROM votes v WHERE v.poll_id = p.id AND v.user_id = $1)
        ORDER BY expires_at DESC
    `, userID)
}

func (r *PollRepo) list(ctx context.Context, query string, args ...any) ([]poll.Poll, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []poll.Poll
	for rows.Next() {
		var p poll.Poll
		if err := rows.Scan(&p.ID, &p.Title, &p.Visibility, &p.ExpiresAt,
			&p.CreatorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*poll.Poll, len(res))
	for i := range res {
		refs[i] = &res[i]
	}
	if err := r.loadDetails(ctx, refs); err != nil {
		return nil, err
	}
	return res, nil
}

// loadDetails fills options and allowed users for the given polls.
func (r *PollRepo) loadDetails(ctx context.Context, polls []*poll.Poll) error {
	if len(polls) == 0 {
		return nil
	}

	byID := make(map[int64]*poll.Poll, len(polls))
	ids := make([]int64, 0, len(polls))
	for _, p := range polls {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT poll_id, idx, text
        FROM poll_options
        WHERE poll_id = ANY($1)
        ORDER BY poll_id, idx
    `, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var pollID int64
		var opt poll.Option
		if err := rows.Scan(&pollID, &opt.Index, &opt.Text); err != nil {
			return err
		}
		if p := byID[pollID]; p != nil {
			p.Options = append(p.Options, opt)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	auRows, err := r.db.QueryContext(ctx, `
        SELECT poll_id, user_id
        FROM poll_allowed_users
        WHERE poll_id = ANY($1)
        ORDER BY poll_id, user_id
    `, ids)
	if err != nil {
		return err
	}
	defer auRows.Close()

	for auRows.Next() {
		var pollID, userID int64
		if err := auRows.Scan(&pollID, &userID); err != nil {
			return err
		}
		if p := byID[pollID]; p != nil {
			p.AllowedUsers = append(p.AllowedUsers, userID)
		}
	}
	return auRows.Err()
}

func insertOptions(ctx context.Context, tx *sql.Tx, pollID int64, opts []poll.Option) error {
	for _, opt := range opts {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO poll_options (poll_id, idx, text)
            VALUES ($1, $2, $3)
        `, pollID, opt.Index, opt.Text); err != nil {
			return err
		}
	}
	return nil
}

func insertAllowedUsers(ctx context.Context, tx *sql.Tx, pollID int64, userIDs []int64) error {
	for _, id := range userIDs {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO poll_allowed_users (poll_id, user_id)
            VALUES ($1, $2)
            ON CONFLICT DO NOTHING
        `, pollID, id); err != nil {
			return err
		}
	}
	return nil
}
