package poll

import (
	"context"
	"time"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// MaxDurationMinutes caps how far in the future a poll may expire,
// both at creation and on edit.
const MaxDurationMinutes = 120

type Poll struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Options      []Option  `json:"options"`
	Visibility   string    `json:"visibility"`
	AllowedUsers []int64   `json:"allowedUsers,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	CreatorID    int64     `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Option is an entry in a poll's ordered option list. Votes reference
// options by Index, never by text.
type Option struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Expired reports whether the poll is closed. There is no stored state
// transition; closed is always computed against the clock.
func (p *Poll) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// AllowsViewer reports whether the given user may see the poll.
func (p *Poll) AllowsViewer(userID int64) bool {
	if p.Visibility != VisibilityPrivate {
		return true
	}
	for _, id := range p.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

type Repository interface {
	Create(ctx context.Context, p *Poll) error
	GetByID(ctx context.Context, id int64) (*Poll, error)
	Update(ctx context.Context, p *Poll) error
	Delete(ctx context.Context, id int64) error
	ListAvailable(ctx context.Context, userID int64) ([]Poll, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]Poll, error)
	ListExpiredVotedBy(ctx context.Context, userID int64) ([]Poll, error)
}
