package vote

import (
	"context"
	"time"

	"pollbooth/internal/domain/poll"
)

// Vote is one ledger entry: a voter chose one option of one poll. The
// store guarantees at most one entry per (poll, user).
type Vote struct {
	ID          int64     `json:"id"`
	PollID      int64     `json:"pollId"`
	UserID      int64     `json:"userId"`
	OptionIndex int       `json:"optionIndex"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Repository interface {
	// Create appends a ledger entry. It must be atomic with the
	// duplicate check: a second entry for the same (poll, user) fails
	// with ErrAlreadyVoted even under concurrent attempts.
	Create(ctx context.Context, v *Vote) error
	CountByPoll(ctx context.Context, pollID int64) (map[int]int64, int64, error)
}

// OptionCount pairs an option with its tally.
type OptionCount struct {
	Option poll.Option `json:"option"`
	Votes  int64       `json:"votes"`
}

// PollStatus is always readable, open or closed.
type PollStatus struct {
	Title      string        `json:"title"`
	ExpiresAt  time.Time     `json:"expiresAt"`
	IsExpired  bool          `json:"isExpired"`
	VoteCounts []OptionCount `json:"voteCounts"`
}

// PollResults is the expiry-gated tally.
type PollResults struct {
	PollID  int64         `json:"pollId"`
	Title   string        `json:"title"`
	Results []OptionCount `json:"results"`
}

// Cache stores results of closed polls, which are immutable. A nil
// result with a nil error means a miss.
type Cache interface {
	GetResults(ctx context.Context, pollID int64) (*PollResults, error)
	SetResults(ctx context.Context, pollID int64, res *PollResults) error
}
