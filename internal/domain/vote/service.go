package vote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pollbooth/internal/domain/poll"
	"pollbooth/internal/domain/user"
)

var (
	ErrAlreadyVoted    = errors.New("user already voted in this poll")
	ErrInvalidOption   = errors.New("invalid option selected")
	ErrNotAllowedRole  = errors.New("role is not allowed to vote")
	ErrResultsNotReady = errors.New("results not available until poll expires")
)

type Service struct {
	polls poll.Repository
	votes Repository
	cache Cache
	now   func() time.Time
}

// NewService builds the voting/results service. cache may be nil, in
// which case every results read tallies the ledger.
func NewService(polls poll.Repository, votes Repository, cache Cache) *Service {
	return &Service{polls: polls, votes: votes, cache: cache, now: time.Now}
}

// Vote records one ledger entry for the user. The duplicate check is
// not read-then-write: the repository insert itself fails on a
// duplicate, so concurrent attempts cannot both succeed.
func (s *Service) Vote(ctx context.Context, userID int64, role string, pollID int64, optionIndex int) error {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return err
	}

	if role != user.RoleUser && role != user.RoleAdmin {
		return ErrNotAllowedRole
	}
	if p.Expired(s.now()) {
		return poll.ErrPollExpired
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return ErrInvalidOption
	}

	return s.votes.Create(ctx, &Vote{
		PollID:      pollID,
		UserID:      userID,
		OptionIndex: optionIndex,
	})
}

// Status reports the live tally regardless of expiry.
func (s *Service) Status(ctx context.Context, pollID int64) (*PollStatus, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	counts, err := s.tally(ctx, p)
	if err != nil {
		return nil, err
	}

	return &PollStatus{
		Title:      p.Title,
		ExpiresAt:  p.ExpiresAt,
		IsExpired:  p.Expired(s.now()),
		VoteCounts: counts,
	}, nil
}

// Results returns the per-option tally of a closed poll. Before expiry
// it fails with ErrResultsNotReady. Closed tallies are immutable, so
// they are served from the cache when one is configured.
func (s *Service) Results(ctx context.Context, pollID int64) (*PollResults, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !p.Expired(s.now()) {
		return nil, ErrResultsNotReady
	}

	if s.cache != nil {
		cached, err := s.cache.GetResults(ctx, pollID)
		if err != nil {
			slog.Warn("results cache read failed", "poll_id", pollID, "err", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	counts, err := s.tally(ctx, p)
	if err != nil {
		return nil, err
	}

	res := &PollResults{
		PollID:  p.ID,
		Title:   p.Title,
		Results: counts,
	}

	if s.cache != nil {
		if err := s.cache.SetResults(ctx, pollID, res); err != nil {
			slog.Warn("results cache write failed", "poll_id", pollID, "err", err)
		}
	}

	return res, nil
}

func (s *Service) tally(ctx context.Context, p *poll.Poll) ([]OptionCount, error) {
	byIndex, _, err := s.votes.CountByPoll(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	counts := make([]OptionCount, 0, len(p.Options))
	for _, opt := range p.Options {
		counts = append(counts, OptionCount{Option: opt, Votes: byIndex[opt.Index]})
	}
	return counts, nil
}
