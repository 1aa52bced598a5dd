package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrPollNotFound = errors.New("poll not found")
	ErrNotCreator   = errors.New("only the poll creator may do this")
	ErrPollExpired  = errors.New("poll has expired")
	ErrInvalidPoll  = errors.New("invalid poll data")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type CreateInput struct {
	Title            string
	Options          []string
	Visibility       string
	AllowedUsers     []int64
	ExpiresInMinutes int
}

func (s *Service) Create(ctx context.Context, creatorID int64, in CreateInput) (*Poll, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidPoll)
	}
	if len(in.Options) < 2 {
		return nil, fmt.Errorf("%w: at least 2 options are required", ErrInvalidPoll)
	}
	if in.ExpiresInMinutes < 1 || in.ExpiresInMinutes > MaxDurationMinutes {
		return nil, fmt.Errorf("%w: duration must be 1-%d minutes", ErrInvalidPoll, MaxDurationMinutes)
	}
	visibility := in.Visibility
	switch visibility {
	case "":
		visibility = VisibilityPublic
	case VisibilityPublic, VisibilityPrivate:
	default:
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidPoll, in.Visibility)
	}

	p := &Poll{
		Title:        in.Title,
		Options:      indexOptions(in.Options),
		Visibility:   visibility,
		AllowedUsers: in.AllowedUsers,
		ExpiresAt:    s.now().Add(time.Duration(in.ExpiresInMinutes) * time.Minute),
		CreatorID:    creatorID,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateInput is a patch: nil fields are left untouched.
type UpdateInput struct {
	Title            *string
	Options          []string
	Visibility       *string
	AllowedUsers     []int64
	ExpiresInMinutes *int
}

// Update applies a patch to an open poll. Only the creator may edit,
// and only before expiry. A new duration is recomputed from the edit
// time, not from the original creation time; a duration outside the
// allowed range is ignored, matching the PUT contract.
func (s *Service) Update(ctx context.Context, requesterID, pollID int64, in UpdateInput) (*Poll, error) {
	p, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if p.CreatorID != requesterID {
		return nil, ErrNotCreator
	}
	if p.Expired(s.now()) {
		return nil, ErrPollExpired
	}

	if in.Title != nil && *in.Title != "" {
		p.Title = *in.Title
	}

	if in.Options != nil {
		if len(in.Options) < 2 {
			return nil, fmt.Errorf("%w: at least 2 options are required", ErrInvalidPoll)
		}
		p.Options = indexOptions(in.Options)
	}

	if in.Visibility != nil && *in.Visibility != "" {
		switch *in.Visibility {
		case VisibilityPublic, VisibilityPrivate:
			p.Visibility = *in.Visibility
		default:
			return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidPoll, *in.Visibility)
		}
		// The allowed-users list only takes effect together with a
		// switch to private.
		if p.Visibility == VisibilityPrivate && in.AllowedUsers != nil {
			p.AllowedUsers = in.AllowedUsers
		}
	}

	if in.ExpiresInMinutes != nil {
		if d := *in.ExpiresInMinutes; d >= 1 && d <= MaxDurationMinutes {
			p.ExpiresAt = s.now().Add(time.Duration(d) * time.Minute)
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a poll and its ledger. Deletion is allowed in any
// state, including after expiry, but only by the creator.
func (s *Service) Delete(ctx context.Context, requesterID, pollID int64) error {
	p, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if p.CreatorID != requesterID {
		return ErrNotCreator
	}
	return s.repo.Delete(ctx, pollID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Poll, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAvailable returns public polls plus private polls that list the
// user. Closed polls stay listed until deleted.
func (s *Service) ListAvailable(ctx context.Context, userID int64) ([]Poll, error) {
	return s.repo.ListAvailable(ctx, userID)
}

func (s *Service) ListOwned(ctx context.Context, creatorID int64) ([]Poll, error) {
	return s.repo.ListByCreator(ctx, creatorID)
}

// ListExpiredVotedBy returns closed polls in which the user has a
// recorded vote.
func (s *Service) ListExpiredVotedBy(ctx context.Context, userID int64) ([]Poll, error) {
	return s.repo.ListExpiredVotedBy(ctx, userID)
}

func indexOptions(texts []string) []Option {
	opts := make([]Option, 0, len(texts))
	for i, text := range texts {
		opts = append(opts, Option{Index: i, Text: text})
	}
	return opts
}
