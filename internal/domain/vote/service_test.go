package vote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pollbooth/internal/domain/poll"
	"pollbooth/internal/domain/user"
)

type stubPollRepo struct {
	mu    sync.Mutex
	polls map[int64]*poll.Poll
}

func newStubPollRepo(polls ...*poll.Poll) *stubPollRepo {
	r := &stubPollRepo{polls: make(map[int64]*poll.Poll)}
	for _, p := range polls {
		r.polls[p.ID] = p
	}
	return r
}

func (r *stubPollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, poll.ErrPollNotFound
	}
	c := *p
	return &c, nil
}

func (r *stubPollRepo) Create(ctx context.Context, p *poll.Poll) error  { return nil }
func (r *stubPollRepo) Update(ctx context.Context, p *poll.Poll) error { return nil }
func (r *stubPollRepo) Delete(ctx context.Context, id int64) error     { return nil }
func (r *stubPollRepo) ListAvailable(ctx context.Context, userID int64) ([]poll.Poll, error) {
	return nil, nil
}
func (r *stubPollRepo) ListByCreator(ctx context.Context, creatorID int64) ([]poll.Poll, error) {
	return nil, nil
}
func (r *stubPollRepo) ListExpiredVotedBy(ctx context.Context, userID int64) ([]poll.Poll, error) {
	return nil, nil
}

// memoryVoteRepo mimics the store-level unique constraint: the
// duplicate check and the insert happen under one lock.
type memoryVoteRepo struct {
	mu         sync.Mutex
	byPollUser map[int64]map[int64]int
	countCalls int
}

func newMemoryVoteRepo() *memoryVoteRepo {
	return &memoryVoteRepo{byPollUser: make(map[int64]map[int64]int)}
}

func (r *memoryVoteRepo) Create(ctx context.Context, v *Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byPollUser[v.PollID] == nil {
		r.byPollUser[v.PollID] = make(map[int64]int)
	}
	if _, ok := r.byPollUser[v.PollID][v.UserID]; ok {
		return ErrAlreadyVoted
	}
	r.byPollUser[v.PollID][v.UserID] = v.OptionIndex
	v.CreatedAt = time.Now()
	return nil
}

func (r *memoryVoteRepo) CountByPoll(ctx context.Context, pollID int64) (map[int]int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	res := make(map[int]int64)
	var total int64
	for _, idx := range r.byPollUser[pollID] {
		res[idx]++
		total++
	}
	return res, total, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[int64]*PollResults
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[int64]*PollResults)}
}

func (c *memoryCache) GetResults(ctx context.Context, pollID int64) (*PollResults, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[pollID], nil
}

func (c *memoryCache) SetResults(ctx context.Context, pollID int64, res *PollResults) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[pollID] = res
	return nil
}

func openPoll(id int64) *poll.Poll {
	return &poll.Poll{
		ID:    id,
		Title: "Lunch",
		Options: []poll.Option{
			{Index: 0, Text: "Pizza"},
			{Index: 1, Text: "Sushi"},
		},
		Visibility: poll.VisibilityPublic,
		ExpiresAt:  time.Now().Add(time.Hour),
		CreatorID:  1,
	}
}

func TestVoteRules(t *testing.T) {
	polls := newStubPollRepo(openPoll(1))
	votes := newMemoryVoteRepo()
	svc := NewService(polls, votes, nil)
	ctx := context.Background()

	if err := svc.Vote(ctx, 42, user.RoleUser, 99, 0); !errors.Is(err, poll.ErrPollNotFound) {
		t.Fatalf("expected poll not found, got %v", err)
	}
	if err := svc.Vote(ctx, 42, "guest", 1, 0); !errors.Is(err, ErrNotAllowedRole) {
		t.Fatalf("expected role rejection, got %v", err)
	}
	if err := svc.Vote(ctx, 42, user.RoleUser, 1, 2); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected invalid option, got %v", err)
	}
	if err := svc.Vote(ctx, 42, user.RoleUser, 1, -1); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected invalid option for negative index, got %v", err)
	}

	if err := svc.Vote(ctx, 42, user.RoleUser, 1, 0); err != nil {
		t.Fatalf("first vote should succeed: %v", err)
	}
	if err := svc.Vote(ctx, 42, user.RoleUser, 1, 1); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	if err := svc.Vote(ctx, 7, user.RoleAdmin, 1, 1); err != nil {
		t.Fatalf("admins may vote too: %v", err)
	}
}

func TestVoteOnExpiredPoll(t *testing.T) {
	p := openPoll(1)
	p.ExpiresAt = time.Now().Add(-time.Minute)
	svc := NewService(newStubPollRepo(p), newMemoryVoteRepo(), nil)

	err := svc.Vote(context.Background(), 42, user.RoleUser, 1, 0)
	if !errors.Is(err, poll.ErrPollExpired) {
		t.Fatalf("expected expired error regardless of option validity, got %v", err)
	}
}

// The no-duplicate invariant must hold under concurrent attempts: the
// repo insert is atomic, so exactly one goroutine wins.
func TestConcurrentVotesSingleEntry(t *testing.T) {
	votes := newMemoryVoteRepo()
	svc := NewService(newStubPollRepo(openPoll(1)), votes, nil)
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(opt int) {
			defer wg.Done()
			errs <- svc.Vote(ctx, 42, user.RoleUser, 1, opt%2)
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyVoted):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != attempts-1 {
		t.Fatalf("expected exactly one success, got %d successes / %d duplicates", ok, dup)
	}

	_, total, _ := votes.CountByPoll(ctx, 1)
	if total != 1 {
		t.Fatalf("ledger must hold one entry, has %d", total)
	}
}

func TestStatusAlwaysAvailable(t *testing.T) {
	p := openPoll(1)
	votes := newMemoryVoteRepo()
	svc := NewService(newStubPollRepo(p), votes, nil)
	ctx := context.Background()

	if err := svc.Vote(ctx, 42, user.RoleUser, 1, 0); err != nil {
		t.Fatalf("vote: %v", err)
	}

	st, err := svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.IsExpired {
		t.Fatalf("poll should still be open")
	}
	if len(st.VoteCounts) != 2 || st.VoteCounts[0].Votes != 1 || st.VoteCounts[1].Votes != 0 {
		t.Fatalf("unexpected counts: %+v", st.VoteCounts)
	}

	p.ExpiresAt = time.Now().Add(-time.Minute)
	st2, err := svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status after expiry: %v", err)
	}
	if !st2.IsExpired {
		t.Fatalf("status should report the poll as expired")
	}
}

func TestResultsGatedByExpiry(t *testing.T) {
	p := openPoll(1)
	votes := newMemoryVoteRepo()
	cache := newMemoryCache()
	svc := NewService(newStubPollRepo(p), votes, cache)
	ctx := context.Background()

	if err := svc.Vote(ctx, 42, user.RoleUser, 1, 0); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := svc.Vote(ctx, 43, user.RoleUser, 1, 0); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := svc.Vote(ctx, 44, user.RoleAdmin, 1, 1); err != nil {
		t.Fatalf("vote: %v", err)
	}

	if _, err := svc.Results(ctx, 1); !errors.Is(err, ErrResultsNotReady) {
		t.Fatalf("results before expiry must fail, got %v", err)
	}

	p.ExpiresAt = time.Now().Add(-time.Minute)

	res, err := svc.Results(ctx, 1)
	if err != nil {
		t.Fatalf("results after expiry: %v", err)
	}
	var sum int64
	for _, oc := range res.Results {
		sum += oc.Votes
	}
	if sum != 3 {
		t.Fatalf("counts must sum to the ledger length, got %d", sum)
	}
	if res.Results[0].Votes != 2 || res.Results[1].Votes != 1 {
		t.Fatalf("unexpected tally: %+v", res.Results)
	}

	// A second read is served from the cache.
	if _, err := svc.Results(ctx, 1); err != nil {
		t.Fatalf("cached results: %v", err)
	}
	if votes.countCalls != 1 {
		t.Fatalf("expected a single tally before the cache takes over, got %d count calls", votes.countCalls)
	}
}
