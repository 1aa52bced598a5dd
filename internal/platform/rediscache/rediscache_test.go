package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"pollbooth/internal/domain/poll"
	"pollbooth/internal/domain/vote"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithRedis(rdb, ttl), mr
}

func TestResultsRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	missing, err := cache.GetResults(ctx, 1)
	if err != nil {
		t.Fatalf("get on empty cache: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected a miss, got %+v", missing)
	}

	res := &vote.PollResults{
		PollID: 1,
		Title:  "Lunch",
		Results: []vote.OptionCount{
			{Option: poll.Option{Index: 0, Text: "Pizza"}, Votes: 2},
			{Option: poll.Option{Index: 1, Text: "Sushi"}, Votes: 1},
		},
	}
	if err := cache.SetResults(ctx, 1, res); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := cache.GetResults(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.PollID != 1 || got.Title != "Lunch" {
		t.Fatalf("unexpected cached value: %+v", got)
	}
	if len(got.Results) != 2 || got.Results[0].Votes != 2 || got.Results[1].Option.Text != "Sushi" {
		t.Fatalf("results did not survive the round trip: %+v", got.Results)
	}
}

func TestEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	if err := cache.SetResults(ctx, 7, &vote.PollResults{PollID: 7}); err != nil {
		t.Fatalf("set: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	got, err := cache.GetResults(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected entry to expire, got %+v", got)
	}
}
