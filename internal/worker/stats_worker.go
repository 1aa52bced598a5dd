package worker

import (
	"context"
	"log"

	"pollbooth/internal/metrics"
)

// VoteEvent is emitted after a vote is committed; consumers must not
// be able to fail the vote itself.
type VoteEvent struct {
	PollID      int64
	OptionIndex int
	UserID      int64
}

// StatsWorker drains vote events and records them as metrics.
type StatsWorker struct {
	Ch <-chan VoteEvent
}

func NewStatsWorker(ch <-chan VoteEvent) *StatsWorker {
	return &StatsWorker{Ch: ch}
}

func (w *StatsWorker) Run(ctx context.Context) {
	log.Println("stats worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("stats worker stopped")
			return
		case ev := <-w.Ch:
			metrics.IncVote(ev.PollID)
			log.Printf("vote recorded: poll=%d option=%d\n", ev.PollID, ev.OptionIndex)
		}
	}
}
