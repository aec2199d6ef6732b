package scheduler

import (
	"context"
	"time"

	"auction-engine/internal/fanout"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/internal/store"
	"auction-engine/utils"
)

// LifecycleScheduler sweeps auction statuses on a fixed interval:
// upcoming -> live once the start time passes, anything -> closed once the
// end time passes. The whole tick persists as one batch before any event
// is emitted.
type LifecycleScheduler struct {
	store    *store.StateStore
	repo     repository.AuctionDB
	events   *fanout.Fanout
	interval time.Duration
}

// NewLifecycleScheduler creates a new LifecycleScheduler instance.
func NewLifecycleScheduler(st *store.StateStore, repo repository.AuctionDB, events *fanout.Fanout, interval time.Duration) *LifecycleScheduler {
	return &LifecycleScheduler{
		store:    st,
		repo:     repo,
		events:   events,
		interval: interval,
	}
}

// Run executes ticks until ctx is cancelled. Ticks run on one goroutine so
// they can never overlap; if a tick outlasts the interval the ticker drops
// fires instead of queueing them.
func (s *LifecycleScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(ctx, now.UTC())
		}
	}
}

// Tick performs one sweep using a single reference timestamp. A failed
// batch persist leaves every state untouched; the next tick retries the
// same still-pending transitions.
func (s *LifecycleScheduler) Tick(ctx context.Context, now time.Time) {
	toLive, toClosed := s.store.DueTransitions(now)
	if len(toLive) == 0 && len(toClosed) == 0 {
		return
	}

	batch := make([]model.Auction, 0, len(toLive)+len(toClosed))
	for _, a := range toLive {
		a.Status = model.StatusLive
		batch = append(batch, a)
	}
	for _, a := range toClosed {
		a.Status = model.StatusClosed
		batch = append(batch, a)
	}

	if err := s.repo.SaveAuctionBatch(ctx, batch); err != nil {
		utils.Error("scheduler: tick persistence failed, will retry next tick", map[string]any{
			"transitions": len(batch),
			"error":       err.Error(),
		})
		return
	}

	for _, a := range toLive {
		if _, changed := s.store.ApplyStatusTransition(a.AuctionID, model.StatusLive); !changed {
			continue
		}
		utils.Info("scheduler: auction is now live", map[string]any{"auction_id": a.AuctionID, "title": a.Title})
		s.events.Publish(fanout.Event{
			Kind:      fanout.KindAuctionLive,
			AuctionID: a.AuctionID,
			Data:      fanout.StatusChange{AuctionID: a.AuctionID, Status: string(model.StatusLive)},
		})
	}
	for _, a := range toClosed {
		if _, changed := s.store.ApplyStatusTransition(a.AuctionID, model.StatusClosed); !changed {
			continue
		}
		utils.Info("scheduler: auction has closed", map[string]any{"auction_id": a.AuctionID, "title": a.Title})
		s.events.Publish(fanout.Event{
			Kind:      fanout.KindAuctionClosed,
			AuctionID: a.AuctionID,
			Data:      fanout.StatusChange{AuctionID: a.AuctionID, Status: string(model.StatusClosed)},
		})
	}
}
