package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
)

// StateStore is the single source of truth for bid admission decisions.
// It holds the live state of every auction plus a per-auction admission
// semaphore so unrelated auctions stay independently concurrent.
type StateStore struct {
	mu       sync.RWMutex
	auctions map[int64]*entry
}

type entry struct {
	sem chan struct{} // admission rights, capacity 1

	mu sync.Mutex // guards a
	a  model.Auction
}

// BidDecision is the result of an accepted bid: the new auction state, the
// prior snapshot for rollback, and the bidder who just lost the lead.
type BidDecision struct {
	Auction          model.Auction
	Previous         model.Auction
	PreviousBidderID *int64
}

// NewStateStore creates an empty state store.
func NewStateStore() *StateStore {
	return &StateStore{auctions: make(map[int64]*entry)}
}

// Register seeds an auction into the store. Called at startup load and on
// asset creation; replaces any existing state for the same id.
func (s *StateStore) Register(a model.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.auctions[a.AuctionID]; ok {
		e.mu.Lock()
		e.a = a
		e.mu.Unlock()
		return
	}
	s.auctions[a.AuctionID] = &entry{sem: make(chan struct{}, 1), a: a}
}

func (s *StateStore) lookup(auctionID int64) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("store: auction %d: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return e, nil
}

// GetAuction returns a snapshot of the auction's current state.
func (s *StateStore) GetAuction(auctionID int64) (model.Auction, error) {
	e, err := s.lookup(auctionID)
	if err != nil {
		return model.Auction{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.a, nil
}

// ListAuctions returns snapshots of every auction, ordered by start time.
func (s *StateStore) ListAuctions() []model.Auction {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.auctions))
	for _, e := range s.auctions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]model.Auction, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.a)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// Acquire takes exclusive admission rights for one auction: only one bid is
// evaluated against that auction's state at a time. The returned release
// func must be called exactly once. Waiting is bounded by ctx; expiry
// surfaces as ErrTimeout.
func (s *StateStore) Acquire(ctx context.Context, auctionID int64) (release func(), err error) {
	e, err := s.lookup(auctionID)
	if err != nil {
		return nil, err
	}

	select {
	case e.sem <- struct{}{}:
		return func() { <-e.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("store: acquire admission rights for auction %d: %w", auctionID, auctionerrors.ErrTimeout)
	}
}

// ApplyBidIfValid is the only path by which current_bid and highest_bidder
// change. The check and the update run atomically against any concurrent
// mutation of the same auction. The caller must hold admission rights so
// the decision stays valid until it commits or rolls back.
func (s *StateStore) ApplyBidIfValid(auctionID int64, amount float64, bidderID int64) (BidDecision, error) {
	e, err := s.lookup(auctionID)
	if err != nil {
		return BidDecision{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.a.Status != model.StatusLive {
		return BidDecision{}, fmt.Errorf("store: auction %d has status %q: %w", auctionID, e.a.Status, auctionerrors.ErrAuctionNotLive)
	}
	if !e.a.MinimumExceeded(amount) {
		return BidDecision{}, fmt.Errorf("store: auction %d current price is %.2f: %w", auctionID, e.a.Price(), auctionerrors.ErrBidTooLow)
	}

	prev := e.a
	e.a.CurrentBid = &amount
	e.a.HighestBidderID = &bidderID

	return BidDecision{
		Auction:          e.a,
		Previous:         prev,
		PreviousBidderID: prev.HighestBidderID,
	}, nil
}

// Restore puts an auction back to a prior snapshot. Only used to roll back
// an accepted bid whose persistence failed; the caller still holds the
// admission rights it acquired for that bid.
func (s *StateStore) Restore(auctionID int64, snapshot model.Auction) {
	e, err := s.lookup(auctionID)
	if err != nil {
		return
	}

	e.mu.Lock()
	e.a = snapshot
	e.mu.Unlock()
}

// ApplyStatusTransition moves an auction forward through its lifecycle.
// Backward or repeated transitions are silent no-ops: the unchanged state
// is returned with changed=false.
func (s *StateStore) ApplyStatusTransition(auctionID int64, target model.AuctionStatus) (model.Auction, bool) {
	e, err := s.lookup(auctionID)
	if err != nil {
		return model.Auction{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.a.Status.Allows(target) {
		return e.a, false
	}
	e.a.Status = target
	return e.a, true
}

// DueTransitions reports which auctions are due a status change at the
// reference time now, close precedence applied: an auction matching both
// the start and the end condition in the same sweep only closes.
func (s *StateStore) DueTransitions(now time.Time) (toLive, toClosed []model.Auction) {
	for _, a := range s.ListAuctions() {
		switch {
		case a.Status != model.StatusClosed && !a.EndTime.After(now):
			toClosed = append(toClosed, a)
		case a.Status == model.StatusUpcoming && !a.StartTime.After(now) && a.EndTime.After(now):
			toLive = append(toLive, a)
		}
	}
	return toLive, toClosed
}
