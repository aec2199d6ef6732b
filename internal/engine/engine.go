package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/fanout"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/internal/store"
	"auction-engine/utils"
)

// AdmissionEngine serializes and validates concurrent bid submissions per
// auction. It is the only component that creates bids.
type AdmissionEngine struct {
	store   *store.StateStore
	repo    repository.AuctionDB
	events  *fanout.Fanout
	timeout time.Duration
}

// NewAdmissionEngine creates a new AdmissionEngine instance. timeout bounds
// how long one submission may wait for admission rights plus persistence.
func NewAdmissionEngine(st *store.StateStore, repo repository.AuctionDB, events *fanout.Fanout, timeout time.Duration) *AdmissionEngine {
	return &AdmissionEngine{
		store:   st,
		repo:    repo,
		events:  events,
		timeout: timeout,
	}
}

// SubmitBid evaluates one bid against the auction's current state. Exactly
// one evaluation runs per auction at a time; the accepted bid and the
// auction update commit atomically before any event becomes observable.
func (e *AdmissionEngine) SubmitBid(ctx context.Context, auctionID, bidderID int64, amount float64) (model.Bid, error) {
	if err := validateInput(auctionID, bidderID, amount); err != nil {
		return model.Bid{}, err
	}

	bidder, err := e.repo.GetUser(ctx, bidderID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("engine: resolve bidder %d: %w", bidderID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	release, err := e.store.Acquire(ctx, auctionID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("engine: %w", err)
	}
	defer release()

	decision, err := e.store.ApplyBidIfValid(auctionID, amount, bidderID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("engine: %w", err)
	}

	bid := model.Bid{
		AuctionID: auctionID,
		UserID:    bidderID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	if err := e.repo.SaveAuctionAndBid(ctx, decision.Auction, &bid); err != nil {
		e.store.Restore(auctionID, decision.Previous)
		utils.Error("engine: bid persistence failed, state rolled back", map[string]any{
			"auction_id": auctionID,
			"user_id":    bidderID,
			"amount":     amount,
			"error":      err.Error(),
		})
		if ctx.Err() != nil {
			return model.Bid{}, fmt.Errorf("engine: persist bid for auction %d: %w", auctionID, auctionerrors.ErrTimeout)
		}
		return model.Bid{}, fmt.Errorf("engine: persist bid for auction %d: %w", auctionID, auctionerrors.ErrPersistence)
	}

	e.publishAccepted(decision, bid, bidder)

	return bid, nil
}

// validateInput checks the structural validity of a submission.
func validateInput(auctionID, bidderID int64, amount float64) error {
	if auctionID <= 0 || bidderID <= 0 {
		return fmt.Errorf("engine: %w - missing auction or bidder id", auctionerrors.ErrInvalidInput)
	}
	if amount <= 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return fmt.Errorf("engine: %w - bid amount must be a positive finite number", auctionerrors.ErrInvalidInput)
	}
	return nil
}

// publishAccepted emits the post-commit events for an accepted bid:
// bid_update always, outbid only when a different bidder held the lead.
func (e *AdmissionEngine) publishAccepted(decision store.BidDecision, bid model.Bid, bidder model.User) {
	e.events.Publish(fanout.Event{
		Kind:      fanout.KindBidUpdate,
		AuctionID: bid.AuctionID,
		Data: fanout.BidUpdate{
			AuctionID:             bid.AuctionID,
			NewBid:                bid.Amount,
			HighestBidderID:       bidder.UserID,
			HighestBidderUsername: bidder.Username,
			NewBidDetails: fanout.BidDetails{
				ID:        bid.BidID,
				Amount:    bid.Amount,
				Timestamp: bid.CreatedAt.Format(time.RFC3339),
				Username:  bidder.Username,
			},
		},
	})

	if prev := decision.PreviousBidderID; prev != nil && *prev != bid.UserID {
		e.events.Publish(fanout.Event{
			Kind:      fanout.KindOutbid,
			AuctionID: bid.AuctionID,
			Data: fanout.Outbid{
				AuctionTitle: decision.Auction.Title,
				OutbidUserID: *prev,
			},
		})
	}

	utils.Info("engine: bid accepted", map[string]any{
		"auction_id": bid.AuctionID,
		"bid_id":     bid.BidID,
		"user_id":    bid.UserID,
		"amount":     bid.Amount,
	})
}
