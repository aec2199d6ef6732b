package repository

import (
	"context"
	"time"

	model "auction-engine/internal/models"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionFilter selects auctions in FindAuctions. Zero fields are ignored.
type AuctionFilter struct {
	Statuses      []model.AuctionStatus
	StartedBefore time.Time // start_time <= StartedBefore
	EndedBefore   time.Time // end_time <= EndedBefore
}

// AuctionDB defines the persistence gateway for the auction system.
// SaveAuctionAndBid and SaveAuctionBatch are the atomic write paths the
// core relies on; everything else is plain keyed access.
type AuctionDB interface {
	LoadAuction(ctx context.Context, auctionID int64) (model.Auction, error)
	FindAuctions(ctx context.Context, filter AuctionFilter) ([]model.Auction, error)
	CreateAuction(ctx context.Context, auction *model.Auction) error
	// SaveAuctionAndBid writes the updated auction row and the new bid row
	// as one atomic unit. On error neither write is visible.
	SaveAuctionAndBid(ctx context.Context, auction model.Auction, bid *model.Bid) error
	// SaveAuctionBatch persists the status of every given auction in one
	// atomic batch. Used by the lifecycle scheduler.
	SaveAuctionBatch(ctx context.Context, auctions []model.Auction) error

	GetBidsByAuction(ctx context.Context, auctionID int64) ([]model.Bid, error)

	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, userID int64) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)

	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocumentsByAuction(ctx context.Context, auctionID int64) ([]model.Document, error)
}
