package models

import "time"

// AuctionStatus is the lifecycle state of an auction.
// Transitions are one-directional: upcoming -> live -> closed
// (or upcoming -> closed when an auction expires before ever going live).
type AuctionStatus string

const (
	StatusUpcoming AuctionStatus = "upcoming"
	StatusLive     AuctionStatus = "live"
	StatusClosed   AuctionStatus = "closed"
)

// rank orders statuses for the monotonic-transition check.
func (s AuctionStatus) rank() int {
	switch s {
	case StatusUpcoming:
		return 0
	case StatusLive:
		return 1
	case StatusClosed:
		return 2
	}
	return -1
}

// Allows reports whether a transition from s to target moves forward.
func (s AuctionStatus) Allows(target AuctionStatus) bool {
	return target.rank() > s.rank()
}

// User represents a participant in the auction
type User struct {
	UserID       int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
}

// Auction represents a single auctioned asset and its live bidding state.
// CurrentBid and HighestBidderID are nil until the first accepted bid.
type Auction struct {
	AuctionID       int64         `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	InitialPrice    float64       `json:"initial_price"`
	CurrentBid      *float64      `json:"current_bid,omitempty"`
	ImageFilename   string        `json:"image_filename,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Status          AuctionStatus `json:"status"`
	BankUploaderID  int64         `json:"bank_uploader_id"`
	HighestBidderID *int64        `json:"highest_bidder_id,omitempty"`
}

// MinimumExceeded reports whether amount beats the auction's current price
// floor: the current bid when one exists, the initial price otherwise.
// Equal amounts do not exceed.
func (a *Auction) MinimumExceeded(amount float64) bool {
	floor := a.InitialPrice
	if a.CurrentBid != nil && *a.CurrentBid > floor {
		floor = *a.CurrentBid
	}
	return amount > floor
}

// Price returns the effective current price of the auction.
func (a *Auction) Price() float64 {
	if a.CurrentBid != nil {
		return *a.CurrentBid
	}
	return a.InitialPrice
}

// Bid represents a user's accepted bid on an auction. Immutable once created.
type Bid struct {
	BidID     int64     `json:"id"`
	AuctionID int64     `json:"auction_id"`
	UserID    int64     `json:"user_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is a file attached to an auction (prospectus, legal papers).
type Document struct {
	DocumentID int64  `json:"id"`
	Filename   string `json:"filename"`
	AuctionID  int64  `json:"auction_id"`
}
