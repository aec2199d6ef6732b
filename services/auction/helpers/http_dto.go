package helpers

// Request/Response DTOs

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateIntentRequest struct {
	Amount       float64 `json:"amount" binding:"required,gt=0"`
	AuctionID    int64   `json:"auction_id" binding:"required"`
	AuctionTitle string  `json:"auction_title"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

type BidResponse struct {
	ID        int64   `json:"id"`
	AuctionID int64   `json:"auction_id"`
	Amount    float64 `json:"amount"`
	Timestamp string  `json:"timestamp"`
	Username  string  `json:"username"`
}

type DocumentResponse struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// AuctionResponse is the stable auction shape the boundary exposes.
// current_bid falls back to initial_price while no bid exists.
type AuctionResponse struct {
	ID                    int64              `json:"id"`
	Title                 string             `json:"title"`
	Description           string             `json:"description"`
	InitialPrice          float64            `json:"initial_price"`
	CurrentBid            float64            `json:"current_bid"`
	ImageURL              string             `json:"image_url,omitempty"`
	StartTime             string             `json:"start_time"`
	EndTime               string             `json:"end_time"`
	Status                string             `json:"status"`
	HighestBidderID       *int64             `json:"highest_bidder_id"`
	HighestBidderUsername string             `json:"highest_bidder_username,omitempty"`
	BankUploaderID        int64              `json:"bank_uploader_id"`
	Documents             []DocumentResponse `json:"documents"`
	ParticipantsCount     int                `json:"participants_count"`
}
