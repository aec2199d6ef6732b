package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrPersistence     = errors.New("persistence failure")
)

// business logic errors
var (
	ErrInvalidInput   = errors.New("invalid bid input")
	ErrAuctionNotLive = errors.New("auction is not live")
	ErrBidTooLow      = errors.New("bid amount too low")
	ErrTimeout        = errors.New("operation timed out")
)
