package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, auctionerrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid request details"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrAuctionNotLive):
		return http.StatusConflict, "auction is not live"
	case errors.Is(err, auctionerrors.ErrTimeout):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, auctionerrors.ErrPersistence):
		return http.StatusServiceUnavailable, "storage temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// NewUserResponse converts a user model to its response shape.
func NewUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:       u.UserID,
		Username: u.Username,
		Role:     u.Role,
		Email:    u.Email,
		Phone:    u.Phone,
	}
}

// NewBidResponse converts a bid model to its response shape.
func NewBidResponse(b model.Bid, username string) BidResponse {
	return BidResponse{
		ID:        b.BidID,
		AuctionID: b.AuctionID,
		Amount:    b.Amount,
		Timestamp: b.CreatedAt.UTC().Format(time.RFC3339),
		Username:  username,
	}
}

// NewDocumentResponse converts a document model to its response shape.
func NewDocumentResponse(d model.Document) DocumentResponse {
	return DocumentResponse{
		ID:       d.DocumentID,
		Filename: d.Filename,
		URL:      "/api/documents/" + d.Filename,
	}
}

// NewAuctionResponse assembles the stable auction shape from its parts.
func NewAuctionResponse(a model.Auction, highestBidderUsername string, docs []model.Document, participants int) AuctionResponse {
	resp := AuctionResponse{
		ID:                    a.AuctionID,
		Title:                 a.Title,
		Description:           a.Description,
		InitialPrice:          a.InitialPrice,
		CurrentBid:            a.Price(),
		StartTime:             a.StartTime.UTC().Format(time.RFC3339),
		EndTime:               a.EndTime.UTC().Format(time.RFC3339),
		Status:                string(a.Status),
		HighestBidderID:       a.HighestBidderID,
		HighestBidderUsername: highestBidderUsername,
		BankUploaderID:        a.BankUploaderID,
		Documents:             make([]DocumentResponse, 0, len(docs)),
		ParticipantsCount:     participants,
	}
	if a.ImageFilename != "" {
		resp.ImageURL = "/api/documents/" + a.ImageFilename
	}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, NewDocumentResponse(d))
	}
	return resp
}
