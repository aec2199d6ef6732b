package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	model "auction-engine/internal/models"
	"auction-engine/internal/payments"
	"auction-engine/internal/repository"
	"auction-engine/internal/store"
	"auction-engine/services/auction/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

var allowedDocumentExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".pdf": true, ".doc": true, ".docx": true,
}

// AuctionHandler serves the REST surface around the auction core.
type AuctionHandler struct {
	store     *store.StateStore
	repo      repository.AuctionDB
	intents   payments.IntentCreator
	uploadDir string
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(st *store.StateStore, repo repository.AuctionDB, intents payments.IntentCreator, uploadDir string) *AuctionHandler {
	return &AuctionHandler{store: st, repo: repo, intents: intents, uploadDir: uploadDir}
}

// GetAuctionsHandler handles GET /api/auctions
func (h *AuctionHandler) GetAuctionsHandler(c *gin.Context) {
	auctions := h.store.ListAuctions()

	out := make([]helpers.AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, h.buildAuctionResponse(c.Request.Context(), a))
	}

	c.JSON(http.StatusOK, out)
}

// GetAuctionHandler handles GET /api/auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID, err := strconv.ParseInt(c.Param("auction_id"), 10, 64)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err, "invalid auction id")
		return
	}

	a, err := h.store.GetAuction(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		return
	}

	c.JSON(http.StatusOK, h.buildAuctionResponse(c.Request.Context(), a))
}

// CreateAssetHandler handles POST /api/assets (multipart form with image
// and optional documents). New auctions always start as upcoming.
func (h *AuctionHandler) CreateAssetHandler(c *gin.Context) {
	title := c.PostForm("title")
	description := c.PostForm("description")
	initialPrice, priceErr := strconv.ParseFloat(c.PostForm("initial_price"), 64)
	uploaderID, uploaderErr := strconv.ParseInt(c.PostForm("bank_uploader_id"), 10, 64)
	startTime, startErr := time.Parse(time.RFC3339, c.PostForm("start_time"))
	endTime, endErr := time.Parse(time.RFC3339, c.PostForm("end_time"))

	switch {
	case title == "" || priceErr != nil || uploaderErr != nil:
		utils.JSONError(c, http.StatusBadRequest, errors.New("missing required form data"), "missing required form data")
		return
	case startErr != nil || endErr != nil:
		utils.JSONError(c, http.StatusBadRequest, errors.New("invalid datetime format"), "start_time and end_time must be RFC3339 UTC")
		return
	case !startTime.Before(endTime):
		utils.JSONError(c, http.StatusBadRequest, errors.New("start time must be before end time"), "start time must be before end time")
		return
	case initialPrice < 0:
		utils.JSONError(c, http.StatusBadRequest, errors.New("initial price must not be negative"), "initial price must not be negative")
		return
	}

	image, err := c.FormFile("image")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err, "image file is required")
		return
	}

	imageFilename := uniqueFilename(image.Filename)
	if err := c.SaveUploadedFile(image, filepath.Join(h.uploadDir, imageFilename)); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, err, "failed to store image")
		return
	}

	auction := model.Auction{
		Title:          title,
		Description:    description,
		InitialPrice:   initialPrice,
		ImageFilename:  imageFilename,
		StartTime:      startTime.UTC(),
		EndTime:        endTime.UTC(),
		Status:         model.StatusUpcoming,
		BankUploaderID: uploaderID,
	}
	if err := h.repo.CreateAuction(c.Request.Context(), &auction); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		utils.Error("CreateAssetHandler: failed to create auction", map[string]any{"title": title, "error": err.Error()})
		return
	}
	h.store.Register(auction)

	form, _ := c.MultipartForm()
	if form != nil {
		for _, doc := range form.File["documents"] {
			ext := strings.ToLower(filepath.Ext(doc.Filename))
			if !allowedDocumentExts[ext] {
				continue
			}
			docFilename := uniqueFilename(doc.Filename)
			if err := c.SaveUploadedFile(doc, filepath.Join(h.uploadDir, docFilename)); err != nil {
				utils.Warn("CreateAssetHandler: failed to store document", map[string]any{"filename": doc.Filename, "error": err.Error()})
				continue
			}
			record := model.Document{Filename: docFilename, AuctionID: auction.AuctionID}
			if err := h.repo.CreateDocument(c.Request.Context(), &record); err != nil {
				utils.Warn("CreateAssetHandler: failed to record document", map[string]any{"filename": docFilename, "error": err.Error()})
			}
		}
	}

	c.JSON(http.StatusCreated, h.buildAuctionResponse(c.Request.Context(), auction))
	helpers.LogSuccess("CreateAssetHandler", "auction created", map[string]any{
		"auction_id": auction.AuctionID,
		"title":      auction.Title,
	})
}

// GetBidsHandler handles GET /api/bids/:auction_id, newest bid first
func (h *AuctionHandler) GetBidsHandler(c *gin.Context) {
	auctionID, err := strconv.ParseInt(c.Param("auction_id"), 10, 64)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err, "invalid auction id")
		return
	}

	bids, err := h.repo.GetBidsByAuction(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		utils.Warn("GetBidsHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	out := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, helpers.NewBidResponse(b, h.username(c.Request.Context(), b.UserID)))
	}
	c.JSON(http.StatusOK, out)
}

// CreatePaymentIntentHandler handles POST /api/payment/create-payment-intent
func (h *AuctionHandler) CreatePaymentIntentHandler(c *gin.Context) {
	var req helpers.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreatePaymentIntentHandler", err)
		return
	}

	intent, err := h.intents.CreateIntent(req.Amount, req.AuctionID, req.AuctionTitle)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, err, "failed to create payment intent")
		utils.Error("CreatePaymentIntentHandler: intent creation failed", map[string]any{
			"auction_id": req.AuctionID,
			"error":      err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, intent)
	helpers.LogSuccess("CreatePaymentIntentHandler", "payment intent created", map[string]any{
		"auction_id":   req.AuctionID,
		"final_amount": intent.FinalAmount,
	})
}

// UploadDocumentHandler handles POST /api/documents/upload
func (h *AuctionHandler) UploadDocumentHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err, "no file part in the request")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedDocumentExts[ext] {
		utils.JSONError(c, http.StatusBadRequest, errors.New("file type not allowed"), "file type not allowed")
		return
	}

	filename := uniqueFilename(file.Filename)
	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, filename)); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, err, "failed to store file")
		return
	}

	utils.JSONResponse(c, http.StatusCreated, gin.H{"filename": filename}, "file uploaded successfully")
}

// DownloadDocumentHandler handles GET /api/documents/:filename
func (h *AuctionHandler) DownloadDocumentHandler(c *gin.Context) {
	filename := filepath.Base(c.Param("filename")) // no path traversal
	c.FileAttachment(filepath.Join(h.uploadDir, filename), filename)
}

// buildAuctionResponse resolves the display fields around one auction
// snapshot: highest bidder username, documents, distinct participants.
func (h *AuctionHandler) buildAuctionResponse(ctx context.Context, a model.Auction) helpers.AuctionResponse {
	var bidderUsername string
	if a.HighestBidderID != nil {
		bidderUsername = h.username(ctx, *a.HighestBidderID)
	}

	docs, err := h.repo.GetDocumentsByAuction(ctx, a.AuctionID)
	if err != nil {
		utils.Warn("failed to load documents for auction", map[string]any{"auction_id": a.AuctionID, "error": err.Error()})
	}

	participants := 0
	if bids, err := h.repo.GetBidsByAuction(ctx, a.AuctionID); err == nil {
		seen := make(map[int64]struct{}, len(bids))
		for _, b := range bids {
			seen[b.UserID] = struct{}{}
		}
		participants = len(seen)
	}

	return helpers.NewAuctionResponse(a, bidderUsername, docs, participants)
}

func (h *AuctionHandler) username(ctx context.Context, userID int64) string {
	u, err := h.repo.GetUser(ctx, userID)
	if err != nil {
		return ""
	}
	return u.Username
}

func uniqueFilename(original string) string {
	base := filepath.Base(original)
	return fmt.Sprintf("%s_%s", utils.GenerateID(), strings.ReplaceAll(base, " ", "_"))
}
