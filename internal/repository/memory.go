package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
)

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// Used by tests and as a zero-dependency backend for local runs.
type MemoryRepo struct {
	mu        sync.RWMutex
	auctions  map[int64]model.Auction
	bids      map[int64][]model.Bid      // key: auctionID -> bids, append order
	users     map[int64]model.User       // key: userID
	usernames map[string]int64           // key: username -> userID
	documents map[int64][]model.Document // key: auctionID -> documents

	nextAuctionID  int64
	nextBidID      int64
	nextUserID     int64
	nextDocumentID int64

	failWrites bool // test hook: force write failures
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:  make(map[int64]model.Auction),
		bids:      make(map[int64][]model.Bid),
		users:     make(map[int64]model.User),
		usernames: make(map[string]int64),
		documents: make(map[int64][]model.Document),
	}
}

// FailWrites toggles forced write failures. Intended for tests only.
func (r *MemoryRepo) FailWrites(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWrites = fail
}

// LoadAuction returns the stored auction by id
func (r *MemoryRepo) LoadAuction(_ context.Context, auctionID int64) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("load auction %d: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// FindAuctions returns all auctions matching the filter, ordered by start time
func (r *MemoryRepo) FindAuctions(_ context.Context, filter AuctionFilter) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		if matchesFilter(a, filter) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func matchesFilter(a model.Auction, filter AuctionFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if a.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !filter.StartedBefore.IsZero() && a.StartTime.After(filter.StartedBefore) {
		return false
	}
	if !filter.EndedBefore.IsZero() && a.EndTime.After(filter.EndedBefore) {
		return false
	}
	return true
}

// CreateAuction stores a new auction and assigns its id
func (r *MemoryRepo) CreateAuction(_ context.Context, auction *model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return fmt.Errorf("create auction: %w", auctionerrors.ErrPersistence)
	}

	r.nextAuctionID++
	auction.AuctionID = r.nextAuctionID
	r.auctions[auction.AuctionID] = *auction
	return nil
}

// SaveAuctionAndBid writes the auction row and the bid row as one unit.
// The bid's id is assigned on success.
func (r *MemoryRepo) SaveAuctionAndBid(_ context.Context, auction model.Auction, bid *model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return fmt.Errorf("save auction %d and bid: %w", auction.AuctionID, auctionerrors.ErrPersistence)
	}
	if _, ok := r.auctions[auction.AuctionID]; !ok {
		return fmt.Errorf("save auction %d and bid: %w", auction.AuctionID, auctionerrors.ErrAuctionNotFound)
	}

	r.nextBidID++
	bid.BidID = r.nextBidID
	r.auctions[auction.AuctionID] = auction
	r.bids[auction.AuctionID] = append(r.bids[auction.AuctionID], *bid)
	return nil
}

// SaveAuctionBatch persists the status of every given auction atomically
func (r *MemoryRepo) SaveAuctionBatch(_ context.Context, auctions []model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return fmt.Errorf("save auction batch: %w", auctionerrors.ErrPersistence)
	}

	// Validate everything up-front so the batch is all-or-nothing.
	for _, a := range auctions {
		if _, ok := r.auctions[a.AuctionID]; !ok {
			return fmt.Errorf("save auction batch: auction %d: %w", a.AuctionID, auctionerrors.ErrAuctionNotFound)
		}
	}
	for _, a := range auctions {
		stored := r.auctions[a.AuctionID]
		stored.Status = a.Status
		r.auctions[a.AuctionID] = stored
	}
	return nil
}

// GetBidsByAuction returns all bids for an auction, newest first
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID int64) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids := r.bids[auctionID]
	out := make([]model.Bid, len(bids))
	for i, b := range bids {
		out[len(bids)-1-i] = b
	}
	return out, nil
}

// CreateUser stores a new user and assigns its id
func (r *MemoryRepo) CreateUser(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return fmt.Errorf("create user: %w", auctionerrors.ErrPersistence)
	}
	if _, taken := r.usernames[user.Username]; taken {
		return fmt.Errorf("create user %q: username already exists: %w", user.Username, auctionerrors.ErrInvalidInput)
	}

	r.nextUserID++
	user.UserID = r.nextUserID
	r.users[user.UserID] = *user
	r.usernames[user.Username] = user.UserID
	return nil
}

// GetUser returns the stored user by id
func (r *MemoryRepo) GetUser(_ context.Context, userID int64) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user %d: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return u, nil
}

// GetUserByUsername returns the stored user by username
func (r *MemoryRepo) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usernames[username]
	if !ok {
		return model.User{}, fmt.Errorf("get user %q: %w", username, auctionerrors.ErrUserNotFound)
	}
	return r.users[id], nil
}

// CreateDocument stores a new document and assigns its id
func (r *MemoryRepo) CreateDocument(_ context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return fmt.Errorf("create document: %w", auctionerrors.ErrPersistence)
	}
	if _, ok := r.auctions[doc.AuctionID]; !ok {
		return fmt.Errorf("create document for auction %d: %w", doc.AuctionID, auctionerrors.ErrAuctionNotFound)
	}

	r.nextDocumentID++
	doc.DocumentID = r.nextDocumentID
	r.documents[doc.AuctionID] = append(r.documents[doc.AuctionID], *doc)
	return nil
}

// GetDocumentsByAuction returns all documents attached to an auction
func (r *MemoryRepo) GetDocumentsByAuction(_ context.Context, auctionID int64) ([]model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.Document(nil), r.documents[auctionID]...), nil
}
