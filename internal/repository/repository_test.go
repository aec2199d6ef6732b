package repository

import (
	"context"
	"testing"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"

	"github.com/stretchr/testify/require"
)

// Helper to create an auction ready for persistence
func newTestAuction(title string, status model.AuctionStatus, start, end time.Time) model.Auction {
	return model.Auction{
		Title:        title,
		Description:  title + " description",
		InitialPrice: 100,
		StartTime:    start,
		EndTime:      end,
		Status:       status,
	}
}

// Test CreateAuction / LoadAuction
func TestMemoryRepo_CreateAndLoadAuction(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	a := newTestAuction("villa", model.StatusUpcoming, now, now.Add(time.Hour))
	require.NoError(t, repo.CreateAuction(ctx, &a))
	require.NotZero(t, a.AuctionID)

	got, err := repo.LoadAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, a, got)

	_, err = repo.LoadAuction(ctx, 9999)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

// Test FindAuctions
func TestMemoryRepo_FindAuctions(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	second := newTestAuction("second", model.StatusUpcoming, now.Add(time.Hour), now.Add(2*time.Hour))
	first := newTestAuction("first", model.StatusLive, now.Add(-time.Hour), now.Add(time.Hour))
	closed := newTestAuction("closed", model.StatusClosed, now.Add(-3*time.Hour), now.Add(-time.Hour))
	for _, a := range []*model.Auction{&second, &first, &closed} {
		require.NoError(t, repo.CreateAuction(ctx, a))
	}

	// Table-driven test cases
	tests := []struct {
		name       string
		filter     AuctionFilter
		wantTitles []string
	}{
		{
			name:       "no_filter_returns_all_ordered_by_start",
			filter:     AuctionFilter{},
			wantTitles: []string{"closed", "first", "second"},
		},
		{
			name:       "filter_by_status",
			filter:     AuctionFilter{Statuses: []model.AuctionStatus{model.StatusLive, model.StatusClosed}},
			wantTitles: []string{"closed", "first"},
		},
		{
			name:       "filter_by_started_before",
			filter:     AuctionFilter{StartedBefore: now},
			wantTitles: []string{"closed", "first"},
		},
		{
			name:       "filter_by_ended_before",
			filter:     AuctionFilter{EndedBefore: now},
			wantTitles: []string{"closed"},
		},
		{
			name:       "no_match",
			filter:     AuctionFilter{Statuses: []model.AuctionStatus{model.StatusLive}, EndedBefore: now},
			wantTitles: []string{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := repo.FindAuctions(ctx, tc.filter)
			require.NoError(t, err)

			titles := make([]string, 0, len(got))
			for _, a := range got {
				titles = append(titles, a.Title)
			}
			require.Equal(t, tc.wantTitles, titles)
		})
	}
}

// Test SaveAuctionAndBid
func TestMemoryRepo_SaveAuctionAndBid(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	a := newTestAuction("villa", model.StatusLive, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, repo.CreateAuction(ctx, &a))

	amount := 150.0
	bidderID := int64(7)
	a.CurrentBid = &amount
	a.HighestBidderID = &bidderID
	bid := model.Bid{AuctionID: a.AuctionID, UserID: bidderID, Amount: amount, CreatedAt: now}

	require.NoError(t, repo.SaveAuctionAndBid(ctx, a, &bid))
	require.NotZero(t, bid.BidID)

	got, err := repo.LoadAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, amount, *got.CurrentBid)
	require.Equal(t, bidderID, *got.HighestBidderID)

	bids, err := repo.GetBidsByAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.Equal(t, bid, bids[0])

	// Unknown auction fails; forced failures surface ErrPersistence.
	ghost := a
	ghost.AuctionID = 9999
	require.ErrorIs(t, repo.SaveAuctionAndBid(ctx, ghost, &model.Bid{}), auctionerrors.ErrAuctionNotFound)

	repo.FailWrites(true)
	require.ErrorIs(t, repo.SaveAuctionAndBid(ctx, a, &model.Bid{}), auctionerrors.ErrPersistence)
}

// Test SaveAuctionBatch
func TestMemoryRepo_SaveAuctionBatch(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	a := newTestAuction("a", model.StatusUpcoming, now, now.Add(time.Hour))
	b := newTestAuction("b", model.StatusLive, now.Add(-time.Hour), now)
	require.NoError(t, repo.CreateAuction(ctx, &a))
	require.NoError(t, repo.CreateAuction(ctx, &b))

	a.Status = model.StatusLive
	b.Status = model.StatusClosed
	require.NoError(t, repo.SaveAuctionBatch(ctx, []model.Auction{a, b}))

	gotA, _ := repo.LoadAuction(ctx, a.AuctionID)
	gotB, _ := repo.LoadAuction(ctx, b.AuctionID)
	require.Equal(t, model.StatusLive, gotA.Status)
	require.Equal(t, model.StatusClosed, gotB.Status)

	// A batch containing an unknown auction applies nothing.
	ghost := a
	ghost.AuctionID = 9999
	ghost.Status = model.StatusClosed
	a.Status = model.StatusClosed
	require.ErrorIs(t, repo.SaveAuctionBatch(ctx, []model.Auction{a, ghost}), auctionerrors.ErrAuctionNotFound)

	gotA, _ = repo.LoadAuction(ctx, a.AuctionID)
	require.Equal(t, model.StatusLive, gotA.Status, "failed batch must be all-or-nothing")
}

// Test GetBidsByAuction ordering
func TestMemoryRepo_GetBidsByAuction_NewestFirst(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	a := newTestAuction("villa", model.StatusLive, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, repo.CreateAuction(ctx, &a))

	for i := 1; i <= 3; i++ {
		amount := 100.0 + float64(i)
		a.CurrentBid = &amount
		bid := model.Bid{AuctionID: a.AuctionID, UserID: 1, Amount: amount, CreatedAt: now.Add(time.Duration(i) * time.Second)}
		require.NoError(t, repo.SaveAuctionAndBid(ctx, a, &bid))
	}

	bids, err := repo.GetBidsByAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.Equal(t, 103.0, bids[0].Amount)
	require.Equal(t, 101.0, bids[2].Amount)
}

// Test user operations
func TestMemoryRepo_Users(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	ctx := context.Background()

	u := model.User{Username: "alice", PasswordHash: "hash", Role: "investor", Email: "alice@example.com"}
	require.NoError(t, repo.CreateUser(ctx, &u))
	require.NotZero(t, u.UserID)

	byID, err := repo.GetUser(ctx, u.UserID)
	require.NoError(t, err)
	require.Equal(t, u, byID)

	byName, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u, byName)

	dup := model.User{Username: "alice", Email: "other@example.com"}
	require.ErrorIs(t, repo.CreateUser(ctx, &dup), auctionerrors.ErrInvalidInput)

	_, err = repo.GetUser(ctx, 9999)
	require.ErrorIs(t, err, auctionerrors.ErrUserNotFound)
	_, err = repo.GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, auctionerrors.ErrUserNotFound)
}

// Test document operations
func TestMemoryRepo_Documents(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	a := newTestAuction("villa", model.StatusUpcoming, now, now.Add(time.Hour))
	require.NoError(t, repo.CreateAuction(ctx, &a))

	doc := model.Document{Filename: "prospectus.pdf", AuctionID: a.AuctionID}
	require.NoError(t, repo.CreateDocument(ctx, &doc))
	require.NotZero(t, doc.DocumentID)

	docs, err := repo.GetDocumentsByAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, []model.Document{doc}, docs)

	orphan := model.Document{Filename: "x.pdf", AuctionID: 9999}
	require.ErrorIs(t, repo.CreateDocument(ctx, &orphan), auctionerrors.ErrAuctionNotFound)
}
