package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"auction-engine/internal/engine"
	"auction-engine/internal/fanout"
	model "auction-engine/internal/models"
	"auction-engine/internal/payments"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"
	"auction-engine/internal/store"

	"github.com/gin-gonic/gin"
)

// fakeIntents stands in for the Stripe collaborator.
type fakeIntents struct{}

func (fakeIntents) CreateIntent(amount float64, auctionID int64, auctionTitle string) (payments.Intent, error) {
	fee := amount * 0.03
	return payments.Intent{ClientSecret: "cs_test", FinalAmount: amount + fee, ConvenienceFee: fee}, nil
}

// TestEnv bundles a fully wired application around the in-memory repo.
type TestEnv struct {
	Router *gin.Engine
	Repo   *repository.MemoryRepo
	Store  *store.StateStore
	Engine *engine.AdmissionEngine
	Events *fanout.Fanout
}

// SetupTestEnv wires router, store, engine and fanout for integration testing.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	st := store.NewStateStore()
	events := fanout.New()
	eng := engine.NewAdmissionEngine(st, repo, events, time.Second)

	router := server.SetupRouter(server.Deps{
		Store:        st,
		Repo:         repo,
		Engine:       eng,
		Events:       events,
		Intents:      fakeIntents{},
		UploadDir:    t.TempDir(),
		FanoutBuffer: 16,
	})

	return &TestEnv{Router: router, Repo: repo, Store: st, Engine: eng, Events: events}
}

// SeedUser creates a user directly in the repo.
func (env *TestEnv) SeedUser(t *testing.T, username string) model.User {
	t.Helper()
	user := model.User{Username: username, PasswordHash: "x", Role: "investor", Email: username + "@example.com"}
	if err := env.Repo.CreateUser(context.Background(), &user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// SeedAuction creates an auction in the repo and registers it in the store.
func (env *TestEnv) SeedAuction(t *testing.T, title string, status model.AuctionStatus, initialPrice float64) model.Auction {
	t.Helper()
	now := time.Now().UTC()
	auction := model.Auction{
		Title:        title,
		Description:  title + " description",
		InitialPrice: initialPrice,
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(time.Hour),
		Status:       status,
	}
	if err := env.Repo.CreateAuction(context.Background(), &auction); err != nil {
		t.Fatalf("failed to seed auction: %v", err)
	}
	env.Store.Register(auction)
	return auction
}

// ExecuteRequestAndParse executes an HTTP request on the router and parses the JSON response.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 && json.Unmarshal(w.Body.Bytes(), &resp) != nil {
		resp = nil // response was a JSON array or plain text
	}
	return resp, w
}

// ExecuteRequestAndParseList is ExecuteRequestAndParse for array responses.
func ExecuteRequestAndParseList(t *testing.T, router *gin.Engine, method, url string) ([]map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, nil)
	router.ServeHTTP(w, req)

	var resp []map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal list response: %v", err)
		}
	}
	return resp, w
}
