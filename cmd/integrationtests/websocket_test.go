package integrationtests

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	model "auction-engine/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type wsFrame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, env *TestEnv, auctionID int64, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return env.Events.SubscriberCount(auctionID) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

// A subscribed connection sees bid_update and outbid; rejections only go
// to the submitting connection.
func TestWebSocketBidding(t *testing.T) {
	env := SetupTestEnv(t)
	env.SeedAuction(t, "villa", model.StatusLive, 100)
	alice := env.SeedUser(t, "alice")
	bob := env.SeedUser(t, "bob")

	srv := httptest.NewServer(env.Router)
	defer srv.Close()

	observer := dialWS(t, srv)
	require.NoError(t, observer.WriteJSON(map[string]any{"type": "subscribe", "auction_id": 1}))
	waitForSubscribers(t, env, 1, 1)

	bidderConn := dialWS(t, srv)

	// Too-low bid: bid_error on the submitting connection only.
	require.NoError(t, bidderConn.WriteJSON(map[string]any{"type": "place_bid", "auction_id": 1, "user_id": alice.UserID, "amount": 100}))
	frame := readFrame(t, bidderConn)
	require.Equal(t, "bid_error", frame.Event)
	require.Contains(t, frame.Data["error"], "higher than the current bid")

	// Accepted bid from alice, then bob outbids her.
	require.NoError(t, bidderConn.WriteJSON(map[string]any{"type": "place_bid", "auction_id": 1, "user_id": alice.UserID, "amount": 101}))
	frame = readFrame(t, observer)
	require.Equal(t, "bid_update", frame.Event)
	require.Equal(t, 101.0, frame.Data["new_bid"])
	require.Equal(t, "alice", frame.Data["highest_bidder_username"])

	require.NoError(t, bidderConn.WriteJSON(map[string]any{"type": "place_bid", "auction_id": 1, "user_id": bob.UserID, "amount": 150}))
	frame = readFrame(t, observer)
	require.Equal(t, "bid_update", frame.Event)
	require.Equal(t, 150.0, frame.Data["new_bid"])

	frame = readFrame(t, observer)
	require.Equal(t, "outbid", frame.Event)
	require.Equal(t, float64(alice.UserID), frame.Data["outbid_user_id"])
	require.Equal(t, "villa", frame.Data["auction_title"])
}

// Subscribing to one auction never delivers another auction's events.
func TestWebSocketSubscriptionIsolation(t *testing.T) {
	env := SetupTestEnv(t)
	env.SeedAuction(t, "villa", model.StatusLive, 100)
	env.SeedAuction(t, "loft", model.StatusLive, 100)
	alice := env.SeedUser(t, "alice")

	srv := httptest.NewServer(env.Router)
	defer srv.Close()

	observer := dialWS(t, srv)
	require.NoError(t, observer.WriteJSON(map[string]any{"type": "subscribe", "auction_id": 2}))
	waitForSubscribers(t, env, 2, 1)

	bidderConn := dialWS(t, srv)
	require.NoError(t, bidderConn.WriteJSON(map[string]any{"type": "place_bid", "auction_id": 1, "user_id": alice.UserID, "amount": 200}))
	require.NoError(t, bidderConn.WriteJSON(map[string]any{"type": "place_bid", "auction_id": 2, "user_id": alice.UserID, "amount": 300}))

	// Only the auction 2 event arrives.
	frame := readFrame(t, observer)
	require.Equal(t, "bid_update", frame.Event)
	require.Equal(t, 2.0, frame.Data["auction_id"])
	require.Equal(t, 300.0, frame.Data["new_bid"])
}

// After unsubscribe the connection stops receiving events.
func TestWebSocketUnsubscribe(t *testing.T) {
	env := SetupTestEnv(t)
	env.SeedAuction(t, "villa", model.StatusLive, 100)
	alice := env.SeedUser(t, "alice")

	srv := httptest.NewServer(env.Router)
	defer srv.Close()

	observer := dialWS(t, srv)
	require.NoError(t, observer.WriteJSON(map[string]any{"type": "subscribe", "auction_id": 1}))
	waitForSubscribers(t, env, 1, 1)
	require.NoError(t, observer.WriteJSON(map[string]any{"type": "unsubscribe", "auction_id": 1}))
	waitForSubscribers(t, env, 1, 0)

	bidderConn := dialWS(t, srv)
	require.NoError(t, bidderConn.WriteJSON(map[string]any{"type": "place_bid", "auction_id": 1, "user_id": alice.UserID, "amount": 200}))

	observer.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var frame wsFrame
	require.Error(t, observer.ReadJSON(&frame), "no event expected after unsubscribe")
}
