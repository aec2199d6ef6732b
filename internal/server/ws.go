package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"auction-engine/internal/auctionerrors"
	"auction-engine/internal/engine"
	"auction-engine/internal/fanout"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ClientMessage is one inbound WebSocket frame.
type ClientMessage struct {
	Type      string  `json:"type"` // subscribe | unsubscribe | place_bid
	AuctionID int64   `json:"auction_id"`
	UserID    int64   `json:"user_id"`
	Amount    float64 `json:"amount"`
}

// bidError is the synchronous rejection sent only to the submitting connection.
type bidError struct {
	Event string `json:"event"`
	Data  struct {
		AuctionID int64  `json:"auction_id"`
		Error     string `json:"error"`
	} `json:"data"`
}

// WSHandler upgrades connections and bridges them to the event fanout and
// the admission engine.
type WSHandler struct {
	engine   *engine.AdmissionEngine
	events   *fanout.Fanout
	buffer   int
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WSHandler. buffer is the per-connection event
// queue size; a connection that falls behind loses events.
func NewWSHandler(eng *engine.AdmissionEngine, events *fanout.Fanout, buffer int) *WSHandler {
	return &WSHandler{
		engine: eng,
		events: events,
		buffer: buffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handle serves GET /ws.
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Warn("ws: upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	client := &wsClient{
		conn:   conn,
		sub:    fanout.NewSubscriber(h.buffer),
		direct: make(chan any, 8),
		engine: h.engine,
		events: h.events,
	}

	utils.Info("ws: client connected", map[string]any{"subscriber_id": client.sub.ID})
	go client.writePump()
	client.readPump()
}

// wsClient is one live connection: a fanout subscriber plus a direct lane
// for synchronous replies. All writes go through writePump.
type wsClient struct {
	conn   *websocket.Conn
	sub    *fanout.Subscriber
	direct chan any
	engine *engine.AdmissionEngine
	events *fanout.Fanout
}

// readPump consumes client frames until the connection drops, then tears
// the subscription down.
func (cl *wsClient) readPump() {
	defer func() {
		cl.events.Remove(cl.sub)
		cl.conn.Close()
		utils.Info("ws: client disconnected", map[string]any{"subscriber_id": cl.sub.ID})
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Warn("ws: read error", map[string]any{"subscriber_id": cl.sub.ID, "error": err.Error()})
			}
			return
		}

		switch msg.Type {
		case "subscribe":
			cl.events.Subscribe(cl.sub, msg.AuctionID)
		case "unsubscribe":
			cl.events.Unsubscribe(cl.sub, msg.AuctionID)
		case "place_bid":
			cl.placeBid(msg)
		default:
			utils.Warn("ws: unknown message type", map[string]any{"subscriber_id": cl.sub.ID, "type": msg.Type})
		}
	}
}

// placeBid submits the bid and reports rejections back to this connection
// only. Accepted bids surface through the broadcast fanout.
func (cl *wsClient) placeBid(msg ClientMessage) {
	_, err := cl.engine.SubmitBid(context.Background(), msg.AuctionID, msg.UserID, msg.Amount)
	if err == nil {
		return
	}

	reply := bidError{Event: "bid_error"}
	reply.Data.AuctionID = msg.AuctionID
	reply.Data.Error = rejectionMessage(err)

	select {
	case cl.direct <- reply:
	default:
		utils.Warn("ws: dropping bid_error for slow connection", map[string]any{"subscriber_id": cl.sub.ID})
	}
}

// rejectionMessage maps an engine error onto the client-facing text.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound), errors.Is(err, auctionerrors.ErrUserNotFound):
		return "Auction or user not found."
	case errors.Is(err, auctionerrors.ErrAuctionNotLive):
		return "This auction is not live for bidding."
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return "Your bid must be higher than the current bid."
	case errors.Is(err, auctionerrors.ErrInvalidInput):
		return "Invalid bid request."
	case errors.Is(err, auctionerrors.ErrTimeout):
		return "Bid timed out, please retry."
	default:
		return "Bid could not be processed, please retry."
	}
}

// writePump forwards fanout events and direct replies to the socket and
// keeps the connection alive with pings. Exits when the subscriber's
// channel closes on removal.
func (cl *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-cl.sub.Events():
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(evt); err != nil {
				return
			}
		case reply := <-cl.direct:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(reply); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
