package fanout

import (
	"sync"

	"auction-engine/utils"
)

// Kind identifies an event on the wire. The names are part of the client
// protocol and must not change.
type Kind string

const (
	KindBidUpdate     Kind = "bid_update"
	KindOutbid        Kind = "outbid"
	KindAuctionLive   Kind = "auction_live"
	KindAuctionClosed Kind = "auction_closed"
)

// Event is one state-change notification routed by auction id.
type Event struct {
	Kind      Kind  `json:"event"`
	AuctionID int64 `json:"-"`
	Data      any   `json:"data"`
}

// BidUpdate is the payload broadcast when a bid is accepted.
type BidUpdate struct {
	AuctionID             int64      `json:"auction_id"`
	NewBid                float64    `json:"new_bid"`
	HighestBidderID       int64      `json:"highest_bidder_id"`
	HighestBidderUsername string     `json:"highest_bidder_username"`
	NewBidDetails         BidDetails `json:"new_bid_details"`
}

// BidDetails mirrors the bid row inside a BidUpdate.
type BidDetails struct {
	ID        int64   `json:"id"`
	Amount    float64 `json:"amount"`
	Timestamp string  `json:"timestamp"`
	Username  string  `json:"username"`
}

// Outbid is the payload sent when a leading bidder loses the lead.
type Outbid struct {
	AuctionTitle string `json:"auction_title"`
	OutbidUserID int64  `json:"outbid_user_id"`
}

// StatusChange is the payload for auction_live and auction_closed.
type StatusChange struct {
	AuctionID int64  `json:"auction_id"`
	Status    string `json:"status"`
}

// Subscriber is one connected observer. Events arrive on a bounded buffer;
// a subscriber that cannot keep up loses events rather than blocking the
// publisher.
type Subscriber struct {
	ID     string
	ch     chan Event
	closed bool // guarded by the owning Fanout's mu
}

// NewSubscriber creates a subscriber with the given delivery buffer.
func NewSubscriber(buffer int) *Subscriber {
	return &Subscriber{
		ID: utils.GenerateID(),
		ch: make(chan Event, buffer),
	}
}

// Events is the subscriber's delivery channel. It is closed when the
// subscriber is removed from the fanout.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Fanout delivers state-change events to every subscriber of an auction.
// Constructed once at startup and passed to the components that publish.
type Fanout struct {
	mu   sync.Mutex
	subs map[int64]map[*Subscriber]struct{} // auctionID -> subscribers
}

// New creates an empty fanout.
func New() *Fanout {
	return &Fanout{subs: make(map[int64]map[*Subscriber]struct{})}
}

// Subscribe registers sub for events of one auction.
func (f *Fanout) Subscribe(sub *Subscriber, auctionID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sub.closed {
		return
	}
	set, ok := f.subs[auctionID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		f.subs[auctionID] = set
	}
	set[sub] = struct{}{}
}

// Unsubscribe drops sub's interest in one auction.
func (f *Fanout) Unsubscribe(sub *Subscriber, auctionID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dropLocked(sub, auctionID)
}

// Remove drops sub from every auction and closes its delivery channel.
// Called on disconnect; safe to call more than once.
func (f *Fanout) Remove(sub *Subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sub.closed {
		return
	}
	for auctionID := range f.subs {
		f.dropLocked(sub, auctionID)
	}
	sub.closed = true
	close(sub.ch)
}

func (f *Fanout) dropLocked(sub *Subscriber, auctionID int64) {
	set, ok := f.subs[auctionID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(f.subs, auctionID)
	}
}

// Publish delivers evt to every subscriber of evt.AuctionID at this moment.
// Best effort, at most once: a full buffer drops the event for that
// subscriber only. Publishes are serialized, so delivery order per
// subscriber matches publish order for events of the same auction.
func (f *Fanout) Publish(evt Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for sub := range f.subs[evt.AuctionID] {
		select {
		case sub.ch <- evt:
		default:
			utils.Warn("fanout: dropping event for slow subscriber", map[string]any{
				"subscriber_id": sub.ID,
				"auction_id":    evt.AuctionID,
				"event":         string(evt.Kind),
			})
		}
	}
}

// SubscriberCount reports how many subscribers an auction currently has.
func (f *Fanout) SubscriberCount(auctionID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[auctionID])
}
