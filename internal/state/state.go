package state

import (
	"errors"
	"time"

	"github.com/DoyleJ11/arena-client/internal/types"
)

var ErrNotSeller = errors.New("only the seller can cancel")
var ErrHasBid = errors.New("listing already has a bid")
var ErrNotOpen = errors.New("listing is not open")
var ErrOwnListing = errors.New("cannot bid on your own listing")
var ErrNoBuyout = errors.New("listing has no buyout price")

// PlayerSnapshot is a read cache of server-owned player state. Fetches
// replace it wholesale; WithGold is the only partial update and takes an
// authoritative value from a command response.
type PlayerSnapshot struct {
	Username  string    `json:"username"`
	Gold      int64     `json:"gold"`
	Level     int64     `json:"level"`
	Exp       int64     `json:"exp"`
	Power     int64     `json:"power"`
	FetchedAt time.Time `json:"fetched_at"`
}

func FromPlayer(p types.Player, at time.Time) PlayerSnapshot {
	return PlayerSnapshot{
		Username:  p.Username,
		Gold:      int64(p.Gold),
		Level:     int64(p.Level),
		Exp:       int64(p.Exp),
		Power:     int64(p.Power),
		FetchedAt: at,
	}
}

func (p PlayerSnapshot) WithGold(gold int64) PlayerSnapshot {
	p.Gold = gold
	return p
}

// CanCancel mirrors the server rule: the seller may cancel an open listing
// nobody has bid on. A nil error means the cancel control is offered.
func CanCancel(l types.Listing, viewer string) error {
	if l.Status != types.AuctionOpen {
		return ErrNotOpen
	}
	if viewer == "" || l.Seller != viewer {
		return ErrNotSeller
	}
	if hasBidder(l) {
		return ErrHasBid
	}
	return nil
}

func CanBid(l types.Listing, viewer string) error {
	if l.Status != types.AuctionOpen {
		return ErrNotOpen
	}
	if viewer != "" && l.Seller == viewer {
		return ErrOwnListing
	}
	return nil
}

// MinBid is the prefill for the bid input: strictly above the last observed
// price. The server compares again at write time.
func MinBid(l types.Listing) int64 {
	return int64(l.CurrentPrice) + 1
}

// BuyoutPrice returns the price a buy-now would charge as last observed.
func BuyoutPrice(l types.Listing, viewer string) (int64, error) {
	if err := CanBid(l, viewer); err != nil {
		return 0, err
	}
	if l.BuyoutPrice <= 0 {
		return 0, ErrNoBuyout
	}
	return int64(l.BuyoutPrice), nil
}

func hasBidder(l types.Listing) bool {
	return l.CurrentBidder != ""
}
