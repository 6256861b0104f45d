// Package types holds the push-channel event contract. Every frame on the
// real-time channel is an Envelope:
//
//	{"event": "announce" | "auction_sold" | "friend_online", "data": {...}}
package types

import (
	"bytes"

	"github.com/goccy/go-json"

	apitypes "github.com/DoyleJ11/arena-client/internal/types"
)

const (
	EventAnnounce     = "announce"
	EventAuctionSold  = "auction_sold"
	EventFriendOnline = "friend_online"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Announce is a broadcast notice. data may be a bare string or {"msg": ...}.
type Announce struct {
	Msg string `json:"msg"`
}

func (a *Announce) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &a.Msg)
	}
	var obj struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	a.Msg = obj.Msg
	if a.Msg == "" {
		a.Msg = obj.Message
	}
	return nil
}

// AuctionSold mirrors the settlement record; the backend writes its numbers
// as strings.
type AuctionSold struct {
	AuctionID apitypes.Amount `json:"auction_id"`
	Seller    string          `json:"seller,omitempty"`
	Buyer     string          `json:"buyer,omitempty"`
	ItemID    string          `json:"item_id,omitempty"`
	Qty       apitypes.Amount `json:"qty,omitempty"`
	Price     apitypes.Amount `json:"price,omitempty"`
}

type FriendOnline struct {
	Username string `json:"username"`
}
