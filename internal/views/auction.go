package views

import (
	"context"

	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/state"
	"github.com/DoyleJ11/arena-client/internal/types"
)

// AuctionRow is one listing plus the actions offered on it. The flags
// follow the cached listing; the server still has the final word.
type AuctionRow struct {
	types.Listing
	CanCancel bool  `json:"can_cancel"`
	CanBid    bool  `json:"can_bid"`
	CanBuy    bool  `json:"can_buy"`
	MinBid    int64 `json:"min_bid"`
	Buyout    int64 `json:"buyout,omitempty"`
}

type AuctionModel struct {
	Rows    []AuctionRow `json:"rows"`
	Stale   bool         `json:"stale"`
	Busy    bool         `json:"busy"`
	Message Message      `json:"message"`
}

type AuctionView struct {
	env *Env
	ctl Control
}

func NewAuctionView(env *Env) *AuctionView { return &AuctionView{env: env} }

func (v *AuctionView) Keys() []cache.Key { return []cache.Key{cache.KeyAuctions} }

func (v *AuctionView) Render() AuctionModel {
	m := AuctionModel{Busy: v.ctl.Busy(), Message: v.ctl.Message()}
	listings, e, ok := cache.Typed[[]types.Listing](v.env.cache, cache.KeyAuctions)
	if !ok {
		return m
	}
	m.Stale = e.Stale
	viewer := v.env.viewer()
	m.Rows = make([]AuctionRow, 0, len(listings))
	for _, l := range listings {
		m.Rows = append(m.Rows, row(l, viewer))
	}
	return m
}

func row(l types.Listing, viewer string) AuctionRow {
	r := AuctionRow{
		Listing:   l,
		CanCancel: state.CanCancel(l, viewer) == nil,
		CanBid:    state.CanBid(l, viewer) == nil,
	}
	if r.CanBid {
		r.MinBid = state.MinBid(l)
	}
	if price, err := state.BuyoutPrice(l, viewer); err == nil {
		r.CanBuy, r.Buyout = true, price
	}
	return r
}

// Row looks up one listing in the cached list.
func (v *AuctionView) Row(id int64) (AuctionRow, bool) {
	for _, r := range v.Render().Rows {
		if r.AuctionID == id {
			return r, true
		}
	}
	return AuctionRow{}, false
}

func (v *AuctionView) Load(ctx context.Context) error { return v.env.load(ctx, v.Keys()...) }

// Detail refetches one listing and folds it into the cached list: an open
// listing replaces (or joins) its row, anything else leaves the list.
func (v *AuctionView) Detail(ctx context.Context, auctionID int64) (AuctionRow, error) {
	var l types.Listing
	err := v.env.run(ctx, &v.ctl, "auction_detail", func(ctx context.Context) error {
		var err error
		l, err = v.env.api.Auction(ctx, auctionID)
		return err
	})
	if err != nil {
		return AuctionRow{}, err
	}
	v.env.cache.Patch(cache.KeyAuctions, func(old any) any {
		listings, _ := old.([]types.Listing)
		next := make([]types.Listing, 0, len(listings)+1)
		found := false
		for _, cur := range listings {
			if cur.AuctionID != l.AuctionID {
				next = append(next, cur)
				continue
			}
			found = true
			if l.Status == types.AuctionOpen {
				next = append(next, l)
			}
		}
		if !found && l.Status == types.AuctionOpen {
			next = append(next, l)
		}
		return next
	})
	return row(l, v.env.viewer()), nil
}

// Create lists an item or equipment piece. It leaves the inventory.
func (v *AuctionView) Create(ctx context.Context, req types.CreateAuctionRequest) (int64, error) {
	var id int64
	err := v.env.run(ctx, &v.ctl, "auction_create", func(ctx context.Context) error {
		var err error
		id, err = v.env.api.CreateAuction(ctx, req)
		return err
	})
	if err != nil {
		return 0, err
	}
	v.env.settle(ctx, cache.KeyAuctions, cache.KeyInventory, cache.KeyEquips)
	return id, nil
}

// Bid submits amount unchanged even if it does not beat the cached price;
// MinBid is only a prefill. A rejection leaves all local state alone.
func (v *AuctionView) Bid(ctx context.Context, auctionID, amount int64) error {
	err := v.env.run(ctx, &v.ctl, "auction_bid", func(ctx context.Context) error {
		return v.env.api.Bid(ctx, auctionID, amount)
	})
	if err != nil {
		return err
	}
	v.env.settle(ctx, cache.KeyAuctions, cache.KeyPlayer)
	return nil
}

func (v *AuctionView) Buy(ctx context.Context, auctionID int64) error {
	var gold *types.Amount
	err := v.env.run(ctx, &v.ctl, "auction_buy", func(ctx context.Context) error {
		resp, err := v.env.api.BuyNow(ctx, auctionID)
		if err != nil {
			return err
		}
		gold = resp.BuyerGoldAfter
		if gold == nil {
			gold = resp.Gold
		}
		if gold != nil {
			v.env.patchGold(int64(*gold))
		}
		return nil
	})
	if err != nil {
		return err
	}
	keys := []cache.Key{cache.KeyAuctions, cache.KeyInventory}
	if gold == nil {
		keys = append(keys, cache.KeyPlayer)
	}
	v.env.settle(ctx, keys...)
	return nil
}

func (v *AuctionView) Cancel(ctx context.Context, auctionID int64) error {
	err := v.env.run(ctx, &v.ctl, "auction_cancel", func(ctx context.Context) error {
		return v.env.api.CancelAuction(ctx, auctionID)
	})
	if err != nil {
		return err
	}
	v.env.settle(ctx, cache.KeyAuctions, cache.KeyInventory, cache.KeyEquips)
	return nil
}
