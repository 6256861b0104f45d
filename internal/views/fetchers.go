package views

import (
	"context"

	"github.com/DoyleJ11/arena-client/internal/api"
	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/state"
)

type playerSnapshot = state.PlayerSnapshot

// Cached value types per key:
//
//	player           state.PlayerSnapshot
//	equips           types.EquipsResponse
//	shop             []types.ShopItem
//	inventory        []types.InventoryItem
//	auctions         []types.Listing
//	friends          []types.Name
//	friend_requests  []types.Name
//	rank:*           []types.RankEntry
func (e *Env) registerFetchers() {
	c := e.api
	e.rec.Register(cache.KeyPlayer, func(ctx context.Context) (any, error) {
		p, err := c.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return state.FromPlayer(p, e.now()), nil
	})
	e.rec.Register(cache.KeyEquips, func(ctx context.Context) (any, error) {
		return c.Equips(ctx)
	})
	e.rec.Register(cache.KeyShop, func(ctx context.Context) (any, error) {
		return c.Shop(ctx)
	})
	e.rec.Register(cache.KeyInventory, func(ctx context.Context) (any, error) {
		return c.Inventory(ctx)
	})
	e.rec.Register(cache.KeyAuctions, func(ctx context.Context) (any, error) {
		return c.Auctions(ctx)
	})
	e.rec.Register(cache.KeyFriends, func(ctx context.Context) (any, error) {
		return c.Friends(ctx)
	})
	e.rec.Register(cache.KeyFriendRequests, func(ctx context.Context) (any, error) {
		return c.FriendRequests(ctx)
	})
	for key, board := range rankBoards {
		key, board := key, board
		e.rec.Register(key, func(ctx context.Context) (any, error) {
			return c.Rank(ctx, board)
		})
	}
}

var rankBoards = map[cache.Key]string{
	cache.KeyRankPower:  api.BoardPower,
	cache.KeyRankElo:    api.BoardElo,
	cache.KeyRankWeekly: api.BoardWeekly,
}
