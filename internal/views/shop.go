package views

import (
	"context"

	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/state"
	"github.com/DoyleJ11/arena-client/internal/types"
)

type ShopModel struct {
	Items   []types.ShopItem `json:"items"`
	Gold    *int64           `json:"gold,omitempty"`
	Stale   bool             `json:"stale"`
	Busy    bool             `json:"busy"`
	Message Message          `json:"message"`
}

type ShopView struct {
	env *Env
	ctl Control
}

func NewShopView(env *Env) *ShopView { return &ShopView{env: env} }

func (v *ShopView) Keys() []cache.Key { return []cache.Key{cache.KeyShop, cache.KeyPlayer} }

func (v *ShopView) Render() ShopModel {
	m := ShopModel{Busy: v.ctl.Busy(), Message: v.ctl.Message()}
	if items, e, ok := cache.Typed[[]types.ShopItem](v.env.cache, cache.KeyShop); ok {
		m.Items, m.Stale = items, e.Stale
	}
	if p, _, ok := cache.Typed[state.PlayerSnapshot](v.env.cache, cache.KeyPlayer); ok {
		g := p.Gold
		m.Gold = &g
	}
	return m
}

func (v *ShopView) Load(ctx context.Context) error { return v.env.load(ctx, v.Keys()...) }

// Buy purchases qty of an item. Gold comes back authoritative and is
// patched; the inventory is refetched.
func (v *ShopView) Buy(ctx context.Context, itemID string, qty int64) (types.ShopBuyResponse, error) {
	var resp types.ShopBuyResponse
	err := v.env.run(ctx, &v.ctl, "shop_buy", func(ctx context.Context) error {
		var err error
		resp, err = v.env.api.Buy(ctx, itemID, qty)
		if err != nil {
			return err
		}
		if resp.Gold != nil {
			v.env.patchGold(int64(*resp.Gold))
		}
		return nil
	})
	if err != nil {
		return resp, err
	}
	keys := []cache.Key{cache.KeyInventory}
	if resp.Gold == nil {
		keys = append(keys, cache.KeyPlayer)
	}
	v.env.settle(ctx, keys...)
	return resp, nil
}
