package views

import (
	"context"

	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/types"
)

type InventoryModel struct {
	Items []types.InventoryItem `json:"items"`
	Stale bool                  `json:"stale"`
}

type InventoryView struct {
	env *Env
}

func NewInventoryView(env *Env) *InventoryView { return &InventoryView{env: env} }

func (v *InventoryView) Keys() []cache.Key { return []cache.Key{cache.KeyInventory} }

func (v *InventoryView) Render() InventoryModel {
	var m InventoryModel
	if items, e, ok := cache.Typed[[]types.InventoryItem](v.env.cache, cache.KeyInventory); ok {
		m.Items, m.Stale = items, e.Stale
	}
	return m
}

func (v *InventoryView) Load(ctx context.Context) error { return v.env.load(ctx, v.Keys()...) }

// Qty returns the cached quantity of itemID.
func (v *InventoryView) Qty(itemID string) int64 {
	var n int64
	for _, it := range v.Render().Items {
		if it.ItemID == itemID {
			n += int64(it.Qty)
		}
	}
	return n
}
