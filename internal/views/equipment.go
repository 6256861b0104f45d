package views

import (
	"context"

	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/types"
)

type EquipmentModel struct {
	Equips      []types.Equip          `json:"equips"`
	Worn        map[string]string      `json:"worn,omitempty"`
	Stale       bool                   `json:"stale"`
	LastEnhance *types.EnhanceResponse `json:"last_enhance,omitempty"`
	Busy        bool                   `json:"busy"`
	Message     Message                `json:"message"`
}

type EquipmentView struct {
	env  *Env
	ctl  Control
	last *types.EnhanceResponse
}

func NewEquipmentView(env *Env) *EquipmentView { return &EquipmentView{env: env} }

func (v *EquipmentView) Keys() []cache.Key { return []cache.Key{cache.KeyEquips} }

func (v *EquipmentView) Render() EquipmentModel {
	m := EquipmentModel{Busy: v.ctl.Busy(), Message: v.ctl.Message()}
	if eq, e, ok := cache.Typed[types.EquipsResponse](v.env.cache, cache.KeyEquips); ok {
		m.Equips, m.Worn, m.Stale = eq.Equips, eq.Worn, e.Stale
	}
	v.ctl.mu.Lock()
	m.LastEnhance = v.last
	v.ctl.mu.Unlock()
	return m
}

func (v *EquipmentView) Load(ctx context.Context) error { return v.env.load(ctx, v.Keys()...) }

func (v *EquipmentView) Wear(ctx context.Context, uid, slot string) error {
	return v.command(ctx, "wear", func(ctx context.Context) error {
		return v.env.api.Wear(ctx, uid, slot)
	})
}

func (v *EquipmentView) Unwear(ctx context.Context, slot string) error {
	return v.command(ctx, "unwear", func(ctx context.Context) error {
		return v.env.api.Unwear(ctx, slot)
	})
}

// Enhance upgrades one piece. The piece may explode; either way the equips
// list is refetched rather than edited.
func (v *EquipmentView) Enhance(ctx context.Context, uid string, useGuard bool) (types.EnhanceResponse, error) {
	var resp types.EnhanceResponse
	err := v.command(ctx, "enhance", func(ctx context.Context) error {
		var err error
		resp, err = v.env.api.Enhance(ctx, uid, useGuard)
		if err == nil {
			v.ctl.mu.Lock()
			v.last = &resp
			v.ctl.mu.Unlock()
		}
		return err
	})
	return resp, err
}

// Worn equipment changes power, so the player snapshot goes stale too.
func (v *EquipmentView) command(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := v.env.run(ctx, &v.ctl, name, fn); err != nil {
		return err
	}
	v.env.settle(ctx, cache.KeyEquips, cache.KeyPlayer)
	return nil
}
