package views

import (
	"context"

	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/state"
	"github.com/DoyleJ11/arena-client/internal/types"
)

type ProfileModel struct {
	Player  *state.PlayerSnapshot `json:"player,omitempty"`
	Stale   bool                  `json:"stale"`
	Busy    bool                  `json:"busy"`
	Message Message               `json:"message"`
}

type ProfileView struct {
	env *Env
	ctl Control
}

func NewProfileView(env *Env) *ProfileView { return &ProfileView{env: env} }

func (v *ProfileView) Keys() []cache.Key { return []cache.Key{cache.KeyPlayer} }

func (v *ProfileView) Render() ProfileModel {
	m := ProfileModel{Busy: v.ctl.Busy(), Message: v.ctl.Message()}
	if p, e, ok := cache.Typed[state.PlayerSnapshot](v.env.cache, cache.KeyPlayer); ok {
		m.Player = &p
		m.Stale = e.Stale
	}
	return m
}

func (v *ProfileView) Load(ctx context.Context) error { return v.env.load(ctx, v.Keys()...) }

// Me reads the account record. It does not replace the cached snapshot:
// /player/stats is the canonical source for it.
func (v *ProfileView) Me(ctx context.Context) (types.Player, error) {
	var p types.Player
	err := v.env.run(ctx, &v.ctl, "me", func(ctx context.Context) error {
		var err error
		p, err = v.env.api.Me(ctx)
		return err
	})
	return p, err
}

func (v *ProfileView) AddExp(ctx context.Context, exp int64) error {
	err := v.env.run(ctx, &v.ctl, "add_exp", func(ctx context.Context) error {
		return v.env.api.AddExp(ctx, exp)
	})
	if err == nil {
		v.env.settle(ctx, cache.KeyPlayer)
	}
	return err
}
