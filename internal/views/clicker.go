package views

import (
	"context"
	"sync"
	"time"

	"github.com/DoyleJ11/arena-client/internal/api"
	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/cooldown"
	"github.com/DoyleJ11/arena-client/internal/state"
)

type ClickerModel struct {
	Gold         *int64     `json:"gold,omitempty"`
	Combo        int64      `json:"combo"`
	Critical     bool       `json:"critical"`
	TotalClicks  int64      `json:"total_clicks"`
	Enabled      bool       `json:"enabled"`
	CoolingUntil *time.Time `json:"cooling_until,omitempty"`
	Message      Message    `json:"message"`
}

// ClickerView drives the click-for-gold action. The governor is its
// triggering control: the button is enabled exactly while the click key is
// idle.
type ClickerView struct {
	env *Env
	ctl Control

	mu          sync.Mutex
	gold        *int64
	combo       int64
	critical    bool
	totalClicks int64
}

func NewClickerView(env *Env) *ClickerView { return &ClickerView{env: env} }

func (v *ClickerView) Render() ClickerModel {
	w := v.env.gov.Window(cooldown.ActionClick)
	m := ClickerModel{
		Enabled: !w.Active && !v.ctl.Busy(),
		Message: v.ctl.Message(),
	}
	if w.Active {
		until := w.ExpiresAt
		m.CoolingUntil = &until
	}

	v.mu.Lock()
	m.Gold = v.gold
	m.Combo, m.Critical, m.TotalClicks = v.combo, v.critical, v.totalClicks
	v.mu.Unlock()

	if p, _, ok := cache.Typed[state.PlayerSnapshot](v.env.cache, cache.KeyPlayer); ok {
		g := p.Gold
		m.Gold = &g
	}
	return m
}

// Click attempts one click. A click during the cooling window never
// reaches the server.
func (v *ClickerView) Click(ctx context.Context) error {
	if !v.env.api.Player().IsAuthenticated() {
		v.ctl.set(Message{Text: v.env.describe(api.ErrNoSession), Error: true})
		return api.ErrNoSession
	}
	if !v.env.gov.TryStart(cooldown.ActionClick) {
		v.ctl.set(Message{Text: v.env.describe(ErrCoolingDown), Error: true})
		return ErrCoolingDown
	}
	return v.env.run(ctx, &v.ctl, "click", func(ctx context.Context) error {
		resp, err := v.env.api.Click(ctx)
		if err != nil {
			if ae, ok := api.AsError(err); ok && ae.Kind == api.KindRateLimited {
				v.env.gov.ApplyRateLimit(cooldown.ActionClick, ae.RetryAfter, ae.HasRetryAfter)
			}
			return err
		}

		v.env.gov.ApplyServerCooldown(cooldown.ActionClick, time.Duration(resp.CooldownMS)*time.Millisecond)

		v.mu.Lock()
		if resp.Gold != nil {
			g := int64(*resp.Gold)
			v.gold = &g
		}
		v.combo = int64(resp.Combo)
		v.critical = resp.Critical
		v.totalClicks = int64(resp.TotalClicks)
		v.mu.Unlock()

		if resp.Gold != nil {
			v.env.patchGold(int64(*resp.Gold))
		}
		return nil
	})
}
