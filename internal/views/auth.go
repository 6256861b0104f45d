package views

import (
	"context"

	"github.com/DoyleJ11/arena-client/internal/api"
	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/i18n"
	"github.com/DoyleJ11/arena-client/internal/state"
	"github.com/DoyleJ11/arena-client/internal/types"
)

// Conflict describes the other live session when the account is already
// logged in elsewhere.
type Conflict struct {
	Device  string `json:"device,omitempty"`
	IP      string `json:"ip,omitempty"`
	LoginAt string `json:"login_time,omitempty"`
}

type AuthModel struct {
	Authenticated bool      `json:"authenticated"`
	Username      string    `json:"username,omitempty"`
	Busy          bool      `json:"busy"`
	Message       Message   `json:"message"`
	Conflict      *Conflict `json:"conflict,omitempty"`
}

type AuthView struct {
	env      *Env
	ctl      Control
	conflict *Conflict
}

func NewAuthView(env *Env) *AuthView { return &AuthView{env: env} }

func (v *AuthView) Render() AuthModel {
	name, ok := v.env.api.Player().Username()
	m := AuthModel{
		Authenticated: ok,
		Username:      name,
		Busy:          v.ctl.Busy(),
		Message:       v.ctl.Message(),
	}
	v.ctl.mu.Lock()
	m.Conflict = v.conflict
	v.ctl.mu.Unlock()
	return m
}

func (v *AuthView) Register(ctx context.Context, username, password, confirm string) error {
	return v.env.run(ctx, &v.ctl, "register", func(ctx context.Context) error {
		return v.env.api.Register(ctx, username, password, confirm)
	})
}

// Login authenticates and then runs one pass so every open view fills in.
func (v *AuthView) Login(ctx context.Context, username, password string) error {
	err := v.env.run(ctx, &v.ctl, "login", func(ctx context.Context) error {
		v.setConflict(nil)
		resp, err := v.env.api.Login(ctx, username, password, v.env.device)
		if c, ok := api.LoginConflict(err); ok {
			v.setConflict(&Conflict{Device: c.Device, IP: c.IP, LoginAt: c.LoginAt})
			if ae, _ := api.AsError(err); ae.Message == "" {
				ae.Message = v.env.msgs.Sprintf(i18n.MsgAlreadyLoggedIn, c.Device)
			}
			return err
		}
		if err != nil {
			return err
		}
		if resp.Player != nil {
			v.seedPlayer(*resp.Player)
		}
		return nil
	})
	if err != nil {
		return err
	}
	v.env.settle(ctx)
	return nil
}

func (v *AuthView) Logout(ctx context.Context) error {
	return v.env.run(ctx, &v.ctl, "logout", func(ctx context.Context) error {
		return v.env.api.Logout(ctx)
	})
}

func (v *AuthView) seedPlayer(p types.Player) {
	seq := v.env.cache.Begin(cache.KeyPlayer)
	v.env.cache.Commit(cache.KeyPlayer, seq, state.FromPlayer(p, v.env.now()))
}

func (v *AuthView) setConflict(c *Conflict) {
	v.ctl.mu.Lock()
	v.conflict = c
	v.ctl.mu.Unlock()
}
