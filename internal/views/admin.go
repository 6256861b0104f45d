package views

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/types"
)

const (
	StreamActions = "logs"
	StreamBattles = "battles"
	StreamSold    = "sold"
	StreamBids    = "bids"
)

var ErrUnknownStream = errors.New("views: unknown log stream")

type AdminModel struct {
	Authenticated bool                `json:"authenticated"`
	Root          bool                `json:"root"`
	Players       []types.AdminPlayer `json:"players,omitempty"`
	Announcements []string            `json:"announcements,omitempty"`
	Online        []string            `json:"online,omitempty"`
	Auctions      []types.Listing     `json:"auctions,omitempty"`
	Busy          bool                `json:"busy"`
	Message       Message             `json:"message"`
}

// AdminView works in the admin credential namespace. Its lists are small
// and only ever shown here, so they are held by the view instead of the
// listing cache.
type AdminView struct {
	env *Env
	ctl Control

	mu            sync.Mutex
	players       []types.AdminPlayer
	announcements []string
	online        []string
	auctions      []types.Listing
}

func NewAdminView(env *Env) *AdminView { return &AdminView{env: env} }

func (v *AdminView) Render() AdminModel {
	id, ok := v.env.api.Admin().Identity()
	m := AdminModel{
		Authenticated: ok,
		Root:          id.Root,
		Busy:          v.ctl.Busy(),
		Message:       v.ctl.Message(),
	}
	v.mu.Lock()
	m.Players, m.Announcements = v.players, v.announcements
	m.Online, m.Auctions = v.online, v.auctions
	v.mu.Unlock()
	return m
}

func (v *AdminView) Login(ctx context.Context, password string) error {
	return v.env.run(ctx, &v.ctl, "admin_login", func(ctx context.Context) error {
		_, err := v.env.api.AdminLogin(ctx, password)
		return err
	})
}

func (v *AdminView) Logout() {
	v.env.api.AdminLogout()
	v.mu.Lock()
	v.players, v.announcements = nil, nil
	v.online, v.auctions = nil, nil
	v.mu.Unlock()
}

func (v *AdminView) LoadPlayers(ctx context.Context) error {
	return v.env.run(ctx, &v.ctl, "admin_players", v.fetchPlayers)
}

func (v *AdminView) fetchPlayers(ctx context.Context) error {
	ps, err := v.env.api.Players(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.players = ps
	v.mu.Unlock()
	return nil
}

func (v *AdminView) LoadOnline(ctx context.Context) error {
	return v.env.run(ctx, &v.ctl, "admin_online", func(ctx context.Context) error {
		names, err := v.env.api.Online(ctx)
		if err != nil {
			return err
		}
		v.mu.Lock()
		v.online = names
		v.mu.Unlock()
		return nil
	})
}

// GrantGold adjusts a player's gold and returns the balance after.
func (v *AdminView) GrantGold(ctx context.Context, username string, amount int64) (int64, error) {
	var after int64
	err := v.env.run(ctx, &v.ctl, "admin_gold", func(ctx context.Context) error {
		var err error
		if after, err = v.env.api.GrantGold(ctx, username, amount); err != nil {
			return err
		}
		return v.fetchPlayers(ctx)
	})
	return after, err
}

func (v *AdminView) GrantItem(ctx context.Context, username, itemID string, qty int64) (int64, error) {
	var after int64
	err := v.env.run(ctx, &v.ctl, "admin_inventory", func(ctx context.Context) error {
		var err error
		after, err = v.env.api.GrantItem(ctx, username, itemID, qty)
		return err
	})
	return after, err
}

func (v *AdminView) LoadAuctions(ctx context.Context) error {
	return v.env.run(ctx, &v.ctl, "admin_auctions", v.fetchAuctions)
}

func (v *AdminView) fetchAuctions(ctx context.Context) error {
	as, err := v.env.api.AdminAuctions(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.auctions = as
	v.mu.Unlock()
	return nil
}

// DeleteAuction removes a listing. Players looking at the auction house
// see it go on their next pass.
func (v *AdminView) DeleteAuction(ctx context.Context, auctionID int64) error {
	return v.env.run(ctx, &v.ctl, "admin_auction_delete", func(ctx context.Context) error {
		if err := v.env.api.DeleteAuction(ctx, auctionID); err != nil {
			return err
		}
		v.env.rec.Invalidate(cache.KeyAuctions)
		return v.fetchAuctions(ctx)
	})
}

func (v *AdminView) Ban(ctx context.Context, username string) error {
	return v.playerCommand(ctx, "admin_ban", username, v.env.api.Ban)
}

func (v *AdminView) Unban(ctx context.Context, username string) error {
	return v.playerCommand(ctx, "admin_unban", username, v.env.api.Unban)
}

func (v *AdminView) Unlock(ctx context.Context, username string) error {
	return v.playerCommand(ctx, "admin_unlock", username, v.env.api.Unlock)
}

func (v *AdminView) playerCommand(ctx context.Context, name, username string, fn func(context.Context, string) error) error {
	return v.env.run(ctx, &v.ctl, name, func(ctx context.Context) error {
		if err := fn(ctx, username); err != nil {
			return err
		}
		return v.fetchPlayers(ctx)
	})
}

func (v *AdminView) LoadAnnouncements(ctx context.Context) error {
	return v.env.run(ctx, &v.ctl, "admin_announcements", v.fetchAnnouncements)
}

func (v *AdminView) fetchAnnouncements(ctx context.Context) error {
	as, err := v.env.api.Announcements(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.announcements = as
	v.mu.Unlock()
	return nil
}

func (v *AdminView) Announce(ctx context.Context, msg string) error {
	return v.env.run(ctx, &v.ctl, "admin_announce", func(ctx context.Context) error {
		if err := v.env.api.Announce(ctx, msg); err != nil {
			return err
		}
		return v.fetchAnnouncements(ctx)
	})
}

func (v *AdminView) DeleteAnnouncement(ctx context.Context, index int) error {
	return v.env.run(ctx, &v.ctl, "admin_announce_delete", func(ctx context.Context) error {
		if err := v.env.api.DeleteAnnouncement(ctx, index); err != nil {
			return err
		}
		return v.fetchAnnouncements(ctx)
	})
}

func (v *AdminView) ClearAnnouncements(ctx context.Context) error {
	return v.env.run(ctx, &v.ctl, "admin_announce_clear", func(ctx context.Context) error {
		if err := v.env.api.ClearAnnouncements(ctx); err != nil {
			return err
		}
		return v.fetchAnnouncements(ctx)
	})
}

// Logs reads one admin log stream.
func (v *AdminView) Logs(ctx context.Context, stream string) ([]types.Record, error) {
	var fetch func(context.Context) ([]types.Record, error)
	switch stream {
	case StreamActions:
		fetch = v.env.api.ActionLogs
	case StreamBattles:
		fetch = v.env.api.BattleLogs
	case StreamSold:
		fetch = v.env.api.SoldLogs
	case StreamBids:
		fetch = v.env.api.BidLogs
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStream, stream)
	}
	var out []types.Record
	err := v.env.run(ctx, &v.ctl, "admin_"+stream, func(ctx context.Context) error {
		var err error
		out, err = fetch(ctx)
		return err
	})
	return out, err
}
