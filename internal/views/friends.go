package views

import (
	"context"

	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/types"
)

type FriendsModel struct {
	Friends  []types.Name `json:"friends"`
	Requests []types.Name `json:"requests"`
	Stale    bool         `json:"stale"`
	Busy     bool         `json:"busy"`
	Message  Message      `json:"message"`
}

type FriendsView struct {
	env *Env
	ctl Control
}

func NewFriendsView(env *Env) *FriendsView { return &FriendsView{env: env} }

func (v *FriendsView) Keys() []cache.Key {
	return []cache.Key{cache.KeyFriends, cache.KeyFriendRequests}
}

func (v *FriendsView) Render() FriendsModel {
	m := FriendsModel{Busy: v.ctl.Busy(), Message: v.ctl.Message()}
	if fs, e, ok := cache.Typed[[]types.Name](v.env.cache, cache.KeyFriends); ok {
		m.Friends = fs
		m.Stale = e.Stale
	}
	if rs, e, ok := cache.Typed[[]types.Name](v.env.cache, cache.KeyFriendRequests); ok {
		m.Requests = rs
		m.Stale = m.Stale || e.Stale
	}
	return m
}

func (v *FriendsView) Load(ctx context.Context) error { return v.env.load(ctx, v.Keys()...) }

func (v *FriendsView) Request(ctx context.Context, target string) error {
	return v.command(ctx, "friend_request", target, v.env.api.RequestFriend)
}

func (v *FriendsView) Accept(ctx context.Context, target string) error {
	return v.command(ctx, "friend_accept", target, v.env.api.AcceptFriend)
}

func (v *FriendsView) Reject(ctx context.Context, target string) error {
	return v.command(ctx, "friend_reject", target, v.env.api.RejectFriend)
}

func (v *FriendsView) Remove(ctx context.Context, target string) error {
	return v.command(ctx, "friend_remove", target, v.env.api.RemoveFriend)
}

func (v *FriendsView) command(ctx context.Context, name, target string, fn func(context.Context, string) error) error {
	err := v.env.run(ctx, &v.ctl, name, func(ctx context.Context) error {
		return fn(ctx, target)
	})
	if err != nil {
		return err
	}
	v.env.settle(ctx, v.Keys()...)
	return nil
}
