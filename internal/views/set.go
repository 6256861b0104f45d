package views

import (
	"context"

	"github.com/DoyleJ11/arena-client/internal/cache"
)

// Set is every view of one client process.
type Set struct {
	Env       *Env
	Auth      *AuthView
	Profile   *ProfileView
	Clicker   *ClickerView
	Equipment *EquipmentView
	Battle    *BattleView
	Rank      *RankView
	Shop      *ShopView
	Inventory *InventoryView
	Auction   *AuctionView
	Friends   *FriendsView
	Admin     *AdminView
}

func NewSet(env *Env) *Set {
	return &Set{
		Env:       env,
		Auth:      NewAuthView(env),
		Profile:   NewProfileView(env),
		Clicker:   NewClickerView(env),
		Equipment: NewEquipmentView(env),
		Battle:    NewBattleView(env),
		Rank:      NewRankView(env),
		Shop:      NewShopView(env),
		Inventory: NewInventoryView(env),
		Auction:   NewAuctionView(env),
		Friends:   NewFriendsView(env),
		Admin:     NewAdminView(env),
	}
}

type keyed interface{ Keys() []cache.Key }

func (s *Set) keyed() []keyed {
	return []keyed{s.Profile, s.Equipment, s.Rank, s.Shop, s.Inventory, s.Auction, s.Friends}
}

// Show opens the keys of every listed view so each reconciliation pass
// keeps them fresh, then loads whatever is missing. With no session the
// load is skipped.
func (s *Set) Show(ctx context.Context) error {
	var keys []cache.Key
	for _, v := range s.keyed() {
		keys = append(keys, v.Keys()...)
	}
	if err := s.Env.open(ctx, keys...); err != nil {
		return err
	}
	if !s.Env.api.Player().IsAuthenticated() {
		return nil
	}
	return s.Env.load(ctx, keys...)
}

// Hide closes what Show opened.
func (s *Set) Hide(ctx context.Context) error {
	for _, v := range s.keyed() {
		if err := s.Env.close(ctx, v.Keys()...); err != nil {
			return err
		}
	}
	return nil
}
