package views

import (
	"context"
	"fmt"

	"github.com/DoyleJ11/arena-client/internal/api"
	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/types"
)

type RankModel struct {
	Board   string            `json:"board"`
	Entries []types.RankEntry `json:"entries"`
	Stale   bool              `json:"stale"`
}

type RankView struct {
	env *Env
}

func NewRankView(env *Env) *RankView { return &RankView{env: env} }

func (v *RankView) Keys() []cache.Key {
	return []cache.Key{cache.KeyRankPower, cache.KeyRankElo, cache.KeyRankWeekly}
}

func boardKey(board string) (cache.Key, error) {
	for k, b := range rankBoards {
		if b == board {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", api.ErrUnknownBoard, board)
}

func (v *RankView) Render(board string) (RankModel, error) {
	key, err := boardKey(board)
	if err != nil {
		return RankModel{}, err
	}
	m := RankModel{Board: board}
	if rows, e, ok := cache.Typed[[]types.RankEntry](v.env.cache, key); ok {
		m.Entries, m.Stale = rows, e.Stale
	}
	return m, nil
}

func (v *RankView) Load(ctx context.Context, board string) error {
	key, err := boardKey(board)
	if err != nil {
		return err
	}
	return v.env.load(ctx, key)
}
