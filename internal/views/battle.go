package views

import (
	"context"
	"strings"

	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/types"
)

type BattleModel struct {
	Last    *types.PvPResponse `json:"last,omitempty"`
	Won     bool               `json:"won"`
	Busy    bool               `json:"busy"`
	Message Message            `json:"message"`
}

type BattleView struct {
	env  *Env
	ctl  Control
	last *types.PvPResponse
}

func NewBattleView(env *Env) *BattleView { return &BattleView{env: env} }

func (v *BattleView) Render() BattleModel {
	m := BattleModel{Busy: v.ctl.Busy(), Message: v.ctl.Message()}
	v.ctl.mu.Lock()
	m.Last = v.last
	v.ctl.mu.Unlock()
	if m.Last != nil {
		m.Won = m.Last.Winner != "" && m.Last.Winner == v.env.viewer()
	}
	return m
}

// Fight runs one PvP battle. The reward is a delta, so nothing is patched
// locally; the affected keys are refetched instead.
func (v *BattleView) Fight(ctx context.Context, target string) (types.PvPResponse, error) {
	var resp types.PvPResponse
	err := v.env.run(ctx, &v.ctl, "pvp", func(ctx context.Context) error {
		var err error
		resp, err = v.env.api.PvP(ctx, strings.TrimSpace(target))
		if err != nil {
			return err
		}
		v.ctl.mu.Lock()
		v.last = &resp
		v.ctl.mu.Unlock()
		return nil
	})
	if err != nil {
		return resp, err
	}

	keys := []cache.Key{cache.KeyPlayer, cache.KeyRankPower, cache.KeyRankElo, cache.KeyRankWeekly}
	if resp.Reward.DropUID != "" {
		keys = append(keys, cache.KeyInventory, cache.KeyEquips)
	}
	v.env.settle(ctx, keys...)
	return resp, nil
}
