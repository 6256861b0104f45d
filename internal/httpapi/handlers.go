package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/DoyleJ11/arena-client/internal/api"
	"github.com/DoyleJ11/arena-client/internal/cooldown"
	"github.com/DoyleJ11/arena-client/internal/hub"
	"github.com/DoyleJ11/arena-client/internal/reconcile"
	"github.com/DoyleJ11/arena-client/internal/types"
	"github.com/DoyleJ11/arena-client/internal/views"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type stateResponse struct {
	Auth      views.AuthModel            `json:"auth"`
	Profile   views.ProfileModel         `json:"profile"`
	Clicker   views.ClickerModel         `json:"clicker"`
	Cooldowns map[string]cooldown.Window `json:"cooldowns"`
	Cache     reconcile.View             `json:"cache"`
	Notices   []hub.Notice               `json:"notices"`
}

func State(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := stateResponse{
			Auth:    d.Views.Auth.Render(),
			Profile: d.Views.Profile.Render(),
			Clicker: d.Views.Clicker.Render(),
		}
		if d.Governor != nil {
			resp.Cooldowns = d.Governor.Snapshot()
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		view := make(chan reconcile.View, 1)
		notices := make(chan []hub.Notice, 1)
		if err := d.Views.Env.Reconciler().Send(ctx, reconcile.GetState{Reply: view}); err != nil {
			http.Error(w, "state unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := d.Notices.Send(ctx, hub.Recent{Reply: notices}); err != nil {
			http.Error(w, "state unavailable", http.StatusServiceUnavailable)
			return
		}

		for view != nil || notices != nil {
			select {
			case v := <-view:
				resp.Cache, view = v, nil
			case ns := <-notices:
				resp.Notices, notices = ns, nil
			case <-ctx.Done():
				if r.Context().Err() == nil {
					http.Error(w, "state unavailable", http.StatusServiceUnavailable)
				}
				return
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func Login(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !readJSON(w, r, &req) {
			return
		}
		err := v.Auth.Login(r.Context(), req.Username, req.Password)
		writeJSON(w, statusFor(err), v.Auth.Render())
	}
}

func Logout(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := v.Auth.Logout(r.Context())
		// The local session is gone either way.
		if err != nil && !errors.Is(err, views.ErrBusy) {
			err = nil
		}
		writeJSON(w, statusFor(err), v.Auth.Render())
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Confirm  string `json:"confirm_password"`
}

func Register(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !readJSON(w, r, &req) {
			return
		}
		err := v.Auth.Register(r.Context(), req.Username, req.Password, req.Confirm)
		writeJSON(w, statusFor(err), v.Auth.Render())
	}
}

func Profile(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := v.Profile.Load(r.Context())
		writeJSON(w, statusFor(err), v.Profile.Render())
	}
}

// Me returns the account record as the server has it; the profile model
// is unchanged.
func Me(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := v.Profile.Me(r.Context())
		if err != nil {
			writeJSON(w, statusFor(err), v.Profile.Render())
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type expRequest struct {
	Exp int64 `json:"exp"`
}

func AddExp(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req expRequest
		if !readJSON(w, r, &req) {
			return
		}
		err := v.Profile.AddExp(r.Context(), req.Exp)
		writeJSON(w, statusFor(err), v.Profile.Render())
	}
}

func Equipment(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := v.Equipment.Load(r.Context())
		writeJSON(w, statusFor(err), v.Equipment.Render())
	}
}

type wearRequest struct {
	UID  string `json:"uid"`
	Slot string `json:"slot"`
}

func Wear(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wearRequest
		if !readJSON(w, r, &req) {
			return
		}
		err := v.Equipment.Wear(r.Context(), req.UID, req.Slot)
		writeJSON(w, statusFor(err), v.Equipment.Render())
	}
}

func Unwear(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wearRequest
		if !readJSON(w, r, &req) {
			return
		}
		err := v.Equipment.Unwear(r.Context(), req.Slot)
		writeJSON(w, statusFor(err), v.Equipment.Render())
	}
}

type enhanceRequest struct {
	UID      string `json:"uid"`
	UseGuard bool   `json:"use_guard"`
}

func Enhance(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enhanceRequest
		if !readJSON(w, r, &req) {
			return
		}
		_, err := v.Equipment.Enhance(r.Context(), req.UID, req.UseGuard)
		writeJSON(w, statusFor(err), v.Equipment.Render())
	}
}

type battleRequest struct {
	Target string `json:"target"`
}

func Battle(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req battleRequest
		if !readJSON(w, r, &req) {
			return
		}
		_, err := v.Battle.Fight(r.Context(), req.Target)
		writeJSON(w, statusFor(err), v.Battle.Render())
	}
}

func Click(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := v.Clicker.Click(r.Context())
		writeJSON(w, statusFor(err), v.Clicker.Render())
	}
}

func Shop(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := v.Shop.Load(r.Context())
		writeJSON(w, statusFor(err), v.Shop.Render())
	}
}

type buyRequest struct {
	ItemID string `json:"item_id"`
	Qty    int64  `json:"qty"`
}

func ShopBuy(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req buyRequest
		if !readJSON(w, r, &req) {
			return
		}
		if req.Qty == 0 {
			req.Qty = 1
		}
		_, err := v.Shop.Buy(r.Context(), req.ItemID, req.Qty)
		writeJSON(w, statusFor(err), v.Shop.Render())
	}
}

func Inventory(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := v.Inventory.Load(r.Context())
		writeJSON(w, statusFor(err), v.Inventory.Render())
	}
}

func Auctions(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := v.Auction.Load(r.Context())
		writeJSON(w, statusFor(err), v.Auction.Render())
	}
}

type createRequest struct {
	Type        string `json:"type"`
	ItemID      string `json:"item_id"`
	UID         string `json:"uid"`
	Qty         int64  `json:"qty"`
	StartPrice  int64  `json:"start_price"`
	BuyoutPrice *int64 `json:"buyout_price"`
}

type createResponse struct {
	AuctionID int64              `json:"auction_id,omitempty"`
	Auctions  views.AuctionModel `json:"auctions"`
}

func AuctionCreate(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if !readJSON(w, r, &req) {
			return
		}
		if req.Type == "" {
			req.Type = types.AuctionItem
			if req.UID != "" {
				req.Type = types.AuctionEquip
			}
		}
		if req.Qty == 0 {
			req.Qty = 1
		}
		id, err := v.Auction.Create(r.Context(), types.CreateAuctionRequest{
			Type:        req.Type,
			ItemID:      req.ItemID,
			UID:         req.UID,
			Qty:         req.Qty,
			StartPrice:  req.StartPrice,
			BuyoutPrice: req.BuyoutPrice,
		})
		writeJSON(w, statusFor(err), createResponse{AuctionID: id, Auctions: v.Auction.Render()})
	}
}

func AuctionDetail(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auctionID(w, r)
		if !ok {
			return
		}
		row, err := v.Auction.Detail(r.Context(), id)
		if err != nil {
			writeJSON(w, statusFor(err), v.Auction.Render())
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}

type bidRequest struct {
	Amount int64 `json:"amount"`
}

func AuctionBid(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auctionID(w, r)
		if !ok {
			return
		}
		var req bidRequest
		if !readJSON(w, r, &req) {
			return
		}
		err := v.Auction.Bid(r.Context(), id, req.Amount)
		writeJSON(w, statusFor(err), v.Auction.Render())
	}
}

func AuctionBuy(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auctionID(w, r)
		if !ok {
			return
		}
		err := v.Auction.Buy(r.Context(), id)
		writeJSON(w, statusFor(err), v.Auction.Render())
	}
}

func AuctionCancel(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auctionID(w, r)
		if !ok {
			return
		}
		err := v.Auction.Cancel(r.Context(), id)
		writeJSON(w, statusFor(err), v.Auction.Render())
	}
}

func Friends(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := v.Friends.Load(r.Context())
		writeJSON(w, statusFor(err), v.Friends.Render())
	}
}

type friendRequest struct {
	Target string `json:"target"`
}

func FriendAction(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fn func(context.Context, string) error
		switch chi.URLParam(r, "action") {
		case "request":
			fn = v.Friends.Request
		case "accept":
			fn = v.Friends.Accept
		case "reject":
			fn = v.Friends.Reject
		case "remove":
			fn = v.Friends.Remove
		default:
			http.Error(w, "unknown friend action", http.StatusNotFound)
			return
		}
		var req friendRequest
		if !readJSON(w, r, &req) {
			return
		}
		err := fn(r.Context(), req.Target)
		writeJSON(w, statusFor(err), v.Friends.Render())
	}
}

func Rank(v *views.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board := chi.URLParam(r, "board")
		if err := v.Rank.Load(r.Context(), board); errors.Is(err, api.ErrUnknownBoard) {
			http.Error(w, "unknown board", http.StatusNotFound)
			return
		} else if err != nil {
			m, _ := v.Rank.Render(board)
			writeJSON(w, statusFor(err), m)
			return
		}
		m, _ := v.Rank.Render(board)
		writeJSON(w, http.StatusOK, m)
	}
}

func auctionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "bad auction id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// statusFor maps a command error to the console's HTTP status. The body is
// always the render model, which carries the inline message.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, views.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, views.ErrCoolingDown), errors.Is(err, api.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, api.ErrNoSession), errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, api.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, api.ErrRejected):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		http.Error(w, "expected application/json", http.StatusUnsupportedMediaType)
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
