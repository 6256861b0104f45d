package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-client/internal/cooldown"
	"github.com/DoyleJ11/arena-client/internal/hub"
	"github.com/DoyleJ11/arena-client/internal/views"
	"github.com/DoyleJ11/arena-client/internal/ws"
)

type Deps struct {
	Views    *views.Set
	Notices  *hub.Hub
	Governor *cooldown.Governor
	Log      *zap.Logger
}

// SetupRoutes builds the local console: JSON render models per view plus
// a websocket stream of notices and cache updates.
func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/state", State(d))
	r.Get("/ws", ws.Handler(d.Notices, d.Views.Env.Reconciler(), d.Log))

	r.Post("/login", Login(d.Views))
	r.Post("/logout", Logout(d.Views))
	r.Post("/register", Register(d.Views))
	r.Post("/click", Click(d.Views))

	r.Get("/profile", Profile(d.Views))
	r.Get("/me", Me(d.Views))
	r.Post("/profile/exp", AddExp(d.Views))

	r.Route("/equipment", func(r chi.Router) {
		r.Get("/", Equipment(d.Views))
		r.Post("/wear", Wear(d.Views))
		r.Post("/unwear", Unwear(d.Views))
		r.Post("/enhance", Enhance(d.Views))
	})
	r.Post("/battle", Battle(d.Views))

	r.Get("/shop", Shop(d.Views))
	r.Post("/shop/buy", ShopBuy(d.Views))
	r.Get("/inventory", Inventory(d.Views))

	r.Route("/auctions", func(r chi.Router) {
		r.Get("/", Auctions(d.Views))
		r.Post("/", AuctionCreate(d.Views))
		r.Get("/{id}", AuctionDetail(d.Views))
		r.Post("/{id}/bid", AuctionBid(d.Views))
		r.Post("/{id}/buy", AuctionBuy(d.Views))
		r.Post("/{id}/cancel", AuctionCancel(d.Views))
	})

	r.Route("/friends", func(r chi.Router) {
		r.Get("/", Friends(d.Views))
		r.Post("/{action}", FriendAction(d.Views))
	})
	r.Get("/rank/{board}", Rank(d.Views))
	return r
}
