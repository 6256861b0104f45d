package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/arena-client/internal/gateway"
	"github.com/DoyleJ11/arena-client/internal/session"
	"github.com/DoyleJ11/arena-client/internal/types"
)

type recorder struct {
	mu   sync.Mutex
	auth map[string]string
	body map[string]string
	urls map[string]string
	user map[string]string
}

func (r *recorder) username(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.user[key]
}

func (r *recorder) record(key string, req *http.Request) {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.auth == nil {
		r.auth, r.body, r.urls, r.user = map[string]string{}, map[string]string{}, map[string]string{}, map[string]string{}
	}
	r.auth[key] = req.Header.Get("Authorization")
	r.user[key] = req.Header.Get("X-Username")
	r.body[key] = string(b)
	r.urls[key] = req.URL.String()
}

func (r *recorder) get(key string) (auth, body, u string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.auth[key], r.body[key], r.urls[key]
}

func jsonReply(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newClient(t *testing.T, rec *recorder) *Client {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		rec.record("login", req)
		jsonReply(w, http.StatusOK, `{"success":true,"token":"abc","username":"neo"}`)
	})
	r.Post("/auth/logout", func(w http.ResponseWriter, req *http.Request) {
		rec.record("logout", req)
		jsonReply(w, http.StatusInternalServerError, `{"success":false,"message":"boom"}`)
	})
	r.Get("/player/stats", func(w http.ResponseWriter, req *http.Request) {
		rec.record("stats", req)
		jsonReply(w, http.StatusOK, `{"success":true,"player":{"username":"neo","gold":"120","level":3}}`)
	})
	r.Get("/player/me", func(w http.ResponseWriter, req *http.Request) {
		jsonReply(w, http.StatusUnauthorized, `{"success":false,"message":"token expired"}`)
	})
	r.Post("/click/{user}", func(w http.ResponseWriter, req *http.Request) {
		rec.record("click", req)
		jsonReply(w, http.StatusTooManyRequests, `{"success":false,"message":"slow","retry_after_ms":750}`)
	})
	r.Get("/auction/list", func(w http.ResponseWriter, req *http.Request) {
		jsonReply(w, http.StatusOK, `{"success":true,"items":[{"auction_id":7,"seller":"neo","current_price":"50","buyout_price":"","status":"open"}]}`)
	})
	r.Post("/auction/bid", func(w http.ResponseWriter, req *http.Request) {
		rec.record("bid", req)
		jsonReply(w, http.StatusBadRequest, `{"success":false,"message":"bid too low"}`)
	})
	r.Post("/auction/cancel/{id}", func(w http.ResponseWriter, req *http.Request) {
		rec.record("cancel", req)
		jsonReply(w, http.StatusOK, `{"success":true}`)
	})
	r.Post("/admin/login", func(w http.ResponseWriter, req *http.Request) {
		jsonReply(w, http.StatusOK, `{"success":true,"admin_token":"adm"}`)
	})
	r.Get("/admin/players", func(w http.ResponseWriter, req *http.Request) {
		rec.record("players", req)
		jsonReply(w, http.StatusUnauthorized, `{"success":false,"detail":"unauthorized"}`)
	})
	r.Post("/admin/announce", func(w http.ResponseWriter, req *http.Request) {
		rec.record("announce", req)
		jsonReply(w, http.StatusOK, `{"success":true}`)
	})
	r.Get("/auction/{id}", func(w http.ResponseWriter, req *http.Request) {
		rec.record("detail", req)
		jsonReply(w, http.StatusOK, `{"success":true,"auction":{"auction_id":7,"seller":"trinity","current_price":"65","status":"sold"}}`)
	})
	r.Get("/admin/online", func(w http.ResponseWriter, req *http.Request) {
		rec.record("online", req)
		jsonReply(w, http.StatusOK, `{"success":true,"online_players":["neo","trinity"]}`)
	})
	r.Post("/admin/gold/{user}", func(w http.ResponseWriter, req *http.Request) {
		rec.record("gold", req)
		jsonReply(w, http.StatusOK, `{"success":true,"gold_after":"0"}`)
	})
	r.Post("/admin/inventory/{user}/{item}", func(w http.ResponseWriter, req *http.Request) {
		rec.record("grant", req)
		jsonReply(w, http.StatusOK, `{"success":true,"new_qty":4}`)
	})
	r.Get("/admin/auctions", func(w http.ResponseWriter, req *http.Request) {
		rec.record("admin_auctions", req)
		jsonReply(w, http.StatusOK, `{"success":true,"auctions":[{"auction_id":7,"seller":"trinity","status":"sold"}]}`)
	})
	r.Delete("/admin/auction/{id}", func(w http.ResponseWriter, req *http.Request) {
		rec.record("unlist", req)
		jsonReply(w, http.StatusNotFound, `{"success":false,"detail":"auction not found"}`)
	})
	r.Get("/admin/bids", func(w http.ResponseWriter, req *http.Request) {
		rec.record("bids", req)
		jsonReply(w, http.StatusOK, `{"success":true,"bids":[{"auction_id":"7","bidder":"morpheus","amount":"65"}]}`)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return New(gateway.New(srv.URL), session.NewStore(), session.NewStore(), nil)
}

func TestLogin_PopulatesSessionAndAttachesBearer(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, rec)
	ctx := context.Background()

	_, err := c.Login(ctx, "neo", "pw", "cli")
	require.NoError(t, err)

	id, ok := c.Player().Identity()
	require.True(t, ok)
	assert.Equal(t, "abc", id.Token)
	assert.Equal(t, "neo", id.Username)

	auth, _, _ := rec.get("login")
	assert.Empty(t, auth, "login is a public call")

	p, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Amount(120), p.Gold)
	auth, _, _ = rec.get("stats")
	assert.Equal(t, "Bearer abc", auth)
}

func TestLogin_IncompleteResponseLeavesSessionEmpty(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no token", `{"success":true,"username":"neo"}`},
		{"no username", `{"success":true,"token":"abc"}`},
		{"empty object", `{}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
				jsonReply(w, http.StatusOK, tc.body)
			})
			srv := httptest.NewServer(r)
			defer srv.Close()

			c := New(gateway.New(srv.URL), session.NewStore(), session.NewStore(), nil)
			_, err := c.Login(context.Background(), "neo", "pw", "cli")
			require.Error(t, err)
			assert.False(t, c.Player().IsAuthenticated())
		})
	}
}

func TestLoginConflict_ExposesDetails(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		jsonReply(w, http.StatusConflict, `{"success":false,"code":"ALREADY_LOGGED_IN","message":"in use","device":"phone","ip":"10.0.0.2","login_time":"2024-05-01T10:00:00"}`)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New(gateway.New(srv.URL), session.NewStore(), session.NewStore(), nil)
	_, err := c.Login(context.Background(), "neo", "pw", "cli")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))

	conflict, ok := LoginConflict(err)
	require.True(t, ok)
	assert.Equal(t, "phone", conflict.Device)
	assert.Equal(t, "10.0.0.2", conflict.IP)
	assert.False(t, c.Player().IsAuthenticated())
}

func TestUnauthorized_TearsDownMatchingStore(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, rec)
	ctx := context.Background()

	require.NoError(t, c.Player().Login("abc", "neo"))
	require.NoError(t, c.Admin().LoginAdmin("adm", true))

	_, err := c.Me(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "token expired", e.Message)

	assert.False(t, c.Player().IsAuthenticated())
	assert.True(t, c.Admin().IsAuthenticated(), "admin namespace is separate")

	_, err = c.Players(ctx)
	require.Error(t, err)
	assert.False(t, c.Admin().IsAuthenticated())
	auth, _, _ := rec.get("players")
	assert.Equal(t, "Bearer adm", auth)
}

func TestLogout_ClearsSessionEvenWhenCallFails(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, rec)
	require.NoError(t, c.Player().Login("abc", "neo"))

	err := c.Logout(context.Background())
	require.Error(t, err)
	assert.False(t, c.Player().IsAuthenticated())

	_, body, _ := rec.get("logout")
	assert.JSONEq(t, `{"username":"neo","token":"abc"}`, body)

	// already logged out
	assert.NoError(t, c.Logout(context.Background()))
}

func TestClick_RateLimitCarriesRetryDelay(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, rec)

	_, err := c.Click(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, c.Player().Login("abc", "neo"))
	_, err = c.Click(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))

	e, _ := AsError(err)
	assert.True(t, e.HasRetryAfter)
	assert.Equal(t, 750*time.Millisecond, e.RetryAfter)

	_, _, u := rec.get("click")
	assert.Equal(t, "/click/neo", u)
}

func TestAuctions_LenientListing(t *testing.T) {
	c := newClient(t, &recorder{})
	require.NoError(t, c.Player().Login("abc", "neo"))

	ls, err := c.Auctions(context.Background())
	require.NoError(t, err)
	require.Len(t, ls, 1)
	assert.Equal(t, int64(7), ls[0].AuctionID)
	assert.Equal(t, types.Amount(50), ls[0].CurrentPrice)
	assert.Equal(t, types.Amount(0), ls[0].BuyoutPrice)
}

func TestBid_SubmittedVerbatimAndRejectionSurfaced(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, rec)
	require.NoError(t, c.Player().Login("abc", "neo"))

	err := c.Bid(context.Background(), 7, 50)
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindRejected, e.Kind)
	assert.Equal(t, "bid too low", e.Message)
	assert.True(t, c.Player().IsAuthenticated())

	_, body, _ := rec.get("bid")
	assert.JSONEq(t, `{"username":"neo","auction_id":7,"bid_amount":50}`, body)
}

func TestCancelAuction_Path(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, rec)
	require.NoError(t, c.Player().Login("abc", "neo"))

	require.NoError(t, c.CancelAuction(context.Background(), 7))
	_, body, u := rec.get("cancel")
	assert.Equal(t, "/auction/cancel/7", u)
	assert.Empty(t, body)
	assert.Equal(t, "neo", rec.username("cancel"))
}

func TestAdminLogin_AcceptsAdminToken(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, rec)

	_, err := c.AdminLogin(context.Background(), "secret")
	require.NoError(t, err)
	id, ok := c.Admin().Identity()
	require.True(t, ok)
	assert.Equal(t, "adm", id.Token)
	assert.False(t, c.Player().IsAuthenticated())

	require.NoError(t, c.Announce(context.Background(), "maintenance at 5"))
	auth, body, u := rec.get("announce")
	assert.Equal(t, "Bearer adm", auth)
	assert.Equal(t, "/admin/announce?msg=maintenance+at+5", u)
	assert.JSONEq(t, `{"msg":"maintenance at 5"}`, body)
}

func TestAuctionDetail_ReadsNestedListing(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, rec)
	require.NoError(t, c.Player().Login("abc", "neo"))

	l, err := c.Auction(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), l.AuctionID)
	assert.Equal(t, types.Amount(65), l.CurrentPrice)
	assert.Equal(t, types.AuctionSold, l.Status)

	auth, _, u := rec.get("detail")
	assert.Equal(t, "Bearer abc", auth)
	assert.Equal(t, "/auction/7", u)
}

func TestAdminEndpoints(t *testing.T) {
	rec := &recorder{}
	c := newClient(t, rec)
	ctx := context.Background()
	_, err := c.AdminLogin(ctx, "secret")
	require.NoError(t, err)

	names, err := c.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"neo", "trinity"}, names)

	after, err := c.GrantGold(ctx, "cypher", -500)
	require.NoError(t, err)
	assert.Equal(t, int64(0), after)
	auth, _, u := rec.get("gold")
	assert.Equal(t, "Bearer adm", auth)
	assert.Equal(t, "/admin/gold/cypher?amount=-500", u)

	qty, err := c.GrantItem(ctx, "neo", "potion", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), qty)
	_, _, u = rec.get("grant")
	assert.Equal(t, "/admin/inventory/neo/potion?qty=3", u)

	as, err := c.AdminAuctions(ctx)
	require.NoError(t, err)
	require.Len(t, as, 1)
	assert.Equal(t, types.AuctionSold, as[0].Status)

	err = c.DeleteAuction(ctx, 7)
	assert.ErrorIs(t, err, ErrRejected)
	ae, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "auction not found", ae.Message)
	_, _, u = rec.get("unlist")
	assert.Equal(t, "/admin/auction/7", u)

	bids, err := c.BidLogs(ctx)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, "morpheus", bids[0]["bidder"])

	for _, key := range []string{"online", "admin_auctions", "bids"} {
		auth, _, _ := rec.get(key)
		assert.Equal(t, "Bearer adm", auth, key)
	}
}

func TestRank_UnknownBoard(t *testing.T) {
	c := newClient(t, &recorder{})
	_, err := c.Rank(context.Background(), "daily")
	assert.ErrorIs(t, err, ErrUnknownBoard)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(gateway.New(base), session.NewStore(), session.NewStore(), nil)
	require.NoError(t, c.Player().Login("abc", "neo"))
	_, err := c.Shop(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	e, _ := AsError(err)
	assert.NotEmpty(t, e.Message)
	assert.True(t, c.Player().IsAuthenticated())
}

func TestNonJSONRejections_ClassifiedByStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/click/{user}", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("Too Many Requests"))
	})
	r.Get("/player/stats", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`<html><body>sign in</body></html>`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c := New(gateway.New(srv.URL), session.NewStore(), session.NewStore(), nil)
	require.NoError(t, c.Player().Login("abc", "neo"))
	ctx := context.Background()

	_, err := c.Click(ctx)
	require.ErrorIs(t, err, ErrRateLimited)
	e, _ := AsError(err)
	assert.Equal(t, http.StatusTooManyRequests, e.Status)
	assert.True(t, e.HasRetryAfter)
	assert.Equal(t, 2*time.Second, e.RetryAfter)
	assert.Empty(t, e.Message)
	assert.True(t, c.Player().IsAuthenticated())

	_, err = c.Stats(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, c.Player().IsAuthenticated())
}
