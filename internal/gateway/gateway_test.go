package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/arena-client/internal/i18n"
)

type staticToken string

func (s staticToken) Token() (string, bool) { return string(s), s != "" }

type seen struct {
	auth        string
	contentType string
	accept      string
	requestID   string
	body        string
}

func newServer(t *testing.T, got *seen) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	record := func(r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*got = seen{
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			accept:      r.Header.Get("Accept"),
			requestID:   r.Header.Get("X-Request-ID"),
			body:        string(b),
		}
	}
	r.Get("/player/stats", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte(`{"success":true,"gold":120,"level":3}`))
	})
	r.Post("/shop/buy", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"not enough gold"}`))
	})
	r.Post("/click/neo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"success":false,"message":"slow down","retry_after_ms":750}`))
	})
	r.Post("/click/trinity", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"success":false}`))
	})
	r.Get("/admin/players", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"detail":"unauthorized"}`))
	})
	r.Post("/click/morpheus", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("Too Many Requests"))
	})
	r.Get("/player/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`<html><body>sign in</body></html>`))
	})
	r.Get("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})
	r.Get("/soft-fail", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"code":"ALREADY_LOGGED_IN"}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestCall_AttachesBearerAndHeaders(t *testing.T) {
	var got seen
	srv := newServer(t, &got)
	g := New(srv.URL)

	res := g.Call(context.Background(), Request{Method: http.MethodGet, Path: "/player/stats", Auth: staticToken("abc")})

	require.True(t, res.Succeeded)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "Bearer abc", got.auth)
	assert.Empty(t, got.contentType, "no body, no content type")
	assert.Equal(t, "application/json", got.accept)
	assert.Len(t, got.requestID, 26)

	var out struct {
		Gold  int `json:"gold"`
		Level int `json:"level"`
	}
	require.NoError(t, res.Decode(&out))
	assert.Equal(t, 120, out.Gold)
	assert.Equal(t, 3, out.Level)
}

func TestCall_NoTokenGoesOutUnauthenticated(t *testing.T) {
	var got seen
	srv := newServer(t, &got)
	g := New(srv.URL)

	for name, auth := range map[string]TokenSource{"nil source": nil, "empty token": staticToken("")} {
		name, auth := name, auth
		t.Run(name, func(t *testing.T) {
			g.Call(context.Background(), Request{Path: "/player/stats", Auth: auth})
			assert.Empty(t, got.auth)
		})
	}
}

func TestCall_BodyIsJSON(t *testing.T) {
	var got seen
	srv := newServer(t, &got)
	g := New(srv.URL)

	res := g.Call(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/shop/buy",
		Body:   map[string]any{"item_id": "potion_small", "qty": 2},
		Auth:   staticToken("abc"),
	})

	assert.Equal(t, "application/json", got.contentType)
	assert.JSONEq(t, `{"item_id":"potion_small","qty":2}`, got.body)
	assert.False(t, res.Succeeded)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "not enough gold", res.Payload.Message)
	assert.False(t, res.Payload.Synthetic)
}

func TestCall_RateLimitCarriesRetryDelay(t *testing.T) {
	srv := newServer(t, &seen{})
	g := New(srv.URL)

	res := g.Call(context.Background(), Request{Method: http.MethodPost, Path: "/click/neo"})
	assert.True(t, res.RateLimited())
	assert.True(t, res.Payload.HasRetryAfter)
	assert.Equal(t, 750*time.Millisecond, res.Payload.RetryAfter)

	res = g.Call(context.Background(), Request{Method: http.MethodPost, Path: "/click/trinity"})
	assert.True(t, res.RateLimited())
	assert.True(t, res.Payload.HasRetryAfter)
	assert.Equal(t, 2*time.Second, res.Payload.RetryAfter)
}

func TestCall_DetailFallsBackToMessage(t *testing.T) {
	srv := newServer(t, &seen{})
	res := New(srv.URL).Call(context.Background(), Request{Path: "/admin/players"})
	assert.True(t, res.Unauthorized())
	assert.Equal(t, "unauthorized", res.Payload.Message)
}

func TestCall_SuccessFalseOn200IsFailure(t *testing.T) {
	srv := newServer(t, &seen{})
	res := New(srv.URL).Call(context.Background(), Request{Path: "/soft-fail"})
	assert.False(t, res.Succeeded)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "ALREADY_LOGGED_IN", res.Payload.Code)
}

func TestCall_MalformedBodyIsSyntheticFailure(t *testing.T) {
	srv := newServer(t, &seen{})
	res := New(srv.URL).Call(context.Background(), Request{Path: "/broken"})

	assert.False(t, res.Succeeded)
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.True(t, res.Payload.Synthetic)
	assert.Equal(t, i18n.MsgBadResponse, res.Payload.Message)
	assert.ErrorIs(t, res.Decode(&struct{}{}), ErrNoPayload)
}

func TestCall_NonJSONRejectionsKeepStatus(t *testing.T) {
	srv := newServer(t, &seen{})
	g := New(srv.URL)

	res := g.Call(context.Background(), Request{Method: http.MethodPost, Path: "/click/morpheus"})
	assert.True(t, res.Payload.Synthetic)
	assert.True(t, res.RateLimited())
	assert.True(t, res.Payload.HasRetryAfter)
	assert.Equal(t, 2*time.Second, res.Payload.RetryAfter)

	res = g.Call(context.Background(), Request{Path: "/player/me", Auth: staticToken("abc")})
	assert.True(t, res.Payload.Synthetic)
	assert.True(t, res.Unauthorized())
}

func TestCall_TransportFailureIsSyntheticFailure(t *testing.T) {
	srv := newServer(t, &seen{})
	base := srv.URL
	srv.Close()

	res := New(base, WithPrinter(i18n.New("zh-TW"))).Call(context.Background(), Request{Path: "/player/stats"})
	assert.False(t, res.Succeeded)
	assert.Zero(t, res.Status)
	assert.True(t, res.Payload.Synthetic)
	assert.NotEmpty(t, res.Payload.Message)
	assert.Equal(t, i18n.New("zh-TW").Sprintf(i18n.MsgNetwork), res.Payload.Message)
}

func TestCall_UnencodableBodyIsSyntheticFailure(t *testing.T) {
	srv := newServer(t, &seen{})
	res := New(srv.URL).Call(context.Background(), Request{Method: http.MethodPost, Path: "/shop/buy", Body: func() {}})
	assert.False(t, res.Succeeded)
	assert.Zero(t, res.Status)
	assert.Equal(t, i18n.MsgGeneric, res.Payload.Message)
}

func TestParse_NonObjectBodies(t *testing.T) {
	for _, raw := range []string{``, `   `, `[1,2]`, `"ok"`, `null`, `{"success":`} {
		_, ok := parse(200, []byte(raw))
		assert.False(t, ok, "body %q", raw)
	}
}
