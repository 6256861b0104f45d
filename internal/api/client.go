package api

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-client/internal/gateway"
	"github.com/DoyleJ11/arena-client/internal/logging"
	"github.com/DoyleJ11/arena-client/internal/session"
)

type scope int

const (
	public scope = iota
	player
	admin
)

// Client is the typed endpoint surface of the game server. Player and admin
// calls authenticate from their own session store; a 401 on either tears
// that store down before the error is returned.
type Client struct {
	gw     *gateway.Gateway
	player *session.Store
	admin  *session.Store
	log    *zap.Logger
}

func New(gw *gateway.Gateway, playerStore, adminStore *session.Store, log *zap.Logger) *Client {
	return &Client{
		gw:     gw,
		player: playerStore,
		admin:  adminStore,
		log:    logging.Or(log).Named("api"),
	}
}

func (c *Client) Player() *session.Store { return c.player }

func (c *Client) Admin() *session.Store { return c.admin }

type call struct {
	scope  scope
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
}

func (c *Client) store(s scope) *session.Store {
	switch s {
	case player:
		return c.player
	case admin:
		return c.admin
	}
	return nil
}

// do runs one call and decodes a successful body into out (if non-nil).
func (c *Client) do(ctx context.Context, in call, out any) error {
	req := gateway.Request{
		Method: in.method,
		Path:   in.path,
		Query:  in.query,
		Body:   in.body,
		Header: in.header,
	}

	st := c.store(in.scope)
	var gen uint64
	if st != nil {
		req.Auth = st
		gen = st.Generation()
	}

	res := c.gw.Call(ctx, req)
	if !res.Succeeded {
		e := fromResult(res)
		if e.Kind == KindUnauthorized && st != nil {
			// Only tear down the identity that made this call.
			if st.Expire(gen) {
				c.log.Info("session expired", zap.String("path", in.path), zap.Int("scope", int(in.scope)))
			}
		}
		return e
	}
	if out == nil {
		return nil
	}
	if err := res.Decode(out); err != nil {
		c.log.Warn("decode response", zap.String("path", in.path), zap.Error(err))
		return &Error{Kind: KindTransport, Status: res.Status}
	}
	return nil
}

func get(s scope, path string) call { return call{scope: s, method: http.MethodGet, path: path} }

func post(s scope, path string, body any) call {
	return call{scope: s, method: http.MethodPost, path: path, body: body}
}

func del(s scope, path string) call { return call{scope: s, method: http.MethodDelete, path: path} }
