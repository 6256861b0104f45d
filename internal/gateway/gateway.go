package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-client/internal/i18n"
	"github.com/DoyleJ11/arena-client/internal/logging"
)

const maxBody = 4 << 20

var ErrNoPayload = errors.New("gateway: no payload to decode")

// TokenSource yields the bearer credential for a call, if there is one.
type TokenSource interface {
	Token() (string, bool)
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any         // nil means no body and no Content-Type
	Auth   TokenSource // nil or empty token means the call goes out unauthenticated
	Header http.Header
}

// Payload is the decoded response envelope plus the raw body for typed
// decoding. Synthetic payloads are produced locally for transport and parse
// failures and never carry Raw.
type Payload struct {
	Success       *bool
	Message       string
	Code          string
	RetryAfter    time.Duration
	HasRetryAfter bool
	Synthetic     bool
	Raw           json.RawMessage
}

type Result struct {
	Succeeded bool
	Status    int // 0 when the request never got a response
	Payload   Payload
}

func (r Result) RateLimited() bool { return r.Status == http.StatusTooManyRequests }

func (r Result) Unauthorized() bool { return r.Status == http.StatusUnauthorized }

// Decode unmarshals the raw response body into v.
func (r Result) Decode(v any) error {
	if len(r.Payload.Raw) == 0 {
		return ErrNoPayload
	}
	return json.Unmarshal(r.Payload.Raw, v)
}

type envelope struct {
	Success      *bool    `json:"success"`
	Message      string   `json:"message"`
	Detail       string   `json:"detail"` // admin endpoints
	Code         string   `json:"code"`
	RetryAfterMS *float64 `json:"retry_after_ms"`
}

type Gateway struct {
	base string
	hc   *http.Client
	log  *zap.Logger
	msgs *i18n.Printer
}

type Option func(*Gateway)

func WithHTTPClient(hc *http.Client) Option { return func(g *Gateway) { g.hc = hc } }

func WithLogger(l *zap.Logger) Option { return func(g *Gateway) { g.log = l } }

func WithPrinter(p *i18n.Printer) Option { return func(g *Gateway) { g.msgs = p } }

func New(base string, opts ...Option) *Gateway {
	g := &Gateway{
		base: strings.TrimRight(base, "/"),
		hc:   http.DefaultClient,
		msgs: i18n.New("en"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = logging.Or(g.log).Named("gateway")
	return g
}

func (g *Gateway) Base() string { return g.base }

// Call performs one request. It never returns an error: every failure is
// folded into a Result whose Payload carries a displayable message.
func (g *Gateway) Call(ctx context.Context, req Request) Result {
	start := time.Now()
	reqID := ulid.Make().String()
	log := g.log.With(
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("request_id", reqID),
	)

	httpReq, err := g.build(ctx, req, reqID)
	if err != nil {
		log.Warn("build request", zap.Error(err))
		return g.synthetic(0, i18n.MsgGeneric)
	}

	resp, err := g.hc.Do(httpReq)
	if err != nil {
		log.Warn("transport failure", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return g.synthetic(0, i18n.MsgNetwork)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		log.Warn("read body", zap.Int("status", resp.StatusCode), zap.Error(err))
		return g.synthetic(resp.StatusCode, i18n.MsgNetwork)
	}

	res, ok := parse(resp.StatusCode, raw)
	if !ok {
		log.Warn("malformed response", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(raw)))
		res = g.synthetic(resp.StatusCode, i18n.MsgBadResponse)
	}
	if !res.Payload.HasRetryAfter {
		if d, ok := retryAfterHeader(resp.Header.Get("Retry-After")); ok {
			res.Payload.RetryAfter, res.Payload.HasRetryAfter = d, true
		}
	}

	log.Debug("call",
		zap.Int("status", res.Status),
		zap.Bool("succeeded", res.Succeeded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res
}

func (g *Gateway) build(ctx context.Context, req Request, reqID string) (*http.Request, error) {
	target := g.base + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Auth != nil {
		if tok, ok := req.Auth.Token(); ok && tok != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return httpReq, nil
}

func parse(status int, raw []byte) (Result, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Result{}, false
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Result{}, false
	}

	p := Payload{
		Success: env.Success,
		Message: env.Message,
		Code:    env.Code,
		Raw:     json.RawMessage(trimmed),
	}
	if p.Message == "" {
		p.Message = env.Detail
	}
	if env.RetryAfterMS != nil && *env.RetryAfterMS >= 0 {
		p.RetryAfter = time.Duration(*env.RetryAfterMS * float64(time.Millisecond))
		p.HasRetryAfter = true
	}

	ok2xx := status >= 200 && status < 300
	return Result{
		Succeeded: ok2xx && (env.Success == nil || *env.Success),
		Status:    status,
		Payload:   p,
	}, true
}

func (g *Gateway) synthetic(status int, key string) Result {
	f := false
	return Result{
		Status: status,
		Payload: Payload{
			Success:   &f,
			Message:   g.msgs.Sprintf(key),
			Synthetic: true,
		},
	}
}

func retryAfterHeader(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
