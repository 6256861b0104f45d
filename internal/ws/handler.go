package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-client/internal/hub"
	"github.com/DoyleJ11/arena-client/internal/logging"
	"github.com/DoyleJ11/arena-client/internal/reconcile"
	"github.com/DoyleJ11/arena-client/pkg/types"
)

const pingEvery = 30 * time.Second

// Handler streams notices and cache updates to one console client.
func Handler(h *hub.Hub, rec *reconcile.Reconciler, log *zap.Logger) http.HandlerFunc {
	log = logging.Or(log).Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// The console binds to loopback by default.
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := ulid.Make().String()
		notices := make(chan hub.Notice, 16)
		updates := make(chan reconcile.Update, 32)

		// Leave must still get through after the request context ends.
		leaveCtx := context.WithoutCancel(r.Context())
		if err := h.Send(r.Context(), hub.Join{ClientID: clientID, Outbox: notices}); err != nil {
			return
		}
		defer func() { _ = h.Send(leaveCtx, hub.Leave{ClientID: clientID}) }()
		if err := rec.Send(r.Context(), reconcile.Join{ClientID: clientID, Outbox: updates}); err != nil {
			return
		}
		defer func() { _ = rec.Send(leaveCtx, reconcile.Leave{ClientID: clientID}) }()

		log.Debug("console client joined", zap.String("client_id", clientID))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer writeCancel()
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				var msg types.ServerMessage
				select {
				case <-writeCtx.Done():
					return
				case n, ok := <-notices:
					if !ok {
						conn.Close(websocket.StatusGoingAway, "dropped")
						return
					}
					msg = types.ServerMessage{Type: "notice", Notice: toWire(n)}
				case u, ok := <-updates:
					if !ok {
						conn.Close(websocket.StatusGoingAway, "dropped")
						return
					}
					msg = types.ServerMessage{Type: "update", Key: string(u.Key), Version: u.Version}
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(writeCtx, 5*time.Second)
					err := conn.Ping(ctx)
					cancel()
					if err != nil {
						return
					}
					continue
				}
				if err := write(writeCtx, conn, msg); err != nil {
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(writeCtx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				log.Debug("console client gone", zap.String("client_id", clientID), zap.Error(err))
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(writeCtx, conn, types.ServerMessage{Type: "error", Error: "bad json"})
				continue
			}
			switch cm.Type {
			case "ping":
				_ = write(writeCtx, conn, types.ServerMessage{Type: "pong"})
			default:
				_ = write(writeCtx, conn, types.ServerMessage{Type: "error", Error: "unknown type"})
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func toWire(n hub.Notice) *types.Notice {
	return &types.Notice{ID: n.ID, Kind: n.Kind, Text: n.Text, At: n.At, ExpiresAt: n.ExpiresAt}
}
