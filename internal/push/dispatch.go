package push

import (
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/hub"
	"github.com/DoyleJ11/arena-client/internal/i18n"
	"github.com/DoyleJ11/arena-client/internal/logging"
	pushtypes "github.com/DoyleJ11/arena-client/pkg/types"
)

type Invalidator interface {
	Invalidate(keys ...cache.Key)
}

type Notifier interface {
	Notify(kind, text string)
}

// Dispatcher turns push events into notices and cache invalidations. It
// never calls the server itself.
type Dispatcher struct {
	notices Notifier
	rec     Invalidator
	msgs    *i18n.Printer
	log     *zap.Logger
}

func NewDispatcher(notices Notifier, rec Invalidator, msgs *i18n.Printer, log *zap.Logger) *Dispatcher {
	if msgs == nil {
		msgs = i18n.New("en")
	}
	return &Dispatcher{notices: notices, rec: rec, msgs: msgs, log: logging.Or(log).Named("dispatch")}
}

func (d *Dispatcher) Handle(ev pushtypes.Envelope) {
	switch ev.Event {
	case pushtypes.EventAnnounce:
		var a pushtypes.Announce
		if !d.decode(ev, &a) || a.Msg == "" {
			return
		}
		d.notices.Notify(hub.KindAnnounce, d.msgs.Sprintf(i18n.MsgAnnouncement, a.Msg))

	case pushtypes.EventAuctionSold:
		// The listing is stale whatever the payload looks like.
		d.rec.Invalidate(cache.KeyAuctions)
		var s pushtypes.AuctionSold
		if !d.decode(ev, &s) || s.AuctionID <= 0 {
			d.notices.Notify(hub.KindAuctionSold, d.msgs.Sprintf(i18n.MsgAuctionSettled))
			return
		}
		d.notices.Notify(hub.KindAuctionSold, d.msgs.Sprintf(i18n.MsgAuctionSold, int64(s.AuctionID), int64(s.Price)))

	case pushtypes.EventFriendOnline:
		var f pushtypes.FriendOnline
		if !d.decode(ev, &f) || f.Username == "" {
			return
		}
		d.notices.Notify(hub.KindFriendOnline, d.msgs.Sprintf(i18n.MsgFriendOnline, f.Username))

	default:
		d.log.Debug("ignore event", zap.String("event", ev.Event))
	}
}

func (d *Dispatcher) decode(ev pushtypes.Envelope, v any) bool {
	if len(ev.Data) == 0 {
		d.log.Debug("event without data", zap.String("event", ev.Event))
		return false
	}
	if err := json.Unmarshal(ev.Data, v); err != nil {
		d.log.Debug("bad event data", zap.String("event", ev.Event), zap.Error(err))
		return false
	}
	return true
}
