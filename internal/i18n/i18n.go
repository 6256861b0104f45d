package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key so an unknown locale
// still prints something readable.
const (
	MsgNetwork         = "Network error, please try again."
	MsgBadResponse     = "The server sent an unreadable response."
	MsgGeneric         = "Something went wrong, please try again."
	MsgNotLoggedIn     = "Please log in first."
	MsgSessionExpired  = "Your session has expired, please log in again."
	MsgCoolingDown     = "Slow down, try again in a moment."
	MsgBusy            = "Still working on the previous request."
	MsgAlreadyLoggedIn = "This account is already logged in on %s."
	MsgAuctionSold     = "Auction #%d sold for %d gold."
	MsgAuctionSettled  = "An auction was settled."
	MsgFriendOnline    = "%s is online."
	MsgAnnouncement    = "Announcement: %s"
	MsgSignedIn        = "Signed in as %s."
	MsgSignedOut       = "Signed out."
)

var supported = []language.Tag{
	language.English,
	language.TraditionalChinese,
}

var matcher = language.NewMatcher(supported)

var cat = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	zh := language.TraditionalChinese
	set := func(key, zhText string) {
		_ = b.SetString(language.English, key, key)
		_ = b.SetString(zh, key, zhText)
	}
	set(MsgNetwork, "網路錯誤，請稍後再試")
	set(MsgBadResponse, "伺服器回應格式錯誤")
	set(MsgGeneric, "發生錯誤，請稍後再試")
	set(MsgNotLoggedIn, "請先登入")
	set(MsgSessionExpired, "登入已過期，請重新登入")
	set(MsgCoolingDown, "點擊過於頻繁，請稍候")
	set(MsgBusy, "上一個請求仍在處理中")
	set(MsgAlreadyLoggedIn, "此帳號已在其他裝置登入（%s）")
	set(MsgAuctionSold, "拍賣 #%d 已以 %d 金幣售出")
	set(MsgAuctionSettled, "有拍賣已成交")
	set(MsgFriendOnline, "%s 上線了")
	set(MsgAnnouncement, "公告：%s")
	set(MsgSignedIn, "已登入：%s")
	set(MsgSignedOut, "已登出")
	return b
}()

// Printer formats the catalog messages for one locale.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// New resolves locale ("en", "zh-TW", "zh-Hant", ...) against the supported
// languages. Unknown or malformed locales fall back to English.
func New(locale string) *Printer {
	tag := language.English
	if want, err := language.Parse(locale); err == nil {
		_, idx, conf := matcher.Match(want)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return &Printer{tag: tag, p: message.NewPrinter(tag, message.Catalog(cat))}
}

func (p *Printer) Tag() language.Tag { return p.tag }

func (p *Printer) Sprintf(key string, args ...any) string {
	if p == nil {
		return message.NewPrinter(language.English, message.Catalog(cat)).Sprintf(key, args...)
	}
	return p.p.Sprintf(key, args...)
}
