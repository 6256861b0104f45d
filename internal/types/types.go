package types

// Auth

type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Device   string `json:"device"`
}

type LoginResponse struct {
	Success  bool    `json:"success"`
	Token    string  `json:"token"`
	Username string  `json:"username"`
	Code     string  `json:"code,omitempty"` // "ALREADY_LOGGED_IN"
	Device   string  `json:"device,omitempty"`
	IP       string  `json:"ip,omitempty"`
	LoginAt  string  `json:"login_time,omitempty"`
	Player   *Player `json:"player,omitempty"`
}

type LogoutRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Player

type Player struct {
	Username string `json:"username"`
	Gold     Amount `json:"gold"`
	Level    Amount `json:"level"`
	Exp      Amount `json:"exp"`
	Power    Amount `json:"power"`
}

// PlayerResponse covers both the nested {"player": {...}} shape and the
// flat shape; the api package picks whichever is populated.
type PlayerResponse struct {
	Nested *Player `json:"player"`
	Player
}

func (r PlayerResponse) Snapshot() Player {
	if r.Nested != nil {
		return *r.Nested
	}
	return r.Player
}

type ExpRequest struct {
	Exp int64 `json:"exp"`
}

// Equipment

type Equip struct {
	UID     string `json:"uid"`
	ItemID  string `json:"item_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Slot    string `json:"slot,omitempty"`
	Enhance Amount `json:"enhance"`
	Power   Amount `json:"power"`
}

type EquipsResponse struct {
	Equips []Equip           `json:"equips"`
	Worn   map[string]string `json:"worn,omitempty"` // slot -> uid
}

type WearRequest struct {
	UID  string `json:"uid"`
	Slot string `json:"slot"`
}

type UnwearRequest struct {
	Slot string `json:"slot"`
}

type EnhanceRequest struct {
	UID      string `json:"uid"`
	UseGuard bool   `json:"use_guard"`
}

type EnhanceResponse struct {
	Enhance *Amount `json:"enhance,omitempty"`
	Explode bool    `json:"explode,omitempty"`
}

// Battle

type PvPRequest struct {
	Target string `json:"target"`
}

type BattleLogEntry struct {
	Attacker string `json:"attacker"`
	Defender string `json:"defender"`
	Damage   Amount `json:"damage"`
	Crit     bool   `json:"crit"`
}

type Reward struct {
	Exp     Amount `json:"exp"`
	Gold    Amount `json:"gold"`
	DropUID string `json:"drop_uid,omitempty"`
}

type PvPResponse struct {
	Log    []BattleLogEntry `json:"log"`
	Winner string           `json:"winner"`
	Reward Reward           `json:"reward"`
}

// Rank

type RankEntry struct {
	Username string  `json:"username"`
	Power    *Amount `json:"power,omitempty"`
	Elo      *Amount `json:"elo,omitempty"`
}

type RankResponse struct {
	Rank []RankEntry `json:"rank"`
}

// Clicker

type ClickResponse struct {
	Gold        *Amount `json:"gold"`
	Combo       Amount  `json:"combo"`
	Critical    bool    `json:"critical"`
	TotalClicks Amount  `json:"total_clicks"`
	CooldownMS  Amount  `json:"cooldown_ms"`
}

// Shop / inventory

type ShopItem struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Price    Amount `json:"price"`
	Desc     string `json:"desc,omitempty"`
	MaxStack Amount `json:"max_stack,omitempty"`
}

type ShopListResponse struct {
	Items []ShopItem `json:"items"`
}

type ShopBuyRequest struct {
	Username string `json:"username,omitempty"`
	ItemID   string `json:"item_id"`
	Qty      int64  `json:"qty"`
}

type ShopBuyResponse struct {
	Gold   *Amount `json:"gold"`
	NewQty Amount  `json:"new_qty"`
}

type InventoryItem struct {
	ItemID string `json:"item_id"`
	UID    string `json:"uid,omitempty"`
	Qty    Amount `json:"qty"`
}

// InventoryResponse accepts {"items": [...]} and {"inventory": {"items": [...]}}.
type InventoryResponse struct {
	Items     []InventoryItem `json:"items"`
	Inventory *struct {
		Items []InventoryItem `json:"items"`
	} `json:"inventory"`
}

func (r InventoryResponse) All() []InventoryItem {
	if len(r.Items) == 0 && r.Inventory != nil {
		return r.Inventory.Items
	}
	return r.Items
}

// Auction

const (
	AuctionOpen = "open"
	AuctionSold = "sold"

	AuctionItem  = "item"
	AuctionEquip = "equip"
)

type Listing struct {
	AuctionID     int64  `json:"auction_id"`
	Seller        string `json:"seller"`
	Type          string `json:"type,omitempty"`
	ItemID        string `json:"item_id,omitempty"`
	UID           string `json:"uid,omitempty"`
	Qty           Amount `json:"qty"`
	StartPrice    Amount `json:"start_price"`
	CurrentPrice  Amount `json:"current_price"`
	CurrentBidder string `json:"current_bidder,omitempty"`
	BuyoutPrice   Amount `json:"buyout_price,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type AuctionListResponse struct {
	Items    []Listing `json:"items"`
	Auctions []Listing `json:"auctions"`
}

func (r AuctionListResponse) All() []Listing {
	if len(r.Items) == 0 {
		return r.Auctions
	}
	return r.Items
}

type AuctionDetailResponse struct {
	Auction Listing `json:"auction"`
}

type CreateAuctionRequest struct {
	Username    string `json:"username,omitempty"`
	Type        string `json:"type"`
	ItemID      string `json:"item_id,omitempty"`
	UID         string `json:"uid,omitempty"`
	Qty         int64  `json:"qty"`
	StartPrice  int64  `json:"start_price"`
	BuyoutPrice *int64 `json:"buyout_price,omitempty"`
}

type CreateAuctionResponse struct {
	AuctionID int64 `json:"auction_id"`
}

type BidRequest struct {
	Username  string `json:"username,omitempty"`
	AuctionID int64  `json:"auction_id"`
	BidAmount int64  `json:"bid_amount"`
}

type AuctionBuyRequest struct {
	Username  string `json:"username,omitempty"`
	AuctionID int64  `json:"auction_id"`
}

type AuctionBuyResponse struct {
	BuyerGoldAfter  *Amount `json:"buyer_gold_after"`
	SellerGoldAfter *Amount `json:"seller_gold_after,omitempty"`
	Gold            *Amount `json:"gold"`
}

// Friends

type FriendTarget struct {
	Target string `json:"target"`
}

type FriendListResponse struct {
	Friends []Name `json:"friends"`
}

type FriendRequestsResponse struct {
	Requests []Name `json:"requests"`
}

// Admin

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type AdminLoginResponse struct {
	Token      string `json:"token"`
	AdminToken string `json:"admin_token"`
	Root       bool   `json:"root"`
}

type AdminPlayer struct {
	Username    string `json:"username"`
	Gold        Amount `json:"gold"`
	Level       Amount `json:"level"`
	Exp         Amount `json:"exp"`
	Online      bool   `json:"online"`
	Banned      bool   `json:"banned,omitempty"`
	Locked      bool   `json:"locked,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	LastLoginAt string `json:"last_login_at,omitempty"`
}

type AdminPlayersResponse struct {
	Players []AdminPlayer `json:"players"`
}

type AdminOnlineResponse struct {
	OnlinePlayers []string `json:"online_players"`
}

type AdminGoldResponse struct {
	GoldAfter Amount `json:"gold_after"`
}

type AdminInventoryResponse struct {
	NewQty Amount `json:"new_qty"`
}

type AdminAuctionsResponse struct {
	Auctions []Listing `json:"auctions"`
}

type AnnouncementsResponse struct {
	Announcements []string `json:"announcements"`
}

type AnnounceRequest struct {
	Msg string `json:"msg"`
}

// Record is one entry of an admin log stream. Streams are free-form, so
// the fields are kept as decoded.
type Record map[string]any

type ActionLogsResponse struct {
	Actions []Record `json:"actions"`
}

type BattleLogsResponse struct {
	Battles []Record `json:"battles"`
}

type SoldLogsResponse struct {
	Sold []Record `json:"sold"`
}

type BidLogsResponse struct {
	Bids []Record `json:"bids"`
}
