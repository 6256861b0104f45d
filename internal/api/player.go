package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/DoyleJ11/arena-client/internal/types"
)

const CodeAlreadyLoggedIn = "ALREADY_LOGGED_IN"

var ErrNoSession = errors.New("api: not logged in")

// Auth

func (c *Client) Register(ctx context.Context, username, password, confirm string) error {
	return c.do(ctx, post(public, "/auth/register", types.RegisterRequest{
		Username:        username,
		Password:        password,
		ConfirmPassword: confirm,
	}), nil)
}

// Login authenticates and populates the player store. The store is only
// touched when the response carries both a token and a username.
func (c *Client) Login(ctx context.Context, username, password, device string) (types.LoginResponse, error) {
	var resp types.LoginResponse
	err := c.do(ctx, post(public, "/auth/login", types.LoginRequest{
		Username: username,
		Password: password,
		Device:   device,
	}), &resp)
	if err != nil {
		return resp, err
	}

	name := resp.Username
	if name == "" && resp.Player != nil {
		name = resp.Player.Username
	}
	if err := c.player.Login(resp.Token, name); err != nil {
		return resp, fmt.Errorf("api: login response: %w", err)
	}
	return resp, nil
}

// LoginConflict extracts the single-device conflict details from a login
// error, if that is what it is.
func LoginConflict(err error) (types.LoginResponse, bool) {
	e, ok := AsError(err)
	if !ok || e.Code != CodeAlreadyLoggedIn {
		return types.LoginResponse{}, false
	}
	var resp types.LoginResponse
	_ = e.Decode(&resp)
	resp.Code = e.Code
	return resp, true
}

// Logout tells the server and always clears the local session, even when
// the call fails.
func (c *Client) Logout(ctx context.Context) error {
	id, ok := c.player.Identity()
	if !ok {
		return nil
	}
	defer c.player.Logout()
	return c.do(ctx, post(player, "/auth/logout", types.LogoutRequest{
		Username: id.Username,
		Token:    id.Token,
	}), nil)
}

// Player

func (c *Client) Stats(ctx context.Context) (types.Player, error) {
	return c.playerSnapshot(ctx, "/player/stats")
}

func (c *Client) Me(ctx context.Context) (types.Player, error) {
	return c.playerSnapshot(ctx, "/player/me")
}

func (c *Client) playerSnapshot(ctx context.Context, path string) (types.Player, error) {
	var resp types.PlayerResponse
	if err := c.do(ctx, get(player, path), &resp); err != nil {
		return types.Player{}, err
	}
	return resp.Snapshot(), nil
}

func (c *Client) AddExp(ctx context.Context, exp int64) error {
	return c.do(ctx, post(player, "/player/exp", types.ExpRequest{Exp: exp}), nil)
}

func (c *Client) Click(ctx context.Context) (types.ClickResponse, error) {
	var resp types.ClickResponse
	name, ok := c.player.Username()
	if !ok {
		return resp, ErrNoSession
	}
	err := c.do(ctx, post(player, "/click/"+url.PathEscape(name), nil), &resp)
	return resp, err
}

// Equipment

func (c *Client) Equips(ctx context.Context) (types.EquipsResponse, error) {
	var resp types.EquipsResponse
	err := c.do(ctx, get(player, "/player/equips"), &resp)
	return resp, err
}

func (c *Client) Wear(ctx context.Context, uid, slot string) error {
	return c.do(ctx, post(player, "/equip/wear", types.WearRequest{UID: uid, Slot: slot}), nil)
}

func (c *Client) Unwear(ctx context.Context, slot string) error {
	return c.do(ctx, post(player, "/equip/unwear", types.UnwearRequest{Slot: slot}), nil)
}

func (c *Client) Enhance(ctx context.Context, uid string, useGuard bool) (types.EnhanceResponse, error) {
	var resp types.EnhanceResponse
	err := c.do(ctx, post(player, "/equip/enhance", types.EnhanceRequest{UID: uid, UseGuard: useGuard}), &resp)
	return resp, err
}

// Battle / rank

func (c *Client) PvP(ctx context.Context, target string) (types.PvPResponse, error) {
	var resp types.PvPResponse
	err := c.do(ctx, post(player, "/battle/pvp", types.PvPRequest{Target: target}), &resp)
	return resp, err
}

const (
	BoardPower  = "power"
	BoardElo    = "elo"
	BoardWeekly = "weekly"
)

var ErrUnknownBoard = errors.New("api: unknown rank board")

func (c *Client) Rank(ctx context.Context, board string) ([]types.RankEntry, error) {
	switch board {
	case BoardPower, BoardElo, BoardWeekly:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, board)
	}
	var resp types.RankResponse
	if err := c.do(ctx, get(player, "/rank/"+board), &resp); err != nil {
		return nil, err
	}
	return resp.Rank, nil
}

// Shop / inventory

func (c *Client) Shop(ctx context.Context) ([]types.ShopItem, error) {
	var resp types.ShopListResponse
	if err := c.do(ctx, get(player, "/shop/list"), &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) Buy(ctx context.Context, itemID string, qty int64) (types.ShopBuyResponse, error) {
	var resp types.ShopBuyResponse
	name, _ := c.player.Username()
	err := c.do(ctx, post(player, "/shop/buy", types.ShopBuyRequest{Username: name, ItemID: itemID, Qty: qty}), &resp)
	return resp, err
}

func (c *Client) Inventory(ctx context.Context) ([]types.InventoryItem, error) {
	var resp types.InventoryResponse
	if err := c.do(ctx, get(player, "/shop/inventory"), &resp); err != nil {
		return nil, err
	}
	return resp.All(), nil
}

// Auction

func (c *Client) Auctions(ctx context.Context) ([]types.Listing, error) {
	var resp types.AuctionListResponse
	if err := c.do(ctx, get(player, "/auction/list"), &resp); err != nil {
		return nil, err
	}
	return resp.All(), nil
}

// Auction reads one listing, open or not.
func (c *Client) Auction(ctx context.Context, auctionID int64) (types.Listing, error) {
	var resp types.AuctionDetailResponse
	if err := c.do(ctx, get(player, fmt.Sprintf("/auction/%d", auctionID)), &resp); err != nil {
		return types.Listing{}, err
	}
	return resp.Auction, nil
}

func (c *Client) CreateAuction(ctx context.Context, req types.CreateAuctionRequest) (int64, error) {
	var resp types.CreateAuctionResponse
	req.Username, _ = c.player.Username()
	if err := c.do(ctx, post(player, "/auction/create", req), &resp); err != nil {
		return 0, err
	}
	return resp.AuctionID, nil
}

// Bid submits amount as given. The server decides whether it beats the
// current price.
func (c *Client) Bid(ctx context.Context, auctionID, amount int64) error {
	name, _ := c.player.Username()
	return c.do(ctx, post(player, "/auction/bid", types.BidRequest{
		Username:  name,
		AuctionID: auctionID,
		BidAmount: amount,
	}), nil)
}

func (c *Client) BuyNow(ctx context.Context, auctionID int64) (types.AuctionBuyResponse, error) {
	var resp types.AuctionBuyResponse
	name, _ := c.player.Username()
	err := c.do(ctx, post(player, "/auction/buy", types.AuctionBuyRequest{Username: name, AuctionID: auctionID}), &resp)
	return resp, err
}

func (c *Client) CancelAuction(ctx context.Context, auctionID int64) error {
	in := post(player, fmt.Sprintf("/auction/cancel/%d", auctionID), nil)
	if name, ok := c.player.Username(); ok {
		in.header = http.Header{"X-Username": {name}}
	}
	return c.do(ctx, in, nil)
}

// Friends

func (c *Client) RequestFriend(ctx context.Context, target string) error {
	return c.friendAction(ctx, "request", target)
}

func (c *Client) AcceptFriend(ctx context.Context, target string) error {
	return c.friendAction(ctx, "accept", target)
}

func (c *Client) RejectFriend(ctx context.Context, target string) error {
	return c.friendAction(ctx, "reject", target)
}

func (c *Client) RemoveFriend(ctx context.Context, target string) error {
	return c.friendAction(ctx, "remove", target)
}

func (c *Client) friendAction(ctx context.Context, action, target string) error {
	return c.do(ctx, post(player, "/friend/"+action, types.FriendTarget{Target: strings.TrimSpace(target)}), nil)
}

func (c *Client) FriendRequests(ctx context.Context) ([]types.Name, error) {
	var resp types.FriendRequestsResponse
	if err := c.do(ctx, get(player, "/friend/requests"), &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

func (c *Client) Friends(ctx context.Context) ([]types.Name, error) {
	var resp types.FriendListResponse
	if err := c.do(ctx, get(player, "/friend/list"), &resp); err != nil {
		return nil, err
	}
	return resp.Friends, nil
}
