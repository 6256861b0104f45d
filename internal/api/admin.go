package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/DoyleJ11/arena-client/internal/types"
)

// AdminLogin authenticates the admin console. The token may come back as
// "token" or "admin_token".
func (c *Client) AdminLogin(ctx context.Context, password string) (types.AdminLoginResponse, error) {
	var resp types.AdminLoginResponse
	if err := c.do(ctx, post(public, "/admin/login", types.AdminLoginRequest{Password: password}), &resp); err != nil {
		return resp, err
	}
	tok := resp.Token
	if tok == "" {
		tok = resp.AdminToken
	}
	if err := c.admin.LoginAdmin(tok, resp.Root); err != nil {
		return resp, fmt.Errorf("api: admin login response: %w", err)
	}
	return resp, nil
}

// AdminLogout drops the admin token locally. The server has no logout
// endpoint for it.
func (c *Client) AdminLogout() { c.admin.Logout() }

func (c *Client) Players(ctx context.Context) ([]types.AdminPlayer, error) {
	var resp types.AdminPlayersResponse
	if err := c.do(ctx, get(admin, "/admin/players"), &resp); err != nil {
		return nil, err
	}
	return resp.Players, nil
}

// Online lists the usernames holding a live session.
func (c *Client) Online(ctx context.Context) ([]string, error) {
	var resp types.AdminOnlineResponse
	if err := c.do(ctx, get(admin, "/admin/online"), &resp); err != nil {
		return nil, err
	}
	return resp.OnlinePlayers, nil
}

// GrantGold adds amount (negative to take) and returns the balance after.
// The server clamps the balance at zero.
func (c *Client) GrantGold(ctx context.Context, username string, amount int64) (int64, error) {
	in := post(admin, "/admin/gold/"+url.PathEscape(username), nil)
	in.query = url.Values{"amount": {strconv.FormatInt(amount, 10)}}
	var resp types.AdminGoldResponse
	if err := c.do(ctx, in, &resp); err != nil {
		return 0, err
	}
	return int64(resp.GoldAfter), nil
}

// GrantItem changes a player's stack of itemID by qty and returns the new
// quantity.
func (c *Client) GrantItem(ctx context.Context, username, itemID string, qty int64) (int64, error) {
	in := post(admin, "/admin/inventory/"+url.PathEscape(username)+"/"+url.PathEscape(itemID), nil)
	in.query = url.Values{"qty": {strconv.FormatInt(qty, 10)}}
	var resp types.AdminInventoryResponse
	if err := c.do(ctx, in, &resp); err != nil {
		return 0, err
	}
	return int64(resp.NewQty), nil
}

// AdminAuctions lists every stored auction, settled or not.
func (c *Client) AdminAuctions(ctx context.Context) ([]types.Listing, error) {
	var resp types.AdminAuctionsResponse
	if err := c.do(ctx, get(admin, "/admin/auctions"), &resp); err != nil {
		return nil, err
	}
	return resp.Auctions, nil
}

// DeleteAuction removes a listing and returns the goods to the seller.
func (c *Client) DeleteAuction(ctx context.Context, auctionID int64) error {
	return c.do(ctx, del(admin, "/admin/auction/"+strconv.FormatInt(auctionID, 10)), nil)
}

func (c *Client) Ban(ctx context.Context, username string) error {
	return c.do(ctx, post(admin, "/admin/ban/"+url.PathEscape(username), nil), nil)
}

func (c *Client) Unban(ctx context.Context, username string) error {
	return c.do(ctx, post(admin, "/admin/unban/"+url.PathEscape(username), nil), nil)
}

func (c *Client) Unlock(ctx context.Context, username string) error {
	return c.do(ctx, post(admin, "/admin/unlock/"+url.PathEscape(username), nil), nil)
}

func (c *Client) Announcements(ctx context.Context) ([]string, error) {
	var resp types.AnnouncementsResponse
	if err := c.do(ctx, get(admin, "/admin/announce"), &resp); err != nil {
		return nil, err
	}
	return resp.Announcements, nil
}

// Announce sends msg both as a query parameter and in the body; the backend
// reads the query form.
func (c *Client) Announce(ctx context.Context, msg string) error {
	in := post(admin, "/admin/announce", types.AnnounceRequest{Msg: msg})
	in.query = url.Values{"msg": {msg}}
	return c.do(ctx, in, nil)
}

func (c *Client) DeleteAnnouncement(ctx context.Context, index int) error {
	return c.do(ctx, del(admin, "/admin/announce/"+strconv.Itoa(index)), nil)
}

func (c *Client) ClearAnnouncements(ctx context.Context) error {
	return c.do(ctx, del(admin, "/admin/announce"), nil)
}

func (c *Client) ActionLogs(ctx context.Context) ([]types.Record, error) {
	var resp types.ActionLogsResponse
	if err := c.do(ctx, get(admin, "/admin/logs"), &resp); err != nil {
		return nil, err
	}
	return resp.Actions, nil
}

func (c *Client) BattleLogs(ctx context.Context) ([]types.Record, error) {
	var resp types.BattleLogsResponse
	if err := c.do(ctx, get(admin, "/admin/battles"), &resp); err != nil {
		return nil, err
	}
	return resp.Battles, nil
}

func (c *Client) SoldLogs(ctx context.Context) ([]types.Record, error) {
	var resp types.SoldLogsResponse
	if err := c.do(ctx, get(admin, "/admin/auction/sold"), &resp); err != nil {
		return nil, err
	}
	return resp.Sold, nil
}

func (c *Client) BidLogs(ctx context.Context) ([]types.Record, error) {
	var resp types.BidLogsResponse
	if err := c.do(ctx, get(admin, "/admin/bids"), &resp); err != nil {
		return nil, err
	}
	return resp.Bids, nil
}
