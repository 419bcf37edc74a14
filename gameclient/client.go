// Package gameclient implements the HTTP and JSON-RPC surface of the game
// server: read-only GET endpoints plus the tool-call channel used for every
// state-changing action.
package gameclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"pizzaagent"
)

func init() {
	// The server speaks bare JSON numbers for prices and balances.
	decimal.MarshalJSONWithoutQuotes = true
}

type Client struct {
	baseURL    string
	apiKey     string
	teamID     int
	httpClient pizzaagent.HTTPClient
}

var _ pizzaagent.GameAPI = (*Client)(nil)

func NewClient(cfg pizzaagent.GameConfig, httpClient pizzaagent.HTTPClient) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		teamID:     cfg.TeamID,
		httpClient: httpClient,
	}
}

// TeamID returns the restaurant id this client acts as.
func (c *Client) TeamID() int { return c.teamID }

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, string(body))
	}
	return json.Unmarshal(body, out)
}

// Restaurant fetches our own balance, inventory and open state.
func (c *Client) Restaurant(ctx context.Context) (pizzaagent.Restaurant, error) {
	var r pizzaagent.Restaurant
	err := c.getJSON(ctx, fmt.Sprintf("/restaurant/%d", c.teamID), &r)
	return r, err
}

// Recipes fetches the full recipe catalog.
func (c *Client) Recipes(ctx context.Context) ([]pizzaagent.Recipe, error) {
	var recipes []pizzaagent.Recipe
	err := c.getJSON(ctx, "/recipes", &recipes)
	return recipes, err
}

// MarketEntries fetches the live order book.
func (c *Client) MarketEntries(ctx context.Context) ([]pizzaagent.MarketEntry, error) {
	var entries []pizzaagent.MarketEntry
	err := c.getJSON(ctx, "/market/entries", &entries)
	return entries, err
}

// Menu fetches our currently published menu.
func (c *Client) Menu(ctx context.Context) ([]pizzaagent.MenuItem, error) {
	var items []pizzaagent.MenuItem
	err := c.getJSON(ctx, fmt.Sprintf("/restaurant/%d/menu", c.teamID), &items)
	return items, err
}

// Meals fetches the customers waiting on us in the given turn.
func (c *Client) Meals(ctx context.Context, turnID int) ([]pizzaagent.Meal, error) {
	var meals []pizzaagent.Meal
	path := fmt.Sprintf("/meals?turn_id=%d&restaurant_id=%d", turnID, c.teamID)
	err := c.getJSON(ctx, path, &meals)
	return meals, err
}

// BidHistory fetches past sealed-auction outcomes. The payload shape varies
// between server versions, so it is returned raw for diagnostic dumps.
func (c *Client) BidHistory(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.getJSON(ctx, "/bid_history", &raw)
	return raw, err
}
