package gameclient

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pizzaagent"
)

// SubmitBids sends the sealed auction bids for the current turn. Bids with a
// non-positive quantity are dropped rather than rejected server-side.
func (c *Client) SubmitBids(ctx context.Context, bids []pizzaagent.Bid) error {
	payload := make([]map[string]any, 0, len(bids))
	for _, b := range bids {
		if b.Quantity <= 0 {
			continue
		}
		payload = append(payload, map[string]any{
			"ingredient": b.Ingredient,
			"quantity":   b.Quantity,
			"bid":        b.UnitPrice,
		})
	}
	err := c.callTool(ctx, "closed_bid", map[string]any{"bids": payload})
	if err != nil {
		return fmt.Errorf("submitting %d bids: %w", len(payload), err)
	}
	return nil
}

// SaveMenu replaces the published menu with the given items.
func (c *Client) SaveMenu(ctx context.Context, items []pizzaagent.MenuItem) error {
	payload := make([]map[string]any, 0, len(items))
	for _, it := range items {
		payload = append(payload, map[string]any{
			"name":  it.Name,
			"price": it.Price,
		})
	}
	err := c.callTool(ctx, "save_menu", map[string]any{"items": payload})
	if err != nil {
		return fmt.Errorf("saving menu of %d items: %w", len(payload), err)
	}
	return nil
}

// CreateMarketEntry lists a new lot on the secondary market.
func (c *Client) CreateMarketEntry(ctx context.Context, side pizzaagent.MarketSide, ingredient string, quantity int, price decimal.Decimal) error {
	err := c.callTool(ctx, "create_market_entry", map[string]any{
		"side":            string(side),
		"ingredient_name": ingredient,
		"quantity":        quantity,
		"price":           price,
	})
	if err != nil {
		return fmt.Errorf("creating %s entry for %s x%d: %w", side, ingredient, quantity, err)
	}
	return nil
}

// ExecuteTransaction accepts an existing market lot in full by its id.
func (c *Client) ExecuteTransaction(ctx context.Context, entryID int64) error {
	err := c.callTool(ctx, "execute_transaction", map[string]any{
		"market_entry_id": entryID,
	})
	if err != nil {
		return fmt.Errorf("executing transaction on entry %d: %w", entryID, err)
	}
	return nil
}

// DeleteMarketEntry removes one of our own listed lots.
func (c *Client) DeleteMarketEntry(ctx context.Context, entryID int64) error {
	err := c.callTool(ctx, "delete_market_entry", map[string]any{
		"market_entry_id": entryID,
	})
	if err != nil {
		return fmt.Errorf("deleting market entry %d: %w", entryID, err)
	}
	return nil
}

// PrepareDish starts preparation of a dish during the serving phase.
func (c *Client) PrepareDish(ctx context.Context, dish string) error {
	err := c.callTool(ctx, "prepare_dish", map[string]any{"dish_name": dish})
	if err != nil {
		return fmt.Errorf("preparing dish %q: %w", dish, err)
	}
	return nil
}

// ServeDish serves a prepared dish to a waiting customer.
func (c *Client) ServeDish(ctx context.Context, dish, clientID string) error {
	err := c.callTool(ctx, "serve_dish", map[string]any{
		"dish_name": dish,
		"client_id": clientID,
	})
	if err != nil {
		return fmt.Errorf("serving dish %q to client %s: %w", dish, clientID, err)
	}
	return nil
}

// SetOpen opens or closes the restaurant to customers.
func (c *Client) SetOpen(ctx context.Context, open bool) error {
	err := c.callTool(ctx, "update_restaurant_is_open", map[string]any{"is_open": open})
	if err != nil {
		return fmt.Errorf("setting restaurant open=%t: %w", open, err)
	}
	return nil
}

// SendMessage sends a direct message to another restaurant.
func (c *Client) SendMessage(ctx context.Context, recipientID int, text string) error {
	err := c.callTool(ctx, "send_message", map[string]any{
		"recipient_id": recipientID,
		"text":         text,
	})
	if err != nil {
		return fmt.Errorf("sending message to restaurant %d: %w", recipientID, err)
	}
	return nil
}
