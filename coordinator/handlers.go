package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pizzaagent"
	"pizzaagent/market"
	"pizzaagent/planner"
)

// handleSpeaking refreshes the authoritative server state at the top of the
// turn. The heavy lifting, computing the plan, already runs on the
// speculative task started by HandlePhase, so cancelling this handler when
// the bid phase opens early costs nothing.
func (c *Coordinator) handleSpeaking(ctx context.Context, turn *turnState) error {
	rest, err := c.api.Restaurant(ctx)
	if err != nil {
		return fmt.Errorf("speaking: %w", err)
	}
	c.logger.Info("COORDINATOR: speaking phase state",
		"turn_id", turn.id,
		"balance", rest.Balance,
		"inventory_kinds", len(rest.Inventory),
		"is_open", rest.IsOpen,
	)
	c.logPhase(pizzaagent.PhaseLog{Phase: string(PhaseSpeaking), TurnID: turn.id})
	return nil
}

// handleClosedBid submits the sealed bids for the turn. The plan comes from
// the speculative task when it survived, otherwise from the durable snapshot
// or a synchronous rebuild.
func (c *Coordinator) handleClosedBid(ctx context.Context, turn *turnState) error {
	entry := pizzaagent.PhaseLog{Phase: string(PhaseClosedBid), TurnID: turn.id}

	plan, err := c.awaitPlan(ctx, turn)
	if err != nil {
		entry.Error = err.Error()
		entry.Cancelled = ctx.Err() != nil
		c.logPhase(entry)
		return fmt.Errorf("closed_bid: resolving plan: %w", err)
	}
	if plan.Empty() {
		c.logger.Info("COORDINATOR: empty plan, no bids", "turn_id", turn.id)
		c.logPhase(entry)
		return nil
	}

	rest, err := c.api.Restaurant(ctx)
	if err != nil {
		entry.Error = err.Error()
		c.logPhase(entry)
		return fmt.Errorf("closed_bid: %w", err)
	}

	bids := planner.Bids(c.cfg, plan, rest.Balance)
	if len(bids) == 0 {
		c.logger.Info("COORDINATOR: no affordable bids", "turn_id", turn.id, "balance", rest.Balance)
		c.logPhase(entry)
		return nil
	}

	action := pizzaagent.ActionLog{Tool: "closed_bid", Input: map[string]any{"bid_count": len(bids)}}
	if err := c.api.SubmitBids(ctx, bids); err != nil {
		action.Error = err.Error()
		entry.Actions = append(entry.Actions, action)
		entry.Error = err.Error()
		c.logPhase(entry)
		return fmt.Errorf("closed_bid: %w", err)
	}
	entry.Actions = append(entry.Actions, action)
	for _, b := range bids {
		entry.Spend = entry.Spend.Add(b.UnitPrice.Mul(decimal.NewFromInt(int64(b.Quantity))))
	}
	c.logPhase(entry)
	c.logger.Info("COORDINATOR: bids submitted", "turn_id", turn.id, "bids", len(bids), "max_spend", entry.Spend)
	return nil
}

// handleWaiting covers the market window: publish the menu, list surplus
// stock, open the doors, then work the order book until the deficit is
// covered or the rounds run out.
func (c *Coordinator) handleWaiting(ctx context.Context, turn *turnState) error {
	entry := pizzaagent.PhaseLog{Phase: string(PhaseWaiting), TurnID: turn.id}

	plan, err := c.awaitPlan(ctx, turn)
	if err != nil {
		entry.Error = err.Error()
		entry.Cancelled = ctx.Err() != nil
		c.logPhase(entry)
		return fmt.Errorf("waiting: resolving plan: %w", err)
	}
	rest, err := c.api.Restaurant(ctx)
	if err != nil {
		entry.Error = err.Error()
		c.logPhase(entry)
		return fmt.Errorf("waiting: %w", err)
	}
	recipes, err := c.api.Recipes(ctx)
	if err != nil {
		entry.Error = err.Error()
		c.logPhase(entry)
		return fmt.Errorf("waiting: %w", err)
	}

	menu := planner.ComposeMenu(c.cfg, recipes, rest.Inventory)
	if len(menu) > 0 {
		if err := c.api.SaveMenu(ctx, menu); err != nil {
			entry.Actions = append(entry.Actions, pizzaagent.ActionLog{Tool: "save_menu", Error: err.Error()})
			c.logger.Error("COORDINATOR: failed to save menu", "error", err)
		} else {
			entry.Actions = append(entry.Actions, pizzaagent.ActionLog{Tool: "save_menu", Input: map[string]any{"items": len(menu)}})
			turn.serving.SetMenu(menu)
		}
	}

	c.listSurplus(ctx, turn, recipes, plan, rest.Inventory, &entry)

	if err := c.api.SetOpen(ctx, true); err != nil {
		c.logger.Error("COORDINATOR: failed to open restaurant", "error", err)
	} else {
		entry.Actions = append(entry.Actions, pizzaagent.ActionLog{Tool: "update_restaurant_is_open", Input: map[string]any{"is_open": true}})
	}

	report, err := market.RunBuyRounds(ctx, c.cfg, c.api, c.teamID, plan, c.logger)
	entry.Spend = report.Spend
	c.recordCostBasis(turn, report)
	if err != nil {
		entry.Error = err.Error()
		entry.Cancelled = ctx.Err() != nil
		c.logPhase(entry)
		return fmt.Errorf("waiting: buy rounds: %w", err)
	}

	// Purchases may have unlocked dishes; refresh and republish.
	if rest, err = c.api.Restaurant(ctx); err == nil {
		if refreshed := planner.ComposeMenu(c.cfg, recipes, rest.Inventory); len(refreshed) > len(menu) {
			if err := c.api.SaveMenu(ctx, refreshed); err == nil {
				turn.serving.SetMenu(refreshed)
				entry.Actions = append(entry.Actions, pizzaagent.ActionLog{Tool: "save_menu", Input: map[string]any{"items": len(refreshed)}})
			}
		}
	}

	c.logPhase(entry)
	return nil
}

func (c *Coordinator) listSurplus(ctx context.Context, turn *turnState, recipes []pizzaagent.Recipe, plan *pizzaagent.Plan, inv pizzaagent.Inventory, entry *pizzaagent.PhaseLog) {
	byName := make(map[string]pizzaagent.Recipe, len(recipes))
	for _, r := range recipes {
		byName[r.Name] = r
	}
	var focus []pizzaagent.Recipe
	for _, name := range plan.FocusRecipes {
		if r, ok := byName[name]; ok {
			focus = append(focus, r)
		}
	}
	copies := plan.Copies
	if copies < 1 {
		copies = 1
	}

	c.mu.Lock()
	costBasis := clonePriceHints(turn.costBasis)
	c.mu.Unlock()

	surplus := planner.Surplus(inv, planner.TotalNeed(focus, copies))
	for _, lot := range market.SellLots(c.cfg, surplus, costBasis) {
		action := pizzaagent.ActionLog{
			Tool:  "create_market_entry",
			Input: map[string]any{"ingredient": lot.Ingredient, "quantity": lot.Quantity, "price": lot.Price},
		}
		if err := c.api.CreateMarketEntry(ctx, pizzaagent.SideSell, lot.Ingredient, lot.Quantity, lot.Price); err != nil {
			action.Error = err.Error()
			c.logger.Warn("COORDINATOR: failed to list surplus", "ingredient", lot.Ingredient, "error", err)
		}
		entry.Actions = append(entry.Actions, action)
	}
}

func (c *Coordinator) recordCostBasis(turn *turnState, report market.BuyReport) {
	if len(report.Accepted) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, lot := range report.Accepted {
		if prev, ok := turn.costBasis[lot.Ingredient]; !ok || lot.Price.GreaterThan(prev) {
			turn.costBasis[lot.Ingredient] = lot.Price
		}
	}
}

// handleServing runs the dining room until the phase ends: match arriving
// customers to menu dishes, prepare, and serve as kitchens report dishes
// ready. A meal poll backs up the event feed in case arrivals were missed.
// The restaurant is closed on the way out even when cancelled.
func (c *Coordinator) handleServing(ctx context.Context, turn *turnState) error {
	entry := pizzaagent.PhaseLog{Phase: string(PhaseServing), TurnID: turn.id}

	if items, err := c.api.Menu(ctx); err == nil && len(items) > 0 {
		turn.serving.SetMenu(items)
	}

	defer func() {
		// The phase context is usually cancelled by the next dispatch at
		// this point; closing must still go through.
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := c.api.SetOpen(closeCtx, false); err != nil {
			c.logger.Error("COORDINATOR: failed to close restaurant", "error", err)
		}
		entry.Cancelled = ctx.Err() != nil
		c.logPhase(entry)
	}()

	ticker := time.NewTicker(c.cfg.MealPollInterval)
	defer ticker.Stop()

	for {
		c.serveWaiting(ctx, turn, &entry)

		select {
		case <-ctx.Done():
			return nil
		case <-turn.serving.Wake():
		case <-ticker.C:
			meals, err := c.api.Meals(ctx, turn.id)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Warn("COORDINATOR: meal poll failed", "error", err)
				continue
			}
			for _, meal := range meals {
				turn.serving.AddClient(meal)
			}
		}
	}
}

// serveWaiting drains the serving queues: prepare a dish for every newly
// arrived client, serve every dish the kitchen reported ready.
func (c *Coordinator) serveWaiting(ctx context.Context, turn *turnState, entry *pizzaagent.PhaseLog) {
	for _, meal := range turn.serving.TakeArrivals() {
		dish, ok := turn.serving.MatchDish(meal.OrderText)
		if !ok {
			c.logger.Warn("COORDINATOR: no menu match for order",
				"client_id", meal.ClientID, "order", meal.OrderText)
			continue
		}
		action := pizzaagent.ActionLog{Tool: "prepare_dish", Input: map[string]any{"dish_name": dish, "client_id": meal.ClientID}}
		if err := c.api.PrepareDish(ctx, dish); err != nil {
			action.Error = err.Error()
			c.logger.Warn("COORDINATOR: prepare failed", "dish", dish, "error", err)
			entry.Actions = append(entry.Actions, action)
			continue
		}
		entry.Actions = append(entry.Actions, action)
		turn.serving.MarkPrepared(dish, meal.ClientID)
		c.logger.Info("COORDINATOR: dish preparing", "dish", dish, "client_id", meal.ClientID)
	}

	for {
		dish, clientID, ok := turn.serving.NextServe()
		if !ok {
			break
		}
		action := pizzaagent.ActionLog{Tool: "serve_dish", Input: map[string]any{"dish_name": dish, "client_id": clientID}}
		if err := c.api.ServeDish(ctx, dish, clientID); err != nil {
			action.Error = err.Error()
			c.logger.Warn("COORDINATOR: serve failed", "dish", dish, "client_id", clientID, "error", err)
		} else {
			c.logger.Info("COORDINATOR: dish served", "dish", dish, "client_id", clientID)
		}
		entry.Actions = append(entry.Actions, action)
	}
}

// handleStopped ends the turn: flush the audit log and make sure the doors
// are shut before the next turn begins.
func (c *Coordinator) handleStopped(ctx context.Context, turn *turnState) error {
	if err := c.api.SetOpen(ctx, false); err != nil {
		c.logger.Warn("COORDINATOR: failed to close restaurant at stop", "error", err)
	}
	c.logPhase(pizzaagent.PhaseLog{Phase: string(PhaseStopped), TurnID: turn.id})

	if flusher, ok := c.turnLog.(interface{ Flush() error }); ok {
		if err := flusher.Flush(); err != nil {
			c.logger.Error("COORDINATOR: failed to flush turn log", "error", err)
		}
	}
	c.logger.Info("COORDINATOR: turn stopped", "turn_id", turn.id)
	return nil
}
