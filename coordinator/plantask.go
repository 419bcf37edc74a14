package coordinator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"pizzaagent"
	"pizzaagent/planner"
)

func clonePriceHints(hints map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(hints))
	for k, v := range hints {
		out[k] = v
	}
	return out
}

// planTask is the speculative plan computation started at the top of a turn.
// It runs on the event loop context, not the speaking handler's, so a phase
// change cancelling the speaking handler leaves the plan computation alive.
// Fields are written once before done is closed.
type planTask struct {
	done chan struct{}
	plan *pizzaagent.Plan
	err  error
}

func (c *Coordinator) startPlanTask(ctx context.Context, turn *turnState) {
	c.mu.Lock()
	if turn.planTask != nil {
		c.mu.Unlock()
		return
	}
	t := &planTask{done: make(chan struct{})}
	turn.planTask = t
	priceHints := clonePriceHints(turn.priceHints)
	turnID := turn.id
	c.mu.Unlock()

	c.logger.Info("COORDINATOR: starting speculative plan task", "turn_id", turnID)
	go func() {
		defer close(t.done)
		t.plan, t.err = c.computePlan(ctx, priceHints, turnID)
		if t.err != nil {
			c.logger.Error("COORDINATOR: plan task failed", "turn_id", turnID, "error", t.err)
			return
		}
		c.persistPlan(ctx, t.plan)
	}()
}

func (c *Coordinator) computePlan(ctx context.Context, hints map[string]decimal.Decimal, turnID int) (*pizzaagent.Plan, error) {
	rest, err := c.api.Restaurant(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching restaurant: %w", err)
	}
	recipes, err := c.api.Recipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching recipes: %w", err)
	}
	plan := planner.Build(c.cfg, recipes, rest, hints, turnID)
	c.logger.Info("COORDINATOR: plan computed",
		"turn_id", turnID,
		"focus_recipes", plan.FocusRecipes,
		"deficit_ingredients", len(plan.Deficits),
	)
	return plan, nil
}

// persistPlan writes the durable snapshot that survives a cancelled plan
// task on the next phase.
func (c *Coordinator) persistPlan(ctx context.Context, plan *pizzaagent.Plan) {
	data, err := json.Marshal(plan)
	if err != nil {
		c.logger.Error("COORDINATOR: failed to marshal plan", "error", err)
		return
	}
	if err := c.store.Save(ctx, data); err != nil {
		c.logger.Error("COORDINATOR: failed to persist plan", "error", err)
		return
	}
	c.logger.Info("COORDINATOR: plan persisted", "turn_id", plan.TurnID)
}

// awaitPlan resolves the turn's plan in order of preference: already in
// memory, the speculative task's result, the durable snapshot, and as a last
// resort a synchronous rebuild.
func (c *Coordinator) awaitPlan(ctx context.Context, turn *turnState) (*pizzaagent.Plan, error) {
	c.mu.Lock()
	plan, task, turnID := turn.plan, turn.planTask, turn.id
	priceHints := clonePriceHints(turn.priceHints)
	c.mu.Unlock()

	if plan.IsValid() {
		return plan, nil
	}

	if task != nil {
		select {
		case <-task.done:
			if task.err == nil && task.plan.IsValid() {
				c.setPlan(turn, task.plan)
				return task.plan, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if data, err := c.store.Load(ctx); err == nil {
		var snapshot pizzaagent.Plan
		if jerr := json.Unmarshal(data, &snapshot); jerr == nil && snapshot.IsValid() && snapshot.TurnID == turnID {
			c.logger.Info("COORDINATOR: recovered plan from snapshot", "turn_id", turnID)
			c.setPlan(turn, &snapshot)
			return &snapshot, nil
		}
	}

	c.logger.Warn("COORDINATOR: rebuilding plan synchronously", "turn_id", turnID)
	plan, err := c.computePlan(ctx, priceHints, turnID)
	if err != nil {
		return nil, err
	}
	c.setPlan(turn, plan)
	c.persistPlan(ctx, plan)
	return plan, nil
}
