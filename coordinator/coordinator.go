// Package coordinator drives the agent through the game's phase cycle. It
// owns the per-turn state, dispatches exactly one handler per phase change
// through the single-flight machine, and routes domain events to whichever
// handler is interested.
package coordinator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pizzaagent"
	"pizzaagent/store"
	"pizzaagent/stream"
)

// turnState is everything the coordinator accumulates during one turn. It is
// replaced wholesale at turn start and on reset, never mutated across turns,
// so a cancelled handler holding the old pointer cannot corrupt the new turn.
type turnState struct {
	id         int
	plan       *pizzaagent.Plan
	planTask   *planTask
	priceHints map[string]decimal.Decimal
	costBasis  map[string]decimal.Decimal
	serving    *servingState
}

func newTurnState(id int) *turnState {
	return &turnState{
		id:         id,
		priceHints: map[string]decimal.Decimal{},
		costBasis:  map[string]decimal.Decimal{},
		serving:    newServingState(),
	}
}

// Coordinator wires the stream events to phase handlers and shared state.
type Coordinator struct {
	cfg     pizzaagent.StrategyConfig
	api     pizzaagent.GameAPI
	store   store.PlanStore
	turnLog pizzaagent.TurnLogger
	logger  *slog.Logger
	teamID  int
	machine *Machine

	mu   sync.Mutex
	turn *turnState
}

// NewCoordinator initializes a new coordinator.
func NewCoordinator(cfg pizzaagent.StrategyConfig, api pizzaagent.GameAPI, planStore store.PlanStore, turnLog pizzaagent.TurnLogger, teamID int, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		api:     api,
		store:   planStore,
		turnLog: turnLog,
		logger:  logger,
		teamID:  teamID,
		machine: NewMachine(logger),
		turn:    newTurnState(0),
	}
}

// Machine exposes the phase machine for shutdown handling.
func (c *Coordinator) Machine() *Machine { return c.machine }

// OnEvent is the stream handler. It runs on the event loop goroutine; phase
// handlers run on their own goroutine via the machine, so everything touched
// here is guarded by the coordinator mutex or the serving state's own lock.
func (c *Coordinator) OnEvent(ctx context.Context, ev stream.Event) {
	switch ev.Type {
	case "game_started":
		var payload struct {
			TurnID int `json:"turn_id"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			c.logger.Warn("COORDINATOR: bad game_started payload", "error", err)
			return
		}
		if payload.TurnID <= 0 {
			payload.TurnID = 1
		}
		c.beginTurn(payload.TurnID)

	case "game_phase_changed":
		var payload struct {
			Phase  string `json:"phase"`
			TurnID int    `json:"turn_id"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			c.logger.Warn("COORDINATOR: bad game_phase_changed payload", "error", err)
			return
		}
		c.HandlePhase(ctx, payload.Phase, payload.TurnID)

	case "game_reset":
		c.Reset()

	case "client_spawned":
		var meal pizzaagent.Meal
		if err := json.Unmarshal(ev.Data, &meal); err != nil {
			c.logger.Warn("COORDINATOR: bad client_spawned payload", "error", err)
			return
		}
		c.currentTurn().serving.AddClient(meal)

	case "preparation_complete":
		var payload struct {
			DishName string `json:"dish_name"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.DishName == "" {
			c.logger.Warn("COORDINATOR: bad preparation_complete payload", "error", err)
			return
		}
		c.currentTurn().serving.DishReady(payload.DishName)

	case "message", "new_message":
		var payload struct {
			Text    string `json:"text"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			c.logger.Warn("COORDINATOR: bad chat payload", "error", err)
			return
		}
		text := payload.Text
		if text == "" {
			text = payload.Message
		}
		c.absorbAuctionResults(text)

	case "heartbeat":
		// Keepalive only.

	default:
		c.logger.Debug("COORDINATOR: ignoring unknown event", "type", ev.Type)
	}
}

// HandlePhase dispatches the handler for a named phase. Unknown phase names
// are logged and ignored. The speculative plan task for the turn starts here,
// on the event loop context, so the speaking handler's cancellation cannot
// take the plan down with it.
func (c *Coordinator) HandlePhase(ctx context.Context, name string, turnID int) {
	phase, ok := ParsePhase(name)
	if !ok {
		c.logger.Warn("COORDINATOR: unknown phase", "phase", name)
		return
	}
	c.logger.Info("COORDINATOR: phase change", "phase", phase, "turn_id", turnID)

	if turnID > 0 {
		c.ensureTurn(turnID)
	}
	turn := c.currentTurn()

	if phase == PhaseSpeaking {
		c.startPlanTask(ctx, turn)
	}

	handler := c.handlerFor(phase)
	if handler == nil {
		// idle has no work attached.
		c.machine.CancelRunning()
		return
	}
	c.machine.Dispatch(ctx, phase, func(hctx context.Context) error {
		return handler(hctx, turn)
	})
}

func (c *Coordinator) handlerFor(phase Phase) func(context.Context, *turnState) error {
	switch phase {
	case PhaseSpeaking:
		return c.handleSpeaking
	case PhaseClosedBid:
		return c.handleClosedBid
	case PhaseWaiting:
		return c.handleWaiting
	case PhaseServing:
		return c.handleServing
	case PhaseStopped:
		return c.handleStopped
	default:
		return nil
	}
}

// Reset cancels any running handler and drops all per-turn state.
func (c *Coordinator) Reset() {
	c.logger.Info("COORDINATOR: reset")
	c.machine.CancelRunning()
	c.mu.Lock()
	c.turn = newTurnState(0)
	c.mu.Unlock()
}

func (c *Coordinator) beginTurn(turnID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn.id == turnID {
		return
	}
	c.logger.Info("COORDINATOR: turn start", "turn_id", turnID)
	next := newTurnState(turnID)
	// Observed auction prices stay useful across turns.
	next.priceHints = c.turn.priceHints
	next.costBasis = c.turn.costBasis
	c.turn = next
}

// ensureTurn adopts a turn id carried on a phase-change event when no
// game_started was seen, e.g. after joining mid-game or a reconnect.
func (c *Coordinator) ensureTurn(turnID int) {
	c.mu.Lock()
	known := c.turn.id
	c.mu.Unlock()
	if known != turnID {
		c.beginTurn(turnID)
	}
}

func (c *Coordinator) currentTurn() *turnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn
}

func (c *Coordinator) setPlan(turn *turnState, plan *pizzaagent.Plan) {
	c.mu.Lock()
	turn.plan = plan
	c.mu.Unlock()
}

// absorbAuctionResults harvests winning prices from auction result chatter
// into the price hints for the next turn's bids.
func (c *Coordinator) absorbAuctionResults(text string) {
	results := ParseAuctionResults(text)
	if len(results) == 0 {
		return
	}
	turn := c.currentTurn()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range results {
		if !r.Bought {
			continue
		}
		if prev, ok := turn.priceHints[r.Ingredient]; !ok || r.UnitPrice.GreaterThan(prev) {
			turn.priceHints[r.Ingredient] = r.UnitPrice
		}
		if r.RestaurantID == c.teamID {
			turn.costBasis[r.Ingredient] = r.UnitPrice
		}
	}
	c.logger.Info("COORDINATOR: absorbed auction results", "results", len(results))
}

func (c *Coordinator) logPhase(entry pizzaagent.PhaseLog) {
	entry.Timestamp = time.Now()
	if err := c.turnLog.LogPhase(entry); err != nil {
		c.logger.Error("COORDINATOR: failed to record phase log", "error", err, "phase", entry.Phase)
	}
}
