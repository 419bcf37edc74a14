package pizzaagent

import (
	"context"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// MarketSide distinguishes order-book entries offering to buy from those
// offering to sell.
type MarketSide string

const (
	SideBuy  MarketSide = "BUY"
	SideSell MarketSide = "SELL"
)

// Recipe is one entry of the server's recipe catalog. Ingredient quantities
// are whole units per cooked copy.
type Recipe struct {
	Name          string         `json:"name"`
	Prestige      int            `json:"prestige"`
	Ingredients   map[string]int `json:"ingredients"`
	PreparationMs int            `json:"preparationTimeMs"`
}

// Valid reports whether the recipe can participate in planning. A recipe
// with no ingredients, or with a non-positive quantity, is excluded.
func (r Recipe) Valid() bool {
	if len(r.Ingredients) == 0 {
		return false
	}
	for _, qty := range r.Ingredients {
		if qty <= 0 {
			return false
		}
	}
	return true
}

// Inventory maps ingredient names to owned whole-unit quantities. It is
// server-owned: the coordinator refreshes it at every phase entry and never
// guesses it.
type Inventory map[string]int

func (inv Inventory) Qty(name string) int {
	return inv[name]
}

func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}

// MarketEntry is an atomic lot on the secondary market: it is either taken
// whole at Price per unit or left alone.
type MarketEntry struct {
	ID         int64           `json:"id"`
	Side       MarketSide      `json:"side"`
	Ingredient string          `json:"ingredient_name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	OwnerID    int             `json:"owner_id"`
}

// Cost is the full cost of accepting the lot.
func (e MarketEntry) Cost() decimal.Decimal {
	return e.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Bid is one closed-auction offer: Quantity units at UnitPrice each.
type Bid struct {
	Ingredient string          `json:"ingredient"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"bid"`
}

type MenuItem struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Restaurant is the server's view of our own restaurant.
type Restaurant struct {
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Inventory Inventory       `json:"inventory"`
	IsOpen    bool            `json:"is_open"`
}

// Meal is a pending customer order reported by the meals endpoint.
type Meal struct {
	ClientID   string `json:"id"`
	ClientName string `json:"clientName"`
	OrderText  string `json:"orderText"`
}

// Plan is the per-turn procurement artifact: the recipes the turn aims to
// cook, the ingredient quantities still to acquire, price hints from past
// auctions, and the primary/secondary partition used to bias budget share.
// A Plan is produced once per turn, persisted through a PlanStore, and
// treated as an immutable value by later phases.
type Plan struct {
	TurnID       int                        `json:"turn_id"`
	FocusRecipes []string                   `json:"focus_recipes"`
	Copies       int                        `json:"copies_target"`
	Deficits     map[string]int             `json:"ingredient_quantities"`
	Baseline     Inventory                  `json:"baseline_inventory,omitempty"`
	Primary      []string                   `json:"primary_ingredients"`
	Secondary    []string                   `json:"secondary_ingredients"`
	PriceHints   map[string]decimal.Decimal `json:"price_hints,omitempty"`
}

// IsValid checks the Plan invariants: at least one focus recipe, strictly
// positive deficits, and a partition that covers every deficit ingredient.
func (p *Plan) IsValid() bool {
	if p == nil || len(p.FocusRecipes) == 0 {
		return false
	}
	part := make(map[string]bool, len(p.Primary)+len(p.Secondary))
	for _, name := range p.Primary {
		part[name] = true
	}
	for _, name := range p.Secondary {
		part[name] = true
	}
	for name, qty := range p.Deficits {
		if qty <= 0 || !part[name] {
			return false
		}
	}
	return true
}

// Empty reports whether the plan calls for no purchases at all.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Deficits) == 0
}

// Ingredients returns the deficit ingredients, primary partition first,
// each partition sorted for deterministic iteration.
func (p *Plan) Ingredients() []string {
	primary := append([]string(nil), p.Primary...)
	secondary := append([]string(nil), p.Secondary...)
	sort.Strings(primary)
	sort.Strings(secondary)
	return append(primary, secondary...)
}

// GameAPI is the narrow seam to the game server the core depends on. The
// gameclient package provides the HTTP/JSON-RPC implementation; tests supply
// scripted fakes.
type GameAPI interface {
	Restaurant(ctx context.Context) (Restaurant, error)
	Recipes(ctx context.Context) ([]Recipe, error)
	MarketEntries(ctx context.Context) ([]MarketEntry, error)
	Menu(ctx context.Context) ([]MenuItem, error)
	Meals(ctx context.Context, turnID int) ([]Meal, error)

	SubmitBids(ctx context.Context, bids []Bid) error
	SaveMenu(ctx context.Context, items []MenuItem) error
	CreateMarketEntry(ctx context.Context, side MarketSide, ingredient string, quantity int, price decimal.Decimal) error
	ExecuteTransaction(ctx context.Context, entryID int64) error
	PrepareDish(ctx context.Context, dish string) error
	ServeDish(ctx context.Context, dish, clientID string) error
	SetOpen(ctx context.Context, open bool) error
}
