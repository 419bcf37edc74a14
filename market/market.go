// Package market handles the secondary ingredient market: matching whole
// SELL lots against the plan's remaining deficit, listing surplus stock, and
// pacing the repeated buy rounds of the waiting phase.
package market

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pizzaagent"
	"pizzaagent/planner"
)

// MatchResult is the outcome of one matching pass. Selected lots are meant
// to be accepted whole, Spend is their combined cost, and Residual holds the
// wanted quantities no affordable lot could cover.
type MatchResult struct {
	Selected []pizzaagent.MarketEntry
	Spend    decimal.Decimal
	Residual map[string]int
}

// MatchBuy greedily selects SELL lots covering the wanted quantities. Lots
// are atomic: a lot is taken whole or not at all, never split. Candidates
// are cheapest unit price first with the lower entry id breaking ties; lots
// above the unit price cap, our own lots, and lots whose full cost would
// break the remaining budget are skipped. Matching never spends more than
// budget.
func MatchBuy(want map[string]int, book []pizzaagent.MarketEntry, budget, priceCap decimal.Decimal, ownerID int) MatchResult {
	res := MatchResult{Spend: decimal.Zero, Residual: map[string]int{}}

	byIngredient := map[string][]pizzaagent.MarketEntry{}
	for _, e := range book {
		if e.Side != pizzaagent.SideSell || e.OwnerID == ownerID || e.Quantity <= 0 {
			continue
		}
		byIngredient[e.Ingredient] = append(byIngredient[e.Ingredient], e)
	}
	for _, lots := range byIngredient {
		sort.Slice(lots, func(i, j int) bool {
			if !lots[i].Price.Equal(lots[j].Price) {
				return lots[i].Price.LessThan(lots[j].Price)
			}
			return lots[i].ID < lots[j].ID
		})
	}

	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	remaining := budget
	for _, name := range names {
		wanted := want[name]
		for _, lot := range byIngredient[name] {
			if wanted <= 0 {
				break
			}
			if lot.Price.GreaterThan(priceCap) {
				continue
			}
			cost := lot.Cost()
			if cost.GreaterThan(remaining) {
				continue
			}
			res.Selected = append(res.Selected, lot)
			res.Spend = res.Spend.Add(cost)
			remaining = remaining.Sub(cost)
			wanted -= lot.Quantity
		}
		if wanted > 0 {
			res.Residual[name] = wanted
		}
	}
	return res
}

// Lot is a surplus listing to place on the market.
type Lot struct {
	Ingredient string
	Quantity   int
	Price      decimal.Decimal
}

// SellLots prices the surplus inventory for listing: known cost basis plus
// the configured markup, or the default sell price when the ingredient's
// cost was never observed. Output is ordered by ingredient name.
func SellLots(cfg pizzaagent.StrategyConfig, surplus map[string]int, costBasis map[string]decimal.Decimal) []Lot {
	names := make([]string, 0, len(surplus))
	for name := range surplus {
		names = append(names, name)
	}
	sort.Strings(names)

	markup := decimal.NewFromFloat(1 + cfg.SurplusMarkup)
	fallback := decimal.NewFromFloat(cfg.DefaultSellPrice)

	lots := make([]Lot, 0, len(names))
	for _, name := range names {
		qty := surplus[name]
		if qty <= 0 {
			continue
		}
		price := fallback
		if basis, ok := costBasis[name]; ok && basis.IsPositive() {
			price = basis.Mul(markup)
		}
		lots = append(lots, Lot{Ingredient: name, Quantity: qty, Price: price.Round(2)})
	}
	return lots
}

// Trader is the slice of the game API the buy rounds need.
type Trader interface {
	Restaurant(ctx context.Context) (pizzaagent.Restaurant, error)
	MarketEntries(ctx context.Context) ([]pizzaagent.MarketEntry, error)
	ExecuteTransaction(ctx context.Context, entryID int64) error
}

// BuyReport summarizes the confirmed purchases of a buy-rounds run.
type BuyReport struct {
	Accepted []pizzaagent.MarketEntry
	Spend    decimal.Decimal
}

// RunBuyRounds repeatedly matches and accepts market lots until the plan's
// deficit is covered, the budget slice runs out, a round accepts nothing, or
// the round cap is hit. State is refetched from the server every round, so a
// lot accepted by a competitor between matching and acceptance only costs us
// that one failed call.
func RunBuyRounds(ctx context.Context, cfg pizzaagent.StrategyConfig, trader Trader, ownerID int, plan *pizzaagent.Plan, logger *slog.Logger) (BuyReport, error) {
	report := BuyReport{Spend: decimal.Zero}
	var allocated decimal.Decimal
	for round := 1; round <= cfg.RoundCap; round++ {
		rest, err := trader.Restaurant(ctx)
		if err != nil {
			return report, err
		}
		if round == 1 {
			// The budget slice is fixed from the balance at loop entry.
			// Re-deriving it from the shrinking balance each round would
			// hand every round a fresh fraction of whatever is left.
			allocated = cfg.MarketBudget(rest.Balance)
		}
		remaining := planner.RemainingDeficit(plan, rest.Inventory)
		if len(remaining) == 0 {
			logger.Info("MARKET: deficit covered", "round", round)
			return report, nil
		}
		budget := allocated.Sub(report.Spend)
		if !budget.IsPositive() {
			logger.Info("MARKET: budget exhausted", "round", round, "allocated", allocated, "spent", report.Spend)
			return report, nil
		}

		book, err := trader.MarketEntries(ctx)
		if err != nil {
			return report, err
		}
		match := MatchBuy(remaining, book, budget, cfg.PriceCap(), ownerID)
		if len(match.Selected) == 0 {
			logger.Info("MARKET: no matching lots", "round", round, "residual", match.Residual)
			return report, nil
		}

		accepted := 0
		for _, lot := range match.Selected {
			if err := trader.ExecuteTransaction(ctx, lot.ID); err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				// Somebody else took the lot first.
				logger.Warn("MARKET: transaction failed", "entry_id", lot.ID, "ingredient", lot.Ingredient, "error", err)
				continue
			}
			accepted++
			report.Accepted = append(report.Accepted, lot)
			report.Spend = report.Spend.Add(lot.Cost())
		}
		logger.Info("MARKET: round done", "round", round, "accepted", accepted, "spend", report.Spend)
		if accepted == 0 {
			return report, nil
		}

		if round < cfg.RoundCap {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(cfg.RoundPause):
			}
		}
	}
	return report, nil
}
