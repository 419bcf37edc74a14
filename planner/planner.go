// Package planner turns the recipe catalog, current inventory and balance
// into a per-turn procurement plan: which recipes to chase, what to buy, and
// what to bid. Everything here is pure computation over small inputs, so the
// coordinator can call it inline without yielding.
package planner

import (
	"sort"

	"github.com/shopspring/decimal"

	"pizzaagent"
)

// SelectFocus picks the recipes a turn should chase. The flagship is the
// recipe with the best prestige-to-missing-ingredients ratio; backups are
// recipes whose ingredient overlap with inventory and prestige clear a fixed
// threshold, best first. The flagship is always first in the result.
func SelectFocus(recipes []pizzaagent.Recipe, inv pizzaagent.Inventory) []pizzaagent.Recipe {
	var valid []pizzaagent.Recipe
	for _, r := range recipes {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	flagship := valid[0]
	best := flagshipScore(flagship, inv)
	for _, r := range valid[1:] {
		if s := flagshipScore(r, inv); s > best {
			flagship, best = r, s
		}
	}

	type scored struct {
		recipe pizzaagent.Recipe
		score  float64
	}
	var backups []scored
	for _, r := range valid {
		if r.Name == flagship.Name {
			continue
		}
		if s := backupScore(r, inv); s >= backupThreshold {
			backups = append(backups, scored{r, s})
		}
	}
	sort.SliceStable(backups, func(i, j int) bool { return backups[i].score > backups[j].score })

	focus := []pizzaagent.Recipe{flagship}
	for _, b := range backups {
		focus = append(focus, b.recipe)
	}
	return focus
}

const backupThreshold = 0.2

// flagshipScore favors high prestige achievable with few missing ingredient
// kinds. A fully stocked recipe divides by one, not zero.
func flagshipScore(r pizzaagent.Recipe, inv pizzaagent.Inventory) float64 {
	missing := 0
	for name, qty := range r.Ingredients {
		if inv.Qty(name) < qty {
			missing++
		}
	}
	if missing < 1 {
		missing = 1
	}
	return float64(r.Prestige) / float64(missing)
}

func backupScore(r pizzaagent.Recipe, inv pizzaagent.Inventory) float64 {
	covered := 0
	for name, qty := range r.Ingredients {
		if inv.Qty(name) >= qty {
			covered++
		}
	}
	overlap := float64(covered) / float64(len(r.Ingredients))
	return overlap*0.6 + float64(r.Prestige)/100*0.4
}

// SimplestRecipes returns up to n valid recipes ordered by how cheap they are
// to complete: fewest ingredient kinds, then smallest total quantity, then
// fastest preparation, then highest prestige as the tie breaker.
func SimplestRecipes(recipes []pizzaagent.Recipe, n int) []pizzaagent.Recipe {
	var valid []pizzaagent.Recipe
	for _, r := range recipes {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		a, b := valid[i], valid[j]
		if len(a.Ingredients) != len(b.Ingredients) {
			return len(a.Ingredients) < len(b.Ingredients)
		}
		if ta, tb := totalQty(a), totalQty(b); ta != tb {
			return ta < tb
		}
		if a.PreparationMs != b.PreparationMs {
			return a.PreparationMs < b.PreparationMs
		}
		return a.Prestige > b.Prestige
	})
	if n >= 0 && len(valid) > n {
		valid = valid[:n]
	}
	return valid
}

func totalQty(r pizzaagent.Recipe) int {
	total := 0
	for _, qty := range r.Ingredients {
		total += qty
	}
	return total
}

// Build produces the turn's Plan. Deficits are computed recipe by recipe in
// priority order against inventory plus everything already planned, so a
// shared ingredient is never bought twice: the flagship's purchase covers the
// backups before they add their own contribution.
func Build(cfg pizzaagent.StrategyConfig, recipes []pizzaagent.Recipe, rest pizzaagent.Restaurant, hints map[string]decimal.Decimal, turnID int) *pizzaagent.Plan {
	plan := &pizzaagent.Plan{
		TurnID:   turnID,
		Copies:   cfg.MaxCopies,
		Deficits: map[string]int{},
		Baseline: rest.Inventory.Clone(),
	}
	if !rest.Balance.IsPositive() {
		return plan
	}

	focus := SelectFocus(recipes, rest.Inventory)
	if len(focus) == 0 {
		return plan
	}

	backupCopies := cfg.MaxCopies - 1
	if backupCopies < 1 {
		backupCopies = 1
	}

	// Cheap fillers round out the plan so a lost auction on the flagship
	// still leaves something cookable.
	chosen := make(map[string]bool, len(focus))
	for _, r := range focus {
		chosen[r.Name] = true
	}
	var extras []pizzaagent.Recipe
	for _, r := range SimplestRecipes(recipes, -1) {
		if len(extras) == cfg.ExtraRecipes {
			break
		}
		if !chosen[r.Name] {
			extras = append(extras, r)
			chosen[r.Name] = true
		}
	}

	planned := rest.Inventory.Clone()
	primarySet := map[string]bool{}

	addDeficit := func(r pizzaagent.Recipe, copies int, primary bool) {
		for name, perCopy := range r.Ingredients {
			need := perCopy * copies
			short := need - planned.Qty(name)
			if short <= 0 {
				continue
			}
			plan.Deficits[name] += short
			planned[name] += short
			if primary {
				primarySet[name] = true
			}
		}
	}

	addDeficit(focus[0], cfg.MaxCopies, true)
	for _, r := range focus[1:] {
		addDeficit(r, backupCopies, false)
	}
	for _, r := range extras {
		addDeficit(r, 1, false)
	}

	for _, r := range focus {
		plan.FocusRecipes = append(plan.FocusRecipes, r.Name)
	}
	for name := range plan.Deficits {
		if primarySet[name] {
			plan.Primary = append(plan.Primary, name)
		} else {
			plan.Secondary = append(plan.Secondary, name)
		}
	}
	sort.Strings(plan.Primary)
	sort.Strings(plan.Secondary)

	for name := range plan.Deficits {
		if hint, ok := hints[name]; ok && hint.IsPositive() {
			if plan.PriceHints == nil {
				plan.PriceHints = map[string]decimal.Decimal{}
			}
			plan.PriceHints[name] = hint
		}
	}
	return plan
}

// Bids converts the plan's deficits into sealed auction bids. Each partition
// gets its share of the bid budget, prices come from observed hints plus a
// safety margin when available, and the batch is scaled down if its total
// would exceed the budget.
func Bids(cfg pizzaagent.StrategyConfig, plan *pizzaagent.Plan, balance decimal.Decimal) []pizzaagent.Bid {
	if plan.Empty() {
		return nil
	}
	budget := cfg.BidBudget(balance)
	if !budget.IsPositive() {
		return nil
	}

	ingredients := plan.Ingredients()
	if cfg.MaxBidIngredients > 0 && len(ingredients) > cfg.MaxBidIngredients {
		ingredients = ingredients[:cfg.MaxBidIngredients]
	}

	primarySet := make(map[string]bool, len(plan.Primary))
	for _, name := range plan.Primary {
		primarySet[name] = true
	}
	nPrimary, nSecondary := 0, 0
	for _, name := range ingredients {
		if primarySet[name] {
			nPrimary++
		} else {
			nSecondary++
		}
	}

	primaryBudget := budget.Mul(decimal.NewFromFloat(cfg.PrimaryShare))
	secondaryBudget := budget.Sub(primaryBudget)
	if nSecondary == 0 {
		primaryBudget = budget
	}
	if nPrimary == 0 {
		secondaryBudget = budget
	}

	margin := decimal.NewFromFloat(1 + cfg.SafetyMargin)
	defaultPrice := decimal.NewFromFloat(cfg.DefaultBidPrice)

	var bids []pizzaagent.Bid
	total := decimal.Zero
	for _, name := range ingredients {
		qty := plan.Deficits[name]
		if qty <= 0 {
			continue
		}
		var price decimal.Decimal
		if hint, ok := plan.PriceHints[name]; ok && hint.IsPositive() {
			price = hint.Mul(margin)
		} else {
			sub, count := secondaryBudget, nSecondary
			if primarySet[name] {
				sub, count = primaryBudget, nPrimary
			}
			share := sub.Div(decimal.NewFromInt(int64(count))).Div(decimal.NewFromInt(int64(qty)))
			price = decimal.Max(defaultPrice, share)
		}
		price = price.Round(2)
		bids = append(bids, pizzaagent.Bid{Ingredient: name, Quantity: qty, UnitPrice: price})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}

	if total.GreaterThan(budget) {
		// Floor the scaled prices so rounding cannot push the batch back
		// over the budget. A price that floors to zero is dropped rather
		// than submitted as a free bid.
		scale := budget.Div(total)
		scaled := bids[:0]
		for _, b := range bids {
			b.UnitPrice = b.UnitPrice.Mul(scale).RoundFloor(2)
			if !b.UnitPrice.IsPositive() {
				continue
			}
			scaled = append(scaled, b)
		}
		bids = scaled
	}
	return bids
}

// TotalNeed sums the per-copy requirements of the given recipes at the given
// copy count.
func TotalNeed(recipes []pizzaagent.Recipe, copies int) map[string]int {
	need := map[string]int{}
	for _, r := range recipes {
		for name, qty := range r.Ingredients {
			need[name] += qty * copies
		}
	}
	return need
}

// Surplus returns the inventory quantities not reserved by need. Only
// strictly positive surpluses appear in the result.
func Surplus(inv pizzaagent.Inventory, need map[string]int) map[string]int {
	surplus := map[string]int{}
	for name, have := range inv {
		if extra := have - need[name]; extra > 0 {
			surplus[name] = extra
		}
	}
	return surplus
}

// Completable filters the recipes down to those the inventory can cook at
// least once right now.
func Completable(recipes []pizzaagent.Recipe, inv pizzaagent.Inventory) []pizzaagent.Recipe {
	var out []pizzaagent.Recipe
	for _, r := range recipes {
		if !r.Valid() {
			continue
		}
		ok := true
		for name, qty := range r.Ingredients {
			if inv.Qty(name) < qty {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

// ComposeMenu builds the published menu from the recipes the inventory can
// actually deliver: highest prestige first, capped in size, priced at a
// prestige multiple with a floor. Ties break by name so the menu is stable
// across recomputation.
func ComposeMenu(cfg pizzaagent.StrategyConfig, recipes []pizzaagent.Recipe, inv pizzaagent.Inventory) []pizzaagent.MenuItem {
	cookable := Completable(recipes, inv)
	sort.SliceStable(cookable, func(i, j int) bool {
		if cookable[i].Prestige != cookable[j].Prestige {
			return cookable[i].Prestige > cookable[j].Prestige
		}
		return cookable[i].Name < cookable[j].Name
	})
	if cfg.MaxMenuSize > 0 && len(cookable) > cfg.MaxMenuSize {
		cookable = cookable[:cfg.MaxMenuSize]
	}

	factor := decimal.NewFromFloat(cfg.MenuPriceFactor)
	floor := decimal.NewFromFloat(cfg.MinMenuPrice)
	items := make([]pizzaagent.MenuItem, 0, len(cookable))
	for _, r := range cookable {
		price := decimal.Max(floor, decimal.NewFromInt(int64(r.Prestige)).Mul(factor)).Round(2)
		items = append(items, pizzaagent.MenuItem{Name: r.Name, Price: price})
	}
	return items
}

// RemainingDeficit re-evaluates the plan's deficits against a fresh
// inventory. Progress is measured against the baseline snapshot the plan was
// built from, so stock that existed before the turn does not count twice.
func RemainingDeficit(plan *pizzaagent.Plan, inv pizzaagent.Inventory) map[string]int {
	remaining := map[string]int{}
	if plan == nil {
		return remaining
	}
	for name, qty := range plan.Deficits {
		gained := inv.Qty(name) - plan.Baseline.Qty(name)
		if gained < 0 {
			gained = 0
		}
		if short := qty - gained; short > 0 {
			remaining[name] = short
		}
	}
	return remaining
}
