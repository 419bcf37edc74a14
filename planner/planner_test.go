package planner

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzaagent"
)

func testConfig() pizzaagent.StrategyConfig {
	return pizzaagent.StrategyConfig{
		BidBudgetFraction: 0.3,
		PrimaryShare:      0.7,
		SafetyMargin:      0.05,
		DefaultBidPrice:   10,
		MaxBidIngredients: 12,
		MaxCopies:         2,
		ExtraRecipes:      0,
		MaxMenuSize:       6,
		MenuPriceFactor:   2.5,
		MinMenuPrice:      10,
	}
}

func TestSelectFocusFlagship(t *testing.T) {
	recipes := []pizzaagent.Recipe{
		{Name: "Diavola", Prestige: 40, Ingredients: map[string]int{"Flour": 2, "Salami": 1, "Chili": 1}},
		{Name: "Margherita", Prestige: 30, Ingredients: map[string]int{"Flour": 2, "Tomato": 1}},
		{Name: "Invalid", Prestige: 99, Ingredients: nil},
	}
	inv := pizzaagent.Inventory{"Flour": 2, "Tomato": 1}

	focus := SelectFocus(recipes, inv)
	require.NotEmpty(t, focus)
	// Margherita is fully stocked (score 30/1); Diavola misses two
	// ingredients (score 40/2). Invalid recipes never participate.
	assert.Equal(t, "Margherita", focus[0].Name)
}

func TestSelectFocusIncludesBackupsAboveThreshold(t *testing.T) {
	recipes := []pizzaagent.Recipe{
		{Name: "Flagship", Prestige: 90, Ingredients: map[string]int{"Flour": 1}},
		{Name: "GoodBackup", Prestige: 50, Ingredients: map[string]int{"Flour": 1, "Tomato": 1}},
		{Name: "Hopeless", Prestige: 1, Ingredients: map[string]int{"Truffle": 3, "Saffron": 2}},
	}
	inv := pizzaagent.Inventory{"Flour": 1, "Tomato": 1}

	focus := SelectFocus(recipes, inv)
	names := make([]string, 0, len(focus))
	for _, r := range focus {
		names = append(names, r.Name)
	}
	assert.Equal(t, "Flagship", names[0])
	assert.Contains(t, names, "GoodBackup")
	assert.NotContains(t, names, "Hopeless")
}

func TestSimplestRecipesOrdering(t *testing.T) {
	recipes := []pizzaagent.Recipe{
		{Name: "Big", Prestige: 10, Ingredients: map[string]int{"A": 1, "B": 1, "C": 1}},
		{Name: "SmallSlow", Prestige: 5, Ingredients: map[string]int{"A": 1}, PreparationMs: 900},
		{Name: "SmallFast", Prestige: 5, Ingredients: map[string]int{"A": 1}, PreparationMs: 100},
		{Name: "SmallHeavy", Prestige: 5, Ingredients: map[string]int{"A": 4}},
	}

	got := SimplestRecipes(recipes, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "SmallFast", got[0].Name)
	assert.Equal(t, "SmallSlow", got[1].Name)
	assert.Equal(t, "SmallHeavy", got[2].Name)
}

func TestBuildDeficitFromInventory(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCopies = 1
	recipes := []pizzaagent.Recipe{
		{Name: "Margherita", Prestige: 30, Ingredients: map[string]int{"Salt": 5, "Pepper": 1}},
	}
	rest := pizzaagent.Restaurant{
		Balance:   decimal.NewFromInt(100),
		Inventory: pizzaagent.Inventory{"Salt": 2},
	}

	plan := Build(cfg, recipes, rest, nil, 1)
	require.True(t, plan.IsValid())
	assert.Equal(t, map[string]int{"Salt": 3, "Pepper": 1}, plan.Deficits)
	assert.ElementsMatch(t, []string{"Salt", "Pepper"}, plan.Primary)
	assert.Empty(t, plan.Secondary)
	assert.Equal(t, pizzaagent.Inventory{"Salt": 2}, plan.Baseline)
}

func TestBuildAvoidsDoubleCountingSharedIngredients(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCopies = 1
	recipes := []pizzaagent.Recipe{
		{Name: "Flagship", Prestige: 90, Ingredients: map[string]int{"Flour": 4}},
		{Name: "Backup", Prestige: 60, Ingredients: map[string]int{"Flour": 3, "Tomato": 1}},
	}
	rest := pizzaagent.Restaurant{
		Balance:   decimal.NewFromInt(100),
		Inventory: pizzaagent.Inventory{"Flour": 4, "Tomato": 1},
	}

	plan := Build(cfg, recipes, rest, nil, 1)
	// The flagship is fully stocked; the backup's flour need is already
	// covered by inventory, so only nothing remains to buy.
	assert.Empty(t, plan.Deficits)

	rest.Inventory = pizzaagent.Inventory{}
	plan = Build(cfg, recipes, rest, nil, 1)
	// Flagship buys 4 flour; the backup needs 3 and reuses the planned 4
	// rather than adding its own.
	assert.Equal(t, 4, plan.Deficits["Flour"])
	assert.Equal(t, 1, plan.Deficits["Tomato"])
}

func TestBuildEmptyPlanWhenBroke(t *testing.T) {
	recipes := []pizzaagent.Recipe{
		{Name: "Margherita", Prestige: 30, Ingredients: map[string]int{"Flour": 2}},
	}
	rest := pizzaagent.Restaurant{Balance: decimal.Zero}

	plan := Build(testConfig(), recipes, rest, nil, 3)
	assert.True(t, plan.Empty())
	assert.Equal(t, 3, plan.TurnID)
	assert.Empty(t, Bids(testConfig(), plan, rest.Balance))
}

func TestBuildKeepsOnlyRelevantPriceHints(t *testing.T) {
	cfg := testConfig()
	recipes := []pizzaagent.Recipe{
		{Name: "Margherita", Prestige: 30, Ingredients: map[string]int{"Flour": 2}},
	}
	rest := pizzaagent.Restaurant{Balance: decimal.NewFromInt(100)}
	hints := map[string]decimal.Decimal{
		"Flour":   decimal.NewFromInt(4),
		"Truffle": decimal.NewFromInt(50),
	}

	plan := Build(cfg, recipes, rest, hints, 1)
	require.Contains(t, plan.PriceHints, "Flour")
	assert.NotContains(t, plan.PriceHints, "Truffle")
}

func TestBidsHintPricingWithMargin(t *testing.T) {
	cfg := testConfig()
	plan := &pizzaagent.Plan{
		FocusRecipes: []string{"Margherita"},
		Deficits:     map[string]int{"Flour": 2},
		Primary:      []string{"Flour"},
		PriceHints:   map[string]decimal.Decimal{"Flour": decimal.NewFromInt(20)},
	}

	bids := Bids(cfg, plan, decimal.NewFromInt(1000))
	require.Len(t, bids, 1)
	assert.Equal(t, "Flour", bids[0].Ingredient)
	assert.Equal(t, 2, bids[0].Quantity)
	assert.True(t, bids[0].UnitPrice.Equal(decimal.NewFromInt(21)), "20 * 1.05, got %s", bids[0].UnitPrice)
}

func TestBidsBudgetMonotonicity(t *testing.T) {
	cfg := testConfig()
	plan := &pizzaagent.Plan{
		FocusRecipes: []string{"Margherita"},
		Deficits:     map[string]int{"Flour": 10, "Tomato": 5, "Basil": 3},
		Primary:      []string{"Flour"},
		Secondary:    []string{"Tomato", "Basil"},
		PriceHints: map[string]decimal.Decimal{
			"Flour":  decimal.NewFromInt(40),
			"Tomato": decimal.NewFromInt(40),
			"Basil":  decimal.NewFromInt(40),
		},
	}
	balance := decimal.NewFromInt(100)
	budget := cfg.BidBudget(balance)

	bids := Bids(cfg, plan, balance)
	require.NotEmpty(t, bids)
	total := decimal.Zero
	for _, b := range bids {
		total = total.Add(b.UnitPrice.Mul(decimal.NewFromInt(int64(b.Quantity))))
	}
	assert.True(t, total.LessThanOrEqual(budget), "total %s exceeds budget %s", total, budget)
}

func TestBidsDropsPricesScaledToZero(t *testing.T) {
	cfg := testConfig()
	// The expensive flagship ingredient forces a steep scale-down; the cheap
	// hint's price floors to zero under it and must not be submitted.
	plan := &pizzaagent.Plan{
		FocusRecipes: []string{"Margherita"},
		Deficits:     map[string]int{"Flour": 10, "Basil": 1},
		Primary:      []string{"Flour"},
		Secondary:    []string{"Basil"},
		PriceHints: map[string]decimal.Decimal{
			"Flour": decimal.NewFromInt(200),
			"Basil": decimal.NewFromFloat(0.05),
		},
	}

	bids := Bids(cfg, plan, decimal.NewFromInt(100))
	require.Len(t, bids, 1)
	assert.Equal(t, "Flour", bids[0].Ingredient)
	for _, b := range bids {
		assert.True(t, b.UnitPrice.IsPositive(), "bid for %s has non-positive price %s", b.Ingredient, b.UnitPrice)
	}
}

func TestBidsDefaultPricingUsesBudgetShareFloor(t *testing.T) {
	cfg := testConfig()
	plan := &pizzaagent.Plan{
		FocusRecipes: []string{"Margherita"},
		Deficits:     map[string]int{"Flour": 1},
		Primary:      []string{"Flour"},
	}

	// Bid budget is 300; the single primary ingredient's share is the whole
	// of it, far above the default price floor, but the batch is then scaled
	// back inside the budget.
	bids := Bids(cfg, plan, decimal.NewFromInt(1000))
	require.Len(t, bids, 1)
	assert.True(t, bids[0].UnitPrice.GreaterThanOrEqual(decimal.NewFromFloat(cfg.DefaultBidPrice)))
	assert.True(t, bids[0].UnitPrice.LessThanOrEqual(cfg.BidBudget(decimal.NewFromInt(1000))))
}

func TestBidsRespectsIngredientCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBidIngredients = 2
	plan := &pizzaagent.Plan{
		FocusRecipes: []string{"Margherita"},
		Deficits:     map[string]int{"A": 1, "B": 1, "C": 1, "D": 1},
		Primary:      []string{"A", "B"},
		Secondary:    []string{"C", "D"},
	}

	bids := Bids(cfg, plan, decimal.NewFromInt(1000))
	require.Len(t, bids, 2)
	// Primary ingredients win the cap.
	assert.Equal(t, "A", bids[0].Ingredient)
	assert.Equal(t, "B", bids[1].Ingredient)
}

func TestSurplus(t *testing.T) {
	inv := pizzaagent.Inventory{"Flour": 10, "Tomato": 2, "Basil": 1}
	need := map[string]int{"Flour": 6, "Tomato": 2, "Chili": 4}

	got := Surplus(inv, need)
	assert.Equal(t, map[string]int{"Flour": 4, "Basil": 1}, got)
}

func TestTotalNeed(t *testing.T) {
	recipes := []pizzaagent.Recipe{
		{Name: "A", Ingredients: map[string]int{"Flour": 2, "Tomato": 1}},
		{Name: "B", Ingredients: map[string]int{"Flour": 1}},
	}
	assert.Equal(t, map[string]int{"Flour": 6, "Tomato": 2}, TotalNeed(recipes, 2))
}

func TestCompletable(t *testing.T) {
	recipes := []pizzaagent.Recipe{
		{Name: "Cookable", Prestige: 10, Ingredients: map[string]int{"Flour": 2}},
		{Name: "Short", Prestige: 20, Ingredients: map[string]int{"Flour": 2, "Tomato": 1}},
	}
	inv := pizzaagent.Inventory{"Flour": 2}

	got := Completable(recipes, inv)
	require.Len(t, got, 1)
	assert.Equal(t, "Cookable", got[0].Name)
}

func TestComposeMenu(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMenuSize = 2
	recipes := []pizzaagent.Recipe{
		{Name: "Cheap", Prestige: 2, Ingredients: map[string]int{"Flour": 1}},
		{Name: "Fancy", Prestige: 40, Ingredients: map[string]int{"Flour": 1}},
		{Name: "Mid", Prestige: 20, Ingredients: map[string]int{"Flour": 1}},
		{Name: "NoStock", Prestige: 99, Ingredients: map[string]int{"Truffle": 1}},
	}
	inv := pizzaagent.Inventory{"Flour": 1}

	menu := ComposeMenu(cfg, recipes, inv)
	require.Len(t, menu, 2)
	assert.Equal(t, "Fancy", menu[0].Name)
	assert.True(t, menu[0].Price.Equal(decimal.NewFromInt(100)), "40 * 2.5, got %s", menu[0].Price)
	assert.Equal(t, "Mid", menu[1].Name)
	// The cheap recipe's prestige price (5) is below the floor.
	low := ComposeMenu(cfg, recipes[:1], inv)
	require.Len(t, low, 1)
	assert.True(t, low[0].Price.Equal(decimal.NewFromInt(10)))
}

func TestRemainingDeficitUsesBaseline(t *testing.T) {
	plan := &pizzaagent.Plan{
		Deficits: map[string]int{"Salt": 3, "Pepper": 1},
		Baseline: pizzaagent.Inventory{"Salt": 2},
	}

	// Nothing bought yet: pre-existing salt does not count as progress.
	got := RemainingDeficit(plan, pizzaagent.Inventory{"Salt": 2})
	assert.Equal(t, map[string]int{"Salt": 3, "Pepper": 1}, got)

	// Two salt and one pepper acquired since planning.
	got = RemainingDeficit(plan, pizzaagent.Inventory{"Salt": 4, "Pepper": 1})
	assert.Equal(t, map[string]int{"Salt": 1}, got)

	// Fully covered.
	got = RemainingDeficit(plan, pizzaagent.Inventory{"Salt": 5, "Pepper": 1})
	assert.Empty(t, got)
}
