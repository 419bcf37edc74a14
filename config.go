package pizzaagent

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameConfig identifies our restaurant against the game server.
type GameConfig struct {
	BaseURL string `env:"GAME_BASE_URL,required"`
	APIKey  string `env:"GAME_API_KEY,required"`
	TeamID  int    `env:"GAME_TEAM_ID,required"`

	StreamRetryDelay time.Duration `env:"STREAM_RETRY_DELAY,default=5s"`
	RequestTimeout   time.Duration `env:"GAME_REQUEST_TIMEOUT,default=30s"`
}

// StrategyConfig holds every tunable the allocation heuristics depend on.
// These are configuration, not constants: the defaults are the values the
// strategy converged on, but each can be overridden per deployment.
type StrategyConfig struct {
	// Auction (closed_bid phase).
	BidBudgetFraction float64 `env:"BID_BUDGET_FRACTION,default=0.3"`
	PrimaryShare      float64 `env:"PRIMARY_BUDGET_SHARE,default=0.7"`
	SafetyMargin      float64 `env:"BID_SAFETY_MARGIN,default=0.05"`
	DefaultBidPrice   float64 `env:"DEFAULT_BID_PRICE,default=10"`
	MaxBidIngredients int     `env:"MAX_BID_INGREDIENTS,default=12"`

	// Planning.
	MaxCopies    int `env:"MAX_COPIES,default=2"`
	ExtraRecipes int `env:"EXTRA_RECIPES,default=10"`

	// Secondary market (waiting phase).
	MarketBudgetFraction float64       `env:"MARKET_BUDGET_FRACTION,default=0.7"`
	MaxUnitPrice         float64       `env:"MAX_UNIT_PRICE,default=80"`
	SurplusMarkup        float64       `env:"SURPLUS_MARKUP,default=0.05"`
	DefaultSellPrice     float64       `env:"DEFAULT_SELL_PRICE,default=25"`
	RoundCap             int           `env:"MARKET_ROUND_CAP,default=5"`
	RoundPause           time.Duration `env:"MARKET_ROUND_PAUSE,default=2s"`

	// Menu.
	MaxMenuSize     int     `env:"MAX_MENU_SIZE,default=6"`
	MenuPriceFactor float64 `env:"MENU_PRICE_FACTOR,default=2.5"`
	MinMenuPrice    float64 `env:"MIN_MENU_PRICE,default=10"`

	// Serving.
	MealPollInterval time.Duration `env:"MEAL_POLL_INTERVAL,default=5s"`
}

// BidBudget is the budget slice the closed auction may spend.
func (c StrategyConfig) BidBudget(balance decimal.Decimal) decimal.Decimal {
	return balance.Mul(decimal.NewFromFloat(c.BidBudgetFraction))
}

// MarketBudget is the budget slice the secondary market may spend.
func (c StrategyConfig) MarketBudget(balance decimal.Decimal) decimal.Decimal {
	return balance.Mul(decimal.NewFromFloat(c.MarketBudgetFraction))
}

// PriceCap is the maximum acceptable unit price on the secondary market.
func (c StrategyConfig) PriceCap() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxUnitPrice)
}

// StoreConfig selects where the durable Plan snapshot lives. When Bucket is
// set, the S3 store is used; otherwise the file store at Path.
type StoreConfig struct {
	Path   string `env:"PLAN_SNAPSHOT_PATH,default=artifacts/plan.json"`
	Bucket string `env:"PLAN_SNAPSHOT_BUCKET,default="`
	Key    string `env:"PLAN_SNAPSHOT_KEY,default=plan.json"`
}
