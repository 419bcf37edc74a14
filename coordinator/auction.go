package coordinator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// AuctionResult is one outcome line from the server's post-auction chatter.
type AuctionResult struct {
	RestaurantID int
	Quantity     int
	Ingredient   string
	UnitPrice    decimal.Decimal
	Bought       bool
}

var auctionResultRe = regexp.MustCompile(
	`Restaurant\s+(\d+)\s+try to buy:(\d+)\s+(.+?)\s+at single price of:\s+(\d+(?:\.\d+)?)\s+result:(.+)`)

// ParseAuctionResults extracts auction outcomes from a chat message. The
// server reports one outcome per line; lines that do not match the known
// shape are skipped.
func ParseAuctionResults(text string) []AuctionResult {
	var results []AuctionResult
	for _, line := range strings.Split(text, "\n") {
		m := auctionResultRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		restaurantID, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		quantity, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		price, err := decimal.NewFromString(m[4])
		if err != nil {
			continue
		}
		results = append(results, AuctionResult{
			RestaurantID: restaurantID,
			Quantity:     quantity,
			Ingredient:   strings.TrimSpace(m[3]),
			UnitPrice:    price,
			Bought:       strings.HasPrefix(strings.TrimSpace(m[5]), "Bought"),
		})
	}
	return results
}
