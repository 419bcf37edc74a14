package pizzaagent

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanIsValid(t *testing.T) {
	tests := []struct {
		name string
		plan *Plan
		want bool
	}{
		{
			name: "nil plan",
			plan: nil,
			want: false,
		},
		{
			name: "no focus recipes",
			plan: &Plan{Deficits: map[string]int{"Salt": 1}},
			want: false,
		},
		{
			name: "deficit outside partition",
			plan: &Plan{
				FocusRecipes: []string{"Margherita"},
				Deficits:     map[string]int{"Salt": 1},
			},
			want: false,
		},
		{
			name: "non-positive deficit",
			plan: &Plan{
				FocusRecipes: []string{"Margherita"},
				Deficits:     map[string]int{"Salt": 0},
				Primary:      []string{"Salt"},
			},
			want: false,
		},
		{
			name: "valid",
			plan: &Plan{
				FocusRecipes: []string{"Margherita"},
				Deficits:     map[string]int{"Salt": 2, "Basil": 1},
				Primary:      []string{"Salt"},
				Secondary:    []string{"Basil"},
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.plan.IsValid())
		})
	}
}

func TestPlanIngredientsOrder(t *testing.T) {
	plan := &Plan{
		Primary:   []string{"Salt", "Flour"},
		Secondary: []string{"Tomato", "Basil"},
	}
	assert.Equal(t, []string{"Flour", "Salt", "Basil", "Tomato"}, plan.Ingredients())
}

func TestRecipeValid(t *testing.T) {
	assert.False(t, Recipe{Name: "Empty"}.Valid())
	assert.False(t, Recipe{Name: "Bad", Ingredients: map[string]int{"Salt": 0}}.Valid())
	assert.True(t, Recipe{Name: "OK", Ingredients: map[string]int{"Salt": 1}}.Valid())
}

func TestInventoryClone(t *testing.T) {
	inv := Inventory{"Salt": 2}
	clone := inv.Clone()
	clone["Salt"] = 9
	assert.Equal(t, 2, inv.Qty("Salt"))
	assert.Equal(t, 0, inv.Qty("Pepper"))
}

func TestMarketEntryCost(t *testing.T) {
	e := MarketEntry{Quantity: 3, Price: decimal.NewFromFloat(2.5)}
	assert.True(t, e.Cost().Equal(decimal.NewFromFloat(7.5)))
}

func TestFileTurnLoggerFlush(t *testing.T) {
	var buf bytes.Buffer
	l := NewFileTurnLogger(&buf)

	require.NoError(t, l.LogPhase(PhaseLog{Phase: "speaking", TurnID: 1}))
	require.NoError(t, l.LogPhase(PhaseLog{Phase: "closed_bid", TurnID: 1, Spend: decimal.NewFromInt(15)}))
	assert.Zero(t, buf.Len(), "nothing written before flush")

	require.NoError(t, l.Flush())

	var doc struct {
		TurnLog struct {
			Phases []PhaseLog `json:"phases"`
		} `json:"turn_log"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.TurnLog.Phases, 2)
	assert.Equal(t, "closed_bid", doc.TurnLog.Phases[1].Phase)

	// Flush drains the buffer.
	buf.Reset()
	require.NoError(t, l.Flush())
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Empty(t, doc.TurnLog.Phases)
}
