package gameclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzaagent"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := pizzaagent.GameConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		TeamID:  7,
	}
	return NewClient(cfg, srv.Client())
}

func TestClientRestaurant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restaurant/7", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		w.Write([]byte(`{"name":"Mario","balance":123.5,"inventory":{"Salt":2},"is_open":true}`))
	})

	rest, err := c.Restaurant(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Mario", rest.Name)
	assert.True(t, rest.Balance.Equal(decimal.NewFromFloat(123.5)))
	assert.Equal(t, 2, rest.Inventory.Qty("Salt"))
	assert.True(t, rest.IsOpen)
}

func TestClientRecipes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipes", r.URL.Path)
		w.Write([]byte(`[{"name":"Margherita","prestige":10,"ingredients":{"Flour":2,"Tomato":1}}]`))
	})

	recipes, err := c.Recipes(context.Background())
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Margherita", recipes[0].Name)
	assert.Equal(t, 10, recipes[0].Prestige)
	assert.Equal(t, 2, recipes[0].Ingredients["Flour"])
}

func TestClientMealsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meals", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("turn_id"))
		assert.Equal(t, "7", r.URL.Query().Get("restaurant_id"))
		w.Write([]byte(`[{"id":"c1","client_name":"Anna","order_text":"one Margherita please"}]`))
	})

	meals, err := c.Meals(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, "c1", meals[0].ClientID)
}

func TestClientGetErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	_, err := c.Recipes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestCallToolRequestShape(t *testing.T) {
	var got rpcRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mcp", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"content":[{"type":"text","text":"ok"}]}}`))
	})

	err := c.SetOpen(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "2.0", got.JSONRPC)
	assert.Equal(t, "tools/call", got.Method)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "update_restaurant_is_open", got.Params.Name)
	assert.Equal(t, true, got.Params.Arguments["is_open"])
}

func TestCallToolSurfacesRPCError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32602,"message":"bad params"}}`))
	})

	err := c.PrepareDish(context.Background(), "Margherita")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad params")
}

func TestCallToolSurfacesToolError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"isError":true,"content":[{"type":"text","text":"not enough ingredients"}]}}`))
	})

	err := c.PrepareDish(context.Background(), "Margherita")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough ingredients")
}

func TestSubmitBidsDropsNonPositiveQuantities(t *testing.T) {
	var got rpcRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"content":[]}}`))
	})

	bids := []pizzaagent.Bid{
		{Ingredient: "Salt", Quantity: 3, UnitPrice: decimal.NewFromInt(2)},
		{Ingredient: "Pepper", Quantity: 0, UnitPrice: decimal.NewFromInt(5)},
		{Ingredient: "Basil", Quantity: -1, UnitPrice: decimal.NewFromInt(1)},
	}
	require.NoError(t, c.SubmitBids(context.Background(), bids))

	sent, ok := got.Params.Arguments["bids"].([]any)
	require.True(t, ok)
	require.Len(t, sent, 1)
	first, ok := sent[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Salt", first["ingredient"])
}

func TestValidateRejectsMissingRequired(t *testing.T) {
	def := catalog["serve_dish"]
	err := def.validate(map[string]any{"dish_name": "Margherita"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")
}

func TestValidateRejectsWrongType(t *testing.T) {
	def := catalog["update_restaurant_is_open"]
	err := def.validate(map[string]any{"is_open": "yes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected boolean")
}

func TestCatalogSorted(t *testing.T) {
	defs := Catalog()
	require.Len(t, defs, len(catalog))
	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].Name, defs[i].Name)
	}
}
