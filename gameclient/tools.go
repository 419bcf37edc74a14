package gameclient

import (
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// ToolDef declares one server-side game tool: its name and the schema of the
// arguments it accepts. The schema doubles as pre-submission validation so a
// malformed action is rejected locally instead of burning a server call.
type ToolDef struct {
	Name        string
	Title       string
	Description string
	InputSchema *jsonschema.Schema
}

var catalog = map[string]ToolDef{
	"closed_bid": {
		Name:        "closed_bid",
		Title:       "Submit Auction Bids",
		Description: "Submits the batch of sealed bids for the closed auction phase.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"bids": {
					Type: "array",
					Items: &jsonschema.Schema{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"ingredient": {Type: "string"},
							"quantity":   {Type: "integer", Minimum: ptr(1.0)},
							"bid":        {Type: "number", Minimum: ptr(0.0)},
						},
						Required: []string{"ingredient", "quantity", "bid"},
					},
				},
			},
			Required: []string{"bids"},
		},
	},
	"save_menu": {
		Name:        "save_menu",
		Title:       "Publish Menu",
		Description: "Sets or replaces the restaurant menu.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"items": {
					Type: "array",
					Items: &jsonschema.Schema{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"name":  {Type: "string"},
							"price": {Type: "number", Minimum: ptr(0.0)},
						},
						Required: []string{"name", "price"},
					},
				},
			},
			Required: []string{"items"},
		},
	},
	"create_market_entry": {
		Name:        "create_market_entry",
		Title:       "Create Market Entry",
		Description: "Lists a new BUY or SELL lot on the secondary market.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"side":            {Type: "string"},
				"ingredient_name": {Type: "string"},
				"quantity":        {Type: "integer", Minimum: ptr(1.0)},
				"price":           {Type: "number", Minimum: ptr(0.0)},
			},
			Required: []string{"side", "ingredient_name", "quantity", "price"},
		},
	},
	"execute_transaction": {
		Name:        "execute_transaction",
		Title:       "Accept Market Entry",
		Description: "Accepts an existing market lot in full.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"market_entry_id": {Type: "integer"},
			},
			Required: []string{"market_entry_id"},
		},
	},
	"delete_market_entry": {
		Name:        "delete_market_entry",
		Title:       "Delete Market Entry",
		Description: "Removes one of our own market lots.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"market_entry_id": {Type: "integer"},
			},
			Required: []string{"market_entry_id"},
		},
	},
	"prepare_dish": {
		Name:        "prepare_dish",
		Title:       "Prepare Dish",
		Description: "Starts preparing a dish during the serving phase.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"dish_name": {Type: "string"},
			},
			Required: []string{"dish_name"},
		},
	},
	"serve_dish": {
		Name:        "serve_dish",
		Title:       "Serve Dish",
		Description: "Serves a prepared dish to a waiting customer.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"dish_name": {Type: "string"},
				"client_id": {Type: "string"},
			},
			Required: []string{"dish_name", "client_id"},
		},
	},
	"update_restaurant_is_open": {
		Name:        "update_restaurant_is_open",
		Title:       "Toggle Restaurant",
		Description: "Opens or closes the restaurant to customers.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"is_open": {Type: "boolean"},
			},
			Required: []string{"is_open"},
		},
	},
	"send_message": {
		Name:        "send_message",
		Title:       "Send Message",
		Description: "Sends a direct message to another restaurant.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"recipient_id": {Type: "integer"},
				"text":         {Type: "string"},
			},
			Required: []string{"recipient_id", "text"},
		},
	},
}

// Catalog returns all tool definitions sorted by name.
func Catalog() []ToolDef {
	defs := make([]ToolDef, 0, len(catalog))
	for _, def := range catalog {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// validate checks the arguments against the declared input schema: every
// required top-level property must be present, and scalar properties must
// carry the declared JSON type. Nested array/object contents are left to the
// server, which owns the authoritative schema.
func (d ToolDef) validate(args map[string]any) error {
	if d.InputSchema == nil {
		return nil
	}
	for _, name := range d.InputSchema.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}
	for name, prop := range d.InputSchema.Properties {
		val, ok := args[name]
		if !ok {
			continue
		}
		if err := checkScalar(prop.Type, val); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}
	return nil
}

func checkScalar(schemaType string, val any) error {
	switch schemaType {
	case "string":
		if _, ok := val.(string); !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", val)
		}
	case "integer", "number":
		switch val.(type) {
		case int, int32, int64, float32, float64:
		default:
			// decimal.Decimal and json.Number both marshal as numbers.
			if _, ok := val.(interface{ IntPart() int64 }); !ok {
				return fmt.Errorf("expected number, got %T", val)
			}
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
