// Command snapshot fetches the current game state for one team and writes
// each section as a JSON file, for debugging a live game without attaching
// the agent.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"

	"pizzaagent"
	"pizzaagent/gameclient"
)

func main() {
	verbose := flag.Bool("v", false, "dump raw structures to stdout instead of writing files")
	tools := flag.Bool("tools", false, "list the server tool catalog and exit")
	turnID := flag.Int("turn", 0, "turn id for the meals listing")
	outDir := flag.String("out", "snapshots", "parent directory for snapshot output")
	flag.Parse()

	if *tools {
		for _, def := range gameclient.Catalog() {
			fmt.Printf("%-28s %s\n", def.Name, def.Description)
		}
		return
	}

	var gameConfig pizzaagent.GameConfig
	if err := envdecode.Decode(&gameConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	ctx := context.Background()
	client := gameclient.NewClient(gameConfig, &http.Client{Timeout: gameConfig.RequestTimeout})

	snapshot := map[string]any{}

	rest, err := client.Restaurant(ctx)
	if err != nil {
		slog.Error("SNAPSHOT: Failed to fetch restaurant", "error", err)
		os.Exit(1)
	}
	snapshot["restaurant"] = rest

	if recipes, err := client.Recipes(ctx); err != nil {
		slog.Warn("SNAPSHOT: Failed to fetch recipes", "error", err)
	} else {
		snapshot["recipes"] = recipes
	}
	if entries, err := client.MarketEntries(ctx); err != nil {
		slog.Warn("SNAPSHOT: Failed to fetch market entries", "error", err)
	} else {
		snapshot["market_entries"] = entries
	}
	if menu, err := client.Menu(ctx); err != nil {
		slog.Warn("SNAPSHOT: Failed to fetch menu", "error", err)
	} else {
		snapshot["menu"] = menu
	}
	if history, err := client.BidHistory(ctx); err != nil {
		slog.Warn("SNAPSHOT: Failed to fetch bid history", "error", err)
	} else {
		snapshot["bid_history"] = history
	}
	if *turnID > 0 {
		if meals, err := client.Meals(ctx, *turnID); err != nil {
			slog.Warn("SNAPSHOT: Failed to fetch meals", "error", err)
		} else {
			snapshot["meals"] = meals
		}
	}

	if *verbose {
		pizzaagent.Dump(snapshot)
		return
	}

	dir := filepath.Join(*outDir, time.Now().Format("20060102T150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("SNAPSHOT: Failed to create %s: %s", dir, err)
	}
	for name, section := range snapshot {
		out, err := json.MarshalIndent(section, "", "  ")
		if err != nil {
			log.Fatalf("SNAPSHOT: Failed to marshal %s: %s", name, err)
		}
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			log.Fatalf("SNAPSHOT: Failed to write %s: %s", path, err)
		}
		slog.Info("SNAPSHOT: Wrote section", "path", path)
	}
}
