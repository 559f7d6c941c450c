package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tf2-stack/listings-backend/internal/config"
	"github.com/tf2-stack/listings-backend/internal/tf2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("=== Steam API Credentials Check ===")
	keySet := cfg.Steam.APIKey != ""
	fmt.Printf("Steam API Key: %s\n", statusString(keySet))
	fmt.Printf("App ID: %d\n", cfg.BackpackTF.AppID)
	fmt.Println()

	if !keySet {
		log.Fatal("❌ STEAM_API_KEY is not set. Add it to your .env file.")
	}

	fmt.Println("Test: fetching the item schema from Steam...")
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	// No Redis on purpose: the probe must reach Steam itself.
	provider := tf2.NewSchemaProvider(nil, cfg.Steam.APIKey, cfg.BackpackTF.AppID)
	schema, err := provider.Schema(ctx)
	if err != nil {
		fmt.Printf("❌ Schema fetch failed: %v\n", err)
		fmt.Println("\nThis usually means:")
		fmt.Println("  - The API key is invalid or revoked")
		fmt.Println("  - Steam is rate limiting this IP")
		log.Fatalf("Steam API check failed")
	}

	fmt.Printf("✅ Schema fetched: %d items, %d qualities, %d effects\n",
		len(schema.Items), len(schema.QualityNames), len(schema.EffectNames))

	// Spot-check the lookups both ways.
	name, err := schema.NameFromSku("5021;6")
	if err != nil {
		fmt.Printf("⚠️  Lookup for 5021;6 failed: %v\n", err)
		log.Fatalf("Schema lookup check failed")
	}
	fmt.Printf("✅ 5021;6 -> %q\n", name)

	sku, err := schema.SkuFromName(name)
	if err != nil || sku != "5021;6" {
		fmt.Printf("⚠️  Reverse lookup for %q gave %q (err: %v)\n", name, sku, err)
		log.Fatalf("Schema lookup check failed")
	}
	fmt.Printf("✅ %q -> %s\n", name, sku)

	fmt.Println("\n=== All checks passed ===")
}

func statusString(set bool) string {
	if set {
		return "✅ SET"
	}
	return "❌ NOT SET"
}
