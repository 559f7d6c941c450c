package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tf2-stack/listings-backend/internal/config"
)

// probeItem is a high-liquidity item that always has listings.
const probeItem = "Mann Co. Supply Crate Key"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("=== Marketplace Token Check ===")
	fmt.Printf("API URL: %s\n", cfg.BackpackTF.APIURL)
	fmt.Printf("Tokens configured: %d\n", len(cfg.BackpackTF.Tokens))
	fmt.Println()

	if len(cfg.BackpackTF.Tokens) == 0 {
		log.Fatal("❌ BPTF_TOKEN is not set. Add a comma-separated token list to your .env file.")
	}

	client := resty.New().
		SetBaseURL(cfg.BackpackTF.APIURL).
		SetTimeout(15 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	failures := 0
	for i, token := range cfg.BackpackTF.Tokens {
		fmt.Printf("Test %d/%d: snapshot request with token %s...\n", i+1, len(cfg.BackpackTF.Tokens), mask(token))

		resp, err := client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"sku":   probeItem,
				"appid": fmt.Sprintf("%d", cfg.BackpackTF.AppID),
				"token": token,
			}).
			Get("/classifieds/listings/snapshot")

		switch {
		case err != nil:
			fmt.Printf("  ⚠️  Request failed: %v\n", err)
			failures++
		case resp.StatusCode() == 200:
			fmt.Printf("  ✅ Token accepted (%d bytes)\n", len(resp.Body()))
		case resp.StatusCode() == 401 || resp.StatusCode() == 403:
			fmt.Printf("  ❌ Token rejected (%d): %s\n", resp.StatusCode(), resp.String())
			failures++
		case resp.StatusCode() == 429:
			fmt.Println("  ⚠️  Rate limited; the token is valid but cooling down")
		default:
			fmt.Printf("  ⚠️  Unexpected status %d: %s\n", resp.StatusCode(), resp.String())
			failures++
		}

		// Stay friendly to the API between probes.
		time.Sleep(time.Second)
	}

	fmt.Println()
	if failures > 0 {
		log.Fatalf("❌ %d token(s) failed the probe", failures)
	}
	fmt.Println("=== All tokens passed ===")
}

func mask(token string) string {
	if len(token) <= 5 {
		return "***"
	}
	return token[:5] + "***"
}
