/**
 * @description
 * TF2 item schema provider. The schema is the dictionary that turns skus
 * into backpack.tf item names and back: defindex <-> item name, quality
 * ids <-> quality names, unusual effect ids <-> effect names.
 *
 * The provider fetches the schema from the Steam Web API (paged
 * GetSchemaItems plus GetSchemaOverview), caches the built schema in Redis
 * for 24 hours, and keeps an in-memory copy for lookups. All three services
 * share the Redis entry, so only one of them pays for the Steam roundtrip
 * per day.
 *
 * @dependencies
 * - github.com/go-resty/resty/v2: Steam Web API client.
 * - github.com/redis/go-redis/v9: shared schema cache.
 */

package tf2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tf2-stack/listings-backend/internal/logger"
)

const (
	schemaCacheTTL  = 24 * time.Hour
	steamAPIBaseURL = "https://api.steampowered.com"
)

// SchemaItem is one entry of the Steam item dictionary.
type SchemaItem struct {
	Defindex int    `json:"defindex"`
	Name     string `json:"name"`
	ItemName string `json:"item_name"`
}

// Schema holds the lookup tables built from the Steam item schema.
// Instances are immutable once built; the provider swaps whole values.
type Schema struct {
	FetchedAt      time.Time          `json:"fetchedAt"`
	Items          map[int]SchemaItem `json:"items"`
	DefindexByName map[string]int     `json:"defindexByName"`
	QualityNames   map[int]string     `json:"qualityNames"`
	QualityByName  map[string]int     `json:"qualityByName"`
	EffectNames    map[int]string     `json:"effectNames"`
	EffectByName   map[string]int     `json:"effectByName"`
}

// NameFromSku converts a canonical sku into the backpack.tf item name,
// e.g. "5021;6" -> "Mann Co. Supply Crate Key".
func (s *Schema) NameFromSku(sku string) (string, error) {
	parsed, err := ParseSku(sku)
	if err != nil {
		return "", err
	}

	item, ok := s.Items[parsed.Defindex]
	if !ok {
		return "", fmt.Errorf("unknown defindex %d in sku %q", parsed.Defindex, sku)
	}

	var b strings.Builder

	if !parsed.Craftable {
		b.WriteString("Non-Craftable ")
	}
	if parsed.ElevatedStrange {
		b.WriteString("Strange ")
	}

	// Unique and Decorated carry no quality prefix; an effect replaces the
	// word "Unusual" entirely.
	switch {
	case parsed.Quality == QualityUnique || parsed.Quality == QualityDecorated:
	case parsed.Quality == QualityUnusual && parsed.Effect != 0:
	default:
		quality, ok := s.QualityNames[parsed.Quality]
		if !ok {
			return "", fmt.Errorf("unknown quality %d in sku %q", parsed.Quality, sku)
		}
		b.WriteString(quality)
		b.WriteString(" ")
	}

	if parsed.Effect != 0 {
		effect, ok := s.EffectNames[parsed.Effect]
		if !ok {
			return "", fmt.Errorf("unknown effect %d in sku %q", parsed.Effect, sku)
		}
		b.WriteString(effect)
		b.WriteString(" ")
	}

	if parsed.Festive {
		b.WriteString("Festivized ")
	}

	for _, ks := range killstreakPrefixes {
		if parsed.Killstreak == ks.Tier {
			b.WriteString(ks.Prefix)
			break
		}
	}

	if parsed.Australium {
		b.WriteString("Australium ")
	}

	if parsed.Target != 0 {
		target, ok := s.Items[parsed.Target]
		if !ok {
			return "", fmt.Errorf("unknown target defindex %d in sku %q", parsed.Target, sku)
		}
		b.WriteString(target.ItemName)
		b.WriteString(" ")
	}

	b.WriteString(item.ItemName)

	if parsed.Wear != 0 {
		b.WriteString(" (")
		b.WriteString(wearNames[parsed.Wear])
		b.WriteString(")")
	}
	if parsed.CraftNumber != 0 {
		fmt.Fprintf(&b, " #%d", parsed.CraftNumber)
	}
	if parsed.CrateSeries != 0 {
		fmt.Fprintf(&b, " #%d", parsed.CrateSeries)
	}

	return b.String(), nil
}

// SkuFromName converts a backpack.tf item name into its canonical sku.
// It understands the marketplace name grammar: Non-Craftable, Strange,
// quality prefixes, unusual effects, Festivized, killstreak tiers,
// Australium and wear suffixes.
func (s *Schema) SkuFromName(name string) (string, error) {
	rest := strings.TrimSpace(name)
	sku := Sku{Quality: QualityUnique, Craftable: true, Tradable: true}

	if after, found := strings.CutPrefix(rest, "Non-Craftable "); found {
		sku.Craftable = false
		rest = after
	}

	// Some items are literally named with a marker word ("Strange Bacon
	// Grease"), so try the dictionary before stripping anything else.
	if defindex, ok := s.lookupDefindex(rest); ok {
		sku.Defindex = defindex
		return sku.String(), nil
	}

	strange := false
	if after, found := strings.CutPrefix(rest, "Strange "); found {
		strange = true
		rest = after
	}

	// A wear suffix marks a decorated item.
	if open := strings.LastIndex(rest, " ("); open != -1 && strings.HasSuffix(rest, ")") {
		if wear, ok := wearByName[strings.ToLower(rest[open+2:len(rest)-1])]; ok {
			sku.Wear = wear
			sku.Quality = QualityDecorated
			rest = rest[:open]
		}
	}

	if open := strings.LastIndex(rest, " #"); open != -1 {
		if n, err := strconv.Atoi(rest[open+2:]); err == nil {
			sku.CraftNumber = n
			rest = rest[:open]
		}
	}

	if defindex, ok := s.lookupDefindex(rest); ok {
		sku.Defindex = defindex
		return s.finishSku(sku, strange), nil
	}

	if quality, ok := s.matchQualityPrefix(&rest); ok {
		sku.Quality = quality
	}

	for changed := true; changed; {
		changed = false
		if after, found := strings.CutPrefix(rest, "Festivized "); found {
			sku.Festive = true
			rest = after
			changed = true
		}
		for _, ks := range killstreakPrefixes {
			if after, found := strings.CutPrefix(rest, ks.Prefix); found {
				sku.Killstreak = ks.Tier
				rest = after
				changed = true
				break
			}
		}
		if after, found := strings.CutPrefix(rest, "Australium "); found && !strings.HasPrefix(after, "Gold") {
			sku.Australium = true
			rest = after
			changed = true
		}
	}

	if defindex, ok := s.lookupDefindex(rest); ok {
		sku.Defindex = defindex
		return s.finishSku(sku, strange), nil
	}

	// Unusual names drop the quality word and lead with the effect.
	if effect, after, ok := s.matchEffectPrefix(rest); ok {
		sku.Effect = effect
		if sku.Quality == QualityUnique {
			sku.Quality = QualityUnusual
		}
		if defindex, ok := s.lookupDefindex(after); ok {
			sku.Defindex = defindex
			return s.finishSku(sku, strange), nil
		}
	}

	return "", fmt.Errorf("unknown item name %q", name)
}

func (s *Schema) finishSku(sku Sku, strange bool) string {
	if strange {
		if sku.Quality == QualityUnique {
			sku.Quality = QualityStrange
		} else {
			sku.ElevatedStrange = true
		}
	}
	return sku.String()
}

func (s *Schema) lookupDefindex(name string) (int, bool) {
	defindex, ok := s.DefindexByName[strings.ToLower(strings.TrimSpace(name))]
	return defindex, ok
}

func (s *Schema) matchQualityPrefix(rest *string) (int, bool) {
	for name, id := range s.QualityByName {
		if id == QualityUnique || id == QualityStrange || id == QualityDecorated {
			continue
		}
		prefix := *rest
		if len(prefix) > len(name) && strings.EqualFold(prefix[:len(name)], name) && prefix[len(name)] == ' ' {
			*rest = prefix[len(name)+1:]
			return id, true
		}
	}
	return 0, false
}

func (s *Schema) matchEffectPrefix(rest string) (int, string, bool) {
	bestLen := 0
	bestID := 0
	lower := strings.ToLower(rest)
	for name, id := range s.EffectByName {
		if len(lower) > len(name) && strings.HasPrefix(lower, name) && lower[len(name)] == ' ' {
			if len(name) > bestLen {
				bestLen = len(name)
				bestID = id
			}
		}
	}
	if bestLen == 0 {
		return 0, "", false
	}
	return bestID, rest[bestLen+1:], true
}

// SchemaProvider serves schema lookups with a Redis-backed cache. Safe for
// concurrent use.
type SchemaProvider struct {
	http  *resty.Client
	redis *redis.Client
	appID int

	mu     sync.RWMutex
	schema *Schema
}

// NewSchemaProvider creates a provider for the given app.
func NewSchemaProvider(redisClient *redis.Client, apiKey string, appID int) *SchemaProvider {
	client := resty.New().
		SetBaseURL(steamAPIBaseURL).
		SetTimeout(30 * time.Second).
		SetQueryParam("key", apiKey).
		SetQueryParam("language", "en")

	return &SchemaProvider{
		http:  client,
		redis: redisClient,
		appID: appID,
	}
}

// WithBaseURL overrides the Steam API endpoint. Used by tests.
func (p *SchemaProvider) WithBaseURL(url string) *SchemaProvider {
	p.http.SetBaseURL(url)
	return p
}

func (p *SchemaProvider) cacheKey() string {
	return fmt.Sprintf("schema:%d", p.appID)
}

// Schema returns the current schema, loading it from Redis or Steam on
// first use or after the cached copy expires.
func (p *SchemaProvider) Schema(ctx context.Context) (*Schema, error) {
	p.mu.RLock()
	schema := p.schema
	p.mu.RUnlock()

	if schema != nil && time.Since(schema.FetchedAt) < schemaCacheTTL {
		return schema, nil
	}

	return p.refresh(ctx, false)
}

// Refresh forces a fetch from Steam, bypassing both caches.
func (p *SchemaProvider) Refresh(ctx context.Context) error {
	_, err := p.refresh(ctx, true)
	return err
}

func (p *SchemaProvider) refresh(ctx context.Context, force bool) (*Schema, error) {
	if !force {
		if schema := p.loadFromRedis(ctx); schema != nil {
			p.mu.Lock()
			p.schema = schema
			p.mu.Unlock()
			return schema, nil
		}
	}

	schema, err := p.fetchFromSteam(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item schema: %w", err)
	}

	p.storeInRedis(ctx, schema)

	p.mu.Lock()
	p.schema = schema
	p.mu.Unlock()

	logger.Info("✅ Item schema refreshed (%d items, %d effects)", len(schema.Items), len(schema.EffectNames))
	return schema, nil
}

func (p *SchemaProvider) loadFromRedis(ctx context.Context) *Schema {
	if p.redis == nil {
		return nil
	}
	raw, err := p.redis.Get(ctx, p.cacheKey()).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Error("Failed to read schema cache: %v", err)
		}
		return nil
	}
	var schema Schema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		logger.Error("Failed to decode schema cache: %v", err)
		return nil
	}
	return &schema
}

func (p *SchemaProvider) storeInRedis(ctx context.Context, schema *Schema) {
	if p.redis == nil {
		return
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		logger.Error("Failed to encode schema for cache: %v", err)
		return
	}
	if err := p.redis.Set(ctx, p.cacheKey(), raw, schemaCacheTTL).Err(); err != nil {
		logger.Error("Failed to write schema cache: %v", err)
	}
}

// Run keeps the schema fresh in the background until ctx is canceled.
func (p *SchemaProvider) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Schema(ctx); err != nil {
				logger.Error("Schema refresh failed: %v", err)
			}
		}
	}
}

// NameFromSku resolves the item name for a sku using the cached schema.
func (p *SchemaProvider) NameFromSku(ctx context.Context, sku string) (string, error) {
	schema, err := p.Schema(ctx)
	if err != nil {
		return "", err
	}
	return schema.NameFromSku(sku)
}

// SkuFromName resolves the canonical sku for an item name using the cached
// schema.
func (p *SchemaProvider) SkuFromName(ctx context.Context, name string) (string, error) {
	schema, err := p.Schema(ctx)
	if err != nil {
		return "", err
	}
	return schema.SkuFromName(name)
}

type schemaItemsResponse struct {
	Result struct {
		Status int          `json:"status"`
		Items  []SchemaItem `json:"items"`
		Next   *int         `json:"next"`
	} `json:"result"`
}

type schemaOverviewResponse struct {
	Result struct {
		Status       int               `json:"status"`
		Qualities    map[string]int    `json:"qualities"`
		QualityNames map[string]string `json:"qualityNames"`
		Particles    []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"attribute_controlled_attached_particles"`
	} `json:"result"`
}

func (p *SchemaProvider) fetchFromSteam(ctx context.Context) (*Schema, error) {
	var overview schemaOverviewResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&overview).
		Get(fmt.Sprintf("/IEconItems_%d/GetSchemaOverview/v0001/", p.appID))
	if err != nil {
		return nil, fmt.Errorf("schema overview request failed: %w", err)
	}
	if resp.StatusCode() != 200 || overview.Result.Status != 1 {
		return nil, fmt.Errorf("schema overview returned status %d: %s", resp.StatusCode(), resp.String())
	}

	schema := &Schema{
		FetchedAt:      time.Now().UTC(),
		Items:          make(map[int]SchemaItem),
		DefindexByName: make(map[string]int),
		QualityNames:   make(map[int]string),
		QualityByName:  make(map[string]int),
		EffectNames:    make(map[int]string),
		EffectByName:   make(map[string]int),
	}

	for internal, id := range overview.Result.Qualities {
		display, ok := overview.Result.QualityNames[internal]
		if !ok {
			display = internal
		}
		schema.QualityNames[id] = display
		schema.QualityByName[strings.ToLower(display)] = id
	}
	for _, particle := range overview.Result.Particles {
		schema.EffectNames[particle.ID] = particle.Name
		schema.EffectByName[strings.ToLower(particle.Name)] = particle.ID
	}

	start := 0
	for {
		var page schemaItemsResponse
		resp, err := p.http.R().
			SetContext(ctx).
			SetQueryParam("start", strconv.Itoa(start)).
			SetResult(&page).
			Get(fmt.Sprintf("/IEconItems_%d/GetSchemaItems/v0001/", p.appID))
		if err != nil {
			return nil, fmt.Errorf("schema items request failed: %w", err)
		}
		if resp.StatusCode() != 200 || page.Result.Status != 1 {
			return nil, fmt.Errorf("schema items returned status %d: %s", resp.StatusCode(), resp.String())
		}

		for _, item := range page.Result.Items {
			if item.ItemName == "" {
				continue
			}
			schema.Items[item.Defindex] = item
			// First defindex wins so reverse lookups stay stable across refreshes.
			key := strings.ToLower(item.ItemName)
			if _, exists := schema.DefindexByName[key]; !exists {
				schema.DefindexByName[key] = item.Defindex
			}
		}

		if page.Result.Next == nil {
			break
		}
		start = *page.Result.Next
	}

	return schema, nil
}
