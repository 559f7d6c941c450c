/**
 * @description
 * Listing database model and the canonical listing document.
 * Each marketplace item (sku) owns a set of listing rows in the 'listings' table;
 * the document column carries the canonical JSON shape served to clients.
 *
 * @dependencies
 * - gorm.io/gorm
 * - standard "database/sql/driver" and "encoding/json" for the document column
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// NamedAttribute is an {id, name} pair for paints, strange parts, sheens
// and killstreak effects.
type NamedAttribute struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Spell is a spell attribute; defindex identifies the spell category.
type Spell struct {
	Defindex int    `json:"defindex"`
	ID       int    `json:"id"`
	Name     string `json:"name"`
}

// ListingDoc is the canonical representation of one market offer.
// For sell intent ID is the marketplace listing id; for buy intent it is
// the synthetic "buy_<appid>_<steamID>" so a user holds at most one live
// buy offer per item.
type ListingDoc struct {
	ID                   string                 `json:"id"`
	Sku                  string                 `json:"sku"`
	Name                 string                 `json:"name"`
	Intent               string                 `json:"intent"`
	SteamID              string                 `json:"steamID"`
	Currencies           map[string]float64     `json:"currencies"`
	ListedAt             int64                  `json:"listedAt"`
	BumpAt               int64                  `json:"bumpAt"`
	Details              string                 `json:"details"`
	UserAgent            map[string]interface{} `json:"userAgent,omitempty"`
	BuyoutOnly           bool                   `json:"buyoutOnly"`
	TradeOffersPreferred bool                   `json:"tradeOffersPreferred"`
	Spells               []Spell                `json:"spells,omitempty"`
	Paint                *NamedAttribute        `json:"paint,omitempty"`
	StrangeParts         []NamedAttribute       `json:"strangeParts,omitempty"`
	Killstreaker         *NamedAttribute        `json:"killstreaker,omitempty"`
	Sheen                *NamedAttribute        `json:"sheen,omitempty"`
}

// Value implements the driver.Valuer interface, serializing the document to JSON
func (d ListingDoc) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface
func (d *ListingDoc) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = ListingDoc{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return errors.New("type assertion failed for ListingDoc")
	}
}

// Listing maps to the 'listings' table. The (sku, listing_id) pair is unique:
// re-inserting the same listing id under a sku overwrites the document.
type Listing struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	Sku       string     `gorm:"column:sku;index;uniqueIndex:idx_listings_sku_listing_id" json:"sku"`
	ListingID string     `gorm:"column:listing_id;uniqueIndex:idx_listings_sku_listing_id" json:"listing_id"`
	Doc       ListingDoc `gorm:"column:doc;type:jsonb" json:"doc"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by Listing to `listings`
func (Listing) TableName() string {
	return "listings"
}

// ItemUpdate is one entry of the coalesced changed-item set broadcast to
// websocket subscribers.
type ItemUpdate struct {
	Sku  string `json:"sku"`
	Name string `json:"name"`
}
