/**
 * @description
 * User database model. Stores the raw user document that arrives alongside
 * stream events, keyed by steam id. The table is cleared on startup unless
 * persistence is explicitly enabled in configuration.
 *
 * @dependencies
 * - standard "database/sql/driver" and "encoding/json" for the document column
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONDoc is a schemaless JSON object column.
type JSONDoc map[string]interface{}

// Value implements the driver.Valuer interface, serializing the map to JSON
func (d JSONDoc) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface
func (d *JSONDoc) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return errors.New("type assertion failed for JSONDoc")
	}
}

// User maps to the 'users' table.
type User struct {
	SteamID   string    `gorm:"column:steam_id;primaryKey" json:"steam_id"`
	Doc       JSONDoc   `gorm:"column:doc;type:jsonb" json:"doc"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by User to `users`
func (User) TableName() string {
	return "users"
}
