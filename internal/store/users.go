/**
 * @description
 * Persistence layer for backpack.tf user profiles attached to stream
 * events. Saving is optional (SAVE_USER_DATA); when disabled the table is
 * cleared at startup and never written.
 */

package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tf2-stack/listings-backend/internal/models"
)

// UsersStore reads and writes user documents keyed by steam id.
type UsersStore struct {
	DB *gorm.DB
}

// NewUsersStore creates a users store backed by the given database.
func NewUsersStore(db *gorm.DB) *UsersStore {
	return &UsersStore{DB: db}
}

// Upsert inserts or replaces a user document. The steam id is taken from
// the document's "id" field.
func (s *UsersStore) Upsert(ctx context.Context, doc models.JSONDoc) error {
	steamID, _ := doc["id"].(string)
	if steamID == "" {
		return fmt.Errorf("user document has no id")
	}

	row := models.User{
		SteamID: steamID,
		Doc:     doc,
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "steam_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", steamID, err)
	}
	return nil
}

// Get returns the stored document for a steam id. Returns
// gorm.ErrRecordNotFound when the user is unknown.
func (s *UsersStore) Get(ctx context.Context, steamID string) (models.JSONDoc, error) {
	var row models.User
	err := s.DB.WithContext(ctx).
		Where("steam_id = ?", steamID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return row.Doc, nil
}

// Drop removes every stored user. Called at startup when user data saving
// is disabled.
func (s *UsersStore) Drop(ctx context.Context) error {
	err := s.DB.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.User{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear users table: %w", err)
	}
	return nil
}
