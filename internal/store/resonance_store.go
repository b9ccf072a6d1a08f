// Package store persists Resonance records. Lookup is always by the hash of
// the identity credential; the credential itself never touches the database.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/useyours/yours-backend/internal/cryptox"
	"github.com/useyours/yours-backend/internal/models"
)

type ResonanceStore struct {
	db *gorm.DB
}

func NewResonanceStore(db *gorm.DB) *ResonanceStore {
	return &ResonanceStore{db: db}
}

// FindOrCreate loads the record for a credential, creating it on first
// sign-in. The credential is attached to the returned record for decryption
// during this operation's lifetime.
func (s *ResonanceStore) FindOrCreate(credential string) (*models.Resonance, error) {
	hash := cryptox.HashCredential(credential)

	var r models.Resonance
	err := s.db.First(&r, "credential_hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r = models.Resonance{CredentialHash: hash}
		if cerr := s.db.Create(&r).Error; cerr != nil {
			// Lost the race with a concurrent first sign-in; the row
			// exists now, so load that one instead of surfacing the
			// key conflict.
			r = models.Resonance{}
			if ferr := s.db.First(&r, "credential_hash = ?", hash).Error; ferr != nil {
				return nil, fmt.Errorf("create resonance: %w", cerr)
			}
		}
	} else if err != nil {
		return nil, fmt.Errorf("load resonance: %w", err)
	}

	r.AttachCredential(credential)
	return &r, nil
}

// Find is FindOrCreate without the create; a missing record returns nil, nil.
func (s *ResonanceStore) Find(credential string) (*models.Resonance, error) {
	hash := cryptox.HashCredential(credential)

	var r models.Resonance
	err := s.db.First(&r, "credential_hash = ?", hash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load resonance: %w", err)
	}

	r.AttachCredential(credential)
	return &r, nil
}

// Save writes the record back. Last write wins at this layer; the advisory
// continuity check has already run by the time anyone calls this. The
// record's BeforeSave hook enforces day monotonicity.
func (s *ResonanceStore) Save(r *models.Resonance) error {
	return s.db.Save(r).Error
}
