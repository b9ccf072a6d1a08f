package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/useyours/yours-backend/internal/cryptox"
)

// ErrDayDecreased is returned at save time when a universe day update would
// move backwards. Resetting to 1 ("begin again") is the one permitted
// decrease.
var ErrDayDecreased = errors.New("universe day cannot decrease")

// Resonance is the per-user record. The primary key is the SHA-256 of the
// user's identity credential; every other column is ciphertext keyed to that
// credential, so a row is structurally unreadable without it. Nothing here
// is stored as a native integer on purpose: even the day counter is
// encrypted text, so no field is incidentally informative.
type Resonance struct {
	CredentialHash            string  `gorm:"primaryKey;type:text;column:credential_hash"`
	EncryptedStripeCustomerID *string `gorm:"type:text"`
	EncryptedHarmonic         *string `gorm:"type:text"`
	EncryptedNarrative        *string `gorm:"type:text"`
	EncryptedUniverseDay      *string `gorm:"type:text"`
	EncryptedTextarea         *string `gorm:"type:text"`

	// Transient per-request state, never persisted. The credential is
	// attached after load and the derived key cached for the operation's
	// lifetime (the KDF is deliberately slow).
	credential string
	key        []byte
	dayWas     *int
}

// AttachCredential binds the identity credential to this record for the
// current operation, deriving the field-encryption key once.
func (r *Resonance) AttachCredential(credential string) {
	r.credential = credential
	r.key = cryptox.DeriveKey(credential)
}

// Credential returns the transiently attached credential. Callers that hand
// work to a background task must capture this by value before the request
// context ends.
func (r *Resonance) Credential() string {
	return r.credential
}

func (r *Resonance) decryptField(field *string) (string, error) {
	if field == nil {
		return "", nil
	}
	if r.key == nil {
		return "", cryptox.ErrMissingKey
	}
	return cryptox.Decrypt(*field, r.key)
}

func (r *Resonance) encryptField(value string) (*string, error) {
	if r.key == nil {
		return nil, cryptox.ErrMissingKey
	}
	encoded, err := cryptox.Encrypt(value, r.key)
	if err != nil {
		return nil, err
	}
	return &encoded, nil
}

func (r *Resonance) StripeCustomerID() (string, error) {
	return r.decryptField(r.EncryptedStripeCustomerID)
}

func (r *Resonance) SetStripeCustomerID(id string) error {
	encoded, err := r.encryptField(id)
	if err != nil {
		return err
	}
	r.EncryptedStripeCustomerID = encoded
	return nil
}

// Harmonic is the compact integration artifact carried across days in place
// of full history.
func (r *Resonance) Harmonic() (string, error) {
	return r.decryptField(r.EncryptedHarmonic)
}

func (r *Resonance) SetHarmonic(harmonic string) error {
	encoded, err := r.encryptField(harmonic)
	if err != nil {
		return err
	}
	r.EncryptedHarmonic = encoded
	return nil
}

// Narrative is the ordered accumulation of the current day's turns. An
// absent column decrypts to an empty slice, never nil-with-error.
func (r *Resonance) Narrative() ([]Turn, error) {
	raw, err := r.decryptField(r.EncryptedNarrative)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return []Turn{}, nil
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("decode narrative: %w", err)
	}
	return turns, nil
}

func (r *Resonance) SetNarrative(turns []Turn) error {
	if turns == nil {
		turns = []Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode narrative: %w", err)
	}
	encoded, err := r.encryptField(string(raw))
	if err != nil {
		return err
	}
	r.EncryptedNarrative = encoded
	return nil
}

// UniverseDay is 1-indexed and defaults to 1 for a fresh record.
func (r *Resonance) UniverseDay() (int, error) {
	if r.EncryptedUniverseDay == nil {
		return 1, nil
	}
	raw, err := r.decryptField(r.EncryptedUniverseDay)
	if err != nil {
		return 0, err
	}
	day, err := strconv.Atoi(raw)
	if err != nil || day < 1 {
		return 1, nil
	}
	return day, nil
}

// SetUniverseDay records the previously-loaded value before overwriting so
// BeforeSave can enforce monotonicity against the value current to this
// mutation, not one from much earlier.
func (r *Resonance) SetUniverseDay(day int) error {
	was, err := r.UniverseDay()
	if err != nil {
		return err
	}
	r.dayWas = &was

	encoded, err := r.encryptField(strconv.Itoa(day))
	if err != nil {
		return err
	}
	r.EncryptedUniverseDay = encoded
	return nil
}

// Textarea is the free-text scratch buffer.
func (r *Resonance) Textarea() (string, error) {
	return r.decryptField(r.EncryptedTextarea)
}

func (r *Resonance) SetTextarea(contents string) error {
	encoded, err := r.encryptField(contents)
	if err != nil {
		return err
	}
	r.EncryptedTextarea = encoded
	return nil
}

// UniverseTime is the "{day}:{message_count}" concurrency ordinal. Computed
// fresh on every call: the narrative is mutated read-modify-write by
// callers, so caching would lie.
func (r *Resonance) UniverseTime() (string, error) {
	day, err := r.UniverseDay()
	if err != nil {
		return "", err
	}
	narrative, err := r.Narrative()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", day, len(narrative)), nil
}

// BeginAgain clears the harmonic and narrative and returns to day 1. Valid
// from any state.
func (r *Resonance) BeginAgain() error {
	r.EncryptedHarmonic = nil
	if err := r.SetNarrative([]Turn{}); err != nil {
		return err
	}
	return r.SetUniverseDay(1)
}

// BeforeSave rejects non-monotonic universe day writes. The reset-to-1
// transition is explicitly allowed.
func (r *Resonance) BeforeSave(tx *gorm.DB) error {
	if r.dayWas == nil {
		return nil
	}
	day, err := r.UniverseDay()
	if err != nil {
		return err
	}
	if day < *r.dayWas && day != 1 {
		return fmt.Errorf("%w (was %d, attempted %d)", ErrDayDecreased, *r.dayWas, day)
	}
	return nil
}
