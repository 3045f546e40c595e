package models

import (
	"time"

	"github.com/jimdaga/ascend/internal/crypto"
	"gorm.io/gorm"
)

var sealer *crypto.Sealer

// InitEncryption configures token sealing for AuthIdentity rows.
// Without it tokens are stored as given.
func InitEncryption(encryptionKey string) error {
	s, err := crypto.NewSealer(encryptionKey)
	if err != nil {
		return err
	}
	sealer = s
	return nil
}

// AuthIdentity is a user's OAuth identity at one provider ("google" for
// login). Tokens are sealed at rest.
type AuthIdentity struct {
	gorm.Model
	UserID         uint   `gorm:"not null;index"`
	Provider       string `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user,where:deleted_at IS NULL"`
	ProviderUserID string `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user,where:deleted_at IS NULL"`
	AccessToken    string `gorm:"type:text"`
	RefreshToken   string `gorm:"type:text"`
	TokenExpiry    *time.Time
}

// BeforeSave seals tokens before they are written
func (a *AuthIdentity) BeforeSave(tx *gorm.DB) error {
	if sealer == nil {
		return nil
	}

	var err error
	if a.AccessToken, err = sealer.Seal(a.AccessToken); err != nil {
		return err
	}
	if a.RefreshToken, err = sealer.Seal(a.RefreshToken); err != nil {
		return err
	}
	return nil
}

// AfterSave restores plaintext on the in-memory value
func (a *AuthIdentity) AfterSave(tx *gorm.DB) error {
	return a.open()
}

// AfterFind opens tokens after loading
func (a *AuthIdentity) AfterFind(tx *gorm.DB) error {
	return a.open()
}

func (a *AuthIdentity) open() error {
	if sealer == nil {
		return nil
	}

	var err error
	if a.AccessToken, err = sealer.Open(a.AccessToken); err != nil {
		return err
	}
	if a.RefreshToken, err = sealer.Open(a.RefreshToken); err != nil {
		return err
	}
	return nil
}
