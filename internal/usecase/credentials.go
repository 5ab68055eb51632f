package usecase

import (
	"context"
	"strings"

	"StockPulse/internal/domain/models"
)

const minCredentialLength = 10

// PreferenceSource reads the current user preferences.
type PreferenceSource interface {
	Preferences(ctx context.Context) models.UserPreferences
}

// Credentials resolves the API key for the next remote call. A key set in the
// user's preferences wins over the configured default.
type Credentials struct {
	defaultKey string
	prefs      PreferenceSource
}

func NewCredentials(defaultKey string, prefs PreferenceSource) *Credentials {
	return &Credentials{defaultKey: defaultKey, prefs: prefs}
}

// Resolve returns the usable key or models.ErrInvalidCredential.
func (c *Credentials) Resolve(ctx context.Context) (string, error) {
	key := c.defaultKey
	if c.prefs != nil {
		if custom := strings.TrimSpace(c.prefs.Preferences(ctx).CustomAPIKey); custom != "" {
			key = custom
		}
	}
	key = strings.TrimSpace(key)
	if key == "" || key == "undefined" || len(key) < minCredentialLength {
		return "", models.ErrInvalidCredential
	}
	return key, nil
}
