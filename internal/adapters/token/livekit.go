// Package token mints access tokens for the external LiveKit media server.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("media token issuer not configured")

// VideoGrant mirrors LiveKit's "video" claim.
type VideoGrant struct {
	RoomJoin     bool   `json:"roomJoin,omitempty"`
	Room         string `json:"room,omitempty"`
	CanPublish   *bool  `json:"canPublish,omitempty"`
	CanSubscribe *bool  `json:"canSubscribe,omitempty"`
}

type Claims struct {
	Name  string      `json:"name,omitempty"`
	Video *VideoGrant `json:"video,omitempty"`
	jwt.RegisteredClaims
}

type LiveKitIssuer struct {
	cfg config.LiveKitConfig
	now func() time.Time
}

var _ core.TokenIssuer = (*LiveKitIssuer)(nil)

func NewLiveKitIssuer(cfg config.LiveKitConfig) *LiveKitIssuer {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 6 * time.Hour
	}
	return &LiveKitIssuer{cfg: cfg, now: time.Now}
}

// Mint grants join, publish and subscribe on room. The identity gets a
// millisecond suffix so the same username can join from several devices.
func (i *LiveKitIssuer) Mint(room, username string) (core.Grant, error) {
	if i.cfg.APIKey == "" || i.cfg.APISecret == "" {
		return core.Grant{}, ErrNotConfigured
	}
	if room == "" || username == "" {
		return core.Grant{}, errors.New("room and username are required")
	}

	now := i.now()
	identity := fmt.Sprintf("%s_%d", username, now.UnixMilli())
	allow := true
	claims := Claims{
		Name: username,
		Video: &VideoGrant{
			RoomJoin:     true,
			Room:         room,
			CanPublish:   &allow,
			CanSubscribe: &allow,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.APIKey,
			Subject:   identity,
			ID:        uuid.NewString(),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.APISecret))
	if err != nil {
		return core.Grant{}, fmt.Errorf("sign media token: %w", err)
	}
	return core.Grant{Token: signed, URL: i.cfg.URL, Identity: identity}, nil
}
