package calendar

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	stateAudience = "calendar-connect"
	stateTTL      = 10 * time.Minute
)

// ErrInvalidState is returned when the OAuth state is missing, forged or
// expired
var ErrInvalidState = errors.New("invalid OAuth state")

// OAuthConfig holds the hosted-auth settings of the calendar provider
type OAuthConfig struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	RedirectURL string
	// StateSecret signs the state parameter that carries the user id
	StateSecret string
	StubMode    bool
}

// Grant is the result of a completed calendar connection
type Grant struct {
	ID    string
	Email string
}

// OAuth runs the calendar connect flow
type OAuth struct {
	config      *oauth2.Config
	stateSecret []byte
	stubMode    bool
	now         func() time.Time
}

// NewOAuth creates the connect flow for cfg
func NewOAuth(cfg OAuthConfig) *OAuth {
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.APIKey,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"calendar.read_only", "calendar.modify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/v3/connect/auth",
				TokenURL:  base + "/v3/connect/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		stateSecret: []byte(cfg.StateSecret),
		stubMode:    cfg.StubMode,
		now:         time.Now,
	}
}

// AuthCodeURL returns the provider URL that starts the connect flow for
// userID. In stub mode it points straight at the callback.
func (o *OAuth) AuthCodeURL(userID uint) (string, error) {
	state, err := o.signState(userID)
	if err != nil {
		return "", err
	}
	if o.stubMode {
		return o.config.RedirectURL + "?code=stub&state=" + state, nil
	}
	return o.config.AuthCodeURL(state, oauth2.SetAuthURLParam("access_type", "online")), nil
}

type stateClaims struct {
	jwt.RegisteredClaims
}

func (o *OAuth) signState(userID uint) (string, error) {
	now := o.now()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Audience:  jwt.ClaimStrings{stateAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.stateSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// ParseState verifies state and returns the user id it carries
func (o *OAuth) ParseState(state string) (uint, error) {
	if state == "" {
		return 0, ErrInvalidState
	}

	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		return o.stateSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithTimeFunc(o.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidState
	}
	return uint(id), nil
}

// Exchange trades an authorization code for a grant
func (o *OAuth) Exchange(ctx context.Context, code string) (Grant, error) {
	if code == "" {
		return Grant{}, fmt.Errorf("no authorization code provided")
	}
	if o.stubMode {
		return Grant{ID: "stub-grant-" + uuid.NewString()}, nil
	}

	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return Grant{}, fmt.Errorf("failed to exchange code: %w", err)
	}

	grantID, _ := token.Extra("grant_id").(string)
	if grantID == "" {
		return Grant{}, fmt.Errorf("token response has no grant_id")
	}
	email, _ := token.Extra("email").(string)
	return Grant{ID: grantID, Email: email}, nil
}
