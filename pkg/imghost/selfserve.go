package imghost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrUnknownImage indicates a serve token whose payload has expired from
// the cache or never existed.
var ErrUnknownImage = errors.New("unknown or expired image token")

// CachedImage is an image payload held for self-serving.
type CachedImage struct {
	Data []byte
	MIME string
}

// SelfServeConfig configures the self-hosted image backend.
type SelfServeConfig struct {
	// PublicBaseURL is the externally reachable base of the admin HTTP
	// server, e.g. "https://bot.example.com". Required.
	PublicBaseURL string

	// SigningKey signs the serve tokens embedded in generated URLs. Required.
	SigningKey []byte

	// Capacity bounds how many images are held at once. Default: 128.
	Capacity int

	// TTL is how long an uploaded image stays servable. Default: 15 minutes.
	TTL time.Duration
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *SelfServeConfig) applyDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = 128
	}
	if c.TTL <= 0 {
		c.TTL = 15 * time.Minute
	}
}

// SelfServe hosts images from the process itself: uploads land in a
// TTL-bounded in-memory cache and the returned URL points at the admin
// server's /i/{token} route, which resolves the token back to the bytes.
//
// This avoids third-party hosts entirely but requires the admin server
// to be reachable from the vision backends.
type SelfServe struct {
	config SelfServeConfig
	cache  *expirable.LRU[string, CachedImage]
}

var _ Host = (*SelfServe)(nil)

// NewSelfServe creates the self-hosting backend.
func NewSelfServe(cfg SelfServeConfig) (*SelfServe, error) {
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("self-serve host requires a public base URL")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("self-serve host requires a signing key")
	}
	cfg.applyDefaults()
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &SelfServe{
		config: cfg,
		cache:  expirable.NewLRU[string, CachedImage](cfg.Capacity, nil, cfg.TTL),
	}, nil
}

// Name returns the backend identifier.
func (s *SelfServe) Name() string {
	return "selfserve"
}

// Upload stores the image in the cache and mints a signed URL for it.
func (s *SelfServe) Upload(ctx context.Context, data []byte, mime, filename string) (string, error) {
	id := uuid.NewString()

	now := time.Now()
	claims := jwtlib.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(s.config.TTL)),
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.config.SigningKey)
	if err != nil {
		return "", fmt.Errorf("signing serve token: %w", err)
	}

	payload := make([]byte, len(data))
	copy(payload, data)
	s.cache.Add(id, CachedImage{Data: payload, MIME: mime})

	return s.config.PublicBaseURL + "/i/" + token, nil
}

// Resolve verifies a serve token and returns the cached image it points
// at. The admin server's /i/{token} route is the only caller.
func (s *SelfServe) Resolve(token string) (CachedImage, error) {
	claims := &jwtlib.RegisteredClaims{}
	_, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		return s.config.SigningKey, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return CachedImage{}, fmt.Errorf("invalid serve token: %w", err)
	}

	img, ok := s.cache.Get(claims.Subject)
	if !ok {
		return CachedImage{}, ErrUnknownImage
	}
	return img, nil
}
