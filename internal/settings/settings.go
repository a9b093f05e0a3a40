// Package settings persists the dashboard configuration and credential in
// the shared key-value store, outside the cache namespace.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/leonardcser/ghpanel/internal/cache"
)

const (
	settingsKey = "settings"
	tokenKey    = "token"

	// MaxPanelLimit caps the number of items a panel may show.
	MaxPanelLimit = 100
	maxTokenLen   = 255
)

var (
	// ErrInvalidSettings wraps every settings validation failure.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrInvalidToken wraps every credential validation failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotConfigured means no credential has been saved yet.
	ErrNotConfigured = errors.New("token not configured")
)

// Kind names a dashboard data section.
type Kind string

const (
	KindRepositories Kind = "repositories"
	KindIssues       Kind = "issues"
	KindProjects     Kind = "projects"
	KindAll          Kind = "all"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRepositories, KindIssues, KindProjects, KindAll:
		return true
	}
	return false
}

// Panel is one dashboard section.
type Panel struct {
	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Enabled bool   `json:"enabled"`
	// Limit caps displayed items; 0 shows everything.
	Limit int `json:"limit"`
}

// Settings is the user-facing dashboard configuration.
type Settings struct {
	Panels          []Panel `json:"panels"`
	CacheTTLSeconds int     `json:"cache_ttl_seconds"`
	ShowArchived    bool    `json:"show_archived"`
}

// Default returns the settings used before the user saves any.
func Default() Settings {
	return Settings{
		Panels: []Panel{
			{Kind: KindRepositories, Title: "Repositories", Enabled: true},
			{Kind: KindIssues, Title: "Mentions", Enabled: true, Limit: 20},
			{Kind: KindProjects, Title: "Projects", Enabled: true},
		},
		CacheTTLSeconds: 300,
	}
}

// Validate checks panel kinds and numeric ranges.
func (s Settings) Validate() error {
	if s.CacheTTLSeconds < 0 {
		return fmt.Errorf("%w: cache_ttl_seconds must not be negative", ErrInvalidSettings)
	}
	for i, p := range s.Panels {
		if !p.Kind.Valid() || p.Kind == KindAll {
			return fmt.Errorf("%w: panel %d has unknown kind %q", ErrInvalidSettings, i, p.Kind)
		}
		if p.Limit < 0 || p.Limit > MaxPanelLimit {
			return fmt.Errorf("%w: panel %d limit must be between 0 and %d", ErrInvalidSettings, i, MaxPanelLimit)
		}
	}
	return nil
}

// ValidateToken checks the credential's shape without contacting the API.
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	if len(token) > maxTokenLen {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidToken, maxTokenLen)
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: contains whitespace", ErrInvalidToken)
	}
	return nil
}

// Store reads and writes settings and the credential.
type Store struct {
	kv cache.KV
}

func NewStore(kv cache.KV) *Store {
	return &Store{kv: kv}
}

// Load returns the saved settings or Default when none are saved.
func (s *Store) Load() (Settings, error) {
	b, err := s.kv.Get(settingsKey)
	if errors.Is(err, cache.ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	var out Settings
	if err := json.Unmarshal(b, &out); err != nil {
		return Settings{}, fmt.Errorf("%w: stored settings are corrupt: %v", ErrInvalidSettings, err)
	}
	return out, nil
}

// Save validates and persists settings.
func (s *Store) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.kv.Set(settingsKey, b)
}

// Token returns the saved credential or ErrNotConfigured.
func (s *Store) Token() (string, error) {
	b, err := s.kv.Get(tokenKey)
	if errors.Is(err, cache.ErrNotFound) || (err == nil && len(b) == 0) {
		return "", ErrNotConfigured
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SaveToken validates and persists the credential.
func (s *Store) SaveToken(token string) error {
	token = strings.TrimSpace(token)
	if err := ValidateToken(token); err != nil {
		return err
	}
	return s.kv.Set(tokenKey, []byte(token))
}
