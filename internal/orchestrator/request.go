package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leonardcser/ghpanel/internal/settings"
)

// ErrUnknownMessage is returned for a request kind the orchestrator does not
// serve. Its text is shown to callers as is.
var ErrUnknownMessage = errors.New("Unknown message type") //nolint:staticcheck // caller-visible text

// Request kinds as they appear in the "type" field of a raw message.
const (
	TypeGetSettings   = "get-settings"
	TypeSaveSettings  = "save-settings"
	TypeSaveToken     = "save-token"
	TypeValidateToken = "validate-token"
	TypeGetData       = "get-data"
	TypeRefreshData   = "refresh-data"
)

// Request is one of the request types declared in this package.
type Request interface {
	request()
}

type GetSettings struct{}

type SaveSettings struct {
	Settings settings.Settings
}

type SaveToken struct {
	Token string
}

type ValidateToken struct{}

type GetData struct {
	Kind settings.Kind
}

// RefreshData drops every cached resource; the next GetData refetches.
type RefreshData struct{}

func (GetSettings) request()   {}
func (SaveSettings) request()  {}
func (SaveToken) request()     {}
func (ValidateToken) request() {}
func (GetData) request()       {}
func (RefreshData) request()   {}

type message struct {
	Type     string             `json:"type"`
	Settings *settings.Settings `json:"settings,omitempty"`
	Token    string             `json:"token,omitempty"`
	Kind     settings.Kind      `json:"kind,omitempty"`
}

// Decode parses a raw {"type": ...} message into a Request.
func Decode(raw []byte) (Request, error) {
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	switch m.Type {
	case TypeGetSettings:
		return GetSettings{}, nil
	case TypeSaveSettings:
		if m.Settings == nil {
			return nil, fmt.Errorf("%w: missing settings", settings.ErrInvalidSettings)
		}
		return SaveSettings{Settings: *m.Settings}, nil
	case TypeSaveToken:
		return SaveToken{Token: m.Token}, nil
	case TypeValidateToken:
		return ValidateToken{}, nil
	case TypeGetData:
		return GetData{Kind: m.Kind}, nil
	case TypeRefreshData:
		return RefreshData{}, nil
	default:
		return nil, ErrUnknownMessage
	}
}
