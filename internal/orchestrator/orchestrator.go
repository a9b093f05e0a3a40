// Package orchestrator routes caller requests to the settings store and the
// dashboard service and wraps every outcome in an Envelope.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leonardcser/ghpanel/internal/dashboard"
	"github.com/leonardcser/ghpanel/internal/github"
	"github.com/leonardcser/ghpanel/internal/logger"
	"github.com/leonardcser/ghpanel/internal/settings"
)

// Envelope is the uniform result of a request.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Credentials receives a rotated credential.
type Credentials interface {
	SetCredential(token string)
}

// Cache is cleared on refresh and on credential changes.
type Cache interface {
	ClearAll() error
}

// Deps are the components an Orchestrator routes to.
type Deps struct {
	Settings    *settings.Store
	Dashboard   *dashboard.Service
	Cache       Cache
	Credentials Credentials
}

type Orchestrator struct {
	settings    *settings.Store
	dashboard   *dashboard.Service
	cache       Cache
	credentials Credentials
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		settings:    deps.Settings,
		dashboard:   deps.Dashboard,
		cache:       deps.Cache,
		credentials: deps.Credentials,
	}
}

// HandleRaw decodes and handles a raw message.
func (o *Orchestrator) HandleRaw(ctx context.Context, raw []byte) Envelope {
	req, err := Decode(raw)
	if err != nil {
		return failure(err)
	}
	return o.Handle(ctx, req)
}

// Handle serves req. It never panics; every failure becomes an error
// envelope.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("orchestrator: panic handling %T: %v", req, r)
			env = Envelope{Success: false, Error: "internal error"}
		}
	}()

	data, err := o.dispatch(ctx, req)
	if err != nil {
		logger.Warnf("orchestrator: %T failed: %v", req, err)
		return failure(err)
	}
	return Envelope{Success: true, Data: data}
}

func (o *Orchestrator) dispatch(ctx context.Context, req Request) (any, error) {
	switch r := req.(type) {
	case GetSettings:
		return o.settings.Load()
	case SaveSettings:
		if err := o.settings.Save(r.Settings); err != nil {
			return nil, err
		}
		o.dashboard.SetTTL(time.Duration(r.Settings.CacheTTLSeconds) * time.Second)
		return r.Settings, nil
	case SaveToken:
		token := strings.TrimSpace(r.Token)
		if err := o.settings.SaveToken(token); err != nil {
			return nil, err
		}
		o.credentials.SetCredential(token)
		// Cached data was fetched with the previous credential.
		if err := o.cache.ClearAll(); err != nil {
			return nil, err
		}
		return nil, nil
	case ValidateToken:
		return o.dashboard.ValidateToken(ctx), nil
	case GetData:
		if !r.Kind.Valid() {
			return nil, fmt.Errorf("%w: %q", dashboard.ErrUnknownKind, r.Kind)
		}
		return o.dashboard.Data(ctx, r.Kind)
	case RefreshData:
		return nil, o.cache.ClearAll()
	default:
		return nil, ErrUnknownMessage
	}
}

func failure(err error) Envelope {
	msg := err.Error()
	if errors.Is(err, github.ErrNotConfigured) || errors.Is(err, settings.ErrNotConfigured) {
		msg = "not configured"
	}
	return Envelope{Success: false, Error: msg}
}
