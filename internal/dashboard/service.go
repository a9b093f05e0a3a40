// Package dashboard serves the data behind each dashboard section: it reads
// through the cache, drains repository pagination and derives the grouped
// and sorted views handed to the renderer.
package dashboard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/leonardcser/ghpanel/internal/cache"
	"github.com/leonardcser/ghpanel/internal/github"
	"github.com/leonardcser/ghpanel/internal/logger"
	"github.com/leonardcser/ghpanel/internal/settings"
)

const (
	// DefaultTTL is how long fetched resources stay cached.
	DefaultTTL = 300 * time.Second

	// MaxRepositoryPages bounds pagination draining to 1000 repositories.
	MaxRepositoryPages = 10

	keyUser          = "user"
	keyOrganizations = "organizations"
	keyRepositories  = "repositories"
	keyIssues        = "issues"
	keyProjects      = "projects"
)

// API is the subset of the GitHub client the service reads from.
type API interface {
	CurrentUser(ctx context.Context) (*github.User, error)
	Organizations(ctx context.Context) ([]github.Organization, error)
	RepositoriesPage(ctx context.Context, page, perPage int) ([]github.Repository, error)
	MentionedIssues(ctx context.Context) ([]github.Issue, error)
	Projects(ctx context.Context) ([]github.Project, error)
}

// Service is safe for concurrent use. Concurrent misses on one resource
// share a single fetch.
type Service struct {
	api    API
	cache  *cache.Cache
	ttl    atomic.Int64
	flight singleflight.Group
}

// New returns a Service caching for ttl, or DefaultTTL when ttl is zero.
func New(api API, c *cache.Cache, ttl time.Duration) *Service {
	s := &Service{api: api, cache: c}
	s.SetTTL(ttl)
	return s
}

// SetTTL changes the TTL used for entries written afterwards. Zero or
// negative restores DefaultTTL.
func (s *Service) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.ttl.Store(int64(ttl))
}

// TTL returns the current cache TTL.
func (s *Service) TTL() time.Duration { return time.Duration(s.ttl.Load()) }

// readThrough serves key from the cache or loads and caches it. A cache
// that cannot be read or written degrades to a plain fetch.
//
// The shared load runs detached from any one caller's cancellation; each
// caller stops waiting when its own ctx is done.
func readThrough[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	loadCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		cached, ok, err := cache.GetAs[T](s.cache, key)
		if err != nil {
			logger.Warnf("dashboard: reading cache %s: %v", key, err)
		} else if ok {
			logger.Debugf("dashboard: cache hit %s", key)
			return cached, nil
		}

		fresh, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(key, fresh, s.TTL()); err != nil {
			logger.Warnf("dashboard: caching %s: %v", key, err)
		}
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			logger.Debugf("dashboard: shared in-flight fetch of %s", key)
		}
		return res.Val.(T), nil
	}
}

// User returns the authenticated user.
func (s *Service) User(ctx context.Context) (*github.User, error) {
	return readThrough(ctx, s, keyUser, s.api.CurrentUser)
}

// Organizations returns the user's organizations.
func (s *Service) Organizations(ctx context.Context) ([]github.Organization, error) {
	return readThrough(ctx, s, keyOrganizations, s.api.Organizations)
}

// Repositories returns every reachable repository, most recently updated
// first.
func (s *Service) Repositories(ctx context.Context) ([]github.Repository, error) {
	repos, err := readThrough(ctx, s, keyRepositories, s.drainRepositories)
	if err != nil {
		return nil, err
	}
	return sortByUpdated(repos, func(r github.Repository) time.Time { return r.UpdatedAt }), nil
}

// GroupedRepositories returns Repositories partitioned by owning
// organization.
func (s *Service) GroupedRepositories(ctx context.Context) ([]RepositoryGroup, error) {
	repos, err := s.Repositories(ctx)
	if err != nil {
		return nil, err
	}
	return GroupRepositories(repos), nil
}

// drainRepositories requests pages in order until a short or empty page,
// or until MaxRepositoryPages have been read.
func (s *Service) drainRepositories(ctx context.Context) ([]github.Repository, error) {
	all := []github.Repository{}
	for page := 1; page <= MaxRepositoryPages; page++ {
		repos, err := s.api.RepositoriesPage(ctx, page, github.RepositoriesPageSize)
		if err != nil {
			logger.Debugf("dashboard: repositories page %d: %v", page, err)
			return nil, err
		}
		all = append(all, repos...)
		if len(repos) < github.RepositoriesPageSize {
			return all, nil
		}
	}
	logger.Infof("dashboard: stopped after %d repository pages (%d repositories)", MaxRepositoryPages, len(all))
	return all, nil
}

// Issues returns issues and pull requests mentioning the user, most
// recently updated first.
func (s *Service) Issues(ctx context.Context) ([]github.Issue, error) {
	issues, err := readThrough(ctx, s, keyIssues, s.api.MentionedIssues)
	if err != nil {
		return nil, err
	}
	return sortByUpdated(issues, func(i github.Issue) time.Time { return i.UpdatedAt }), nil
}

// Projects returns the user's projects, most recently updated first. A
// failed fetch yields an empty list and is not cached.
func (s *Service) Projects(ctx context.Context) ([]github.Project, error) {
	projects, err := readThrough(ctx, s, keyProjects, s.api.Projects)
	if err != nil {
		logger.Warnf("dashboard: projects unavailable: %v", err)
		return []github.Project{}, nil
	}
	return sortByUpdated(projects, func(p github.Project) time.Time { return p.UpdatedAt }), nil
}

// Data returns the payload of one dashboard section, or of all of them.
func (s *Service) Data(ctx context.Context, kind settings.Kind) (any, error) {
	switch kind {
	case settings.KindRepositories:
		return s.GroupedRepositories(ctx)
	case settings.KindIssues:
		return s.Issues(ctx)
	case settings.KindProjects:
		return s.Projects(ctx)
	case settings.KindAll:
		return s.all(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func (s *Service) all(ctx context.Context) (*Overview, error) {
	var out Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.User, err = s.User(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Organizations, err = s.Organizations(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Repositories, err = s.GroupedRepositories(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Issues, err = s.Issues(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Projects, err = s.Projects(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateToken checks the current credential against the API, bypassing
// the cache. Failure is reported in the result, never as an error.
func (s *Service) ValidateToken(ctx context.Context) TokenValidation {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		logger.Infof("dashboard: token validation failed: %v", err)
		return TokenValidation{Valid: false, Message: err.Error()}
	}
	return TokenValidation{Valid: true, User: user}
}
