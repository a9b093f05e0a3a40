package dashboard

import (
	"errors"
	"slices"
	"time"

	"github.com/leonardcser/ghpanel/internal/github"
)

// PersonalLabel labels the group of repositories not owned by an
// organization. That group has an empty Key, which no login can have.
const PersonalLabel = "Personal"

// ErrUnknownKind is returned by Data for a kind it does not serve.
var ErrUnknownKind = errors.New("unknown data kind")

// RepositoryGroup is derived per call and never cached.
type RepositoryGroup struct {
	Key   string              `json:"key"`
	Label string              `json:"label"`
	Items []github.Repository `json:"items"`
}

// Overview is the payload of the "all" kind.
type Overview struct {
	User          *github.User          `json:"user"`
	Organizations []github.Organization `json:"organizations"`
	Repositories  []RepositoryGroup     `json:"repositories"`
	Issues        []github.Issue        `json:"issues"`
	Projects      []github.Project      `json:"projects"`
}

type TokenValidation struct {
	Valid   bool         `json:"valid"`
	User    *github.User `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

// GroupRepositories partitions repos by organization login, putting the
// rest into the personal group. Groups appear in first-seen order and items
// keep their input order.
func GroupRepositories(repos []github.Repository) []RepositoryGroup {
	groups := []RepositoryGroup{}
	index := map[string]int{}
	for _, r := range repos {
		key, label := "", PersonalLabel
		if r.Owner.Type == github.OwnerTypeOrganization {
			key, label = r.Owner.Login, r.Owner.Login
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, RepositoryGroup{Key: key, Label: label})
		}
		groups[i].Items = append(groups[i].Items, r)
	}
	return groups
}

// sortByUpdated returns a copy of items ordered by updated descending.
// Equal timestamps keep their input order.
func sortByUpdated[T any](items []T, updated func(T) time.Time) []T {
	out := make([]T, len(items))
	copy(out, items)
	slices.SortStableFunc(out, func(a, b T) int {
		return updated(b).Compare(updated(a))
	})
	return out
}
