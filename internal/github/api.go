package github

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// RepositoriesPageSize is the page size of the repository listing.
const RepositoriesPageSize = 100

// CurrentUser returns the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.Get(ctx, "/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Organizations lists the organizations of the authenticated user.
func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := c.Get(ctx, "/user/orgs", nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// RepositoriesPage returns one page (1-based) of the repositories the user
// owns, collaborates on or can reach through an organization, most
// recently updated first.
func (c *Client) RepositoriesPage(ctx context.Context, page, perPage int) ([]Repository, error) {
	if perPage <= 0 {
		perPage = RepositoriesPageSize
	}
	var repos []Repository
	err := c.Get(ctx, "/user/repos", &RequestOptions{Query: url.Values{
		"sort":        {"updated"},
		"per_page":    {strconv.Itoa(perPage)},
		"page":        {strconv.Itoa(page)},
		"affiliation": {"owner,collaborator,organization_member"},
	}}, &repos)
	if err != nil {
		return nil, err
	}
	return repos, nil
}

// MentionedIssues lists issues and pull requests mentioning the user.
func (c *Client) MentionedIssues(ctx context.Context) ([]Issue, error) {
	var issues []Issue
	err := c.Get(ctx, "/issues", &RequestOptions{Query: url.Values{
		"filter":   {"mentioned"},
		"state":    {"all"},
		"per_page": {"50"},
	}}, &issues)
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// Projects lists the user's classic projects. The endpoint still requires
// the inertia preview media type.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	err := c.Get(ctx, "/user/projects", &RequestOptions{
		Header: http.Header{"Accept": {acceptInertia}},
	}, &projects)
	if err != nil {
		return nil, err
	}
	return projects, nil
}
