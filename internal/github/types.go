package github

import "time"

// OwnerTypeOrganization is the owner type of organization-owned repositories.
const OwnerTypeOrganization = "Organization"

type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

type Organization struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Description string `json:"description,omitempty"`
	AvatarURL   string `json:"avatar_url"`
}

// Owner is the account a repository belongs to.
type Owner struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

type Repository struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Owner           Owner     `json:"owner"`
	Private         bool      `json:"private"`
	Archived        bool      `json:"archived"`
	Fork            bool      `json:"fork"`
	Description     string    `json:"description,omitempty"`
	HTMLURL         string    `json:"html_url"`
	Language        string    `json:"language,omitempty"`
	StargazersCount int       `json:"stargazers_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Label is an issue label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// IssueRepository identifies the repository of an issue returned by /issues.
type IssueRepository struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

type Issue struct {
	ID          int64            `json:"id"`
	Number      int              `json:"number"`
	Title       string           `json:"title"`
	State       string           `json:"state"`
	HTMLURL     string           `json:"html_url"`
	User        Owner            `json:"user"`
	Labels      []Label          `json:"labels,omitempty"`
	Comments    int              `json:"comments"`
	Repository  *IssueRepository `json:"repository,omitempty"`
	PullRequest *struct {
		HTMLURL string `json:"html_url"`
	} `json:"pull_request,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPullRequest reports whether the issue is a pull request.
func (i Issue) IsPullRequest() bool { return i.PullRequest != nil }

// Project is a classic (v1) project board.
type Project struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Name      string    `json:"name"`
	Body      string    `json:"body,omitempty"`
	State     string    `json:"state"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
