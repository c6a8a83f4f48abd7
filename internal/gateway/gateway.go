// Package gateway abstracts the hosting platform's REST API down to the
// operations workflows need. Workflows depend only on the Gateway contract;
// the concrete adapter lives in this package but is swapped for fakes in
// tests.
package gateway

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound marks a referenced repo, issue, card, label or project
	// that does not exist (or is invisible to the token).
	ErrNotFound = errors.New("not found")
)

// Card is a unit on a project board, bound to zero or one issue.
type Card struct {
	ID         int64
	ColumnID   int64
	ContentURL string // empty for note cards
}

type Column struct {
	ID   int64
	Name string
}

type Label struct {
	Name        string
	Color       string
	Description string
}

type Issue struct {
	ID        int64 // content id, used when creating cards
	Number    int
	Title     string
	Body      string
	State     string
	Labels    []string
	Assignees []string
	HTMLURL   string
}

// NewIssue is the creation payload for CreateIssue.
type NewIssue struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

type Comment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
}

type Repo struct {
	FullName string
	Private  bool
}

// Permission is a collaborator's permission level on a repository.
type Permission string

const (
	PermissionAdmin Permission = "admin"
	PermissionWrite Permission = "write"
	PermissionRead  Permission = "read"
	PermissionNone  Permission = "none"
)

// CanPush reports whether the permission level allows mutating the
// repository.
func (p Permission) CanPush() bool {
	return p == PermissionAdmin || p == PermissionWrite
}

// Gateway is the outbound API surface consumed by all workflows. Every call
// is a single bounded network request; the adapter applies its own HTTP
// timeout and the core never retries.
type Gateway interface {
	FindProjectID(ctx context.Context, org, name string) (int64, error)
	ListColumns(ctx context.Context, projectID int64) ([]Column, error)
	ListCards(ctx context.Context, columnID int64) ([]Card, error)
	GetCard(ctx context.Context, cardID int64) (Card, error)
	MoveCard(ctx context.Context, cardID, columnID int64) error
	CreateCard(ctx context.Context, columnID, issueID int64) error
	DeleteCard(ctx context.Context, cardID int64) error

	GetRepo(ctx context.Context, repo string) (Repo, error)
	GetLabel(ctx context.Context, repo, name string) (Label, error)
	CreateLabel(ctx context.Context, repo string, label Label) error
	EditLabel(ctx context.Context, repo, name string, label Label) error
	DeleteLabel(ctx context.Context, repo, name string) error

	GetIssue(ctx context.Context, repo string, number int) (Issue, error)
	CreateIssue(ctx context.Context, repo string, issue NewIssue) (Issue, error)
	CloseIssue(ctx context.Context, repo string, number int) error
	ListComments(ctx context.Context, repo string, number int) ([]Comment, error)
	CreateComment(ctx context.Context, repo string, number int, body string) error

	CollaboratorPermission(ctx context.Context, user, repo string) (Permission, error)
}
