package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/forgeflowhq/forgeflow/internal/event"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
)

// IssueCloser closes the issue bound to a card whenever that card is moved
// into the configured done column of its project.
type IssueCloser struct {
	org      string
	project  string
	columnID int64

	projectID int64
}

func NewIssueCloser(org, project string, columnID int64) *IssueCloser {
	return &IssueCloser{
		org:      org,
		project:  project,
		columnID: columnID,
	}
}

func (c *IssueCloser) Name() string { return "close_issues_in_column" }

func (c *IssueCloser) Start(ctx context.Context, gw gateway.Gateway) error {
	projectID, err := gw.FindProjectID(ctx, c.org, c.project)
	if err != nil {
		return fmt.Errorf("resolving project %q: %w", c.project, err)
	}
	c.projectID = projectID
	return nil
}

func (c *IssueCloser) Hook(ctx context.Context, evt event.Event, gw gateway.Gateway) error {
	p, ok := event.DecodeProjectCard(evt)
	if !ok {
		return nil
	}

	if idFromURL(p.ProjectCard.ProjectURL) != c.projectID {
		return nil
	}
	if p.Action != "moved" || p.ProjectCard.ColumnID != c.columnID {
		return nil
	}

	return c.closeIssueOfCard(ctx, p.ProjectCard.ID, gw)
}

func (c *IssueCloser) closeIssueOfCard(ctx context.Context, cardID int64, gw gateway.Gateway) error {
	card, err := gw.GetCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil
		}
		return err
	}

	key, ok := issueKeyFromContentURL(card.ContentURL)
	if !ok {
		// Note card, nothing to close.
		return nil
	}

	issue, err := gw.GetIssue(ctx, key.Repo, key.Number)
	if err != nil {
		return fmt.Errorf("fetching issue of card %d: %w", cardID, err)
	}

	if err := gw.CloseIssue(ctx, key.Repo, key.Number); err != nil {
		return err
	}
	slog.InfoContext(ctx, "closed issue", "issue", issue.HTMLURL)
	return nil
}
