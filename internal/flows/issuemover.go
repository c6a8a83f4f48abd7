package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forgeflowhq/forgeflow/internal/event"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
)

// IssueMover transfers issues between repositories on a "/move" comment
// command, and additionally applies the commit-triggered card move rule of
// CommitMover for its project.
//
// A transfer recreates the issue on the target repo (title, body, carried
// assignees, and only the labels the target already has), copies every
// non-command comment with author attribution, closes the original, and
// moves the board card to the new issue.
//
// Backlink rule: the "moved from/to" references are added unless both
// repositories are public, so a link into a private repo is never leaked
// by a public one.
type IssueMover struct {
	org          string
	project      string
	originColumn int64
	targetColumn int64

	index *cardIndex
}

func NewIssueMover(org, project string, originColumn, targetColumn int64) *IssueMover {
	return &IssueMover{
		org:          org,
		project:      project,
		originColumn: originColumn,
		targetColumn: targetColumn,
		index:        newCardIndex(),
	}
}

func (m *IssueMover) Name() string { return "move_issues_between_repos" }

func (m *IssueMover) Start(ctx context.Context, gw gateway.Gateway) error {
	projectID, err := gw.FindProjectID(ctx, m.org, m.project)
	if err != nil {
		return fmt.Errorf("resolving project %q: %w", m.project, err)
	}
	return m.index.resync(ctx, gw, projectID)
}

func (m *IssueMover) Hook(ctx context.Context, evt event.Event, gw gateway.Gateway) error {
	switch evt.Type {
	case event.TypePush:
		p, ok := event.DecodePush(evt)
		if !ok {
			return nil
		}
		return movePushedCards(ctx, gw, m.index, p, m.originColumn, m.targetColumn)

	case event.TypeProjectCard:
		p, ok := event.DecodeProjectCard(evt)
		if !ok {
			return nil
		}
		return m.index.handleCardEvent(ctx, p, gw)

	case event.TypeIssueComment:
		p, ok := event.DecodeIssueComment(evt)
		if !ok || p.Action != "created" {
			return nil
		}
		return m.handleComment(ctx, p, gw)
	}
	return nil
}

func (m *IssueMover) handleComment(ctx context.Context, p event.IssueCommentEvent, gw gateway.Gateway) error {
	target, ok := parseMoveCommand(p.Comment.Body)
	if !ok {
		return nil
	}

	source := p.Repository.FullName
	number := p.Issue.Number
	user := p.Comment.User.Login

	// A bare repo name implies the same owner as the source repository.
	if !strings.Contains(target, "/") {
		owner, _, _ := strings.Cut(source, "/")
		target = owner + "/" + target
	}

	// The commenter needs push rights on both sides. Denials are silent so
	// unauthorized users learn nothing about repo existence or permissions.
	perm, err := gw.CollaboratorPermission(ctx, user, source)
	if err != nil {
		return fmt.Errorf("checking permission on %s: %w", source, err)
	}
	if !perm.CanPush() {
		return nil
	}

	perm, err = gw.CollaboratorPermission(ctx, user, target)
	if errors.Is(err, gateway.ErrNotFound) {
		return gw.CreateComment(ctx, source, number,
			fmt.Sprintf("Repository `%s` does not exist, the issue stays here.", target))
	}
	if err != nil {
		return fmt.Errorf("checking permission on %s: %w", target, err)
	}
	if !perm.CanPush() {
		return nil
	}

	if strings.EqualFold(source, target) {
		return gw.CreateComment(ctx, source, number,
			"Can't move the issue, it is already on this repository.")
	}

	return m.transfer(ctx, gw, source, target, number)
}

func (m *IssueMover) transfer(ctx context.Context, gw gateway.Gateway, source, target string, number int) error {
	issue, err := gw.GetIssue(ctx, source, number)
	if err != nil {
		return fmt.Errorf("fetching issue %s#%d: %w", source, number, err)
	}

	sourceRepo, err := gw.GetRepo(ctx, source)
	if err != nil {
		return fmt.Errorf("fetching repo %s: %w", source, err)
	}
	targetRepo, err := gw.GetRepo(ctx, target)
	if errors.Is(err, gateway.ErrNotFound) {
		return gw.CreateComment(ctx, source, number,
			fmt.Sprintf("Repository `%s` does not exist, the issue stays here.", target))
	}
	if err != nil {
		return fmt.Errorf("fetching repo %s: %w", target, err)
	}

	backlink := sourceRepo.Private || targetRepo.Private

	body := issue.Body
	if backlink {
		body = fmt.Sprintf("%s\n\n_Moved from %s._", body, issue.HTMLURL)
	}

	labels, err := m.existingLabels(ctx, gw, target, issue.Labels)
	if err != nil {
		return err
	}

	moved, err := gw.CreateIssue(ctx, target, gateway.NewIssue{
		Title:     issue.Title,
		Body:      body,
		Labels:    labels,
		Assignees: issue.Assignees,
	})
	if err != nil {
		return fmt.Errorf("creating issue on %s: %w", target, err)
	}

	if err := m.copyComments(ctx, gw, source, number, target, moved.Number); err != nil {
		return err
	}

	if backlink {
		if err := gw.CreateComment(ctx, source, number,
			fmt.Sprintf("Moved to %s.", moved.HTMLURL)); err != nil {
			return err
		}
	}

	if err := gw.CloseIssue(ctx, source, number); err != nil {
		return fmt.Errorf("closing issue %s#%d: %w", source, number, err)
	}

	if err := m.moveCard(ctx, gw, source, number, moved); err != nil {
		return err
	}

	slog.InfoContext(ctx, "moved issue",
		"source", fmt.Sprintf("%s#%d", source, number),
		"target", fmt.Sprintf("%s#%d", target, moved.Number),
	)
	return nil
}

// existingLabels filters the source labels down to those the target repo
// already has. Unknown labels are dropped, never auto-created; converging
// label sets is LabelSync's job.
func (m *IssueMover) existingLabels(ctx context.Context, gw gateway.Gateway, repo string, labels []string) ([]string, error) {
	var kept []string
	for _, name := range labels {
		_, err := gw.GetLabel(ctx, repo, name)
		if errors.Is(err, gateway.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("checking label %q on %s: %w", name, repo, err)
		}
		kept = append(kept, name)
	}
	return kept, nil
}

// copyComments rewrites every comment of the original issue onto the moved
// one, attributing the original author and timestamp. Move commands
// themselves are not copied.
func (m *IssueMover) copyComments(ctx context.Context, gw gateway.Gateway, source string, sourceNumber int, target string, targetNumber int) error {
	comments, err := gw.ListComments(ctx, source, sourceNumber)
	if err != nil {
		return fmt.Errorf("listing comments of %s#%d: %w", source, sourceNumber, err)
	}

	for _, comment := range comments {
		if _, isCommand := parseMoveCommand(comment.Body); isCommand {
			continue
		}

		rewritten := fmt.Sprintf("@%s commented on %s:\n\n%s",
			comment.Author,
			comment.CreatedAt.Format("Jan 2, 2006 at 15:04 MST"),
			comment.Body,
		)
		if err := gw.CreateComment(ctx, target, targetNumber, rewritten); err != nil {
			return fmt.Errorf("copying comment to %s#%d: %w", target, targetNumber, err)
		}
	}
	return nil
}

// moveCard recreates the board card for the moved issue on the same column
// and deletes the old one. The fresh card gets indexed when its
// project_card created event arrives.
func (m *IssueMover) moveCard(ctx context.Context, gw gateway.Gateway, source string, number int, moved gateway.Issue) error {
	ref, ok := m.index.lookup(source, number)
	if !ok {
		return nil
	}

	if err := gw.CreateCard(ctx, ref.ColumnID, moved.ID); err != nil {
		return fmt.Errorf("creating card for moved issue: %w", err)
	}
	if err := gw.DeleteCard(ctx, ref.CardID); err != nil {
		return fmt.Errorf("deleting card of original issue: %w", err)
	}
	m.index.remove(source, number)
	return nil
}
