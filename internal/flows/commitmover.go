package flows

import (
	"context"
	"fmt"

	"github.com/forgeflowhq/forgeflow/internal/event"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
)

// CommitMover moves an issue's card from the origin column to the target
// column when a pushed commit references the issue ("fix #42").
type CommitMover struct {
	org          string
	project      string
	originColumn int64
	targetColumn int64

	index *cardIndex
}

func NewCommitMover(org, project string, originColumn, targetColumn int64) *CommitMover {
	return &CommitMover{
		org:          org,
		project:      project,
		originColumn: originColumn,
		targetColumn: targetColumn,
		index:        newCardIndex(),
	}
}

func (m *CommitMover) Name() string { return "move_issues_on_commit" }

func (m *CommitMover) Start(ctx context.Context, gw gateway.Gateway) error {
	projectID, err := gw.FindProjectID(ctx, m.org, m.project)
	if err != nil {
		return fmt.Errorf("resolving project %q: %w", m.project, err)
	}
	return m.index.resync(ctx, gw, projectID)
}

func (m *CommitMover) Hook(ctx context.Context, evt event.Event, gw gateway.Gateway) error {
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
	}
	return nil
}

// movePushedCards applies the commit-triggered move rule: for every distinct
// commit referencing an issue whose card sits in originColumn, move that
// card to targetColumn. Shared by CommitMover and IssueMover.
func movePushedCards(ctx context.Context, gw gateway.Gateway, index *cardIndex, p event.PushEvent, originColumn, targetColumn int64) error {
	for _, commit := range p.Commits {
		if !commit.Distinct {
			continue
		}

		number, ok := issueFromCommitMessage(commit.Message)
		if !ok {
			continue
		}

		ref, ok := index.lookup(p.Repository.FullName, number)
		if !ok || ref.ColumnID != originColumn {
			continue
		}

		if err := index.moveAndRefresh(ctx, gw, ref.CardID, targetColumn); err != nil {
			return fmt.Errorf("moving card for %s#%d: %w", p.Repository.FullName, number, err)
		}
	}
	return nil
}
