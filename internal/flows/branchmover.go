package flows

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/forgeflowhq/forgeflow/internal/event"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
)

// BranchMover moves an issue's card to the doing column when a branch whose
// name matches the configured pattern is created. Unlike CommitMover there
// is no origin-column precondition: creating a branch for an issue always
// pulls its card into the doing column.
type BranchMover struct {
	org         string
	project     string
	doingColumn int64
	branchRegex *regexp.Regexp

	index *cardIndex
}

func NewBranchMover(org, project string, doingColumn int64, branchRegex *regexp.Regexp) *BranchMover {
	return &BranchMover{
		org:         org,
		project:     project,
		doingColumn: doingColumn,
		branchRegex: branchRegex,
		index:       newCardIndex(),
	}
}

func (m *BranchMover) Name() string { return "project_issues" }

func (m *BranchMover) Start(ctx context.Context, gw gateway.Gateway) error {
	projectID, err := gw.FindProjectID(ctx, m.org, m.project)
	if err != nil {
		return fmt.Errorf("resolving project %q: %w", m.project, err)
	}
	return m.index.resync(ctx, gw, projectID)
}

func (m *BranchMover) Hook(ctx context.Context, evt event.Event, gw gateway.Gateway) error {
	switch evt.Type {
	case event.TypeCreate:
		p, ok := event.DecodeCreate(evt)
		if !ok || p.RefType != "branch" {
			return nil
		}
		return m.handleBranch(ctx, p, gw)

	case event.TypeProjectCard:
		p, ok := event.DecodeProjectCard(evt)
		if !ok {
			return nil
		}
		return m.index.handleCardEvent(ctx, p, gw)
	}
	return nil
}

func (m *BranchMover) handleBranch(ctx context.Context, p event.CreateEvent, gw gateway.Gateway) error {
	match := m.branchRegex.FindString(p.Ref)
	if match == "" {
		return nil
	}

	number, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}

	ref, ok := m.index.lookup(p.Repository.FullName, number)
	if !ok {
		return nil
	}

	if err := m.index.moveAndRefresh(ctx, gw, ref.CardID, m.doingColumn); err != nil {
		return fmt.Errorf("moving card for branch %q: %w", p.Ref, err)
	}
	return nil
}
