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

// LabelSync keeps the label sets of a fixed group of repositories in sync.
// A label mutation on any member is fanned out to every other member.
type LabelSync struct {
	repositories []string // lowercased at construction
}

func NewLabelSync(repositories []string) *LabelSync {
	lowered := make([]string, 0, len(repositories))
	for _, repo := range repositories {
		lowered = append(lowered, strings.ToLower(repo))
	}
	return &LabelSync{repositories: lowered}
}

func (s *LabelSync) Name() string { return "shared_labels" }

func (s *LabelSync) Start(ctx context.Context, gw gateway.Gateway) error {
	return nil
}

func (s *LabelSync) Hook(ctx context.Context, evt event.Event, gw gateway.Gateway) error {
	p, ok := event.DecodeLabel(evt)
	if !ok {
		return nil
	}

	source := strings.ToLower(p.Repository.FullName)
	if !s.member(source) {
		return nil
	}

	var targets []string
	for _, repo := range s.repositories {
		if repo != source {
			targets = append(targets, repo)
		}
	}

	label := gateway.Label{
		Name:        p.Label.Name,
		Color:       p.Label.Color,
		Description: p.Label.Description,
	}

	switch p.Action {
	case "created", "edited":
		// When an edit renamed the label, targets still carry it under the
		// pre-edit name.
		name := p.Label.Name
		if p.Action == "edited" && p.Changes.Name.From != "" {
			name = p.Changes.Name.From
		}
		for _, target := range targets {
			if err := s.updateOrCreate(ctx, gw, target, name, label); err != nil {
				// One bad repo must not block the others.
				slog.WarnContext(ctx, "label sync failed for target repo",
					"error", err,
					"target", target,
					"label", label.Name,
				)
			}
		}

	case "deleted":
		for _, target := range targets {
			if err := s.delete(ctx, gw, target, p.Label.Name); err != nil {
				slog.WarnContext(ctx, "label delete failed for target repo",
					"error", err,
					"target", target,
					"label", p.Label.Name,
				)
			}
		}
	}

	return nil
}

// updateOrCreate converges one target repo toward the source label. An
// already-equal label is left untouched to avoid needless writes.
func (s *LabelSync) updateOrCreate(ctx context.Context, gw gateway.Gateway, repo, name string, label gateway.Label) error {
	existing, err := gw.GetLabel(ctx, repo, name)
	if errors.Is(err, gateway.ErrNotFound) {
		if err := gw.CreateLabel(ctx, repo, label); err != nil {
			return err
		}
		slog.InfoContext(ctx, "created label", "label", label.Name, "repository", repo)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetching label %q: %w", name, err)
	}

	if existing.Color == label.Color &&
		existing.Name == label.Name &&
		existing.Description == label.Description {
		return nil
	}

	if err := gw.EditLabel(ctx, repo, name, label); err != nil {
		return err
	}
	slog.InfoContext(ctx, "updated label", "label", label.Name, "repository", repo)
	return nil
}

func (s *LabelSync) delete(ctx context.Context, gw gateway.Gateway, repo, name string) error {
	err := gw.DeleteLabel(ctx, repo, name)
	if errors.Is(err, gateway.ErrNotFound) {
		// Already consistent.
		return nil
	}
	return err
}

func (s *LabelSync) member(repo string) bool {
	for _, r := range s.repositories {
		if r == repo {
			return true
		}
	}
	return false
}
