package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/forgeflowhq/forgeflow/internal/event"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
)

// issueKey identifies the issue a board card is bound to.
type issueKey struct {
	Repo   string
	Number int
}

type cardRef struct {
	CardID   int64
	ColumnID int64
}

// cardIndex is a workflow's view of where each issue's card sits on the
// project board. It is rebuilt from the board at start and incrementally
// updated from project_card events afterwards; events missed while the
// process was down make it drift, which is accepted.
type cardIndex struct {
	projectID int64
	cards     map[issueKey]cardRef
}

func newCardIndex() *cardIndex {
	return &cardIndex{cards: make(map[issueKey]cardRef)}
}

// resync enumerates every column and card of the project and rebuilds the
// index from scratch.
func (ci *cardIndex) resync(ctx context.Context, gw gateway.Gateway, projectID int64) error {
	ci.projectID = projectID

	columns, err := gw.ListColumns(ctx, projectID)
	if err != nil {
		return fmt.Errorf("resyncing card index: %w", err)
	}

	fresh := make(map[issueKey]cardRef)
	for _, column := range columns {
		cards, err := gw.ListCards(ctx, column.ID)
		if err != nil {
			return fmt.Errorf("resyncing card index: %w", err)
		}
		for _, card := range cards {
			if key, ok := issueKeyFromContentURL(card.ContentURL); ok {
				fresh[key] = cardRef{CardID: card.ID, ColumnID: card.ColumnID}
			}
		}
	}

	ci.cards = fresh
	return nil
}

// handleCardEvent keeps the index current from a project_card event. Events
// for other projects are ignored.
func (ci *cardIndex) handleCardEvent(ctx context.Context, p event.ProjectCardEvent, gw gateway.Gateway) error {
	if idFromURL(p.ProjectCard.ProjectURL) != ci.projectID {
		return nil
	}

	switch p.Action {
	case "created", "converted":
		return ci.refetch(ctx, p.ProjectCard.ID, gw)
	case "deleted":
		ci.removeCard(p.ProjectCard.ID)
	}
	return nil
}

// refetch reads the card's current column and content binding from the
// platform and upserts the index entry. A card that vanished between the
// event and the lookup is not an error.
func (ci *cardIndex) refetch(ctx context.Context, cardID int64, gw gateway.Gateway) error {
	card, err := gw.GetCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil
		}
		return err
	}
	ci.observe(card)
	return nil
}

// observe upserts the index entry for a card bound to an issue. Note cards
// (no content URL) are ignored.
func (ci *cardIndex) observe(card gateway.Card) {
	if key, ok := issueKeyFromContentURL(card.ContentURL); ok {
		ci.cards[key] = cardRef{CardID: card.ID, ColumnID: card.ColumnID}
	}
}

func (ci *cardIndex) removeCard(cardID int64) {
	for key, ref := range ci.cards {
		if ref.CardID == cardID {
			delete(ci.cards, key)
		}
	}
}

func (ci *cardIndex) lookup(repo string, number int) (cardRef, bool) {
	ref, ok := ci.cards[issueKey{Repo: repo, Number: number}]
	return ref, ok
}

func (ci *cardIndex) remove(repo string, number int) {
	delete(ci.cards, issueKey{Repo: repo, Number: number})
}

// moveAndRefresh moves a card and re-reads it so the index reflects the
// post-move column (and content binding, should the move have changed it).
func (ci *cardIndex) moveAndRefresh(ctx context.Context, gw gateway.Gateway, cardID, targetColumn int64) error {
	if err := gw.MoveCard(ctx, cardID, targetColumn); err != nil {
		return err
	}

	card, err := gw.GetCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("refreshing moved card %d: %w", cardID, err)
	}
	ci.observe(card)

	slog.InfoContext(ctx, "moved card",
		"card_id", cardID,
		"column_id", targetColumn,
	)
	return nil
}

// issueKeyFromContentURL extracts "owner/repo" and the issue number from a
// card's content URL, e.g. ".../repos/acme/app/issues/7".
func issueKeyFromContentURL(contentURL string) (issueKey, bool) {
	if contentURL == "" {
		return issueKey{}, false
	}

	parts := strings.Split(contentURL, "/")
	if len(parts) < 4 {
		return issueKey{}, false
	}

	number, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return issueKey{}, false
	}

	repo := parts[len(parts)-4] + "/" + parts[len(parts)-3]
	return issueKey{Repo: repo, Number: number}, true
}

// idFromURL extracts the trailing numeric id of an API URL.
func idFromURL(url string) int64 {
	idx := strings.LastIndexByte(url, '/')
	if idx < 0 {
		return 0
	}
	id, err := strconv.ParseInt(url[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
