package flows_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/forgeflowhq/forgeflow/internal/event"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
)

var errBoom = errors.New("boom")

type move struct {
	CardID   int64
	ColumnID int64
}

type createdCard struct {
	ColumnID int64
	IssueID  int64
}

type postedComment struct {
	Repo   string
	Number int
	Body   string
}

// fakeGateway is an in-memory stand-in for the platform API. State maps are
// seeded by tests; mutating calls are recorded for assertions.
type fakeGateway struct {
	projects map[string]int64 // "org/name" → project id
	columns  map[int64][]gateway.Column
	cards    map[int64]gateway.Card // card id → card
	labels   map[string]map[string]gateway.Label
	issues   map[string]map[int]gateway.Issue
	comments map[string][]gateway.Comment // "repo#number" → comments
	repos    map[string]gateway.Repo
	perms    map[string]gateway.Permission // "user@repo"

	fail map[string]error // "Op:repo" → forced error

	nextIssueID     int64
	nextIssueNumber int

	moves          []move
	createdCards   []createdCard
	deletedCards   []int64
	createdIssues  []gateway.Issue
	closedIssues   []string // "repo#number"
	postedComments []postedComment
	createdLabels  []string // "repo:name"
	editedLabels   []string
	deletedLabels  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		projects:        make(map[string]int64),
		columns:         make(map[int64][]gateway.Column),
		cards:           make(map[int64]gateway.Card),
		labels:          make(map[string]map[string]gateway.Label),
		issues:          make(map[string]map[int]gateway.Issue),
		comments:        make(map[string][]gateway.Comment),
		repos:           make(map[string]gateway.Repo),
		perms:           make(map[string]gateway.Permission),
		fail:            make(map[string]error),
		nextIssueID:     9000,
		nextIssueNumber: 100,
	}
}

func contentURL(repo string, number int) string {
	return fmt.Sprintf("https://api.github.com/repos/%s/issues/%d", repo, number)
}

func (f *fakeGateway) addCard(cardID, columnID int64, repo string, number int) {
	f.cards[cardID] = gateway.Card{
		ID:         cardID,
		ColumnID:   columnID,
		ContentURL: contentURL(repo, number),
	}
}

func (f *fakeGateway) addNoteCard(cardID, columnID int64) {
	f.cards[cardID] = gateway.Card{ID: cardID, ColumnID: columnID}
}

func (f *fakeGateway) addIssue(repo string, issue gateway.Issue) {
	if f.issues[repo] == nil {
		f.issues[repo] = make(map[int]gateway.Issue)
	}
	issue.HTMLURL = fmt.Sprintf("https://github.com/%s/issues/%d", repo, issue.Number)
	f.issues[repo][issue.Number] = issue
}

func (f *fakeGateway) addLabel(repo string, label gateway.Label) {
	if f.labels[repo] == nil {
		f.labels[repo] = make(map[string]gateway.Label)
	}
	f.labels[repo][label.Name] = label
}

func (f *fakeGateway) FindProjectID(ctx context.Context, org, name string) (int64, error) {
	if id, ok := f.projects[org+"/"+name]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("project %q: %w", name, gateway.ErrNotFound)
}

func (f *fakeGateway) ListColumns(ctx context.Context, projectID int64) ([]gateway.Column, error) {
	return f.columns[projectID], nil
}

func (f *fakeGateway) ListCards(ctx context.Context, columnID int64) ([]gateway.Card, error) {
	var cards []gateway.Card
	for _, card := range f.cards {
		if card.ColumnID == columnID {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

func (f *fakeGateway) GetCard(ctx context.Context, cardID int64) (gateway.Card, error) {
	card, ok := f.cards[cardID]
	if !ok {
		return gateway.Card{}, gateway.ErrNotFound
	}
	return card, nil
}

func (f *fakeGateway) MoveCard(ctx context.Context, cardID, columnID int64) error {
	if err := f.fail["MoveCard"]; err != nil {
		return err
	}
	card, ok := f.cards[cardID]
	if !ok {
		return gateway.ErrNotFound
	}
	card.ColumnID = columnID
	f.cards[cardID] = card
	f.moves = append(f.moves, move{CardID: cardID, ColumnID: columnID})
	return nil
}

func (f *fakeGateway) CreateCard(ctx context.Context, columnID, issueID int64) error {
	f.createdCards = append(f.createdCards, createdCard{ColumnID: columnID, IssueID: issueID})
	return nil
}

func (f *fakeGateway) DeleteCard(ctx context.Context, cardID int64) error {
	delete(f.cards, cardID)
	f.deletedCards = append(f.deletedCards, cardID)
	return nil
}

func (f *fakeGateway) GetRepo(ctx context.Context, repo string) (gateway.Repo, error) {
	r, ok := f.repos[repo]
	if !ok {
		return gateway.Repo{}, gateway.ErrNotFound
	}
	return r, nil
}

func (f *fakeGateway) GetLabel(ctx context.Context, repo, name string) (gateway.Label, error) {
	label, ok := f.labels[repo][name]
	if !ok {
		return gateway.Label{}, gateway.ErrNotFound
	}
	return label, nil
}

func (f *fakeGateway) CreateLabel(ctx context.Context, repo string, label gateway.Label) error {
	if err := f.fail["CreateLabel:"+repo]; err != nil {
		return err
	}
	f.addLabel(repo, label)
	f.createdLabels = append(f.createdLabels, repo+":"+label.Name)
	return nil
}

func (f *fakeGateway) EditLabel(ctx context.Context, repo, name string, label gateway.Label) error {
	if err := f.fail["EditLabel:"+repo]; err != nil {
		return err
	}
	delete(f.labels[repo], name)
	f.addLabel(repo, label)
	f.editedLabels = append(f.editedLabels, repo+":"+name)
	return nil
}

func (f *fakeGateway) DeleteLabel(ctx context.Context, repo, name string) error {
	if _, ok := f.labels[repo][name]; !ok {
		return gateway.ErrNotFound
	}
	delete(f.labels[repo], name)
	f.deletedLabels = append(f.deletedLabels, repo+":"+name)
	return nil
}

func (f *fakeGateway) GetIssue(ctx context.Context, repo string, number int) (gateway.Issue, error) {
	issue, ok := f.issues[repo][number]
	if !ok {
		return gateway.Issue{}, gateway.ErrNotFound
	}
	return issue, nil
}

func (f *fakeGateway) CreateIssue(ctx context.Context, repo string, issue gateway.NewIssue) (gateway.Issue, error) {
	if err := f.fail["CreateIssue:"+repo]; err != nil {
		return gateway.Issue{}, err
	}
	created := gateway.Issue{
		ID:        f.nextIssueID,
		Number:    f.nextIssueNumber,
		Title:     issue.Title,
		Body:      issue.Body,
		State:     "open",
		Labels:    issue.Labels,
		Assignees: issue.Assignees,
		HTMLURL:   fmt.Sprintf("https://github.com/%s/issues/%d", repo, f.nextIssueNumber),
	}
	f.nextIssueID++
	f.nextIssueNumber++
	if f.issues[repo] == nil {
		f.issues[repo] = make(map[int]gateway.Issue)
	}
	f.issues[repo][created.Number] = created
	f.createdIssues = append(f.createdIssues, created)
	return created, nil
}

func (f *fakeGateway) CloseIssue(ctx context.Context, repo string, number int) error {
	issue, ok := f.issues[repo][number]
	if !ok {
		return gateway.ErrNotFound
	}
	issue.State = "closed"
	f.issues[repo][number] = issue
	f.closedIssues = append(f.closedIssues, fmt.Sprintf("%s#%d", repo, number))
	return nil
}

func (f *fakeGateway) ListComments(ctx context.Context, repo string, number int) ([]gateway.Comment, error) {
	return f.comments[fmt.Sprintf("%s#%d", repo, number)], nil
}

func (f *fakeGateway) CreateComment(ctx context.Context, repo string, number int, body string) error {
	f.postedComments = append(f.postedComments, postedComment{Repo: repo, Number: number, Body: body})
	return nil
}

func (f *fakeGateway) CollaboratorPermission(ctx context.Context, user, repo string) (gateway.Permission, error) {
	if perm, ok := f.perms[user+"@"+repo]; ok {
		return perm, nil
	}
	if _, ok := f.repos[repo]; ok {
		return gateway.PermissionNone, nil
	}
	return gateway.PermissionNone, gateway.ErrNotFound
}

// Event payload builders.

type commitSpec struct {
	Message  string
	Distinct bool
}

func pushEvent(repo string, commits ...commitSpec) event.Event {
	type commitJSON struct {
		ID       string `json:"id"`
		Message  string `json:"message"`
		Distinct bool   `json:"distinct"`
	}
	payload := map[string]any{
		"ref":        "refs/heads/main",
		"repository": map[string]any{"full_name": repo},
	}
	list := make([]commitJSON, 0, len(commits))
	for i, c := range commits {
		list = append(list, commitJSON{ID: fmt.Sprintf("c%d", i), Message: c.Message, Distinct: c.Distinct})
	}
	payload["commits"] = list
	return makeEvent(event.TypePush, payload)
}

func cardEvent(action string, cardID, columnID, projectID int64) event.Event {
	payload := map[string]any{
		"action": action,
		"project_card": map[string]any{
			"id":          cardID,
			"column_id":   columnID,
			"project_url": fmt.Sprintf("https://api.github.com/projects/%d", projectID),
		},
	}
	return makeEvent(event.TypeProjectCard, payload)
}

func branchEvent(repo, ref string) event.Event {
	payload := map[string]any{
		"ref":        ref,
		"ref_type":   "branch",
		"repository": map[string]any{"full_name": repo},
	}
	return makeEvent(event.TypeCreate, payload)
}

func labelEvent(action, repo string, label gateway.Label, renamedFrom string) event.Event {
	payload := map[string]any{
		"action": action,
		"label": map[string]any{
			"name":        label.Name,
			"color":       label.Color,
			"description": label.Description,
		},
		"repository": map[string]any{"full_name": repo},
	}
	if renamedFrom != "" {
		payload["changes"] = map[string]any{"name": map[string]any{"from": renamedFrom}}
	}
	return makeEvent(event.TypeLabel, payload)
}

func commentEvent(action, repo string, number int, user, body string) event.Event {
	payload := map[string]any{
		"action": action,
		"comment": map[string]any{
			"body": body,
			"user": map[string]any{"login": user},
		},
		"issue":      map[string]any{"number": number},
		"repository": map[string]any{"full_name": repo},
	}
	return makeEvent(event.TypeIssueComment, payload)
}

func makeEvent(typ event.Type, payload map[string]any) event.Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return event.Event{Type: typ, DeliveryID: "d-1", Payload: raw}
}

var fixedTime = time.Date(2023, time.March, 14, 15, 9, 0, 0, time.UTC)
