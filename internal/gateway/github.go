package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"

	// Board endpoints are only served under the projects preview media type.
	projectsAccept = "application/vnd.github.inertia-preview+json"

	perPage = 100
)

// GitHubClient is a thin REST adapter for the GitHub v3 API implementing
// Gateway. It performs no retries; transient failures surface to the caller.
type GitHubClient struct {
	baseURL string
	token   string
	http    *http.Client
}

type GitHubOption func(*GitHubClient)

// WithBaseURL points the client at a GitHub Enterprise instance.
func WithBaseURL(baseURL string) GitHubOption {
	return func(c *GitHubClient) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithHTTPClient(client *http.Client) GitHubOption {
	return func(c *GitHubClient) {
		c.http = client
	}
}

func NewGitHubClient(token string, opts ...GitHubOption) *GitHubClient {
	c := &GitHubClient{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GitHubClient) FindProjectID(ctx context.Context, org, name string) (int64, error) {
	var projects []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := c.list(ctx, fmt.Sprintf("/orgs/%s/projects", org), &projects); err != nil {
		return 0, fmt.Errorf("listing projects of %s: %w", org, err)
	}

	for _, p := range projects {
		if p.Name == name {
			return p.ID, nil
		}
	}
	return 0, fmt.Errorf("project %q in org %s: %w", name, org, ErrNotFound)
}

func (c *GitHubClient) ListColumns(ctx context.Context, projectID int64) ([]Column, error) {
	var raw []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := c.list(ctx, fmt.Sprintf("/projects/%d/columns", projectID), &raw); err != nil {
		return nil, fmt.Errorf("listing columns of project %d: %w", projectID, err)
	}

	columns := make([]Column, 0, len(raw))
	for _, col := range raw {
		columns = append(columns, Column{ID: col.ID, Name: col.Name})
	}
	return columns, nil
}

func (c *GitHubClient) ListCards(ctx context.Context, columnID int64) ([]Card, error) {
	var raw []cardJSON
	if err := c.list(ctx, fmt.Sprintf("/projects/columns/%d/cards", columnID), &raw); err != nil {
		return nil, fmt.Errorf("listing cards of column %d: %w", columnID, err)
	}

	cards := make([]Card, 0, len(raw))
	for _, card := range raw {
		cards = append(cards, card.toCard())
	}
	return cards, nil
}

func (c *GitHubClient) GetCard(ctx context.Context, cardID int64) (Card, error) {
	var raw cardJSON
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/projects/columns/cards/%d", cardID), nil, &raw); err != nil {
		return Card{}, fmt.Errorf("fetching card %d: %w", cardID, err)
	}
	return raw.toCard(), nil
}

func (c *GitHubClient) MoveCard(ctx context.Context, cardID, columnID int64) error {
	body := map[string]any{
		"position":  "top",
		"column_id": columnID,
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/projects/columns/cards/%d/moves", cardID), body, nil); err != nil {
		return fmt.Errorf("moving card %d to column %d: %w", cardID, columnID, err)
	}
	return nil
}

func (c *GitHubClient) CreateCard(ctx context.Context, columnID, issueID int64) error {
	body := map[string]any{
		"content_type": "Issue",
		"content_id":   issueID,
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/projects/columns/%d/cards", columnID), body, nil); err != nil {
		return fmt.Errorf("creating card on column %d: %w", columnID, err)
	}
	return nil
}

func (c *GitHubClient) DeleteCard(ctx context.Context, cardID int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/projects/columns/cards/%d", cardID), nil, nil); err != nil {
		return fmt.Errorf("deleting card %d: %w", cardID, err)
	}
	return nil
}

func (c *GitHubClient) GetRepo(ctx context.Context, repo string) (Repo, error) {
	var raw struct {
		FullName string `json:"full_name"`
		Private  bool   `json:"private"`
	}
	if err := c.do(ctx, http.MethodGet, "/repos/"+repo, nil, &raw); err != nil {
		return Repo{}, fmt.Errorf("fetching repo %s: %w", repo, err)
	}
	return Repo{FullName: raw.FullName, Private: raw.Private}, nil
}

func (c *GitHubClient) GetLabel(ctx context.Context, repo, name string) (Label, error) {
	var raw labelJSON
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/labels/%s", repo, pathEscape(name)), nil, &raw); err != nil {
		return Label{}, fmt.Errorf("fetching label %q on %s: %w", name, repo, err)
	}
	return raw.toLabel(), nil
}

func (c *GitHubClient) CreateLabel(ctx context.Context, repo string, label Label) error {
	body := map[string]any{
		"name":        label.Name,
		"color":       label.Color,
		"description": label.Description,
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/labels", repo), body, nil); err != nil {
		return fmt.Errorf("creating label %q on %s: %w", label.Name, repo, err)
	}
	return nil
}

func (c *GitHubClient) EditLabel(ctx context.Context, repo, name string, label Label) error {
	body := map[string]any{
		"new_name":    label.Name,
		"color":       label.Color,
		"description": label.Description,
	}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/repos/%s/labels/%s", repo, pathEscape(name)), body, nil); err != nil {
		return fmt.Errorf("editing label %q on %s: %w", name, repo, err)
	}
	return nil
}

func (c *GitHubClient) DeleteLabel(ctx context.Context, repo, name string) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/repos/%s/labels/%s", repo, pathEscape(name)), nil, nil); err != nil {
		return fmt.Errorf("deleting label %q on %s: %w", name, repo, err)
	}
	return nil
}

func (c *GitHubClient) GetIssue(ctx context.Context, repo string, number int) (Issue, error) {
	var raw issueJSON
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/issues/%d", repo, number), nil, &raw); err != nil {
		return Issue{}, fmt.Errorf("fetching issue %s#%d: %w", repo, number, err)
	}
	return raw.toIssue(), nil
}

func (c *GitHubClient) CreateIssue(ctx context.Context, repo string, issue NewIssue) (Issue, error) {
	body := map[string]any{
		"title": issue.Title,
		"body":  issue.Body,
	}
	if len(issue.Labels) > 0 {
		body["labels"] = issue.Labels
	}
	if len(issue.Assignees) > 0 {
		body["assignees"] = issue.Assignees
	}

	var raw issueJSON
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/issues", repo), body, &raw); err != nil {
		return Issue{}, fmt.Errorf("creating issue on %s: %w", repo, err)
	}
	return raw.toIssue(), nil
}

func (c *GitHubClient) CloseIssue(ctx context.Context, repo string, number int) error {
	body := map[string]any{"state": "closed"}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/repos/%s/issues/%d", repo, number), body, nil); err != nil {
		return fmt.Errorf("closing issue %s#%d: %w", repo, number, err)
	}
	return nil
}

func (c *GitHubClient) ListComments(ctx context.Context, repo string, number int) ([]Comment, error) {
	var raw []struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
		CreatedAt time.Time `json:"created_at"`
	}
	if err := c.list(ctx, fmt.Sprintf("/repos/%s/issues/%d/comments", repo, number), &raw); err != nil {
		return nil, fmt.Errorf("listing comments of %s#%d: %w", repo, number, err)
	}

	comments := make([]Comment, 0, len(raw))
	for _, cm := range raw {
		comments = append(comments, Comment{
			ID:        cm.ID,
			Author:    cm.User.Login,
			Body:      cm.Body,
			CreatedAt: cm.CreatedAt,
		})
	}
	return comments, nil
}

func (c *GitHubClient) CreateComment(ctx context.Context, repo string, number int, body string) error {
	payload := map[string]any{"body": body}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/issues/%d/comments", repo, number), payload, nil); err != nil {
		return fmt.Errorf("commenting on %s#%d: %w", repo, number, err)
	}
	return nil
}

func (c *GitHubClient) CollaboratorPermission(ctx context.Context, user, repo string) (Permission, error) {
	var raw struct {
		Permission string `json:"permission"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/collaborators/%s/permission", repo, pathEscape(user)), nil, &raw); err != nil {
		return PermissionNone, fmt.Errorf("fetching permission of %s on %s: %w", user, repo, err)
	}
	return Permission(raw.Permission), nil
}

type cardJSON struct {
	ID         int64  `json:"id"`
	ColumnURL  string `json:"column_url"`
	ContentURL string `json:"content_url"`
}

func (c cardJSON) toCard() Card {
	return Card{
		ID:         c.ID,
		ColumnID:   idFromURL(c.ColumnURL),
		ContentURL: c.ContentURL,
	}
}

type labelJSON struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

func (l labelJSON) toLabel() Label {
	return Label{Name: l.Name, Color: l.Color, Description: l.Description}
}

type issueJSON struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
	HTMLURL string `json:"html_url"`
}

func (i issueJSON) toIssue() Issue {
	issue := Issue{
		ID:      i.ID,
		Number:  i.Number,
		Title:   i.Title,
		Body:    i.Body,
		State:   i.State,
		HTMLURL: i.HTMLURL,
	}
	for _, l := range i.Labels {
		issue.Labels = append(issue.Labels, l.Name)
	}
	for _, a := range i.Assignees {
		issue.Assignees = append(issue.Assignees, a.Login)
	}
	return issue
}

// list fetches every page of a collection endpoint into out, which must be
// a pointer to a slice.
func (c *GitHubClient) list(ctx context.Context, path string, out any) error {
	all := []json.RawMessage{}
	for page := 1; ; page++ {
		var batch []json.RawMessage
		paged := fmt.Sprintf("%s?per_page=%d&page=%d", path, perPage, page)
		if err := c.do(ctx, http.MethodGet, paged, nil, &batch); err != nil {
			return err
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
	}

	merged, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("merging pages: %w", err)
	}
	return json.Unmarshal(merged, out)
}

func (c *GitHubClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", projectsAccept)
	req.Header.Set("Authorization", "token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// idFromURL extracts the trailing numeric id of an API URL, e.g. the column
// id from ".../projects/columns/42". Returns 0 when the URL has no numeric
// tail.
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

func pathEscape(s string) string {
	return url.PathEscape(s)
}
