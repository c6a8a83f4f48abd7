package event

import "encoding/json"

// Type is the webhook event-type tag delivered in the event header.
// Unrecognized types flow through the dispatcher untouched.
type Type string

const (
	TypePush         Type = "push"
	TypeProjectCard  Type = "project_card"
	TypeIssueComment Type = "issue_comment"
	TypeLabel        Type = "label"
	TypeCreate       Type = "create"
	TypePing         Type = "ping"
)

// Event is one verified webhook delivery. It is immutable and lives only
// for the duration of a single dispatch.
type Event struct {
	Type       Type
	DeliveryID string
	Payload    json.RawMessage
}

// Repository identifies the repository an event originated from.
type Repository struct {
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
}

// Commit is one commit in a push payload. Distinct is false when the commit
// was already included via another ref update.
type Commit struct {
	ID       string `json:"id"`
	Message  string `json:"message"`
	Distinct bool   `json:"distinct"`
}

type PushEvent struct {
	Ref        string     `json:"ref"`
	Commits    []Commit   `json:"commits"`
	Repository Repository `json:"repository"`
}

type ProjectCard struct {
	ID         int64  `json:"id"`
	ColumnID   int64  `json:"column_id"`
	ProjectURL string `json:"project_url"`
	ColumnURL  string `json:"column_url"`
	ContentURL string `json:"content_url"`
}

type ProjectCardEvent struct {
	Action      string      `json:"action"`
	ProjectCard ProjectCard `json:"project_card"`
}

type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

type LabelEvent struct {
	Action  string `json:"action"`
	Label   Label  `json:"label"`
	Changes struct {
		Name struct {
			From string `json:"from"`
		} `json:"name"`
	} `json:"changes"`
	Repository Repository `json:"repository"`
}

type CreateEvent struct {
	Ref        string     `json:"ref"`
	RefType    string     `json:"ref_type"`
	Repository Repository `json:"repository"`
}

type IssueCommentEvent struct {
	Action  string `json:"action"`
	Comment struct {
		Body string `json:"body"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"comment"`
	Issue struct {
		Number int `json:"number"`
	} `json:"issue"`
	Repository Repository `json:"repository"`
}

// DecodePush decodes a push payload. Returns false when the payload does
// not carry the fields a push handler needs; callers treat that as "event
// not relevant".
func DecodePush(e Event) (PushEvent, bool) {
	var p PushEvent
	if e.Type != TypePush || json.Unmarshal(e.Payload, &p) != nil {
		return PushEvent{}, false
	}
	if p.Repository.FullName == "" {
		return PushEvent{}, false
	}
	return p, true
}

func DecodeProjectCard(e Event) (ProjectCardEvent, bool) {
	var p ProjectCardEvent
	if e.Type != TypeProjectCard || json.Unmarshal(e.Payload, &p) != nil {
		return ProjectCardEvent{}, false
	}
	if p.Action == "" || p.ProjectCard.ID == 0 {
		return ProjectCardEvent{}, false
	}
	return p, true
}

func DecodeLabel(e Event) (LabelEvent, bool) {
	var p LabelEvent
	if e.Type != TypeLabel || json.Unmarshal(e.Payload, &p) != nil {
		return LabelEvent{}, false
	}
	if p.Action == "" || p.Label.Name == "" || p.Repository.FullName == "" {
		return LabelEvent{}, false
	}
	return p, true
}

func DecodeCreate(e Event) (CreateEvent, bool) {
	var p CreateEvent
	if e.Type != TypeCreate || json.Unmarshal(e.Payload, &p) != nil {
		return CreateEvent{}, false
	}
	if p.RefType == "" || p.Repository.FullName == "" {
		return CreateEvent{}, false
	}
	return p, true
}

func DecodeIssueComment(e Event) (IssueCommentEvent, bool) {
	var p IssueCommentEvent
	if e.Type != TypeIssueComment || json.Unmarshal(e.Payload, &p) != nil {
		return IssueCommentEvent{}, false
	}
	if p.Repository.FullName == "" || p.Issue.Number == 0 {
		return IssueCommentEvent{}, false
	}
	return p, true
}
