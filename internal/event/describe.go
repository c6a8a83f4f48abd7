package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// descriptions maps event types to a one-line human-readable summary.
// Placeholders are dotted paths into the raw payload.
var descriptions = map[Type]string{
	"commit_comment":              "{comment.user.login} commented on {comment.commit_id} in {repository.full_name}",
	"create":                      "{sender.login} created {ref_type} ({ref}) in {repository.full_name}",
	"delete":                      "{sender.login} deleted {ref_type} ({ref}) in {repository.full_name}",
	"deployment":                  "{sender.login} deployed {deployment.ref} to {deployment.environment} in {repository.full_name}",
	"deployment_status":           "deployment of {deployment.ref} to {deployment.environment} {deployment_status.state} in {repository.full_name}",
	"fork":                        "{forkee.owner.login} forked {forkee.name}",
	"gollum":                      "{sender.login} edited wiki pages in {repository.full_name}",
	"issue_comment":               "{sender.login} commented on issue #{issue.number} in {repository.full_name}",
	"issues":                      "{sender.login} {action} issue #{issue.number} in {repository.full_name}",
	"label":                       "{sender.login} {action} label {label.name} in {repository.full_name}",
	"member":                      "{sender.login} {action} member {member.login} in {repository.full_name}",
	"page_build":                  "{sender.login} built pages in {repository.full_name}",
	"ping":                        "ping from {sender.login}",
	"project_card":                "{sender.login} {action} a project card",
	"public":                      "{sender.login} publicized {repository.full_name}",
	"pull_request":                "{sender.login} {action} pull #{pull_request.number} in {repository.full_name}",
	"pull_request_review":         "{sender.login} {action} {review.state} review on pull #{pull_request.number} in {repository.full_name}",
	"pull_request_review_comment": "{comment.user.login} {action} comment on pull #{pull_request.number} in {repository.full_name}",
	"push":                        "{pusher.name} pushed {ref} in {repository.full_name}",
	"release":                     "{release.author.login} {action} {release.tag_name} in {repository.full_name}",
	"repository":                  "{sender.login} {action} repository {repository.full_name}",
	"status":                      "{sender.login} set {sha} status to {state} in {repository.full_name}",
	"watch":                       "{sender.login} {action} watch in repository {repository.full_name}",
}

// Describe renders a one-line summary of an event for logging. Falls back
// to the bare event type when the type is unknown or the payload is missing
// a referenced field.
func Describe(e Event) string {
	tmpl, ok := descriptions[e.Type]
	if !ok {
		return string(e.Type)
	}

	var payload map[string]any
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return string(e.Type)
	}

	out, ok := expand(tmpl, payload)
	if !ok {
		return string(e.Type)
	}
	return out
}

func expand(tmpl string, payload map[string]any) (string, bool) {
	var b strings.Builder
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), true
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			b.WriteString(rest)
			return b.String(), true
		}

		b.WriteString(rest[:open])
		path := rest[open+1 : open+closing]
		value, ok := lookup(payload, path)
		if !ok {
			return "", false
		}
		b.WriteString(value)
		rest = rest[open+closing+1:]
	}
}

func lookup(payload map[string]any, path string) (string, bool) {
	var current any = payload
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = m[key]
		if !ok {
			return "", false
		}
	}

	switch v := current.(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprintf("%g", v), true
	case bool:
		return fmt.Sprintf("%t", v), true
	default:
		return "", false
	}
}
