package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs
// within a context. The webhook handler sets the delivery fields once and
// the dispatcher adds the workflow name, so every log line produced while
// handling a delivery carries the full event context.
type LogFields struct {
	DeliveryID string // platform delivery id (or generated when absent)
	EventType  string // webhook event type tag, e.g. "project_card"
	Workflow   string // name of the workflow currently handling the event
	Repository string // repository full name the event originated from
}

// WithLogFields enriches context with structured log fields. Multiple calls
// merge fields, with newer non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context. Returns empty LogFields
// if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.DeliveryID != "" {
		result.DeliveryID = next.DeliveryID
	}
	if next.EventType != "" {
		result.EventType = next.EventType
	}
	if next.Workflow != "" {
		result.Workflow = next.Workflow
	}
	if next.Repository != "" {
		result.Repository = next.Repository
	}

	return result
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging potentially long payload excerpts.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
