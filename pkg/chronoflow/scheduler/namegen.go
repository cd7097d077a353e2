package scheduler

import (
	"strings"

	"github.com/google/uuid"
)

// TaskKind labels the trigger kind a generated name describes, used in
// the "{kind}-{scope-name}-{simple-declaring-name}-{operation}" name
// shape.
type TaskKind string

const (
	KindCron      TaskKind = "cron"
	KindScheduled TaskKind = "scheduled"
	KindPeriodic  TaskKind = "periodic"
)

// GenerateName produces a task name from a declaring scope and
// operation name, following one of two built-in shapes: when
// prefix is set, "{prefix}-{operation}" lowercased; otherwise
// "{kind}-{scope}-{declaringName}-{operation}" lowercased. If scope and
// declaringName are both empty and no prefix is set, a random UUID
// suffix is appended instead of leaving an empty segment, so the
// generator never returns a colliding or malformed name.
func GenerateName(prefix string, kind TaskKind, scope, declaringName, operation string) string {
	if prefix != "" {
		return strings.ToLower(prefix + "-" + operation)
	}
	if scope == "" && declaringName == "" {
		return strings.ToLower(string(kind) + "-" + operation + "-" + uuid.NewString())
	}
	parts := []string{string(kind)}
	for _, p := range []string{scope, declaringName, operation} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.ToLower(strings.Join(parts, "-"))
}
