// internal/app/features/todos/types.go
package todos

import (
	"strings"
	"time"
)

type createInput struct {
	Name         string `json:"name" validate:"required,max=200" label:"Name"`
	Project      string `json:"project" validate:"max=100" label:"Project"`
	DeadlineDate string `json:"deadlineDate" validate:"required" label:"Deadline"`
	WorkgroupID  string `json:"workgroupId" validate:"omitempty,objectid" label:"Workgroup"`
}

// updateInput distinguishes absent fields (nil) from explicit values.
// An empty workgroupId removes the todo's workgroup.
type updateInput struct {
	Name         *string `json:"name" validate:"omitnil,max=200" label:"Name"`
	Project      *string `json:"project" validate:"omitnil,max=100" label:"Project"`
	Completed    *bool   `json:"completed"`
	DeadlineDate *string `json:"deadlineDate"`
	WorkgroupID  *string `json:"workgroupId"`
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseDeadline accepts RFC 3339 timestamps or plain dates (UTC midnight).
func parseDeadline(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
