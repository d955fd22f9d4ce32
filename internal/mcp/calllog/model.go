package calllog

import (
	"time"

	"github.com/google/uuid"
)

// Record is a single persisted MCP tool invocation.
type Record struct {
	ID             uuid.UUID
	ToolName       string
	TenantID       string
	SessionID      string
	Status         string
	DurationMillis int64
	Parameters     []byte
	ErrorMessage   string
	OccurredAt     time.Time
	CreatedAt      time.Time
}
