// Package calllog records MCP tool invocations in PostgreSQL.
package calllog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Laisky/xero-mcp/library/log"
)

// Status enumerations for recorded tool calls.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Clock provides the current time in UTC.
type Clock func() time.Time

// Service persists and queries tool invocation call logs.
type Service struct {
	db     DB
	logger logSDK.Logger
	clock  Clock
}

// DB defines the database capabilities required by the call log service.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

// RecordInput captures the information required to persist a tool invocation.
type RecordInput struct {
	ToolName     string
	TenantID     string
	SessionID    string
	Status       string
	Duration     time.Duration
	Parameters   map[string]any
	ErrorMessage string
	OccurredAt   time.Time
}

// ListOptions configures the result set returned by List.
type ListOptions struct {
	Page      int
	PageSize  int
	ToolName  string
	TenantID  string
	Status    string
	SortField string
	SortOrder string
	From      time.Time
	To        time.Time
}

// Entry represents a single record returned from List.
type Entry struct {
	ID             uuid.UUID
	ToolName       string
	TenantID       string
	SessionID      string
	Status         string
	DurationMillis int64
	Parameters     map[string]any
	ErrorMessage   string
	OccurredAt     time.Time
	CreatedAt      time.Time
}

// ListResult packages the results of a List query along with the total count.
type ListResult struct {
	Entries []Entry
	Total   int64
}

const (
	defaultPage = 1
	// defaultPageSize sets the fallback page size for list queries.
	defaultPageSize = 20
	// maxPageSize caps the page size for list queries.
	maxPageSize       = 100
	sortFieldDuration = "duration"
)

// NewService constructs a Service backed by the supplied PostgreSQL connection.
func NewService(ctx context.Context, db DB, logger logSDK.Logger, clock Clock) (*Service, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if logger == nil {
		logger = log.Logger.Named("call_log_service")
	}
	if clock == nil {
		clock = func() time.Time {
			return time.Now().UTC()
		}
	}

	if err := runMigrations(ctx, db); err != nil {
		return nil, errors.Wrap(err, "migrate call_log records")
	}

	return &Service{db: db, logger: logger, clock: clock}, nil
}

// Record stores a tool invocation using the provided input.
func (s *Service) Record(ctx context.Context, input RecordInput) error {
	if s == nil {
		return errors.New("call log service is nil")
	}
	toolName := strings.TrimSpace(input.ToolName)
	if toolName == "" {
		return errors.New("tool name is required")
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = StatusSuccess
	}

	params := input.Parameters
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "marshal call log parameters")
	}

	occurred := input.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock()
	}

	record := Record{
		ID:             gutils.UUID7Bytes(),
		ToolName:       toolName,
		TenantID:       strings.TrimSpace(input.TenantID),
		SessionID:      strings.TrimSpace(input.SessionID),
		Status:         status,
		DurationMillis: input.Duration.Milliseconds(),
		Parameters:     payload,
		ErrorMessage:   truncateRunes(strings.TrimSpace(input.ErrorMessage), maxErrorMessageLength),
		OccurredAt:     occurred,
		CreatedAt:      s.clock(),
	}

	// the call has already finished; a cancelled request must not lose its audit row
	ctx = context.WithoutCancel(ctx)
	_, err = s.db.Exec(ctx, `
		INSERT INTO mcp_call_logs (
			id, tool_name, tenant_id, session_id, status,
			duration_millis, parameters, error_message, occurred_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7::jsonb, $8, $9, $10
		)
	`,
		record.ID,
		record.ToolName,
		record.TenantID,
		record.SessionID,
		record.Status,
		record.DurationMillis,
		string(record.Parameters),
		record.ErrorMessage,
		record.OccurredAt,
		record.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "create call log record")
	}

	s.logger.Debug("recorded call log", zap.String("tool", toolName), zap.String("status", status))
	return nil
}

// List retrieves records that match the provided filters and pagination options.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if s == nil {
		return nil, errors.New("call log service is nil")
	}

	toolName, err := sanitizeOptionalText(opts.ToolName, maxToolNameLength, "tool name")
	if err != nil {
		return nil, errors.Wrap(err, "sanitize tool name")
	}
	tenantID, err := sanitizeOptionalText(opts.TenantID, maxTenantIDLength, "tenant id")
	if err != nil {
		return nil, errors.Wrap(err, "sanitize tenant id")
	}

	page := opts.Page
	if page < 1 {
		page = defaultPage
	}
	size := opts.PageSize
	if size <= 0 {
		size = defaultPageSize
	} else if size > maxPageSize {
		size = maxPageSize
	}

	clauses := make([]string, 0, 5)
	args := make([]any, 0, 7)
	argID := 1
	if toolName != "" {
		clauses = append(clauses, fmt.Sprintf("tool_name = $%d", argID))
		args = append(args, toolName)
		argID++
	}
	if tenantID != "" {
		clauses = append(clauses, fmt.Sprintf("tenant_id = $%d", argID))
		args = append(args, tenantID)
		argID++
	}
	switch status := strings.TrimSpace(opts.Status); status {
	case "":
	case StatusSuccess, StatusError:
		clauses = append(clauses, fmt.Sprintf("status = $%d", argID))
		args = append(args, status)
		argID++
	default:
		return nil, errors.Errorf("unknown status %q", status)
	}
	if !opts.From.IsZero() {
		clauses = append(clauses, fmt.Sprintf("occurred_at >= $%d", argID))
		args = append(args, opts.From)
		argID++
	}
	if !opts.To.IsZero() {
		clauses = append(clauses, fmt.Sprintf("occurred_at < $%d", argID))
		args = append(args, opts.To)
		argID++
	}
	whereSQL := ""
	if len(clauses) > 0 {
		whereSQL = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int64
	countSQL := "SELECT COUNT(*) FROM mcp_call_logs" + whereSQL
	if err := s.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, errors.Wrap(err, "count call log records")
	}

	orderField := mapSortField(opts.SortField)
	orderDirection := strings.ToUpper(opts.SortOrder)
	if orderDirection != "ASC" {
		orderDirection = "DESC"
	}
	offset := (page - 1) * size
	listSQL := fmt.Sprintf(`
		SELECT id, tool_name, tenant_id, session_id, status,
			duration_millis, parameters, error_message, occurred_at, created_at
		FROM mcp_call_logs
		%s
		ORDER BY %s %s
		OFFSET $%d LIMIT $%d
	`, whereSQL, orderField, orderDirection, argID, argID+1)
	listArgs := append(args, offset, size)
	rows, err := s.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, errors.Wrap(err, "query call log records")
	}
	defer rows.Close()

	entries := make([]Entry, 0, size)
	for rows.Next() {
		var record Record
		if scanErr := rows.Scan(
			&record.ID,
			&record.ToolName,
			&record.TenantID,
			&record.SessionID,
			&record.Status,
			&record.DurationMillis,
			&record.Parameters,
			&record.ErrorMessage,
			&record.OccurredAt,
			&record.CreatedAt,
		); scanErr != nil {
			return nil, errors.Wrap(scanErr, "scan call log record")
		}
		entries = append(entries, s.entryFromRecord(record))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate call log rows")
	}

	return &ListResult{Entries: entries, Total: total}, nil
}

func (s *Service) entryFromRecord(record Record) Entry {
	params := map[string]any{}
	if len(record.Parameters) > 0 {
		if err := json.Unmarshal(record.Parameters, &params); err != nil {
			s.logger.Warn("decode call log parameters", zap.Error(err), zap.String("record_id", record.ID.String()))
			params = map[string]any{}
		}
	}

	return Entry{
		ID:             record.ID,
		ToolName:       record.ToolName,
		TenantID:       record.TenantID,
		SessionID:      record.SessionID,
		Status:         record.Status,
		DurationMillis: record.DurationMillis,
		Parameters:     params,
		ErrorMessage:   record.ErrorMessage,
		OccurredAt:     record.OccurredAt,
		CreatedAt:      record.CreatedAt,
	}
}

// runMigrations creates call log table and indexes when absent.
func runMigrations(ctx context.Context, db DB) error {
	for _, stmt := range migrationStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "execute call log migration")
		}
	}

	return nil
}

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS mcp_call_logs (
		id UUID PRIMARY KEY,
		tool_name VARCHAR(64) NOT NULL,
		tenant_id VARCHAR(64) NOT NULL DEFAULT '',
		session_id VARCHAR(128) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		duration_millis BIGINT,
		parameters JSONB,
		error_message TEXT,
		occurred_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mcp_call_logs_tool_name ON mcp_call_logs (tool_name)`,
	`CREATE INDEX IF NOT EXISTS idx_mcp_call_logs_tenant_id ON mcp_call_logs (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_mcp_call_logs_status ON mcp_call_logs (status)`,
	`CREATE INDEX IF NOT EXISTS idx_mcp_call_logs_occurred_at ON mcp_call_logs (occurred_at DESC)`,
}

func mapSortField(field string) string {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case sortFieldDuration:
		return "duration_millis"
	default:
		return "occurred_at"
	}
}
