package log

import (
	"errors"

	"github.com/GillJordan/Home-expense/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldYear       = "year"
	FieldPartition  = "partition"
	FieldProduct    = "product"
	FieldDebit      = "debit"
	FieldRows       = "rows"
	FieldPending    = "pending"
	FieldState      = "state"
	FieldDate       = "date"
	FieldSynced     = "synced"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentGateway   = "gateway"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentAgent     = "agent"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpList     = "list"
	OpListDay  = "list_day"
	OpSearch   = "search"
	OpSuggest  = "suggest"
	OpDiag     = "diag"
	OpSync     = "sync"
	OpRefresh  = "refresh"
	OpProbe    = "probe"
	OpEnqueue  = "enqueue"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeParse         = "parse_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeStore         = "store_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeInternal      = "internal_error"
)

// ErrorTypeOf maps a ledger error onto its log category.
func ErrorTypeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrParse):
		return ErrorTypeParse
	case errors.Is(err, core.ErrAuth):
		return ErrorTypeAuth
	case errors.Is(err, core.ErrStore):
		return ErrorTypeStore
	}
	return ErrorTypeInternal
}

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message and its category
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = ErrorTypeOf(err)
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRecord adds the fields identifying a stored expense
func (f LogFields) WithRecord(partition string, r core.Record) LogFields {
	f[FieldPartition] = partition
	f[FieldProduct] = r.Product
	f[FieldDebit] = r.Debit
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
