package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID = "user_id"
	FieldRole   = "role"

	// Service
	FieldService = "service"

	// Live channel
	FieldConnID = "conn_id"

	// Delivery
	FieldMessageID    = "message_id"
	FieldRecipientID  = "recipient_id"
	FieldDefinitionID = "definition_id"
	FieldScheduleKind = "schedule_kind"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
