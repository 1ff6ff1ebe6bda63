package audit

import (
	"context"

	"github.com/emrecanisildak/diet/pkg/log"
)

// Audit actions.
const (
	ActionSendMessage        = "chat.send_message"
	ActionMarkRead           = "chat.mark_read"
	ActionConnect            = "chat.connect"
	ActionAuthFailed         = "chat.auth_failed"
	ActionDisconnect         = "chat.disconnect"
	ActionRegisterToken      = "notification.register_token"
	ActionSendBulk           = "notification.send_bulk"
	ActionScheduleCreate     = "notification.schedule_create"
	ActionScheduleDeactivate = "notification.schedule_deactivate"
	ActionScheduleDelete     = "notification.schedule_delete"
	ActionScheduleFire       = "notification.schedule_fire"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogTarget emits an audit entry about an action on a specific entity.
func LogTarget(ctx context.Context, action string, userID string, targetID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
