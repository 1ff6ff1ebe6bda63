package domain

// Live channel frame types.
const (
	MsgTypeError = "error"
)

// Error codes sent in error frames.
const (
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// InboundMessage is a chat message written by the client on its live channel.
type InboundMessage struct {
	RecipientID string  `json:"receiver_id"`
	Content     *string `json:"content"`
	ImageURL    *string `json:"image_url"`
}

// ErrorMessage is sent to the client when an inbound frame is rejected.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage creates an error frame.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
