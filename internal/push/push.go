package push

import (
	"context"
	"fmt"
)

// Gateway delivers a title/body alert to one device token.
type Gateway interface {
	SendPush(ctx context.Context, token, title, body string) error
}

// RejectedError is returned when the push provider accepted the request but
// refused this particular device, e.g. an unregistered token. It says
// nothing about the provider's health.
type RejectedError struct {
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("push rejected: %d %s", e.StatusCode, e.Reason)
}
