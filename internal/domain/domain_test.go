package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	err := fmt.Errorf("send: %w", NewValidationError("content", "content or image_url is required"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "content", ve.Field)

	nf := NewNotFoundError("user", "u1")
	assert.ErrorIs(t, nf, ErrNotFound)
	assert.Equal(t, "user u1 not found", nf.Error())
}

func TestDeriveState(t *testing.T) {
	fired := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)

	cases := []struct {
		name string
		def  ScheduledNotification
		want ScheduleState
	}{
		{"once pending", ScheduledNotification{Kind: ScheduleOnce, Active: true}, StatePending},
		{"once fired", ScheduledNotification{Kind: ScheduleOnce, Active: false, LastFiredAt: &fired}, StateFiredOnce},
		{"once deactivated", ScheduledNotification{Kind: ScheduleOnce, Active: false}, StateInactive},
		{"daily armed", ScheduledNotification{Kind: ScheduleDaily, Active: true, LastFiredAt: &fired}, StateArmedDaily},
		{"daily deactivated", ScheduledNotification{Kind: ScheduleDaily, Active: false, LastFiredAt: &fired}, StateInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.def.DeriveState())
		})
	}
}

func TestMessagePreview(t *testing.T) {
	text := "hello"
	img := "https://cdn/x.png"
	assert.Equal(t, "hello", (&Message{Content: &text}).Preview())
	assert.Equal(t, ImagePlaceholder, (&Message{ImageURL: &img}).Preview())
}
