package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrecanisildak/diet/internal/domain"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseOnce(t *testing.T) {
	want := at("2024-01-01T09:30:00Z")
	for _, in := range []string{
		"2024-01-01T09:30:00Z",
		"2024-01-01T12:30:00+03:00",
		"2024-01-01T09:30Z",
		"2024-01-01T09:30:00",
		"2024-01-01T09:30",
		"2024-01-01 09:30",
	} {
		got, err := ParseOnce(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := ParseOnce("tomorrow")
	assert.Error(t, err)
}

func TestParseDaily(t *testing.T) {
	h, m, err := ParseDaily("09:05")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 5, m)

	_, _, err = ParseDaily("23:59")
	assert.NoError(t, err)

	for _, bad := range []string{"25:99", "24:00", "12:60", "9:00", "09:0", "0900", "ab:cd", "+1:00", "", "09:00:00"} {
		_, _, err := ParseDaily(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsDueOnce(t *testing.T) {
	def := &domain.ScheduledNotification{Kind: domain.ScheduleOnce, ScheduledTime: "2024-01-01T00:00:00Z", Active: true}

	due, err := IsDue(def, at("2023-12-31T23:59:00Z"), time.UTC)
	require.NoError(t, err)
	assert.False(t, due)

	due, err = IsDue(def, at("2024-01-01T00:00:00Z"), time.UTC)
	require.NoError(t, err)
	assert.True(t, due)

	def.Active = false
	due, err = IsDue(def, at("2024-01-01T00:05:00Z"), time.UTC)
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDueDaily(t *testing.T) {
	def := &domain.ScheduledNotification{Kind: domain.ScheduleDaily, ScheduledTime: "12:00", Active: true}

	due, err := IsDue(def, at("2024-01-01T11:59:00Z"), time.UTC)
	require.NoError(t, err)
	assert.False(t, due)

	due, err = IsDue(def, at("2024-01-01T12:00:00Z"), time.UTC)
	require.NoError(t, err)
	assert.True(t, due)

	fired := at("2024-01-01T12:01:00Z")
	def.LastFiredAt = &fired
	due, err = IsDue(def, at("2024-01-01T23:59:00Z"), time.UTC)
	require.NoError(t, err)
	assert.False(t, due)

	due, err = IsDue(def, at("2024-01-02T11:00:00Z"), time.UTC)
	require.NoError(t, err)
	assert.False(t, due)

	due, err = IsDue(def, at("2024-01-02T12:00:00Z"), time.UTC)
	require.NoError(t, err)
	assert.True(t, due)

	// clock moved backwards past the last fire
	due, err = IsDue(def, at("2023-12-31T13:00:00Z"), time.UTC)
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDueDailyUsesReferenceZone(t *testing.T) {
	istanbul := time.FixedZone("TRT", 3*60*60)
	def := &domain.ScheduledNotification{Kind: domain.ScheduleDaily, ScheduledTime: "09:00", Active: true}

	// 06:00Z is 09:00 in UTC+3
	due, err := IsDue(def, at("2024-01-01T06:00:00Z"), istanbul)
	require.NoError(t, err)
	assert.True(t, due)

	// fired at 23:30Z on Dec 31, which is already Jan 1 in UTC+3
	fired := at("2023-12-31T23:30:00Z")
	def.LastFiredAt = &fired
	due, err = IsDue(def, at("2024-01-01T06:00:00Z"), istanbul)
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDueMalformed(t *testing.T) {
	def := &domain.ScheduledNotification{Kind: domain.ScheduleDaily, ScheduledTime: "25:99", Active: true}
	due, err := IsDue(def, at("2024-01-01T12:00:00Z"), time.UTC)
	assert.Error(t, err)
	assert.False(t, due)

	def = &domain.ScheduledNotification{Kind: "weekly", ScheduledTime: "12:00", Active: true}
	_, err = IsDue(def, at("2024-01-01T12:00:00Z"), time.UTC)
	assert.Error(t, err)
}
