package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrecanisildak/diet/internal/domain"
)

func TestMessageConversationAndMarkRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, domain.RoleClient, nil)
	bob := seedUser(t, s, domain.RoleDietitian, nil)
	carol := seedUser(t, s, domain.RoleClient, nil)

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	send := func(from, to *domain.User, text string, at time.Time) *domain.Message {
		m := &domain.Message{SenderID: from.ID, RecipientID: to.ID, Content: strPtr(text), CreatedAt: at}
		require.NoError(t, s.Messages().Create(ctx, m))
		return m
	}

	send(alice, bob, "hi", base)
	send(bob, alice, "hello", base.Add(time.Minute))
	send(alice, bob, "how are you", base.Add(2*time.Minute))
	send(carol, bob, "other thread", base.Add(3*time.Minute))

	conv, err := s.Messages().ListConversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, conv, 3)
	assert.Equal(t, "hi", *conv[0].Content)
	assert.Equal(t, "how are you", *conv[2].Content)

	counts, err := s.Messages().UnreadCountsBySender(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[alice.ID])
	assert.Equal(t, int64(1), counts[carol.ID])

	n, err := s.Messages().MarkRead(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Messages().MarkRead(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	// alice's copy of bob's message stays unread
	conv, err = s.Messages().ListConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, conv[1].IsRead)
	assert.True(t, conv[0].IsRead)

	latest, err := s.Messages().LatestPerCounterpart(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "how are you", *latest[alice.ID].Content)
	assert.Equal(t, "other thread", *latest[carol.ID].Content)
}

func TestMessageIDsAssigned(t *testing.T) {
	s := newTestStore(t)
	m := &domain.Message{SenderID: "a", RecipientID: "b", ImageURL: strPtr("/uploads/x.png")}
	require.NoError(t, s.Messages().Create(context.Background(), m))
	assert.Len(t, m.ID, 26)
	assert.False(t, m.CreatedAt.IsZero())
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c1 := seedUser(t, s, domain.RoleClient, strPtr("tok-1"))
	c2 := seedUser(t, s, domain.RoleClient, nil)
	seedUser(t, s, domain.RoleDietitian, nil)

	clients, err := s.Users().ListByRole(ctx, domain.RoleClient)
	require.NoError(t, err)
	assert.Len(t, clients, 2)

	tok, err := s.Users().GetPushToken(ctx, c1.ID)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "tok-1", *tok)

	tok, err = s.Users().GetPushToken(ctx, c2.ID)
	require.NoError(t, err)
	assert.Nil(t, tok)

	require.NoError(t, s.Users().SetPushToken(ctx, c2.ID, "tok-2"))
	require.NoError(t, s.Users().SetPushToken(ctx, c2.ID, "tok-2"))
	tok, err = s.Users().GetPushToken(ctx, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", *tok)

	err = s.Users().SetPushToken(ctx, "missing", "tok")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Users().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	found, err := s.Users().GetByIDs(ctx, []string{c1.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	batch := []*domain.Notification{
		{UserID: "u1", Title: "t1", Body: "b1", CreatedAt: base},
		{UserID: "u1", Title: "t2", Body: "b2", CreatedAt: base.Add(time.Hour)},
		{UserID: "u2", Title: "t3", Body: "b3", CreatedAt: base},
	}
	require.NoError(t, s.Notifications().CreateBatch(ctx, batch))
	for _, n := range batch {
		assert.NotEmpty(t, n.ID)
	}

	list, err := s.Notifications().ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t2", list[0].Title)

	err = s.Notifications().MarkRead(ctx, batch[2].ID, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Notifications().MarkRead(ctx, batch[0].ID, "u1"))
	require.NoError(t, s.Notifications().MarkRead(ctx, batch[0].ID, "u1"))

	n, err := s.Notifications().MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestScheduled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := &domain.ScheduledNotification{Title: "a", Body: "a", Kind: domain.ScheduleOnce,
		ScheduledTime: "2024-01-01T00:00:00Z", Active: true, CreatedAt: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)}
	newer := &domain.ScheduledNotification{Title: "b", Body: "b", Kind: domain.ScheduleDaily,
		ScheduledTime: "12:00", Active: true, CreatedAt: time.Date(2023, 12, 2, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.Scheduled().Create(ctx, older))
	require.NoError(t, s.Scheduled().Create(ctx, newer))
	assert.Equal(t, "all", older.TargetType)

	all, err := s.Scheduled().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)

	inactive := false
	require.NoError(t, s.Scheduled().Update(ctx, older.ID, ScheduledUpdate{Active: &inactive}))
	require.NoError(t, s.Scheduled().Update(ctx, older.ID, ScheduledUpdate{Active: &inactive}))

	active, err := s.Scheduled().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, newer.ID, active[0].ID)

	fired := time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC)
	require.NoError(t, s.Scheduled().Update(ctx, newer.ID, ScheduledUpdate{LastFiredAt: &fired}))
	got, err := s.Scheduled().GetForUpdate(ctx, newer.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastFiredAt)
	assert.True(t, fired.Equal(*got.LastFiredAt))

	assert.ErrorIs(t, s.Scheduled().Update(ctx, "missing", ScheduledUpdate{Active: &inactive}), domain.ErrNotFound)

	require.NoError(t, s.Scheduled().Delete(ctx, older.ID))
	assert.ErrorIs(t, s.Scheduled().Delete(ctx, older.ID), domain.ErrNotFound)
	_, err = s.Scheduled().GetByID(ctx, older.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithinTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx Store) error {
		require.NoError(t, tx.Notifications().Create(ctx, &domain.Notification{UserID: "u1", Title: "t", Body: "b"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := s.Notifications().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	err = s.WithinTx(ctx, func(tx Store) error {
		return tx.Notifications().Create(ctx, &domain.Notification{UserID: "u1", Title: "t", Body: "b"})
	})
	require.NoError(t, err)
	list, err = s.Notifications().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
