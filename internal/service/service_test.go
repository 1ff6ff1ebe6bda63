package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/repository"
	"github.com/emrecanisildak/diet/pkg/database"
	"github.com/emrecanisildak/diet/pkg/pubsub"
)

func newTestStore(t *testing.T) (*gorm.DB, *repository.GormStore) {
	t.Helper()
	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, repository.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db, repository.NewGormStore(db)
}

func seedUser(t *testing.T, s repository.Store, name, role string, token *string) *domain.User {
	t.Helper()
	u := &domain.User{Email: uuid.NewString() + "@example.com", FullName: name, Role: role, APNsToken: token}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func strPtr(s string) *string { return &s }

type fakeChannel struct {
	id     string
	full   bool
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeChannel) ID() string { return f.id }
func (f *fakeChannel) Close()     {}

func (f *fakeChannel) Send(data []byte) bool {
	if f.full {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return true
}

func (f *fakeChannel) messages(t *testing.T) []domain.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Message, 0, len(f.frames))
	for _, fr := range f.frames {
		var m domain.Message
		require.NoError(t, json.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, e *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeGateway struct {
	failFor map[string]bool
	calls   atomic.Int32
	mu      sync.Mutex
	tokens  []string
}

func (g *fakeGateway) SendPush(_ context.Context, token, _, _ string) error {
	g.calls.Add(1)
	g.mu.Lock()
	g.tokens = append(g.tokens, token)
	g.mu.Unlock()
	if g.failFor[token] {
		return errors.New("apns: connection reset")
	}
	return nil
}
