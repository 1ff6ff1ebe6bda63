package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/pkg/database"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGormStore(db)
}

func seedUser(t *testing.T, s Store, role string, token *string) *domain.User {
	t.Helper()
	u := &domain.User{Email: uuid.NewString() + "@example.com", FullName: "Test " + role, Role: role, APNsToken: token}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func strPtr(s string) *string { return &s }
