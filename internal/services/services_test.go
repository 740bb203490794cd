package services

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskly/taskly-be/internal/database"
)

// stubMailer records notification calls instead of sending anything.
type stubMailer struct {
	mu        sync.Mutex
	welcomes  []string
	farewells []string
}

func (m *stubMailer) SendWelcome(email, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, email)
}

func (m *stubMailer) SendFarewell(email, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.farewells = append(m.farewells, email)
}

func (m *stubMailer) farewellCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.farewells)
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func validInput() UserInput {
	return UserInput{Name: "Ann", Email: "ann@x.com", Age: 30, Password: "longenough1"}
}
