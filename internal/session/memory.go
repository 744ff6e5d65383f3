package session

import (
	"log/slog"

	"github.com/m3rciful/schedulebot/core/logger"
	"github.com/m3rciful/schedulebot/core/telegram/state"
)

// MemoryStore is the process-lifetime Store.
type MemoryStore struct {
	items *state.Store[Record]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: state.New[Record]()}
}

func (m *MemoryStore) Get(userID int64) (Record, bool) {
	return m.items.Get(userID)
}

func (m *MemoryStore) Put(userID int64, rec Record) bool {
	if !rec.Complete() {
		logger.Warn(logger.Background(), logger.CompRegistration, "session.put.rejected",
			slog.Int64("user_id", userID),
			slog.String("role", string(rec.Role)),
		)
		return false
	}
	m.items.Put(userID, rec)
	return true
}

func (m *MemoryStore) Delete(userID int64) {
	m.items.Delete(userID)
}

func (m *MemoryStore) Lock(userID int64) func() {
	return m.items.Lock(userID)
}

// Len reports the number of sessions.
func (m *MemoryStore) Len() int {
	return m.items.Len()
}
