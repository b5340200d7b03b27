// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package intake

// MemoryStore is the in-memory SessionStore. Sessions do not survive a
// process restart — that is the accepted loss boundary for in-flight
// submissions; only completed reports are durable. Synchronization is
// the Registry's job.
type MemoryStore struct {
	sessions map[int64]*Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*Session)}
}

// Get returns the session for the user, or false.
func (m *MemoryStore) Get(userID int64) (*Session, bool) {
	session, ok := m.sessions[userID]
	return session, ok
}

// Put stores or replaces the user's session.
func (m *MemoryStore) Put(session *Session) {
	m.sessions[session.UserID] = session
}

// Delete removes the user's session. No-op if absent.
func (m *MemoryStore) Delete(userID int64) {
	delete(m.sessions, userID)
}

// All returns a snapshot of every stored session.
func (m *MemoryStore) All() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		out = append(out, session)
	}
	return out
}
