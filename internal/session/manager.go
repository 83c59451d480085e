// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// STATE
// =============================================================================

// State is an immutable copy of the session for rendering.
type State struct {
	ConversationID model.ConversationID
	Transcript     []*model.Message
	Pending        bool
	Generation     uint64

	StartTime    time.Time
	LastActivity time.Time
}

// MessageCount returns the number of transcript entries.
func (s State) MessageCount() int {
	return len(s.Transcript)
}

// LastAssistant returns the newest successful assistant reply, or nil.
func (s State) LastAssistant() *model.Message {
	return model.LastAssistant(s.Transcript)
}

// IsEmpty reports whether nothing has been said yet.
func (s State) IsEmpty() bool {
	return len(s.Transcript) == 0
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks the conversation id, transcript and in-flight flag.
type Manager struct {
	mu sync.Mutex

	conversationID model.ConversationID
	transcript     []*model.Message
	pending        bool
	generation     uint64

	startTime    time.Time
	lastActivity time.Time

	observers map[int]func(State)
	nextObs   int
}

// NewManager creates an empty session.
func NewManager() *Manager {
	now := time.Now()
	return &Manager{
		transcript:   make([]*model.Message, 0),
		startTime:    now,
		lastActivity: now,
		observers:    make(map[int]func(State)),
	}
}

// OnChange registers fn to be called with a snapshot after every mutation.
// Callbacks run on the mutating goroutine, outside the lock. The returned
// function unregisters fn.
func (m *Manager) OnChange(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// =============================================================================
// SINGLE-FLIGHT
// =============================================================================

// TryBegin marks a send as pending. It returns the current generation and
// true, or false if a send is already pending.
func (m *Manager) TryBegin() (uint64, bool) {
	m.mu.Lock()
	if m.pending {
		m.mu.Unlock()
		return 0, false
	}
	m.pending = true
	m.lastActivity = time.Now()
	gen := m.generation
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return gen, true
}

// Begin marks a send as pending and appends its user message in one step,
// so no Reset can land between the two. It returns the generation and a
// copy of the message, or false if a send is already pending.
func (m *Manager) Begin(text string) (uint64, *model.Message, bool) {
	msg := model.NewUserMessage(text)

	m.mu.Lock()
	if m.pending {
		m.mu.Unlock()
		return 0, nil, false
	}
	m.pending = true
	m.transcript = append(m.transcript, msg)
	m.lastActivity = msg.Timestamp
	gen := m.generation
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return gen, msg.Clone(), true
}

// Finish clears the pending flag if gen is still current.
func (m *Manager) Finish(gen uint64) bool {
	return m.mutate(gen, func() {
		m.pending = false
	})
}

// Pending reports whether a send is in flight.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Generation returns the current generation.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// IsCurrent reports whether gen still matches the session.
func (m *Manager) IsCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation == gen
}

// Guard runs fn while holding the session lock, but only if gen is still
// current. Observers are not notified. fn must not call back into m.
func (m *Manager) Guard(gen uint64, fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return false
	}
	fn()
	return true
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// AppendUser appends a user message under generation gen and returns a
// copy of it. It returns false if gen is stale.
func (m *Manager) AppendUser(gen uint64, text string) (*model.Message, bool) {
	msg := model.NewUserMessage(text)
	if !m.mutate(gen, func() {
		m.transcript = append(m.transcript, msg)
	}) {
		return nil, false
	}
	return msg.Clone(), true
}

// AppendAssistant appends a reply produced under generation gen.
// It returns false, leaving the transcript untouched, if gen is stale.
func (m *Manager) AppendAssistant(gen uint64, msg *model.Message) bool {
	if msg == nil {
		return false
	}
	stored := msg.Clone()
	stored.Role = model.RoleAssistant
	return m.mutate(gen, func() {
		m.transcript = append(m.transcript, stored)
	})
}

// AppendFailure appends a failed assistant entry carrying text.
// It returns false if gen is stale.
func (m *Manager) AppendFailure(gen uint64, text string) bool {
	msg := model.NewFailureMessage(text)
	return m.mutate(gen, func() {
		m.transcript = append(m.transcript, msg)
	})
}

// SetConversationID adopts id if gen is still current.
func (m *Manager) SetConversationID(gen uint64, id model.ConversationID) bool {
	return m.mutate(gen, func() {
		m.conversationID = id
	})
}

// ConversationID returns the active conversation id.
func (m *Manager) ConversationID() model.ConversationID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversationID
}

// Reset clears the conversation and transcript and invalidates any
// in-flight send. It returns the id that was active.
func (m *Manager) Reset() model.ConversationID {
	return m.ResetWith(nil)
}

// ResetWith is Reset, additionally running fn inside the same critical
// section. fn must not call back into m.
func (m *Manager) ResetWith(fn func()) model.ConversationID {
	m.mu.Lock()
	prev := m.conversationID
	m.conversationID = ""
	m.transcript = make([]*model.Message, 0)
	m.pending = false
	m.generation++
	m.lastActivity = time.Now()
	if fn != nil {
		fn()
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return prev
}

// ReplaceTranscript installs a loaded conversation, discarding local state
// and invalidating any in-flight send.
func (m *Manager) ReplaceTranscript(id model.ConversationID, msgs []*model.Message) {
	m.ReplaceTranscriptWith(id, msgs, nil)
}

// ReplaceTranscriptWith is ReplaceTranscript, additionally running fn
// inside the same critical section. fn must not call back into m.
func (m *Manager) ReplaceTranscriptWith(id model.ConversationID, msgs []*model.Message, fn func()) {
	loaded := model.CloneMessages(msgs)
	if loaded == nil {
		loaded = make([]*model.Message, 0)
	}

	m.mu.Lock()
	m.conversationID = id
	m.transcript = loaded
	m.pending = false
	m.generation++
	m.lastActivity = time.Now()
	if fn != nil {
		fn()
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

// Snapshot returns a deep copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// =============================================================================
// INTERNALS
// =============================================================================

// mutate applies fn under the lock if gen is current, then notifies.
func (m *Manager) mutate(gen uint64, fn func()) bool {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return false
	}
	fn()
	m.lastActivity = time.Now()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return true
}

func (m *Manager) snapshotLocked() State {
	return State{
		ConversationID: m.conversationID,
		Transcript:     model.CloneMessages(m.transcript),
		Pending:        m.pending,
		Generation:     m.generation,
		StartTime:      m.startTime,
		LastActivity:   m.lastActivity,
	}
}

func (m *Manager) notify(snap State) {
	m.mu.Lock()
	fns := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
