// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"testing"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// SINGLE-FLIGHT TESTS
// =============================================================================

func TestTryBegin_SingleFlight(t *testing.T) {
	m := NewManager()

	gen, ok := m.TryBegin()
	if !ok {
		t.Fatal("first TryBegin should succeed")
	}
	if _, ok := m.TryBegin(); ok {
		t.Error("second TryBegin should be rejected while pending")
	}
	if !m.Pending() {
		t.Error("Pending() should be true")
	}

	m.Finish(gen)
	if m.Pending() {
		t.Error("Finish should clear pending")
	}
	if _, ok := m.TryBegin(); !ok {
		t.Error("TryBegin should succeed after Finish")
	}
}

func TestTryBegin_Concurrent(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := m.TryBegin(); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("exactly one TryBegin should win, got %d", wins)
	}
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscriptOrder(t *testing.T) {
	m := NewManager()

	for i := 0; i < 3; i++ {
		gen, ok := m.TryBegin()
		if !ok {
			t.Fatalf("round %d: TryBegin failed", i)
		}
		m.AppendUser(gen, "question")
		if !m.AppendAssistant(gen, model.NewAssistantMessage("answer")) {
			t.Fatalf("round %d: AppendAssistant rejected", i)
		}
		m.Finish(gen)
	}

	snap := m.Snapshot()
	if snap.MessageCount() != 6 {
		t.Fatalf("MessageCount = %d, want 6", snap.MessageCount())
	}
	for i, msg := range snap.Transcript {
		want := model.RoleUser
		if i%2 == 1 {
			want = model.RoleAssistant
		}
		if msg.Role != want {
			t.Errorf("Transcript[%d].Role = %s, want %s", i, msg.Role, want)
		}
	}
}

func TestAppendFailure(t *testing.T) {
	m := NewManager()
	gen, _ := m.TryBegin()
	m.AppendUser(gen, "q")
	m.AppendFailure(gen, "Sorry, I encountered an error. Please try again.")
	m.Finish(gen)

	snap := m.Snapshot()
	if len(snap.Transcript) != 2 {
		t.Fatalf("len = %d, want 2", len(snap.Transcript))
	}
	if snap.Transcript[0].Text != "q" {
		t.Error("user text should remain after a failure")
	}
	if !snap.Transcript[1].Failed || !snap.Transcript[1].IsAssistant() {
		t.Errorf("failure entry = %+v", snap.Transcript[1])
	}
	if snap.LastAssistant() != nil {
		t.Error("LastAssistant should ignore failed entries")
	}
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestReset_DiscardsStaleResults(t *testing.T) {
	m := NewManager()
	gen, _ := m.TryBegin()
	m.AppendUser(gen, "q")
	m.SetConversationID(gen, "c-1")

	prev := m.Reset()
	if prev != "c-1" {
		t.Errorf("Reset returned %q, want c-1", prev)
	}

	if m.AppendAssistant(gen, model.NewAssistantMessage("late")) {
		t.Error("stale AppendAssistant should be rejected")
	}
	if m.AppendFailure(gen, "late failure") {
		t.Error("stale AppendFailure should be rejected")
	}
	if m.SetConversationID(gen, "c-1") {
		t.Error("stale SetConversationID should be rejected")
	}
	if m.Finish(gen) {
		t.Error("stale Finish should be rejected")
	}

	snap := m.Snapshot()
	if !snap.IsEmpty() || snap.Pending || !snap.ConversationID.IsZero() {
		t.Errorf("state after reset = %+v", snap)
	}
	if m.IsCurrent(gen) {
		t.Error("old generation should no longer be current")
	}
}

func TestReplaceTranscript(t *testing.T) {
	m := NewManager()
	gen, _ := m.TryBegin()
	m.AppendUser(gen, "local")

	loaded := []*model.Message{model.NewUserMessage("a"), model.NewAssistantMessage("b")}
	m.ReplaceTranscript("c-7", loaded)

	loaded[0].Text = "mutated by caller"

	snap := m.Snapshot()
	if snap.ConversationID != "c-7" || len(snap.Transcript) != 2 || snap.Pending {
		t.Fatalf("unexpected state: %+v", snap)
	}
	if snap.Transcript[0].Text != "a" {
		t.Error("ReplaceTranscript must copy the messages")
	}
	if m.AppendAssistant(gen, model.NewAssistantMessage("late")) {
		t.Error("send started before ReplaceTranscript must be discarded")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	m := NewManager()
	m.AppendUser(m.Generation(), "original")

	snap := m.Snapshot()
	snap.Transcript[0].Text = "changed"

	if m.Snapshot().Transcript[0].Text != "original" {
		t.Error("Snapshot must be a deep copy")
	}
}

// =============================================================================
// OBSERVER TESTS
// =============================================================================

func TestOnChange(t *testing.T) {
	m := NewManager()

	var states []State
	unsubscribe := m.OnChange(func(s State) { states = append(states, s) })

	gen, _ := m.TryBegin()
	m.AppendUser(gen, "q")
	m.AppendAssistant(gen, model.NewAssistantMessage("a"))
	m.Finish(gen)

	if len(states) != 4 {
		t.Fatalf("got %d notifications, want 4", len(states))
	}
	if !states[0].Pending || states[3].Pending {
		t.Error("pending should be visible to observers")
	}
	if states[3].MessageCount() != 2 {
		t.Errorf("final MessageCount = %d", states[3].MessageCount())
	}

	unsubscribe()
	m.Reset()
	if len(states) != 4 {
		t.Error("unsubscribed observer was notified")
	}
}

// =============================================================================
// ATOMICITY TESTS
// =============================================================================

func TestBegin_AppendsAndMarksPending(t *testing.T) {
	m := NewManager()

	gen, msg, ok := m.Begin("Is VAT changing?")
	if !ok {
		t.Fatal("Begin should succeed on an idle session")
	}
	if msg == nil || msg.Text != "Is VAT changing?" || !msg.IsUser() {
		t.Fatalf("Begin returned %+v", msg)
	}
	if _, _, ok := m.Begin("again"); ok {
		t.Error("second Begin should be rejected while pending")
	}

	snap := m.Snapshot()
	if !snap.Pending || snap.MessageCount() != 1 {
		t.Errorf("state after Begin = %+v", snap)
	}
	if !m.AppendAssistant(gen, model.NewAssistantMessage("yes")) {
		t.Error("reply under the Begin generation should be accepted")
	}
}

func TestBegin_ResetFromObserverLeavesNoOrphan(t *testing.T) {
	m := NewManager()

	reset := false
	m.OnChange(func(s State) {
		if s.Pending && !reset {
			reset = true
			m.Reset()
		}
	})

	gen, _, ok := m.Begin("q")
	if !ok {
		t.Fatal("Begin failed")
	}
	if _, ok := m.AppendUser(gen, "late"); ok {
		t.Error("AppendUser under a reset generation should be rejected")
	}

	snap := m.Snapshot()
	if !snap.IsEmpty() || snap.Pending {
		t.Errorf("reset should leave an empty idle session, got %d entries pending=%v",
			snap.MessageCount(), snap.Pending)
	}
}

func TestGuard(t *testing.T) {
	m := NewManager()
	gen := m.Generation()

	ran := false
	if !m.Guard(gen, func() { ran = true }) || !ran {
		t.Error("Guard should run fn for the current generation")
	}

	m.Reset()
	ran = false
	if m.Guard(gen, func() { ran = true }) || ran {
		t.Error("Guard must not run fn for a stale generation")
	}
}

func TestResetWith_RunsHookInsideReset(t *testing.T) {
	m := NewManager()
	gen, _, _ := m.Begin("q")

	var sawGen uint64
	m.ResetWith(func() { sawGen = m.generation })
	if sawGen != gen+1 {
		t.Errorf("hook saw generation %d, want %d", sawGen, gen+1)
	}

	called := false
	m.ReplaceTranscriptWith("c-2", nil, func() { called = true })
	if !called || m.ConversationID() != "c-2" {
		t.Error("ReplaceTranscriptWith should run the hook and adopt the id")
	}
}
