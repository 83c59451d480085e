// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/taxease-tui/internal/controller"
	"github.com/jeranaias/taxease-tui/internal/health"
	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/session"
	"github.com/jeranaias/taxease-tui/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeController struct {
	mu sync.Mutex

	view     controller.View
	listener func(controller.View)

	sent      []string
	asked     []int
	resumed   []model.ConversationID
	deleted   []model.ConversationID
	renamed   map[model.ConversationID]string
	newCount  int
	refreshes int
	sendErr   error
}

func newFakeController() *fakeController {
	return &fakeController{renamed: make(map[model.ConversationID]string)}
}

func (f *fakeController) Subscribe(fn func(controller.View)) func() {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.listener = nil
		f.mu.Unlock()
	}
}

func (f *fakeController) View() controller.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeController) DismissBanner() {
	f.mu.Lock()
	f.view.Banner = ""
	f.mu.Unlock()
}

func (f *fakeController) Send(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.sendErr
}

func (f *fakeController) Ask(ctx context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, index)
	return nil
}

func (f *fakeController) NewConversation() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newCount++
}

func (f *fakeController) Resume(ctx context.Context, id model.ConversationID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed = append(f.resumed, id)
	return nil
}

func (f *fakeController) RefreshConversations(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

func (f *fakeController) Delete(ctx context.Context, id model.ConversationID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeController) Rename(ctx context.Context, id model.ConversationID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renamed[id] = title
	return nil
}

type fakeGate struct {
	report health.Report
	checks int
}

func (g *fakeGate) Check(ctx context.Context) health.Report {
	g.checks++
	return g.report
}

func (g *fakeGate) Recheck(ctx context.Context) health.Report { return g.Check(ctx) }

func (g *fakeGate) Report() health.Report { return g.report }

func newTestModel(t *testing.T, ctrl *fakeController) *Model {
	t.Helper()
	m := New(Options{
		Controller:  ctrl,
		Gate:        &fakeGate{report: health.Report{State: health.StateHealthy}},
		Theme:       styles.NewTheme("dark"),
		ExportDir:   t.TempDir(),
		ShowSources: true,
		ShowSidebar: true,
	})
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func typeLine(m *Model, text string) tea.Cmd {
	m.input.SetValue(text)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func transcriptWithFollowUps() session.State {
	answer := model.NewAssistantMessage("Stamp duty on leases is charged at 0.78%.")
	answer.FollowUps = []string{"Who pays it?", "When is it due?"}
	answer.Sources = []model.Citation{{BillName: "Nigeria Tax Bill", Section: "128", Page: "94"}}
	return session.State{
		ConversationID: "conv-1",
		Transcript:     []*model.Message{model.NewUserMessage("Stamp duty on leases?"), answer},
	}
}

// =============================================================================
// COMMAND PARSING
// =============================================================================

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		name string
		args string
		ok   bool
	}{
		{"/new", "/new", "", true},
		{"/clear", "/new", "", true},
		{"  /resume  vat exports ", "/resume", "vat exports", true},
		{"/RENAME Budget", "/rename", "Budget", true},
		{"/exit", "/quit", "", true},
		{"/bogus x", "/bogus", "x", false},
		{"hello", "", "", false},
	}
	for _, tc := range cases {
		name, args, ok := parseCommand(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.name, name, tc.in)
		assert.Equal(t, tc.args, args, tc.in)
	}
}

func TestResolveConversation(t *testing.T) {
	convs := []model.ConversationSummary{
		{ID: "1f2e3d4c", Title: "Stamp duty on leases"},
		{ID: "9a8b7c6d", Title: "VAT on exports"},
	}

	got, err := resolveConversation("2", convs)
	require.NoError(t, err)
	assert.Equal(t, model.ConversationID("9a8b7c6d"), got.ID)

	got, err = resolveConversation("1f2e3d4c", convs)
	require.NoError(t, err)
	assert.Equal(t, "Stamp duty on leases", got.Title)

	got, err = resolveConversation("vat", convs)
	require.NoError(t, err)
	assert.Equal(t, model.ConversationID("9a8b7c6d"), got.ID)

	_, err = resolveConversation("3", convs)
	assert.Error(t, err)
	_, err = resolveConversation("zzz", convs)
	assert.Error(t, err)
	_, err = resolveConversation("", convs)
	assert.Error(t, err)
}

func TestFollowUpIndex(t *testing.T) {
	i, ok := followUpIndex("alt+1")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = followUpIndex("alt+5")
	assert.True(t, ok)
	assert.Equal(t, 4, i)

	_, ok = followUpIndex("alt+6")
	assert.False(t, ok)
	_, ok = followUpIndex("ctrl+1")
	assert.False(t, ok)
}

// =============================================================================
// MODEL
// =============================================================================

func TestSubmitSendsAndClearsInput(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(t, ctrl)

	cmd := typeLine(m, "What changes for VAT?")
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	done, ok := msg.(sendDoneMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)
	assert.Equal(t, []string{"What changes for VAT?"}, ctrl.sent)
}

func TestBlankSubmitDoesNothing(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(t, ctrl)

	assert.Nil(t, typeLine(m, "   "))
	assert.Empty(t, ctrl.sent)
}

func TestRejectedSendRestoresInput(t *testing.T) {
	ctrl := newFakeController()
	ctrl.sendErr = controller.ErrNotReady
	m := newTestModel(t, ctrl)

	cmd := typeLine(m, "Is it ready?")
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, "Is it ready?", m.input.Value())
	assert.Contains(t, m.status, "not ready")
}

func TestSubmitWhileBusyIsRefused(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(t, ctrl)
	m.Update(viewMsg{view: controller.View{State: controller.StateAwaitingResponse}})

	assert.Nil(t, typeLine(m, "second question"))
	assert.Empty(t, ctrl.sent)
	assert.Equal(t, "second question", m.input.Value())
}

func TestViewMsgUpdatesTranscript(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(t, ctrl)

	cmd := func() tea.Cmd {
		_, c := m.Update(viewMsg{view: controller.View{Session: transcriptWithFollowUps()}})
		return c
	}()
	assert.NotNil(t, cmd, "listener is re-armed")

	out := m.View()
	assert.Contains(t, out, "Related questions")
	assert.Contains(t, out, "Nigeria Tax Bill, s.128, p.94")
}

func TestSubscriptionDeliversViews(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(t, ctrl)

	ctrl.listener(controller.View{Banner: "first"})
	ctrl.listener(controller.View{Banner: "second"})

	msg := m.listen()()
	v, ok := msg.(viewMsg)
	require.True(t, ok)
	assert.Equal(t, "second", v.view.Banner, "only the newest view is kept")
}

func TestStartupChecksHealthAndList(t *testing.T) {
	ctrl := newFakeController()
	gate := &fakeGate{report: health.Report{State: health.StateHealthy, DocumentCount: 3}}
	m := New(Options{Controller: ctrl, Gate: gate, Theme: styles.NewTheme("dark")})
	t.Cleanup(m.Close)

	msg := m.startup()()
	sm, ok := msg.(startupMsg)
	require.True(t, ok)
	assert.Equal(t, health.StateHealthy, sm.report.State)
	assert.NoError(t, sm.listErr)
	assert.Equal(t, 1, gate.checks)
	assert.Equal(t, 1, ctrl.refreshes)
}

func TestFollowUpKeyAsks(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(t, ctrl)
	m.Update(viewMsg{view: controller.View{Session: transcriptWithFollowUps()}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}, Alt: true})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []int{1}, ctrl.asked)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'5'}, Alt: true})
	assert.Nil(t, cmd)
	assert.Equal(t, "No such related question.", m.status)
}

func TestCommands(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(t, ctrl)
	convs := []model.ConversationSummary{
		{ID: "conv-1", Title: "Stamp duty"},
		{ID: "conv-2", Title: "VAT on exports"},
	}
	m.Update(viewMsg{view: controller.View{Session: transcriptWithFollowUps(), Conversations: convs}})

	assert.Nil(t, typeLine(m, "/new"))
	assert.Equal(t, 1, ctrl.newCount)

	cmd := typeLine(m, "/resume exports")
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Equal(t, []model.ConversationID{"conv-2"}, ctrl.resumed)
	assert.Equal(t, "Loaded VAT on exports.", m.status)

	cmd = typeLine(m, "/rename Lease duty")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, "Lease duty", ctrl.renamed["conv-1"])

	cmd = typeLine(m, "/delete")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []model.ConversationID{"conv-1"}, ctrl.deleted)

	cmd = typeLine(m, "/ask 1")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []int{0}, ctrl.asked)

	assert.Nil(t, typeLine(m, "/sources"))
	assert.False(t, m.showSources)

	assert.Nil(t, typeLine(m, "/frobnicate"))
	assert.Contains(t, m.status, "Unknown command")
}

func TestExportCommandWritesFile(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(t, ctrl)
	m.Update(viewMsg{view: controller.View{Session: transcriptWithFollowUps()}})

	cmd := typeLine(m, "/export json")
	require.NotNil(t, cmd)
	done, ok := cmd().(exportDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	assert.Equal(t, m.opts.ExportDir, filepath.Dir(done.path))
	data, err := os.ReadFile(done.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Stamp duty on leases is charged")
}

func TestSidebarEnterResumes(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(t, ctrl)
	m.Update(viewMsg{view: controller.View{Conversations: []model.ConversationSummary{
		{ID: "conv-1", Title: "Stamp duty"},
		{ID: "conv-2", Title: "VAT on exports"},
	}}})

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, m.sidebar.Focused())
	m.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []model.ConversationID{"conv-2"}, ctrl.resumed)
	assert.False(t, m.sidebar.Focused())
}

func TestQuitCancelsListener(t *testing.T) {
	ctrl := newFakeController()
	m := newTestModel(t, ctrl)
	listen := m.listen()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)

	done := make(chan tea.Msg, 1)
	go func() { done <- listen() }()
	select {
	case msg := <-done:
		assert.Nil(t, msg)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}
