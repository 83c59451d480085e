// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/taxease-tui/internal/model"
)

func openTemp(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "nested", "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestRecordAndLoad(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()
	id := model.ConversationID("c1")

	r := 0.2
	user := model.NewUserMessage("What changed in the budget?")
	reply := model.NewAssistantMessage("Several things.")
	reply.Sources = []model.Citation{{BillName: "Budget Act", Section: "4", Page: "12", Relevance: &r}}
	reply.FollowUps = []string{"What about pensions?"}
	reply.MisconceptionFlag = true

	require.NoError(t, a.Record(ctx, id, user, reply))

	conv, err := a.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, 2, conv.MessageCount)

	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "What changed in the budget?", conv.Messages[0].Text)

	got := conv.Messages[1]
	assert.Equal(t, reply.ID, got.ID)
	assert.True(t, got.MisconceptionFlag)
	assert.Equal(t, []string{"What about pensions?"}, got.FollowUps)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "Budget Act", got.Sources[0].BillName)
	require.NotNil(t, got.Sources[0].Relevance)
	assert.InDelta(t, 0.2, *got.Sources[0].Relevance, 1e-9)
}

func TestRecordIsIdempotentPerMessage(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()
	id := model.ConversationID("c1")

	m1 := model.NewUserMessage("first")
	m2 := model.NewAssistantMessage("second")
	require.NoError(t, a.Record(ctx, id, m1))
	require.NoError(t, a.Record(ctx, id, m1, m2))
	require.NoError(t, a.Record(ctx, id, m2))

	conv, err := a.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "first", conv.Messages[0].Text)
	assert.Equal(t, "second", conv.Messages[1].Text)
}

func TestReplaceSwapsMessages(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()
	id := model.ConversationID("c1")

	require.NoError(t, a.Rename(ctx, id, "VAT"))
	require.NoError(t, a.Record(ctx, id, model.NewUserMessage("old"), model.NewAssistantMessage("old reply")))

	// Same text, fresh ids each time, as a refetched server transcript.
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Replace(ctx, id,
			model.NewUserMessage("Is VAT changing?"),
			model.NewAssistantMessage("Gradually."),
		))
	}

	conv, err := a.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Is VAT changing?", conv.Messages[0].Text)
	assert.Equal(t, "Gradually.", conv.Messages[1].Text)
	assert.Equal(t, "VAT", conv.Title, "Replace keeps the title")

	require.NoError(t, a.Record(ctx, id, model.NewUserMessage("And food?")))
	conv, err = a.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "And food?", conv.Messages[2].Text)
}

func TestRecordIgnoresZeroConversation(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, "", model.NewUserMessage("hi")))
	convs, err := a.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestFailedEntriesSurvive(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, "c1", model.NewFailureMessage("Sorry")))
	conv, err := a.Load(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	assert.True(t, conv.Messages[0].Failed)
}

func TestRenameAndList(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, "c1", model.NewUserMessage("one")))
	require.NoError(t, a.Rename(ctx, "c1", "Budget questions"))
	// Rename of an unseen conversation creates the row
	require.NoError(t, a.Rename(ctx, "c2", "Empty"))

	convs, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	byID := map[model.ConversationID]model.ConversationSummary{}
	for _, c := range convs {
		byID[c.ID] = c
	}
	assert.Equal(t, "Budget questions", byID["c1"].Title)
	assert.Equal(t, 1, byID["c1"].MessageCount)
	assert.Equal(t, 0, byID["c2"].MessageCount)
}

func TestForgetCascades(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()

	m := model.NewUserMessage("bye")
	require.NoError(t, a.Record(ctx, "c1", m))
	require.NoError(t, a.Forget(ctx, "c1"))

	_, err := a.Load(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	// The message id is free again after the cascade
	require.NoError(t, a.Record(ctx, "c2", m))
	conv, err := a.Load(ctx, "c2")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 1)
}

func TestSearch(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, "c1",
		model.NewUserMessage("Tell me about 100% tax relief"),
		model.NewAssistantMessage("Relief applies to small firms."),
	))
	require.NoError(t, a.Rename(ctx, "c1", "Relief"))

	results, err := a.Search(ctx, "RELIEF", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "Relief", results[0].Title)

	results, err = a.Search(ctx, "100%", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.ConversationID("c1"), results[0].ConversationID)

	results, err = a.Search(ctx, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
