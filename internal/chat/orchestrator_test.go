package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"paper-reader/internal/apperr"
	"paper-reader/internal/llm"
)

func ptr(s string) *string { return &s }

func TestBuildMessagesPromptOnly(t *testing.T) {
	msgs := BuildMessages("What is new here?", nil, "")

	require.Len(t, msgs, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: Persona}, msgs[0])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What is new here?"}, msgs[1])
}

func TestBuildMessagesDocumentFollowsPersona(t *testing.T) {
	doc := "# Title\n\nBody with  spacing\tand tabs"
	msgs := BuildMessages("q", []Turn{NewTurn("a", "b")}, doc)

	require.Len(t, msgs, 5)
	assert.Equal(t, Persona, msgs[0].Content)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: "论文内容:\n" + doc}, msgs[1])

	var docMessages int
	for _, m := range msgs {
		if m.Role == llm.RoleSystem && strings.HasPrefix(m.Content, DocumentLabel) {
			docMessages++
		}
	}
	assert.Equal(t, 1, docMessages)
}

func TestBuildMessagesPartialTurns(t *testing.T) {
	history := []Turn{
		NewTurn("u1", "a1"),
		{User: ptr("u2")},
		AssistantOnly("❌ 请求失败：boom"),
		{User: ptr(""), Assistant: ptr("a3")},
		{},
	}
	msgs := BuildMessages("", history, "")

	want := []llm.Message{
		{Role: llm.RoleSystem, Content: Persona},
		{Role: llm.RoleUser, Content: "u1"},
		{Role: llm.RoleAssistant, Content: "a1"},
		{Role: llm.RoleUser, Content: "u2"},
		{Role: llm.RoleAssistant, Content: "❌ 请求失败：boom"},
		{Role: llm.RoleUser, Content: ""},
		{Role: llm.RoleAssistant, Content: "a3"},
	}
	assert.Equal(t, want, msgs)
}

func collectUpdates(ch <-chan Update) []Update {
	var out []Update
	for u := range ch {
		out = append(out, u)
	}
	return out
}

func TestConverseAccumulatesReply(t *testing.T) {
	client := new(llm.MockClient)
	stream := llm.NewFragmentStream(nil, "Hel", "", "lo", " world")
	client.On("StreamChat", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Temperature == 0.5 && req.MaxTokens == 256 && len(req.Messages) == 3
	})).Return(stream, nil).Once()

	o := New(client, nil)
	ch, err := o.Converse(context.Background(), "hi", nil, "doc", Params{Temperature: 0.5, MaxTokens: 256})
	require.NoError(t, err)

	updates := collectUpdates(ch)
	replies := make([]string, len(updates))
	for i, u := range updates {
		assert.NoError(t, u.Err)
		replies[i] = u.Reply
	}
	assert.Equal(t, []string{"Hel", "Hello", "Hello world"}, replies)

	for i := 1; i < len(replies); i++ {
		assert.True(t, strings.HasPrefix(replies[i], replies[i-1]), "reply must extend previous snapshot")
	}
	assert.True(t, stream.Closed())
	client.AssertExpectations(t)
}

func TestConverseStreamFailure(t *testing.T) {
	client := new(llm.MockClient)
	client.On("StreamChat", mock.Anything, mock.Anything).
		Return(llm.NewFragmentStream(errors.New("connection reset"), "partial"), nil).Once()

	ch, err := New(client, nil).Converse(context.Background(), "hi", nil, "", DefaultParams())
	require.NoError(t, err)

	updates := collectUpdates(ch)
	require.Len(t, updates, 2)
	assert.Equal(t, "partial", updates[0].Reply)
	assert.True(t, apperr.Is(updates[1].Err, apperr.KindGeneration))
	assert.Contains(t, updates[1].Err.Error(), "connection reset")
}

func TestConverseRejectsBeforeSending(t *testing.T) {
	t.Run("invalid params", func(t *testing.T) {
		client := new(llm.MockClient)
		_, err := New(client, nil).Converse(context.Background(), "hi", nil, "", Params{Temperature: 2.5, MaxTokens: 4096})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

		_, err = New(client, nil).Converse(context.Background(), "hi", nil, "", Params{Temperature: 1, MaxTokens: 10})
		assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
		client.AssertNotCalled(t, "StreamChat", mock.Anything, mock.Anything)
	})

	t.Run("configuration error", func(t *testing.T) {
		client := new(llm.MockClient)
		client.On("StreamChat", mock.Anything, mock.Anything).
			Return(nil, apperr.Configuration("llm.stream", "missing key")).Once()
		_, err := New(client, nil).Converse(context.Background(), "hi", nil, "", DefaultParams())
		assert.True(t, apperr.Is(err, apperr.KindConfiguration))
	})
}

func collectSnapshots(ch <-chan Snapshot) []Snapshot {
	var out []Snapshot
	for s := range ch {
		out = append(out, s)
	}
	return out
}

func TestRespondSnapshots(t *testing.T) {
	client := new(llm.MockClient)
	client.On("StreamChat", mock.Anything, mock.Anything).
		Return(llm.NewFragmentStream(nil, "A", "B"), nil).Once()

	history := []Turn{NewTurn("earlier", "answer")}
	ch, err := New(client, nil).Respond(context.Background(), Request{
		Display: "question",
		Prompt:  "question",
		History: history,
		Params:  DefaultParams(),
	})
	require.NoError(t, err)

	snaps := collectSnapshots(ch)
	require.Len(t, snaps, 3)
	last := snaps[len(snaps)-1]
	assert.NoError(t, last.Err)
	assert.Equal(t, "AB", last.Reply)
	assert.Equal(t, []Turn{NewTurn("earlier", "answer"), NewTurn("question", "AB")}, last.Turns)
	assert.Equal(t, []Turn{NewTurn("earlier", "answer"), NewTurn("question", "A")}, snaps[0].Turns)

	// The caller's history is never modified.
	assert.Len(t, history, 1)
}

func TestRespondFailureEntry(t *testing.T) {
	client := new(llm.MockClient)
	client.On("StreamChat", mock.Anything, mock.Anything).
		Return(llm.NewFragmentStream(errors.New("401 Unauthorized"), "x"), nil).Once()

	history := []Turn{NewTurn("earlier", "answer")}
	ch, err := New(client, nil).Respond(context.Background(), Request{Display: "q", Prompt: "q", History: history, Params: DefaultParams()})
	require.NoError(t, err)

	snaps := collectSnapshots(ch)
	last := snaps[len(snaps)-1]
	require.Error(t, last.Err)
	require.Len(t, last.Turns, 2)
	assert.Nil(t, last.Turns[1].User)
	assert.Equal(t, "❌ 请求失败：401 Unauthorized", *last.Turns[1].Assistant)
}

func TestRespondEmptyReply(t *testing.T) {
	client := new(llm.MockClient)
	client.On("StreamChat", mock.Anything, mock.Anything).
		Return(llm.NewFragmentStream(nil), nil).Once()

	ch, err := New(client, nil).Respond(context.Background(), Request{Display: "q", Prompt: "q", Params: DefaultParams()})
	require.NoError(t, err)

	snaps := collectSnapshots(ch)
	require.Len(t, snaps, 1)
	assert.Equal(t, []Turn{NewTurn("q", "")}, snaps[0].Turns)
}

func TestRespondStopsWhenContextCancelled(t *testing.T) {
	client := new(llm.MockClient)
	stream := llm.NewFragmentStream(nil, "a", "b", "c")
	client.On("StreamChat", mock.Anything, mock.Anything).Return(stream, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := New(client, nil).Respond(ctx, Request{Prompt: "q", Params: DefaultParams()})
	require.NoError(t, err)

	<-ch
	cancel()
	for range ch {
	}
	assert.Eventually(t, stream.Closed, time.Second, 10*time.Millisecond)
}
