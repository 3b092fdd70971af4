package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrtutor/internal/domain"
)

type stubChat struct {
	turns []domain.Turn
	err   error
	asked []string
}

func (s *stubChat) Turn(_ context.Context, input string) (string, error) {
	s.asked = append(s.asked, input)
	s.turns = append(s.turns, domain.Turn{Role: domain.RoleSystem, Content: "Knowledge:\n-Steel is an alloy of iron.\n-Glass is brittle.\n"})
	s.turns = append(s.turns, domain.Turn{Role: domain.RoleUser, Content: input})
	if s.err != nil {
		return "", s.err
	}
	s.turns = append(s.turns, domain.Turn{Role: domain.RoleAssistant, Content: "It is mostly iron."})
	return "It is mostly iron.", nil
}

func (s *stubChat) Transcript() []domain.Turn { return append([]domain.Turn(nil), s.turns...) }

type slowChat struct {
	stubChat
	release  chan struct{}
	finished bool
}

func (s *slowChat) Turn(ctx context.Context, input string) (string, error) {
	<-s.release
	defer func() { s.finished = true }()
	return s.stubChat.Turn(ctx, input)
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func enter(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestView_LoadingUntilSized(t *testing.T) {
	m := New(context.Background(), &stubChat{}, "steel, 200 MPa")
	assert.Equal(t, "Loading...", m.View())
	assert.Contains(t, sized(t, m).View(), "No questions yet.")
}

func TestEnter_RunsTurnAndRendersReply(t *testing.T) {
	chat := &stubChat{turns: []domain.Turn{{Role: domain.RoleSystem, Content: "seed"}}}
	m := sized(t, New(context.Background(), chat, ""))

	m, cmd := enter(t, m, "What is steel made of?")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	done := m.runTurn("What is steel made of?")()
	next, _ := m.Update(done)
	m = next.(Model)

	assert.False(t, m.busy)
	assert.Equal(t, []string{"What is steel made of?"}, chat.asked)
	assert.Len(t, m.Transcript(), 4)
	view := m.renderConversation()
	assert.Contains(t, view, "It is mostly iron.")
	assert.Contains(t, view, "Glass is brittle.")
	assert.NotContains(t, view, "seed")
}

func TestEnter_IgnoredWhileBusy(t *testing.T) {
	chat := &stubChat{}
	m := sized(t, New(context.Background(), chat, ""))
	m, _ = enter(t, m, "first")

	m, cmd := enter(t, m, "second")

	assert.Nil(t, cmd)
	assert.Equal(t, "second", m.input.Value())
}

func TestEnter_BlankDoesNothing(t *testing.T) {
	m := sized(t, New(context.Background(), &stubChat{}, ""))
	m, cmd := enter(t, m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.busy)
}

func TestExitWordQuits(t *testing.T) {
	m := sized(t, New(context.Background(), &stubChat{}, ""))
	_, cmd := enter(t, m, "exit")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestTurnErrorShownInStatus(t *testing.T) {
	chat := &stubChat{err: errors.New("model not loaded")}
	m := sized(t, New(context.Background(), chat, ""))
	m, _ = enter(t, m, "hi")

	next, _ := m.Update(m.runTurn("hi")())
	m = next.(Model)

	assert.True(t, strings.HasPrefix(m.status, "Error: "))
	assert.Contains(t, m.status, "model not loaded")
	assert.Len(t, m.Transcript(), 2)
}

func TestRenderKnowledge(t *testing.T) {
	out := renderKnowledge("Preamble\nKnowledge:\n-Steel is an alloy.\n-Glass is brittle.\n", "is glass brittle")
	assert.Contains(t, out, "Steel is an alloy.")
	assert.Contains(t, out, "Glass is brittle.")
	assert.NotContains(t, out, "Preamble")

	assert.Equal(t, "(no matching knowledge)", renderKnowledge("Knowledge:\n", "x"))
}

func TestBestEntry(t *testing.T) {
	entries := []string{"Steel is an alloy.", "Glass is brittle and transparent."}
	assert.Equal(t, 1, bestEntry(entries, "why is glass brittle"))
	assert.Equal(t, -1, bestEntry(entries, ""))
	assert.Equal(t, -1, bestEntry(entries, "copper"))
}

func TestQuitWhileBusyWaitsForTurn(t *testing.T) {
	chat := &slowChat{release: make(chan struct{})}
	p := tea.NewProgram(New(context.Background(), chat, ""), tea.WithInput(nil), tea.WithoutRenderer())

	type result struct {
		model tea.Model
		err   error
	}
	ran := make(chan result, 1)
	go func() {
		final, err := p.Run()
		ran <- result{final, err}
	}()
	p.Send(tea.WindowSizeMsg{Width: 80, Height: 30})
	p.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("What is steel?")})
	p.Send(tea.KeyMsg{Type: tea.KeyEnter})
	p.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

	var res result
	select {
	case res = <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("program did not quit")
	}
	require.NoError(t, res.err)
	final := res.model.(Model)

	waited := make(chan struct{})
	go func() {
		final.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatal("Wait returned while the turn was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(chat.release)
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after the turn finished")
	}
	assert.True(t, chat.finished)
	assert.Equal(t, []string{"What is steel?"}, chat.asked)
	assert.Len(t, chat.Transcript(), 3)
}

func TestQuestionAfterPairsKnowledgeWithItsInput(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleSystem, Content: "Knowledge:\n-Glass is brittle.\n-Steel is an alloy.\n"},
		{Role: domain.RoleUser, Content: "why is glass brittle"},
		{Role: domain.RoleAssistant, Content: "Because."},
		{Role: domain.RoleSystem, Content: "Knowledge:\n-Glass is brittle.\n-Steel is an alloy.\n"},
		{Role: domain.RoleUser, Content: "what alloy is steel"},
	}

	assert.Equal(t, "why is glass brittle", questionAfter(turns, 0))
	assert.Equal(t, "what alloy is steel", questionAfter(turns, 3))
	assert.Equal(t, "", questionAfter(turns, 4))
	assert.Equal(t, "", questionAfter(turns, 1))
}

func TestRenderKnowledge_JoinsContinuationLines(t *testing.T) {
	out := renderKnowledge("Preamble line\nKnowledge:\n-Yield strength is where\nplastic deformation begins.\n-Glass is brittle.\n", "")
	assert.Equal(t, "Knowledge:\n  * Yield strength is where plastic deformation begins.\n  * Glass is brittle.", out)
}
