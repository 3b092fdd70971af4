package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vrtutor/internal/domain"
)

// ExitWord ends the session when typed as a whole input line.
const ExitWord = "exit"

// ChatPort is the TUI-facing subset of the conversation manager.
type ChatPort interface {
	Turn(ctx context.Context, input string) (string, error)
	Transcript() []domain.Turn
}

type turnDoneMsg struct {
	query      string
	reply      string
	err        error
	transcript []domain.Turn
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	chat     ChatPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	pending  *sync.WaitGroup

	transcript []domain.Turn
	seedLen    int
	header     string
	status     string
	busy       bool
	ready      bool
}

// New creates a chat screen over chat. header is shown above the transcript.
func New(ctx context.Context, chat ChatPort, header string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the material and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	tr := chat.Transcript()
	return Model{
		ctx:        ctx,
		chat:       chat,
		input:      ti,
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		pending:    &sync.WaitGroup{},
		transcript: tr,
		seedLen:    len(tr),
		header:     header,
		status:     "Ready. Type exit or press Ctrl+C to quit.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and turn completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + ih + 1 + 1 // header, spacer, input box, status
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil
	case turnDoneMsg:
		m.busy = false
		m.transcript = msg.transcript
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Answered %q", msg.query)
		}
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.busy {
			// one turn at a time
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if q == ExitWord {
				return m, tea.Quit
			}
			if q == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.busy = true
			m.status = "Thinking..."
			m.transcript = append(m.transcript, domain.Turn{Role: domain.RoleUser, Content: q})
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.runTurn(q))
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) runTurn(q string) tea.Cmd {
	ctx, chat, pending := m.ctx, m.chat, m.pending
	pending.Add(1)
	return func() tea.Msg {
		defer pending.Done()
		reply, err := chat.Turn(ctx, q)
		return turnDoneMsg{query: q, reply: reply, err: err, transcript: chat.Transcript()}
	}
}

// Wait blocks until every turn started from this screen has returned. The
// program can quit while a turn is still running, so callers must Wait
// before touching the conversation again.
func (m Model) Wait() { m.pending.Wait() }

// View renders the header, the conversation, the input box and the status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("VR Material Tutor")
	sub := dimStyle.Render(m.header)
	body := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + sub + "\n" + body + "\n" + input + "\n" + status
}

// Transcript is the last transcript snapshot the screen rendered.
func (m Model) Transcript() []domain.Turn {
	return append([]domain.Turn(nil), m.transcript...)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.transcript) <= m.seedLen {
		return dimStyle.Render("No questions yet.")
	}
	turns := m.transcript[m.seedLen:]
	var b strings.Builder
	for i, t := range turns {
		switch t.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You: "))
			b.WriteString(t.Content)
		case domain.RoleAssistant:
			b.WriteString(tutorStyle.Render("Tutor: "))
			b.WriteString(t.Content)
		case domain.RoleSystem:
			b.WriteString(dimStyle.Render(renderKnowledge(t.Content, questionAfter(turns, i))))
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// questionAfter is the user input a knowledge turn was retrieved for: the
// user turn that directly follows it.
func questionAfter(turns []domain.Turn, i int) string {
	if i+1 < len(turns) && turns[i+1].Role == domain.RoleUser {
		return turns[i+1].Content
	}
	return ""
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	tutorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// renderKnowledge lists the "-" entries of an injected knowledge turn and
// highlights the one sharing the most words with query. Preamble lines are
// dropped; lines after the first entry that lack the "-" marker belong to the
// entry above them.
func renderKnowledge(content, query string) string {
	var entries []string
	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "-"):
			entries = append(entries, strings.TrimPrefix(line, "-"))
		case len(entries) > 0 && strings.TrimSpace(line) != "":
			entries[len(entries)-1] += " " + strings.TrimSpace(line)
		}
	}
	if len(entries) == 0 {
		return "(no matching knowledge)"
	}
	best := bestEntry(entries, query)
	for i, e := range entries {
		if i == best {
			entries[i] = "  * " + highlightStyle.Render(e)
		} else {
			entries[i] = "  * " + e
		}
	}
	return "Knowledge:\n" + strings.Join(entries, "\n")
}

func bestEntry(entries []string, query string) int {
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return -1
	}
	bestIdx, bestScore := -1, 0
	for i, e := range entries {
		if score := tokenOverlapScore(qTokens, e); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
