// Package tui is the full-screen terminal chat.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/pkg/chat"
)

const sidebarWidth = 44

// answerMsg carries a finished question back into the update loop.
type answerMsg struct {
	reply  models.ChatMessage
	result models.AnswerResult
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	session  *chat.Session
	input    textinput.Model
	viewport viewport.Model
	samples  []string
	cursor   int
	status   string
	busy     bool
	ready    bool
	width    int
}

func New(ctx context.Context, session *chat.Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the Prophet's life..."
	ti.Focus()
	ti.CharLimit = 500

	return Model{
		ctx:      ctx,
		session:  session,
		input:    ti,
		viewport: viewport.New(0, 0),
		samples:  chat.SampleQuestions(),
		status:   "enter ask · ctrl+n/ctrl+p choose sample · ctrl+s ask sample · ctrl+r reset · ctrl+c quit",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, fh := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-sidebarWidth-4)
		m.viewport.Height = max(3, msg.Height-fh-ih-3)
		m.input.Width = m.viewport.Width - 4
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.result.Failed() {
			m.status = "Error: " + msg.result.Err.Error()
		} else if s := chat.Suggestions(msg.result.Question); len(s) > 0 {
			m.status = "Try next: " + s[0]
		} else {
			m.status = fmt.Sprintf("Answered from %d page(s)", len(msg.result.Pages))
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyCtrlN:
			m.cursor = (m.cursor + 1) % len(m.samples)
			return m, nil
		case tea.KeyCtrlP:
			m.cursor = (m.cursor - 1 + len(m.samples)) % len(m.samples)
			return m, nil
		case tea.KeyCtrlS:
			if m.busy {
				return m, nil
			}
			if _, err := m.session.QueuePreset(m.cursor); err != nil {
				m.status = "Error: " + err.Error()
				return m, nil
			}
			return m.start(m.askPending())
		case tea.KeyCtrlR:
			if m.busy {
				return m, nil
			}
			m.session.Reset()
			m.status = "Conversation cleared"
			m.refresh()
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			return m.start(m.ask(q))
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// start marks the model busy and runs cmd.
func (m Model) start(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status = "🔍 Searching through the biography..."
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		reply, result := m.session.Ask(m.ctx, question)
		return answerMsg{reply: reply, result: result}
	}
}

func (m Model) askPending() tea.Cmd {
	return func() tea.Msg {
		reply, result, _ := m.session.ProcessPending(m.ctx)
		return answerMsg{reply: reply, result: result}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderHistory(m.session.History(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := titleStyle.Render("📖 Seerah · life of the Prophet from Martin Lings' biography")
	main := lipgloss.JoinVertical(lipgloss.Left,
		chatBoxStyle.Render(m.viewport.View()),
		inputBoxStyle.Width(m.viewport.Width).Render(m.input.View()),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, main, m.sidebar())
	return header + "\n" + body + "\n" + statusStyle.Render(m.status)
}

func (m Model) sidebar() string {
	var b strings.Builder
	b.WriteString(sidebarTitleStyle.Render("📝 Sample Questions") + "\n\n")
	for i, q := range m.samples {
		line := fmt.Sprintf("%2d. %s", i+1, q)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString(sampleStyle.Render("  "+line) + "\n")
		}
	}
	return sidebarStyle.Width(sidebarWidth - 2).Render(b.String())
}

func renderHistory(history []models.ChatMessage, width int) string {
	wrap := lipgloss.NewStyle().Width(max(10, width-2))

	var parts []string
	for _, msg := range history {
		label := userStyle.Render("👤 You")
		if msg.Role == models.RoleAssistant {
			label = assistantStyle.Render("🤖 Assistant")
		}
		parts = append(parts, label+"\n"+wrap.Render(msg.Content))
	}
	return strings.Join(parts, "\n\n")
}

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chatBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sidebarStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sidebarTitleStyle = lipgloss.NewStyle().Bold(true)
	sampleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	userStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	assistantStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
