package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"retailbot/internal/conversation"
	"retailbot/internal/textutil"
)

// ChatPort is the TUI-facing subset of the conversation controller.
type ChatPort interface {
	HandleMessage(ctx context.Context, message string, s *conversation.Session) (string, *conversation.Session)
}

type turn struct {
	fromUser bool
	text     string
}

// replyMsg carries the controller's answer back into the update loop.
type replyMsg struct {
	question string
	reply    string
	session  *conversation.Session
}

// Model is the Bubble Tea model for the terminal chat.
type Model struct {
	ctx        context.Context
	chat       ChatPort
	session    *conversation.Session
	botName    string
	input      textinput.Model
	viewport   viewport.Model
	transcript []turn
	status     string
	busy       bool
	ready      bool
}

// New creates a chat model. The welcome text is requested on Init.
func New(ctx context.Context, chat ChatPort, botName string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Escribe tu mensaje y presiona Enter"
	ti.Focus()
	ti.CharLimit = 500
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		chat:     chat,
		session:  conversation.NewSession(),
		botName:  botName,
		input:    ti,
		viewport: vp,
		status:   "Conectando...",
		busy:     true,
	}
}

// Init starts the cursor blink and asks for the welcome message.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.send(""))
}

// send runs one turn off the update loop on a copy of the session.
func (m Model) send(message string) tea.Cmd {
	s := *m.session
	return func() tea.Msg {
		reply, next := m.chat.HandleMessage(m.ctx, message, &s)
		return replyMsg{question: message, reply: reply, session: next}
	}
}

// Update handles key, window and reply events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case replyMsg:
		m.busy = false
		m.session = msg.session
		m.transcript = append(m.transcript, turn{text: highlightBestSentence(msg.reply, msg.question)})
		m.status = m.statusLine()
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			m.transcript = append(m.transcript, turn{fromUser: true, text: text})
			m.busy = true
			m.status = "Pensando..."
			m.refresh()
			return m, m.send(text)
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) statusLine() string {
	st := conversation.StatusOf(m.session)
	line := st.StateName
	if st.CurrentUser != nil {
		line += "  ·  👋 " + st.CurrentUser.FullName
	}
	return line
}

// View renders the header, transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Cargando..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("🛒 " + m.botName)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return ""
	}
	width := m.viewport.Width
	parts := make([]string, 0, len(m.transcript))
	for _, t := range m.transcript {
		if t.fromUser {
			parts = append(parts, userStyle.Width(width).Render("Tú: "+t.text))
			continue
		}
		parts = append(parts, botStyle.Width(width).Render("🤖 "+t.text))
	}
	return strings.Join(parts, "\n\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	botStyle           = lipgloss.NewStyle()
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// highlightBestSentence emphasises the sentence of reply that shares the most
// words with question. Replies to the empty welcome turn are left alone.
func highlightBestSentence(reply, question string) string {
	qTokens := textutil.TokenSet(strings.Join(textutil.ContentWords(question, 2), " "))
	if len(qTokens) == 0 || strings.TrimSpace(reply) == "" {
		return reply
	}
	sentences := textutil.Sentences(reply)
	if len(sentences) < 2 {
		return reply
	}
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return reply
	}
	best := sentences[bestIdx]
	return strings.Replace(reply, best, highlightStyle.Render(best), 1)
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range textutil.TokenSet(sentence) {
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
