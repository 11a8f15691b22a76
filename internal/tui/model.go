package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// ---------- messages sent from the tutoring goroutine via program.Send() ----------

type readInputMsg struct{}

type inputResult struct {
	text string
	err  error
}

type userMsg struct{ text string }
type thinkingStartMsg struct{}
type assistantMsg struct{ text string }
type systemMsg struct{ text string }
type errorMsg struct{ text string }
type sessionMsg struct{ title string }
type tokensMsg struct{ n int }
type loopDoneMsg struct{ err error }

// ---------- styles ----------

var (
	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // gray spinner
)

// ---------- Model ----------

const statusBarHeight = 1
const inputHeight = 1

// Model is the bubbletea model managing the full TUI state.
type Model struct {
	viewport  viewport.Model
	textinput textinput.Model
	spinner   spinner.Model
	width     int
	height    int

	content   strings.Builder // accumulated transcript
	thinking  bool            // a request is in flight
	inputMode bool            // text input is active (waiting for user)

	inputCh chan inputResult // send user input back to ReadInput()

	cancelLoopFn func() bool // cancels the in-flight turn on quit

	quitting bool

	// status bar
	sessionTitle string
	tokens       int
}

// NewModel creates the initial bubbletea model.
func NewModel(inputCh chan inputResult) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 4096

	vp := viewport.New(80, 24)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		viewport:  vp,
		textinput: ti,
		spinner:   sp,
		inputCh:   inputCh,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - statusBarHeight - inputHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
		m.textinput.Width = m.width - 4 // account for prompt
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.thinking {
			m.viewport.SetContent(m.renderContent())
			m.viewport.GotoBottom()
		}
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.cancelLoopFn != nil {
				m.cancelLoopFn()
			}
			// Release the reader whether or not it is currently waiting:
			// the tutoring goroutine may reach ReadInput only after the
			// program has exited.
			select {
			case m.inputCh <- inputResult{err: fmt.Errorf("interrupted")}:
			default:
			}
			m.inputMode = false
			m.textinput.Blur()
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if m.inputMode {
				text := strings.TrimSpace(m.textinput.Value())
				m.textinput.SetValue("")
				m.inputCh <- inputResult{text: text}
				m.inputMode = false
				m.textinput.Blur()
			}
			return m, nil
		}

		if m.inputMode {
			var cmd tea.Cmd
			m.textinput, cmd = m.textinput.Update(msg)
			cmds = append(cmds, cmd)
		}

	// ---------- custom messages from the tutoring goroutine ----------

	case readInputMsg:
		m.inputMode = true
		m.textinput.Focus()
		cmds = append(cmds, textinput.Blink)

	case userMsg:
		m.appendLine(userStyle.Render("You: " + msg.text))

	case thinkingStartMsg:
		m.thinking = true

	case assistantMsg:
		m.thinking = false
		m.appendLine(m.renderMarkdown(msg.text))

	case systemMsg:
		m.appendLine(systemStyle.Render(msg.text))

	case errorMsg:
		m.thinking = false
		m.appendLine(errorStyle.Render("Error: " + msg.text))

	case sessionMsg:
		m.sessionTitle = msg.title

	case tokensMsg:
		m.tokens = msg.n

	case loopDoneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	// Update viewport
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoBottom()

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	// Status bar
	status := " " + m.sessionTitle
	if m.tokens > 0 {
		status += fmt.Sprintf(" | tokens: %d", m.tokens)
	}
	bar := statusBarStyle.Width(m.width).Render(status)

	// Input line
	var input string
	if m.inputMode {
		input = m.textinput.View()
	}

	return m.viewport.View() + "\n" + bar + "\n" + input
}

// renderContent returns the viewport content, appending the spinner line
// while a request is in flight.
func (m *Model) renderContent() string {
	base := m.content.String()
	if m.thinking {
		return base + "\n" + m.spinner.View() + " Thinking..."
	}
	return base
}

// renderMarkdown renders an assistant reply with glamour, falling back to the
// raw text when rendering fails.
func (m *Model) renderMarkdown(text string) string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

func (m *Model) appendLine(text string) {
	m.content.WriteString(text)
	m.content.WriteString("\n")
}
