package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ChatView ViewState = iota
	BuildingView
	ResultView
)

const greeting = "Hi! How are you feeling today?"

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	engine       tasks.MoodEngine
	userKey      string
	view         ViewState
	width        int
	height       int
	input        textinput.Model
	transcript   viewport.Model
	spinner      spinner.Model
	trackList    list.Model
	lines        []string
	waiting      bool
	progressChan chan tasks.ProgressUpdate
	done         chan Msg
	progress     tasks.ProgressUpdate
	result       *models.PlaylistResult
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model chatting as userKey.
func NewModel(ctx context.Context, engine tasks.MoodEngine, userKey string) *Model {
	input := textinput.New()
	input.Placeholder = "Tell me about your day..."
	input.Prompt = "› "
	input.CharLimit = 500
	input.Focus()

	return &Model{
		ctx:        ctx,
		engine:     engine,
		userKey:    userKey,
		view:       ChatView,
		input:      input,
		transcript: viewport.New(80, 20),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		lines:      []string{botLine(greeting)},
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the cursor blinking.
func (m *Model) Init() tea.Cmd {
	m.refreshTranscript()
	return textinput.Blink
}

// Result returns the last playlist created in this session, if any.
func (m *Model) Result() *models.PlaylistResult {
	return m.result
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.view {
		case ChatView:
			return m.handleChatKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.progress = msg.data.(tasks.ProgressUpdate)
			m.view = BuildingView
			return m, waitForReply(m.progressChan, m.done)
		case MsgChatReply:
			return m.handleReply(msg.data.(chatReply))
		}
	}

	return m.updateComponents(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ChatView:
		return m.renderChat()
	case BuildingView:
		return m.renderBuilding()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.send):
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.waiting {
			return m, nil
		}
		m.input.Reset()
		m.appendLine(userLine(text))
		return m, m.send(text)
	case key.Matches(msg, m.keys.pageUp), key.Matches(msg, m.keys.pageDown):
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "ctrl+n", "enter":
		m.view = ChatView
		m.lines = []string{botLine(greeting)}
		m.progress = tasks.ProgressUpdate{}
		m.refreshTranscript()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleReply(reply chatReply) (tea.Model, tea.Cmd) {
	m.waiting = false
	m.progressChan = nil
	m.done = nil

	switch {
	case reply.err != nil:
		m.view = ChatView
		m.appendLine(errorLine(reply.err))
		return m, nil
	case reply.response.Status == tasks.StatusContinue:
		m.view = ChatView
		m.appendLine(botLine(reply.response.Reply))
		return m, nil
	}

	result := reply.response.Playlist
	if result == nil || !result.Success {
		m.view = ChatView
		msg := "I could not build a playlist this time."
		if result != nil && result.Message != "" {
			msg = result.Message
		}
		m.appendLine(styles.warn.Render(msg) + "\n" + botLine("Want to try again? Tell me how you feel."))
		return m, nil
	}

	m.result = result
	m.view = ResultView
	m.trackList = list.New(trackItems(result.Tracks), list.NewDefaultDelegate(), m.listWidth(), m.listHeight())
	m.trackList.Title = fmt.Sprintf("%s (%s)", result.Name, result.Mood)
	return m, nil
}

// send runs one turn in the background. Progress and the final reply are read back by waitForReply.
func (m *Model) send(text string) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.done = done
	m.waiting = true

	go func() {
		resp, err := m.engine.Chat(m.ctx, m.userKey, text, progress)
		close(progress)
		done <- chatReplyMsg(resp, err)
	}()

	return tea.Batch(m.spinner.Tick, waitForReply(progress, done))
}

func waitForReply(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ChatView:
		m.input, cmd = m.input.Update(msg)
	case ResultView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = max(width-4, 10)
	m.transcript.Width = width
	m.transcript.Height = max(height-6, 3)
	if m.view == ResultView {
		m.trackList.SetSize(m.listWidth(), m.listHeight())
	}
	m.refreshTranscript()
}

func (m *Model) listWidth() int  { return max(m.width-4, 20) }
func (m *Model) listHeight() int { return max(m.height-8, 10) }

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	wrap := lipgloss.NewStyle().Width(max(m.transcript.Width, 20))
	m.transcript.SetContent(wrap.Render(strings.Join(m.lines, "\n\n")))
	m.transcript.GotoBottom()
}

func (m *Model) renderChat() string {
	title := styles.title.Render("moodmix")
	status := ""
	if m.waiting {
		status = m.spinner.View() + " thinking..."
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.send, m.keys.pageUp, m.keys.pageDown, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", title, m.transcript.View(), status, m.input.View(), helpView)
}

func (m *Model) renderBuilding() string {
	title := styles.title.Render("Building your playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.ResolveTracks:
		phase = fmt.Sprintf("Finding tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CreatePlaylist:
		phase = "Creating playlist on Spotify..."
	case tasks.AddTracks:
		phase = "Adding tracks..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s", title, m.spinner.View(), phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	if m.result == nil {
		return styles.err.Render("No result available\n\nPress enter to start over, q to quit")
	}

	title := styles.ok.Render("✓ Playlist created!")
	info := fmt.Sprintf("\n%s\n%d of %d tracks • %s\n", m.result.Name, m.result.TrackCount, m.result.Requested, m.result.URL)

	helpKeys := []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "new conversation")),
		key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
	return fmt.Sprintf("%s%s\n%s\n\n%s", title, info, m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func userLine(text string) string {
	return styles.user.Render("you") + "  " + text
}

func botLine(text string) string {
	return styles.bot.Render("moodmix") + "  " + text
}

func errorLine(err error) string {
	if errors.Is(err, shared.ErrReauthRequired) {
		return styles.err.Render("Spotify authorization required. Run `moodmix auth` and try again.")
	}
	return styles.err.Render(fmt.Sprintf("Error: %v", err))
}
