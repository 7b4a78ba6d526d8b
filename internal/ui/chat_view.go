package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"home-assistant/internal/chat"
	"home-assistant/internal/logging"
	"home-assistant/internal/models"
	"home-assistant/internal/transcript"
	"home-assistant/internal/voice"
)

const (
	titleHeight    = 4
	textareaHeight = 5
	footerHeight   = 4
	bannerHeight   = 2
	padding        = 2

	inputPlaceholder     = "Ask me anything about your home..."
	listeningPlaceholder = "Listening... speak now!"
	setupMessage         = "Add your Groq API key to ~/.home-assistant/config.yaml (api_key) or export GROQ_API_KEY, then restart."
)

// ViewOptions carries the read-only facts shown in the status bar.
type ViewOptions struct {
	Model             string
	KeyMasked         string
	CredentialMissing bool
}

type ChatViewModel struct {
	session     *chat.Session
	listener    *voice.Listener
	events      <-chan transcript.Event
	unsubscribe func()
	viewport    viewport.Model
	textarea    textarea.Model
	spinner     spinner.Model
	topics      TopicBrowserOverlayModel
	opts        ViewOptions
	width       int
	height      int
	submitting  bool
	notice      string
	noticeIsErr bool
	ctx         context.Context
	cancelFunc  context.CancelFunc
}

// TranscriptChanged is sent for every transcript store event.
type TranscriptChanged struct {
	Kind transcript.EventKind
}

// SubmitFinished is sent when a Submit call returns.
type SubmitFinished struct {
	Err error
}

// VoiceEventMsg carries one capability event plus the channel to keep reading.
type VoiceEventMsg struct {
	Event  voice.Event
	Events <-chan voice.Event
}

func NewChatViewModel(session *chat.Session, listener *voice.Listener, opts ViewOptions, width, height int) ChatViewModel {
	ta := textarea.New()
	ta.Placeholder = inputPlaceholder
	ta.Focus()
	ta.CharLimit = 2000
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	// Enter submits, so no newlines and no line navigation
	ta.KeyMap.CharacterForward = key.NewBinding(key.WithKeys("right"))
	ta.KeyMap.CharacterBackward = key.NewBinding(key.WithKeys("left"))
	ta.KeyMap.LineStart = key.NewBinding(key.WithKeys("home"))
	ta.KeyMap.LineEnd = key.NewBinding(key.WithKeys("end"))
	ta.KeyMap.DeleteCharacterBackward = key.NewBinding(key.WithKeys("backspace"))
	ta.KeyMap.DeleteCharacterForward = key.NewBinding(key.WithKeys("delete"))
	ta.KeyMap.LineNext = key.NewBinding()
	ta.KeyMap.LinePrevious = key.NewBinding()
	ta.KeyMap.WordForward = key.NewBinding()
	ta.KeyMap.WordBackward = key.NewBinding()
	ta.KeyMap.DeleteWordBackward = key.NewBinding()
	ta.KeyMap.DeleteWordForward = key.NewBinding()
	ta.KeyMap.DeleteAfterCursor = key.NewBinding()
	ta.KeyMap.DeleteBeforeCursor = key.NewBinding()
	ta.KeyMap.InsertNewline = key.NewBinding()

	vp := viewport.New(width-6, viewportHeight(height, opts.CredentialMissing))
	vp.MouseWheelDelta = 2

	vp.KeyMap.Down = key.NewBinding(key.WithKeys("down"))
	vp.KeyMap.Up = key.NewBinding(key.WithKeys("up"))
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	vp.KeyMap.PageUp = key.NewBinding(key.WithKeys("pgup"))
	vp.KeyMap.HalfPageDown = key.NewBinding()
	vp.KeyMap.HalfPageUp = key.NewBinding()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	topics := NewTopicBrowserOverlayModel(models.Categories)
	topics.UpdateSize(width, height)

	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe := session.Store().Subscribe()

	m := ChatViewModel{
		session:     session,
		listener:    listener,
		events:      events,
		unsubscribe: unsubscribe,
		viewport:    vp,
		textarea:    ta,
		spinner:     sp,
		topics:      topics,
		opts:        opts,
		width:       width,
		height:      height,
		ctx:         ctx,
		cancelFunc:  cancel,
	}
	m.renderMessages()
	return m
}

func viewportHeight(height int, withBanner bool) int {
	h := height - titleHeight - textareaHeight - footerHeight - padding
	if withBanner {
		h -= bannerHeight
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m ChatViewModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		waitForTranscriptEvent(m.events),
	)
}

func (m ChatViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case ExampleSelected:
		m.textarea.SetValue(msg.Text)
		m.topics.Hide()
		m.textarea.Focus()
		return m, nil

	case TopicBrowserClosed:
		m.topics.Hide()
		m.textarea.Focus()
		return m, nil
	}

	// The overlay takes the keyboard while open; everything else still flows
	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.topics.IsVisible() {
		if keyMsg.String() == "ctrl+c" {
			cmd := m.quit()
			return m, cmd
		}
		cmd := m.topics.UpdateBrowser(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 6
		m.viewport.Height = viewportHeight(msg.Height, m.opts.CredentialMissing)
		m.textarea.SetWidth(msg.Width - 4)
		m.topics.UpdateSize(msg.Width, msg.Height)
		m.renderMessages()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+x":
			cmd := m.quit()
			return m, cmd

		case "esc":
			if m.session.Pending() {
				m.session.Cancel()
				return m, nil
			}
			if m.listener.Listening() {
				if err := m.listener.Stop(); err != nil {
					logging.Warn("Failed to stop voice capture: %v", err)
				}
			}
			return m, nil

		case "ctrl+t":
			if !m.busy() {
				m.topics.Show()
				m.textarea.Blur()
			}
			return m, nil

		case "ctrl+v":
			cmd := m.toggleVoice()
			return m, cmd

		case "ctrl+l":
			if err := m.session.Reset(); err != nil {
				m.setNotice("Can't clear the conversation while a response is in progress.", true)
				return m, nil
			}
			m.clearNotice()
			return m, nil

		case "enter":
			cmd := m.submit()
			return m, cmd
		}

	case TranscriptChanged:
		m.renderMessages()
		m.viewport.GotoBottom()
		return m, waitForTranscriptEvent(m.events)

	case SubmitFinished:
		m.submitting = false
		m.handleSubmitResult(msg.Err)
		return m, nil

	case VoiceEventMsg:
		text, err := m.listener.Handle(msg.Event)
		if text != "" {
			m.textarea.SetValue(text)
			m.clearNotice()
		}
		if err != nil {
			m.setNotice(err.Error(), true)
		}
		m.syncPlaceholder()
		if msg.Events == nil {
			return m, nil
		}
		return m, waitForVoiceEvent(msg.Events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.session.Pending() {
			m.renderMessages()
		}
		return m, cmd
	}

	if !m.busy() && !m.listener.Listening() {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// busy reports a request that was handed to the session and has not finished.
func (m ChatViewModel) busy() bool {
	return m.submitting || m.session.Pending()
}

func (m *ChatViewModel) submit() tea.Cmd {
	if m.submitting {
		return nil
	}

	text := m.textarea.Value()
	switch err := m.session.Check(text); {
	case err == nil:
	case errors.Is(err, chat.ErrEmptyInput), errors.Is(err, chat.ErrBusy):
		return nil
	default:
		var configErr *chat.ConfigurationError
		if errors.As(err, &configErr) {
			m.setNotice("Can't send yet: API key required.", true)
		} else {
			m.setNotice(err.Error(), true)
		}
		return nil
	}

	m.textarea.Reset()
	m.submitting = true
	m.clearNotice()

	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return SubmitFinished{Err: session.Submit(ctx, text)}
	}
}

func (m *ChatViewModel) handleSubmitResult(err error) {
	var transportErr *chat.TransportError
	var configErr *chat.ConfigurationError

	switch {
	case err == nil:
		m.clearNotice()
	case errors.Is(err, context.Canceled):
		m.setNotice("Response stopped.", false)
	case errors.As(err, &transportErr):
		// Already in the transcript as an assistant message
		logging.Debug("Submit finished with transport error: %v", err)
	case errors.As(err, &configErr):
		m.setNotice("Can't send yet: API key required.", true)
	default:
		m.setNotice(err.Error(), true)
	}
}

func (m *ChatViewModel) toggleVoice() tea.Cmd {
	if !m.listener.Available() {
		m.setNotice("Voice input not supported: set voice.command in the config file.", true)
		return nil
	}
	if m.busy() {
		return nil
	}

	if m.listener.Listening() {
		if err := m.listener.Stop(); err != nil {
			logging.Warn("Failed to stop voice capture: %v", err)
		}
		return nil
	}

	events, err := m.listener.Start(m.ctx)
	if err != nil {
		m.setNotice(err.Error(), true)
		return nil
	}
	m.clearNotice()
	return waitForVoiceEvent(events)
}

func (m *ChatViewModel) syncPlaceholder() {
	if m.listener.Listening() {
		m.textarea.Placeholder = listeningPlaceholder
		return
	}
	m.textarea.Placeholder = inputPlaceholder
}

func (m *ChatViewModel) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeIsErr = isErr
}

func (m *ChatViewModel) clearNotice() {
	m.notice = ""
	m.noticeIsErr = false
}

func (m *ChatViewModel) quit() tea.Cmd {
	m.session.Cancel()
	if err := m.listener.Stop(); err != nil {
		logging.Warn("Failed to stop voice capture: %v", err)
	}
	m.cancelFunc()
	m.unsubscribe()
	return tea.Quit
}

func (m ChatViewModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("🏠 Home Assistant AI") + "\n")
	b.WriteString(SubtitleStyle.Render("Your smart helper for repairs, maintenance, and life hacks") + "\n")
	b.WriteString(statusBarStyle.Render(m.statusLine()) + "\n\n")

	if m.opts.CredentialMissing {
		b.WriteString(SetupBannerStyle.Render("API key required. "+setupMessage) + "\n\n")
	}

	b.WriteString(RenderViewportWithBorder(m.viewport.View()))
	b.WriteString("\n")

	if scrollInfo := m.renderScrollIndicator(); scrollInfo != "" {
		b.WriteString(scrollInfo)
	}
	b.WriteString("\n")

	switch {
	case m.listener.Listening():
		b.WriteString(ListeningStyle.Render("● Listening... speak now!"))
	case m.notice != "":
		if m.noticeIsErr {
			b.WriteString(RenderError(m.notice))
		} else {
			b.WriteString(HelpTextSimpleStyle.Render("  " + m.notice))
		}
	}
	b.WriteString("\n")

	b.WriteString(m.textarea.View() + "\n")
	b.WriteString(SafetyTipStyle.Render(models.SafetyTip) + "\n")

	helpText := "Enter: Send • Esc: Stop • Ctrl+T: Topics • Ctrl+V: Voice • Ctrl+L: Clear • ↑/↓: Scroll • Ctrl+X: Exit"
	b.WriteString(helpStyle.Render(helpText))

	return m.topics.RenderOverlay(b.String())
}

func (m ChatViewModel) statusLine() string {
	voiceStatus := "off"
	if m.listener.Available() {
		voiceStatus = "ready"
	}
	line := fmt.Sprintf("Model: %s | Key: %s | Voice: %s", m.opts.Model, m.opts.KeyMasked, voiceStatus)

	switch m.session.State() {
	case chat.StateSending:
		line += " | " + m.spinner.View() + " Thinking..."
	case chat.StateStreaming:
		line += " | " + m.spinner.View() + " Responding..."
	}
	return line
}

func (m *ChatViewModel) renderMessages() {
	messages := m.session.Store().Messages()
	if len(messages) == 0 {
		m.viewport.SetContent(m.renderWelcome())
		return
	}

	var b strings.Builder
	for _, msg := range messages {
		timestamp := GetTimestampStyle(m.width).Render(msg.Timestamp.Format("15:04"))

		if msg.Role == models.RoleUser {
			label := UserMessageLabelStyle.Render("You:")
			b.WriteString(GetUserMessageContentStyle(m.width).Render(label + "\n" + msg.Content))
		} else {
			label := AssistantMessageLabelStyle.Render("Assistant:")
			content := msg.Content
			if content == "" {
				content = m.spinner.View() + " Thinking..."
			}
			b.WriteString(GetAssistantMessageContentStyle(m.width).Render(label + "\n" + content))
		}
		b.WriteString("\n" + timestamp + "\n\n")
	}

	m.viewport.SetContent(b.String())
}

func (m ChatViewModel) renderWelcome() string {
	var b strings.Builder
	b.WriteString(AssistantMessageLabelStyle.Render("Welcome! How can I help around the house today?") + "\n\n")
	for _, c := range models.Categories {
		b.WriteString(CategoryNameStyle.Render(c.Title) + "  " + HelpTextSimpleStyle.Render(c.Description) + "\n")
	}
	b.WriteString("\n" + HelpTextSimpleStyle.Render("Press Ctrl+T to browse example questions, or just type below."))
	return GetAssistantMessageContentStyle(m.width).Render(b.String())
}

func (m ChatViewModel) renderScrollIndicator() string {
	if m.viewport.TotalLineCount() <= m.viewport.Height {
		return ""
	}

	scrollPercent := int(m.viewport.ScrollPercent() * 100)
	indicator := fmt.Sprintf("Scroll: %d%% ↕", scrollPercent)

	return ScrollIndicatorStyle.Render(indicator)
}

// waitForTranscriptEvent blocks on the store subscription. A closed channel
// ends the loop.
func waitForTranscriptEvent(events <-chan transcript.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return TranscriptChanged{Kind: ev.Kind}
	}
}

func waitForVoiceEvent(events <-chan voice.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			// Make sure the indicator goes off even without an Ended event
			return VoiceEventMsg{Event: voice.Event{Kind: voice.EventEnded}}
		}
		return VoiceEventMsg{Event: ev, Events: events}
	}
}
