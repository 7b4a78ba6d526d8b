package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"home-assistant/internal/models"
)

// TopicBrowserModel lists the example questions of every help category
type TopicBrowserModel struct {
	list   list.Model
	width  int
	height int
}

type exampleItem struct {
	category models.Category
	example  string
}

func (i exampleItem) Title() string { return i.example }
func (i exampleItem) Description() string {
	return i.category.Title + " · " + i.category.Description
}
func (i exampleItem) FilterValue() string { return i.category.Title + " " + i.example }

// ExampleSelected is sent when the user picks an example question
type ExampleSelected struct {
	Text string
}

// TopicBrowserClosed is sent when the browser is dismissed without a pick
type TopicBrowserClosed struct{}

func NewTopicBrowserModel(categories []models.Category, width, height int) TopicBrowserModel {
	var items []list.Item
	for _, c := range categories {
		for _, ex := range c.Examples {
			items = append(items, exampleItem{category: c, example: ex})
		}
	}

	l := list.New(items, CreateThemedDelegate(), browserWidth(width), browserHeight(height))
	l.Title = "What can I help with?"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	ConfigureListStyles(&l)

	// Only arrows, filter and enter
	l.KeyMap.CursorUp = key.NewBinding(key.WithKeys("up"))
	l.KeyMap.CursorDown = key.NewBinding(key.WithKeys("down"))
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("pgdown"))
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("pgup"))
	l.KeyMap.GoToStart = key.NewBinding()
	l.KeyMap.GoToEnd = key.NewBinding()
	l.KeyMap.Filter = key.NewBinding(key.WithKeys("/"))
	l.KeyMap.ClearFilter = key.NewBinding(key.WithKeys("esc"))
	l.KeyMap.CancelWhileFiltering = key.NewBinding(key.WithKeys("esc"))
	l.KeyMap.AcceptWhileFiltering = key.NewBinding(key.WithKeys("enter"))
	l.KeyMap.ShowFullHelp = key.NewBinding()
	l.KeyMap.CloseFullHelp = key.NewBinding()
	l.KeyMap.Quit = key.NewBinding()
	l.KeyMap.ForceQuit = key.NewBinding()

	return TopicBrowserModel{
		list:   l,
		width:  width,
		height: height,
	}
}

func browserWidth(width int) int {
	w := width * 2 / 3
	if w < 40 {
		w = 40
	}
	return w
}

func browserHeight(height int) int {
	h := height - 10
	if h < 8 {
		h = 8
	}
	return h
}

func (m TopicBrowserModel) Init() tea.Cmd {
	return nil
}

func (m TopicBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch msg.String() {
		case "enter":
			selectedItem := m.list.SelectedItem()
			if selectedItem == nil {
				return m, nil
			}
			text := selectedItem.(exampleItem).example
			return m, func() tea.Msg {
				return ExampleSelected{Text: text}
			}

		case "esc":
			if m.list.FilterState() == list.FilterApplied {
				m.list.ResetFilter()
				return m, nil
			}
			return m, func() tea.Msg {
				return TopicBrowserClosed{}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m TopicBrowserModel) View() string {
	helpText := "↑/↓: Navigate • Enter: Ask • /: Filter • Esc: Close"

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		HelpTextSimpleStyle.Render(helpText),
	)
	return GetTopicBrowserBorderStyle(browserWidth(m.width) + 4).Render(content)
}

func (m *TopicBrowserModel) setSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(browserWidth(width), browserHeight(height))
}

// TopicBrowserOverlayModel shows the topic browser on top of the chat view
type TopicBrowserOverlayModel struct {
	browser TopicBrowserModel
	visible bool
}

func NewTopicBrowserOverlayModel(categories []models.Category) TopicBrowserOverlayModel {
	return TopicBrowserOverlayModel{
		browser: NewTopicBrowserModel(categories, 80, 24),
	}
}

func (m *TopicBrowserOverlayModel) Show() {
	m.visible = true
}

func (m *TopicBrowserOverlayModel) Hide() {
	m.visible = false
	m.browser.list.ResetFilter()
}

func (m *TopicBrowserOverlayModel) IsVisible() bool {
	return m.visible
}

func (m *TopicBrowserOverlayModel) UpdateSize(width, height int) {
	m.browser.setSize(width, height)
}

func (m *TopicBrowserOverlayModel) UpdateBrowser(msg tea.Msg) tea.Cmd {
	if !m.visible {
		return nil
	}

	mdl, cmd := m.browser.Update(msg)
	m.browser = mdl.(TopicBrowserModel)
	return cmd
}

func (m TopicBrowserOverlayModel) RenderOverlay(backgroundView string) string {
	if !m.visible {
		return backgroundView
	}

	overlayModel := overlay.New(
		m.browser,
		&staticViewModel{content: backgroundView},
		overlay.Center,
		overlay.Top,
		0,
		1,
	)

	return overlayModel.View()
}

// staticViewModel renders fixed content as the overlay background
type staticViewModel struct {
	content string
}

func (m staticViewModel) Init() tea.Cmd {
	return nil
}

func (m staticViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m staticViewModel) View() string {
	return m.content
}
