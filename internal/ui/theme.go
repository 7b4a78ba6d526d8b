package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	tint "github.com/lrstanley/bubbletint"
)

// Theme registry for the application
var Theme *tint.Registry

var (
	TitleStyle                   lipgloss.Style
	SubtitleStyle                lipgloss.Style
	ErrorMessageStyle            lipgloss.Style
	statusBarStyle               lipgloss.Style
	helpStyle                    lipgloss.Style
	HelpTextSimpleStyle          lipgloss.Style
	UserMessageLabelStyle        lipgloss.Style
	AssistantMessageLabelStyle   lipgloss.Style
	UserMessageContentStyle      lipgloss.Style
	AssistantMessageContentStyle lipgloss.Style
	TimestampStyle               lipgloss.Style
	SpinnerStyle                 lipgloss.Style
	ViewportBorderStyle          lipgloss.Style
	ScrollIndicatorStyle         lipgloss.Style

	// Banners above the input box
	SetupBannerStyle  lipgloss.Style
	SafetyTipStyle    lipgloss.Style
	ListeningStyle    lipgloss.Style
	VoiceOffStyle     lipgloss.Style
	CategoryNameStyle lipgloss.Style

	// Topic browser overlay
	TopicBrowserBorderStyle lipgloss.Style
)

func init() {
	tint.NewDefaultRegistry()
	tint.SetTint(tint.TintChalk)
	Theme = tint.DefaultRegistry

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(tint.Purple())

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Italic(true)

	ErrorMessageStyle = lipgloss.NewStyle().
		Foreground(tint.Red())

	statusBarStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(1, 0, 0, 1)

	HelpTextSimpleStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	UserMessageLabelStyle = lipgloss.NewStyle().
		Foreground(tint.White()).
		Bold(true)

	AssistantMessageLabelStyle = lipgloss.NewStyle().
		Foreground(tint.Purple()).
		Bold(true)

	UserMessageContentStyle = lipgloss.NewStyle().
		Foreground(tint.Fg()).
		Padding(0, 1).
		MarginBottom(1)

	AssistantMessageContentStyle = lipgloss.NewStyle().
		Foreground(tint.Fg()).
		Padding(0, 1).
		MarginBottom(1)

	TimestampStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(tint.Purple())

	ViewportBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tint.White()).
		Padding(0, 1)

	ScrollIndicatorStyle = lipgloss.NewStyle().
		Foreground(tint.White())

	SetupBannerStyle = lipgloss.NewStyle().
		Foreground(tint.Yellow()).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(tint.Yellow()).
		Padding(0, 1)

	SafetyTipStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 1)

	ListeningStyle = lipgloss.NewStyle().
		Foreground(tint.Red()).
		Bold(true)

	VoiceOffStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	CategoryNameStyle = lipgloss.NewStyle().
		Foreground(tint.Yellow()).
		Bold(true)

	TopicBrowserBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tint.Yellow()).
		Padding(1, 2)
}

// ConfigureListStyles configures all list styles to match the application theme
func ConfigureListStyles(l *list.Model) {
	l.Styles.Title = TitleStyle
	l.Styles.TitleBar = lipgloss.NewStyle().
		Padding(0, 0, 1, 0)

	l.Styles.PaginationStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	l.Styles.HelpStyle = helpStyle

	l.Styles.FilterPrompt = lipgloss.NewStyle().
		Foreground(tint.Yellow())
	l.Styles.FilterCursor = lipgloss.NewStyle().
		Foreground(tint.Purple())

	l.Styles.StatusBar = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 1, 0)

	l.Styles.DividerDot = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		SetString(" • ")
}

// CreateThemedDelegate creates a themed list delegate with application colors
func CreateThemedDelegate() list.DefaultDelegate {
	d := list.NewDefaultDelegate()

	d.Styles.SelectedTitle = lipgloss.NewStyle().
		Foreground(tint.Purple()).
		Bold(true).
		BorderLeft(true).
		BorderForeground(tint.Purple()).
		Padding(0, 0, 0, 1)

	d.Styles.SelectedDesc = lipgloss.NewStyle().
		Foreground(tint.Yellow()).
		BorderLeft(true).
		BorderForeground(tint.Purple()).
		Padding(0, 0, 0, 1)

	d.Styles.NormalTitle = lipgloss.NewStyle().
		Foreground(tint.Fg()).
		Padding(0, 0, 0, 2)

	d.Styles.NormalDesc = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	d.Styles.DimmedTitle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	d.Styles.DimmedDesc = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	return d
}

// RenderError renders an error message
func RenderError(msg string) string {
	return ErrorMessageStyle.Render("  ✗ " + msg)
}

// RenderViewportWithBorder renders content with a viewport border style
func RenderViewportWithBorder(content string) string {
	return ViewportBorderStyle.Render(content)
}

// GetUserMessageContentStyle returns a style for user message content with given width
func GetUserMessageContentStyle(width int) lipgloss.Style {
	return UserMessageContentStyle.
		Width(width - 10).
		Align(lipgloss.Right)
}

// GetAssistantMessageContentStyle returns a style for assistant message content with given width
func GetAssistantMessageContentStyle(width int) lipgloss.Style {
	return AssistantMessageContentStyle.
		Width(width - 10)
}

// GetTimestampStyle returns a style for timestamp with given width
func GetTimestampStyle(width int) lipgloss.Style {
	return TimestampStyle.
		Align(lipgloss.Right).
		Width(width - 10)
}

// GetTopicBrowserBorderStyle returns the overlay border sized to width
func GetTopicBrowserBorderStyle(width int) lipgloss.Style {
	return TopicBrowserBorderStyle.Width(width - 4)
}
