package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/DiagScan/internal/classifier"
	"github.com/yildizm/DiagScan/internal/common"
	"github.com/yildizm/DiagScan/internal/controller"
	"github.com/yildizm/DiagScan/internal/emoji"
	"github.com/yildizm/DiagScan/internal/formatter"
	"github.com/yildizm/DiagScan/internal/logger"
	"github.com/yildizm/DiagScan/internal/report"
	"github.com/yildizm/DiagScan/internal/selection"
	"github.com/yildizm/DiagScan/internal/ui/components"
	"github.com/yildizm/DiagScan/internal/validator"
)

// View represents different UI views
type View int

const (
	ViewSelect View = iota
	ViewAnalyzing
	ViewResult
	ViewHelp
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

// Options wires the model to its collaborators
type Options struct {
	Controller *controller.Controller
	Sink       *ProgramSink
	Validator  *validator.Validator
	Selection  *selection.State
	ReportDir  string
	Timeout    time.Duration
	Styles     *Styles
	Logger     *logger.Logger

	// Now defaults to time.Now
	Now func() time.Time
}

// Model is the interactive analysis screen
type Model struct {
	ctrl      *controller.Controller
	sink      *ProgramSink
	validator *validator.Validator
	selection *selection.State
	reportDir string
	styles    *Styles
	log       *logger.Logger
	now       func() time.Time

	width    int
	height   int
	view     View
	prevView View
	quitting bool

	editing bool
	input   string

	status     string
	statusKind statusKind

	result  *common.PredictionResult
	failure string

	spinner  *components.Spinner
	deadline *components.DeadlineBar
}

// NewModel creates the interactive model
func NewModel(opts Options) *Model {
	if opts.Styles == nil {
		opts.Styles = NewStyles(DefaultTheme, IsColorDisabled())
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Validator == nil {
		opts.Validator = validator.Default()
	}
	if opts.Selection == nil {
		opts.Selection = selection.New()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = classifier.DefaultTimeout
	}

	deadline := components.NewDeadlineBar(30, opts.Timeout)
	deadline.Color = !opts.Styles.NoColor

	spinner := components.NewSpinner()
	spinner.SetLabel("Analyzing image...")

	return &Model{
		ctrl:      opts.Controller,
		sink:      opts.Sink,
		validator: opts.Validator,
		selection: opts.Selection,
		reportDir: opts.ReportDir,
		styles:    opts.Styles,
		log:       opts.Logger.WithComponent("tui"),
		now:       opts.Now,
		view:      ViewSelect,
		editing:   true,
		spinner:   spinner,
		deadline:  deadline,
	}
}

// Init starts listening for controller events
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.sink.Next(), tick())
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.FocusMsg:
		return m.handleFocus()
	case tea.BlurMsg:
		m.ctrl.SetVisible(false)
		return m, nil
	case tickMsg:
		m.spinner.Tick()
		return m, tick()
	case beforeStartMsg:
		return m.handleBeforeStart()
	case successMsg:
		return m.handleSuccess(msg)
	case failureMsg:
		return m.handleFailure(msg)
	}

	return m, nil
}

// handleKeyPress dispatches keys depending on whether the path is being edited
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.handleQuit()
	}

	if m.editing {
		return m.handleEditKey(msg)
	}

	switch msg.String() {
	case "q":
		return m.handleQuit()
	case "o", "/", "i":
		m.editing = true
	case "a", "enter":
		return m.handleAnalyze()
	case "r":
		return m.handleReset()
	case "s":
		return m.handleSaveReport()
	case "?", "h":
		return m.handleHelp()
	case "esc":
		if m.view == ViewHelp {
			m.view = m.prevView
		}
	}
	return m, nil
}

func (m *Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.selectPath()
	case tea.KeyEsc:
		m.editing = false
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyCtrlU:
		m.input = ""
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

// selectPath validates the typed path and replaces the selection on success.
// A rejected file leaves the current selection untouched.
func (m *Model) selectPath() {
	path := strings.Trim(strings.TrimSpace(m.input), `"'`)
	if path == "" {
		m.setStatus(statusError, "Enter the path of an image file.")
		return
	}

	artifact, err := m.validator.LoadFile(path, "")
	if err != nil {
		m.log.Debug("selection rejected: %v", err)
		m.setStatus(statusError, err.Error())
		return
	}

	m.selection.Accept(artifact)
	m.editing = false
	m.result = nil
	m.failure = ""
	if m.view != ViewAnalyzing {
		m.view = ViewSelect
	}
	m.setStatus(statusSuccess, fmt.Sprintf("Selected %s (%s). Press a to analyze.",
		artifact.Name, formatter.FormatByteSize(artifact.Size)))
}

func (m *Model) handleAnalyze() (tea.Model, tea.Cmd) {
	artifact := m.selection.Current()
	if artifact == nil {
		m.setStatus(statusError, "Select an image first.")
		return m, nil
	}

	// Busy attempts make this a no-op
	m.ctrl.Start(artifact)
	return m, nil
}

func (m *Model) handleReset() (tea.Model, tea.Cmd) {
	m.ctrl.Reset()

	m.input = ""
	m.editing = true
	m.result = nil
	m.failure = ""
	if !m.ctrl.Busy() {
		m.view = ViewSelect
	}
	m.setStatus(statusInfo, "Selection cleared.")
	return m, nil
}

func (m *Model) handleSaveReport() (tea.Model, tea.Cmd) {
	result := m.ctrl.LastResult()
	if result == nil {
		m.setStatus(statusError, "No analysis result to save.")
		return m, nil
	}

	path, err := report.Save(m.reportDir, result, m.now())
	if err != nil {
		m.log.Error("failed to save report: %v", err)
		m.setStatus(statusError, classifier.GenericFailureMessage)
		return m, nil
	}

	m.setStatus(statusSuccess, "Report saved to "+path)
	return m, nil
}

func (m *Model) handleHelp() (tea.Model, tea.Cmd) {
	if m.view == ViewHelp {
		m.view = m.prevView
		return m, nil
	}
	m.prevView = m.view
	m.view = ViewHelp
	return m, nil
}

func (m *Model) handleQuit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

// handleFocus restores the screen when the terminal regains focus. An attempt
// that was in flight while unfocused is abandoned by the controller.
func (m *Model) handleFocus() (tea.Model, tea.Cmd) {
	wasBusy := m.ctrl.Busy()
	m.ctrl.SetVisible(true)

	if wasBusy && !m.ctrl.Busy() {
		m.view = ViewSelect
		m.setStatus(statusInfo, "The previous analysis was interrupted. Press a to try again.")
	}
	return m, nil
}

func (m *Model) handleBeforeStart() (tea.Model, tea.Cmd) {
	m.result = nil
	m.failure = ""
	m.view = ViewAnalyzing
	m.deadline.Start(m.now())
	m.setStatus(statusInfo, "")
	return m, m.sink.Next()
}

func (m *Model) handleSuccess(msg successMsg) (tea.Model, tea.Cmd) {
	m.result = msg.result
	m.view = ViewResult
	m.setStatus(statusSuccess, "Analysis complete. Press s to save a report.")
	return m, m.sink.Next()
}

func (m *Model) handleFailure(msg failureMsg) (tea.Model, tea.Cmd) {
	m.failure = msg.message
	m.view = ViewResult
	m.setStatus(statusError, "")
	return m, m.sink.Next()
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

// View renders the model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.view {
	case ViewAnalyzing:
		body = m.renderAnalyzing()
	case ViewResult:
		body = m.renderResult()
	case ViewHelp:
		body = m.renderHelp()
	default:
		body = m.renderSelect()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render(emoji.GetEmoji("microscope")+" DiagScan"),
		"",
		m.renderInput(),
		"",
		body,
		"",
		m.renderStatus(),
		m.renderKeys(),
	)

	box := m.styles.Box
	if m.width > 0 {
		box = box.Width(min(m.width-4, 80))
	}
	return box.Render(content)
}

func (m *Model) renderInput() string {
	cursor := ""
	style := m.styles.Input
	if m.editing {
		cursor = "█"
		style = m.styles.Focused
	}

	label := m.styles.Muted.Render(emoji.GetEmoji("image") + " Image path")
	return lipgloss.JoinVertical(lipgloss.Left, label, style.Render(m.input+cursor))
}

func (m *Model) renderSelect() string {
	artifact := m.selection.Current()
	if artifact == nil {
		return m.styles.Muted.Render("No image selected. Type a path and press Enter.")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render("Selected image"),
		fmt.Sprintf("  Name: %s", formatter.SanitizeText(artifact.Name)),
		fmt.Sprintf("  Type: %s", artifact.MediaType),
		fmt.Sprintf("  Size: %s", formatter.FormatByteSize(artifact.Size)),
	)
}

func (m *Model) renderAnalyzing() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.spinner.Render(m.styles.Info),
		"",
		m.deadline.Render(m.now()),
	)
}

func (m *Model) renderResult() string {
	if m.failure != "" {
		return m.styles.Error.Render(emoji.GetEmoji("error") + " " + m.failure)
	}
	if m.result == nil {
		return m.renderSelect()
	}

	percent := formatter.FormatConfidencePercent(m.result.ConfidenceScore)
	tier := formatter.ConfidenceTierFor(percent)

	lines := []string{
		m.styles.Header.Render("Analysis Result"),
		"",
		fmt.Sprintf("  Prediction: %s", m.styles.Body.Bold(true).Render(formatter.SanitizeText(m.result.PredictedClass))),
		fmt.Sprintf("  Confidence: %s %s",
			m.styles.Tier(tier).Render(fmt.Sprintf("%d%%", percent)),
			m.styles.Muted.Render(fmt.Sprintf("(%s)", tier.Label()))),
		"  " + confidenceBar(percent, 30),
	}

	if m.result.HasFilename() {
		lines = append(lines, fmt.Sprintf("  File: %s", formatter.SanitizeText(*m.result.Filename)))
	}
	if m.result.HasProcessingTime() {
		lines = append(lines, fmt.Sprintf("  Processing time: %s", formatter.FormatProcessingTime(*m.result.ProcessingTimeMs)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderHelp() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(emoji.GetEmoji("help")+" Help"),
		"",
		"  Type or paste the path of a JPEG, PNG or GIF image (up to 10 MB)",
		"  and press Enter to select it. Press a to send it for analysis.",
		"",
		"  Only one analysis runs at a time. The request is abandoned after",
		fmt.Sprintf("  %s without a response.", m.deadline.Timeout),
		"",
		"  Results are produced by an automated model and are not a diagnosis.",
	)
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}

	switch m.statusKind {
	case statusSuccess:
		return m.styles.Success.Render(emoji.GetEmoji("success") + " " + m.status)
	case statusError:
		return m.styles.Error.Render(emoji.GetEmoji("warning") + " " + m.status)
	default:
		return m.styles.Info.Render(emoji.GetEmoji("info") + " " + m.status)
	}
}

func (m *Model) renderKeys() string {
	var keys [][2]string
	if m.editing {
		keys = [][2]string{{"enter", "select"}, {"esc", "done"}, {"ctrl+u", "clear"}, {"ctrl+c", "quit"}}
	} else {
		keys = [][2]string{{"a", "analyze"}, {"o", "open"}, {"r", "reset"}, {"s", "save report"}, {"?", "help"}, {"q", "quit"}}
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, m.styles.Key.Render(k[0])+" "+m.styles.Muted.Render(k[1]))
	}
	return strings.Join(parts, m.styles.Muted.Render(" • "))
}

// confidenceBar renders a fixed width bar for a percentage
func confidenceBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Run starts the TUI and blocks until the user quits
func Run(model *Model) error {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	_, err := p.Run()
	return err
}
