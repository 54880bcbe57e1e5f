package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fibreflow/workforce/internal/orchestrator"
	"github.com/fibreflow/workforce/pkg/models"
)

// EventMsg wraps an orchestrator event for the update loop.
type EventMsg struct {
	Event orchestrator.Event
}

// RequestDoneMsg is sent when a submitted request finishes.
type RequestDoneMsg struct {
	Request *models.Request
	Err     error
}

// StateChangedMsg is sent when an agent's domain state file changes on
// disk, including edits made outside this process.
type StateChangedMsg struct {
	Agent string
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	agentIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	agentRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Bold(true)

	agentFailedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// App is the interactive workforce terminal: an input line, the live
// roster, and a transcript of requests and answers.
type App struct {
	inputField *InputField
	spin       spinner.Model

	registry *orchestrator.AgentRegistry
	events   <-chan orchestrator.Event

	transcript []string
	busy       bool
	current    string // agent working the in-flight request

	totalTokens int64
	totalCost   float64

	width    int
	height   int
	quitting bool

	onSubmit func(text string)
}

// NewApp creates the interactive app over the orchestrator's registry
// and event stream.
func NewApp(registry *orchestrator.AgentRegistry, events <-chan orchestrator.Event) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	return &App{
		inputField: NewInputField(),
		spin:       s,
		registry:   registry,
		events:     events,
	}
}

// SetSubmitHandler sets the callback invoked when a request is entered.
func (a *App) SetSubmitHandler(fn func(text string)) {
	a.onSubmit = fn
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.inputField.Focus(), a.spin.Tick, a.listen())
}

// listen waits for the next orchestrator event.
func (a *App) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-a.events
		if !ok {
			return nil
		}
		return EventMsg{Event: ev}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			a.quitting = true
			return a, tea.Quit
		default:
			var cmd tea.Cmd
			a.inputField, cmd = a.inputField.Update(msg)
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.inputField.SetWidth(msg.Width)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case RequestSubmittedMsg:
		if a.busy {
			a.appendLine(dimStyle.Render("(a request is already running, wait for it to finish)"))
			return a, nil
		}
		a.busy = true
		a.appendLine(operatorStyle.Render("you: ") + msg.Text)
		if a.onSubmit != nil {
			a.onSubmit(msg.Text)
		}
		return a, nil

	case EventMsg:
		a.applyEvent(msg.Event)
		return a, a.listen()

	case RequestDoneMsg:
		a.busy = false
		a.current = ""
		if msg.Err != nil {
			a.appendLine(errorStyle.Render("error: " + msg.Err.Error()))
		} else if msg.Request != nil {
			agent := msg.Request.Agent
			for _, line := range strings.Split(strings.TrimSpace(msg.Request.Output), "\n") {
				a.appendLine(answerStyle.Render(agent+": ") + line)
			}
			a.totalTokens += msg.Request.TokensIn + msg.Request.TokensOut
			a.totalCost += msg.Request.Cost
		}
		return a, nil

	case StateChangedMsg:
		a.appendLine(dimStyle.Render(fmt.Sprintf("  %s domain state updated", msg.Agent)))
		return a, nil
	}

	return a, nil
}

// applyEvent folds an orchestrator event into the transcript.
func (a *App) applyEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventRequestRouted:
		a.appendLine(dimStyle.Render(ev.Message))
	case orchestrator.EventAgentStarted:
		a.current = ev.Agent
	case orchestrator.EventAgentProgress:
		if ev.CurrentAction != "" {
			a.appendLine(dimStyle.Render(fmt.Sprintf("  %s: %s", ev.Agent, ev.CurrentAction)))
		}
	case orchestrator.EventAgentRetry:
		a.appendLine(dimStyle.Render(fmt.Sprintf("  retrying %s: %s", ev.Agent, ev.Message)))
	case orchestrator.EventLearningSaved:
		a.appendLine(dimStyle.Render(fmt.Sprintf("  %s saved a learning", ev.Agent)))
	}
}

// appendLine adds a line to the transcript, keeping it bounded.
func (a *App) appendLine(line string) {
	a.transcript = append(a.transcript, line)
	if len(a.transcript) > 500 {
		a.transcript = a.transcript[len(a.transcript)-500:]
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("workforce"))
	b.WriteString("  ")
	b.WriteString(a.agentStrip())
	b.WriteString("\n\n")

	b.WriteString(a.transcriptView())
	b.WriteString("\n")

	if a.busy {
		working := a.current
		if working == "" {
			working = "routing"
		}
		b.WriteString(a.spin.View() + dimStyle.Render(" "+working+" is working..."))
		b.WriteString("\n")
	}

	b.WriteString(a.inputField.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("tokens: %d  cost: $%.4f  (ctrl+c to quit)", a.totalTokens, a.totalCost)))

	return b.String()
}

// agentStrip renders the roster with per-agent status colors.
func (a *App) agentStrip() string {
	if a.registry == nil {
		return ""
	}

	var parts []string
	for _, ag := range a.registry.All() {
		label := ag.Name
		switch ag.Status {
		case models.AgentStatusRunning:
			parts = append(parts, agentRunningStyle.Render("●"+label))
		case models.AgentStatusFailed:
			parts = append(parts, agentFailedStyle.Render("●"+label))
		default:
			parts = append(parts, agentIdleStyle.Render("○"+label))
		}
	}
	return strings.Join(parts, " ")
}

// transcriptView renders the last lines that fit the terminal.
func (a *App) transcriptView() string {
	visible := a.height - 8 // header, spinner, input, footer
	if visible < 5 {
		visible = 5
	}

	lines := a.transcript
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	return strings.Join(lines, "\n")
}
