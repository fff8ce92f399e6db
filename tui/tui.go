package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/agtcore/engine"
	"github.com/nathoo/agtcore/engine/save"
	"github.com/nathoo/agtcore/engine/textio"
	"github.com/nathoo/agtcore/savestore"
	"github.com/nathoo/agtcore/types"
)

// errAborted answers a pending engine read when the player quits mid-question.
var errAborted = errors.New("input aborted")

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// Model is the Bubble Tea model for the interpreter.
type Model struct {
	engine *engine.Engine
	slots  *savestore.Slot

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)

	// Engine steps run in a command goroutine. While one runs, busy is
	// set; a blocking read inside it arrives as a promptMsg and waits in
	// asking until the player answers.
	prompts chan promptMsg
	busy    bool
	asking  *promptMsg

	width    int
	height   int
	ready    bool
	quitting bool
	lastCmd  string
}

// gameOutputMsg carries output from the engine into the Update loop.
type gameOutputMsg struct {
	input    string   // echoed player input (empty for intro)
	lines    []string         // output lines
	kinds    []types.LineKind // engine line kinds, parallel to lines
	isSystem bool             // true for meta-command output
}

// stepDoneMsg reports that an engine step finished.
type stepDoneMsg struct {
	input  string
	result types.Result
}

// promptMsg is a blocking read raised by the engine mid-step. The answer
// goes back on reply.
type promptMsg struct {
	pending []string
	prompt  string
	reply   chan promptAnswer
}

type promptAnswer struct {
	text string
	err  error
}

// New creates a TUI model wired to the given engine. slots may be nil.
func New(eng *engine.Engine, slots *savestore.Slot) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	m := Model{
		engine:  eng,
		slots:   slots,
		input:   ti,
		history: NewHistory(100),
		prompts: make(chan promptMsg),
		busy:    true, // until the intro arrives
	}
	eng.SetPrompter(textio.PrompterFunc(m.ask))
	return m
}

// History returns the command history, for persisting between sessions.
func (m Model) History() *History { return m.history }

// Run starts the Bubble Tea program.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// ask runs on the step goroutine. It hands the read to the UI and blocks
// until the player answers.
func (m Model) ask(pending []string, prompt string) (string, error) {
	reply := make(chan promptAnswer, 1)
	m.prompts <- promptMsg{pending: pending, prompt: prompt, reply: reply}
	ans := <-reply
	return ans.text, ans.err
}

// waitForPrompt delivers the next blocking read to Update.
func waitForPrompt(prompts chan promptMsg) tea.Cmd {
	return func() tea.Msg {
		return <-prompts
	}
}

// Init returns the initial command that produces intro text and first look.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.introCmd(), waitForPrompt(m.prompts))
}

func (m Model) introCmd() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		return stepDoneMsg{result: eng.Intro()}
	}
}

func (m Model) stepCmd(input string) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		return stepDoneMsg{input: input, result: eng.Step(input)}
	}
}

// Update handles messages (key presses, window resize, game output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.asking != nil {
				m.asking.reply <- promptAnswer{err: errAborted}
				m.asking = nil
			}
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case promptMsg:
		m = m.appendOutput(gameOutputMsg{lines: msg.pending})
		if msg.prompt != "" {
			m.rawLines = append(m.rawLines, rawLine{text: msg.prompt, kind: kindQuestion})
			m.refreshViewport()
		}
		m.asking = &msg
		m.input.Prompt = "? "
		return m, nil

	case stepDoneMsg:
		m.busy = false
		output, kinds := msg.result.Output, msg.result.Kinds
		if m.engine.Trace() {
			for _, line := range formatTrace(msg.result) {
				output = append(output, line)
				kinds = append(kinds, types.LineTrace)
			}
		}
		m = m.appendOutput(gameOutputMsg{input: msg.input, lines: output, kinds: kinds})
		if m.engine.World.Status == types.Quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case gameOutputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())

	// An answer to a blocking read resumes the running step.
	if m.asking != nil {
		m.input.SetValue("")
		m.input.Prompt = "> "
		m.rawLines = append(m.rawLines, rawLine{text: "? " + input, isInput: true})
		m.asking.reply <- promptAnswer{text: input}
		m.asking = nil
		m.refreshViewport()
		return m, waitForPrompt(m.prompts)
	}
	if m.busy {
		return m, nil
	}
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	// Handle "again" / "g".
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(gameOutputMsg{
				input: input, lines: []string{"Nothing to repeat."}, isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else if !strings.HasPrefix(input, "/") {
		m.lastCmd = input
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	// Game command.
	m.busy = true
	return m, m.stepCmd(input)
}

// appendOutput adds lines to the narrative and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + msg.input, isInput: true,
		})
	}

	for i, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			kind := types.LineText
			if i < len(msg.kinds) {
				kind = msg.kinds[i]
			}
			rl.kind = classifyLine(line, kind)
		}
		m.rawLines = append(m.rawLines, rl)
	}

	// Blank line separator between turns.
	if len(msg.lines) > 0 || msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{})
	}

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindYouSee:
		return styledYouSee(line)
	case kindExits:
		return styleExits.Render(line)
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	case kindQuestion:
		return styleQuestion.Render(line)
	default:
		return styleRoomDesc.Render(line)
	}
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(args), false

	case "/load":
		return m.cmdLoad(args), false

	case "/slots":
		return m.cmdSlots(), false

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.engine.Summary(), false

	case "/trace":
		m.engine.SetTrace(!m.engine.Trace())
		if m.engine.Trace() {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) selectSlot(args []string) bool {
	if m.slots == nil {
		return false
	}
	if len(args) > 0 {
		m.slots.Name = args[0]
	}
	return true
}

func (m *Model) cmdSave(args []string) []string {
	if !m.selectSlot(args) {
		return []string{"No save database is open."}
	}
	if err := m.slots.SaveBlock(m.engine.SaveState()); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	return []string{fmt.Sprintf("Game saved to %s.", m.slots.Name)}
}

func (m *Model) cmdLoad(args []string) []string {
	if !m.selectSlot(args) {
		return []string{"No save database is open."}
	}
	force := len(args) > 1 && args[1] == "force"

	block, err := m.slots.LoadBlock()
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	if err := m.engine.RestoreState(block, save.Options{IgnoreStale: force}); err != nil {
		var se *save.SignatureError
		if errors.As(err, &se) {
			return []string{fmt.Sprintf("Load failed: %v. Use /load %s force to load it anyway.", err, m.slots.Name)}
		}
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	output := []string{fmt.Sprintf("Game loaded from %s (turn %d).", m.slots.Name, m.engine.World.Turns)}
	return append(output, m.engine.Look().Output...)
}

func (m *Model) cmdSlots() []string {
	if m.slots == nil {
		return []string{"No save database is open."}
	}
	slots, err := m.slots.List()
	if err != nil {
		return []string{fmt.Sprintf("Listing failed: %v", err)}
	}
	if len(slots) == 0 {
		return []string{"No saved games."}
	}
	var out []string
	for _, s := range slots {
		out = append(out, fmt.Sprintf("%s: %s, turn %d, score %d (%s)",
			s.Name, s.Location, s.Turns, s.Score, s.SavedAt.Local().Format("2006-01-02 15:04")))
	}
	return out
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /save [name]          Save game",
		"  /load [name] [force]  Load game",
		"  /slots                List saved games",
		"  /quit                 Exit game",
		"  /help                 Show this help",
		"  /state                Show score, turns and game state",
		"  /trace                Toggle metacommand trace output",
		"",
		"Game commands:",
		"  look (l), examine <thing> (x), inventory (i)",
		"  go <dir>, or just n/s/e/w/ne/nw/se/sw/u/d/in/out",
		"  get/take, drop, put <item> in <thing>, get all",
		"  open, close, lock, unlock, wear, remove",
		"  wait (z), score, undo, oops <word>, again (g)",
		"",
		"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
	}
}

func formatTrace(result types.Result) []string {
	var lines []string
	if len(result.Events) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Events: %d", len(result.Events)))
		for _, e := range result.Events {
			lines = append(lines, fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
		}
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
