package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/agtcore/types"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleRoomDesc = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleYouSee = lipgloss.NewStyle().
			Bold(true)

	styleExits = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleQuestion = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindRoomDesc lineKind = iota
	kindYouSee
	kindExits
	kindDialogue
	kindSystem
	kindError
	kindTrace
	kindQuestion
)

// classifyLine picks the style of an engine output line from the kind the
// engine gave it. Plain text is only told apart by quoted speech.
func classifyLine(line string, kind types.LineKind) lineKind {
	switch kind {
	case types.LineError:
		return kindError
	case types.LineQuestion:
		return kindQuestion
	case types.LineTrace:
		return kindTrace
	case types.LineListing:
		return kindYouSee
	case types.LineExits:
		return kindExits
	}
	if containsQuotedSpeech(line) {
		return kindDialogue
	}
	return kindRoomDesc
}

// containsQuotedSpeech checks if a line contains dialogue in quotes.
func containsQuotedSpeech(line string) bool {
	inQuote := false
	quoteLen := 0
	for _, r := range line {
		if r == '\'' || r == '"' {
			if inQuote && quoteLen > 5 {
				return true
			}
			inQuote = !inQuote
			quoteLen = 0
		} else if inQuote {
			quoteLen++
		}
	}
	return false
}

// styledYouSee renders "You see: item1, item2." with item names bold.
func styledYouSee(line string) string {
	prefix, rest, ok := strings.Cut(line, ": ")
	if !ok {
		return styleRoomDesc.Render(line)
	}
	return styleRoomDesc.Render(prefix+": ") + styleYouSee.Render(rest)
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
