package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nathoo/agtcore/types"
)

var titleCase = cases.Title(language.English)

// roomDisplayName derives a human-readable name from a room ID.
// "great_hall" -> "Great Hall", "castle_gates" -> "Castle Gates".
func roomDisplayName(id string) string {
	return titleCase.String(strings.ReplaceAll(id, "_", " "))
}

// roomName returns the status-bar name of the player's room.
func (m Model) roomName() string {
	d, w := m.engine.Defs, m.engine.World
	if !d.IsRoom(w.Loc) {
		return "Nowhere"
	}
	room := d.Room(w.Loc)
	if room.Name == "" || room.Name == room.ID {
		return roomDisplayName(room.ID)
	}
	return room.Name
}

// exitNames lists the open exits of the player's room in compass order.
func (m Model) exitNames() []string {
	d, w := m.engine.Defs, m.engine.World
	if !d.IsRoom(w.Loc) || !w.Lit() {
		return nil
	}
	var dirs []string
	for i, dest := range w.Room(w.Loc).Exits {
		if dest != types.Nowhere {
			dirs = append(dirs, d.Dict.Word(d.W.Dirs[i]))
		}
	}
	return dirs
}

// renderStatusBar produces a full-width inverted status line showing
// current room, exits, inventory, score and turn count.
func (m Model) renderStatusBar() string {
	d, w := m.engine.Defs, m.engine.World

	left := fmt.Sprintf(" %s | Exits: %s", m.roomName(), strings.Join(m.exitNames(), ","))
	score := fmt.Sprintf("S:%d/%d T:%d ", w.Score, w.MaxScore, w.Turns)
	right := score

	// Show inventory items if they fit, otherwise just count.
	held := w.Contents(types.Self)
	if len(held) > 0 {
		names := make([]string, 0, len(held))
		for _, r := range held {
			names = append(names, d.Name(r))
		}
		candidate := fmt.Sprintf("Inv: %s | %s", strings.Join(names, ", "), score)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("Inv: %d | %s", len(held), score)
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
