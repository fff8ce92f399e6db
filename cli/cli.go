// Package cli provides the plain line-oriented front end: line editing,
// output formatting and meta-command dispatch.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/nathoo/agtcore/engine"
	"github.com/nathoo/agtcore/engine/save"
	"github.com/nathoo/agtcore/engine/textio"
	"github.com/nathoo/agtcore/savestore"
	"github.com/nathoo/agtcore/types"
)

// LineReader supplies input lines. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

type historian interface {
	AppendHistory(item string)
}

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	Slots     *savestore.Slot // nil disables /save, /load and /slots
	In        LineReader
	Out       io.Writer
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine. The caller sets In.
func New(eng *engine.Engine, slots *savestore.Slot) *CLI {
	return &CLI{
		Engine: eng,
		Slots:  slots,
		Out:    os.Stdout,
	}
}

// Run shows the introduction, then loops: prompt, input, dispatch,
// output. It returns when input ends, the player quits, or /quit is typed.
func (c *CLI) Run() {
	c.Engine.SetPrompter(textio.PrompterFunc(c.ask))
	defer c.Engine.SetPrompter(nil)

	c.printResult(c.Engine.Intro())

	for {
		line, err := c.In.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				c.printSystem("Goodbye.")
			}
			return
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}
		if h, ok := c.In.(historian); ok {
			h.AppendHistory(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		// "again" / "g" repeats the last game command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Engine.Step(input)
		c.printResult(result)
		if c.Engine.Trace() {
			c.printTrace(result)
		}
		if c.Engine.World.Status == types.Quit {
			return
		}
	}
}

// ask answers the engine's blocking reads from the same line reader.
func (c *CLI) ask(pending []string, prompt string) (string, error) {
	for _, line := range pending {
		c.printLine(line)
	}
	if prompt == "" {
		prompt = "? "
	}
	return c.In.Prompt(prompt)
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(args)

	case "/load":
		c.cmdLoad(args)

	case "/slots":
		c.cmdSlots()

	case "/delete":
		c.cmdDelete(args)

	case "/help":
		c.cmdHelp()

	case "/state":
		for _, line := range c.Engine.Summary() {
			c.printSystem(line)
		}

	case "/trace":
		c.Engine.SetTrace(!c.Engine.Trace())
		if c.Engine.Trace() {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

// slotName selects the slot named by args, or keeps the current one.
func (c *CLI) slotName(args []string) bool {
	if c.Slots == nil {
		c.printSystem("No save database is open.")
		return false
	}
	if len(args) > 0 {
		c.Slots.Name = args[0]
	}
	return true
}

func (c *CLI) cmdSave(args []string) {
	if !c.slotName(args) {
		return
	}
	if err := c.Slots.SaveBlock(c.Engine.SaveState()); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game saved to %s.", c.Slots.Name))
}

// cmdLoad restores a slot. "/load name force" accepts a save made by a
// different build of the game.
func (c *CLI) cmdLoad(args []string) {
	if !c.slotName(args) {
		return
	}
	force := len(args) > 1 && args[1] == "force"

	block, err := c.Slots.LoadBlock()
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	if err := c.Engine.RestoreState(block, save.Options{IgnoreStale: force}); err != nil {
		var se *save.SignatureError
		if errors.As(err, &se) {
			c.printSystem(fmt.Sprintf("Load failed: %v. Use /load %s force to load it anyway.", err, c.Slots.Name))
			return
		}
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game loaded from %s (turn %d).", c.Slots.Name, c.Engine.World.Turns))
	c.printResult(c.Engine.Look())
}

func (c *CLI) cmdSlots() {
	if c.Slots == nil {
		c.printSystem("No save database is open.")
		return
	}
	slots, err := c.Slots.List()
	if err != nil {
		c.printSystem(fmt.Sprintf("Listing failed: %v", err))
		return
	}
	if len(slots) == 0 {
		c.printSystem("No saved games.")
		return
	}
	for _, s := range slots {
		c.printSystem(formatSlot(s))
	}
}

func (c *CLI) cmdDelete(args []string) {
	if len(args) == 0 {
		c.printSystem("Usage: /delete <name>")
		return
	}
	if c.Slots == nil {
		c.printSystem("No save database is open.")
		return
	}
	if err := c.Slots.Store.Delete(c.Engine.Defs.Game.Title, args[0]); err != nil {
		c.printSystem(fmt.Sprintf("Delete failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Deleted %s.", args[0]))
}

func formatSlot(s savestore.SlotInfo) string {
	where := s.Location
	if where == "" {
		where = "?"
	}
	return fmt.Sprintf("%-12s %-20s turn %-4d score %-4d %s",
		s.Name, where, s.Turns, s.Score, s.SavedAt.Local().Format("2006-01-02 15:04"))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [name]        Save game (default: current slot)",
		"  /load [name] [force] Load game",
		"  /slots              List saved games",
		"  /delete <name>      Delete a saved game",
		"  /quit               Exit game",
		"  /help               Show this help",
		"  /state              Show score, turns and game state",
		"  /trace              Toggle metacommand trace output",
		"",
		"Game commands:",
		"  look (l)               Describe the room",
		"  examine <thing> (x)    Look closely at something",
		"  go <dir>               Move (or just type n/s/e/w/ne/u/d...)",
		"  get/take <item>        Pick something up (get all works too)",
		"  drop <item>            Put something down",
		"  put <item> in <thing>  Put something in a container",
		"  open / close / lock / unlock",
		"  wear / remove          Put on or take off clothing",
		"  inventory (i)          Check what you're carrying",
		"  wait (z)               Let time pass",
		"  undo                   Take back the last turn",
		"  oops <word>            Correct an unknown word",
		"  again (g)              Repeat your last command",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) printTrace(result types.Result) {
	if len(result.Events) > 0 {
		c.printSystem(fmt.Sprintf("[trace] Events: %d", len(result.Events)))
		for _, e := range result.Events {
			c.printSystem(fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
		}
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
