// Package repl implements the line-oriented command loop the dinohash
// binaries use to drive an index interactively.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ReplCommand runs one command. It receives the whole input line, trigger included.
type ReplCommand func(string, *REPLConfig) (output string, err error)

const (
	// Trigger for the help meta-command that prints out all help strings
	TriggerHelpMetacommand = ".help"

	// String that should be prepended to any error before being sent to the output writer
	ErrorPrependStr = "ERROR: "
)

var (
	// ErrOverlappingCommands is returned when combined REPLs share a trigger.
	ErrOverlappingCommands = errors.New("found overlapping commands")

	// Error for when a sent trigger is not associated with any known commands
	ErrCommandNotFound = errors.New("command not found")

	// ErrReservedTrigger is returned when adding a command under a meta-command trigger.
	ErrReservedTrigger = errors.New("trigger is reserved")
)

// REPL struct.
type REPL struct {
	commands map[string]ReplCommand
	help     map[string]string
}

// REPLConfig carries per-session state into every command.
type REPLConfig struct {
	clientId uuid.UUID
}

// GetAddr returns the id of the session running the command.
func (replConfig *REPLConfig) GetAddr() uuid.UUID {
	return replConfig.clientId
}

// NewRepl constructs an empty REPL.
func NewRepl() *REPL {
	return &REPL{commands: make(map[string]ReplCommand), help: make(map[string]string)}
}

// CombineRepls merges the commands of every REPL into a new one. Two REPLs
// defining the same trigger is an error. No REPLs yields an empty REPL.
func CombineRepls(repls []*REPL) (*REPL, error) {
	combined := NewRepl()
	for _, r := range repls {
		for trigger, command := range r.commands {
			if _, exists := combined.commands[trigger]; exists {
				return nil, fmt.Errorf("%w: %s", ErrOverlappingCommands, trigger)
			}
			combined.commands[trigger] = command
			combined.help[trigger] = r.help[trigger]
		}
	}
	return combined, nil
}

// Get commands.
func (r *REPL) GetCommands() map[string]ReplCommand {
	return r.commands
}

// Get help.
func (r *REPL) GetHelp() map[string]string {
	return r.help
}

// AddCommand adds a command, along with its help string, to the set of
// commands. A command with the same trigger is replaced.
func (r *REPL) AddCommand(trigger string, action ReplCommand, help string) error {
	if trigger == TriggerHelpMetacommand {
		return fmt.Errorf("%w: %s", ErrReservedTrigger, trigger)
	}
	r.commands[trigger] = action
	r.help[trigger] = help
	return nil
}

// MustAddCommand is like AddCommand but panics if the trigger is reserved.
// It is meant for REPLs built from a fixed set of commands.
func (r *REPL) MustAddCommand(trigger string, action ReplCommand, help string) {
	if err := r.AddCommand(trigger, action, help); err != nil {
		panic(err)
	}
}

// HelpString returns every command's help string, one per line, ordered by trigger.
func (r *REPL) HelpString() string {
	triggers := make([]string, 0, len(r.help))
	for k := range r.help {
		triggers = append(triggers, k)
	}
	slices.Sort(triggers)
	var sb strings.Builder
	for _, k := range triggers {
		fmt.Fprintf(&sb, "%s: %s\n", k, r.help[k])
	}
	return sb.String()
}

// Run writes the welcome line and then reads commands from input until it
// is exhausted, writing each command's output (or error) and a fresh prompt
// to output. Input and output default to Stdin and Stdout.
func (r *REPL) Run(clientId uuid.UUID, prompt string, input io.Reader, output io.Writer) {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}

	scanner := bufio.NewScanner(input)
	replConfig := &REPLConfig{clientId: clientId}
	fmt.Fprintln(output, "Welcome to the dinohash REPL! Please type '.help' to see the list of available commands.")
	io.WriteString(output, prompt)

	for scanner.Scan() {
		payload := scanner.Text()
		io.WriteString(output, r.execute(payload, replConfig))
		io.WriteString(output, prompt)
	}
	// Print an additional line if we encountered an EOF character.
	io.WriteString(output, "\n")
}

// execute runs a single line and returns what should be written for it.
func (r *REPL) execute(payload string, replConfig *REPLConfig) string {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return ""
	}
	trigger := fields[0]
	if trigger == TriggerHelpMetacommand {
		return r.HelpString()
	}
	command, exists := r.commands[trigger]
	if !exists {
		return fmt.Sprintf("%s%s\n", ErrorPrependStr, ErrCommandNotFound)
	}
	result, err := command(payload, replConfig)
	if err != nil {
		return fmt.Sprintf("%s%s\n", ErrorPrependStr, err)
	}
	// Append newline if there is output and if it doesn't end with a newline already
	if len(result) != 0 && !strings.HasSuffix(result, "\n") {
		result += "\n"
	}
	return result
}
