package selection

import "strings"

// Command is a discrete navigation command from the operator
type Command int

const (
	// CommandUnknown is any token that is not a recognised command
	CommandUnknown Command = iota
	// CommandPrevious moves the selection to the previous detection
	CommandPrevious
	// CommandNext moves the selection to the next detection
	CommandNext
	// CommandConfirm locks in the current selection and emits its planning ID
	CommandConfirm
)

// wire tokens sent by the command publisher
const (
	TokenLeft    = "Left"
	TokenRight   = "Right"
	TokenConfirm = "Confirm"
)

func (c Command) String() string {
	switch c {
	case CommandPrevious:
		return "previous"
	case CommandNext:
		return "next"
	case CommandConfirm:
		return "confirm"
	}
	return "unknown"
}

// ParseCommand maps a wire token onto a Command.  Matching is case sensitive,
// only surrounding whitespace is ignored.
func ParseCommand(token string) Command {
	switch strings.TrimSpace(token) {
	case TokenLeft:
		return CommandPrevious
	case TokenRight:
		return CommandNext
	case TokenConfirm:
		return CommandConfirm
	}
	return CommandUnknown
}

// CommandParser parses wire tokens with an additional set of aliases, eg: to
// accept the token "Select" from a different BCI classifier as a confirm.
type CommandParser struct {
	aliases map[string]Command
}

// NewCommandParser returns a parser recognising the standard tokens plus the
// given aliases.  Alias values must be one of "previous", "next" or "confirm",
// any other value is dropped.
func NewCommandParser(aliases map[string]string) *CommandParser {
	p := &CommandParser{
		aliases: make(map[string]Command, len(aliases)),
	}

	for token, name := range aliases {
		if cmd := commandByName(name); cmd != CommandUnknown {
			p.aliases[token] = cmd
		}
	}

	return p
}

// Parse maps the token onto a Command, trying the standard tokens first
func (p *CommandParser) Parse(token string) Command {
	if cmd := ParseCommand(token); cmd != CommandUnknown {
		return cmd
	}

	if p == nil {
		return CommandUnknown
	}

	if cmd, ok := p.aliases[strings.TrimSpace(token)]; ok {
		return cmd
	}

	return CommandUnknown
}

// commandByName returns the Command for its String() name
func commandByName(name string) Command {
	for _, cmd := range []Command{CommandPrevious, CommandNext, CommandConfirm} {
		if cmd.String() == name {
			return cmd
		}
	}
	return CommandUnknown
}
