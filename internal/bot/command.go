package bot

import "strings"

// Command prefixes, matched case-sensitively at the start of a message.
const (
	Prefix    = "!pfnbot"
	RefPrefix = Prefix + " ref "
)

// CommandKind identifies a parsed chat command.
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandStatus
	CommandRef
)

// Command is a parsed chat command.
type Command struct {
	Kind CommandKind
	Ref  string
}

// ParseCommand parses message text. For "!pfnbot ref <token>" the ref is
// the third space-separated field and may be empty. Any other text starting
// with "!pfnbot" is a status request.
func ParseCommand(text string) Command {
	switch {
	case strings.HasPrefix(text, RefPrefix):
		return Command{Kind: CommandRef, Ref: strings.Split(text, " ")[2]}
	case strings.HasPrefix(text, Prefix):
		return Command{Kind: CommandStatus}
	default:
		return Command{Kind: CommandNone}
	}
}
