package client

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	v1 "ruggine/shared/contracts/chat/v1"
)

var (
	// ErrUnknownCommand is returned for a slash command the client does not know.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned when a known command is missing arguments.
	ErrUsage = errors.New("usage")
)

// Command is the outcome of parsing one input line. Request is nil when nothing
// needs to be sent; Output holds lines to print locally.
type Command struct {
	Request v1.Request
	Output  []string
	Quit    bool
}

// HelpLines is printed for /help and "/".
var HelpLines = []string{
	"",
	"================================ COMMANDS ================================",
	"/help (or /)                 show this menu",
	"/create <name>               create a group named <name>",
	"/invite <group> <nick>       invite <nick> into <group>",
	"/join <group> <code>         join <group> with invite <code>",
	"/leave <group>               leave <group>",
	"/users                       list connected users",
	"/groups                      list your groups",
	"/msg <group> <text>          send <text> to <group>",
	"/quit                        leave the chat",
	"==========================================================================",
	"",
}

// ParseCommand turns an input line into a Command. nick is the caller's registered
// nickname, carried by group messages. Text without a leading slash is a global message.
// The server applies the real validation; only the shape is checked here.
func ParseCommand(line, nick string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return Command{Request: v1.GlobalMessage{Text: line}}, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/", "/help":
		return Command{Output: slices.Clone(HelpLines)}, nil
	case "/quit":
		return Command{Request: v1.Logout{}, Quit: true}, nil
	case "/users":
		return Command{Request: v1.ListUsers{}}, nil
	case "/groups":
		return Command{Request: v1.ListGroups{}}, nil
	case "/create":
		if rest == "" {
			return Command{}, usage("/create <name>")
		}
		return Command{Request: v1.CreateGroup{Group: rest}}, nil
	case "/leave":
		if rest == "" {
			return Command{}, usage("/leave <group>")
		}
		return Command{Request: v1.LeaveGroup{Group: rest}}, nil
	case "/invite":
		group, target, ok := twoArgs(rest)
		if !ok {
			return Command{}, usage("/invite <group> <nick>")
		}
		return Command{Request: v1.Invite{Group: group, Nick: target}}, nil
	case "/join":
		group, code, ok := twoArgs(rest)
		if !ok {
			return Command{}, usage("/join <group> <code>")
		}
		return Command{Request: v1.JoinGroup{Group: group, InviteCode: code}}, nil
	case "/msg":
		group, text, ok := twoArgs(rest)
		if !ok {
			return Command{}, usage("/msg <group> <text>")
		}
		return Command{Request: v1.SendMessage{Group: group, Text: text, Nick: nick}}, nil
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}

// twoArgs splits "a rest of line" into "a" and "rest of line".
func twoArgs(s string) (string, string, bool) {
	a, b, ok := strings.Cut(s, " ")
	b = strings.TrimSpace(b)
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

func usage(form string) error {
	return fmt.Errorf("%w: %s", ErrUsage, form)
}
