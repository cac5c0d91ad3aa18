package identity

import (
	"fmt"
	"strings"
)

// MaxNameLen is the maximum identifier length in bytes (identifiers are ASCII-only).
const MaxNameLen = 32

var reserved = map[string]struct{}{
	"server": {},
	"client": {},
}

// ValidateNickname checks nickname syntax.
func ValidateNickname(s string) error { return Validate(KindNick, s) }

// ValidateGroupName checks group-name syntax.
func ValidateGroupName(s string) error { return Validate(KindGroup, s) }

// Validate checks s against the identifier rules and returns a NameError describing
// the first rule violated, or nil.
func Validate(kind NameKind, s string) error {
	label := kind.label()

	if s == "" {
		return NameError{Kind: kind, Reason: fmt.Sprintf("the %s cannot be empty", label)}
	}
	if len(s) > MaxNameLen {
		return NameError{Kind: kind, Reason: fmt.Sprintf("%s too long (max %d)", label, MaxNameLen)}
	}
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return NameError{Kind: kind, Reason: "only ASCII characters are allowed"}
		}
	}
	if _, ok := reserved[strings.ToLower(s)]; ok {
		return NameError{Kind: kind, Reason: fmt.Sprintf("the %s cannot be 'server' or 'client'", label)}
	}
	if strings.ContainsAny(s, " \t\n\v\f\r") {
		return NameError{Kind: kind, Reason: fmt.Sprintf("the %s cannot contain spaces or whitespace", label)}
	}
	if !isASCIILetter(s[0]) {
		return NameError{Kind: kind, Reason: fmt.Sprintf("the %s must start with a letter (A-Z or a-z)", label)}
	}
	for i := 1; i < len(s); i++ {
		if !isASCIILetter(s[i]) && !isASCIIDigit(s[i]) {
			return NameError{Kind: kind, Reason: fmt.Sprintf("the %s may contain only letters and digits", label)}
		}
	}
	return nil
}

func isASCIILetter(c byte) bool { return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') }

func isASCIIDigit(c byte) bool { return '0' <= c && c <= '9' }
