package identity

import "errors"

// ErrInvalidName is the sentinel kind wrapped by every NameError.
var ErrInvalidName = errors.New("invalid_name")

// NameKind selects which identifier is being validated. It only affects error wording.
type NameKind uint8

const (
	KindNick NameKind = iota
	KindGroup
)

func (k NameKind) label() string {
	switch k {
	case KindGroup:
		return "group name"
	default:
		return "nickname"
	}
}

// NameError is a human-readable rejection of an identifier.
type NameError struct {
	Kind   NameKind
	Reason string
}

func (e NameError) Error() string { return e.Reason }

func (e NameError) Unwrap() error { return ErrInvalidName }
