package parser

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnreadableFormat is matched by errors.Is on every *UnreadableFormatError.
var ErrUnreadableFormat = errors.New("unreadable format")

// Attempt records one failed extraction step.
type Attempt struct {
	Strategy string
	Detail   string // sheet/header/separator the attempt used, if any
	Err      error
}

func (a Attempt) String() string {
	if a.Detail != "" {
		return fmt.Sprintf("%s[%s]: %v", a.Strategy, a.Detail, a.Err)
	}
	return fmt.Sprintf("%s: %v", a.Strategy, a.Err)
}

// UnreadableFormatError is returned when every extraction strategy for a document has been
// exhausted.
type UnreadableFormatError struct {
	Kind     ContentKind
	Attempts []Attempt
}

func (e *UnreadableFormatError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unreadable format (%s): %d strategies attempted", e.Kind, len(e.Attempts))
	for _, a := range e.Attempts {
		b.WriteString("\n  - ")
		b.WriteString(a.String())
	}
	return b.String()
}

func (e *UnreadableFormatError) Is(target error) bool { return target == ErrUnreadableFormat }

var (
	errNotUsable = errors.New("no usable table")
	errSkipped   = errors.New("not applicable")
)
