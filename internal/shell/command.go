package shell

import "strings"

// UserPlaceholder is the reserved command token replaced with the
// session's resolved username during startup.
const UserPlaceholder = "$USER"

// CommandSpec is an ordered list of command tokens plus a cached joined
// representation used for diagnostics only (never re-parsed).
//
// A spec is an immutable value: substitution produces a new spec, so a
// caller-supplied slice can never alias a running adapter's command.
type CommandSpec struct {
	tokens  []string
	display string
}

// NewCommandSpec copies the supplied tokens into a new spec. The overall
// sequence must be non-empty; individual tokens may be empty.
func NewCommandSpec(tokens []string) (*CommandSpec, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyCommand
	}
	cp := make([]string, len(tokens))
	copy(cp, tokens)
	return &CommandSpec{
		tokens:  cp,
		display: strings.Join(cp, " "),
	}, nil
}

// Tokens returns a copy of the token sequence.
func (c *CommandSpec) Tokens() []string {
	cp := make([]string, len(c.tokens))
	copy(cp, c.tokens)
	return cp
}

// String returns the tokens joined by single spaces.
func (c *CommandSpec) String() string {
	return c.display
}

// needsUser reports whether any token is the user placeholder.
func (c *CommandSpec) needsUser() bool {
	for _, tok := range c.tokens {
		if tok == UserPlaceholder {
			return true
		}
	}
	return false
}

// substituteUser returns a new spec with every placeholder token replaced
// by user. The receiver is left untouched.
func (c *CommandSpec) substituteUser(user string) *CommandSpec {
	cp := make([]string, len(c.tokens))
	for i, tok := range c.tokens {
		if tok == UserPlaceholder {
			cp[i] = user
		} else {
			cp[i] = tok
		}
	}
	return &CommandSpec{
		tokens:  cp,
		display: strings.Join(cp, " "),
	}
}
