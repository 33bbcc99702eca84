package strategy

import (
	"fmt"
	"strings"
)

// Kind tags the key-material strategy.
type Kind uint8

const (
	// Real builds genuine key material and Merkle trees.
	Real Kind = iota

	// Phony keeps genuine one-time keys but fabricates authentication paths.
	Phony
)

// String returns the tag used in logs and cache artifact names.
func (k Kind) String() string {
	switch k {
	case Real:
		return "real"
	case Phony:
		return "phony"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses a strategy tag.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "real":
		return Real, nil
	case "phony":
		return Phony, nil
	default:
		return 0, fmt.Errorf("unknown key material strategy %q", s)
	}
}
