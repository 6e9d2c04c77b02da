// Package guid implements the 16-byte opaque player identity used to key
// every lobby and wire-protocol structure.
package guid

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Size is the byte length of a Guid.
const Size = 16

// Guid is a 16-byte opaque identity of a player profile. Equality and
// ordering are bytewise. The zero value is a valid "server" sender.
type Guid [Size]byte

// Zero is the default/server Guid, used as the sender id of packets the
// coordinator originates rather than relays.
var Zero Guid

// String renders the Guid as lowercase hex with dashes after bytes 4/6/8/10,
// e.g. "01020304-0506-0708-090a-0b0c0d0e0f10".
func (g Guid) String() string {
	var b strings.Builder
	b.Grow(36)
	for i, by := range g {
		fmt.Fprintf(&b, "%02x", by)
		switch i {
		case 3, 5, 7, 9:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Parse decodes the textual form produced by String (dashes optional).
func Parse(s string) (Guid, error) {
	stripped := strings.ReplaceAll(s, "-", "")
	raw, err := hex.DecodeString(stripped)
	if err != nil {
		return Guid{}, fmt.Errorf("parsing guid %q: %w", s, err)
	}
	if len(raw) != Size {
		return Guid{}, fmt.Errorf("parsing guid %q: want %d bytes, got %d", s, Size, len(raw))
	}
	var g Guid
	copy(g[:], raw)
	return g, nil
}

// MarshalText implements encoding.TextMarshaler so Guid can be embedded
// directly in YAML settings (ban lists, flip lists).
func (g Guid) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Guid) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Less reports whether g sorts before other, bytewise.
func (g Guid) Less(other Guid) bool {
	for i := range g {
		if g[i] != other[i] {
			return g[i] < other[i]
		}
	}
	return false
}

// Set is an unordered collection of Guids, the shape settings like
// flip.players and ban_list.players take (spec.md §6). It marshals to
// and from a plain YAML list of strings rather than relying on Guid as
// a map key, since YAML mapping keys are conventionally scalars.
type Set map[Guid]struct{}

// Contains reports whether id is a member of s. A nil Set contains nothing.
func (s Set) Contains(id Guid) bool {
	_, ok := s[id]
	return ok
}

// MarshalYAML renders the set as a sorted list of dashed hex strings.
func (s Set) MarshalYAML() (interface{}, error) {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out, nil
}

// UnmarshalYAML decodes a YAML list of dashed hex strings into a Set.
func (s *Set) UnmarshalYAML(node *yaml.Node) error {
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	out := make(Set, len(list))
	for _, raw := range list {
		id, err := Parse(raw)
		if err != nil {
			return err
		}
		out[id] = struct{}{}
	}
	*s = out
	return nil
}
