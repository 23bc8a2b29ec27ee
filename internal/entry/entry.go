package entry

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a catalogue entry. The value is the single
// letter written to the catalogue file.
type Kind byte

const (
	Base      Kind = 'B'
	Root      Kind = 'R'
	Directory Kind = 'D'
	File      Kind = 'F'
	Symlink   Kind = 'S'
)

var kindNames = map[Kind]string{
	Base:      "Base",
	Root:      "Root",
	Directory: "Directory",
	File:      "File",
	Symlink:   "Symlink",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%q)", rune(k))
}

// Valid reports whether k is one of the five known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind decodes the kind letter of a catalogue record.
func ParseKind(s string) (Kind, bool) {
	if len(s) != 1 {
		return 0, false
	}
	k := Kind(s[0])
	return k, k.Valid()
}

// Entry is one record of a catalogue. Payload is an absolute path for Base
// and Root entries and a bare name for everything else.
type Entry struct {
	Payload string
	Index   int64
	Kind    Kind
}

// Printable returns p with invalid UTF-8 sequences replaced, for use in logs
// and reports. Catalogue payloads themselves keep their raw bytes.
func Printable(p string) string {
	return strings.ToValidUTF8(p, "�")
}
