package archive

import (
	"errors"

	"github.com/roach88/dbarchive/internal/schema"
)

// maxPrefixDepth bounds attribute nesting.
const maxPrefixDepth = 64

const (
	usedSuffix = "_used"
	msSuffix   = "_ms"
	oidSuffix  = "_oid"
)

var (
	errPrefixOverflow  = errors.New("attribute prefix nested too deeply")
	errPrefixUnderflow = errors.New("attribute prefix popped without push")
)

// attributePath tracks the prefix of nested attribute names. It is scratch
// state of a single serialization pass.
type attributePath struct {
	prefix string
	marks  []int
}

// push records a restore point and appends name. An empty name only records
// the restore point.
func (p *attributePath) push(name string) error {
	if len(p.marks) >= maxPrefixDepth {
		return errPrefixOverflow
	}
	p.marks = append(p.marks, len(p.prefix))
	if name != "" {
		if p.prefix != "" {
			p.prefix += schema.Separator
		}
		p.prefix += name
	}
	return nil
}

// pop restores the prefix recorded by the matching push.
func (p *attributePath) pop() error {
	if len(p.marks) == 0 {
		return errPrefixUnderflow
	}
	last := len(p.marks) - 1
	p.prefix = p.prefix[:p.marks[last]]
	p.marks = p.marks[:last]
	return nil
}

func (p *attributePath) depth() int {
	return len(p.marks)
}

// column returns the fully qualified column name of attribute name.
func (p *attributePath) column(name string) string {
	switch {
	case p.prefix == "":
		return name
	case name == "":
		return p.prefix
	default:
		return p.prefix + schema.Separator + name
	}
}
