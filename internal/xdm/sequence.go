package xdm

import (
	"strings"
)

// Sequence is a grounded, ordered, immutable snapshot of items.
// A nil *Sequence means "no value"; an empty one is a present, empty value.
type Sequence struct {
	items []Item
}

// NewSequence snapshots items. Nil items are dropped.
func NewSequence(items ...Item) *Sequence {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	return &Sequence{items: out}
}

// Empty returns a present sequence of length zero.
func Empty() *Sequence {
	return &Sequence{}
}

// Singleton wraps one item.
func Singleton(it Item) *Sequence {
	return NewSequence(it)
}

// Len returns the number of items.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// At returns the i-th item.
func (s *Sequence) At(i int) Item {
	return s.items[i]
}

// Items returns a copy of the items.
func (s *Sequence) Items() []Item {
	if s == nil {
		return nil
	}
	return append([]Item(nil), s.items...)
}

// Iterate returns a fresh iterator over the snapshot.
func (s *Sequence) Iterate() Iterator {
	return SliceIterator(s.Items()...)
}

// Concat appends the items of other sequences.
func (s *Sequence) Concat(others ...*Sequence) *Sequence {
	items := s.Items()
	for _, o := range others {
		items = append(items, o.Items()...)
	}
	return &Sequence{items: items}
}

// StringValue joins the string values of the items with a single space,
// the way xsl:value-of renders a sequence.
func (s *Sequence) StringValue() string {
	if s.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.items))
	for _, it := range s.items {
		v, err := it.StringValue()
		if err != nil {
			v = it.String()
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

func (s *Sequence) String() string {
	if s.Len() == 0 {
		return "()"
	}
	parts := make([]string, 0, len(s.items))
	for _, it := range s.items {
		parts = append(parts, it.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
