// Package materialize turns lazily produced values into grounded sequences
// that can be formatted and re-read any number of times.
package materialize

import (
	"iter"

	"xsltrace/internal/probe"
	"xsltrace/internal/xdm"
)

// MaxDepth bounds how many indirections Deep follows.
const MaxDepth = 6

// Materialize grounds source without probing it. It returns nil when source
// is not a recognizable producer of items, or when draining it failed.
func Materialize(source any) *xdm.Sequence {
	switch v := source.(type) {
	case nil:
		return nil
	case *xdm.Sequence:
		return v
	case xdm.Iterator:
		return Drain(v)
	case xdm.Item:
		if probe.IsNil(v) {
			return nil
		}
		return xdm.Singleton(v)
	case []xdm.Item:
		return collect(func(yield func(any) bool) {
			for _, it := range v {
				if !yield(it) {
					return
				}
			}
		})
	case []any:
		return collect(func(yield func(any) bool) {
			for _, it := range v {
				if !yield(it) {
					return
				}
			}
		})
	case iter.Seq[xdm.Item]:
		return collect(func(yield func(any) bool) {
			for it := range v {
				if !yield(it) {
					return
				}
			}
		})
	}
	return nil
}

// Drain pulls every item out of it and releases it exactly once, whatever
// the outcome. A failure while draining yields nil, never a partial sequence.
// An iterator with no items yields a present, empty sequence.
func Drain(it xdm.Iterator) (seq *xdm.Sequence) {
	if probe.IsNil(it) {
		return nil
	}
	defer func() {
		if recover() != nil {
			seq = nil
		}
		_ = it.Close()
	}()
	var items []xdm.Item
	for {
		item, err := it.Next()
		if err != nil {
			return nil
		}
		if item == nil {
			break
		}
		items = append(items, item)
	}
	return xdm.NewSequence(items...)
}

// collect keeps the non-nil items of an array-like source. Elements that are
// not items are skipped. An empty result is reported as absent.
func collect(each iter.Seq[any]) *xdm.Sequence {
	var items []xdm.Item
	for el := range each {
		if it, ok := el.(xdm.Item); ok && !probe.IsNil(it) {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return xdm.NewSequence(items...)
}
