package xdm

// Iterator is a pull-based producer of items. Next returns (nil, nil) once the
// items are exhausted. Close releases whatever backs the iterator.
type Iterator interface {
	Next() (Item, error)
	Close() error
}

type sliceIterator struct {
	items []Item
	pos   int
}

// SliceIterator iterates over a fixed list of items.
func SliceIterator(items ...Item) Iterator {
	return &sliceIterator{items: items}
}

func (it *sliceIterator) Next() (Item, error) {
	if it.pos >= len(it.items) {
		return nil, nil
	}
	item := it.items[it.pos]
	it.pos++
	return item, nil
}

func (it *sliceIterator) Close() error {
	it.pos = len(it.items)
	return nil
}

// FuncIterator adapts a next function and a release hook.
type FuncIterator struct {
	NextFunc  func() (Item, error)
	CloseFunc func() error
}

func (it *FuncIterator) Next() (Item, error) {
	if it.NextFunc == nil {
		return nil, nil
	}
	return it.NextFunc()
}

func (it *FuncIterator) Close() error {
	if it.CloseFunc == nil {
		return nil
	}
	return it.CloseFunc()
}
