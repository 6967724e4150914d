package common

// RollingIndex keeps the most recent items of a gapless sequence. It holds
// between size and 2*size items once full.
type RollingIndex[T any] struct {
	name      string
	size      int
	lastIndex uint64
	empty     bool
	items     []T
}

// NewRollingIndex returns a window holding the last size items.
func NewRollingIndex[T any](name string, size int) *RollingIndex[T] {
	if size < 1 {
		size = 1
	}
	return &RollingIndex[T]{
		name:  name,
		size:  size,
		items: make([]T, 0, 2*size),
		empty: true,
	}
}

// LastIndex is the index of the newest item. ok is false while empty.
func (r *RollingIndex[T]) LastIndex() (index uint64, ok bool) {
	return r.lastIndex, !r.empty
}

// GetLastWindow ...
func (r *RollingIndex[T]) GetLastWindow() (lastWindow []T, lastIndex uint64) {
	return r.items, r.lastIndex
}

func (r *RollingIndex[T]) oldest() uint64 {
	//assume there are no gaps between indexes
	return r.lastIndex + 1 - uint64(len(r.items))
}

// Since returns the items after skipIndex.
func (r *RollingIndex[T]) Since(skipIndex uint64) ([]T, error) {
	if r.empty || skipIndex >= r.lastIndex {
		return nil, nil
	}
	oldest := r.oldest()
	if skipIndex+1 < oldest {
		return nil, NewIndexErr(r.name, TooLate, skipIndex)
	}
	start := skipIndex + 1 - oldest
	out := make([]T, len(r.items)-int(start))
	copy(out, r.items[start:])
	return out, nil
}

// GetItem ...
func (r *RollingIndex[T]) GetItem(index uint64) (T, error) {
	var zero T
	if r.empty || index > r.lastIndex {
		return zero, NewIndexErr(r.name, KeyNotFound, index)
	}
	oldest := r.oldest()
	if index < oldest {
		return zero, NewIndexErr(r.name, TooLate, index)
	}
	return r.items[index-oldest], nil
}

// Set adds the item following the newest one or replaces a cached one.
func (r *RollingIndex[T]) Set(item T, index uint64) error {
	//only allow to setting items with index <= lastIndex + 1 so we may assume
	//there are no gaps between items
	if !r.empty && index > r.lastIndex+1 {
		return NewIndexErr(r.name, SkippedIndex, index)
	}

	//adding a new item
	if r.empty || index == r.lastIndex+1 {
		if len(r.items) >= 2*r.size {
			r.Roll()
		}
		r.items = append(r.items, item)
		r.lastIndex = index
		r.empty = false
		return nil
	}

	oldest := r.oldest()
	if index < oldest {
		return NewIndexErr(r.name, TooLate, index)
	}
	r.items[index-oldest] = item
	return nil
}

// Roll drops the oldest size items.
func (r *RollingIndex[T]) Roll() {
	newList := make([]T, 0, 2*r.size)
	newList = append(newList, r.items[r.size:]...)
	r.items = newList
}
