package mapping

// GroupedEntry bundles every target position supplied by one source cell.
type GroupedEntry[T any] struct {
	I, J        int
	SourceIndex int64
	Targets     []T
}

// Scanline bundles the grouped entries of one source row, in increasing i.
type Scanline[T any] struct {
	J    int
	MinI int
	MaxI int

	Entries []GroupedEntry[T]
}

// Width returns the number of source cells spanned by the row segment.
func (s Scanline[T]) Width() int { return s.MaxI - s.MinI + 1 }

// EntryIterator walks the grouped entries of a sorted mapper.
//
// Usage:
//
//	it := m.Entries()
//	for it.Next() {
//	    e := it.Entry()
//	    // ...
//	}
//	if err := it.Err(); err != nil {
//	    // handle error
//	}
type EntryIterator[T any] struct {
	m   *DomainMapper[T]
	pos int
	cur GroupedEntry[T]
	err error
}

// Entries returns a single-pass iterator over grouped entries in
// increasing source index. Each call starts a fresh pass.
func (m *DomainMapper[T]) Entries() *EntryIterator[T] {
	it := &EntryIterator[T]{m: m}
	if !m.sorted {
		it.err = ErrNotSorted
	}
	return it
}

// Next advances to the next grouped entry.
func (it *EntryIterator[T]) Next() bool {
	if it.err != nil || it.pos >= it.m.Len() {
		return false
	}

	m := it.m
	src := m.source.At(it.pos)
	end := it.pos + 1
	for end < m.Len() && m.source.At(end) == src {
		end++
	}

	targets := make([]T, 0, end-it.pos)
	for k := it.pos; k < end; k++ {
		targets = append(targets, m.convert(m.target.At(k)))
	}

	w := int64(m.sourceWidth)
	it.cur = GroupedEntry[T]{
		I:           int(src % w),
		J:           int(src / w),
		SourceIndex: src,
		Targets:     targets,
	}
	it.pos = end
	return true
}

// Entry returns the current grouped entry.
func (it *EntryIterator[T]) Entry() GroupedEntry[T] { return it.cur }

// Err returns the error that stopped iteration, if any.
func (it *EntryIterator[T]) Err() error { return it.err }

// ScanlineIterator walks the source rows of a sorted mapper.
type ScanlineIterator[T any] struct {
	entries *EntryIterator[T]
	pending *GroupedEntry[T]
	cur     Scanline[T]
}

// Scanlines returns a single-pass iterator over source rows in increasing j.
func (m *DomainMapper[T]) Scanlines() *ScanlineIterator[T] {
	return &ScanlineIterator[T]{entries: m.Entries()}
}

// Next advances to the next scanline.
func (it *ScanlineIterator[T]) Next() bool {
	var first GroupedEntry[T]
	switch {
	case it.pending != nil:
		first = *it.pending
		it.pending = nil
	case it.entries.Next():
		first = it.entries.Entry()
	default:
		return false
	}

	line := Scanline[T]{J: first.J, MinI: first.I, MaxI: first.I, Entries: []GroupedEntry[T]{first}}
	for it.entries.Next() {
		e := it.entries.Entry()
		if e.J != line.J {
			it.pending = &e
			break
		}
		line.Entries = append(line.Entries, e)
		line.MaxI = e.I
	}
	it.cur = line
	return true
}

// Scanline returns the current scanline.
func (it *ScanlineIterator[T]) Scanline() Scanline[T] { return it.cur }

// Err returns the error that stopped iteration, if any.
func (it *ScanlineIterator[T]) Err() error { return it.entries.Err() }
