package scene

// Handle encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. The generation increments on destroy so stale handles
// never resolve again. Index 0 is never issued; the zero Handle means "none".
type Handle uint64

func newHandle(index uint32, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }
func (h Handle) IsZero() bool       { return h == 0 }

// handleTable issues handles with generational indices and a free list.
type handleTable struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func newHandleTable() handleTable {
	return handleTable{
		generations: make([]uint32, 1, 1024), // slot 0 reserved
		freeList:    make([]uint32, 0, 256),
		nextIndex:   1,
	}
}

func (t *handleTable) create() Handle {
	if n := len(t.freeList); n > 0 {
		idx := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		return newHandle(idx, t.generations[idx])
	}
	idx := t.nextIndex
	t.nextIndex++
	t.generations = append(t.generations, 0)
	return newHandle(idx, 0)
}

func (t *handleTable) alive(h Handle) bool {
	idx := h.Index()
	if idx == 0 || idx >= t.nextIndex {
		return false
	}
	return t.generations[idx] == h.Generation()
}

func (t *handleTable) release(h Handle) bool {
	if !t.alive(h) {
		return false
	}
	idx := h.Index()
	t.generations[idx]++
	t.freeList = append(t.freeList, idx)
	return true
}
