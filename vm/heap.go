package vm

import (
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Heap: handle arena with mark/sweep collection
// ---------------------------------------------------------------------------

// HeapObject is anything the heap can hold.
type HeapObject interface {
	Kind() Kind
	trace(t *Tracer)
}

// RootSet is a source of references outside the heap. The VM registers
// itself at construction; executors register their operand stacks.
type RootSet interface {
	TraceRoots(t *Tracer)
}

// Approximate block sizes used for usage accounting.
const (
	sizeObject   = 64
	sizeProperty = 48
	sizeString   = 24
	sizeValue    = 8
)

type heapCell struct {
	obj    HeapObject
	size   uint64
	noScan bool
	marked bool
}

// Heap owns every object reachable from script values. Values refer to
// cells by handle, which keeps the objects visible to Go's collector while
// the NaN-boxed word itself stays pointer-free.
type Heap struct {
	cells []heapCell
	free  []uint64
	usage uint64
	limit uint64
	roots []RootSet
	epoch uint32
	log   commonlog.Logger
}

// NewHeap creates a heap. A limit of 0 disables the usage ceiling.
func NewHeap(limit uint64) *Heap {
	return &Heap{
		cells: make([]heapCell, FirstHandle, 256),
		limit: limit,
		log:   commonlog.GetLogger("jsos.heap"),
	}
}

// Alloc stores obj in a block that may contain references.
func (h *Heap) Alloc(obj HeapObject, size uint64) Value {
	return h.alloc(obj, size, false)
}

// AllocNoScan stores obj in a block the collector will not scan. Only
// objects that hold no Values (string bytes) may be allocated this way;
// anything reachable solely through a no-scan block is reclaimed.
func (h *Heap) AllocNoScan(obj HeapObject, size uint64) Value {
	return h.alloc(obj, size, true)
}

func (h *Heap) alloc(obj HeapObject, size uint64, noScan bool) Value {
	if h.limit > 0 && h.usage+size > h.limit {
		Panicf("out of memory: %d bytes in use, limit %d", h.usage, h.limit)
	}
	cell := heapCell{obj: obj, size: size, noScan: noScan}
	var handle uint64
	if n := len(h.free); n > 0 {
		handle = h.free[n-1]
		h.free = h.free[:n-1]
		h.cells[handle] = cell
	} else {
		handle = uint64(len(h.cells))
		if handle > MaxHandle {
			Panicf("heap handle space exhausted")
		}
		h.cells = append(h.cells, cell)
	}
	h.usage += size
	return fromHandle(handle)
}

// Resize adjusts the accounted size of the block behind v.
func (h *Heap) Resize(v Value, size uint64) {
	cell := h.cell(v)
	if size > cell.size && h.limit > 0 && h.usage+size-cell.size > h.limit {
		Panicf("out of memory: %d bytes in use, limit %d", h.usage, h.limit)
	}
	h.usage = h.usage - cell.size + size
	cell.size = size
}

// Deref returns the object named by v.
// Panics if v is not a live heap reference.
func (h *Heap) Deref(v Value) HeapObject {
	return h.cell(v).obj
}

func (h *Heap) cell(v Value) *heapCell {
	handle := v.Handle()
	if handle >= uint64(len(h.cells)) || h.cells[handle].obj == nil {
		Panicf("dangling heap reference %d", handle)
	}
	return &h.cells[handle]
}

// RegisterRoot adds a root set scanned by every collection.
func (h *Heap) RegisterRoot(r RootSet) {
	h.roots = append(h.roots, r)
}

// UnregisterRoot removes a previously registered root set.
func (h *Heap) UnregisterRoot(r RootSet) {
	for i, root := range h.roots {
		if root == r {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// Usage returns the number of accounted bytes currently allocated.
func (h *Heap) Usage() uint64 {
	return h.usage
}

// Live returns the number of live blocks.
func (h *Heap) Live() int {
	return len(h.cells) - int(FirstHandle) - len(h.free)
}

// Collect reclaims every block unreachable from the registered roots and
// returns the number of blocks freed. Values held only in Go locals are not
// roots, so callers must collect at points where every live value is
// reachable from a root set.
func (h *Heap) Collect() int {
	h.epoch++
	t := &Tracer{heap: h, epoch: h.epoch}
	for _, r := range h.roots {
		r.TraceRoots(t)
	}
	for len(t.work) > 0 {
		n := len(t.work) - 1
		obj := t.work[n]
		t.work = t.work[:n]
		obj.trace(t)
	}

	freed := 0
	before := h.usage
	for handle := FirstHandle; handle < uint64(len(h.cells)); handle++ {
		cell := &h.cells[handle]
		if cell.obj == nil {
			continue
		}
		if cell.marked {
			cell.marked = false
			continue
		}
		h.usage -= cell.size
		*cell = heapCell{}
		h.free = append(h.free, handle)
		freed++
	}
	h.log.Debugf("collected %d blocks, %d -> %d bytes", freed, before, h.usage)
	return freed
}

// ---------------------------------------------------------------------------
// Tracer
// ---------------------------------------------------------------------------

// Tracer marks reachable values during a collection.
type Tracer struct {
	heap  *Heap
	epoch uint32
	work  []HeapObject
}

// Mark records v as reachable.
func (t *Tracer) Mark(v Value) {
	if !v.IsHeap() {
		return
	}
	handle := v.Handle()
	if handle >= uint64(len(t.heap.cells)) {
		return
	}
	cell := &t.heap.cells[handle]
	if cell.obj == nil || cell.marked {
		return
	}
	cell.marked = true
	if !cell.noScan {
		t.work = append(t.work, cell.obj)
	}
}

// MarkAll records every value in vs as reachable.
func (t *Tracer) MarkAll(vs []Value) {
	for _, v := range vs {
		t.Mark(v)
	}
}

// MarkScope records a scope and its ancestors as reachable.
func (t *Tracer) MarkScope(s *Scope) {
	for ; s != nil; s = s.parent {
		if s.epoch == t.epoch {
			return
		}
		s.epoch = t.epoch
		t.Mark(s.callee)
		t.Mark(s.globalObject)
		t.MarkAll(s.locals)
	}
}
