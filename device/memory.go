package device

import (
	"fmt"
	"sync"
	"unsafe"
)

// MemcpyKind specifies the direction of memory transfer.
// All memory is host memory, so the kinds only document intent.
type MemcpyKind int

const (
	MemcpyHostToHost     MemcpyKind = iota // Host to host transfer
	MemcpyHostToDevice                     // Host to device transfer
	MemcpyDeviceToHost                     // Device to host transfer
	MemcpyDeviceToDevice                   // Device to device transfer
)

// String returns the conventional short name of the transfer direction.
func (k MemcpyKind) String() string {
	switch k {
	case MemcpyHostToHost:
		return "HtoH"
	case MemcpyHostToDevice:
		return "HtoD"
	case MemcpyDeviceToHost:
		return "DtoH"
	case MemcpyDeviceToDevice:
		return "DtoD"
	default:
		return "unknown"
	}
}

// MemoryPool manages device memory allocation with efficient reuse.
// It maintains a free list of previously allocated blocks to reduce
// allocation overhead.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
	limit      int64
}

type allocation struct {
	buf  []uint64 // backing store, 8-byte aligned
	ptr  unsafe.Pointer
	size int
	used bool
}

// DevicePtr represents a pointer to device memory. Use the typed views
// (Float32, Uint16, ...) to access the underlying data.
type DevicePtr struct {
	ptr  unsafe.Pointer
	size int
}

// NewMemoryPool creates a new memory pool.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
	}
}

// Malloc allocates device memory of the specified size in bytes.
func (ctx *Context) Malloc(size int) (DevicePtr, error) {
	return ctx.memory.Allocate(size)
}

// Free releases device memory allocated by Malloc.
// It is safe to call Free with a zero DevicePtr.
func (ctx *Context) Free(ptr DevicePtr) error {
	if ptr.ptr == nil {
		return nil
	}
	return ctx.memory.Free(ptr)
}

// Memcpy copies memory between host and device synchronously.
// dst and src may be a DevicePtr or one of the supported slice types.
func (ctx *Context) Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	d, s, err := resolveCopy(dst, src, size, kind)
	if err != nil {
		return err
	}
	copyBytes(d, s, size)
	return nil
}

// MemcpyAsync validates the transfer and queues it on the stream.
func (ctx *Context) MemcpyAsync(dst, src interface{}, size int, kind MemcpyKind, stream *Stream) error {
	d, s, err := resolveCopy(dst, src, size, kind)
	if err != nil {
		return err
	}
	stream.Submit(func() {
		copyBytes(d, s, size)
	})
	return nil
}

func resolveCopy(dst, src interface{}, size int, kind MemcpyKind) (unsafe.Pointer, unsafe.Pointer, error) {
	op := "Memcpy" + kind.String()
	if size < 0 {
		return nil, nil, NewInvalidArgError(op, fmt.Sprintf("negative size %d", size))
	}
	d, dn, err := addressOf(op, "dst", dst)
	if err != nil {
		return nil, nil, err
	}
	s, sn, err := addressOf(op, "src", src)
	if err != nil {
		return nil, nil, err
	}
	if size > dn || size > sn {
		return nil, nil, NewInvalidArgError(op,
			fmt.Sprintf("copy of %d bytes exceeds buffer (dst %d, src %d)", size, dn, sn))
	}
	return d, s, nil
}

// addressOf returns the base address and byte length of a copy operand.
func addressOf(op, role string, v interface{}) (unsafe.Pointer, int, error) {
	switch b := v.(type) {
	case DevicePtr:
		return b.ptr, b.size, nil
	case []byte:
		return unsafe.Pointer(unsafe.SliceData(b)), len(b), nil
	case []bool:
		return unsafe.Pointer(unsafe.SliceData(b)), len(b), nil
	case []uint16:
		return unsafe.Pointer(unsafe.SliceData(b)), len(b) * 2, nil
	case []uint32:
		return unsafe.Pointer(unsafe.SliceData(b)), len(b) * 4, nil
	case []int32:
		return unsafe.Pointer(unsafe.SliceData(b)), len(b) * 4, nil
	case []float32:
		return unsafe.Pointer(unsafe.SliceData(b)), len(b) * 4, nil
	default:
		return nil, 0, NewInvalidArgError(op, fmt.Sprintf("unsupported %s type: %T", role, v))
	}
}

func copyBytes(dst, src unsafe.Pointer, size int) {
	if dst == nil || src == nil || size == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}

// MemoryPool methods

// Allocate allocates memory from the pool
func (mp *MemoryPool) Allocate(size int) (DevicePtr, error) {
	if size <= 0 {
		return DevicePtr{}, ErrInvalidSize
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	const alignment = MemoryAlignment
	alignedSize := (size + alignment - 1) &^ (alignment - 1)

	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize {
			if mp.limit > 0 && mp.totalAlloc+int64(alloc.size) > mp.limit {
				break
			}
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true
			clear(alloc.buf)
			mp.track(int64(alloc.size))
			return DevicePtr{ptr: alloc.ptr, size: size}, nil
		}
	}

	if mp.limit > 0 && mp.totalAlloc+int64(alignedSize) > mp.limit {
		return DevicePtr{}, NewMemoryError("Malloc",
			fmt.Sprintf("out of memory: %d bytes requested, %d of %d in use", alignedSize, mp.totalAlloc, mp.limit), nil)
	}

	buf := make([]uint64, alignedSize/8)
	alloc := &allocation{
		buf:  buf,
		ptr:  unsafe.Pointer(&buf[0]),
		size: alignedSize,
		used: true,
	}
	mp.allocated[uintptr(alloc.ptr)] = alloc
	mp.track(int64(alignedSize))

	return DevicePtr{ptr: alloc.ptr, size: size}, nil
}

func (mp *MemoryPool) track(n int64) {
	mp.totalAlloc += n
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
}

// Free returns memory to the pool
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok {
		return NewMemoryError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	return nil
}

// GetStats returns memory pool statistics
func (mp *MemoryPool) GetStats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

func (mp *MemoryPool) reset() {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.allocated = make(map[uintptr]*allocation)
	mp.freeList = nil
	mp.totalAlloc = 0
}

// DevicePtr views

// Bytes returns a byte view of the device memory.
func (d DevicePtr) Bytes() []byte {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// Bool returns a bool view of the device memory, one byte per element.
func (d DevicePtr) Bool() []bool {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*bool)(d.ptr), d.size)
}

// Uint16 returns a uint16 view of the device memory.
func (d DevicePtr) Uint16() []uint16 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*uint16)(d.ptr), d.size/2)
}

// Uint32 returns a uint32 view of the device memory.
func (d DevicePtr) Uint32() []uint32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*uint32)(d.ptr), d.size/4)
}

// Int32 returns an int32 view of the device memory.
func (d DevicePtr) Int32() []int32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*int32)(d.ptr), d.size/4)
}

// Float32 returns a float32 view of the device memory.
func (d DevicePtr) Float32() []float32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(d.ptr), d.size/4)
}

// Size returns the size in bytes of the memory region
func (d DevicePtr) Size() int {
	return d.size
}

// IsNil reports whether the pointer refers to no allocation.
func (d DevicePtr) IsNil() bool {
	return d.ptr == nil
}
