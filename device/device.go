// Package device provides a CUDA-style execution runtime backed by the CPU.
// It mirrors the stream model of a GPU: work submitted to one stream runs in
// order, work on different streams runs concurrently, and the host blocks only
// when it synchronizes.
//
// Example usage:
//
//	ctx := device.NewContext()
//	defer ctx.Destroy()
//
//	s := ctx.CreateStream()
//	d_adc, _ := ctx.Malloc(n * 2)
//	defer ctx.Free(d_adc)
//
//	ctx.MemcpyAsync(d_adc, h_adc, n*2, device.MemcpyHostToDevice, s)
//	grid, block := device.GridFor(n)
//	ctx.LaunchFuncStream(myKernel, grid, block, s, d_adc, n)
//	if err := ctx.Synchronize(); err != nil {
//		return err
//	}
package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Device represents a compute device. Here it is the host CPU with its
// cores and the memory budget granted to the context.
type Device struct {
	ID         int    // Unique device identifier
	Name       string // Human-readable device name
	TotalMem   uint64 // Bytes the memory pool may hand out, 0 for unlimited
	NumCores   int    // Number of CPU cores
	MaxThreads int    // Maximum concurrent threads
	Features   string // Instruction set extensions detected at startup
}

// Context represents an execution context. It owns the device memory pool
// and every stream created through it. A Context should be destroyed when
// no longer needed.
type Context struct {
	device   *Device
	mu       sync.Mutex
	streams  map[int]*Stream
	streamID int32
	memory   *MemoryPool
	logger   logrus.FieldLogger
}

// Option configures a Context.
type Option func(*Context)

// WithMemoryLimit caps the number of bytes the context may allocate.
func WithMemoryLimit(bytes int64) Option {
	return func(ctx *Context) {
		ctx.memory.limit = bytes
		if bytes > 0 {
			ctx.device.TotalMem = uint64(bytes)
		}
	}
}

// WithLogger sets the logger used for stream diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(ctx *Context) {
		if l != nil {
			ctx.logger = l
		}
	}
}

// Stream represents an ordered sequence of operations that execute
// asynchronously. Operations within a stream execute in order, but
// operations in different streams may execute concurrently.
//
// The first failure on a stream is sticky: it is returned by Synchronize and
// every operation queued after it is skipped.
type Stream struct {
	id     int
	tasks  chan func()
	done   chan struct{}
	wg     sync.WaitGroup
	logger logrus.FieldLogger

	mu     sync.Mutex
	err    error
	closed bool
}

// Dim3 represents 3D dimensions for grid and block configurations.
type Dim3 struct {
	X, Y, Z int
}

// ThreadID identifies a thread's position within the execution hierarchy,
// with the same indexing semantics as blockIdx, threadIdx, blockDim and
// gridDim.
type ThreadID struct {
	BlockIdx  Dim3
	ThreadIdx Dim3
	BlockDim  Dim3
	GridDim   Dim3
}

// KernelFunc is a function that can be launched as a kernel.
// It is called concurrently from multiple goroutines.
type KernelFunc func(tid ThreadID, args ...interface{})

// NewContext creates an execution context on the host CPU.
func NewContext(opts ...Option) *Context {
	ctx := &Context{
		device: &Device{
			ID:         0,
			Name:       "CPU",
			NumCores:   runtime.NumCPU(),
			MaxThreads: runtime.NumCPU() * 2,
			Features:   CPUInfo(),
		},
		streams: make(map[int]*Stream),
		memory:  NewMemoryPool(),
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	return ctx
}

// Device returns the properties of the context's device.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// MemoryStats returns bytes currently allocated and the peak.
func (ctx *Context) MemoryStats() (allocated, peak int64) {
	return ctx.memory.GetStats()
}

// CreateStream creates a new execution stream
func (ctx *Context) CreateStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streamID, 1))
	stream := &Stream{
		id:     id,
		tasks:  make(chan func(), 1000),
		done:   make(chan struct{}),
		logger: ctx.logger,
	}

	go stream.worker()

	ctx.mu.Lock()
	ctx.streams[id] = stream
	ctx.mu.Unlock()
	return stream
}

// DestroyStream waits for the stream to drain and stops its worker.
func (ctx *Context) DestroyStream(s *Stream) {
	ctx.mu.Lock()
	delete(ctx.streams, s.id)
	ctx.mu.Unlock()
	s.close()
}

// Synchronize waits for all streams to complete and returns the joined
// errors of every failed stream.
func (ctx *Context) Synchronize() error {
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, s := range ctx.streams {
		streams = append(streams, s)
	}
	ctx.mu.Unlock()

	var errs []error
	for _, s := range streams {
		if err := s.Synchronize(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Destroy stops every stream. Memory still held by the pool is dropped.
func (ctx *Context) Destroy() {
	ctx.mu.Lock()
	streams := ctx.streams
	ctx.streams = make(map[int]*Stream)
	ctx.mu.Unlock()

	for _, s := range streams {
		s.close()
	}
	ctx.memory.reset()
}

// Stream methods

// ID returns the stream identifier.
func (s *Stream) ID() int {
	return s.id
}

// worker processes tasks for a stream
func (s *Stream) worker() {
	for task := range s.tasks {
		s.run(task)
		s.wg.Done()
	}
	close(s.done)
}

func (s *Stream) run(task func()) {
	if s.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.fail(NewExecutionError("Stream", fmt.Sprintf("stream %d: %v", s.id, r), nil))
		}
	}()
	task()
}

// fail records the first error seen on the stream.
func (s *Stream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = err
	s.logger.WithField("stream", s.id).WithError(err).Warn("stream failed")
}

// Err returns the sticky stream error, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Synchronize waits for all tasks in the stream to complete
func (s *Stream) Synchronize() error {
	s.wg.Wait()
	return s.Err()
}

// Submit adds a task to the stream. Submitting to a destroyed stream marks
// the stream failed instead of panicking.
func (s *Stream) Submit(task func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.fail(ErrStreamClosed)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	s.tasks <- task
}

func (s *Stream) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	close(s.tasks)
	<-s.done
}

// Helper functions

// Global returns the global thread index
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// Size returns the total number of elements
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// GridFor returns a 1-D launch configuration covering n threads with
// DefaultBlockSize threads per block.
func GridFor(n int) (grid, block Dim3) {
	block = Dim3{X: DefaultBlockSize, Y: 1, Z: 1}
	grid = Dim3{X: (n + DefaultBlockSize - 1) / DefaultBlockSize, Y: 1, Z: 1}
	return grid, block
}
