package device

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietContext(t testing.TB, opts ...Option) *Context {
	t.Helper()
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	ctx := NewContext(append([]Option{WithLogger(l)}, opts...)...)
	t.Cleanup(ctx.Destroy)
	return ctx
}

func mallocOrFail(t testing.TB, ctx *Context, size int) DevicePtr {
	t.Helper()
	ptr, err := ctx.Malloc(size)
	require.NoError(t, err, "allocate %d bytes", size)
	return ptr
}

func TestMemoryAllocation(t *testing.T) {
	ctx := quietContext(t)

	for _, n := range []int{1, 100, 1000, 100000} {
		ptr := mallocOrFail(t, ctx, n*4)
		data := ptr.Float32()
		require.Len(t, data, n)
		for i := range data {
			data[i] = float32(i)
		}
		assert.Equal(t, float32(n-1), data[n-1])
		require.NoError(t, ctx.Free(ptr))
	}

	allocated, peak := ctx.MemoryStats()
	assert.Zero(t, allocated)
	assert.Positive(t, peak)
}

func TestMallocInvalidSize(t *testing.T) {
	ctx := quietContext(t)
	_, err := ctx.Malloc(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	assert.True(t, IsInvalidArgError(err))
}

func TestFreeErrors(t *testing.T) {
	ctx := quietContext(t)

	assert.NoError(t, ctx.Free(DevicePtr{}), "zero pointer is a no-op")

	ptr := mallocOrFail(t, ctx, 64)
	require.NoError(t, ctx.Free(ptr))
	assert.ErrorIs(t, ctx.Free(ptr), ErrDoubleFree)
}

func TestMemoryLimit(t *testing.T) {
	ctx := quietContext(t, WithMemoryLimit(1024))
	assert.EqualValues(t, 1024, ctx.Device().TotalMem)

	a := mallocOrFail(t, ctx, 512)
	_ = mallocOrFail(t, ctx, 512)

	_, err := ctx.Malloc(64)
	require.Error(t, err)
	assert.True(t, IsMemoryError(err))

	// freed blocks are reused and zeroed
	a.Bytes()[0] = 7
	require.NoError(t, ctx.Free(a))
	b := mallocOrFail(t, ctx, 256)
	assert.Equal(t, byte(0), b.Bytes()[0])
}

func TestMemcpyRoundTrip(t *testing.T) {
	ctx := quietContext(t)

	hostIDs := []uint32{1, 2, 3, 470000000}
	hostStrips := []uint16{10, 11, 12, 65535}
	hostBad := []bool{false, true, false, true}

	dIDs := mallocOrFail(t, ctx, len(hostIDs)*4)
	dStrips := mallocOrFail(t, ctx, len(hostStrips)*2)
	dBad := mallocOrFail(t, ctx, len(hostBad))

	require.NoError(t, ctx.Memcpy(dIDs, hostIDs, len(hostIDs)*4, MemcpyHostToDevice))
	require.NoError(t, ctx.Memcpy(dStrips, hostStrips, len(hostStrips)*2, MemcpyHostToDevice))
	require.NoError(t, ctx.Memcpy(dBad, hostBad, len(hostBad), MemcpyHostToDevice))

	assert.Equal(t, hostIDs, dIDs.Uint32())
	assert.Equal(t, hostStrips, dStrips.Uint16())
	assert.Equal(t, hostBad, dBad.Bool())

	back := make([]uint16, len(hostStrips))
	require.NoError(t, ctx.Memcpy(back, dStrips, len(back)*2, MemcpyDeviceToHost))
	assert.Equal(t, hostStrips, back)
}

func TestMemcpyRejectsOversizedCopy(t *testing.T) {
	ctx := quietContext(t)
	d := mallocOrFail(t, ctx, 8)

	err := ctx.Memcpy(d, make([]float32, 4), 16, MemcpyHostToDevice)
	require.Error(t, err)
	assert.True(t, IsInvalidArgError(err))

	err = ctx.Memcpy(d, []string{"x"}, 1, MemcpyHostToDevice)
	assert.True(t, IsInvalidArgError(err))
}

func TestKernelLaunch(t *testing.T) {
	ctx := quietContext(t)
	s := ctx.CreateStream()

	const n = 10000
	d := mallocOrFail(t, ctx, n*4)
	out := d.Int32()

	grid, block := GridFor(n)
	err := ctx.LaunchFuncStream(func(tid ThreadID, args ...interface{}) {
		i := tid.Global()
		if i < args[0].(int) {
			out[i] = int32(i) * 2
		}
	}, grid, block, s, n)
	require.NoError(t, err)
	require.NoError(t, s.Synchronize())

	for i := 0; i < n; i++ {
		if out[i] != int32(i)*2 {
			t.Fatalf("out[%d] = %d", i, out[i])
		}
	}
}

func TestLaunchValidation(t *testing.T) {
	ctx := quietContext(t)
	s := ctx.CreateStream()
	noop := func(ThreadID, ...interface{}) {}

	err := ctx.LaunchFuncStream(noop, Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 2048, Y: 1, Z: 1}, s)
	assert.True(t, IsInvalidArgError(err))

	err = ctx.LaunchFuncStream(noop, Dim3{X: -1, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1}, s)
	assert.True(t, IsInvalidArgError(err))

	// an empty grid keeps stream order
	require.NoError(t, ctx.LaunchFuncStream(noop, Dim3{}, Dim3{X: 1, Y: 1, Z: 1}, s))
	assert.NoError(t, s.Synchronize())
}

func TestStreamOrdering(t *testing.T) {
	ctx := quietContext(t)
	s := ctx.CreateStream()

	var seq []int
	for i := 0; i < 50; i++ {
		s.Submit(func() { seq = append(seq, i) })
	}
	require.NoError(t, s.Synchronize())
	require.Len(t, seq, 50)
	for i, v := range seq {
		assert.Equal(t, i, v)
	}
}

func TestKernelPanicIsSticky(t *testing.T) {
	ctx := quietContext(t)
	bad := ctx.CreateStream()
	good := ctx.CreateStream()

	grid, block := GridFor(4)
	require.NoError(t, ctx.LaunchFuncStream(func(tid ThreadID, args ...interface{}) {
		var empty []int
		_ = empty[tid.Global()]
	}, grid, block, bad))

	var after, other atomic.Bool
	bad.Submit(func() { after.Store(true) })
	good.Submit(func() { other.Store(true) })

	err := ctx.Synchronize()
	require.Error(t, err)
	assert.True(t, IsExecutionError(err))
	assert.False(t, after.Load(), "work after a failure is skipped")
	assert.True(t, other.Load(), "other streams are unaffected")
	assert.NoError(t, good.Synchronize())
}

func TestAsyncCopyAndEvents(t *testing.T) {
	ctx := quietContext(t)
	s := ctx.CreateStream()

	src := []float32{1, 2, 3, 4}
	d := mallocOrFail(t, ctx, 16)
	dst := make([]float32, 4)

	start := s.RecordEvent()
	require.NoError(t, ctx.MemcpyAsync(d, src, 16, MemcpyHostToDevice, s))
	require.NoError(t, ctx.MemcpyAsync(dst, d, 16, MemcpyDeviceToHost, s))
	end := s.RecordEvent()

	require.NoError(t, ctx.Synchronize())
	assert.Equal(t, src, dst)

	elapsed, err := ElapsedTime(start, end)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, int64(elapsed), int64(0))

	_, err = ElapsedTime(&Event{}, end)
	assert.ErrorIs(t, err, ErrEventNotReady)
}

func TestDestroyedStreamRejectsWork(t *testing.T) {
	ctx := quietContext(t)
	s := ctx.CreateStream()
	ctx.DestroyStream(s)

	s.Submit(func() {})
	assert.ErrorIs(t, s.Synchronize(), ErrStreamClosed)
}

func TestCPUInfo(t *testing.T) {
	assert.NotEmpty(t, CPUInfo())
	assert.Equal(t, CPUInfo(), NewContext().Device().Features)
}

// Benchmark kernel launch overhead
func BenchmarkKernelLaunchOverhead(b *testing.B) {
	ctx := quietContext(b)
	s := ctx.CreateStream()
	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {})

	for _, gridSize := range []int{1, 10, 100, 1000} {
		b.Run(fmt.Sprintf("Grid_%d", gridSize), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if err := ctx.LaunchFuncStream(kernel, Dim3{X: gridSize, Y: 1, Z: 1}, Dim3{X: DefaultBlockSize, Y: 1, Z: 1}, s); err != nil {
					b.Fatal(err)
				}
				if err := s.Synchronize(); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(b.N)/b.Elapsed().Seconds(), "launches/sec")
		})
	}
}
