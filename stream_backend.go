package stripclust

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LynnColeArt/stripclust/device"
)

// StreamBackend runs the clustering stages as device kernels, one stream
// per chunk. Each stream copies its chunk in, runs the five stages and
// copies the clusters back; streams overlap and the host waits for all of
// them at a single barrier.
type StreamBackend struct {
	cfg Config

	// wrapKernel, when set, decorates each kernel before launch.
	wrapKernel func(name string, fn device.KernelFunc) device.KernelFunc
}

// NewStreamBackend creates a device stream backend.
func NewStreamBackend(cfg Config) *StreamBackend {
	return &StreamBackend{cfg: cfg}
}

// Name returns the backend name.
func (b *StreamBackend) Name() string { return string(BackendStream) }

// streamJob owns the device buffers and stream of one chunk.
type streamJob struct {
	chunk  Chunk
	stream *device.Stream
	bufs   []device.DevicePtr

	nSeeds []int32 // host copy of the seed count
	status []int32 // host copy of per-cluster status
	events [8]*device.Event
}

// Run clusters every strip of store.
func (b *StreamBackend) Run(store *StripStore) (*Result, error) {
	start := time.Now()
	chunks := Partition(store, b.cfg.Partitions)
	res := newResult(b.Name(), store, chunks, b.cfg.MaxClusterWidth)
	log := passLogger(b.cfg, res)

	opts := []device.Option{device.WithLogger(log)}
	if b.cfg.DeviceMemoryMB > 0 {
		opts = append(opts, device.WithMemoryLimit(int64(b.cfg.DeviceMemoryMB)<<20))
	}
	ctx := device.NewContext(opts...)
	defer ctx.Destroy()

	var jobs []*streamJob
	defer func() {
		// queued work may still reference the buffers
		_ = ctx.Synchronize()
		for _, j := range jobs {
			j.release(ctx)
		}
	}()

	for _, c := range chunks {
		if c.Len() == 0 {
			continue
		}
		j := &streamJob{chunk: c, stream: ctx.CreateStream()}
		jobs = append(jobs, j)
		if err := b.enqueue(ctx, j, store, res); err != nil {
			return nil, NewDeviceError("enqueue", fmt.Sprintf("chunk %d", c.Index), err)
		}
	}

	if err := ctx.Synchronize(); err != nil {
		return nil, NewDeviceError("Synchronize", "stream failure", err)
	}

	var timer stageTimer
	for _, j := range jobs {
		if err := b.collect(j, store, res, &timer, log); err != nil {
			return nil, err
		}
	}

	res.Timing = timer.times()
	res.Timing.Total = time.Since(start)
	logSummary(log, res)
	return res, nil
}

func (j *streamJob) alloc(ctx *device.Context, size int) (device.DevicePtr, error) {
	p, err := ctx.Malloc(size)
	if err != nil {
		return p, err
	}
	j.bufs = append(j.bufs, p)
	return p, nil
}

func (j *streamJob) release(ctx *device.Context) {
	for _, p := range j.bufs {
		_ = ctx.Free(p)
	}
	j.bufs = nil
}

// enqueue issues the transfers and kernels of one chunk on its stream.
func (b *StreamBackend) enqueue(ctx *device.Context, j *streamJob, store *StripStore, res *Result) error {
	c := j.chunk
	n := c.Len()
	w := b.cfg.MaxClusterWidth
	th := b.cfg.Thresholds
	s := j.stream
	segments := (n + scanSegment - 1) / scanSegment

	type buf struct {
		ptr  *device.DevicePtr
		size int
	}
	var dDet, dStrip, dADC, dNoise, dGain, dBad device.DevicePtr
	var dSeed, dNC, dOffsets, dNSeeds, dSeedIndex, dLeft, dRight device.DevicePtr
	var dNoiseSq, dCharge, dAccepted, dStatus, dADCs device.DevicePtr
	for _, a := range []buf{
		{&dDet, n * 4}, {&dStrip, n * 2}, {&dADC, n * 2}, {&dNoise, n * 4}, {&dGain, n * 4}, {&dBad, n},
		{&dSeed, n}, {&dNC, n}, {&dOffsets, segments * 4}, {&dNSeeds, 4}, {&dSeedIndex, n * 4},
		{&dLeft, n * 4}, {&dRight, n * 4}, {&dNoiseSq, n * 4}, {&dCharge, n * 4}, {&dAccepted, n},
		{&dStatus, n * 4}, {&dADCs, n * w},
	} {
		p, err := j.alloc(ctx, a.size)
		if err != nil {
			return err
		}
		*a.ptr = p
	}

	v := stripView{
		detID:   dDet.Uint32(),
		stripID: dStrip.Uint16(),
		adc:     dADC.Uint16(),
		noise:   dNoise.Float32(),
		gain:    dGain.Float32(),
		bad:     dBad.Bool(),
	}
	host := store.view(c.Begin, c.End)
	region := res.Set.region(c)
	j.nSeeds = make([]int32, 1)
	j.status = make([]int32, n)

	copies := func(kind device.MemcpyKind, pairs ...[3]interface{}) error {
		for _, p := range pairs {
			if err := ctx.MemcpyAsync(p[0], p[1], p[2].(int), kind, s); err != nil {
				return err
			}
		}
		return nil
	}
	launch := func(name string, fn device.KernelFunc, grid, block device.Dim3) error {
		if b.wrapKernel != nil {
			fn = b.wrapKernel(name, fn)
		}
		return ctx.LaunchFuncStream(fn, grid, block, s)
	}
	grid, block := device.GridFor(n)
	segGrid := device.Dim3{X: segments, Y: 1, Z: 1}
	one := device.Dim3{X: 1, Y: 1, Z: 1}

	j.events[0] = s.RecordEvent()
	if err := copies(device.MemcpyHostToDevice,
		[3]interface{}{dDet, host.detID, n * 4},
		[3]interface{}{dStrip, host.stripID, n * 2},
		[3]interface{}{dADC, host.adc, n * 2},
		[3]interface{}{dNoise, host.noise, n * 4},
		[3]interface{}{dGain, host.gain, n * 4},
		[3]interface{}{dBad, host.bad, n},
	); err != nil {
		return err
	}
	j.events[1] = s.RecordEvent()

	if err := launch("setSeedStrips", seedKernel(v, th, dSeed.Bool()), grid, block); err != nil {
		return err
	}
	j.events[2] = s.RecordEvent()

	if err := launch("setNCSeedStrips", ncSeedKernel(v, th, dSeed.Bool(), dNC.Bool()), grid, block); err != nil {
		return err
	}
	j.events[3] = s.RecordEvent()

	offsets, nSeeds, seedIndex := dOffsets.Int32(), dNSeeds.Int32(), dSeedIndex.Int32()
	if err := launch("segmentCount", segmentCountKernel(dNC.Bool(), offsets), segGrid, one); err != nil {
		return err
	}
	if err := launch("segmentScan", segmentScanKernel(offsets, nSeeds), one, one); err != nil {
		return err
	}
	if err := launch("scatter", scatterKernel(dNC.Bool(), offsets, c.Begin, seedIndex), segGrid, one); err != nil {
		return err
	}
	j.events[4] = s.RecordEvent()

	left, right := dLeft.Int32(), dRight.Int32()
	if err := launch("findBoundary", boundaryKernel(v, th, c.Begin, nSeeds, seedIndex, left, right), grid, block); err != nil {
		return err
	}
	j.events[5] = s.RecordEvent()

	if err := launch("checkCluster", checkKernel(v, th, c.Begin, w, nSeeds, left, right,
		dNoiseSq.Float32(), dCharge.Float32(), dAccepted.Bool(), dStatus.Int32(), dADCs.Bytes()), grid, block); err != nil {
		return err
	}
	j.events[6] = s.RecordEvent()

	if err := copies(device.MemcpyDeviceToHost,
		[3]interface{}{j.nSeeds, dNSeeds, 4},
		[3]interface{}{region.SeedIndex, dSeedIndex, n * 4},
		[3]interface{}{region.Left, dLeft, n * 4},
		[3]interface{}{region.Right, dRight, n * 4},
		[3]interface{}{region.NoiseSquared, dNoiseSq, n * 4},
		[3]interface{}{region.Charge, dCharge, n * 4},
		[3]interface{}{region.Accepted, dAccepted, n},
		[3]interface{}{j.status, dStatus, n * 4},
		[3]interface{}{region.ADCs, dADCs, n * w},
	); err != nil {
		return err
	}
	j.events[7] = s.RecordEvent()
	return nil
}

// collect reads back one finished chunk: seed count, stage times, cluster
// status and the overlap invariant.
func (b *StreamBackend) collect(j *streamJob, store *StripStore, res *Result, timer *stageTimer, log logrus.FieldLogger) error {
	c := j.chunk
	n := int(j.nSeeds[0])
	region := res.Set.region(c)

	spans := []struct {
		s          stage
		start, end int
	}{
		{stageMemTransfer, 0, 1},
		{stageSeedStrips, 1, 2},
		{stageNCSeedStrips, 2, 3},
		{stageStripIndex, 3, 4},
		{stageFindBoundary, 4, 5},
		{stageCheckCluster, 5, 6},
		{stageMemTransfer, 6, 7},
	}
	for _, sp := range spans {
		d, err := device.ElapsedTime(j.events[sp.start], j.events[sp.end])
		if err != nil {
			return NewDeviceError("collect", fmt.Sprintf("chunk %d timing", c.Index), err)
		}
		timer.add(sp.s, d)
	}

	for k := 0; k < n; k++ {
		if j.status[k] != statusOK {
			seedIdx := int(region.SeedIndex[k])
			width := int(region.Right[k]-region.Left[k]) + 1
			return statusError(j.status[k], seedIdx, store.DetID[seedIdx], width, region.Width)
		}
	}

	res.Chunks[c.Index].NSeeds = n
	log.WithFields(logrus.Fields{
		"chunk":  c.Index,
		"stream": j.stream.ID(),
		"strips": c.Len(),
		"seeds":  n,
	}).Debug("chunk clustered")

	return checkOverlap(store, region, n)
}
