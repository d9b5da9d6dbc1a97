package device

import (
	"fmt"
	"runtime"
	"sync"
)

// LaunchFuncStream executes a kernel function on a specific stream.
// The launch configuration is validated immediately; failures inside the
// kernel are reported by the stream's Synchronize.
func (ctx *Context) LaunchFuncStream(fn KernelFunc, grid, block Dim3, stream *Stream, args ...interface{}) error {
	if err := validateLaunch(grid, block); err != nil {
		return err
	}
	ctx.launchInternal(fn, grid, block, stream, args...)
	return nil
}

func validateLaunch(grid, block Dim3) error {
	if grid.X < 0 || grid.Y < 0 || grid.Z < 0 {
		return NewInvalidArgError("Launch", fmt.Sprintf("invalid grid %+v", grid))
	}
	bs := block.Size()
	if bs <= 0 || bs > MaxThreadsPerBlock {
		return NewInvalidArgError("Launch", fmt.Sprintf("invalid block %+v: %d threads", block, bs))
	}
	return nil
}

// launchInternal implements the core kernel execution logic
func (ctx *Context) launchInternal(
	kernelFunc KernelFunc,
	grid, block Dim3,
	stream *Stream,
	args ...interface{},
) {
	gridSize := grid.Size()
	blockSize := block.Size()

	// Submit an empty task to maintain stream ordering
	if gridSize == 0 {
		stream.Submit(func() {})
		return
	}

	numWorkers := runtime.NumCPU()
	if gridSize < numWorkers {
		numWorkers = gridSize
	}

	// Each worker processes a contiguous range of blocks
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	stream.Submit(func() {
		var (
			wg       sync.WaitGroup
			once     sync.Once
			panicked interface{}
		)
		wg.Add(numWorkers)

		for workerID := 0; workerID < numWorkers; workerID++ {
			startBlock := workerID * blocksPerWorker
			endBlock := startBlock + blocksPerWorker
			if endBlock > gridSize {
				endBlock = gridSize
			}

			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						once.Do(func() { panicked = r })
					}
				}()

				for blockID := startBlock; blockID < endBlock; blockID++ {
					blockIdx := linearTo3D(blockID, grid)

					// Threads of a block run sequentially on one goroutine
					for threadID := 0; threadID < blockSize; threadID++ {
						tid := ThreadID{
							BlockIdx:  blockIdx,
							ThreadIdx: linearTo3D(threadID, block),
							BlockDim:  block,
							GridDim:   grid,
						}
						kernelFunc(tid, args...)
					}
				}
			}()
		}

		wg.Wait()
		if panicked != nil {
			// re-raised so the stream records it as a kernel failure
			panic(panicked)
		}
	})
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}
