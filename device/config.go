package device

// Thread and block dimensions
const (
	// Default block size for kernels
	DefaultBlockSize = 256

	// Maximum threads per block
	MaxThreadsPerBlock = 1024
)

// Memory alignment for allocations
const MemoryAlignment = 64
