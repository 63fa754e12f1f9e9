package vkbuffer

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

const (
	mib = 1024 * 1024

	// UploadGranuleSize is the number of bytes tracked by one bit of the
	// upload bitmap.
	UploadGranuleSize = 4096

	minStagingSize = 16 * mib
	minComputeSize = 64 * mib
	uniformSize    = 8 * mib

	// maxBatchLength is the largest number of vertices one inline batch
	// from the command stream can carry.
	maxBatchLength = 0x1FFFF
	// vertexAttributeCount is the number of per-vertex attribute slots
	// the vertex shader consumes.
	vertexAttributeCount = 16

	indexBufferSize        = maxBatchLength * 4 * 100
	vertexInlineBufferSize = vertexAttributeCount * maxBatchLength * 4 * 4 * 10
)

// Platform classes select the ceiling applied to the compute buffer
// sizes; memory-constrained platforms get a much smaller one.
type Platform uint32

const (
	PlatformDesktop Platform = iota
	PlatformMobile
)

var platformMapping = map[Platform]string{
	PlatformDesktop: "PlatformDesktop",
	PlatformMobile:  "PlatformMobile",
}

func (p Platform) String() string {
	str, ok := platformMapping[p]
	if !ok {
		return "unknown Platform"
	}

	return str
}

var computeSizeCeiling = map[Platform]int{
	PlatformDesktop: 256 * mib,
	PlatformMobile:  64 * mib,
}

// Config carries the parameters a BufferSet is sized from.
type Config struct {
	// BackingSize is the size in bytes of the emulated video memory
	// region the buffers shadow. It must be a positive multiple of
	// UploadGranuleSize.
	BackingSize int
	// Platform selects the platform-dependent size ceilings.
	Platform Platform
	// Logger receives creation and teardown diagnostics. It is valid to
	// leave this nil, in which case logging is discarded.
	Logger *slog.Logger
}

// bufferCreateInfo is one row of the creation policy: how big each role's
// buffer is, what it is used for and which memory class backs it.
type bufferCreateInfo struct {
	byteSize int
	usage    core1_0.BufferUsageFlags
	class    MemoryClass
}

func stagingSize(backingSize int) int {
	if backingSize < minStagingSize {
		return minStagingSize
	}
	return backingSize
}

func computeSize(backingSize int, platform Platform) int {
	size := backingSize * 2
	if size < minComputeSize {
		size = minComputeSize
	}
	if ceiling := computeSizeCeiling[platform]; size > ceiling {
		size = ceiling
	}
	return size
}

// bufferCreateInfos computes the full creation policy for the roster from the
// reference backing size and platform class.
func bufferCreateInfos(config Config) [RoleCount]bufferCreateInfo {
	staging := stagingSize(config.BackingSize)
	compute := computeSize(config.BackingSize, config.Platform)

	return [RoleCount]bufferCreateInfo{
		RoleStagingDst: {
			byteSize: staging,
			usage:    core1_0.BufferUsageTransferDst,
			class:    MemoryClassHostVisible,
		},
		RoleStagingSrc: {
			byteSize: staging,
			usage:    core1_0.BufferUsageTransferSrc,
			class:    MemoryClassHostVisible,
		},
		RoleComputeDst: {
			byteSize: compute,
			usage:    core1_0.BufferUsageTransferDst | core1_0.BufferUsageStorageBuffer,
			class:    MemoryClassDeviceLocal,
		},
		RoleComputeSrc: {
			byteSize: compute,
			usage:    core1_0.BufferUsageTransferSrc | core1_0.BufferUsageStorageBuffer,
			class:    MemoryClassDeviceLocal,
		},
		RoleIndex: {
			byteSize: indexBufferSize,
			usage:    core1_0.BufferUsageTransferDst | core1_0.BufferUsageIndexBuffer,
			class:    MemoryClassDeviceLocal,
		},
		RoleIndexStaging: {
			byteSize: indexBufferSize,
			usage:    core1_0.BufferUsageTransferSrc,
			class:    MemoryClassHostVisible,
		},
		// TODO: stop assuming the device can render from a host mapped
		// vertex buffer; some drivers want a device-local copy.
		RoleVertexRAM: {
			byteSize: config.BackingSize,
			usage:    core1_0.BufferUsageVertexBuffer,
			class:    MemoryClassHostVisible,
		},
		RoleVertexInline: {
			byteSize: vertexInlineBufferSize,
			usage:    core1_0.BufferUsageTransferDst | core1_0.BufferUsageVertexBuffer,
			class:    MemoryClassDeviceLocal,
		},
		RoleVertexInlineStaging: {
			byteSize: vertexInlineBufferSize,
			usage:    core1_0.BufferUsageTransferSrc,
			class:    MemoryClassHostVisible,
		},
		RoleUniform: {
			byteSize: uniformSize,
			usage:    core1_0.BufferUsageTransferDst | core1_0.BufferUsageUniformBuffer,
			class:    MemoryClassDeviceLocal,
		},
		RoleUniformStaging: {
			byteSize: uniformSize,
			usage:    core1_0.BufferUsageTransferSrc,
			class:    MemoryClassHostVisible,
		},
	}
}
