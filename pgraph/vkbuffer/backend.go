package vkbuffer

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/arsenal/vam"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// MemoryBackend provisions backing buffers for a BufferSet. Production
// code uses VulkanBackend; tests substitute a host-memory fake.
type MemoryBackend interface {
	// CreateBuffer allocates a buffer of the requested size from the
	// requested memory class. The name is used for diagnostics only.
	CreateBuffer(name string, size int, usage core1_0.BufferUsageFlags, class MemoryClass) (BackingBuffer, error)
}

// BackingBuffer is one provisioned buffer. Map is only valid for
// buffers created with MemoryClassHostVisible; mappings persist until
// Unmap. Destroy releases the buffer and its memory and must not be
// called while a mapping is live.
type BackingBuffer interface {
	Map() (unsafe.Pointer, error)
	Unmap() error
	Destroy() error
}

// VulkanBackend provisions buffers through a vam.Allocator.
type VulkanBackend struct {
	logger    *slog.Logger
	allocator *vam.Allocator
}

// NewVulkanBackend creates a MemoryBackend over the provided allocator.
func NewVulkanBackend(logger *slog.Logger, allocator *vam.Allocator) *VulkanBackend {
	return &VulkanBackend{
		logger:    logger,
		allocator: allocator,
	}
}

// allocationCreateInfo selects the allocation parameters for a memory
// class. Host-visible buffers stay persistently mapped, so they request
// random host access.
func allocationCreateInfo(class MemoryClass) vam.AllocationCreateInfo {
	if class == MemoryClassHostVisible {
		return vam.AllocationCreateInfo{
			Usage: vam.MemoryUsageAutoPreferHost,
			Flags: memutils.AllocationCreateHostAccessRandom,
		}
	}

	return vam.AllocationCreateInfo{
		Usage: vam.MemoryUsageAutoPreferDevice,
	}
}

func (b *VulkanBackend) CreateBuffer(name string, size int, usage core1_0.BufferUsageFlags, class MemoryClass) (BackingBuffer, error) {
	b.logger.Debug("VulkanBackend::CreateBuffer",
		slog.String("name", name),
		slog.Int("size", size),
	)

	vulkanBuffer := &VulkanBuffer{}
	buffer, _, err := b.allocator.CreateBuffer(
		core1_0.BufferCreateInfo{
			Size:        size,
			Usage:       usage,
			SharingMode: core1_0.SharingModeExclusive,
		},
		allocationCreateInfo(class),
		&vulkanBuffer.allocation,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Vulkan buffer %s (%d bytes)", name, size)
	}

	vulkanBuffer.buffer = buffer
	return vulkanBuffer, nil
}

// VulkanBuffer is the BackingBuffer implementation produced by
// VulkanBackend. The draw submission layer retrieves the underlying
// Vulkan handle through Handle to bind appended ranges.
type VulkanBuffer struct {
	buffer     core1_0.Buffer
	allocation vam.Allocation
}

// Handle returns the Vulkan buffer object backing this buffer.
func (b *VulkanBuffer) Handle() core1_0.Buffer {
	return b.buffer
}

func (b *VulkanBuffer) Map() (unsafe.Pointer, error) {
	pointer, _, err := b.allocation.Map()
	if err != nil {
		return nil, errors.Wrap(err, "failed to map Vulkan buffer")
	}
	return pointer, nil
}

func (b *VulkanBuffer) Unmap() error {
	return b.allocation.Unmap()
}

func (b *VulkanBuffer) Destroy() error {
	return b.allocation.DestroyBuffer(b.buffer)
}
