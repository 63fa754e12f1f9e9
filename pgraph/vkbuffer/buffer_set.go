package vkbuffer

import (
	"fmt"
	"io"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"

	"github.com/momo-AUX1/xemu/memutils"
)

// storageBuffer is one provisioned buffer of the roster together with
// its bump allocation state.
type storageBuffer struct {
	byteSize int
	usage    core1_0.BufferUsageFlags
	class    MemoryClass
	backing  BackingBuffer
	mapped   unsafe.Pointer
	offset   int
}

// BufferSet owns the fixed roster of backing buffers the renderer
// writes geometry, index and uniform data into, plus the upload bitmap
// for the vertex RAM region. It is designed for single-threaded use
// from the graphics command processing path: bump offsets are not
// synchronized, and resetting them at frame boundaries is the caller's
// responsibility (see ResetOffsets).
type BufferSet struct {
	logger  *slog.Logger
	buffers [RoleCount]storageBuffer
	bitmap  *UploadBitmap
}

// New provisions the complete buffer roster from the policy computed
// off config, persistently maps every host-visible buffer and allocates
// the cleared upload bitmap. Creation is all-or-nothing: any buffer
// creation or mapping failure unwinds everything created so far and
// returns a descriptive error.
func New(config Config, backend MemoryBackend) (*BufferSet, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard))
	}

	if config.BackingSize <= 0 {
		return nil, errors.Newf("backing size must be positive: %d", config.BackingSize)
	}
	if config.BackingSize%UploadGranuleSize != 0 {
		return nil, errors.Newf("backing size %d is not a multiple of the %d-byte upload granule",
			config.BackingSize, UploadGranuleSize)
	}

	infos := bufferCreateInfos(config)

	set := &BufferSet{
		logger: logger,
		bitmap: newUploadBitmap(config.BackingSize / UploadGranuleSize),
	}

	logger.Info("creating buffer set",
		slog.Int("backingSize", config.BackingSize),
		slog.String("platform", config.Platform.String()),
		slog.Int("stagingSize", infos[RoleStagingDst].byteSize),
		slog.Int("computeSize", infos[RoleComputeDst].byteSize),
	)

	for role := Role(0); role < RoleCount; role++ {
		info := infos[role]

		backing, err := backend.CreateBuffer(role.String(), info.byteSize, info.usage, info.class)
		if err != nil {
			set.unwind()
			return nil, errors.Wrapf(err, "buffer set creation failed at %s", role.String())
		}

		set.buffers[role] = storageBuffer{
			byteSize: info.byteSize,
			usage:    info.usage,
			class:    info.class,
			backing:  backing,
		}
	}

	for role := Role(0); role < RoleCount; role++ {
		b := &set.buffers[role]
		if b.class != MemoryClassHostVisible {
			continue
		}

		mapped, err := b.backing.Map()
		if err != nil {
			set.unwind()
			return nil, errors.Wrapf(err, "failed to map buffer %s (%d bytes)", role.String(), b.byteSize)
		}
		b.mapped = mapped
	}

	return set, nil
}

// unwind releases every buffer provisioned so far, in any creation
// state. Shared by the New failure path and Destroy.
func (s *BufferSet) unwind() {
	for role := Role(0); role < RoleCount; role++ {
		b := &s.buffers[role]

		if b.mapped != nil {
			if err := b.backing.Unmap(); err != nil {
				s.logger.Error("failed to unmap buffer during teardown",
					slog.String("role", role.String()),
					slog.Any("error", err))
			}
			b.mapped = nil
		}

		if b.backing != nil {
			if err := b.backing.Destroy(); err != nil {
				s.logger.Error("failed to destroy buffer during teardown",
					slog.String("role", role.String()),
					slog.Any("error", err))
			}
			b.backing = nil
		}

		b.offset = 0
		b.byteSize = 0
	}

	s.bitmap = nil
}

// Destroy unmaps every mapped buffer, frees every buffer and releases
// the upload bitmap. It is symmetric with New and safe to call on a set
// whose creation only partially completed.
func (s *BufferSet) Destroy() {
	s.logger.Info("destroying buffer set")
	s.unwind()
}

// Validate checks the buffer set invariants. It is invoked through
// memutils.DebugValidate on the append path in debug builds.
func (s *BufferSet) Validate() error {
	for role := Role(0); role < RoleCount; role++ {
		b := &s.buffers[role]

		if b.offset > b.byteSize {
			return errors.Newf("buffer %s bump offset %d exceeds size %d", role.String(), b.offset, b.byteSize)
		}
		if b.mapped != nil && b.class != MemoryClassHostVisible {
			return errors.Newf("buffer %s is mapped but not host-visible", role.String())
		}
	}

	return nil
}

// Size returns the byte size of the buffer provisioned for role.
func (s *BufferSet) Size(role Role) int {
	return s.buffers[role].byteSize
}

// Usage returns the Vulkan usage flags the buffer for role was created
// with.
func (s *BufferSet) Usage(role Role) core1_0.BufferUsageFlags {
	return s.buffers[role].usage
}

// Offset returns the current bump offset of the buffer for role.
func (s *BufferSet) Offset(role Role) int {
	return s.buffers[role].offset
}

// Mapped returns the persistent host mapping for role, or nil for
// device-local roles.
func (s *BufferSet) Mapped(role Role) unsafe.Pointer {
	return s.buffers[role].mapped
}

// Backing returns the provisioned backing buffer for role so the
// submission layer can bind it.
func (s *BufferSet) Backing(role Role) BackingBuffer {
	return s.buffers[role].backing
}

// Bitmap returns the upload tracking bitmap for the vertex RAM region.
func (s *BufferSet) Bitmap() *UploadBitmap {
	return s.bitmap
}

// ResetOffsets rewinds every bump offset to zero. The cadence of calls
// belongs to the frame submission layer; the BufferSet never resets
// offsets on its own.
func (s *BufferSet) ResetOffsets() {
	for role := Role(0); role < RoleCount; role++ {
		s.buffers[role].offset = 0
	}
}

// HasSpaceFor reports whether an append of size bytes at the given
// alignment fits in the buffer for role. It is pure; callers must check
// it before every Append. The alignment must be a power of two.
func (s *BufferSet) HasSpaceFor(role Role, size int, alignment uint) bool {
	b := &s.buffers[role]
	return memutils.AlignUp(b.offset, alignment)+size <= b.byteSize
}

// Append aligns the bump offset for role once, then copies each chunk
// consecutively into the mapped region with no padding between chunks,
// and returns the byte offset of the first chunk. Appending beyond
// capacity or into a buffer without a host mapping is a caller bug and
// panics; recovering mid-append would corrupt the buffer layout.
func (s *BufferSet) Append(role Role, chunks [][]byte, alignment uint) int {
	memutils.DebugCheckPow2(alignment, "append alignment")
	memutils.DebugValidate(s)

	totalSize := 0
	for _, chunk := range chunks {
		totalSize += len(chunk)
	}

	if !s.HasSpaceFor(role, totalSize, alignment) {
		panic(fmt.Sprintf("append of %d bytes at alignment %d overflows %s (offset %d, size %d)",
			totalSize, alignment, role.String(), s.buffers[role].offset, s.buffers[role].byteSize))
	}

	b := &s.buffers[role]
	if b.mapped == nil {
		panic(fmt.Sprintf("append to %s, which has no host mapping", role.String()))
	}

	startingOffset := memutils.AlignUp(b.offset, alignment)
	b.offset = startingOffset

	for _, chunk := range chunks {
		dst := unsafe.Slice((*byte)(unsafe.Add(b.mapped, b.offset)), len(chunk))
		copy(dst, chunk)
		b.offset += len(chunk)
	}

	return startingOffset
}

// MarkUploaded records that the vertex RAM byte range [offset,
// offset+size) has been synchronized to the device.
func (s *BufferSet) MarkUploaded(offset, size int) {
	first, count := granuleSpan(offset, size)
	s.bitmap.SetRange(first, count)
}

// ClearUploaded records that the vertex RAM byte range [offset,
// offset+size) has been invalidated and needs re-upload.
func (s *BufferSet) ClearUploaded(offset, size int) {
	first, count := granuleSpan(offset, size)
	s.bitmap.ClearRange(first, count)
}

// IsUploaded reports whether every granule covering the vertex RAM byte
// range [offset, offset+size) is marked uploaded. A zero-size range is
// trivially uploaded.
func (s *BufferSet) IsUploaded(offset, size int) bool {
	first, count := granuleSpan(offset, size)
	for i := first; i < first+count; i++ {
		if !s.bitmap.Test(i) {
			return false
		}
	}
	return true
}
