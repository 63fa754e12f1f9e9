package vkbuffer_test

import (
	"encoding/json"
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"

	"github.com/momo-AUX1/xemu/pgraph/vkbuffer"
)

type fakeBuffer struct {
	name      string
	size      int
	usage     core1_0.BufferUsageFlags
	class     vkbuffer.MemoryClass
	data      []byte
	mapped    bool
	destroyed bool
	failMap   bool
}

func (b *fakeBuffer) Map() (unsafe.Pointer, error) {
	if b.failMap {
		return nil, errors.New("simulated map failure")
	}
	b.mapped = true
	return unsafe.Pointer(&b.data[0]), nil
}

func (b *fakeBuffer) Unmap() error {
	b.mapped = false
	return nil
}

func (b *fakeBuffer) Destroy() error {
	b.destroyed = true
	return nil
}

// fakeBackend provisions host slices instead of Vulkan buffers and can
// simulate provisioning failures at a chosen point in the roster.
type fakeBackend struct {
	created     []*fakeBuffer
	failCreate  int
	failMapping int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{failCreate: -1, failMapping: -1}
}

func (f *fakeBackend) CreateBuffer(name string, size int, usage core1_0.BufferUsageFlags, class vkbuffer.MemoryClass) (vkbuffer.BackingBuffer, error) {
	index := len(f.created)
	if index == f.failCreate {
		return nil, errors.New("simulated creation failure")
	}

	buffer := &fakeBuffer{
		name:    name,
		size:    size,
		usage:   usage,
		class:   class,
		data:    make([]byte, size),
		failMap: index == f.failMapping,
	}
	f.created = append(f.created, buffer)
	return buffer, nil
}

// buffer returns the fake provisioned for role; creation order follows
// role order.
func (f *fakeBackend) buffer(role vkbuffer.Role) *fakeBuffer {
	return f.created[int(role)]
}

const testBackingSize = 64 * 1024 * 1024

func newTestSet(t *testing.T) (*vkbuffer.BufferSet, *fakeBackend) {
	t.Helper()

	backend := newFakeBackend()
	set, err := vkbuffer.New(vkbuffer.Config{
		BackingSize: testBackingSize,
		Platform:    vkbuffer.PlatformDesktop,
	}, backend)
	require.NoError(t, err)
	t.Cleanup(set.Destroy)

	return set, backend
}

func TestNewProvisionsFullRoster(t *testing.T) {
	set, backend := newTestSet(t)

	require.Len(t, backend.created, int(vkbuffer.RoleCount))

	hostVisible := map[vkbuffer.Role]bool{
		vkbuffer.RoleStagingDst:          true,
		vkbuffer.RoleStagingSrc:          true,
		vkbuffer.RoleIndexStaging:        true,
		vkbuffer.RoleVertexRAM:           true,
		vkbuffer.RoleVertexInlineStaging: true,
		vkbuffer.RoleUniformStaging:      true,
	}

	for role := vkbuffer.Role(0); role < vkbuffer.RoleCount; role++ {
		buffer := backend.buffer(role)
		require.Equal(t, role.String(), buffer.name)
		require.Equal(t, set.Size(role), buffer.size)
		require.Equal(t, set.Usage(role), buffer.usage)
		require.Zero(t, set.Offset(role))

		if hostVisible[role] {
			require.Equal(t, vkbuffer.MemoryClassHostVisible, buffer.class)
			require.True(t, buffer.mapped, "role %s should be persistently mapped", role)
			require.NotNil(t, set.Mapped(role))
		} else {
			require.Equal(t, vkbuffer.MemoryClassDeviceLocal, buffer.class)
			require.False(t, buffer.mapped)
			require.Nil(t, set.Mapped(role))
		}
	}

	require.Equal(t, testBackingSize/vkbuffer.UploadGranuleSize, set.Bitmap().Len())
	require.Zero(t, set.Bitmap().UploadedCount())
}

func TestSizePolicy(t *testing.T) {
	const mib = 1024 * 1024

	cases := []struct {
		name            string
		backingSize     int
		platform        vkbuffer.Platform
		expectedStaging int
		expectedCompute int
	}{
		{"small backing floors both", 4 * mib, vkbuffer.PlatformDesktop, 16 * mib, 64 * mib},
		{"mid backing", 64 * mib, vkbuffer.PlatformDesktop, 64 * mib, 128 * mib},
		{"large backing hits desktop ceiling", 256 * mib, vkbuffer.PlatformDesktop, 256 * mib, 256 * mib},
		{"mobile ceiling clamps compute", 64 * mib, vkbuffer.PlatformMobile, 64 * mib, 64 * mib},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			backend := newFakeBackend()
			set, err := vkbuffer.New(vkbuffer.Config{
				BackingSize: c.backingSize,
				Platform:    c.platform,
			}, backend)
			require.NoError(t, err)
			defer set.Destroy()

			require.Equal(t, c.expectedStaging, set.Size(vkbuffer.RoleStagingDst))
			require.Equal(t, c.expectedStaging, set.Size(vkbuffer.RoleStagingSrc))
			require.Equal(t, c.expectedCompute, set.Size(vkbuffer.RoleComputeDst))
			require.Equal(t, c.expectedCompute, set.Size(vkbuffer.RoleComputeSrc))
			require.Equal(t, c.backingSize, set.Size(vkbuffer.RoleVertexRAM))
			require.Equal(t, set.Size(vkbuffer.RoleIndex), set.Size(vkbuffer.RoleIndexStaging))
			require.Equal(t, set.Size(vkbuffer.RoleVertexInline), set.Size(vkbuffer.RoleVertexInlineStaging))
			require.Equal(t, 8*mib, set.Size(vkbuffer.RoleUniform))
			require.Equal(t, 8*mib, set.Size(vkbuffer.RoleUniformStaging))
		})
	}
}

func TestNewRejectsBadBackingSize(t *testing.T) {
	_, err := vkbuffer.New(vkbuffer.Config{BackingSize: 0}, newFakeBackend())
	require.Error(t, err)

	_, err = vkbuffer.New(vkbuffer.Config{BackingSize: 4097}, newFakeBackend())
	require.Error(t, err)
}

func TestCreateFailureRollsBackEverything(t *testing.T) {
	backend := newFakeBackend()
	backend.failCreate = int(vkbuffer.RoleVertexRAM)

	set, err := vkbuffer.New(vkbuffer.Config{
		BackingSize: testBackingSize,
	}, backend)
	require.Error(t, err)
	require.Nil(t, set)

	require.Len(t, backend.created, int(vkbuffer.RoleVertexRAM))
	for _, buffer := range backend.created {
		require.True(t, buffer.destroyed, "buffer %s should be destroyed", buffer.name)
		require.False(t, buffer.mapped, "buffer %s should not remain mapped", buffer.name)
	}
}

func TestMapFailureRollsBackEverything(t *testing.T) {
	backend := newFakeBackend()
	// VertexRAM is mapped after the two staging buffers; its failure
	// must undo their mappings too.
	backend.failMapping = int(vkbuffer.RoleVertexRAM)

	set, err := vkbuffer.New(vkbuffer.Config{
		BackingSize: testBackingSize,
	}, backend)
	require.Error(t, err)
	require.Nil(t, set)

	require.Len(t, backend.created, int(vkbuffer.RoleCount))
	for _, buffer := range backend.created {
		require.True(t, buffer.destroyed, "buffer %s should be destroyed", buffer.name)
		require.False(t, buffer.mapped, "buffer %s should not remain mapped", buffer.name)
	}
}

func TestAppendCopiesChunksBackToBack(t *testing.T) {
	set, backend := newTestSet(t)

	first := set.Append(vkbuffer.RoleUniformStaging, [][]byte{
		{1, 2, 3},
		{4, 5},
	}, 16)
	require.Equal(t, 0, first)
	require.Equal(t, 5, set.Offset(vkbuffer.RoleUniformStaging))

	second := set.Append(vkbuffer.RoleUniformStaging, [][]byte{{9}}, 16)
	require.Equal(t, 16, second)
	require.Equal(t, 17, set.Offset(vkbuffer.RoleUniformStaging))

	data := backend.buffer(vkbuffer.RoleUniformStaging).data
	require.Equal(t, []byte{1, 2, 3, 4, 5}, data[0:5])
	require.Equal(t, byte(9), data[16])
}

func TestHasSpaceForExactBoundary(t *testing.T) {
	set, _ := newTestSet(t)

	size := set.Size(vkbuffer.RoleUniformStaging)
	fill := make([]byte, size-8)
	set.Append(vkbuffer.RoleUniformStaging, [][]byte{fill}, 1)

	require.True(t, set.HasSpaceFor(vkbuffer.RoleUniformStaging, 8, 1))
	require.False(t, set.HasSpaceFor(vkbuffer.RoleUniformStaging, 9, 1))
	// Alignment padding counts against the remaining space.
	require.False(t, set.HasSpaceFor(vkbuffer.RoleUniformStaging, 8, 16))
}

func TestAppendBeyondCapacityPanics(t *testing.T) {
	set, _ := newTestSet(t)

	size := set.Size(vkbuffer.RoleUniformStaging)
	set.Append(vkbuffer.RoleUniformStaging, [][]byte{make([]byte, size)}, 1)

	require.Panics(t, func() {
		set.Append(vkbuffer.RoleUniformStaging, [][]byte{{1}}, 1)
	})
}

func TestAppendToUnmappedBufferPanics(t *testing.T) {
	set, _ := newTestSet(t)

	require.Panics(t, func() {
		set.Append(vkbuffer.RoleIndex, [][]byte{{1}}, 1)
	})
}

func TestResetOffsets(t *testing.T) {
	set, _ := newTestSet(t)

	set.Append(vkbuffer.RoleUniformStaging, [][]byte{{1, 2, 3}}, 1)
	set.Append(vkbuffer.RoleIndexStaging, [][]byte{{4}}, 1)

	set.ResetOffsets()
	for role := vkbuffer.Role(0); role < vkbuffer.RoleCount; role++ {
		require.Zero(t, set.Offset(role))
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	backend := newFakeBackend()
	set, err := vkbuffer.New(vkbuffer.Config{
		BackingSize: testBackingSize,
	}, backend)
	require.NoError(t, err)

	set.Destroy()

	for _, buffer := range backend.created {
		require.True(t, buffer.destroyed)
		require.False(t, buffer.mapped)
	}
	require.Nil(t, set.Bitmap())
}

func TestUploadTracking(t *testing.T) {
	set, _ := newTestSet(t)

	// 5000..5099 sits entirely inside granule 1.
	set.MarkUploaded(5000, 100)
	require.True(t, set.IsUploaded(4096, 4096))
	require.False(t, set.IsUploaded(0, 4096))
	require.False(t, set.IsUploaded(0, 8192))
	require.Equal(t, 1, set.Bitmap().UploadedCount())

	// A range straddling a granule boundary covers both granules.
	set.MarkUploaded(4095, 2)
	require.True(t, set.IsUploaded(0, 8192))
	require.Equal(t, 2, set.Bitmap().UploadedCount())

	set.ClearUploaded(4096, 4096)
	require.False(t, set.IsUploaded(4096, 4096))
	require.True(t, set.IsUploaded(0, 4096))

	// Zero-size ranges are trivially uploaded and mark nothing.
	require.True(t, set.IsUploaded(12345, 0))
	set.MarkUploaded(12345, 0)
	require.Equal(t, 1, set.Bitmap().UploadedCount())
}

func TestValidate(t *testing.T) {
	set, _ := newTestSet(t)
	require.NoError(t, set.Validate())

	set.Append(vkbuffer.RoleUniformStaging, [][]byte{{1, 2, 3}}, 1)
	require.NoError(t, set.Validate())
}

func TestBuildStatsString(t *testing.T) {
	set, _ := newTestSet(t)

	set.Append(vkbuffer.RoleUniformStaging, [][]byte{{1, 2, 3}}, 1)
	set.MarkUploaded(0, 4096)

	var stats struct {
		Buffers []struct {
			Name        string
			TotalBytes  int
			BumpOffset  int
			MemoryClass string
			Mapped      bool
		}
		UploadBitmap struct {
			Granules     int
			GranuleBytes int
			Uploaded     int
		}
	}
	require.NoError(t, json.Unmarshal([]byte(set.BuildStatsString()), &stats))

	require.Len(t, stats.Buffers, int(vkbuffer.RoleCount))
	uniformStaging := stats.Buffers[int(vkbuffer.RoleUniformStaging)]
	require.Equal(t, vkbuffer.RoleUniformStaging.String(), uniformStaging.Name)
	require.Equal(t, 3, uniformStaging.BumpOffset)
	require.True(t, uniformStaging.Mapped)
	require.Equal(t, vkbuffer.MemoryClassHostVisible.String(), uniformStaging.MemoryClass)

	require.Equal(t, testBackingSize/vkbuffer.UploadGranuleSize, stats.UploadBitmap.Granules)
	require.Equal(t, vkbuffer.UploadGranuleSize, stats.UploadBitmap.GranuleBytes)
	require.Equal(t, 1, stats.UploadBitmap.Uploaded)
}
