package vkbuffer

// Role names each backing buffer in a BufferSet. The roster is fixed:
// every BufferSet owns exactly one buffer per role.
type Role uint32

const (
	RoleStagingDst Role = iota
	RoleStagingSrc
	RoleComputeDst
	RoleComputeSrc
	RoleIndex
	RoleIndexStaging
	RoleVertexRAM
	RoleVertexInline
	RoleVertexInlineStaging
	RoleUniform
	RoleUniformStaging

	// RoleCount is the number of buffers in the fixed roster.
	RoleCount
)

var roleMapping = map[Role]string{
	RoleStagingDst:          "RoleStagingDst",
	RoleStagingSrc:          "RoleStagingSrc",
	RoleComputeDst:          "RoleComputeDst",
	RoleComputeSrc:          "RoleComputeSrc",
	RoleIndex:               "RoleIndex",
	RoleIndexStaging:        "RoleIndexStaging",
	RoleVertexRAM:           "RoleVertexRAM",
	RoleVertexInline:        "RoleVertexInline",
	RoleVertexInlineStaging: "RoleVertexInlineStaging",
	RoleUniform:             "RoleUniform",
	RoleUniformStaging:      "RoleUniformStaging",
}

func (r Role) String() string {
	str, ok := roleMapping[r]
	if !ok {
		return "unknown Role"
	}

	return str
}

// MemoryClass selects the memory type a backing buffer is allocated
// from.
type MemoryClass uint32

const (
	// MemoryClassHostVisible requests host-visible memory suitable for
	// random-access writes through a persistent mapping.
	MemoryClassHostVisible MemoryClass = iota
	// MemoryClassDeviceLocal requests device-preferred memory; buffers
	// of this class are never mapped.
	MemoryClassDeviceLocal
)

var memoryClassMapping = map[MemoryClass]string{
	MemoryClassHostVisible: "MemoryClassHostVisible",
	MemoryClassDeviceLocal: "MemoryClassDeviceLocal",
}

func (c MemoryClass) String() string {
	str, ok := memoryClassMapping[c]
	if !ok {
		return "unknown MemoryClass"
	}

	return str
}
