package vkbuffer

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// BuildStatsString returns a JSON document describing the current state
// of the buffer set: per-role sizes, bump offsets and memory classes,
// plus upload bitmap occupancy. Intended for debug overlays and bug
// reports.
func (s *BufferSet) BuildStatsString() string {
	writer := jwriter.NewWriter()

	obj := writer.Object()

	buffers := obj.Name("Buffers").Array()
	for role := Role(0); role < RoleCount; role++ {
		b := &s.buffers[role]

		o := buffers.Object()
		o.Name("Name").String(role.String())
		o.Name("TotalBytes").Int(b.byteSize)
		o.Name("BumpOffset").Int(b.offset)
		o.Name("MemoryClass").String(b.class.String())
		o.Name("Mapped").Bool(b.mapped != nil)
		o.End()
	}
	buffers.End()

	if s.bitmap != nil {
		bitmap := obj.Name("UploadBitmap").Object()
		bitmap.Name("Granules").Int(s.bitmap.Len())
		bitmap.Name("GranuleBytes").Int(UploadGranuleSize)
		bitmap.Name("Uploaded").Int(s.bitmap.UploadedCount())
		bitmap.End()
	}

	obj.End()

	return string(writer.Bytes())
}
