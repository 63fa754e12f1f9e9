package vkbuffer

import "math/bits"

const bitmapWordBits = 64

// UploadBitmap tracks which fixed-size granules of the vertex RAM
// backing region have been uploaded to the device. One bit covers
// UploadGranuleSize bytes. All bits start cleared; the lifetime of the
// bitmap is tied to the BufferSet that created it.
type UploadBitmap struct {
	words   []uint64
	numBits int
}

func newUploadBitmap(numBits int) *UploadBitmap {
	return &UploadBitmap{
		words:   make([]uint64, (numBits+bitmapWordBits-1)/bitmapWordBits),
		numBits: numBits,
	}
}

// Len returns the number of granules the bitmap tracks.
func (m *UploadBitmap) Len() int {
	return m.numBits
}

// Test reports whether granule i is marked uploaded.
func (m *UploadBitmap) Test(i int) bool {
	return m.words[i/bitmapWordBits]&(1<<(uint(i)%bitmapWordBits)) != 0
}

// SetRange marks count granules starting at start as uploaded.
func (m *UploadBitmap) SetRange(start, count int) {
	for i := start; i < start+count; i++ {
		m.words[i/bitmapWordBits] |= 1 << (uint(i) % bitmapWordBits)
	}
}

// ClearRange marks count granules starting at start as not uploaded.
func (m *UploadBitmap) ClearRange(start, count int) {
	for i := start; i < start+count; i++ {
		m.words[i/bitmapWordBits] &^= 1 << (uint(i) % bitmapWordBits)
	}
}

// ClearAll resets every granule to not uploaded.
func (m *UploadBitmap) ClearAll() {
	for i := range m.words {
		m.words[i] = 0
	}
}

// UploadedCount returns the number of granules currently marked
// uploaded.
func (m *UploadBitmap) UploadedCount() int {
	count := 0
	for _, word := range m.words {
		count += bits.OnesCount64(word)
	}
	return count
}

// granuleSpan converts a byte range into the granule range covering it.
func granuleSpan(offset, size int) (first, count int) {
	if size <= 0 {
		return 0, 0
	}
	first = offset / UploadGranuleSize
	last := (offset + size - 1) / UploadGranuleSize
	return first, last - first + 1
}
