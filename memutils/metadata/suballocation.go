package metadata

import "math"

// BlockAllocationHandle is a numeric handle used to identify individual regions within the metadata
type BlockAllocationHandle uint64

const (
	NoAllocation BlockAllocationHandle = math.MaxUint64
)

// Suballocation describes one region of the managed range, either free or allocated
type Suballocation struct {
	Offset   uint64
	Size     uint64
	UserData any
	Type     uint32
	Free     bool
}

// End returns the first offset past the end of the region
func (s Suballocation) End() uint64 {
	return s.Offset + s.Size
}

// Contains returns true if [offset, offset+size) falls entirely within the region
func (s Suballocation) Contains(offset, size uint64) bool {
	return offset >= s.Offset && offset+size >= offset && offset+size <= s.End()
}
