package firmware

import "github.com/horizon2038/a9nloader/memutils"

// MemoryDescriptor is one entry of the firmware memory map
type MemoryDescriptor struct {
	Type          MemoryType
	PhysicalStart uint64
	Pages         int
}

// End returns the first physical address past the end of the descriptor
func (d MemoryDescriptor) End() uint64 {
	return d.PhysicalStart + memutils.PagesToBytes(d.Pages)
}

// MemoryMap exposes the firmware memory map (boot services GetMemoryMap). Descriptors are visited in
// ascending address order.
type MemoryMap interface {
	VisitMemoryMap(visit func(descriptor MemoryDescriptor) error) error
}
