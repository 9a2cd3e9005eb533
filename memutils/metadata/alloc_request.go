package metadata

// AllocationRequestType is an enum that indicates the type of allocation that is being made.
// It is returned in AllocationRequest from CreateAllocationRequest and CreateFixedAllocationRequest
type AllocationRequestType uint32

const (
	// AllocationRequestAnyOffset indicates that the metadata chose the offset of the allocation
	AllocationRequestAnyOffset AllocationRequestType = iota
	// AllocationRequestMaxOffset indicates that the metadata chose the offset of the allocation, bounded
	// by a consumer-provided maximum
	AllocationRequestMaxOffset
	// AllocationRequestFixedOffset indicates that the consumer chose the offset of the allocation
	AllocationRequestFixedOffset
)

var allocationRequestMapping = map[AllocationRequestType]string{
	AllocationRequestAnyOffset:   "AnyOffset",
	AllocationRequestMaxOffset:   "MaxOffset",
	AllocationRequestFixedOffset: "FixedOffset",
}

func (t AllocationRequestType) String() string {
	return allocationRequestMapping[t]
}

// AllocationRequest is a type returned from BlockMetadata.CreateAllocationRequest which indicates where
// the metadata intends to place new memory. This allocation can be applied to the actual memory system consuming
// memutils, and then committed to the metadata with BlockMetadata.Alloc
type AllocationRequest struct {
	// BlockAllocationHandle identifies the free region that the allocation will be carved from
	BlockAllocationHandle BlockAllocationHandle
	// Offset is the first byte of the allocation
	Offset uint64
	// Size is the total size of the allocation in bytes
	Size uint64
	// Type identifies how the offset was chosen
	Type AllocationRequestType
}
