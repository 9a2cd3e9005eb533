package metadata

import (
	"github.com/horizon2038/a9nloader/memutils"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// BlockMetadata represents a single large range of memory within some system. It manages
// suballocations within the range, allowing allocations to be requested and freed, as well as
// enumerated and queried.
type BlockMetadata interface {
	// Init must be called before the BlockMetadata is used. It gives the implementation an opportunity
	// to ensure that metadata structures are prepared for allocations, as well as allows the consumer
	// to inform the implementation of the size in bytes of the range it will be managing,
	// via the size parameter.
	Init(size uint64)
	// Size retrieves the size in bytes that the range was initialized with
	Size() uint64

	// Validate performs internal consistency checks on the metadata. When the implementation is functioning
	// correctly, it should not be possible for this method to return an error.
	Validate() error
	// AllocationCount returns the number of suballocations currently live in the implementation.
	AllocationCount() int
	// FreeRegionsCount returns the number of unique regions of free memory in the range. Adjacent
	// free regions are always merged and counted once.
	FreeRegionsCount() int
	// SumFreeSize returns the number of free bytes of memory in the range.
	SumFreeSize() uint64
	// IsEmpty will return true if this range has no live suballocations
	IsEmpty() bool

	// VisitAllRegions will call the provided callback once for each allocation and free region in
	// the range, in ascending offset order.
	VisitAllRegions(handleBlock func(handle BlockAllocationHandle, region Suballocation) error) error
	// AllocationOffset accepts a BlockAllocationHandle that maps to a live allocation
	// and returns the offset in bytes of that allocation.
	AllocationOffset(allocHandle BlockAllocationHandle) (uint64, error)
	// Allocation accepts a BlockAllocationHandle that maps to a live allocation and returns a description
	// of it.
	Allocation(allocHandle BlockAllocationHandle) (Suballocation, error)

	// AddDetailedStatistics sums this range's allocation statistics into the statistics currently present
	// in the provided memutils.DetailedStatistics object.
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this range's allocation statistics into the statistics currently present in the
	// provided memutils.Statistics object.
	AddStatistics(stats *memutils.Statistics)

	// Clear instantly frees all allocations
	Clear()
	// BlockJsonData populates a json object with information about this range
	BlockJsonData(json jwriter.ObjectState)

	// CreateAllocationRequest retrieves an AllocationRequest object indicating where the implementation
	// would prefer to place the requested memory. That object can be passed to Alloc to commit the
	// allocation.
	//
	// allocSize - the size in bytes of the requested allocation
	// allocAlignment - the alignment of the requested allocation's offset. Must be a power of two.
	// strategy - Whether to prioritize low offsets, high offsets, or small free regions
	// maxOffset - The allocation must end at or before maxOffset. Pass math.MaxUint64 when
	// there is no limit.
	//
	// The boolean return is false if no free region can hold the allocation.
	CreateAllocationRequest(
		allocSize uint64, allocAlignment uint64,
		strategy AllocationStrategy,
		maxOffset uint64,
	) (bool, AllocationRequest, error)
	// CreateFixedAllocationRequest retrieves an AllocationRequest object for an allocation at exactly
	// the provided offset. The boolean return is false if [offset, offset+allocSize) is not entirely free.
	CreateFixedAllocationRequest(offset uint64, allocSize uint64) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest object, creating the suballocation within the range based
	// on the data described in the AllocationRequest. The implementation must return an error if the
	// allocation is no longer valid- i.e. the requested free region no longer exists, is not free,
	// or can no longer hold the request.
	//
	// allocType is a memory-system-dependent value recorded with the allocation and reported by
	// VisitAllRegions.
	Alloc(request AllocationRequest, allocType uint32, userData any) (BlockAllocationHandle, error)

	// Free frees a suballocation, causing it to become a free region once again.
	//
	// The implementation must return an error if the provided handle does not map to a live allocation
	// within this range.
	Free(allocHandle BlockAllocationHandle) error
}

// BlockMetadataBase is a simple struct that provides a few shared utilities for BlockMetadata
// implementations in the memutils module.
type BlockMetadataBase struct {
	size uint64
}

// Init prepares this structure for allocations and sizes the range in bytes based on the parameter size.
func (m *BlockMetadataBase) Init(size uint64) {
	m.size = size
}

// Size returns the size of the range in bytes
func (m *BlockMetadataBase) Size() uint64 { return m.size }

// BlockJsonData populates a json object with information about this range
func (m *BlockMetadataBase) BlockJsonData(json jwriter.ObjectState, unusedBytes uint64, allocationCount, unusedRangeCount int) {
	json.Name("TotalBytes").Float64(float64(m.Size()))
	json.Name("UnusedBytes").Float64(float64(unusedBytes))
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
}
