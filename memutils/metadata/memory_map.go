package metadata

import (
	"math"
	"sort"

	"github.com/dolthub/swiss"
	"github.com/horizon2038/a9nloader/memutils"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type memoryRegion struct {
	Suballocation
	handle BlockAllocationHandle
}

// MemoryMapMetadata is a BlockMetadata implementation that represents a physical memory map: an
// ordered, gap-free list of regions that are either free or carry an allocation type. Unlike a heap,
// consumers may ask for an allocation at a precise offset, which is how firmware page allocators
// honor requests for a specific physical address.
//
// Adjacent free regions are merged as soon as they appear, so the list never holds two free regions
// side by side.
type MemoryMapMetadata struct {
	BlockMetadataBase

	allocCount           int
	sumFreeSize          uint64
	nextAllocationHandle BlockAllocationHandle
	regions              []*memoryRegion
	handleKey            *swiss.Map[BlockAllocationHandle, *memoryRegion]
}

var _ BlockMetadata = &MemoryMapMetadata{}

// NewMemoryMapMetadata creates a new, uninitialized MemoryMapMetadata. Init must be called before use.
func NewMemoryMapMetadata() *MemoryMapMetadata {
	return &MemoryMapMetadata{}
}

// Init prepares this structure for allocations and sizes the range in bytes based on the parameter size.
func (m *MemoryMapMetadata) Init(size uint64) {
	m.BlockMetadataBase.Init(size)
	m.reset()
}

func (m *MemoryMapMetadata) reset() {
	m.handleKey = swiss.NewMap[BlockAllocationHandle, *memoryRegion](42)
	m.regions = m.regions[:0]
	m.allocCount = 0
	m.sumFreeSize = m.Size()

	if m.Size() > 0 {
		m.regions = append(m.regions, m.newRegion(0, m.Size()))
	}
}

func (m *MemoryMapMetadata) newRegion(offset, size uint64) *memoryRegion {
	m.nextAllocationHandle++
	region := &memoryRegion{
		Suballocation: Suballocation{
			Offset: offset,
			Size:   size,
			Free:   true,
		},
		handle: m.nextAllocationHandle,
	}
	m.handleKey.Put(region.handle, region)
	return region
}

func (m *MemoryMapMetadata) releaseRegion(region *memoryRegion) {
	m.handleKey.Delete(region.handle)
}

func (m *MemoryMapMetadata) getRegion(handle BlockAllocationHandle) (*memoryRegion, error) {
	region, ok := m.handleKey.Get(handle)
	if !ok {
		return nil, errors.New("received a handle that was incompatible with this metadata")
	}
	return region, nil
}

// regionIndex returns the index of the region containing offset, or len(m.regions) if offset is
// past the end of the range
func (m *MemoryMapMetadata) regionIndex(offset uint64) int {
	return sort.Search(len(m.regions), func(i int) bool {
		return m.regions[i].End() > offset
	})
}

// SumFreeSize returns the number of free bytes of memory in the range.
func (m *MemoryMapMetadata) SumFreeSize() uint64 { return m.sumFreeSize }

// AllocationCount returns the number of suballocations currently live in the implementation.
func (m *MemoryMapMetadata) AllocationCount() int { return m.allocCount }

// FreeRegionsCount returns the number of unique regions of free memory in the range.
func (m *MemoryMapMetadata) FreeRegionsCount() int { return len(m.regions) - m.allocCount }

// IsEmpty will return true if this range has no live suballocations
func (m *MemoryMapMetadata) IsEmpty() bool { return m.allocCount == 0 }

// Validate performs internal consistency checks on the metadata.
func (m *MemoryMapMetadata) Validate() error {
	var offset, sumFreeSize uint64
	var allocCount int
	previousFree := false

	for regionIndex, region := range m.regions {
		if region.Offset != offset {
			return errors.Errorf("region at index %d has offset %d, but the previous region ended at offset %d", regionIndex, region.Offset, offset)
		}

		if region.Size == 0 {
			return errors.Errorf("region at index %d has a size of zero", regionIndex)
		}

		registered, ok := m.handleKey.Get(region.handle)
		if !ok || registered != region {
			return errors.Errorf("region at offset %d is not registered under its handle %d", region.Offset, region.handle)
		}

		if region.Free {
			if previousFree {
				return errors.Errorf("free region at offset %d was not merged with the free region before it", region.Offset)
			}
			if region.Type != 0 || region.UserData != nil {
				return errors.Errorf("region at offset %d is marked as free but still carries allocation data", region.Offset)
			}

			sumFreeSize += region.Size
		} else {
			allocCount++
		}

		previousFree = region.Free
		offset = region.End()
	}

	if offset != m.Size() {
		return errors.Errorf("regions cover %d bytes, but the metadata indicates a total size of %d", offset, m.Size())
	}

	if m.handleKey.Count() != len(m.regions) {
		return errors.Errorf("there are %d registered handles, but %d regions", m.handleKey.Count(), len(m.regions))
	}

	if sumFreeSize != m.sumFreeSize {
		return errors.Errorf("counted %d free bytes, but metadata indicates we should have %d", sumFreeSize, m.sumFreeSize)
	}

	if allocCount != m.allocCount {
		return errors.Errorf("counted %d allocations, but metadata indicates we should have %d", allocCount, m.allocCount)
	}

	return nil
}

// VisitAllRegions will call the provided callback once for each allocation and free region in
// the range, in ascending offset order.
func (m *MemoryMapMetadata) VisitAllRegions(handleBlock func(handle BlockAllocationHandle, region Suballocation) error) error {
	for _, region := range m.regions {
		err := handleBlock(region.handle, region.Suballocation)
		if err != nil {
			return err
		}
	}

	return nil
}

// AllocationOffset accepts a BlockAllocationHandle that maps to a live allocation
// and returns the offset in bytes of that allocation.
func (m *MemoryMapMetadata) AllocationOffset(allocHandle BlockAllocationHandle) (uint64, error) {
	allocation, err := m.Allocation(allocHandle)
	if err != nil {
		return 0, err
	}

	return allocation.Offset, nil
}

// Allocation accepts a BlockAllocationHandle that maps to a live allocation and returns a description
// of it.
func (m *MemoryMapMetadata) Allocation(allocHandle BlockAllocationHandle) (Suballocation, error) {
	region, err := m.getRegion(allocHandle)
	if err != nil {
		return Suballocation{}, err
	}

	if region.Free {
		return Suballocation{}, errors.Errorf("the region at offset %d is not allocated", region.Offset)
	}

	return region.Suballocation, nil
}

// AddDetailedStatistics sums this range's allocation statistics into the statistics currently present
// in the provided memutils.DetailedStatistics object.
func (m *MemoryMapMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.DescriptorCount += len(m.regions)
	stats.TotalBytes += m.Size()

	for _, region := range m.regions {
		if region.Free {
			stats.AddUnusedRange(region.Size)
		} else {
			stats.AddAllocation(region.Size)
		}
	}
}

// AddStatistics sums this range's allocation statistics into the statistics currently present in the
// provided memutils.Statistics object.
func (m *MemoryMapMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.DescriptorCount += len(m.regions)
	stats.AllocationCount += m.allocCount
	stats.TotalBytes += m.Size()
	stats.AllocationBytes += m.Size() - m.sumFreeSize
}

// Clear instantly frees all allocations
func (m *MemoryMapMetadata) Clear() {
	m.reset()
}

// BlockJsonData populates a json object with information about this range
func (m *MemoryMapMetadata) BlockJsonData(json jwriter.ObjectState) {
	m.BlockMetadataBase.BlockJsonData(json, m.sumFreeSize, m.allocCount, m.FreeRegionsCount())
}

// CreateAllocationRequest retrieves an AllocationRequest object indicating where the implementation
// would prefer to place the requested memory.
func (m *MemoryMapMetadata) CreateAllocationRequest(
	allocSize uint64, allocAlignment uint64,
	strategy AllocationStrategy,
	maxOffset uint64,
) (bool, AllocationRequest, error) {
	if allocSize == 0 {
		return false, AllocationRequest{}, errors.New("allocation size must be greater than zero")
	}

	if allocAlignment == 0 {
		allocAlignment = 1
	}

	err := memutils.CheckPow2(allocAlignment, "allocAlignment")
	if err != nil {
		return false, AllocationRequest{}, err
	}

	requestType := AllocationRequestAnyOffset
	if maxOffset != math.MaxUint64 {
		requestType = AllocationRequestMaxOffset
	}

	limit := min(maxOffset, m.Size())
	bestIndex := -1
	var bestOffset uint64

	switch {
	case strategy&AllocationStrategyMinOffset != 0:
		for regionIndex, region := range m.regions {
			offset, fits := fitLow(region, allocSize, allocAlignment, limit)
			if fits {
				bestIndex, bestOffset = regionIndex, offset
				break
			}
		}
	case strategy&AllocationStrategyMinMemory != 0:
		for regionIndex, region := range m.regions {
			offset, fits := fitLow(region, allocSize, allocAlignment, limit)
			if fits && (bestIndex < 0 || region.Size < m.regions[bestIndex].Size) {
				bestIndex, bestOffset = regionIndex, offset
			}
		}
	default:
		for regionIndex := len(m.regions) - 1; regionIndex >= 0; regionIndex-- {
			offset, fits := fitHigh(m.regions[regionIndex], allocSize, allocAlignment, limit)
			if fits {
				bestIndex, bestOffset = regionIndex, offset
				break
			}
		}
	}

	if bestIndex < 0 {
		return false, AllocationRequest{}, nil
	}

	return true, AllocationRequest{
		BlockAllocationHandle: m.regions[bestIndex].handle,
		Offset:                bestOffset,
		Size:                  allocSize,
		Type:                  requestType,
	}, nil
}

func fitLow(region *memoryRegion, allocSize, allocAlignment, limit uint64) (uint64, bool) {
	if !region.Free {
		return 0, false
	}

	start := memutils.AlignUp(region.Offset, allocAlignment)
	if start < region.Offset {
		return 0, false
	}

	end := start + allocSize
	if end < start || end > region.End() || end > limit {
		return 0, false
	}

	return start, true
}

func fitHigh(region *memoryRegion, allocSize, allocAlignment, limit uint64) (uint64, bool) {
	if !region.Free {
		return 0, false
	}

	end := min(region.End(), limit)
	if end < allocSize {
		return 0, false
	}

	start := memutils.AlignDown(end-allocSize, allocAlignment)
	if start < region.Offset {
		return 0, false
	}

	return start, true
}

// CreateFixedAllocationRequest retrieves an AllocationRequest object for an allocation at exactly
// the provided offset.
func (m *MemoryMapMetadata) CreateFixedAllocationRequest(offset uint64, allocSize uint64) (bool, AllocationRequest, error) {
	if allocSize == 0 {
		return false, AllocationRequest{}, errors.New("allocation size must be greater than zero")
	}

	end := offset + allocSize
	if end < offset || end > m.Size() {
		return false, AllocationRequest{}, nil
	}

	regionIndex := m.regionIndex(offset)
	if regionIndex >= len(m.regions) {
		return false, AllocationRequest{}, nil
	}

	region := m.regions[regionIndex]
	if !region.Free || !region.Contains(offset, allocSize) {
		return false, AllocationRequest{}, nil
	}

	return true, AllocationRequest{
		BlockAllocationHandle: region.handle,
		Offset:                offset,
		Size:                  allocSize,
		Type:                  AllocationRequestFixedOffset,
	}, nil
}

// Alloc commits an AllocationRequest object, splitting the free region it was carved from.
func (m *MemoryMapMetadata) Alloc(request AllocationRequest, allocType uint32, userData any) (BlockAllocationHandle, error) {
	region, err := m.getRegion(request.BlockAllocationHandle)
	if err != nil {
		return NoAllocation, err
	}

	if !region.Free {
		return NoAllocation, errors.Errorf("the region at offset %d is no longer free", region.Offset)
	}

	if request.Size == 0 || !region.Contains(request.Offset, request.Size) {
		return NoAllocation, errors.Errorf("the region at offset %d with size %d can no longer hold an allocation at offset %d with size %d", region.Offset, region.Size, request.Offset, request.Size)
	}

	regionIndex := m.regionIndex(region.Offset)
	replacement := make([]*memoryRegion, 0, 3)

	if request.Offset > region.Offset {
		replacement = append(replacement, m.newRegion(region.Offset, request.Offset-region.Offset))
	}

	allocated := m.newRegion(request.Offset, request.Size)
	allocated.Free = false
	allocated.Type = allocType
	allocated.UserData = userData
	replacement = append(replacement, allocated)

	allocEnd := request.Offset + request.Size
	if allocEnd < region.End() {
		replacement = append(replacement, m.newRegion(allocEnd, region.End()-allocEnd))
	}

	m.releaseRegion(region)
	m.regions = slices.Replace(m.regions, regionIndex, regionIndex+1, replacement...)

	m.allocCount++
	m.sumFreeSize -= request.Size

	return allocated.handle, nil
}

// Free frees a suballocation, merging it with any free neighbors.
func (m *MemoryMapMetadata) Free(allocHandle BlockAllocationHandle) error {
	region, err := m.getRegion(allocHandle)
	if err != nil {
		return err
	}

	if region.Free {
		return errors.Errorf("attempted to free the region at offset %d, which is already free", region.Offset)
	}

	regionIndex := m.regionIndex(region.Offset)

	region.Free = true
	region.Type = 0
	region.UserData = nil
	m.allocCount--
	m.sumFreeSize += region.Size

	if regionIndex+1 < len(m.regions) && m.regions[regionIndex+1].Free {
		next := m.regions[regionIndex+1]
		region.Size += next.Size
		m.releaseRegion(next)
		m.regions = slices.Delete(m.regions, regionIndex+1, regionIndex+2)
	}

	if regionIndex > 0 && m.regions[regionIndex-1].Free {
		prev := m.regions[regionIndex-1]
		prev.Size += region.Size
		m.releaseRegion(region)
		m.regions = slices.Delete(m.regions, regionIndex, regionIndex+1)
	}

	return nil
}
