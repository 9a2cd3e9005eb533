package memutils

import "math"

// Statistics summarizes a physical memory map: how many descriptors it is made of, how many live
// allocations it holds, and how many bytes each of those cover.
type Statistics struct {
	DescriptorCount int
	AllocationCount int
	TotalBytes      uint64
	AllocationBytes uint64
}

func (s *Statistics) Clear() {
	s.DescriptorCount = 0
	s.AllocationCount = 0
	s.TotalBytes = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.DescriptorCount += other.DescriptorCount
	s.AllocationCount += other.AllocationCount
	s.TotalBytes += other.TotalBytes
	s.AllocationBytes += other.AllocationBytes
}

// DetailedStatistics extends Statistics with free range counts and the size extremes of allocations
// and free ranges. Clear must be called before the first Add so the minimums start out high.
type DetailedStatistics struct {
	Statistics
	UnusedRangeCount   int
	AllocationSizeMin  uint64
	AllocationSizeMax  uint64
	UnusedRangeSizeMin uint64
	UnusedRangeSizeMax uint64
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.UnusedRangeCount = 0
	s.AllocationSizeMin = math.MaxUint64
	s.AllocationSizeMax = 0
	s.UnusedRangeSizeMin = math.MaxUint64
	s.UnusedRangeSizeMax = 0
}

// AddUnusedRange records a free range of the given size
func (s *DetailedStatistics) AddUnusedRange(size uint64) {
	s.UnusedRangeCount++
	s.UnusedRangeSizeMin = min(s.UnusedRangeSizeMin, size)
	s.UnusedRangeSizeMax = max(s.UnusedRangeSizeMax, size)
}

// AddAllocation records a live allocation of the given size
func (s *DetailedStatistics) AddAllocation(size uint64) {
	s.AllocationCount++
	s.AllocationBytes += size
	s.AllocationSizeMin = min(s.AllocationSizeMin, size)
	s.AllocationSizeMax = max(s.AllocationSizeMax, size)
}

// AddDetailedStatistics folds other into s
func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.UnusedRangeCount += other.UnusedRangeCount
	s.UnusedRangeSizeMin = min(s.UnusedRangeSizeMin, other.UnusedRangeSizeMin)
	s.UnusedRangeSizeMax = max(s.UnusedRangeSizeMax, other.UnusedRangeSizeMax)
	s.AllocationSizeMin = min(s.AllocationSizeMin, other.AllocationSizeMin)
	s.AllocationSizeMax = max(s.AllocationSizeMax, other.AllocationSizeMax)
}
