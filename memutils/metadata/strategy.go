package metadata

// AllocationStrategy exposes several options for choosing the location of a new allocation whose address
// the consumer does not care about. If none is chosen, AllocationStrategyMaxOffset is used, which matches
// the top-down behavior of most firmware page allocators.
type AllocationStrategy uint32

const (
	// AllocationStrategyMinMemory selects the smallest free range that can hold the allocation, to
	// keep large ranges intact for later requests
	AllocationStrategyMinMemory AllocationStrategy = 1 << iota
	// AllocationStrategyMinOffset selects the lowest suitable offset in the managed range
	AllocationStrategyMinOffset
	// AllocationStrategyMaxOffset selects the highest suitable offset in the managed range
	AllocationStrategyMaxOffset
)

var allocationStrategyMapping = map[AllocationStrategy]string{
	AllocationStrategyMinMemory: "MinMemory",
	AllocationStrategyMinOffset: "MinOffset",
	AllocationStrategyMaxOffset: "MaxOffset",
}

func (s AllocationStrategy) String() string {
	return allocationStrategyMapping[s]
}
