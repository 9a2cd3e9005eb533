package firmware

import (
	"github.com/horizon2038/a9nloader/memutils"
)

// AllocateType selects how the firmware chooses the physical address of a page allocation.
// Values match the UEFI EFI_ALLOCATE_TYPE enumeration.
type AllocateType uint32

const (
	// AllocateAnyPages lets the firmware pick any free range
	AllocateAnyPages AllocateType = iota
	// AllocateMaxAddress lets the firmware pick any free range whose last byte is at or below
	// AllocationRequest.Address
	AllocateMaxAddress
	// AllocateAddress requires the allocation to begin exactly at AllocationRequest.Address
	AllocateAddress
)

var allocateTypeMapping = map[AllocateType]string{
	AllocateAnyPages:   "AnyPages",
	AllocateMaxAddress: "MaxAddress",
	AllocateAddress:    "Address",
}

func (t AllocateType) String() string {
	return allocateTypeMapping[t]
}

// AllocationRequest describes a single page allocation. Use ExactRequest and AnyRequest rather than
// building one by hand.
type AllocationRequest struct {
	Type       AllocateType
	Address    uint64
	Pages      int
	MemoryType MemoryType
}

// ExactRequest builds a request for pages starting exactly at address
func ExactRequest(address uint64, pages int, memoryType MemoryType) AllocationRequest {
	return AllocationRequest{
		Type:       AllocateAddress,
		Address:    address,
		Pages:      pages,
		MemoryType: memoryType,
	}
}

// AnyRequest builds a request for pages at an address of the firmware's choosing
func AnyRequest(pages int, memoryType MemoryType) AllocationRequest {
	return AllocationRequest{
		Type:       AllocateAnyPages,
		Pages:      pages,
		MemoryType: memoryType,
	}
}

// Size returns the number of bytes covered by the request
func (r AllocationRequest) Size() uint64 {
	return memutils.PagesToBytes(r.Pages)
}

// Region is a handle to a range of physical memory that the firmware has handed out. All accesses
// use absolute physical addresses and must fall within [Address(), Address()+Size()); anything else
// fails with an error marked ErrOutOfBounds and leaves memory untouched.
type Region interface {
	Address() uint64
	Size() uint64
	Pages() int
	MemoryType() MemoryType

	// Write copies data to physical memory starting at address
	Write(address uint64, data []byte) error
	// Zero clears length bytes of physical memory starting at address
	Zero(address uint64, length uint64) error
	// Read copies physical memory starting at address into data
	Read(address uint64, data []byte) error
}

// Allocator is the firmware page allocator (boot services AllocatePages).
type Allocator interface {
	Allocate(request AllocationRequest) (Region, error)
}

// AllocateExact reserves pages starting exactly at address
func AllocateExact(allocator Allocator, address uint64, memoryType MemoryType, pages int) (Region, error) {
	return allocator.Allocate(ExactRequest(address, pages, memoryType))
}

// AllocateAny reserves pages at an address of the firmware's choosing
func AllocateAny(allocator Allocator, memoryType MemoryType, pages int) (Region, error) {
	return allocator.Allocate(AnyRequest(pages, memoryType))
}

//go:generate mockgen -destination mocks/mocks.go -package mocks . Allocator,FileSystem,MemoryMap,Region
