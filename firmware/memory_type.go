package firmware

import "fmt"

// MemoryType is the tag recorded in the firmware memory map for a range of physical pages. Values
// match the UEFI EFI_MEMORY_TYPE enumeration.
type MemoryType uint32

const (
	MemoryTypeReserved MemoryType = iota
	MemoryTypeLoaderCode
	MemoryTypeLoaderData
	MemoryTypeBootServicesCode
	MemoryTypeBootServicesData
	MemoryTypeRuntimeServicesCode
	MemoryTypeRuntimeServicesData
	MemoryTypeConventional
	MemoryTypeUnusable
	MemoryTypeACPIReclaim
	MemoryTypeACPINonVolatile
	MemoryTypeMMIO
	MemoryTypeMMIOPortSpace
	MemoryTypePalCode
	MemoryTypePersistent
	MemoryTypeUnaccepted

	// MemoryTypeMax is one past the last memory type defined by UEFI.
	// Requests carrying a tag at or above it, below the OEM range, are invalid.
	MemoryTypeMax
)

var memoryTypeMapping = map[MemoryType]string{
	MemoryTypeReserved:            "Reserved",
	MemoryTypeLoaderCode:          "LoaderCode",
	MemoryTypeLoaderData:          "LoaderData",
	MemoryTypeBootServicesCode:    "BootServicesCode",
	MemoryTypeBootServicesData:    "BootServicesData",
	MemoryTypeRuntimeServicesCode: "RuntimeServicesCode",
	MemoryTypeRuntimeServicesData: "RuntimeServicesData",
	MemoryTypeConventional:        "Conventional",
	MemoryTypeUnusable:            "Unusable",
	MemoryTypeACPIReclaim:         "ACPIReclaim",
	MemoryTypeACPINonVolatile:     "ACPINonVolatile",
	MemoryTypeMMIO:                "MMIO",
	MemoryTypeMMIOPortSpace:       "MMIOPortSpace",
	MemoryTypePalCode:             "PalCode",
	MemoryTypePersistent:          "Persistent",
	MemoryTypeUnaccepted:          "Unaccepted",
}

func (t MemoryType) String() string {
	str, ok := memoryTypeMapping[t]
	if !ok {
		return fmt.Sprintf("MemoryType(0x%x)", uint32(t))
	}
	return str
}
