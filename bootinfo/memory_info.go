package bootinfo

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/horizon2038/a9nloader/memutils"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// MemoryMapType is the coarse classification of physical memory handed to the kernel
type MemoryMapType uint32

const (
	// MemoryMapFree is memory the kernel may use once boot services have exited
	MemoryMapFree MemoryMapType = iota
	// MemoryMapDevice is memory-mapped I/O
	MemoryMapDevice
	// MemoryMapReserved is everything else, including the pages holding the loaded images
	MemoryMapReserved
)

var memoryMapTypeMapping = map[MemoryMapType]string{
	MemoryMapFree:     "Free",
	MemoryMapDevice:   "Device",
	MemoryMapReserved: "Reserved",
}

func (t MemoryMapType) String() string {
	str, ok := memoryMapTypeMapping[t]
	if !ok {
		return fmt.Sprintf("MemoryMapType(%d)", uint32(t))
	}
	return str
}

// Classify maps a firmware memory type onto the kernel's classification. Boot services and loader
// memory is free once the firmware is gone; the pages the loader reserved for the images are tagged
// Reserved and so stay out of the free pool.
func Classify(memoryType firmware.MemoryType) MemoryMapType {
	switch memoryType {
	case firmware.MemoryTypeConventional,
		firmware.MemoryTypeLoaderCode,
		firmware.MemoryTypeLoaderData,
		firmware.MemoryTypeBootServicesCode,
		firmware.MemoryTypeBootServicesData:
		return MemoryMapFree
	case firmware.MemoryTypeMMIO,
		firmware.MemoryTypeMMIOPortSpace:
		return MemoryMapDevice
	default:
		return MemoryMapReserved
	}
}

// MemoryMapEntry is a run of physical pages sharing a classification
type MemoryMapEntry struct {
	PhysicalAddressStart uint64
	PageCount            int
	Type                 MemoryMapType
}

// End returns the first physical address past the entry
func (e MemoryMapEntry) End() uint64 {
	return e.PhysicalAddressStart + memutils.PagesToBytes(e.PageCount)
}

// MemoryInfo is the memory map handed to the kernel. Entries are sorted by address, and adjacent
// entries never share a type.
type MemoryInfo struct {
	// MemorySize is the number of bytes described by the firmware memory map
	MemorySize uint64
	Entries    []MemoryMapEntry
}

// BuildMemoryInfo collects the firmware memory map into a MemoryInfo
func BuildMemoryInfo(logger *slog.Logger, memoryMap firmware.MemoryMap) (MemoryInfo, error) {
	var info MemoryInfo
	var descriptorCount int

	err := memoryMap.VisitMemoryMap(func(descriptor firmware.MemoryDescriptor) error {
		descriptorCount++
		if descriptor.Pages <= 0 {
			return nil
		}

		info.MemorySize += memutils.PagesToBytes(descriptor.Pages)
		info.Entries = append(info.Entries, MemoryMapEntry{
			PhysicalAddressStart: descriptor.PhysicalStart,
			PageCount:            descriptor.Pages,
			Type:                 Classify(descriptor.Type),
		})
		return nil
	})
	if err != nil {
		return MemoryInfo{}, errors.Wrap(err, "failed to read the firmware memory map")
	}

	slices.SortFunc(info.Entries, func(left, right MemoryMapEntry) int {
		switch {
		case left.PhysicalAddressStart < right.PhysicalAddressStart:
			return -1
		case left.PhysicalAddressStart > right.PhysicalAddressStart:
			return 1
		default:
			return 0
		}
	})
	info.Entries = mergeEntries(info.Entries)

	logger.Debug("Built memory map",
		slog.Int("descriptors", descriptorCount),
		slog.Int("entries", len(info.Entries)),
		slog.String("memory_size", humanize.IBytes(info.MemorySize)),
		slog.String("free", humanize.IBytes(info.FreeBytes())),
	)

	return info, nil
}

func mergeEntries(entries []MemoryMapEntry) []MemoryMapEntry {
	if len(entries) == 0 {
		return entries
	}

	merged := entries[:1]
	for _, entry := range entries[1:] {
		last := &merged[len(merged)-1]
		if last.Type == entry.Type && last.End() == entry.PhysicalAddressStart {
			last.PageCount += entry.PageCount
			continue
		}
		merged = append(merged, entry)
	}

	return merged
}

// FreeBytes returns the number of bytes classified as free
func (i MemoryInfo) FreeBytes() uint64 {
	var free uint64
	for _, entry := range i.Entries {
		if entry.Type == MemoryMapFree {
			free += memutils.PagesToBytes(entry.PageCount)
		}
	}
	return free
}

// Validate checks that entries are ordered, do not overlap and fit in the kernel's 16-bit entry count
func (i MemoryInfo) Validate() error {
	if len(i.Entries) > math.MaxUint16 {
		return errors.Newf("memory map has %d entries, at most %d can be handed over", len(i.Entries), math.MaxUint16)
	}

	for index := 1; index < len(i.Entries); index++ {
		previous := i.Entries[index-1]
		current := i.Entries[index]

		if current.PhysicalAddressStart < previous.End() {
			return errors.Newf("memory map entry %d at 0x%016x overlaps entry %d [0x%016x, 0x%016x)",
				index, current.PhysicalAddressStart, index-1, previous.PhysicalAddressStart, previous.End())
		}
	}

	return nil
}
