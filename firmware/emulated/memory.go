package emulated

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/horizon2038/a9nloader/internal/utils"
	"github.com/horizon2038/a9nloader/memutils"
	"github.com/horizon2038/a9nloader/memutils/metadata"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// memoryTypeOEMStart is the first tag of the range reserved for OEM and OS loader use. Tags between
// firmware.MemoryTypeMax and this are invalid.
const memoryTypeOEMStart firmware.MemoryType = 0x70000000

// Memory is a host-side stand-in for the firmware page allocator. It owns a flat byte slice that
// represents physical RAM starting at address zero and tracks every range in a memory map.
type Memory struct {
	logger        *slog.Logger
	mutex         utils.OptionalRWMutex
	ram           []byte
	metadata      *metadata.MemoryMapMetadata
	strategy      metadata.AllocationStrategy
	rejectedTypes []firmware.MemoryType
	callbacks     memoryCallbacks
}

var _ firmware.Allocator = &Memory{}
var _ firmware.MemoryMap = &Memory{}

// Size returns the number of bytes of emulated RAM
func (m *Memory) Size() uint64 {
	return uint64(len(m.ram))
}

// Allocate implements firmware.Allocator
func (m *Memory) Allocate(request firmware.AllocationRequest) (firmware.Region, error) {
	region, err := m.allocate(request, nil)
	if err != nil {
		return nil, err
	}

	m.callbacks.Allocate(region)
	return region, nil
}

func (m *Memory) allocate(request firmware.AllocationRequest, userData any) (*region, error) {
	if request.Pages <= 0 {
		return nil, errors.Mark(errors.Newf("cannot allocate %d pages", request.Pages), firmware.ErrInvalidParameter)
	}

	if request.MemoryType >= firmware.MemoryTypeMax && request.MemoryType < memoryTypeOEMStart {
		return nil, errors.Mark(errors.Newf("memory type %s is not valid", request.MemoryType), firmware.ErrInvalidParameter)
	}

	if slices.Contains(m.rejectedTypes, request.MemoryType) {
		return nil, errors.Mark(errors.Newf("memory type %s is not accepted by this firmware", request.MemoryType), firmware.ErrInvalidParameter)
	}

	size := request.Size()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var success bool
	var allocRequest metadata.AllocationRequest
	var err error

	switch request.Type {
	case firmware.AllocateAddress:
		err = memutils.CheckPageAligned(request.Address, "address")
		if err != nil {
			return nil, errors.Mark(err, firmware.ErrInvalidParameter)
		}

		success, allocRequest, err = m.metadata.CreateFixedAllocationRequest(request.Address, size)
		if err != nil {
			return nil, err
		}
		if !success {
			return nil, errors.Mark(errors.Newf("%d pages at 0x%016x are not available", request.Pages, request.Address), firmware.ErrNotFound)
		}
	case firmware.AllocateAnyPages, firmware.AllocateMaxAddress:
		maxOffset := uint64(math.MaxUint64)
		if request.Type == firmware.AllocateMaxAddress && request.Address != math.MaxUint64 {
			maxOffset = request.Address + 1
		}

		success, allocRequest, err = m.metadata.CreateAllocationRequest(size, memutils.PageSize, m.strategy, maxOffset)
		if err != nil {
			return nil, err
		}
		if !success {
			return nil, errors.Mark(errors.Newf("no free range can hold %d pages", request.Pages), firmware.ErrOutOfResources)
		}
	default:
		return nil, errors.Mark(errors.Newf("unknown allocate type %d", request.Type), firmware.ErrInvalidParameter)
	}

	allocated := &region{
		memory:     m,
		address:    allocRequest.Offset,
		size:       size,
		memoryType: request.MemoryType,
		userData:   userData,
	}

	allocated.handle, err = m.metadata.Alloc(allocRequest, uint32(request.MemoryType), allocated)
	if err != nil {
		return nil, err
	}
	memutils.DebugValidate(m.metadata)

	m.logger.Debug("allocated pages",
		slog.String("allocate_type", request.Type.String()),
		slog.String("memory_type", request.MemoryType.String()),
		slog.String("address", fmt.Sprintf("0x%016x", allocated.address)),
		slog.Int("pages", request.Pages),
		slog.String("size", humanize.IBytes(size)),
	)

	return allocated, nil
}

// Free returns a region's pages to the memory map (boot services FreePages)
func (m *Memory) Free(freed firmware.Region) error {
	r, ok := freed.(*region)
	if !ok || r == nil || r.memory != m {
		return errors.Mark(errors.New("region was not allocated from this memory"), firmware.ErrInvalidParameter)
	}

	err := m.free(r)
	if err != nil {
		return err
	}

	m.callbacks.Free(r)
	return nil
}

func (m *Memory) free(r *region) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r.handle == metadata.NoAllocation {
		return errors.Mark(errors.Newf("region at 0x%016x has already been freed", r.address), firmware.ErrNotFound)
	}

	err := m.metadata.Free(r.handle)
	if err != nil {
		return err
	}
	memutils.DebugValidate(m.metadata)

	r.handle = metadata.NoAllocation
	return nil
}

// ReadPhysical copies emulated RAM starting at address into data, regardless of which regions
// the range covers
func (m *Memory) ReadPhysical(address uint64, data []byte) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.copyOut(address, data)
}

func (m *Memory) checkRange(address, length uint64) error {
	end := address + length
	if end < address || end > uint64(len(m.ram)) {
		return errors.Mark(errors.Newf("range [0x%x, 0x%x) is outside of physical memory", address, end), firmware.ErrOutOfBounds)
	}
	return nil
}

func (m *Memory) copyOut(address uint64, data []byte) error {
	err := m.checkRange(address, uint64(len(data)))
	if err != nil {
		return err
	}

	copy(data, m.ram[address:])
	return nil
}

func (m *Memory) copyIn(address uint64, data []byte) error {
	err := m.checkRange(address, uint64(len(data)))
	if err != nil {
		return err
	}

	copy(m.ram[address:], data)
	return nil
}

func (m *Memory) clear(address, length uint64) error {
	err := m.checkRange(address, length)
	if err != nil {
		return err
	}

	clear(m.ram[address : address+length])
	return nil
}

// VisitMemoryMap implements firmware.MemoryMap. Free pages are reported as conventional memory.
func (m *Memory) VisitMemoryMap(visit func(descriptor firmware.MemoryDescriptor) error) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.metadata.VisitAllRegions(func(handle metadata.BlockAllocationHandle, region metadata.Suballocation) error {
		descriptor := firmware.MemoryDescriptor{
			Type:          firmware.MemoryType(region.Type),
			PhysicalStart: region.Offset,
			Pages:         memutils.BytesToPages(region.Size),
		}

		if region.Free {
			descriptor.Type = firmware.MemoryTypeConventional
		}

		return visit(descriptor)
	})
}

// CalculateStatistics populates stats with the current state of the memory map
func (m *Memory) CalculateStatistics(stats *memutils.DetailedStatistics) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats.Clear()
	m.metadata.AddDetailedStatistics(stats)
}

// Validate performs internal consistency checks on the memory map
func (m *Memory) Validate() error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.metadata.Validate()
}

// PrintDetailedMap writes the memory map as a json object
func (m *Memory) PrintDetailedMap(writer *jwriter.Writer) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	objState := writer.Object()
	defer objState.End()

	m.metadata.BlockJsonData(objState)

	arrayState := objState.Name("Regions").Array()
	defer arrayState.End()

	_ = m.metadata.VisitAllRegions(func(handle metadata.BlockAllocationHandle, suballoc metadata.Suballocation) error {
		obj := arrayState.Object()
		defer obj.End()

		obj.Name("Address").String(fmt.Sprintf("0x%016x", suballoc.Offset))
		obj.Name("Pages").Int(memutils.BytesToPages(suballoc.Size))

		if suballoc.Free {
			obj.Name("Type").String(firmware.MemoryTypeConventional.String())
			return nil
		}

		obj.Name("Type").String(firmware.MemoryType(suballoc.Type).String())

		allocated, isRegion := suballoc.UserData.(*region)
		if isRegion && allocated != nil && allocated.userData != nil {
			obj.Name("CustomData").String(fmt.Sprintf("%+v", allocated.userData))
		}

		return nil
	})
}
