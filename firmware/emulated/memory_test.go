package emulated

import (
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/horizon2038/a9nloader/memutils"
	"github.com/horizon2038/a9nloader/memutils/metadata"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func readyMemory(t *testing.T, options CreateOptions) *Memory {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	memory, err := New(logger, options)
	require.NoError(t, err)
	return memory
}

func collectMemoryMap(t *testing.T, memory *Memory) []firmware.MemoryDescriptor {
	var descriptors []firmware.MemoryDescriptor
	err := memory.VisitMemoryMap(func(descriptor firmware.MemoryDescriptor) error {
		descriptors = append(descriptors, descriptor)
		return nil
	})
	require.NoError(t, err)
	return descriptors
}

func TestNewClaimsFirmwareRanges(t *testing.T) {
	memory := readyMemory(t, CreateOptions{MemorySize: 0x200000})

	require.Equal(t, []firmware.MemoryDescriptor{
		{Type: firmware.MemoryTypeReserved, PhysicalStart: 0, Pages: 1},
		{Type: firmware.MemoryTypeConventional, PhysicalStart: 0x1000, Pages: 0x9F},
		{Type: firmware.MemoryTypeMMIO, PhysicalStart: 0xA0000, Pages: 0x60},
		{Type: firmware.MemoryTypeConventional, PhysicalStart: 0x100000, Pages: 0x100},
	}, collectMemoryMap(t, memory))
	require.Equal(t, uint64(0x200000), memory.Size())
	require.NoError(t, memory.Validate())
}

func TestNewRejectsBadOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	_, err := New(logger, CreateOptions{MemorySize: 0x1800})
	require.Error(t, err)
	require.True(t, errors.Is(err, firmware.ErrInvalidParameter))

	_, err = New(logger, CreateOptions{
		MemorySize: 0x10000,
		FirmwareRanges: []FirmwareRange{
			{Address: 0x1000, Pages: 2, Type: firmware.MemoryTypeReserved},
			{Address: 0x2000, Pages: 1, Type: firmware.MemoryTypeReserved},
		},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, firmware.ErrNotFound))
}

func TestAllocateExact(t *testing.T) {
	memory := readyMemory(t, CreateOptions{MemorySize: 0x400000})

	region, err := firmware.AllocateExact(memory, 0x200000, firmware.MemoryTypeReserved, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(0x200000), region.Address())
	require.Equal(t, uint64(0x2000), region.Size())
	require.Equal(t, 2, region.Pages())
	require.Equal(t, firmware.MemoryTypeReserved, region.MemoryType())

	testCases := map[string]struct {
		Address     uint64
		Pages       int
		ExpectedErr error
	}{
		"AlreadyReserved": {
			Address:     0x200000,
			Pages:       1,
			ExpectedErr: firmware.ErrNotFound,
		},
		"Overlapping": {
			Address:     0x1FF000,
			Pages:       2,
			ExpectedErr: firmware.ErrNotFound,
		},
		"FirmwareOwned": {
			Address:     0xB0000,
			Pages:       1,
			ExpectedErr: firmware.ErrNotFound,
		},
		"PastEndOfMemory": {
			Address:     0x3FF000,
			Pages:       2,
			ExpectedErr: firmware.ErrNotFound,
		},
		"Unaligned": {
			Address:     0x300010,
			Pages:       1,
			ExpectedErr: firmware.ErrInvalidParameter,
		},
		"ZeroPages": {
			Address:     0x300000,
			Pages:       0,
			ExpectedErr: firmware.ErrInvalidParameter,
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := firmware.AllocateExact(memory, testCase.Address, firmware.MemoryTypeReserved, testCase.Pages)
			require.Error(t, err)
			require.True(t, errors.Is(err, testCase.ExpectedErr), "unexpected error: %+v", err)
		})
	}

	require.NoError(t, memory.Validate())
}

func TestAllocateAnyPlacement(t *testing.T) {
	testCases := map[string]struct {
		Strategy        metadata.AllocationStrategy
		Request         firmware.AllocationRequest
		ExpectedAddress uint64
	}{
		"TopDownByDefault": {
			Request:         firmware.AnyRequest(1, firmware.MemoryTypeReserved),
			ExpectedAddress: 0x3FF000,
		},
		"LowestFirst": {
			Strategy:        metadata.AllocationStrategyMinOffset,
			Request:         firmware.AnyRequest(1, firmware.MemoryTypeLoaderData),
			ExpectedAddress: 0x1000,
		},
		"BelowMaxAddress": {
			Request: firmware.AllocationRequest{
				Type:       firmware.AllocateMaxAddress,
				Address:    0x7FFFF,
				Pages:      2,
				MemoryType: firmware.MemoryTypeReserved,
			},
			ExpectedAddress: 0x7E000,
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			memory := readyMemory(t, CreateOptions{
				MemorySize: 0x400000,
				Strategy:   testCase.Strategy,
			})

			region, err := memory.Allocate(testCase.Request)
			require.NoError(t, err)
			require.Equal(t, testCase.ExpectedAddress, region.Address())
			require.Equal(t, testCase.Request.Size(), region.Size())
			require.NoError(t, memory.Validate())
		})
	}
}

func TestAllocateOutOfResources(t *testing.T) {
	memory := readyMemory(t, CreateOptions{
		MemorySize:     0x4000,
		FirmwareRanges: []FirmwareRange{},
	})

	_, err := firmware.AllocateAny(memory, firmware.MemoryTypeReserved, 5)
	require.Error(t, err)
	require.True(t, errors.Is(err, firmware.ErrOutOfResources))

	_, err = firmware.AllocateAny(memory, firmware.MemoryTypeReserved, 4)
	require.NoError(t, err)

	_, err = firmware.AllocateAny(memory, firmware.MemoryTypeReserved, 1)
	require.True(t, errors.Is(err, firmware.ErrOutOfResources))
}

func TestAllocateRejectedMemoryTypes(t *testing.T) {
	memory := readyMemory(t, CreateOptions{
		MemorySize:          0x100000,
		RejectedMemoryTypes: []firmware.MemoryType{firmware.MemoryTypeUnusable},
	})

	_, err := firmware.AllocateExact(memory, 0x6000, firmware.MemoryTypeUnusable, 1)
	require.True(t, errors.Is(err, firmware.ErrInvalidParameter))

	_, err = firmware.AllocateExact(memory, 0x6000, firmware.MemoryType(0x100), 1)
	require.True(t, errors.Is(err, firmware.ErrInvalidParameter))

	region, err := firmware.AllocateExact(memory, 0x6000, firmware.MemoryTypeReserved, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(0x6000), region.Address())

	oem, err := firmware.AllocateAny(memory, firmware.MemoryType(0x80000001), 1)
	require.NoError(t, err)
	require.Equal(t, firmware.MemoryType(0x80000001), oem.MemoryType())
}

func TestRegionAccessIsBounded(t *testing.T) {
	memory := readyMemory(t, CreateOptions{MemorySize: 0x100000})

	region, err := firmware.AllocateExact(memory, 0x10000, firmware.MemoryTypeReserved, 1)
	require.NoError(t, err)

	require.NoError(t, region.Write(0x10FFC, []byte{1, 2, 3, 4}))

	data := make([]byte, 4)
	require.NoError(t, region.Read(0x10FFC, data))
	require.Equal(t, []byte{1, 2, 3, 4}, data)

	testCases := map[string]func() error{
		"WritePastEnd": func() error {
			return region.Write(0x10FFD, []byte{9, 9, 9, 9})
		},
		"WriteBeforeStart": func() error {
			return region.Write(0xFFFF, []byte{9, 9})
		},
		"ZeroPastEnd": func() error {
			return region.Zero(0x10800, 0x1000)
		},
		"ReadPastEnd": func() error {
			return region.Read(0x10FFF, make([]byte, 2))
		},
		"WrappingLength": func() error {
			return region.Zero(0x10000, ^uint64(0))
		},
	}

	for name, access := range testCases {
		t.Run(name, func(t *testing.T) {
			err := access()
			require.Error(t, err)
			require.True(t, errors.Is(err, firmware.ErrOutOfBounds))
		})
	}

	// Rejected accesses leave memory untouched
	require.NoError(t, memory.ReadPhysical(0x10FFC, data))
	require.Equal(t, []byte{1, 2, 3, 4}, data)
	require.NoError(t, memory.ReadPhysical(0x11000, data[:1]))
	require.Equal(t, byte(0), data[0])

	require.NoError(t, region.Zero(0x10FFE, 2))
	require.NoError(t, memory.ReadPhysical(0x10FFC, data))
	require.Equal(t, []byte{1, 2, 0, 0}, data)

	err = memory.ReadPhysical(0xFFFFF, make([]byte, 2))
	require.True(t, errors.Is(err, firmware.ErrOutOfBounds))
}

func TestFreeAndCallbacks(t *testing.T) {
	var allocated, freed []uint64

	memory := readyMemory(t, CreateOptions{
		MemorySize:     0x10000,
		FirmwareRanges: []FirmwareRange{},
		CallbackOptions: &CallbackOptions{
			Allocate: func(memory *Memory, region firmware.Region, userData interface{}) {
				require.Equal(t, "user", userData)
				allocated = append(allocated, region.Address())
			},
			Free: func(memory *Memory, region firmware.Region, userData interface{}) {
				freed = append(freed, region.Address())
			},
			UserData: "user",
		},
	})

	first, err := firmware.AllocateExact(memory, 0x2000, firmware.MemoryTypeLoaderData, 1)
	require.NoError(t, err)
	second, err := firmware.AllocateExact(memory, 0x3000, firmware.MemoryTypeLoaderData, 1)
	require.NoError(t, err)

	var stats memutils.DetailedStatistics
	memory.CalculateStatistics(&stats)
	require.Equal(t, 2, stats.AllocationCount)
	require.Equal(t, uint64(0x2000), stats.AllocationBytes)
	require.Equal(t, 2, stats.UnusedRangeCount)

	require.NoError(t, memory.Free(first))
	require.NoError(t, memory.Free(second))
	require.NoError(t, memory.Validate())

	require.Equal(t, []uint64{0x2000, 0x3000}, allocated)
	require.Equal(t, []uint64{0x2000, 0x3000}, freed)
	require.Equal(t, []firmware.MemoryDescriptor{
		{Type: firmware.MemoryTypeConventional, PhysicalStart: 0, Pages: 16},
	}, collectMemoryMap(t, memory))

	err = memory.Free(first)
	require.True(t, errors.Is(err, firmware.ErrNotFound))

	err = first.Write(0x2000, []byte{1})
	require.True(t, errors.Is(err, firmware.ErrOutOfBounds))

	other := readyMemory(t, CreateOptions{MemorySize: 0x10000, FirmwareRanges: []FirmwareRange{}})
	foreign, err := firmware.AllocateAny(other, firmware.MemoryTypeLoaderData, 1)
	require.NoError(t, err)
	err = memory.Free(foreign)
	require.True(t, errors.Is(err, firmware.ErrInvalidParameter))
}

func TestCallbacksReenterMemory(t *testing.T) {
	var allocatedMaps, freedMaps [][]firmware.MemoryDescriptor
	var freedContents []byte

	memory := readyMemory(t, CreateOptions{
		MemorySize:     0x4000,
		FirmwareRanges: []FirmwareRange{},
		CallbackOptions: &CallbackOptions{
			Allocate: func(memory *Memory, region firmware.Region, userData interface{}) {
				allocatedMaps = append(allocatedMaps, collectMemoryMap(t, memory))
			},
			Free: func(memory *Memory, region firmware.Region, userData interface{}) {
				freedMaps = append(freedMaps, collectMemoryMap(t, memory))

				var stats memutils.DetailedStatistics
				memory.CalculateStatistics(&stats)
				require.Equal(t, 0, stats.AllocationCount)

				freedContents = make([]byte, 4)
				require.NoError(t, memory.ReadPhysical(region.Address(), freedContents))

				err := region.Read(region.Address(), make([]byte, 1))
				require.True(t, errors.Is(err, firmware.ErrOutOfBounds))
			},
		},
	})

	region, err := firmware.AllocateExact(memory, 0x1000, firmware.MemoryTypeLoaderData, 1)
	require.NoError(t, err)
	require.NoError(t, region.Write(0x1000, []byte("boot")))

	require.NoError(t, memory.Free(region))

	require.Equal(t, [][]firmware.MemoryDescriptor{{
		{Type: firmware.MemoryTypeConventional, PhysicalStart: 0, Pages: 1},
		{Type: firmware.MemoryTypeLoaderData, PhysicalStart: 0x1000, Pages: 1},
		{Type: firmware.MemoryTypeConventional, PhysicalStart: 0x2000, Pages: 2},
	}}, allocatedMaps)
	require.Equal(t, [][]firmware.MemoryDescriptor{{
		{Type: firmware.MemoryTypeConventional, PhysicalStart: 0, Pages: 4},
	}}, freedMaps)
	require.Equal(t, []byte("boot"), freedContents)
}

func TestPrintDetailedMap(t *testing.T) {
	memory := readyMemory(t, CreateOptions{
		Flags:      CreateExternallySynchronized,
		MemorySize: 0x4000,
		FirmwareRanges: []FirmwareRange{
			{Address: 0, Pages: 1, Type: firmware.MemoryTypeReserved},
		},
	})

	_, err := firmware.AllocateExact(memory, 0x2000, firmware.MemoryTypeUnusable, 1)
	require.NoError(t, err)

	writer := jwriter.NewWriter()
	memory.PrintDetailedMap(&writer)
	require.NoError(t, writer.Error())

	require.JSONEq(t, `{
		"TotalBytes": 16384,
		"UnusedBytes": 8192,
		"Allocations": 2,
		"UnusedRanges": 2,
		"Regions": [
			{"Address": "0x0000000000000000", "Pages": 1, "Type": "Reserved", "CustomData": "firmware"},
			{"Address": "0x0000000000001000", "Pages": 1, "Type": "Conventional"},
			{"Address": "0x0000000000002000", "Pages": 1, "Type": "Unusable"},
			{"Address": "0x0000000000003000", "Pages": 1, "Type": "Conventional"}
		]
	}`, string(writer.Bytes()))
}
