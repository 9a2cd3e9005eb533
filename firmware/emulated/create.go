package emulated

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/horizon2038/a9nloader/internal/utils"
	"github.com/horizon2038/a9nloader/memutils"
	"github.com/horizon2038/a9nloader/memutils/metadata"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific emulator behaviors to activate or deactivate
type CreateFlags int32

var createFlagsMapping = map[CreateFlags]string{
	CreateExternallySynchronized: "CreateExternallySynchronized",
}

func (f CreateFlags) String() string {
	var names []string
	for flag, name := range createFlagsMapping {
		if f&flag != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

const (
	// CreateExternallySynchronized ensures that the emulated memory will not be synchronized
	// internally. The consumer must guarantee it is used from only one goroutine at a time.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

const (
	// defaultMemorySize is the amount of emulated RAM used when CreateOptions.MemorySize is zero. It is
	// equal to 64Mb.
	defaultMemorySize uint64 = 64 * 1024 * 1024
)

// FirmwareRange is a range of physical memory that the firmware has claimed before the loader runs
type FirmwareRange struct {
	Address uint64
	Pages   int
	Type    firmware.MemoryType
}

// DefaultFirmwareRanges mirrors the low-memory layout of a PC: the real-mode interrupt table in the
// first page and the legacy video/ROM hole below 1Mb.
var DefaultFirmwareRanges = []FirmwareRange{
	{Address: 0, Pages: 1, Type: firmware.MemoryTypeReserved},
	{Address: 0xA0000, Pages: 0x60, Type: firmware.MemoryTypeMMIO},
}

// CreateOptions contains optional settings when creating emulated memory
type CreateOptions struct {
	// Flags indicates specific emulator behaviors to activate or deactivate
	Flags CreateFlags
	// MemorySize is the number of bytes of emulated RAM. It must be a multiple of the page size.
	MemorySize uint64

	// FirmwareRanges are allocated before New returns. When nil, DefaultFirmwareRanges is used; pass
	// an empty, non-nil slice to start with a completely free map.
	FirmwareRanges []FirmwareRange

	// RejectedMemoryTypes lists memory types that Allocate refuses with ErrInvalidParameter. Real
	// firmware differs in which tags it accepts for a given range; this reproduces that.
	RejectedMemoryTypes []firmware.MemoryType

	// Strategy decides where AllocateAnyPages and AllocateMaxAddress requests land. The default is
	// top-down, as most firmware does.
	Strategy metadata.AllocationStrategy

	// CallbackOptions is an optional set of callbacks that will be executed when pages are
	// allocated from or returned to this memory
	CallbackOptions *CallbackOptions
}

// New creates emulated physical memory
//
// logger - receives allocation diagnostics
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Memory, error) {
	memorySize := options.MemorySize
	if memorySize == 0 {
		memorySize = defaultMemorySize
	}

	err := memutils.CheckPageAligned(memorySize, "MemorySize")
	if err != nil {
		return nil, errors.Mark(err, firmware.ErrInvalidParameter)
	}

	memory := &Memory{
		logger:        logger,
		mutex:         utils.OptionalRWMutex{UseMutex: options.Flags&CreateExternallySynchronized == 0},
		ram:           make([]byte, memorySize),
		metadata:      metadata.NewMemoryMapMetadata(),
		strategy:      options.Strategy,
		rejectedTypes: options.RejectedMemoryTypes,
	}
	memory.metadata.Init(memorySize)

	firmwareRanges := options.FirmwareRanges
	if firmwareRanges == nil {
		firmwareRanges = DefaultFirmwareRanges
	}

	for _, firmwareRange := range firmwareRanges {
		_, err = memory.allocate(firmware.ExactRequest(firmwareRange.Address, firmwareRange.Pages, firmwareRange.Type), "firmware")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to claim firmware range at 0x%x", firmwareRange.Address)
		}
	}

	memory.callbacks = memoryCallbacks{
		Callbacks: options.CallbackOptions,
		Memory:    memory,
	}

	logger.Debug("emulated memory created",
		slog.String("flags", options.Flags.String()),
		slog.Uint64("size", memorySize),
		slog.Int("firmware_ranges", len(firmwareRanges)),
	)

	return memory, nil
}
