package loader

import (
	"github.com/cockroachdb/errors"
	"github.com/horizon2038/a9nloader/firmware"
	"golang.org/x/exp/slog"
)

// ReserveTrampoline reserves the single page at base that application processors start executing
// from. Each memory type is tried in order and the first the firmware accepts wins. When every type is
// refused the returned error is marked with both firmware.ErrOutOfResources and ErrAllocation.
func ReserveTrampoline(logger *slog.Logger, allocator firmware.Allocator, base uint64, memoryTypes []firmware.MemoryType) (firmware.Region, error) {
	logger.Info("Reserving AP trampoline", hexAttr("address", base))

	var refusals error
	for _, memoryType := range memoryTypes {
		region, err := firmware.AllocateExact(allocator, base, memoryType, 1)
		if err == nil {
			logger.Info("Reserved AP trampoline",
				hexAttr("address", base),
				slog.String("memory_type", memoryType.String()),
			)
			return region, nil
		}

		logger.Warn("Failed to reserve AP trampoline",
			hexAttr("address", base),
			slog.String("memory_type", memoryType.String()),
			slog.Any("error", err),
		)
		refusals = errors.CombineErrors(refusals, err)
	}

	err := errors.Newf("no memory type was accepted for the AP trampoline at 0x%016x", base)
	if refusals != nil {
		err = errors.WithSecondaryError(err, refusals)
	}

	return nil, errors.Mark(errors.Mark(err, firmware.ErrOutOfResources), ErrAllocation)
}
