package loader

import (
	"github.com/cockroachdb/errors"
	"github.com/horizon2038/a9nloader/elfimage"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/horizon2038/a9nloader/memutils"
)

// SegmentDestination returns the physical address a segment's first byte is written to. A segment
// with no file contents has the higher-half bits stripped from its destination, even when it is
// placed relative to an allocated base. The mask is applied after physicalOffset is added, so a sum
// that carries into the higher half or wraps around is masked as a whole.
func SegmentDestination(segment elfimage.ProgramSegment, physicalOffset uint64) uint64 {
	destination := segment.PhysicalAddress + physicalOffset
	if segment.FileSize == 0 {
		destination = memutils.LowerHalf(destination)
	}
	return destination
}

// Materialize copies a segment's file contents out of image into region and zero-fills the rest of
// its memory size. All writes go through region, so a segment that does not fit inside it fails with
// an error marked firmware.ErrOutOfBounds.
func Materialize(region firmware.Region, segment elfimage.ProgramSegment, image []byte, physicalOffset uint64) error {
	if segment.MemSize == 0 {
		return nil
	}

	if region == nil {
		return errors.AssertionFailedf("segment at 0x%016x has no region to be written to", segment.PhysicalAddress)
	}

	destination := SegmentDestination(segment, physicalOffset)

	if segment.FileSize > 0 {
		fileEnd := segment.FileOffset + segment.FileSize
		if fileEnd < segment.FileOffset || fileEnd > uint64(len(image)) {
			return errors.Mark(
				errors.Newf("segment contents [0x%x, 0x%x) lie outside of the %d byte image", segment.FileOffset, fileEnd, len(image)),
				elfimage.ErrParse,
			)
		}

		err := region.Write(destination, image[segment.FileOffset:fileEnd])
		if err != nil {
			return errors.Wrapf(err, "failed to copy 0x%x bytes to 0x%016x", segment.FileSize, destination)
		}
	}

	if segment.MemSize > segment.FileSize {
		err := region.Zero(destination+segment.FileSize, segment.MemSize-segment.FileSize)
		if err != nil {
			return errors.Wrapf(err, "failed to clear 0x%x bytes of bss at 0x%016x", segment.MemSize-segment.FileSize, destination+segment.FileSize)
		}
	}

	return nil
}
