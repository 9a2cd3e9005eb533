package loader

import (
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/horizon2038/a9nloader/elfimage"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/horizon2038/a9nloader/memutils"
	"golang.org/x/exp/slog"
)

// PlacedSegment is a LOAD segment and the region reserved for it. Region is nil for segments with a
// memory size of zero, which need no backing memory.
type PlacedSegment struct {
	Index   int
	Segment elfimage.ProgramSegment
	Region  firmware.Region
}

// ExactPlacement holds the regions reserved for an image that is loaded at its own physical
// addresses
type ExactPlacement struct {
	Segments []PlacedSegment
}

// ReserveExact reserves memory for every LOAD segment of image at the segment's physical address,
// with the higher-half bits stripped. Nothing is written to memory. The first refused request stops
// the reservation and is returned marked with ErrAllocation; regions reserved before it are kept.
func ReserveExact(logger *slog.Logger, allocator firmware.Allocator, image *elfimage.Image) (ExactPlacement, error) {
	var placement ExactPlacement

	err := image.VisitLoadSegments(func(index int, segment elfimage.ProgramSegment) error {
		placed := PlacedSegment{
			Index:   index,
			Segment: segment,
		}

		physicalAddress := memutils.LowerHalf(segment.PhysicalAddress)
		pages := memutils.BytesToPages(segment.MemSize)
		if pages == 0 {
			placement.Segments = append(placement.Segments, placed)
			return nil
		}

		region, err := firmware.AllocateExact(allocator, physicalAddress, imageMemoryType, pages)
		if err != nil {
			return allocationError(err, "failed to reserve %d pages at 0x%016x for segment %d", pages, physicalAddress, index)
		}

		logger.Debug("Alloc segment",
			hexAttr("start", physicalAddress),
			hexAttr("end", physicalAddress+segment.MemSize),
			slog.Int("pages", pages),
			slog.String("size", humanize.IBytes(segment.MemSize)),
		)

		placed.Region = region
		placement.Segments = append(placement.Segments, placed)
		return nil
	})

	return placement, err
}

// Materialize writes every reserved segment to memory at its own address
func (p ExactPlacement) Materialize(image *elfimage.Image) error {
	for _, placed := range p.Segments {
		err := Materialize(placed.Region, placed.Segment, image.Bytes(), 0)
		if err != nil {
			return errors.Wrapf(err, "failed to materialize segment %d", placed.Index)
		}
	}

	return nil
}

// Pages returns the number of pages reserved across all segments
func (p ExactPlacement) Pages() int {
	var pages int
	for _, placed := range p.Segments {
		if placed.Region != nil {
			pages += placed.Region.Pages()
		}
	}
	return pages
}

// PlaceExact reserves and writes every LOAD segment of image at its own physical address and returns
// the image's entry point.
func PlaceExact(logger *slog.Logger, allocator firmware.Allocator, image *elfimage.Image) (uint64, error) {
	placement, err := ReserveExact(logger, allocator, image)
	if err != nil {
		return 0, err
	}

	err = placement.Materialize(image)
	if err != nil {
		return 0, err
	}

	return image.Entry(), nil
}
