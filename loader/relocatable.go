package loader

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/horizon2038/a9nloader/elfimage"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/horizon2038/a9nloader/memutils"
	"golang.org/x/exp/slog"
)

// Span is the physical range [Start, End) covered by the LOAD segments of an image, using the
// addresses the image declares
type Span struct {
	Start uint64
	End   uint64
}

// Size returns the number of bytes covered by the span
func (s Span) Size() uint64 {
	return s.End - s.Start
}

// Pages returns the number of pages needed to hold the span, never less than one
func (s Span) Pages() int {
	return memutils.BytesToPagesRounded(s.Size())
}

// ComputeSpan finds the lowest start and highest end of the LOAD segments of image. Addresses are not
// stripped of higher-half bits. An image with no LOAD segments has no span, and the returned error is
// marked with elfimage.ErrParse.
func ComputeSpan(image *elfimage.Image) (Span, error) {
	span := Span{Start: math.MaxUint64}
	loadCount := 0

	err := image.VisitLoadSegments(func(index int, segment elfimage.ProgramSegment) error {
		end := segment.PhysicalAddress + segment.MemSize
		if end < segment.PhysicalAddress {
			return errors.Mark(
				errors.Newf("segment %d at 0x%016x with size 0x%x wraps around the address space", index, segment.PhysicalAddress, segment.MemSize),
				elfimage.ErrParse,
			)
		}

		span.Start = min(span.Start, segment.PhysicalAddress)
		span.End = max(span.End, end)
		loadCount++
		return nil
	})
	if err != nil {
		return Span{}, err
	}

	if loadCount == 0 {
		return Span{}, errors.Mark(errors.New("image has no LOAD segments"), elfimage.ErrParse)
	}

	return span, nil
}

// AllocateSpan reserves enough pages to hold span at an address of the firmware's choosing
func AllocateSpan(logger *slog.Logger, allocator firmware.Allocator, span Span) (firmware.Region, error) {
	region, err := firmware.AllocateAny(allocator, imageMemoryType, span.Pages())
	if err != nil {
		logger.Error("Failed to allocate pages for init", slog.Int("pages", span.Pages()), slog.Any("error", err))
		return nil, allocationError(err, "failed to allocate %d pages", span.Pages())
	}

	logger.Info("Init base address",
		hexAttr("base", region.Address()),
		slog.Int("total_pages", span.Pages()),
		slog.String("size", humanize.IBytes(span.Size())),
	)

	return region, nil
}

// MaterializeRelocated writes every LOAD segment of image to region, at the region's base address plus
// the segment's declared physical address
func MaterializeRelocated(image *elfimage.Image, region firmware.Region) error {
	return image.VisitLoadSegments(func(index int, segment elfimage.ProgramSegment) error {
		err := Materialize(region, segment, image.Bytes(), region.Address())
		if err != nil {
			return errors.Wrapf(err, "failed to materialize segment %d", index)
		}
		return nil
	})
}

// ResolveInitSymbols looks up the init information block and IPC buffer of an init image. Both are
// virtual addresses as linked, independent of where the image was placed.
func ResolveInitSymbols(image *elfimage.Image) (initInfo uint64, ipcBuffer uint64, err error) {
	initInfo, err = image.FindSymbol(InitInfoSymbol)
	if err != nil {
		return 0, 0, err
	}

	ipcBuffer, err = image.FindSymbol(InitIPCBufferSymbol)
	if err != nil {
		return 0, 0, err
	}

	return initInfo, ipcBuffer, nil
}

// LoadedImageInfo describes the init image once it is in memory
type LoadedImageInfo struct {
	LoadedBaseAddress           uint64
	PageCount                   int
	EntryVirtualAddress         uint64
	InitInfoVirtualAddress      uint64
	InitIPCBufferVirtualAddress uint64
}

// PlaceRelocatable loads image into a single firmware-chosen allocation large enough for its span and
// resolves its init symbols.
func PlaceRelocatable(logger *slog.Logger, allocator firmware.Allocator, image *elfimage.Image) (LoadedImageInfo, error) {
	span, err := ComputeSpan(image)
	if err != nil {
		return LoadedImageInfo{}, err
	}

	region, err := AllocateSpan(logger, allocator, span)
	if err != nil {
		return LoadedImageInfo{}, err
	}

	err = MaterializeRelocated(image, region)
	if err != nil {
		return LoadedImageInfo{}, err
	}

	return describeLoadedImage(image, region, span)
}

// describeLoadedImage resolves the init symbols of an image already written to region. Symbol
// lookup is its only failure.
func describeLoadedImage(image *elfimage.Image, region firmware.Region, span Span) (LoadedImageInfo, error) {
	initInfo, ipcBuffer, err := ResolveInitSymbols(image)
	if err != nil {
		return LoadedImageInfo{}, err
	}

	return LoadedImageInfo{
		LoadedBaseAddress:           region.Address(),
		PageCount:                   span.Pages(),
		EntryVirtualAddress:         image.Entry(),
		InitInfoVirtualAddress:      initInfo,
		InitIPCBufferVirtualAddress: ipcBuffer,
	}, nil
}
