package loader

import (
	"context"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/horizon2038/a9nloader/elfimage"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/horizon2038/a9nloader/memutils"
	"golang.org/x/exp/slog"
)

// TrampolineReservation records where the AP trampoline page was reserved and which tag the firmware
// accepted for it
type TrampolineReservation struct {
	Address    uint64
	MemoryType firmware.MemoryType
}

// Result is everything the entry-transfer step needs from a successful boot
type Result struct {
	KernelEntry uint64
	Init        LoadedImageInfo
	Trampoline  TrampolineReservation

	// KernelDigest and InitDigest are xxhash digests of the image files as read
	KernelDigest uint64
	InitDigest   uint64
}

// Loader loads the kernel and init images out of the boot volume into physical memory
type Loader struct {
	logger     *slog.Logger
	fileSystem firmware.FileSystem
	allocator  firmware.Allocator
	options    Options
}

// New creates a new Loader
//
// fileSystem - The boot volume the images are read from
//
// allocator - The firmware page allocator that all image memory is reserved from
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, fileSystem firmware.FileSystem, allocator firmware.Allocator, options Options) (*Loader, error) {
	if fileSystem == nil {
		return nil, errors.New("a file system is required")
	}

	if allocator == nil {
		return nil, errors.New("an allocator is required")
	}

	options = options.withDefaults()

	err := memutils.CheckPageAligned(options.TrampolineBase, "TrampolineBase")
	if err != nil {
		return nil, err
	}

	return &Loader{
		logger:     logger,
		fileSystem: fileSystem,
		allocator:  allocator,
		options:    options,
	}, nil
}

func (l *Loader) fail(stage Stage, err error) (Result, error) {
	l.logger.Error("Boot failed", slog.String("stage", stage.String()), slog.Any("error", err))
	return Result{}, &StageError{Stage: stage, Err: err}
}

func (l *Loader) readImage(name, path string) ([]byte, uint64, error) {
	data, err := l.fileSystem.ReadEntireFile(path)
	if err != nil {
		return nil, 0, errors.Mark(errors.Wrapf(err, "failed to read %s image from %s", name, path), ErrIO)
	}

	digest := xxhash.Sum64(data)
	l.logger.Debug("Read image",
		slog.String("image", name),
		slog.String("path", path),
		slog.String("size", humanize.IBytes(uint64(len(data)))),
		hexAttr("xxhash", digest),
	)

	return data, digest, nil
}

// Boot runs the load sequence once: the kernel is placed at its own physical addresses, the AP
// trampoline page is reserved, and the init image is placed wherever the firmware finds room for it.
// The first failing stage ends the sequence and is reported through a *StageError. Memory reserved
// by earlier stages is not released, so a second Boot against the same firmware fails when it tries
// to reserve the kernel again.
//
// ctx is only consulted before the sequence begins; a started boot runs to completion or failure.
func (l *Loader) Boot(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return l.fail(StageReadKernelBytes, err)
	}

	var result Result
	l.logger.Info("Starting to load the kernel")

	kernelBytes, kernelDigest, err := l.readImage("kernel", l.options.KernelPath)
	if err != nil {
		return l.fail(StageReadKernelBytes, err)
	}
	result.KernelDigest = kernelDigest

	kernel, err := elfimage.Parse(l.logger, kernelBytes)
	if err != nil {
		return l.fail(StageParseKernel, err)
	}

	l.logger.Info("Loading kernel")
	placement, err := ReserveExact(l.logger, l.allocator, kernel)
	if err != nil {
		return l.fail(StagePlaceKernelExact, err)
	}

	err = placement.Materialize(kernel)
	if err != nil {
		return l.fail(StageCopyKernelSegments, err)
	}

	result.KernelEntry = kernel.Entry()
	l.logger.Info("Kernel entry point", hexAttr("entry", result.KernelEntry))
	l.logger.Info("Kernel loaded successfully at entry point",
		hexAttr("entry", result.KernelEntry),
		slog.Int("pages", placement.Pages()),
	)

	trampoline, err := ReserveTrampoline(l.logger, l.allocator, l.options.TrampolineBase, l.options.TrampolineMemoryTypes)
	if err != nil {
		return l.fail(StageReserveApTrampoline, err)
	}
	result.Trampoline = TrampolineReservation{
		Address:    trampoline.Address(),
		MemoryType: trampoline.MemoryType(),
	}

	initBytes, initDigest, err := l.readImage("init", l.options.InitPath)
	if err != nil {
		return l.fail(StageReadInitBytes, err)
	}
	result.InitDigest = initDigest

	initImage, err := elfimage.Parse(l.logger, initBytes)
	if err != nil {
		return l.fail(StageParseInit, err)
	}

	l.logger.Info("Loading init")
	span, err := ComputeSpan(initImage)
	if err != nil {
		return l.fail(StageComputeInitSpan, err)
	}

	region, err := AllocateSpan(l.logger, l.allocator, span)
	if err != nil {
		return l.fail(StageAllocateInitRegion, err)
	}

	err = MaterializeRelocated(initImage, region)
	if err != nil {
		return l.fail(StageCopyInitSegments, err)
	}

	result.Init, err = describeLoadedImage(initImage, region, span)
	if err != nil {
		return l.fail(StageResolveInitSymbols, err)
	}

	l.logger.Info("Init entry point", hexAttr("entry", result.Init.EntryVirtualAddress))
	l.logger.Info("Init info virtual address", hexAttr("address", result.Init.InitInfoVirtualAddress))
	l.logger.Info("Init IPC buffer virtual address", hexAttr("address", result.Init.InitIPCBufferVirtualAddress))
	l.logger.Info("Init loaded successfully at entry point", hexAttr("entry", result.Init.EntryVirtualAddress))
	l.logger.Info("Init image",
		hexAttr("loaded_at", result.Init.LoadedBaseAddress),
		slog.Int("pages", result.Init.PageCount),
		hexAttr("entry", result.Init.EntryVirtualAddress),
	)

	return result, nil
}
