package loader

import (
	"context"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/horizon2038/a9nloader/elfimage"
	"github.com/horizon2038/a9nloader/elfimage/elftest"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/horizon2038/a9nloader/firmware/emulated"
	"github.com/horizon2038/a9nloader/firmware/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func bootFiles() map[string][]byte {
	return map[string][]byte{
		"/kernel/kernel.elf": elftest.Build(kernelImageDescription()),
		"/kernel/init.elf":   elftest.Build(initImageDescription(initSymbols()...)),
	}
}

func TestBoot(t *testing.T) {
	files := bootFiles()
	memory := readyMemory(t, emulated.CreateOptions{})

	loader, err := New(discardLogger(), readyFileSystem(t, files), memory, Options{})
	require.NoError(t, err)

	result, err := loader.Boot(context.Background())
	require.NoError(t, err)

	require.Equal(t, Result{
		KernelEntry: 0xFFFF_8000_0010_0000,
		Init: LoadedImageInfo{
			LoadedBaseAddress:           testMemorySize - 0x3000,
			PageCount:                   3,
			EntryVirtualAddress:         0x400000,
			InitInfoVirtualAddress:      0x401800,
			InitIPCBufferVirtualAddress: 0x402000,
		},
		Trampoline: TrampolineReservation{
			Address:    0x6000,
			MemoryType: firmware.MemoryTypeUnusable,
		},
		KernelDigest: xxhash.Sum64(files["/kernel/kernel.elf"]),
		InitDigest:   xxhash.Sum64(files["/kernel/init.elf"]),
	}, result)

	require.Equal(t, kernelText, readPhysical(t, memory, 0x100000, len(kernelText)))
	require.Equal(t, kernelData, readPhysical(t, memory, 0x102000, len(kernelData)))
	require.Equal(t, make([]byte, 0x2000), readPhysical(t, memory, 0x104000, 0x2000))
	require.Equal(t, initText, readPhysical(t, memory, result.Init.LoadedBaseAddress, len(initText)))
	require.Equal(t, initData, readPhysical(t, memory, result.Init.LoadedBaseAddress+0x1000, len(initData)))

	require.NoError(t, memory.Validate())
}

func TestBootPlacesInitLikePlaceRelocatable(t *testing.T) {
	files := bootFiles()

	booted := readyMemory(t, emulated.CreateOptions{})
	loader, err := New(discardLogger(), readyFileSystem(t, files), booted, Options{})
	require.NoError(t, err)

	result, err := loader.Boot(context.Background())
	require.NoError(t, err)

	placed := readyMemory(t, emulated.CreateOptions{})
	info, err := PlaceRelocatable(discardLogger(), placed, parseImage(t, initImageDescription(initSymbols()...)))
	require.NoError(t, err)

	require.Equal(t, info, result.Init)
	require.Equal(t,
		readPhysical(t, placed, info.LoadedBaseAddress, 0x3000),
		readPhysical(t, booted, result.Init.LoadedBaseAddress, 0x3000),
	)
}

func TestBootCustomOptions(t *testing.T) {
	memory := readyMemory(t, emulated.CreateOptions{})
	fileSystem := readyFileSystem(t, map[string][]byte{
		"/boot/a9n.elf":  elftest.Build(kernelImageDescription()),
		"/boot/init.elf": elftest.Build(initImageDescription(initSymbols()...)),
	})

	loader, err := New(discardLogger(), fileSystem, memory, Options{
		KernelPath:            `\boot\a9n.elf`,
		InitPath:              `\boot\init.elf`,
		TrampolineBase:        0x8000,
		TrampolineMemoryTypes: []firmware.MemoryType{firmware.MemoryTypeReserved},
	})
	require.NoError(t, err)

	result, err := loader.Boot(context.Background())
	require.NoError(t, err)
	require.Equal(t, TrampolineReservation{Address: 0x8000, MemoryType: firmware.MemoryTypeReserved}, result.Trampoline)
}

func TestBootTwiceFailsToPlaceKernel(t *testing.T) {
	memory := readyMemory(t, emulated.CreateOptions{})

	loader, err := New(discardLogger(), readyFileSystem(t, bootFiles()), memory, Options{})
	require.NoError(t, err)

	_, err = loader.Boot(context.Background())
	require.NoError(t, err)

	_, err = loader.Boot(context.Background())
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	require.Equal(t, StagePlaceKernelExact, stageErr.Stage)
	require.True(t, errors.Is(err, ErrAllocation))
	require.True(t, errors.Is(err, firmware.ErrNotFound))
}

func TestBootFailureStages(t *testing.T) {
	broken := elftest.Build(initImageDescription(initSymbols()...))
	broken[4] = 1 // ELFCLASS32

	testCases := map[string]struct {
		Files         map[string][]byte
		MemoryOptions emulated.CreateOptions
		ExpectedStage Stage
		ExpectedErrs  []error
	}{
		"MissingKernel": {
			Files: map[string][]byte{
				"/kernel/init.elf": elftest.Build(initImageDescription(initSymbols()...)),
			},
			ExpectedStage: StageReadKernelBytes,
			ExpectedErrs:  []error{ErrIO, firmware.ErrNotFound},
		},
		"BrokenKernel": {
			Files: map[string][]byte{
				"/kernel/kernel.elf": []byte("not an elf image"),
			},
			ExpectedStage: StageParseKernel,
			ExpectedErrs:  []error{elfimage.ErrParse},
		},
		"KernelTooLarge": {
			Files:         bootFiles(),
			MemoryOptions: emulated.CreateOptions{MemorySize: 0x100000},
			ExpectedStage: StagePlaceKernelExact,
			ExpectedErrs:  []error{ErrAllocation},
		},
		"TrampolineRefused": {
			Files: bootFiles(),
			MemoryOptions: emulated.CreateOptions{
				FirmwareRanges: []emulated.FirmwareRange{
					{Address: 0x6000, Pages: 1, Type: firmware.MemoryTypeACPIReclaim},
				},
			},
			ExpectedStage: StageReserveApTrampoline,
			ExpectedErrs:  []error{ErrAllocation, firmware.ErrOutOfResources},
		},
		"MissingInit": {
			Files: map[string][]byte{
				"/kernel/kernel.elf": elftest.Build(kernelImageDescription()),
			},
			ExpectedStage: StageReadInitBytes,
			ExpectedErrs:  []error{ErrIO, firmware.ErrNotFound},
		},
		"BrokenInit": {
			Files: map[string][]byte{
				"/kernel/kernel.elf": elftest.Build(kernelImageDescription()),
				"/kernel/init.elf":   broken,
			},
			ExpectedStage: StageParseInit,
			ExpectedErrs:  []error{elfimage.ErrParse},
		},
		"InitWithoutLoadSegments": {
			Files: map[string][]byte{
				"/kernel/kernel.elf": elftest.Build(kernelImageDescription()),
				"/kernel/init.elf":   elftest.Build(elftest.Image{Entry: 0x400000}),
			},
			ExpectedStage: StageComputeInitSpan,
			ExpectedErrs:  []error{elfimage.ErrParse},
		},
		"InitTooLarge": {
			Files: map[string][]byte{
				"/kernel/kernel.elf": elftest.Build(kernelImageDescription()),
				"/kernel/init.elf": elftest.Build(elftest.Image{
					Entry:    0x400000,
					Segments: []elftest.Segment{elftest.Load(0, nil, 2*testMemorySize)},
				}),
			},
			ExpectedStage: StageAllocateInitRegion,
			ExpectedErrs:  []error{ErrAllocation, firmware.ErrOutOfResources},
		},
		"InitOutsideItsRegion": {
			Files: map[string][]byte{
				"/kernel/kernel.elf": elftest.Build(kernelImageDescription()),
				"/kernel/init.elf": elftest.Build(elftest.Image{
					Entry:    0x400000,
					Segments: []elftest.Segment{elftest.Load(0x5000, []byte("init"), 0x1000)},
				}),
			},
			ExpectedStage: StageCopyInitSegments,
			ExpectedErrs:  []error{firmware.ErrOutOfBounds},
		},
		"InitWithoutSymbols": {
			Files: map[string][]byte{
				"/kernel/kernel.elf": elftest.Build(kernelImageDescription()),
				"/kernel/init.elf":   elftest.Build(initImageDescription()),
			},
			ExpectedStage: StageResolveInitSymbols,
			ExpectedErrs:  []error{elfimage.ErrSymbolNotFound},
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			memory := readyMemory(t, testCase.MemoryOptions)

			loader, err := New(discardLogger(), readyFileSystem(t, testCase.Files), memory, Options{})
			require.NoError(t, err)

			_, err = loader.Boot(context.Background())
			require.Error(t, err)

			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr))
			require.Equal(t, testCase.ExpectedStage, stageErr.Stage)
			require.Contains(t, err.Error(), testCase.ExpectedStage.String())

			for _, expected := range testCase.ExpectedErrs {
				require.True(t, errors.Is(err, expected), "expected %v in %+v", expected, err)
			}
		})
	}
}

func TestBootStopsBeforeReadingInit(t *testing.T) {
	ctrl := gomock.NewController(t)
	fileSystem := mocks.NewMockFileSystem(ctrl)
	memory := readyMemory(t, emulated.CreateOptions{})

	fileSystem.EXPECT().ReadEntireFile(DefaultKernelPath).Return([]byte("garbage"), nil)

	loader, err := New(discardLogger(), fileSystem, memory, Options{})
	require.NoError(t, err)

	_, err = loader.Boot(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, elfimage.ErrParse))
}

func TestBootCanceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	fileSystem := mocks.NewMockFileSystem(ctrl)
	allocator := mocks.NewMockAllocator(ctrl)

	loader, err := New(discardLogger(), fileSystem, allocator, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = loader.Boot(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestNewValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	fileSystem := mocks.NewMockFileSystem(ctrl)
	allocator := mocks.NewMockAllocator(ctrl)

	_, err := New(discardLogger(), nil, allocator, Options{})
	require.Error(t, err)

	_, err = New(discardLogger(), fileSystem, nil, Options{})
	require.Error(t, err)

	_, err = New(discardLogger(), fileSystem, allocator, Options{TrampolineBase: 0x6010})
	require.Error(t, err)
}

func TestStageString(t *testing.T) {
	require.Equal(t, "ReserveApTrampoline", StageReserveApTrampoline.String())
	require.Equal(t, "Done", StageDone.String())
	require.Equal(t, "Stage(99)", Stage(99).String())
}
