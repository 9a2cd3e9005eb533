package loader

import (
	"bytes"
	"debug/elf"
	"io"
	"testing"

	"github.com/horizon2038/a9nloader/elfimage"
	"github.com/horizon2038/a9nloader/elfimage/elftest"
	"github.com/horizon2038/a9nloader/firmware/emulated"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

const testMemorySize uint64 = 16 * 1024 * 1024

var (
	kernelText = bytes.Repeat([]byte{0x90}, 0x180)
	kernelData = []byte("kernel data")
	initText   = bytes.Repeat([]byte{0xCC}, 0x40)
	initData   = []byte("init data")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// kernelImageDescription links the kernel in the higher half with low load addresses, plus a bss-only
// segment whose physical address carries the higher-half bits
func kernelImageDescription() elftest.Image {
	return elftest.Image{
		Entry: 0xFFFF_8000_0010_0000,
		Segments: []elftest.Segment{
			{
				Type:            elf.PT_LOAD,
				PhysicalAddress: 0x100000,
				VirtualAddress:  0xFFFF_8000_0010_0000,
				Data:            kernelText,
				MemSize:         0x1000,
			},
			{
				Type:            elf.PT_LOAD,
				PhysicalAddress: 0x102000,
				VirtualAddress:  0xFFFF_8000_0010_2000,
				Data:            kernelData,
				MemSize:         0x1800,
			},
			{
				Type:            elf.PT_LOAD,
				PhysicalAddress: 0xFFFF_8000_0010_4000,
				VirtualAddress:  0xFFFF_8000_0010_4000,
				MemSize:         0x2000,
			},
		},
	}
}

func initImageDescription(symbols ...elftest.Symbol) elftest.Image {
	return elftest.Image{
		Entry: 0x400000,
		Segments: []elftest.Segment{
			{
				Type:            elf.PT_LOAD,
				PhysicalAddress: 0,
				VirtualAddress:  0x400000,
				Data:            initText,
				MemSize:         0x1000,
			},
			{
				Type:            elf.PT_LOAD,
				PhysicalAddress: 0x1000,
				VirtualAddress:  0x401000,
				Data:            initData,
				MemSize:         0x2000,
			},
		},
		SymbolTables: []elftest.SymbolTable{{Symbols: symbols}},
	}
}

func initSymbols() []elftest.Symbol {
	return []elftest.Symbol{
		{Name: InitInfoSymbol, Value: 0x401800},
		{Name: InitIPCBufferSymbol, Value: 0x402000},
	}
}

func parseImage(t *testing.T, description elftest.Image) *elfimage.Image {
	image, err := elfimage.Parse(discardLogger(), elftest.Build(description))
	require.NoError(t, err)
	return image
}

func readyMemory(t *testing.T, options emulated.CreateOptions) *emulated.Memory {
	if options.MemorySize == 0 {
		options.MemorySize = testMemorySize
	}

	memory, err := emulated.New(discardLogger(), options)
	require.NoError(t, err)
	return memory
}

func readyFileSystem(t *testing.T, files map[string][]byte) *emulated.FileSystem {
	fs := afero.NewMemMapFs()
	for path, data := range files {
		require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
	}

	return emulated.NewFileSystem(discardLogger(), fs)
}

func readPhysical(t *testing.T, memory *emulated.Memory, address uint64, length int) []byte {
	data := make([]byte, length)
	require.NoError(t, memory.ReadPhysical(address, data))
	return data
}
