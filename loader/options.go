package loader

import (
	"github.com/horizon2038/a9nloader/firmware"
)

const (
	// DefaultKernelPath is the path of the kernel image on the boot volume when Options.KernelPath is empty
	DefaultKernelPath = `\kernel\kernel.elf`
	// DefaultInitPath is the path of the init image on the boot volume when Options.InitPath is empty
	DefaultInitPath = `\kernel\init.elf`
	// DefaultTrampolineBase is the physical address of the AP trampoline page when
	// Options.TrampolineBase is zero
	DefaultTrampolineBase uint64 = 0x6000

	// InitInfoSymbol marks the init information block inside the init image
	InitInfoSymbol = "__init_info_start"
	// InitIPCBufferSymbol marks the IPC buffer of the init process
	InitIPCBufferSymbol = "__init_ipc_buffer_start"

	// imageMemoryType tags every page holding kernel or init contents, keeping the firmware and
	// any later allocator away from them
	imageMemoryType = firmware.MemoryTypeReserved
)

// DefaultTrampolineMemoryTypes is the order in which memory types are tried for the AP trampoline
// page when Options.TrampolineMemoryTypes is empty. Firmware differs in which tag it accepts for
// a low page it already describes.
var DefaultTrampolineMemoryTypes = []firmware.MemoryType{
	firmware.MemoryTypeUnusable,
	firmware.MemoryTypeReserved,
}

// Options contains optional settings when creating a Loader
type Options struct {
	// KernelPath is the firmware path of the kernel image
	KernelPath string
	// InitPath is the firmware path of the init image
	InitPath string

	// TrampolineBase is the page-aligned physical address of the page reserved for AP bring-up code
	TrampolineBase uint64
	// TrampolineMemoryTypes are tried in order when reserving the trampoline page; the first tag
	// the firmware accepts wins
	TrampolineMemoryTypes []firmware.MemoryType
}

func (o Options) withDefaults() Options {
	if o.KernelPath == "" {
		o.KernelPath = DefaultKernelPath
	}

	if o.InitPath == "" {
		o.InitPath = DefaultInitPath
	}

	if o.TrampolineBase == 0 {
		o.TrampolineBase = DefaultTrampolineBase
	}

	if len(o.TrampolineMemoryTypes) == 0 {
		o.TrampolineMemoryTypes = DefaultTrampolineMemoryTypes
	}

	return o
}
