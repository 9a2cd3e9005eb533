package bootinfo

import (
	"fmt"

	"github.com/horizon2038/a9nloader/loader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Report summarizes a completed boot: where the images went and the memory map the kernel receives
type Report struct {
	Result loader.Result
	Memory MemoryInfo
}

func hex(value uint64) string {
	return fmt.Sprintf("0x%016x", value)
}

// WriteJson writes the report as a json object
func (r Report) WriteJson(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	kernel := obj.Name("Kernel").Object()
	kernel.Name("Entry").String(hex(r.Result.KernelEntry))
	kernel.Name("Digest").String(hex(r.Result.KernelDigest))
	kernel.End()

	initImage := obj.Name("Init").Object()
	initImage.Name("LoadedBaseAddress").String(hex(r.Result.Init.LoadedBaseAddress))
	initImage.Name("PageCount").Int(r.Result.Init.PageCount)
	initImage.Name("Entry").String(hex(r.Result.Init.EntryVirtualAddress))
	initImage.Name("InitInfo").String(hex(r.Result.Init.InitInfoVirtualAddress))
	initImage.Name("IPCBuffer").String(hex(r.Result.Init.InitIPCBufferVirtualAddress))
	initImage.Name("Digest").String(hex(r.Result.InitDigest))
	initImage.End()

	trampoline := obj.Name("Trampoline").Object()
	trampoline.Name("Address").String(hex(r.Result.Trampoline.Address))
	trampoline.Name("Type").String(r.Result.Trampoline.MemoryType.String())
	trampoline.End()

	memory := obj.Name("Memory").Object()
	defer memory.End()

	memory.Name("MemorySize").Float64(float64(r.Memory.MemorySize))
	memory.Name("FreeBytes").Float64(float64(r.Memory.FreeBytes()))

	entries := memory.Name("Entries").Array()
	defer entries.End()

	for _, entry := range r.Memory.Entries {
		entryObj := entries.Object()
		entryObj.Name("Address").String(hex(entry.PhysicalAddressStart))
		entryObj.Name("Pages").Int(entry.PageCount)
		entryObj.Name("Type").String(entry.Type.String())
		entryObj.End()
	}
}

// MarshalJSON implements json.Marshaler
func (r Report) MarshalJSON() ([]byte, error) {
	writer := jwriter.NewWriter()
	r.WriteJson(&writer)
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}
