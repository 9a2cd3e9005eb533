package loader

import "fmt"

// Stage identifies one step of the boot sequence. Stages run in declaration order.
type Stage int

const (
	StageReadKernelBytes Stage = iota
	StageParseKernel
	StagePlaceKernelExact
	StageCopyKernelSegments
	StageRecordKernelEntry
	StageReserveApTrampoline
	StageReadInitBytes
	StageParseInit
	StageComputeInitSpan
	StageAllocateInitRegion
	StageCopyInitSegments
	StageResolveInitSymbols
	StageDone
)

var stageMapping = map[Stage]string{
	StageReadKernelBytes:     "ReadKernelBytes",
	StageParseKernel:         "ParseKernel",
	StagePlaceKernelExact:    "PlaceKernelExact",
	StageCopyKernelSegments:  "CopyKernelSegments",
	StageRecordKernelEntry:   "RecordKernelEntry",
	StageReserveApTrampoline: "ReserveApTrampoline",
	StageReadInitBytes:       "ReadInitBytes",
	StageParseInit:           "ParseInit",
	StageComputeInitSpan:     "ComputeInitSpan",
	StageAllocateInitRegion:  "AllocateInitRegion",
	StageCopyInitSegments:    "CopyInitSegments",
	StageResolveInitSymbols:  "ResolveInitSymbols",
	StageDone:                "Done",
}

func (s Stage) String() string {
	str, ok := stageMapping[s]
	if !ok {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return str
}
