package elfimage

import (
	"debug/elf"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const programHeaderSize = 56

// ProgramSegment is a decoded ELF64 program header
type ProgramSegment struct {
	Type            elf.ProgType
	Flags           elf.ProgFlag
	FileOffset      uint64
	VirtualAddress  uint64
	PhysicalAddress uint64
	FileSize        uint64
	MemSize         uint64
	Align           uint64
}

// IsLoad returns true for segments that must be copied into memory
func (s ProgramSegment) IsLoad() bool {
	return s.Type == elf.PT_LOAD
}

// BSSSize returns the number of zero-filled bytes that follow the file-backed part of the segment
func (s ProgramSegment) BSSSize() uint64 {
	if s.MemSize < s.FileSize {
		return 0
	}
	return s.MemSize - s.FileSize
}

// ProgramCount returns the number of entries in the program header table
func (i *Image) ProgramCount() int {
	return int(i.header.Phnum)
}

// Program decodes the program header at index. LOAD segments are checked for a memory size smaller
// than their file size and for file contents that lie outside of the image; both are errors marked
// with ErrParse.
func (i *Image) Program(index int) (ProgramSegment, error) {
	if index < 0 || index >= i.ProgramCount() {
		return ProgramSegment{}, errors.Newf("program header index %d is out of range [0, %d)", index, i.ProgramCount())
	}

	raw, _ := i.slice(i.header.Phoff+uint64(index)*programHeaderSize, programHeaderSize)

	var header elf.Prog64
	_, err := binary.Decode(raw, binary.LittleEndian, &header)
	if err != nil {
		return ProgramSegment{}, errors.Mark(errors.Wrapf(err, "failed to decode program header %d", index), ErrParse)
	}

	segment := ProgramSegment{
		Type:            elf.ProgType(header.Type),
		Flags:           elf.ProgFlag(header.Flags),
		FileOffset:      header.Off,
		VirtualAddress:  header.Vaddr,
		PhysicalAddress: header.Paddr,
		FileSize:        header.Filesz,
		MemSize:         header.Memsz,
		Align:           header.Align,
	}

	if !segment.IsLoad() {
		return segment, nil
	}

	if segment.MemSize < segment.FileSize {
		return ProgramSegment{}, parseErrorf("LOAD segment %d has a memory size of 0x%x, smaller than its file size of 0x%x", index, segment.MemSize, segment.FileSize)
	}

	_, inBounds := i.slice(segment.FileOffset, segment.FileSize)
	if !inBounds {
		return ProgramSegment{}, parseErrorf("LOAD segment %d file contents [0x%x, +0x%x) lie outside of the %d byte image", index, segment.FileOffset, segment.FileSize, len(i.data))
	}

	return segment, nil
}

// VisitPrograms calls visit with every program header in table order, stopping at the first error
func (i *Image) VisitPrograms(visit func(index int, segment ProgramSegment) error) error {
	for index := 0; index < i.ProgramCount(); index++ {
		segment, err := i.Program(index)
		if err != nil {
			return err
		}

		err = visit(index, segment)
		if err != nil {
			return err
		}
	}

	return nil
}

// VisitLoadSegments calls visit with every LOAD program header in table order, stopping at the first
// error
func (i *Image) VisitLoadSegments(visit func(index int, segment ProgramSegment) error) error {
	return i.VisitPrograms(func(index int, segment ProgramSegment) error {
		if !segment.IsLoad() {
			return nil
		}

		return visit(index, segment)
	})
}

// SegmentData returns the file-backed contents of a segment without copying them
func (i *Image) SegmentData(segment ProgramSegment) ([]byte, error) {
	data, inBounds := i.slice(segment.FileOffset, segment.FileSize)
	if !inBounds {
		return nil, parseErrorf("segment contents [0x%x, +0x%x) lie outside of the %d byte image", segment.FileOffset, segment.FileSize, len(i.data))
	}

	return data, nil
}
