package elfimage

import (
	"debug/elf"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const sectionHeaderSize = 64

// SectionHeader is a decoded ELF64 section header
type SectionHeader struct {
	NameOffset uint32
	Type       elf.SectionType
	Link       uint32
	Offset     uint64
	Size       uint64
	EntrySize  uint64
}

// SectionCount returns the number of entries in the section header table
func (i *Image) SectionCount() int {
	return int(i.header.Shnum)
}

// Section decodes the section header at index
func (i *Image) Section(index int) (SectionHeader, error) {
	if index < 0 || index >= i.SectionCount() {
		return SectionHeader{}, errors.Newf("section header index %d is out of range [0, %d)", index, i.SectionCount())
	}

	raw, _ := i.slice(i.header.Shoff+uint64(index)*sectionHeaderSize, sectionHeaderSize)

	var header elf.Section64
	_, err := binary.Decode(raw, binary.LittleEndian, &header)
	if err != nil {
		return SectionHeader{}, errors.Mark(errors.Wrapf(err, "failed to decode section header %d", index), ErrParse)
	}

	return SectionHeader{
		NameOffset: header.Name,
		Type:       elf.SectionType(header.Type),
		Link:       header.Link,
		Offset:     header.Off,
		Size:       header.Size,
		EntrySize:  header.Entsize,
	}, nil
}

// VisitSections calls visit with every section header in table order, stopping at the first error
func (i *Image) VisitSections(visit func(index int, section SectionHeader) error) error {
	for index := 0; index < i.SectionCount(); index++ {
		section, err := i.Section(index)
		if err != nil {
			return err
		}

		err = visit(index, section)
		if err != nil {
			return err
		}
	}

	return nil
}

// SectionData returns the contents of the section at index without copying them. SHT_NOBITS sections
// occupy no space in the file and have no data.
func (i *Image) SectionData(index int) ([]byte, error) {
	section, err := i.Section(index)
	if err != nil {
		return nil, err
	}

	if section.Type == elf.SHT_NOBITS {
		return nil, nil
	}

	data, inBounds := i.slice(section.Offset, section.Size)
	if !inBounds {
		return nil, parseErrorf("section %d contents [0x%x, +0x%x) lie outside of the %d byte image", index, section.Offset, section.Size, len(i.data))
	}

	return data, nil
}
