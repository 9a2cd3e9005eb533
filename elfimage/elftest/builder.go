// Package elftest builds small ELF64 little-endian images for tests.
package elftest

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
)

const (
	headerSize        = 64
	programHeaderSize = 56
	sectionHeaderSize = 64
)

// Segment is a program header plus the file contents it covers
type Segment struct {
	Type            elf.ProgType
	PhysicalAddress uint64
	VirtualAddress  uint64
	Data            []byte
	MemSize         uint64
}

// Load builds a LOAD segment whose virtual and physical addresses match
func Load(address uint64, data []byte, memSize uint64) Segment {
	return Segment{
		Type:            elf.PT_LOAD,
		PhysicalAddress: address,
		VirtualAddress:  address,
		Data:            data,
		MemSize:         memSize,
	}
}

type Symbol struct {
	Name  string
	Value uint64
}

// LinkMode decides what a symbol table's sh_link points at
type LinkMode int

const (
	// LinkStringTable links the symbol table to its own string table
	LinkStringTable LinkMode = iota
	// LinkOutOfRange links the symbol table to a section index past the end of the table
	LinkOutOfRange
	// LinkNotStringTable links the symbol table to the null section
	LinkNotStringTable
)

type SymbolTable struct {
	Symbols []Symbol
	Link    LinkMode
}

type Image struct {
	Entry        uint64
	Machine      elf.Machine
	Segments     []Segment
	SymbolTables []SymbolTable
}

// ProgramHeaderOffset returns the file offset of the program header at index in a built image
func ProgramHeaderOffset(index int) int {
	return headerSize + index*programHeaderSize
}

func mustAppend(buf []byte, data any) []byte {
	buf, err := binary.Append(buf, binary.LittleEndian, data)
	if err != nil {
		panic(fmt.Sprintf("failed to encode %T: %+v", data, err))
	}
	return buf
}

func align(buf []byte, alignment int) []byte {
	for len(buf)%alignment != 0 {
		buf = append(buf, 0)
	}
	return buf
}

type section struct {
	header elf.Section64
	name   string
}

// Build lays out the header, program headers, segment contents, symbol and string tables, the
// section name table and finally the section headers, in that order.
func Build(image Image) []byte {
	machine := image.Machine
	if machine == 0 {
		machine = elf.EM_X86_64
	}

	buf := make([]byte, headerSize+len(image.Segments)*programHeaderSize)

	programs := make([]elf.Prog64, 0, len(image.Segments))
	for _, segment := range image.Segments {
		buf = align(buf, 16)
		programs = append(programs, elf.Prog64{
			Type:   uint32(segment.Type),
			Flags:  uint32(elf.PF_R | elf.PF_W | elf.PF_X),
			Off:    uint64(len(buf)),
			Vaddr:  segment.VirtualAddress,
			Paddr:  segment.PhysicalAddress,
			Filesz: uint64(len(segment.Data)),
			Memsz:  segment.MemSize,
			Align:  16,
		})
		buf = append(buf, segment.Data...)
	}

	sections := []section{{}}
	for _, table := range image.SymbolTables {
		strtab := []byte{0}
		symtab := mustAppend(nil, elf.Sym64{})
		for _, symbol := range table.Symbols {
			symtab = mustAppend(symtab, elf.Sym64{
				Name:  uint32(len(strtab)),
				Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_OBJECT),
				Shndx: uint16(elf.SHN_ABS),
				Value: symbol.Value,
			})
			strtab = append(strtab, symbol.Name...)
			strtab = append(strtab, 0)
		}

		strtabIndex := len(sections)
		sections = append(sections, section{
			name: ".strtab",
			header: elf.Section64{
				Type:      uint32(elf.SHT_STRTAB),
				Off:       uint64(len(buf)),
				Size:      uint64(len(strtab)),
				Addralign: 1,
			},
		})
		buf = append(buf, strtab...)

		var link uint32
		switch table.Link {
		case LinkStringTable:
			link = uint32(strtabIndex)
		case LinkOutOfRange:
			link = 0xFFFF
		case LinkNotStringTable:
			link = 0
		}

		buf = align(buf, 8)
		sections = append(sections, section{
			name: ".symtab",
			header: elf.Section64{
				Type:      uint32(elf.SHT_SYMTAB),
				Off:       uint64(len(buf)),
				Size:      uint64(len(symtab)),
				Link:      link,
				Info:      1,
				Addralign: 8,
				Entsize:   elf.Sym64Size,
			},
		})
		buf = append(buf, symtab...)
	}

	shstrtabIndex := len(sections)
	sections = append(sections, section{
		name:   ".shstrtab",
		header: elf.Section64{Type: uint32(elf.SHT_STRTAB), Addralign: 1},
	})

	shstrtab := []byte{0}
	for index := range sections[1:] {
		sections[index+1].header.Name = uint32(len(shstrtab))
		shstrtab = append(shstrtab, sections[index+1].name...)
		shstrtab = append(shstrtab, 0)
	}
	sections[shstrtabIndex].header.Off = uint64(len(buf))
	sections[shstrtabIndex].header.Size = uint64(len(shstrtab))
	buf = append(buf, shstrtab...)

	buf = align(buf, 8)
	sectionOffset := len(buf)
	for _, s := range sections {
		buf = mustAppend(buf, s.header)
	}

	header := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     image.Entry,
		Ehsize:    headerSize,
		Shoff:     uint64(sectionOffset),
		Shentsize: sectionHeaderSize,
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(shstrtabIndex),
	}
	copy(header.Ident[:], elf.ELFMAG)
	header.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	header.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	header.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	if len(programs) > 0 {
		header.Phoff = headerSize
		header.Phentsize = programHeaderSize
		header.Phnum = uint16(len(programs))
	}

	encodedHeader := mustAppend(nil, header)
	copy(buf, encodedHeader)
	for index, program := range programs {
		copy(buf[ProgramHeaderOffset(index):], mustAppend(nil, program))
	}

	return buf
}
