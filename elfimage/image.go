package elfimage

import (
	"debug/elf"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Image is a read-only view over an ELF64 little-endian binary held in memory. Program and section
// headers are decoded from the underlying buffer each time they are requested; the buffer is never
// copied or modified and must not be modified by the caller while the Image is in use.
type Image struct {
	logger *slog.Logger
	data   []byte
	header elf.Header64
}

// Parse validates the file header of data and returns an Image over it. Every error returned is
// marked with ErrParse.
func Parse(logger *slog.Logger, data []byte) (*Image, error) {
	if len(data) < elf.EI_NIDENT {
		return nil, parseErrorf("image is %d bytes, which is too short to hold an ELF identifier", len(data))
	}

	if string(data[:len(elf.ELFMAG)]) != elf.ELFMAG {
		return nil, parseErrorf("image does not begin with the ELF magic number, found %q", data[:len(elf.ELFMAG)])
	}

	if class := elf.Class(data[elf.EI_CLASS]); class != elf.ELFCLASS64 {
		return nil, parseErrorf("image class is %s, expected %s", class, elf.ELFCLASS64)
	}

	if encoding := elf.Data(data[elf.EI_DATA]); encoding != elf.ELFDATA2LSB {
		return nil, parseErrorf("image data encoding is %s, expected %s", encoding, elf.ELFDATA2LSB)
	}

	if version := elf.Version(data[elf.EI_VERSION]); version != elf.EV_CURRENT {
		return nil, parseErrorf("image identifier version is %s, expected %s", version, elf.EV_CURRENT)
	}

	image := &Image{
		logger: logger,
		data:   data,
	}

	_, err := binary.Decode(data, binary.LittleEndian, &image.header)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "image is %d bytes, which is too short to hold an ELF64 header", len(data)), ErrParse)
	}

	if version := elf.Version(image.header.Version); version != elf.EV_CURRENT {
		return nil, parseErrorf("image header version is %s, expected %s", version, elf.EV_CURRENT)
	}

	err = image.checkTable("program header", image.header.Phoff, image.header.Phnum, image.header.Phentsize, programHeaderSize)
	if err != nil {
		return nil, err
	}

	err = image.checkTable("section header", image.header.Shoff, image.header.Shnum, image.header.Shentsize, sectionHeaderSize)
	if err != nil {
		return nil, err
	}

	// Decoding every program header up front surfaces malformed segments here rather than
	// halfway through placement
	err = image.VisitPrograms(func(index int, segment ProgramSegment) error { return nil })
	if err != nil {
		return nil, err
	}

	logger.Debug("parsed ELF image",
		slog.String("type", image.Type().String()),
		slog.String("machine", image.Machine().String()),
		slog.Int("programs", image.ProgramCount()),
		slog.Int("sections", image.SectionCount()),
	)

	return image, nil
}

func (i *Image) checkTable(name string, offset uint64, count, entrySize uint16, expectedEntrySize int) error {
	if count == 0 {
		return nil
	}

	if int(entrySize) != expectedEntrySize {
		return parseErrorf("%s entries are %d bytes, expected %d", name, entrySize, expectedEntrySize)
	}

	tableSize := uint64(count) * uint64(entrySize)
	if offset > math.MaxUint64-tableSize || offset+tableSize > uint64(len(i.data)) {
		return parseErrorf("%s table [0x%x, 0x%x) lies outside of the %d byte image", name, offset, offset+tableSize, len(i.data))
	}

	return nil
}

// Bytes returns the buffer the image was parsed from
func (i *Image) Bytes() []byte { return i.data }

// Entry returns the virtual address of the image's entry point
func (i *Image) Entry() uint64 { return i.header.Entry }

// Type returns the object file type, such as ET_EXEC
func (i *Image) Type() elf.Type { return elf.Type(i.header.Type) }

// Machine returns the architecture the image was built for
func (i *Image) Machine() elf.Machine { return elf.Machine(i.header.Machine) }

// slice returns data[offset:offset+size], or false if that range is not entirely inside the image
func (i *Image) slice(offset, size uint64) ([]byte, bool) {
	if offset > uint64(len(i.data)) || size > uint64(len(i.data))-offset {
		return nil, false
	}

	return i.data[offset : offset+size], true
}
