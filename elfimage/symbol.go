package elfimage

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// SymbolEntry is a decoded ELF64 symbol table entry
type SymbolEntry struct {
	NameOffset uint32
	Info       uint8
	Section    elf.SectionIndex
	Value      uint64
	Size       uint64
}

type symbolTable struct {
	index   int
	symbols []byte
	strings []byte
}

func (t symbolTable) count() int {
	return len(t.symbols) / elf.Sym64Size
}

func (t symbolTable) symbol(index int) SymbolEntry {
	var sym elf.Sym64
	// symbols always holds whole entries, so decoding cannot fail
	_, _ = binary.Decode(t.symbols[index*elf.Sym64Size:], binary.LittleEndian, &sym)

	return SymbolEntry{
		NameOffset: sym.Name,
		Info:       sym.Info,
		Section:    elf.SectionIndex(sym.Shndx),
		Value:      sym.Value,
		Size:       sym.Size,
	}
}

// nameHasPrefix compares the len(name) bytes of the string table at offset against name
func (t symbolTable) nameHasPrefix(offset uint32, name string) bool {
	start := uint64(offset)
	if start > uint64(len(t.strings)) || uint64(len(name)) > uint64(len(t.strings))-start {
		return false
	}

	return string(t.strings[start:start+uint64(len(name))]) == name
}

// name reads the NUL-terminated string at offset, or returns false if offset is outside of the table
func (t symbolTable) name(offset uint32) (string, bool) {
	if uint64(offset) >= uint64(len(t.strings)) {
		return "", false
	}

	str := t.strings[offset:]
	end := bytes.IndexByte(str, 0)
	if end < 0 {
		end = len(str)
	}

	return string(str[:end]), true
}

// symbolTables collects every SHT_SYMTAB section along with the string table it links to, in section
// order. Tables whose link is broken are skipped.
func (i *Image) symbolTables() ([]symbolTable, error) {
	var tables []symbolTable

	err := i.VisitSections(func(index int, section SectionHeader) error {
		if section.Type != elf.SHT_SYMTAB {
			return nil
		}

		if int(section.Link) >= i.SectionCount() {
			i.logger.Debug("skipping symbol table with an out of range string table link",
				slog.Int("section", index),
				slog.Int("link", int(section.Link)),
			)
			return nil
		}

		linked, err := i.Section(int(section.Link))
		if err != nil {
			return err
		}

		if linked.Type != elf.SHT_STRTAB {
			i.logger.Debug("skipping symbol table linked to a section that is not a string table",
				slog.Int("section", index),
				slog.Int("link", int(section.Link)),
				slog.String("link_type", linked.Type.String()),
			)
			return nil
		}

		symbols, err := i.SectionData(index)
		if err != nil {
			i.logger.Debug("skipping unreadable symbol table", slog.Int("section", index), slog.Any("error", err))
			return nil
		}

		strings, err := i.SectionData(int(section.Link))
		if err != nil {
			i.logger.Debug("skipping symbol table with an unreadable string table", slog.Int("section", index), slog.Any("error", err))
			return nil
		}

		tables = append(tables, symbolTable{
			index:   index,
			symbols: symbols,
			strings: strings,
		})
		return nil
	})

	return tables, err
}

// FindSymbol returns the value of the first symbol called name, searching symbol tables in section
// order. Only len(name) bytes of each symbol's name are compared, so a symbol whose name begins with
// name also matches. If no table holds a match, the returned error is marked with ErrSymbolNotFound.
func (i *Image) FindSymbol(name string) (uint64, error) {
	tables, err := i.symbolTables()
	if err != nil {
		return 0, err
	}

	for _, table := range tables {
		for symbolIndex := 0; symbolIndex < table.count(); symbolIndex++ {
			symbol := table.symbol(symbolIndex)
			if table.nameHasPrefix(symbol.NameOffset, name) {
				return symbol.Value, nil
			}
		}
	}

	return 0, errors.Mark(errors.Newf("symbol %q was not found in %d symbol tables", name, len(tables)), ErrSymbolNotFound)
}

// VisitSymbols calls visit with every entry of every readable symbol table, along with its
// NUL-terminated name. Entries whose name lies outside of the string table are visited with an empty
// name.
func (i *Image) VisitSymbols(visit func(section int, symbol SymbolEntry, name string) error) error {
	tables, err := i.symbolTables()
	if err != nil {
		return err
	}

	for _, table := range tables {
		for symbolIndex := 0; symbolIndex < table.count(); symbolIndex++ {
			symbol := table.symbol(symbolIndex)
			name, _ := table.name(symbol.NameOffset)

			err = visit(table.index, symbol, name)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
