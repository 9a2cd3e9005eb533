package elfimage

import "github.com/cockroachdb/errors"

var (
	// ErrParse marks errors caused by a malformed or unsupported image
	ErrParse = errors.New("malformed ELF image")
	// ErrSymbolNotFound marks lookups for a symbol that no symbol table defines
	ErrSymbolNotFound = errors.New("symbol not found")
)

func parseErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(1, format, args...), ErrParse)
}
