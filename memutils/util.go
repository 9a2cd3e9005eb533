package memutils

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

const (
	// PageSize is the size in bytes of a single firmware page. Every allocation made by the loader
	// is a whole number of pages.
	PageSize = 4096
	// HigherHalfMask is the bit pattern carried by addresses in an image linked for the upper half of
	// the virtual address space. Stripping it yields the physical target.
	HigherHalfMask uint64 = 0xFFFF_8000_0000_0000
)

type Number interface {
	constraints.Integer
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// CheckPageAligned returns an error wrapping AlignmentError if address is not a multiple of PageSize
func CheckPageAligned(address uint64, name string) error {
	if address%PageSize != 0 {
		return cerrors.Wrapf(AlignmentError, "%s is 0x%x", name, address)
	}
	return nil
}

func AlignUp[T Number](value T, alignment T) T {
	return (value + alignment - 1) &^ (alignment - 1)
}

func AlignDown[T Number](value T, alignment T) T {
	return value &^ (alignment - 1)
}

// BytesToPages returns the number of pages required to hold the provided number of bytes. Zero bytes
// require zero pages.
func BytesToPages(bytes uint64) int {
	return int((bytes + PageSize - 1) / PageSize)
}

// BytesToPagesRounded behaves like BytesToPages, but never returns less than one page. It is used to size
// allocations, which cannot be empty.
func BytesToPagesRounded(bytes uint64) int {
	pages := BytesToPages(bytes)
	if pages == 0 {
		return 1
	}
	return pages
}

// PagesToBytes returns the size in bytes of the provided number of pages
func PagesToBytes(pages int) uint64 {
	return uint64(pages) * PageSize
}

// LowerHalf strips HigherHalfMask from an address
func LowerHalf(address uint64) uint64 {
	return address &^ HigherHalfMask
}
