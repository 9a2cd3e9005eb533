package firmware

// FileSystem is the file system of the volume the loader image was started from. Paths use the
// firmware's backslash-separated form, e.g. `\kernel\kernel.elf`.
type FileSystem interface {
	// ReadEntireFile returns the full contents of the file at path. A missing file fails with an
	// error marked ErrNotFound and a malformed path with one marked ErrInvalidParameter.
	ReadEntireFile(path string) ([]byte, error)
}
