package emulated

import (
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/spf13/afero"
	"golang.org/x/exp/slog"
)

// FileSystem serves firmware-style backslash paths out of an afero.Fs, standing in for the simple
// file system protocol of the boot volume.
type FileSystem struct {
	logger *slog.Logger
	fs     afero.Fs
}

var _ firmware.FileSystem = &FileSystem{}

func NewFileSystem(logger *slog.Logger, fs afero.Fs) *FileSystem {
	return &FileSystem{
		logger: logger,
		fs:     fs,
	}
}

// hostPath converts `\kernel\kernel.elf` into `/kernel/kernel.elf`
func hostPath(firmwarePath string) (string, error) {
	if firmwarePath == "" || strings.ContainsRune(firmwarePath, 0) {
		return "", errors.Mark(errors.Newf("%q is not a valid file path", firmwarePath), firmware.ErrInvalidParameter)
	}

	return path.Clean("/" + strings.ReplaceAll(firmwarePath, `\`, "/")), nil
}

// ReadEntireFile implements firmware.FileSystem
func (f *FileSystem) ReadEntireFile(filePath string) ([]byte, error) {
	f.logger.Info("Reading file", slog.String("path", filePath))

	resolved, err := hostPath(filePath)
	if err != nil {
		return nil, err
	}

	info, err := f.fs.Stat(resolved)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to read metadata of %s", filePath), firmware.ErrNotFound)
	}

	if info.IsDir() {
		return nil, errors.Mark(errors.Newf("%s is a directory", filePath), firmware.ErrNotFound)
	}

	f.logger.Info("File",
		slog.String("name", info.Name()),
		slog.Int64("size", info.Size()),
		slog.String("human_size", humanize.IBytes(uint64(info.Size()))),
		slog.Time("modified", info.ModTime()),
	)

	data, err := afero.ReadFile(f.fs, resolved)
	if err != nil {
		// The firmware file protocol reports every read failure as not found
		return nil, errors.Mark(errors.Wrapf(err, "failed to read %s", filePath), firmware.ErrNotFound)
	}

	return data, nil
}
