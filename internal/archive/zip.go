package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// extractZip materializes every entry of a zip archive under destDir.
func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		if reader != nil {
			_ = reader.Close()
		}

		return fmt.Errorf("%w: %w", ErrIllegalPath, err)
	}

	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, entry := range reader.File {
		if err = extractZipEntry(entry, destDir); err != nil {
			return fmt.Errorf("entry %s: %w", entry.Name, err)
		}
	}

	return nil
}

func extractZipEntry(entry *zip.File, destDir string) error {
	target, err := safeJoin(destDir, entry.Name)
	if err != nil {
		return err
	}

	mode := entry.Mode()

	switch {
	case mode.IsDir():
		return os.MkdirAll(target, dirMode)
	case mode&os.ModeSymlink != 0:
		linkname, err := readZipEntry(entry)
		if err != nil {
			return err
		}

		return writeSymlink(destDir, target, string(linkname))
	}

	if err = os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return err
	}

	if err = clobber(target); err != nil {
		return err
	}

	source, err := entry.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = source.Close()
	}()

	return writeFile(target, source, fileMode(mode))
}

// readZipEntry returns the whole content of a small entry, such as a symlink target.
func readZipEntry(entry *zip.File) ([]byte, error) {
	source, err := entry.Open()
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = source.Close()
	}()

	return io.ReadAll(source)
}

// writeFile creates target with mode and copies source into it.
func writeFile(target string, source io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	//nolint:gosec // Release archives come from the distributor's own pipeline.
	if _, err = io.Copy(out, source); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
