package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// extractTarGz decompresses the gzip layer and unpacks the tar entries under destDir.
func extractTarGz(archivePath, destDir string) error {
	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("read gzip: %w", err)
	}

	defer func() {
		_ = gzipReader.Close()
	}()

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %w", ErrIllegalPath, err)
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if err = extractTarEntry(tarReader, header, destDir); err != nil {
			return fmt.Errorf("entry %s: %w", header.Name, err)
		}
	}
}

func extractTarEntry(tarReader *tar.Reader, header *tar.Header, destDir string) error {
	target, err := safeJoin(destDir, header.Name)
	if err != nil {
		return err
	}

	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, dirMode)
	case tar.TypeSymlink:
		return writeSymlink(destDir, target, header.Linkname)
	case tar.TypeLink:
		source, err := safeJoin(destDir, header.Linkname)
		if err != nil {
			return err
		}

		if err = os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
			return err
		}

		if err = clobber(target); err != nil {
			return err
		}

		return os.Link(source, target)
	case tar.TypeReg:
		if err = os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
			return err
		}

		if err = clobber(target); err != nil {
			return err
		}

		return writeFile(target, tarReader, fileMode(header.FileInfo().Mode()))
	default:
		// Devices, fifos and PAX-only headers have no place in a release asset.
		return nil
	}
}
