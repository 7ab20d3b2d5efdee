package archive

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oshokin/binthere/internal/platform"
)

const (
	// dirMode is used for every directory created during extraction.
	dirMode = 0o755
	// defaultFileMode applies when an entry carries no permission bits.
	defaultFileMode = 0o644
	// maxSymlinks bounds symlink chains while resolving entry paths, as the kernel does.
	maxSymlinks = 40
)

var (
	// ErrExtractionFailed is wrapped by every extraction error.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrUnsupportedKind is returned for an archive kind with no extractor.
	ErrUnsupportedKind = errors.New("unsupported archive kind")
	// ErrIllegalPath is returned for entries escaping the destination directory.
	ErrIllegalPath = errors.New("entry escapes destination directory")
)

// Extract unpacks the archive at archivePath into destDir according to kind.
// A failure may leave destDir partially populated.
func Extract(archivePath string, kind platform.ArchiveKind, destDir string) error {
	if err := os.MkdirAll(destDir, dirMode); err != nil {
		return fmt.Errorf("%w: create destination: %w", ErrExtractionFailed, err)
	}

	var err error

	switch kind {
	case platform.KindZip:
		err = extractZip(archivePath, destDir)
	case platform.KindTarGz:
		err = extractTarGz(archivePath, destDir)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExtractionFailed, filepath.Base(archivePath), err)
	}

	return nil
}

// safeJoin resolves an entry name under destDir and rejects names that leave it.
// Symlinks already extracted into the parent directories are followed, so a chain of
// links cannot smuggle the entry out. The last component is not followed: it is replaced.
func safeJoin(destDir, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrIllegalPath, name)
	}

	if !within(destDir, filepath.Join(destDir, filepath.FromSlash(name))) {
		return "", fmt.Errorf("%w: %s", ErrIllegalPath, name)
	}

	parent, err := resolveFrom(destDir, destDir, path.Dir(path.Clean(name)))
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	return filepath.Join(parent, path.Base(path.Clean(name))), nil
}

// resolveFrom walks name component by component starting at dir, following symlinks
// the way the OS would, and fails as soon as the walk leaves root.
// Components that do not exist yet are taken literally; extraction creates them as plain entries.
func resolveFrom(root, dir, name string) (string, error) {
	current := dir
	pending := strings.Split(name, "/")
	links := 0

	for len(pending) > 0 {
		part := pending[0]
		pending = pending[1:]

		switch part {
		case "", ".":
			continue
		case "..":
			current = filepath.Dir(current)
		default:
			current = filepath.Join(current, part)
		}

		if !within(root, current) {
			return "", ErrIllegalPath
		}

		info, err := os.Lstat(current)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err != nil {
			return "", err
		}

		if info.Mode()&os.ModeSymlink == 0 {
			continue
		}

		links++
		if links > maxSymlinks {
			return "", fmt.Errorf("%w: too many levels of symbolic links", ErrIllegalPath)
		}

		linkname, err := os.Readlink(current)
		if err != nil {
			return "", err
		}

		linkname = filepath.ToSlash(linkname)
		if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
			return "", ErrIllegalPath
		}

		current = filepath.Dir(current)
		pending = append(strings.Split(linkname, "/"), pending...)
	}

	return current, nil
}

// within reports whether target is root or lies below it.
func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)

	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// fileMode returns the permission bits to create an entry with.
func fileMode(mode os.FileMode) os.FileMode {
	if perm := mode.Perm(); perm != 0 {
		return perm
	}

	return defaultFileMode
}

// clobber removes whatever occupies target so a new entry can take its place.
// Directories are kept; they are merged with the archive contents.
func clobber(target string) error {
	info, err := os.Lstat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	if info.IsDir() {
		return nil
	}

	if err = os.Remove(target); err != nil {
		// Read-only files cannot be deleted on Windows.
		_ = os.Chmod(target, defaultFileMode|0o200)
		return os.Remove(target)
	}

	return nil
}

// writeSymlink replaces target with a symbolic link to linkname.
// Links resolving outside destDir are refused, otherwise later entries could be written through them.
func writeSymlink(destDir, target, linkname string) error {
	linkname = strings.ReplaceAll(linkname, `\`, "/")
	if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return fmt.Errorf("%w: link to %s", ErrIllegalPath, linkname)
	}

	if _, err := resolveFrom(destDir, filepath.Dir(target), linkname); err != nil {
		return fmt.Errorf("link to %s: %w", linkname, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return err
	}

	if err := clobber(target); err != nil {
		return err
	}

	return os.Symlink(filepath.FromSlash(linkname), target)
}
