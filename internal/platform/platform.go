package platform

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// ToolName is the name of the delegated binary and the prefix of every release asset.
const ToolName = "binthere"

const (
	// keySeparator joins the OS and architecture into a platform key.
	keySeparator = "-"

	windowsOS = "windows"
	exeSuffix = ".exe"
)

// ArchiveKind is the container format of a release asset.
type ArchiveKind int

const (
	// KindUnknown is the zero value and never appears in the table.
	KindUnknown ArchiveKind = iota
	// KindZip is a zip archive, used for Windows assets.
	KindZip
	// KindTarGz is a gzip-compressed tar archive, used everywhere else.
	KindTarGz
)

// String returns the archive kind name.
func (k ArchiveKind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindTarGz:
		return "tar.gz"
	case KindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("ArchiveKind(%d)", int(k))
	}
}

// KindFromName derives the archive kind from an asset file name.
func KindFromName(name string) ArchiveKind {
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTarGz
	default:
		return KindUnknown
	}
}

// Descriptor describes the release asset for one platform.
type Descriptor struct {
	// Key is the platform key, e.g. "linux-amd64".
	Key string
	// ArchiveName is the release asset file name.
	ArchiveName string
	// ExecutableName is the file the archive must contain at its root.
	ExecutableName string
	// Kind is the archive container format.
	Kind ArchiveKind
}

// ErrUnsupportedPlatform is matched by every UnsupportedPlatformError.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// UnsupportedPlatformError carries the platform key that has no release asset.
type UnsupportedPlatformError struct {
	Key string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: %s", e.Key)
}

// Is makes errors.Is(err, ErrUnsupportedPlatform) hold.
func (e *UnsupportedPlatformError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}

// descriptors lists every platform the release pipeline publishes.
//
//nolint:gochecknoglobals // Static lookup table.
var descriptors = map[string]Descriptor{
	"windows-amd64": {
		ArchiveName:    "binthere-x86_64-pc-windows-msvc.zip",
		ExecutableName: "binthere.exe",
		Kind:           KindZip,
	},
	"linux-amd64": {
		ArchiveName:    "binthere-x86_64-unknown-linux-gnu.tar.gz",
		ExecutableName: "binthere",
		Kind:           KindTarGz,
	},
	"darwin-amd64": {
		ArchiveName:    "binthere-x86_64-apple-darwin.tar.gz",
		ExecutableName: "binthere",
		Kind:           KindTarGz,
	},
	"darwin-arm64": {
		ArchiveName:    "binthere-aarch64-apple-darwin.tar.gz",
		ExecutableName: "binthere",
		Kind:           KindTarGz,
	},
}

// Key joins goos and goarch into a platform key.
func Key(goos, goarch string) string {
	return goos + keySeparator + goarch
}

// Resolve returns the descriptor for the exact platform key formed by goos and goarch.
func Resolve(goos, goarch string) (Descriptor, error) {
	key := Key(goos, goarch)

	d, ok := descriptors[key]
	if !ok {
		return Descriptor{}, &UnsupportedPlatformError{Key: key}
	}

	d.Key = key

	return d, nil
}

// Current resolves the platform the process runs on.
func Current() (Descriptor, error) {
	return Resolve(runtime.GOOS, runtime.GOARCH)
}

// Supported returns every supported platform key in sorted order.
func Supported() []string {
	keys := make([]string, 0, len(descriptors))
	for key := range descriptors {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// Descriptors returns every supported descriptor ordered by key.
func Descriptors() []Descriptor {
	keys := Supported()
	result := make([]Descriptor, 0, len(keys))

	for _, key := range keys {
		d := descriptors[key]
		d.Key = key
		result = append(result, d)
	}

	return result
}

// IsWindows reports whether goos names Windows.
func IsWindows(goos string) bool {
	return strings.EqualFold(goos, windowsOS)
}

// ExecutableName returns the delegated binary's file name on goos.
func ExecutableName(goos string) string {
	if IsWindows(goos) {
		return ToolName + exeSuffix
	}

	return ToolName
}
