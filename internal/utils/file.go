package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ValidateInputFile checks that filename names a regular file this process
// can open.
func ValidateInputFile(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	f, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("file does not exist: %s", filename)
		}
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", filename)
	}
	return nil
}

// ValidateOutputFile creates the parent directory of filename if needed.
// An empty filename is valid and means "choose a name".
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	return nil
}

// GetFileExtension returns the lowercased extension, with its dot.
func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsAllowedUpload reports whether filename carries one of the allowed
// extensions, given with their leading dot.
func IsAllowedUpload(filename string, allowed ...string) bool {
	ext := GetFileExtension(filename)
	if ext == "" || ext == "." {
		return false
	}
	return slices.Contains(allowed, ext)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client-supplied file name to a flat ASCII name
// that is safe to join to a directory. It may return "".
func SecureFilename(name string) string {
	var ascii strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < 0x80 {
			ascii.WriteRune(r)
		}
	}

	flat := strings.NewReplacer("/", " ", `\`, " ").Replace(ascii.String())
	flat = strings.Join(strings.Fields(flat), "_")
	flat = unsafeFilenameChars.ReplaceAllString(flat, "")

	return strings.Trim(flat, "._")
}

// FormatFileSize renders size in binary units with one decimal, e.g. "1.5 MB".
func FormatFileSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size)
	for _, unit := range "KMGTPE" {
		value /= 1024
		if value < 1024 {
			return fmt.Sprintf("%.1f %cB", value, unit)
		}
	}
	return fmt.Sprintf("%.1f EB", value)
}
