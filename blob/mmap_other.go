//go:build !unix

package blob

// OpenMmap falls back to positioned file reads where mmap is unavailable.
func OpenMmap(path string) (Reader, error) {
	return OpenFile(path)
}
