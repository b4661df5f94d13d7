//go:build !linux

package watcher

// DetectFilesystemType is only implemented on Linux; elsewhere fsnotify is
// tried first and polling is used if it fails.
func DetectFilesystemType(path string) FilesystemType {
	return FSTypeUnknown
}
