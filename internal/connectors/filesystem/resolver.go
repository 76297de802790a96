package filesystem

import "strings"

// LocalPath converts a file:// source URL to a local path. Other URLs
// are returned unchanged with ok false.
func LocalPath(uri string) (path string, ok bool) {
	if strings.HasPrefix(uri, "file://") {
		return strings.TrimPrefix(uri, "file://"), true
	}
	return uri, false
}
