package engine

import "strings"

// UnknownBucket holds files whose name has no extension.
const UnknownBucket = "unknown"

// ExtensionKey returns the bucket name for a file name: the text after the
// last dot, without the dot. Names with no dot, names whose only dot is the
// leading one (".bashrc") and names ending in a dot have no extension and
// map to UnknownBucket. Casing is preserved unless foldCase is set.
func ExtensionKey(name string, foldCase bool) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return UnknownBucket
	}
	ext := name[i+1:]
	if foldCase {
		ext = strings.ToLower(ext)
	}
	return ext
}
