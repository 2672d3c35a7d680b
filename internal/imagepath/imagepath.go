// Package imagepath turns whatever an admin pasted for a project image
// (absolute Windows path, relative path, bare filename or URL) into a
// web-safe path inside the project's own folder.
package imagepath

import (
	"fmt"
	"path"
	"strings"
)

// MaxImages is the most images a project may carry.
const MaxImages = 20

// Root is the folder all project images are served from.
const Root = "image"

// IsRemote reports whether p is an http(s) URL or a data URI.
func IsRemote(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:")
}

// Normalize converts an arbitrary path into a slash-separated one. Absolute
// paths are cut down to the part after their "image" segment, or to the bare
// filename when they have none. Remote paths are returned unchanged.
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || IsRemote(p) {
		return p
	}

	p = strings.ReplaceAll(p, `\`, "/")

	if !strings.Contains(p, ":") && !strings.HasPrefix(p, "/") {
		return p
	}

	parts := strings.Split(p, "/")
	for i, part := range parts {
		if strings.EqualFold(part, Root) {
			rest := strings.Join(parts[i+1:], "/")
			if rest == "" {
				return Root
			}
			return Root + "/" + rest
		}
	}
	return parts[len(parts)-1]
}

// ProjectDir returns the folder that holds a project's images and report.
func ProjectDir(projectID int64) string {
	return fmt.Sprintf("%s/project/pro%d", Root, projectID)
}

// ForProject forces p into image/project/pro<id>/<filename>. Paths already
// inside that folder and remote URLs are kept as they are. It returns "" for
// input that yields no filename.
func ForProject(p string, projectID int64) string {
	base := Normalize(p)
	if base == "" {
		return ""
	}
	if IsRemote(base) {
		return base
	}

	dir := ProjectDir(projectID)
	if strings.HasPrefix(base, dir+"/") && len(base) > len(dir)+1 {
		return base
	}

	name := path.Base(base)
	if name == "." || name == "/" || name == Root {
		return ""
	}
	return dir + "/" + name
}

// ForProjectAll applies ForProject to every entry, dropping empty results and
// keeping input order.
func ForProjectAll(paths []string, projectID int64) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if n := ForProject(p, projectID); n != "" {
			out = append(out, n)
		}
	}
	return out
}
