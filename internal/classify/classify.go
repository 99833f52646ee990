// Package classify maps filesystem paths to catalog entity kinds.
package classify

import (
	"path/filepath"
	"strings"
)

// Kind is the semantic type of a tracked entity.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindVideo     Kind = "video"
	KindOther     Kind = "other"
)

// VideoExtensions are the default recognized footage extensions
var VideoExtensions = []string{
	".mp4",
	".mov",
	".avi",
	".mkv",
	".mts",
	".m2ts",
	".mxf",
	".blk", // proprietary camera blocks
}

// Classifier decides the kind of a path. It never touches the filesystem:
// the directory flag is supplied by the caller from the event or walk entry.
type Classifier struct {
	extensions map[string]bool
}

// New creates a Classifier recognizing the default video extensions plus
// any additional ones (case-insensitive, leading dot expected).
func New(additionalExts []string) *Classifier {
	extMap := make(map[string]bool)
	for _, ext := range VideoExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	for _, ext := range additionalExts {
		extMap[strings.ToLower(ext)] = true
	}
	return &Classifier{extensions: extMap}
}

// Classify returns the kind for a path. Pure and total: no error mode.
func (c *Classifier) Classify(path string, isDir bool) Kind {
	if isDir {
		return KindDirectory
	}
	if c.extensions[strings.ToLower(filepath.Ext(path))] {
		return KindVideo
	}
	return KindOther
}

// Extensions returns the recognized video extensions.
func (c *Classifier) Extensions() []string {
	exts := make([]string, 0, len(c.extensions))
	for ext := range c.extensions {
		exts = append(exts, ext)
	}
	return exts
}
