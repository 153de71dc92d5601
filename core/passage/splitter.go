// Package passage splits document text into fixed-size word windows.
// Passages are emitted alongside JSON output so a search index can be fed
// without re-reading the bodies. Words stand in for tokens; windows do not overlap.
package passage

import "strings"

// DefaultSize is the number of words per passage when none is configured.
const DefaultSize = 200

// Splitter splits text into word windows.
type Splitter struct {
	Size int // words per passage
}

// New creates a Splitter. Defaults to DefaultSize if size <= 0.
func New(size int) *Splitter {
	if size <= 0 {
		size = DefaultSize
	}
	return &Splitter{Size: size}
}

// Split returns contiguous passages of at most Size words joined by single spaces.
func (s *Splitter) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	passages := make([]string, 0, (len(words)+s.Size-1)/s.Size)
	for i := 0; i < len(words); i += s.Size {
		end := min(i+s.Size, len(words))
		passages = append(passages, strings.Join(words[i:end], " "))
	}
	return passages
}
