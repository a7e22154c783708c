package chunking

import (
	"strings"

	"github.com/kirillkom/git-guard/internal/core/ports"
)

// languageSeparators lists declaration boundaries per collection, ordered
// from coarse to fine. Splitting prefers these boundaries so a chunk tends to
// hold whole functions instead of arbitrary windows.
var languageSeparators = map[string][]string{
	"repo_python": {"\nclass ", "\ndef ", "\n\tdef ", "\n\n"},
	"repo_go":     {"\nfunc ", "\ntype ", "\nvar ", "\nconst ", "\n\n"},
	"repo_java":   {"\nclass ", "\npublic ", "\nprotected ", "\nprivate ", "\n\n"},
	"repo_js":     {"\nclass ", "\nfunction ", "\nconst ", "\nexport ", "\n\n"},
	"repo_cpp":    {"\nclass ", "\nstruct ", "\nvoid ", "\nnamespace ", "\n\n"},
	"repo_html":   {"<div", "<section", "<article", "\n\n"},
}

// LanguageSplitter splits on declaration boundaries and packs the resulting
// segments into chunks. Segments larger than the chunk size go through the
// generic splitter.
type LanguageSplitter struct {
	separators []string
	chunkSize  int
	fallback   *Splitter
}

func (s *LanguageSplitter) Split(text string) []string {
	segments := splitOnSeparators(text, s.separators)

	out := make([]string, 0, len(segments))
	var current strings.Builder
	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			out = append(out, chunk)
		}
		current.Reset()
	}

	for _, segment := range segments {
		if len(segment) > s.chunkSize {
			flush()
			out = append(out, s.fallback.Split(segment)...)
			continue
		}
		if current.Len()+len(segment) > s.chunkSize {
			flush()
		}
		current.WriteString(segment)
	}
	flush()
	return out
}

func splitOnSeparators(text string, separators []string) []string {
	segments := []string{text}
	for _, sep := range separators {
		next := make([]string, 0, len(segments))
		for _, segment := range segments {
			parts := strings.Split(segment, sep)
			next = append(next, parts[0])
			// Keep the separator with the segment it opens.
			for _, part := range parts[1:] {
				next = append(next, sep+part)
			}
		}
		segments = next
	}
	return segments
}

// Selector picks the splitting strategy for a collection. Collections
// without a known language use the generic splitter.
type Selector struct {
	chunkSize int
	generic   *Splitter
}

func NewSelector(chunkSize, overlap int) *Selector {
	generic := NewSplitter(chunkSize, overlap)
	return &Selector{chunkSize: generic.ChunkSize, generic: generic}
}

func (s *Selector) ForCollection(collection string) ports.Chunker {
	separators, ok := languageSeparators[collection]
	if !ok {
		return s.generic
	}
	return &LanguageSplitter{
		separators: separators,
		chunkSize:  s.chunkSize,
		fallback:   s.generic,
	}
}
