package domain

import "strings"

// PartitionTable maps an identifier suffix (file extension, dot included) to
// the collection key of the corresponding document store partition.
type PartitionTable map[string]string

// DefaultPartitionTable mirrors the repository languages indexed out of the box.
func DefaultPartitionTable() PartitionTable {
	return PartitionTable{
		".py":   "repo_python",
		".java": "repo_java",
		".js":   "repo_js",
		".ts":   "repo_js",
		".html": "repo_html",
		".go":   "repo_go",
		".cpp":  "repo_cpp",
		".c":    "repo_cpp",
	}
}

// Resolve returns the collection key for a suffix. Unknown suffixes resolve to
// nothing: retrieval for them yields an empty result, not an error.
func (t PartitionTable) Resolve(suffix string) (string, bool) {
	collection, ok := t[strings.ToLower(suffix)]
	return collection, ok
}

// Collections returns the distinct collection keys in the table.
func (t PartitionTable) Collections() []string {
	seen := make(map[string]struct{}, len(t))
	out := make([]string, 0, len(t))
	for _, collection := range t {
		if _, ok := seen[collection]; ok {
			continue
		}
		seen[collection] = struct{}{}
		out = append(out, collection)
	}
	return out
}

// Suffixes returns every suffix mapped to the given collection key.
func (t PartitionTable) Suffixes(collection string) []string {
	out := make([]string, 0, 2)
	for suffix, c := range t {
		if c == collection {
			out = append(out, suffix)
		}
	}
	return out
}
