package cache

import "strings"

const (
	GlobalKeyPrefix = "quizforge"

	sourcesNamespace = "sources"
)

// Key joins parts under the global prefix: quizforge:<namespace>:<part>:...
// Empty parts are skipped.
func Key(namespace string, parts ...string) string {
	segments := make([]string, 0, len(parts)+2)
	segments = append(segments, GlobalKeyPrefix, namespace)
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(segments, ":")
}

// SourceKey holds the JSON of one source.
func SourceKey(id string) string {
	return Key(sourcesNamespace, "source", id)
}

// SourceIndexKey is the hash of live source IDs to titles.
func SourceIndexKey() string {
	return Key(sourcesNamespace, "index")
}
