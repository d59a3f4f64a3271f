package domain

import "strings"

// Backend identifies one of the two storage implementations.
type Backend string

const (
	BackendRelational Backend = "relational"
	BackendDocument   Backend = "document"
)

var backendAliases = map[string]Backend{
	"relational": BackendRelational,
	"postgres":   BackendRelational,
	"postgresql": BackendRelational,
	"mysql":      BackendRelational,
	"document":   BackendDocument,
	"mongo":      BackendDocument,
	"mongodb":    BackendDocument,
}

// ParseBackend resolves a backend name or alias, case-insensitively.
func ParseBackend(s string) (Backend, bool) {
	b, ok := backendAliases[strings.ToLower(strings.TrimSpace(s))]
	return b, ok
}

func (b Backend) String() string { return string(b) }

// RequiresImages reports whether products on this backend need at least one
// image url.
func (b Backend) RequiresImages() bool {
	return b == BackendRelational
}
