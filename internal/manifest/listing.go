package manifest

import (
	"fmt"
	"sort"

	"mdpress/pkg/types"
)

// DefaultListingLimit is the number of paths Listing shows by default.
const DefaultListingLimit = 200

// Listing returns the sorted relative paths of m, at most limit of them. When
// entries are left out a final "… (N more)" line says how many.
func Listing(m types.Manifest, limit int) []string {
	paths := m.Paths()
	sort.Strings(paths)
	if limit <= 0 || len(paths) <= limit {
		return paths
	}
	return append(paths[:limit:limit], fmt.Sprintf("… (%d more)", len(paths)-limit))
}
