package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Resolver turns a user-supplied image source into a stable reference
// string. References are opaque to the rest of the service; the only rule
// enforced downstream is non-emptiness.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns a stable ref for the source. Inline data URLs are
// content-addressed so the same upload always maps to the same ref; plain
// URLs and already-resolved refs pass through unchanged.
func (r *Resolver) Resolve(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "data:") {
		sum := sha256.Sum256([]byte(src))
		return "blob:" + hex.EncodeToString(sum[:])
	}
	return src
}
