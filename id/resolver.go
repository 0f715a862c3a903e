package id

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Resolver converts raw entity identifiers into their canonical form.
// Each Resolver owns a private arcp base URI derived from a fresh random
// UUID, so canonical identifiers from different Resolvers never collide by
// accident and must not be compared across graph instances.
type Resolver struct {
	uuid uuid.UUID
	base *url.URL
}

// NewResolver creates a Resolver with a fresh arcp base URI.
func NewResolver() *Resolver {
	u := uuid.New()
	base, err := url.Parse("arcp://uuid," + u.String() + "/")
	if err != nil {
		// The base is built from a literal scheme and a UUID; parsing
		// cannot fail unless the uuid package is broken.
		panic("id: cannot parse arcp base URI: " + err.Error())
	}
	return &Resolver{uuid: u, base: base}
}

// UUID returns the random UUID embedded in the resolver's base URI.
func (r *Resolver) UUID() uuid.UUID {
	return r.uuid
}

// Base returns the resolver's arcp base URI, including the trailing slash.
func (r *Resolver) Base() string {
	return r.base.String()
}

// Canonical resolves a raw identifier to its canonical form.
//
// Absolute URLs pass through unchanged except for trailing-slash stripping.
// All other identifiers are resolved against the resolver's base URI, which
// normalizes "." and ".." path segments, and the trailing slash is stripped
// from the result.
func (r *Resolver) Canonical(rawID string) string {
	if IsURL(rawID) {
		return strings.TrimRight(rawID, "/")
	}
	ref, err := url.Parse(rawID)
	if err != nil {
		// Unparseable identifiers cannot be normalized; fall back to the
		// raw spelling so lookups at least remain self-consistent.
		return strings.TrimRight(rawID, "/")
	}
	return strings.TrimRight(r.base.ResolveReference(ref).String(), "/")
}

// IsURL reports whether s is an absolute URL with a non-empty scheme and
// either a host or an opaque part (as in URNs). Single-letter schemes are
// rejected so that Windows-style paths like "C:\data" do not count.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return len(u.Scheme) > 1 && (u.Host != "" || u.Opaque != "" || u.Scheme == "file")
}
