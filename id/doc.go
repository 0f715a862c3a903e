// Package id provides canonical identifier resolution for crate entity graphs.
//
// Every RO-Crate entity carries a raw identifier: a crate-relative path
// ("data/file.txt"), a fragment ("#alice"), a URN, or an absolute URL.
// Within one graph all of these must collapse to a single canonical form so
// that they can be used as map keys and compared for equality.
//
// # Canonical Form
//
// A Resolver owns a private base URI of the form
//
//	arcp://uuid,{uuid4}/
//
// following the arcp scheme (RFC draft) for archive-and-package URIs.
// Resolution works as follows:
//   - Absolute URLs pass through unchanged, except for trailing-slash
//     stripping.
//   - Everything else is resolved against the base URI, which also
//     normalizes relative path segments ("./data/" and "data" converge).
//   - The trailing slash is stripped from the result, so directory-style
//     and file-style spellings of the same identifier converge too.
//
// # Locality
//
// The base URI embeds a fresh random UUID, so two Resolvers never share a
// base. Canonical identifiers are therefore valid only within the graph
// instance that produced them: they are local map keys, not portable names.
package id
