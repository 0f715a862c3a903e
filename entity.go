package rocrate

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Properties is a JSON-LD property dictionary used to seed an entity at
// construction time. Values may be primitives, {"@id": ...} references,
// entities from the same crate, or lists of any of these; the RO-Crate
// metadata document is flattened, so nested objects are not allowed.
type Properties = map[string]any

// Node is the common interface of every entity tracked by a Crate: data
// entities, contextual entities and the default bookkeeping entities.
// The set of implementations is closed; all of them embed *Entity.
type Node interface {
	// ID returns the raw identifier, as given at construction.
	ID() string

	// CanonicalID returns the graph-local canonical form of the
	// identifier, used as the entity map key.
	CanonicalID() string

	// Types returns the entity's declared JSON-LD types.
	Types() []string

	base() *Entity
}

// Entity is one node in the crate's metadata graph: an identifier plus an
// ordered JSON-LD property store. Property values holding references are
// dereferenced through the owning crate on read and encoded back to
// {"@id": ...} form on write.
//
// Reserved keys (those starting with "@") are set at construction and are
// read-only through the public mutators.
type Entity struct {
	crate *Crate
	id    string
	props *orderedmap.OrderedMap[string, any]
}

func (e *Entity) base() *Entity { return e }

// newEntity builds the property skeleton shared by all entity kinds.
// identifier may be empty, in which case a fresh opaque "#<uuid>" id is
// generated. skeleton holds the initial ordered (key, value) pairs and must
// start with "@id" and "@type".
func newEntity(c *Crate, identifier string, skeleton []keyValue) *Entity {
	if identifier == "" {
		identifier = "#" + uuid.NewString()
	}
	e := &Entity{
		crate: c,
		id:    identifier,
		props: orderedmap.New[string, any](),
	}
	e.props.Set("@id", identifier)
	for _, kv := range skeleton {
		e.props.Set(kv.key, kv.value)
	}
	return e
}

type keyValue struct {
	key   string
	value any
}

// applyProperties merges a caller-provided property map on top of the
// skeleton. Reserved "@"-prefixed keys are stored verbatim; everything else
// goes through Set and is validated and reference-encoded. Keys are applied
// in sorted order since Go maps have no defined iteration order.
func (e *Entity) applyProperties(props Properties) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isReservedKey(k) {
			e.props.Set(k, props[k])
			continue
		}
		if err := e.Set(k, props[k]); err != nil {
			return err
		}
	}
	return nil
}

// applyOrderedProperties is the loader-side variant of applyProperties: it
// preserves the key order of the source document.
func (e *Entity) applyOrderedProperties(props *orderedmap.OrderedMap[string, any]) error {
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		if isReservedKey(pair.Key) {
			e.props.Set(pair.Key, normalizeJSONValue(pair.Value))
			continue
		}
		if err := e.Set(pair.Key, normalizeJSONValue(pair.Value)); err != nil {
			return err
		}
	}
	return nil
}

// Crate returns the crate that owns this entity.
func (e *Entity) Crate() *Crate { return e.crate }

// ID returns the entity's raw identifier.
func (e *Entity) ID() string { return e.id }

// CanonicalID returns the canonical, graph-local form of the identifier.
// It is stable for the lifetime of the owning crate and is the key under
// which the entity is registered.
func (e *Entity) CanonicalID() string {
	return e.crate.ResolveID(e.id)
}

// Types returns the entity's "@type" value normalized to a list.
func (e *Entity) Types() []string {
	raw, ok := e.props.Get("@type")
	if !ok {
		return nil
	}
	return stringList(raw)
}

// String implements fmt.Stringer.
func (e *Entity) String() string {
	return fmt.Sprintf("<%s %v>", e.id, e.Types())
}

// Has reports whether the entity has a property named key, reserved keys
// included.
func (e *Entity) Has(key string) bool {
	_, ok := e.props.Get(key)
	return ok
}

// Keys returns the property keys in storage order.
func (e *Entity) Keys() []string {
	keys := make([]string, 0, e.props.Len())
	for pair := e.props.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of stored properties, reserved keys included.
func (e *Entity) Len() int { return e.props.Len() }

// Get returns the value of a property, or nil if it is absent.
//
// Reserved "@"-prefixed keys are returned verbatim. For all other keys,
// stored {"@id": ...} references are dereferenced through the owning crate:
// a registered entity is returned as a live Node, while a dangling
// reference decays to its raw "@id" string. Cardinality is preserved: a
// stored list comes back as a []any, a scalar as a scalar.
func (e *Entity) Get(key string) any {
	raw, ok := e.props.Get(key)
	if !ok || raw == nil || isReservedKey(key) {
		return raw
	}
	if items, isList := anyList(raw); isList {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = e.decodeValue(item)
		}
		return out
	}
	return e.decodeValue(raw)
}

// GetRaw returns the stored value of a property without reference
// dereferencing, or nil if it is absent.
func (e *Entity) GetRaw(key string) any {
	raw, _ := e.props.Get(key)
	return raw
}

func (e *Entity) decodeValue(v any) any {
	refID, ok := refTarget(v)
	if !ok {
		return v
	}
	if node := e.crate.Dereference(refID); node != nil {
		return node
	}
	return refID
}

// Set stores a property value. Setting a reserved "@"-prefixed key fails
// with ErrInvalidKey. Entities are stored as {"@id": ...} references; plain
// maps must already contain an "@id" or the call fails with
// ErrInvalidReference. Lists are encoded element-wise, preserving order.
func (e *Entity) Set(key string, value any) error {
	const op = "Entity.Set"
	if isReservedKey(key) {
		return newErrorf(op, KindValidation, ErrInvalidKey, "cannot set %q", key)
	}
	encoded, err := encodeValue(op, value)
	if err != nil {
		return err
	}
	e.props.Set(key, encoded)
	return nil
}

// Delete removes a property. Deleting a reserved "@"-prefixed key fails
// with ErrInvalidKey; deleting an absent key is a no-op.
func (e *Entity) Delete(key string) error {
	const op = "Entity.Delete"
	if isReservedKey(key) {
		return newErrorf(op, KindValidation, ErrInvalidKey, "cannot delete %q", key)
	}
	e.props.Delete(key)
	return nil
}

// Append treats the property as a growable ordered list, promoting an
// existing scalar value to a one-element list first, and appends the given
// values after reference encoding. Appending to a reserved key fails with
// ErrInvalidKey.
func (e *Entity) Append(key string, values ...any) error {
	return e.appendTo("Entity.Append", key, values, false)
}

// AppendCompact behaves like Append, but if the resulting list has exactly
// one element it collapses back to scalar form.
func (e *Entity) AppendCompact(key string, values ...any) error {
	return e.appendTo("Entity.AppendCompact", key, values, true)
}

func (e *Entity) appendTo(op, key string, values []any, compact bool) error {
	if isReservedKey(key) {
		return newErrorf(op, KindValidation, ErrInvalidKey, "cannot append to %q", key)
	}
	var current []any
	if raw, ok := e.props.Get(key); ok {
		if items, isList := anyList(raw); isList {
			current = items
		} else {
			current = []any{raw}
		}
	}
	for _, v := range values {
		encoded, err := encodeValue(op, v)
		if err != nil {
			return err
		}
		if items, isList := anyList(encoded); isList {
			current = append(current, items...)
		} else {
			current = append(current, encoded)
		}
	}
	if compact && len(current) == 1 {
		e.props.Set(key, current[0])
		return nil
	}
	e.props.Set(key, current)
	return nil
}

// Properties returns a shallow copy of the raw property dictionary, with
// references left in their stored {"@id": ...} form.
func (e *Entity) Properties() Properties {
	out := make(Properties, e.props.Len())
	for pair := e.props.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// orderedProps exposes the live ordered store for the materializer.
func (e *Entity) orderedProps() *orderedmap.OrderedMap[string, any] {
	return e.props
}

// Equal reports whether two entities have the same raw identifier and the
// same property snapshot. Entities with equal canonical ids but diverged
// properties are not Equal, although they occupy the same map slot.
func (e *Entity) Equal(other Node) bool {
	if other == nil {
		return false
	}
	o := other.base()
	if e.id != o.id {
		return false
	}
	return reflect.DeepEqual(propsAsMap(e.props), propsAsMap(o.props))
}

func propsAsMap(props *orderedmap.OrderedMap[string, any]) map[string]any {
	out := make(map[string]any, props.Len())
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// DatePublished returns the entity's datePublished property parsed as a
// timestamp. The second return value is false if the property is absent or
// not a valid RFC 3339 / ISO 8601 date.
func (e *Entity) DatePublished() (time.Time, bool) {
	s, ok := e.GetRaw("datePublished").(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := parseISOTime(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SetDatePublished stores a timestamp in the datePublished property.
func (e *Entity) SetDatePublished(t time.Time) {
	e.props.Set("datePublished", t.UTC().Format(time.RFC3339))
}

// setRaw stores a value bypassing reserved-key protection. It is the
// controlled path used by materializers to stamp bookkeeping fields.
func (e *Entity) setRaw(key string, value any) {
	e.props.Set(key, value)
}

func isReservedKey(key string) bool {
	return len(key) > 0 && key[0] == '@'
}

// encodeValue converts a caller-supplied property value to its stored
// form: entities become {"@id": ...} references, maps are required to
// carry an "@id", lists are encoded element-wise.
func encodeValue(op string, value any) (any, error) {
	if items, isList := anyList(value); isList {
		out := make([]any, len(items))
		for i, item := range items {
			enc, err := encodeScalar(op, item)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	}
	return encodeScalar(op, value)
}

func encodeScalar(op string, value any) (any, error) {
	switch v := value.(type) {
	case Node:
		return map[string]any{"@id": v.ID()}, nil
	case map[string]any:
		if _, ok := v["@id"]; !ok {
			return nil, newErrorf(op, KindValidation, ErrInvalidReference, "no @id in %v", v)
		}
		return v, nil
	case time.Time:
		return v.UTC().Format(time.RFC3339), nil
	default:
		return value, nil
	}
}

// refTarget extracts the target id from a stored reference value.
func refTarget(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	target, ok := m["@id"].(string)
	return target, ok
}
