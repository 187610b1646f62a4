// Package revisable implements change detection, revision building and field
// history for records that keep an append-only log of their own changes.
//
// A record type declares its tracked fields through a Schema. Schemas are
// registered once, in a Registry, before any record of that type is revised;
// registration flattens the inherited field set so lookups never walk the
// parent chain at runtime.
package revisable

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/persistorai/revisor/internal/models"
)

// EmbedAccessor returns the live items of one nested collection of a record.
type EmbedAccessor func(Record) []Item

// Embed adapts a typed accessor for records of concrete type R. Records of
// any other type yield no items.
func Embed[R Record](fn func(R) []Item) EmbedAccessor {
	return func(rec Record) []Item {
		r, ok := rec.(R)
		if !ok {
			return nil
		}

		return fn(r)
	}
}

type embedSpec struct {
	fields   map[string]struct{}
	accessor EmbedAccessor
}

// Schema declares which top-level fields and which nested-collection fields
// of one record type are revisable. Declarations are additive and are frozen
// when the schema is registered.
type Schema struct {
	name      string
	parent    *Schema
	own       map[string]struct{}
	fields    map[string]struct{}
	embeds    map[string]*embedSpec
	relations []string
	sealed    bool
}

// NewSchema creates an empty schema for the named type. parent may be nil.
func NewSchema(name string, parent *Schema) *Schema {
	return &Schema{
		name:   name,
		parent: parent,
		own:    make(map[string]struct{}),
		embeds: make(map[string]*embedSpec),
	}
}

// Name returns the record type name.
func (s *Schema) Name() string { return s.name }

// Parent returns the parent schema, or nil.
func (s *Schema) Parent() *Schema { return s.parent }

// Sealed reports whether the schema has been registered.
func (s *Schema) Sealed() bool { return s.sealed }

// DeclareFields adds names to the type's own revisable field set.
func (s *Schema) DeclareFields(names ...string) error {
	if s.sealed {
		return fmt.Errorf("%w: %s", models.ErrSchemaSealed, s.name)
	}

	for _, n := range names {
		s.own[n] = struct{}{}
	}

	return nil
}

// DeclareEmbedded adds names to the tracked field set of relation. The first
// declaration of a relation must supply its accessor unless an ancestor
// declares the relation; later declarations may pass nil to keep the existing
// one.
func (s *Schema) DeclareEmbedded(relation string, accessor EmbedAccessor, names ...string) error {
	if s.sealed {
		return fmt.Errorf("%w: %s", models.ErrSchemaSealed, s.name)
	}

	spec, ok := s.embeds[relation]
	if !ok {
		if accessor == nil && !s.parent.hasRelation(relation) {
			return fmt.Errorf("%w: %s.%s has no accessor", models.ErrUnknownRelation, s.name, relation)
		}

		spec = &embedSpec{fields: make(map[string]struct{})}
		s.embeds[relation] = spec
		s.relations = append(s.relations, relation)
	}

	if accessor != nil {
		spec.accessor = accessor
	}

	for _, n := range names {
		spec.fields[n] = struct{}{}
	}

	return nil
}

func (s *Schema) hasRelation(relation string) bool {
	for ; s != nil; s = s.parent {
		if _, ok := s.embeds[relation]; ok {
			return true
		}
	}

	return false
}

// seal flattens the inherited field and relation sets. The parent must already be sealed.
func (s *Schema) seal() error {
	if s.sealed {
		return nil
	}

	fields := make(map[string]struct{}, len(s.own))
	for ancestor := s.parent; ancestor != nil; ancestor = ancestor.parent {
		if !ancestor.sealed {
			return fmt.Errorf("%w: parent %s of %s is not registered", models.ErrUnknownSchema, ancestor.name, s.name)
		}

		for f := range ancestor.own {
			fields[f] = struct{}{}
		}
	}

	for f := range s.own {
		fields[f] = struct{}{}
	}

	s.fields = fields
	s.inheritEmbeds()
	s.sealed = true

	return nil
}

// inheritEmbeds merges the parent's flattened relations into s. Inherited
// relations come first, in the parent's order; field sets are unioned and an
// own accessor overrides the inherited one.
func (s *Schema) inheritEmbeds() {
	if s.parent == nil {
		return
	}

	embeds := make(map[string]*embedSpec, len(s.parent.embeds)+len(s.embeds))
	relations := make([]string, 0, len(s.parent.relations)+len(s.relations))

	for _, relation := range s.parent.relations {
		inherited := s.parent.embeds[relation]
		embeds[relation] = &embedSpec{fields: maps.Clone(inherited.fields), accessor: inherited.accessor}
		relations = append(relations, relation)
	}

	for _, relation := range s.relations {
		own := s.embeds[relation]

		spec, ok := embeds[relation]
		if !ok {
			spec = &embedSpec{fields: make(map[string]struct{})}
			embeds[relation] = spec
			relations = append(relations, relation)
		}

		maps.Copy(spec.fields, own.fields)

		if own.accessor != nil {
			spec.accessor = own.accessor
		}
	}

	s.embeds = embeds
	s.relations = relations
}

// IsRevisable reports whether a top-level field is tracked.
func (s *Schema) IsRevisable(field string) bool {
	_, ok := s.fields[field]
	return ok
}

// IsRevisableIn reports whether field is tracked on items of relation.
func (s *Schema) IsRevisableIn(relation, field string) bool {
	spec, ok := s.embeds[relation]
	if !ok {
		return false
	}

	_, ok = spec.fields[field]

	return ok
}

// Fields returns every revisable top-level field, own and inherited, sorted.
func (s *Schema) Fields() []string {
	return sortedKeys(s.fields)
}

// Relations returns the tracked nested relations in declaration order.
func (s *Schema) Relations() []string {
	return slices.Clone(s.relations)
}

// EmbeddedFields returns the tracked fields of relation, sorted.
func (s *Schema) EmbeddedFields(relation string) []string {
	spec, ok := s.embeds[relation]
	if !ok {
		return nil
	}

	return sortedKeys(spec.fields)
}

func (s *Schema) items(rec Record, relation string) []Item {
	spec, ok := s.embeds[relation]
	if !ok || spec.accessor == nil {
		return nil
	}

	return spec.accessor(rec)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Registry holds the sealed schemas of every known record type.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register seals s and makes it available by name. A schema's parent must be
// registered first.
func (r *Registry) Register(s *Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[s.name]; exists {
		return fmt.Errorf("%w: %s", models.ErrDuplicateSchema, s.name)
	}

	if s.parent != nil {
		if registered, ok := r.schemas[s.parent.name]; !ok || registered != s.parent {
			return fmt.Errorf("%w: parent %s of %s", models.ErrUnknownSchema, s.parent.name, s.name)
		}
	}

	if err := s.seal(); err != nil {
		return err
	}

	r.schemas[s.name] = s

	return nil
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownSchema, name)
	}

	return s, nil
}

// AllRevisableFields returns the flattened revisable field set of a type.
func (r *Registry) AllRevisableFields(name string) ([]string, error) {
	s, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	return s.Fields(), nil
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}
