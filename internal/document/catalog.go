package document

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/persistorai/revisor/internal/models"
	"github.com/persistorai/revisor/internal/revisable"
)

// Declaration describes one document type in a schema file.
type Declaration struct {
	Name       string              `yaml:"name"`
	Parent     string              `yaml:"parent,omitempty"`
	Fields     []string            `yaml:"fields,omitempty"`
	Embeds     map[string][]string `yaml:"embeds,omitempty"`
	BlankToNil []string            `yaml:"blank_to_nil,omitempty"`
}

type schemaFile struct {
	Types []Declaration `yaml:"types"`
}

// LoadDeclarations reads type declarations from a YAML schema file.
func LoadDeclarations(path string) ([]Declaration, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration.
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	return ParseDeclarations(data)
}

// ParseDeclarations decodes YAML type declarations.
func ParseDeclarations(data []byte) ([]Declaration, error) {
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing schema file: %w", err)
	}

	for i, d := range f.Types {
		if d.Name == "" {
			return nil, fmt.Errorf("schema type #%d: %w", i, models.ErrMissingType)
		}
	}

	return f.Types, nil
}

// Type is a registered document type.
type Type struct {
	schema     *revisable.Schema
	blankToNil map[string]struct{}
}

// Schema returns the type's revisable schema.
func (t *Type) Schema() *revisable.Schema { return t.schema }

func (t *Type) normalizesBlank(field string) bool {
	_, ok := t.blankToNil[field]
	return ok
}

// Catalog holds every document type known to the process. It is built once
// at startup and read-only afterwards.
type Catalog struct {
	registry *revisable.Registry
	types    map[string]*Type
}

// NewCatalog registers the declared types, parents before children.
func NewCatalog(decls []Declaration) (*Catalog, error) {
	byName := make(map[string]Declaration, len(decls))
	for _, d := range decls {
		if _, dup := byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: %s", models.ErrDuplicateSchema, d.Name)
		}

		byName[d.Name] = d
	}

	c := &Catalog{
		registry: revisable.NewRegistry(),
		types:    make(map[string]*Type, len(decls)),
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}

	sort.Strings(names)

	for _, n := range names {
		if _, err := c.define(n, byName, map[string]bool{}); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Catalog) define(name string, byName map[string]Declaration, visiting map[string]bool) (*Type, error) {
	if t, ok := c.types[name]; ok {
		return t, nil
	}

	d, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownSchema, name)
	}

	if visiting[name] {
		return nil, fmt.Errorf("%w: inheritance cycle at %s", models.ErrUnknownSchema, name)
	}

	visiting[name] = true

	var parent *Type
	if d.Parent != "" {
		p, err := c.define(d.Parent, byName, visiting)
		if err != nil {
			return nil, err
		}

		parent = p
	}

	t, err := buildType(d, parent)
	if err != nil {
		return nil, err
	}

	if err := c.registry.Register(t.schema); err != nil {
		return nil, err
	}

	c.types[name] = t

	return t, nil
}

func buildType(d Declaration, parent *Type) (*Type, error) {
	var parentSchema *revisable.Schema
	blank := make(map[string]struct{})

	if parent != nil {
		parentSchema = parent.schema
		for f := range parent.blankToNil {
			blank[f] = struct{}{}
		}
	}

	s := revisable.NewSchema(d.Name, parentSchema)
	if err := s.DeclareFields(d.Fields...); err != nil {
		return nil, err
	}

	relations := make([]string, 0, len(d.Embeds))
	for r := range d.Embeds {
		relations = append(relations, r)
	}

	sort.Strings(relations)

	for _, relation := range relations {
		if err := s.DeclareEmbedded(relation, collectionAccessor(relation), d.Embeds[relation]...); err != nil {
			return nil, err
		}
	}

	for _, f := range d.BlankToNil {
		blank[f] = struct{}{}
	}

	return &Type{schema: s, blankToNil: blank}, nil
}

func collectionAccessor(relation string) revisable.EmbedAccessor {
	return revisable.Embed(func(d *Document) []revisable.Item {
		c, ok := d.embeds[relation]
		if !ok {
			return nil
		}

		return c.revisableItems()
	})
}

// Registry returns the schema registry backing the catalog.
func (c *Catalog) Registry() *revisable.Registry { return c.registry }

// Type returns a registered type.
func (c *Catalog) Type(name string) (*Type, error) {
	t, ok := c.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownSchema, name)
	}

	return t, nil
}

// New creates an unsaved document.
func (c *Catalog) New(typeName, id string, saver Saver) (*Document, error) {
	t, err := c.Type(typeName)
	if err != nil {
		return nil, err
	}

	d := newDocument(t, id, saver)
	d.createdAt = time.Now().UTC()
	d.updatedAt = d.createdAt

	return d, nil
}

// Restore rebuilds a saved document and its revision log from storage.
func (c *Catalog) Restore(rec models.DocumentRecord, revisions []models.Revision, saver Saver) (*Document, error) {
	t, err := c.Type(rec.Type)
	if err != nil {
		return nil, err
	}

	d := newDocument(t, rec.ID, saver)
	d.fields = cloneValues(rec.Fields)
	d.saved = cloneValues(rec.Fields)
	d.createdAt = rec.CreatedAt
	d.updatedAt = rec.UpdatedAt
	d.persisted = true
	d.last = copyInt(rec.LastRevisionNumber)
	d.savedLast = copyInt(rec.LastRevisionNumber)
	d.revisions = revisable.NewRevisions(revisions...)

	relations := make([]string, 0, len(rec.Embeds))
	for r := range rec.Embeds {
		relations = append(relations, r)
	}

	sort.Strings(relations)

	for _, relation := range relations {
		coll := d.Collection(relation)
		for _, item := range rec.Embeds[relation] {
			coll.Upsert(item.ID, item.Fields).markSaved()
		}
	}

	return d, nil
}
