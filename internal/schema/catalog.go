package schema

import (
	"embed"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/matthewbaird/metaform/internal/meta"
)

//go:embed catalog/*.cue
var catalogFS embed.FS

// Catalog is the statically bundled metadata: entity schemas and
// fallback reference option lists, both declared in CUE.
type Catalog struct {
	entities map[string]*meta.EntityMeta
	options  map[string][]meta.Record
}

// fieldDecl is the CUE-side shape of a field; displayType arrives as a
// wire label and is parsed into the closed enum afterwards.
type fieldDecl struct {
	Name         string                  `json:"name"`
	Type         string                  `json:"type"`
	DisplayType  string                  `json:"displayType"`
	Nullable     bool                    `json:"nullable"`
	PartialField bool                    `json:"partialField"`
	Collection   bool                    `json:"collection"`
	Standalone   bool                    `json:"standalone"`
	Constraints  *meta.Constraints       `json:"constraints"`
	Relational   *meta.RelationalMapping `json:"relationalMapping"`
	DisplayKey   string                  `json:"displayKey"`
}

type entityDecl struct {
	Entity     string      `json:"entity"`
	PrimaryKey string      `json:"primaryKey"`
	Fields     []fieldDecl `json:"fields"`
}

// LoadCatalog compiles the embedded CUE files and decodes them into the
// catalog. Fails only on a broken bundle, which is a build defect, not a
// runtime condition.
func LoadCatalog() (*Catalog, error) {
	c := &Catalog{
		entities: make(map[string]*meta.EntityMeta),
		options:  make(map[string][]meta.Record),
	}

	cctx := cuecontext.New()
	files, err := catalogFS.ReadDir("catalog")
	if err != nil {
		return nil, fmt.Errorf("reading catalog bundle: %w", err)
	}

	for _, f := range files {
		data, err := catalogFS.ReadFile("catalog/" + f.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name(), err)
		}
		val := cctx.CompileBytes(data, cue.Filename(f.Name()))
		if err := val.Err(); err != nil {
			return nil, fmt.Errorf("compiling %s: %w", f.Name(), err)
		}
		if err := c.decodeEntities(val); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
		if err := c.decodeOptions(val); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
	}

	return c, nil
}

func (c *Catalog) decodeEntities(val cue.Value) error {
	ents := val.LookupPath(cue.ParsePath("entities"))
	if ents.Err() != nil {
		return nil
	}
	iter, err := ents.Fields()
	if err != nil {
		return fmt.Errorf("iterating entities: %w", err)
	}
	for iter.Next() {
		name := iter.Selector().String()
		var decl entityDecl
		if err := iter.Value().Decode(&decl); err != nil {
			return fmt.Errorf("decoding entity %q: %w", name, err)
		}
		m := declToMeta(decl)
		if err := m.Validate(); err != nil {
			return fmt.Errorf("bundled meta invalid: %w", err)
		}
		c.entities[m.Entity] = m
	}
	return nil
}

func (c *Catalog) decodeOptions(val cue.Value) error {
	opts := val.LookupPath(cue.ParsePath("options"))
	if opts.Err() != nil {
		return nil
	}
	iter, err := opts.Fields()
	if err != nil {
		return fmt.Errorf("iterating options: %w", err)
	}
	for iter.Next() {
		name := iter.Selector().String()
		var rows []meta.Record
		if err := iter.Value().Decode(&rows); err != nil {
			return fmt.Errorf("decoding options for %q: %w", name, err)
		}
		c.options[name] = rows
	}
	return nil
}

func declToMeta(decl entityDecl) *meta.EntityMeta {
	m := &meta.EntityMeta{
		Entity:     decl.Entity,
		PrimaryKey: decl.PrimaryKey,
		Fields:     make([]meta.FieldMeta, 0, len(decl.Fields)),
	}
	for _, fd := range decl.Fields {
		m.Fields = append(m.Fields, meta.FieldMeta{
			Name:         fd.Name,
			Type:         meta.FieldType(fd.Type),
			DisplayType:  meta.ParseDisplayType(fd.DisplayType),
			Nullable:     fd.Nullable,
			PartialField: fd.PartialField,
			Collection:   fd.Collection,
			Standalone:   fd.Standalone,
			Constraints:  fd.Constraints,
			Relational:   fd.Relational,
			DisplayKey:   fd.DisplayKey,
		})
	}
	return m
}

// EntityMeta returns the bundled schema for an entity, or nil.
func (c *Catalog) EntityMeta(entity string) *meta.EntityMeta {
	return c.entities[entity]
}

// RefOptions returns the bundled fallback option list for an entity.
// Nil when the catalog carries none.
func (c *Catalog) RefOptions(entity string) []meta.Record {
	return c.options[entity]
}

// Entities returns the bundled entity names in sorted order.
func (c *Catalog) Entities() []string {
	names := make([]string, 0, len(c.entities))
	for name := range c.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
