package xref

import (
	"fmt"
	"strings"

	"github.com/c360/genomegate/docstore"
)

const idPlaceholder = "{$id}"

// Resolver turns internal cross-references into links to their source.
// It is immutable and safe for concurrent use.
type Resolver struct {
	registry *Registry
	mapping  *Mapping
}

// NewResolver combines a registry and a source mapping.
func NewResolver(registry *Registry, mapping *Mapping) *Resolver {
	return &Resolver{registry: registry, mapping: mapping}
}

// Translate maps an internal source name to a registry prefix.
func (r *Resolver) Translate(dbName string) (string, bool) {
	e, ok := r.mapping.Lookup(dbName)
	if !ok || e.IDNamespace == "" {
		return "", false
	}
	return e.IDNamespace, true
}

// URLFor builds the accession URL from the prefix's official resource.
func (r *Resolver) URLFor(accession, prefix string) (string, bool) {
	ns, ok := r.registry.Namespace(prefix)
	if !ok {
		return "", false
	}
	res, ok := ns.Official()
	if !ok || res.URLPattern == "" {
		return "", false
	}
	return strings.ReplaceAll(res.URLPattern, idPlaceholder, accession), true
}

// SourceURL returns the home page of the prefix's official resource.
func (r *Resolver) SourceURL(prefix string) (string, bool) {
	ns, ok := r.registry.Namespace(prefix)
	if !ok {
		return "", false
	}
	res, ok := ns.Official()
	if !ok || res.ResourceHomeURL == "" {
		return "", false
	}
	return res.ResourceHomeURL, true
}

// SourceInfo returns a descriptive field of a namespace: "name",
// "description", "pattern" or "prefix".
func (r *Resolver) SourceInfo(prefix, field string) (string, bool) {
	ns, ok := r.registry.Namespace(prefix)
	if !ok {
		return "", false
	}
	var v string
	switch field {
	case "name":
		v = ns.Name
	case "description":
		v = ns.Description
	case "pattern":
		v = ns.Pattern
	case "prefix":
		v = ns.Prefix
	}
	return v, v != ""
}

// XrefURL builds the URL for an accession from an internal source name.
// Sources without a registry prefix fall back to their manual URL base.
func (r *Resolver) XrefURL(accession, dbName string) (string, bool) {
	e, ok := r.mapping.Lookup(dbName)
	if !ok {
		return "", false
	}
	if e.IDNamespace == "" {
		if e.ManualXrefURL != "" {
			return e.ManualXrefURL + accession, true
		}
		return "", false
	}
	return r.URLFor(accession, e.IDNamespace)
}

// SourceID returns the internal source name of an xref document.
func SourceID(xref map[string]any) string {
	if id := docstore.String(xref, "source.id"); id != "" {
		return id
	}
	return docstore.String(xref, "source.external_db_id")
}

// Annotate returns a copy of xref with url, source.url, source.description
// and assignment_method.description filled in. Unknown sources leave the
// URLs null. An xref without an accession or source, or with an
// assignment method outside the known set, is an error.
func (r *Resolver) Annotate(xref map[string]any) (docstore.Document, error) {
	out := docstore.Clone(xref)

	accession := docstore.String(out, "accession_id")
	source := docstore.Map(out, "source")
	dbName := SourceID(out)
	if accession == "" || source == nil || dbName == "" {
		return nil, fmt.Errorf("xref missing accession or source: %v", xref["accession_id"])
	}

	out["url"] = nil
	if url, ok := r.XrefURL(accession, dbName); ok {
		out["url"] = url
	}

	source["url"] = nil
	if prefix, ok := r.Translate(dbName); ok {
		if url, ok := r.SourceURL(prefix); ok {
			source["url"] = url
		}
		if desc, ok := r.SourceInfo(prefix, "description"); ok {
			source["description"] = desc
		}
	}
	if _, ok := source["description"]; !ok {
		source["description"] = nil
	}

	method := docstore.Map(out, "assignment_method")
	if method == nil {
		method = map[string]any{}
		out["assignment_method"] = method
	}
	desc, err := DescribeInfoType(docstore.String(method, "type"))
	if err != nil {
		return nil, err
	}
	method["description"] = desc
	return out, nil
}

// AnnotateAll annotates a list of xrefs, dropping those that fail.
func (r *Resolver) AnnotateAll(xrefs []docstore.Document) []docstore.Document {
	out := make([]docstore.Document, 0, len(xrefs))
	for _, x := range xrefs {
		if annotated, err := r.Annotate(x); err == nil {
			out = append(out, annotated)
		}
	}
	return out
}
