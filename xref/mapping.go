package xref

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/c360/genomegate/errors"
)

//go:embed xref_lod_mapping.json
var defaultMapping []byte

// MappingEntry links an internal source name to a registry prefix or a
// manually maintained URL base.
type MappingEntry struct {
	EnsemblDBName string `json:"ensembl_db_name,omitempty"`
	DBName        string `json:"db_name,omitempty"`
	IDNamespace   string `json:"id_namespace,omitempty"`
	ManualXrefURL string `json:"manual_xref_url,omitempty"`
}

// Name returns the internal source name the entry is keyed by.
func (e MappingEntry) Name() string {
	if e.EnsemblDBName != "" {
		return e.EnsemblDBName
	}
	return e.DBName
}

// Mapping indexes MappingEntry values by lowercased source name.
type Mapping struct {
	entries map[string]MappingEntry
}

// ParseMapping decodes a {"mappings": [...]} document.
func ParseMapping(r io.Reader) (*Mapping, error) {
	var doc struct {
		Mappings []MappingEntry `json:"mappings"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.WrapInvalid(err, "Mapping", "Parse", "decode xref mapping")
	}

	m := &Mapping{entries: make(map[string]MappingEntry, len(doc.Mappings))}
	for _, e := range doc.Mappings {
		if name := e.Name(); name != "" {
			m.entries[strings.ToLower(name)] = e
		}
	}
	return m, nil
}

// LoadMappingFile reads a mapping file, or the bundled mapping when path
// is empty.
func LoadMappingFile(path string) (*Mapping, error) {
	if path == "" {
		return DefaultMapping()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "Mapping", "LoadFile", "read "+path)
	}
	return ParseMapping(bytes.NewReader(data))
}

// DefaultMapping returns the bundled mapping.
func DefaultMapping() (*Mapping, error) {
	return ParseMapping(bytes.NewReader(defaultMapping))
}

// Lookup finds the entry for a source name, ignoring case.
func (m *Mapping) Lookup(dbName string) (MappingEntry, bool) {
	if m == nil {
		return MappingEntry{}, false
	}
	e, ok := m.entries[strings.ToLower(dbName)]
	return e, ok
}
