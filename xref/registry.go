package xref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/pkg/retry"
)

// Resource is one provider of a registry namespace.
type Resource struct {
	Official        bool   `json:"official"`
	Name            string `json:"name"`
	URLPattern      string `json:"urlPattern"`
	ResourceHomeURL string `json:"resourceHomeUrl"`
	Description     string `json:"description"`
}

// Namespace is a registry data source identified by its prefix.
type Namespace struct {
	Prefix      string     `json:"prefix"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Pattern     string     `json:"pattern"`
	Resources   []Resource `json:"resources"`
}

// Official returns the namespace's official resource.
func (n Namespace) Official() (Resource, bool) {
	for _, r := range n.Resources {
		if r.Official {
			return r, true
		}
	}
	return Resource{}, false
}

type registryDataset struct {
	Payload struct {
		Namespaces []Namespace `json:"namespaces"`
	} `json:"payload"`
}

// Registry indexes the identifier registry dataset by prefix. It is
// immutable after construction.
type Registry struct {
	namespaces map[string]Namespace
}

// ParseRegistry decodes a resolver dataset document.
func ParseRegistry(r io.Reader) (*Registry, error) {
	var ds registryDataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, errors.WrapInvalid(err, "Registry", "Parse", "decode resolver dataset")
	}

	reg := &Registry{namespaces: make(map[string]Namespace, len(ds.Payload.Namespaces))}
	for _, ns := range ds.Payload.Namespaces {
		reg.namespaces[ns.Prefix] = ns
	}
	return reg, nil
}

// LoadRegistryFile reads a registry snapshot from disk.
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "Registry", "LoadFile", "open "+path)
	}
	defer f.Close()
	return ParseRegistry(f)
}

// FetchRegistry downloads the registry dataset, retrying transient
// failures with backoff.
func FetchRegistry(ctx context.Context, client *http.Client, url string) (*Registry, error) {
	if client == nil {
		client = http.DefaultClient
	}

	return retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*Registry, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, retry.NonRetryable(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, errors.WrapTransient(err, "Registry", "Fetch", "GET "+url)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return nil, errors.WrapTransient(fmt.Errorf("HTTP %d", resp.StatusCode), "Registry", "Fetch", "GET "+url)
		case resp.StatusCode != http.StatusOK:
			return nil, retry.NonRetryable(fmt.Errorf("unable to load registry dataset: HTTP %d", resp.StatusCode))
		}

		reg, err := ParseRegistry(resp.Body)
		if err != nil {
			return nil, retry.NonRetryable(err)
		}
		return reg, nil
	})
}

// Namespace returns the namespace for prefix.
func (r *Registry) Namespace(prefix string) (Namespace, bool) {
	if r == nil {
		return Namespace{}, false
	}
	ns, ok := r.namespaces[prefix]
	return ns, ok
}

// Len returns the number of indexed namespaces.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.namespaces)
}
