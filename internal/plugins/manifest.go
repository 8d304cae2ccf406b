package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
	dErrors "nebula/pkg/domain-errors"
)

// Manifest is a declarative unit. Each endpoint is backed either by a SQL
// query or by a static document:
//
//	endpoints:
//	  - name: channels
//	    methods: [GET]
//	    doc: |
//	      List playout channels.
//	    query:
//	      sql: SELECT id, settings FROM channels WHERE id_channel = $1
//	      params: [id_channel]
//	  - name: motd
//	    anonymous: true
//	    static:
//	      message: Welcome
type Manifest struct {
	Endpoints []ManifestEndpoint `yaml:"endpoints"`
}

type ManifestEndpoint struct {
	Name        string   `yaml:"name"`
	Title       string   `yaml:"title"`
	Path        string   `yaml:"path"`
	Methods     []string `yaml:"methods"`
	Scopes      []string `yaml:"scopes"`
	Doc         string   `yaml:"doc"`
	ExcludeNone bool     `yaml:"exclude_none"`
	Anonymous   bool     `yaml:"anonymous"`
	Query       *Query   `yaml:"query"`
	Static      any      `yaml:"static"`
}

type Query struct {
	SQL string `yaml:"sql"`
	// Params names the request fields bound to $1..$n.
	Params []string `yaml:"params"`
}

// QueryRequest carries the free-form request document of a query endpoint.
type QueryRequest struct {
	Params map[string]any
}

func (r *QueryRequest) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.Params)
}

type QueryResponse struct {
	Rows []map[string]any `json:"rows"`
}

// ManifestLoader loads YAML units, caching them by absolute path.
type ManifestLoader struct {
	env *endpoint.Env

	mu    sync.Mutex
	cache map[string]*Unit
}

// NewManifestLoader creates a loader for YAML units.
func NewManifestLoader(env *endpoint.Env) *ManifestLoader {
	return &ManifestLoader{env: env, cache: make(map[string]*Unit)}
}

// Load parses the manifest at path. Parsed units are cached by absolute path.
func (l *ManifestLoader) Load(_ context.Context, name, path string) (*Unit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, loadError(name, path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if u, ok := l.cache[abs]; ok {
		return u, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, loadError(name, abs, err)
	}
	var m Manifest
	if err := yaml.UnmarshalWithOptions(data, &m, yaml.Strict()); err != nil {
		return nil, loadError(name, abs, fmt.Errorf("parse manifest: %w", err))
	}

	exports := make([]any, 0, len(m.Endpoints))
	for i, me := range m.Endpoints {
		if me.Query != nil && me.Static != nil {
			return nil, loadError(name, abs, fmt.Errorf("endpoint %d (%s) declares both query and static", i, me.Name))
		}
		exports = append(exports, l.endpoint(me))
	}

	u := &Unit{Name: name, Path: abs, Exports: exports}
	l.cache[abs] = u
	return u, nil
}

// endpoint builds the descriptor. An entry with neither query nor static
// gets no handle and is rejected by the scanner.
func (l *ManifestLoader) endpoint(me ManifestEndpoint) *endpoint.Endpoint {
	e := &endpoint.Endpoint{
		Name:        me.Name,
		Title:       me.Title,
		Path:        me.Path,
		Methods:     me.Methods,
		Scopes:      me.Scopes,
		Doc:         me.Doc,
		ExcludeNone: me.ExcludeNone,
		Anonymous:   me.Anonymous,
	}
	switch {
	case me.Query != nil:
		e.Handle = l.queryHandler(*me.Query)
	case me.Static != nil:
		doc := me.Static
		e.Handle = func(context.Context, *objects.User) (any, error) {
			return doc, nil
		}
	}
	return e
}

func (l *ManifestLoader) queryHandler(q Query) func(context.Context, *QueryRequest, *objects.User) (*QueryResponse, error) {
	return func(ctx context.Context, req *QueryRequest, _ *objects.User) (*QueryResponse, error) {
		if l.env == nil || l.env.DB == nil {
			return nil, dErrors.New(dErrors.CodeUnavailable, "database not configured")
		}
		args := make([]any, len(q.Params))
		for i, p := range q.Params {
			v, ok := req.Params[p]
			if !ok {
				return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s is required", p))
			}
			args[i] = v
		}
		rows, err := l.env.DB.Fetch(ctx, q.SQL, args...)
		if err != nil {
			return nil, err
		}
		resp := &QueryResponse{Rows: make([]map[string]any, len(rows))}
		for i, r := range rows {
			resp.Rows[i] = r
		}
		return resp, nil
	}
}
