package plugins

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"plugin"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
	"nebula/internal/platform/database"
	"nebula/internal/platform/database/mocks"
	dErrors "nebula/pkg/domain-errors"
)

func statusUnit(*endpoint.Env) []any {
	return []any{&endpoint.Endpoint{
		Name:   "status",
		Handle: func(context.Context, *objects.User) (any, error) { return "ok", nil },
	}}
}

func TestBuiltins(t *testing.T) {
	b := NewBuiltins(&endpoint.Env{}, map[string]Constructor{
		"status": statusUnit,
		"broken": func(*endpoint.Env) []any { panic("init failed") },
		"auth":   func(*endpoint.Env) []any { return nil },
	})

	assert.Equal(t, []string{"auth", "broken", "status"}, b.Names())

	t.Run("loads exports", func(t *testing.T) {
		u, err := b.Load(context.Background(), "status", "api/status")
		require.NoError(t, err)
		assert.Equal(t, "status", u.Name)
		require.Len(t, u.Exports, 1)
	})

	t.Run("fresh exports on each load", func(t *testing.T) {
		first, err := b.Load(context.Background(), "status", "api/status")
		require.NoError(t, err)
		second, err := b.Load(context.Background(), "status", "api/status")
		require.NoError(t, err)
		assert.NotSame(t, first.Exports[0], second.Exports[0])
	})

	t.Run("panic becomes load error with stack", func(t *testing.T) {
		_, err := b.Load(context.Background(), "broken", "api/broken")
		require.ErrorIs(t, err, ErrLoad)
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, "broken", le.Unit)
		assert.Contains(t, le.Error(), "init failed")
		assert.NotEmpty(t, le.StackTrace())
	})

	t.Run("unknown unit", func(t *testing.T) {
		_, err := b.Load(context.Background(), "missing", "api/missing")
		assert.ErrorIs(t, err, ErrLoad)
	})
}

type fakeSymbols map[string]plugin.Symbol

func (f fakeSymbols) Lookup(name string) (plugin.Symbol, error) {
	if s, ok := f[name]; ok {
		return s, nil
	}
	return nil, errors.New("plugin: symbol " + name + " not found")
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o600))
	return path
}

func TestSharedObjectLoader(t *testing.T) {
	dir := t.TempDir()
	var ctor Constructor = statusUnit
	entry := func(env *endpoint.Env) []any { return statusUnit(env) }

	tables := map[string]symbolTable{
		filepath.Join(dir, "func.so"):     fakeSymbols{EntrySymbol: entry},
		filepath.Join(dir, "var.so"):      fakeSymbols{EntrySymbol: &ctor},
		filepath.Join(dir, "nosym.so"):    fakeSymbols{},
		filepath.Join(dir, "badtype.so"):  fakeSymbols{EntrySymbol: "not a func"},
		filepath.Join(dir, "a/status.so"): fakeSymbols{EntrySymbol: entry},
		filepath.Join(dir, "b/status.so"): fakeSymbols{EntrySymbol: Constructor(func(*endpoint.Env) []any { return []any{1, 2} })},
	}
	opens := map[string]int{}
	l := NewSharedObjectLoader(&endpoint.Env{})
	l.open = func(path string) (symbolTable, error) {
		opens[path]++
		if filepath.Base(path) == "panics.so" {
			panic("bad init")
		}
		if tbl, ok := tables[path]; ok {
			return tbl, nil
		}
		return nil, errors.New("plugin.Open: invalid ELF header")
	}
	for path := range tables {
		touch(t, dir, path[len(dir)+1:])
	}
	touch(t, dir, "panics.so")
	touch(t, dir, "garbage.so")
	ctx := context.Background()

	t.Run("function and variable entry symbols", func(t *testing.T) {
		for _, name := range []string{"func.so", "var.so"} {
			u, err := l.Load(ctx, "status", filepath.Join(dir, name))
			require.NoError(t, err, name)
			assert.Len(t, u.Exports, 1)
		}
	})

	t.Run("cached by path", func(t *testing.T) {
		path := filepath.Join(dir, "func.so")
		first, err := l.Load(ctx, "status", path)
		require.NoError(t, err)
		second, err := l.Load(ctx, "status", path)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, opens[path])
	})

	t.Run("same name in different directories", func(t *testing.T) {
		a, err := l.Load(ctx, "status", filepath.Join(dir, "a/status.so"))
		require.NoError(t, err)
		b, err := l.Load(ctx, "status", filepath.Join(dir, "b/status.so"))
		require.NoError(t, err)
		assert.Len(t, a.Exports, 1)
		assert.Len(t, b.Exports, 2)
	})

	failures := map[string]string{
		"missing.so": "",
		"garbage.so": "invalid ELF header",
		"panics.so":  "bad init",
		"nosym.so":   "symbol Exports not found",
		"badtype.so": "has type string",
	}
	for name, msg := range failures {
		t.Run("fails: "+name, func(t *testing.T) {
			_, err := l.Load(ctx, "x", filepath.Join(dir, name))
			require.ErrorIs(t, err, ErrLoad)
			assert.Contains(t, err.Error(), msg)
		})
	}

	t.Run("missing file keeps fs error", func(t *testing.T) {
		_, err := l.Load(ctx, "x", filepath.Join(dir, "missing.so"))
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestSharedObjectLoaderHungOpenBlocksOnlyItsPath(t *testing.T) {
	dir := t.TempDir()
	hung := touch(t, dir, "hung.so")
	ok := touch(t, dir, "ok.so")

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	l := NewSharedObjectLoader(&endpoint.Env{})
	l.open = func(path string) (symbolTable, error) {
		if path == hung {
			close(started)
			<-release
		}
		return fakeSymbols{EntrySymbol: Constructor(statusUnit)}, nil
	}

	go func() { _, _ = l.Load(context.Background(), "hung", hung) }()
	<-started

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), "ok", ok)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("load of ok.so waited on hung.so")
	}
}

const manifestYAML = `
endpoints:
  - name: channels
    title: Playout channels
    methods: [GET, POST]
    scopes: [rundown_view]
    doc: |-
        List channels.
        Filtered by id.
    query:
      sql: SELECT id, settings FROM channels WHERE id = $1
      params: [id_channel]
  - name: motd
    anonymous: true
    exclude_none: true
    static:
      message: Welcome
      motd: null
  - name: incomplete
`

func TestManifestLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extras.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifestYAML), 0o600))

	ctrl := gomock.NewController(t)
	db := mocks.NewMockDB(ctrl)
	l := NewManifestLoader(&endpoint.Env{DB: db})
	ctx := context.Background()

	u, err := l.Load(ctx, "extras", path)
	require.NoError(t, err)
	require.Len(t, u.Exports, 3)

	channels := u.Exports[0].(endpoint.APIRequest).Describe()
	assert.Equal(t, "channels", channels.Name)
	assert.Equal(t, []string{"GET", "POST"}, channels.Methods)
	assert.Equal(t, []string{"rundown_view"}, channels.Scopes)
	assert.Equal(t, "List channels.\nFiltered by id.", channels.Documentation())

	b, err := endpoint.Bind(channels.Handle)
	require.NoError(t, err)
	req := b.NewRequest()
	require.NoError(t, req.(*QueryRequest).UnmarshalJSON([]byte(`{"id_channel": 1}`)))

	db.EXPECT().Fetch(gomock.Any(), "SELECT id, settings FROM channels WHERE id = $1", float64(1)).
		Return([]database.Row{{"id": int64(1), "settings": map[string]any{"fps": 25.0}}}, nil)
	out, err := b.Call(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, &QueryResponse{Rows: []map[string]any{{"id": int64(1), "settings": map[string]any{"fps": 25.0}}}}, out)

	t.Run("missing query param", func(t *testing.T) {
		_, err := b.Call(ctx, &QueryRequest{}, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	motd := u.Exports[1].(endpoint.APIRequest).Describe()
	assert.True(t, motd.Anonymous)
	assert.True(t, motd.ExcludeNone)
	mb, err := endpoint.Bind(motd.Handle)
	require.NoError(t, err)
	doc, err := mb.Call(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", doc.(map[string]any)["message"])

	assert.Nil(t, u.Exports[2].(endpoint.APIRequest).Describe().Handle)

	cached, err := l.Load(ctx, "extras", path)
	require.NoError(t, err)
	assert.Same(t, u, cached)
}

func TestManifestLoaderFailures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}
	l := NewManifestLoader(&endpoint.Env{})
	ctx := context.Background()

	cases := map[string]string{
		"unknown field": write("unknown.yaml", "endpoints:\n  - name: x\n    handler: y\n"),
		"not yaml":      write("broken.yaml", "endpoints: [\n"),
		"both handlers": write("both.yaml", "endpoints:\n  - name: x\n    static: 1\n    query:\n      sql: SELECT 1\n"),
		"missing file":  filepath.Join(dir, "missing.yaml"),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := l.Load(ctx, "x", path)
			assert.ErrorIs(t, err, ErrLoad)
		})
	}

	t.Run("query without database", func(t *testing.T) {
		p := write("nodb.yaml", "endpoints:\n  - name: q\n    query:\n      sql: SELECT 1\n")
		u, err := l.Load(ctx, "nodb", p)
		require.NoError(t, err)
		b, err := endpoint.Bind(u.Exports[0].(*endpoint.Endpoint).Handle)
		require.NoError(t, err)
		_, err = b.Call(ctx, nil, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
