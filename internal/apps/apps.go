package apps

import (
	"embed"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/flux/internal/codec"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/schema"
	"github.com/roach88/flux/internal/store"
)

//go:embed schemas/*.cue
var schemaFS embed.FS

// App is a runnable example application.
type App struct {
	Name        string
	Description string

	// Reducer is the root reducer.
	Reducer store.Reducer

	// Registry decodes the app's typed actions.
	Registry *codec.Registry

	// Schema constrains action payloads and the state shape.
	Schema *schema.Schema

	// DecodeState rebuilds a typed state from its canonical JSON.
	DecodeState func(data []byte) (store.State, error)
}

type constructor func() (*App, error)

var constructors = map[string]constructor{
	"counter": newCounter,
	"todos":   newTodos,
}

var (
	mu    sync.Mutex
	cache = map[string]*App{}
)

// Names returns the registered app names in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the app registered under name. Apps are built once and
// shared; they hold no mutable state.
func Lookup(name string) (*App, error) {
	mu.Lock()
	defer mu.Unlock()

	if app, ok := cache[name]; ok {
		return app, nil
	}
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown app %q (available: %v)", name, Names())
	}
	app, err := ctor()
	if err != nil {
		return nil, fmt.Errorf("build app %s: %w", name, err)
	}
	cache[name] = app
	return app, nil
}

func loadSchema(name string) (*schema.Schema, error) {
	file := "schemas/" + name + ".cue"
	data, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return schema.Compile(string(data), file)
}

// as returns action as a T, decoding plain records through reg first.
func as[T store.Action](reg *codec.Registry, action store.Action) (T, bool) {
	if t, ok := action.(T); ok {
		return t, true
	}

	var zero T
	rec, ok := action.(store.Record)
	if !ok {
		return zero, false
	}
	v, err := ir.FromGo(map[string]any(rec))
	if err != nil {
		return zero, false
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return zero, false
	}
	decoded, err := reg.Decode(obj)
	if err != nil {
		return zero, false
	}
	t, ok := decoded.(T)
	return t, ok
}
