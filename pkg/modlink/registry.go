// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"modlink/internal/dag"
	"modlink/pkg/types"
)

type (
	// Registry is a name-keyed table of module handles with at-most-once
	// definition semantics: under any number of concurrent Define calls for
	// one name, exactly one materializes a handle and the rest observe nil.
	// A definition failure is memoized — the entry becomes permanently
	// failed and every later lookup replays the same error.
	//
	// Lookups that find nothing locally consult the registry's finders, in
	// order, then its fallback registries, first match wins.
	Registry struct {
		name      string
		logger    *log.Logger
		registrar HostRegistrar
		finders   []Finder
		fallbacks []*Registry

		// mu guards the entry table and the closed flag: the short critical
		// section around "insert if absent". Handle materialization happens
		// outside it so unrelated modules are never serialized.
		mu      sync.Mutex
		entries map[types.ModuleName]*entry
		order   []types.ModuleName
		closed  bool
	}

	// entry is one registry slot. Its transitions New -> Loaded and
	// New -> Failed are permanent.
	entry struct {
		// ready is closed once the entry is materialized (or failed);
		// concurrent lookups block on it.
		ready chan struct{}

		// handle and err are written exactly once, before ready closes.
		handle *Handle
		err    error
	}

	// RegistryOption configures a Registry under construction.
	RegistryOption func(*Registry)
)

// WithRegistryName sets the registry's diagnostic name.
func WithRegistryName(name string) RegistryOption {
	return func(r *Registry) { r.name = name }
}

// WithLogger sets the logger used by the registry and the handles it
// defines. The default discards everything.
func WithLogger(logger *log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// WithRegistrar sets the host registrar the registry's handles register
// with. The default is a fresh ProcessRegistrar. Registries that delegate to
// each other should share one registrar so cross-registry grants line up.
func WithRegistrar(registrar HostRegistrar) RegistryOption {
	return func(r *Registry) { r.registrar = registrar }
}

// WithFinder appends a finder to the registry's fallback chain.
func WithFinder(finders ...Finder) RegistryOption {
	return func(r *Registry) { r.finders = append(r.finders, finders...) }
}

// WithFallback appends registries consulted, in order, when neither the
// local table nor the finders know a name.
func WithFallback(registries ...*Registry) RegistryOption {
	return func(r *Registry) { r.fallbacks = append(r.fallbacks, registries...) }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		name:    "registry",
		entries: make(map[types.ModuleName]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	r.logger = r.logger.With("registry", r.name)
	if r.registrar == nil {
		r.registrar = NewProcessRegistrar()
	}
	return r
}

// Name returns the registry's diagnostic name.
func (r *Registry) Name() string { return r.name }

// Registrar returns the host registrar the registry's handles register with.
func (r *Registry) Registrar() HostRegistrar { return r.registrar }

// Define atomically reserves name and materializes a handle for it: the
// definition's openers are opened, its descriptor loaded and validated, and
// the handle created in the Initial link state.
//
// If a module of that name is already defined (or being defined), Define
// returns (nil, nil) — not an error. If materialization fails, the entry is
// permanently failed: Define returns the error and every subsequent Lookup
// of the name replays it without retrying.
func (r *Registry) Define(ctx context.Context, name types.ModuleName, def Definition) (*Handle, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	if _, taken := r.entries[name]; taken {
		r.mu.Unlock()
		return nil, nil
	}
	e := &entry{ready: make(chan struct{})}
	r.entries[name] = e
	r.order = append(r.order, name)
	r.mu.Unlock()

	// Materialization happens outside the critical section: it may perform
	// I/O and must not serialize definitions of unrelated modules.
	h, err := r.materialize(ctx, name, def)
	if err != nil {
		e.err = err
		close(e.ready)
		r.logger.Debug("module definition failed", "module", name, "err", err)
		return nil, err
	}

	// The registry may have been closed while this definition was
	// materializing; its close loop skipped the not-yet-ready entry, so the
	// loaders are still this goroutine's to roll back.
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		err := ErrRegistryClosed
		if closeErr := h.close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		e.err = err
		close(e.ready)
		r.logger.Debug("module definition rolled back", "module", name)
		return nil, err
	}

	e.handle = h
	close(e.ready)
	r.logger.Debug("module defined", "module", name)
	return h, nil
}

// materialize opens the definition's resource loaders in order, loads and
// validates the descriptor, and builds the handle. A partially-opened module
// rolls back by closing the already-opened loaders, aggregating their close
// errors behind the primary failure.
func (r *Registry) materialize(ctx context.Context, name types.ModuleName, def Definition) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Module: name, Op: "define", Cause: err}
	}
	if def.Loader == nil {
		return nil, &LoadError{Module: name, Op: "define", Cause: errors.New("definition has no descriptor loader")}
	}

	loaders := make([]ResourceLoader, 0, len(def.Openers))
	fail := func(op string, cause error) (*Handle, error) {
		if closeErr := closeLoaders(loaders); closeErr != nil {
			cause = errors.Join(cause, closeErr)
		}
		return nil, &LoadError{Module: name, Op: op, Cause: cause}
	}

	for _, opener := range def.Openers {
		loader, err := opener.Open()
		if err != nil {
			return fail("open resources", err)
		}
		loaders = append(loaders, loader)
	}

	desc, err := def.Loader.Load(name, loaders)
	if err != nil {
		return fail("load descriptor", err)
	}
	if err := desc.Validate(); err != nil {
		return fail("validate descriptor", err)
	}
	if desc.Name != name {
		return fail("load descriptor", fmt.Errorf("descriptor name %q does not match expected %q", desc.Name, name))
	}

	return newHandle(r, desc.normalized(), loaders), nil
}

// Lookup returns the handle for name, or (nil, nil) when no source knows it.
// Lookup never creates a module the registry already tried and failed to
// define: a failed entry replays its memoized error. When the local table
// has no entry, the finders are consulted (defining lazily on first use),
// then the fallback registries, first match wins.
func (r *Registry) Lookup(ctx context.Context, name types.ModuleName) (*Handle, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	closed := r.closed
	r.mu.Unlock()

	if ok {
		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.err != nil {
			return nil, e.err
		}
		return e.handle, nil
	}
	if closed {
		return nil, ErrRegistryClosed
	}
	return r.find(ctx, name)
}

// find is the extension point consulted only when Lookup finds nothing
// locally: finders first, then fallback registries, in order.
func (r *Registry) find(ctx context.Context, name types.ModuleName) (*Handle, error) {
	for _, finder := range r.finders {
		def, ok, err := finder.Find(name)
		if err != nil {
			return nil, &LoadError{Module: name, Op: "find module", Cause: err}
		}
		if !ok {
			continue
		}
		h, err := r.Define(ctx, name, *def)
		if err != nil {
			return nil, err
		}
		if h == nil {
			// Lost a definition race; the winner's entry is authoritative.
			return r.Lookup(ctx, name)
		}
		return h, nil
	}
	for _, fallback := range r.fallbacks {
		h, err := fallback.Lookup(ctx, name)
		if err != nil || h != nil {
			return h, err
		}
	}
	return nil, nil
}

// Require is Lookup that fails with NotFoundError when the name cannot be
// resolved by any source.
func (r *Registry) Require(ctx context.Context, name types.ModuleName) (*Handle, error) {
	h, err := r.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, &NotFoundError{Module: name}
	}
	return h, nil
}

// Close shuts the registry down: all further Define and Lookup calls fail
// with ErrRegistryClosed, and every handle the registry defined is closed,
// best-effort, with errors aggregated. Handles close dependents-first when
// the resolved dependency graph permits an ordering; graphs made cyclic by
// transitive re-exports fall back to reverse definition order. Close is
// idempotent.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	handles := make([]*Handle, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		select {
		case <-e.ready:
			if e.handle != nil {
				handles = append(handles, e.handle)
			}
		default:
			// Still materializing; its loaders are owned by the defining
			// goroutine until the entry is ready.
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, h := range r.closeOrder(handles) {
		if err := h.close(); err != nil {
			errs = append(errs, fmt.Errorf("close module %q: %w", h.name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close registry %q: %w", r.name, errors.Join(errs...))
	}
	r.logger.Debug("registry closed", "modules", len(handles))
	return nil
}

// closeOrder orders handles dependents-first: a topological sort of the
// resolved dependency graph, reversed. Handles that never reached the
// Dependencies stage contribute no edges.
func (r *Registry) closeOrder(handles []*Handle) []*Handle {
	byName := make(map[types.ModuleName]*Handle, len(handles))
	graph := dag.New()
	for _, h := range handles {
		byName[h.name] = h
		graph.AddNode(string(h.name))
	}
	for _, h := range handles {
		ls := h.loadState()
		dc, ok := ls.(interface{ dependencyHandles() []*Handle })
		if !ok {
			continue
		}
		for _, dep := range dc.dependencyHandles() {
			if dep == h {
				continue
			}
			if _, local := byName[dep.name]; local {
				graph.AddEdge(string(dep.name), string(h.name))
			}
		}
	}

	sorted, err := graph.TopologicalSort()
	if err != nil {
		// Cyclic re-export graphs have no safe ordering; fall back to
		// reverse definition order.
		out := make([]*Handle, len(handles))
		for i, h := range handles {
			out[len(handles)-1-i] = h
		}
		return out
	}
	out := make([]*Handle, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		if h, ok := byName[types.ModuleName(sorted[i])]; ok {
			out = append(out, h)
		}
	}
	return out
}
