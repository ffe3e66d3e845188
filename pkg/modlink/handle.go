// SPDX-License-Identifier: MPL-2.0

package modlink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"modlink/pkg/types"
)

type (
	// Handle is the per-module engine instance. It owns one mutable "current
	// link state" slot holding an immutable snapshot, and advances that slot
	// lazily through the six link stages on first real use.
	//
	// Reading the current snapshot is lock-free (a single atomic load); the
	// per-handle mutex guards stage transitions only. A transition never
	// holds the lock of more than one handle: all cross-handle resolution
	// happens before this handle's own lock is taken.
	Handle struct {
		name     types.ModuleName
		registry *Registry
		loaders  []ResourceLoader
		logger   *log.Logger

		// mu serializes stage transitions. It is never held while calling
		// into another handle.
		mu sync.Mutex

		// state holds the current linkState snapshot, boxed so the atomic
		// slot always stores one concrete type; written only under mu, read
		// without it.
		state atomic.Pointer[stateBox]

		// failure memoizes a permanent linking failure; once set it is
		// replayed by every subsequent operation, never retried.
		failure atomic.Pointer[linkFailure]

		closeOnce sync.Once
		closeErr  error
	}

	// linkFailure is the memoized permanent failure of a handle.
	linkFailure struct {
		err error
	}

	// stateBox wraps a linkState so every snapshot stored in the atomic
	// slot shares the same concrete type regardless of stage.
	stateBox struct {
		s linkState
	}
)

// newHandle creates a handle in the Initial state. desc must already be
// normalized.
func newHandle(r *Registry, desc *Descriptor, loaders []ResourceLoader) *Handle {
	h := &Handle{
		name:     desc.Name,
		registry: r,
		loaders:  loaders,
		logger:   r.logger.With("module", desc.Name),
	}
	h.state.Store(&stateBox{s: &initialState{desc: desc}})
	return h
}

// Name returns the module name the handle was defined under.
func (h *Handle) Name() types.ModuleName { return h.name }

// Registry returns the registry that defined the handle.
func (h *Handle) Registry() *Registry { return h.registry }

// Descriptor returns the module's normalized descriptor. The returned value
// is shared and must not be mutated.
func (h *Handle) Descriptor() *Descriptor { return h.loadState().(descriptorCarrier).descriptor() }

// Phase returns the stage the handle has currently reached.
func (h *Handle) Phase() Phase { return h.loadState().phase() }

// Link drives the handle through all six stages. It is idempotent: once a
// stage is computed its snapshot is cached and reused.
func (h *Handle) Link(ctx context.Context) error {
	_, err := h.ensure(ctx, PhaseUses)
	return err
}

// loadState returns the current snapshot.
func (h *Handle) loadState() linkState {
	return h.state.Load().s
}

// ensure advances the handle until it has reached at least target and
// returns the resulting snapshot. A memoized failure is replayed
// immediately; a context error aborts without memoizing.
func (h *Handle) ensure(ctx context.Context, target Phase) (linkState, error) {
	for {
		if f := h.failure.Load(); f != nil {
			return nil, f.err
		}
		cur := h.loadState()
		if cur.phase() >= target {
			return cur, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := h.advance(ctx, cur.phase()+1); err != nil {
			return nil, err
		}
	}
}

// advance computes the next stage. Cross-handle work (resolving dependency
// handles, forcing their stages) happens in prepare, before this handle's
// lock is taken; the locked section only re-validates and commits, so no two
// handle locks are ever held together.
func (h *Handle) advance(ctx context.Context, next Phase) error {
	// Cheap check: another thread may already be past next.
	if h.loadState().phase() >= next {
		return nil
	}

	prep, prepErr := h.prepare(ctx, next)

	h.mu.Lock()
	defer h.mu.Unlock()

	if f := h.failure.Load(); f != nil {
		return f.err
	}
	// Double-checked: the stage may have been advanced by another thread
	// while this one was preparing or blocked on the lock. The concurrent
	// result wins; this thread's preparation (or its failure) is discarded.
	cur := h.loadState()
	if cur.phase() >= next {
		return nil
	}
	if prepErr != nil {
		return h.failLocked(prepErr)
	}

	nextState, err := h.commit(cur, next, prep)
	if err != nil {
		return h.failLocked(err)
	}
	h.state.Store(&stateBox{s: nextState})
	h.logger.Debug("link stage advanced", "phase", next)
	return nil
}

// failLocked memoizes err as the handle's permanent failure, unless it is a
// context error (cancellation aborts the caller but must not poison the
// handle, since no stage work was committed).
func (h *Handle) failLocked(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	wrapped := err
	var le *LoadError
	if !errors.As(err, &le) && !errors.Is(err, ErrModuleNotFound) {
		wrapped = &LoadError{Module: h.name, Op: "link", Cause: err}
	}
	h.failure.Store(&linkFailure{err: wrapped})
	h.logger.Debug("link failed", "err", wrapped)
	return wrapped
}

// prepare performs the cross-handle portion of a stage transition: anything
// that resolves or drives other handles. It must be called without holding
// h.mu. The returned payload is consumed by commit; it may be discarded if a
// concurrent transition wins.
func (h *Handle) prepare(ctx context.Context, next Phase) (any, error) {
	switch next {
	case PhaseDependencies:
		return h.prepareDependencies(ctx)
	case PhaseDefined:
		return nil, nil
	case PhasePackages:
		return h.preparePackages(ctx)
	case PhaseProvides:
		return h.prepareProvides(ctx)
	case PhaseUses:
		return nil, h.prepareUses(ctx)
	default:
		return nil, nil
	}
}

// commit builds the next snapshot from the previous one plus the prepared
// payload. It runs under h.mu and must not call into other handles; calls to
// the host registrar (which has its own internal lock, not a handle lock)
// are allowed.
func (h *Handle) commit(cur linkState, next Phase, prep any) (linkState, error) {
	switch next {
	case PhaseDependencies:
		return h.commitDependencies(cur.(*initialState), prep.([]resolvedDep))
	case PhaseDefined:
		return h.commitDefined(cur.(*dependenciesState))
	case PhasePackages:
		return h.commitPackages(cur.(*definedState), prep.(*packagesPrep))
	case PhaseProvides:
		return h.commitProvides(cur.(*packagesState), prep.(*providesPrep))
	case PhaseUses:
		return &usesState{providesState: cur.(*providesState)}, nil
	default:
		return cur, nil
	}
}

// close releases the handle's resource loaders, exactly once, in
// reverse-open order. Secondary errors are aggregated.
func (h *Handle) close() error {
	h.closeOnce.Do(func() {
		h.closeErr = closeLoaders(h.loaders)
	})
	return h.closeErr
}

// closeLoaders closes loaders in reverse order, joining any errors.
func closeLoaders(loaders []ResourceLoader) error {
	var errs []error
	for i := len(loaders) - 1; i >= 0; i-- {
		if err := loaders[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
