package audio

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Preload fetches raw bytes for name and registers them without
// decoding, so assets can be gathered before a decode engine exists.
// The name is reserved before the fetch starts: a second Preload of the
// same name observes ErrAlreadyExists instead of racing. The fetch runs
// outside the registry lock.
func (m *Manager) Preload(ctx context.Context, name string, src Source) error {
	a, err := m.reserve(name)
	if err != nil {
		return err
	}

	data, err := src.Fetch(ctx)
	if err != nil {
		m.release(name, a)
		return fmt.Errorf("%w: %s: %v", ErrSource, name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.assets[name]; !ok || cur != a {
		// unloaded while the fetch was in flight
		return fmt.Errorf("%w: %s was unloaded during fetch", ErrNotFound, name)
	}
	a.raw = data
	a.state = StateRawLoaded

	m.log.Info("asset preloaded",
		zap.String("name", name),
		zap.Int("bytes", len(data)))
	return nil
}

// PreloadBatch fetches several distinct names concurrently. Results are
// reported per name; a failing fetch never affects the others.
func (m *Manager) PreloadBatch(ctx context.Context, sources map[string]Source) map[string]error {
	results := make(map[string]error, len(sources))
	var resMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for name, src := range sources {
		name, src := name, src
		g.Go(func() error {
			err := m.Preload(ctx, name, src)
			resMu.Lock()
			results[name] = err
			resMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// DecodeOne decodes a RawLoaded asset into a playable buffer. The raw
// bytes are released exactly once on success. Fails with ErrNotFound
// for unknown names, ErrInvalidState before the engine is attached or
// when the asset is not RawLoaded, and ErrDecode for malformed data.
// The engine call runs outside the registry lock: a slow decode of one
// asset never blocks operations on another.
func (m *Manager) DecodeOne(name string) error {
	m.mu.Lock()
	a, raw, engine, err := m.beginDecodeLocked(name)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.finishDecode(a, raw, engine)
}

// beginDecodeLocked validates and claims an asset for decoding. The
// claim keeps a second DecodeOne of the same name out while the lock
// is dropped for the engine call.
func (m *Manager) beginDecodeLocked(name string) (*asset, []byte, Engine, error) {
	a, ok := m.assets[name]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if m.engine == nil {
		return nil, nil, nil, fmt.Errorf("%w: decode engine not initialized", ErrInvalidState)
	}
	if a.state != StateRawLoaded {
		return nil, nil, nil, fmt.Errorf("%w: %s is %s, expected %s", ErrInvalidState, name, a.state, StateRawLoaded)
	}
	if a.decoding {
		return nil, nil, nil, fmt.Errorf("%w: %s decode already in flight", ErrInvalidState, name)
	}
	a.decoding = true
	return a, a.raw, m.engine, nil
}

// finishDecode runs the engine without the lock, then relocks and
// commits. An Unload that raced in wins: the result is dropped.
func (m *Manager) finishDecode(a *asset, raw []byte, engine Engine) error {
	buf, err := engine.Decode(raw)

	m.mu.Lock()
	defer m.mu.Unlock()
	a.decoding = false
	if cur, ok := m.assets[a.name]; !ok || cur != a {
		return fmt.Errorf("%w: %s was unloaded during decode", ErrNotFound, a.name)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, a.name, err)
	}
	a.raw = nil
	a.buf = buf
	a.state = StateDecoded

	m.log.Info("asset decoded",
		zap.String("name", a.name),
		zap.Int("pcm_bytes", len(buf.PCM)))
	return nil
}

// DecodeAll decodes every RawLoaded asset in registration order. It
// never halts on the first failure; the returned bool is the AND of
// all per-item outcomes. The registration order is snapshotted up
// front and each decode runs outside the registry lock.
func (m *Manager) DecodeAll() (bool, []DecodeResult) {
	m.mu.Lock()
	names := make([]string, 0, len(m.order))
	for _, name := range m.order {
		if a := m.assets[name]; a != nil && a.state == StateRawLoaded && !a.decoding {
			names = append(names, name)
		}
	}
	m.mu.Unlock()

	all := true
	var results []DecodeResult
	for _, name := range names {
		err := m.DecodeOne(name)
		if err != nil {
			all = false
			m.log.Warn("decode failed", zap.String("name", name), zap.Error(err))
		}
		results = append(results, DecodeResult{Name: name, Err: err})
	}
	return all, results
}

// LoadDirect fetches and decodes in one step, skipping the RawLoaded
// resting state. Only valid once a decode engine is attached.
func (m *Manager) LoadDirect(ctx context.Context, name string, src Source) error {
	m.mu.Lock()
	engine := m.engine
	m.mu.Unlock()
	if engine == nil {
		return fmt.Errorf("%w: decode engine not initialized", ErrInvalidState)
	}

	a, err := m.reserve(name)
	if err != nil {
		return err
	}

	data, err := src.Fetch(ctx)
	if err != nil {
		m.release(name, a)
		return fmt.Errorf("%w: %s: %v", ErrSource, name, err)
	}
	buf, err := engine.Decode(data)
	if err != nil {
		m.release(name, a)
		return fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.assets[name]; !ok || cur != a {
		return fmt.Errorf("%w: %s was unloaded during load", ErrNotFound, name)
	}
	a.buf = buf
	a.state = StateDecoded

	m.log.Info("asset loaded",
		zap.String("name", name),
		zap.Int("pcm_bytes", len(buf.PCM)))
	return nil
}

// Unload releases whatever the asset holds and removes it from the
// registry entirely; a later DecodeOne of the same name is ErrNotFound.
// Handles already playing from the decoded buffer keep their reference
// and finish normally.
func (m *Manager) Unload(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assets[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	a.raw = nil
	a.buf = nil
	delete(m.assets, name)
	m.removeOrderLocked(name)

	m.log.Info("asset unloaded", zap.String("name", name))
	return nil
}

// reserve claims a name in the registry before its fetch starts
func (m *Manager) reserve(name string) (*asset, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: asset name cannot be empty", ErrNotFound)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	a := &asset{name: name}
	m.assets[name] = a
	m.order = append(m.order, name)
	return a, nil
}

// release undoes a reservation after a failed fetch or decode. The
// identity check keeps it from clobbering a re-registration that
// happened after an Unload raced in.
func (m *Manager) release(name string, a *asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.assets[name]; ok && cur == a {
		delete(m.assets, name)
		m.removeOrderLocked(name)
	}
}

func (m *Manager) removeOrderLocked(name string) {
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
