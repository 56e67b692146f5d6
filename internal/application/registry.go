// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
	"github.com/ericfisherdev/patientreg/internal/domain/port/driven"
)

type changeSubscription struct {
	id      uint64
	handler func(model.ChangeEvent)
}

// Registry is the single entry point collaborators use to register patients,
// run console queries, and observe changes made by other tabs. It keeps an
// advisory in-memory copy of the patient list; the store remains the source
// of truth and Refresh is the only way to reconcile with it.
type Registry struct {
	store   driven.PatientStore
	channel driven.SyncChannel
	guard   *QueryGuard

	mu    sync.Mutex
	cache []model.Patient
	state model.CacheState
	gen   uint64 // incremented per Refresh; only the latest result is applied

	// Records added locally or announced by other tabs while a Refresh is
	// reading. They are merged into its result, which may have been read before they existed.
	lateAdds []model.Patient

	subMu   sync.Mutex
	subs    []changeSubscription
	nextSub uint64

	unsubscribe func()
	closeOnce   sync.Once
}

// NewRegistry creates a Registry and subscribes it to channel. The channel
// stays owned by the caller; Close only detaches the registry from it.
func NewRegistry(store driven.PatientStore, channel driven.SyncChannel, guard *QueryGuard) *Registry {
	if guard == nil {
		guard = NewQueryGuard(DefaultQueryPolicy())
	}
	r := &Registry{
		store:   store,
		channel: channel,
		guard:   guard,
		cache:   []model.Patient{},
		state:   model.CacheEmpty,
	}
	r.unsubscribe = channel.Subscribe(r.handleRemote)
	return r
}

// Close stops reacting to remote messages. It is idempotent.
func (r *Registry) Close() {
	r.closeOnce.Do(r.unsubscribe)
}

// SubmitRecord inserts a new patient through the store's parameterized insert
// path, appends it to the cache, and announces it to other tabs. On failure
// nothing is cached and nothing is broadcast.
func (r *Registry) SubmitRecord(ctx context.Context, in model.PatientInput) (model.Patient, error) {
	p, err := r.store.Insert(ctx, in)
	if err != nil {
		return model.Patient{}, err
	}

	r.mu.Lock()
	r.addLocked(p)
	r.mu.Unlock()

	if err := r.channel.Publish(ctx, model.NewRecordAdded(p)); err != nil {
		slog.Warn("broadcast of new patient failed", "patient_id", p.ID, "error", err)
	}

	slog.Info("patient registered", "patient_id", p.ID, "channel_endpoint", r.channel.ID())
	return p, nil
}

// RunQuery screens stmt with the query guard and, if allowed, runs it against
// the store. A statement that changes rows triggers a refresh that is
// broadcast to other tabs; read-only statements never broadcast.
func (r *Registry) RunQuery(ctx context.Context, stmt string) (model.ResultSet, error) {
	if err := r.guard.Check(stmt); err != nil {
		slog.Info("console statement blocked", "error", err)
		return model.ResultSet{}, err
	}

	rs, err := r.store.Execute(ctx, stmt)
	if err != nil {
		return model.ResultSet{}, err
	}

	if !model.ReturnsRows(stmt) && rs.RowsAffected > 0 {
		if _, err := r.RefreshAndBroadcast(ctx); err != nil {
			slog.Warn("refresh after console write failed", "error", err)
		}
	}

	return rs, nil
}

// Refresh re-reads every patient from the store and replaces the cache.
// Records added or announced while the read is in flight are kept on top of
// the result. On failure the previous cache is kept and the state becomes stale.
func (r *Registry) Refresh(ctx context.Context) ([]model.Patient, error) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.state = model.CacheLoading
	r.lateAdds = nil
	r.mu.Unlock()

	patients, err := r.store.ListAll(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		// A newer refresh owns the cache state.
		if err != nil {
			return nil, err
		}
		return model.ClonePatients(patients), nil
	}

	late := r.lateAdds
	r.lateAdds = nil

	if err != nil {
		r.state = model.CacheStale
		return nil, err
	}

	merged := model.ClonePatients(patients)
	for _, p := range late {
		merged = appendUnique(merged, p)
	}
	r.cache = merged
	r.state = model.CacheFresh
	return model.ClonePatients(merged), nil
}

// RefreshAndBroadcast refreshes the cache and sends the full list to other tabs.
func (r *Registry) RefreshAndBroadcast(ctx context.Context) ([]model.Patient, error) {
	patients, err := r.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.channel.Publish(ctx, model.NewRecordsRefreshed(patients)); err != nil {
		slog.Warn("broadcast of refreshed patients failed", "count", len(patients), "error", err)
	}
	return patients, nil
}

// Snapshot returns a copy of the cached patient list.
func (r *Registry) Snapshot() []model.Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	return model.ClonePatients(r.cache)
}

// State returns the cache freshness state.
func (r *Registry) State() model.CacheState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SubscribeToChanges registers handler to be called after a message from
// another tab changes the cache. Handlers never fire for this registry's own
// submissions. The returned func removes the handler.
func (r *Registry) SubscribeToChanges(handler func(model.ChangeEvent)) func() {
	r.subMu.Lock()
	r.nextSub++
	id := r.nextSub
	r.subs = append(r.subs, changeSubscription{id: id, handler: handler})
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		for i, s := range r.subs {
			if s.id == id {
				r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
				return
			}
		}
	}
}

func (r *Registry) handleRemote(msg model.SyncMessage) {
	event := model.ChangeEvent{Kind: msg.Kind}

	r.mu.Lock()
	switch msg.Kind {
	case model.MessageRecordAdded:
		if msg.Record == nil {
			r.mu.Unlock()
			return
		}
		r.addLocked(*msg.Record)
		added := *msg.Record
		event.Added = &added
	case model.MessageRecordsRefreshed:
		r.cache = model.ClonePatients(msg.Records)
		r.state = model.CacheFresh
	default:
		r.mu.Unlock()
		slog.Warn("ignoring sync message of unknown kind", "kind", msg.Kind)
		return
	}
	event.Snapshot = model.ClonePatients(r.cache)
	r.mu.Unlock()

	r.subMu.Lock()
	subs := make([]changeSubscription, len(r.subs))
	copy(subs, r.subs)
	r.subMu.Unlock()

	for _, s := range subs {
		ev := event
		ev.Snapshot = model.ClonePatients(event.Snapshot)
		if event.Added != nil {
			added := *event.Added
			ev.Added = &added
		}
		s.handler(ev)
	}
}

// addLocked caches p and remembers it for an in-flight Refresh. r.mu must be held.
func (r *Registry) addLocked(p model.Patient) {
	r.cache = appendUnique(r.cache, p)
	if r.state == model.CacheLoading {
		r.lateAdds = append(r.lateAdds, p)
	}
}

// appendUnique appends p unless a patient with the same id is already present,
// in which case that entry is replaced.
func appendUnique(ps []model.Patient, p model.Patient) []model.Patient {
	for i := range ps {
		if ps[i].ID == p.ID {
			ps[i] = p
			return ps
		}
	}
	return append(ps, p)
}
