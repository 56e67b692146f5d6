package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/patientreg/internal/adapter/driven/broadcast"
	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// --- Mock implementations ---

// fakeStore is an in-memory PatientStore that records Execute calls.
type fakeStore struct {
	mu        sync.Mutex
	patients  []model.Patient
	nextID    int64
	clock     time.Time
	insertErr error
	listErr   error
	execErr   error
	execRS    model.ResultSet
	execCalls int
	listGate  chan struct{} // when set, ListAll blocks until it is closed
	listed    chan struct{} // when set, closed once ListAll has read its rows
	holdList  chan struct{} // when set, ListAll returns only after it is closed
}

func newFakeStore() *fakeStore {
	return &fakeStore{clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (s *fakeStore) Insert(_ context.Context, in model.PatientInput) (model.Patient, error) {
	in, err := in.Normalize()
	if err != nil {
		return model.Patient{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return model.Patient{}, &model.StorageError{Op: "insert patient", Err: s.insertErr}
	}
	s.nextID++
	s.clock = s.clock.Add(time.Second)
	p := model.Patient{
		ID:           s.nextID,
		Name:         in.Name,
		Age:          in.Age,
		Gender:       model.Gender(in.Gender),
		Contact:      in.Contact,
		RegisteredAt: s.clock,
	}
	s.patients = append(s.patients, p)
	return p, nil
}

func (s *fakeStore) Execute(_ context.Context, stmt string) (model.ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execCalls++
	if s.execErr != nil {
		return model.ResultSet{}, &model.QueryError{Statement: stmt, Err: s.execErr}
	}
	return s.execRS, nil
}

func (s *fakeStore) ListAll(_ context.Context) ([]model.Patient, error) {
	s.mu.Lock()
	gate := s.listGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	if s.listErr != nil {
		s.mu.Unlock()
		return nil, &model.StorageError{Op: "list patients", Err: s.listErr}
	}
	out := model.ClonePatients(s.patients)
	listed, hold := s.listed, s.holdList
	s.mu.Unlock()

	if listed != nil {
		close(listed)
	}
	if hold != nil {
		<-hold
	}
	return out, nil
}

func (s *fakeStore) Get(_ context.Context, id int64) (*model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.patients {
		if p.ID == id {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) executeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execCalls
}

// changeRecorder collects registry change events.
type changeRecorder struct {
	mu     sync.Mutex
	events []model.ChangeEvent
}

func (r *changeRecorder) handle(ev model.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *changeRecorder) all() []model.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChangeEvent, len(r.events))
	copy(out, r.events)
	return out
}

// messageRecorder collects raw sync messages seen by an observer endpoint.
type messageRecorder struct {
	mu   sync.Mutex
	msgs []model.SyncMessage
}

func (r *messageRecorder) handle(msg model.SyncMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *messageRecorder) all() []model.SyncMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.SyncMessage, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// openEndpoint attaches an endpoint to the shared test channel and closes it
// when the test ends.
func openEndpoint(t *testing.T, hub *broadcast.Hub) *broadcast.Endpoint {
	t.Helper()
	ep := hub.Open("patient-sync")
	t.Cleanup(func() { _ = ep.Close() })
	return ep
}

// drainAll waits until every endpoint has handed out all queued messages.
func drainAll(t *testing.T, eps ...*broadcast.Endpoint) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, ep := range eps {
		require.NoError(t, ep.Drain(ctx))
	}
}
