package application_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/patientreg/internal/adapter/driven/broadcast"
	"github.com/ericfisherdev/patientreg/internal/application"
	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

func newTabManager(t *testing.T, store *fakeStore) (*application.TabManager, *broadcast.Hub) {
	t.Helper()
	hub := broadcast.NewHub(16)
	mgr := application.NewTabManager(store, nil, func() application.SyncEndpoint {
		return hub.Open("patient-sync")
	})
	t.Cleanup(func() { _ = mgr.CloseAll() })
	return mgr, hub
}

func TestTabManager_OpenGetClose(t *testing.T) {
	mgr, hub := newTabManager(t, newFakeStore())

	tab := mgr.Open()
	require.NotEmpty(t, tab.ID)
	assert.False(t, tab.OpenedAt.IsZero())
	assert.Equal(t, 1, mgr.Count())
	assert.Equal(t, 1, hub.Members("patient-sync"))

	got, err := mgr.Get(tab.ID)
	require.NoError(t, err)
	assert.Same(t, tab, got)

	require.NoError(t, mgr.Close(tab.ID))
	assert.Equal(t, 0, mgr.Count())
	assert.Equal(t, 0, hub.Members("patient-sync"))

	_, err = mgr.Get(tab.ID)
	assert.ErrorIs(t, err, model.ErrTabNotFound)
	assert.ErrorIs(t, mgr.Close(tab.ID), model.ErrTabNotFound)
}

func TestTabManager_TabsSeeEachOther(t *testing.T) {
	mgr, _ := newTabManager(t, newFakeStore())

	a := mgr.Open()
	b := mgr.Open()

	var wg sync.WaitGroup
	wg.Add(1)
	var once sync.Once
	var got model.ChangeEvent
	b.Registry.SubscribeToChanges(func(ev model.ChangeEvent) {
		once.Do(func() {
			got = ev
			wg.Done()
		})
	})

	p, err := a.Registry.SubmitRecord(context.Background(), janeDoe())
	require.NoError(t, err)
	wg.Wait()

	assert.Equal(t, model.MessageRecordAdded, got.Kind)
	assert.Equal(t, []model.Patient{p}, got.Snapshot)
}

func TestTabManager_CloseAll(t *testing.T) {
	mgr, hub := newTabManager(t, newFakeStore())
	mgr.Open()
	mgr.Open()
	mgr.Open()

	require.NoError(t, mgr.CloseAll())
	assert.Equal(t, 0, mgr.Count())
	assert.Equal(t, 0, hub.Members("patient-sync"))
}
