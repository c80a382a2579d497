package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/model"
	"eventcal/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	kv, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return New(kv)
}

func testEvents() []model.Event {
	return []model.Event{
		{Title: "Jazz", StartDateTime: "2024-03-10T21:00:00", PlaceName: "Teatro Colón", Icon: "data/icons/colon.jpg"},
		{Title: "Hamlet", StartDateTime: "2024-03-11T20:00:00", PlaceName: "Teatro San Martín", Icon: "data/icons/tsm.jpg"},
	}
}

func TestToggle(t *testing.T) {
	s := newTestStore(t)
	key := testEvents()[0].Key()

	on, err := s.Toggle(key)
	require.NoError(t, err)
	assert.True(t, on)

	selected, err := s.IsSelected(key)
	require.NoError(t, err)
	assert.True(t, selected)

	off, err := s.Toggle(key)
	require.NoError(t, err)
	assert.False(t, off)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExportListOrderAndMerge(t *testing.T) {
	s := newTestStore(t)
	events := testEvents()

	// Select in reverse order; the export list follows catalog order.
	_, err := s.Toggle(events[1].Key())
	require.NoError(t, err)
	_, err = s.Toggle(events[0].Key())
	require.NoError(t, err)

	newTitle := "Jazz (editado)"
	price := 2000.0
	require.NoError(t, s.SaveEdit(events[0].Key(), model.Edit{Title: &newTitle, Price: &price}))

	list, err := s.ExportList(events)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "Jazz (editado)", list[0].Title)
	require.NotNil(t, list[0].Price)
	assert.Equal(t, 2000.0, *list[0].Price)
	// The resolved icon survives any edit.
	assert.Equal(t, "data/icons/colon.jpg", list[0].Icon)
	assert.Equal(t, "Hamlet", list[1].Title)
}

func TestExportListSkipsStaleKeys(t *testing.T) {
	s := newTestStore(t)
	events := testEvents()

	_, err := s.Toggle(events[0].Key())
	require.NoError(t, err)
	_, err = s.Toggle("Gone\x1f2020-01-01T00:00:00\x1fDemolido")
	require.NoError(t, err)

	list, err := s.ExportList(events)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Jazz", list[0].Title)
}

func TestEditLifecycle(t *testing.T) {
	s := newTestStore(t)
	key := testEvents()[0].Key()

	edit, err := s.Edit(key)
	require.NoError(t, err)
	assert.Nil(t, edit)

	title := "Nuevo"
	require.NoError(t, s.SaveEdit(key, model.Edit{Title: &title}))
	edit, err = s.Edit(key)
	require.NoError(t, err)
	require.NotNil(t, edit)
	assert.Equal(t, "Nuevo", *edit.Title)

	require.NoError(t, s.ClearEdits())
	edit, err = s.Edit(key)
	require.NoError(t, err)
	assert.Nil(t, edit)
}

func TestCorruptEditBehavesLikeMissing(t *testing.T) {
	kv, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	s := New(kv)

	key := testEvents()[0].Key()
	require.NoError(t, kv.Put(storage.BucketEdits, key, []byte("{not json")))

	edit, err := s.Edit(key)
	require.NoError(t, err)
	assert.Nil(t, edit)
}
