// Package selection tracks which events the user has marked for export
// and the partial edits entered for them. Both live in the injected
// key-value store and survive a full reload of the event list; keys
// that no longer resolve against the loaded set become silent no-ops.
package selection

import (
	"encoding/json"

	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/storage"
)

// Store is the selection and edit overlay over a KV backend. All
// lookups fail soft; nothing here raises an error for a missing entry.
type Store struct {
	kv storage.KV
}

// New creates a Store over the given backend.
func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Toggle flips membership of the identity key and reports whether the
// key is selected afterwards.
func (s *Store) Toggle(key string) (bool, error) {
	_, selected, err := s.kv.Get(storage.BucketSelection, key)
	if err != nil {
		return false, err
	}
	if selected {
		return false, s.kv.Delete(storage.BucketSelection, key)
	}
	return true, s.kv.Put(storage.BucketSelection, key, []byte("1"))
}

// IsSelected reports membership of the identity key.
func (s *Store) IsSelected(key string) (bool, error) {
	_, ok, err := s.kv.Get(storage.BucketSelection, key)
	return ok, err
}

// Count returns the number of selected keys.
func (s *Store) Count() (int, error) {
	entries, err := s.kv.List(storage.BucketSelection)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Clear removes every selected key.
func (s *Store) Clear() error {
	entries, err := s.kv.List(storage.BucketSelection)
	if err != nil {
		return err
	}
	for key := range entries {
		if err := s.kv.Delete(storage.BucketSelection, key); err != nil {
			return err
		}
	}
	return nil
}

// SaveEdit persists a partial override for the identity key. Edits have
// an independent lifetime from the selection set.
func (s *Store) SaveEdit(key string, edit model.Edit) error {
	data, err := json.Marshal(edit)
	if err != nil {
		return err
	}
	return s.kv.Put(storage.BucketEdits, key, data)
}

// Edit returns the stored override for the key, or nil when there is
// none.
func (s *Store) Edit(key string) (*model.Edit, error) {
	data, ok, err := s.kv.Get(storage.BucketEdits, key)
	if err != nil || !ok {
		return nil, err
	}
	var edit model.Edit
	if err := json.Unmarshal(data, &edit); err != nil {
		// A corrupt edit record behaves like a missing one.
		appLog.Error("discarding unreadable edit record", err, "key", key)
		return nil, nil
	}
	return &edit, nil
}

// ClearEdits removes every stored edit.
func (s *Store) ClearEdits() error {
	entries, err := s.kv.List(storage.BucketEdits)
	if err != nil {
		return err
	}
	for key := range entries {
		if err := s.kv.Delete(storage.BucketEdits, key); err != nil {
			return err
		}
	}
	return nil
}

// ExportList resolves the selected keys against the loaded event set,
// in catalog order, merging any stored edit over each resolved event.
// Edit fields win but the original's resolved icon is always kept.
// Selected keys that no longer match a loaded event are skipped.
func (s *Store) ExportList(events []model.Event) ([]model.Event, error) {
	selected, err := s.kv.List(storage.BucketSelection)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, nil
	}

	out := make([]model.Event, 0, len(selected))
	for _, ev := range events {
		key := ev.Key()
		if _, ok := selected[key]; !ok {
			continue
		}
		edit, err := s.Edit(key)
		if err != nil {
			return nil, err
		}
		if edit != nil {
			icon := ev.Icon
			ev = edit.Apply(ev)
			ev.Icon = icon
		}
		out = append(out, ev)
	}
	return out, nil
}
