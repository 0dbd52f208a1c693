package recognitions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// LogStore keeps the first sighting of every student per day for the lifetime
// of the process.
type LogStore struct {
	db *badger.DB
}

func NewLogStore(db *badger.DB) *LogStore {
	return &LogStore{
		db: db,
	}
}

// Record stores events not seen before on the same day and returns how many were new.
func (s *LogStore) Record(_ context.Context, events []Event) (int, error) {
	added := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, event := range events {
			key := logKey(event)
			if _, err := txn.Get(key); err == nil {
				continue
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			data, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if err := txn.Set(key, data); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record events: %w", err)
	}
	return added, nil
}

func (s *LogStore) ListEntries(_ context.Context) ([]Event, error) {
	events := make([]Event, 0)
	if err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("recognitions/log/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var event Event
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &event)
			}); err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return events, nil
}

// logKey is recognitions/log/<date>/<student id>, time is "YYYY-MM-DD hh:mm:ss".
func logKey(event Event) []byte {
	date, _, _ := strings.Cut(event.Time, " ")
	return []byte(fmt.Sprintf("recognitions/log/%s/%s", date, event.StudentID))
}
