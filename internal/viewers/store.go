package viewers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/attendanceconsole/internal/calendar"
	"github.com/attendanceconsole/internal/reports"
	"github.com/attendanceconsole/internal/statistics"
	"github.com/dgraph-io/badger/v4"
)

var ErrNotFound = errors.New("not found")

// Store keeps the view state of every viewer in memory.
type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		db: db,
	}
}

type encodedState struct {
	Month  string `json:"month"`
	Day    int    `json:"day"`
	Search string `json:"search"`
}

func (s *Store) FindState(ctx context.Context, id ID) (reports.ViewState, error) {
	var encoded encodedState
	if err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &encoded)
		})
	}); errors.Is(err, badger.ErrKeyNotFound) {
		return reports.ViewState{}, ErrNotFound
	} else if err != nil {
		return reports.ViewState{}, err
	}

	month, err := calendar.ParseMonth(encoded.Month)
	if err != nil {
		return reports.ViewState{}, fmt.Errorf("decode state: %w", err)
	}
	return reports.ViewState{
		Month:  month,
		Day:    statistics.DayFilter(encoded.Day),
		Search: encoded.Search,
	}, nil
}

// StateOrDefault returns the stored state of the viewer, or the default one if
// nothing was stored yet.
func (s *Store) StateOrDefault(ctx context.Context, id ID) (reports.ViewState, error) {
	state, err := s.FindState(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return reports.DefaultViewState(), nil
	}
	return state, err
}

func (s *Store) UpsertState(ctx context.Context, id ID, state reports.ViewState) error {
	data, err := json.Marshal(encodedState{
		Month:  state.Month.Name,
		Day:    int(state.Day),
		Search: state.Search,
	})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey(id), data)
	})
}

func stateKey(id ID) []byte {
	return []byte(fmt.Sprintf("viewers/%s/state", id))
}
