// Package memstore holds in-memory versions of the repositories so service
// tests can exercise real state changes. ExecuteTransaction snapshots every
// collection and restores the snapshot when the callback fails.
package memstore

import (
	"context"
	"sync"
	"time"

	mongotx "classbook/pkg/db/mongo"
	"classbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu           sync.Mutex
	txMu         sync.Mutex
	lessons      map[string]*model.Lesson
	options      map[string]*model.ClassOption
	bookings     map[string]*model.Booking
	users        map[string]*model.User
	transactions map[string]*model.Transaction
	locks        map[string]*model.BookingLock
	failures     map[string]error
	clock        time.Time
}

func New() *Store {
	return &Store{
		lessons:      make(map[string]*model.Lesson),
		options:      make(map[string]*model.ClassOption),
		bookings:     make(map[string]*model.Booking),
		users:        make(map[string]*model.User),
		transactions: make(map[string]*model.Transaction),
		locks:        make(map[string]*model.BookingLock),
		failures:     make(map[string]error),
		clock:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FailOn makes the named repository method return err until cleared with
// a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *Store) failure(method string) error {
	return s.failures[method]
}

// tick returns strictly increasing timestamps so creation order is stable.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func validID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

type txKey struct{}

// ExecuteTransaction serializes transactions. Nested calls join the outer one.
func (s *Store) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	lessons      map[string]*model.Lesson
	options      map[string]*model.ClassOption
	bookings     map[string]*model.Booking
	users        map[string]*model.User
	transactions map[string]*model.Transaction
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		lessons:      cloneMap(s.lessons),
		options:      cloneMap(s.options),
		bookings:     cloneMap(s.bookings),
		users:        cloneMap(s.users),
		transactions: cloneMap(s.transactions),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons = snap.lessons
	s.options = snap.options
	s.bookings = snap.bookings
	s.users = snap.users
	s.transactions = snap.transactions
}

func cloneMap[T any](m map[string]*T) map[string]*T {
	out := make(map[string]*T, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}
