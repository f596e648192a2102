package memstore

import (
	"context"
	"fmt"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	bookingsrepo "classbook/internal/bookings/repository"
	transactionserrors "classbook/internal/transactions/errors"
	transactionsrepo "classbook/internal/transactions/repository"
	userserrors "classbook/internal/users/errors"
	usersrepo "classbook/internal/users/repository"
	"classbook/pkg/model"
)

type Users struct{ s *Store }

var _ usersrepo.UserRepository = (*Users)(nil)

func (s *Store) Users() *Users { return &Users{s: s} }

func (r *Users) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users)
}

func (r *Users) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Users.Create"); err != nil {
		return err
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return userserrors.ErrDuplicateEmail
		}
	}
	user.ID = newID()
	user.CreatedAt = r.s.tick()
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *Users) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, userserrors.ErrNotFound
}

type Transactions struct{ s *Store }

var _ transactionsrepo.TransactionRepository = (*Transactions)(nil)

func (s *Store) Transactions() *Transactions { return &Transactions{s: s} }

func (r *Transactions) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.transactions)
}

func (r *Transactions) Create(_ context.Context, tx *model.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Transactions.Create"); err != nil {
		return err
	}
	tx.ID = newID()
	tx.CreatedAt = r.s.tick()
	tx.UpdatedAt = tx.CreatedAt
	c := *tx
	r.s.transactions[tx.ID] = &c
	return nil
}

func (r *Transactions) FindByID(_ context.Context, id string) (*model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", transactionserrors.ErrInvalidID, id)
	}
	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, transactionserrors.ErrNotFound
	}
	c := *tx
	return &c, nil
}

func (r *Transactions) UpdateStatus(_ context.Context, id string, status model.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[id]
	if !ok {
		return transactionserrors.ErrNotFound
	}
	tx.Status = status
	tx.UpdatedAt = r.s.tick()
	return nil
}

// Locks never expire; tests release them explicitly.
type Locks struct{ s *Store }

var _ bookingsrepo.BookingLockRepository = (*Locks)(nil)

func (s *Store) Locks() *Locks { return &Locks{s: s} }

func (r *Locks) Acquire(_ context.Context, lessonID, owner string, ttl time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if lock, held := r.s.locks[lessonID]; held && lock.Owner != owner {
		return bookingserrors.ErrLockHeld
	}
	r.s.locks[lessonID] = &model.BookingLock{ID: lessonID, Owner: owner, ExpiresAt: r.s.clock.Add(ttl)}
	return nil
}

func (r *Locks) Release(_ context.Context, lessonID, owner string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if lock, held := r.s.locks[lessonID]; held && lock.Owner == owner {
		delete(r.s.locks, lessonID)
	}
	return nil
}

func (r *Locks) Held(lessonID string) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, held := r.s.locks[lessonID]
	return held
}
