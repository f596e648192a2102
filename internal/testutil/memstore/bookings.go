package memstore

import (
	"context"
	"fmt"
	"sort"

	bookingserrors "classbook/internal/bookings/errors"
	bookingsrepo "classbook/internal/bookings/repository"
	mongotx "classbook/pkg/db/mongo"
	"classbook/pkg/model"
)

type Bookings struct{ s *Store }

var _ bookingsrepo.BookingRepository = (*Bookings)(nil)

func (s *Store) Bookings() *Bookings { return &Bookings{s: s} }

// All returns every booking of the lesson in creation order.
func (r *Bookings) All(lessonID string) []*model.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(b *model.Booking) bool { return b.LessonID == lessonID })
}

func (r *Bookings) filter(match func(*model.Booking) bool) []*model.Booking {
	var out []*model.Booking
	for _, b := range r.s.bookings {
		if match(b) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *Bookings) findPair(lessonID, userID string) *model.Booking {
	for _, b := range r.s.bookings {
		if b.LessonID == lessonID && b.UserID == userID {
			return b
		}
	}
	return nil
}

func (r *Bookings) Create(_ context.Context, booking *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Bookings.Create"); err != nil {
		return err
	}
	if r.findPair(booking.LessonID, booking.UserID) != nil {
		return bookingserrors.ErrDuplicate
	}
	booking.ID = newID()
	booking.CreatedAt = r.s.tick()
	booking.UpdatedAt = booking.CreatedAt
	c := *booking
	r.s.bookings[booking.ID] = &c
	return nil
}

func (r *Bookings) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r *Bookings) FindByLessonAndUser(_ context.Context, lessonID, userID string) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b := r.findPair(lessonID, userID)
	if b == nil {
		return nil, bookingserrors.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r *Bookings) Upsert(_ context.Context, booking *model.Booking) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Bookings.Upsert"); err != nil {
		return false, err
	}

	now := r.s.tick()
	existing := r.findPair(booking.LessonID, booking.UserID)
	created := existing == nil
	if created {
		existing = &model.Booking{
			ID:        newID(),
			LessonID:  booking.LessonID,
			UserID:    booking.UserID,
			CreatedAt: now,
		}
		r.s.bookings[existing.ID] = existing
	}
	existing.Status = booking.Status
	existing.UpdatedAt = now
	switch {
	case booking.TransactionID != "":
		existing.TransactionID = booking.TransactionID
	case booking.Status == model.BookingWaiting:
		existing.TransactionID = ""
	}
	*booking = *existing
	return created, nil
}

func (r *Bookings) UpdateStatus(_ context.Context, id string, status model.BookingStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Bookings.UpdateStatus"); err != nil {
		return err
	}
	if !validID(id) {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	b, ok := r.s.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = r.s.tick()
	return nil
}

func (r *Bookings) FindByLesson(_ context.Context, lessonID string, limit int, offset int64) ([]*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.filter(func(b *model.Booking) bool { return b.LessonID == lessonID })
	start := min(int(offset), len(all))
	end := min(start+limit, len(all))
	return all[start:end], nil
}

func (r *Bookings) FindByLessonAndStatus(_ context.Context, lessonID string, status model.BookingStatus) ([]*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(b *model.Booking) bool { return b.LessonID == lessonID && b.Status == status }), nil
}

func (r *Bookings) FindByTransaction(_ context.Context, transactionID string) ([]*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(b *model.Booking) bool { return b.TransactionID == transactionID }), nil
}

func (r *Bookings) CountByLesson(_ context.Context, lessonID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filter(func(b *model.Booking) bool { return b.LessonID == lessonID }))), nil
}

func (r *Bookings) CountConfirmed(_ context.Context, lessonID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Bookings.CountConfirmed"); err != nil {
		return 0, err
	}
	return len(r.filter(func(b *model.Booking) bool {
		return b.LessonID == lessonID && b.Status == model.BookingConfirmed
	})), nil
}

func (r *Bookings) HasConfirmedExcept(_ context.Context, lessonID string, excludeBookingID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Bookings.HasConfirmedExcept"); err != nil {
		return false, err
	}
	for _, b := range r.s.bookings {
		if b.LessonID == lessonID && b.Status == model.BookingConfirmed && b.ID != excludeBookingID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Bookings) HasConfirmedForUser(_ context.Context, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.UserID == userID && b.Status == model.BookingConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (r *Bookings) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !validID(id) {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	if _, ok := r.s.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(r.s.bookings, id)
	return nil
}

func (r *Bookings) DeleteByLesson(_ context.Context, lessonID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, b := range r.s.bookings {
		if b.LessonID == lessonID {
			delete(r.s.bookings, id)
			n++
		}
	}
	return n, nil
}

func (r *Bookings) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.s.ExecuteTransaction(ctx, fn)
}
