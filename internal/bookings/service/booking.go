package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	"classbook/internal/bookings/repository"
	"classbook/internal/bookings/validator"
	"classbook/internal/events"
	lessonsservice "classbook/internal/lessons/service"
	"classbook/internal/lockout"
	transactionserrors "classbook/internal/transactions/errors"
	transactionsrepo "classbook/internal/transactions/repository"
	"classbook/pkg/config"
	apperrors "classbook/pkg/errors"
	"classbook/pkg/model"
)

type BookingService interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByLesson(ctx context.Context, lessonID string, limit int, offset int64) ([]*model.Booking, int64, error)
	UpdateStatus(ctx context.Context, id string, update *model.BookingStatusUpdate) (*model.Booking, error)
	Delete(ctx context.Context, id string) error

	Cancel(ctx context.Context, lessonID, userID string) (*model.Booking, error)
	CheckIn(ctx context.Context, lessonID, userID string) (*model.Booking, error)
	JoinWaitlist(ctx context.Context, lessonID, userID string) (*model.Booking, error)
	LeaveWaitlist(ctx context.Context, lessonID, userID string) (*model.Booking, error)

	CompleteTransaction(ctx context.Context, transactionID string) error
	FailTransaction(ctx context.Context, transactionID string) error
}

type bookingService struct {
	repo         repository.BookingRepository
	transactions transactionsrepo.TransactionRepository
	lessons      lessonsservice.LessonService
	lockout      *lockout.Manager
	locker       *LessonLocker
	publisher    events.Publisher
	validator    *validator.BookingValidator
	cfg          *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	transactions transactionsrepo.TransactionRepository,
	lessons lessonsservice.LessonService,
	lockoutManager *lockout.Manager,
	locker *LessonLocker,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &bookingService{
		repo:         repo,
		transactions: transactions,
		lessons:      lessons,
		lockout:      lockoutManager,
		locker:       locker,
		publisher:    publisher,
		validator:    validator,
		cfg:          cfg,
	}
}

// change is one booking write and what it did to the lesson lockout.
type change struct {
	booking    *model.Booking
	from       model.BookingStatus
	transition lockout.Transition
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateBookingError(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *bookingService) ListByLesson(ctx context.Context, lessonID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if lessonID == "" {
		return nil, 0, apperrors.InvalidInput("Lesson ID cannot be empty")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByLesson(ctx, lessonID)
		if err != nil {
			s.cfg.Log.Error("Failed to count lesson bookings", "lesson_id", lessonID, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindByLesson(ctx, lessonID, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list lesson bookings",
				"lesson_id", lessonID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, id string, update *model.BookingStatusUpdate) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if err := s.validator.ValidateStatusUpdate(update); err != nil {
		s.cfg.Log.Warn("Booking status validation failed", "id", id, "error", err)
		return nil, validationError("Invalid status update", err)
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ch, err := s.setStatus(ctx, booking, update.Status)
	if err != nil {
		return nil, err
	}
	return ch.booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, lessonID, userID string) (*model.Booking, error) {
	booking, err := s.findForUser(ctx, lessonID, userID)
	if err != nil {
		return nil, err
	}

	ch, err := s.setStatus(ctx, booking, model.BookingCancelled)
	if err != nil {
		return nil, err
	}
	return ch.booking, nil
}

func (s *bookingService) LeaveWaitlist(ctx context.Context, lessonID, userID string) (*model.Booking, error) {
	booking, err := s.findForUser(ctx, lessonID, userID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingWaiting {
		return nil, apperrors.NotFound("Waitlist entry")
	}

	ch, err := s.setStatus(ctx, booking, model.BookingCancelled)
	if err != nil {
		return nil, err
	}
	return ch.booking, nil
}

// CheckIn converges on one confirmed booking for the pair. Checking in twice
// returns the existing booking.
func (s *bookingService) CheckIn(ctx context.Context, lessonID, userID string) (*model.Booking, error) {
	if lessonID == "" || userID == "" {
		return nil, apperrors.InvalidInput("Lesson ID and user ID are required")
	}

	unlock, err := s.lock(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.repo.FindByLessonAndUser(ctx, lessonID, userID)
	if err != nil && !errors.Is(err, bookingserrors.ErrNotFound) {
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	if existing != nil && existing.Status == model.BookingConfirmed {
		return existing, nil
	}

	if _, err := s.requireSeat(ctx, lessonID); err != nil {
		return nil, err
	}

	ch, err := s.upsert(ctx, lessonID, userID, model.BookingConfirmed, existing)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking checked in", "id", ch.booking.ID, "lesson_id", lessonID, "user_id", userID)
	return ch.booking, nil
}

func (s *bookingService) JoinWaitlist(ctx context.Context, lessonID, userID string) (*model.Booking, error) {
	if lessonID == "" || userID == "" {
		return nil, apperrors.InvalidInput("Lesson ID and user ID are required")
	}

	availability, err := s.lessons.CurrentAvailability(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if availability.ClassOption == nil || !availability.ClassOption.WaitlistEnabled {
		return nil, apperrors.Conflict("Lesson has no waitlist")
	}

	existing, err := s.repo.FindByLessonAndUser(ctx, lessonID, userID)
	if err != nil && !errors.Is(err, bookingserrors.ErrNotFound) {
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	if existing != nil {
		switch existing.Status {
		case model.BookingWaiting:
			return existing, nil
		case model.BookingConfirmed, model.BookingPending:
			return nil, apperrors.Conflict("User already holds a booking for this lesson")
		}
	}

	ch, err := s.upsert(ctx, lessonID, userID, model.BookingWaiting, existing)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Joined waitlist", "id", ch.booking.ID, "lesson_id", lessonID, "user_id", userID)
	return ch.booking, nil
}

func (s *bookingService) Delete(ctx context.Context, id string) error {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var transition lockout.Transition
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return translateBookingError(err, id, "Failed to delete booking")
		}
		t, err := s.lockout.OnBookingRemoved(txCtx, booking)
		if err != nil {
			return apperrors.Internal("Failed to update lesson lockout", err)
		}
		transition = t
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to delete booking", "id", id, "error", err)
		return err
	}

	s.lessons.InvalidateAvailability(ctx, booking.LessonID)
	s.publisher.Publish(ctx, lockoutEvents(booking.LessonID, transition)...)

	s.cfg.Log.Info("Booking deleted successfully", "id", id, "lesson_id", booking.LessonID)
	return nil
}

// CompleteTransaction marks a paid transaction completed and confirms its
// pending and waiting bookings while seats remain. Bookings that find the
// lesson full keep their status. A completed transaction is left as is.
func (s *bookingService) CompleteTransaction(ctx context.Context, transactionID string) error {
	tx, err := s.findTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	switch tx.Status {
	case model.TransactionCompleted:
		return nil
	case model.TransactionFailed:
		return apperrors.Conflict("Transaction has already failed")
	}

	return s.settleTransaction(ctx, tx, model.TransactionCompleted, model.BookingConfirmed, func(b *model.Booking) bool {
		return b.Status == model.BookingPending || b.Status == model.BookingWaiting
	})
}

// FailTransaction marks the transaction failed and cancels every booking it
// paid for, which relocks lessons left without confirmed bookings.
func (s *bookingService) FailTransaction(ctx context.Context, transactionID string) error {
	tx, err := s.findTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	switch tx.Status {
	case model.TransactionFailed:
		return nil
	case model.TransactionCompleted:
		return apperrors.Conflict("Transaction has already completed")
	}

	return s.settleTransaction(ctx, tx, model.TransactionFailed, model.BookingCancelled, func(b *model.Booking) bool {
		return b.Status != model.BookingCancelled
	})
}

// --- Helpers ---

func (s *bookingService) settleTransaction(
	ctx context.Context,
	tx *model.Transaction,
	txStatus model.TransactionStatus,
	bookingStatus model.BookingStatus,
	affected func(*model.Booking) bool,
) error {
	bookings, err := s.repo.FindByTransaction(ctx, tx.ID)
	if err != nil {
		return apperrors.Internal("Failed to retrieve transaction bookings", err)
	}

	wasFull := make(map[string]bool)
	if bookingStatus == model.BookingCancelled {
		for _, b := range bookings {
			if b.Status == model.BookingConfirmed {
				if _, seen := wasFull[b.LessonID]; !seen {
					wasFull[b.LessonID] = s.isFull(ctx, b.LessonID)
				}
			}
		}
	}

	// Confirming needs a free seat per booking, checked under the lesson lock.
	var seats map[string]int
	if bookingStatus == model.BookingConfirmed {
		unlock, err := s.lockAll(ctx, lessonsOf(bookings, affected))
		if err != nil {
			return err
		}
		defer unlock()

		if seats, err = s.freeSeats(ctx, lessonsOf(bookings, affected)); err != nil {
			return err
		}
	}

	var changes []change
	var held []*model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		changes, held = changes[:0], held[:0]
		remaining := make(map[string]int, len(seats))
		for lessonID, n := range seats {
			remaining[lessonID] = n
		}

		if err := s.transactions.UpdateStatus(txCtx, tx.ID, txStatus); err != nil {
			return apperrors.Internal("Failed to update transaction", err)
		}
		for _, b := range bookings {
			if !affected(b) {
				continue
			}
			if seats != nil {
				if remaining[b.LessonID] <= 0 {
					held = append(held, b)
					continue
				}
				remaining[b.LessonID]--
			}
			ch, err := s.write(txCtx, b, bookingStatus)
			if err != nil {
				return err
			}
			changes = append(changes, ch)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to settle transaction", "transaction_id", tx.ID, "status", txStatus, "error", err)
		return err
	}

	s.afterCommit(ctx, changes, wasFull)
	for _, b := range held {
		s.cfg.Log.Warn("Paid booking left unconfirmed, lesson is full",
			"transaction_id", tx.ID,
			"booking_id", b.ID,
			"lesson_id", b.LessonID,
			"status", b.Status,
		)
	}
	s.cfg.Log.Info("Transaction settled",
		"transaction_id", tx.ID,
		"status", txStatus,
		"bookings_updated", len(changes),
		"bookings_held", len(held),
	)
	return nil
}

// lessonsOf returns the sorted distinct lessons of the affected bookings.
func lessonsOf(bookings []*model.Booking, affected func(*model.Booking) bool) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, b := range bookings {
		if affected(b) && !seen[b.LessonID] {
			seen[b.LessonID] = true
			ids = append(ids, b.LessonID)
		}
	}
	sort.Strings(ids)
	return ids
}

// lockAll takes the lesson locks in ID order and releases them in reverse.
func (s *bookingService) lockAll(ctx context.Context, lessonIDs []string) (func(), error) {
	unlocks := make([]func(), 0, len(lessonIDs))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, lessonID := range lessonIDs {
		unlock, err := s.lock(ctx, lessonID)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// freeSeats reads the remaining capacity of each lesson. A deleted lesson
// has no seats.
func (s *bookingService) freeSeats(ctx context.Context, lessonIDs []string) (map[string]int, error) {
	seats := make(map[string]int, len(lessonIDs))
	for _, lessonID := range lessonIDs {
		availability, err := s.lessons.CurrentAvailability(ctx, lessonID)
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				seats[lessonID] = 0
				continue
			}
			return nil, err
		}
		seats[lessonID] = max(availability.RemainingCapacity, 0)
	}
	return seats, nil
}

// setStatus moves an existing booking to status. Confirming takes the lesson
// lock and requires a free seat.
func (s *bookingService) setStatus(ctx context.Context, booking *model.Booking, status model.BookingStatus) (change, error) {
	lessonID := booking.LessonID

	if status == model.BookingConfirmed && booking.Status != model.BookingConfirmed {
		unlock, err := s.lock(ctx, lessonID)
		if err != nil {
			return change{}, err
		}
		defer unlock()

		if _, err := s.requireSeat(ctx, lessonID); err != nil {
			return change{}, err
		}
	}

	wasFull := map[string]bool{}
	if booking.Status == model.BookingConfirmed && status == model.BookingCancelled {
		wasFull[lessonID] = s.isFull(ctx, lessonID)
	}

	var ch change
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		var err error
		ch, err = s.write(txCtx, booking, status)
		return err
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking status", "id", booking.ID, "status", status, "error", err)
		return change{}, err
	}

	s.afterCommit(ctx, []change{ch}, wasFull)
	s.cfg.Log.Info("Booking status updated",
		"id", booking.ID,
		"lesson_id", lessonID,
		"from", ch.from,
		"to", status,
		"lockout", ch.transition,
	)
	return ch, nil
}

// write updates one booking and runs the lockout manager on the same
// transaction context.
func (s *bookingService) write(txCtx context.Context, booking *model.Booking, status model.BookingStatus) (change, error) {
	if err := s.repo.UpdateStatus(txCtx, booking.ID, status); err != nil {
		return change{}, translateBookingError(err, booking.ID, "Failed to update booking")
	}

	updated := *booking
	updated.Status = status
	updated.UpdatedAt = time.Now().UTC()

	transition, err := s.lockout.OnBookingChanged(txCtx, &updated)
	if err != nil {
		return change{}, apperrors.Internal("Failed to update lesson lockout", err)
	}
	return change{booking: &updated, from: booking.Status, transition: transition}, nil
}

func (s *bookingService) upsert(ctx context.Context, lessonID, userID string, status model.BookingStatus, existing *model.Booking) (change, error) {
	var from model.BookingStatus
	if existing != nil {
		from = existing.Status
	}

	var ch change
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		booking := &model.Booking{
			LessonID: lessonID,
			UserID:   userID,
			Status:   status,
		}
		if _, err := s.repo.Upsert(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to save booking", err)
		}
		transition, err := s.lockout.OnBookingChanged(txCtx, booking)
		if err != nil {
			return apperrors.Internal("Failed to update lesson lockout", err)
		}
		ch = change{booking: booking, from: from, transition: transition}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to save booking", "lesson_id", lessonID, "user_id", userID, "status", status, "error", err)
		return change{}, err
	}

	s.afterCommit(ctx, []change{ch}, nil)
	return ch, nil
}

// afterCommit drops cached availability and publishes what changed. wasFull
// marks lessons that had no free seat before a confirmed booking was
// cancelled.
func (s *bookingService) afterCommit(ctx context.Context, changes []change, wasFull map[string]bool) {
	invalidated := make(map[string]bool)
	freed := make(map[string]bool)
	var evs []events.Event

	for _, ch := range changes {
		lessonID := ch.booking.LessonID
		if !invalidated[lessonID] {
			s.lessons.InvalidateAvailability(ctx, lessonID)
			invalidated[lessonID] = true
		}

		if ch.from != ch.booking.Status {
			evs = append(evs, events.BookingStatusChanged{
				BookingID:  ch.booking.ID,
				LessonID:   lessonID,
				UserID:     ch.booking.UserID,
				From:       ch.from,
				To:         ch.booking.Status,
				OccurredAt: time.Now().UTC(),
			})
		}
		evs = append(evs, lockoutEvents(lessonID, ch.transition)...)

		if ch.from == model.BookingConfirmed && ch.booking.Status == model.BookingCancelled && wasFull[lessonID] {
			freed[lessonID] = true
		}
	}

	for lessonID := range freed {
		if ev, ok := s.waitlistEvent(ctx, lessonID); ok {
			evs = append(evs, ev)
		}
	}

	if len(evs) > 0 {
		s.publisher.Publish(ctx, evs...)
	}
}

func (s *bookingService) waitlistEvent(ctx context.Context, lessonID string) (events.Event, bool) {
	waiting, err := s.repo.FindByLessonAndStatus(ctx, lessonID, model.BookingWaiting)
	if err != nil {
		s.cfg.Log.Error("Failed to load waitlist", "lesson_id", lessonID, "error", err)
		return nil, false
	}
	if len(waiting) == 0 {
		return nil, false
	}

	ids := make([]string, len(waiting))
	for i, b := range waiting {
		ids[i] = b.ID
	}
	return events.WaitlistSpotAvailable{
		LessonID:          lessonID,
		WaitingBookingIDs: ids,
		WaitingCount:      len(ids),
		OccurredAt:        time.Now().UTC(),
	}, true
}

func lockoutEvents(lessonID string, transition lockout.Transition) []events.Event {
	if transition != lockout.TransitionLocked && transition != lockout.TransitionUnlocked {
		return nil
	}
	return []events.Event{events.LockoutChanged{
		LessonID:   lessonID,
		Transition: transition,
		OccurredAt: time.Now().UTC(),
	}}
}

func (s *bookingService) lock(ctx context.Context, lessonID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, lessonID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			s.cfg.Log.Warn("Lesson lock wait exhausted", "lesson_id", lessonID)
			return nil, apperrors.Unavailable("Lesson")
		}
		return nil, apperrors.Internal("Failed to acquire lesson lock", err)
	}
	return unlock, nil
}

func (s *bookingService) requireSeat(ctx context.Context, lessonID string) (*model.LessonAvailability, error) {
	availability, err := s.lessons.CurrentAvailability(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if availability.RemainingCapacity <= 0 {
		return nil, apperrors.InsufficientCapacity(lessonID, 1, availability.RemainingCapacity)
	}
	return availability, nil
}

func (s *bookingService) isFull(ctx context.Context, lessonID string) bool {
	availability, err := s.lessons.CurrentAvailability(ctx, lessonID)
	if err != nil {
		s.cfg.Log.Warn("Failed to read availability before cancellation", "lesson_id", lessonID, "error", err)
		return false
	}
	return availability.RemainingCapacity <= 0
}

func (s *bookingService) findForUser(ctx context.Context, lessonID, userID string) (*model.Booking, error) {
	if lessonID == "" || userID == "" {
		return nil, apperrors.InvalidInput("Lesson ID and user ID are required")
	}

	booking, err := s.repo.FindByLessonAndUser(ctx, lessonID, userID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Booking")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) findTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Transaction ID cannot be empty")
	}

	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, transactionserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Transaction", id)
		}
		if errors.Is(err, transactionserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid transaction ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve transaction", err)
	}
	return tx, nil
}

func translateBookingError(err error, id, message string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	return apperrors.Internal(message, err)
}

func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
