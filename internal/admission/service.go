package admission

import (
	"context"
	"errors"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	bookingsrepo "classbook/internal/bookings/repository"
	bookingsservice "classbook/internal/bookings/service"
	"classbook/internal/bookings/validator"
	"classbook/internal/events"
	lessonsservice "classbook/internal/lessons/service"
	"classbook/internal/lockout"
	transactionsrepo "classbook/internal/transactions/repository"
	usersservice "classbook/internal/users/service"
	"classbook/pkg/config"
	apperrors "classbook/pkg/errors"
	"classbook/pkg/model"
	"classbook/pkg/pricing"
	"classbook/pkg/sanitizer"
)

const lessonBusyMessage = "lesson is busy, retry"

type Service interface {
	AdmitBooking(ctx context.Context, req Request) *Result
}

type service struct {
	lessons      lessonsservice.LessonService
	bookings     bookingsrepo.BookingRepository
	transactions transactionsrepo.TransactionRepository
	users        usersservice.UserService
	lockout      *lockout.Manager
	locker       *bookingsservice.LessonLocker
	publisher    events.Publisher
	validator    *validator.BookingValidator
	cfg          *config.Config
}

func NewService(
	lessons lessonsservice.LessonService,
	bookings bookingsrepo.BookingRepository,
	transactions transactionsrepo.TransactionRepository,
	users usersservice.UserService,
	lockoutManager *lockout.Manager,
	locker *bookingsservice.LessonLocker,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &service{
		lessons:      lessons,
		bookings:     bookings,
		transactions: transactions,
		users:        users,
		lockout:      lockoutManager,
		locker:       locker,
		publisher:    publisher,
		validator:    validator,
		cfg:          cfg,
	}
}

// AdmitBooking checks, in order, the request itself, that the lesson exists,
// that it is open, and that it has a seat per attendee. The first failing
// check decides the result. Capacity is read and written under the lesson
// lock, inside one transaction for the writes.
func (s *service) AdmitBooking(ctx context.Context, req Request) *Result {
	attendees := normalizeAttendees(req.Attendees)
	method := req.PaymentMethod
	if method == "" {
		method = model.PaymentCard
	}

	if result := s.validate(req.LessonID, attendees, method); result != nil {
		return result
	}

	unlock, err := s.locker.Lock(ctx, req.LessonID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			s.cfg.Log.Warn("Admission gave up waiting for lesson lock", "lesson_id", req.LessonID)
			return failed(KindInternal, lessonBusyMessage, map[string]any{"lesson_id": req.LessonID})
		}
		s.cfg.Log.Error("Failed to acquire lesson lock", "lesson_id", req.LessonID, "error", err)
		return failed(KindInternal, "Failed to acquire lesson lock", nil)
	}
	defer unlock()

	availability, err := s.lessons.CurrentAvailability(ctx, req.LessonID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) || apperrors.HasCode(err, apperrors.CodeInvalidInput) {
			return failed(KindNotFound, "Lesson not found", map[string]any{"lesson_id": req.LessonID})
		}
		s.cfg.Log.Error("Failed to read lesson availability", "lesson_id", req.LessonID, "error", err)
		return failed(KindInternal, "Failed to read lesson availability", nil)
	}

	if availability.BookingStatus != model.LessonOpen {
		return failedWith(KindLessonNotActive, apperrors.LessonNotActive(req.LessonID, string(availability.BookingStatus)))
	}
	if len(attendees) > availability.RemainingCapacity {
		return failedWith(KindInsufficientCapacity, apperrors.InsufficientCapacity(req.LessonID, len(attendees), availability.RemainingCapacity))
	}

	quote, err := s.price(ctx, availability.ClassOption, req.BookedBy, attendees)
	if err != nil {
		s.cfg.Log.Error("Failed to price admission", "lesson_id", req.LessonID, "error", err)
		return failed(KindInternal, "Failed to price booking", nil)
	}

	transaction := &model.Transaction{
		LessonID:      req.LessonID,
		Status:        model.TransactionPending,
		PaymentMethod: method,
		Currency:      s.cfg.DefaultCurrency,
		Quantity:      len(attendees),
		BookedBy:      req.BookedBy,
	}
	if quote != nil {
		transaction.Amount = quote.TotalAmount
		if quote.Currency != "" {
			transaction.Currency = quote.Currency
		}
	}

	var bookings []*model.Booking
	var unlocked bool
	err = s.bookings.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		bookings = bookings[:0]
		unlocked = false
		transaction.ID = ""

		if err := s.transactions.Create(txCtx, transaction); err != nil {
			return apperrors.Internal("Failed to create transaction", err)
		}

		// Sequential on purpose: each attendee may create a user.
		for _, a := range attendees {
			user, _, err := s.users.Resolve(txCtx, a.Email, a.Name)
			if err != nil {
				return err
			}

			booking := &model.Booking{
				LessonID:      req.LessonID,
				UserID:        user.ID,
				Status:        model.BookingConfirmed,
				TransactionID: transaction.ID,
			}
			if _, err := s.bookings.Upsert(txCtx, booking); err != nil {
				return apperrors.Internal("Failed to save booking", err)
			}

			transition, err := s.lockout.OnBookingChanged(txCtx, booking)
			if err != nil {
				return apperrors.Internal("Failed to update lesson lockout", err)
			}
			if transition == lockout.TransitionUnlocked {
				unlocked = true
			}
			bookings = append(bookings, booking)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Admission transaction failed", "lesson_id", req.LessonID, "error", err)
		return failed(KindInternal, "Failed to admit booking", nil)
	}

	s.afterCommit(ctx, availability.Lesson, transaction, bookings, unlocked)

	s.cfg.Log.Info("Booking admitted",
		"lesson_id", req.LessonID,
		"transaction_id", transaction.ID,
		"attendees", len(bookings),
		"amount", transaction.Amount,
	)
	return &Result{
		Success:     true,
		Bookings:    bookings,
		Transaction: transaction,
		Pricing:     quote,
	}
}

func (s *service) validate(lessonID string, attendees []model.Attendee, method model.PaymentMethod) *Result {
	if lessonID == "" {
		return failed(KindValidation, "Lesson ID is required", map[string]any{"lesson_id": "lesson_id is required"})
	}

	details := map[string]any{}
	var verrs validator.ValidationErrors
	if err := s.validator.ValidateAttendees(attendees); err != nil {
		if !errors.As(err, &verrs) {
			return failed(KindInternal, "Failed to validate attendees", nil)
		}
		for k, v := range verrs.Details() {
			details[k] = v
		}
	}
	if err := s.validator.ValidatePaymentMethod(method); err != nil {
		if errors.As(err, &verrs) {
			for k, v := range verrs.Details() {
				details[k] = v
			}
		}
	}

	if len(details) > 0 {
		return failed(KindValidation, "Invalid booking request", details)
	}
	return nil
}

// price returns nil when the class option has no drop-in price; such
// bookings carry a zero amount.
func (s *service) price(ctx context.Context, option *model.ClassOption, bookedBy *model.Identity, attendees []model.Attendee) (*pricing.Result, error) {
	if option == nil || option.DropIn == nil {
		return nil, nil
	}

	email := attendees[0].Email
	if bookedBy != nil && bookedBy.Email != "" {
		email = bookedBy.Email
	}
	trialEligible, err := s.trialEligible(ctx, email)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.Quote(option, len(attendees), trialEligible)
	if err != nil {
		return nil, err
	}
	if quote.Currency == "" {
		quote.Currency = s.cfg.DefaultCurrency
	}
	return &quote, nil
}

// trialEligible reports whether the person has never held a confirmed
// booking. Unknown emails are eligible.
func (s *service) trialEligible(ctx context.Context, email string) (bool, error) {
	user, err := s.users.Lookup(ctx, email)
	if err != nil {
		return false, err
	}
	if user == nil {
		return true, nil
	}
	has, err := s.bookings.HasConfirmedForUser(ctx, user.ID)
	if err != nil {
		return false, err
	}
	return !has, nil
}

func (s *service) afterCommit(ctx context.Context, lesson *model.Lesson, transaction *model.Transaction, bookings []*model.Booking, unlocked bool) {
	s.lessons.InvalidateAvailability(ctx, lesson.ID)

	now := time.Now().UTC()
	ids := make([]string, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}

	evs := []events.Event{events.BookingAdmitted{
		LessonID:      lesson.ID,
		TransactionID: transaction.ID,
		BookingIDs:    ids,
		Quantity:      len(bookings),
		Amount:        transaction.Amount,
		Currency:      transaction.Currency,
		PaymentMethod: transaction.PaymentMethod,
		BookedBy:      transaction.BookedBy,
		OccurredAt:    now,
	}}
	// Only report the transition when the window was actually set before.
	if unlocked && lesson.LockOutTime != 0 {
		evs = append(evs, events.LockoutChanged{
			LessonID:   lesson.ID,
			Transition: lockout.TransitionUnlocked,
			OccurredAt: now,
		})
	}
	s.publisher.Publish(ctx, evs...)
}

func normalizeAttendees(in []model.Attendee) []model.Attendee {
	out := make([]model.Attendee, len(in))
	for i, a := range in {
		out[i] = model.Attendee{
			Name:  sanitizer.NormalizeName(a.Name),
			Email: sanitizer.NormalizeEmail(a.Email),
		}
	}
	return out
}
