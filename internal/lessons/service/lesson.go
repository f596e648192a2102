package service

import (
	"context"
	"errors"
	"sync"
	"time"

	bookingsrepo "classbook/internal/bookings/repository"
	"classbook/internal/capacity"
	lessonserrors "classbook/internal/lessons/errors"
	"classbook/internal/lessons/repository"
	"classbook/internal/lessons/validator"
	"classbook/pkg/cache"
	"classbook/pkg/config"
	apperrors "classbook/pkg/errors"
	"classbook/pkg/model"
	"classbook/pkg/pricing"
	"classbook/pkg/sanitizer"
)

type LessonService interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
	List(ctx context.Context, from, to *time.Time, limit int, offset int64) ([]*model.Lesson, int64, error)
	Delete(ctx context.Context, id string) error

	// Availability may be served from cache. Write paths use
	// CurrentAvailability, which always reads the database.
	Availability(ctx context.Context, id string) (*model.LessonAvailability, error)
	CurrentAvailability(ctx context.Context, id string) (*model.LessonAvailability, error)
	InvalidateAvailability(ctx context.Context, id string)

	Quote(ctx context.Context, lessonID string, quantity int, trialEligible bool) (*pricing.Result, error)

	CreateClassOption(ctx context.Context, option *model.ClassOption) error
	GetClassOption(ctx context.Context, id string) (*model.ClassOption, error)
}

type lessonService struct {
	repo       repository.LessonRepository
	optionRepo repository.ClassOptionRepository
	bookings   bookingsrepo.BookingRepository
	cache      cache.AvailabilityCache
	validator  *validator.LessonValidator
	cfg        *config.Config
}

func NewLessonService(
	repo repository.LessonRepository,
	optionRepo repository.ClassOptionRepository,
	bookings bookingsrepo.BookingRepository,
	availabilityCache cache.AvailabilityCache,
	validator *validator.LessonValidator,
	cfg *config.Config,
) LessonService {
	if availabilityCache == nil {
		availabilityCache = cache.NoopAvailabilityCache{}
	}
	return &lessonService{
		repo:       repo,
		optionRepo: optionRepo,
		bookings:   bookings,
		cache:      availabilityCache,
		validator:  validator,
		cfg:        cfg,
	}
}

func (s *lessonService) Create(ctx context.Context, lesson *model.Lesson) error {
	s.applyDefaults(lesson)
	lesson.Location = sanitizer.NormalizeLocation(lesson.Location)

	if err := s.validator.ValidateLesson(lesson); err != nil {
		s.cfg.Log.Warn("Lesson validation failed", "error", err)
		return validationError("Lesson validation failed", err)
	}

	if _, err := s.GetClassOption(ctx, lesson.ClassOptionID); err != nil {
		return err
	}

	lesson.ID = ""
	if err := s.repo.Create(ctx, lesson); err != nil {
		s.cfg.Log.Error("Failed to create lesson", "error", err)
		return apperrors.Internal("Failed to create lesson", err)
	}

	s.cfg.Log.Info("Lesson created successfully",
		"id", lesson.ID,
		"class_option_id", lesson.ClassOptionID,
		"start_time", lesson.StartTime,
		"lock_out_time", lesson.LockOutTime,
	)
	return nil
}

func (s *lessonService) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Lesson ID cannot be empty")
	}

	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateLessonError(err, id, "Failed to retrieve lesson")
	}
	return lesson, nil
}

func (s *lessonService) List(ctx context.Context, from, to *time.Time, limit int, offset int64) ([]*model.Lesson, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var lessons []*model.Lesson
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, from, to)
		if err != nil {
			s.cfg.Log.Error("Failed to count lessons", "error", err)
			errCount = apperrors.Internal("Failed to count lessons", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		lessons, err = s.repo.FindAll(ctx, from, to, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list lessons", "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.Internal("Failed to retrieve lessons", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return lessons, count, nil
}

// Delete removes the lesson and all of its bookings in one transaction. The
// bookings go with the lesson, so the lockout manager is not involved.
func (s *lessonService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Lesson ID cannot be empty")
	}

	var removed int64
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return translateLessonError(err, id, "Failed to delete lesson")
		}
		n, err := s.bookings.DeleteByLesson(txCtx, id)
		if err != nil {
			return apperrors.Internal("Failed to delete lesson bookings", err)
		}
		removed = n
		return nil
	})
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			s.cfg.Log.Error("Failed to delete lesson", "id", id, "error", err)
		}
		return err
	}

	s.cache.Invalidate(ctx, id)
	s.cfg.Log.Info("Lesson deleted successfully", "id", id, "bookings_deleted", removed)
	return nil
}

func (s *lessonService) Availability(ctx context.Context, id string) (*model.LessonAvailability, error) {
	if cached, ok := s.cache.Get(ctx, id); ok {
		return cached, nil
	}

	availability, err := s.CurrentAvailability(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, availability)
	return availability, nil
}

func (s *lessonService) CurrentAvailability(ctx context.Context, id string) (*model.LessonAvailability, error) {
	lesson, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	option, err := s.optionRepo.FindByID(ctx, lesson.ClassOptionID)
	if err != nil && !errors.Is(err, lessonserrors.ErrClassOptionNotFound) {
		return nil, apperrors.Internal("Failed to retrieve class option", err)
	}
	if option == nil {
		// Without its class option a lesson has no places and reads as full.
		s.cfg.Log.Warn("Lesson references a missing class option",
			"lesson_id", id,
			"class_option_id", lesson.ClassOptionID,
		)
	}

	confirmed, err := s.bookings.CountConfirmed(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to count confirmed bookings", "lesson_id", id, "error", err)
		return nil, apperrors.Internal("Failed to compute lesson availability", err)
	}

	a := capacity.ForLesson(lesson, option, confirmed, time.Now().UTC())
	if a.Overbooked {
		s.cfg.Log.Warn("Lesson is overbooked",
			"lesson_id", id,
			"confirmed", confirmed,
			"remaining_capacity", a.RemainingCapacity,
		)
	}

	availability := &model.LessonAvailability{
		Lesson:            lesson,
		ClassOption:       option,
		ConfirmedCount:    confirmed,
		RemainingCapacity: a.RemainingCapacity,
		BookingStatus:     a.BookingStatus,
		Overbooked:        a.Overbooked,
	}
	if option != nil {
		availability.Places = option.Places
	}
	return availability, nil
}

func (s *lessonService) InvalidateAvailability(ctx context.Context, id string) {
	s.cache.Invalidate(ctx, id)
}

func (s *lessonService) Quote(ctx context.Context, lessonID string, quantity int, trialEligible bool) (*pricing.Result, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	lesson, err := s.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	option, err := s.GetClassOption(ctx, lesson.ClassOptionID)
	if err != nil {
		return nil, err
	}

	result, err := pricing.Quote(option, quantity, trialEligible)
	if err != nil {
		if errors.Is(err, pricing.ErrNoDropIn) {
			return nil, apperrors.Conflict("Class option has no drop-in price")
		}
		return nil, apperrors.Internal("Failed to price lesson", err)
	}
	if result.Currency == "" {
		result.Currency = s.cfg.DefaultCurrency
	}
	return &result, nil
}

func (s *lessonService) CreateClassOption(ctx context.Context, option *model.ClassOption) error {
	option.Name = sanitizer.NormalizeName(option.Name)
	if option.DropIn != nil {
		option.DropIn.Currency = sanitizer.NormalizeCurrency(option.DropIn.Currency)
	}

	if err := s.validator.ValidateClassOption(option); err != nil {
		s.cfg.Log.Warn("Class option validation failed", "error", err)
		return validationError("Class option validation failed", err)
	}

	option.ID = ""
	if err := s.optionRepo.Create(ctx, option); err != nil {
		s.cfg.Log.Error("Failed to create class option", "error", err)
		return apperrors.Internal("Failed to create class option", err)
	}

	s.cfg.Log.Info("Class option created successfully",
		"id", option.ID,
		"name", option.Name,
		"places", option.Places,
	)
	return nil
}

func (s *lessonService) GetClassOption(ctx context.Context, id string) (*model.ClassOption, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Class option ID cannot be empty")
	}

	option, err := s.optionRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, lessonserrors.ErrClassOptionNotFound) {
			return nil, apperrors.NotFoundWithID("Class option", id)
		}
		if errors.Is(err, lessonserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid class option ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve class option", err)
	}
	return option, nil
}

// --- Helpers ---

func (s *lessonService) applyDefaults(l *model.Lesson) {
	if l.Active == nil {
		active := true
		l.Active = &active
	}
	if l.OriginalLockOutTime == nil {
		original := l.LockOutTime
		l.OriginalLockOutTime = &original
	}
	l.StartTime = l.StartTime.UTC()
	l.EndTime = l.EndTime.UTC()
}

func translateLessonError(err error, id, message string) error {
	if errors.Is(err, lessonserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Lesson", id)
	}
	if errors.Is(err, lessonserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid lesson ID format")
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
