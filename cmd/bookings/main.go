package main

import (
	"classbook/internal/admission"
	"classbook/internal/bookings/handler"
	bookingsrepo "classbook/internal/bookings/repository"
	bookingsservice "classbook/internal/bookings/service"
	bookingsvalidator "classbook/internal/bookings/validator"
	"classbook/internal/events"
	lessonshandler "classbook/internal/lessons/handler"
	lessonsrepo "classbook/internal/lessons/repository"
	lessonsservice "classbook/internal/lessons/service"
	lessonsvalidator "classbook/internal/lessons/validator"
	"classbook/internal/lockout"
	transactionsrepo "classbook/internal/transactions/repository"
	usersrepo "classbook/internal/users/repository"
	usersservice "classbook/internal/users/service"
	"classbook/pkg/app"
	"classbook/pkg/cache"
	"classbook/pkg/config"
	"classbook/pkg/contracts"
	kafka_middleware "classbook/pkg/kafka/middleware"
)

const ServiceName = "bookings"

type services struct {
	lessons   lessonsservice.LessonService
	bookings  bookingsservice.BookingService
	users     usersservice.UserService
	admission admission.Service
	publisher events.Publisher
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	svc := initServices(cfg)
	defer func() {
		if err := svc.publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Client.Redis, cfg.Log),
		[]contracts.Handler{
			lessonshandler.NewLessonHandler(svc.lessons, cfg.Log),
			handler.NewBookingHandler(svc.bookings, svc.users, cfg.Log),
			admission.NewHandler(svc.admission, cfg.Log),
		}...,
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) *services {
	lessonRepo := lessonsrepo.NewMongoLessonRepository(cfg)
	optionRepo := lessonsrepo.NewMongoClassOptionRepository(cfg)
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	lockRepo := bookingsrepo.NewBookingLockRepository(cfg)
	transactionRepo := transactionsrepo.NewMongoTransactionRepository(cfg)
	userRepo := usersrepo.NewMongoUserRepository(cfg)

	publisher, err := events.NewPublisher(cfg, &kafka_middleware.Metrics{})
	if err != nil {
		cfg.Log.Fatal("Failed to create event publisher", "error", err)
	}

	availabilityCache := cache.NewAvailabilityCache(cfg.Client.Redis, cfg.AvailabilityCacheTTL, cfg.Log)
	bookingValidator := bookingsvalidator.NewBookingValidator(cfg.Log)
	lockoutManager := lockout.NewManager(lessonRepo, bookingRepo, cfg.Log)
	locker := bookingsservice.NewLessonLocker(lockRepo, cfg.LessonLockTTL, cfg.LessonLockWait, cfg.Log)

	lessonService := lessonsservice.NewLessonService(
		lessonRepo,
		optionRepo,
		bookingRepo,
		availabilityCache,
		lessonsvalidator.NewLessonValidator(cfg.Log),
		cfg,
	)
	userService := usersservice.NewUserService(userRepo, cfg)
	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		transactionRepo,
		lessonService,
		lockoutManager,
		locker,
		publisher,
		bookingValidator,
		cfg,
	)
	admissionService := admission.NewService(
		lessonService,
		bookingRepo,
		transactionRepo,
		userService,
		lockoutManager,
		locker,
		publisher,
		bookingValidator,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return &services{
		lessons:   lessonService,
		bookings:  bookingService,
		users:     userService,
		admission: admissionService,
		publisher: publisher,
	}
}
