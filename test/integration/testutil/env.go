package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"classbook/pkg/client"
)

const (
	EnvBaseURL         = "CLASSBOOK_BASE_URL"
	HealthCheckTimeout = 30 * time.Second
)

type TestEnv struct {
	Lessons  *client.LessonClient
	Bookings *client.BookingClient
}

// Setup skips the test unless CLASSBOOK_BASE_URL points at a running
// bookings service, and waits for it to report ready.
func Setup(t *testing.T) *TestEnv {
	t.Helper()

	baseURL := os.Getenv(EnvBaseURL)
	if baseURL == "" {
		t.Skipf("%s not set, skipping integration test", EnvBaseURL)
	}

	if err := client.NewHttpClient(baseURL).WaitForHealthy(context.Background(), HealthCheckTimeout); err != nil {
		t.Fatalf("service not ready: %v", err)
	}

	return &TestEnv{
		Lessons:  client.NewLessonClient(baseURL),
		Bookings: client.NewBookingClient(baseURL),
	}
}
