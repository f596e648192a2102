package testutil

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"classbook/pkg/client"
	"classbook/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type ClassOptionBuilder struct {
	option model.ClassOption
}

func NewClassOptionBuilder() *ClassOptionBuilder {
	return &ClassOptionBuilder{
		option: model.ClassOption{
			Name:   "Morning Flow",
			Places: 10,
			DropIn: &model.DropIn{Price: 20, Currency: "EUR"},
		},
	}
}

func (b *ClassOptionBuilder) WithPlaces(places int) *ClassOptionBuilder {
	b.option.Places = places
	return b
}

func (b *ClassOptionBuilder) WithTier(minQuantity int, percent float64, kind model.DiscountType) *ClassOptionBuilder {
	b.option.DropIn.DiscountTiers = append(b.option.DropIn.DiscountTiers, model.DiscountTier{
		MinQuantity:     minQuantity,
		DiscountPercent: percent,
		Type:            kind,
	})
	return b
}

func (b *ClassOptionBuilder) Create(t *testing.T, env *TestEnv) *model.ClassOption {
	t.Helper()
	resp, err := env.Lessons.CreateClassOption(context.Background(), &b.option)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.ToString())
	option, err := env.Lessons.DecodeClassOption(resp)
	require.NoError(t, err)
	return option
}

// CreateLesson schedules a lesson of option two days out.
func CreateLesson(t *testing.T, env *TestEnv, option *model.ClassOption, lockOut int) *model.Lesson {
	t.Helper()
	start := time.Now().Add(48 * time.Hour).Truncate(time.Minute)
	resp, err := env.Lessons.Create(context.Background(), &model.Lesson{
		ClassOptionID: option.ID,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		LockOutTime:   lockOut,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.ToString())
	lesson, err := env.Lessons.DecodeLesson(resp)
	require.NoError(t, err)
	return lesson
}

// NewAttendee returns an attendee with an address unique to this run.
func NewAttendee(name string) model.Attendee {
	return model.Attendee{Name: name, Email: fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8])}
}

func IdentityOf(a model.Attendee) *model.Identity {
	return &model.Identity{ID: "gw-" + a.Email, Email: a.Email, Name: a.Name}
}

func Availability(t *testing.T, env *TestEnv, lessonID string) *client.Availability {
	t.Helper()
	resp, err := env.Lessons.Availability(context.Background(), lessonID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.ToString())
	availability, err := env.Lessons.DecodeAvailability(resp)
	require.NoError(t, err)
	return availability
}

// LockOutTime reads the lesson's current lockout minutes.
func LockOutTime(t *testing.T, env *TestEnv, lessonID string) int {
	t.Helper()
	resp, err := env.Lessons.GetByID(context.Background(), lessonID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.ToString())

	var body struct {
		Data struct {
			Lesson model.Lesson `json:"lesson"`
		} `json:"data"`
	}
	require.NoError(t, resp.DecodeJSON(&body))
	return body.Data.Lesson.LockOutTime
}
