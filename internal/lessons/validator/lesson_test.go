package validator

import (
	"errors"
	"testing"
	"time"

	"classbook/pkg/logger"
	"classbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func intPtr(v int) *int { return &v }

func validLesson() *model.Lesson {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	return &model.Lesson{
		ClassOptionID: primitive.NewObjectID().Hex(),
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		LockOutTime:   60,
	}
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	var out []string
	for _, e := range verrs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateLesson(t *testing.T) {
	v := NewLessonValidator(logger.Discard())

	tests := []struct {
		name       string
		mutate     func(*model.Lesson)
		wantFields []string
	}{
		{name: "valid", mutate: func(*model.Lesson) {}},
		{
			name:       "missing class option",
			mutate:     func(l *model.Lesson) { l.ClassOptionID = "" },
			wantFields: []string{"class_option_id"},
		},
		{
			name:       "bad class option id",
			mutate:     func(l *model.Lesson) { l.ClassOptionID = "nope" },
			wantFields: []string{"class_option_id"},
		},
		{
			name:       "end before start",
			mutate:     func(l *model.Lesson) { l.EndTime = l.StartTime.Add(-time.Minute) },
			wantFields: []string{"end_time"},
		},
		{
			name:       "negative lockout",
			mutate:     func(l *model.Lesson) { l.LockOutTime = -1 },
			wantFields: []string{"lock_out_time"},
		},
		{
			name:   "cleared lockout with original",
			mutate: func(l *model.Lesson) { l.LockOutTime = 0; l.OriginalLockOutTime = intPtr(60) },
		},
		{
			name:       "lockout differs from original",
			mutate:     func(l *model.Lesson) { l.LockOutTime = 30; l.OriginalLockOutTime = intPtr(60) },
			wantFields: []string{"lock_out_time"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lesson := validLesson()
			tt.mutate(lesson)
			err := v.ValidateLesson(lesson)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantFields, fieldsOf(t, err))
		})
	}
}

func TestValidateClassOption(t *testing.T) {
	v := NewLessonValidator(logger.Discard())

	valid := &model.ClassOption{
		Name:   "Morning Flow",
		Places: 12,
		DropIn: &model.DropIn{
			Price:    20,
			Currency: "EUR",
			DiscountTiers: []model.DiscountTier{
				{MinQuantity: 3, DiscountPercent: 10, Type: model.DiscountNormal},
				{MinQuantity: 1, DiscountPercent: 50, Type: model.DiscountTrial},
			},
		},
	}
	assert.NoError(t, v.ValidateClassOption(valid))

	t.Run("zero places", func(t *testing.T) {
		option := *valid
		option.Places = 0
		assert.Equal(t, []string{"places"}, fieldsOf(t, v.ValidateClassOption(&option)))
	})

	t.Run("tier percent above 100", func(t *testing.T) {
		option := *valid
		dropIn := *valid.DropIn
		dropIn.DiscountTiers = []model.DiscountTier{{MinQuantity: 2, DiscountPercent: 120, Type: model.DiscountNormal}}
		option.DropIn = &dropIn
		assert.Equal(t, []string{"drop_in.discount_tiers[0].discount_percent"}, fieldsOf(t, v.ValidateClassOption(&option)))
	})

	t.Run("unknown tier type", func(t *testing.T) {
		option := *valid
		dropIn := *valid.DropIn
		dropIn.DiscountTiers = []model.DiscountTier{{MinQuantity: 2, DiscountPercent: 10, Type: "vip"}}
		option.DropIn = &dropIn
		assert.Equal(t, []string{"drop_in.discount_tiers[0].type"}, fieldsOf(t, v.ValidateClassOption(&option)))
	})

	t.Run("duplicate tier", func(t *testing.T) {
		option := *valid
		dropIn := *valid.DropIn
		dropIn.DiscountTiers = []model.DiscountTier{
			{MinQuantity: 2, DiscountPercent: 10, Type: model.DiscountNormal},
			{MinQuantity: 2, DiscountPercent: 15, Type: model.DiscountNormal},
		}
		option.DropIn = &dropIn
		assert.Equal(t, []string{"drop_in.discount_tiers[1]"}, fieldsOf(t, v.ValidateClassOption(&option)))
	})

	t.Run("bad currency", func(t *testing.T) {
		option := *valid
		dropIn := *valid.DropIn
		dropIn.Currency = "EURO"
		option.DropIn = &dropIn
		assert.Equal(t, []string{"drop_in.currency"}, fieldsOf(t, v.ValidateClassOption(&option)))
	})
}
