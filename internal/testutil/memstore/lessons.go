package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	lessonserrors "classbook/internal/lessons/errors"
	lessonsrepo "classbook/internal/lessons/repository"
	mongotx "classbook/pkg/db/mongo"
	"classbook/pkg/model"
)

type Lessons struct{ s *Store }

var _ lessonsrepo.LessonRepository = (*Lessons)(nil)

func (s *Store) Lessons() *Lessons { return &Lessons{s: s} }

// Put stores lesson as-is, assigning an ID when empty.
func (r *Lessons) Put(lesson *model.Lesson) *model.Lesson {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if lesson.ID == "" {
		lesson.ID = newID()
	}
	c := *lesson
	r.s.lessons[lesson.ID] = &c
	return lesson
}

func (r *Lessons) Create(_ context.Context, lesson *model.Lesson) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Lessons.Create"); err != nil {
		return err
	}
	lesson.ID = newID()
	lesson.CreatedAt = r.s.tick()
	c := *lesson
	r.s.lessons[lesson.ID] = &c
	return nil
}

func (r *Lessons) FindByID(_ context.Context, id string) (*model.Lesson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Lessons.FindByID"); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", lessonserrors.ErrInvalidID, id)
	}
	lesson, ok := r.s.lessons[id]
	if !ok {
		return nil, lessonserrors.ErrNotFound
	}
	c := *lesson
	return &c, nil
}

func (r *Lessons) FindAll(_ context.Context, from, to *time.Time, limit int, offset int64) ([]*model.Lesson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := r.inRange(from, to)
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.Before(matched[j].StartTime) })

	start := min(int(offset), len(matched))
	end := min(start+limit, len(matched))
	return matched[start:end], nil
}

func (r *Lessons) Count(_ context.Context, from, to *time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.inRange(from, to))), nil
}

func (r *Lessons) inRange(from, to *time.Time) []*model.Lesson {
	var out []*model.Lesson
	for _, lesson := range r.s.lessons {
		if from != nil && lesson.StartTime.Before(*from) {
			continue
		}
		if to != nil && !lesson.StartTime.Before(*to) {
			continue
		}
		c := *lesson
		out = append(out, &c)
	}
	return out
}

func (r *Lessons) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !validID(id) {
		return fmt.Errorf("%w: %s", lessonserrors.ErrInvalidID, id)
	}
	if _, ok := r.s.lessons[id]; !ok {
		return lessonserrors.ErrNotFound
	}
	delete(r.s.lessons, id)
	return nil
}

func (r *Lessons) ClearLockOut(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Lessons.ClearLockOut"); err != nil {
		return err
	}
	lesson, ok := r.s.lessons[id]
	if !ok {
		return lessonserrors.ErrNotFound
	}
	lesson.LockOutTime = 0
	return nil
}

func (r *Lessons) RestoreLockOut(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("Lessons.RestoreLockOut"); err != nil {
		return err
	}
	lesson, ok := r.s.lessons[id]
	if !ok {
		return lessonserrors.ErrNotFound
	}
	if lesson.OriginalLockOutTime != nil {
		lesson.LockOutTime = *lesson.OriginalLockOutTime
	}
	return nil
}

func (r *Lessons) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.s.ExecuteTransaction(ctx, fn)
}

type ClassOptions struct{ s *Store }

var _ lessonsrepo.ClassOptionRepository = (*ClassOptions)(nil)

func (s *Store) ClassOptions() *ClassOptions { return &ClassOptions{s: s} }

func (r *ClassOptions) Put(option *model.ClassOption) *model.ClassOption {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if option.ID == "" {
		option.ID = newID()
	}
	c := *option
	r.s.options[option.ID] = &c
	return option
}

func (r *ClassOptions) Create(_ context.Context, option *model.ClassOption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	option.ID = newID()
	option.CreatedAt = r.s.tick()
	c := *option
	r.s.options[option.ID] = &c
	return nil
}

func (r *ClassOptions) FindByID(_ context.Context, id string) (*model.ClassOption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", lessonserrors.ErrInvalidID, id)
	}
	option, ok := r.s.options[id]
	if !ok {
		return nil, lessonserrors.ErrClassOptionNotFound
	}
	c := *option
	return &c, nil
}
