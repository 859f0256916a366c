// Package inmem is a process-local Repository, used by tests and by the memory backend.
package inmem

import (
	"context"
	"sort"
	"sync"

	"studyzone/internal/models"
	"studyzone/internal/qerrors"
	"studyzone/internal/repository"
)

type courseRow struct {
	course  *models.Course
	version uint64
}

// DB holds users and courses. Courses carry a version that MutateCourse compares before writing.
type DB struct {
	mutex   sync.RWMutex
	users   map[string]*models.UserRecord
	courses map[string]*courseRow
	failure error

	subsMutex sync.Mutex
	subs      []*repository.Subscription
}

var _ repository.Repository = (*DB)(nil)

func New() *DB {
	return &DB{
		users:   make(map[string]*models.UserRecord),
		courses: make(map[string]*courseRow),
	}
}

// SetFailure makes every following call return err, as an unreachable backend would. Pass nil to recover.
func (db *DB) SetFailure(err error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.failure = err
}

// Users

func (db *DB) GetUserByEmail(_ context.Context, email string) (*models.UserRecord, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	if db.failure != nil {
		return nil, db.failure
	}

	if u, ok := db.users[email]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, qerrors.UserNotFoundError
}

func (db *DB) CreateUser(_ context.Context, u *models.UserRecord) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if db.failure != nil {
		return db.failure
	}

	if _, ok := db.users[u.Email]; ok {
		return qerrors.EmailExistsError
	}
	clone := *u
	db.users[u.Email] = &clone
	return nil
}

// Courses

func (db *DB) GetCourse(_ context.Context, code string) (*models.Course, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	if db.failure != nil {
		return nil, db.failure
	}

	row, ok := db.courses[code]
	if !ok {
		return nil, qerrors.CourseNotFoundError
	}
	return row.course.Clone(), nil
}

func (db *DB) CreateCourse(_ context.Context, c *models.Course) error {
	if err := db.write(c.Code, func(row *courseRow, exists bool) (*courseRow, error) {
		if exists {
			return nil, qerrors.CourseExistsError
		}
		return &courseRow{course: normalized(c), version: 1}, nil
	}); err != nil {
		return err
	}
	db.notify()
	return nil
}

func (db *DB) SetCourse(_ context.Context, c *models.Course) error {
	if err := db.write(c.Code, func(row *courseRow, exists bool) (*courseRow, error) {
		version := uint64(1)
		if exists {
			version = row.version + 1
		}
		return &courseRow{course: normalized(c), version: version}, nil
	}); err != nil {
		return err
	}
	db.notify()
	return nil
}

func (db *DB) DeleteCourse(_ context.Context, code string) error {
	if err := db.write(code, func(row *courseRow, exists bool) (*courseRow, error) {
		if !exists {
			return nil, qerrors.CourseNotFoundError
		}
		return nil, nil
	}); err != nil {
		return err
	}
	db.notify()
	return nil
}

func (db *DB) ListCourses(_ context.Context) ([]*models.Course, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	if db.failure != nil {
		return nil, db.failure
	}
	return db.query(func(*models.Course) bool { return true }), nil
}

func (db *DB) QueryCourses(_ context.Context, academicYear, semester string) ([]*models.Course, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	if db.failure != nil {
		return nil, db.failure
	}
	return db.query(func(c *models.Course) bool {
		return c.AcademicYear == academicYear && c.Semester == semester
	}), nil
}

// MutateCourse applies fn to a copy of the course and stores the result only if no other write landed
// since the copy was taken. Otherwise it starts over with a fresh copy.
func (db *DB) MutateCourse(ctx context.Context, code string, fn func(c *models.Course) error) (*models.Course, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		db.mutex.RLock()
		if db.failure != nil {
			db.mutex.RUnlock()
			return nil, db.failure
		}
		row, ok := db.courses[code]
		if !ok {
			db.mutex.RUnlock()
			return nil, qerrors.CourseNotFoundError
		}
		course, version := row.course.Clone(), row.version
		db.mutex.RUnlock()

		if err := fn(course); err != nil {
			return nil, err
		}
		course.Code = code

		conflict := false
		err := db.write(code, func(row *courseRow, exists bool) (*courseRow, error) {
			if !exists {
				return nil, qerrors.CourseNotFoundError
			}
			if row.version != version {
				conflict = true
				return row, nil
			}
			return &courseRow{course: normalized(course), version: version + 1}, nil
		})
		if err != nil {
			return nil, err
		}
		if conflict {
			continue
		}

		db.notify()
		return course.Clone(), nil
	}
}

// SubscribeCourses delivers the current collection before returning, then once after every write.
func (db *DB) SubscribeCourses(ctx context.Context, onChange func([]*models.Course)) (func(), error) {
	courses, err := db.ListCourses(ctx)
	if err != nil {
		return nil, err
	}

	sub := repository.NewSubscription(onChange, nil)
	unsubscribe := func() {
		sub.Stop()
		db.removeSubscription(sub)
	}
	stopOnDone := context.AfterFunc(ctx, unsubscribe)

	db.subsMutex.Lock()
	db.subs = append(db.subs, sub)
	db.subsMutex.Unlock()

	sub.Deliver(courses)

	return func() {
		stopOnDone()
		unsubscribe()
	}, nil
}

// Helpers

// write runs fn under the write lock. fn returns the row to store; a nil row deletes the course.
func (db *DB) write(code string, fn func(row *courseRow, exists bool) (*courseRow, error)) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if db.failure != nil {
		return db.failure
	}

	row, exists := db.courses[code]
	next, err := fn(row, exists)
	if err != nil {
		return err
	}
	if next == nil {
		delete(db.courses, code)
	} else {
		db.courses[code] = next
	}
	return nil
}

func (db *DB) query(match func(*models.Course) bool) []*models.Course {
	courses := make([]*models.Course, 0, len(db.courses))
	for _, row := range db.courses {
		if match(row.course) {
			courses = append(courses, row.course.Clone())
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses
}

func (db *DB) notify() {
	db.subsMutex.Lock()
	subs := append([]*repository.Subscription(nil), db.subs...)
	db.subsMutex.Unlock()
	if len(subs) == 0 {
		return
	}

	db.mutex.RLock()
	courses := db.query(func(*models.Course) bool { return true })
	db.mutex.RUnlock()

	for _, sub := range subs {
		snapshot := make([]*models.Course, 0, len(courses))
		for _, c := range courses {
			snapshot = append(snapshot, c.Clone())
		}
		sub.Deliver(snapshot)
	}
}

func (db *DB) removeSubscription(sub *repository.Subscription) {
	db.subsMutex.Lock()
	defer db.subsMutex.Unlock()
	for i, s := range db.subs {
		if s == sub {
			db.subs = append(db.subs[:i], db.subs[i+1:]...)
			return
		}
	}
}

func normalized(c *models.Course) *models.Course {
	clone := c.Clone()
	clone.Normalize()
	return clone
}
