package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"studyzone/internal/models"
)

// UserDirectory is the keyed collection of user records. Records are created at registration and
// never updated or deleted.
type UserDirectory interface {
	// GetUserByEmail returns the record stored under email, or qerrors.UserNotFoundError.
	GetUserByEmail(ctx context.Context, email string) (*models.UserRecord, error)
	// CreateUser inserts u, or returns qerrors.EmailExistsError if the email is taken.
	CreateUser(ctx context.Context, u *models.UserRecord) error
}

// CourseCatalog is the keyed collection of course aggregates. Returned courses are always normalized and
// owned by the caller.
type CourseCatalog interface {
	GetCourse(ctx context.Context, code string) (*models.Course, error)
	// CreateCourse writes c, or returns qerrors.CourseExistsError if the code is taken.
	CreateCourse(ctx context.Context, c *models.Course) error
	// SetCourse replaces the aggregate stored under c.Code, creating it if needed.
	SetCourse(ctx context.Context, c *models.Course) error
	// DeleteCourse removes the aggregate, or returns qerrors.CourseNotFoundError.
	DeleteCourse(ctx context.Context, code string) error
	ListCourses(ctx context.Context) ([]*models.Course, error)
	// QueryCourses returns the courses filed under academicYear and semester, in no particular order.
	QueryCourses(ctx context.Context, academicYear, semester string) ([]*models.Course, error)
	// MutateCourse reads the course, applies fn and writes the result back atomically. If another writer
	// changed the course in between, the read and fn are retried. An error from fn aborts without writing.
	MutateCourse(ctx context.Context, code string, fn func(c *models.Course) error) (*models.Course, error)
	// SubscribeCourses calls onChange with the whole collection once it is first read and again after
	// every change, until unsubscribe is called or ctx ends.
	SubscribeCourses(ctx context.Context, onChange func([]*models.Course)) (unsubscribe func(), err error)
}

// Repository is everything the app backend needs from its document store.
type Repository interface {
	UserDirectory
	CourseCatalog
}

// FirebaseRepository keeps users and courses in Cloud Firestore.
type FirebaseRepository struct {
	firestoreClient *firestore.Client
}

var _ Repository = (*FirebaseRepository)(nil)

func NewFirebaseRepository(firestoreClient *firestore.Client) *FirebaseRepository {
	return &FirebaseRepository{firestoreClient: firestoreClient}
}
