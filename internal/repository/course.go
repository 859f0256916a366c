package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"studyzone/internal/models"
	"studyzone/internal/qerrors"
)

// GetCourse gets the course document whose ID is code.
func (fr *FirebaseRepository) GetCourse(ctx context.Context, code string) (*models.Course, error) {
	if err := validateID(code); err != nil {
		return nil, qerrors.CourseNotFoundError
	}

	doc, err := fr.courseRef(code).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, qerrors.CourseNotFoundError
	}
	if err != nil {
		return nil, fmt.Errorf("error getting course: %w", err)
	}

	return decodeCourse(doc.Ref.ID, doc.Data())
}

func (fr *FirebaseRepository) CreateCourse(ctx context.Context, c *models.Course) error {
	if err := validateID(c.Code); err != nil {
		return qerrors.Validation(err)
	}

	c.Normalize()
	_, err := fr.courseRef(c.Code).Create(ctx, c.ToFirestore())
	if status.Code(err) == codes.AlreadyExists {
		return qerrors.CourseExistsError
	}
	if err != nil {
		return fmt.Errorf("error creating course: %w", err)
	}
	return nil
}

func (fr *FirebaseRepository) SetCourse(ctx context.Context, c *models.Course) error {
	if err := validateID(c.Code); err != nil {
		return qerrors.Validation(err)
	}

	c.Normalize()
	if _, err := fr.courseRef(c.Code).Set(ctx, c.ToFirestore()); err != nil {
		return fmt.Errorf("error updating course: %w", err)
	}
	return nil
}

func (fr *FirebaseRepository) DeleteCourse(ctx context.Context, code string) error {
	if err := validateID(code); err != nil {
		return qerrors.CourseNotFoundError
	}

	_, err := fr.courseRef(code).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return qerrors.CourseNotFoundError
	}
	if err != nil {
		return fmt.Errorf("error deleting course: %w", err)
	}
	return nil
}

func (fr *FirebaseRepository) ListCourses(ctx context.Context) ([]*models.Course, error) {
	return fr.queryCourses(ctx, fr.firestoreClient.Collection(models.FirestoreCoursesCollection).Query)
}

func (fr *FirebaseRepository) QueryCourses(ctx context.Context, academicYear, semester string) ([]*models.Course, error) {
	q := fr.firestoreClient.Collection(models.FirestoreCoursesCollection).
		Where("academicYear", "==", academicYear).
		Where("semester", "==", semester)
	return fr.queryCourses(ctx, q)
}

// MutateCourse runs fn inside a Firestore transaction. Firestore retries the transaction when the document
// changes underneath it, so concurrent appends to the same list are never lost.
func (fr *FirebaseRepository) MutateCourse(ctx context.Context, code string, fn func(c *models.Course) error) (*models.Course, error) {
	if err := validateID(code); err != nil {
		return nil, qerrors.CourseNotFoundError
	}

	ref := fr.courseRef(code)
	var updated *models.Course
	err := fr.firestoreClient.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return qerrors.CourseNotFoundError
		}
		if err != nil {
			return err
		}

		course, err := decodeCourse(doc.Ref.ID, doc.Data())
		if err != nil {
			return err
		}
		if err := fn(course); err != nil {
			return err
		}

		course.Code = code
		course.Normalize()
		updated = course
		return tx.Set(ref, course.ToFirestore())
	})
	if err != nil {
		if _, ok := qerrors.Known(err); ok || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating course: %w", err)
	}

	return updated, nil
}

// Helpers

func (fr *FirebaseRepository) courseRef(code string) *firestore.DocumentRef {
	return fr.firestoreClient.Collection(models.FirestoreCoursesCollection).Doc(code)
}

func (fr *FirebaseRepository) queryCourses(ctx context.Context, q firestore.Query) ([]*models.Course, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing courses: %w", err)
	}
	return decodeCourses(docs)
}

func decodeCourses(docs []*firestore.DocumentSnapshot) ([]*models.Course, error) {
	courses := make([]*models.Course, 0, len(docs))
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		c, err := decodeCourse(doc.Ref.ID, doc.Data())
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}
