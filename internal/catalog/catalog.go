// Package catalog implements course management and the per-course resource lists (past papers, quizzes
// and videos) on top of a CourseCatalog and a blob.Store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang/glog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studyzone/internal/blob"
	"studyzone/internal/metrics"
	"studyzone/internal/models"
	"studyzone/internal/qerrors"
	"studyzone/internal/repository"
)

// purgeConcurrency bounds the blob deletions in flight when a course is purged.
const purgeConcurrency = 4

type Options struct {
	Courses repository.CourseCatalog
	Blobs   blob.Store
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Now stamps uploads. Defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	courses  repository.CourseCatalog
	blobs    blob.Store
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		courses:  opts.Courses,
		blobs:    opts.Blobs,
		validate: validator.New(),
		logger:   logger,
		metrics:  opts.Metrics,
		now:      now,
	}
}

// GetCourse reads a course aggregate by code.
func (s *Service) GetCourse(ctx context.Context, code string) (*models.Course, error) {
	c, err := s.courses.GetCourse(ctx, code)
	return c, qerrors.Action("failed to load course", err)
}

// QueryCourses returns the courses filed under academicYear and semester. With both empty it returns
// every course.
func (s *Service) QueryCourses(ctx context.Context, req *models.GetCoursesRequest) ([]*models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, qerrors.Action("failed to load courses", qerrors.Validation(err))
	}

	var courses []*models.Course
	var err error
	switch {
	case req.AcademicYear == "" && req.Semester == "":
		courses, err = s.courses.ListCourses(ctx)
	case req.AcademicYear == "" || req.Semester == "":
		err = qerrors.Validation(errors.New("academicYear and semester must be given together"))
	default:
		courses, err = s.courses.QueryCourses(ctx, req.AcademicYear, req.Semester)
	}
	if err != nil {
		return nil, qerrors.Action("failed to load courses", err)
	}
	return courses, nil
}

// CreateCourse stores a new course. It fails with qerrors.CourseExistsError if the code is taken.
func (s *Service) CreateCourse(ctx context.Context, c *models.Course) error {
	err := s.createCourse(ctx, c)
	s.metrics.ResourceOp("course", "create", err)
	return qerrors.Action("failed to create course", err)
}

func (s *Service) createCourse(ctx context.Context, c *models.Course) error {
	c.Code = strings.TrimSpace(c.Code)
	if err := s.validate.Struct(c); err != nil {
		return qerrors.Validation(err)
	}
	c.Normalize()
	return s.courses.CreateCourse(ctx, c)
}

// UpdateCourse replaces the course stored under c.Code. A resource list left nil keeps its stored
// contents, so an edit of the course details cannot drop uploads that landed meanwhile; a non-nil list,
// even an empty one, replaces it.
func (s *Service) UpdateCourse(ctx context.Context, c *models.Course) error {
	err := s.updateCourse(ctx, c)
	s.metrics.ResourceOp("course", "update", err)
	return qerrors.Action("failed to update course", err)
}

func (s *Service) updateCourse(ctx context.Context, c *models.Course) error {
	c.Code = strings.TrimSpace(c.Code)
	if err := s.validate.Struct(c); err != nil {
		return qerrors.Validation(err)
	}

	if c.PastPapers != nil && c.Quizzes != nil && c.Videos != nil {
		return s.courses.SetCourse(ctx, c)
	}

	_, err := s.courses.MutateCourse(ctx, c.Code, func(current *models.Course) error {
		next := c.Clone()
		if c.PastPapers == nil {
			next.PastPapers = current.PastPapers
		}
		if c.Quizzes == nil {
			next.Quizzes = current.Quizzes
		}
		if c.Videos == nil {
			next.Videos = current.Videos
		}
		*current = *next
		return nil
	})
	if errors.Is(err, qerrors.CourseNotFoundError) {
		c.Normalize()
		return s.courses.SetCourse(ctx, c)
	}
	return err
}

// DeleteCourse removes a course. With Purge set the files of its past papers and quizzes are deleted from
// blob storage first; otherwise they are left in place.
func (s *Service) DeleteCourse(ctx context.Context, req *models.DeleteCourseRequest) error {
	err := s.deleteCourse(ctx, req)
	s.metrics.ResourceOp("course", "delete", err)
	return qerrors.Action("failed to delete course", err)
}

func (s *Service) deleteCourse(ctx context.Context, req *models.DeleteCourseRequest) error {
	if req.Purge {
		c, err := s.courses.GetCourse(ctx, req.CourseID)
		if err != nil {
			return err
		}
		if err := s.purgeBlobs(ctx, c); err != nil {
			return err
		}
	}
	return s.courses.DeleteCourse(ctx, req.CourseID)
}

func (s *Service) purgeBlobs(ctx context.Context, c *models.Course) error {
	paths := make(map[string]struct{})
	for _, p := range c.PastPapers {
		paths[blob.Path(blob.PastPapers, c.Code, p.Name)] = struct{}{}
	}
	for _, q := range c.Quizzes {
		paths[blob.Path(blob.Quizzes, c.Code, q.FileName)] = struct{}{}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(purgeConcurrency)
	for p := range paths {
		p := p
		g.Go(func() error {
			err := s.blobs.Delete(ctx, p)
			if errors.Is(err, qerrors.BlobNotFoundError) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("error deleting %s: %w", p, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// SubscribeCourses forwards every snapshot of the courses collection to onChange until unsubscribe is
// called or ctx ends.
func (s *Service) SubscribeCourses(ctx context.Context, onChange func([]*models.Course)) (func(), error) {
	unsubscribe, err := s.courses.SubscribeCourses(ctx, onChange)
	if err != nil {
		return nil, qerrors.Action("failed to watch courses", err)
	}
	return unsubscribe, nil
}

// Stats sums the counters of every course for the admin dashboard. Missing counters count as zero.
func (s *Service) Stats(ctx context.Context) (*models.CatalogStats, error) {
	courses, err := s.courses.ListCourses(ctx)
	if err != nil {
		return nil, qerrors.Action("failed to load statistics", err)
	}

	stats := &models.CatalogStats{Courses: len(courses)}
	for _, c := range courses {
		stats.Students += c.Students
		stats.Materials += c.Materials
	}
	return stats, nil
}

// warnPartial records a resource whose bytes and metadata no longer agree.
func (s *Service) warnPartial(what, courseID, path string, err error) {
	glog.Warningf("%s for course %s left blob %s without matching metadata: %v\n", what, courseID, path, err)
	s.logger.Warn("blob and course metadata out of sync",
		zap.String("operation", what),
		zap.String("course", courseID),
		zap.String("path", path),
		zap.Error(err),
	)
}
