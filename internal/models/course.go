package models

var (
	FirestoreCoursesCollection = "courses"
)

// Academic years a course can be filed under.
const (
	FirstYear  = "first_year"
	SecondYear = "second_year"
	ThirdYear  = "third_year"
	FourthYear = "fourth_year"
)

// Semesters a course can be filed under.
const (
	FirstSemester  = "first_semester"
	SecondSemester = "second_semester"
)

// Course is a document of the courses collection. Code doubles as the document ID and is immutable once
// the course exists.
//
// The three resource lists are always non-nil after decoding; a document without the field yields an
// empty list.
type Course struct {
	Code         string      `json:"code" mapstructure:"code" validate:"required,excludesall=/"`
	Title        string      `json:"title" mapstructure:"title" validate:"required"`
	Students     int         `json:"students" mapstructure:"students" validate:"gte=0"`
	Materials    int         `json:"materials" mapstructure:"materials" validate:"gte=0"`
	Image        string      `json:"image" mapstructure:"image"`
	AcademicYear string      `json:"academicYear" mapstructure:"academicYear" validate:"required,oneof=first_year second_year third_year fourth_year"`
	Semester     string      `json:"semester" mapstructure:"semester" validate:"required,oneof=first_semester second_semester"`
	PastPapers   []PastPaper `json:"pastPapers" mapstructure:"pastPapers"`
	Quizzes      []Quiz      `json:"quizzes" mapstructure:"quizzes"`
	Videos       []VideoLink `json:"videos" mapstructure:"videos"`
}

// Normalize replaces missing resource lists with empty ones.
func (c *Course) Normalize() {
	if c.PastPapers == nil {
		c.PastPapers = []PastPaper{}
	}
	if c.Quizzes == nil {
		c.Quizzes = []Quiz{}
	}
	if c.Videos == nil {
		c.Videos = []VideoLink{}
	}
}

// Clone returns a deep copy of the course, including its resource lists.
func (c *Course) Clone() *Course {
	clone := *c
	clone.PastPapers = append([]PastPaper{}, c.PastPapers...)
	clone.Quizzes = append([]Quiz{}, c.Quizzes...)
	clone.Videos = append([]VideoLink{}, c.Videos...)
	return &clone
}

// ToFirestore returns the document body written for the course. The legacy "id" field mirrors the code.
func (c *Course) ToFirestore() map[string]interface{} {
	pastPapers := make([]interface{}, 0, len(c.PastPapers))
	for _, p := range c.PastPapers {
		pastPapers = append(pastPapers, p.toFirestore())
	}
	quizzes := make([]interface{}, 0, len(c.Quizzes))
	for _, q := range c.Quizzes {
		quizzes = append(quizzes, q.toFirestore())
	}
	videos := make([]interface{}, 0, len(c.Videos))
	for _, v := range c.Videos {
		videos = append(videos, v.toFirestore())
	}

	return map[string]interface{}{
		"id":           c.Code,
		"code":         c.Code,
		"title":        c.Title,
		"students":     c.Students,
		"materials":    c.Materials,
		"image":        c.Image,
		"academicYear": c.AcademicYear,
		"semester":     c.Semester,
		"pastPapers":   pastPapers,
		"quizzes":      quizzes,
		"videos":       videos,
	}
}

// CatalogStats are the totals shown on the admin dashboard.
type CatalogStats struct {
	Courses   int `json:"courses"`
	Students  int `json:"students"`
	Materials int `json:"materials"`
}

type GetCoursesRequest struct {
	AcademicYear string `json:"academicYear" validate:"omitempty,oneof=first_year second_year third_year fourth_year"`
	Semester     string `json:"semester" validate:"omitempty,oneof=first_semester second_semester"`
}

type DeleteCourseRequest struct {
	CourseID string `json:"courseID"`
	// Purge also removes every blob referenced by the course.
	Purge bool `json:"purge"`
}
