package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"studyzone/internal/models"
)

func TestDecodeCourseDefaultsMissingLists(t *testing.T) {
	c, err := decodeCourse("ICT2113", map[string]interface{}{
		"title":        "Databases",
		"academicYear": models.SecondYear,
		"semester":     models.FirstSemester,
	})
	require.NoError(t, err)

	assert.Equal(t, "ICT2113", c.Code)
	assert.NotNil(t, c.PastPapers)
	assert.NotNil(t, c.Quizzes)
	assert.NotNil(t, c.Videos)
	assert.Empty(t, c.PastPapers)
	assert.Empty(t, c.Quizzes)
	assert.Empty(t, c.Videos)
}

func TestDecodeCourseLegacyShapes(t *testing.T) {
	uploaded := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c, err := decodeCourse("ICT2113", map[string]interface{}{
		"id":       "ICT2113",
		"code":     "ICT2113",
		"title":    "Databases",
		"students": int64(120),
		// Older documents store counters as strings.
		"materials": "7",
		"pastPapers": []interface{}{
			map[string]interface{}{
				"id":         "midterm.pdf-1",
				"name":       "midterm.pdf",
				"url":        "https://example.com/midterm.pdf",
				"uploadDate": uploaded,
				"size":       "1.25",
			},
		},
		"quizzes": []interface{}{
			map[string]interface{}{
				"id":         "w1.pdf-1",
				"title":      "Week 1",
				"uploadDate": "2024-03-01T10:00:00Z",
				"questions":  int64(10),
				"fileName":   "w1.pdf",
			},
		},
		"videos": nil,
	})
	require.NoError(t, err)

	assert.Equal(t, 120, c.Students)
	assert.Equal(t, 7, c.Materials)
	require.Len(t, c.PastPapers, 1)
	assert.Equal(t, "midterm.pdf", c.PastPapers[0].Name)
	assert.True(t, uploaded.Equal(c.PastPapers[0].UploadDate))
	require.Len(t, c.Quizzes, 1)
	assert.True(t, uploaded.Equal(c.Quizzes[0].UploadDate))
	assert.Equal(t, 10, c.Quizzes[0].Questions)
	assert.NotNil(t, c.Videos)
}

func TestDecodeCourseKeysByDocumentID(t *testing.T) {
	c, err := decodeCourse("ICT2113", map[string]interface{}{
		"id":           "ICT2113",
		"code":         "ict-2113",
		"title":        "Databases",
		"academicYear": models.SecondYear,
		"semester":     models.FirstSemester,
	})
	require.NoError(t, err)
	assert.Equal(t, "ICT2113", c.Code)
}

func TestDecodeUser(t *testing.T) {
	u, err := decodeUser("alice@uni.edu", map[string]interface{}{
		"name":      "Alice",
		"password":  "digest",
		"isAdmin":   true,
		"createdAt": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@uni.edu", u.Email)
	assert.Equal(t, "digest", u.Password)
	assert.Equal(t, models.RoleAdmin, u.Profile().Role)
}

func TestSubscriptionStop(t *testing.T) {
	calls := 0
	cancelled := false
	sub := NewSubscription(func([]*models.Course) { calls++ }, func() { cancelled = true })

	sub.Deliver(nil)
	sub.Stop()
	sub.Stop()
	sub.Deliver(nil)

	assert.Equal(t, 1, calls)
	assert.True(t, cancelled)
}

func TestListenerStopped(t *testing.T) {
	assert.True(t, listenerStopped(iterator.Done))
	assert.True(t, listenerStopped(status.Error(codes.Canceled, "context canceled")))
	assert.True(t, listenerStopped(status.Error(codes.DeadlineExceeded, "deadline exceeded")))
	assert.False(t, listenerStopped(status.Error(codes.Unavailable, "connection reset")))
	assert.False(t, listenerStopped(errors.New("boom")))
}
