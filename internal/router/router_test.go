package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"studyzone/internal/auth"
	"studyzone/internal/blob"
	"studyzone/internal/catalog"
	"studyzone/internal/hasher"
	"studyzone/internal/models"
	"studyzone/internal/repository/inmem"
	"studyzone/internal/session"
)

type fixture struct {
	db      *inmem.DB
	blobs   *blob.MemoryStore
	manager *auth.Manager
	router  *chi.Mux
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := inmem.New()
	digest := hasher.LegacySHA256{}.Sum("secret123")
	require.NoError(t, db.CreateUser(ctx, &models.UserRecord{Email: "alice@uni.edu", Name: "Alice", Password: digest}))
	require.NoError(t, db.CreateUser(ctx, &models.UserRecord{Email: "admin@uni.edu", Name: "Admin", Password: digest, IsAdmin: true}))

	blobs := blob.NewMemoryStore()
	manager := auth.NewManager(auth.Options{Users: db, Sessions: session.NewMemoryStore()})
	core, logs := observer.New(zap.InfoLevel)
	h := New(manager, catalog.New(catalog.Options{Courses: db, Blobs: blobs}), zap.New(core))

	router := chi.NewRouter()
	router.Mount("/", HealthRoutes())
	router.Route("/v1", func(r chi.Router) {
		r.Mount("/session", h.SessionRoutes())
		r.Mount("/courses", h.CourseRoutes())
	})

	return &fixture{db: db, blobs: blobs, manager: manager, router: router, logs: logs}
}

// signIn restores the manager and signs in as email.
func (f *fixture) signIn(t *testing.T, email string) {
	t.Helper()
	f.manager.Restore(context.Background())
	rec := f.do(http.MethodPost, "/v1/session/login", `{"email":"`+email+`","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(t *testing.T, target string, fields map[string]string, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (f *fixture) createCourse(t *testing.T) {
	t.Helper()
	rec := f.do(http.MethodPost, "/v1/courses/create",
		`{"code":"ICT2113","title":"Databases","students":120,"materials":4,"academicYear":"second_year","semester":"first_semester"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	var snap auth.Snapshot
	decodeBody(t, f.do(http.MethodGet, "/v1/session", ""), &snap)
	assert.Equal(t, auth.StateRestoring, snap.State)
	assert.Equal(t, auth.RouteLoading, snap.Route)

	// Gated routes wait for the restore instead of bouncing to sign-in.
	rec := f.do(http.MethodGet, "/v1/courses", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	f.manager.Restore(context.Background())
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/v1/courses", "").Code)

	rec = f.do(http.MethodPost, "/v1/session/login", `{"email":"alice@uni.edu","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, ErrorResponse{Message: "failed to sign in", Detail: "invalid email or password"}, errResp)

	rec = f.do(http.MethodPost, "/v1/session/login", `{"email":"alice@uni.edu","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &snap)
	assert.Equal(t, auth.RouteApp, snap.Route)
	require.NotNil(t, snap.User)
	assert.Equal(t, "alice@uni.edu", snap.User.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/v1/courses/stats", "").Code)

	rec = f.do(http.MethodPost, "/v1/session/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &snap)
	assert.Equal(t, auth.RouteAuth, snap.Route)
	assert.Nil(t, snap.User)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	f.manager.Restore(context.Background())

	rec := f.do(http.MethodPost, "/v1/session/register",
		`{"name":"Bob","email":"bob@uni.edu","password":"hunter22","confirmPassword":"hunter22"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var snap auth.Snapshot
	decodeBody(t, rec, &snap)
	assert.Equal(t, auth.RouteApp, snap.Route)

	rec = f.do(http.MethodPost, "/v1/session/register",
		`{"name":"Bob","email":"bob@uni.edu","password":"hunter22","confirmPassword":"hunter22"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPost, "/v1/session/register",
		`{"name":"Eve","email":"eve@uni.edu","password":"hunter22","confirmPassword":"hunter23"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCourseRoutes(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "admin@uni.edu")
	f.createCourse(t)

	rec := f.do(http.MethodPost, "/v1/courses/create",
		`{"code":"ICT2113","title":"Databases","academicYear":"second_year","semester":"first_semester"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "failed to create course", errResp.Message)

	var courses []*models.Course
	decodeBody(t, f.do(http.MethodGet, "/v1/courses?year=second_year&semester=first_semester", ""), &courses)
	require.Len(t, courses, 1)
	assert.Equal(t, "Databases", courses[0].Title)
	assert.NotNil(t, courses[0].PastPapers)

	decodeBody(t, f.do(http.MethodGet, "/v1/courses?year=first_year&semester=first_semester", ""), &courses)
	assert.Empty(t, courses)

	rec = f.do(http.MethodPost, "/v1/courses/edit/ICT2113",
		`{"title":"Database Systems","students":121,"materials":4,"academicYear":"second_year","semester":"first_semester"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var course models.Course
	decodeBody(t, f.do(http.MethodGet, "/v1/courses/ICT2113", ""), &course)
	assert.Equal(t, "Database Systems", course.Title)
	assert.Equal(t, "ICT2113", course.Code)

	var stats models.CatalogStats
	decodeBody(t, f.do(http.MethodGet, "/v1/courses/stats", ""), &stats)
	assert.Equal(t, models.CatalogStats{Courses: 1, Students: 121, Materials: 4}, stats)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/courses/delete/ICT2113?purge=maybe", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/courses/delete/ICT2113?purge=true", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/courses/ICT2113", "").Code)
}

func TestPastPaperRoutes(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "admin@uni.edu")
	f.createCourse(t)

	rec := f.upload(t, "/v1/courses/ICT2113/pastPapers/upload", nil, "midterm.pdf", "%PDF-1.4")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var paper models.PastPaper
	decodeBody(t, rec, &paper)
	assert.Equal(t, "midterm.pdf", paper.Name)
	_, ok := f.blobs.Get("past-papers/ICT2113/midterm.pdf")
	assert.True(t, ok)

	rec = f.upload(t, "/v1/courses/ICT2113/pastPapers/upload", map[string]string{"name": "final.pdf"}, "scan.pdf", "%PDF-1.4")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var papers []models.PastPaper
	decodeBody(t, f.do(http.MethodGet, "/v1/courses/ICT2113/pastPapers", ""), &papers)
	require.Len(t, papers, 2)
	assert.Equal(t, "final.pdf", papers[1].Name)

	rec = f.do(http.MethodPost, "/v1/courses/ICT2113/pastPapers/delete", `{"id":"`+paper.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(http.MethodPost, "/v1/courses/ICT2113/pastPapers/delete", `{"name":"final.pdf"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, f.blobs.Len())

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/v1/courses/ICT2113/pastPapers/delete", `{"name":"final.pdf"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/courses/ICT2113/pastPapers/delete", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, f.upload(t, "/v1/courses/NOPE/pastPapers/upload", nil, "midterm.pdf", "x").Code)
}

func TestQuizRoutes(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "admin@uni.edu")
	f.createCourse(t)

	rec := f.upload(t, "/v1/courses/ICT2113/quizzes/upload", map[string]string{"title": "Week 1", "questions": "ten"}, "w1.pdf", "quiz")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.upload(t, "/v1/courses/ICT2113/quizzes/upload", map[string]string{"title": "Week 1", "questions": "10"}, "w1.pdf", "quiz")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var quiz models.Quiz
	decodeBody(t, rec, &quiz)
	assert.Equal(t, "w1.pdf", quiz.FileName)
	assert.Equal(t, 10, quiz.Questions)

	var quizzes []models.Quiz
	decodeBody(t, f.do(http.MethodGet, "/v1/courses/ICT2113/quizzes", ""), &quizzes)
	require.Len(t, quizzes, 1)

	rec = f.do(http.MethodPost, "/v1/courses/ICT2113/quizzes/delete", `{"fileName":"w1.pdf"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, f.blobs.Len())
}

func TestVideoRoutes(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "admin@uni.edu")
	f.createCourse(t)

	rec := f.do(http.MethodPost, "/v1/courses/ICT2113/videos/add", `{"title":"Joins","url":"https://youtu.be/dQw4w9WgXcQ"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/v1/courses/ICT2113/videos/add", `{"title":"Joins","url":"https://youtu.be/dQw4w9WgXcQ"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = f.do(http.MethodPost, "/v1/courses/ICT2113/videos/add", `{"title":"Joins","url":"https://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var videos []models.VideoLink
	decodeBody(t, f.do(http.MethodGet, "/v1/courses/ICT2113/videos", ""), &videos)
	require.Len(t, videos, 1)
	assert.Equal(t, "dQw4w9WgXcQ", videos[0].VideoID)

	rec = f.do(http.MethodPost, "/v1/courses/ICT2113/videos/delete", `{"videoId":"dQw4w9WgXcQ"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/v1/courses/ICT2113/videos/delete", `{"videoId":"dQw4w9WgXcQ"}`).Code)
}

func TestMutationsLogActingUser(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "admin@uni.edu")
	f.createCourse(t)

	rec := f.do(http.MethodPost, "/v1/courses/ICT2113/videos/add", `{"title":"Joins","url":"https://youtu.be/dQw4w9WgXcQ"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, msg := range []string{"course created", "video added"} {
		entries := f.logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		fields := entries[0].ContextMap()
		assert.Equal(t, "admin@uni.edu", fields["by"])
		assert.Equal(t, "ICT2113", fields["course"])
	}
}

func TestRegularUserCannotModify(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "alice@uni.edu")

	rec := f.do(http.MethodPost, "/v1/courses/create",
		`{"code":"ICT2113","title":"Databases","academicYear":"second_year","semester":"first_semester"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/v1/courses/ICT2113/videos/add", `{}`).Code)
}

func TestBackendFailureHidesCause(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "admin@uni.edu")
	f.db.SetFailure(errors.New("dial tcp 10.0.0.1:443: connection refused"))

	rec := f.do(http.MethodGet, "/v1/courses/stats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, ErrorResponse{Message: "failed to load statistics", Detail: "backend unavailable"}, errResp)
}

func TestWatchCourses(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "admin@uni.edu")
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/courses/watch", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			if line == "" && data != "" {
				return data
			}
			if strings.HasPrefix(line, "data: ") {
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	assert.Equal(t, "[]", readEvent())

	f.createCourse(t)
	var courses []*models.Course
	require.NoError(t, json.Unmarshal([]byte(readEvent()), &courses))
	require.Len(t, courses, 1)
	assert.Equal(t, "ICT2113", courses[0].Code)
}
