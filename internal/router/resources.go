package router

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"studyzone/internal/middleware"
	"studyzone/internal/models"
	"studyzone/internal/qerrors"
)

// maxUploadMemory is the part of a multipart upload kept in memory; the rest spills to temporary files.
const maxUploadMemory = 32 << 20

func (h *Handlers) resourceRoutes(r chi.Router, signedIn, admin func(http.Handler) http.Handler) {
	// Past papers
	r.With(signedIn).Get("/pastPapers", h.listPastPapersHandler)
	r.With(admin).Post("/pastPapers/upload", h.uploadPastPaperHandler)
	r.With(admin).Post("/pastPapers/delete", h.deletePastPaperHandler)

	// Quizzes
	r.With(signedIn).Get("/quizzes", h.listQuizzesHandler)
	r.With(admin).Post("/quizzes/upload", h.uploadQuizHandler)
	r.With(admin).Post("/quizzes/delete", h.deleteQuizHandler)

	// Videos
	r.With(signedIn).Get("/videos", h.listVideosHandler)
	r.With(admin).Post("/videos/add", h.addVideoHandler)
	r.With(admin).Post("/videos/delete", h.deleteVideoHandler)
}

// GET: /{courseID}/pastPapers
func (h *Handlers) listPastPapersHandler(w http.ResponseWriter, r *http.Request) {
	papers, err := h.catalog.ListPastPapers(r.Context(), middleware.GetCourseID(r))
	if err != nil {
		h.writeError(w, r, "failed to load past papers", err)
		return
	}

	render.JSON(w, r, papers)
}

// POST: /{courseID}/pastPapers/upload
func (h *Handlers) uploadPastPaperHandler(w http.ResponseWriter, r *http.Request) {
	file, header, err := formFile(r)
	if err != nil {
		h.writeError(w, r, "failed to upload past paper", err)
		return
	}
	defer file.Close()

	req := &models.UploadPastPaperRequest{
		CourseID: middleware.GetCourseID(r),
		Name:     r.FormValue("name"),
		Size:     header.Size,
	}
	if req.Name == "" {
		req.Name = header.Filename
	}

	paper, err := h.catalog.UploadPastPaper(r.Context(), req, file, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, r, "failed to upload past paper", err)
		return
	}

	h.audit(r, "past paper uploaded", req.CourseID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, paper)
}

// POST: /{courseID}/pastPapers/delete
func (h *Handlers) deletePastPaperHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteResourceRequest
	if err := decode(r, "failed to delete past paper", &req); err != nil {
		h.writeError(w, r, "failed to delete past paper", err)
		return
	}
	courseID := middleware.GetCourseID(r)

	var err error
	switch {
	case req.ID != "":
		err = h.catalog.RemovePastPaper(r.Context(), courseID, req.ID)
	case req.Name != "":
		err = h.catalog.RemovePastPaperByName(r.Context(), courseID, req.Name)
	default:
		err = qerrors.Validation(errors.New("id or name is required"))
	}
	if err != nil {
		h.writeError(w, r, "failed to delete past paper", err)
		return
	}

	h.audit(r, "past paper deleted", courseID)
	writeText(w, "Successfully deleted past paper")
}

// GET: /{courseID}/quizzes
func (h *Handlers) listQuizzesHandler(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.catalog.ListQuizzes(r.Context(), middleware.GetCourseID(r))
	if err != nil {
		h.writeError(w, r, "failed to load quizzes", err)
		return
	}

	render.JSON(w, r, quizzes)
}

// POST: /{courseID}/quizzes/upload
func (h *Handlers) uploadQuizHandler(w http.ResponseWriter, r *http.Request) {
	file, header, err := formFile(r)
	if err != nil {
		h.writeError(w, r, "failed to upload quiz", err)
		return
	}
	defer file.Close()

	questions, err := strconv.Atoi(strings.TrimSpace(r.FormValue("questions")))
	if err != nil {
		h.writeError(w, r, "failed to upload quiz", qerrors.Validation(errors.New("questions must be a number")))
		return
	}

	req := &models.UploadQuizRequest{
		CourseID:  middleware.GetCourseID(r),
		FileName:  r.FormValue("fileName"),
		Title:     r.FormValue("title"),
		Questions: questions,
		Size:      header.Size,
	}
	if req.FileName == "" {
		req.FileName = header.Filename
	}

	quiz, err := h.catalog.UploadQuiz(r.Context(), req, file, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, r, "failed to upload quiz", err)
		return
	}

	h.audit(r, "quiz uploaded", req.CourseID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, quiz)
}

// POST: /{courseID}/quizzes/delete
func (h *Handlers) deleteQuizHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteResourceRequest
	if err := decode(r, "failed to delete quiz", &req); err != nil {
		h.writeError(w, r, "failed to delete quiz", err)
		return
	}
	courseID := middleware.GetCourseID(r)

	var err error
	switch {
	case req.ID != "":
		err = h.catalog.RemoveQuiz(r.Context(), courseID, req.ID)
	case req.FileName != "":
		err = h.catalog.RemoveQuizByFileName(r.Context(), courseID, req.FileName)
	default:
		err = qerrors.Validation(errors.New("id or fileName is required"))
	}
	if err != nil {
		h.writeError(w, r, "failed to delete quiz", err)
		return
	}

	h.audit(r, "quiz deleted", courseID)
	writeText(w, "Successfully deleted quiz")
}

// GET: /{courseID}/videos
func (h *Handlers) listVideosHandler(w http.ResponseWriter, r *http.Request) {
	videos, err := h.catalog.ListVideos(r.Context(), middleware.GetCourseID(r))
	if err != nil {
		h.writeError(w, r, "failed to load videos", err)
		return
	}

	render.JSON(w, r, videos)
}

// POST: /{courseID}/videos/add
func (h *Handlers) addVideoHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddVideoRequest
	if err := decode(r, "failed to add video", &req); err != nil {
		h.writeError(w, r, "failed to add video", err)
		return
	}
	req.CourseID = middleware.GetCourseID(r)

	video, err := h.catalog.AddVideo(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, "failed to add video", err)
		return
	}

	h.audit(r, "video added", req.CourseID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, video)
}

// POST: /{courseID}/videos/delete
func (h *Handlers) deleteVideoHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteResourceRequest
	if err := decode(r, "failed to delete video", &req); err != nil {
		h.writeError(w, r, "failed to delete video", err)
		return
	}
	videoID := req.VideoID
	if videoID == "" {
		videoID = req.ID
	}
	if videoID == "" {
		h.writeError(w, r, "failed to delete video", qerrors.Validation(errors.New("videoId is required")))
		return
	}

	if err := h.catalog.RemoveVideo(r.Context(), middleware.GetCourseID(r), videoID); err != nil {
		h.writeError(w, r, "failed to delete video", err)
		return
	}

	h.audit(r, "video deleted", middleware.GetCourseID(r))
	writeText(w, "Successfully deleted video")
}

// formFile parses a multipart upload and returns its "file" part.
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, nil, qerrors.Validation(err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, qerrors.Validation(err)
	}
	return file, header, nil
}
