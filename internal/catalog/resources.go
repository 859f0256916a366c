package catalog

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"studyzone/internal/blob"
	"studyzone/internal/models"
	"studyzone/internal/qerrors"
)

const pdfContentType = "application/pdf"

// ListPastPapers returns the past papers of a course, oldest first. Entries stored without a URL get one
// from blob storage.
func (s *Service) ListPastPapers(ctx context.Context, courseID string) ([]models.PastPaper, error) {
	c, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, qerrors.Action("failed to load past papers", err)
	}
	for i := range c.PastPapers {
		if c.PastPapers[i].URL == "" {
			c.PastPapers[i].URL = s.resolveURL(ctx, blob.Path(blob.PastPapers, c.Code, c.PastPapers[i].Name))
		}
	}
	return c.PastPapers, nil
}

// UploadPastPaper writes the file to blob storage, then appends its entry to the course.
func (s *Service) UploadPastPaper(ctx context.Context, req *models.UploadPastPaperRequest, file io.Reader, contentType string) (*models.PastPaper, error) {
	paper, err := s.uploadPastPaper(ctx, req, file, contentType)
	s.metrics.ResourceOp("pastPaper", "upload", err)
	return paper, qerrors.Action("failed to upload past paper", err)
}

func (s *Service) uploadPastPaper(ctx context.Context, req *models.UploadPastPaperRequest, file io.Reader, contentType string) (*models.PastPaper, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, qerrors.Validation(err)
	}
	// Refuse before any bytes are written.
	if _, err := s.courses.GetCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}

	path := blob.Path(blob.PastPapers, req.CourseID, req.Name)
	url, size, err := s.put(ctx, path, file, contentType)
	if err != nil {
		return nil, err
	}
	if size == 0 && req.Size > 0 {
		size = req.Size
	}

	uploadedAt := s.now()
	paper := models.PastPaper{
		ID:         models.ResourceID(req.Name, uploadedAt),
		Name:       req.Name,
		URL:        url,
		UploadDate: uploadedAt,
		Size:       models.FormatSizeMB(size),
	}
	_, err = s.courses.MutateCourse(ctx, req.CourseID, func(c *models.Course) error {
		c.PastPapers = append(c.PastPapers, paper)
		return nil
	})
	if err != nil {
		s.warnPartial("past paper upload", req.CourseID, path, err)
		return nil, err
	}
	return &paper, nil
}

// RemovePastPaper deletes the past paper entry with the given id and its file. The file is kept while
// another entry of the course still refers to the same name.
func (s *Service) RemovePastPaper(ctx context.Context, courseID, id string) error {
	err := s.removePastPapers(ctx, courseID, func(p models.PastPaper) bool { return p.ID == id })
	s.metrics.ResourceOp("pastPaper", "delete", err)
	return qerrors.Action("failed to delete past paper", err)
}

// RemovePastPaperByName deletes every past paper entry called name together with its file. Kept for clients
// that address past papers by file name.
func (s *Service) RemovePastPaperByName(ctx context.Context, courseID, name string) error {
	err := s.removePastPapers(ctx, courseID, func(p models.PastPaper) bool { return p.Name == name })
	s.metrics.ResourceOp("pastPaper", "delete", err)
	return qerrors.Action("failed to delete past paper", err)
}

func (s *Service) removePastPapers(ctx context.Context, courseID string, match func(models.PastPaper) bool) error {
	c, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}

	removed, kept := splitPastPapers(c.PastPapers, match)
	if len(removed) == 0 {
		return qerrors.ResourceNotFoundError
	}
	for _, name := range orphanedNames(pastPaperNames(removed), pastPaperNames(kept)) {
		if err := s.deleteBlob(ctx, blob.Path(blob.PastPapers, courseID, name)); err != nil {
			return err
		}
	}

	_, err = s.courses.MutateCourse(ctx, courseID, func(c *models.Course) error {
		_, c.PastPapers = splitPastPapers(c.PastPapers, match)
		return nil
	})
	if err != nil {
		s.warnPartial("past paper delete", courseID, blob.Path(blob.PastPapers, courseID, removed[0].Name), err)
	}
	return err
}

// ListQuizzes returns the quizzes of a course, oldest first.
func (s *Service) ListQuizzes(ctx context.Context, courseID string) ([]models.Quiz, error) {
	c, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, qerrors.Action("failed to load quizzes", err)
	}
	for i := range c.Quizzes {
		if c.Quizzes[i].URL == "" {
			c.Quizzes[i].URL = s.resolveURL(ctx, blob.Path(blob.Quizzes, c.Code, c.Quizzes[i].FileName))
		}
	}
	return c.Quizzes, nil
}

// UploadQuiz writes the quiz file to blob storage, then appends its entry to the course.
func (s *Service) UploadQuiz(ctx context.Context, req *models.UploadQuizRequest, file io.Reader, contentType string) (*models.Quiz, error) {
	quiz, err := s.uploadQuiz(ctx, req, file, contentType)
	s.metrics.ResourceOp("quiz", "upload", err)
	return quiz, qerrors.Action("failed to upload quiz", err)
}

func (s *Service) uploadQuiz(ctx context.Context, req *models.UploadQuizRequest, file io.Reader, contentType string) (*models.Quiz, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		return nil, qerrors.Validation(err)
	}
	if _, err := s.courses.GetCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}

	path := blob.Path(blob.Quizzes, req.CourseID, req.FileName)
	url, size, err := s.put(ctx, path, file, contentType)
	if err != nil {
		return nil, err
	}
	if size == 0 && req.Size > 0 {
		size = req.Size
	}

	uploadedAt := s.now()
	quiz := models.Quiz{
		ID:         models.ResourceID(req.FileName, uploadedAt),
		Title:      req.Title,
		URL:        url,
		UploadDate: uploadedAt,
		Size:       models.FormatSizeMB(size),
		Questions:  req.Questions,
		FileName:   req.FileName,
	}
	_, err = s.courses.MutateCourse(ctx, req.CourseID, func(c *models.Course) error {
		c.Quizzes = append(c.Quizzes, quiz)
		return nil
	})
	if err != nil {
		s.warnPartial("quiz upload", req.CourseID, path, err)
		return nil, err
	}
	return &quiz, nil
}

// RemoveQuiz deletes the quiz entry with the given id and, unless still shared, its file.
func (s *Service) RemoveQuiz(ctx context.Context, courseID, id string) error {
	err := s.removeQuizzes(ctx, courseID, func(q models.Quiz) bool { return q.ID == id })
	s.metrics.ResourceOp("quiz", "delete", err)
	return qerrors.Action("failed to delete quiz", err)
}

// RemoveQuizByFileName deletes every quiz entry uploaded from fileName together with its file. Kept for
// clients that address quizzes by file name.
func (s *Service) RemoveQuizByFileName(ctx context.Context, courseID, fileName string) error {
	err := s.removeQuizzes(ctx, courseID, func(q models.Quiz) bool { return q.FileName == fileName })
	s.metrics.ResourceOp("quiz", "delete", err)
	return qerrors.Action("failed to delete quiz", err)
}

func (s *Service) removeQuizzes(ctx context.Context, courseID string, match func(models.Quiz) bool) error {
	c, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}

	removed, kept := splitQuizzes(c.Quizzes, match)
	if len(removed) == 0 {
		return qerrors.ResourceNotFoundError
	}
	for _, name := range orphanedNames(quizFileNames(removed), quizFileNames(kept)) {
		if err := s.deleteBlob(ctx, blob.Path(blob.Quizzes, courseID, name)); err != nil {
			return err
		}
	}

	_, err = s.courses.MutateCourse(ctx, courseID, func(c *models.Course) error {
		_, c.Quizzes = splitQuizzes(c.Quizzes, match)
		return nil
	})
	if err != nil {
		s.warnPartial("quiz delete", courseID, blob.Path(blob.Quizzes, courseID, removed[0].FileName), err)
	}
	return err
}

// ListVideos returns the video links of a course, oldest first.
func (s *Service) ListVideos(ctx context.Context, courseID string) ([]models.VideoLink, error) {
	c, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, qerrors.Action("failed to load videos", err)
	}
	return c.Videos, nil
}

// AddVideo appends a YouTube link to the course. The same video cannot be added twice.
func (s *Service) AddVideo(ctx context.Context, req *models.AddVideoRequest) (*models.VideoLink, error) {
	video, err := s.addVideo(ctx, req)
	s.metrics.ResourceOp("video", "add", err)
	return video, qerrors.Action("failed to add video", err)
}

func (s *Service) addVideo(ctx context.Context, req *models.AddVideoRequest) (*models.VideoLink, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.URL = strings.TrimSpace(req.URL)
	if err := s.validate.Struct(req); err != nil {
		return nil, qerrors.Validation(err)
	}
	videoID, err := ParseYouTubeVideoID(req.URL)
	if err != nil {
		return nil, err
	}

	video := models.VideoLink{
		Title:        req.Title,
		URL:          req.URL,
		ThumbnailURL: YouTubeThumbnailURL(videoID),
		VideoID:      videoID,
		AddedOn:      s.now(),
	}
	_, err = s.courses.MutateCourse(ctx, req.CourseID, func(c *models.Course) error {
		for _, v := range c.Videos {
			if v.VideoID == videoID {
				return qerrors.DuplicateVideoError
			}
		}
		c.Videos = append(c.Videos, video)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// RemoveVideo deletes the video link with the given YouTube id.
func (s *Service) RemoveVideo(ctx context.Context, courseID, videoID string) error {
	_, err := s.courses.MutateCourse(ctx, courseID, func(c *models.Course) error {
		kept := make([]models.VideoLink, 0, len(c.Videos))
		for _, v := range c.Videos {
			if v.VideoID != videoID {
				kept = append(kept, v)
			}
		}
		if len(kept) == len(c.Videos) {
			return qerrors.ResourceNotFoundError
		}
		c.Videos = kept
		return nil
	})
	s.metrics.ResourceOp("video", "delete", err)
	return qerrors.Action("failed to delete video", err)
}

// Helpers

// put stores file at path and returns its URL and the number of bytes written.
func (s *Service) put(ctx context.Context, path string, file io.Reader, contentType string) (string, int64, error) {
	if contentType == "" {
		contentType = pdfContentType
	}
	counter := &countingReader{r: file}
	url, err := s.blobs.Put(ctx, path, counter, contentType)
	if err != nil {
		return "", 0, err
	}
	return url, counter.n, nil
}

// resolveURL asks blob storage for the download URL of path. An entry whose file cannot be found keeps its
// empty URL.
func (s *Service) resolveURL(ctx context.Context, path string) string {
	url, err := s.blobs.URL(ctx, path)
	if err != nil {
		s.logger.Warn("could not resolve download url", zap.String("path", path), zap.Error(err))
		return ""
	}
	return url
}

func (s *Service) deleteBlob(ctx context.Context, path string) error {
	err := s.blobs.Delete(ctx, path)
	if errors.Is(err, qerrors.BlobNotFoundError) {
		// Already gone; still drop the metadata.
		s.logger.Info("blob already deleted", zap.String("path", path))
		return nil
	}
	return err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func splitPastPapers(papers []models.PastPaper, match func(models.PastPaper) bool) (removed, kept []models.PastPaper) {
	kept = make([]models.PastPaper, 0, len(papers))
	for _, p := range papers {
		if match(p) {
			removed = append(removed, p)
		} else {
			kept = append(kept, p)
		}
	}
	return removed, kept
}

func splitQuizzes(quizzes []models.Quiz, match func(models.Quiz) bool) (removed, kept []models.Quiz) {
	kept = make([]models.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		if match(q) {
			removed = append(removed, q)
		} else {
			kept = append(kept, q)
		}
	}
	return removed, kept
}

func pastPaperNames(papers []models.PastPaper) []string {
	names := make([]string, 0, len(papers))
	for _, p := range papers {
		names = append(names, p.Name)
	}
	return names
}

func quizFileNames(quizzes []models.Quiz) []string {
	names := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		names = append(names, q.FileName)
	}
	return names
}

// orphanedNames returns the distinct names in removed that no kept entry still uses.
func orphanedNames(removed, kept []string) []string {
	inUse := make(map[string]bool, len(kept))
	for _, name := range kept {
		inUse[name] = true
	}
	var orphaned []string
	for _, name := range removed {
		if !inUse[name] {
			inUse[name] = true
			orphaned = append(orphaned, name)
		}
	}
	return orphaned
}
