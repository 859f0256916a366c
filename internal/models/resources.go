package models

import (
	"fmt"
	"time"
)

// PastPaper is an entry of Course.PastPapers. The file bytes live in blob storage under its Name.
type PastPaper struct {
	ID         string    `json:"id" mapstructure:"id"`
	Name       string    `json:"name" mapstructure:"name"`
	URL        string    `json:"url" mapstructure:"url"`
	UploadDate time.Time `json:"uploadDate" mapstructure:"uploadDate"`
	Size       string    `json:"size" mapstructure:"size"`
}

func (p PastPaper) toFirestore() map[string]interface{} {
	return map[string]interface{}{
		"id":         p.ID,
		"name":       p.Name,
		"url":        p.URL,
		"uploadDate": p.UploadDate,
		"size":       p.Size,
	}
}

// Quiz is an entry of Course.Quizzes. The file bytes live in blob storage under its FileName.
type Quiz struct {
	ID         string    `json:"id" mapstructure:"id"`
	Title      string    `json:"title" mapstructure:"title"`
	URL        string    `json:"url" mapstructure:"url"`
	UploadDate time.Time `json:"uploadDate" mapstructure:"uploadDate"`
	Size       string    `json:"size" mapstructure:"size"`
	Questions  int       `json:"questions" mapstructure:"questions"`
	FileName   string    `json:"fileName" mapstructure:"fileName"`
}

func (q Quiz) toFirestore() map[string]interface{} {
	return map[string]interface{}{
		"id":         q.ID,
		"title":      q.Title,
		"url":        q.URL,
		"uploadDate": q.UploadDate,
		"size":       q.Size,
		"questions":  q.Questions,
		"fileName":   q.FileName,
	}
}

// VideoLink is an entry of Course.Videos. VideoID is unique within a course.
type VideoLink struct {
	Title        string    `json:"title" mapstructure:"title"`
	URL          string    `json:"url" mapstructure:"url"`
	ThumbnailURL string    `json:"thumbnailUrl" mapstructure:"thumbnailUrl"`
	VideoID      string    `json:"videoId" mapstructure:"videoId"`
	AddedOn      time.Time `json:"addedOn" mapstructure:"addedOn"`
}

func (v VideoLink) toFirestore() map[string]interface{} {
	return map[string]interface{}{
		"title":        v.Title,
		"url":          v.URL,
		"thumbnailUrl": v.ThumbnailURL,
		"videoId":      v.VideoID,
		"addedOn":      v.AddedOn,
	}
}

// ResourceID derives the id of an uploaded file entry from its file name and upload time.
func ResourceID(fileName string, uploadedAt time.Time) string {
	return fmt.Sprintf("%s-%d", fileName, uploadedAt.UnixNano())
}

// FormatSizeMB renders a byte count as megabytes with two decimals, e.g. "1.25".
func FormatSizeMB(bytes int64) string {
	return fmt.Sprintf("%.2f", float64(bytes)/(1024*1024))
}

// UploadPastPaperRequest is the parameter struct for the UploadPastPaper function.
type UploadPastPaperRequest struct {
	CourseID string `json:"courseID" validate:"required"`
	Name     string `json:"name" validate:"required,excludesall=/"`
	Size     int64  `json:"size" validate:"gte=0"`
}

// UploadQuizRequest is the parameter struct for the UploadQuiz function.
type UploadQuizRequest struct {
	CourseID  string `json:"courseID" validate:"required"`
	FileName  string `json:"fileName" validate:"required,excludesall=/"`
	Title     string `json:"title" validate:"required"`
	Questions int    `json:"questions" validate:"gt=0"`
	Size      int64  `json:"size" validate:"gte=0"`
}

// AddVideoRequest is the parameter struct for the AddVideo function.
type AddVideoRequest struct {
	CourseID string `json:"courseID" validate:"required"`
	Title    string `json:"title" validate:"required"`
	URL      string `json:"url" validate:"required"`
}

// DeleteResourceRequest selects a resource entry to remove. ID is preferred; Name (past papers),
// FileName (quizzes) and VideoID (videos) are accepted for clients that predate entry ids.
type DeleteResourceRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FileName string `json:"fileName"`
	VideoID  string `json:"videoId"`
}
