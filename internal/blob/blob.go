// Package blob stores the bytes of uploaded course resources. Course documents only carry the metadata and
// the URL returned here.
package blob

import (
	"context"
	"io"
	"path"
	"strings"
)

// Category is the top-level folder a resource's bytes live under.
type Category string

const (
	PastPapers Category = "past-papers"
	Quizzes    Category = "quizzes"
)

// Store is binary object storage keyed by path. Every call is a single attempt.
type Store interface {
	// Put writes the bytes read from r at p and returns a URL the presentation layer can download from.
	Put(ctx context.Context, p string, r io.Reader, contentType string) (string, error)
	// Delete removes the object at p. Deleting a missing object returns qerrors.BlobNotFoundError.
	Delete(ctx context.Context, p string) error
	// URL returns the download URL of the object at p.
	URL(ctx context.Context, p string) (string, error)
}

// Path composes the storage path of a resource file, e.g. past-papers/ICT2113/midterm.pdf.
func Path(category Category, courseID, fileName string) string {
	return path.Join(string(category), clean(courseID), clean(fileName))
}

// clean keeps a caller-supplied component inside its folder.
func clean(component string) string {
	component = strings.ReplaceAll(component, "/", "_")
	if component == "." || component == ".." {
		return "_"
	}
	return component
}
