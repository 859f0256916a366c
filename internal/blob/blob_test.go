package blob

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyzone/internal/qerrors"
)

func TestPath(t *testing.T) {
	assert.Equal(t, "past-papers/ICT2113/midterm.pdf", Path(PastPapers, "ICT2113", "midterm.pdf"))
	assert.Equal(t, "quizzes/ICT2113/week1.pdf", Path(Quizzes, "ICT2113", "week1.pdf"))
	assert.Equal(t, "quizzes/ICT2113/.._secret", Path(Quizzes, "ICT2113", "../secret"))
	assert.Equal(t, "past-papers/_/x.pdf", Path(PastPapers, "..", "x.pdf"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := Path(PastPapers, "ICT2113", "midterm.pdf")

	_, err := s.URL(ctx, p)
	assert.True(t, errors.Is(err, qerrors.BlobNotFoundError))

	url, err := s.Put(ctx, p, strings.NewReader("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "memory://past-papers/ICT2113/midterm.pdf", url)

	got, err := s.URL(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, url, got)

	data, ok := s.Get(p)
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, s.Delete(ctx, p))
	assert.Equal(t, 0, s.Len())
	assert.True(t, errors.Is(s.Delete(ctx, p), qerrors.BlobNotFoundError))
}

func TestFirebaseDownloadURL(t *testing.T) {
	s := NewFirebaseStore(nil, "studyzone.appspot.com")
	assert.Equal(t,
		"https://firebasestorage.googleapis.com/v0/b/studyzone.appspot.com/o/past-papers%2FICT2113%2Fmidterm.pdf?alt=media&token=abc",
		s.downloadURL("past-papers/ICT2113/midterm.pdf", "abc"))
}
