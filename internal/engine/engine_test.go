package engine

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andhikamw/lensdl/internal/resolver"
	"github.com/andhikamw/lensdl/pkg/models"
)

type fakeResolver struct {
	target *resolver.Target
	err    error
}

func (f *fakeResolver) Resolve(context.Context, string) (*resolver.Target, error) {
	return f.target, f.err
}

type fakeFetcher struct {
	info  *models.VideoInfo
	err   error
	calls int
}

func (f *fakeFetcher) FetchPlaylist(_ context.Context, id, title string) (*models.VideoInfo, error) {
	f.calls++
	return f.info, f.err
}

type fakeDownloader struct {
	err      error
	gotEntry models.PlaylistEntry
	gotDest  string
}

func (f *fakeDownloader) Download(_ context.Context, entry models.PlaylistEntry, dest string, onProgress func(float64)) error {
	f.gotEntry = entry
	f.gotDest = dest
	if f.err == nil && onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return f.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func usablePlaylist(q models.Quality) *models.Playlist {
	p := models.NewPlaylist()
	p.Set(models.PlaylistEntry{Quality: q, Format: models.FormatM3U8, PlayURL: "https://vzuu/" + string(q)})
	return p
}

func TestDownloadVideoFetchesPlaylistByID(t *testing.T) {
	fetcher := &fakeFetcher{info: &models.VideoInfo{
		ID:       "vid1",
		Title:    "lesson",
		Playlist: usablePlaylist(models.QualityHD),
	}}
	dl := &fakeDownloader{}
	e := New(&fakeResolver{target: &resolver.Target{ID: "vid1"}}, fetcher, dl, testLogger())

	outDir := t.TempDir()
	var reported []float64
	path, err := e.DownloadVideo(context.Background(), "vid1", outDir, models.QualityHD, func(p float64) {
		reported = append(reported, p)
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "lesson.mp4"), path)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, models.QualityHD, dl.gotEntry.Quality)
	assert.Equal(t, []float64{50, 100}, reported)
}

func TestDownloadVideoInlinePlaylistSkipsFetch(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("must not be called")}
	dl := &fakeDownloader{}
	e := New(&fakeResolver{target: &resolver.Target{
		Title:       "section",
		CourseTitle: "course",
		Inline: &models.VideoInfo{
			ID:       "direct_mp4",
			Title:    "section",
			Playlist: usablePlaylist(models.QualityFHD),
		},
	}}, fetcher, dl, testLogger())

	outDir := t.TempDir()
	path, err := e.DownloadVideo(context.Background(), "https://page", outDir, models.QualityFHD, nil)
	require.NoError(t, err)

	assert.Zero(t, fetcher.calls, "inline playlists bypass the playlist fetch")
	assert.Equal(t, filepath.Join(outDir, "course-section.mp4"), path)
}

func TestDownloadVideoInlinePlaceholderTitle(t *testing.T) {
	e := New(&fakeResolver{target: &resolver.Target{
		Inline: &models.VideoInfo{
			ID:       "direct_mp4",
			Playlist: usablePlaylist(models.QualityHD),
		},
	}}, &fakeFetcher{}, &fakeDownloader{}, testLogger())

	path, err := e.DownloadVideo(context.Background(), "https://page", t.TempDir(), models.QualityHD, nil)
	require.NoError(t, err)
	assert.Equal(t, "video_direct_mp4.mp4", filepath.Base(path))
}

func TestDownloadVideoResolutionFailure(t *testing.T) {
	e := New(&fakeResolver{err: models.ErrResolutionFailed}, &fakeFetcher{}, &fakeDownloader{}, testLogger())

	_, err := e.DownloadVideo(context.Background(), "garbage", t.TempDir(), models.QualityHD, nil)
	assert.True(t, errors.Is(err, models.ErrResolutionFailed))
}

func TestDownloadVideoNoUsableQuality(t *testing.T) {
	p := models.NewPlaylist()
	p.Set(models.PlaylistEntry{Quality: models.QualityHD})
	e := New(
		&fakeResolver{target: &resolver.Target{ID: "vid"}},
		&fakeFetcher{info: &models.VideoInfo{ID: "vid", Title: "t", Playlist: p}},
		&fakeDownloader{},
		testLogger(),
	)

	_, err := e.DownloadVideo(context.Background(), "vid", t.TempDir(), models.QualityHD, nil)
	assert.True(t, errors.Is(err, models.ErrNoUsableQuality))
}

func TestDownloadVideoDownloadFailure(t *testing.T) {
	e := New(
		&fakeResolver{target: &resolver.Target{ID: "vid"}},
		&fakeFetcher{info: &models.VideoInfo{ID: "vid", Title: "t", Playlist: usablePlaylist(models.QualityHD)}},
		&fakeDownloader{err: models.ErrAccessDenied},
		testLogger(),
	)

	_, err := e.DownloadVideo(context.Background(), "vid", t.TempDir(), models.QualityHD, nil)
	assert.True(t, errors.Is(err, models.ErrAccessDenied))
}

func TestParse(t *testing.T) {
	e := New(
		&fakeResolver{target: &resolver.Target{ID: "vid", CourseTitle: "course"}},
		&fakeFetcher{info: &models.VideoInfo{ID: "vid", Title: "t", Playlist: usablePlaylist(models.QualityHD)}},
		&fakeDownloader{},
		testLogger(),
	)

	info, courseTitle, err := e.Parse(context.Background(), "vid")
	require.NoError(t, err)
	assert.Equal(t, "vid", info.ID)
	assert.Equal(t, "course", courseTitle)
}
