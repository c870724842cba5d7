package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andhikamw/lensdl/internal/common/session"
	"github.com/andhikamw/lensdl/internal/downloader"
	"github.com/andhikamw/lensdl/internal/playlist"
	"github.com/andhikamw/lensdl/internal/resolver"
	"github.com/andhikamw/lensdl/pkg/models"
	"github.com/sirupsen/logrus"
)

// VideoResolver turns raw input into an identifier or inline playlist.
type VideoResolver interface {
	Resolve(ctx context.Context, input string) (*resolver.Target, error)
}

// PlaylistFetcher resolves an identifier into a VideoInfo with a usable
// playlist.
type PlaylistFetcher interface {
	FetchPlaylist(ctx context.Context, id, title string) (*models.VideoInfo, error)
}

// StreamDownloader transfers one selected entry to a local file.
type StreamDownloader interface {
	Download(ctx context.Context, entry models.PlaylistEntry, dest string, onProgress func(float64)) error
}

// Engine is the single public entry point: it composes resolution,
// playlist fetching, quality selection and the transfer into one
// sequential pipeline. An Engine holds no cross-call mutable state, so
// concurrent DownloadVideo calls are safe; colliding output paths are
// the caller's concern.
type Engine struct {
	resolver   VideoResolver
	fetcher    PlaylistFetcher
	downloader StreamDownloader
	log        *logrus.Logger
}

// New assembles an Engine from explicit collaborators.
func New(r VideoResolver, f PlaylistFetcher, d StreamDownloader, log *logrus.Logger) *Engine {
	return &Engine{resolver: r, fetcher: f, downloader: d, log: log}
}

// FromSession wires the standard collaborators around one authenticated
// session client.
func FromSession(client *session.Client, log *logrus.Logger) *Engine {
	return New(
		resolver.New(client, log),
		playlist.NewFetcher(client, log),
		downloader.New(client, log),
		log,
	)
}

// Downloader exposes the concrete downloader when the engine was built
// by FromSession, so callers can tune it from config.
func (e *Engine) Downloader() *downloader.Downloader {
	d, _ := e.downloader.(*downloader.Downloader)
	return d
}

// Parse resolves input without downloading. It returns the VideoInfo and
// the recovered course title, when any.
func (e *Engine) Parse(ctx context.Context, input string) (*models.VideoInfo, string, error) {
	target, err := e.resolver.Resolve(ctx, input)
	if err != nil {
		return nil, "", err
	}
	info, err := e.videoInfo(ctx, target)
	if err != nil {
		return nil, "", err
	}
	return info, target.CourseTitle, nil
}

// DownloadVideo runs the whole pipeline for one item and returns the
// output path. onProgress receives a non-decreasing percentage ending at
// exactly 100 only on success.
func (e *Engine) DownloadVideo(ctx context.Context, input, outputDir string, quality models.Quality, onProgress func(float64)) (string, error) {
	target, err := e.resolver.Resolve(ctx, input)
	if err != nil {
		return "", err
	}

	info, err := e.videoInfo(ctx, target)
	if err != nil {
		return "", err
	}

	e.log.WithFields(logrus.Fields{
		"title":     info.Title,
		"qualities": info.Playlist.Qualities(),
	}).Info("Resolved video")

	entry, err := playlist.SelectOption(info.Playlist, quality)
	if err != nil {
		return "", fmt.Errorf("video %q: %w", info.Title, err)
	}

	e.log.WithFields(logrus.Fields{
		"quality": entry.Quality,
		"size":    fmt.Sprintf("%dx%d", entry.Width, entry.Height),
		"format":  entry.Format,
	}).Info("Selected quality")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	dest := filepath.Join(outputDir, BuildFileName(target.CourseTitle, info.Title))
	e.log.WithField("output", dest).Info("Starting download")

	if err := e.downloader.Download(ctx, entry, dest, onProgress); err != nil {
		return "", err
	}

	e.log.WithField("output", dest).Info("Download completed")
	return dest, nil
}

// videoInfo reuses an inline playlist when the page already contained
// one; otherwise it goes through the playlist fetcher.
func (e *Engine) videoInfo(ctx context.Context, target *resolver.Target) (*models.VideoInfo, error) {
	if target.Inline != nil {
		info := target.Inline
		if info.Title == "" {
			info.Title = playlist.PlaceholderTitle(info.ID)
		}
		return info, nil
	}
	return e.fetcher.FetchPlaylist(ctx, target.ID, target.Title)
}
