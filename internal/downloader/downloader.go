package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/andhikamw/lensdl/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultAssumedSizeBytes is the assumed output size used by the
	// size-based progress fallback when no duration estimate exists.
	// Tunable via config; it is a heuristic, not a contract.
	DefaultAssumedSizeBytes = 50 * 1024 * 1024

	copyChunkSize = 64 * 1024
)

// StreamClient is the transfer capability the downloader needs: a
// bounded GET for the manifest prefetch and an unbounded streaming GET
// for progressive bodies.
type StreamClient interface {
	Get(ctx context.Context, url string) (*http.Response, error)
	Stream(ctx context.Context, url string) (*http.Response, error)
	UserAgent() string
}

// Downloader transfers one selected stream to a local file, reporting
// percentage progress through a callback. Segmented manifests are
// remuxed through ffmpeg; progressive files are fetched directly.
type Downloader struct {
	client StreamClient
	log    *logrus.Logger

	// FFmpegPath is the muxer binary name or path. Empty means "ffmpeg".
	FFmpegPath string

	// AssumedSizeBytes drives the size-based progress fallback.
	AssumedSizeBytes int64
}

// New creates a Downloader with default tuning.
func New(client StreamClient, log *logrus.Logger) *Downloader {
	return &Downloader{
		client:           client,
		log:              log,
		AssumedSizeBytes: DefaultAssumedSizeBytes,
	}
}

// Download transfers entry to dest. onProgress receives a non-decreasing
// percentage in [0,100]; it reaches exactly 100 only on success and is
// never forced there on failure. A partially written file is left in
// place for the caller to discard.
func (d *Downloader) Download(ctx context.Context, entry models.PlaylistEntry, dest string, onProgress func(float64)) error {
	rep := newReporter(onProgress)

	var err error
	if isSegmented(entry) {
		err = d.downloadSegmented(ctx, entry.PlayURL, dest, rep)
	} else {
		err = d.downloadProgressive(ctx, entry.PlayURL, dest, rep)
	}
	if err != nil {
		return err
	}

	rep.report(100)
	return nil
}

// isSegmented decides the transport strategy from the entry's format and
// URL shape.
func isSegmented(entry models.PlaylistEntry) bool {
	return entry.Format == models.FormatM3U8 || strings.Contains(entry.PlayURL, ".m3u8")
}

// downloadProgressive streams a single file to dest in fixed-size
// chunks. When the server reports a total size it is authoritative, so
// intermediate percentages are not clamped.
func (d *Downloader) downloadProgressive(ctx context.Context, playURL, dest string, rep *reporter) error {
	resp, err := d.client.Stream(ctx, playURL)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("download request returned status %d", resp.StatusCode)
	}

	total := resp.ContentLength
	d.log.WithFields(logrus.Fields{
		"dest": dest,
		"size": total,
	}).Debug("Starting progressive download")

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	var written int64
	buf := make([]byte, copyChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write output file: %w", writeErr)
			}
			written += int64(n)
			if total > 0 {
				rep.report(float64(written) / float64(total) * 100)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("download interrupted: %w", readErr)
		}
	}

	if err := out.Sync(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	return nil
}
