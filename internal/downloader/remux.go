package downloader

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/andhikamw/lensdl/internal/common/session"
	"github.com/andhikamw/lensdl/pkg/models"
	"github.com/sirupsen/logrus"
)

const diagnosticTailLines = 50

// downloadSegmented remuxes a segmented stream into dest through ffmpeg.
// Stream-copy only: the muxer repackages the container, it never
// re-encodes. The audio bitstream filter makes AAC legal in the output
// container.
func (d *Downloader) downloadSegmented(ctx context.Context, manifestURL, dest string, rep *reporter) error {
	binary := d.FFmpegPath
	if binary == "" {
		binary = "ffmpeg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("%w (looked for %q)", models.ErrMuxerMissing, binary)
	}

	// The CDN enforces origin checks; requests without a browser
	// User-Agent and Referer are rejected.
	headers := fmt.Sprintf("User-Agent: %s\r\nReferer: %s/\r\n", d.client.UserAgent(), session.SiteURL)

	cmd := exec.CommandContext(ctx, path,
		"-headers", headers,
		"-i", manifestURL,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-y",
		dest,
	)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open muxer diagnostics: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"manifest": truncateURL(manifestURL),
		"dest":     dest,
	}).Info("Starting segmented remux")

	// Transfer is about to start.
	rep.report(1)

	est := &estimator{
		totalDuration: d.estimateDuration(ctx, manifestURL),
		outputPath:    dest,
		assumedSize:   d.AssumedSizeBytes,
	}
	if est.totalDuration > 0 {
		d.log.WithField("duration_sec", est.totalDuration).Debug("Estimated total duration from manifest")
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start muxer: %w", err)
	}

	// Read diagnostics until the pipe closes with the process exit.
	var tail []string
	scanner := newDiagnosticScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > diagnosticTailLines {
			tail = tail[1:]
		}
		if elapsed, ok := parseElapsed(line); ok {
			rep.report(est.percent(elapsed, rep.last))
		}
	}

	if err := cmd.Wait(); err != nil {
		return classifyMuxerFailure(err, tail)
	}
	return nil
}

// classifyMuxerFailure maps known fatal signatures in the diagnostic
// tail to typed failures; anything else carries the last few lines.
func classifyMuxerFailure(err error, tail []string) error {
	joined := strings.Join(tail, "\n")
	switch {
	case strings.Contains(joined, "403 Forbidden"):
		return fmt.Errorf("%w: login or purchase may be required", models.ErrAccessDenied)
	case strings.Contains(joined, "404 Not Found"):
		return models.ErrStreamNotFound
	}

	detail := tail
	if len(detail) > 5 {
		detail = detail[len(detail)-5:]
	}
	return fmt.Errorf("muxer failed (%v): %s", err, strings.Join(detail, " | "))
}

func truncateURL(u string) string {
	if len(u) > 100 {
		return u[:100] + "..."
	}
	return u
}
