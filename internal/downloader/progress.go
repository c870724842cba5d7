package downloader

import (
	"bufio"
	"context"
	"io"
	"os"
	"regexp"
	"strconv"
)

// reporter delivers percentages to the caller's callback. Each value is
// reported at most once: only increases pass through, so the signal is
// monotonically non-decreasing no matter which estimate produced it.
type reporter struct {
	fn   func(float64)
	last float64
}

func newReporter(fn func(float64)) *reporter {
	return &reporter{fn: fn}
}

func (r *reporter) report(percent float64) {
	if percent <= r.last {
		return
	}
	r.last = percent
	if r.fn != nil {
		r.fn(percent)
	}
}

// Elapsed-time marker in the muxer's diagnostic output.
var timePattern = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2})\.(\d+)`)

// parseElapsed extracts elapsed seconds from a diagnostic line.
func parseElapsed(line string) (float64, bool) {
	m := timePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	frac, _ := strconv.Atoi(m[4])
	return float64(h*3600+min*60+s) + float64(frac)/100.0, true
}

// Segment-duration tag in a stream manifest.
var extinfPattern = regexp.MustCompile(`#EXTINF:([\d.]+)`)

// estimateDuration fetches the manifest once and sums its segment
// durations. Returns 0 when the estimate is unavailable; the caller then
// falls back to size-based estimation.
func (d *Downloader) estimateDuration(ctx context.Context, manifestURL string) float64 {
	resp, err := d.client.Get(ctx, manifestURL)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return 0
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0
	}

	return sumSegmentDurations(string(body))
}

func sumSegmentDurations(manifest string) float64 {
	var total float64
	for _, m := range extinfPattern.FindAllStringSubmatch(manifest, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			total += v
		}
	}
	return total
}

// estimator turns elapsed-time markers into a percentage. Preference
// order: duration estimate, output-file size against the assumed target
// size, then a +1 creep capped at 90 so progress still advances while
// the transfer runs.
type estimator struct {
	totalDuration float64
	outputPath    string
	assumedSize   int64
}

func (e *estimator) percent(elapsed, lastReported float64) float64 {
	if e.totalDuration > 0 {
		return clampPercent(elapsed / e.totalDuration * 100)
	}

	if info, err := os.Stat(e.outputPath); err == nil && info.Size() > 0 && e.assumedSize > 0 {
		return clampPercent(float64(info.Size()) / float64(e.assumedSize) * 100)
	}

	if lastReported < 90 {
		return lastReported + 1
	}
	return 90
}

// clampPercent keeps estimated values inside 1..99; only a clean process
// exit may produce 100.
func clampPercent(p float64) float64 {
	if p < 1 {
		return 1
	}
	if p > 99 {
		return 99
	}
	return p
}

// scanDiagnosticLines splits on both \n and \r, because the muxer
// rewrites its progress line with bare carriage returns.
func scanDiagnosticLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func newDiagnosticScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanDiagnosticLines)
	return scanner
}
