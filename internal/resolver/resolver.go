package resolver

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/andhikamw/lensdl/pkg/models"
	"github.com/sirupsen/logrus"
)

// PageClient is the fetch capability the resolver needs: an
// entity-decoded page fetch and an authenticated JSON GET.
type PageClient interface {
	FetchPage(ctx context.Context, url string) (string, error)
	GetJSON(ctx context.Context, url string, v any) (int, error)
}

// Target is the outcome of a successful resolution: either a canonical
// identifier to feed the playlist fetcher, or an inline VideoInfo when
// the page itself already contained the streams.
type Target struct {
	ID          string
	Title       string
	CourseTitle string
	Inline      *models.VideoInfo
}

// Section API endpoint templates, probed in order.
var sectionAPITemplates = []string{
	"https://www.zhihu.com/api/infinity/training/section/%s",
	"https://www.zhihu.com/api/v4/market/training/section/%s",
}

// Patterns over the entity-decoded page body. The documents are server
// rendered with large JSON blobs in script bodies, so matching is
// textual, not DOM based.
var (
	// Direct progressive stream URLs on the CDN.
	streamURLPattern = regexp.MustCompile(`https://vdn[0-9]*\.vzuu\.com/[^"'<>\s]+\.mp4\?[^"'<>\s]+`)

	// Section title, most specific first. The same document carries many
	// unrelated "title" fields, so the nested video-specific ones win.
	videoInfoTitlePattern     = regexp.MustCompile(`(?s)"videoInfo"\s*:\s*\{.*?"title"\s*:\s*"([^"]+)"`)
	trainingVideoTitlePattern = regexp.MustCompile(`(?s)"trainingVideo"\s*:\s*\{.*?"videoInfo"\s*:\s*\{.*?"title"\s*:\s*"([^"]+)"`)
	bareTitlePattern          = regexp.MustCompile(`"title"\s*:\s*"([^"]+)"`)

	// Course title for the filename prefix.
	productCourseTitlePattern = regexp.MustCompile(`(?s)"product"\s*:\s*\{[^}]*"course"\s*:\s*\{[^}]*"title"\s*:\s*"([^"]+)"`)
	courseTitlePattern        = regexp.MustCompile(`(?s)"course"\s*:\s*\{[^}]*"title"\s*:\s*"([^"]+)"`)

	// Identifier-shaped JSON fields, most reliable first.
	idPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)"resource"\s*:\s*\{[^}]*"data"\s*:\s*\{[^}]*"id"\s*:\s*"([a-zA-Z0-9_-]{20,})"`),
		regexp.MustCompile(`(?s)"id"\s*:\s*"([a-zA-Z0-9_-]{40,})"[^}]*"type"\s*:\s*"video"`),
		regexp.MustCompile(`"video_id"\s*:\s*"(\d+)"`),
	}
)

// Geometry for the CDN's path-segment quality markers.
var streamQualityByMarker = []struct {
	marker  string
	quality models.Quality
	width   int
	height  int
}{
	{"/FHD/", models.QualityFHD, 1920, 1080},
	{"/HD/", models.QualityHD, 1280, 720},
	{"/SD/", models.QualitySD, 854, 480},
	{"/LD/", models.QualityLD, 640, 360},
}

// Resolver turns a raw input (page URL or bare identifier) into a Target
// through an ordered chain of independent strategies. First success wins.
type Resolver struct {
	client     PageClient
	log        *logrus.Logger
	strategies []func(ctx context.Context, input string) (*Target, bool)
}

// New creates a Resolver around the given page-fetch capability.
func New(client PageClient, log *logrus.Logger) *Resolver {
	r := &Resolver{client: client, log: log}
	r.strategies = []func(ctx context.Context, input string) (*Target, bool){
		r.resolveBareID,
		r.resolveVideoPath,
		r.resolvePage,
	}
	return r
}

// Resolve runs the strategy chain. It returns ErrResolutionFailed only
// when every strategy has been exhausted; individual probe failures are
// swallowed.
func (r *Resolver) Resolve(ctx context.Context, input string) (*Target, error) {
	for _, strategy := range r.strategies {
		if target, ok := strategy(ctx, input); ok {
			return target, nil
		}
	}
	return nil, fmt.Errorf("resolve %q: %w", truncateForLog(input), models.ErrResolutionFailed)
}

// resolveBareID accepts inputs that already are identifiers: all-digit
// tokens, or long opaque tokens with no URL characters. Never touches
// the network.
func (r *Resolver) resolveBareID(_ context.Context, input string) (*Target, bool) {
	if strings.HasPrefix(input, "http") {
		return nil, false
	}
	if input != "" && allDigits(input) {
		return &Target{ID: input}, true
	}
	if len(input) > 30 && !strings.Contains(input, "/") && !strings.Contains(input, ":") {
		return &Target{ID: input}, true
	}
	return nil, false
}

// resolveVideoPath handles ordinary video pages, where the identifier is
// the path segment after "zvideo". Course pages expose no identifier in
// the URL and fall through to the page scrape.
func (r *Resolver) resolveVideoPath(_ context.Context, input string) (*Target, bool) {
	if !strings.HasPrefix(input, "http") {
		return nil, false
	}
	parsed, err := url.Parse(input)
	if err != nil {
		return nil, false
	}
	if !strings.Contains(parsed.Path, "/zvideo/") {
		return nil, false
	}

	parts := strings.Split(strings.TrimRight(parsed.Path, "/"), "/")
	for i, part := range parts {
		if part == "zvideo" && i+1 < len(parts) {
			return &Target{ID: parts[i+1]}, true
		}
	}
	return nil, false
}

// resolvePage fetches the page and applies the scrape sub-chain: direct
// stream extraction, section API probe, generic identifier regexes.
func (r *Resolver) resolvePage(ctx context.Context, input string) (*Target, bool) {
	if !strings.HasPrefix(input, "http") {
		return nil, false
	}

	r.log.WithField("url", input).Debug("Fetching page for resolution")
	page, err := r.client.FetchPage(ctx, input)
	if err != nil {
		r.log.WithError(err).Warn("Failed to fetch page")
		return nil, false
	}

	if target, ok := r.extractDirectStreams(page); ok {
		return target, true
	}
	if target, ok := r.probeSectionAPI(ctx, input); ok {
		return target, true
	}
	if target, ok := r.matchEmbeddedID(page); ok {
		return target, true
	}
	return nil, false
}

// extractDirectStreams builds an inline playlist from stream URLs
// embedded in the page. This is the backend's most stable behavior for
// course video pages, so it short-circuits the whole fetch step.
func (r *Resolver) extractDirectStreams(page string) (*Target, bool) {
	urls := streamURLPattern.FindAllString(page, -1)
	if len(urls) == 0 {
		return nil, false
	}

	playlist := models.NewPlaylist()
	seen := make(map[string]bool)
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true

		entry := classifyStreamURL(u)
		// Keep the first URL found per quality tag.
		if _, ok := playlist.Get(entry.Quality); !ok {
			playlist.Set(entry)
		}
	}

	title := extractSectionTitle(page)
	courseTitle := extractCourseTitle(page)

	r.log.WithFields(logrus.Fields{
		"streams": len(seen),
		"title":   title,
	}).Info("Extracted stream URLs directly from page")

	return &Target{
		Title:       title,
		CourseTitle: courseTitle,
		Inline: &models.VideoInfo{
			ID:       "direct_mp4",
			Title:    title,
			Playlist: playlist,
		},
	}, true
}

// probeSectionAPI resolves course sections through the section API when
// the URL carries a section id as its trailing path segment.
func (r *Resolver) probeSectionAPI(ctx context.Context, input string) (*Target, bool) {
	parsed, err := url.Parse(input)
	if err != nil || !strings.Contains(parsed.Path, "/training-video/") {
		return nil, false
	}

	parts := strings.Split(strings.TrimRight(parsed.Path, "/"), "/")
	if len(parts) < 2 {
		return nil, false
	}
	sectionID := parts[len(parts)-1]

	for _, template := range sectionAPITemplates {
		endpoint := fmt.Sprintf(template, sectionID)
		r.log.WithField("endpoint", endpoint).Debug("Probing section API")

		var body struct {
			Title    string `json:"title"`
			Resource struct {
				Type string `json:"type"`
				Data struct {
					ID       string `json:"id"`
					Duration int64  `json:"duration"`
				} `json:"data"`
			} `json:"resource"`
		}

		status, err := r.client.GetJSON(ctx, endpoint, &body)
		if err != nil || status != 200 {
			continue
		}
		if body.Resource.Type == "video" && body.Resource.Data.ID != "" {
			r.log.WithField("id", truncateForLog(body.Resource.Data.ID)).Info("Resolved identifier via section API")
			return &Target{ID: body.Resource.Data.ID, Title: body.Title}, true
		}
	}
	return nil, false
}

// matchEmbeddedID is the last resort: identifier-shaped JSON fields
// anywhere in the document.
func (r *Resolver) matchEmbeddedID(page string) (*Target, bool) {
	for _, pattern := range idPatterns {
		match := pattern.FindStringSubmatch(page)
		if match == nil {
			continue
		}
		id := match[1]
		if len(id) <= 10 {
			continue
		}

		title := ""
		if m := bareTitlePattern.FindStringSubmatch(page); m != nil {
			title = m[1]
		}
		r.log.WithField("id", truncateForLog(id)).Info("Matched identifier in page body")
		return &Target{ID: id, Title: title}, true
	}
	return nil, false
}

func classifyStreamURL(u string) models.PlaylistEntry {
	for _, c := range streamQualityByMarker {
		if strings.Contains(u, c.marker) {
			return models.PlaylistEntry{
				Quality: c.quality,
				Width:   c.width,
				Height:  c.height,
				Format:  models.FormatMP4,
				PlayURL: u,
			}
		}
	}
	return models.PlaylistEntry{
		Quality: models.QualityUnknown,
		Format:  models.FormatMP4,
		PlayURL: u,
	}
}

func extractSectionTitle(page string) string {
	if m := videoInfoTitlePattern.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	if m := trainingVideoTitlePattern.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	return findTitleOutsideCourse(page)
}

// findTitleOutsideCourse returns the first "title" field that does not
// sit inside a "course" object. RE2 has no lookbehind, so the preceding
// context of each match is inspected instead.
func findTitleOutsideCourse(page string) string {
	const window = 80
	for _, loc := range bareTitlePattern.FindAllStringSubmatchIndex(page, -1) {
		start := loc[0]
		from := start - window
		if from < 0 {
			from = 0
		}
		if strings.Contains(page[from:start], `"course"`) {
			continue
		}
		return page[loc[2]:loc[3]]
	}
	return ""
}

func extractCourseTitle(page string) string {
	if m := productCourseTitlePattern.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	if m := courseTitlePattern.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	return ""
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func truncateForLog(s string) string {
	if len(s) > 50 {
		return s[:50] + "..."
	}
	return s
}
