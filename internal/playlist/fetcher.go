package playlist

import (
	"context"
	"fmt"
	"sort"

	"github.com/andhikamw/lensdl/pkg/models"
	"github.com/sirupsen/logrus"
)

// APIClient is the authenticated JSON GET capability the fetcher needs.
type APIClient interface {
	GetJSON(ctx context.Context, url string, v any) (int, error)
}

// Video API endpoint templates, tried in priority order. The first one
// that yields a usable playlist wins.
var endpointTemplates = []string{
	"https://lens.zhihu.com/api/v4/videos/%s",
	"https://lens.zhihu.com/api/videos/%s",
}

type apiEntry struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"`
	PlayURL string `json:"play_url"`
	Size    int64  `json:"size"`
}

type apiResponse struct {
	Title      string              `json:"title"`
	Duration   int64               `json:"duration"`
	Playlist   map[string]apiEntry `json:"playlist"`
	PlaylistV2 map[string]apiEntry `json:"playlist_v2"`
}

// Fetcher queries the video API endpoints for a canonical identifier and
// normalizes the heterogeneous playlist shapes into the Playlist model.
type Fetcher struct {
	client APIClient
	log    *logrus.Logger
}

// NewFetcher creates a Fetcher around the given request capability.
func NewFetcher(client APIClient, log *logrus.Logger) *Fetcher {
	return &Fetcher{client: client, log: log}
}

// FetchPlaylist resolves an identifier into a VideoInfo with a usable
// playlist. A non-200 status, a decode failure, or an empty playlist on
// one candidate silently moves to the next; only total exhaustion
// returns ErrPlaylistUnavailable. The title argument, when non-empty,
// overrides whatever the API reports.
func (f *Fetcher) FetchPlaylist(ctx context.Context, id, title string) (*models.VideoInfo, error) {
	for _, template := range endpointTemplates {
		endpoint := fmt.Sprintf(template, id)
		f.log.WithField("endpoint", endpoint).Debug("Trying video API")

		var body apiResponse
		status, err := f.client.GetJSON(ctx, endpoint, &body)
		if err != nil {
			f.log.WithError(err).Debug("Video API request failed")
			continue
		}
		if status != 200 {
			f.log.WithField("status", status).Debug("Video API returned non-200")
			continue
		}

		raw := body.Playlist
		if len(raw) == 0 {
			raw = body.PlaylistV2
		}
		if len(raw) == 0 {
			f.log.Debug("Video API returned no playlist")
			continue
		}

		playlist := normalize(raw)
		if !playlist.HasUsable() {
			f.log.Debug("Playlist has no usable entries")
			continue
		}

		info := &models.VideoInfo{
			ID:             id,
			Title:          title,
			DurationMillis: body.Duration,
			Playlist:       playlist,
		}
		if info.Title == "" {
			info.Title = body.Title
		}
		if info.Title == "" {
			info.Title = PlaceholderTitle(id)
		}
		return info, nil
	}

	return nil, fmt.Errorf("video %s: %w", truncateID(id), models.ErrPlaylistUnavailable)
}

// normalize converts an API playlist map into the ordered Playlist
// model: known tags best-first, then any unrecognized tags in sorted
// order so the result is deterministic.
func normalize(raw map[string]apiEntry) *models.Playlist {
	playlist := models.NewPlaylist()
	known := make(map[models.Quality]bool, len(models.QualityOrder))

	for _, q := range models.QualityOrder {
		known[q] = true
		if entry, ok := raw[string(q)]; ok {
			playlist.Set(toEntry(q, entry))
		}
	}

	rest := make([]string, 0)
	for tag := range raw {
		if !known[models.Quality(tag)] {
			rest = append(rest, tag)
		}
	}
	sort.Strings(rest)
	for _, tag := range rest {
		playlist.Set(toEntry(models.Quality(tag), raw[tag]))
	}

	return playlist
}

func toEntry(q models.Quality, e apiEntry) models.PlaylistEntry {
	format := e.Format
	if format == "" {
		format = models.FormatM3U8
	}
	return models.PlaylistEntry{
		Quality: q,
		Width:   e.Width,
		Height:  e.Height,
		Format:  format,
		PlayURL: e.PlayURL,
		Size:    e.Size,
	}
}

// PlaceholderTitle generates the fallback title for an identifier when
// no real title is discoverable.
func PlaceholderTitle(id string) string {
	const prefixLen = 20
	if len(id) > prefixLen {
		id = id[:prefixLen]
	}
	return "video_" + id
}

func truncateID(id string) string {
	if len(id) > 50 {
		return id[:50] + "..."
	}
	return id
}
