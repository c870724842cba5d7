package playlist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andhikamw/lensdl/pkg/models"
)

type fakeAPIClient struct {
	responses map[string]string
	statuses  map[string]int
	calls     []string
}

func (f *fakeAPIClient) GetJSON(_ context.Context, url string, v any) (int, error) {
	f.calls = append(f.calls, url)
	if status, ok := f.statuses[url]; ok {
		return status, nil
	}
	body, ok := f.responses[url]
	if !ok {
		return 404, nil
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return 200, err
	}
	return 200, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestFetchPlaylistFirstEndpoint(t *testing.T) {
	client := &fakeAPIClient{responses: map[string]string{
		"https://lens.zhihu.com/api/v4/videos/vid1": `{
			"title": "API 标题",
			"duration": 754000,
			"playlist": {
				"hd": {"width": 1280, "height": 720, "format": "m3u8", "play_url": "https://vzuu/hd.m3u8"},
				"sd": {"width": 854, "height": 480, "format": "m3u8", "play_url": "https://vzuu/sd.m3u8"}
			}
		}`,
	}}
	f := NewFetcher(client, testLogger())

	info, err := f.FetchPlaylist(context.Background(), "vid1", "")
	require.NoError(t, err)
	assert.Equal(t, "vid1", info.ID)
	assert.Equal(t, "API 标题", info.Title)
	assert.Equal(t, int64(754000), info.DurationMillis)
	assert.Equal(t, []models.Quality{models.QualityHD, models.QualitySD}, info.Playlist.Qualities())
	assert.Len(t, client.calls, 1)
}

func TestFetchPlaylistFallsBackOnServerError(t *testing.T) {
	client := &fakeAPIClient{
		statuses: map[string]int{
			"https://lens.zhihu.com/api/v4/videos/vid2": 500,
		},
		responses: map[string]string{
			"https://lens.zhihu.com/api/videos/vid2": `{
				"playlist_v2": {
					"sd": {"width": 854, "height": 480, "play_url": "https://vzuu/sd.m3u8"}
				}
			}`,
		},
	}
	f := NewFetcher(client, testLogger())

	info, err := f.FetchPlaylist(context.Background(), "vid2", "")
	require.NoError(t, err)

	entry, ok := info.Playlist.Get(models.QualitySD)
	require.True(t, ok)
	assert.Equal(t, "https://vzuu/sd.m3u8", entry.PlayURL)
	assert.Equal(t, models.FormatM3U8, entry.Format, "missing format defaults to m3u8")
	assert.Len(t, client.calls, 2)
}

func TestFetchPlaylistSkipsEmptyPlaylist(t *testing.T) {
	client := &fakeAPIClient{responses: map[string]string{
		"https://lens.zhihu.com/api/v4/videos/vid3": `{"title": "t", "playlist": {}}`,
		"https://lens.zhihu.com/api/videos/vid3": `{
			"playlist": {"ld": {"play_url": "https://vzuu/ld.m3u8"}}
		}`,
	}}
	f := NewFetcher(client, testLogger())

	info, err := f.FetchPlaylist(context.Background(), "vid3", "")
	require.NoError(t, err)
	assert.True(t, info.Playlist.HasUsable())
}

func TestFetchPlaylistSkipsUnusableEntries(t *testing.T) {
	// Entries exist but none carries a play URL; the candidate is skipped.
	client := &fakeAPIClient{responses: map[string]string{
		"https://lens.zhihu.com/api/v4/videos/vid4": `{
			"playlist": {"hd": {"width": 1280, "height": 720}}
		}`,
	}}
	f := NewFetcher(client, testLogger())

	_, err := f.FetchPlaylist(context.Background(), "vid4", "")
	assert.True(t, errors.Is(err, models.ErrPlaylistUnavailable))
}

func TestFetchPlaylistExhaustion(t *testing.T) {
	f := NewFetcher(&fakeAPIClient{}, testLogger())

	_, err := f.FetchPlaylist(context.Background(), "missing", "")
	assert.True(t, errors.Is(err, models.ErrPlaylistUnavailable))
}

func TestFetchPlaylistTitleOverride(t *testing.T) {
	client := &fakeAPIClient{responses: map[string]string{
		"https://lens.zhihu.com/api/v4/videos/vid5": `{
			"title": "API 标题",
			"playlist": {"hd": {"play_url": "https://vzuu/hd.m3u8"}}
		}`,
	}}
	f := NewFetcher(client, testLogger())

	info, err := f.FetchPlaylist(context.Background(), "vid5", "调用方标题")
	require.NoError(t, err)
	assert.Equal(t, "调用方标题", info.Title)
}

func TestFetchPlaylistPlaceholderTitle(t *testing.T) {
	client := &fakeAPIClient{responses: map[string]string{
		"https://lens.zhihu.com/api/v4/videos/abcdefghijklmnopqrstuvwxyz": `{
			"playlist": {"hd": {"play_url": "https://vzuu/hd.m3u8"}}
		}`,
	}}
	f := NewFetcher(client, testLogger())

	info, err := f.FetchPlaylist(context.Background(), "abcdefghijklmnopqrstuvwxyz", "")
	require.NoError(t, err)
	assert.Equal(t, "video_abcdefghijklmnopqrst", info.Title)
}

func TestNormalizeOrdersKnownTagsFirst(t *testing.T) {
	raw := map[string]apiEntry{
		"zz_custom": {PlayURL: "https://vzuu/zz.m3u8"},
		"sd":        {PlayURL: "https://vzuu/sd.m3u8"},
		"fhd":       {PlayURL: "https://vzuu/fhd.m3u8"},
		"aa_custom": {PlayURL: "https://vzuu/aa.m3u8"},
	}

	p := normalize(raw)
	assert.Equal(t, []models.Quality{
		models.QualityFHD,
		models.QualitySD,
		models.Quality("aa_custom"),
		models.Quality("zz_custom"),
	}, p.Qualities())
}

func TestPlaceholderTitle(t *testing.T) {
	assert.Equal(t, "video_short", PlaceholderTitle("short"))
	assert.Equal(t, "video_12345678901234567890", PlaceholderTitle("123456789012345678901234567890"))
}
