package playlist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andhikamw/lensdl/pkg/models"
)

func buildPlaylist(entries ...models.PlaylistEntry) *models.Playlist {
	p := models.NewPlaylist()
	for _, e := range entries {
		p.Set(e)
	}
	return p
}

func TestSelectExactMatch(t *testing.T) {
	p := buildPlaylist(
		models.PlaylistEntry{Quality: models.QualityFHD, PlayURL: "https://vzuu/fhd"},
		models.PlaylistEntry{Quality: models.QualityHD, PlayURL: "https://vzuu/hd"},
	)

	entry, err := SelectOption(p, models.QualityHD)
	require.NoError(t, err)
	assert.Equal(t, models.QualityHD, entry.Quality)
}

func TestSelectBestAvailableWhenRequestedAbsent(t *testing.T) {
	p := buildPlaylist(
		models.PlaylistEntry{Quality: models.QualityLD, PlayURL: "https://vzuu/ld"},
		models.PlaylistEntry{Quality: models.QualityFHD, PlayURL: "https://vzuu/fhd"},
	)

	entry, err := SelectOption(p, models.QualityHD)
	require.NoError(t, err)
	assert.Equal(t, models.QualityFHD, entry.Quality)
}

func TestSelectFallsPastUnusableExactMatch(t *testing.T) {
	p := buildPlaylist(
		models.PlaylistEntry{Quality: models.QualityHD},
		models.PlaylistEntry{Quality: models.QualitySD, PlayURL: "https://vzuu/sd"},
	)

	entry, err := SelectOption(p, models.QualityHD)
	require.NoError(t, err)
	assert.Equal(t, models.QualitySD, entry.Quality)
}

func TestSelectBestIsBelowRequested(t *testing.T) {
	p := buildPlaylist(
		models.PlaylistEntry{Quality: models.QualityHD, PlayURL: "https://vzuu/hd"},
	)

	entry, err := SelectOption(p, models.QualityUHD)
	require.NoError(t, err)
	assert.Equal(t, models.QualityHD, entry.Quality)
}

func TestSelectUnrecognizedTagsUseInsertionOrder(t *testing.T) {
	p := buildPlaylist(
		models.PlaylistEntry{Quality: models.Quality("v1"), PlayURL: "https://vzuu/v1"},
		models.PlaylistEntry{Quality: models.Quality("v2"), PlayURL: "https://vzuu/v2"},
	)

	for i := 0; i < 10; i++ {
		entry, err := SelectOption(p, models.QualityHD)
		require.NoError(t, err)
		assert.Equal(t, models.Quality("v1"), entry.Quality, "last-resort choice must be deterministic")
	}
}

func TestSelectNoUsableQuality(t *testing.T) {
	p := buildPlaylist(models.PlaylistEntry{Quality: models.QualityHD})

	_, err := SelectOption(p, models.QualityHD)
	assert.True(t, errors.Is(err, models.ErrNoUsableQuality))
}

func TestSelectNilPlaylist(t *testing.T) {
	_, err := SelectOption(nil, models.QualityHD)
	assert.True(t, errors.Is(err, models.ErrNoUsableQuality))
}
