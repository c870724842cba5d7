package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaylistKeepsInsertionOrder(t *testing.T) {
	p := NewPlaylist()
	p.Set(PlaylistEntry{Quality: QualitySD, PlayURL: "http://cdn/sd"})
	p.Set(PlaylistEntry{Quality: QualityFHD, PlayURL: "http://cdn/fhd"})
	p.Set(PlaylistEntry{Quality: QualityHD, PlayURL: "http://cdn/hd"})

	assert.Equal(t, []Quality{QualitySD, QualityFHD, QualityHD}, p.Qualities())
	assert.Equal(t, 3, p.Len())

	entries := p.Entries()
	assert.Equal(t, "http://cdn/sd", entries[0].PlayURL)
	assert.Equal(t, "http://cdn/hd", entries[2].PlayURL)
}

func TestPlaylistSetOverwritesButKeepsPosition(t *testing.T) {
	p := NewPlaylist()
	p.Set(PlaylistEntry{Quality: QualityHD, PlayURL: "http://cdn/old"})
	p.Set(PlaylistEntry{Quality: QualitySD, PlayURL: "http://cdn/sd"})
	p.Set(PlaylistEntry{Quality: QualityHD, PlayURL: "http://cdn/new"})

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []Quality{QualityHD, QualitySD}, p.Qualities())

	entry, ok := p.Get(QualityHD)
	assert.True(t, ok)
	assert.Equal(t, "http://cdn/new", entry.PlayURL)
}

func TestPlaylistHasUsable(t *testing.T) {
	p := NewPlaylist()
	assert.False(t, p.HasUsable())

	p.Set(PlaylistEntry{Quality: QualityHD})
	assert.False(t, p.HasUsable(), "entry without a play URL is not usable")

	p.Set(PlaylistEntry{Quality: QualitySD, PlayURL: "http://cdn/sd"})
	assert.True(t, p.HasUsable())
}

func TestEntryUsable(t *testing.T) {
	assert.False(t, PlaylistEntry{Quality: QualityHD}.Usable())
	assert.True(t, PlaylistEntry{Quality: QualityHD, PlayURL: "http://cdn/hd"}.Usable())
}
