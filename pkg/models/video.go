package models

// Quality is the tag the backend uses to key one stream variant.
type Quality string

const (
	QualityUHD     Quality = "uhd"
	QualityFHD     Quality = "fhd"
	QualityHD      Quality = "hd"
	QualitySD      Quality = "sd"
	QualityLD      Quality = "ld"
	QualityUnknown Quality = "unknown"
)

// QualityOrder is the selection order from best to worst. Tags outside
// this list are still selectable by exact match.
var QualityOrder = []Quality{QualityUHD, QualityFHD, QualityHD, QualitySD, QualityLD}

// Stream formats as reported by the backend.
const (
	FormatM3U8 = "m3u8"
	FormatMP4  = "mp4"
)

// PlaylistEntry is one quality variant of a video.
type PlaylistEntry struct {
	Quality Quality `json:"quality"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Format  string  `json:"format"`
	PlayURL string  `json:"play_url"`
	Size    int64   `json:"size,omitempty"`
}

// Usable reports whether the entry carries a playable URL.
func (e PlaylistEntry) Usable() bool {
	return e.PlayURL != ""
}

// Playlist maps quality tags to entries while remembering insertion
// order, so last-resort selection stays deterministic. At most one entry
// exists per tag; setting a tag again overwrites the earlier entry.
type Playlist struct {
	order   []Quality
	entries map[Quality]PlaylistEntry
}

// NewPlaylist returns an empty playlist.
func NewPlaylist() *Playlist {
	return &Playlist{entries: make(map[Quality]PlaylistEntry)}
}

// Set stores an entry under its quality tag, overwriting any earlier
// entry for the same tag.
func (p *Playlist) Set(entry PlaylistEntry) {
	if _, ok := p.entries[entry.Quality]; !ok {
		p.order = append(p.order, entry.Quality)
	}
	p.entries[entry.Quality] = entry
}

// Get returns the entry for the given tag.
func (p *Playlist) Get(q Quality) (PlaylistEntry, bool) {
	e, ok := p.entries[q]
	return e, ok
}

// Qualities returns the tags in insertion order.
func (p *Playlist) Qualities() []Quality {
	out := make([]Quality, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of entries.
func (p *Playlist) Len() int {
	return len(p.entries)
}

// HasUsable reports whether at least one entry has a non-empty play URL.
// A playlist without usable entries is treated as absent everywhere.
func (p *Playlist) HasUsable() bool {
	for _, e := range p.entries {
		if e.Usable() {
			return true
		}
	}
	return false
}

// Entries returns all entries in insertion order.
func (p *Playlist) Entries() []PlaylistEntry {
	out := make([]PlaylistEntry, 0, len(p.order))
	for _, q := range p.order {
		out = append(out, p.entries[q])
	}
	return out
}

// VideoInfo is the resolved description of one playable item.
type VideoInfo struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	DurationMillis int64     `json:"duration"`
	Playlist       *Playlist `json:"-"`
}
