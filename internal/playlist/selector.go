package playlist

import (
	"github.com/andhikamw/lensdl/pkg/models"
)

// SelectOption picks the entry to download. Policy:
//
//  1. exact match on the requested tag, when its URL is usable;
//  2. otherwise the best available tag in uhd > fhd > hd > sd > ld order;
//  3. otherwise the first usable entry in insertion order, so playlists
//     made only of unrecognized tags still yield a choice;
//  4. otherwise ErrNoUsableQuality.
func SelectOption(p *models.Playlist, requested models.Quality) (models.PlaylistEntry, error) {
	if p != nil {
		if entry, ok := p.Get(requested); ok && entry.Usable() {
			return entry, nil
		}
		for _, q := range models.QualityOrder {
			if entry, ok := p.Get(q); ok && entry.Usable() {
				return entry, nil
			}
		}
		for _, entry := range p.Entries() {
			if entry.Usable() {
				return entry, nil
			}
		}
	}
	return models.PlaylistEntry{}, models.ErrNoUsableQuality
}
