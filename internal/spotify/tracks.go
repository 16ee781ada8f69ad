package spotify

import "github.com/zmb3/spotify/v2"

// fromSimpleTrack converts a recommendations result.
func fromSimpleTrack(t spotify.SimpleTrack) Track {
	return Track{
		ID:            t.ID.String(),
		Name:          t.Name,
		Artists:       artistNames(t.Artists),
		AlbumImageURL: firstImage(t.Album.Images),
		PreviewURL:    t.PreviewURL,
	}
}

// fromFullTrack converts a search result.
func fromFullTrack(t spotify.FullTrack) Track {
	return Track{
		ID:            t.ID.String(),
		Name:          t.Name,
		Artists:       artistNames(t.Artists),
		AlbumImageURL: firstImage(t.Album.Images),
		PreviewURL:    t.PreviewURL,
	}
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}

func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
