package media

import (
	"path/filepath"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
)

// EmbedAudioTags writes title/artist tags into an extracted audio file.
// Only .mp3 carries ID3 frames; other containers are skipped silently.
func EmbedAudioTags(path, title, artist string) error {
	if strings.ToLower(filepath.Ext(path)) != ".mp3" {
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return WrapCategory(CategoryIO, err)
	}
	defer tag.Close()

	if title != "" {
		tag.SetTitle(title)
	}
	if artist != "" {
		tag.SetArtist(artist)
	}
	if err := tag.Save(); err != nil {
		return WrapCategory(CategoryIO, err)
	}
	return nil
}
