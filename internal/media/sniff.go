package media

import (
	"io"
	"os"

	"github.com/h2non/filetype"
)

// IsMediaFile sniffs the first bytes of path and reports whether it looks
// like an audio or video container. Used as a sanity check before a finished
// download is recorded in history.
func IsMediaFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	// filetype needs at most 261 bytes to match.
	buf := make([]byte, 261)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false
	}
	buf = buf[:n]

	kind, err := filetype.Match(buf)
	if err != nil {
		return false
	}
	return kind.MIME.Type == "video" || kind.MIME.Type == "audio"
}
