package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind selects which tracks a download should produce.
type Kind int

const (
	KindVideo     Kind = iota // video with audio (merged if necessary)
	KindAudio                 // audio only
	KindVideoOnly             // video track without audio
)

// Plan is the outcome of format selection. Either Muxed is set, or some
// combination of Video and Audio; Video+Audio together require a merge step.
type Plan struct {
	Muxed *Format
	Video *Format
	Audio *Format
}

// NeedsMerge reports whether the plan downloads separate streams that must
// be muxed into one file.
func (p Plan) NeedsMerge() bool { return p.Video != nil && p.Audio != nil }

// SelectFormats picks streams for the requested kind and quality preference.
// Policy: highest resolution not exceeding the preference; when nothing fits
// under it, the nearest available above. Separate video+audio streams are
// chosen only when they beat the best progressive stream.
func SelectFormats(video *Video, quality string, kind Kind) (Plan, error) {
	targetHeight, preferLowest, err := ParseQuality(quality)
	if err != nil {
		return Plan{}, WrapCategory(CategoryMetadata, err)
	}

	var progressive, videoOnly, audioOnly []*Format
	for i := range video.Formats {
		f := &video.Formats[i]
		switch {
		case f.HasVideo() && f.HasAudio():
			progressive = append(progressive, f)
		case f.HasVideo():
			videoOnly = append(videoOnly, f)
		case f.HasAudio():
			audioOnly = append(audioOnly, f)
		}
	}

	switch kind {
	case KindAudio:
		best := pickAudio(audioOnly)
		if best == nil {
			// Progressive streams still carry audio; fall back so the
			// caller can extract it.
			if best = pickVideo(progressive, targetHeight, preferLowest); best == nil {
				return Plan{}, Errorf(CategoryMetadata, "no audio streams available")
			}
			return Plan{Muxed: best}, nil
		}
		return Plan{Audio: best}, nil

	case KindVideoOnly:
		best := pickVideo(videoOnly, targetHeight, preferLowest)
		if best == nil {
			best = pickVideo(progressive, targetHeight, preferLowest)
		}
		if best == nil {
			return Plan{}, Errorf(CategoryMetadata, "no video streams available")
		}
		return Plan{Muxed: best}, nil

	default: // KindVideo
		bestProgressive := pickVideo(progressive, targetHeight, preferLowest)
		bestVideo := pickVideo(videoOnly, targetHeight, preferLowest)
		bestAudio := pickAudio(audioOnly)

		// Separate streams win only when they actually improve resolution
		// and there is an audio track to pair with.
		if bestVideo != nil && bestAudio != nil &&
			(bestProgressive == nil || bestVideo.Height > bestProgressive.Height) {
			return Plan{Video: bestVideo, Audio: bestAudio}, nil
		}
		if bestProgressive == nil {
			return Plan{}, Errorf(CategoryMetadata, "no playable streams available")
		}
		return Plan{Muxed: bestProgressive}, nil
	}
}

func pickVideo(candidates []*Format, targetHeight int, preferLowest bool) *Format {
	if len(candidates) == 0 {
		return nil
	}

	if preferLowest {
		var best *Format
		for _, f := range candidates {
			if best == nil || f.Height < best.Height ||
				(f.Height == best.Height && f.Bitrate > best.Bitrate) {
				best = f
			}
		}
		return best
	}

	var best *Format
	if targetHeight > 0 {
		for _, f := range candidates {
			if f.Height == 0 || f.Height > targetHeight {
				continue
			}
			if best == nil || f.Height > best.Height ||
				(f.Height == best.Height && f.Bitrate > best.Bitrate) {
				best = f
			}
		}
		if best != nil {
			return best
		}
		// Nothing under the target: nearest above.
		for _, f := range candidates {
			if best == nil || f.Height < best.Height ||
				(f.Height == best.Height && f.Bitrate > best.Bitrate) {
				best = f
			}
		}
		return best
	}

	// No explicit target: highest available.
	for _, f := range candidates {
		if best == nil || f.Height > best.Height ||
			(f.Height == best.Height && f.Bitrate > best.Bitrate) {
			best = f
		}
	}
	return best
}

func pickAudio(candidates []*Format) *Format {
	var best *Format
	for _, f := range candidates {
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best
}

// ParseQuality parses a quality preference like "best", "worst" or "720p"
// into a target height. 0 target with preferLowest=false means "best".
func ParseQuality(q string) (targetHeight int, preferLowest bool, err error) {
	q = strings.TrimSpace(strings.ToLower(q))
	switch q {
	case "", "best":
		return 0, false, nil
	case "worst":
		return 0, true, nil
	}
	value, convErr := strconv.Atoi(strings.TrimSuffix(q, "p"))
	if convErr != nil || value <= 0 {
		return 0, false, fmt.Errorf("invalid quality %q (expected like 720p)", q)
	}
	return value, false, nil
}
