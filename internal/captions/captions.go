// Package captions extracts subtitle text from CapCut draft projects and
// renders it as SRT or plain text.
package captions

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Caption is one subtitle cue. Times are seconds from the start of the
// timeline; an untimed caption has Start == End == 0.
type Caption struct {
	Text  string
	Start float64
	End   float64
}

// draftFileName is the project file CapCut writes inside each draft folder.
const draftFileName = "draft_content.json"

// FindDraftFile locates a draft_content.json under path. A direct path to a
// .json file is accepted as-is; directories are searched recursively.
func FindDraftFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("inspecting %s: %w", path, err)
	}
	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			return path, nil
		}
		return "", fmt.Errorf("%s is not a draft json file", path)
	}

	var found string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable subtrees
		}
		if !d.IsDir() && d.Name() == draftFileName {
			found = p
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no %s found under %s", draftFileName, path)
	}
	return found, nil
}

// draft mirrors the subset of draft_content.json we read. CapCut's schema
// shifts between versions, so every field is optional.
type draft struct {
	Materials struct {
		Texts []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"texts"`
		Stickers []struct {
			Text string `json:"text"`
		} `json:"stickers"`
	} `json:"materials"`
	Tracks []struct {
		Type     string `json:"type"`
		Segments []struct {
			MaterialID      string `json:"material_id"`
			TargetTimerange struct {
				Start    int64 `json:"start"`
				Duration int64 `json:"duration"`
			} `json:"target_timerange"`
		} `json:"segments"`
	} `json:"tracks"`
}

// ParseDraft reads a draft_content.json and returns its captions, joined
// with track timing, deduplicated by text and sorted by start time.
func ParseDraft(path string) ([]Caption, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading draft: %w", err)
	}

	var d draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parsing draft json: %w", err)
	}

	textByID := make(map[string]string)
	for _, t := range d.Materials.Texts {
		text := unwrapContent(t.Content)
		if t.ID != "" && text != "" {
			textByID[t.ID] = text
		}
	}

	var captions []Caption

	// Track segments carry the timing; join them to materials by id.
	for _, track := range d.Tracks {
		for _, seg := range track.Segments {
			text, ok := textByID[seg.MaterialID]
			if !ok {
				continue
			}
			start := float64(seg.TargetTimerange.Start) / 1e6
			end := start + float64(seg.TargetTimerange.Duration)/1e6
			captions = append(captions, Caption{Text: text, Start: start, End: end})
			delete(textByID, seg.MaterialID)
		}
	}

	// Texts never referenced by a segment still get exported, untimed.
	for _, text := range textByID {
		captions = append(captions, Caption{Text: text})
	}

	for _, s := range d.Materials.Stickers {
		if text := unwrapContent(s.Text); text != "" {
			captions = append(captions, Caption{Text: text})
		}
	}

	sort.SliceStable(captions, func(i, j int) bool {
		return captions[i].Start < captions[j].Start
	})

	seen := make(map[string]struct{})
	unique := captions[:0]
	for _, c := range captions {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if _, dup := seen[c.Text]; dup {
			continue
		}
		seen[c.Text] = struct{}{}
		unique = append(unique, c)
	}
	return unique, nil
}

// unwrapContent pulls the caption text out of a content field, which may be
// plain text or styled JSON of the form {"styles":[...],"text":"..."}.
func unwrapContent(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if strings.HasPrefix(content, "{") && strings.HasSuffix(content, "}") {
		var styled struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(content), &styled); err == nil {
			return strings.TrimSpace(styled.Text)
		}
	}
	return content
}

// ToSRT renders captions in SubRip format with CRLF line endings.
func ToSRT(captions []Caption) string {
	var b strings.Builder
	for i, c := range captions {
		fmt.Fprintf(&b, "%d\r\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\r\n", srtTime(c.Start), srtTime(c.End))
		b.WriteString(c.Text)
		b.WriteString("\r\n\r\n")
	}
	return strings.TrimSuffix(b.String(), "\r\n")
}

// ToTXT renders caption text only, one line per cue.
func ToTXT(captions []Caption) string {
	lines := make([]string, 0, len(captions))
	for _, c := range captions {
		lines = append(lines, c.Text)
	}
	return strings.Join(lines, "\n")
}

func srtTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	m := millis % 3600000 / 60000
	s := millis % 60000 / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
