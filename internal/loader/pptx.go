package loader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// slidePath matches ppt/slides/slideN.xml and captures the slide number.
var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// drawTextTag matches <a:t>text</a:t> with any attributes on the tag.
var drawTextTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// loadPPTX extracts one document per slide, in slide order regardless of zip
// entry order. Slides without text are skipped.
func loadPPTX(content []byte) ([]models.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pptx: not a zip: %w", err)
	}

	type slide struct {
		num  int
		text string
	}
	var slides []slide

	for _, f := range zr.File {
		m := slidePath.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		data, err := readZipFile(zr, f.Name)
		if err != nil {
			return nil, fmt.Errorf("open pptx: %w", err)
		}

		parts := drawTextTag.FindAllStringSubmatch(string(data), -1)
		var b strings.Builder
		for _, p := range parts {
			piece := strings.TrimSpace(p[1])
			if piece == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(piece)
		}

		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		slides = append(slides, slide{num: num, text: text})
	}

	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	docs := make([]models.Document, 0, len(slides))
	for _, s := range slides {
		docs = append(docs, models.Document{
			Text:     s.text,
			Metadata: map[string]string{"slide": strconv.Itoa(s.num)},
		})
	}
	return docs, nil
}
