// Package assetkind sorts asset content types into the kinds the admin
// filters by: image, movie, audio, pdf and other.
package assetkind

import (
	"fmt"
	"strings"

	"github.com/xxxsen/mephisto/internal/config"
)

type Kind string

const (
	Image Kind = "image"
	Movie Kind = "movie"
	Audio Kind = "audio"
	PDF   Kind = "pdf"
	Other Kind = "other"
)

// classifyOrder is the order Classify walks the table in. A type listed in
// both the image types and an exception list is an image.
var classifyOrder = []Kind{Image, Movie, Audio, PDF}

func Parse(value string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(value))); k {
	case Image, Movie, Audio, PDF, Other:
		return k, nil
	default:
		return "", fmt.Errorf("unknown asset kind %q", value)
	}
}

type predicate func(c *Classifier, contentType string) bool

var predicates = map[Kind]predicate{
	Image: isImage,
	Movie: isMovie,
	Audio: isAudio,
	PDF:   isPDF,
	Other: isOther,
}

func isImage(c *Classifier, ct string) bool {
	return c.image[ct]
}

func isMovie(c *Classifier, ct string) bool {
	return strings.HasPrefix(ct, "video") || c.movie[ct]
}

func isAudio(c *Classifier, ct string) bool {
	return strings.HasPrefix(ct, "audio") || c.audio[ct]
}

func isPDF(c *Classifier, ct string) bool {
	return c.pdf[ct]
}

// isOther does not exclude pdf: a pdf is both.
func isOther(c *Classifier, ct string) bool {
	return !isImage(c, ct) && !isMovie(c, ct) && !isAudio(c, ct)
}

// Classifier is immutable once built and safe for concurrent use.
type Classifier struct {
	movie map[string]bool
	audio map[string]bool
	pdf   map[string]bool
	image map[string]bool

	movieList []string
	audioList []string
	pdfList   []string
	imageList []string
}

func New(extra config.ExtraContentTypes, imageTypes []string) *Classifier {
	c := &Classifier{
		movieList: normalize(extra.Movie),
		audioList: normalize(extra.Audio),
		pdfList:   normalize(extra.PDF),
		imageList: normalize(imageTypes),
	}
	c.movie = toSet(c.movieList)
	c.audio = toSet(c.audioList)
	c.pdf = toSet(c.pdfList)
	c.image = toSet(c.imageList)
	return c
}

func NewDefault() *Classifier {
	return New(config.DefaultExtraContentTypes(), config.DefaultImageTypes())
}

// Is reports whether contentType satisfies the predicate of kind.
func (c *Classifier) Is(kind Kind, contentType string) bool {
	pred, ok := predicates[kind]
	if !ok {
		return false
	}
	return pred(c, normalizeOne(contentType))
}

// Classify returns the single kind used for display. Unknown and empty
// types fall back to Other.
func (c *Classifier) Classify(contentType string) Kind {
	for _, kind := range classifyOrder {
		if c.Is(kind, contentType) {
			return kind
		}
	}
	return Other
}

// Kinds returns every kind whose predicate contentType satisfies.
func (c *Classifier) Kinds(contentType string) []Kind {
	kinds := make([]Kind, 0, 2)
	for _, kind := range []Kind{Image, Movie, Audio, PDF, Other} {
		if c.Is(kind, contentType) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func (c *Classifier) ImageTypes() []string {
	return append([]string(nil), c.imageList...)
}

func normalizeOne(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value
}

func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = normalizeOne(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
