package imgur

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

const thumbnailTemplate = "https://i.imgur.com/%sm.%s"

type Sort string

const (
	SortTop   Sort = "top"
	SortViral Sort = "viral"
	SortTime  Sort = "time"
)

type Window string

const (
	WindowAll   Window = "all"
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
)

func ParseSort(s string) (Sort, error) {
	switch v := Sort(strings.ToLower(strings.TrimSpace(s))); v {
	case SortTop, SortViral, SortTime:
		return v, nil
	case "":
		return SortTop, nil
	default:
		return "", fmt.Errorf("unknown sort %q (want top, viral or time)", s)
	}
}

func ParseWindow(s string) (Window, error) {
	switch v := Window(strings.ToLower(strings.TrimSpace(s))); v {
	case WindowAll, WindowDay, WindowWeek, WindowMonth, WindowYear:
		return v, nil
	case "":
		return WindowAll, nil
	default:
		return "", fmt.Errorf("unknown window %q (want all, day, week, month or year)", s)
	}
}

// Query identifies one page of a gallery search.
type Query struct {
	Term   string
	Sort   Sort
	Window Window
	Page   int
}

func (q Query) withDefaults() Query {
	if q.Sort == "" {
		q.Sort = SortTop
	}
	if q.Window == "" {
		q.Window = WindowAll
	}
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// Image is a single search result. Thumbnail is filled in while decoding.
type Image struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link"`
	Thumbnail   string `json:"-"`
}

// ThumbnailURL derives the medium thumbnail for an image id from the
// extension of its full-size link. A link without extension yields a
// trailing dot.
func ThumbnailURL(id, link string) string {
	ext := strings.TrimPrefix(path.Ext(link), ".")
	return fmt.Sprintf(thumbnailTemplate, id, ext)
}

func (img *Image) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          *string `json:"id"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Link        *string `json:"link"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == nil {
		return errors.New("image: missing id")
	}
	if raw.Link == nil {
		return errors.New("image: missing link")
	}

	*img = Image{
		ID:        *raw.ID,
		Link:      *raw.Link,
		Thumbnail: ThumbnailURL(*raw.ID, *raw.Link),
	}
	if raw.Title != nil {
		img.Title = *raw.Title
	}
	if raw.Description != nil {
		img.Description = *raw.Description
	}
	return nil
}

// Gallery groups images. Galleries without an images array contribute no
// results.
type Gallery struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Link        string  `json:"link"`
	Images      []Image `json:"images,omitempty"`
}

func (g *Gallery) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          *string `json:"id"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Link        *string `json:"link"`
		Images      []Image `json:"images"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID == nil:
		return errors.New("gallery: missing id")
	case raw.Title == nil:
		return errors.New("gallery: missing title")
	case raw.Link == nil:
		return errors.New("gallery: missing link")
	}

	*g = Gallery{
		ID:     *raw.ID,
		Title:  *raw.Title,
		Link:   *raw.Link,
		Images: raw.Images,
	}
	if raw.Description != nil {
		g.Description = *raw.Description
	}
	return nil
}

type searchResponse struct {
	Data    []Gallery `json:"data"`
	Status  int       `json:"status"`
	Success bool      `json:"success"`
}

// ResultPage is one decoded page. An empty page means there are no more results.
type ResultPage struct {
	Number  int
	Results []Image
}

func (p ResultPage) Empty() bool {
	return len(p.Results) == 0
}

func flatten(galleries []Gallery) []Image {
	var out []Image
	for _, g := range galleries {
		out = append(out, g.Images...)
	}
	return out
}
