package media

import (
	"net/url"
	"path"
	"strings"
)

type Type int

const (
	TypeUnknown Type = iota
	TypeImage
	TypeVideo
)

func (t Type) String() string {
	switch t {
	case TypeImage:
		return "image"
	case TypeVideo:
		return "video"
	default:
		return "unknown"
	}
}

var extensions = map[string]Type{
	"jpg":  TypeImage,
	"jpeg": TypeImage,
	"png":  TypeImage,
	"gif":  TypeImage,
	"webp": TypeImage,
	"bmp":  TypeImage,
	"tif":  TypeImage,
	"tiff": TypeImage,
	"mp4":  TypeVideo,
	"webm": TypeVideo,
	"gifv": TypeVideo,
	"mov":  TypeVideo,
}

// DetectType classifies a link by its path extension. Query strings and
// fragments are ignored.
func DetectType(link string) Type {
	p := link
	if u, err := url.Parse(link); err == nil {
		p = u.Path
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if t, ok := extensions[ext]; ok {
		return t
	}
	return TypeUnknown
}

// PlayableLink rewrites .gifv links to the .mp4 file they wrap, since no
// viewer understands the former.
func PlayableLink(link string) string {
	u, err := url.Parse(link)
	if err != nil || !strings.EqualFold(path.Ext(u.Path), ".gifv") {
		return link
	}
	u.Path = strings.TrimSuffix(u.Path, path.Ext(u.Path)) + ".mp4"
	return u.String()
}
