package media

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/imgfind/internal/config"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected Type
	}{
		{name: "PNG", url: "https://i.imgur.com/abc.png", expected: TypeImage},
		{name: "JPEG uppercase", url: "https://i.imgur.com/abc.JPEG", expected: TypeImage},
		{name: "GIF", url: "https://i.imgur.com/abc.gif", expected: TypeImage},
		{name: "WebP with query", url: "https://i.imgur.com/abc.webp?maxwidth=640", expected: TypeImage},
		{name: "MP4", url: "https://i.imgur.com/abc.mp4", expected: TypeVideo},
		{name: "GIFV", url: "https://i.imgur.com/abc.gifv", expected: TypeVideo},
		{name: "fragment ignored", url: "https://i.imgur.com/abc.webm#t=3", expected: TypeVideo},
		{name: "gallery page", url: "https://imgur.com/gallery/abc", expected: TypeUnknown},
		{name: "dot in host only", url: "https://imgur.com", expected: TypeUnknown},
		{name: "unknown extension", url: "https://example.com/file.xyz", expected: TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectType(tt.url))
		})
	}
}

func TestPlayableLink(t *testing.T) {
	assert.Equal(t, "https://i.imgur.com/abc.mp4", PlayableLink("https://i.imgur.com/abc.gifv"))
	assert.Equal(t, "https://i.imgur.com/abc.mp4?x=1", PlayableLink("https://i.imgur.com/abc.GIFV?x=1"))
	assert.Equal(t, "https://i.imgur.com/abc.png", PlayableLink("https://i.imgur.com/abc.png"))
}

func TestViewerRegistry_Embedded(t *testing.T) {
	r, err := NewViewerRegistry()
	require.NoError(t, err)

	for _, name := range []string{"feh", "mpv", "open", "xdg-open"} {
		def, ok := r.Lookup(name)
		assert.True(t, ok, name)
		assert.NotEmpty(t, def.Platforms, name)
		assert.NotNil(t, def.Image, name)
	}
}

func TestViewerRegistry_Command(t *testing.T) {
	r := &ViewerRegistry{
		goos: "linux",
		viewers: map[string]ViewerDefinition{
			"feh": {
				Platforms: []string{"linux"},
				Image:     &ViewerArgs{Args: []string{"--scale-down"}},
			},
			"mpv": {
				Platforms: []string{"darwin", "linux"},
				Image:     &ViewerArgs{Args: []string{"--loop"}},
				Video:     &ViewerArgs{Args: []string{"--loop"}, ArgsLinux: []string{"--loop", "--vo=gpu"}},
			},
			"preview": {
				Platforms: []string{"darwin"},
				Image:     &ViewerArgs{},
			},
		},
	}
	link := "https://i.imgur.com/abc.png"

	tests := []struct {
		name    string
		viewer  string
		kind    Type
		want    []string
		wantErr bool
	}{
		{name: "generic args", viewer: "feh", kind: TypeImage, want: []string{"feh", "--scale-down", link}},
		{name: "platform args win", viewer: "mpv", kind: TypeVideo, want: []string{"mpv", "--loop", "--vo=gpu", link}},
		{name: "unsupported media", viewer: "feh", kind: TypeVideo, wantErr: true},
		{name: "wrong platform", viewer: "preview", kind: TypeImage, wantErr: true},
		{name: "undefined viewer", viewer: "my-viewer", kind: TypeImage, want: []string{"my-viewer", link}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := r.Command(tt.viewer, tt.kind, link)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd.Args)
		})
	}
}

func TestViewerRegistry_UserOverrides(t *testing.T) {
	file := filepath.Join(t.TempDir(), "viewers.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
[viewers.feh]
platforms = ["linux"]
[viewers.feh.image]
args = ["--fullscreen"]
`), 0o600))

	r, err := NewViewerRegistry(file, filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	def, ok := r.Lookup("feh")
	require.True(t, ok)
	assert.Equal(t, []string{"--fullscreen"}, def.Image.Args)

	_, ok = r.Lookup("mpv")
	assert.True(t, ok, "built-ins survive the merge")
}

func TestViewerRegistry_BadUserFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "viewers.toml")
	require.NoError(t, os.WriteFile(file, []byte("[viewers\n"), 0o600))

	_, err := NewViewerRegistry(file)
	assert.Error(t, err)
}

func fakeLookPath(installed ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, n := range installed {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func TestLauncher_PicksFirstInstalledViewer(t *testing.T) {
	r := &ViewerRegistry{goos: "linux", viewers: map[string]ViewerDefinition{}}
	cfg := config.MediaConfig{Linux: []string{"imv", "feh", "sxiv"}, DefaultOpener: "xdg-open"}

	l := newLauncher(cfg, r, fakeLookPath("feh", "sxiv"), nil)
	assert.Equal(t, "feh", l.Viewer())

	l = newLauncher(cfg, r, fakeLookPath(), nil)
	assert.Equal(t, "xdg-open", l.Viewer())
}

func TestLauncher_Open(t *testing.T) {
	r, err := NewViewerRegistry()
	require.NoError(t, err)
	r.goos = "linux"

	var started []*exec.Cmd
	start := func(cmd *exec.Cmd) error {
		started = append(started, cmd)
		return nil
	}
	l := newLauncher(config.MediaConfig{Linux: []string{"mpv"}}, r, fakeLookPath("mpv"), start)

	require.NoError(t, l.Open("https://i.imgur.com/abc.gifv"))
	require.Len(t, started, 1)
	args := started[0].Args
	assert.Equal(t, "mpv", args[0])
	assert.Equal(t, "https://i.imgur.com/abc.mp4", args[len(args)-1])

	assert.Error(t, l.Open("file:///etc/passwd"))
	assert.Error(t, l.Open("http://localhost/x.png"))
	assert.Len(t, started, 1)
}

func TestLauncher_OpenErrors(t *testing.T) {
	r := &ViewerRegistry{goos: "linux", viewers: map[string]ViewerDefinition{}}

	l := newLauncher(config.MediaConfig{}, r, fakeLookPath(), nil)
	assert.ErrorIs(t, l.Open("https://i.imgur.com/abc.png"), ErrNoViewer)

	boom := errors.New("exec format error")
	l = newLauncher(config.MediaConfig{DefaultOpener: "xdg-open"}, r, fakeLookPath(),
		func(*exec.Cmd) error { return boom })
	assert.ErrorIs(t, l.Open("https://i.imgur.com/abc.png"), boom)
}
