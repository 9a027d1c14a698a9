package media

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

//go:embed viewers.toml
var viewersTOML []byte

// ViewerDefinition describes how to invoke one viewer.
type ViewerDefinition struct {
	Description string      `toml:"description"`
	Platforms   []string    `toml:"platforms"`
	Image       *ViewerArgs `toml:"image,omitempty"`
	Video       *ViewerArgs `toml:"video,omitempty"`
}

type ViewerArgs struct {
	Args        []string `toml:"args,omitempty"`
	ArgsDarwin  []string `toml:"args_darwin,omitempty"`
	ArgsLinux   []string `toml:"args_linux,omitempty"`
	ArgsWindows []string `toml:"args_windows,omitempty"`
}

type ViewersConfig struct {
	Viewers map[string]ViewerDefinition `toml:"viewers"`
}

type ViewerRegistry struct {
	viewers map[string]ViewerDefinition
	goos    string
}

// NewViewerRegistry loads the embedded definitions and merges the user's
// overrides from userFiles, silently skipping files that do not exist.
func NewViewerRegistry(userFiles ...string) (*ViewerRegistry, error) {
	var cfg ViewersConfig
	if err := toml.Unmarshal(viewersTOML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing viewers.toml: %w", err)
	}
	r := &ViewerRegistry{viewers: cfg.Viewers, goos: runtime.GOOS}
	if r.viewers == nil {
		r.viewers = make(map[string]ViewerDefinition)
	}

	for _, file := range userFiles {
		if err := r.merge(file); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultUserFile is where user viewer overrides live.
func DefaultUserFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "imgfind", "viewers.toml")
}

func (r *ViewerRegistry) merge(file string) error {
	if file == "" {
		return nil
	}
	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	var user ViewersConfig
	if err := toml.Unmarshal(data, &user); err != nil {
		return fmt.Errorf("parsing %s: %w", file, err)
	}
	for name, def := range user.Viewers {
		r.viewers[name] = def
	}
	return nil
}

func (r *ViewerRegistry) Lookup(name string) (ViewerDefinition, bool) {
	def, ok := r.viewers[name]
	return def, ok
}

// Command builds the invocation of viewer for link. Viewers without a
// definition are run with the link as their only argument.
func (r *ViewerRegistry) Command(viewer string, t Type, link string) (*exec.Cmd, error) {
	def, ok := r.viewers[viewer]
	if !ok {
		return exec.Command(viewer, link), nil
	}
	if !slices.Contains(def.Platforms, r.goos) {
		return nil, fmt.Errorf("%s is not available on %s", viewer, r.goos)
	}

	args := def.Image
	if t == TypeVideo {
		args = def.Video
	}
	if args == nil {
		return nil, fmt.Errorf("%s cannot show %s links", viewer, t)
	}

	argv := append(append([]string(nil), r.argsFor(args)...), link)
	return exec.Command(viewer, argv...), nil
}

func (r *ViewerRegistry) argsFor(a *ViewerArgs) []string {
	switch r.goos {
	case "darwin":
		if len(a.ArgsDarwin) > 0 {
			return a.ArgsDarwin
		}
	case "linux":
		if len(a.ArgsLinux) > 0 {
			return a.ArgsLinux
		}
	case "windows":
		if len(a.ArgsWindows) > 0 {
			return a.ArgsWindows
		}
	}
	return a.Args
}
