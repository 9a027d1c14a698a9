package media

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/pders01/imgfind/internal/config"
	"github.com/pders01/imgfind/internal/debuglog"
	"github.com/pders01/imgfind/internal/validation"
)

var ErrNoViewer = errors.New("no image viewer found")

// Launcher opens full-size images in an external viewer.
type Launcher struct {
	viewer        string
	defaultOpener string
	registry      *ViewerRegistry
	validator     *validation.ImageURLValidator

	lookPath func(string) (string, error)
	start    func(*exec.Cmd) error
}

func NewLauncher(cfg config.MediaConfig) *Launcher {
	registry, err := NewViewerRegistry(DefaultUserFile())
	if err != nil {
		debuglog.Warnf("viewer definitions: %v", err)
		registry = &ViewerRegistry{viewers: map[string]ViewerDefinition{}, goos: runtime.GOOS}
	}
	return newLauncher(cfg, registry, exec.LookPath, startDetached)
}

func newLauncher(cfg config.MediaConfig, registry *ViewerRegistry, lookPath func(string) (string, error), start func(*exec.Cmd) error) *Launcher {
	l := &Launcher{
		defaultOpener: cfg.DefaultOpener,
		registry:      registry,
		validator:     validation.NewImageURLValidator(),
		lookPath:      lookPath,
		start:         start,
	}

	var candidates []string
	switch registry.goos {
	case "darwin":
		candidates = cfg.Darwin
	case "windows":
		candidates = cfg.Windows
	default:
		candidates = cfg.Linux
	}
	l.viewer = l.findCommand(candidates...)
	if l.viewer == "" {
		l.viewer = l.defaultOpener
	}
	return l
}

// Viewer is the command Open will use.
func (l *Launcher) Viewer() string { return l.viewer }

// Open validates link and starts the viewer without waiting for it.
func (l *Launcher) Open(link string) error {
	clean, err := l.validator.Validate(link)
	if err != nil {
		return err
	}
	if l.viewer == "" {
		return ErrNoViewer
	}

	t := DetectType(clean)
	target := PlayableLink(clean)

	cmd, err := l.registry.Command(l.viewer, t, target)
	if err != nil {
		debuglog.Debugf("falling back to plain %s: %v", l.viewer, err)
		cmd = exec.Command(l.viewer, target)
	}
	debuglog.Debugf("opening %s with %v", target, cmd.Args)

	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.viewer, err)
	}
	return nil
}

func (l *Launcher) findCommand(commands ...string) string {
	for _, c := range commands {
		if _, err := l.lookPath(c); err == nil {
			return c
		}
	}
	return ""
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
