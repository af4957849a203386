package template

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/giantswarm/dbenv/internal/backend"
	"github.com/giantswarm/dbenv/internal/errdefs"
	"github.com/giantswarm/dbenv/internal/fileutil"
)

//go:embed templates/*
var embedded embed.FS

// ScratchPrefix starts the name of every scratch directory.
const ScratchPrefix = "dbenv-"

// lockFileName is the liveness lock held inside each scratch directory.
const lockFileName = ".lock"

// Scratch describes one materialized scratch directory.
type Scratch struct {
	Dir            string
	DescriptorPath string
	// InitScriptPath is empty for kinds without an init script.
	InitScriptPath string
}

// Config configures a Processor.
type Config struct {
	// BaseDir holds the scratch directories. Empty uses DefaultBaseDir().
	BaseDir string
	// TemplateDir overrides the built-in templates. Files are looked up by
	// the names backend.Kind reports.
	TemplateDir string
	Logger      *slog.Logger
}

// DefaultBaseDir returns the base directory used when none is configured.
func DefaultBaseDir() string {
	return filepath.Join(os.TempDir(), "dbenv")
}

// Processor creates, materializes and removes scratch directories.
// It is safe for concurrent use.
type Processor struct {
	baseDir   string
	templates fs.FS
	log       *slog.Logger

	mu    sync.Mutex
	owned map[string]*flock.Flock // scratch dir -> held liveness lock
}

// NewProcessor creates a Processor. The base directory is created lazily by
// CreateScratchDir.
func NewProcessor(cfg Config) (*Processor, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = DefaultBaseDir()
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errdefs.Configuration("resolve base dir %q: %v", baseDir, err)
	}

	var templates fs.FS
	if cfg.TemplateDir != "" {
		info, err := os.Stat(cfg.TemplateDir)
		if err != nil || !info.IsDir() {
			return nil, errdefs.Configuration("template dir %q is not a directory", cfg.TemplateDir)
		}
		templates = os.DirFS(cfg.TemplateDir)
	} else {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, fmt.Errorf("open built-in templates: %w", err)
		}
		templates = sub
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Processor{
		baseDir:   abs,
		templates: templates,
		log:       log,
		owned:     make(map[string]*flock.Flock),
	}, nil
}

// BaseDir returns the absolute directory scratch directories are created in.
func (p *Processor) BaseDir() string { return p.baseDir }

// CreateScratchDir creates a fresh dbenv-<uuid> directory under the base
// directory, locks it and records it as owned.
func (p *Processor) CreateScratchDir() (string, error) {
	if err := fileutil.EnsureDir(p.baseDir); err != nil {
		return "", errdefs.IOError("create base dir", p.baseDir, err)
	}

	dir := filepath.Join(p.baseDir, ScratchPrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", errdefs.IOError("create scratch dir", dir, err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err == nil && !locked {
		err = errors.New("lock held by another process")
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", errdefs.IOError("lock scratch dir", dir, err)
	}

	p.mu.Lock()
	p.owned[dir] = lock
	p.mu.Unlock()

	p.log.Debug("created scratch dir", "dir", dir)
	return dir, nil
}

// Materialize renders the template named name into dst.
func (p *Processor) Materialize(name, dst string, v Values) error {
	content, err := fs.ReadFile(p.templates, name)
	if err != nil {
		return errdefs.IOError("read template", name, err)
	}
	rendered := Render(string(content), v)
	if err := fileutil.WriteFile(dst, []byte(rendered), &fileutil.WriteOptions{Mode: 0o644, Atomic: true}); err != nil {
		return errdefs.IOError("write template", dst, err)
	}
	return nil
}

// Prepare creates a scratch directory and materializes kind's descriptor
// and init script into it. On failure the directory is removed again.
func (p *Processor) Prepare(kind backend.Kind, v Values) (Scratch, error) {
	if !kind.IsValid() {
		return Scratch{}, errdefs.Configuration("unsupported backend kind %q", kind.String())
	}

	dir, err := p.CreateScratchDir()
	if err != nil {
		return Scratch{}, err
	}

	s := Scratch{
		Dir:            dir,
		DescriptorPath: filepath.Join(dir, kind.DescriptorTemplate()),
	}
	if err := p.Materialize(kind.DescriptorTemplate(), s.DescriptorPath, v); err != nil {
		p.discard(dir)
		return Scratch{}, err
	}
	if name := kind.InitScriptTemplate(); name != "" {
		s.InitScriptPath = filepath.Join(dir, name)
		if err := p.Materialize(name, s.InitScriptPath, v); err != nil {
			p.discard(dir)
			return Scratch{}, err
		}
	}
	return s, nil
}

func (p *Processor) discard(dir string) {
	if _, err := p.Cleanup(dir); err != nil {
		p.log.Warn("remove scratch dir after failed prepare", "dir", dir, "error", err)
	}
}

// Cleanup removes the scratch directory at path and forgets it. An empty
// path returns false. A directory that no longer exists is not an error.
func (p *Processor) Cleanup(path string) (bool, error) {
	if path == "" {
		return false, nil
	}

	p.mu.Lock()
	lock, ok := p.owned[path]
	delete(p.owned, path)
	p.mu.Unlock()

	if ok {
		if err := lock.Close(); err != nil {
			p.log.Debug("failed to release scratch lock", "path", lock.Path(), "err", err)
		}
	}

	removed, err := fileutil.RemoveDir(path)
	if err != nil {
		return removed, errdefs.IOError("remove scratch dir", path, err)
	}
	if removed {
		p.log.Debug("removed scratch dir", "dir", path)
	}
	return removed, nil
}

// Owned returns the scratch directories this processor still holds, sorted.
func (p *Processor) Owned() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	dirs := make([]string, 0, len(p.owned))
	for dir := range p.owned {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// CleanupOwned removes every scratch directory this processor still holds
// and returns how many were removed. Failures are logged.
func (p *Processor) CleanupOwned(ctx context.Context) int {
	n := 0
	for _, dir := range p.Owned() {
		if ctx.Err() != nil {
			break
		}
		removed, err := p.Cleanup(dir)
		if err != nil {
			p.log.Warn("failed to remove scratch dir", "dir", dir, "error", err)
			continue
		}
		if removed {
			n++
		}
	}
	return n
}

// CleanupAll removes every scratch directory under the base directory whose
// liveness lock is free, including ones left behind by other processes.
// Directories this processor still owns belong to live instances and are
// skipped, as are directories locked by any other owner. Failures are logged
// and the sweep continues; the number of removed directories is returned.
func (p *Processor) CleanupAll(ctx context.Context) int {
	entries, err := os.ReadDir(p.baseDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			p.log.Warn("failed to list scratch base dir", "dir", p.baseDir, "error", err)
		}
		return 0
	}

	n := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if !e.IsDir() || !strings.HasPrefix(e.Name(), ScratchPrefix) {
			continue
		}
		dir := filepath.Join(p.baseDir, e.Name())
		if p.isOwned(dir) {
			continue
		}
		if p.sweep(dir) {
			n++
		}
	}

	if n > 0 {
		p.log.Info("removed scratch dirs", "count", n, "base", p.baseDir)
	}
	return n
}

func (p *Processor) isOwned(dir string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.owned[dir]
	return ok
}

// sweep removes dir if no one holds its liveness lock.
func (p *Processor) sweep(dir string) bool {
	lockPath := filepath.Join(dir, lockFileName)
	if fileutil.Exists(lockPath) {
		lock := flock.New(lockPath)
		locked, err := lock.TryLock()
		if err != nil || !locked {
			p.log.Debug("skipping live scratch dir", "dir", dir)
			return false
		}
		defer func() { _ = lock.Close() }()
	}

	removed, err := fileutil.RemoveDir(dir)
	if err != nil {
		p.log.Warn("failed to remove scratch dir", "dir", dir, "error", err)
		return false
	}
	return removed
}
