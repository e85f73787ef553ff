package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Shell page & view fragments
// ============================================================

type cachedView struct {
	body []byte
	etag string
}

// ViewServer serves the shell page and the HTML fragments under views/.
// Files are read once and kept in memory; when backed by a directory on
// disk, Watch evicts entries as the files change.
type ViewServer struct {
	files  fs.FS
	logger *zap.Logger

	mu      sync.RWMutex
	cache   map[string]cachedView
	version atomic.Uint64 // bumped under mu on every eviction
}

// NewViewServer serves files from fsys, which must contain index.html and views/.
func NewViewServer(fsys fs.FS, logger *zap.Logger) *ViewServer {
	return &ViewServer{files: fsys, logger: logger, cache: make(map[string]cachedView)}
}

// Version returns the number of evictions since start.
func (v *ViewServer) Version() uint64 { return v.version.Load() }

func (v *ViewServer) load(name string) (cachedView, error) {
	v.mu.RLock()
	c, ok := v.cache[name]
	v.mu.RUnlock()
	if ok {
		return c, nil
	}

	gen := v.version.Load()
	body, err := fs.ReadFile(v.files, name)
	if err != nil {
		return cachedView{}, err
	}
	c = cachedView{body: body, etag: fmt.Sprintf(`W/"%08x"`, crc32.ChecksumIEEE(body))}

	v.mu.Lock()
	if v.version.Load() == gen {
		v.cache[name] = c
	}
	v.mu.Unlock()
	return c, nil
}

// evict drops name from the cache; an empty name drops everything.
func (v *ViewServer) evict(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.version.Add(1)
	if name == "" {
		v.cache = make(map[string]cachedView)
		return
	}
	delete(v.cache, name)
}

// Watch follows dir (recursively) until ctx is done.
func (v *ViewServer) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						_ = watcher.Add(ev.Name)
					}
				}
				switch {
				case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
					v.evict("")
				case ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create):
					rel, err := filepath.Rel(dir, ev.Name)
					if err != nil {
						v.evict("")
						break
					}
					v.evict(filepath.ToSlash(rel))
				default:
					continue
				}
				v.logger.Debug("views changed", zap.String("file", ev.Name))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				v.logger.Warn("views watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (v *ViewServer) shellPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v.serve(w, r, "index.html")
	}
}

func (v *ViewServer) fragmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+chi.URLParam(r, "*")), "/")
		if name == "" {
			writeError(w, http.StatusNotFound, "view não encontrada")
			return
		}
		v.serve(w, r, path.Join("views", name))
	}
}

func (v *ViewServer) serve(w http.ResponseWriter, r *http.Request, name string) {
	view, err := v.load(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "view não encontrada")
			return
		}
		v.logger.Error("read view", zap.String("file", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erro interno do servidor")
		return
	}

	w.Header().Set("ETag", view.etag)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, path.Base(name), time.Time{}, bytes.NewReader(view.body))
}
