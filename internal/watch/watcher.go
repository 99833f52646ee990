// Package watch produces raw filesystem events for the watched footage
// root. It wraps fsnotify with recursive directory watching, glob-based
// ignore filtering, and rename pairing so a move is reported as one event
// carrying both endpoints.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultRenameWindow is how long an orphaned rename waits for its
// matching create before degrading to a delete.
const DefaultRenameWindow = 500 * time.Millisecond

var (
	// ErrRootNotExist indicates the watch root does not exist.
	ErrRootNotExist = errors.New("watch root does not exist")

	// ErrRootNotDirectory indicates the watch root is not a directory.
	ErrRootNotDirectory = errors.New("watch root is not a directory")

	// ErrInvalidPattern indicates an ignore pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid ignore pattern")
)

// RawOp is the operation tag carried by a raw event.
type RawOp int

const (
	// OpCreated indicates a path appeared.
	OpCreated RawOp = iota
	// OpDeleted indicates a path disappeared.
	OpDeleted
	// OpMoved indicates a path was renamed; both endpoints are known.
	OpMoved
	// OpModified indicates content or metadata changed in place.
	OpModified
)

// String returns a human-readable name for the operation.
func (op RawOp) String() string {
	switch op {
	case OpCreated:
		return "created"
	case OpDeleted:
		return "deleted"
	case OpMoved:
		return "moved"
	case OpModified:
		return "modified"
	default:
		return "unknown"
	}
}

// RawEvent is one filesystem notification. The sequence is not gap-free:
// the OS may coalesce or drop events under load, which is why
// reconciliation exists as a compensating mechanism.
type RawEvent struct {
	Op        RawOp
	Path      string
	OldPath   string // move source, empty otherwise
	IsDir     bool
	SizeBytes int64
	Time      time.Time
}

// Config holds watcher settings.
type Config struct {
	// Root is the directory to watch recursively.
	Root string

	// IgnorePatterns are glob patterns for paths to drop (e.g. "*.tmp").
	IgnorePatterns []string

	// RenameWindow bounds how long a rename waits for its create half.
	// Zero means DefaultRenameWindow.
	RenameWindow time.Duration
}

// pendingRename is the first half of a move waiting for its create.
type pendingRename struct {
	path  string
	timer *time.Timer
}

// Watcher owns the fsnotify handle for one root. The owner acquires it at
// service start and must call Stop at service stop.
type Watcher struct {
	config  Config
	fsw     *fsnotify.Watcher
	ignores *IgnoreSet

	// Only the loop goroutine sends on events; rename expirations are
	// forwarded to it through expired.
	events  chan RawEvent
	errs    chan error
	expired chan string
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
	renames []*pendingRename
}

// New creates a Watcher for cfg.Root. The watcher emits nothing until Start.
func New(cfg Config) (*Watcher, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRootNotExist
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrRootNotDirectory
	}

	if cfg.RenameWindow <= 0 {
		cfg.RenameWindow = DefaultRenameWindow
	}

	ignores, err := CompileIgnores(cfg.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		config:  cfg,
		ignores: ignores,
		events:  make(chan RawEvent, 256),
		errs:    make(chan error, 16),
		expired: make(chan string, 16),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the root and all its subdirectories.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	if err := w.addRecursive(w.config.Root); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.config.Root, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.loop()

	return nil
}

// Stop tears down the watch and closes the event channels. It blocks
// until the event loop has exited. Safe to call when never started.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	for _, pr := range w.renames {
		pr.timer.Stop()
	}
	w.renames = nil
	w.mu.Unlock()

	close(w.done)

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}

	w.wg.Wait()
	close(w.events)
	close(w.errs)

	return nil
}

// Events returns the raw event channel. Closed by Stop.
func (w *Watcher) Events() <-chan RawEvent {
	return w.events
}

// Errors returns the error channel. Closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// addRecursive adds dir and every subdirectory to the fsnotify watch.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // entry vanished or unreadable, skip
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.config.Root && w.isIgnored(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case path := <-w.expired:
			w.emit(RawEvent{Op: OpDeleted, Path: path, Time: time.Now()})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			case <-w.done:
				return
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if w.isIgnored(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		w.handleCreate(path)

	case event.Has(fsnotify.Remove):
		w.emit(RawEvent{Op: OpDeleted, Path: path, Time: time.Now()})

	case event.Has(fsnotify.Rename):
		// First half of a move. Hold the old path until the matching
		// create arrives or the pairing window expires.
		w.holdRename(path)

	case event.Has(fsnotify.Write), event.Has(fsnotify.Chmod):
		w.emit(RawEvent{Op: OpModified, Path: path, Time: time.Now()})
	}
}

func (w *Watcher) handleCreate(path string) {
	info, err := os.Lstat(path)
	if err != nil {
		// Vanished before we looked; the delete event carries the truth.
		return
	}

	if info.IsDir() {
		// New directories must join the watch before their contents churn.
		_ = w.addRecursive(path)
	}

	ev := RawEvent{
		Op:    OpCreated,
		Path:  path,
		IsDir: info.IsDir(),
		Time:  time.Now(),
	}
	if !info.IsDir() {
		ev.SizeBytes = info.Size()
	}

	if old, ok := w.takeRename(); ok {
		ev.Op = OpMoved
		ev.OldPath = old
	}

	w.emit(ev)
}

// holdRename parks a rename source path for the pairing window.
func (w *Watcher) holdRename(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	pr := &pendingRename{path: path}
	pr.timer = time.AfterFunc(w.config.RenameWindow, func() {
		w.expireRename(pr)
	})
	w.renames = append(w.renames, pr)
}

// takeRename pops the oldest pending rename, if any. fsnotify delivers
// the rename and its create in order, so FIFO pairing matches endpoints.
func (w *Watcher) takeRename() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.renames) == 0 {
		return "", false
	}

	pr := w.renames[0]
	w.renames = w.renames[1:]
	pr.timer.Stop()
	return pr.path, true
}

// expireRename degrades an unpaired rename to a delete: the destination
// is unknown, so from the root's point of view the path is gone. Runs on
// a timer goroutine, so the delete is handed to the loop rather than
// emitted directly.
func (w *Watcher) expireRename(pr *pendingRename) {
	w.mu.Lock()
	found := false
	for i, p := range w.renames {
		if p == pr {
			w.renames = append(w.renames[:i], w.renames[i+1:]...)
			found = true
			break
		}
	}
	w.mu.Unlock()

	if found {
		select {
		case w.expired <- pr.path:
		case <-w.done:
		}
	}
}

func (w *Watcher) emit(ev RawEvent) {
	select {
	case w.events <- ev:
	case <-w.done:
	}
}

func (w *Watcher) isIgnored(path string) bool {
	return w.ignores.Match(path)
}
