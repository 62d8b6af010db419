package readermark

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// markerInfix separates a cached file name from its marker qualifiers.
// Full marker name: <file>.reader.<pid>.<unix-nanos>.<uuid8>
const markerInfix = ".reader."

// Marker is a held reader declaration for one cached file. Its backing
// directory pins the file against cleanup for as long as it exists.
type Marker struct {
	dir      string
	registry *Registry

	mu       sync.Mutex
	released bool
}

// Path returns the marker directory.
func (m *Marker) Path() string {
	return m.dir
}

// Release removes the marker. Releasing twice, or releasing a marker whose
// directory is already gone, is not an error.
func (m *Marker) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return nil
	}
	m.released = true
	if m.registry != nil {
		m.registry.forget(m.dir)
	}
	if err := os.Remove(m.dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove reader marker %q: %w", m.dir, err)
	}
	return nil
}

// Registry tracks the reader markers held by this process so they can all be
// dropped at exit. The zero value is not usable; call NewRegistry.
type Registry struct {
	pid int

	mu     sync.Mutex
	active map[string]*Marker
}

// NewRegistry builds a registry for the current process.
func NewRegistry() *Registry {
	return &Registry{
		pid:    os.Getpid(),
		active: make(map[string]*Marker),
	}
}

// Acquire declares this process a reader of path. The marker directory is
// created next to the cached file; its name is unique per process, call, and
// nanosecond, so concurrent acquisitions never collide.
func (r *Registry) Acquire(path string) (*Marker, error) {
	name := fmt.Sprintf("%s%s%d.%d.%.8s", path, markerInfix, r.pid, time.Now().UnixNano(), uuid.NewString())
	if err := os.Mkdir(name, 0o755); err != nil {
		return nil, fmt.Errorf("create reader marker %q: %w", name, err)
	}

	marker := &Marker{dir: name, registry: r}
	r.mu.Lock()
	r.active[name] = marker
	r.mu.Unlock()
	return marker, nil
}

// ReleaseAll drops every marker this process still holds. Wired to normal
// process termination by the caller; safe to invoke multiple times.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	markers := make([]*Marker, 0, len(r.active))
	for _, m := range r.active {
		markers = append(markers, m)
	}
	r.mu.Unlock()

	for _, m := range markers {
		_ = m.Release()
	}
}

// Active returns the number of markers currently held by this process.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Registry) forget(dir string) {
	r.mu.Lock()
	delete(r.active, dir)
	r.mu.Unlock()
}

// Holders lists the marker directories currently attached to path, from any
// process, including leftovers from processes that never cleaned up.
func Holders(path string) ([]string, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + markerInfix

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan markers for %q: %w", path, err)
	}

	var holders []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			holders = append(holders, filepath.Join(dir, entry.Name()))
		}
	}
	return holders, nil
}

// IsMarkerName reports whether name denotes a reader marker directory.
func IsMarkerName(name string) bool {
	return strings.Contains(filepath.Base(name), markerInfix)
}

// IsHeld reports whether any reader marker exists for path.
func IsHeld(path string) (bool, error) {
	holders, err := Holders(path)
	if err != nil {
		return false, err
	}
	return len(holders) > 0, nil
}

// PruneStale removes markers for path whose owning process no longer exists.
// Returns the marker directories it removed.
func PruneStale(path string) ([]string, error) {
	holders, err := Holders(path)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, holder := range holders {
		pid, ok := markerPID(holder)
		if !ok {
			continue
		}
		if processAlive(pid) {
			continue
		}
		if err := os.Remove(holder); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove stale marker %q: %w", holder, err)
		}
		removed = append(removed, holder)
	}
	return removed, nil
}

func markerPID(marker string) (int, bool) {
	base := filepath.Base(marker)
	idx := strings.LastIndex(base, markerInfix)
	if idx < 0 {
		return 0, false
	}
	fields := strings.Split(base[idx+len(markerInfix):], ".")
	if len(fields) != 3 {
		return 0, false
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, unix.EPERM)
}
