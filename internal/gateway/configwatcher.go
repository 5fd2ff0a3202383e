package gateway

import (
	"os"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// configWatcherInterval is how often the config file's mtime is polled.
// The original's file_watcher.py gets change notifications for free from
// an OS-level watchdog.Observer; a periodic stat poll is the idiomatic Go
// substitute without pulling in an fsnotify dependency for one file.
const configWatcherInterval = 5 * time.Second

// ConfigWatcher polls a single file's mtime and invokes a callback each
// time it changes after Run starts, redesigned from file_watcher.py's
// FileWatcher: that type kept a package-level table of every monitored
// path and its last-seen mtime (`FileWatcher.FILES`) so one OS-level
// Observer could fan a change out to many callbacks. Bootstrap only ever
// watches its own config file, so this drops the table entirely — one
// path, one callback, injected by whoever constructs it instead of reached
// through a global.
type ConfigWatcher struct {
	path     string
	interval time.Duration
	onChange func()
	stop     chan struct{}
}

// NewConfigWatcher builds a watcher for path. onChange is invoked at most
// once per detected mtime change, from the watcher's own goroutine.
func NewConfigWatcher(path string, onChange func()) *ConfigWatcher {
	return &ConfigWatcher{path: path, interval: configWatcherInterval, onChange: onChange, stop: make(chan struct{})}
}

// Run polls until Stop is called. A missing or unreadable file is treated
// as "unchanged" rather than an error — bootstrap already holds a loaded
// Config from the last successful read and keeps serving it.
func (w *ConfigWatcher) Run() {
	last := w.statTime()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			current := w.statTime()
			if current.IsZero() || current.Equal(last) {
				continue
			}
			last = current
			log.WithField("component", "config-watcher").WithField("path", w.path).Info("config file changed, restarting")
			w.onChange()
		}
	}
}

func (w *ConfigWatcher) statTime() time.Time {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Stop ends the polling loop. Safe to call at most once.
func (w *ConfigWatcher) Stop() {
	close(w.stop)
}

// restartProcess re-executes the running binary in place, mirroring
// file_watcher.py's FileWatcher.restart (os.execv): no graceful shutdown
// of in-flight work, the OS simply replaces the process image with a
// fresh run of the same command line and environment.
func restartProcess() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}
