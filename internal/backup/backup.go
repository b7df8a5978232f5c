// Package backup copies the SQLite database into timestamped files and keeps
// only the newest ones.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	applog "lawdesk/internal/log"
	"lawdesk/internal/metrics"
)

const (
	DefaultKeep = 30
	filePrefix  = "backup_"
	fileSuffix  = ".db"
	stampLayout = "20060102_150405"
)

var ErrAlreadyRunning = errors.New("backup already running")

// Checkpointer flushes pending writes into the database file before it is
// copied. *storage.SQLiteRepository implements it.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// Config controls where backups go and how many are kept.
type Config struct {
	DBPath string
	Dir    string
	Keep   int
}

// Result describes one run. Path is empty when the run was skipped.
type Result struct {
	Path    string    `json:"path,omitempty"`
	Size    int64     `json:"size"`
	Removed []string  `json:"removed"`
	Skipped bool      `json:"skipped"`
	At      time.Time `json:"at"`
}

// Job performs backups. At most one run is in flight per Job.
type Job struct {
	cfg Config
	db  Checkpointer
	now func() time.Time
	mu  sync.Mutex

	lastMu sync.Mutex
	last   Result
}

// NewJob creates a backup job. db may be nil when the database is not open in
// this process.
func NewJob(cfg Config, db Checkpointer) *Job {
	if cfg.Keep < 1 {
		cfg.Keep = DefaultKeep
	}
	return &Job{cfg: cfg, db: db, now: time.Now}
}

// Run copies the database and rotates old copies.
func (j *Job) Run(ctx context.Context) (Result, error) {
	if !j.mu.TryLock() {
		slog.WarnContext(ctx, "Backup skipped, previous run still in progress")
		metrics.BackupRuns.WithLabelValues("busy").Inc()
		return Result{}, ErrAlreadyRunning
	}
	defer j.mu.Unlock()

	res, err := j.run(ctx)
	switch {
	case err != nil:
		metrics.BackupRuns.WithLabelValues("error").Inc()
		fields := applog.NewFields()
		fields["db_path"] = j.cfg.DBPath
		applog.NewStructuredLogger(applog.FromContext(ctx)).
			LogError(ctx, "Backup failed", err, applog.ComponentBackup, applog.OpBackup, fields)
	case res.Skipped:
		metrics.BackupRuns.WithLabelValues("skipped").Inc()
	default:
		metrics.BackupRuns.WithLabelValues("success").Inc()
		j.lastMu.Lock()
		j.last = res
		j.lastMu.Unlock()
	}
	return res, err
}

// Last returns the most recent successful run.
func (j *Job) Last() Result {
	j.lastMu.Lock()
	defer j.lastMu.Unlock()
	return j.last
}

func (j *Job) run(ctx context.Context) (Result, error) {
	now := j.now()
	res := Result{At: now, Removed: []string{}}

	if _, err := os.Stat(j.cfg.DBPath); errors.Is(err, fs.ErrNotExist) {
		slog.InfoContext(ctx, "Database file not found, backup skipped", "db_path", j.cfg.DBPath)
		res.Skipped = true
		return res, nil
	} else if err != nil {
		return res, fmt.Errorf("stat database: %w", err)
	}

	if err := os.MkdirAll(j.cfg.Dir, 0o755); err != nil {
		return res, fmt.Errorf("create backup dir: %w", err)
	}

	if j.db != nil {
		if err := j.db.Checkpoint(ctx); err != nil {
			slog.WarnContext(ctx, "Checkpoint before backup failed", "error", err)
		}
	}

	dst := filepath.Join(j.cfg.Dir, filePrefix+now.Format(stampLayout)+fileSuffix)
	size, err := copyFile(j.cfg.DBPath, dst)
	if err != nil {
		return res, err
	}
	res.Path, res.Size = dst, size
	slog.InfoContext(ctx, "Database backed up", "path", dst, "size", size)

	res.Removed = j.rotate(ctx)
	return res, nil
}

// copyFile copies src to dst and carries over the modification time.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open database: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat database: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create backup file: %w", err)
	}
	n, err := io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("copy database: %w", err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return n, fmt.Errorf("preserve backup mtime: %w", err)
	}
	return n, nil
}

type backupFile struct {
	path    string
	modTime time.Time
}

// List returns the backups in dir, newest first.
func List(dir string) ([]Info, error) {
	files, err := scan(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(files))
	for _, f := range files {
		fi, err := os.Stat(f.path)
		if err != nil {
			continue
		}
		out = append(out, Info{Name: filepath.Base(f.path), Size: fi.Size(), ModTime: f.modTime})
	}
	return out, nil
}

// Info describes one backup file.
type Info struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}

func scan(dir string) ([]backupFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	var files []backupFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, backupFile{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}
	sort.SliceStable(files, func(a, b int) bool {
		if files[a].modTime.Equal(files[b].modTime) {
			return files[a].path > files[b].path
		}
		return files[a].modTime.After(files[b].modTime)
	})
	return files, nil
}

// rotate deletes all but the newest Keep backups. Failures are logged and
// the remaining files are still processed.
func (j *Job) rotate(ctx context.Context) []string {
	removed := []string{}
	files, err := scan(j.cfg.Dir)
	if err != nil {
		slog.ErrorContext(ctx, "Backup rotation failed", "error", err)
		return removed
	}
	if len(files) <= j.cfg.Keep {
		return removed
	}
	for _, f := range files[j.cfg.Keep:] {
		if err := os.Remove(f.path); err != nil {
			slog.WarnContext(ctx, "Failed to remove old backup", "path", f.path, "error", err)
			continue
		}
		slog.InfoContext(ctx, "Old backup removed", "path", f.path)
		removed = append(removed, filepath.Base(f.path))
	}
	return removed
}

// Schedule runs the job immediately and then every interval until ctx is
// cancelled. Failed runs are logged by Run and retried on the next tick.
func (j *Job) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		j.Run(ctx)
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Backup scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// Dir is the directory backups are written to.
func (j *Job) Dir() string { return j.cfg.Dir }
