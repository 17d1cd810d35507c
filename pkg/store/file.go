package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
)

// FileStore persists one JSON document per job under dir, named
// "<job_id>.json". Every mutating operation rewrites the whole file via a
// temp-file-then-rename for atomicity. An in-memory map serves as a hot
// cache so readers don't hit disk on every status poll; get_job falls
// back to the file when a job isn't cached, and hydration never
// overwrites a job another caller has just mutated in memory.
type FileStore struct {
	mu    sync.Mutex
	dir   string
	cache map[string]*models.Job

	watcher    *fsnotify.Watcher
	dirRemoved atomic.Bool
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory if it doesn't exist. A best-effort fsnotify watch is placed
// on dir's parent so a directory removed between requests is reflected
// in Ready() immediately rather than only at the next write probe
// (§4.3.1); failure to start the watch is non-fatal.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create job storage dir: %w", err)
	}

	fs := &FileStore{dir: dir, cache: make(map[string]*models.Job)}
	fs.startWatch()
	return fs, nil
}

// startWatch begins watching dir's parent for removal/rename of dir.
// Watching the parent (rather than dir itself) is necessary because an
// inotify watch on a removed directory simply stops delivering events.
func (s *FileStore) startWatch() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("store: fsnotify watcher unavailable, falling back to probe-only readiness", "error", err)
		return
	}
	if err := watcher.Add(filepath.Dir(s.dir)); err != nil {
		slog.Warn("store: failed to watch job storage parent directory", "error", err)
		_ = watcher.Close()
		return
	}
	s.watcher = watcher

	go func() {
		base := filepath.Base(s.dir)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					s.dirRemoved.Store(true)
				}
				if event.Op&fsnotify.Create != 0 {
					s.dirRemoved.Store(false)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

func (s *FileStore) path(jobID string) string {
	return filepath.Join(s.dir, jobID+".json")
}

// writeLocked persists job to disk. Must be called with s.mu held.
func (s *FileStore) writeLocked(job *models.Job) error {
	payload, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal job: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, job.JobID+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path(job.JobID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename temp file: %w", err)
	}
	return nil
}

// getLocked returns the job from the in-memory cache, hydrating from disk
// on a cache miss. Must be called with s.mu held.
func (s *FileStore) getLocked(jobID string) (*models.Job, error) {
	if job, ok := s.cache[jobID]; ok {
		return job, nil
	}

	payload, err := os.ReadFile(s.path(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read job file: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("store: decode job file: %w", err)
	}

	// Never replace a job already held in memory with a disk copy.
	if existing, ok := s.cache[jobID]; ok {
		return existing, nil
	}
	s.cache[jobID] = &job
	return &job, nil
}

// CreateJob implements Store.
func (s *FileStore) CreateJob(_ context.Context, total int) (string, error) {
	now := time.Now().UTC()
	job := &models.Job{
		JobID:        uuid.NewString(),
		Status:       models.JobAccepted,
		TotalRecords: total,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[job.JobID] = job
	if err := s.writeLocked(job); err != nil {
		return "", err
	}
	return job.JobID, nil
}

// SetProcessing implements Store.
func (s *FileStore) SetProcessing(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getLocked(jobID)
	if err != nil || job == nil {
		return err
	}
	if job.Status == models.JobAccepted {
		job.Status = models.JobProcessing
		job.UpdatedAt = time.Now().UTC()
		return s.writeLocked(job)
	}
	return nil
}

// AppendResult implements Store.
func (s *FileStore) AppendResult(_ context.Context, jobID string, result models.RecordResult, tokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getLocked(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}

	job.Results = append(job.Results, result)
	if result.Success {
		job.CompletedCount++
		job.TotalTokensUsed += tokens
	} else {
		job.FailedCount++
	}
	job.UpdatedAt = time.Now().UTC()
	return s.writeLocked(job)
}

// SetCompleted implements Store.
func (s *FileStore) SetCompleted(_ context.Context, jobID string) error {
	return s.setTerminal(jobID, models.JobCompleted, "")
}

// SetFailed implements Store.
func (s *FileStore) SetFailed(_ context.Context, jobID string, message string) error {
	return s.setTerminal(jobID, models.JobFailed, message)
}

func (s *FileStore) setTerminal(jobID string, status models.JobStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getLocked(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}
	if job.Status == models.JobCompleted || job.Status == models.JobFailed {
		return nil
	}
	job.Status = status
	job.FailureMessage = message
	job.UpdatedAt = time.Now().UTC()
	return s.writeLocked(job)
}

// GetStatus implements Store.
func (s *FileStore) GetStatus(_ context.Context, jobID string, cost CostEstimator) (StatusView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getLocked(jobID)
	if err != nil {
		return StatusView{}, false, err
	}
	if job == nil {
		return StatusView{}, false, nil
	}
	return toStatusView(job, cost), true, nil
}

// ListJobs implements Store: enumerates the storage directory sorted by
// modification time descending.
func (s *FileStore) ListJobs(_ context.Context, limit int) ([]models.JobRow, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("store: read job storage dir: %w", err)
	}

	type fileInfo struct {
		jobID   string
		modTime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			jobID:   e.Name()[:len(e.Name())-len(".json")],
			modTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]models.JobRow, 0, len(files))
	for _, f := range files {
		job, err := s.getLocked(f.jobID)
		if err != nil || job == nil {
			continue
		}
		rows = append(rows, toJobRow(job))
	}
	return rows, nil
}

// Ready implements Store: probes that the storage directory is writable.
// The fsnotify-reported removal state short-circuits the probe when the
// directory is known gone, avoiding a doomed syscall on every poll.
func (s *FileStore) Ready(_ context.Context) error {
	if s.dirRemoved.Load() {
		return fmt.Errorf("store: job storage directory %q was removed", s.dir)
	}

	probe, err := os.CreateTemp(s.dir, ".ready-*")
	if err != nil {
		return fmt.Errorf("store: storage directory not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

// Close implements Store: releases the directory watcher, if any.
func (s *FileStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
