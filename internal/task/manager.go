package task

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/andhikamw/lensdl/internal/common/messaging"
	"github.com/andhikamw/lensdl/pkg/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine is the download entry point the manager drives.
type Engine interface {
	DownloadVideo(ctx context.Context, input, outputDir string, quality models.Quality, onProgress func(float64)) (string, error)
}

// Broadcaster pushes task events to connected websocket clients.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Manager tracks download tasks in memory, runs each one in its own
// goroutine and fans progress out to the websocket hub and the message
// exchange. Both fan-out targets are optional.
type Manager struct {
	engine   Engine
	hub      Broadcaster
	msg      messaging.Client
	exchange string
	log      *logrus.Logger

	mu    sync.RWMutex
	tasks map[string]*models.DownloadTask
}

// NewManager creates a Manager. hub and msg may be nil to disable the
// corresponding fan-out.
func NewManager(engine Engine, hub Broadcaster, msg messaging.Client, exchange string, log *logrus.Logger) *Manager {
	return &Manager{
		engine:   engine,
		hub:      hub,
		msg:      msg,
		exchange: exchange,
		log:      log,
		tasks:    make(map[string]*models.DownloadTask),
	}
}

// Start registers a new task and launches its download in the
// background. Each task gets its own uuid, which also keeps concurrent
// downloads of the same item from colliding in the registry.
func (m *Manager) Start(input, outputDir string, quality models.Quality) string {
	id := uuid.New().String()

	m.mu.Lock()
	m.tasks[id] = &models.DownloadTask{
		ID:        id,
		Input:     input,
		Quality:   quality,
		OutputDir: outputDir,
		Status:    models.TaskStarting,
		StartedAt: time.Now(),
	}
	m.mu.Unlock()

	go m.run(id, input, outputDir, quality)
	return id
}

// Get returns a snapshot of one task.
func (m *Manager) Get(id string) (models.DownloadTask, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return models.DownloadTask{}, false
	}
	return *t, true
}

// List returns snapshots of all tasks, newest first.
func (m *Manager) List() []models.DownloadTask {
	m.mu.RLock()
	out := make([]models.DownloadTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, *t)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

func (m *Manager) run(id, input, outputDir string, quality models.Quality) {
	m.log.WithFields(logrus.Fields{
		"task":    id,
		"input":   input,
		"quality": quality,
	}).Info("Task started")

	m.update(id, func(t *models.DownloadTask) {
		t.Status = models.TaskDownloading
	})

	path, err := m.engine.DownloadVideo(context.Background(), input, outputDir, quality, func(percent float64) {
		m.update(id, func(t *models.DownloadTask) {
			if percent > t.Percentage {
				t.Percentage = percent
			}
		})
		m.emit(id, models.TaskProgressKey)
	})

	if err != nil {
		// The last reported percentage stays as-is on failure.
		m.update(id, func(t *models.DownloadTask) {
			t.Status = models.TaskFailed
			t.Error = err.Error()
			t.FinishedAt = time.Now()
		})
		m.log.WithError(err).WithField("task", id).Error("Task failed")
		m.emit(id, models.TaskFailedKey)
		return
	}

	m.update(id, func(t *models.DownloadTask) {
		t.Status = models.TaskCompleted
		t.Percentage = 100
		t.FilePath = path
		t.FileName = filepath.Base(path)
		t.FinishedAt = time.Now()
	})
	m.log.WithFields(logrus.Fields{
		"task": id,
		"file": path,
	}).Info("Task completed")
	m.emit(id, models.TaskCompletedKey)
}

func (m *Manager) update(id string, fn func(*models.DownloadTask)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		fn(t)
	}
}

// emit sends the task's current state to the websocket hub and the
// message exchange.
func (m *Manager) emit(id, routingKey string) {
	snapshot, ok := m.Get(id)
	if !ok {
		return
	}

	event := models.TaskEvent{
		Type:       routingKey,
		TaskID:     snapshot.ID,
		Status:     snapshot.Status,
		Percentage: snapshot.Percentage,
		FilePath:   snapshot.FilePath,
		Error:      snapshot.Error,
	}

	if m.hub != nil {
		if body, err := json.Marshal(event); err == nil {
			m.hub.Broadcast(body)
		}
	}

	if m.msg != nil {
		if err := m.msg.PublishJSON(m.exchange, routingKey, event); err != nil {
			m.log.WithError(err).Warn("Failed to publish task event")
		}
	}
}
