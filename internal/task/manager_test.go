package task

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andhikamw/lensdl/pkg/models"
)

type fakeEngine struct {
	path     string
	err      error
	percents []float64
}

func (f *fakeEngine) DownloadVideo(_ context.Context, input, outputDir string, quality models.Quality, onProgress func(float64)) (string, error) {
	for _, p := range f.percents {
		onProgress(p)
	}
	return f.path, f.err
}

type fakeHub struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakeHub) Broadcast(message []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeHub) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func waitForStatus(t *testing.T, m *Manager, id string, status models.TaskStatus) models.DownloadTask {
	t.Helper()
	var snapshot models.DownloadTask
	require.Eventually(t, func() bool {
		task, ok := m.Get(id)
		if !ok {
			return false
		}
		snapshot = task
		return task.Status == status
	}, 2*time.Second, 10*time.Millisecond)
	return snapshot
}

func TestManagerCompletedTask(t *testing.T) {
	hub := &fakeHub{}
	m := NewManager(&fakeEngine{
		path:     "/tmp/out/lesson.mp4",
		percents: []float64{10, 60},
	}, hub, nil, "", testLogger())

	id := m.Start("https://page", "/tmp/out", models.QualityHD)
	assert.NotEmpty(t, id)

	task := waitForStatus(t, m, id, models.TaskCompleted)
	assert.Equal(t, 100.0, task.Percentage)
	assert.Equal(t, "/tmp/out/lesson.mp4", task.FilePath)
	assert.Equal(t, "lesson.mp4", task.FileName)
	assert.False(t, task.FinishedAt.IsZero())
	assert.Greater(t, hub.count(), 0, "progress events reach the hub")
}

func TestManagerFailedTaskKeepsLastPercentage(t *testing.T) {
	m := NewManager(&fakeEngine{
		err:      errors.New("transfer interrupted"),
		percents: []float64{10, 42},
	}, nil, nil, "", testLogger())

	id := m.Start("https://page", "/tmp/out", models.QualityHD)

	task := waitForStatus(t, m, id, models.TaskFailed)
	assert.Equal(t, 42.0, task.Percentage, "failure never forces the percentage anywhere")
	assert.Equal(t, "transfer interrupted", task.Error)
	assert.False(t, task.FinishedAt.IsZero())
}

func TestManagerPercentageOnlyRises(t *testing.T) {
	m := NewManager(&fakeEngine{
		path:     "/tmp/out/a.mp4",
		percents: []float64{50, 20, 70},
	}, nil, nil, "", testLogger())

	id := m.Start("in", "/tmp/out", models.QualitySD)
	task := waitForStatus(t, m, id, models.TaskCompleted)
	assert.Equal(t, 100.0, task.Percentage)
}

func TestManagerGetUnknownID(t *testing.T) {
	m := NewManager(&fakeEngine{}, nil, nil, "", testLogger())
	_, ok := m.Get("nope")
	assert.False(t, ok)
}

func TestManagerListNewestFirst(t *testing.T) {
	m := NewManager(&fakeEngine{path: "/tmp/out/a.mp4"}, nil, nil, "", testLogger())

	first := m.Start("one", "/tmp/out", models.QualityHD)
	time.Sleep(5 * time.Millisecond)
	second := m.Start("two", "/tmp/out", models.QualityHD)

	waitForStatus(t, m, first, models.TaskCompleted)
	waitForStatus(t, m, second, models.TaskCompleted)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
}
