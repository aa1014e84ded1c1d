package printer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job states
const (
	JobPrinting  = "printing"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// DefaultJournalSize bounds the number of remembered jobs
const DefaultJournalSize = 200

// Job records one Queue.Process call
type Job struct {
	ID         string     `json:"id"`
	Device     string     `json:"device"`
	Model      string     `json:"model"`
	LabelSize  string     `json:"label_size"`
	Labels     int        `json:"labels"`
	Bytes      int        `json:"bytes"`
	Status     string     `json:"status"`
	Message    string     `json:"message,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Journal keeps recent print jobs in memory, oldest first
type Journal struct {
	jobs       []*Job
	max        int
	onFinished []func(Job)
	mu         sync.Mutex
}

// NewJournal creates a journal holding at most max jobs
func NewJournal(max int) *Journal {
	if max <= 0 {
		max = DefaultJournalSize
	}
	return &Journal{max: max}
}

// OnFinished registers a callback run after every finished job
func (j *Journal) OnFinished(fn func(Job)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onFinished = append(j.onFinished, fn)
}

func (j *Journal) start(device, model, labelSize string, labels, size int) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	job := &Job{
		ID:        uuid.NewString(),
		Device:    device,
		Model:     model,
		LabelSize: labelSize,
		Labels:    labels,
		Bytes:     size,
		Status:    JobPrinting,
		CreatedAt: time.Now(),
	}
	j.jobs = append(j.jobs, job)
	if len(j.jobs) > j.max {
		j.jobs = j.jobs[len(j.jobs)-j.max:]
	}
	return job.ID
}

func (j *Journal) finish(id, message string) {
	j.mu.Lock()
	var done *Job
	for _, job := range j.jobs {
		if job.ID == id {
			now := time.Now()
			job.FinishedAt = &now
			job.Message = message
			job.Status = JobCompleted
			if message != "" {
				job.Status = JobFailed
			}
			copied := *job
			done = &copied
			break
		}
	}
	callbacks := append([]func(Job){}, j.onFinished...)
	j.mu.Unlock()

	if done == nil {
		return
	}
	for _, fn := range callbacks {
		fn(*done)
	}
}

// Get returns a copy of a job
func (j *Journal) Get(id string) (Job, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, job := range j.jobs {
		if job.ID == id {
			return *job, true
		}
	}
	return Job{}, false
}

// All returns copies of every job, newest first
func (j *Journal) All() []Job {
	j.mu.Lock()
	defer j.mu.Unlock()

	jobs := make([]Job, 0, len(j.jobs))
	for i := len(j.jobs) - 1; i >= 0; i-- {
		jobs = append(jobs, *j.jobs[i])
	}
	return jobs
}

// ClearCompleted removes completed jobs
func (j *Journal) ClearCompleted() {
	j.mu.Lock()
	defer j.mu.Unlock()

	filtered := j.jobs[:0]
	for _, job := range j.jobs {
		if job.Status != JobCompleted {
			filtered = append(filtered, job)
		}
	}
	j.jobs = filtered
}
