package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"certlink/internal/domain/certificate"
	"certlink/internal/domain/client"
	"certlink/internal/domain/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		in      string
		want    ScheduleTime
		wantErr bool
	}{
		{"06:00", ScheduleTime{6, 0}, false},
		{"23:59", ScheduleTime{23, 59}, false},
		{"24:00", ScheduleTime{}, true},
		{"6am", ScheduleTime{}, true},
		{"", ScheduleTime{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func noJobs(context.Context) ([]Job, error) { return nil, nil }

func TestNewScheduler_Validation(t *testing.T) {
	_, err := NewScheduler(SchedulerConfig{JobProvider: noJobs})
	assert.Error(t, err, "no schedule times")

	_, err = NewScheduler(SchedulerConfig{ScheduleTimes: []string{"7:xx"}, JobProvider: noJobs})
	assert.Error(t, err)

	_, err = NewScheduler(SchedulerConfig{ScheduleTimes: []string{"07:00"}})
	assert.Error(t, err, "no provider")
}

func TestScheduler_ShouldRunOncePerMinute(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{ScheduleTimes: []string{"06:00", "18:30"}, WorkerCount: 1, JobProvider: noJobs})
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 6, 0, 5, 0, time.Local)
	assert.True(t, s.shouldRun(at))
	assert.False(t, s.shouldRun(at.Add(30*time.Second)), "same minute")
	assert.False(t, s.shouldRun(at.Add(time.Minute)))
	assert.True(t, s.shouldRun(time.Date(2025, 3, 1, 18, 30, 0, 0, time.Local)))
	assert.True(t, s.shouldRun(at.AddDate(0, 0, 1)), "next day")
}

func TestScheduler_NextRun(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{ScheduleTimes: []string{"06:00", "18:30"}, WorkerCount: 1, JobProvider: noJobs})
	require.NoError(t, err)

	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local) }
	assert.Equal(t, time.Date(2025, 3, 1, 18, 30, 0, 0, time.Local), s.NextRun())

	s.now = func() time.Time { return time.Date(2025, 3, 1, 20, 0, 0, 0, time.Local) }
	assert.Equal(t, time.Date(2025, 3, 2, 6, 0, 0, 0, time.Local), s.NextRun())
}

type countingJob struct {
	subject string
	runs    *atomic.Int32
	err     error
	block   chan struct{}
}

func (j countingJob) Execute(ctx context.Context) error {
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	j.runs.Add(1)
	return j.err
}

func (j countingJob) Subject() string     { return j.subject }
func (j countingJob) Description() string { return "counting " + j.subject }

func TestScheduler_RunOnceDrainsOnShutdown(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler(SchedulerConfig{
		ScheduleTimes: []string{"03:00"},
		WorkerCount:   2,
		QueueSize:     10,
		JobProvider: func(context.Context) ([]Job, error) {
			return []Job{
				countingJob{subject: "1", runs: &runs},
				countingJob{subject: "2", runs: &runs, err: errors.New("boom")},
				countingJob{subject: "3", runs: &runs},
			}, nil
		},
	})
	require.NoError(t, err)

	s.Start()
	assert.Equal(t, 3, s.RunOnce())
	s.Shutdown(5 * time.Second)

	assert.Equal(t, int32(3), runs.Load())
}

func TestScheduler_ProviderError(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{
		ScheduleTimes: []string{"03:00"},
		WorkerCount:   1,
		JobProvider: func(context.Context) ([]Job, error) {
			return nil, errors.New("db down")
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.RunOnce())
}

func TestWorkerPool_QueueFullAndClosed(t *testing.T) {
	var runs atomic.Int32
	block := make(chan struct{})

	wp := NewWorkerPool(1, 0, 1)
	wp.Start()

	// the worker takes the first job and blocks, the second fills the queue
	require.NoError(t, wp.Submit(countingJob{subject: "a", runs: &runs, block: block}))
	require.Eventually(t, func() bool { return len(wp.jobs) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, wp.Submit(countingJob{subject: "b", runs: &runs}))

	err := wp.Submit(countingJob{subject: "c", runs: &runs})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(block)
	wp.ShutdownWithTimeout(time.Second)
	assert.Equal(t, int32(2), runs.Load())

	assert.ErrorIs(t, wp.Submit(countingJob{subject: "d", runs: &runs}), ErrPoolClosed)
	wp.ShutdownWithTimeout(time.Second)
}

func TestWorkerPool_TimeoutCancelsRunningJobs(t *testing.T) {
	var runs atomic.Int32
	wp := NewWorkerPool(1, 0, 1)
	wp.Start()
	require.NoError(t, wp.Submit(countingJob{subject: "stuck", runs: &runs, block: make(chan struct{})}))

	start := time.Now()
	wp.ShutdownWithTimeout(50 * time.Millisecond)
	wp.wg.Wait()

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(0), runs.Load())
}

type fakeExpiry struct {
	certs []*certificate.Certificate
	err   error
	got   time.Duration
}

func (f *fakeExpiry) ListExpiring(_ context.Context, clientID string, d time.Duration) ([]*certificate.Certificate, error) {
	f.got = d
	var out []*certificate.Certificate
	for _, c := range f.certs {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []workspace.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e workspace.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func TestExpiryJob_PublishesOnlyValidCertificates(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	certs := &fakeExpiry{certs: []*certificate.Certificate{
		{ID: "soon", ClientID: "1", ExpiresAt: now.Add(48 * time.Hour)},
		{ID: "gone", ClientID: "1", ExpiresAt: now.Add(-time.Hour)},
		{ID: "other", ClientID: "2", ExpiresAt: now.Add(time.Hour)},
	}}
	pub := &recordingPublisher{}

	job := NewExpiryJob("1", certs, pub, 30*24*time.Hour)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, 30*24*time.Hour, certs.got)
	require.Len(t, pub.events, 1)

	e := pub.events[0]
	assert.Equal(t, workspace.EventCertificateExpiring, e.Type)
	assert.Equal(t, "1", e.ClientID)
	assert.Equal(t, "soon", e.CertificateID)
	assert.Equal(t, now.Add(48*time.Hour), e.ExpiresAt)
	assert.Equal(t, "1", job.Subject())
}

func TestExpiryJob_Errors(t *testing.T) {
	job := NewExpiryJob("1", &fakeExpiry{err: errors.New("db down")}, &recordingPublisher{}, time.Hour)
	assert.Error(t, job.Execute(context.Background()))

	certs := &fakeExpiry{certs: []*certificate.Certificate{{ID: "c", ClientID: "1", ExpiresAt: time.Now().Add(time.Minute)}}}
	job = NewExpiryJob("1", certs, &recordingPublisher{err: errors.New("broker down")}, time.Hour)
	assert.ErrorContains(t, job.Execute(context.Background()), "broker down")
}

type clientList []*client.Client

func (l clientList) ListClients(context.Context) ([]*client.Client, error) { return l, nil }

func TestExpiryJobProvider(t *testing.T) {
	provider := ExpiryJobProvider(clientList{{ID: "1"}, {ID: "2"}}, &fakeExpiry{}, &recordingPublisher{}, time.Hour)
	jobs, err := provider(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "1", jobs[0].Subject())
	assert.Equal(t, "2", jobs[1].Subject())
}
