package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(context.Context) error {
	j.runs++
	return j.err
}

type runRecorder struct {
	mu   sync.Mutex
	runs map[string][]error
}

func (r *runRecorder) JobRun(job string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[string][]error{}
	}
	r.runs[job] = append(r.runs[job], err)
}

func TestAddJob(t *testing.T) {
	s := NewCronScheduler(nil)
	require.NoError(t, s.AddJob(&stubJob{name: "a"}, "*/5 * * * *"))
	require.Error(t, s.AddJob(&stubJob{name: "a"}, "*/5 * * * *"))
	require.Error(t, s.AddJob(&stubJob{name: "b"}, "not a spec"))
	require.NoError(t, s.AddJob(&stubJob{name: "c"}, ""))
	require.NoError(t, s.AddJob(&stubJob{name: "d"}, "@hourly"))
	require.Len(t, s.entries, 2)
}

func TestWrapReportsRuns(t *testing.T) {
	rec := &runRecorder{}
	s := NewCronScheduler(rec)
	s.Start(context.Background())
	defer s.Stop()

	ok := &stubJob{name: "ok"}
	bad := &stubJob{name: "bad", err: errors.New("boom")}
	s.wrap(ok, "x")()
	s.wrap(bad, "x")()
	require.Equal(t, 1, ok.runs)
	require.Equal(t, []error{nil}, rec.runs["ok"])
	require.Len(t, rec.runs["bad"], 1)
	require.Error(t, rec.runs["bad"][0])
}

func TestRunNow(t *testing.T) {
	rec := &runRecorder{}
	job := &stubJob{name: "once", err: errors.New("boom")}
	require.Error(t, RunNow(context.Background(), job, rec))
	require.Equal(t, 1, job.runs)
	require.Len(t, rec.runs["once"], 1)
}
