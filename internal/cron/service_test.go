package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarana-io/lending-backend/pkg/logger"
)

type fakeJob struct {
	name string
	runs int
	err  error
}

func (f *fakeJob) Name() string { return f.name }

func (f *fakeJob) Run(ctx context.Context) error {
	f.runs++
	return f.err
}

type fakeLock struct {
	acquired bool
	released int
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) { return f.acquired, nil }

func (f *fakeLock) Release(ctx context.Context) error {
	f.released++
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestRegistryPreservesOrderAndSkipsNil(t *testing.T) {
	first := &fakeJob{name: "first"}
	second := &fakeJob{name: "second"}

	registry := NewRegistry(first, nil, second)
	registry.Register(nil)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	require.Equal(t, "first", jobs[0].Name())
	require.Equal(t, "second", jobs[1].Name())
}

func TestRunCycleExecutesAllJobs(t *testing.T) {
	job := &fakeJob{name: "a"}
	failing := &fakeJob{name: "b", err: errors.New("boom")}
	lock := &fakeLock{acquired: true}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job, failing),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunCycle(context.Background()))
	require.Equal(t, 1, job.runs)
	require.Equal(t, 1, failing.runs, "a failing job must not stop the cycle")
	require.Equal(t, 1, lock.released)
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &fakeJob{name: "a"}
	lock := &fakeLock{acquired: false}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunCycle(context.Background()))
	require.Zero(t, job.runs)
	require.Zero(t, lock.released)
}
