package main

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
)

func TestJobWrappersSkipOverlappingRuns(t *testing.T) {
	var runs int32
	release := make(chan struct{})
	started := make(chan struct{})

	job := cron.NewChain(jobWrappers()...).Then(cron.FuncJob(func() {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(started)
			<-release
		}
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job.Run()
	}()
	<-started

	// A tick that arrives mid-run is dropped.
	job.Run()
	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))

	close(release)
	wg.Wait()

	job.Run()
	assert.EqualValues(t, 2, atomic.LoadInt32(&runs))
}

func TestJobWrappersRecoverPanics(t *testing.T) {
	job := cron.NewChain(jobWrappers()...).Then(cron.FuncJob(func() { panic("boom") }))
	assert.NotPanics(t, job.Run)
}

func TestNewSchedulerAcceptsStandardSpec(t *testing.T) {
	c := newScheduler()
	_, err := c.AddFunc("*/5 * * * *", func() {})
	assert.NoError(t, err)
	c.Start()
	select {
	case <-c.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
