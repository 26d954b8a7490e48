package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitForPipeline_Stopped(t *testing.T) {
	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.True(t, waitForPipeline(ctx, done))
	select {
	case <-done:
	default:
		t.Fatal("returned before the pipeline stopped")
	}
}

func TestWaitForPipeline_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.False(t, waitForPipeline(ctx, make(chan struct{})))
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
