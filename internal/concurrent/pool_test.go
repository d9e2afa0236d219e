// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package concurrent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPool_SubmitExecutesTask(t *testing.T) {
	pool := NewPool("test", 2, time.Minute, nil)
	defer pool.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	pool.Submit(context.Background(), NewTask(func() {
		wg.Done()
	}, nil))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was not executed in time")
	}
}

func TestPool_PanicIsRecoveredAndReported(t *testing.T) {
	pool := NewPool("test", 1, time.Minute, nil)
	defer pool.Stop()

	panicked := make(chan error, 1)
	pool.Submit(context.Background(), NewTask(func() {
		panic("boom")
	}, func(err error) {
		panicked <- err
	}))

	select {
	case err := <-panicked:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("panic handler was not invoked")
	}
}

func TestPool_AddWorkerGrowsWorkerCount(t *testing.T) {
	pool := NewPool("test", 1, time.Minute, nil)
	defer pool.Stop()

	assert.Equal(t, 1, pool.WorkerCount())
	pool.AddWorker()
	assert.Equal(t, 2, pool.WorkerCount())
}

func TestPool_SubmitAfterStopIsRejected(t *testing.T) {
	pool := NewPool("test", 1, time.Minute, nil)
	pool.Stop()

	assert.True(t, pool.Stopped())
	pool.Submit(context.Background(), NewTask(func() {
		t.Fatal("task must not run after Stop")
	}, nil))
}

func TestPool_TaskCanSubmitAnotherTask(t *testing.T) {
	pool := NewPool("test", 2, time.Minute, nil)
	defer pool.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	pool.Submit(context.Background(), NewTask(func() {
		defer wg.Done()
		pool.Submit(context.Background(), NewTask(func() {
			wg.Done()
		}, nil))
	}, nil))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested submit deadlocked the pool")
	}
}
