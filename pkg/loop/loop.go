/*
 Copyright 2023 NanaFS Authors.

 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package loop

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/basenana/nanafiles/utils"
	"github.com/basenana/nanafiles/utils/logger"
)

// Loop runs posted tasks one at a time on a single goroutine. Everything
// that touches file records is funnelled through it.
type Loop struct {
	tasks  []func()
	wake   chan struct{}
	mux    sync.Mutex
	logger *zap.SugaredLogger
}

func New() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logger.NewLogger("mainLoop"),
	}
}

// Post schedules fn; safe from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mux.Lock()
	l.tasks = append(l.tasks, fn)
	pendingTaskGauge.Set(float64(len(l.tasks)))
	l.mux.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call posts fn and waits until it ran.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("main loop started")
	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			l.logger.Info("main loop stopped")
			return
		case <-l.wake:
		}
	}
}

// RunPending runs queued tasks, including tasks they post, until none are
// left, and returns how many ran. Tests drive the loop with it.
func (l *Loop) RunPending() int {
	ran := 0
	for {
		l.mux.Lock()
		tasks := l.tasks
		l.tasks = nil
		pendingTaskGauge.Set(0)
		l.mux.Unlock()

		if len(tasks) == 0 {
			return ran
		}
		for _, task := range tasks {
			l.runTask(task)
			ran += 1
		}
	}
}

func (l *Loop) runTask(task func()) {
	defer func() {
		if rErr := utils.Recover(recover()); rErr != nil {
			l.logger.Errorw("main loop task panic", "err", rErr)
		}
	}()
	task()
	taskCounter.Inc()
}
