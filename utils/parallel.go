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

package utils

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
)

// ParallelLimiter bounds how many fetches run at once.
type ParallelLimiter struct {
	q chan struct{}
}

func (l *ParallelLimiter) Acquire(ctx context.Context) error {
	select {
	case l.q <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *ParallelLimiter) Release() {
	select {
	case <-l.q:
	default:
	}
}

func (l *ParallelLimiter) Running() int {
	return len(l.q)
}

func NewParallelLimiter(ctn int) *ParallelLimiter {
	if ctn <= 0 {
		ctn = 1
	}
	return &ParallelLimiter{q: make(chan struct{}, ctn)}
}

// Recover reports a recovered panic value and turns it into an error. It
// must be given the result of recover() called in the deferred function:
//
//	defer func() {
//		if err := utils.Recover(recover()); err != nil { ... }
//	}()
func Recover(panicErr interface{}) error {
	if panicErr == nil {
		return nil
	}
	debug.PrintStack()
	sentry.CurrentHub().Recover(panicErr)
	return fmt.Errorf("panic: %v", panicErr)
}
