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

package files

import (
	"context"

	"github.com/basenana/nanafiles/pkg/readiness"
	"github.com/basenana/nanafiles/pkg/types"
)

// Load waits until attrs of uri are resolved and returns a snapshot of
// the record. It must not be called from the main loop.
func (r *Registry) Load(ctx context.Context, uri string, attrs types.Attributes) (Snapshot, error) {
	var (
		f      *File
		h      readiness.Handle
		err    error
		result = make(chan Snapshot, 1)
	)

	callErr := r.loop.Call(ctx, func() {
		if ctx.Err() != nil {
			return
		}
		f, err = r.GetOrCreate(uri)
		if err != nil {
			return
		}
		h = f.CallWhenReady(attrs, func(f *File, _ interface{}) {
			result <- f.Snapshot()
			f.Unref()
		}, nil)
	})
	if callErr != nil {
		r.loop.Post(func() {
			if f != nil && f.CancelCallWhenReady(h) {
				f.Unref()
			}
		})
		return Snapshot{}, types.ErrCancelled
	}
	if err != nil {
		return Snapshot{}, err
	}

	select {
	case s := <-result:
		return s, nil
	case <-ctx.Done():
		r.loop.Post(func() {
			if f.CancelCallWhenReady(h) {
				f.Unref()
			}
		})
		return Snapshot{}, types.ErrCancelled
	}
}

// Invalidate marks attrs of the cached record for uri as stale. It returns
// types.ErrNotFound when nothing is cached for uri.
func (r *Registry) Invalidate(ctx context.Context, uri string, attrs types.Attributes) error {
	var found bool
	err := r.loop.Call(ctx, func() {
		f := r.GetExisting(uri)
		if f == nil {
			return
		}
		found = true
		f.InvalidateAttributes(attrs)
		f.Unref()
	})
	if err != nil {
		return types.ErrCancelled
	}
	if !found {
		return types.ErrNotFound
	}
	return nil
}
