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

package events

import (
	"sort"
	"sync"

	"github.com/basenana/nanafiles/pkg/types"
)

const defaultRecorderSize = 256

// Recorder keeps the latest file events seen on the bus.
type Recorder struct {
	size   int
	lid    string
	events []types.FileEvent
	mux    sync.Mutex
}

func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = defaultRecorderSize
	}
	r := &Recorder{size: size}
	r.lid = Subscribe(TopicAllFileActions, r.record)
	return r
}

func (r *Recorder) record(evt *types.FileEvent) {
	if evt == nil {
		return
	}
	r.mux.Lock()
	r.events = append(r.events, *evt)
	if over := len(r.events) - r.size; over > 0 {
		r.events = append(r.events[:0:0], r.events[over:]...)
	}
	r.mux.Unlock()
}

// List returns up to limit events, oldest first. Listeners run
// concurrently, so events are ordered by their timestamps.
func (r *Recorder) List(limit int) []types.FileEvent {
	r.mux.Lock()
	result := append([]types.FileEvent(nil), r.events...)
	r.mux.Unlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Time.Before(result[j].Time)
	})
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result
}

func (r *Recorder) Close() {
	Unsubscribe(r.lid)
}
