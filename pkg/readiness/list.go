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

package readiness

import (
	"github.com/basenana/nanafiles/pkg/types"
)

type listRequest struct {
	subjects  []Subject
	remaining map[int64]Handle
	cb        ListCallback
	data      interface{}
	fired     bool
}

// CallWhenListReady fires cb once every subject has attrs resolved.
func (t *Tracker) CallWhenListReady(subjects []Subject, attrs types.Attributes, cb ListCallback, data interface{}) Handle {
	h := newHandle()
	lr := &listRequest{
		subjects:  append([]Subject(nil), subjects...),
		remaining: map[int64]Handle{},
		cb:        cb,
		data:      data,
	}
	for _, s := range subjects {
		lr.remaining[s.ID()] = ""
	}

	t.mux.Lock()
	t.lists[h] = lr
	t.mux.Unlock()

	for _, s := range subjects {
		sub := t.CallWhenReady(s, attrs, func(s Subject, _ interface{}) {
			t.listMemberReady(h, s)
		}, nil)

		t.mux.Lock()
		if _, waiting := lr.remaining[s.ID()]; waiting {
			lr.remaining[s.ID()] = sub
		}
		t.mux.Unlock()
	}

	t.maybeFireList(h)
	return h
}

func (t *Tracker) listMemberReady(h Handle, s Subject) {
	t.mux.Lock()
	if lr, ok := t.lists[h]; ok {
		delete(lr.remaining, s.ID())
	}
	t.mux.Unlock()
	t.maybeFireList(h)
}

func (t *Tracker) maybeFireList(h Handle) {
	t.mux.Lock()
	lr, ok := t.lists[h]
	if !ok || lr.fired || len(lr.remaining) > 0 {
		t.mux.Unlock()
		return
	}
	lr.fired = true
	delete(t.lists, h)
	t.mux.Unlock()

	lr.cb(lr.subjects, lr.data)
}

// CancelCallWhenListReady drops a list registration and every per-member
// wait it created.
func (t *Tracker) CancelCallWhenListReady(h Handle) bool {
	t.mux.Lock()
	defer t.mux.Unlock()
	lr, ok := t.lists[h]
	if !ok {
		return false
	}
	delete(t.lists, h)
	for id, sub := range lr.remaining {
		if sub != "" {
			t.cancelWithLock(id, sub)
		}
	}
	return true
}
