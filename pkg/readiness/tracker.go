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
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils/logger"
)

// Subject is a record whose attributes can be waited for.
type Subject interface {
	ID() int64
	// Missing returns the subset of attrs that is not resolved yet.
	Missing(attrs types.Attributes) types.Attributes
}

// Requester starts fetching attributes a waiter still misses. Fetch
// deduplication is the requester's business.
type Requester interface {
	RequestAttributes(s Subject, missing types.Attributes)
}

type Callback func(s Subject, data interface{})

type ListCallback func(subjects []Subject, data interface{})

type Handle string

type request struct {
	handle  Handle
	subject Subject
	attrs   types.Attributes
	cb      Callback
	data    interface{}
}

// Tracker keeps the callbacks waiting for attributes. Callbacks fire once,
// outside the tracker lock, in registration order per subject.
type Tracker struct {
	pending   map[int64][]*request
	lists     map[Handle]*listRequest
	requester Requester
	mux       sync.Mutex
	logger    *zap.SugaredLogger
}

func NewTracker(requester Requester) *Tracker {
	return &Tracker{
		pending:   map[int64][]*request{},
		lists:     map[Handle]*listRequest{},
		requester: requester,
		logger:    logger.NewLogger("readiness"),
	}
}

func newHandle() Handle {
	return Handle(uuid.New().String())
}

// CallWhenReady runs cb right away when nothing in attrs is missing;
// otherwise it registers cb and asks the requester for the missing part.
// The returned handle cancels the registration.
func (t *Tracker) CallWhenReady(s Subject, attrs types.Attributes, cb Callback, data interface{}) Handle {
	attrs = attrs.WithDependencies()
	h := newHandle()
	missing := s.Missing(attrs)
	if missing == 0 {
		callbackCounter.WithLabelValues("immediate").Inc()
		cb(s, data)
		return h
	}

	t.mux.Lock()
	t.pending[s.ID()] = append(t.pending[s.ID()], &request{handle: h, subject: s, attrs: attrs, cb: cb, data: data})
	pendingGauge.Inc()
	t.mux.Unlock()

	t.logger.Debugw("wait for attributes", "file", s.ID(), "missing", missing.String())
	if t.requester != nil {
		t.requester.RequestAttributes(s, missing)
	}
	return h
}

// CheckIfReady only inspects the current state.
func (t *Tracker) CheckIfReady(s Subject, attrs types.Attributes) bool {
	return s.Missing(attrs.WithDependencies()) == 0
}

// CancelCallWhenReady drops a registration; unknown or fired handles are
// ignored.
func (t *Tracker) CancelCallWhenReady(s Subject, h Handle) bool {
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.cancelWithLock(s.ID(), h)
}

func (t *Tracker) cancelWithLock(id int64, h Handle) bool {
	reqs := t.pending[id]
	for i, req := range reqs {
		if req.handle != h {
			continue
		}
		reqs = append(reqs[:i], reqs[i+1:]...)
		if len(reqs) == 0 {
			delete(t.pending, id)
		} else {
			t.pending[id] = reqs
		}
		pendingGauge.Dec()
		callbackCounter.WithLabelValues("cancelled").Inc()
		return true
	}
	return false
}

// Wanted is the union of attributes still awaited on s.
func (t *Tracker) Wanted(s Subject) types.Attributes {
	t.mux.Lock()
	defer t.mux.Unlock()
	var wanted types.Attributes
	for _, req := range t.pending[s.ID()] {
		wanted |= req.attrs
	}
	return wanted
}

func (t *Tracker) Pending(s Subject) int {
	t.mux.Lock()
	defer t.mux.Unlock()
	return len(t.pending[s.ID()])
}

// Recheck fires every waiter on s whose attributes are all resolved now
// and returns how many fired.
func (t *Tracker) Recheck(s Subject) int {
	t.mux.Lock()
	var (
		ready []*request
		rest  []*request
	)
	for _, req := range t.pending[s.ID()] {
		if s.Missing(req.attrs) == 0 {
			ready = append(ready, req)
			continue
		}
		rest = append(rest, req)
	}
	if len(rest) == 0 {
		delete(t.pending, s.ID())
	} else {
		t.pending[s.ID()] = rest
	}
	pendingGauge.Sub(float64(len(ready)))
	t.mux.Unlock()

	for _, req := range ready {
		callbackCounter.WithLabelValues("ready").Inc()
		req.cb(req.subject, req.data)
	}
	return len(ready)
}
