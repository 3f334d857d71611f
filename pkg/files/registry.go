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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/basenana/nanafiles/pkg/backend"
	"github.com/basenana/nanafiles/pkg/changes"
	"github.com/basenana/nanafiles/pkg/events"
	"github.com/basenana/nanafiles/pkg/loop"
	"github.com/basenana/nanafiles/pkg/readiness"
	"github.com/basenana/nanafiles/pkg/symlink"
	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils/logger"
)

const (
	defaultParallel        = 8
	defaultFreeSpaceTTL    = time.Second
	defaultConsumeInterval = 100 * time.Millisecond
)

// Observer sees every event the registry publishes, synchronously on the
// main loop.
type Observer func(action string, f *File)

type Option func(r *Registry)

func WithMetadataStore(store backend.MetadataStore) Option {
	return func(r *Registry) {
		r.store = store
	}
}

func WithExtensionProviders(providers ...backend.ExtensionProvider) Option {
	return func(r *Registry) {
		r.providers = append(r.providers, providers...)
	}
}

// WithParallel caps the concurrent backend fetches.
func WithParallel(n int) Option {
	return func(r *Registry) {
		r.parallel = n
	}
}

func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observers = append(r.observers, o)
	}
}

// WithLocationIndex registers an index told about renames done through
// the registry.
func WithLocationIndex(index changes.LocationIndex) Option {
	return func(r *Registry) {
		r.locations = index
	}
}

func WithQueue(q *changes.Queue, interval time.Duration) Option {
	return func(r *Registry) {
		r.queue = q
		if interval > 0 {
			r.consumeInterval = interval
		}
	}
}

// WithConsumeAll stops the consumer from cutting batches at the queue's
// max chunk size.
func WithConsumeAll(all bool) Option {
	return func(r *Registry) {
		r.consumeAll = all
	}
}

func WithFreeSpaceTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.freeSpaceTTL = ttl
	}
}

// Registry owns every cached record. Records are reachable by uri through
// their directory; the registry also owns the symlink index, the readiness
// tracker and the fetch loader shared by all of them.
type Registry struct {
	backend   backend.Backend
	store     backend.MetadataStore
	providers []backend.ExtensionProvider
	locations changes.LocationIndex
	observers []Observer
	queue     *changes.Queue

	loop    *loop.Loop
	index   *symlink.Index
	tracker *readiness.Tracker
	loader  *loader

	parallel        int
	freeSpaceTTL    time.Duration
	consumeInterval time.Duration
	consumeAll      bool

	dirs   map[string]*Directory
	mux    sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.SugaredLogger
}

func NewRegistry(b backend.Backend, l *loop.Loop, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		backend:         b,
		loop:            l,
		index:           symlink.NewIndex(),
		parallel:        defaultParallel,
		freeSpaceTTL:    defaultFreeSpaceTTL,
		consumeInterval: defaultConsumeInterval,
		dirs:            map[string]*Directory{},
		ctx:             ctx,
		cancel:          cancel,
		logger:          logger.NewLogger("files"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.tracker = readiness.NewTracker(r)
	r.loader = newLoader(r)
	return r
}

func (r *Registry) Loop() *loop.Loop {
	return r.loop
}

func (r *Registry) Backend() backend.Backend {
	return r.backend
}

func (r *Registry) SymlinkIndex() *symlink.Index {
	return r.index
}

func (r *Registry) Tracker() *readiness.Tracker {
	return r.tracker
}

func (r *Registry) Queue() *changes.Queue {
	return r.queue
}

// Run drives the main loop and, when a queue is configured, the periodic
// consumption of filesystem changes. It returns when ctx is done.
func (r *Registry) Run(ctx context.Context) {
	if r.queue != nil {
		go r.queue.RunConsumer(ctx, r.loop.Post, r, r.consumeInterval, r.consumeAll)
	}
	r.logger.Infow("registry started", "parallel", r.parallel)
	r.loop.Run(ctx)
	r.Close()
}

// Close abandons every in-flight fetch.
func (r *Registry) Close() {
	r.cancel()
}

// GetOrCreate returns the live record for uri, creating it when absent.
// The caller owns one reference.
func (r *Registry) GetOrCreate(uri string) (*File, error) {
	parent, name, err := SplitURI(uri)
	if err != nil {
		return nil, err
	}
	dir := r.Directory(parent)
	if f := dir.Lookup(name); f != nil {
		return f.Ref(), nil
	}
	f := newFile(r, dir, name)
	dir.AddFile(f)
	r.logger.Debugw("file created", "file", f.id, "uri", uri)
	return f.Ref(), nil
}

// GetExisting returns the live record for uri with a reference for the
// caller, or nil.
func (r *Registry) GetExisting(uri string) *File {
	f := r.lookup(uri)
	if f == nil {
		return nil
	}
	return f.Ref()
}

func (r *Registry) lookup(uri string) *File {
	parent, name, err := SplitURI(uri)
	if err != nil {
		return nil
	}
	r.mux.Lock()
	dir := r.dirs[parent]
	r.mux.Unlock()
	if dir == nil {
		return nil
	}
	return dir.Lookup(name)
}

// Directory returns the index for uri, creating an empty one if needed.
func (r *Registry) Directory(uri string) *Directory {
	r.mux.Lock()
	defer r.mux.Unlock()
	dir, ok := r.dirs[uri]
	if !ok {
		dir = newDirectory(r, uri)
		r.dirs[uri] = dir
	}
	return dir
}

// ExistingDirectory returns nil when nothing under uri is cached.
func (r *Registry) ExistingDirectory(uri string) *Directory {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.dirs[uri]
}

func (r *Registry) dropDirectory(d *Directory) {
	r.mux.Lock()
	defer r.mux.Unlock()
	uri := d.URI()
	if cur := r.dirs[uri]; cur == d && d.Len() == 0 {
		delete(r.dirs, uri)
	}
}

// CallWhenListReady runs cb once every file in list has attrs resolved.
func (r *Registry) CallWhenListReady(list []*File, attrs types.Attributes, cb func(list []*File, data interface{}), data interface{}) readiness.Handle {
	subjects := make([]readiness.Subject, len(list))
	for i, f := range list {
		subjects[i] = f
	}
	return r.tracker.CallWhenListReady(subjects, attrs, func(subjects []readiness.Subject, data interface{}) {
		result := make([]*File, len(subjects))
		for i, s := range subjects {
			result[i] = s.(*File)
		}
		cb(result, data)
	}, data)
}

func (r *Registry) CancelCallWhenListReady(h readiness.Handle) bool {
	return r.tracker.CancelCallWhenListReady(h)
}

// RequestAttributes implements readiness.Requester.
func (r *Registry) RequestAttributes(s readiness.Subject, missing types.Attributes) {
	f, ok := s.(*File)
	if !ok {
		return
	}
	r.loader.request(f, missing)
}

// kick fetches whatever waiters or monitors of f still miss.
func (r *Registry) kick(f *File) {
	if f.isGone {
		return
	}
	wanted := (r.tracker.Wanted(f) | f.monitored()).WithDependencies()
	if missing := f.Missing(wanted); missing != 0 {
		r.loader.request(f, missing)
	}
}

// settle runs after every state change of f: observers first, then
// waiters that can fire now, then fetches still wanted.
func (r *Registry) settle(f *File, changed bool) {
	if changed {
		f.emitChanged()
	}
	r.tracker.Recheck(f)
	r.kick(f)
}

func (r *Registry) finalize(f *File) {
	r.index.Unregister(f)
	r.loader.cancelAll(f)
	liveFileGauge.Dec()
	r.logger.Debugw("file released", "file", f.id)
}

func (r *Registry) post(fn func()) {
	r.loop.Post(fn)
}

func (r *Registry) publish(action string, f *File) {
	data := types.EventData{
		ID:        f.id,
		URI:       f.URI(),
		Name:      f.name,
		ParentURI: f.directory.URI(),
		Type:      f.fileType,
		Gone:      f.isGone,
		Unmounted: f.unmounted,
		DeepCount: f.deepCount,
	}
	events.Publish(action, data)
	eventCounter.WithLabelValues(action).Inc()
	for _, o := range r.observers {
		o(action, f)
	}
}
