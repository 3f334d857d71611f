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
	"sort"
	"sync"
)

// Directory indexes the live records under one uri by name.
type Directory struct {
	uri      string
	files    map[string]*File
	members  map[int64]*File
	renaming map[int64]string
	mux      sync.RWMutex
	registry *Registry
}

func newDirectory(r *Registry, uri string) *Directory {
	return &Directory{
		uri:      uri,
		files:    map[string]*File{},
		members:  map[int64]*File{},
		renaming: map[int64]string{},
		registry: r,
	}
}

func (d *Directory) URI() string {
	d.mux.RLock()
	defer d.mux.RUnlock()
	return d.uri
}

// AddFile indexes f and takes a reference to it. A live record already
// using the name wins.
func (d *Directory) AddFile(f *File) bool {
	d.mux.Lock()
	if old, ok := d.files[f.name]; ok && old != f && !old.isGone {
		d.mux.Unlock()
		return false
	}
	d.files[f.name] = f
	_, member := d.members[f.id]
	d.members[f.id] = f
	d.mux.Unlock()
	if !member {
		f.Ref()
	}
	return true
}

// RemoveFile drops f from the index together with the reference AddFile took.
func (d *Directory) RemoveFile(f *File) {
	d.mux.Lock()
	if cur, ok := d.files[f.name]; ok && cur == f {
		delete(d.files, f.name)
	}
	_, member := d.members[f.id]
	delete(d.members, f.id)
	delete(d.renaming, f.id)
	empty := len(d.members) == 0
	d.mux.Unlock()

	if !member {
		return
	}
	if empty {
		d.registry.dropDirectory(d)
	}
	f.Unref()
}

func (d *Directory) Lookup(name string) *File {
	d.mux.RLock()
	defer d.mux.RUnlock()
	f := d.files[name]
	if f == nil || f.isGone {
		return nil
	}
	return f
}

// Files lists the live records sorted by name.
func (d *Directory) Files() []*File {
	d.mux.RLock()
	result := make([]*File, 0, len(d.members))
	for _, f := range d.members {
		if !f.isGone {
			result = append(result, f)
		}
	}
	d.mux.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].name < result[j].name })
	return result
}

func (d *Directory) Len() int {
	d.mux.RLock()
	defer d.mux.RUnlock()
	return len(d.members)
}

// BeginFileNameChange must bracket every change of f.name together with
// EndFileNameChange. It returns the name the index knows f by.
func (d *Directory) BeginFileNameChange(f *File) string {
	d.mux.Lock()
	defer d.mux.Unlock()
	d.renaming[f.id] = f.name
	return f.name
}

// EndFileNameChange moves f from oldName to its current name in one step.
// It returns the live record previously indexed under the new name, if any.
func (d *Directory) EndFileNameChange(f *File, oldName string) *File {
	d.mux.Lock()
	defer d.mux.Unlock()
	delete(d.renaming, f.id)
	if cur, ok := d.files[oldName]; ok && cur == f {
		delete(d.files, oldName)
	}
	displaced := d.files[f.name]
	d.files[f.name] = f
	if displaced != nil && (displaced == f || displaced.isGone) {
		displaced = nil
	}
	return displaced
}

// Holds reports whether d keeps a reference to f.
func (d *Directory) Holds(f *File) bool {
	d.mux.RLock()
	defer d.mux.RUnlock()
	_, ok := d.members[f.id]
	return ok
}

// Renaming reports whether f is inside a name change bracket.
func (d *Directory) Renaming(f *File) bool {
	d.mux.RLock()
	defer d.mux.RUnlock()
	_, ok := d.renaming[f.id]
	return ok
}

// EmitFilesChanged broadcasts a change for every listed record of d.
func (d *Directory) EmitFilesChanged(files []*File) {
	for _, f := range files {
		if f.directory != d || f.isGone {
			continue
		}
		f.emitChanged()
	}
}
