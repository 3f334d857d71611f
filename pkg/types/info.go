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

package types

import (
	"sort"
	"strings"
)

const (
	InfoStandardName            = "standard::name"
	InfoStandardDisplayName     = "standard::display-name"
	InfoStandardEditName        = "standard::edit-name"
	InfoStandardType            = "standard::type"
	InfoStandardIsSymlink       = "standard::is-symlink"
	InfoStandardIsHidden        = "standard::is-hidden"
	InfoStandardIsBackup        = "standard::is-backup"
	InfoStandardIsVirtual       = "standard::is-virtual"
	InfoStandardSize            = "standard::size"
	InfoStandardSortOrder       = "standard::sort-order"
	InfoStandardIcon            = "standard::icon"
	InfoStandardContentType     = "standard::content-type"
	InfoStandardFastContentType = "standard::fast-content-type"
	InfoStandardSymlinkTarget   = "standard::symlink-target"
	InfoStandardTargetURI       = "standard::target-uri"
	InfoStandardDescription     = "standard::description"

	InfoUnixMode         = "unix::mode"
	InfoUnixUID          = "unix::uid"
	InfoUnixGID          = "unix::gid"
	InfoUnixIsMountpoint = "unix::is-mountpoint"

	InfoOwnerUser     = "owner::user"
	InfoOwnerUserReal = "owner::user-real"
	InfoOwnerGroup    = "owner::group"

	InfoAccessCanRead    = "access::can-read"
	InfoAccessCanWrite   = "access::can-write"
	InfoAccessCanExecute = "access::can-execute"
	InfoAccessCanDelete  = "access::can-delete"
	InfoAccessCanTrash   = "access::can-trash"
	InfoAccessCanRename  = "access::can-rename"

	InfoMountableCanMount              = "mountable::can-mount"
	InfoMountableCanUnmount            = "mountable::can-unmount"
	InfoMountableCanEject              = "mountable::can-eject"
	InfoMountableCanStart              = "mountable::can-start"
	InfoMountableCanStartDegraded      = "mountable::can-start-degraded"
	InfoMountableCanStop               = "mountable::can-stop"
	InfoMountableCanPoll               = "mountable::can-poll"
	InfoMountableIsMediaCheckAutomatic = "mountable::is-media-check-automatic"
	InfoMountableStartStopType         = "mountable::start-stop-type"

	InfoTimeModified = "time::modified"
	InfoTimeAccess   = "time::access"
	InfoTimeCreated  = "time::created"

	InfoThumbnailPath   = "thumbnail::path"
	InfoThumbnailFailed = "thumbnail::failed"

	InfoSelinuxContext   = "selinux::context"
	InfoIDFilesystem     = "id::filesystem"
	InfoTrashDeletedDate = "trash::deletion-date"
	InfoTrashOrigPath    = "trash::orig-path"
	InfoRecentModified   = "recent::modified"

	InfoMetadataNamespace = "metadata"
)

// Info is a raw attribute record as delivered by a backend, keyed by
// "namespace::name" strings. Values are string, bool, uint32, int32,
// int64, uint64 or []string.
type Info struct {
	attrs map[string]interface{}
}

func NewInfo() *Info {
	return &Info{attrs: map[string]interface{}{}}
}

func (i *Info) Set(key string, val interface{}) *Info {
	if i.attrs == nil {
		i.attrs = map[string]interface{}{}
	}
	i.attrs[key] = val
	return i
}

func (i *Info) Remove(key string) {
	delete(i.attrs, key)
}

func (i *Info) Has(key string) bool {
	if i == nil {
		return false
	}
	_, ok := i.attrs[key]
	return ok
}

func (i *Info) Get(key string) (interface{}, bool) {
	if i == nil {
		return nil, false
	}
	val, ok := i.attrs[key]
	return val, ok
}

// Keys lists the keys of one namespace, sorted; an empty namespace lists all.
func (i *Info) Keys(namespace string) []string {
	prefix := ""
	if namespace != "" {
		prefix = namespace + "::"
	}
	var keys []string
	for k := range i.attrs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (i *Info) Copy() *Info {
	result := NewInfo()
	for k, v := range i.attrs {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		result.attrs[k] = v
	}
	return result
}

func (i *Info) String(key string) string {
	val, _ := i.Get(key)
	s, _ := val.(string)
	return s
}

func (i *Info) StringList(key string) []string {
	val, _ := i.Get(key)
	list, _ := val.([]string)
	return list
}

func (i *Info) Bool(key string) bool {
	val, _ := i.Get(key)
	b, _ := val.(bool)
	return b
}

func (i *Info) Uint32(key string) uint32 {
	val, _ := i.Get(key)
	switch v := val.(type) {
	case uint32:
		return v
	case int:
		return uint32(v)
	case int64:
		return uint32(v)
	}
	return 0
}

func (i *Info) Int32(key string) int32 {
	val, _ := i.Get(key)
	switch v := val.(type) {
	case int32:
		return v
	case int:
		return int32(v)
	}
	return 0
}

func (i *Info) Int64(key string) int64 {
	val, _ := i.Get(key)
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case uint32:
		return int64(v)
	}
	return 0
}

func (i *Info) Uint64(key string) uint64 {
	val, _ := i.Get(key)
	switch v := val.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case int:
		return uint64(v)
	}
	return 0
}

func (i *Info) Name() string {
	return i.String(InfoStandardName)
}

func (i *Info) DisplayName() string {
	return i.String(InfoStandardDisplayName)
}

func (i *Info) FileType() FileType {
	return FileType(i.String(InfoStandardType))
}

// Metadata extracts the "metadata::*" entries.
func (i *Info) Metadata() map[string]MetadataValue {
	result := map[string]MetadataValue{}
	for _, k := range i.Keys(InfoMetadataNamespace) {
		name := strings.TrimPrefix(k, InfoMetadataNamespace+"::")
		if name == "" {
			continue
		}
		switch v := i.attrs[k].(type) {
		case string:
			result[name] = MetadataValue{Value: v}
		case []string:
			result[name] = MetadataValue{List: append([]string(nil), v...), IsList: true}
		}
	}
	return result
}

func MetadataKey(name string) string {
	return InfoMetadataNamespace + "::" + name
}
