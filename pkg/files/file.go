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
	"fmt"
	"sort"
	"time"

	"github.com/basenana/nanafiles/pkg/backend"
	"github.com/basenana/nanafiles/pkg/readiness"
	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils"
)

// Capabilities are what the backend reports the user may do with a file.
type Capabilities struct {
	CanRead               bool                `json:"can_read"`
	CanWrite              bool                `json:"can_write"`
	CanExecute            bool                `json:"can_execute"`
	CanDelete             bool                `json:"can_delete"`
	CanTrash              bool                `json:"can_trash"`
	CanRename             bool                `json:"can_rename"`
	CanMount              bool                `json:"can_mount"`
	CanUnmount            bool                `json:"can_unmount"`
	CanEject              bool                `json:"can_eject"`
	CanStart              bool                `json:"can_start"`
	CanStartDegraded      bool                `json:"can_start_degraded"`
	CanStop               bool                `json:"can_stop"`
	CanPoll               bool                `json:"can_poll"`
	IsMediaCheckAutomatic bool                `json:"is_media_check_automatic"`
	StartStopType         types.StartStopType `json:"start_stop_type"`
}

// Access checks fail open: an unknown answer permits the action and the
// backend has the final word.
func defaultCapabilities() Capabilities {
	return Capabilities{
		CanRead:       true,
		CanWrite:      true,
		CanExecute:    true,
		CanDelete:     true,
		CanRename:     true,
		StartStopType: types.StartStopUnknown,
	}
}

// File is the cached record of one file. A File is owned by the main loop:
// every method must be called from a task running on Registry.Loop().
type File struct {
	id        int64
	name      string
	directory *Directory
	registry  *Registry
	refCount  int

	isGone    bool
	unmounted bool

	gotInfo       bool
	infoUpToDate  bool
	getInfoFailed bool
	getInfoError  error
	known         types.Attributes

	// info fields the last fetch could not supply
	unknowable types.Attributes

	displayName          string
	editName             string
	gotCustomDisplayName bool

	fileType       types.FileType
	activationURI  string
	isSymlink      bool
	isHidden       bool
	isMountpoint   bool
	hasPermissions bool
	permissions    uint32
	caps           Capabilities

	uid       int64
	gid       int64
	owner     string
	ownerReal string
	group     string

	size       int64
	sortOrder  int32
	atime      uint64
	mtime      uint64
	btime      uint64
	trashTime  int64
	recency    int64
	icon       string
	symlink    string
	mimeType   string
	selinux    string
	desc       string
	fsID       string
	trashOrig  string
	metadata   map[string]types.MetadataValue
	thumbPath  string
	thumbFails bool

	thumbnail         *types.Thumbnail
	thumbnailUpToDate bool

	directoryCount         int
	directoryCountFailed   bool
	directoryCountUpToDate bool

	mimeList         []string
	mimeListUpToDate bool

	deepCount types.DeepCount

	mount         *types.Mount
	mountUpToDate bool

	fsInfo         types.FilesystemInfo
	fsInfoUpToDate bool

	extension extensionState

	generations map[types.Attributes]uint64
	monitors    map[string]types.Attributes
}

func newFile(r *Registry, dir *Directory, name string) *File {
	liveFileGauge.Inc()
	return &File{
		id:          utils.GenerateNewID(),
		name:        name,
		directory:   dir,
		registry:    r,
		uid:         -1,
		gid:         -1,
		size:        -1,
		caps:        defaultCapabilities(),
		metadata:    map[string]types.MetadataValue{},
		generations: map[types.Attributes]uint64{},
		monitors:    map[string]types.Attributes{},
	}
}

func (f *File) ID() int64 {
	return f.id
}

func (f *File) Name() string {
	return f.name
}

func (f *File) URI() string {
	return JoinURI(f.directory.URI(), f.name)
}

func (f *File) Directory() *Directory {
	return f.directory
}

// SymlinkTargetURI is the uri the record points at, empty for non-links.
func (f *File) SymlinkTargetURI() string {
	if !f.isSymlink {
		return ""
	}
	return resolveLinkTarget(f.directory.URI(), f.symlink)
}

func (f *File) String() string {
	return fmt.Sprintf("file(%d:%s)", f.id, f.URI())
}

// Ref takes a reference. The directory holds one for every file it
// contains; GetOrCreate hands one to the caller.
func (f *File) Ref() *File {
	f.refCount++
	return f
}

// Unref drops a reference. A record only its directory still holds, with
// no monitor or waiter, is dropped from the directory and forgotten.
func (f *File) Unref() {
	f.refCount--
	switch {
	case f.refCount < 0:
		f.registry.logger.Warnw("unbalanced unref", "file", f.id)
	case f.refCount == 0:
		f.registry.finalize(f)
	case f.refCount == 1 && f.idle():
		f.directory.RemoveFile(f)
	}
}

func (f *File) idle() bool {
	return !f.isGone && len(f.monitors) == 0 &&
		f.directory.Holds(f) && f.registry.tracker.Pending(f) == 0
}

func (f *File) IsGone() bool {
	return f.isGone
}

func (f *File) IsUnmounted() bool {
	return f.unmounted
}

func (f *File) DisplayName() string {
	if f.displayName != "" {
		return f.displayName
	}
	return f.name
}

func (f *File) EditName() string {
	if f.editName != "" {
		return f.editName
	}
	return f.DisplayName()
}

func (f *File) Type() types.FileType {
	return f.fileType
}

func (f *File) IsDirectory() bool {
	return f.fileType == types.DirectoryFileType
}

func (f *File) IsSymlink() bool {
	return f.isSymlink
}

func (f *File) IsHidden() bool {
	return f.isHidden
}

func (f *File) IsMountpoint() bool {
	return f.isMountpoint
}

// ActivationURI is the shortcut target for virtual files, the record's
// own uri otherwise.
func (f *File) ActivationURI() string {
	if f.activationURI != "" {
		return f.activationURI
	}
	return f.URI()
}

// Size is -1 until known.
func (f *File) Size() int64 {
	return f.size
}

func (f *File) SortOrder() int32 {
	return f.sortOrder
}

func (f *File) Permissions() (uint32, bool) {
	return f.permissions, f.hasPermissions
}

func (f *File) Capabilities() Capabilities {
	return f.caps
}

// UID and GID are -1 until known.
func (f *File) UID() int64 {
	return f.uid
}

func (f *File) GID() int64 {
	return f.gid
}

func (f *File) Owner() string {
	return f.owner
}

func (f *File) OwnerReal() string {
	return f.ownerReal
}

func (f *File) Group() string {
	return f.group
}

func (f *File) ModifiedTime() time.Time {
	return unixTime(f.mtime)
}

func (f *File) AccessTime() time.Time {
	return unixTime(f.atime)
}

func (f *File) CreatedTime() time.Time {
	return unixTime(f.btime)
}

func (f *File) TrashTime() time.Time {
	if f.trashTime == 0 {
		return time.Time{}
	}
	return time.Unix(f.trashTime, 0)
}

func (f *File) TrashOrigPath() string {
	return f.trashOrig
}

func (f *File) Recency() int64 {
	return f.recency
}

func (f *File) Icon() string {
	return f.icon
}

func (f *File) MimeType() string {
	return f.mimeType
}

func (f *File) SymlinkName() string {
	return f.symlink
}

func (f *File) SelinuxContext() string {
	return f.selinux
}

func (f *File) Description() string {
	return f.desc
}

func (f *File) FilesystemID() string {
	return f.fsID
}

func (f *File) ThumbnailPath() string {
	return f.thumbPath
}

func (f *File) ThumbnailingFailed() bool {
	return f.thumbFails
}

func (f *File) Thumbnail() *types.Thumbnail {
	return f.thumbnail
}

// DirectoryItemCount reports ok=false until counted or when counting failed.
func (f *File) DirectoryItemCount() (int, bool) {
	if !f.directoryCountUpToDate || f.directoryCountFailed {
		return 0, false
	}
	return f.directoryCount, true
}

func (f *File) DirectoryItemMimeTypes() []string {
	return append([]string(nil), f.mimeList...)
}

func (f *File) DeepCounts() types.DeepCount {
	return f.deepCount
}

func (f *File) MountInfo() *types.Mount {
	return f.mount
}

func (f *File) FilesystemInfo() types.FilesystemInfo {
	return f.fsInfo
}

// GetInfoError is the last info fetch failure, nil when the last fetch
// succeeded.
func (f *File) GetInfoError() error {
	if !f.getInfoFailed {
		return nil
	}
	return f.getInfoError
}

// Missing implements readiness.Subject. A gone record misses nothing so
// its waiters can run and observe the gone flag.
func (f *File) Missing(attrs types.Attributes) types.Attributes {
	if f.isGone {
		return 0
	}
	var missing types.Attributes
	if info := attrs & types.AttrInfo; info != 0 {
		switch {
		case !f.infoUpToDate:
			missing |= info
		case !f.getInfoFailed:
			missing |= info &^ (f.known | f.unknowable)
		}
	}
	for _, g := range attrs.Groups() {
		if g != types.AttrInfo && f.lacks(g) {
			missing |= attrs & g
		}
	}
	return missing
}

// lacks reports whether the group needs a fetch.
func (f *File) lacks(group types.Attributes) bool {
	if f.isGone {
		return false
	}
	switch group {
	case types.AttrInfo:
		return !f.infoUpToDate
	case types.AttrDirectoryItemCount:
		return f.IsDirectory() && !f.directoryCountUpToDate
	case types.AttrDeepCounts:
		return f.IsDirectory() && f.deepCount.Status != types.DeepCountDone
	case types.AttrDirectoryItemMimeTypes:
		return f.IsDirectory() && !f.mimeListUpToDate
	case types.AttrThumbnail:
		return f.thumbPath != "" && !f.thumbnailUpToDate
	case types.AttrMount:
		return (f.isMountpoint || f.fileType == types.MountableFileType) && !f.mountUpToDate
	case types.AttrExtensionInfo:
		return !f.extension.upToDate && len(f.registry.providers) > 0
	case types.AttrFilesystemInfo:
		return !f.fsInfoUpToDate
	}
	return false
}

func (f *File) generation(group types.Attributes) uint64 {
	return f.generations[group]
}

// CallWhenReady runs cb once every attribute in attrs is resolved.
func (f *File) CallWhenReady(attrs types.Attributes, cb func(f *File, data interface{}), data interface{}) readiness.Handle {
	return f.registry.tracker.CallWhenReady(f, attrs, func(s readiness.Subject, data interface{}) {
		cb(s.(*File), data)
	}, data)
}

func (f *File) CheckIfReady(attrs types.Attributes) bool {
	return f.registry.tracker.CheckIfReady(f, attrs)
}

func (f *File) CancelCallWhenReady(h readiness.Handle) bool {
	return f.registry.tracker.CancelCallWhenReady(f, h)
}

// MonitorAdd keeps attrs up to date for client until MonitorRemove.
func (f *File) MonitorAdd(client string, attrs types.Attributes) {
	f.monitors[client] = attrs.WithDependencies()
	f.registry.kick(f)
}

func (f *File) MonitorRemove(client string) {
	delete(f.monitors, client)
	if f.refCount == 1 && f.idle() {
		f.directory.RemoveFile(f)
	}
}

func (f *File) monitored() types.Attributes {
	var attrs types.Attributes
	for _, a := range f.monitors {
		attrs |= a
	}
	return attrs
}

func (f *File) view() backend.FileView {
	return backend.FileView{
		ID:       f.id,
		URI:      f.URI(),
		Name:     f.name,
		MimeType: f.mimeType,
		Type:     f.fileType,
	}
}

func unixTime(sec uint64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0)
}

func sortedKeys(m map[string]types.MetadataValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
