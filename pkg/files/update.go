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
	"strconv"
	"time"

	"github.com/basenana/nanafiles/pkg/types"
)

// UpdateInfo merges a fresh attribute bundle into the record and reports
// whether anything observable changed. A nil info means the file no longer
// exists: the record is marked gone. The record keeps its name.
func (f *File) UpdateInfo(info *types.Info) bool {
	return f.updateInfo(info, false)
}

// UpdateInfoAndName is UpdateInfo that also takes the name from info.
func (f *File) UpdateInfoAndName(info *types.Info) bool {
	return f.updateInfo(info, true)
}

func (f *File) updateInfo(info *types.Info, updateName bool) bool {
	if f.isGone {
		return false
	}
	if info == nil {
		return f.MarkGone()
	}

	f.gotInfo = true
	f.infoUpToDate = true
	f.getInfoFailed = false
	f.getInfoError = nil
	f.known = knownAttributes(info)
	f.unknowable = 0

	index := f.registry.index
	index.Unregister(f)
	defer func() {
		if f.isSymlink && !f.isGone {
			index.Register(f)
		}
	}()

	changed := false

	if !f.gotCustomDisplayName {
		if f.setDisplayName(info.DisplayName(), info.String(types.InfoStandardEditName), false) {
			changed = true
		}
	}

	fileType := info.FileType()
	if f.fileType != fileType {
		changed = true
	}
	f.fileType = fileType

	activation := ""
	if info.Bool(types.InfoStandardIsVirtual) || fileType == types.ShortcutFileType {
		activation = info.String(types.InfoStandardTargetURI)
	}
	if f.activationURI != activation {
		changed = true
		f.activationURI = activation
	}

	isSymlink := info.Bool(types.InfoStandardIsSymlink)
	if f.isSymlink != isSymlink {
		changed = true
	}
	f.isSymlink = isSymlink

	isHidden := info.Bool(types.InfoStandardIsHidden) || info.Bool(types.InfoStandardIsBackup)
	if f.isHidden != isHidden {
		changed = true
	}
	f.isHidden = isHidden

	isMountpoint := info.Bool(types.InfoUnixIsMountpoint)
	if f.isMountpoint != isMountpoint {
		changed = true
	}
	f.isMountpoint = isMountpoint

	hasPermissions := info.Has(types.InfoUnixMode)
	var permissions uint32
	if hasPermissions {
		permissions = info.Uint32(types.InfoUnixMode) & 0o7777
	}
	if f.hasPermissions != hasPermissions || f.permissions != permissions {
		changed = true
	}
	f.hasPermissions = hasPermissions
	f.permissions = permissions

	caps := capabilitiesFromInfo(info)
	if f.caps != caps {
		changed = true
	}
	f.caps = caps

	uid, gid := int64(-1), int64(-1)
	if info.Has(types.InfoUnixUID) {
		uid = info.Int64(types.InfoUnixUID)
	}
	if info.Has(types.InfoUnixGID) {
		gid = info.Int64(types.InfoUnixGID)
	}
	if f.uid != uid || f.gid != gid {
		changed = true
	}
	f.uid = uid
	f.gid = gid

	owner := info.String(types.InfoOwnerUser)
	if owner == "" && uid >= 0 {
		owner = strconv.FormatInt(uid, 10)
	}
	if f.owner != owner {
		changed = true
		f.owner = owner
	}
	ownerReal := info.String(types.InfoOwnerUserReal)
	if f.ownerReal != ownerReal {
		changed = true
		f.ownerReal = ownerReal
	}
	group := info.String(types.InfoOwnerGroup)
	if group == "" && gid >= 0 {
		group = strconv.FormatInt(gid, 10)
	}
	if f.group != group {
		changed = true
		f.group = group
	}

	size := int64(-1)
	if info.Has(types.InfoStandardSize) {
		size = info.Int64(types.InfoStandardSize)
	}
	if f.size != size {
		changed = true
	}
	f.size = size

	sortOrder := info.Int32(types.InfoStandardSortOrder)
	if f.sortOrder != sortOrder {
		changed = true
		f.sortOrder = sortOrder
	}

	atime := info.Uint64(types.InfoTimeAccess)
	mtime := info.Uint64(types.InfoTimeModified)
	if f.atime != atime || f.mtime != mtime {
		if f.thumbnail == nil {
			f.markStale(types.AttrThumbnail)
		}
		changed = true
	}
	f.atime = atime
	f.mtime = mtime

	btime := info.Uint64(types.InfoTimeCreated)
	if f.btime != btime {
		changed = true
		f.btime = btime
	}

	if f.thumbnail != nil && f.thumbnail.MTime != 0 && f.thumbnail.MTime != int64(mtime) {
		f.markStale(types.AttrThumbnail)
		changed = true
	}

	trashTime := parseTrashTime(info.String(types.InfoTrashDeletedDate))
	if f.trashTime != trashTime {
		changed = true
		f.trashTime = trashTime
	}

	recency := info.Int64(types.InfoRecentModified)
	if f.recency != recency {
		changed = true
		f.recency = recency
	}

	icon := info.String(types.InfoStandardIcon)
	if f.icon != icon {
		changed = true
		f.icon = icon
	}

	thumbPath := info.String(types.InfoThumbnailPath)
	if f.thumbPath != thumbPath {
		changed = true
		f.thumbPath = thumbPath
		f.markStale(types.AttrThumbnail)
	}
	thumbFails := info.Bool(types.InfoThumbnailFailed)
	if f.thumbFails != thumbFails {
		changed = true
		f.thumbFails = thumbFails
	}

	symlink := info.String(types.InfoStandardSymlinkTarget)
	if f.symlink != symlink {
		changed = true
		f.symlink = symlink
	}

	mimeType := info.String(types.InfoStandardContentType)
	if mimeType == "" {
		mimeType = info.String(types.InfoStandardFastContentType)
	}
	if f.mimeType != mimeType {
		changed = true
		f.mimeType = mimeType
	}

	selinux := info.String(types.InfoSelinuxContext)
	if f.selinux != selinux {
		changed = true
		f.selinux = selinux
	}

	desc := info.String(types.InfoStandardDescription)
	if f.desc != desc {
		changed = true
		f.desc = desc
	}

	fsID := info.String(types.InfoIDFilesystem)
	if f.fsID != fsID {
		changed = true
		f.fsID = fsID
	}

	trashOrig := info.String(types.InfoTrashOrigPath)
	if f.trashOrig != trashOrig {
		changed = true
		f.trashOrig = trashOrig
	}

	if f.updateMetadata(info.Metadata()) {
		changed = true
	}

	if updateName {
		name := info.Name()
		if name != "" && name != f.name {
			if f.setName(name) {
				changed = true
			}
			if !f.gotCustomDisplayName && info.DisplayName() == "" {
				f.displayName, f.editName = "", ""
			}
		}
	}

	return changed
}

// knownAttributes tells which info fields the bundle carried. Metadata is
// always known: an absent namespace means no metadata.
func knownAttributes(info *types.Info) types.Attributes {
	known := types.AttrMetadata
	if info.Has(types.InfoStandardSize) {
		known |= types.AttrSize
	}
	if info.Has(types.InfoStandardType) {
		known |= types.AttrType
	}
	if info.Has(types.InfoUnixMode) {
		known |= types.AttrPermissions
	}
	if info.Has(types.InfoUnixUID) || info.Has(types.InfoOwnerUser) {
		known |= types.AttrOwner
	}
	if info.Has(types.InfoTimeModified) {
		known |= types.AttrModifiedTime
	}
	if info.Has(types.InfoTimeAccess) {
		known |= types.AttrAccessTime
	}
	if info.Has(types.InfoStandardContentType) || info.Has(types.InfoStandardFastContentType) {
		known |= types.AttrMimeType
	}
	if info.Has(types.InfoStandardIsSymlink) || info.Has(types.InfoStandardSymlinkTarget) {
		known |= types.AttrSymlinkTarget
	}
	return known
}

func capabilitiesFromInfo(info *types.Info) Capabilities {
	caps := defaultCapabilities()
	flag := func(key string, def bool) bool {
		if !info.Has(key) {
			return def
		}
		return info.Bool(key)
	}
	caps.CanRead = flag(types.InfoAccessCanRead, true)
	caps.CanWrite = flag(types.InfoAccessCanWrite, true)
	caps.CanExecute = flag(types.InfoAccessCanExecute, true)
	caps.CanDelete = flag(types.InfoAccessCanDelete, true)
	caps.CanTrash = flag(types.InfoAccessCanTrash, false)
	caps.CanRename = flag(types.InfoAccessCanRename, true)
	caps.CanMount = flag(types.InfoMountableCanMount, false)
	caps.CanUnmount = flag(types.InfoMountableCanUnmount, false)
	caps.CanEject = flag(types.InfoMountableCanEject, false)
	caps.CanStart = flag(types.InfoMountableCanStart, false)
	caps.CanStartDegraded = flag(types.InfoMountableCanStartDegraded, false)
	caps.CanStop = flag(types.InfoMountableCanStop, false)
	caps.CanPoll = flag(types.InfoMountableCanPoll, false)
	caps.IsMediaCheckAutomatic = flag(types.InfoMountableIsMediaCheckAutomatic, false)
	if sst := info.String(types.InfoMountableStartStopType); sst != "" {
		caps.StartStopType = types.StartStopType(sst)
	}
	return caps
}

func parseTrashTime(s string) int64 {
	if s == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.Unix()
		}
	}
	return 0
}

// setDisplayName reports whether either name changed. A custom name is
// only replaced by another custom name.
func (f *File) setDisplayName(displayName, editName string, custom bool) bool {
	if f.gotCustomDisplayName && !custom {
		return false
	}
	if displayName == "" {
		return false
	}
	if editName == "" {
		editName = displayName
	}
	changed := f.displayName != displayName || f.editName != editName
	f.displayName = displayName
	f.editName = editName
	f.gotCustomDisplayName = custom
	return changed
}

// SetCustomDisplayName pins a display name that info updates won't
// override.
func (f *File) SetCustomDisplayName(name string) bool {
	if f.isGone || name == "" {
		return false
	}
	changed := f.setDisplayName(name, name, true)
	if changed {
		f.emitChanged()
	}
	return changed
}

func (f *File) ClearCustomDisplayName() {
	if !f.gotCustomDisplayName {
		return
	}
	f.gotCustomDisplayName = false
	f.displayName, f.editName = "", ""
	f.InvalidateAttributes(types.AttrInfo)
	f.emitChanged()
}

// setName renames the record inside its directory.
func (f *File) setName(name string) bool {
	if !validName(name) || name == f.name {
		return false
	}
	dir := f.directory
	oldName := dir.BeginFileNameChange(f)
	f.name = name
	displaced := dir.EndFileNameChange(f, oldName)
	if displaced != nil && displaced != f {
		f.registry.logger.Infow("rename displaced file", "file", f.id, "displaced", displaced.id, "name", name)
		f.registry.settle(displaced, displaced.MarkGone())
	}
	return true
}
