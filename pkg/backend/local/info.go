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

package local

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sys/unix"

	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils"
)

const (
	directoryMimeType = "inode/directory"
	symlinkMimeType   = "inode/symlink"
	defaultMimeType   = "application/octet-stream"
)

func (l *Local) QueryInfo(ctx context.Context, uri string) (*types.Info, error) {
	defer utils.TraceRegion(ctx, "local.queryinfo")()
	p, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}

	var lst unix.Stat_t
	if err = unix.Lstat(p, &lst); err != nil {
		return nil, toError(err)
	}

	name := filepath.Base(p)
	info := types.NewInfo().
		Set(types.InfoStandardName, name).
		Set(types.InfoStandardDisplayName, name).
		Set(types.InfoStandardEditName, name).
		Set(types.InfoStandardIsHidden, strings.HasPrefix(name, ".")).
		Set(types.InfoStandardIsBackup, strings.HasSuffix(name, "~"))

	st := lst
	if lst.Mode&unix.S_IFMT == unix.S_IFLNK {
		target, rlErr := os.Readlink(p)
		if rlErr == nil {
			info.Set(types.InfoStandardSymlinkTarget, target)
		}
		info.Set(types.InfoStandardIsSymlink, true)
		var tst unix.Stat_t
		if unix.Stat(p, &tst) == nil {
			st = tst
		}
	} else {
		info.Set(types.InfoStandardIsSymlink, false)
	}

	fileType := fileTypeOf(st.Mode)
	info.Set(types.InfoStandardType, string(fileType)).
		Set(types.InfoStandardSize, st.Size).
		Set(types.InfoUnixMode, st.Mode).
		Set(types.InfoUnixUID, int64(st.Uid)).
		Set(types.InfoUnixGID, int64(st.Gid)).
		Set(types.InfoTimeAccess, uint64(timespecSec(st.Atim))).
		Set(types.InfoTimeModified, uint64(timespecSec(st.Mtim))).
		Set(types.InfoIDFilesystem, fmt.Sprintf("%x", st.Dev))

	if owner := l.owners.userName(st.Uid); owner != "" {
		info.Set(types.InfoOwnerUser, owner).Set(types.InfoOwnerUserReal, l.owners.userRealName(st.Uid))
	}
	if group := l.owners.groupName(st.Gid); group != "" {
		info.Set(types.InfoOwnerGroup, group)
	}

	l.setAccess(info, p)
	info.Set(types.InfoUnixIsMountpoint, isMountpoint(p, &lst))

	fast, full := l.contentType(p, fileType)
	info.Set(types.InfoStandardFastContentType, fast)
	if full != "" {
		info.Set(types.InfoStandardContentType, full)
	}
	if icon := iconName(fast, fileType); icon != "" {
		info.Set(types.InfoStandardIcon, icon)
	}

	if fileType == types.RegularFileType {
		thumb, failed := l.thumbnailFor(uri)
		if thumb != "" {
			info.Set(types.InfoThumbnailPath, thumb)
		}
		info.Set(types.InfoThumbnailFailed, failed)
	}

	if l.store != nil {
		meta, mErr := l.store.GetMetadata(ctx, uri)
		if mErr != nil {
			l.logger.Warnw("load metadata failed", "uri", uri, "err", mErr)
		}
		for k, v := range meta {
			if v.IsList {
				info.Set(types.MetadataKey(k), append([]string(nil), v.List...))
				continue
			}
			info.Set(types.MetadataKey(k), v.Value)
		}
	}
	return info, nil
}

func (l *Local) setAccess(info *types.Info, p string) {
	canRead := unix.Access(p, unix.R_OK) == nil
	canWrite := unix.Access(p, unix.W_OK) == nil
	canExecute := unix.Access(p, unix.X_OK) == nil
	parentWritable := unix.Access(filepath.Dir(p), unix.W_OK|unix.X_OK) == nil
	info.Set(types.InfoAccessCanRead, canRead).
		Set(types.InfoAccessCanWrite, canWrite).
		Set(types.InfoAccessCanExecute, canExecute).
		Set(types.InfoAccessCanDelete, parentWritable).
		Set(types.InfoAccessCanTrash, parentWritable).
		Set(types.InfoAccessCanRename, parentWritable)
}

// contentType returns the extension based guess and, when content
// detection is on and the file is regular, the sniffed type.
func (l *Local) contentType(p string, fileType types.FileType) (fast, full string) {
	switch fileType {
	case types.DirectoryFileType:
		return directoryMimeType, directoryMimeType
	case types.SymlinkFileType:
		return symlinkMimeType, symlinkMimeType
	case types.SpecialFileType:
		return defaultMimeType, defaultMimeType
	}
	fast = mimeByName(p)
	if !l.detectContent {
		return fast, ""
	}
	mt, err := mimetype.DetectFile(p)
	if err != nil {
		l.logger.Debugw("detect content type failed", "path", p, "err", err)
		return fast, ""
	}
	full = mt.String()
	if idx := strings.Index(full, ";"); idx > 0 {
		full = full[:idx]
	}
	return fast, full
}

func mimeByName(p string) string {
	if t := mime.TypeByExtension(filepath.Ext(p)); t != "" {
		if idx := strings.Index(t, ";"); idx > 0 {
			t = t[:idx]
		}
		return t
	}
	return defaultMimeType
}

func iconName(mimeType string, fileType types.FileType) string {
	if fileType == types.DirectoryFileType {
		return "folder"
	}
	if mimeType == "" {
		return ""
	}
	return strings.ReplaceAll(mimeType, "/", "-")
}

func fileTypeOf(mode uint32) types.FileType {
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return types.DirectoryFileType
	case unix.S_IFREG:
		return types.RegularFileType
	case unix.S_IFLNK:
		return types.SymlinkFileType
	default:
		return types.SpecialFileType
	}
}

func isMountpoint(p string, st *unix.Stat_t) bool {
	if p == "/" {
		return true
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return false
	}
	var parent unix.Stat_t
	if err := unix.Lstat(filepath.Dir(p), &parent); err != nil {
		return false
	}
	return parent.Dev != st.Dev || parent.Ino == st.Ino
}

func timespecSec(ts unix.Timespec) int64 {
	sec, _ := ts.Unix()
	return sec
}
