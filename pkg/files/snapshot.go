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
	"time"

	"github.com/basenana/nanafiles/pkg/types"
)

// Snapshot is a copy of a record safe to hand off the main loop.
type Snapshot struct {
	ID                 int64                          `json:"id"`
	URI                string                         `json:"uri"`
	Name               string                         `json:"name"`
	DisplayName        string                         `json:"display_name"`
	EditName           string                         `json:"edit_name"`
	Type               types.FileType                 `json:"type"`
	MimeType           string                         `json:"mime_type,omitempty"`
	Size               int64                          `json:"size"`
	Permissions        *uint32                        `json:"permissions,omitempty"`
	UID                int64                          `json:"uid"`
	GID                int64                          `json:"gid"`
	Owner              string                         `json:"owner,omitempty"`
	Group              string                         `json:"group,omitempty"`
	ModifiedTime       time.Time                      `json:"mtime"`
	AccessTime         time.Time                      `json:"atime"`
	CreatedTime        time.Time                      `json:"btime"`
	IsSymlink          bool                           `json:"is_symlink"`
	SymlinkTarget      string                         `json:"symlink_target,omitempty"`
	IsHidden           bool                           `json:"is_hidden"`
	IsMountpoint       bool                           `json:"is_mountpoint"`
	ActivationURI      string                         `json:"activation_uri"`
	Icon               string                         `json:"icon,omitempty"`
	ThumbnailPath      string                         `json:"thumbnail_path,omitempty"`
	Capabilities       Capabilities                   `json:"capabilities"`
	Metadata           map[string]types.MetadataValue `json:"metadata,omitempty"`
	DirectoryItemCount *int                           `json:"directory_item_count,omitempty"`
	ItemMimeTypes      []string                       `json:"item_mime_types,omitempty"`
	DeepCount          types.DeepCount                `json:"deep_count"`
	Mount              *types.Mount                   `json:"mount,omitempty"`
	FilesystemInfo     types.FilesystemInfo           `json:"filesystem_info"`
	Emblems            []string                       `json:"emblems,omitempty"`
	ExtensionAttrs     map[string]string              `json:"extension_attributes,omitempty"`
	Gone               bool                           `json:"gone"`
	Unmounted          bool                           `json:"unmounted,omitempty"`
	InfoError          string                         `json:"info_error,omitempty"`
	Missing            string                         `json:"missing"`
}

func (f *File) Snapshot() Snapshot {
	s := Snapshot{
		ID:             f.id,
		URI:            f.URI(),
		Name:           f.name,
		DisplayName:    f.DisplayName(),
		EditName:       f.EditName(),
		Type:           f.fileType,
		MimeType:       f.mimeType,
		Size:           f.size,
		UID:            f.uid,
		GID:            f.gid,
		Owner:          f.owner,
		Group:          f.group,
		ModifiedTime:   f.ModifiedTime(),
		AccessTime:     f.AccessTime(),
		CreatedTime:    f.CreatedTime(),
		IsSymlink:      f.isSymlink,
		SymlinkTarget:  f.SymlinkTargetURI(),
		IsHidden:       f.isHidden,
		IsMountpoint:   f.isMountpoint,
		ActivationURI:  f.ActivationURI(),
		Icon:           f.icon,
		ThumbnailPath:  f.thumbPath,
		Capabilities:   f.caps,
		Metadata:       map[string]types.MetadataValue{},
		ItemMimeTypes:  f.DirectoryItemMimeTypes(),
		DeepCount:      f.deepCount,
		Mount:          f.mount,
		FilesystemInfo: f.fsInfo,
		Emblems:        f.Emblems(),
		ExtensionAttrs: f.ExtensionAttributes(),
		Gone:           f.isGone,
		Unmounted:      f.unmounted,
		Missing:        f.Missing(types.AttrAll).String(),
	}
	if perm, ok := f.Permissions(); ok {
		s.Permissions = &perm
	}
	if count, ok := f.DirectoryItemCount(); ok {
		s.DirectoryItemCount = &count
	}
	for k, v := range f.metadata {
		s.Metadata[k] = v
	}
	if err := f.GetInfoError(); err != nil {
		s.InfoError = err.Error()
	}
	return s
}
