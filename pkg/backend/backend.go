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

package backend

import (
	"context"

	"github.com/basenana/nanafiles/pkg/types"
)

// Backend answers attribute queries and performs mutations for file uris.
// Every call may block; callers run them off the main loop.
type Backend interface {
	// QueryInfo returns types.ErrNotFound when the file does not exist.
	QueryInfo(ctx context.Context, uri string) (*types.Info, error)
	CountChildren(ctx context.Context, uri string) (int, error)
	DeepCount(ctx context.Context, uri string, progress func(types.DeepCount)) (types.DeepCount, error)
	ListChildMimeTypes(ctx context.Context, uri string) ([]string, error)
	QueryFilesystemInfo(ctx context.Context, uri string) (*types.FilesystemInfo, error)
	QueryMount(ctx context.Context, uri string) (*types.Mount, error)
	LoadThumbnail(ctx context.Context, path string) (*types.Thumbnail, error)

	Rename(ctx context.Context, uri, newName string) (string, error)
	SetPermissions(ctx context.Context, uri string, mode uint32) error
	SetOwner(ctx context.Context, uri, owner string) error
	SetGroup(ctx context.Context, uri, group string) error
}

// Optional capabilities, checked by type assertion on the backend.

type Mounter interface {
	Mount(ctx context.Context, uri string) error
}

type Unmounter interface {
	Unmount(ctx context.Context, uri string) error
}

type Ejecter interface {
	Eject(ctx context.Context, uri string) error
}

type Starter interface {
	Start(ctx context.Context, uri string) error
}

type Stopper interface {
	Stop(ctx context.Context, uri string) error
}

type Poller interface {
	PollForMedia(ctx context.Context, uri string) error
}

// MetadataStore persists the user "metadata::*" attributes per uri.
type MetadataStore interface {
	GetMetadata(ctx context.Context, uri string) (map[string]types.MetadataValue, error)
	SetMetadata(ctx context.Context, uri, key, value string) error
	SetMetadataList(ctx context.Context, uri, key string, values []string) error
	RemoveMetadata(ctx context.Context, uri, key string) error
	CopyMetadata(ctx context.Context, from, to string) error
	MoveMetadata(ctx context.Context, from, to string) error
	RemoveAllMetadata(ctx context.Context, uri string) error
}

// FileView is the read-only picture of a file handed to extension
// providers.
type FileView struct {
	ID       int64
	URI      string
	Name     string
	MimeType string
	Type     types.FileType
}

type ExtensionProvider interface {
	Name() string
	UpdateFileInfo(ctx context.Context, view FileView) (*types.ExtensionInfo, error)
}
