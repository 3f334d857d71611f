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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/basenana/nanafiles/pkg/backend"
	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils"
	"github.com/basenana/nanafiles/utils/logger"
)

const (
	uriPrefix                = "file://"
	defaultProgressEvery     = 500
	defaultOwnerCacheSize    = 1024
	defaultDetectContentType = true
)

type Option func(l *Local)

// WithMetadataStore merges the stored "metadata::*" values into infos.
func WithMetadataStore(store backend.MetadataStore) Option {
	return func(l *Local) {
		l.store = store
	}
}

// WithThumbnailDir overrides $XDG_CACHE_HOME/thumbnails.
func WithThumbnailDir(dir string) Option {
	return func(l *Local) {
		l.thumbnailDir = dir
	}
}

// WithProgressEvery sets how many entries a deep count walks between
// progress reports.
func WithProgressEvery(n int) Option {
	return func(l *Local) {
		if n > 0 {
			l.progressEvery = n
		}
	}
}

// WithOwnerCache sizes the uid/gid name cache; entries older than expire
// are looked up again. A zero expire keeps entries until evicted.
func WithOwnerCache(size int, expire time.Duration) Option {
	return func(l *Local) {
		if size > 0 {
			l.owners = newOwnerCache(size, expire)
		}
	}
}

// WithContentDetection toggles sniffing file content for the mime type;
// without it only the extension is used.
func WithContentDetection(enable bool) Option {
	return func(l *Local) {
		l.detectContent = enable
	}
}

// Local serves file:// uris from the host filesystem.
type Local struct {
	store         backend.MetadataStore
	owners        *ownerCache
	thumbnailDir  string
	progressEvery int
	detectContent bool
	logger        *zap.SugaredLogger
}

var _ backend.Backend = &Local{}

func NewLocal(opts ...Option) *Local {
	l := &Local{
		owners:        newOwnerCache(defaultOwnerCacheSize, 0),
		thumbnailDir:  defaultThumbnailDir(),
		progressEvery: defaultProgressEvery,
		detectContent: defaultDetectContentType,
		logger:        logger.NewLogger("local"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) Rename(ctx context.Context, uri, newName string) (string, error) {
	defer utils.TraceRegion(ctx, "local.rename")()
	p, err := uriToPath(uri)
	if err != nil {
		return "", err
	}
	if newName == "" || strings.Contains(newName, "/") {
		return "", types.ErrInvalidName
	}
	if len(newName) > 255 {
		return "", types.ErrNameTooLong
	}
	newPath := filepath.Join(filepath.Dir(p), newName)
	if _, err = os.Lstat(newPath); err == nil {
		return "", types.ErrIsExist
	}
	if err = os.Rename(p, newPath); err != nil {
		return "", toError(err)
	}
	l.logger.Infow("renamed", "from", p, "to", newPath)
	return PathToURI(newPath), nil
}

func (l *Local) SetPermissions(ctx context.Context, uri string, mode uint32) error {
	defer utils.TraceRegion(ctx, "local.chmod")()
	p, err := uriToPath(uri)
	if err != nil {
		return err
	}
	return toError(os.Chmod(p, os.FileMode(mode&0o777)|modeBits(mode)))
}

func (l *Local) SetOwner(ctx context.Context, uri, owner string) error {
	defer utils.TraceRegion(ctx, "local.chown")()
	p, err := uriToPath(uri)
	if err != nil {
		return err
	}
	uid, err := l.owners.userID(owner)
	if err != nil {
		return err
	}
	return toError(os.Lchown(p, uid, -1))
}

func (l *Local) SetGroup(ctx context.Context, uri, group string) error {
	defer utils.TraceRegion(ctx, "local.chgrp")()
	p, err := uriToPath(uri)
	if err != nil {
		return err
	}
	gid, err := l.owners.groupID(group)
	if err != nil {
		return err
	}
	return toError(os.Lchown(p, -1, gid))
}

func modeBits(mode uint32) os.FileMode {
	var m os.FileMode
	if mode&unix.S_ISUID != 0 {
		m |= os.ModeSetuid
	}
	if mode&unix.S_ISGID != 0 {
		m |= os.ModeSetgid
	}
	if mode&unix.S_ISVTX != 0 {
		m |= os.ModeSticky
	}
	return m
}

// PathToURI turns an absolute host path into a file:// uri.
func PathToURI(p string) string {
	return uriPrefix + filepath.Clean(p)
}

func uriToPath(uri string) (string, error) {
	if !strings.HasPrefix(uri, uriPrefix) {
		return "", types.ErrInvalidURI
	}
	p := strings.TrimPrefix(uri, uriPrefix)
	if !filepath.IsAbs(p) {
		return "", types.ErrInvalidURI
	}
	return filepath.Clean(p), nil
}

func toError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return types.ErrNotFound
	case errors.Is(err, os.ErrPermission):
		return types.ErrNoPerm
	case errors.Is(err, unix.ENAMETOOLONG):
		return types.ErrNameTooLong
	case errors.Is(err, unix.ENOTDIR):
		return types.ErrNotDir
	case errors.Is(err, os.ErrExist):
		return types.ErrIsExist
	}
	return pkgerrors.Wrap(err, "local filesystem")
}
