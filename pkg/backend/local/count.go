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
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils"
)

func (l *Local) CountChildren(ctx context.Context, uri string) (int, error) {
	defer utils.TraceRegion(ctx, "local.countchildren")()
	p, err := uriToPath(uri)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return 0, toError(err)
	}
	return len(entries), nil
}

func (l *Local) ListChildMimeTypes(ctx context.Context, uri string) ([]string, error) {
	defer utils.TraceRegion(ctx, "local.childmimetypes")()
	p, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, toError(err)
	}
	seen := map[string]struct{}{}
	for _, en := range entries {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case en.IsDir():
			seen[directoryMimeType] = struct{}{}
		case en.Type()&fs.ModeSymlink != 0:
			seen[symlinkMimeType] = struct{}{}
		default:
			seen[mimeByName(en.Name())] = struct{}{}
		}
	}
	result := make([]string, 0, len(seen))
	for mt := range seen {
		result = append(result, mt)
	}
	sort.Strings(result)
	return result, nil
}

// DeepCount walks the tree below uri without following symlinks. Hard
// links are counted once.
func (l *Local) DeepCount(ctx context.Context, uri string, progress func(types.DeepCount)) (types.DeepCount, error) {
	defer utils.TraceRegion(ctx, "local.deepcount")()
	result := types.DeepCount{Status: types.DeepCountInProgress}
	root, err := uriToPath(uri)
	if err != nil {
		return result, err
	}

	type inode struct{ dev, ino uint64 }
	seen := map[inode]struct{}{}
	walked := 0
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			result.Unreadable++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}
		walked++
		if progress != nil && walked%l.progressEvery == 0 {
			progress(result)
		}
		if d.IsDir() {
			result.Directories++
			return nil
		}
		result.Files++
		fi, infoErr := d.Info()
		if infoErr != nil {
			result.Unreadable++
			return nil
		}
		if dev, ino, nlink, ok := inodeOf(fi); ok && nlink > 1 {
			key := inode{dev: dev, ino: ino}
			if _, dup := seen[key]; dup {
				return nil
			}
			seen[key] = struct{}{}
		}
		result.TotalSize += fi.Size()
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, toError(err)
	}
	result.Status = types.DeepCountDone
	return result, nil
}
