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
	"bytes"
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils"
)

const (
	thumbMTimeKey = "Thumb::MTime"
	failDir       = "fail/gnome-thumbnail-factory"
)

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	thumbSizes   = []string{"x-large", "large", "normal"}
)

func defaultThumbnailDir() string {
	if cache := os.Getenv("XDG_CACHE_HOME"); cache != "" {
		return filepath.Join(cache, "thumbnails")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", "thumbnails")
}

func thumbnailName(uri string) string {
	sum := md5.Sum([]byte(uri))
	return hex.EncodeToString(sum[:]) + ".png"
}

// thumbnailFor looks the uri up in the shared thumbnail cache, largest
// size first.
func (l *Local) thumbnailFor(uri string) (path string, failed bool) {
	if l.thumbnailDir == "" {
		return "", false
	}
	name := thumbnailName(uri)
	for _, size := range thumbSizes {
		p := filepath.Join(l.thumbnailDir, size, name)
		if _, err := os.Stat(p); err == nil {
			return p, false
		}
	}
	_, err := os.Stat(filepath.Join(l.thumbnailDir, failDir, name))
	return "", err == nil
}

// LoadThumbnail reads a thumbnail png and the source mtime it records.
func (l *Local) LoadThumbnail(ctx context.Context, path string) (*types.Thumbnail, error) {
	defer utils.TraceRegion(ctx, "local.loadthumbnail")()
	if path == "" {
		return nil, types.ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, toError(err)
	}
	texts, err := readPNGText(data)
	if err != nil {
		return nil, err
	}
	thumb := &types.Thumbnail{Path: path, Data: data}
	if mtime, ok := texts[thumbMTimeKey]; ok {
		thumb.MTime, _ = strconv.ParseInt(mtime, 10, 64)
	}
	return thumb, nil
}

// readPNGText collects the tEXt chunks of a png.
func readPNGText(data []byte) (map[string]string, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, pkgerrors.New("not a png file")
	}
	result := map[string]string{}
	buf := data[len(pngSignature):]
	for len(buf) >= 12 {
		length := binary.BigEndian.Uint32(buf[:4])
		kind := string(buf[4:8])
		if uint64(len(buf)) < 12+uint64(length) {
			return nil, pkgerrors.New("truncated png chunk")
		}
		body := buf[8 : 8+length]
		switch kind {
		case "tEXt":
			if idx := bytes.IndexByte(body, 0); idx > 0 {
				result[string(body[:idx])] = string(body[idx+1:])
			}
		case "IEND":
			return result, nil
		}
		buf = buf[12+length:]
	}
	return result, nil
}
