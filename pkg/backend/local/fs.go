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
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils"
)

const mountInfoFile = "/proc/self/mounts"

var fsTypeNames = map[int64]string{
	0xef53:     "ext4",
	0x58465342: "xfs",
	0x9123683e: "btrfs",
	0x01021994: "tmpfs",
	0x794c7630: "overlay",
	0x6969:     "nfs",
	0x65735546: "fuse",
	0x4d44:     "vfat",
	0x5346544e: "ntfs",
	0x2011bab0: "exfat",
	0x9660:     "iso9660",
	0xff534d42: "cifs",
	0x9fa0:     "proc",
	0x62656572: "sysfs",
}

func (l *Local) QueryFilesystemInfo(ctx context.Context, uri string) (*types.FilesystemInfo, error) {
	defer utils.TraceRegion(ctx, "local.statfs")()
	p, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}
	var st unix.Statfs_t
	if err = unix.Statfs(p, &st); err != nil {
		return nil, toError(err)
	}
	bsize := uint64(st.Bsize)
	info := &types.FilesystemInfo{
		Type:      fsTypeNames[int64(st.Type)],
		ReadOnly:  int64(st.Flags)&unix.ST_RDONLY != 0,
		Size:      st.Blocks * bsize,
		Free:      st.Bavail * bsize,
		QueriedAt: time.Now(),
	}
	if info.Type == "" {
		info.Type = l.mountFsType(p)
	}
	return info, nil
}

// QueryMount describes the mount rooted at uri, nil when uri is not a
// mountpoint.
func (l *Local) QueryMount(ctx context.Context, uri string) (*types.Mount, error) {
	defer utils.TraceRegion(ctx, "local.querymount")()
	p, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}
	var st unix.Stat_t
	if err = unix.Lstat(p, &st); err != nil {
		return nil, toError(err)
	}
	if !isMountpoint(p, &st) {
		return nil, nil
	}
	device, fsType := lookupMount(p)
	return &types.Mount{Root: p, Device: device, FsType: fsType}, nil
}

func (l *Local) mountFsType(p string) string {
	best := ""
	bestType := ""
	forEachMount(func(device, mountpoint, fsType string) {
		if (p == mountpoint || strings.HasPrefix(p, strings.TrimSuffix(mountpoint, "/")+"/")) && len(mountpoint) > len(best) {
			best, bestType = mountpoint, fsType
		}
	})
	return bestType
}

func lookupMount(p string) (device, fsType string) {
	forEachMount(func(dev, mountpoint, t string) {
		if mountpoint == p {
			device, fsType = dev, t
		}
	})
	return
}

func forEachMount(fn func(device, mountpoint, fsType string)) {
	f, err := os.Open(mountInfoFile)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		fn(fields[0], unescapeMount(fields[1]), fields[2])
	}
}

// unescapeMount decodes the octal escapes /proc uses for blanks.
func unescapeMount(s string) string {
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return filepath.Clean(r.Replace(s))
}

func inodeOf(fi fs.FileInfo) (dev, ino, nlink uint64, ok bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, 0, false
	}
	return uint64(st.Dev), uint64(st.Ino), uint64(st.Nlink), true
}
