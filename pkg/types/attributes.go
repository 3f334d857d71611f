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

import "strings"

// Attributes is a bitmask of attribute categories a caller can wait for.
// The info group is split per field so that callers may wait on a single
// field of the stat-like record.
type Attributes uint32

const (
	AttrSize Attributes = 1 << iota
	AttrType
	AttrPermissions
	AttrOwner
	AttrModifiedTime
	AttrAccessTime
	AttrMimeType
	AttrSymlinkTarget
	AttrMetadata
	AttrDirectoryItemCount
	AttrDeepCounts
	AttrDirectoryItemMimeTypes
	AttrThumbnail
	AttrMount
	AttrExtensionInfo
	AttrFilesystemInfo
)

const (
	AttrInfo = AttrSize | AttrType | AttrPermissions | AttrOwner | AttrModifiedTime |
		AttrAccessTime | AttrMimeType | AttrSymlinkTarget | AttrMetadata

	AttrAll = AttrInfo | AttrDirectoryItemCount | AttrDeepCounts | AttrDirectoryItemMimeTypes |
		AttrThumbnail | AttrMount | AttrExtensionInfo | AttrFilesystemInfo
)

// AttrGroups lists the units the loader fetches; every group is loaded by
// a single backend call.
var AttrGroups = []Attributes{
	AttrInfo,
	AttrDirectoryItemCount,
	AttrDeepCounts,
	AttrDirectoryItemMimeTypes,
	AttrThumbnail,
	AttrMount,
	AttrExtensionInfo,
	AttrFilesystemInfo,
}

var attrNames = []struct {
	attr Attributes
	name string
}{
	{AttrSize, "size"},
	{AttrType, "type"},
	{AttrPermissions, "permissions"},
	{AttrOwner, "owner"},
	{AttrModifiedTime, "mtime"},
	{AttrAccessTime, "atime"},
	{AttrMimeType, "mime_type"},
	{AttrSymlinkTarget, "symlink_target"},
	{AttrMetadata, "metadata"},
	{AttrDirectoryItemCount, "directory_item_count"},
	{AttrDeepCounts, "deep_counts"},
	{AttrDirectoryItemMimeTypes, "directory_item_mime_types"},
	{AttrThumbnail, "thumbnail"},
	{AttrMount, "mount"},
	{AttrExtensionInfo, "extension_info"},
	{AttrFilesystemInfo, "filesystem_info"},
}

func (a Attributes) Has(other Attributes) bool {
	return a&other == other
}

func (a Attributes) Any(other Attributes) bool {
	return a&other != 0
}

// Groups returns the loader groups touched by a.
func (a Attributes) Groups() []Attributes {
	var result []Attributes
	for _, g := range AttrGroups {
		if a.Any(g) {
			result = append(result, g)
		}
	}
	return result
}

// WithDependencies adds the attributes a request implicitly needs: the
// thumbnail and mount checks, and the directory scans, only make sense
// once the file type is known.
func (a Attributes) WithDependencies() Attributes {
	if a.Any(AttrThumbnail | AttrMount | AttrDirectoryItemCount | AttrDeepCounts | AttrDirectoryItemMimeTypes) {
		a |= AttrType
	}
	return a
}

func (a Attributes) String() string {
	if a == 0 {
		return "none"
	}
	var parts []string
	for _, n := range attrNames {
		if a&n.attr != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

func ParseAttributes(s string) Attributes {
	var result Attributes
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		switch part {
		case "info":
			result |= AttrInfo
			continue
		case "all":
			result |= AttrAll
			continue
		}
		for _, n := range attrNames {
			if n.name == part {
				result |= n.attr
			}
		}
	}
	return result
}
