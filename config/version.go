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

package config

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	gitTag    string
	gitCommit string
)

type Version struct {
	Major   int    `json:"major"`
	Minor   int    `json:"minor"`
	Patch   int    `json:"patch"`
	Release string `json:"release"`
	Git     string `json:"git"`
}

func (v Version) Version() string {
	releaseInfo := ""
	if v.Release != "" {
		releaseInfo = "-" + v.Release
	}
	return fmt.Sprintf("v%d.%d.%d%s", v.Major, v.Minor, v.Patch, releaseInfo)
}

func (v Version) String() string {
	if v.Git == "" {
		return v.Version()
	}
	return fmt.Sprintf("%s (%s)", v.Version(), v.Git)
}

// VersionInfo parses the tag injected with -ldflags, e.g. "v1.2.3-rc1".
func VersionInfo() Version {
	versionInfo := Version{Git: gitCommit}

	versionStr, release, _ := strings.Cut(strings.TrimPrefix(gitTag, "v"), "-")
	versionInfo.Release = release

	parts := strings.SplitN(versionStr, ".", 3)
	fields := []*int{&versionInfo.Major, &versionInfo.Minor, &versionInfo.Patch}
	for i, p := range parts {
		*fields[i], _ = strconv.Atoi(p)
	}
	return versionInfo
}
