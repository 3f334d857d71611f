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
	"path"
	"strings"

	"github.com/basenana/nanafiles/pkg/types"
)

const schemeSep = "://"

// SplitURI splits uri into the uri of its parent directory and its base
// name. The root of a scheme has an empty parent.
func SplitURI(uri string) (parent, name string, err error) {
	idx := strings.Index(uri, schemeSep)
	if idx <= 0 {
		return "", "", types.ErrInvalidURI
	}
	prefix := uri[:idx+len(schemeSep)]
	p := uri[idx+len(schemeSep):]
	if !strings.HasPrefix(p, "/") {
		return "", "", types.ErrInvalidURI
	}
	p = path.Clean(p)
	if p == "/" {
		return "", "/", nil
	}
	dir, base := path.Split(p)
	return prefix + path.Clean(dir), base, nil
}

// JoinURI is the inverse of SplitURI.
func JoinURI(parent, name string) string {
	if parent == "" {
		return "file://" + name
	}
	if strings.HasSuffix(parent, "/") {
		return parent + name
	}
	return parent + "/" + name
}

// CleanURI normalises the path part of uri.
func CleanURI(uri string) (string, error) {
	parent, name, err := SplitURI(uri)
	if err != nil {
		return "", err
	}
	if parent == "" {
		return uri[:strings.Index(uri, schemeSep)+len(schemeSep)] + "/", nil
	}
	return JoinURI(parent, name), nil
}

// resolveLinkTarget turns a symlink target relative to the link's
// directory into a uri.
func resolveLinkTarget(dirURI, target string) string {
	if target == "" {
		return ""
	}
	if strings.Contains(target, schemeSep) {
		return target
	}
	idx := strings.Index(dirURI, schemeSep)
	if idx <= 0 {
		return ""
	}
	prefix := dirURI[:idx+len(schemeSep)]
	if path.IsAbs(target) {
		return prefix + path.Clean(target)
	}
	return prefix + path.Join(dirURI[idx+len(schemeSep):], target)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}
