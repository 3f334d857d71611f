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

package v1

import (
	"github.com/basenana/nanafiles/pkg/files"
	"github.com/basenana/nanafiles/pkg/types"
)

type FileResponse struct {
	files.Snapshot
	Starred bool `json:"starred"`
}

type StarredResponse struct {
	Files []types.StarredFile `json:"files"`
}

type QueueResponse struct {
	Pending int `json:"pending"`
}

type EventsResponse struct {
	Events []types.FileEvent `json:"events"`
}
