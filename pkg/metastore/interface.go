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

package metastore

import (
	"context"

	"github.com/basenana/nanafiles/pkg/backend"
	"github.com/basenana/nanafiles/pkg/types"
)

type Meta interface {
	backend.MetadataStore
	StarredRecorder

	Close() error
}

// StarredRecorder keeps the set of starred uris. Moves carry children
// along when the uri names a directory.
type StarredRecorder interface {
	ListStarred(ctx context.Context) ([]types.StarredFile, error)
	Star(ctx context.Context, uri string) (*types.StarredFile, error)
	Unstar(ctx context.Context, uri string) error
	IsStarred(ctx context.Context, uri string) (bool, error)
	MoveStarred(ctx context.Context, from, to string) error
}
