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
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/basenana/nanafiles/pkg/changes"
	"github.com/basenana/nanafiles/pkg/events"
	"github.com/basenana/nanafiles/pkg/files"
	"github.com/basenana/nanafiles/pkg/tags"
	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils/logger"
)

const defaultLoadTimeout = time.Second * 30

type Depends struct {
	Registry *files.Registry
	Tags     *tags.Manager
	Queue    *changes.Queue
	Events   *events.Recorder
}

type ServicesV1 struct {
	registry    *files.Registry
	tags        *tags.Manager
	queue       *changes.Queue
	events      *events.Recorder
	loadTimeout time.Duration
	logger      *zap.SugaredLogger
}

func NewServicesV1(depends Depends) (*ServicesV1, error) {
	s := &ServicesV1{
		registry:    depends.Registry,
		tags:        depends.Tags,
		queue:       depends.Queue,
		events:      depends.Events,
		loadTimeout: defaultLoadTimeout,
		logger:      logger.NewLogger("rest"),
	}
	return s, nil
}

func (s *ServicesV1) load(ctx context.Context, uri string, attrs types.Attributes) (files.Snapshot, error) {
	ctx, canF := context.WithTimeout(ctx, s.loadTimeout)
	defer canF()
	return s.registry.Load(ctx, uri, attrs)
}
