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

package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/hyponet/eventbus"

	"github.com/basenana/nanafiles/pkg/types"
)

const eventSource = "nanafiles"

func BuildFileEvent(actionType string, data types.EventData) *types.FileEvent {
	return &types.FileEvent{
		Id:              uuid.New().String(),
		Type:            actionType,
		Source:          eventSource,
		SpecVersion:     "1.0",
		Time:            time.Now(),
		RefType:         "file",
		RefID:           data.ID,
		DataContentType: "application/event-data",
		Data:            data,
	}
}

// Publish broadcasts without waiting for listeners.
func Publish(actionType string, data types.EventData) *types.FileEvent {
	evt := BuildFileEvent(actionType, data)
	eventbus.Publish(FileActionTopic(actionType, data.ID), evt)
	return evt
}

func Subscribe(topic string, fn func(evt *types.FileEvent)) string {
	return eventbus.Subscribe(topic, fn)
}

func Unsubscribe(lid string) {
	eventbus.Unsubscribe(lid)
}
