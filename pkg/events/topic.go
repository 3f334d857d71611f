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
	"fmt"
)

var (
	TopicAllFileActions = "file.*.*"
	TopicFileActionFmt  = "file.%s.%d"

	ActionTypeChanged   = "changed"
	ActionTypeGone      = "gone"
	ActionTypeDeepCount = "deep_count"
)

func FileActionTopic(actionType string, fileID int64) string {
	return fmt.Sprintf(TopicFileActionFmt, actionType, fileID)
}

// FileActionsTopic matches one action of every file.
func FileActionsTopic(actionType string) string {
	return fmt.Sprintf("file.%s.*", actionType)
}
