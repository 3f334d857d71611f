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
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(engine *gin.Engine, s *ServicesV1) {
	v1 := engine.Group("/api/v1")
	{
		// Files
		files := v1.Group("/files")
		{
			files.GET("", s.GetFile)
			files.POST("/invalidate", s.InvalidateFile)
			files.POST("/star", s.StarFile)
			files.DELETE("/star", s.UnstarFile)
		}

		v1.GET("/starred", s.ListStarred)

		// Change queue
		v1.GET("/queue", s.QueueStatus)

		// Recent file events
		v1.GET("/events", s.ListEvents)
	}
}
