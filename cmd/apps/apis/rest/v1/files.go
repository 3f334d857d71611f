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
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/basenana/nanafiles/cmd/apps/apis/apitool"
	"github.com/basenana/nanafiles/pkg/files"
	"github.com/basenana/nanafiles/pkg/types"
)

func requireURI(gCtx *gin.Context) (string, bool) {
	uri := gCtx.Query("uri")
	if uri == "" {
		apitool.ApiErrorResponse(gCtx, http.StatusBadRequest, apitool.ApiArgsError, fmt.Errorf("uri is empty"))
		return "", false
	}
	cleaned, err := files.CleanURI(uri)
	if err != nil {
		apitool.ErrorResponse(gCtx, err)
		return "", false
	}
	return cleaned, true
}

func requestedAttrs(gCtx *gin.Context) types.Attributes {
	attrs := types.ParseAttributes(gCtx.DefaultQuery("attrs", "info"))
	if attrs == 0 {
		attrs = types.AttrInfo
	}
	return attrs
}

// GetFile loads the requested attributes (default "info") and returns the
// record snapshot.
func (s *ServicesV1) GetFile(gCtx *gin.Context) {
	uri, ok := requireURI(gCtx)
	if !ok {
		return
	}

	snapshot, err := s.load(gCtx.Request.Context(), uri, requestedAttrs(gCtx))
	if err != nil {
		s.logger.Warnw("load file failed", "uri", uri, "err", err)
		apitool.ErrorResponse(gCtx, err)
		return
	}
	if snapshot.Gone {
		apitool.ErrorResponse(gCtx, types.ErrNotFound)
		return
	}

	resp := FileResponse{Snapshot: snapshot}
	if s.tags != nil {
		resp.Starred = s.tags.IsStarred(uri)
	}
	apitool.JsonResponse(gCtx, http.StatusOK, resp)
}

func (s *ServicesV1) InvalidateFile(gCtx *gin.Context) {
	uri, ok := requireURI(gCtx)
	if !ok {
		return
	}
	attrs := types.ParseAttributes(gCtx.DefaultQuery("attrs", "all"))
	if err := s.registry.Invalidate(gCtx.Request.Context(), uri, attrs); err != nil {
		apitool.ErrorResponse(gCtx, err)
		return
	}
	apitool.JsonResponse(gCtx, http.StatusOK, map[string]string{"invalidated": attrs.String()})
}

func (s *ServicesV1) StarFile(gCtx *gin.Context) {
	uri, ok := requireURI(gCtx)
	if !ok {
		return
	}
	if s.tags == nil {
		apitool.ErrorResponse(gCtx, types.ErrNotEnable)
		return
	}
	if err := s.tags.Star(gCtx.Request.Context(), uri); err != nil {
		apitool.ErrorResponse(gCtx, err)
		return
	}
	apitool.JsonResponse(gCtx, http.StatusOK, FileResponse{Snapshot: files.Snapshot{URI: uri}, Starred: true})
}

func (s *ServicesV1) UnstarFile(gCtx *gin.Context) {
	uri, ok := requireURI(gCtx)
	if !ok {
		return
	}
	if s.tags == nil {
		apitool.ErrorResponse(gCtx, types.ErrNotEnable)
		return
	}
	if err := s.tags.Unstar(gCtx.Request.Context(), uri); err != nil {
		apitool.ErrorResponse(gCtx, err)
		return
	}
	apitool.JsonResponse(gCtx, http.StatusOK, FileResponse{Snapshot: files.Snapshot{URI: uri}})
}

func (s *ServicesV1) ListStarred(gCtx *gin.Context) {
	resp := StarredResponse{Files: []types.StarredFile{}}
	if s.tags != nil {
		resp.Files = s.tags.List()
	}
	apitool.JsonResponse(gCtx, http.StatusOK, resp)
}

func (s *ServicesV1) QueueStatus(gCtx *gin.Context) {
	resp := QueueResponse{}
	if s.queue != nil {
		resp.Pending = s.queue.Len()
	}
	apitool.JsonResponse(gCtx, http.StatusOK, resp)
}

// ListEvents returns the latest file events, at most "limit" of them.
func (s *ServicesV1) ListEvents(gCtx *gin.Context) {
	limit, err := strconv.Atoi(gCtx.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		apitool.ApiErrorResponse(gCtx, http.StatusBadRequest, apitool.ApiArgsError, fmt.Errorf("invalid limit"))
		return
	}
	resp := EventsResponse{Events: []types.FileEvent{}}
	if s.events != nil {
		resp.Events = s.events.List(limit)
	}
	apitool.JsonResponse(gCtx, http.StatusOK, resp)
}
