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

package apitool

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/basenana/nanafiles/pkg/types"
)

type ApiErrorCode string

const (
	ApiNotFoundError ApiErrorCode = "NotFound"
	ApiArgsError     ApiErrorCode = "ArgsError"
	ApiNoAccess      ApiErrorCode = "NoAccess"
	ApiNoPermits     ApiErrorCode = "NoPermits"
	ApiEntryExisted  ApiErrorCode = "EntryExisted"
	ApiFileGone      ApiErrorCode = "FileGone"
	ApiUnsupported   ApiErrorCode = "Unsupported"
	ApiCancelled     ApiErrorCode = "Cancelled"
	ApiInternalError ApiErrorCode = "InternalError"
)

type Error struct {
	Code    ApiErrorCode `json:"code"`
	Message string       `json:"message"`
}

type Response struct {
	Status int         `json:"status"`
	Error  *Error      `json:"error,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

func Error2ApiErrorCode(err error) (int, ApiErrorCode) {
	switch {
	case err == nil:
		return http.StatusOK, "NoError"
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, ApiNotFoundError
	case errors.Is(err, types.ErrIsGone):
		return http.StatusNotFound, ApiFileGone
	case errors.Is(err, types.ErrIsExist):
		return http.StatusBadRequest, ApiEntryExisted
	case errors.Is(err, types.ErrInvalidURI), errors.Is(err, types.ErrInvalidName), errors.Is(err, types.ErrNameTooLong):
		return http.StatusBadRequest, ApiArgsError
	case errors.Is(err, types.ErrNoAccess):
		return http.StatusForbidden, ApiNoAccess
	case errors.Is(err, types.ErrNoPerm):
		return http.StatusForbidden, ApiNoPermits
	case errors.Is(err, types.ErrUnsupported):
		return http.StatusNotImplemented, ApiUnsupported
	case errors.Is(err, types.ErrCancelled):
		return http.StatusRequestTimeout, ApiCancelled
	}
	return http.StatusInternalServerError, ApiInternalError
}

func ErrorResponse(gCtx *gin.Context, err error) {
	status, code := Error2ApiErrorCode(err)
	ApiErrorResponse(gCtx, status, code, err)
}

func HttpStatusResponse(gCtx *gin.Context, status int, err error) {
	_, code := Error2ApiErrorCode(err)
	ApiErrorResponse(gCtx, status, code, err)
}

func ApiErrorResponse(gCtx *gin.Context, status int, code ApiErrorCode, err error) {
	resp := Response{
		Status: status,
		Error: &Error{
			Code:    code,
			Message: err.Error(),
		},
	}
	gCtx.JSON(status, resp)
}

func JsonResponse(gCtx *gin.Context, status int, data interface{}) {
	resp := Response{
		Status: status,
		Data:   data,
	}
	gCtx.JSON(status, resp)
}
