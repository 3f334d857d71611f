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

package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils/logger"
)

func SqlError2Error(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return types.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return types.ErrIsExist
	case errors.Is(err, context.Canceled):
		return types.ErrCancelled
	default:
		return err
	}
}

// WithURI selects the uri itself and everything below it.
func WithURI(tx *gorm.DB, uri string) *gorm.DB {
	lower, upper := ChildrenRange(uri)
	return tx.Where("uri = ? OR (uri >= ? AND uri < ?)", uri, lower, upper)
}

// ChildrenRange returns the half-open key range covering uri + "/...".
// '0' is the byte following '/'.
func ChildrenRange(uri string) (string, string) {
	base := strings.TrimSuffix(uri, "/")
	return base + "/", base + "0"
}

// Rebase rewrites uri from the from prefix to the to prefix.
func Rebase(uri, from, to string) string {
	if uri == from {
		return to
	}
	return strings.TrimSuffix(to, "/") + strings.TrimPrefix(uri, strings.TrimSuffix(from, "/"))
}

type Logger struct {
	*zap.SugaredLogger
}

func (l *Logger) LogMode(level glogger.LogLevel) glogger.Interface {
	return l
}

func (l *Logger) Info(ctx context.Context, s string, i ...interface{}) {
	l.Infof(s, i...)
}

func (l *Logger) Warn(ctx context.Context, s string, i ...interface{}) {
	l.Warnf(s, i...)
}

func (l *Logger) Error(ctx context.Context, s string, i ...interface{}) {
	l.Errorf(s, i...)
}

func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sqlContent, rows := fc()
		l.Warnw("trace error", "sql", sqlContent, "rows", rows, "err", err)
	case time.Since(begin) > time.Second:
		sqlContent, rows := fc()
		l.Infow("slow sql", "sql", sqlContent, "rows", rows, "err", err)
	}
}

func NewDbLogger() *Logger {
	return &Logger{SugaredLogger: logger.NewLogger("database")}
}
