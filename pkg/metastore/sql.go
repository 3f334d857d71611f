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
	"runtime/trace"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/basenana/nanafiles/config"
	"github.com/basenana/nanafiles/pkg/metastore/db"
	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils/logger"
)

const (
	SqliteMeta   = config.SqliteMeta
	PostgresMeta = config.PostgresMeta
	MemoryMeta   = config.MemoryMeta
)

type sqliteMetaStore struct {
	dbStore *sqlMetaStore
	mux     sync.RWMutex
}

var _ Meta = &sqliteMetaStore{}

func (s *sqliteMetaStore) GetMetadata(ctx context.Context, uri string) (map[string]types.MetadataValue, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.dbStore.GetMetadata(ctx, uri)
}

func (s *sqliteMetaStore) SetMetadata(ctx context.Context, uri, key, value string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dbStore.SetMetadata(ctx, uri, key, value)
}

func (s *sqliteMetaStore) SetMetadataList(ctx context.Context, uri, key string, values []string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dbStore.SetMetadataList(ctx, uri, key, values)
}

func (s *sqliteMetaStore) RemoveMetadata(ctx context.Context, uri, key string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dbStore.RemoveMetadata(ctx, uri, key)
}

func (s *sqliteMetaStore) CopyMetadata(ctx context.Context, from, to string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dbStore.CopyMetadata(ctx, from, to)
}

func (s *sqliteMetaStore) MoveMetadata(ctx context.Context, from, to string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dbStore.MoveMetadata(ctx, from, to)
}

func (s *sqliteMetaStore) RemoveAllMetadata(ctx context.Context, uri string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dbStore.RemoveAllMetadata(ctx, uri)
}

func (s *sqliteMetaStore) ListStarred(ctx context.Context) ([]types.StarredFile, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.dbStore.ListStarred(ctx)
}

func (s *sqliteMetaStore) Star(ctx context.Context, uri string) (*types.StarredFile, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dbStore.Star(ctx, uri)
}

func (s *sqliteMetaStore) Unstar(ctx context.Context, uri string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dbStore.Unstar(ctx, uri)
}

func (s *sqliteMetaStore) IsStarred(ctx context.Context, uri string) (bool, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.dbStore.IsStarred(ctx, uri)
}

func (s *sqliteMetaStore) MoveStarred(ctx context.Context, from, to string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dbStore.MoveStarred(ctx, from, to)
}

func (s *sqliteMetaStore) Close() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dbStore.Close()
}

func newSqliteMetaStore(meta config.Meta) (*sqliteMetaStore, error) {
	dbEntity, err := gorm.Open(sqlite.Open(meta.Path), &gorm.Config{Logger: db.NewDbLogger()})
	if err != nil {
		return nil, err
	}

	dbConn, err := dbEntity.DB()
	if err != nil {
		return nil, err
	}
	// every connection to ":memory:" opens its own database
	if meta.Path == ":memory:" {
		dbConn.SetMaxOpenConns(1)
	}

	if err = dbConn.Ping(); err != nil {
		return nil, err
	}

	dbStore, err := buildSqlMetaStore(dbEntity)
	if err != nil {
		return nil, err
	}

	return &sqliteMetaStore{dbStore: dbStore}, nil
}

type sqlMetaStore struct {
	*gorm.DB

	logger *zap.SugaredLogger
}

var _ Meta = &sqlMetaStore{}

func buildSqlMetaStore(dbEntity *gorm.DB) (*sqlMetaStore, error) {
	s := &sqlMetaStore{DB: dbEntity, logger: logger.NewLogger("dbStore")}

	if err := db.Migrate(s.DB); err != nil {
		return nil, db.SqlError2Error(err)
	}
	return s, nil
}

func (s *sqlMetaStore) GetMetadata(ctx context.Context, uri string) (map[string]types.MetadataValue, error) {
	defer trace.StartRegion(ctx, "metastore.sql.GetMetadata").End()
	defer logOperationLatency("get_metadata", time.Now())

	var mods []db.FileMetadata
	res := s.WithContext(ctx).Where("uri = ?", uri).Find(&mods)
	if res.Error != nil {
		logOperationError("get_metadata", res.Error)
		return nil, db.SqlError2Error(res.Error)
	}

	result := make(map[string]types.MetadataValue, len(mods))
	for i := range mods {
		result[mods[i].Key] = mods[i].To()
	}
	return result, nil
}

func (s *sqlMetaStore) SetMetadata(ctx context.Context, uri, key, value string) error {
	defer trace.StartRegion(ctx, "metastore.sql.SetMetadata").End()
	defer logOperationLatency("set_metadata", time.Now())
	err := s.saveMetadata(ctx, uri, key, types.MetadataValue{Value: value})
	logOperationError("set_metadata", err)
	return err
}

func (s *sqlMetaStore) SetMetadataList(ctx context.Context, uri, key string, values []string) error {
	defer trace.StartRegion(ctx, "metastore.sql.SetMetadataList").End()
	defer logOperationLatency("set_metadata_list", time.Now())
	err := s.saveMetadata(ctx, uri, key, types.MetadataValue{List: values, IsList: true})
	logOperationError("set_metadata_list", err)
	return err
}

func (s *sqlMetaStore) saveMetadata(ctx context.Context, uri, key string, value types.MetadataValue) error {
	mod := &db.FileMetadata{URI: uri, Key: key}
	mod.Update(value)
	res := s.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uri"}, {Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "is_list", "changed_at"}),
	}).Create(mod)
	if res.Error != nil {
		s.logger.Errorw("save metadata failed", "uri", uri, "key", key, "err", res.Error)
		return db.SqlError2Error(res.Error)
	}
	return nil
}

func (s *sqlMetaStore) RemoveMetadata(ctx context.Context, uri, key string) error {
	defer trace.StartRegion(ctx, "metastore.sql.RemoveMetadata").End()
	defer logOperationLatency("remove_metadata", time.Now())
	res := s.WithContext(ctx).Where("uri = ? AND meta_key = ?", uri, key).Delete(&db.FileMetadata{})
	if res.Error != nil {
		logOperationError("remove_metadata", res.Error)
		return db.SqlError2Error(res.Error)
	}
	return nil
}

// CopyMetadata replaces the metadata of to (and its children) with the
// metadata of from.
func (s *sqlMetaStore) CopyMetadata(ctx context.Context, from, to string) error {
	defer trace.StartRegion(ctx, "metastore.sql.CopyMetadata").End()
	defer logOperationLatency("copy_metadata", time.Now())
	err := s.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return copyMetadata(tx, from, to)
	})
	if err != nil {
		logOperationError("copy_metadata", err)
		s.logger.Errorw("copy metadata failed", "from", from, "to", to, "err", err)
		return db.SqlError2Error(err)
	}
	return nil
}

func (s *sqlMetaStore) MoveMetadata(ctx context.Context, from, to string) error {
	defer trace.StartRegion(ctx, "metastore.sql.MoveMetadata").End()
	defer logOperationLatency("move_metadata", time.Now())
	if from == to {
		return nil
	}
	err := s.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := copyMetadata(tx, from, to); err != nil {
			return err
		}
		return db.WithURI(tx, from).Delete(&db.FileMetadata{}).Error
	})
	if err != nil {
		logOperationError("move_metadata", err)
		s.logger.Errorw("move metadata failed", "from", from, "to", to, "err", err)
		return db.SqlError2Error(err)
	}
	return nil
}

func copyMetadata(tx *gorm.DB, from, to string) error {
	var mods []db.FileMetadata
	if res := db.WithURI(tx, from).Find(&mods); res.Error != nil {
		return res.Error
	}
	if res := db.WithURI(tx, to).Delete(&db.FileMetadata{}); res.Error != nil {
		return res.Error
	}
	if len(mods) == 0 {
		return nil
	}

	nowAt := time.Now().UnixNano()
	copied := make([]db.FileMetadata, 0, len(mods))
	for _, m := range mods {
		copied = append(copied, db.FileMetadata{
			URI:       db.Rebase(m.URI, from, to),
			Key:       m.Key,
			Value:     m.Value,
			IsList:    m.IsList,
			ChangedAt: nowAt,
		})
	}
	return tx.Create(&copied).Error
}

func (s *sqlMetaStore) RemoveAllMetadata(ctx context.Context, uri string) error {
	defer trace.StartRegion(ctx, "metastore.sql.RemoveAllMetadata").End()
	defer logOperationLatency("remove_all_metadata", time.Now())
	res := db.WithURI(s.WithContext(ctx), uri).Delete(&db.FileMetadata{})
	if res.Error != nil {
		logOperationError("remove_all_metadata", res.Error)
		return db.SqlError2Error(res.Error)
	}
	return nil
}

func (s *sqlMetaStore) ListStarred(ctx context.Context) ([]types.StarredFile, error) {
	defer trace.StartRegion(ctx, "metastore.sql.ListStarred").End()
	defer logOperationLatency("list_starred", time.Now())

	var mods []db.StarredFile
	res := s.WithContext(ctx).Order("starred_at").Find(&mods)
	if res.Error != nil {
		logOperationError("list_starred", res.Error)
		return nil, db.SqlError2Error(res.Error)
	}
	result := make([]types.StarredFile, 0, len(mods))
	for i := range mods {
		result = append(result, mods[i].To())
	}
	return result, nil
}

func (s *sqlMetaStore) Star(ctx context.Context, uri string) (*types.StarredFile, error) {
	defer trace.StartRegion(ctx, "metastore.sql.Star").End()
	defer logOperationLatency("star", time.Now())

	mod := &db.StarredFile{}
	err := s.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("uri = ?", uri).First(mod)
		if res.Error == nil {
			return nil
		}
		if res.Error != gorm.ErrRecordNotFound {
			return res.Error
		}
		mod = &db.StarredFile{URI: uri, StarredAt: time.Now().UnixNano()}
		return tx.Create(mod).Error
	})
	if err != nil {
		logOperationError("star", err)
		return nil, db.SqlError2Error(err)
	}
	result := mod.To()
	return &result, nil
}

func (s *sqlMetaStore) Unstar(ctx context.Context, uri string) error {
	defer trace.StartRegion(ctx, "metastore.sql.Unstar").End()
	defer logOperationLatency("unstar", time.Now())
	res := s.WithContext(ctx).Where("uri = ?", uri).Delete(&db.StarredFile{})
	if res.Error != nil {
		logOperationError("unstar", res.Error)
		return db.SqlError2Error(res.Error)
	}
	return nil
}

func (s *sqlMetaStore) IsStarred(ctx context.Context, uri string) (bool, error) {
	defer trace.StartRegion(ctx, "metastore.sql.IsStarred").End()
	var count int64
	res := s.WithContext(ctx).Model(&db.StarredFile{}).Where("uri = ?", uri).Count(&count)
	if res.Error != nil {
		logOperationError("is_starred", res.Error)
		return false, db.SqlError2Error(res.Error)
	}
	return count > 0, nil
}

func (s *sqlMetaStore) MoveStarred(ctx context.Context, from, to string) error {
	defer trace.StartRegion(ctx, "metastore.sql.MoveStarred").End()
	defer logOperationLatency("move_starred", time.Now())
	if from == to {
		return nil
	}
	err := s.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var mods []db.StarredFile
		if res := db.WithURI(tx, from).Find(&mods); res.Error != nil {
			return res.Error
		}
		if len(mods) == 0 {
			return nil
		}
		if res := db.WithURI(tx, from).Delete(&db.StarredFile{}); res.Error != nil {
			return res.Error
		}
		for i := range mods {
			mods[i].URI = db.Rebase(mods[i].URI, from, to)
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mods).Error
	})
	if err != nil {
		logOperationError("move_starred", err)
		s.logger.Errorw("move starred failed", "from", from, "to", to, "err", err)
		return db.SqlError2Error(err)
	}
	return nil
}

func (s *sqlMetaStore) Close() error {
	dbConn, err := s.DB.DB()
	if err != nil {
		return err
	}
	return dbConn.Close()
}

func newPostgresMetaStore(meta config.Meta) (*sqlMetaStore, error) {
	dbEntity, err := gorm.Open(postgres.Open(meta.DSN), &gorm.Config{Logger: db.NewDbLogger()})
	if err != nil {
		return nil, err
	}

	dbConn, err := dbEntity.DB()
	if err != nil {
		return nil, err
	}

	dbConn.SetMaxIdleConns(5)
	dbConn.SetMaxOpenConns(50)
	dbConn.SetConnMaxLifetime(time.Hour)

	if err = dbConn.Ping(); err != nil {
		return nil, err
	}

	return buildSqlMetaStore(dbEntity)
}
