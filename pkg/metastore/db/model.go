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
	"encoding/json"
	"time"

	"github.com/basenana/nanafiles/pkg/types"
)

type FileMetadata struct {
	ID        int64  `gorm:"column:id;autoIncrement;primaryKey"`
	URI       string `gorm:"column:uri;uniqueIndex:file_meta_uri_key"`
	Key       string `gorm:"column:meta_key;uniqueIndex:file_meta_uri_key"`
	Value     string `gorm:"column:value"`
	IsList    bool   `gorm:"column:is_list"`
	ChangedAt int64  `gorm:"column:changed_at"`
}

func (m FileMetadata) TableName() string {
	return "file_metadata"
}

func (m *FileMetadata) Update(value types.MetadataValue) {
	m.IsList = value.IsList
	if value.IsList {
		raw, _ := json.Marshal(value.List)
		m.Value = string(raw)
	} else {
		m.Value = value.Value
	}
	m.ChangedAt = time.Now().UnixNano()
}

func (m *FileMetadata) To() types.MetadataValue {
	if !m.IsList {
		return types.MetadataValue{Value: m.Value}
	}
	result := types.MetadataValue{IsList: true}
	_ = json.Unmarshal([]byte(m.Value), &result.List)
	return result
}

type StarredFile struct {
	URI       string `gorm:"column:uri;primaryKey"`
	StarredAt int64  `gorm:"column:starred_at"`
}

func (s StarredFile) TableName() string {
	return "starred_file"
}

func (s *StarredFile) To() types.StarredFile {
	return types.StarredFile{URI: s.URI, StarredAt: time.Unix(0, s.StarredAt)}
}
