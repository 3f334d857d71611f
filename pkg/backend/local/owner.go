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

package local

import (
	"os/user"
	"strconv"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"

	"github.com/basenana/nanafiles/pkg/types"
)

type ownerEntry struct {
	name     string
	realName string
}

// ownerCache resolves uid and gid to names. Concurrent misses for the same
// id share one lookup.
type ownerCache struct {
	users  gcache.Cache
	groups gcache.Cache
	flight singleflight.Group
}

func newOwnerCache(size int, expire time.Duration) *ownerCache {
	users, groups := gcache.New(size).LRU(), gcache.New(size).LRU()
	if expire > 0 {
		users, groups = users.Expiration(expire), groups.Expiration(expire)
	}
	return &ownerCache{
		users:  users.Build(),
		groups: groups.Build(),
	}
}

func (c *ownerCache) user(uid uint32) ownerEntry {
	if cached, err := c.users.Get(uid); err == nil {
		return cached.(ownerEntry)
	}
	key := "u" + strconv.FormatUint(uint64(uid), 10)
	val, _, _ := c.flight.Do(key, func() (interface{}, error) {
		entry := ownerEntry{}
		if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil {
			entry.name = u.Username
			entry.realName = u.Name
		}
		_ = c.users.Set(uid, entry)
		return entry, nil
	})
	return val.(ownerEntry)
}

func (c *ownerCache) userName(uid uint32) string {
	return c.user(uid).name
}

func (c *ownerCache) userRealName(uid uint32) string {
	return c.user(uid).realName
}

func (c *ownerCache) groupName(gid uint32) string {
	if cached, err := c.groups.Get(gid); err == nil {
		return cached.(string)
	}
	key := "g" + strconv.FormatUint(uint64(gid), 10)
	val, _, _ := c.flight.Do(key, func() (interface{}, error) {
		name := ""
		if g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10)); err == nil {
			name = g.Name
		}
		_ = c.groups.Set(gid, name)
		return name, nil
	})
	return val.(string)
}

// userID accepts a user name or a numeric id.
func (c *ownerCache) userID(owner string) (int, error) {
	if id, err := strconv.Atoi(owner); err == nil {
		return id, nil
	}
	u, err := user.Lookup(owner)
	if err != nil {
		return -1, types.ErrNotFound
	}
	return strconv.Atoi(u.Uid)
}

func (c *ownerCache) groupID(group string) (int, error) {
	if id, err := strconv.Atoi(group); err == nil {
		return id, nil
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return -1, types.ErrNotFound
	}
	return strconv.Atoi(g.Gid)
}
