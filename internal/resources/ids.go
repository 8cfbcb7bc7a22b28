/*
 * Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package resources

import (
	"fmt"
	"sync"
)

// ResourceIDMap interns custom resource names. The same name always maps to
// the same id for the lifetime of the map; ids are assigned in first-seen
// order starting at 1.
type ResourceIDMap struct {
	mu    sync.RWMutex
	ids   map[string]CustomResourceID
	names map[CustomResourceID]string
}

// NewResourceIDMap constructs an empty map.
func NewResourceIDMap() *ResourceIDMap {
	return &ResourceIDMap{
		ids:   make(map[string]CustomResourceID),
		names: make(map[CustomResourceID]string),
	}
}

// Get returns the id for name, allocating one if name is new.
func (m *ResourceIDMap) Get(name string) CustomResourceID {
	m.mu.RLock()
	id, ok := m.ids[name]
	m.mu.RUnlock()
	if ok {
		return id
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[name]; ok {
		return id
	}
	id = CustomResourceID(len(m.ids) + 1)
	m.ids[name] = id
	m.names[id] = name
	return id
}

// Lookup returns the id for name without allocating.
func (m *ResourceIDMap) Lookup(name string) (CustomResourceID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ids[name]
	return id, ok
}

// Name returns the name registered for id, or a placeholder for unknown ids.
func (m *ResourceIDMap) Name(id CustomResourceID) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if name, ok := m.names[id]; ok {
		return name
	}
	return fmt.Sprintf("custom(%d)", id)
}
