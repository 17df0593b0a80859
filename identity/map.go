/*
 * Copyright 2025 tomoncle.
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

package identity

import (
	"cmp"
	"slices"
	"sync"
)

// Map maps a primary key to the canonical live instance loaded for it.
// Entries are added on insert or first load and removed on delete.
type Map[K cmp.Ordered, V any] struct {
	items map[K]V
	mutex sync.RWMutex
}

// NewMap returns an empty identity map.
func NewMap[K cmp.Ordered, V any]() *Map[K, V] {
	return &Map[K, V]{items: make(map[K]V)}
}

// Get returns the instance registered for key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

// Put registers value as the canonical instance for key, replacing any
// previous entry.
func (m *Map[K, V]) Put(key K, value V) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.items[key] = value
}

// LoadOrStore returns the instance already registered for key, or registers
// value and returns it. loaded reports whether an instance existed.
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if v, ok := m.items[key]; ok {
		return v, true
	}
	m.items[key] = value
	return value, false
}

// DeleteIf evicts key only when match accepts the registered instance.
func (m *Map[K, V]) DeleteIf(key K, match func(V) bool) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	v, ok := m.items[key]
	if !ok || !match(v) {
		return false
	}
	delete(m.items, key)
	return true
}

func (m *Map[K, V]) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.items)
}

// Keys returns the registered keys in ascending order.
func (m *Map[K, V]) Keys() []K {
	m.mutex.RLock()
	keys := make([]K, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	m.mutex.RUnlock()
	slices.Sort(keys)
	return keys
}

// Clear evicts every entry.
func (m *Map[K, V]) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.items = make(map[K]V)
}
