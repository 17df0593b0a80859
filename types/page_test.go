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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestDefaults(t *testing.T) {
	p := NewPageRequest(0, 0)
	assert.Equal(t, 1, p.Number())
	assert.Equal(t, DefaultPageSize, p.Limit())
	assert.Equal(t, 0, p.Offset())
	assert.Nil(t, p.Filter)
	assert.Empty(t, p.Orders)

	p = NewPageRequest(3, 5, "year DESC").Where("year >= ?", 2020)
	assert.Equal(t, 10, p.Offset())
	assert.Equal(t, "year >= ?", p.Filter.Schema)
	assert.Equal(t, []interface{}{2020}, p.Filter.Args)
	assert.Equal(t, []string{"year DESC"}, p.Orders)
}

func TestPaginationPages(t *testing.T) {
	p := NewPagination[int](NewPageRequest(1, 10))
	assert.Equal(t, 0, p.Pages())
	assert.False(t, p.HasNext())
	p.Total = 21
	assert.Equal(t, 3, p.Pages())
	assert.True(t, p.HasNext())
	p.Total = 20
	assert.Equal(t, 2, p.Pages())

	last := NewPagination[int](NewPageRequest(2, 10))
	last.Total = 20
	assert.False(t, last.HasNext())
}
