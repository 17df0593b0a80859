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

// DefaultPageSize is used when a PageRequest has no positive Size.
const DefaultPageSize = 10

// QueryFilter is a WHERE clause with its placeholder arguments.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{Schema: schema, Args: args}
}

// PageRequest selects one page of rows. Page counts from 1. Orders holds
// ORDER BY terms such as "year DESC"; an empty list means primary key order.
type PageRequest struct {
	Page   int
	Size   int
	Filter *QueryFilter
	Orders []string
}

func NewPageRequest(page, size int, orders ...string) *PageRequest {
	return &PageRequest{Page: page, Size: size, Orders: orders}
}

// Where restricts the request to rows matching schema and returns p.
func (p *PageRequest) Where(schema string, args ...interface{}) *PageRequest {
	p.Filter = NewQueryFilter(schema, args...)
	return p
}

// Number returns the requested page, at least 1.
func (p *PageRequest) Number() int {
	return max(p.Page, 1)
}

func (p *PageRequest) Limit() int {
	if p.Size < 1 {
		return DefaultPageSize
	}
	return p.Size
}

func (p *PageRequest) Offset() int {
	return (p.Number() - 1) * p.Limit()
}

// Pagination is one page of results plus the total row count.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int
	Items    []*T
}

// NewPagination returns an empty page shaped after req.
func NewPagination[T any](req *PageRequest) *Pagination[T] {
	return &Pagination[T]{Page: req.Number(), PageSize: req.Limit(), Items: make([]*T, 0)}
}

// Pages returns the number of pages needed to hold Total items.
func (p *Pagination[T]) Pages() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p *Pagination[T]) HasNext() bool {
	return p.Page < p.Pages()
}
