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

package repository

import (
	"context"

	"github.com/tomoncle/reviewkit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	// FindByID returns the entity with the given primary key, or nil when no
	// row matches.
	FindByID(ctx context.Context, id any) (*T, error)

	GetAll(ctx context.Context) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Count(ctx context.Context, filter *types.QueryFilter) (int, error)

	// Insert writes entity and fills in its generated primary key.
	Insert(ctx context.Context, entity *T) error

	// Update rewrites every column of the row matching the entity primary key
	// and reports how many rows changed.
	Update(ctx context.Context, entity *T) (int64, error)

	// DeleteByID removes the row with the given primary key and reports how
	// many rows were removed.
	DeleteByID(ctx context.Context, id any) (int64, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// SchemaRepository creates and drops the table behind T.
type SchemaRepository interface {
	CreateTable(ctx context.Context) error
	DropTable(ctx context.Context) error
}

// Repository combines CRUD, pagination and table management, and exposes the
// Bun select builder for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	SchemaRepository
	// WithTx returns a repository bound to tx; the caller commits.
	WithTx(tx bun.Tx) Repository[T]
	DB() bun.IDB
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
}
