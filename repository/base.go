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
	"database/sql"
	"errors"

	"github.com/tomoncle/reviewkit/database"
	"github.com/tomoncle/reviewkit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db          bun.IDB
	foreignKeys []database.ForeignKeyConstraint
}

// NewRepository returns a generic repository backed by the provided Bun
// handle. The foreign keys are declared when the table is created.
func NewRepository[T any](db bun.IDB, foreignKeys ...database.ForeignKeyConstraint) Repository[T] {
	return &baseRepositoryImpl[T]{db: db, foreignKeys: foreignKeys}
}

func (r *baseRepositoryImpl[T]) WithTx(tx bun.Tx) Repository[T] {
	return &baseRepositoryImpl[T]{db: tx, foreignKeys: r.foreignKeys}
}

func (r *baseRepositoryImpl[T]) DB() bun.IDB { return r.db }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) CreateTable(ctx context.Context) error {
	return database.CreateTable(ctx, r.db, (*T)(nil), r.foreignKeys...)
}

func (r *baseRepositoryImpl[T]) DropTable(ctx context.Context) error {
	return database.DropTable(ctx, r.db, (*T)(nil))
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (*T, error) {
	entity := new(T)
	err := r.db.NewSelect().Model(entity).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	return r.List(ctx, nil)
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	entities := make([]*T, 0)
	query := r.db.NewSelect().Model(&entities).Order("id ASC")
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	query := r.db.NewSelect().Model((*T)(nil))
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	return query.Count(ctx)
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[T], error) {
	var entities []*T
	query := r.db.NewSelect().Model(&entities)
	if req.Filter != nil {
		query = query.Where(req.Filter.Schema, req.Filter.Args...)
	}
	pagination := types.NewPagination[T](req)
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	orders := req.Orders
	if len(orders) == 0 {
		orders = []string{"id ASC"}
	}
	if err := query.Offset(req.Offset()).Limit(req.Limit()).Order(orders...).Scan(ctx); err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Insert(ctx context.Context, entity *T) error {
	_, err := r.db.NewInsert().Model(entity).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) (int64, error) {
	res, err := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) (int64, error) {
	res, err := r.db.NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
