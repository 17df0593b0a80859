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
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/reviewkit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type note struct {
	bun.BaseModel `bun:"table:notes,alias:n"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Year  int    `bun:"year"`
	Title string `bun:"title"`
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newNoteRepo(t *testing.T) Repository[note] {
	t.Helper()
	repo := NewRepository[note](newTestDB(t))
	require.NoError(t, repo.CreateTable(context.Background()))
	return repo
}

func TestInsertFillsPrimaryKey(t *testing.T) {
	ctx := context.Background()
	repo := newNoteRepo(t)

	a := &note{Year: 2021, Title: "a"}
	b := &note{Year: 2022, Title: "b"}
	require.NoError(t, repo.Insert(ctx, a))
	require.NoError(t, repo.Insert(ctx, b))
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)

	got, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Title)
}

func TestFindByIDMissingReturnsNil(t *testing.T) {
	got, err := newNoteRepo(t).FindByID(context.Background(), 42)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newNoteRepo(t)

	n := &note{Year: 2021, Title: "draft"}
	require.NoError(t, repo.Insert(ctx, n))

	n.Title = "final"
	affected, err := repo.Update(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)

	affected, err = repo.DeleteByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.DeleteByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	ghost := &note{ID: 99, Year: 2000, Title: "ghost"}
	affected, err = repo.Update(ctx, ghost)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestListCountAndPage(t *testing.T) {
	ctx := context.Background()
	repo := newNoteRepo(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Insert(ctx, &note{Year: 2020 + i, Title: "n"}))
	}

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(5), all[4].ID)

	filter := types.NewQueryFilter("year >= ?", 2022)
	recent, err := repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	n, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := repo.Page(ctx, types.NewPageRequest(2, 2, "year DESC"))
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, 2022, page.Items[0].Year)
	assert.Equal(t, 2021, page.Items[1].Year)

	empty, err := repo.Page(ctx, types.NewPageRequest(1, 10).Where("year > ?", 3000))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Empty(t, empty.Items)
}

func TestWithTxRollback(t *testing.T) {
	ctx := context.Background()
	repo := newNoteRepo(t)

	tx, err := repo.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.WithTx(tx).Insert(ctx, &note{Year: 2023, Title: "tx"}))
	require.NoError(t, tx.Rollback())

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCreateAndDropTableAreIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newNoteRepo(t)
	require.NoError(t, repo.CreateTable(ctx))
	require.NoError(t, repo.DropTable(ctx))
	require.NoError(t, repo.DropTable(ctx))

	_, err := repo.Count(ctx, nil)
	assert.Error(t, err)
}
