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

package database

import (
	"context"
	"fmt"
	"reflect"

	"github.com/uptrace/bun"
)

// CreateTable creates the table of model if it does not exist yet, declaring
// the given foreign keys inline. Calling it on an existing table is a no-op.
func CreateTable(ctx context.Context, db bun.IDB, model interface{}, foreignKeys ...ForeignKeyConstraint) error {
	if err := ValidateConstraints(foreignKeys); err != nil {
		return fmt.Errorf("foreign key constraint validation failed for %s: %w", getModelName(model), err)
	}
	q := db.NewCreateTable().Model(model).IfNotExists()
	for _, fk := range foreignKeys {
		q = fk.Apply(q)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create table %s: %w", getModelName(model), err)
	}
	return nil
}

// DropTable drops the table of model if it exists.
func DropTable(ctx context.Context, db bun.IDB, model interface{}) error {
	if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", getModelName(model), err)
	}
	return nil
}

// TableManager creates and drops the tables of a model registry.
type TableManager struct {
	db          bun.IDB
	registry    ModelRegistry
	logger      Logger
	foreignKeys bool
}

// NewTableManager returns a manager over the default registry with foreign
// keys enabled.
func NewTableManager(db bun.IDB, logger Logger) *TableManager {
	return &TableManager{
		db:          db,
		registry:    defaultRegistry,
		logger:      logger,
		foreignKeys: true,
	}
}

// WithRegistry replaces the registry the manager reads models from.
func (tm *TableManager) WithRegistry(registry ModelRegistry) *TableManager {
	tm.registry = registry
	return tm
}

// WithForeignKeys toggles inline foreign key declarations.
func (tm *TableManager) WithForeignKeys(enabled bool) *TableManager {
	tm.foreignKeys = enabled
	return tm
}

// CreateAll creates every registered table in ascending priority order.
func (tm *TableManager) CreateAll(ctx context.Context) error {
	for _, model := range tm.registry.Models() {
		var fks []ForeignKeyConstraint
		if tm.foreignKeys {
			fks = model.ForeignKeys()
		}
		if err := CreateTable(ctx, tm.db, model.Instance(), fks...); err != nil {
			return err
		}
		if tm.logger != nil {
			tm.logger.Debug("Table ensured", "model", getModelName(model.Instance()), "foreign_keys", len(fks))
		}
	}
	if tm.logger != nil {
		tm.logger.Info("Database tables ensured!")
	}
	return nil
}

// DropAll drops every registered table in descending priority order so that
// referencing tables go first.
func (tm *TableManager) DropAll(ctx context.Context) error {
	models := tm.registry.Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := DropTable(ctx, tm.db, models[i].Instance()); err != nil {
			return err
		}
	}
	return nil
}

func getModelName(model interface{}) string {
	t := reflect.TypeOf(model)
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
