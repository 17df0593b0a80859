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

package reviewkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomoncle/reviewkit/database"
	"github.com/tomoncle/reviewkit/review"
	"github.com/tomoncle/reviewkit/staff"
	"github.com/uptrace/bun"
)

// Session groups the stores sharing one database handle.
type Session struct {
	db      bun.IDB
	factory *database.BaseDatabaseFactory

	Departments *staff.DepartmentStore
	Employees   *staff.EmployeeStore
	Reviews     *review.Store
}

// NewSession returns a session over a handle the caller owns and closes.
func NewSession(db bun.IDB) *Session {
	employees := staff.NewEmployeeStore(db)
	return &Session{
		db:          db,
		Departments: staff.NewDepartmentStore(db),
		Employees:   employees,
		Reviews:     review.NewStore(db, employees),
	}
}

// Open connects with cfg and returns a session owning the connection. When
// cfg enables migrate on startup the registered tables are created.
func Open(ctx context.Context, cfg *database.Config) (*Session, error) {
	factory := database.NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx, cfg.DataMigrateConfig.EnableMigrateOnStartup); err != nil {
		return nil, errors.Join(err, factory.Close())
	}
	db := manager.GetDB()
	db.RegisterModel(database.RegisteredModelInstances()...)

	s := NewSession(db)
	s.factory = factory
	return s, nil
}

// OpenFile loads a YAML configuration file and opens a session with it.
func OpenFile(ctx context.Context, path string) (*Session, error) {
	cfg, err := database.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg)
}

// DB returns the handle the stores run on.
func (s *Session) DB() bun.IDB { return s.db }

// CreateTables creates the departments, employees and reviews tables that do
// not exist yet.
func (s *Session) CreateTables(ctx context.Context) error {
	if err := s.Departments.CreateTable(ctx); err != nil {
		return err
	}
	if err := s.Employees.CreateTable(ctx); err != nil {
		return err
	}
	return s.Reviews.CreateTable(ctx)
}

// DropTables drops the tables in reverse dependency order.
func (s *Session) DropTables(ctx context.Context) error {
	if err := s.Reviews.DropTable(ctx); err != nil {
		return err
	}
	if err := s.Employees.DropTable(ctx); err != nil {
		return err
	}
	return s.Departments.DropTable(ctx)
}

// Health reports the state of the owned connection.
func (s *Session) Health(ctx context.Context) *database.HealthStatus {
	if s.factory == nil {
		start := time.Now()
		status := &database.HealthStatus{LastCheckTime: start}
		err := s.db.NewSelect().ColumnExpr("1").Scan(ctx, new(int))
		status.ResponseTime = time.Since(start)
		if err != nil {
			status.LastError = err.Error()
			return status
		}
		status.Connected = true
		status.Healthy = true
		return status
	}
	return s.factory.GetHealthStatus(ctx)
}

// Close releases the connection when the session opened it.
func (s *Session) Close() error {
	if s.factory == nil {
		return nil
	}
	return s.factory.Close()
}
