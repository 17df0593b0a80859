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

package staff

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/reviewkit/database"
	"github.com/tomoncle/reviewkit/repository"
	"github.com/tomoncle/reviewkit/types"
	"github.com/uptrace/bun"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EmployeeStore persists employees.
type EmployeeStore struct {
	repo   repository.Repository[Employee]
	logger database.Logger
}

// NewEmployeeStore returns a store over db.
func NewEmployeeStore(db bun.IDB) *EmployeeStore {
	return &EmployeeStore{
		repo:   repository.NewRepository[Employee](db, EmployeeDepartmentFK),
		logger: database.GetLogger(),
	}
}

func (s *EmployeeStore) CreateTable(ctx context.Context) error {
	return s.repo.CreateTable(ctx)
}

func (s *EmployeeStore) DropTable(ctx context.Context) error {
	return s.repo.DropTable(ctx)
}

// Save inserts e when it has no ID yet and updates its row otherwise.
func (s *EmployeeStore) Save(ctx context.Context, e *Employee) error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid employee: %w", err)
	}
	if e.ID == 0 {
		if err := s.repo.Insert(ctx, e); err != nil {
			return fmt.Errorf("insert employee: %w", err)
		}
		s.logger.Debug("Employee inserted", "id", e.ID, "name", e.Name)
		return nil
	}
	if _, err := s.repo.Update(ctx, e); err != nil {
		return fmt.Errorf("update employee %d: %w", e.ID, err)
	}
	s.logger.Debug("Employee updated", "id", e.ID)
	return nil
}

// Create builds an employee and saves it.
func (s *EmployeeStore) Create(ctx context.Context, name, jobTitle string, departmentID int64) (*Employee, error) {
	e := &Employee{Name: name, JobTitle: jobTitle, DepartmentID: departmentID}
	if err := s.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// FindByID returns the employee with the given id, or nil when none exists.
func (s *EmployeeStore) FindByID(ctx context.Context, id int64) (*Employee, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find employee %d: %w", id, err)
	}
	return e, nil
}

func (s *EmployeeStore) GetAll(ctx context.Context) ([]*Employee, error) {
	return s.repo.GetAll(ctx)
}

// ByDepartment lists the employees of one department.
func (s *EmployeeStore) ByDepartment(ctx context.Context, departmentID int64) ([]*Employee, error) {
	return s.repo.List(ctx, types.NewQueryFilter("department_id = ?", departmentID))
}

func (s *EmployeeStore) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[Employee], error) {
	return s.repo.Page(ctx, page)
}

// Delete removes the row of e and resets its ID.
func (s *EmployeeStore) Delete(ctx context.Context, e *Employee) error {
	if !e.Saved() {
		return nil
	}
	if _, err := s.repo.DeleteByID(ctx, e.ID); err != nil {
		return fmt.Errorf("delete employee %d: %w", e.ID, err)
	}
	e.ID = 0
	return nil
}

// DepartmentStore persists departments.
type DepartmentStore struct {
	repo repository.Repository[Department]
}

// NewDepartmentStore returns a store over db.
func NewDepartmentStore(db bun.IDB) *DepartmentStore {
	return &DepartmentStore{repo: repository.NewRepository[Department](db)}
}

func (s *DepartmentStore) CreateTable(ctx context.Context) error {
	return s.repo.CreateTable(ctx)
}

func (s *DepartmentStore) DropTable(ctx context.Context) error {
	return s.repo.DropTable(ctx)
}

func (s *DepartmentStore) Save(ctx context.Context, d *Department) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid department: %w", err)
	}
	if d.ID == 0 {
		if err := s.repo.Insert(ctx, d); err != nil {
			return fmt.Errorf("insert department: %w", err)
		}
		return nil
	}
	if _, err := s.repo.Update(ctx, d); err != nil {
		return fmt.Errorf("update department %d: %w", d.ID, err)
	}
	return nil
}

func (s *DepartmentStore) Create(ctx context.Context, name, location string) (*Department, error) {
	d := &Department{Name: name, Location: location}
	if err := s.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// FindByID returns the department with the given id, or nil when none exists.
func (s *DepartmentStore) FindByID(ctx context.Context, id int64) (*Department, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find department %d: %w", id, err)
	}
	return d, nil
}

func (s *DepartmentStore) GetAll(ctx context.Context) ([]*Department, error) {
	return s.repo.GetAll(ctx)
}
