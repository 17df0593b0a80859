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

package review

import (
	"context"
	"fmt"

	"github.com/tomoncle/reviewkit/database"
	"github.com/tomoncle/reviewkit/identity"
	"github.com/tomoncle/reviewkit/repository"
	"github.com/tomoncle/reviewkit/staff"
	"github.com/tomoncle/reviewkit/types"
	"github.com/uptrace/bun"
)

// EmployeeFK ties reviews.employee_id to employees.id.
var EmployeeFK = database.ForeignKeyConstraint{
	Table:           "reviews",
	Column:          "employee_id",
	ReferenceTable:  "employees",
	ReferenceColumn: "id",
}

func init() {
	database.RegisteredModel(database.NewModelAdapter((*Row)(nil), 30, EmployeeFK))
}

// Row is the stored form of a review.
type Row struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID         int64  `bun:"id,pk,autoincrement"`
	Year       int    `bun:"year"`
	Summary    string `bun:"summary"`
	EmployeeID int64  `bun:"employee_id"`
}

// EmployeeFinder looks employees up by ID. It returns nil, nil when no
// employee has the ID. *staff.EmployeeStore implements it.
type EmployeeFinder interface {
	FindByID(ctx context.Context, id int64) (*staff.Employee, error)
}

var _ EmployeeFinder = (*staff.EmployeeStore)(nil)

// Store persists reviews and owns the identity map of the reviews it has
// inserted or loaded. Every statement runs on its own; pass a bun.Tx to
// NewStore to group them.
type Store struct {
	repo      repository.Repository[Row]
	employees EmployeeFinder
	cache     *identity.Map[int64, *Review]
	logger    database.Logger
}

// NewStore returns a store over db that resolves employees through employees.
func NewStore(db bun.IDB, employees EmployeeFinder) *Store {
	return &Store{
		repo:      repository.NewRepository[Row](db, EmployeeFK),
		employees: employees,
		cache:     identity.NewMap[int64, *Review](),
		logger:    database.GetLogger(),
	}
}

// SetLogger replaces the logger the store reports persisted changes to.
func (s *Store) SetLogger(logger database.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// CreateTable creates the reviews table unless it exists.
func (s *Store) CreateTable(ctx context.Context) error {
	return s.repo.CreateTable(ctx)
}

// DropTable drops the reviews table if it exists and forgets every cached
// review.
func (s *Store) DropTable(ctx context.Context) error {
	if err := s.repo.DropTable(ctx); err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// Save inserts r when it has no ID and registers it in the identity map;
// otherwise it updates the existing row.
func (s *Store) Save(ctx context.Context, r *Review) error {
	if r.Saved() {
		return s.Update(ctx, r)
	}
	row, err := r.row()
	if err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, &row); err != nil {
		s.logRejected("insert", row, err)
		return fmt.Errorf("insert review: %w", err)
	}
	r.id = row.ID
	s.cache.Put(r.id, r)
	s.logger.Debug("Review inserted", "id", r.id, "employee_id", r.employeeID)
	return nil
}

// Create builds a review with New and saves it.
func (s *Store) Create(ctx context.Context, year int, summary string, employee *staff.Employee) (*Review, error) {
	r, err := New(year, summary, employee)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// InstanceFromDB returns the canonical review for row. A cached review gets
// its year and summary refreshed from the row; its employee is kept. An
// uncached review is built with the employee the row references. A row
// without an ID is rejected with ErrNotPersisted.
func (s *Store) InstanceFromDB(ctx context.Context, row Row) (*Review, error) {
	if row.ID == 0 {
		return nil, fmt.Errorf("load review row without id: %w", ErrNotPersisted)
	}
	if r, ok := s.cache.Get(row.ID); ok {
		if err := r.refresh(row); err != nil {
			return nil, err
		}
		return r, nil
	}

	employee, err := s.employees.FindByID(ctx, row.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("load employee of review %d: %w", row.ID, err)
	}
	if employee == nil {
		s.logger.Warn("Review references a missing employee", "id", row.ID, "employee_id", row.EmployeeID)
		return nil, fmt.Errorf("%w: review %d, employee %d", ErrDanglingEmployee, row.ID, row.EmployeeID)
	}

	r, err := New(row.Year, row.Summary, employee)
	if err != nil {
		return nil, err
	}
	r.id = row.ID
	r, _ = s.cache.LoadOrStore(r.id, r)
	return r, nil
}

// FindByID returns the review with the given ID, or nil when there is none.
func (s *Store) FindByID(ctx context.Context, id int64) (*Review, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find review %d: %w", id, err)
	}
	if row == nil {
		return nil, nil
	}
	return s.InstanceFromDB(ctx, *row)
}

// Update writes year, summary and employee_id of r to its row.
func (s *Store) Update(ctx context.Context, r *Review) error {
	if !r.Saved() {
		return fmt.Errorf("update: %w", ErrNotPersisted)
	}
	row, err := r.row()
	if err != nil {
		return err
	}
	affected, err := s.repo.Update(ctx, &row)
	if err != nil {
		s.logRejected("update", row, err)
		return fmt.Errorf("update review %d: %w", r.id, err)
	}
	s.logger.Debug("Review updated", "id", r.id, "rows", affected)
	return nil
}

// Delete removes the row of r, evicts r from the identity map and resets its
// ID, so that a later Save inserts a new row.
func (s *Store) Delete(ctx context.Context, r *Review) error {
	if !r.Saved() {
		return fmt.Errorf("delete: %w", ErrNotPersisted)
	}
	affected, err := s.repo.DeleteByID(ctx, r.id)
	if err != nil {
		return fmt.Errorf("delete review %d: %w", r.id, err)
	}
	s.cache.DeleteIf(r.id, func(cached *Review) bool { return cached == r })
	s.logger.Debug("Review deleted", "id", r.id, "rows", affected)
	r.id = 0
	return nil
}

// GetAll loads every row in primary key order through InstanceFromDB.
func (s *Store) GetAll(ctx context.Context) ([]*Review, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return s.hydrate(ctx, rows)
}

// ForEmployee loads the reviews of one employee.
func (s *Store) ForEmployee(ctx context.Context, employee *staff.Employee) ([]*Review, error) {
	if !employee.Saved() {
		return nil, nil
	}
	rows, err := s.repo.List(ctx, types.NewQueryFilter("employee_id = ?", employee.ID))
	if err != nil {
		return nil, fmt.Errorf("list reviews of employee %d: %w", employee.ID, err)
	}
	return s.hydrate(ctx, rows)
}

// Cached returns the live review registered for id.
func (s *Store) Cached(id int64) (*Review, bool) {
	return s.cache.Get(id)
}

// CachedIDs returns the IDs of the live reviews in ascending order.
func (s *Store) CachedIDs() []int64 {
	return s.cache.Keys()
}

// CachedCount returns the number of live reviews in the identity map.
func (s *Store) CachedCount() int {
	return s.cache.Len()
}

func (s *Store) hydrate(ctx context.Context, rows []*Row) ([]*Review, error) {
	reviews := make([]*Review, 0, len(rows))
	for _, row := range rows {
		r, err := s.InstanceFromDB(ctx, *row)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}

func (s *Store) logRejected(op string, row Row, err error) {
	if ok, kind := database.IsSqlError(err); ok {
		s.logger.Debug("Review statement rejected", "op", op, "kind", kind.String(), "employee_id", row.EmployeeID)
	}
}

// row builds the stored form of r with the employee's current ID. The
// employee may have been deleted, or deleted and saved again under a new ID,
// since it was assigned.
func (r *Review) row() (Row, error) {
	if !r.employee.Saved() {
		return Row{}, valueError(FieldEmployee, r.employee, "Employee must be saved before saving Review.")
	}
	r.employeeID = r.employee.ID
	return Row{ID: r.id, Year: r.year, Summary: r.summary, EmployeeID: r.employeeID}, nil
}

// refresh copies year and summary from row, validating both before either
// is changed.
func (r *Review) refresh(row Row) error {
	if err := checkYear(row.Year); err != nil {
		return err
	}
	if err := checkSummary(row.Summary); err != nil {
		return err
	}
	r.year = row.Year
	r.summary = row.Summary
	return nil
}
