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
	"github.com/tomoncle/reviewkit/database"
	"github.com/uptrace/bun"
)

// EmployeeDepartmentFK ties employees.department_id to departments.id.
var EmployeeDepartmentFK = database.ForeignKeyConstraint{
	Table:           "employees",
	Column:          "department_id",
	ReferenceTable:  "departments",
	ReferenceColumn: "id",
}

func init() {
	database.RegisteredModel(database.NewModelAdapter((*Department)(nil), 10))
	database.RegisteredModel(database.NewModelAdapter((*Employee)(nil), 20, EmployeeDepartmentFK))
}

// Department is a row of the departments table.
type Department struct {
	bun.BaseModel `bun:"table:departments,alias:d"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Name     string `bun:"name,notnull" json:"name" validate:"required"`
	Location string `bun:"location" json:"location"`
}

// Employee is a row of the employees table. An ID of 0 means the employee has
// not been saved. A DepartmentID of 0 is stored as NULL.
type Employee struct {
	bun.BaseModel `bun:"table:employees,alias:e"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	Name         string `bun:"name,notnull" json:"name" validate:"required"`
	JobTitle     string `bun:"job_title" json:"job_title"`
	DepartmentID int64  `bun:"department_id,nullzero" json:"department_id"`
}

// Saved reports whether the employee has a row.
func (e *Employee) Saved() bool { return e != nil && e.ID != 0 }
