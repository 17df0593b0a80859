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
	"fmt"
	"math"
	"strings"

	"github.com/tomoncle/reviewkit/staff"
)

// MinYear is the earliest year a review may cover.
const MinYear = 2000

const (
	FieldYear     = "year"
	FieldSummary  = "summary"
	FieldEmployee = "employee"
)

// Review is one performance review of one employee. An ID of 0 means the
// review has no row: it was never saved or it has been deleted.
type Review struct {
	id         int64
	year       int
	summary    string
	employee   *staff.Employee
	employeeID int64
}

// New validates the fields in order (year, summary, employee) and returns an
// unsaved review. The first failing field aborts construction.
func New(year int, summary string, employee *staff.Employee) (*Review, error) {
	r := &Review{}
	if err := r.SetYear(year); err != nil {
		return nil, err
	}
	if err := r.SetSummary(summary); err != nil {
		return nil, err
	}
	if err := r.SetEmployee(employee); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Review) ID() int64 { return r.id }

func (r *Review) Year() int { return r.year }

func (r *Review) Summary() string { return r.summary }

func (r *Review) Employee() *staff.Employee { return r.employee }

// EmployeeID is the employee ID as of the last assignment or save.
func (r *Review) EmployeeID() int64 { return r.employeeID }

// Saved reports whether the review currently has a row.
func (r *Review) Saved() bool { return r.id != 0 }

func (r *Review) SetYear(year int) error {
	if err := checkYear(year); err != nil {
		return err
	}
	r.year = year
	return nil
}

func (r *Review) SetSummary(summary string) error {
	if err := checkSummary(summary); err != nil {
		return err
	}
	r.summary = summary
	return nil
}

// SetEmployee assigns a persisted employee and copies its ID into EmployeeID.
func (r *Review) SetEmployee(employee *staff.Employee) error {
	if employee == nil {
		return typeError(FieldEmployee, employee, "Employee must be an Employee instance.")
	}
	if employee.ID == 0 {
		return valueError(FieldEmployee, employee, "Employee must be saved before assigning to Review.")
	}
	r.employee = employee
	r.employeeID = employee.ID
	return nil
}

// Assign sets field from a dynamically typed value, as found in decoded
// partial updates. Year accepts any integer type, summary a string and
// employee a *staff.Employee; anything else fails with KindType.
func (r *Review) Assign(field string, value any) error {
	switch field {
	case FieldYear:
		year, ok := asInt(value)
		if !ok {
			return typeError(FieldYear, value, "Year must be an integer.")
		}
		return r.SetYear(year)
	case FieldSummary:
		summary, ok := value.(string)
		if !ok {
			return typeError(FieldSummary, value, "Summary must be a string.")
		}
		return r.SetSummary(summary)
	case FieldEmployee:
		employee, ok := value.(*staff.Employee)
		if !ok {
			return typeError(FieldEmployee, value, "Employee must be an Employee instance.")
		}
		return r.SetEmployee(employee)
	default:
		return typeError(field, value, fmt.Sprintf("Review has no field %q.", field))
	}
}

func (r *Review) String() string {
	return fmt.Sprintf("<Review %d: %d, %s, Employee: %d>", r.id, r.year, r.summary, r.employeeID)
}

func checkYear(year int) error {
	if year < MinYear {
		return valueError(FieldYear, year, fmt.Sprintf("Year must be >= %d.", MinYear))
	}
	return nil
}

func checkSummary(summary string) error {
	if strings.TrimSpace(summary) == "" {
		return valueError(FieldSummary, summary, "Summary cannot be empty.")
	}
	return nil
}

// asInt accepts every integer kind. Integers that do not fit in an int are
// clamped so they still fail, or pass, the year constraint as a value.
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		if v < 0 {
			if v < math.MinInt {
				return math.MinInt, true
			}
			return int(v), true
		}
		return clampUint64(uint64(v)), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint:
		return clampUint64(uint64(v)), true
	case uint64:
		return clampUint64(v), true
	default:
		return 0, false
	}
}

func clampUint64(v uint64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}
