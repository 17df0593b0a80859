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
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/uptrace/bun"
)

var validReferentialActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

// ForeignKeyConstraint describes a foreign key relationship between tables.
// Constraints are declared inline in CREATE TABLE, which every supported
// dialect accepts (sqlite has no ALTER TABLE ADD CONSTRAINT).
type ForeignKeyConstraint struct {
	Table           string
	Column          string
	ReferenceTable  string
	ReferenceColumn string
	OnDelete        string // CASCADE, RESTRICT, SET NULL, NO ACTION
	OnUpdate        string // CASCADE, RESTRICT, SET NULL, NO ACTION
}

// Name returns the conventional constraint name fk_<table>_<column>.
func (fk ForeignKeyConstraint) Name() string {
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// Apply adds the constraint to a CREATE TABLE query.
func (fk ForeignKeyConstraint) Apply(q *bun.CreateTableQuery) *bun.CreateTableQuery {
	clause := "(?) REFERENCES ? (?)"
	if fk.OnDelete != "" {
		clause += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		clause += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
	}
	return q.ForeignKey(clause, bun.Ident(fk.Column), bun.Ident(fk.ReferenceTable), bun.Ident(fk.ReferenceColumn))
}

// Validate checks the constraint for missing names and unknown actions.
func (fk ForeignKeyConstraint) Validate() error {
	var errs []error
	if fk.Table == "" {
		errs = append(errs, fmt.Errorf("table name cannot be empty"))
	}
	if fk.Column == "" {
		errs = append(errs, fmt.Errorf("column name cannot be empty: %s", fk.Table))
	}
	if fk.ReferenceTable == "" {
		errs = append(errs, fmt.Errorf("reference table name cannot be empty: %s.%s", fk.Table, fk.Column))
	}
	if fk.ReferenceColumn == "" {
		errs = append(errs, fmt.Errorf("reference column name cannot be empty: %s.%s -> %s", fk.Table, fk.Column, fk.ReferenceTable))
	}
	for _, action := range []string{fk.OnDelete, fk.OnUpdate} {
		if action != "" && !slices.Contains(validReferentialActions, strings.ToUpper(action)) {
			errs = append(errs, fmt.Errorf("invalid referential action: %s, constraint: %s", action, fk.Name()))
		}
	}
	return errors.Join(errs...)
}

// ValidateConstraints validates every constraint and joins the failures.
func ValidateConstraints(constraints []ForeignKeyConstraint) error {
	var errs []error
	for _, c := range constraints {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
