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
	"errors"
	"fmt"

	"github.com/tomoncle/reviewkit/types"
)

// Kind classifies a ValidationError.
type Kind int

const (
	// KindType marks a value of the wrong type.
	KindType Kind = iota + 1
	// KindValue marks a value of the right type that breaks a constraint.
	KindValue
)

var _ types.BaseEnum = KindType

func (k Kind) IsValid() bool { return k == KindType || k == KindValue }

func (k Kind) Number() int {
	if !k.IsValid() {
		return types.IllegalValue
	}
	return int(k)
}

func (k Kind) Name() string {
	switch k {
	case KindType:
		return "type"
	case KindValue:
		return "value"
	default:
		return types.IllegalName
	}
}

func (k Kind) String() string { return k.Name() }

func (k Kind) Desc() string {
	switch k {
	case KindType:
		return "value has the wrong type"
	case KindValue:
		return "value violates a field constraint"
	default:
		return types.IllegalDesc
	}
}

// ParseKind returns the Kind called name ("type" or "value").
func ParseKind(name string) (Kind, bool) {
	return types.EnumByName(name, KindType, KindValue)
}

var (
	// ErrInvalidType matches every ValidationError of KindType.
	ErrInvalidType = errors.New("invalid type")
	// ErrInvalidValue matches every ValidationError of KindValue.
	ErrInvalidValue = errors.New("invalid value")
	// ErrNotPersisted is returned when updating or deleting a review that has
	// no row.
	ErrNotPersisted = errors.New("review is not persisted")
	// ErrDanglingEmployee is returned when a row references an employee that
	// does not exist.
	ErrDanglingEmployee = errors.New("review references a missing employee")
)

// ValidationError reports a rejected field assignment. The field keeps its
// previous value.
type ValidationError struct {
	Field string
	Kind  Kind
	Value any
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Is lets errors.Is match ErrInvalidType and ErrInvalidValue by kind.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrInvalidType:
		return e.Kind == KindType
	case ErrInvalidValue:
		return e.Kind == KindValue
	}
	return false
}

func typeError(field string, value any, msg string) error {
	return &ValidationError{Field: field, Kind: KindType, Value: value, Msg: msg}
}

func valueError(field string, value any, msg string) error {
	return &ValidationError{Field: field, Kind: KindValue, Value: value, Msg: msg}
}
