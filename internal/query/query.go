// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package query builds search expressions for candidate discovery in
// the remote message store.
package query

import (
	"fmt"
	"strings"
)

// Spec describes one discovery query: a destination-address scope, a
// lookback window, and label filters.
type Spec struct {
	// To restricts discovery to messages delivered to this
	// address.
	To string

	// NewerThanDays is the lookback window.  Zero means no date
	// cutoff.
	NewerThanDays int

	// IncludeLabels are label display names a message must carry;
	// ExcludeLabels are negated.  Either set may be empty, which
	// simply yields a wider filter.
	IncludeLabels []string
	ExcludeLabels []string
}

// String renders the spec in the message store's search syntax.  Pure;
// the same spec always renders the same expression.
func (s Spec) String() string {
	var terms []string
	if s.To != "" {
		terms = append(terms, "to:"+s.To)
	}
	if s.NewerThanDays > 0 {
		terms = append(terms, fmt.Sprintf("newer_than:%dd", s.NewerThanDays))
	}
	for _, label := range s.IncludeLabels {
		if label == "" {
			continue
		}
		terms = append(terms, "label:"+quoteLabel(label))
	}
	for _, label := range s.ExcludeLabels {
		if label == "" {
			continue
		}
		terms = append(terms, "-label:"+quoteLabel(label))
	}
	return strings.Join(terms, " ")
}

// quoteLabel wraps label names containing spaces so they survive the
// search parser as a single term.
func quoteLabel(name string) string {
	if strings.ContainsAny(name, " \t") {
		return `"` + name + `"`
	}
	return name
}
