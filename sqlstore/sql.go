// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package sqlstore

import (
	"fmt"
	"strings"
)

const blobTable = "cache_blob"

// queryParams collects positional query parameters.
type queryParams []interface{}

// Param adds a parameter to the query parameter list, returning its
// position as $1, $2, ...
func (qp *queryParams) Param(param interface{}) string {
	*qp = append(*qp, param)
	return fmt.Sprintf("$%v", len(*qp))
}

// List adds every string as a parameter, returning a comma-separated
// list of their positions suitable for an IN clause.
func (qp *queryParams) List(values []string) string {
	positions := make([]string, len(values))
	for i, v := range values {
		positions[i] = qp.Param(v)
	}
	return strings.Join(positions, ", ")
}
