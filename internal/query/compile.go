package query

import (
	"fmt"
	"strings"

	"github.com/roach88/strata/internal/docstore"
	"github.com/roach88/strata/internal/temporal"
)

// PrepareVisibility applies the visibility contract to a spec before
// compilation. This is the listener half of the opt-out protocol: the
// include-all marker is recognized and stripped here, exactly once,
// and its presence suppresses the current-only predicate.
//
// versioned reports whether the spec's type tag is under versioning;
// non-versioned types never get the predicate, but the marker is still
// consumed so it cannot leak into compilation.
func PrepareVisibility(s *Spec, versioned bool) *Spec {
	includeAll := s.consume(IncludeAllEffectiveTimeMarker)
	s.currentOnly = versioned && !includeAll
	return s
}

// Compile converts a spec to parameterized SQL over the documents
// table.
//
// Every query includes ORDER BY with a deterministic tiebreaker, and
// all values are parameterized, never interpolated.
func Compile(s *Spec) (string, []any, error) {
	if s == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if s.TypeTag == "" {
		return "", nil, fmt.Errorf("query requires a type tag")
	}
	if len(s.customizations) > 0 {
		return "", nil, fmt.Errorf("unconsumed query customizations: %v", s.customizations)
	}

	var where []string
	var params []any

	where = append(where, "type_tag = ?")
	params = append(params, s.TypeTag)

	if s.Filter != nil {
		filterSQL, filterParams, err := compilePredicate(s.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = append(where, filterSQL)
		params = append(params, filterParams...)
	}

	if s.currentOnly {
		// Current visibility means the stable-identity copy only:
		// revision copies live under suffixed keys and are excluded
		// even though the live one also carries Current status.
		where = append(where, "status = ?")
		params = append(params, string(temporal.StatusCurrent))
		where = append(where, "instr(key, ?) = 0")
		params = append(params, temporal.Separator)
	}

	query := `SELECT ` + docstore.DocumentColumns + `
FROM documents
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY key ASC COLLATE BINARY`

	if s.Take > 0 {
		query += ` LIMIT ? OFFSET ?`
		params = append(params, s.Take, s.Skip)
	} else if s.Skip > 0 {
		query += ` LIMIT -1 OFFSET ?`
		params = append(params, s.Skip)
	}

	return query, params, nil
}

// compilePredicate compiles one predicate to SQL.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		return compileEquals(pred)
	case *Equals:
		return compileEquals(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(e Equals) (string, []any, error) {
	if e.Field == "" {
		return "", nil, fmt.Errorf("equals predicate requires a field")
	}
	// The JSON path is parameterized like the value: field names come
	// from callers and must never be interpolated.
	return "json_extract(body, ?) = ?", []any{"$." + e.Field, e.Value}, nil
}

func compileAnd(a And) (string, []any, error) {
	if len(a.Predicates) == 0 {
		return "", nil, fmt.Errorf("empty AND predicate")
	}

	var parts []string
	var params []any
	for i, p := range a.Predicates {
		sql, ps, err := compilePredicate(p)
		if err != nil {
			return "", nil, fmt.Errorf("and[%d]: %w", i, err)
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}

	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}
