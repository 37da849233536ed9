package docstore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildSelect compiles a filtered read into SQL. Filters ride as a single
// jsonb containment argument so no user data is ever spliced into the query.
func buildSelect(table string, filter Filter, opts FindOptions, limit int) (string, []any, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT doc FROM ")
	sb.WriteString(table)

	if len(filter) > 0 {
		payload, err := json.Marshal(filter)
		if err != nil {
			return "", nil, err
		}

		args = append(args, payload)
		fmt.Fprintf(&sb, " WHERE doc @> $%d", len(args))
	}

	if opts.Sort != "" {
		args = append(args, opts.Sort)
		dir := "ASC"
		if opts.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY doc->>$%d %s", len(args), dir)
	}

	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args, nil
}

// buildCountQuery compiles Count and Exists reads.
func buildCountQuery(table string, filter Filter, exists bool) (string, []any, error) {
	var args []any
	where := ""

	if len(filter) > 0 {
		payload, err := json.Marshal(filter)
		if err != nil {
			return "", nil, err
		}
		args = append(args, payload)
		where = " WHERE doc @> $1"
	}

	if exists {
		return "SELECT EXISTS (SELECT 1 FROM " + table + where + ")", args, nil
	}

	return "SELECT count(*) FROM " + table + where, args, nil
}

// Grouping describes a match->group aggregation: bucket by Key, then apply
// each accumulator inside the bucket.
type Grouping struct {
	Key    string
	Accums []Accum
}

// Accum is one aggregate column. Op is one of count, sum, avg, min, max;
// Field is the numeric document field it reads (ignored for count).
type Accum struct {
	As    string
	Op    string
	Field string
}

func buildGroupQuery(table string, filter Filter, g Grouping) (string, []any, error) {
	if g.Key == "" {
		return "", nil, fmt.Errorf("grouping key is required")
	}

	var sb strings.Builder
	var args []any

	args = append(args, g.Key)
	fmt.Fprintf(&sb, "SELECT doc->>$%d", len(args))

	for _, a := range g.Accums {
		switch a.Op {
		case "count":
			sb.WriteString(", count(*)::bigint")
		case "sum", "avg", "min", "max":
			if a.Field == "" {
				return "", nil, fmt.Errorf("accumulator %q needs a field", a.Op)
			}
			args = append(args, a.Field)
			fmt.Fprintf(&sb, ", %s((doc->>$%d)::numeric)::float8", a.Op, len(args))
		default:
			return "", nil, fmt.Errorf("unsupported accumulator %q", a.Op)
		}
	}

	sb.WriteString(" FROM ")
	sb.WriteString(table)

	if len(filter) > 0 {
		payload, err := json.Marshal(filter)
		if err != nil {
			return "", nil, err
		}
		args = append(args, payload)
		fmt.Fprintf(&sb, " WHERE doc @> $%d", len(args))
	}

	sb.WriteString(" GROUP BY doc->>$1")

	return sb.String(), args, nil
}

// JoinSpec describes a match -> left outer join -> post-join filter ->
// flatten -> project pipeline across two collections. LocalField on the left
// side is matched against ForeignField on From; the joined document lands
// under As. Left documents with no match survive unless JoinFilter is set.
type JoinSpec struct {
	From         string
	LocalField   string
	ForeignField string
	As           string

	Filter     Filter // on the left collection
	JoinFilter Filter // on the joined document; non-empty excludes unmatched rows
	Projection Projection
}

func buildJoinQuery(table string, spec JoinSpec) (string, []any, error) {
	if !collectionName.MatchString(spec.From) {
		return "", nil, fmt.Errorf("invalid join collection %q", spec.From)
	}
	if spec.LocalField == "" || spec.ForeignField == "" || spec.As == "" {
		return "", nil, fmt.Errorf("join needs localField, foreignField and as")
	}

	var sb strings.Builder
	var args []any

	args = append(args, spec.LocalField)
	local := len(args)
	args = append(args, spec.ForeignField)
	foreign := len(args)

	fmt.Fprintf(&sb,
		"SELECT l.doc, r.doc FROM %s l LEFT JOIN %s r ON l.doc->>$%d = r.doc->>$%d",
		table, spec.From, local, foreign)

	var conds []string

	if len(spec.Filter) > 0 {
		payload, err := json.Marshal(spec.Filter)
		if err != nil {
			return "", nil, err
		}
		args = append(args, payload)
		conds = append(conds, fmt.Sprintf("l.doc @> $%d", len(args)))
	}

	// A post-join condition in WHERE drops rows whose right side is NULL,
	// which is exactly the "unless excluded by the post-join filter" rule.
	if len(spec.JoinFilter) > 0 {
		payload, err := json.Marshal(spec.JoinFilter)
		if err != nil {
			return "", nil, err
		}
		args = append(args, payload)
		conds = append(conds, fmt.Sprintf("r.doc @> $%d", len(args)))
	}

	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	return sb.String(), args, nil
}

// project keeps only the listed top-level fields. An empty projection returns
// the document untouched.
func project(doc Document, proj Projection) Document {
	if len(proj) == 0 {
		return doc
	}

	out := make(Document, len(proj))

	for _, field := range proj {
		if v, ok := doc[field]; ok {
			out[field] = v
		}
	}

	return out
}

func decodeDoc(raw []byte) (Document, error) {
	var doc Document

	err := json.Unmarshal(raw, &doc)

	if err != nil {
		return nil, err
	}

	return doc, nil
}

func cloneDoc(doc Document) Document {
	out := make(Document, len(doc)+1)

	for k, v := range doc {
		out[k] = v
	}

	return out
}
