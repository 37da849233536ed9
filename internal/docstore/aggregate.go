package docstore

import (
	"context"
)

// AggregateGroup runs a match -> group -> optional project pipeline. Each
// returned document holds the grouping key plus one field per accumulator.
func (c *Collection) AggregateGroup(ctx context.Context, filter Filter, grouping Grouping, proj Projection) (Result, error) {
	c.logBefore("aggregateGroup", "filter", filter, "key", grouping.Key)

	query, args, err := buildGroupQuery(c.name, filter, grouping)

	if err != nil {
		return c.fail("aggregateGroup", err)
	}

	var docs []Document

	err = c.store.observe("aggregate_group", c.name, func() error {
		if err := c.store.ensure(ctx, c.name); err != nil {
			return err
		}

		rows, err := c.store.q.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var key *string

			dests := make([]any, 0, len(grouping.Accums)+1)
			dests = append(dests, &key)

			counts := make([]*int64, len(grouping.Accums))
			floats := make([]*float64, len(grouping.Accums))

			for i, a := range grouping.Accums {
				if a.Op == "count" {
					dests = append(dests, &counts[i])
				} else {
					dests = append(dests, &floats[i])
				}
			}

			if err := rows.Scan(dests...); err != nil {
				return err
			}

			doc := Document{}

			if key != nil {
				doc[grouping.Key] = *key
			}

			for i, a := range grouping.Accums {
				if a.Op == "count" {
					if counts[i] != nil {
						doc[a.As] = *counts[i]
					}
				} else if floats[i] != nil {
					doc[a.As] = *floats[i]
				}
			}

			docs = append(docs, project(doc, proj))
		}

		return rows.Err()
	})

	if err != nil {
		return c.fail("aggregateGroup", err)
	}

	c.logAfter("aggregateGroup", "count", len(docs))

	return Result{Outcome: OutcomeOK, Docs: docs}, nil
}

// AggregateJoin runs a match -> left outer join -> post-join filter ->
// flatten -> project pipeline. Left documents with no join match are kept
// (their As field is simply absent) unless a JoinFilter is set, which
// excludes them the way a post-join match would.
func (c *Collection) AggregateJoin(ctx context.Context, spec JoinSpec) (Result, error) {
	c.logBefore("aggregateJoin", "filter", spec.Filter, "from", spec.From)

	query, args, err := buildJoinQuery(c.name, spec)

	if err != nil {
		return c.fail("aggregateJoin", err)
	}

	var docs []Document

	err = c.store.observe("aggregate_join", c.name, func() error {
		if err := c.store.ensure(ctx, c.name); err != nil {
			return err
		}
		if err := c.store.ensure(ctx, spec.From); err != nil {
			return err
		}

		rows, err := c.store.q.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var leftRaw, rightRaw []byte

			if err := rows.Scan(&leftRaw, &rightRaw); err != nil {
				return err
			}

			doc, err := decodeDoc(leftRaw)

			if err != nil {
				return err
			}

			// flatten the joined document under the As key
			if rightRaw != nil {
				joined, err := decodeDoc(rightRaw)

				if err != nil {
					return err
				}

				doc[spec.As] = joined
			}

			docs = append(docs, project(doc, spec.Projection))
		}

		return rows.Err()
	})

	if err != nil {
		return c.fail("aggregateJoin", err)
	}

	c.logAfter("aggregateJoin", "count", len(docs))

	return Result{Outcome: OutcomeOK, Docs: docs}, nil
}
