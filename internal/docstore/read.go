package docstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// FindOne returns at most one matching document. OutcomeEmpty when nothing
// matches; that is not an error.
func (c *Collection) FindOne(ctx context.Context, filter Filter, proj Projection, opts FindOptions) (Result, error) {
	c.logBefore("findOne", "filter", filter)

	query, args, err := buildSelect(c.name, filter, opts, 1)

	if err != nil {
		return c.fail("findOne", err)
	}

	var raw []byte

	err = c.store.observe("find_one", c.name, func() error {
		if err := c.store.ensure(ctx, c.name); err != nil {
			return err
		}

		return c.store.q.QueryRow(ctx, query, args...).Scan(&raw)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		c.logAfter("findOne", "outcome", "empty")
		return Result{Outcome: OutcomeEmpty}, nil
	}

	if err != nil {
		return c.fail("findOne", err)
	}

	doc, err := decodeDoc(raw)

	if err != nil {
		return c.fail("findOne", err)
	}

	c.logAfter("findOne", "outcome", "ok")

	return Result{Outcome: OutcomeOK, Doc: project(doc, proj)}, nil
}

// FindAll returns every matching document.
func (c *Collection) FindAll(ctx context.Context, filter Filter, proj Projection) (Result, error) {
	return c.findMany(ctx, "findAll", filter, proj, 0)
}

// FindLimited returns at most limit matching documents.
func (c *Collection) FindLimited(ctx context.Context, filter Filter, limit int) (Result, error) {
	return c.findMany(ctx, "findLimited", filter, nil, limit)
}

// FindLimitedProjected is FindLimited with a field include-list applied.
func (c *Collection) FindLimitedProjected(ctx context.Context, filter Filter, limit int, proj Projection) (Result, error) {
	return c.findMany(ctx, "findLimitedProjected", filter, proj, limit)
}

func (c *Collection) findMany(ctx context.Context, op string, filter Filter, proj Projection, limit int) (Result, error) {
	c.logBefore(op, "filter", filter, "limit", limit)

	query, args, err := buildSelect(c.name, filter, FindOptions{}, limit)

	if err != nil {
		return c.fail(op, err)
	}

	var docs []Document

	err = c.store.observe(op, c.name, func() error {
		if err := c.store.ensure(ctx, c.name); err != nil {
			return err
		}

		rows, err := c.store.q.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var raw []byte

			if err := rows.Scan(&raw); err != nil {
				return err
			}

			doc, err := decodeDoc(raw)

			if err != nil {
				return err
			}

			docs = append(docs, project(doc, proj))
		}

		return rows.Err()
	})

	if err != nil {
		return c.fail(op, err)
	}

	c.logAfter(op, "count", len(docs))

	// An empty list is a valid result, not an absence.
	return Result{Outcome: OutcomeOK, Docs: docs}, nil
}

// Count returns the number of matching documents. Zero is OutcomeOK.
func (c *Collection) Count(ctx context.Context, filter Filter) (Result, error) {
	c.logBefore("count", "filter", filter)

	query, args, err := buildCountQuery(c.name, filter, false)

	if err != nil {
		return c.fail("count", err)
	}

	var count int64

	err = c.store.observe("count", c.name, func() error {
		if err := c.store.ensure(ctx, c.name); err != nil {
			return err
		}

		return c.store.q.QueryRow(ctx, query, args...).Scan(&count)
	})

	if err != nil {
		return c.fail("count", err)
	}

	c.logAfter("count", "count", count)

	return Result{Outcome: OutcomeOK, Count: count}, nil
}

// Exists reports whether any document matches. False is OutcomeOK.
func (c *Collection) Exists(ctx context.Context, filter Filter) (Result, error) {
	c.logBefore("exists", "filter", filter)

	query, args, err := buildCountQuery(c.name, filter, true)

	if err != nil {
		return c.fail("exists", err)
	}

	var exists bool

	err = c.store.observe("exists", c.name, func() error {
		if err := c.store.ensure(ctx, c.name); err != nil {
			return err
		}

		return c.store.q.QueryRow(ctx, query, args...).Scan(&exists)
	})

	if err != nil {
		return c.fail("exists", err)
	}

	c.logAfter("exists", "exists", exists)

	return Result{Outcome: OutcomeOK, Exists: exists}, nil
}
