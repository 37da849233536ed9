package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Insert stores one document and returns it including its assigned id.
func (c *Collection) Insert(ctx context.Context, doc Document) (Result, error) {
	c.logBefore("insert")

	saved := cloneDoc(doc)

	id, _ := saved["id"].(string)

	if id == "" {
		id = uuid.NewString()
		saved["id"] = id
	}

	payload, err := json.Marshal(saved)

	if err != nil {
		return c.fail("insert", err)
	}

	err = c.store.observe("insert", c.name, func() error {
		if err := c.store.ensure(ctx, c.name); err != nil {
			return err
		}

		_, err := c.store.q.Exec(ctx,
			`INSERT INTO `+c.name+` (id, doc) VALUES ($1, $2)`, id, payload)

		return err
	})

	if err != nil {
		return c.fail("insert", err)
	}

	c.logAfter("insert", "id", id)

	return Result{Outcome: OutcomeOK, Doc: saved}, nil
}

// InsertMany inserts documents one by one in order and stops at the first
// failure. Earlier documents stay persisted; later ones are never attempted.
// On failure the returned Result still carries the inserted prefix.
func (c *Collection) InsertMany(ctx context.Context, docs []Document) (Result, error) {
	c.logBefore("insertMany", "count", len(docs))

	inserted := make([]Document, 0, len(docs))

	for i, doc := range docs {
		res, err := c.Insert(ctx, doc)

		if err != nil {
			c.logError("insertMany", err)
			return Result{Docs: inserted},
				fmt.Errorf("docstore: insertMany %s: document %d: %w", c.name, i, err)
		}

		inserted = append(inserted, res.Doc)
	}

	c.logAfter("insertMany", "count", len(inserted))

	return Result{Outcome: OutcomeOK, Docs: inserted}, nil
}

// UpdateOne merges patch into the first matching document and returns the
// post-update state. OutcomeEmpty when nothing matches.
func (c *Collection) UpdateOne(ctx context.Context, filter Filter, patch Document) (Result, error) {
	c.logBefore("updateOne", "filter", filter)

	// the id column and the embedded id field stay fixed
	patch = cloneDoc(patch)
	delete(patch, "id")

	patchJSON, err := json.Marshal(patch)

	if err != nil {
		return c.fail("updateOne", err)
	}

	query := `UPDATE ` + c.name + ` SET doc = doc || $1 WHERE id = (SELECT id FROM ` + c.name
	args := []any{patchJSON}

	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)

		if err != nil {
			return c.fail("updateOne", err)
		}

		args = append(args, filterJSON)
		query += ` WHERE doc @> $2`
	}

	query += ` LIMIT 1) RETURNING doc`

	var raw []byte

	err = c.store.observe("update_one", c.name, func() error {
		if err := c.store.ensure(ctx, c.name); err != nil {
			return err
		}

		return c.store.q.QueryRow(ctx, query, args...).Scan(&raw)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		c.logAfter("updateOne", "outcome", "empty")
		return Result{Outcome: OutcomeEmpty}, nil
	}

	if err != nil {
		return c.fail("updateOne", err)
	}

	doc, err := decodeDoc(raw)

	if err != nil {
		return c.fail("updateOne", err)
	}

	c.logAfter("updateOne", "outcome", "ok")

	return Result{Outcome: OutcomeOK, Doc: doc}, nil
}

// UpdateMany merges patch into every matching document and reports how many
// were touched. Zero matches is OutcomeOK.
func (c *Collection) UpdateMany(ctx context.Context, filter Filter, patch Document) (Result, error) {
	c.logBefore("updateMany", "filter", filter)

	patch = cloneDoc(patch)
	delete(patch, "id")

	patchJSON, err := json.Marshal(patch)

	if err != nil {
		return c.fail("updateMany", err)
	}

	query := `UPDATE ` + c.name + ` SET doc = doc || $1`
	args := []any{patchJSON}

	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)

		if err != nil {
			return c.fail("updateMany", err)
		}

		args = append(args, filterJSON)
		query += ` WHERE doc @> $2`
	}

	var affected int64

	err = c.store.observe("update_many", c.name, func() error {
		if err := c.store.ensure(ctx, c.name); err != nil {
			return err
		}

		tag, err := c.store.q.Exec(ctx, query, args...)

		if err != nil {
			return err
		}

		affected = tag.RowsAffected()

		return nil
	})

	if err != nil {
		return c.fail("updateMany", err)
	}

	c.logAfter("updateMany", "matched", affected)

	return Result{Outcome: OutcomeOK, Matched: affected, Modified: affected}, nil
}
