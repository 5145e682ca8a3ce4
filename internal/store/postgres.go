package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/blake2b"

	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
)

// Postgres is a Journal backed by the sessions and revisions tables.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Create(ctx context.Context, sessionID string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO sessions (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, sessionID)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	snap := &Snapshot{SessionID: sessionID}
	var (
		messages      []byte
		productMIME   *string
		productWidth  *int32
		productHeight *int32
		productData   []byte
	)
	err := p.pool.QueryRow(ctx, `
		SELECT created_at, updated_at, cursor_index, product_label, scene_label,
		       product_mime, product_width, product_height, product_data, messages
		FROM sessions WHERE id = $1`, sessionID).Scan(
		&snap.CreatedAt, &snap.UpdatedAt, &snap.Index, &snap.ProductLabel, &snap.SceneLabel,
		&productMIME, &productWidth, &productHeight, &productData, &messages,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if len(productData) > 0 && productMIME != nil {
		snap.Product = &history.Image{Data: productData, MIMEType: *productMIME}
		if productWidth != nil && productHeight != nil {
			snap.Product.Width, snap.Product.Height = int(*productWidth), int(*productHeight)
		}
	}
	if err := json.Unmarshal(messages, &snap.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, seq, source, mime_type, width, height, data, created_at
		FROM revisions WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load revisions: %w", err)
	}
	snap.Revisions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Revision, error) {
		var (
			r             history.Revision
			source        string
			width, height int32
		)
		err := row.Scan(&r.ID, &r.Seq, &source, &r.Image.MIMEType, &width, &height, &r.Image.Data, &r.CreatedAt)
		r.Source = history.Source(source)
		r.Image.Width, r.Image.Height = int(width), int(height)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan revisions: %w", err)
	}
	return snap, nil
}

func (p *Postgres) Save(ctx context.Context, snap *Snapshot) error {
	messages, err := json.Marshal(snap.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	if snap.Messages == nil {
		messages = []byte("[]")
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var storedDigest []byte
	err = tx.QueryRow(ctx,
		`SELECT product_digest FROM sessions WHERE id = $1 FOR UPDATE`, snap.SessionID).Scan(&storedDigest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock session: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE sessions SET
			updated_at = now(), cursor_index = $2, product_label = $3, scene_label = $4, messages = $5
		WHERE id = $1`,
		snap.SessionID, snap.Index, snap.ProductLabel, snap.SceneLabel, messages); err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if digest, changed := productChanged(storedDigest, snap.Product); changed {
		var productMIME *string
		var productWidth, productHeight *int32
		var productData []byte
		if snap.Product != nil {
			w, h := int32(snap.Product.Width), int32(snap.Product.Height)
			productMIME, productWidth, productHeight = &snap.Product.MIMEType, &w, &h
			productData = snap.Product.Data
		}
		if _, err := tx.Exec(ctx, `
			UPDATE sessions SET
				product_mime = $2, product_width = $3, product_height = $4, product_data = $5, product_digest = $6
			WHERE id = $1`,
			snap.SessionID, productMIME, productWidth, productHeight, productData, digest); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
	}

	ids := make([]string, len(snap.Revisions))
	for i, r := range snap.Revisions {
		ids[i] = r.ID
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM revisions WHERE session_id = $1 AND NOT (id = ANY($2))`,
		snap.SessionID, ids); err != nil {
		return fmt.Errorf("prune revisions: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT id FROM revisions WHERE session_id = $1`, snap.SessionID)
	if err != nil {
		return fmt.Errorf("list revisions: %w", err)
	}
	stored, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("scan revision ids: %w", err)
	}

	if missing := unsavedRevisions(stored, snap.Revisions); len(missing) > 0 {
		batch := &pgx.Batch{}
		for _, r := range missing {
			batch.Queue(`
				INSERT INTO revisions (id, session_id, seq, source, mime_type, width, height, data, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (id) DO NOTHING`,
				r.ID, snap.SessionID, r.Seq, string(r.Source), r.Image.MIMEType,
				int32(r.Image.Width), int32(r.Image.Height), r.Image.Data, r.CreatedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert revisions: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// unsavedRevisions returns the revisions whose ids are not in stored, in
// their original order. Revisions are immutable, so stored ones are skipped.
func unsavedRevisions(stored []string, revs []history.Revision) []history.Revision {
	seen := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		seen[id] = struct{}{}
	}
	var missing []history.Revision
	for _, r := range revs {
		if _, ok := seen[r.ID]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// productChanged compares the stored product digest with img. It returns the
// digest to store (nil when there is no product) and whether the product
// columns need rewriting.
func productChanged(stored []byte, img *history.Image) ([]byte, bool) {
	if img == nil {
		return nil, stored != nil
	}
	h, _ := blake2b.New256(nil)
	h.Write([]byte(img.MIMEType))
	h.Write([]byte{0})
	h.Write(img.Data)
	digest := h.Sum(nil)
	return digest, !bytes.Equal(stored, digest)
}

func (p *Postgres) Delete(ctx context.Context, sessionID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT id FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return ids, nil
}

var (
	_ Journal = (*Postgres)(nil)
	_ Journal = (*Memory)(nil)
)
