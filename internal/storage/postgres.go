package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/outfit/internal/config"
	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

//go:embed schema.sql
var schema string

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// --- Recommendations ---

const recommendationColumns = `id, user_id, usage, gender, category, clothing_group,
	color_r, color_g, color_b, color_name, image_url, image_key, outfits, created_at`

// CreateRecommendation writes rec in a single transaction. rec.ID must be set.
func (s *PostgresStore) CreateRecommendation(ctx context.Context, rec *models.Recommendation) error {
	if rec.ID == uuid.Nil {
		return errs.DataIntegrity("create recommendation", "recommendation has no id")
	}
	outfits := rec.Outfits
	if outfits == nil {
		outfits = [][]models.CatalogItem{}
	}
	payload, err := json.Marshal(outfits)
	if err != nil {
		return fmt.Errorf("encode outfits: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO recommendations (`+recommendationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, now()))
		RETURNING created_at`,
		rec.ID, rec.UserID, string(rec.Usage), rec.Gender, rec.Category, string(rec.Group),
		int16(rec.DominantColor.R), int16(rec.DominantColor.G), int16(rec.DominantColor.B),
		rec.ColorName, rec.ImageURL, rec.ImageKey, payload, nullTime(rec),
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create recommendation: %w", err)
	}
	return tx.Commit(ctx)
}

func nullTime(rec *models.Recommendation) any {
	if rec.CreatedAt.IsZero() {
		return nil
	}
	return rec.CreatedAt
}

func scanRecommendation(row pgx.Row) (*models.Recommendation, error) {
	var (
		rec     models.Recommendation
		usage   string
		group   string
		r, g, b int16
		outfits []byte
	)
	err := row.Scan(&rec.ID, &rec.UserID, &usage, &rec.Gender, &rec.Category, &group,
		&r, &g, &b, &rec.ColorName, &rec.ImageURL, &rec.ImageKey, &outfits, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Usage = models.Usage(usage)
	rec.Group = models.ClothingGroup(group)
	rec.DominantColor = models.Color{R: uint8(r), G: uint8(g), B: uint8(b)}
	if err := json.Unmarshal(outfits, &rec.Outfits); err != nil {
		return nil, fmt.Errorf("decode outfits: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) GetRecommendation(ctx context.Context, id uuid.UUID) (*models.Recommendation, error) {
	rec, err := scanRecommendation(s.pool.QueryRow(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recommendation: %w", err)
	}
	return rec, nil
}

// ListRecommendations returns a user's uploads, newest first.
func (s *PostgresStore) ListRecommendations(ctx context.Context, userID int) ([]models.Recommendation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// --- Saved outfits ---

// SaveOutfit bookmarks an outfit. Saving the same outfit twice returns ErrConflict.
func (s *PostgresStore) SaveOutfit(ctx context.Context, so *models.SavedOutfit) error {
	if so.UploadData == nil {
		so.UploadData = json.RawMessage("{}")
	}
	if so.OutfitData == nil {
		so.OutfitData = json.RawMessage("[]")
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO saved_outfits (upload_id, user_id, client_outfit_id, upload_data, outfit_data)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		so.UploadID, so.UserID, so.ClientOutfitID, so.UploadData, so.OutfitData,
	).Scan(&so.ID, &so.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("save outfit: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnsaveOutfit(ctx context.Context, userID int, uploadID uuid.UUID, clientOutfitID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM saved_outfits WHERE upload_id = $1 AND user_id = $2 AND client_outfit_id = $3`,
		uploadID, userID, clientOutfitID)
	if err != nil {
		return fmt.Errorf("unsave outfit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSavedOutfits returns a user's saved outfits, for one upload or, with a
// nil uploadID, for all of them.
func (s *PostgresStore) ListSavedOutfits(ctx context.Context, userID int, uploadID *uuid.UUID) ([]models.SavedOutfit, error) {
	query := `SELECT id, upload_id, user_id, client_outfit_id, upload_data, outfit_data, created_at
		FROM saved_outfits WHERE user_id = $1`
	args := []interface{}{userID}
	if uploadID != nil {
		query += ` AND upload_id = $2`
		args = append(args, *uploadID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list saved outfits: %w", err)
	}
	defer rows.Close()

	var saved []models.SavedOutfit
	for rows.Next() {
		var so models.SavedOutfit
		if err := rows.Scan(&so.ID, &so.UploadID, &so.UserID, &so.ClientOutfitID, &so.UploadData, &so.OutfitData, &so.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan saved outfit: %w", err)
		}
		saved = append(saved, so)
	}
	return saved, rows.Err()
}

// --- Catalog ---

const itemColumns = `cloth_id, gender, season, usage, color, type, name, url`

func scanItems(rows pgx.Rows) ([]models.CatalogItem, error) {
	defer rows.Close()
	var items []models.CatalogItem
	for rows.Next() {
		var it models.CatalogItem
		if err := rows.Scan(&it.ClothID, &it.Gender, &it.Season, &it.Usage, &it.Color, &it.Type, &it.Name, &it.URL); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ItemsByIDs returns the stored items among ids, in no particular order.
func (s *PostgresStore) ItemsByIDs(ctx context.Context, ids []int) ([]models.CatalogItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ids32 := make([]int32, len(ids))
	for i, id := range ids {
		ids32[i] = int32(id)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM catalog_items WHERE cloth_id = ANY($1)`, ids32)
	if err != nil {
		return nil, fmt.Errorf("items by ids: %w", err)
	}
	return scanItems(rows)
}

func (s *PostgresStore) GetItem(ctx context.Context, id int) (*models.CatalogItem, error) {
	items, err := s.ItemsByIDs(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// RandomItems returns up to limit randomly ordered items.
func (s *PostgresStore) RandomItems(ctx context.Context, limit int) ([]models.CatalogItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM catalog_items ORDER BY random() LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("random items: %w", err)
	}
	return scanItems(rows)
}

// ImportCatalog replaces the catalog with items using COPY.
func (s *PostgresStore) ImportCatalog(ctx context.Context, items []models.CatalogItem) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM catalog_items`); err != nil {
		return 0, fmt.Errorf("clear catalog: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"catalog_items"},
		strings.Split(strings.ReplaceAll(itemColumns, " ", ""), ","),
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			it := items[i]
			return []any{int32(it.ClothID), it.Gender, it.Season, it.Usage, it.Color, it.Type, it.Name, it.URL}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy catalog items: %w", err)
	}
	return n, tx.Commit(ctx)
}

// --- Compatibility ---

// groupColumn is the column prefix of a clothing group, e.g. "layered_wear".
func groupColumn(g models.ClothingGroup) string {
	return strings.ToLower(strings.ReplaceAll(string(g), " ", "_"))
}

func compatibilityColumns() []string {
	cols := []string{"row_index", "usage"}
	for _, g := range models.Groups {
		cols = append(cols, groupColumn(g), groupColumn(g)+"_color")
	}
	return cols
}

// ImportCompatibility replaces the compatibility rows. Colors are stored as
// pgvector values so nearest rows can be found in the database.
func (s *PostgresStore) ImportCompatibility(ctx context.Context, rows []models.CompatibilityRow) (int, error) {
	cols := compatibilityColumns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := `INSERT INTO compatibility_rows (` + strings.Join(cols, ", ") + `) VALUES (` + strings.Join(placeholders, ", ") + `)`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM compatibility_rows`); err != nil {
		return 0, fmt.Errorf("clear compatibility rows: %w", err)
	}

	const batchSize = 500
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		batch := &pgx.Batch{}
		for _, r := range rows[start:end] {
			args := []any{int32(r.Index), r.Usage}
			for _, g := range models.Groups {
				sl := r.Slots[g]
				var vec any
				if sl.HasColor {
					vec = pgvector.NewVector(sl.Color.Vector())
				}
				args = append(args, sl.Category, vec)
			}
			batch.Queue(insert, args...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("insert compatibility rows %d-%d: %w", start, end, err)
		}
	}
	return len(rows), tx.Commit(ctx)
}

// Nearest returns the compatibility rows ordered by L2 distance between their
// stored color for group and target, ties in row order. limit <= 0 returns
// every row with a color for the group.
func (s *PostgresStore) Nearest(ctx context.Context, group models.ClothingGroup, target models.Color, limit int) ([]models.CompatibilityMatch, error) {
	colorCol := groupColumn(group) + "_color"

	selectCols := []string{"row_index", "usage"}
	for _, g := range models.Groups {
		selectCols = append(selectCols, groupColumn(g), groupColumn(g)+"_color::text")
	}

	query := `SELECT ` + strings.Join(selectCols, ", ") + `, ` + colorCol + ` <-> $1 AS distance
		FROM compatibility_rows
		WHERE ` + colorCol + ` IS NOT NULL
		ORDER BY distance, row_index`
	args := []any{pgvector.NewVector(target.Vector())}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("nearest compatibility rows: %w", err)
	}
	defer rows.Close()

	var out []models.CompatibilityMatch
	for rows.Next() {
		var (
			index int32
			m     models.CompatibilityMatch
		)
		categories := make([]string, len(models.Groups))
		colors := make([]*string, len(models.Groups))
		dest := []any{&index, &m.Row.Usage}
		for i := range models.Groups {
			dest = append(dest, &categories[i], &colors[i])
		}
		dest = append(dest, &m.Distance)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan compatibility row: %w", err)
		}

		m.Row.Index = int(index)
		m.Row.Slots = make(map[models.ClothingGroup]models.Slot, len(models.Groups))
		for i, g := range models.Groups {
			sl := models.Slot{Category: categories[i]}
			if colors[i] != nil {
				c, err := models.ParseColor(*colors[i])
				if err != nil {
					return nil, errs.WrapDataIntegrity("scan compatibility row", err)
				}
				sl.Color, sl.HasColor = c, true
			}
			if sl.Category != "" || sl.HasColor {
				m.Row.Slots[g] = sl
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
