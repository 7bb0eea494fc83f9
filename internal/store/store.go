package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/seiri/internal/models"
)

// Neighbor pairs a record with its distance to the query vector.
type Neighbor struct {
	Record   *models.Record
	Distance float64
}

// Store is the dual-collection vector record store. Record metadata and
// embeddings are persisted in SQLite; each collection additionally keeps its
// embeddings in memory for nearest-neighbor search. Collections are created
// lazily on first use with their dimensionality fixed for the process
// lifetime.
type Store struct {
	db          *sql.DB
	textDims    int
	visualDims  int
	mu          sync.Mutex
	collections map[models.Collection]*collection
}

// Open opens or creates the record database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string, textDims, visualDims int) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{
		db:          db,
		textDims:    textDims,
		visualDims:  visualDims,
		collections: make(map[models.Collection]*collection),
	}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		source_path TEXT NOT NULL,
		display_name TEXT NOT NULL,
		media_class TEXT NOT NULL,
		collection TEXT NOT NULL,
		embedding BLOB NOT NULL,
		auxiliary_path TEXT,
		attributes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
	CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// getCollection returns the collection, creating it on first use with the
// configured dimensionality. Once created, dimensionality is immutable.
func (s *Store) getCollection(col models.Collection) (*collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[col]; ok {
		return c, nil
	}
	dims := s.textDims
	if col == models.CollectionVisual {
		dims = s.visualDims
	}
	c, err := newCollection(dims)
	if err != nil {
		return nil, err
	}
	s.collections[col] = c
	return c, nil
}

// Insert persists the record and indexes its embedding in the collection
// owned by its media class. The insert is rejected with ErrInvalidDimension
// when the embedding length does not match the collection's dimensionality.
// An existing record with the same ID is replaced.
func (s *Store) Insert(ctx context.Context, rec *models.Record) (string, error) {
	col := models.CollectionFor(rec.MediaClass)
	c, err := s.getCollection(col)
	if err != nil {
		return "", err
	}
	if len(rec.Embedding) != c.dimensions {
		return "", fmt.Errorf("%w: got %d, expected %d for %s collection",
			ErrInvalidDimension, len(rec.Embedding), c.dimensions, col)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	attrsJSON, err := json.Marshal(rec.Attributes)
	if err != nil {
		return "", fmt.Errorf("failed to marshal attributes: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records
		 (id, content, source_path, display_name, media_class, collection, embedding, auxiliary_path, attributes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Content, rec.SourcePath, rec.DisplayName, string(rec.MediaClass),
		string(col), embeddingToBytes(rec.Embedding), rec.AuxiliaryPath, string(attrsJSON), rec.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store record: %w", err)
	}
	if err := c.add(rec.ID, rec.Embedding); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// DeleteByID removes a record by ID. The delete is attempted against both
// collections and the database; absence anywhere is not an error, so the
// operation is idempotent.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	cols := make([]*collection, 0, len(s.collections))
	for _, c := range s.collections {
		cols = append(cols, c)
	}
	s.mu.Unlock()
	for _, c := range cols {
		c.remove(id)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// GetByID returns a record by ID, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecords+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// Count returns the total number of stored records across both collections.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// ScanAll returns up to limit records, oldest first. limit <= 0 returns all.
func (s *Store) ScanAll(ctx context.Context, limit int) ([]*models.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectRecords+` ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// NearestNeighbors returns the k records in col closest to the query vector,
// nearest first. An empty or not-yet-created collection yields no results.
func (s *Store) NearestNeighbors(ctx context.Context, col models.Collection, query []float32, k int) ([]Neighbor, error) {
	c, err := s.getCollection(col)
	if err != nil {
		return nil, err
	}
	hits, err := c.search(query, k)
	if err != nil {
		return nil, err
	}
	neighbors := make([]Neighbor, 0, len(hits))
	for _, h := range hits {
		rec, err := s.GetByID(ctx, h.ID)
		if err != nil || rec == nil {
			continue
		}
		neighbors = append(neighbors, Neighbor{Record: rec, Distance: h.Distance})
	}
	return neighbors, nil
}

// CollectionSize returns the number of vectors currently indexed in col.
// A collection that has never been used reports zero without being created.
func (s *Store) CollectionSize(col models.Collection) int {
	s.mu.Lock()
	c, ok := s.collections[col]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return c.size()
}

// Rebuild loads every persisted embedding back into its in-memory collection.
// Called once at startup.
func (s *Store) Rebuild(ctx context.Context) error {
	recs, err := s.ScanAll(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to scan records: %w", err)
	}
	for _, rec := range recs {
		c, err := s.getCollection(models.CollectionFor(rec.MediaClass))
		if err != nil {
			return err
		}
		if err := c.add(rec.ID, rec.Embedding); err != nil {
			return fmt.Errorf("record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectRecords = `SELECT id, content, source_path, display_name, media_class, embedding, auxiliary_path, attributes, created_at FROM records`

func scanRecords(rows *sql.Rows) ([]*models.Record, error) {
	var recs []*models.Record
	for rows.Next() {
		var rec models.Record
		var mediaClass string
		var embedding []byte
		var aux sql.NullString
		var attrsJSON sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.SourcePath, &rec.DisplayName,
			&mediaClass, &embedding, &aux, &attrsJSON, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.MediaClass = models.MediaClass(mediaClass)
		rec.Embedding = bytesToEmbedding(embedding)
		rec.AuxiliaryPath = aux.String
		if attrsJSON.Valid && attrsJSON.String != "" && attrsJSON.String != "null" {
			if err := json.Unmarshal([]byte(attrsJSON.String), &rec.Attributes); err != nil {
				return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
			}
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func embeddingToBytes(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(f))
	}
	return out
}

func bytesToEmbedding(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
