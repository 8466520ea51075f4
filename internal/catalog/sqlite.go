package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore backs the catalog and interaction log with a local SQLite
// database. In production deployments the catalog tables are populated
// by the storefront admin; Seed fills them for development and tests.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *SQLiteStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price REAL NOT NULL DEFAULT 0,
			calories INTEGER NOT NULL DEFAULT 0,
			ingredients TEXT NOT NULL DEFAULT '',
			health_benefit TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			order_count INTEGER NOT NULL DEFAULT 0,
			avg_rating REAL NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			available INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_available ON products(available, category)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			locale TEXT NOT NULL DEFAULT 'id'
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id TEXT,
			input TEXT NOT NULL,
			input_type TEXT NOT NULL DEFAULT 'text',
			output TEXT NOT NULL DEFAULT '',
			intent TEXT NOT NULL DEFAULT '',
			latency_ms INTEGER NOT NULL DEFAULT 0,
			rating INTEGER,
			status TEXT NOT NULL DEFAULT 'completed',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at, intent)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const productCols = `id, name, description, price, calories, ingredients,
	health_benefit, image_url, order_count, avg_rating, category, available, created_at`

func (s *SQLiteStore) ListAvailable(ctx context.Context, filter Filter) ([]Product, error) {
	query := `SELECT ` + productCols + ` FROM products WHERE available = 1`
	args := []any{}
	if strings.TrimSpace(filter.Category) != "" {
		query += ` AND LOWER(category) = LOWER(?)`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY order_count DESC, name ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	var p Product
	if err := scanProduct(row, &p); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, locale FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Locale)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) RecordInteraction(ctx context.Context, rec *Interaction) error {
	var userID any
	if strings.TrimSpace(rec.UserID) != "" {
		userID = rec.UserID
	}
	var rating any
	if rec.Rating > 0 {
		rating = rec.Rating
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (id, session_id, user_id, input, input_type, output, intent, latency_ms, rating, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, userID, rec.Input, rec.InputType,
		rec.Output, rec.Intent, rec.LatencyMs, rating, rec.Status)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RateInteraction(ctx context.Context, id string, rating int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE interactions SET rating = ? WHERE id = ?`, rating, id)
	if err != nil {
		return fmt.Errorf("rate interaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rate interaction result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("interaction %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) IntentCounts(ctx context.Context, sinceDays int) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT intent, COUNT(*) FROM interactions
		WHERE created_at >= datetime('now', ?)
		GROUP BY intent`,
		fmt.Sprintf("-%d days", sinceDays))
	if err != nil {
		return nil, fmt.Errorf("intent counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var intent string
		var n int
		if err := rows.Scan(&intent, &n); err != nil {
			return nil, fmt.Errorf("scan intent count: %w", err)
		}
		counts[intent] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intent counts: %w", err)
	}
	return counts, nil
}

// InsertProduct adds one catalog row; used by Seed and tests.
func (s *SQLiteStore) InsertProduct(ctx context.Context, p Product) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (name, description, price, calories, ingredients,
			health_benefit, image_url, order_count, avg_rating, category, available)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Price, p.Calories, p.Ingredients,
		p.HealthBenefit, p.ImageURL, p.OrderCount, p.AvgRating, p.Category, boolToInt(p.Available))
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert product id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) countProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner, p *Product) error {
	var available int
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Calories,
		&p.Ingredients, &p.HealthBenefit, &p.ImageURL, &p.OrderCount,
		&p.AvgRating, &p.Category, &available, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("scan product: %w", err)
	}
	p.Available = available != 0
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
