package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteRepo implements AuctionDB on SQLite. WAL mode, single writer.
type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLiteRepo opens (or creates) the database file and ensures the schema.
func NewSQLiteRepo(dbPath string) (*SQLiteRepo, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func createTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'investor',
		email TEXT NOT NULL UNIQUE,
		phone TEXT
	);
	CREATE TABLE IF NOT EXISTS auctions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT,
		initial_price REAL NOT NULL,
		current_bid REAL,
		image_filename TEXT,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'upcoming',
		bank_uploader_id INTEGER REFERENCES users(id),
		highest_bidder_id INTEGER REFERENCES users(id)
	);
	CREATE TABLE IF NOT EXISTS bids (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		amount REAL NOT NULL,
		created_at DATETIME NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id),
		auction_id INTEGER NOT NULL REFERENCES auctions(id)
	);
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		auction_id INTEGER NOT NULL REFERENCES auctions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_bids_auction ON bids(auction_id);
	CREATE INDEX IF NOT EXISTS idx_auctions_status ON auctions(status);
	`
	_, err := db.Exec(query)
	return err
}

const auctionColumns = `id, title, description, initial_price, current_bid, image_filename,
	start_time, end_time, status, bank_uploader_id, highest_bidder_id`

func scanAuction(row interface{ Scan(...any) error }) (model.Auction, error) {
	var (
		a             model.Auction
		currentBid    sql.NullFloat64
		imageFilename sql.NullString
		description   sql.NullString
		uploaderID    sql.NullInt64
		bidderID      sql.NullInt64
	)
	err := row.Scan(&a.AuctionID, &a.Title, &description, &a.InitialPrice, &currentBid,
		&imageFilename, &a.StartTime, &a.EndTime, &a.Status, &uploaderID, &bidderID)
	if err != nil {
		return model.Auction{}, err
	}
	a.Description = description.String
	a.ImageFilename = imageFilename.String
	a.BankUploaderID = uploaderID.Int64
	if currentBid.Valid {
		a.CurrentBid = &currentBid.Float64
	}
	if bidderID.Valid {
		a.HighestBidderID = &bidderID.Int64
	}
	a.StartTime = a.StartTime.UTC()
	a.EndTime = a.EndTime.UTC()
	return a, nil
}

// LoadAuction returns the stored auction by id
func (r *SQLiteRepo) LoadAuction(ctx context.Context, auctionID int64) (model.Auction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE id = ?`, auctionID)

	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("load auction %d: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("load auction %d: %w: %v", auctionID, auctionerrors.ErrPersistence, err)
	}
	return a, nil
}

// FindAuctions returns all auctions matching the filter, ordered by start time
func (r *SQLiteRepo) FindAuctions(ctx context.Context, filter AuctionFilter) ([]model.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions`
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !filter.StartedBefore.IsZero() {
		clauses = append(clauses, "start_time <= ?")
		args = append(args, filter.StartedBefore.UTC())
	}
	if !filter.EndedBefore.IsZero() {
		clauses = append(clauses, "end_time <= ?")
		args = append(args, filter.EndedBefore.UTC())
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_time ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find auctions: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer rows.Close()

	var out []model.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("find auctions: %w: %v", auctionerrors.ErrPersistence, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find auctions: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return out, nil
}

// CreateAuction inserts a new auction row and assigns its id
func (r *SQLiteRepo) CreateAuction(ctx context.Context, auction *model.Auction) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO auctions (title, description, initial_price, current_bid, image_filename,
			start_time, end_time, status, bank_uploader_id, highest_bidder_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		auction.Title, auction.Description, auction.InitialPrice, nullFloat(auction.CurrentBid),
		auction.ImageFilename, auction.StartTime.UTC(), auction.EndTime.UTC(),
		string(auction.Status), auction.BankUploaderID, nullInt(auction.HighestBidderID))
	if err != nil {
		return fmt.Errorf("create auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create auction: %w: %v", auctionerrors.ErrPersistence, err)
	}
	auction.AuctionID = id
	return nil
}

// SaveAuctionAndBid writes the updated auction row and the new bid row in
// one transaction. The bid's id is assigned on commit.
func (r *SQLiteRepo) SaveAuctionAndBid(ctx context.Context, auction model.Auction, bid *model.Bid) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save auction %d and bid: %w: %v", auction.AuctionID, auctionerrors.ErrPersistence, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE auctions SET current_bid = ?, highest_bidder_id = ? WHERE id = ?`,
		nullFloat(auction.CurrentBid), nullInt(auction.HighestBidderID), auction.AuctionID)
	if err != nil {
		return fmt.Errorf("save auction %d and bid: %w: %v", auction.AuctionID, auctionerrors.ErrPersistence, err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bids (amount, created_at, user_id, auction_id) VALUES (?, ?, ?, ?)`,
		bid.Amount, bid.CreatedAt.UTC(), bid.UserID, bid.AuctionID)
	if err != nil {
		return fmt.Errorf("save auction %d and bid: %w: %v", auction.AuctionID, auctionerrors.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save auction %d and bid: %w: %v", auction.AuctionID, auctionerrors.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save auction %d and bid: %w: %v", auction.AuctionID, auctionerrors.ErrPersistence, err)
	}
	bid.BidID = id
	return nil
}

// SaveAuctionBatch persists the status of every given auction in one transaction
func (r *SQLiteRepo) SaveAuctionBatch(ctx context.Context, auctions []model.Auction) error {
	if len(auctions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save auction batch: %w: %v", auctionerrors.ErrPersistence, err)
	}
	defer tx.Rollback()

	for _, a := range auctions {
		if _, err := tx.ExecContext(ctx,
			`UPDATE auctions SET status = ? WHERE id = ?`, string(a.Status), a.AuctionID); err != nil {
			return fmt.Errorf("save auction batch: auction %d: %w: %v", a.AuctionID, auctionerrors.ErrPersistence, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save auction batch: %w: %v", auctionerrors.ErrPersistence, err)
	}
	return nil
}

// GetBidsByAuction returns all bids for an auction, newest first
func (r *SQLiteRepo) GetBidsByAuction(ctx context.Context, auctionID int64) ([]model.Bid, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, created_at, user_id, auction_id FROM bids
		WHERE auction_id = ? ORDER BY created_at DESC, id DESC`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %d: %w: %v", auctionID, auctionerrors.ErrPersistence, err)
	}
	defer rows.Close()

	var out []model.Bid
	for rows.Next() {
		var b model.Bid
		var createdAt time.Time
		if err := rows.Scan(&b.BidID, &b.Amount, &createdAt, &b.UserID, &b.AuctionID); err != nil {
			return nil, fmt.Errorf("get bids for auction %d: %w: %v", auctionID, auctionerrors.ErrPersistence, err)
		}
		b.CreatedAt = createdAt.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get bids for auction %d: %w: %v", auctionID, auctionerrors.ErrPersistence, err)
	}
	return out, nil
}

// CreateUser inserts a new user row and assigns its id
func (r *SQLiteRepo) CreateUser(ctx context.Context, user *model.User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, email, phone) VALUES (?, ?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.Role, user.Email, user.Phone)
	if err != nil {
		return fmt.Errorf("create user %q: %w: %v", user.Username, auctionerrors.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create user %q: %w: %v", user.Username, auctionerrors.ErrPersistence, err)
	}
	user.UserID = id
	return nil
}

// GetUser returns the stored user by id
func (r *SQLiteRepo) GetUser(ctx context.Context, userID int64) (model.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, role, email, phone FROM users WHERE id = ?`, userID)
}

// GetUserByUsername returns the stored user by username
func (r *SQLiteRepo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, role, email, phone FROM users WHERE username = ?`, username)
}

func (r *SQLiteRepo) getUser(ctx context.Context, query string, arg any) (model.User, error) {
	var (
		u     model.User
		phone sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.UserID, &u.Username, &u.PasswordHash, &u.Role, &u.Email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("get user %v: %w", arg, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %v: %w: %v", arg, auctionerrors.ErrPersistence, err)
	}
	u.Phone = phone.String
	return u, nil
}

// CreateDocument inserts a new document row and assigns its id
func (r *SQLiteRepo) CreateDocument(ctx context.Context, doc *model.Document) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (filename, auction_id) VALUES (?, ?)`, doc.Filename, doc.AuctionID)
	if err != nil {
		return fmt.Errorf("create document for auction %d: %w: %v", doc.AuctionID, auctionerrors.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create document for auction %d: %w: %v", doc.AuctionID, auctionerrors.ErrPersistence, err)
	}
	doc.DocumentID = id
	return nil
}

// GetDocumentsByAuction returns all documents attached to an auction
func (r *SQLiteRepo) GetDocumentsByAuction(ctx context.Context, auctionID int64) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, filename, auction_id FROM documents WHERE auction_id = ?`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get documents for auction %d: %w: %v", auctionID, auctionerrors.ErrPersistence, err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.DocumentID, &d.Filename, &d.AuctionID); err != nil {
			return nil, fmt.Errorf("get documents for auction %d: %w: %v", auctionID, auctionerrors.ErrPersistence, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get documents for auction %d: %w: %v", auctionID, auctionerrors.ErrPersistence, err)
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
