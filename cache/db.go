package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"image"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

var errCorrupt = errors.New("cache: stored frame is corrupt")

// DB is a Cache persisted to an sqlite database.
type DB struct {
	db *sql.DB
}

// NewDB opens, creating if necessary, the sqlite database at file.
func NewDB(file string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS frame (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, width INTEGER NOT NULL, height INTEGER NOT NULL, stride INTEGER NOT NULL, pix BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{
		db: db,
	}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.db.Close()
}

// Get implements Cache.
func (db *DB) Get(key string) (*image.RGBA, bool, error) {
	var width, height, stride int
	var pix []byte
	switch err := db.db.QueryRow("SELECT width, height, stride, pix FROM frame WHERE sha1 = ?", key).Scan(&width, &height, &stride, &pix); err {
	case sql.ErrNoRows:
		return nil, false, nil
	case nil:
		if width <= 0 || height <= 0 || stride < width*4 || len(pix) != stride*height {
			return nil, false, fmt.Errorf("%w: %s", errCorrupt, key)
		}
		return &image.RGBA{
			Pix:    pix,
			Stride: stride,
			Rect:   image.Rect(0, 0, width, height),
		}, true, nil
	default:
		return nil, false, err
	}
}

// Put implements Cache. Only origin-anchored images are stored verbatim;
// anything else is copied first.
func (db *DB) Put(key string, m *image.RGBA) error {
	b := m.Bounds()
	pix := m.Pix
	stride := m.Stride
	if b.Min != (image.Point{}) || len(pix) != stride*b.Dy() {
		stride = b.Dx() * 4
		pix = make([]byte, 0, stride*b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := m.PixOffset(b.Min.X, y)
			pix = append(pix, m.Pix[i:i+stride]...)
		}
	}

	if _, err := db.db.Exec("INSERT OR REPLACE INTO frame (sha1, width, height, stride, pix) VALUES (?, ?, ?, ?, ?)", key, b.Dx(), b.Dy(), stride, pix); err != nil {
		return err
	}
	return nil
}

// Len returns the number of stored frames.
func (db *DB) Len() (int, error) {
	var n int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM frame").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
