package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/chzchzchz/freqshow/dsp"
	"github.com/chzchzchz/freqshow/radio"
)

const (
	createSessionsTmpl = `CREATE TABLE IF NOT EXISTS sessions (
		"ID"      TEXT NOT NULL PRIMARY KEY,
		"Device"  TEXT NOT NULL,
		"Start"   INTEGER NOT NULL
	);`
	createFramesTmpl = `CREATE TABLE IF NOT EXISTS frames (
		"ID"         INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"Session"    TEXT NOT NULL REFERENCES sessions(ID),
		"Time"       INTEGER NOT NULL,
		"CenterMHz"  REAL NOT NULL,
		"WidthMHz"   REAL NOT NULL,
		"Gain"       TEXT NOT NULL,
		"DBLow"      REAL,
		"DBHigh"     REAL,
		"Bins"       BLOB NOT NULL
	);`
	createMySQLSessionsTmpl = `CREATE TABLE IF NOT EXISTS sessions (
		ID      VARCHAR(36) NOT NULL PRIMARY KEY,
		Device  TEXT NOT NULL,
		Start   BIGINT NOT NULL
	);`
	createMySQLFramesTmpl = `CREATE TABLE IF NOT EXISTS frames (
		ID         BIGINT NOT NULL PRIMARY KEY AUTO_INCREMENT,
		Session    VARCHAR(36) NOT NULL,
		Time       BIGINT NOT NULL,
		CenterMHz  DOUBLE NOT NULL,
		WidthMHz   DOUBLE NOT NULL,
		Gain       VARCHAR(16) NOT NULL,
		DBLow      DOUBLE,
		DBHigh     DOUBLE,
		Bins       MEDIUMBLOB NOT NULL,
		INDEX (Session)
	);`
	insertSessionTmpl = `INSERT INTO sessions(ID, Device, Start) VALUES (?, ?, ?);`
	insertFrameTmpl   = `INSERT INTO frames(
		Session,
		Time,
		CenterMHz,
		WidthMHz,
		Gain,
		DBLow,
		DBHigh,
		Bins
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`
	selectFramesTmpl = `SELECT ID, Session, Time, CenterMHz, WidthMHz, Gain, Bins
		FROM frames WHERE Session = ? ORDER BY ID LIMIT ?;`
	selectSessionsTmpl = `SELECT s.ID, s.Device, s.Start, COUNT(f.ID)
		FROM sessions s LEFT JOIN frames f ON f.Session = s.ID
		GROUP BY s.ID ORDER BY s.Start;`
)

// Frame is one acquired spectrum with the tuning it was taken at.
type Frame struct {
	ID      int64          `json:"id"`
	Session string         `json:"session"`
	Time    time.Time      `json:"time"`
	Band    radio.FreqBand `json:"band"`
	Gain    string         `json:"gain"`
	Bins    []float64      `json:"-"`
}

// MinMax of the frame's bins.
func (f *Frame) MinMax() (float64, float64) { return dsp.MinMax(f.Bins) }

type Session struct {
	ID     string    `json:"id"`
	Device string    `json:"device"`
	Start  time.Time `json:"start"`
	Frames int       `json:"frames"`
}

// FrameStore records acquired frames in sqlite or MySQL, grouped into
// sessions.
type FrameStore struct {
	db     *sql.DB
	insert *sql.Stmt
}

// OpenFrameStore opens (or creates) a sqlite database file.
func OpenFrameStore(path string) (*FrameStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite DB %q: %w", path, err)
	}
	return newFrameStore(db, createSessionsTmpl, createFramesTmpl)
}

// OpenMySQLFrameStore connects to a MySQL server shared by several
// recorders.
func OpenMySQLFrameStore(cfg *mysql.Config) (*FrameStore, error) {
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to open MySQL DB %q: %w", cfg.Addr, err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	return newFrameStore(db, createMySQLSessionsTmpl, createMySQLFramesTmpl)
}

func newFrameStore(db *sql.DB, creates ...string) (*FrameStore, error) {
	for _, tmpl := range creates {
		if _, err := db.Exec(tmpl); err != nil {
			db.Close()
			return nil, fmt.Errorf("unable to create table: %w", err)
		}
	}
	insert, err := db.Prepare(insertFrameTmpl)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &FrameStore{db: db, insert: insert}, nil
}

func (fs *FrameStore) Close() error {
	fs.insert.Close()
	return fs.db.Close()
}

// StartSession returns the id of a new recording session.
func (fs *FrameStore) StartSession(ctx context.Context, device string) (string, error) {
	id := uuid.NewString()
	if _, err := fs.db.ExecContext(ctx, insertSessionTmpl, id, device, time.Now().UnixMilli()); err != nil {
		return "", err
	}
	return id, nil
}

func finiteOrNull(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// Record stores f under f.Session and returns its id. A zero Time is
// stamped with the current time.
func (fs *FrameStore) Record(ctx context.Context, f *Frame) (int64, error) {
	if f.Time.IsZero() {
		f.Time = time.Now()
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, f.Bins); err != nil {
		return 0, err
	}
	lo, hi := f.MinMax()
	res, err := fs.insert.ExecContext(ctx,
		f.Session,
		f.Time.UnixMilli(),
		f.Band.Center,
		f.Band.Width,
		f.Gain,
		finiteOrNull(lo),
		finiteOrNull(hi),
		buf.Bytes())
	if err != nil {
		return 0, err
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return 0, err
	}
	return f.ID, nil
}

// Frames returns up to limit frames of a session in recording order. A
// negative limit returns them all.
func (fs *FrameStore) Frames(ctx context.Context, session string, limit int) ([]Frame, error) {
	if limit < 0 {
		limit = math.MaxInt32
	}
	rows, err := fs.db.QueryContext(ctx, selectFramesTmpl, session, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []Frame
	for rows.Next() {
		var (
			f    Frame
			ms   int64
			bins []byte
		)
		if err := rows.Scan(&f.ID, &f.Session, &ms, &f.Band.Center, &f.Band.Width, &f.Gain, &bins); err != nil {
			return nil, err
		}
		if len(bins)%8 != 0 {
			return nil, fmt.Errorf("frame %d: corrupt bins (%d bytes)", f.ID, len(bins))
		}
		f.Time = time.UnixMilli(ms)
		f.Bins = make([]float64, len(bins)/8)
		if err := binary.Read(bytes.NewReader(bins), binary.LittleEndian, f.Bins); err != nil {
			return nil, err
		}
		ret = append(ret, f)
	}
	return ret, rows.Err()
}

func (fs *FrameStore) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := fs.db.QueryContext(ctx, selectSessionsTmpl)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []Session
	for rows.Next() {
		var (
			s  Session
			ms int64
		)
		if err := rows.Scan(&s.ID, &s.Device, &ms, &s.Frames); err != nil {
			return nil, err
		}
		s.Start = time.UnixMilli(ms)
		ret = append(ret, s)
	}
	return ret, rows.Err()
}
