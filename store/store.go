// ════════════════════════════════════════════════════════════════════════════════════════════════
// Decoded Trace Archive
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: SQLite persistence for decoded records and gaps
//
// Description:
//   Keeps decoded sessions across tool runs so a long capture history can be
//   queried by class, level or sequence range without re-decoding. One session
//   per capture, keyed by the capture's session UUID; re-saving the same
//   session is idempotent.
//
// Schema:
//   sessions(session, build_id, source, created_at)
//   records(session, seq, ref, known, level, class, code, file, line, text, params)
//   gaps(session, from_seq, count)
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"firmtrace/decoder"
	"firmtrace/types"
)

var ErrNoSession = errors.New("store: unknown session")

// Store is an open archive.
type Store struct {
	db *sql.DB
}

// Session describes one archived capture.
type Session struct {
	ID        string
	BuildID   uint32
	Source    string
	CreatedAt time.Time
	Records   int
}

// Open opens or creates the archive at path. ":memory:" gives a private
// in-memory archive.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" archives coherent.
	db.SetMaxOpenConns(1)

	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func configure(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("store: %s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		session    TEXT PRIMARY KEY,
		build_id   INTEGER NOT NULL,
		source     TEXT NOT NULL,
		created_at INTEGER NOT NULL
	) WITHOUT ROWID;

	CREATE TABLE IF NOT EXISTS records (
		session TEXT NOT NULL,
		seq     INTEGER NOT NULL,
		ref     INTEGER NOT NULL,
		known   INTEGER NOT NULL,
		level   INTEGER NOT NULL,
		class   INTEGER NOT NULL,
		code    INTEGER NOT NULL,
		file    TEXT NOT NULL,
		line    INTEGER NOT NULL,
		format  TEXT NOT NULL,
		text    TEXT NOT NULL,
		params  BLOB,
		PRIMARY KEY (session, seq)
	) WITHOUT ROWID;

	CREATE INDEX IF NOT EXISTS records_class ON records (class, level);

	CREATE TABLE IF NOT EXISTS gaps (
		session  TEXT NOT NULL,
		from_seq INTEGER NOT NULL,
		count    INTEGER NOT NULL,
		PRIMARY KEY (session, from_seq)
	) WITHOUT ROWID;
	`)
	return err
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// WRITES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Save archives one decoded batch under session in a single transaction.
// Records and gaps already present are left untouched, so saving a reloaded
// capture again only adds what is new.
func (s *Store) Save(session string, buildID uint32, source string, recs []decoder.Record, gaps []decoder.Gap) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`INSERT OR IGNORE INTO sessions (session, build_id, source, created_at) VALUES (?, ?, ?, ?)`,
		session, buildID, source, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: session: %w", err)
	}

	recStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO records
		(session, seq, ref, known, level, class, code, file, line, format, text, params)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare records: %w", err)
	}
	defer recStmt.Close()

	for i := range recs {
		r := &recs[i]
		if _, err = recStmt.Exec(session, r.Seq, r.Ref, r.Known, uint32(r.Level),
			uint32(r.Class()), r.Component.Code(), r.File, r.Line, r.Format, r.Text,
			packParams(r.Params)); err != nil {
			return fmt.Errorf("store: record %d: %w", r.Seq, err)
		}
	}

	gapStmt, err := tx.Prepare(`INSERT OR IGNORE INTO gaps (session, from_seq, count) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare gaps: %w", err)
	}
	defer gapStmt.Close()

	for _, g := range gaps {
		if _, err = gapStmt.Exec(session, g.From, g.Count); err != nil {
			return fmt.Errorf("store: gap %d: %w", g.From, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func packParams(p []uint32) []byte {
	if len(p) == 0 {
		return nil
	}
	b := make([]byte, 0, 4*len(p))
	for _, v := range p {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return b
}

func unpackParams(b []byte) []uint32 {
	if len(b) < 4 {
		return nil
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// READS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Query selects archived records. Zero-valued fields do not constrain.
type Query struct {
	Session string
	Classes []types.Class
	Levels  []types.Level
	FromSeq uint32
	ToSeq   uint32 // inclusive; 0 means unbounded
	Limit   int
}

// Records returns matching records ordered by session then sequence.
func (s *Store) Records(q Query) ([]decoder.Record, error) {
	var (
		where []string
		args  []any
	)
	if q.Session != "" {
		where = append(where, "session = ?")
		args = append(args, q.Session)
	}
	if len(q.Classes) > 0 {
		where = append(where, "class IN ("+placeholders(len(q.Classes))+")")
		for _, c := range q.Classes {
			args = append(args, uint32(c))
		}
	}
	if len(q.Levels) > 0 {
		where = append(where, "level IN ("+placeholders(len(q.Levels))+")")
		for _, l := range q.Levels {
			args = append(args, uint32(l))
		}
	}
	if q.FromSeq > 0 {
		where = append(where, "seq >= ?")
		args = append(args, q.FromSeq)
	}
	if q.ToSeq > 0 {
		where = append(where, "seq <= ?")
		args = append(args, q.ToSeq)
	}

	stmt := `SELECT seq, ref, known, level, class, code, file, line, format, text, params FROM records`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY session, seq"
	if q.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	var out []decoder.Record
	for rows.Next() {
		var (
			r                  decoder.Record
			level, class, code uint32
			params             []byte
		)
		if err := rows.Scan(&r.Seq, &r.Ref, &r.Known, &level, &class, &code,
			&r.File, &r.Line, &r.Format, &r.Text, &params); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		r.Level = types.Level(level)
		r.Component = types.Class(class).Component(code)
		r.Params = unpackParams(params)
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Gaps returns the archived gaps of a session in sequence order.
func (s *Store) Gaps(session string) ([]decoder.Gap, error) {
	rows, err := s.db.Query(`SELECT from_seq, count FROM gaps WHERE session = ? ORDER BY from_seq`, session)
	if err != nil {
		return nil, fmt.Errorf("store: gaps: %w", err)
	}
	defer rows.Close()

	var out []decoder.Gap
	for rows.Next() {
		var g decoder.Gap
		if err := rows.Scan(&g.From, &g.Count); err != nil {
			return nil, fmt.Errorf("store: scan gap: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Session looks up one archived session.
func (s *Store) Session(id string) (Session, error) {
	var (
		out     = Session{ID: id}
		created int64
	)
	err := s.db.QueryRow(`
		SELECT s.build_id, s.source, s.created_at,
		       (SELECT COUNT(*) FROM records r WHERE r.session = s.session)
		FROM sessions s WHERE s.session = ?`, id).
		Scan(&out.BuildID, &out.Source, &created, &out.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return out, fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	if err != nil {
		return out, fmt.Errorf("store: session: %w", err)
	}
	out.CreatedAt = time.Unix(created, 0)
	return out, nil
}

// Sessions lists archived sessions, oldest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT s.session, s.build_id, s.source, s.created_at,
		       (SELECT COUNT(*) FROM records r WHERE r.session = s.session)
		FROM sessions s ORDER BY s.created_at, s.session`)
	if err != nil {
		return nil, fmt.Errorf("store: sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			ss      Session
			created int64
		)
		if err := rows.Scan(&ss.ID, &ss.BuildID, &ss.Source, &created, &ss.Records); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		ss.CreatedAt = time.Unix(created, 0)
		out = append(out, ss)
	}
	return out, rows.Err()
}

// ClassCounts returns the number of archived records per class for session,
// or across all sessions when session is empty.
func (s *Store) ClassCounts(session string) (map[types.Class]int, error) {
	stmt := `SELECT class, COUNT(*) FROM records`
	var args []any
	if session != "" {
		stmt += ` WHERE session = ?`
		args = append(args, session)
	}
	rows, err := s.db.Query(stmt+` GROUP BY class`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: class counts: %w", err)
	}
	defer rows.Close()

	out := make(map[types.Class]int)
	for rows.Next() {
		var (
			class uint32
			n     int
		)
		if err := rows.Scan(&class, &n); err != nil {
			return nil, fmt.Errorf("store: scan count: %w", err)
		}
		out[types.Class(class)] = n
	}
	return out, rows.Err()
}
