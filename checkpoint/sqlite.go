package checkpoint

import (
	"bytes"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"doodlenet/neuralnet"
)

const schema = `CREATE TABLE IF NOT EXISTS checkpoints (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at INTEGER NOT NULL,
	layers     INTEGER NOT NULL,
	payload    BLOB    NOT NULL
)`

// SQLiteStore appends every checkpoint to a table and loads the newest.
// Only the newest Keep rows are retained; Keep <= 0 keeps everything.
type SQLiteStore struct {
	db   *sql.DB
	keep int
}

func OpenSQLite(path string, keep int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open checkpoint db %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create checkpoint table")
	}
	return &SQLiteStore{db: db, keep: keep}, nil
}

func (s *SQLiteStore) Save(nn *neuralnet.NeuralNetwork) error {
	var buf bytes.Buffer
	if err := Encode(&buf, nn); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin checkpoint tx")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO checkpoints (created_at, layers, payload) VALUES (?, ?, ?)`,
		time.Now().Unix(), len(nn.Layers()), buf.Bytes()); err != nil {
		return errors.Wrap(err, "insert checkpoint")
	}
	if s.keep > 0 {
		if _, err := tx.Exec(`DELETE FROM checkpoints WHERE id NOT IN
			(SELECT id FROM checkpoints ORDER BY id DESC LIMIT ?)`, s.keep); err != nil {
			return errors.Wrap(err, "prune checkpoints")
		}
	}
	return errors.Wrap(tx.Commit(), "commit checkpoint")
}

func (s *SQLiteStore) Load() (*neuralnet.NeuralNetwork, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM checkpoints ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query checkpoint")
	}
	return Decode(bytes.NewReader(payload))
}

// Entry describes one retained checkpoint.
type Entry struct {
	ID      int64
	Created time.Time
	Layers  int
}

// History lists retained checkpoints, newest first.
func (s *SQLiteStore) History() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT id, created_at, layers FROM checkpoints ORDER BY id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "query checkpoint history")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &created, &e.Layers); err != nil {
			return nil, errors.Wrap(err, "scan checkpoint history")
		}
		e.Created = time.Unix(created, 0)
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "read checkpoint history")
}

// Count reports how many checkpoints are retained.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM checkpoints`).Scan(&n)
	return n, errors.Wrap(err, "count checkpoints")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
