package localmpo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/fumin/tensornet/itensor"
)

const tableEnv = "env"

// An envStore pages environment tensors out to a sqlite database, keyed by
// slot and flattened element position. Index sets stay in memory; only the
// dense payload goes to disk.
type envStore struct {
	path string
	db   *sql.DB
}

func newEnvStore(dbPath string) (*envStore, error) {
	s := &envStore{path: dbPath}
	var err error
	s.db, err = newDB(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return s, nil
}

func (s *envStore) Close() error {
	var err error
	if err1 := s.db.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err1 := os.Remove(s.path); err1 != nil && err == nil {
		err = err1
	}
	return err
}

func (s *envStore) put(slot int, t *itensor.Tensor) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer tx.Rollback()

	sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE slot=?`, tableEnv)
	if _, err := tx.ExecContext(ctx, sqlStr, slot); err != nil {
		return errors.Wrap(err, "")
	}

	sqlStr = fmt.Sprintf(`INSERT INTO %s (slot, pos, re, im) VALUES (?, ?, ?, ?)`, tableEnv)
	dims := t.Inds().Dims()
	for digits, v := range t.Dense().All() {
		if v == 0 {
			continue
		}
		pos := flatten(dims, digits)
		if _, err := tx.ExecContext(ctx, sqlStr, slot, pos, real(v), imag(v)); err != nil {
			return errors.Wrap(err, fmt.Sprintf("slot %d pos %d", slot, pos))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func (s *envStore) get(slot int, inds itensor.IndexSet) (*itensor.Tensor, error) {
	t := itensor.New(inds...)
	dims := inds.Dims()
	digits := make([]int, len(dims))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT pos, re, im FROM %s WHERE slot=?`, tableEnv)
	rows, err := s.db.QueryContext(ctx, sqlStr, slot)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	for rows.Next() {
		var pos int
		var re, im float32
		if err := rows.Scan(&pos, &re, &im); err != nil {
			return nil, errors.Wrap(err, "")
		}
		unflatten(digits, dims, pos)
		t.SetAt(digits, complex(re, im))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	return t, nil
}

func flatten(dims, digits []int) int {
	pos := 0
	for k, d := range digits {
		pos = pos*dims[k] + d
	}
	return pos
}

func unflatten(digits, dims []int, pos int) {
	for k := len(dims) - 1; k >= 0; k-- {
		digits[k] = pos % dims[k]
		pos /= dims[k]
	}
}

func newDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}

	return db, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableEnv)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE %s (slot INTEGER, pos INTEGER, re REAL, im REAL, PRIMARY KEY (slot, pos)) STRICT`, tableEnv)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
