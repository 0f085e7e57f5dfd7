// Package samplestore persists call-stack samples in a SQLite database, so a
// sampling run can be recorded once and synthesized into traces later.
package samplestore

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/tracelab/scopetrace/sampling"
)

const sampleTable = "samples"

// sampleEntry is the row layout. Stacks are stored collapsed, joined by
// semicolons, root-first.
type sampleEntry struct {
	TimestampS float64
	Stack      string
}

// Store reads and writes sample batches in one SQLite database. Writes are
// buffered and flushed in transactions; a flush is also registered at process
// exit.
type Store struct {
	mu sync.Mutex

	db       *sql.DB
	filename string

	buffer    []sampleEntry
	batchSize int
}

// Create creates a new database for recording. An empty path picks a
// generated name. The ".sqlite3" suffix is appended when missing, and an
// already existing file is an error, so a recording is never silently
// appended to.
func Create(path string) (*Store, error) {
	if path == "" {
		path = "scopetrace_samples_" + xid.New().String()
	}

	filename := path
	if !strings.HasSuffix(filename, ".sqlite3") {
		filename += ".sqlite3"
	}

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("samplestore: file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("samplestore: opening database: %w", err)
	}

	fields := strings.Join(structs.Names(sampleEntry{}), ", \n\t")
	createTableSQL := `CREATE TABLE ` + sampleTable +
		` (` + "\n\t" + fields + "\n" + `);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("samplestore: creating table: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database created for sample recording: %s\n",
		filename)

	s := &Store{
		db:        db,
		filename:  filename,
		batchSize: 100000,
	}

	atexit.Register(func() { s.Flush() })

	return s, nil
}

// Open opens an existing sample database for reading.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("samplestore: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("samplestore: opening database: %w", err)
	}

	return &Store{
		db:        db,
		filename:  path,
		batchSize: 100000,
	}, nil
}

// Filename returns the path of the backing database file.
func (s *Store) Filename() string {
	return s.filename
}

// Put buffers one sample for insertion. The buffer is flushed automatically
// when it reaches the batch size.
func (s *Store) Put(sample sampling.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, sampleEntry{
		TimestampS: sample.TimestampS,
		Stack:      strings.Join(sample.Stack, ";"),
	})

	if len(s.buffer) >= s.batchSize {
		return s.flushLocked()
	}

	return nil
}

// Flush writes all buffered samples in one transaction.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if len(s.buffer) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("samplestore: beginning transaction: %w", err)
	}

	stmt, err := tx.Prepare(insertSQL())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("samplestore: preparing insert: %w", err)
	}

	for _, entry := range s.buffer {
		values := make([]any, 0, 2)

		fields := reflect.ValueOf(entry)
		for i := 0; i < fields.NumField(); i++ {
			values = append(values, fields.Field(i).Interface())
		}

		if _, err := stmt.Exec(values...); err != nil {
			stmt.Close()
			tx.Rollback()

			return fmt.Errorf("samplestore: inserting sample: %w", err)
		}
	}

	stmt.Close()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("samplestore: committing transaction: %w", err)
	}

	s.buffer = s.buffer[:0]

	return nil
}

func insertSQL() string {
	n := structs.Names(sampleEntry{})
	for i := range n {
		n[i] = "?"
	}

	return "INSERT INTO " + sampleTable +
		" VALUES (" + strings.Join(n, ", ") + ")"
}

// Load returns every stored sample ordered by timestamp, ready for the
// synthesizer.
func (s *Store) Load() ([]sampling.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		return nil, err
	}

	fields := strings.Join(structs.Names(sampleEntry{}), ", ")
	rows, err := s.db.Query(
		"SELECT " + fields + " FROM " + sampleTable +
			" ORDER BY TimestampS")
	if err != nil {
		return nil, fmt.Errorf("samplestore: querying samples: %w", err)
	}
	defer rows.Close()

	samples := make([]sampling.Sample, 0)
	for rows.Next() {
		var entry sampleEntry
		if err := rows.Scan(&entry.TimestampS, &entry.Stack); err != nil {
			return nil, fmt.Errorf("samplestore: scanning sample: %w", err)
		}

		samples = append(samples, sampling.Sample{
			TimestampS: entry.TimestampS,
			Stack:      strings.Split(entry.Stack, ";"),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("samplestore: reading samples: %w", err)
	}

	return samples, nil
}

// Close flushes buffered samples and closes the database.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}

	return s.db.Close()
}
