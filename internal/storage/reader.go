package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/apigraph/internal/decl"
)

// ErrNotFound is returned when no record has the requested USR.
var ErrNotFound = errors.New("record not found")

// DefaultSearchLimit caps SearchByName when no limit is given.
const DefaultSearchLimit = 50

// StoredRecord is a record as persisted: references are flattened into
// relationships and fragments keep their identifiers but not their declarations.
type StoredRecord struct {
	USR                string
	ParentUSR          string
	Name               string
	Kind               string
	Location           decl.Location
	IsFromSystemHeader bool
	Linkage            string
	Comment            string
	Availability       []decl.Availability

	Declaration   []Fragment
	SubHeading    []Fragment
	Relationships []Relationship
}

// Fragment is one stored declaration token.
type Fragment struct {
	Spelling          string
	Kind              string
	PreciseIdentifier string
}

// Relationship is one stored edge from a record.
type Relationship struct {
	Kind       string
	TargetUSR  string
	TargetName string
}

// DeclarationText concatenates the declaration fragments.
func (r *StoredRecord) DeclarationText() string {
	var b strings.Builder
	for _, f := range r.Declaration {
		b.WriteString(f.Spelling)
	}
	return b.String()
}

// Reader handles reading stored API sets and documents.
type Reader struct {
	db *sql.DB
}

// NewReader creates a Reader on an open database. The caller owns the connection.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

var recordColumns = []string{
	"usr", "COALESCE(parent_usr, '')", "name", "kind", "file_path", "line", "col",
	"system_header", "linkage", "comment", "availability",
}

// ReadRecord loads one record with its fragments and relationships.
func (r *Reader) ReadRecord(usr string) (*StoredRecord, error) {
	row := sq.Select(recordColumns...).
		From("records").
		Where(sq.Eq{"usr": usr}).
		RunWith(r.db).
		QueryRow()

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, usr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", usr, err)
	}
	if err := r.hydrate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Members loads the direct members of a record in order.
func (r *Reader) Members(usr string) ([]*StoredRecord, error) {
	rows, err := sq.Select(recordColumns...).
		From("records").
		Where(sq.Eq{"parent_usr": usr}).
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query members of %s: %w", usr, err)
	}
	return r.collect(rows)
}

// SearchByName returns records whose name starts with prefix, top-level
// records first. limit <= 0 uses DefaultSearchLimit.
func (r *Reader) SearchByName(prefix string, limit int) ([]*StoredRecord, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	rows, err := sq.Select(recordColumns...).
		From("records").
		Where(sq.Expr(`name LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")).
		OrderBy("parent_usr IS NOT NULL", "name", "usr").
		Limit(uint64(limit)).
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}
	return r.collect(rows)
}

// Metadata returns a metadata value, or "" when unset.
func (r *Reader) Metadata(key string) (string, error) {
	var value string
	err := sq.Select("value").
		From("metadata").
		Where(sq.Eq{"key": key}).
		RunWith(r.db).
		QueryRow().
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read metadata %s: %w", key, err)
	}
	return value, nil
}

// GetDocument returns the document stored under key.
func (r *Reader) GetDocument(key string) (string, bool, error) {
	var doc string
	err := sq.Select("document").
		From("symbol_graphs").
		Where(sq.Eq{"key": key}).
		RunWith(r.db).
		QueryRow().
		Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read document %s: %w", key, err)
	}
	return doc, true, nil
}

func (r *Reader) collect(rows *sql.Rows) ([]*StoredRecord, error) {
	defer rows.Close()

	var out []*StoredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	rows.Close()

	for _, rec := range out {
		if err := r.hydrate(rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Reader) hydrate(rec *StoredRecord) error {
	var err error
	if rec.Declaration, err = r.fragments(rec.USR, RoleDeclaration); err != nil {
		return err
	}
	if rec.SubHeading, err = r.fragments(rec.USR, RoleSubHeading); err != nil {
		return err
	}
	rec.Relationships, err = r.relationships(rec.USR)
	return err
}

func (r *Reader) fragments(usr, role string) ([]Fragment, error) {
	rows, err := sq.Select("spelling", "kind", "precise_identifier").
		From("fragments").
		Where(sq.Eq{"usr": usr, "role": role}).
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments of %s: %w", usr, err)
	}
	defer rows.Close()

	var out []Fragment
	for rows.Next() {
		var f Fragment
		if err := rows.Scan(&f.Spelling, &f.Kind, &f.PreciseIdentifier); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Reader) relationships(usr string) ([]Relationship, error) {
	rows, err := sq.Select("kind", "target_usr", "target_name").
		From("relationships").
		Where(sq.Eq{"source_usr": usr}).
		OrderBy("rowid").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships of %s: %w", usr, err)
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var rel Relationship
		if err := rows.Scan(&rel.Kind, &rel.TargetUSR, &rel.TargetName); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*StoredRecord, error) {
	var (
		rec          StoredRecord
		systemHeader int
		availability string
	)
	err := s.Scan(
		&rec.USR,
		&rec.ParentUSR,
		&rec.Name,
		&rec.Kind,
		&rec.Location.File,
		&rec.Location.Line,
		&rec.Location.Column,
		&systemHeader,
		&rec.Linkage,
		&rec.Comment,
		&availability,
	)
	if err != nil {
		return nil, err
	}
	rec.IsFromSystemHeader = systemHeader != 0
	if err := json.Unmarshal([]byte(availability), &rec.Availability); err != nil {
		return nil, fmt.Errorf("failed to decode availability of %s: %w", rec.USR, err)
	}
	return &rec, nil
}

// escapeLike escapes LIKE wildcards so a prefix matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
