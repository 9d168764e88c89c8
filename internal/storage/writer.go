package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/apigraph/internal/apiset"
	"github.com/mvp-joe/apigraph/internal/fragments"
	"github.com/mvp-joe/apigraph/internal/serializer"
)

// RelAliasOf links a typedef to the type it aliases. The other relationship
// kinds are the symbol graph's.
const RelAliasOf = "aliasOf"

// Fragment roles.
const (
	RoleDeclaration = "declaration"
	RoleSubHeading  = "subHeading"
)

// Writer handles writing API sets and documents to a SQLite database.
// Every write is a single transaction.
type Writer struct {
	db *sql.DB
}

// NewWriter creates a Writer on an open database whose schema exists.
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// WriteAPISet performs a full replace of the stored API: records, members,
// fragments and relationships, plus the set's target, language and main file
// in metadata. Cached documents are dropped since they describe the old API.
func (w *Writer) WriteAPISet(api *apiset.APISet) error {
	if api == nil || api.Released() {
		return fmt.Errorf("cannot write a released or nil api set")
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	for _, table := range []string{"relationships", "fragments", "records", "symbol_graphs"} {
		if _, err := sq.Delete(table).RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for key, value := range map[string]string{
		"target":    api.Target,
		"language":  string(api.Language),
		"main_file": api.MainFile,
	} {
		if err := putMetadata(tx, key, value, now); err != nil {
			return err
		}
	}

	for i, r := range api.TopLevel() {
		if err := writeRecord(tx, r, "", i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// writeRecord inserts r and, recursively, its members.
func writeRecord(tx *sql.Tx, r *apiset.Record, parent string, position int) error {
	availability, err := json.Marshal(r.Availability)
	if err != nil {
		return fmt.Errorf("failed to encode availability of %s: %w", r.USR, err)
	}

	_, err = sq.Insert("records").
		Columns("usr", "parent_usr", "position", "name", "kind", "file_path", "line", "col",
			"system_header", "linkage", "comment", "availability").
		Values(
			r.USR,
			nullableString(parent),
			position,
			r.Name,
			string(r.Kind),
			r.Location.File,
			r.Location.Line,
			r.Location.Column,
			boolToInt(r.IsFromSystemHeader),
			r.Linkage.String(),
			r.Comment.String(),
			string(availability),
		).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", r.USR, err)
	}

	if err := writeFragments(tx, r.USR, RoleDeclaration, r.Declaration); err != nil {
		return err
	}
	if err := writeFragments(tx, r.USR, RoleSubHeading, r.SubHeading); err != nil {
		return err
	}
	if err := writeRelationships(tx, r); err != nil {
		return err
	}

	for i, m := range r.Members {
		if err := writeRecord(tx, m, r.USR, i); err != nil {
			return err
		}
	}
	return nil
}

func writeFragments(tx *sql.Tx, usr, role string, f *fragments.Fragments) error {
	items := f.Items()
	if len(items) == 0 {
		return nil
	}
	insert := sq.Insert("fragments").
		Columns("usr", "role", "position", "spelling", "kind", "precise_identifier")
	for i, it := range items {
		insert = insert.Values(usr, role, i, it.Spelling, string(it.Kind), it.PreciseIdentifier)
	}
	if _, err := insert.RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("failed to insert %s fragments of %s: %w", role, usr, err)
	}
	return nil
}

func writeRelationships(tx *sql.Tx, r *apiset.Record) error {
	type rel struct {
		kind   string
		target apiset.SymbolReference
	}
	var rels []rel
	if !r.Parent.Empty() {
		rels = append(rels, rel{serializer.RelMemberOf, r.Parent})
	}
	if !r.SuperClass.Empty() {
		rels = append(rels, rel{serializer.RelInheritsFrom, r.SuperClass})
	}
	for _, p := range r.Protocols {
		rels = append(rels, rel{serializer.RelConformsTo, p})
	}
	if !r.Interface.Empty() {
		rels = append(rels, rel{serializer.RelExtensionTo, r.Interface})
	}
	if !r.Underlying.Empty() {
		rels = append(rels, rel{RelAliasOf, r.Underlying})
	}
	if len(rels) == 0 {
		return nil
	}

	insert := sq.Insert("relationships").Columns("source_usr", "kind", "target_usr", "target_name")
	for _, rl := range rels {
		insert = insert.Values(r.USR, rl.kind, rl.target.USR, rl.target.Name)
	}
	if _, err := insert.RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("failed to insert relationships of %s: %w", r.USR, err)
	}
	return nil
}

// PutDocument stores a rendered symbol graph under key, replacing any
// previous document.
func (w *Writer) PutDocument(key, document string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := sq.Insert("symbol_graphs").
		Columns("key", "document", "updated_at").
		Values(key, document, now).
		Suffix("ON CONFLICT(key) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at").
		RunWith(w.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", key, err)
	}
	return nil
}

func putMetadata(runner sq.BaseRunner, key, value, now string) error {
	_, err := sq.Insert("metadata").
		Columns("key", "value", "updated_at").
		Values(key, value, now).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		RunWith(runner).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to store metadata %s: %w", key, err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
