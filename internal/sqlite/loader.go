// Export and import of the document collections as JSONL.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

// ImportResult counts the documents loaded by Import.
type ImportResult struct {
	Resources int
	Datums    int
	Skipped   int
}

// Export writes every resource to resource.jsonl and every datum to
// datum.jsonl in dir. Each file is replaced atomically.
func (b *Backend) Export(dir string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrStoreDetached
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	resources, err := queryResources(b.db)
	if err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(dir, resourceJSONL), resources); err != nil {
		return fmt.Errorf("write %s: %w", resourceJSONL, err)
	}

	datums, err := queryDatums(b.db)
	if err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(dir, datumJSONL), datums); err != nil {
		return fmt.Errorf("write %s: %w", datumJSONL, err)
	}
	return nil
}

// Import loads resource.jsonl then datum.jsonl from dir in one transaction.
// Malformed lines and records that violate a constraint (duplicate ids,
// datums whose resource is absent) are skipped and counted. Unknown fields
// are ignored.
func (b *Backend) Import(dir string) (ImportResult, error) {
	var res ImportResult

	resources, err := readJSONL(filepath.Join(dir, resourceJSONL))
	if err != nil {
		return res, err
	}
	datums, err := readJSONL(filepath.Join(dir, datumJSONL))
	if err != nil {
		return res, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return res, types.ErrStoreDetached
	}

	tx, err := b.db.Begin()
	if err != nil {
		return res, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	for _, raw := range resources {
		var r resourceJSON
		if err := json.Unmarshal(raw, &r); err != nil || r.ID == "" {
			res.Skipped++
			continue
		}
		_, err := tx.Exec(`INSERT INTO resource (_id, spec, resource_path, resource_kwargs) VALUES (?, ?, ?, ?)`,
			r.ID, r.Spec, r.ResourcePath, string(objectOrEmpty(r.ResourceKwargs)))
		if err != nil {
			if constraintKind(err) == constraintNone {
				return res, fmt.Errorf("import resource %s: %w", r.ID, err)
			}
			res.Skipped++
			continue
		}
		res.Resources++
	}

	for _, raw := range datums {
		var d datumJSON
		if err := json.Unmarshal(raw, &d); err != nil || d.DatumID == "" {
			res.Skipped++
			continue
		}
		if d.ID == "" {
			d.ID = generateUUID()
		}
		_, err := tx.Exec(`INSERT INTO datum (_id, datum_id, resource, datum_kwargs) VALUES (?, ?, ?, ?)`,
			d.ID, d.DatumID, d.Resource, string(objectOrEmpty(d.DatumKwargs)))
		if err != nil {
			if constraintKind(err) == constraintNone {
				return res, fmt.Errorf("import datum %s: %w", d.DatumID, err)
			}
			res.Skipped++
			continue
		}
		res.Datums++
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("committing import transaction: %w", err)
	}
	return res, nil
}

// objectOrEmpty keeps raw when it is a JSON object and returns {} otherwise.
func objectOrEmpty(raw json.RawMessage) json.RawMessage {
	var obj map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &obj) != nil || obj == nil {
		return json.RawMessage("{}")
	}
	return raw
}

func queryResources(db *sql.DB) ([]resourceJSON, error) {
	rows, err := db.Query(`SELECT _id, spec, resource_path, resource_kwargs FROM resource ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	out := []resourceJSON{}
	for rows.Next() {
		var (
			r      resourceJSON
			kwargs string
		)
		if err := rows.Scan(&r.ID, &r.Spec, &r.ResourcePath, &kwargs); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		r.ResourceKwargs = rawKwargs(kwargs)
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryDatums(db *sql.DB) ([]datumJSON, error) {
	rows, err := db.Query(`SELECT _id, datum_id, resource, datum_kwargs FROM datum ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query datums: %w", err)
	}
	defer rows.Close()

	out := []datumJSON{}
	for rows.Next() {
		var (
			d      datumJSON
			kwargs string
		)
		if err := rows.Scan(&d.ID, &d.DatumID, &d.Resource, &kwargs); err != nil {
			return nil, fmt.Errorf("scan datum: %w", err)
		}
		d.DatumKwargs = rawKwargs(kwargs)
		out = append(out, d)
	}
	return out, rows.Err()
}
