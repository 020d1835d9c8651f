package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DoyleJ11/inhouse-queue/internal/ledger"
)

// Store keeps one JSON document per scope under dir, keyed by player id:
//
//	{"1234": {"points": 1050, "wins": 1, "losses": 0, "draws": 0, "name": "Ana"}}
type Store struct {
	dir string
}

// Open prepares dir for use, creating it when missing.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	clean := filepath.Clean(dir)
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: clean}, nil
}

func (s *Store) path(scope string) (string, error) {
	if scope == "" || strings.ContainsAny(scope, `/\`) || scope == "." || scope == ".." {
		return "", fmt.Errorf("invalid scope %q", scope)
	}
	return filepath.Join(s.dir, scope+".json"), nil
}

// record mirrors the on-disk shape; pointers tell missing fields apart.
type record struct {
	Points *int    `json:"points,omitempty"`
	Wins   *int    `json:"wins,omitempty"`
	Losses *int    `json:"losses,omitempty"`
	Draws  *int    `json:"draws,omitempty"`
	Name   *string `json:"name,omitempty"`
}

// Load reads the scope's document. A missing or unparseable file is an
// error; individual malformed records are coerced instead.
func (s *Store) Load(ctx context.Context, scope string) (ledger.Records, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(scope)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return ledger.Records{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	out := make(ledger.Records, len(raw))
	for id, msg := range raw {
		out[id] = decodeRecord(msg)
	}
	return out, nil
}

func decodeRecord(msg json.RawMessage) ledger.PlayerRecord {
	if strings.TrimSpace(string(msg)) == "null" {
		return ledger.NewRecord("")
	}
	// Early files stored the bare points value.
	var legacy int
	if err := json.Unmarshal(msg, &legacy); err == nil {
		return ledger.PlayerRecord{Points: legacy}
	}

	rec := ledger.NewRecord("")
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil {
		return rec
	}
	intField(fields, "points", &rec.Points)
	intField(fields, "wins", &rec.Wins)
	intField(fields, "losses", &rec.Losses)
	intField(fields, "draws", &rec.Draws)
	if v, ok := fields["name"]; ok {
		var name string
		if json.Unmarshal(v, &name) == nil {
			rec.DisplayName = name
		}
	}
	return rec.Normalize()
}

// intField leaves dst alone when the field is absent or not a number.
func intField(fields map[string]json.RawMessage, key string, dst *int) {
	v, ok := fields[key]
	if !ok {
		return
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return
	}
	if i, err := n.Int64(); err == nil {
		*dst = int(i)
		return
	}
	if f, err := n.Float64(); err == nil {
		*dst = int(f)
	}
}

// Save writes the full document through a temp file and rename.
func (s *Store) Save(ctx context.Context, scope string, records ledger.Records) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(scope)
	if err != nil {
		return err
	}

	doc := make(map[string]record, len(records))
	for id, r := range records {
		doc[id] = record{
			Points: &r.Points,
			Wins:   &r.Wins,
			Losses: &r.Losses,
			Draws:  &r.Draws,
			Name:   &r.DisplayName,
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(s.dir, scope+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
