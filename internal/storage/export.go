/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"sceneledger/internal/ledger"
)

const (
	// ExportFormat tags ledger export files.
	ExportFormat   = "sceneledger/v1"
	BackupsDirName = "backups"
)

//go:embed ledger.schema.json
var ledgerSchema []byte

// ErrInvalidExport is returned when an export file does not conform to the
// ledger schema.
var ErrInvalidExport = errors.New("ledger export does not conform to schema")

// ExportDocument is the on-disk JSON form of a ledger.
type ExportDocument struct {
	Format     string           `json:"format"`
	ExportedAt time.Time        `json:"exportedAt"`
	Ledger     *ledger.Snapshot `json:"ledger"`
}

// ValidateExport checks data against the ledger export schema.
func ValidateExport(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(ledgerSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate export: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidExport, strings.Join(msgs, "; "))
	}
	return nil
}

// ExportJSON writes snap to path with transactional semantics. A file already
// at path is first copied to a timestamped backup in a backups directory next
// to it.
func ExportJSON(path string, snap *ledger.Snapshot) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("export path is required")
	}
	doc := ExportDocument{Format: ExportFormat, ExportedAt: time.Now().UTC(), Ledger: snap}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(dir, BackupsDirName, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current export: %w", cerr)
		}
	}

	// Write to a temp file in the same directory, then rename over the target.
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp export: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace export: %w", rerr)
	}
	return nil
}

// ImportJSON reads a ledger export. If the file cannot be read or fails
// validation, the latest backup of it is tried.
func ImportJSON(path string) (*ledger.Snapshot, error) {
	snap, err := readExport(path)
	if err == nil {
		return snap, nil
	}
	bak, berr := latestBackup(path)
	if berr != nil {
		return nil, fmt.Errorf("import %s: %w; backup attempt: %v", path, err, berr)
	}
	snap, berr = readExport(bak)
	if berr != nil {
		return nil, fmt.Errorf("import %s: %w; backup attempt: %v", path, err, berr)
	}
	return snap, nil
}

func readExport(path string) (*ledger.Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateExport(b); err != nil {
		return nil, err
	}
	var doc ExportDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return doc.Ledger, nil
}

func latestBackup(path string) (string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return "", fmt.Errorf("read backups dir: %w", err)
	}
	base := filepath.Base(path)
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, base+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	return candidates[len(candidates)-1], nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
