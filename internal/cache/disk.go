// internal/cache/disk.go
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/solscout/curvewatch/internal/raydium"
)

// schemaVersion защищает от чтения снимков, записанных другой версией
// структуры PoolRecord. Несовпадение версии трактуется как промах.
const schemaVersion = 1

var errSchemaMismatch = errors.New("cache file schema version mismatch")

// diskEnvelope — формат дискового снимка.
type diskEnvelope struct {
	SchemaVersion int                  `json:"schemaVersion"`
	FetchedAt     time.Time            `json:"fetchedAt"`
	Pools         []raydium.PoolRecord `json:"pools"`
}

func (pc *PoolCache) loadFromDisk() ([]raydium.PoolRecord, time.Time, error) {
	data, err := os.ReadFile(pc.filePath)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read cache file: %w", err)
	}

	var env diskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("unmarshal cache file: %w", err)
	}
	if env.SchemaVersion != schemaVersion {
		return nil, time.Time{}, errSchemaMismatch
	}
	if len(env.Pools) == 0 {
		return nil, time.Time{}, errors.New("cache file is empty")
	}

	return env.Pools, env.FetchedAt, nil
}

// persist пишет снимок атомарно: во временный файл, затем rename.
// Конкурентный читатель никогда не увидит полузаписанный JSON.
func (pc *PoolCache) persist(pools []raydium.PoolRecord, fetchedAt time.Time) error {
	env := diskEnvelope{
		SchemaVersion: schemaVersion,
		FetchedAt:     fetchedAt,
		Pools:         pools,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(pc.filePath)
	tmp, err := os.CreateTemp(dir, ".pools-cache-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, pc.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}
