package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"fincheck/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// SchemaInfo describes how an index file was built.
type SchemaInfo struct {
	Version    int       `json:"version"`
	Model      string    `json:"model"`
	Dimension  int       `json:"dimension"`
	ChunkSize  int       `json:"chunk_size"`
	Overlap    int       `json:"overlap"`
	Count      int       `json:"count"`
	BuiltAt    time.Time `json:"built_at"`
	ConfigHash string    `json:"config_hash"`
}

func NewSchemaInfo(idx *domain.Index) *SchemaInfo {
	return &SchemaInfo{
		Version:    CurrentSchemaVersion,
		Model:      idx.Model,
		Dimension:  idx.Dimension,
		ChunkSize:  idx.ChunkSize,
		Overlap:    idx.Overlap,
		Count:      len(idx.Vectors),
		BuiltAt:    idx.BuiltAt,
		ConfigHash: ComputeConfigHash(idx.Model, idx.Dimension, idx.ChunkSize, idx.Overlap),
	}
}

func (info *SchemaInfo) apply(idx *domain.Index) {
	idx.Model = info.Model
	idx.Dimension = info.Dimension
	idx.ChunkSize = info.ChunkSize
	idx.Overlap = info.Overlap
	idx.BuiltAt = info.BuiltAt
}

// ComputeConfigHash computes a hash of index-relevant configuration.
// Changes to this hash indicate the index should be rebuilt.
func ComputeConfigHash(model string, dimension, chunkSize, overlap int) string {
	relevant := struct {
		Model     string `json:"model"`
		Dimension int    `json:"dimension"`
		ChunkSize int    `json:"chunk_size"`
		Overlap   int    `json:"overlap"`
	}{model, dimension, chunkSize, overlap}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// CheckSchema rejects index files this build cannot read, and headers whose
// recorded build parameters no longer match the config hash written with them.
func CheckSchema(info *SchemaInfo) error {
	switch {
	case info.Version == 0:
		return fmt.Errorf("index has no schema version")
	case info.Version > CurrentSchemaVersion:
		return fmt.Errorf("index created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
	case info.ConfigHash != ComputeConfigHash(info.Model, info.Dimension, info.ChunkSize, info.Overlap):
		return fmt.Errorf("index schema header is inconsistent: config hash %q does not match %s/%d/%d/%d",
			info.ConfigHash, info.Model, info.Dimension, info.ChunkSize, info.Overlap)
	}
	return nil
}

// MigrationResult describes whether a stored index still matches the
// running configuration.
type MigrationResult struct {
	NeedsRebuild bool
	Reason       string
}

// CheckIndex compares a loaded index with the configured embedder and
// chunking parameters. A different model or dimension makes the index
// unusable; different chunking only makes it stale.
func CheckIndex(idx *domain.Index, model string, dimension, chunkSize, overlap int) MigrationResult {
	switch {
	case idx.Model != model:
		return MigrationResult{NeedsRebuild: true, Reason: fmt.Sprintf("index built with model %q, configured %q", idx.Model, model)}
	case idx.Dimension != dimension:
		return MigrationResult{NeedsRebuild: true, Reason: fmt.Sprintf("index dimension %d, embedder dimension %d", idx.Dimension, dimension)}
	case ComputeConfigHash(idx.Model, idx.Dimension, idx.ChunkSize, idx.Overlap) != ComputeConfigHash(model, dimension, chunkSize, overlap):
		return MigrationResult{Reason: fmt.Sprintf("index chunking %d/%d differs from configured %d/%d", idx.ChunkSize, idx.Overlap, chunkSize, overlap)}
	}
	return MigrationResult{}
}
