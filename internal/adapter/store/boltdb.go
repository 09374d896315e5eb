package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"fincheck/internal/domain"
	"go.etcd.io/bbolt"
)

var (
	bucketMeta    = []byte("meta")
	bucketVectors = []byte("vectors")
	bucketChunks  = []byte("chunks")
	keySchema     = []byte("schema")
)

// BoltIndexStore keeps the vectors and their metadata in two buckets of one
// bbolt file. Save builds a fresh file next to the target and renames it into
// place, so readers see either the old pair or the new pair, never a mix.
type BoltIndexStore struct {
	path    string
	timeout time.Duration
}

func NewBoltIndexStore(path string) *BoltIndexStore {
	return &BoltIndexStore{
		path:    path,
		timeout: time.Second,
	}
}

func (s *BoltIndexStore) Path() string {
	return s.path
}

func (s *BoltIndexStore) Save(idx *domain.Index) error {
	if len(idx.Vectors) != len(idx.Metadata) {
		return fmt.Errorf("index has %d vectors but %d metadata records", len(idx.Vectors), len(idx.Metadata))
	}
	for i, v := range idx.Vectors {
		if len(v) != idx.Dimension {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), idx.Dimension)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	if err := s.write(tmp, idx); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace index: %w", err)
	}
	return nil
}

func (s *BoltIndexStore) write(path string, idx *domain.Index) error {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: s.timeout})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		vectors, err := tx.CreateBucket(bucketVectors)
		if err != nil {
			return err
		}
		chunks, err := tx.CreateBucket(bucketChunks)
		if err != nil {
			return err
		}
		// keys are written in ascending order
		vectors.FillPercent = 1.0
		chunks.FillPercent = 1.0

		info, err := json.Marshal(NewSchemaInfo(idx))
		if err != nil {
			return err
		}
		if err := meta.Put(keySchema, info); err != nil {
			return err
		}

		for i := range idx.Vectors {
			key := positionKey(i)
			if err := vectors.Put(key, encodeVector(idx.Vectors[i])); err != nil {
				return err
			}
			data, err := json.Marshal(idx.Metadata[i])
			if err != nil {
				return err
			}
			if err := chunks.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to write index: %w", err)
	}

	return db.Close()
}

func (s *BoltIndexStore) Load() (*domain.Index, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("index not found at %s: %w", s.path, fs.ErrNotExist)
		}
		return nil, err
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{ReadOnly: true, Timeout: s.timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	defer db.Close()

	idx := &domain.Index{}
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		vectors := tx.Bucket(bucketVectors)
		chunks := tx.Bucket(bucketChunks)
		if meta == nil || vectors == nil || chunks == nil {
			return fmt.Errorf("index file is missing buckets: %w", fs.ErrNotExist)
		}

		var info SchemaInfo
		if err := json.Unmarshal(meta.Get(keySchema), &info); err != nil {
			return fmt.Errorf("failed to read schema info: %w", err)
		}
		if err := CheckSchema(&info); err != nil {
			return err
		}
		info.apply(idx)

		if err := vectors.ForEach(func(k, v []byte) error {
			if decodePosition(k) != len(idx.Vectors) {
				return fmt.Errorf("vector positions are not contiguous at %d", len(idx.Vectors))
			}
			idx.Vectors = append(idx.Vectors, decodeVector(v))
			return nil
		}); err != nil {
			return err
		}

		return chunks.ForEach(func(k, v []byte) error {
			if decodePosition(k) != len(idx.Metadata) {
				return fmt.Errorf("metadata positions are not contiguous at %d", len(idx.Metadata))
			}
			var chunk domain.Chunk
			if err := json.Unmarshal(v, &chunk); err != nil {
				return err
			}
			idx.Metadata = append(idx.Metadata, chunk)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if len(idx.Vectors) != len(idx.Metadata) {
		return nil, fmt.Errorf("index has %d vectors but %d metadata records", len(idx.Vectors), len(idx.Metadata))
	}
	return idx, nil
}

func positionKey(i int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}

func decodePosition(key []byte) int {
	if len(key) != 8 {
		return -1
	}
	return int(binary.BigEndian.Uint64(key))
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// decodeVector copies out of buf: bbolt memory is only valid inside the tx.
func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}
