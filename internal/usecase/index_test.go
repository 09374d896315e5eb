package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fincheck/internal/adapter/chunker"
	"fincheck/internal/adapter/embedding"
	"fincheck/internal/adapter/fs"
	"fincheck/internal/adapter/logging"
	"fincheck/internal/adapter/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func testCorpus() map[string]string {
	return map[string]string{
		"tesla.txt": "title: Tesla Q3\nsource: Reuters\ndate: 2025-10-02\nurl: https://reuters.com/tesla\n\n" +
			"tesla delivered a record number of vehicles in the third quarter beating estimates",
		"fed.txt":   "source: AP\n\nthe federal reserve kept interest rates unchanged at its september meeting",
		"empty.txt": "title: nothing\nsource: x\n\n   ",
		"notes.md":  "ignored because of the extension",
	}
}

func buildIndex(t *testing.T, dir, indexPath string, chunkSize, overlap int) (*IndexResult, *store.BoltIndexStore) {
	t.Helper()
	st := store.NewBoltIndexStore(indexPath)
	u := NewIndexUseCase(st, fs.NewWalker(nil, nil), chunker.NewWordChunker(chunkSize, overlap), embedding.NewHashEmbedder(256), chunkSize, overlap, logging.Discard())

	var calls int
	res, err := u.Build(context.Background(), dir, func(done, total int) { calls = done })
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	return res, st
}

func TestIndexBuild(t *testing.T) {
	dir := writeCorpus(t, testCorpus())
	res, st := buildIndex(t, dir, filepath.Join(t.TempDir(), "index", "fincheck.db"), 5, 1)

	assert.Equal(t, 2, res.FilesIndexed)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, "hash-256", res.Model)

	idx, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, res.ChunksCreated, idx.Len())
	assert.Len(t, idx.Metadata, idx.Len())
	assert.Equal(t, 5, idx.ChunkSize)
	assert.Equal(t, 1, idx.Overlap)

	// fed.txt sorts first: 11 words, stride 4 -> windows at 0,4,8
	assert.Equal(t, "AP", idx.Metadata[0].Source)
	assert.Equal(t, 0, idx.Metadata[0].ChunkIndex)
	assert.Equal(t, 2, idx.Metadata[2].ChunkIndex)
	assert.Equal(t, "Reuters", idx.Metadata[3].Source)
	assert.Equal(t, 0, idx.Metadata[3].ChunkIndex)
	assert.Equal(t, "Tesla Q3", idx.Metadata[3].Title)
	assert.Equal(t, "2025-10-02", idx.Metadata[3].PublishDate)
	assert.Equal(t, "https://reuters.com/tesla", idx.Metadata[3].URL)
}

func TestIndexBuildIsDeterministic(t *testing.T) {
	dir := writeCorpus(t, testCorpus())
	_, a := buildIndex(t, dir, filepath.Join(t.TempDir(), "a.db"), 4, 2)
	_, b := buildIndex(t, dir, filepath.Join(t.TempDir(), "b.db"), 4, 2)

	ia, err := a.Load()
	require.NoError(t, err)
	ib, err := b.Load()
	require.NoError(t, err)
	assert.Equal(t, ia.Metadata, ib.Metadata)
	assert.Equal(t, ia.Vectors, ib.Vectors)
}

func TestIndexBuildNoDocuments(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"empty.txt": "source: x\n\n"})
	st := store.NewBoltIndexStore(filepath.Join(t.TempDir(), "i.db"))
	u := NewIndexUseCase(st, fs.NewWalker(nil, nil), chunker.NewWordChunker(10, 0), embedding.NewHashEmbedder(16), 10, 0, logging.Discard())

	_, err := u.Build(context.Background(), dir, nil)
	var noDocs *NoDocumentsError
	require.ErrorAs(t, err, &noDocs)
	assert.Equal(t, dir, noDocs.Root)

	_, err = st.Load()
	assert.Error(t, err, "nothing should be written")
}
