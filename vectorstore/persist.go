package vectorstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"jurisdraft-backend/storage"
)

// Persistence layout under a key prefix (one prefix per corpus partition):
//
//	<prefix>/index.gob      vector blob
//	<prefix>/metadata.json  id -> {source, chunk_number, text}
//	<prefix>/manifest.json  model id, dimension, count
//
// The manifest is written last so its presence marks a consistent snapshot.

// Manifest records the identity of a persisted index.
type Manifest struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	Count     int    `json:"count"`
}

func indexKey(prefix string) string    { return prefix + "/index.gob" }
func metadataKey(prefix string) string { return prefix + "/metadata.json" }
func manifestKey(prefix string) string { return prefix + "/manifest.json" }

// Save persists the index under the given key prefix.
func (ix *FlatIndex) Save(ctx context.Context, store storage.Storage, prefix string) error {
	var blob bytes.Buffer
	if err := gob.NewEncoder(&blob).Encode(ix.vectors); err != nil {
		return fmt.Errorf("failed to encode vectors: %w", err)
	}
	if err := store.Put(ctx, indexKey(prefix), &blob); err != nil {
		return fmt.Errorf("failed to store index blob: %w", err)
	}

	metaData, err := json.Marshal(ix.meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := store.Put(ctx, metadataKey(prefix), bytes.NewReader(metaData)); err != nil {
		return fmt.Errorf("failed to store metadata: %w", err)
	}

	manifest, err := json.Marshal(Manifest{
		Model:     ix.model,
		Dimension: ix.dimension,
		Count:     len(ix.vectors),
	})
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := store.Put(ctx, manifestKey(prefix), bytes.NewReader(manifest)); err != nil {
		return fmt.Errorf("failed to store manifest: %w", err)
	}

	return nil
}

// Load reads a persisted index. The embedder's model and dimension must match
// the manifest; a mismatch fails fast with ErrModelMismatch since similarity
// scores across models are meaningless.
func Load(ctx context.Context, store storage.Storage, embedder Embedder, prefix string) (*FlatIndex, error) {
	manifest, err := loadManifest(ctx, store, prefix)
	if err != nil {
		return nil, err
	}

	if manifest.Model != embedder.Model() || manifest.Dimension != embedder.Dimension() {
		return nil, fmt.Errorf("%w: index built with %s/%d, embedder is %s/%d",
			ErrModelMismatch, manifest.Model, manifest.Dimension, embedder.Model(), embedder.Dimension())
	}

	ix := NewFlatIndex(embedder)

	blobReader, err := store.Get(ctx, indexKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to read index blob: %w", err)
	}
	defer blobReader.Close()
	if err := gob.NewDecoder(blobReader).Decode(&ix.vectors); err != nil {
		return nil, fmt.Errorf("failed to decode vectors: %w", err)
	}

	metaReader, err := store.Get(ctx, metadataKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	defer metaReader.Close()
	if err := json.NewDecoder(metaReader).Decode(&ix.meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	if len(ix.vectors) != len(ix.meta) {
		return nil, fmt.Errorf("corrupt index %s: %d vectors but %d metadata entries",
			prefix, len(ix.vectors), len(ix.meta))
	}
	if len(ix.vectors) != manifest.Count {
		return nil, fmt.Errorf("corrupt index %s: manifest says %d vectors, blob has %d",
			prefix, manifest.Count, len(ix.vectors))
	}

	return ix, nil
}

func loadManifest(ctx context.Context, store storage.Storage, prefix string) (*Manifest, error) {
	reader, err := store.Get(ctx, manifestKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	defer reader.Close()

	var manifest Manifest
	if err := json.NewDecoder(reader).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &manifest, nil
}
