package blob

import (
	"context"
	"encoding/json"
	"io"
)

// ReadAll reads the full content of a blob.
func ReadAll(ctx context.Context, b Blob) ([]byte, error) {
	rc, err := b.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// PutBytes stores data under key.
func PutBytes(ctx context.Context, s Storage, key string, data []byte) error {
	w, err := s.Putter(ctx, key)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// PutJSON stores v as JSON under key.
func PutJSON(ctx context.Context, s Storage, key string, v any) error {
	w, err := s.Putter(ctx, key)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// GetJSON reads the blob stored under key and decodes it as JSON into v.
func GetJSON(ctx context.Context, s Storage, key string, v any) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	rc, err := b.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(rc).Decode(v)
}
