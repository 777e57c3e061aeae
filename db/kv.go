package db

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	rosterKey     = "asbaaq-list"        // JSON array of sabaqs with their rosters
	attendanceKey = "attendance-records" // JSON array of attendance records
)

// KVStore is the durable blob storage behind the roster and attendance stores.
// Each key holds one whole collection; Save replaces it.
type KVStore interface {
	// Load returns the value stored under key; ok is false when the key is absent.
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}

// loadJSON decodes the collection under key into v. It reports false, leaving v
// untouched, when nothing is stored yet.
func loadJSON(ctx context.Context, kv KVStore, key string, v interface{}) (bool, error) {
	data, ok, err := kv.Load(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "load %s", key)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}

func saveJSON(ctx context.Context, kv KVStore, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := kv.Save(ctx, key, data); err != nil {
		return errors.Wrapf(err, "save %s", key)
	}
	return nil
}
