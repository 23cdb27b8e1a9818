// Package boltrepos implements the repositories on an embedded bbolt file.
// Records are stored as JSON under their ID; unique keys are kept in index buckets
// written in the same transaction as the record.
package boltrepos

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	schoolBucket        = []byte("school")
	schoolCodeBucket    = []byte("school_code")
	studentBucket       = []byte("student")
	studentTagBucket    = []byte("student_tag")
	attendanceBucket    = []byte("attendance")
	attendanceDayBucket = []byte("attendance_day")

	allBuckets = [][]byte{schoolBucket, schoolCodeBucket, studentBucket, studentTagBucket, attendanceBucket, attendanceDayBucket}
)

// Open opens (creating if needed) the bolt file at path and its buckets.
func Open(path string) (*bolt.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating bolt directory")
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt file")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "creating bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func put(b *bolt.Bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	return b.Put([]byte(key), data)
}

// get decodes the record at key into v. It reports false when there is no such key.
func get(b *bolt.Bucket, key string, v interface{}) (bool, error) {
	data := b.Get([]byte(key))
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrap(err, "decoding record")
	}
	return true, nil
}
