package wifidb

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

const (
	dbName           = "wifi.db"
	dbFilePermission = 0600
)

var certsBucket = []byte("certs")

// DB persists imported certificates.
type DB struct {
	*bbolt.DB
	dbPath string
}

// Open opens or creates the database inside dataDir.
func Open(dataDir string) (*DB, error) {
	err := os.MkdirAll(dataDir, 0700)
	if err != nil {
		return nil, errors.Errorf("could not create data dir %v: %v", dataDir, err)
	}

	path := filepath.Join(dataDir, dbName)

	bdb, err := bbolt.Open(path, dbFilePermission, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Errorf("could not open %v: %v", path, err)
	}

	db := &DB{
		DB:     bdb,
		dbPath: path,
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(certsBucket)
		return err
	})
	if err != nil {
		_ = bdb.Close()
		return nil, errors.Errorf("could not create buckets: %v", err)
	}

	return db, nil
}

func (db *DB) Path() string {
	return db.dbPath
}
