package wifidb

import (
	"encoding/json"
	"time"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

// Cert is an imported certificate as stored by nickname.
type Cert struct {
	Nickname    string    `json:"nickname"`
	Usage       []string  `json:"usage"`
	Fingerprint string    `json:"fingerprint"`
	Der         []byte    `json:"der"`
	Chain       [][]byte  `json:"chain,omitempty"`
	KeyPem      []byte    `json:"keyPem,omitempty"`
	ImportedAt  time.Time `json:"importedAt"`
}

func (db *DB) PutCert(cert *Cert) error {
	err := db.setJSON(certsBucket, []byte(cert.Nickname), cert)
	if err != nil {
		return errors.Errorf("could not store cert %v: %v", cert.Nickname, err)
	}

	return nil
}

// GetCert returns nil when no certificate has this nickname.
func (db *DB) GetCert(nickname string) (*Cert, error) {
	cert := &Cert{}

	found, err := db.getJSON(certsBucket, []byte(nickname), cert)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	return cert, nil
}

func (db *DB) Certs() ([]*Cert, error) {
	var certs []*Cert

	err := db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(certsBucket)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			cert := &Cert{}

			err := json.Unmarshal(v, cert)
			if err != nil {
				return errors.Errorf("could not unmarshal cert %s: %v", k, err)
			}

			certs = append(certs, cert)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return certs, nil
}

// DeleteCert reports whether a certificate was removed.
func (db *DB) DeleteCert(nickname string) (bool, error) {
	deleted := false

	err := db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(certsBucket)
		if bucket == nil || bucket.Get([]byte(nickname)) == nil {
			return nil
		}

		deleted = true

		return bucket.Delete([]byte(nickname))
	})
	if err != nil {
		return false, errors.Errorf("could not delete cert %v: %v", nickname, err)
	}

	return deleted, nil
}
