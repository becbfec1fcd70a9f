package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lightning-land/wifid/wifidb"
)

func newCert(t *testing.T, name string, isCA bool) ([]byte, *ecdsa.PrivateKey) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  isCA,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return der, key
}

func newManager(t *testing.T) *Manager {
	db, err := wifidb.Open(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return New(&Config{Store: db})
}

func TestImportFormats(t *testing.T) {
	m := newManager(t)

	der1, _ := newCert(t, "radius-ca", true)
	der2, _ := newCert(t, "corp-ca", true)
	der3, key := newCert(t, "laptop", false)

	pemBlob := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der1})
	imported, err := m.Import(pemBlob, "", "radius")
	require.NoError(t, err)
	assert.Equal(t, &Imported{Nickname: "radius", Usage: []string{UsageServer}}, imported)

	imported, err = m.Import(der2, "", "corp")
	require.NoError(t, err)
	assert.Equal(t, []string{UsageServer}, imported.Usage)

	keyDer, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	bundle := append(
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der3}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer})...,
	)
	imported, err = m.Import(bundle, "", "laptop")
	require.NoError(t, err)
	assert.Equal(t, []string{UsageUser}, imported.Usage)

	index, err := m.List()
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		UsageServer: {"corp", "radius"},
		UsageUser:   {"laptop"},
	}, index)
}

func TestImportBase64Der(t *testing.T) {
	m := newManager(t)

	der, _ := newCert(t, "ca", true)

	imported, err := m.Import([]byte(base64.StdEncoding.EncodeToString(der)+"\n"), "", "ca")
	require.NoError(t, err)
	assert.Equal(t, "ca", imported.Nickname)
}

func TestImportRejects(t *testing.T) {
	m := newManager(t)

	der, _ := newCert(t, "ca", true)
	other, _ := newCert(t, "other", true)

	_, err := m.Import(der, "", "ca")
	require.NoError(t, err)

	_, err = m.Import(other, "", "ca")
	assert.Equal(t, ErrDuplicate, err)

	_, err = m.Import(der, "", "ca-again")
	assert.Equal(t, ErrAlreadyImported, err)

	_, err = m.Import([]byte("garbage"), "secret", "junk")
	assert.Equal(t, ErrInvalidCert, err)

	_, err = m.Import(other, "", "")
	assert.Equal(t, ErrInvalidCert, err)
}

func TestDelete(t *testing.T) {
	m := newManager(t)

	der, _ := newCert(t, "ca", true)

	_, err := m.Import(der, "", "ca")
	require.NoError(t, err)

	require.NoError(t, m.Delete("ca"))
	assert.Equal(t, ErrUnknownNickname, m.Delete("ca"))

	index, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, index)

	// the same certificate can be imported again once deleted
	_, err = m.Import(der, "", "ca")
	require.NoError(t, err)
}
