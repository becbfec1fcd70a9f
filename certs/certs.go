package certs

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"sort"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/wifidb"
	"golang.org/x/crypto/pkcs12"
)

const (
	UsageServer = "ServerCert"
	UsageUser   = "UserCert"
)

var (
	ErrInvalidCert     = errors.New("invalid certificate")
	ErrDuplicate       = errors.New("duplicate nickname")
	ErrAlreadyImported = errors.New("certificate already imported")
	ErrUnknownNickname = errors.New("unknown nickname")
)

// Store keeps imported certificates by nickname.
type Store interface {
	PutCert(cert *wifidb.Cert) error
	GetCert(nickname string) (*wifidb.Cert, error)
	Certs() ([]*wifidb.Cert, error)
	DeleteCert(nickname string) (bool, error)
}

type Config struct {
	Store  Store
	Logger Logger
}

type Manager struct {
	mu    sync.Mutex
	store Store
	log   Logger
	now   func() time.Time
}

func New(config *Config) *Manager {
	m := &Manager{
		store: config.Store,
		now:   time.Now,
	}

	if config.Logger != nil {
		m.log = config.Logger
	} else {
		m.log = noopLogger{}
	}

	return m
}

// Imported describes a stored certificate.
type Imported struct {
	Nickname string
	Usage    []string
}

type parsed struct {
	leaf   *x509.Certificate
	chain  []*x509.Certificate
	keyPem []byte
}

// Import decodes blob and stores it as nickname. The blob may be PEM, DER,
// base64 encoded DER or a PKCS#12 bundle protected by password.
func (m *Manager) Import(blob []byte, password string, nickname string) (*Imported, error) {
	if nickname == "" {
		return nil, ErrInvalidCert
	}

	p, err := parse(blob, password)
	if err != nil {
		m.log.Debugf("Rejected certificate %v: %v", nickname, err)
		return nil, ErrInvalidCert
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.GetCert(nickname)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return nil, ErrDuplicate
	}

	fingerprint := fingerprint(p.leaf)

	all, err := m.store.Certs()
	if err != nil {
		return nil, err
	}

	for _, c := range all {
		if c.Fingerprint == fingerprint {
			return nil, ErrAlreadyImported
		}
	}

	usage := usageOf(p)

	cert := &wifidb.Cert{
		Nickname:    nickname,
		Usage:       usage,
		Fingerprint: fingerprint,
		Der:         p.leaf.Raw,
		KeyPem:      p.keyPem,
		ImportedAt:  m.now(),
	}

	for _, c := range p.chain {
		cert.Chain = append(cert.Chain, c.Raw)
	}

	err = m.store.PutCert(cert)
	if err != nil {
		return nil, err
	}

	m.log.Infof("Imported certificate %v (%v) as %v", p.leaf.Subject.CommonName, fingerprint, nickname)

	return &Imported{Nickname: nickname, Usage: usage}, nil
}

// List maps every usage to the sorted nicknames carrying it.
func (m *Manager) List() (map[string][]string, error) {
	all, err := m.store.Certs()
	if err != nil {
		return nil, err
	}

	index := make(map[string][]string)

	for _, c := range all {
		for _, usage := range c.Usage {
			index[usage] = append(index[usage], c.Nickname)
		}
	}

	for _, nicknames := range index {
		sort.Strings(nicknames)
	}

	return index, nil
}

func (m *Manager) Delete(nickname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted, err := m.store.DeleteCert(nickname)
	if err != nil {
		return err
	}

	if !deleted {
		return ErrUnknownNickname
	}

	m.log.Infof("Deleted certificate %v", nickname)

	return nil
}

// A bundle with a private key authenticates this device, anything else
// verifies a server.
func usageOf(p *parsed) []string {
	if p.keyPem != nil {
		return []string{UsageUser}
	}

	return []string{UsageServer}
}

func fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

func parse(blob []byte, password string) (*parsed, error) {
	if len(bytes.TrimSpace(blob)) == 0 {
		return nil, errors.New("empty blob")
	}

	if p, ok := parsePem(blob); ok {
		return p, nil
	}

	if cert, err := x509.ParseCertificate(blob); err == nil {
		return &parsed{leaf: cert}, nil
	}

	if der, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(blob))); err == nil {
		if cert, err := x509.ParseCertificate(der); err == nil {
			return &parsed{leaf: cert}, nil
		}
	}

	blocks, err := pkcs12.ToPEM(blob, password)
	if err != nil {
		return nil, errors.Errorf("not a certificate: %v", err)
	}

	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}

	if p, ok := parsePem(pemData); ok {
		return p, nil
	}

	return nil, errors.New("bundle holds no certificate")
}

// parsePem picks the first certificate as leaf, the rest as chain, and
// keeps a private key block if one is present.
func parsePem(data []byte) (*parsed, bool) {
	p := &parsed{}
	rest := data

	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		switch block.Type {
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, false
			}

			if p.leaf == nil {
				p.leaf = cert
			} else {
				p.chain = append(p.chain, cert)
			}
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			p.keyPem = pem.EncodeToMemory(block)
		}
	}

	if p.leaf == nil {
		return nil, false
	}

	return p, true
}
