package cryptoutils

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
)

// ParseChainCertificates parses every certificate in a chain into X.509
// form, leaf first. Each certificate is parsed according to its declared
// format; an unknown format fails the whole chain.
func ParseChainCertificates(chain interfaces.CertificateChain) ([]*x509.Certificate, error) {
	if len(chain.Certificates) == 0 {
		return nil, errors.New("certificate chain is empty")
	}

	parsed := make([]*x509.Certificate, 0, len(chain.Certificates))
	for i, cert := range chain.Certificates {
		var der []byte
		switch cert.Format {
		case interfaces.X509PEM:
			block, _ := pem.Decode(cert.Data)
			if block == nil || block.Type != "CERTIFICATE" {
				return nil, fmt.Errorf("certificate %d: failed to decode PEM block", i)
			}
			der = block.Bytes
		case interfaces.X509DER:
			der = cert.Data
		default:
			return nil, fmt.Errorf("certificate %d: unsupported format %s", i, cert.Format)
		}

		x509Cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("certificate %d: %w", i, err)
		}
		parsed = append(parsed, x509Cert)
	}

	return parsed, nil
}

// VerifyAttestationKeyChain checks that a chain certifies exactly the given
// attestation public key: the leaf's subject public key must equal pubDER
// byte for byte, and the chain must verify from leaf to a trusted root.
// When roots is nil the chain's last certificate anchors itself.
func VerifyAttestationKeyChain(chain interfaces.CertificateChain, pubDER []byte, roots *x509.CertPool) error {
	certs, err := ParseChainCertificates(chain)
	if err != nil {
		return err
	}

	leaf := certs[0]
	leafPubDER, err := x509.MarshalPKIXPublicKey(leaf.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to serialize leaf public key: %w", err)
	}
	if !bytes.Equal(leafPubDER, pubDER) {
		return errors.New("leaf certificate does not certify the attestation key")
	}

	if roots == nil {
		roots = x509.NewCertPool()
		roots.AddCert(certs[len(certs)-1])
	}
	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}

	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return fmt.Errorf("chain verification failed: %w", err)
	}
	return nil
}

// NewCACertificate creates a self-signed CA certificate under caKey, for
// issuing attestation key certificates from operator tooling.
func NewCACertificate(cn string, caKey *EcdsaP256SigningKey) (interfaces.Certificate, error) {
	serial, err := randomSerial()
	if err != nil {
		return interfaces.Certificate{}, err
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, caKey.priv.Public(), caKey.priv)
	if err != nil {
		return interfaces.Certificate{}, fmt.Errorf("failed to create CA certificate: %w", err)
	}

	return interfaces.Certificate{
		Format: interfaces.X509PEM,
		Data:   pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
	}, nil
}

// IssueKeyCertificate issues a leaf certificate over the attestation public
// key given in PKIX DER form, signed by the CA.
func IssueKeyCertificate(caCert interfaces.Certificate, caKey *EcdsaP256SigningKey, pubDER []byte, cn string) (interfaces.Certificate, error) {
	caCerts, err := ParseChainCertificates(interfaces.CertificateChain{Certificates: []interfaces.Certificate{caCert}})
	if err != nil {
		return interfaces.Certificate{}, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	parsed, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return interfaces.Certificate{}, fmt.Errorf("failed to parse attestation public key: %w", err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return interfaces.Certificate{}, errors.New("attestation public key must be ECDSA P-256")
	}

	serial, err := randomSerial()
	if err != nil {
		return interfaces.Certificate{}, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, caCerts[0], pub, caKey.priv)
	if err != nil {
		return interfaces.Certificate{}, fmt.Errorf("failed to issue certificate: %w", err)
	}

	return interfaces.Certificate{
		Format: interfaces.X509PEM,
		Data:   pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
	}, nil
}

// RandomCert generates a random self-signed certificate to use
// for https servers where chain of trust does not matter, for
// example when the server is running on localhost.
func RandomCert() (tls.Certificate, error) {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{},
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	certASN1, err := x509.CreateCertificate(rand.Reader, template, template,
		privateKey.Public(), privateKey)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certASN1})

	privkeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.X509KeyPair(certPEM, pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privkeyBytes,
	}))
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate serial: %w", err)
	}
	return serial, nil
}
