// Package crypto signs and verifies manifests as detached RS256 JWS objects.
package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
)

var (
	ErrNoPEMBlock      = errors.New("no pem block")
	ErrPayloadMismatch = errors.New("jws payload does not match")
	ErrUnsupportedKey  = errors.New("unsupported key type")
	ErrUnsupportedAlg  = errors.New("unsupported jws algorithm")
)

type JWS struct {
	Protected string `json:"protected"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// SignDetached signs payload with the RSA key in privateKeyPEM (PKCS#1 or
// PKCS#8).
func SignDetached(payload []byte, privateKeyPEM []byte) (JWS, error) {
	priv, err := parseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return JWS{}, err
	}
	hb, err := json.Marshal(header{Alg: "RS256", Typ: "JWT"})
	if err != nil {
		return JWS{}, err
	}
	protected := base64.RawURLEncoding.EncodeToString(hb)
	pl := base64.RawURLEncoding.EncodeToString(payload)

	h := sha256.Sum256([]byte(protected + "." + pl))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, h[:])
	if err != nil {
		return JWS{}, err
	}
	return JWS{
		Protected: protected,
		Payload:   pl,
		Signature: base64.RawURLEncoding.EncodeToString(sig),
	}, nil
}

// VerifyDetached checks that jws signs payload under the certificate in
// certPEM.
func VerifyDetached(payload []byte, jws JWS, certPEM []byte) error {
	hb, err := base64.RawURLEncoding.DecodeString(jws.Protected)
	if err != nil {
		return fmt.Errorf("decode protected header: %w", err)
	}
	var hdr header
	if err := json.Unmarshal(hb, &hdr); err != nil {
		return fmt.Errorf("parse protected header: %w", err)
	}
	if hdr.Alg != "RS256" {
		return fmt.Errorf("%w: %s", ErrUnsupportedAlg, hdr.Alg)
	}
	if jws.Payload != base64.RawURLEncoding.EncodeToString(payload) {
		return ErrPayloadMismatch
	}
	sig, err := base64.RawURLEncoding.DecodeString(jws.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return err
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return ErrUnsupportedKey
	}
	h := sha256.Sum256([]byte(jws.Protected + "." + jws.Payload))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], sig)
}

// ParseCertificate decodes the first PEM block of certPEM.
func ParseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("parse cert: %w", ErrNoPEMBlock)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse cert: %w", err)
	}
	return cert, nil
}

func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrNoPEMBlock
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKey
	}
	return key, nil
}
