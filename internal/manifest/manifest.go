// Package manifest records the SHA-256 of run artifacts so a report set can
// be checked later for tampering or drift.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"example.com/maskgate/internal/common"
	"example.com/maskgate/internal/crypto"
)

type Item struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
	Type   string `json:"type"`
}

type Manifest struct {
	CreatedAt time.Time  `json:"createdAt"`
	ShaAlgo   string     `json:"shaAlgo"`
	Items     []Item     `json:"items"`
	Signature *Signature `json:"signature,omitempty"`
}

type Signature struct {
	Type          string `json:"type"`
	CertSubject   string `json:"certSubject,omitempty"`
	Issuer        string `json:"issuer,omitempty"`
	SignatureFile string `json:"signatureFile,omitempty"`
}

// Mismatch is an item whose file no longer matches the manifest.
type Mismatch struct {
	Item
	Actual string `json:"actual,omitempty"`
	Reason string `json:"reason"`
}

// Build hashes paths in lexical order. Repeated paths are listed once.
func Build(paths []string) (Manifest, error) {
	m := Manifest{CreatedAt: time.Now().UTC(), ShaAlgo: "sha256"}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	for i, p := range sorted {
		if i > 0 && sorted[i-1] == p {
			continue
		}
		hex, sz, err := common.Sha256OfFile(p)
		if err != nil {
			return m, fmt.Errorf("hash %s: %w", p, err)
		}
		m.Items = append(m.Items, Item{Path: p, Size: sz, Sha256: hex, Type: artifactType(p)})
	}
	return m, nil
}

func artifactType(path string) string {
	switch {
	case hasExt(path, ".out.txt"):
		return "report"
	case hasExt(path, ".summary.json"):
		return "summary"
	case hasExt(path, ".txt"):
		return "container"
	case hasExt(path, ".jsonl"):
		return "audit"
	case hasExt(path, ".json"):
		return "json"
	case hasExt(path, ".pdf"):
		return "pdf"
	case hasExt(path, ".log"):
		return "log"
	}
	return "other"
}

func hasExt(path string, exts ...string) bool {
	lower := strings.ToLower(path)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}

func Save(m Manifest, out string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

func Load(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// Verify re-hashes every item and returns the ones that changed or vanished.
func Verify(m Manifest) []Mismatch {
	var out []Mismatch
	for _, it := range m.Items {
		hex, sz, err := common.Sha256OfFile(it.Path)
		switch {
		case err != nil:
			out = append(out, Mismatch{Item: it, Reason: err.Error()})
		case hex != it.Sha256:
			out = append(out, Mismatch{Item: it, Actual: hex, Reason: "sha256 differs"})
		case sz != it.Size:
			out = append(out, Mismatch{Item: it, Actual: hex, Reason: "size differs"})
		}
	}
	return out
}

// Sign records the signer in m and returns the exact manifest bytes covered
// by the detached JWS. Those bytes must be written unchanged.
func Sign(m Manifest, keyPEM, certPEM []byte, sigPath string) ([]byte, crypto.JWS, error) {
	cert, err := crypto.ParseCertificate(certPEM)
	if err != nil {
		return nil, crypto.JWS{}, err
	}
	m.Signature = &Signature{
		Type:          "jws-detached",
		CertSubject:   cert.Subject.String(),
		Issuer:        cert.Issuer.String(),
		SignatureFile: sigPath,
	}
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, crypto.JWS{}, err
	}
	jws, err := crypto.SignDetached(payload, keyPEM)
	if err != nil {
		return nil, crypto.JWS{}, fmt.Errorf("sign manifest: %w", err)
	}
	return payload, jws, nil
}

// SignaturePath is the default location of the JWS for a manifest at out.
func SignaturePath(out string) string {
	if ext := filepath.Ext(out); ext != "" {
		return out[:len(out)-len(ext)] + ".jws"
	}
	return out + ".jws"
}
