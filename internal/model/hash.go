package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix allows changing the
// encoding without colliding with stored digests.
const (
	DomainDocument = "harnessgraph/document/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentDigest returns the content digest stored next to a snapshot.
// Equal documents (including preserved unknown members) digest equally
// regardless of key order.
func DocumentDigest(d *Document) (string, error) {
	if d == nil {
		return "", nil
	}
	canonical, err := MarshalCanonical(d)
	if err != nil {
		return "", fmt.Errorf("DocumentDigest: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// CanonicalJSON is MarshalCanonical returning a string, for traces.
func CanonicalJSON(v any) (string, error) {
	b, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
