// ticket.go - SPICE ticket encryption.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package ticket implements the SPICE ticket authentication primitive:
// RSA-OAEP(SHA-1, MGF1-SHA1) encryption of a short secret against the
// server's ASN.1 SubjectPublicKeyInfo encoded RSA public key.
package ticket

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"errors"
	"fmt"
)

var errNotRSA = errors.New("ticket: server key is not an RSA public key")

// ParsePublicKey parses the DER encoded SubjectPublicKeyInfo sent in the
// link reply.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("ticket: failed to parse server key: %w", err)
	}
	k, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errNotRSA
	}
	return k, nil
}

// EncryptPassword encrypts the NUL terminated password against the
// server's public key.  The returned ciphertext is always exactly
// k.Size() bytes.
func EncryptPassword(k *rsa.PublicKey, password string) ([]byte, error) {
	pt := make([]byte, 0, len(password)+1)
	pt = append(pt, password...)
	pt = append(pt, 0)

	ct, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, k, pt, nil)
	if err != nil {
		return nil, fmt.Errorf("ticket: failed to encrypt password: %w", err)
	}
	return ct, nil
}
