// ticket_test.go - Ticket encryption tests.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

package ticket

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptPassword(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(err)

	pub, err := ParsePublicKey(der)
	require.NoError(err)

	ct, err := EncryptPassword(pub, "hunter2")
	require.NoError(err)
	require.Len(ct, pub.Size())

	pt, err := rsa.DecryptOAEP(sha1.New(), nil, key, ct, nil)
	require.NoError(err)
	require.Equal([]byte("hunter2\x00"), pt)
}

func TestParsePublicKeyRejectsGarbage(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	_, err := ParsePublicKey([]byte{0x30, 0x00})
	require.Error(err)
}
