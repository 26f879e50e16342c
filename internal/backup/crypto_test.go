package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("SQLite format 3\x00 household data")

	enc, err := Encrypt(plaintext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Contains(enc, []byte("household")) {
		t.Error("ciphertext contains plaintext")
	}
	if len(enc) != saltSize+nonceSize+len(plaintext)+16 {
		t.Errorf("len = %d, want %d", len(enc), saltSize+nonceSize+len(plaintext)+16)
	}

	dec, err := Decrypt(enc, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(dec, plaintext) {
		t.Errorf("Decrypt = %q, want %q", dec, plaintext)
	}
}

func TestEncryptUsesFreshSalt(t *testing.T) {
	a, err := Encrypt([]byte("x"), "pw")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encrypt([]byte("x"), "pw")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a[:saltSize], b[:saltSize]) {
		t.Error("two backups share a salt")
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	enc, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(enc, "wrong"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}
}

func TestDecryptTruncated(t *testing.T) {
	enc, err := Encrypt([]byte("secret"), "pw")
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{0, saltSize, saltSize + nonceSize, len(enc) - 1} {
		if _, err := Decrypt(enc[:n], "pw"); !errors.Is(err, ErrCorrupt) {
			t.Errorf("Decrypt(%d bytes) err = %v, want ErrCorrupt", n, err)
		}
	}
}
