package cardutil

import (
	"encoding/base64"
	"errors"
	"testing"
)

var testKey = []byte("a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}

	for _, plaintext := range []string{"4111111111111111", "123", "", "holder name with spaces"} {
		blob, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q) err=%v", plaintext, err)
		}
		got, err := c.Decrypt(blob)
		if err != nil {
			t.Fatalf("Decrypt err=%v", err)
		}
		if got != plaintext {
			t.Fatalf("round trip: got %q want %q", got, plaintext)
		}
	}
}

func TestEncryptNonceUniqueness(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}

	a, err := c.Encrypt("4111111111111111")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encrypt("4111111111111111")
	if err != nil {
		t.Fatal(err)
	}
	// Equal blobs for equal plaintexts would leak card-number equality.
	if a == b {
		t.Fatal("two encryptions of the same plaintext produced identical blobs")
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]string{
		"not base64": "%%%not-base64%%%",
		"too short":  base64.StdEncoding.EncodeToString([]byte("abc")),
		"garbage":    base64.StdEncoding.EncodeToString(make([]byte, 64)),
	}
	for name, blob := range cases {
		if _, err := c.Decrypt(blob); !errors.Is(err, ErrCiphertextInvalid) {
			t.Errorf("%s: want ErrCiphertextInvalid, got %v", name, err)
		}
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}

	blob, err := c.Encrypt("4111111111111111")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := c.Decrypt(tampered); !errors.Is(err, ErrCiphertextInvalid) {
		t.Fatalf("want ErrCiphertextInvalid for tampered blob, got %v", err)
	}
}

func TestNewCipherRejectsBadKey(t *testing.T) {
	if _, err := NewCipher([]byte("short")); err == nil {
		t.Fatal("expected error for invalid key length")
	}
}

func TestMaskNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"4111111111111111", "**** **** **** 1111"},
		{"1234567890123", "**** **** **** 0123"},
		{"1234", "**** **** **** 1234"},
		{"12", "****"},
		{"", "****"},
	}
	for _, tc := range cases {
		if got := MaskNumber(tc.in); got != tc.want {
			t.Errorf("MaskNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
