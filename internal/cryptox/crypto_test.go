package cryptox

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stackdeck/credvault/internal/common"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, MasterKeySize)
	e, err := NewEngine(key)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	return e
}

func TestParseMasterKey(t *testing.T) {
	valid := strings.Repeat("ab", MasterKeySize)

	key, err := ParseMasterKey(valid)
	if err != nil {
		t.Fatalf("ParseMasterKey error: %v", err)
	}
	if len(key) != MasterKeySize {
		t.Fatalf("want %d bytes, got %d", MasterKeySize, len(key))
	}

	// optional 0x prefix
	key2, err := ParseMasterKey("0x" + valid)
	if err != nil {
		t.Fatalf("ParseMasterKey with prefix error: %v", err)
	}
	if !bytes.Equal(key, key2) {
		t.Errorf("prefix changed the key")
	}

	for _, bad := range []string{"", "abcd", valid + "ab", strings.Repeat("zz", MasterKeySize)} {
		if _, err := ParseMasterKey(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	e := testEngine(t)

	plaintexts := []string{
		"P@ssw0rd!",
		"",
		"пароль-снежинка ❄",
		strings.Repeat("long-", 500),
	}

	for _, p := range plaintexts {
		cipherHex, ivHex, err := e.Encrypt(p)
		if err != nil {
			t.Fatalf("Encrypt(%q) error: %v", p, err)
		}
		if len(ivHex) != ivHexLen {
			t.Fatalf("iv hex length = %d, want %d", len(ivHex), ivHexLen)
		}

		got, err := e.Decrypt(cipherHex, ivHex)
		if err != nil {
			t.Fatalf("Decrypt error: %v", err)
		}
		if got != p {
			t.Errorf("round trip mismatch: got %q", got)
		}
	}
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	e := testEngine(t)

	_, iv1, err := e.Encrypt("same")
	if err != nil {
		t.Fatal(err)
	}
	_, iv2, err := e.Encrypt("same")
	if err != nil {
		t.Fatal(err)
	}
	if iv1 == iv2 {
		t.Errorf("IV reuse across calls")
	}
}

func TestDecrypt_TamperDetection(t *testing.T) {
	e := testEngine(t)

	cipherHex, ivHex, err := e.Encrypt("do not alter")
	if err != nil {
		t.Fatal(err)
	}

	flipBit := func(hexStr string, byteIdx int) string {
		raw, err := hex.DecodeString(hexStr)
		if err != nil {
			t.Fatal(err)
		}
		raw[byteIdx] ^= 0x01
		return hex.EncodeToString(raw)
	}

	// every byte of the ciphertext (payload and tag) is covered by the tag
	for i := 0; i < len(cipherHex)/2; i++ {
		if _, err := e.Decrypt(flipBit(cipherHex, i), ivHex); !errors.Is(err, common.ErrCrypto) {
			t.Fatalf("ciphertext byte %d: want ErrCrypto, got %v", i, err)
		}
	}

	// flipping the IV must also fail authentication
	if _, err := e.Decrypt(cipherHex, flipBit(ivHex, 0)); !errors.Is(err, common.ErrCrypto) {
		t.Fatalf("iv flip: want ErrCrypto, got %v", err)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	e := testEngine(t)

	cipherHex, ivHex, err := e.Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewEngine(bytes.Repeat([]byte{0x43}, MasterKeySize))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Decrypt(cipherHex, ivHex); !errors.Is(err, common.ErrCrypto) {
		t.Fatalf("want ErrCrypto, got %v", err)
	}
}

func TestDecrypt_FormatErrors(t *testing.T) {
	e := testEngine(t)

	cipherHex, ivHex, err := e.Encrypt("x")
	if err != nil {
		t.Fatal(err)
	}

	// IV of the wrong length fails before any AEAD work
	if _, err := e.Decrypt(cipherHex, ivHex[:10]); !errors.Is(err, common.ErrFormat) {
		t.Fatalf("short iv: want ErrFormat, got %v", err)
	}
	if _, err := e.Decrypt(cipherHex, strings.Repeat("zz", 12)); !errors.Is(err, common.ErrFormat) {
		t.Fatalf("non-hex iv: want ErrFormat, got %v", err)
	}
	if _, err := e.Decrypt("not-hex!", ivHex); !errors.Is(err, common.ErrFormat) {
		t.Fatalf("non-hex ciphertext: want ErrFormat, got %v", err)
	}
}

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	pass := []byte("correct horse")
	salt := []byte("fixed-salt")

	k1 := DeriveMasterKey(pass, salt)
	k2 := DeriveMasterKey(pass, salt)
	if !bytes.Equal(k1, k2) {
		t.Errorf("same inputs must derive the same key")
	}
	if len(k1) != MasterKeySize {
		t.Errorf("derived key length = %d, want %d", len(k1), MasterKeySize)
	}

	k3 := DeriveMasterKey(pass, []byte("other-salt"))
	if bytes.Equal(k1, k3) {
		t.Errorf("different salts must derive different keys")
	}
}
