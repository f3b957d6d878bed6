package password

import (
	"errors"
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestArgon2HashAndVerify(t *testing.T) {
	a, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := a.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := a.Verify("P@ssw0rd-Ascii", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed: ok=%v err=%v", ok, err)
	}
	ok, err = a.Verify("wrong-password", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch: ok=%v err=%v", ok, err)
	}
}

func TestArgon2AcceptsPaddedEncoding(t *testing.T) {
	a, _ := NewArgon2(fastConfig())
	hash, err := a.Hash("padded-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	parts := strings.Split(hash, "$")
	p, err := parsePHC(hash)
	if err != nil {
		t.Fatalf("parsePHC error: %v", err)
	}
	// 16-byte salt and 32-byte key need padding in std base64.
	padded := strings.Join(parts[:4], "$") + "$" + stdB64(p.salt) + "$" + stdB64(p.key)

	ok, err := a.Verify("padded-password", padded)
	if err != nil || !ok {
		t.Fatalf("padded hash must verify: ok=%v err=%v", ok, err)
	}
}

func TestArgon2NeedsRehash(t *testing.T) {
	weak, _ := NewArgon2(fastConfig())
	hash, err := weak.Hash("upgrade-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strong := fastConfig()
	strong.Time = 2
	a, _ := NewArgon2(strong)
	if !a.NeedsRehash(hash) {
		t.Fatal("expected weaker hash to need rehash")
	}
	if weak.NeedsRehash(hash) {
		t.Fatal("expected current hash to be fine")
	}
	if !weak.NeedsRehash("garbage") {
		t.Fatal("garbage must need rehash")
	}
}

func TestArgon2RejectsMalformed(t *testing.T) {
	a, _ := NewArgon2(fastConfig())
	hash, _ := a.Hash("version-test-pw")

	cases := map[string]error{
		"not-a-phc-hash": ErrMalformedHash,
		strings.Replace(hash, "$v=19$", "$v=18$", 1):      ErrUnsupportedHash,
		strings.Replace(hash, "argon2id", "argon2i", 1):   ErrUnsupportedHash,
		strings.Replace(hash, "m=8192", "m=12", 1):        ErrMalformedHash,
		strings.Replace(hash, "t=1,p=1", "t=1,p=300", 1):  ErrMalformedHash,
		strings.Replace(hash, "m=8192,t=1,p=1", "x=1", 1): ErrMalformedHash,
	}
	for in, want := range cases {
		if _, err := a.Verify("version-test-pw", in); !errors.Is(err, want) {
			t.Fatalf("%q: expected %v, got %v", in, want, err)
		}
	}
}

func TestArgon2LengthBounds(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 64
	a, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	for _, pw := range []string{"", "short", strings.Repeat("a", 65)} {
		if _, err := a.Hash(pw); !errors.Is(err, ErrPasswordLength) {
			t.Fatalf("len %d: expected ErrPasswordLength, got %v", len(pw), err)
		}
	}
	exact := strings.Repeat("b", 64)
	hash, err := a.Hash(exact)
	if err != nil {
		t.Fatalf("max-length password rejected: %v", err)
	}
	if _, err := a.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrPasswordLength) {
		t.Fatalf("expected Verify to reject long input, got %v", err)
	}
}

func TestArgon2ConfigValidation(t *testing.T) {
	bad := fastConfig()
	bad.Memory = 1024
	if _, err := NewArgon2(bad); err == nil {
		t.Fatal("expected low memory to be rejected")
	}
	bad = fastConfig()
	bad.SaltLength = 8
	if _, err := NewArgon2(bad); err == nil {
		t.Fatal("expected short salt to be rejected")
	}
}
