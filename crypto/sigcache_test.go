package crypto

import (
	"testing"
)

func TestSignerCacheHitsAndMisses(t *testing.T) {
	key := DeterministicKey(7)
	msg := []byte("cached")
	sig, err := SignMessage(msg, key)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	digest := MessageHash(msg)

	c := NewSignerCache(8)
	for i := 0; i < 3; i++ {
		addr, err := c.Recover(digest, sig)
		if err != nil {
			t.Fatalf("Recover #%d: %v", i, err)
		}
		if addr != PubkeyToAddress(key.PublicKey) {
			t.Fatalf("Recover #%d: wrong signer %s", i, addr)
		}
	}
	st := c.Stats()
	if st.Misses != 1 || st.Hits != 2 || st.Entries != 1 {
		t.Fatalf("stats: got %+v, want 1 miss, 2 hits, 1 entry", st)
	}

	c.Purge()
	if st := c.Stats(); st.Hits != 0 || st.Misses != 0 || st.Entries != 0 {
		t.Fatalf("stats after purge: %+v", st)
	}
}

func TestSignerCacheDoesNotCacheFailures(t *testing.T) {
	c := NewSignerCache(0)
	bad := make([]byte, SignatureLength)
	if _, err := c.Recover(MessageHash([]byte("m")), bad); err == nil {
		t.Fatal("expected recovery failure for zero signature")
	}
	if c.Len() != 0 {
		t.Fatalf("failed recovery was cached: len %d", c.Len())
	}
}

func TestSignerCacheEviction(t *testing.T) {
	c := NewSignerCache(2)
	key := DeterministicKey(9)
	for i := 0; i < 3; i++ {
		msg := []byte{byte(i)}
		sig, err := SignMessage(msg, key)
		if err != nil {
			t.Fatalf("SignMessage: %v", err)
		}
		if _, err := c.Recover(MessageHash(msg), sig); err != nil {
			t.Fatalf("Recover: %v", err)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", c.Len())
	}
}

func TestNilSignerCacheRecovers(t *testing.T) {
	var c *SignerCache
	key := DeterministicKey(3)
	sig, err := SignMessage([]byte("nil"), key)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	addr, err := c.Recover(MessageHash([]byte("nil")), sig)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if addr != PubkeyToAddress(key.PublicKey) {
		t.Fatal("nil cache recovered wrong signer")
	}
}
