package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("expected hashing to succeed, got error: %v", err)
	}
	if hash == "" || hash == "correct-horse" {
		t.Fatalf("expected an opaque hash, got %q", hash)
	}
	if !CheckPassword("correct-horse", hash) {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword("battery-staple", hash) {
		t.Fatal("expected wrong password to fail")
	}
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Fatal("expected malformed hash to fail")
	}
}

func TestChecksum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Checksum([]byte("abc")); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
