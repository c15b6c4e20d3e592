package security

import "testing"

func TestPasswordHasherRoundtrip(t *testing.T) {
	hasher := NewPasswordHasher(4)

	hash, err := hasher.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct-horse" {
		t.Fatal("hash must not be the plaintext")
	}
	if !hasher.Verify(hash, "correct-horse") {
		t.Fatal("expected matching password to verify")
	}
	if hasher.Verify(hash, "wrong-horse") {
		t.Fatal("expected wrong password to fail")
	}
}

func TestPasswordHasherClampsBadCost(t *testing.T) {
	hasher := NewPasswordHasher(99)
	hash, err := hasher.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash with clamped cost: %v", err)
	}
	if !hasher.Verify(hash, "correct-horse") {
		t.Fatal("expected clamped hasher to verify")
	}
}
