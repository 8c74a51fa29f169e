package crypto

import "testing"

func TestHash_Deterministic(t *testing.T) {
	data := []byte("gossip payload")
	if Hash(data) != Hash(data) {
		t.Error("Hash is not deterministic for identical input")
	}
}

func TestHash_DiffersOnDifferentInput(t *testing.T) {
	if Hash([]byte("a")) == Hash([]byte("b")) {
		t.Error("Hash collided on distinct inputs")
	}
}
