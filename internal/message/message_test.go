package message

import (
	"testing"

	"github.com/Klingon-tech/klingnet-chain/internal/chain"
)

func TestRoundTrip_ChainRequest(t *testing.T) {
	m := NewChainRequest(TransmitType{Kind: ToOne, PeerID: "peer-1"}, "peer-2")
	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if got.Kind != KindChainRequest || got.SenderPeerID != "peer-2" || got.TransmitType.PeerID != "peer-1" {
		t.Fatalf("round trip = %+v, want sender peer-2 transmit to peer-1", got)
	}
}

func TestRoundTrip_ChainResponse(t *testing.T) {
	c := chain.Genesis()
	c.MineThenPush("hi")
	m := NewChainResponse(TransmitType{Kind: ToAll}, c)

	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if len(got.Chain) != 2 {
		t.Fatalf("len(Chain) = %d, want 2", len(got.Chain))
	}
}

func TestRoundTrip_NewBlock(t *testing.T) {
	c := chain.Genesis()
	b := c.MineThenPush("payload")
	m := NewBlockMsg(b)

	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if got.Block == nil || got.Block.Hash != b.Hash {
		t.Fatalf("Block = %v, want hash %q", got.Block, b.Hash)
	}
	if got.TransmitType.Kind != ToAll {
		t.Fatalf("TransmitType = %v, want ToAll", got.TransmitType)
	}
}

func TestDecode_RejectsUnknownKind(t *testing.T) {
	if _, err := Decode([]byte(`{"kind":"bogus"}`)); err == nil {
		t.Fatal("Decode(bogus kind) = nil error, want error")
	}
}
