package flowstate_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zeroauth/authgate/pkg/flowstate"
	"github.com/zeroauth/authgate/pkg/util"
)

func newTestCodec(t *testing.T) *flowstate.Codec {
	t.Helper()
	codec, err := flowstate.NewCodec(util.GenerateRandomKey(256), []string{"github", "google"})
	if err != nil {
		t.Fatal(err)
	}
	return codec
}

func TestRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	encoded, err := codec.Encode(flowstate.State{
		Client:    "note",
		ReturnURL: "https://note.example/cb",
		Provider:  "github",
		IssuedAt:  time.Now().Unix(),
	})
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Client != "note" {
		t.Errorf("expected client note, got %s", decoded.Client)
	}
	if decoded.ReturnURL != "https://note.example/cb" {
		t.Errorf("unexpected return url %s", decoded.ReturnURL)
	}
	if decoded.Provider != "github" {
		t.Errorf("unexpected provider %s", decoded.Provider)
	}
}

func TestDecodeGarbage(t *testing.T) {
	codec := newTestCodec(t)

	for _, input := range []string{"", "garbage", "a.b.c", "!!!"} {
		if _, err := codec.Decode(input); !errors.Is(err, flowstate.ErrInvalidState) {
			t.Errorf("input %q: expected ErrInvalidState, got %v", input, err)
		}
	}
}

func TestDecodeTampered(t *testing.T) {
	codec := newTestCodec(t)

	encoded, err := codec.Encode(flowstate.State{
		Client:    "note",
		ReturnURL: "https://note.example/cb",
		Provider:  "github",
	})
	if err != nil {
		t.Fatal(err)
	}

	// flip a character in the payload segment
	parts := strings.Split(encoded, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	parts[1] = string(payload)
	tampered := strings.Join(parts, ".")

	if _, err := codec.Decode(tampered); !errors.Is(err, flowstate.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for tampered payload, got %v", err)
	}
}

func TestDecodeWrongKey(t *testing.T) {
	codec := newTestCodec(t)
	other := newTestCodec(t)

	encoded, err := codec.Encode(flowstate.State{
		Client:    "note",
		ReturnURL: "https://note.example/cb",
		Provider:  "github",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.Decode(encoded); !errors.Is(err, flowstate.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for foreign key, got %v", err)
	}
}

func TestDecodeUnknownProvider(t *testing.T) {
	codec, err := flowstate.NewCodec(util.GenerateRandomKey(256), []string{"github"})
	if err != nil {
		t.Fatal(err)
	}

	encoded, err := codec.Encode(flowstate.State{
		Client:    "note",
		ReturnURL: "https://note.example/cb",
		Provider:  "facebook",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := codec.Decode(encoded); !errors.Is(err, flowstate.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for unknown provider, got %v", err)
	}
}

func TestShortSecretRejected(t *testing.T) {
	if _, err := flowstate.NewCodec([]byte("short"), []string{"github"}); err == nil {
		t.Fatal("expected error for short secret")
	}
}
