package nonce_test

import (
	"testing"
	"time"

	"github.com/zeroauth/authgate/pkg/nonce"
)

func TestRedeemOnce(t *testing.T) {
	service, err := nonce.NewHashicorpService(time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	id, err := service.Get()
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected non-empty nonce")
	}

	if err := service.Redeem(id); err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}
	if err := service.Redeem(id); err == nil {
		t.Fatal("expected error on second redeem")
	}
}

func TestRedeemUnknown(t *testing.T) {
	service, err := nonce.NewHashicorpService(time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if err := service.Redeem("never-issued"); err == nil {
		t.Fatal("expected error for unknown nonce")
	}
}
