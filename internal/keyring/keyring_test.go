package keyring

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestPasswordLifecycle(t *testing.T) {
	keyring.MockInit()

	const id = "6f1c2a52-4d0e-4a8e-9f61-0c5b1e2d3a4b"

	if HasPassword(id) {
		t.Fatal("HasPassword() = true before save")
	}
	if _, err := GetPassword(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPassword() error = %v, want ErrNotFound", err)
	}

	if err := SavePassword(id, "secret"); err != nil {
		t.Fatalf("SavePassword() error = %v", err)
	}
	got, err := GetPassword(id)
	if err != nil {
		t.Fatalf("GetPassword() error = %v", err)
	}
	if got != "secret" {
		t.Errorf("GetPassword() = %q, want %q", got, "secret")
	}
	if !HasPassword(id) {
		t.Error("HasPassword() = false after save")
	}

	if err := DeletePassword(id); err != nil {
		t.Fatalf("DeletePassword() error = %v", err)
	}
	if HasPassword(id) {
		t.Error("HasPassword() = true after delete")
	}
	if err := DeletePassword(id); err != nil {
		t.Errorf("DeletePassword() on missing password error = %v", err)
	}
}
