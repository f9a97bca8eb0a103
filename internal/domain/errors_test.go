package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestConnError_Error(t *testing.T) {
	err := NewConnError("read", 7, ErrConnClosed)

	if got := err.Error(); !strings.Contains(got, "connection #7 read") {
		t.Errorf("Error() = %q, want it to mention connection #7 read", got)
	}

	noID := NewConnError("accept", 0, errors.New("boom"))
	if got := noID.Error(); got != "accept: boom" {
		t.Errorf("Error() = %q, want %q", got, "accept: boom")
	}
}

func TestConnError_Unwrap(t *testing.T) {
	err := error(NewConnError("read", 1, ErrConnClosed))

	if !errors.Is(err, ErrConnClosed) {
		t.Error("errors.Is should see ErrConnClosed through ConnError")
	}
	if !IsConnClosed(err) {
		t.Error("IsConnClosed() = false, want true")
	}

	var ce *ConnError
	if !errors.As(err, &ce) {
		t.Fatal("errors.As should find *ConnError")
	}
	if ce.ID != 1 {
		t.Errorf("ID = %d, want 1", ce.ID)
	}
}
