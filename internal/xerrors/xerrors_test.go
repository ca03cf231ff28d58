package xerrors

import (
	"errors"
	"io"
	"testing"
)

func TestWrap_Message(t *testing.T) {
	err := Wrap(io.EOF, "reading settings")
	if got, want := err.Error(), "reading settings: EOF"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrap_NilPassthrough(t *testing.T) {
	if Wrap(nil, "nope") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "nope %d", 1) != nil {
		t.Fatal("Wrapf(nil) should be nil")
	}
}

func TestWrap_Unwrap(t *testing.T) {
	err := Wrapf(io.ErrUnexpectedEOF, "queue %s", "default")
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("wrapped error should match with errors.Is")
	}
}

func TestNew_CarriesStack(t *testing.T) {
	err := New("boom")
	type hasStack interface{ StackPCs() []uintptr }
	var hs hasStack
	if !errors.As(err, &hs) || len(hs.StackPCs()) == 0 {
		t.Fatal("New should capture a stack")
	}
}

func TestWrap_CarriesPC(t *testing.T) {
	err := Wrap(io.EOF, "x")
	type hasPC interface{ PC() uintptr }
	var hp hasPC
	if !errors.As(err, &hp) || hp.PC() == 0 {
		t.Fatal("Wrap should capture caller PC")
	}
}
