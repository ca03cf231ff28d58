package prof

import (
	"context"
	"testing"
)

func TestStart_Disabled(t *testing.T) {
	stop, err := Start(context.Background(), Options{Enabled: false})
	if err != nil {
		t.Fatalf("Start disabled: %v", err)
	}
	stop() // must be safe
}

func TestStart_EnabledWithoutAddress(t *testing.T) {
	stop, err := Start(context.Background(), Options{Enabled: true})
	if err == nil {
		t.Fatal("expected error when enabled without address")
	}
	stop() // still safe
}
