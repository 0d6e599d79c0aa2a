package revert

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/google/go-cmp/cmp"
)

func TestErrFrom(t *testing.T) {
	data := []byte("reason")

	tests := []struct {
		name     string
		err      error
		wantData bool
	}{
		{
			name: "nil",
		},
		{
			name: "out of gas",
			err:  vm.ErrOutOfGas,
		},
		{
			name:     "reverted",
			err:      vm.ErrExecutionReverted,
			wantData: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrFrom(data, tt.err)
			if !errors.Is(got, tt.err) {
				t.Errorf("ErrFrom(…, %v) got %v; want errors.Is() original", tt.err, got)
			}

			// Wrapping MUST NOT hide the data.
			wrapped := fmt.Errorf("call: %w", got)
			gotData, ok := Data(wrapped)
			if ok != tt.wantData {
				t.Fatalf("Data(ErrFrom(…, %v)) got ok = %t; want %t", tt.err, ok, tt.wantData)
			}
			if !ok {
				return
			}
			if diff := cmp.Diff(data, gotData); diff != "" {
				t.Errorf("Data(ErrFrom(…)) diff (-want +got):\n%s", diff)
			}
		})
	}
}
