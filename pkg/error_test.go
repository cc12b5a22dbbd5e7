package pkg

import (
	"errors"
	"fmt"
	"testing"
)

func TestAlignmentFault_Error(t *testing.T) {
	tests := []struct {
		fault AlignmentFault
		want  string
	}{
		{AlignmentFault{"xhci.Doorbell", 0x1101, 4}, "xhci.Doorbell: address 0x1101 not aligned to 4 bytes"},
		{AlignmentFault{"xhci.CRCR", 0x2004, 8}, "xhci.CRCR: address 0x2004 not aligned to 8 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.fault.Error(); got != tt.want {
				t.Errorf("AlignmentFault.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAlignmentFault_Is(t *testing.T) {
	var err error = &AlignmentFault{Register: "r", Addr: 1, Align: 4}
	if !errors.Is(err, ErrMisaligned) {
		t.Error("AlignmentFault should match ErrMisaligned")
	}

	wrapped := fmt.Errorf("construct: %w", err)
	var fault *AlignmentFault
	if !errors.As(wrapped, &fault) {
		t.Fatal("errors.As failed to find AlignmentFault")
	}
	if fault.Addr != 1 || fault.Align != 4 {
		t.Errorf("fault = %+v", fault)
	}
}

func TestSentinelErrors(t *testing.T) {
	// Verify all sentinel errors are distinct
	errs := []error{
		ErrMisaligned,
		ErrMap,
		ErrOutOfRange,
		ErrNotMapped,
		ErrClosed,
		ErrNoController,
		ErrInvalidParameter,
	}

	for i, err1 := range errs {
		if err1 == nil {
			t.Errorf("error %d is nil", i)
			continue
		}
		for j, err2 := range errs {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("error %d and %d are equal", i, j)
			}
		}
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err     error
		wantMsg string
	}{
		{ErrMisaligned, "misaligned register address"},
		{ErrMap, "register range not mappable"},
		{ErrOutOfRange, "address out of range"},
		{ErrNoController, "no xHCI controller"},
	}

	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("error.Error() = %v, want %v", got, tt.wantMsg)
			}
		})
	}
}
