package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"would block", ErrWouldBlock, true},
		{"not connected", ErrNotConnected, true},
		{"graph changed", ErrGraphChanged, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"filter parse", ErrFilterParse, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"filter parse", ErrFilterParse, true},
		{"filter unsupported", ErrFilterUnsupported, true},
		{"short payload", ErrShortPayload, true},
		{"would block", ErrWouldBlock, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestWrap_Format(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(base, "Publisher", "Publish", "encode message")

	if wrapped == nil {
		t.Fatal("expected non-nil error")
	}
	expected := "Publisher.Publish: encode message failed: boom"
	if wrapped.Error() != expected {
		t.Errorf("expected %q, got %q", expected, wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match base via errors.Is")
	}
}

func TestWrap_NilPassthrough(t *testing.T) {
	if Wrap(nil, "C", "M", "a") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if WrapTransient(nil, "C", "M", "a") != nil {
		t.Error("WrapTransient(nil) should return nil")
	}
	if WrapInvalid(nil, "C", "M", "a") != nil {
		t.Error("WrapInvalid(nil) should return nil")
	}
	if WrapFatal(nil, "C", "M", "a") != nil {
		t.Error("WrapFatal(nil) should return nil")
	}
}

func TestWrapPreservesClassification(t *testing.T) {
	err := WrapTransient(ErrWouldBlock, "Publisher", "Publish", "write")
	if !IsTransient(err) {
		t.Error("classification should survive wrapping")
	}
	if !errors.Is(err, ErrWouldBlock) {
		t.Error("sentinel should survive wrapping")
	}

	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		t.Fatal("expected ClassifiedError in chain")
	}
	if ce.Component != "Publisher" {
		t.Errorf("expected component Publisher, got %s", ce.Component)
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindOK, "ok"},
		{KindInvalidArgument, "invalid_argument"},
		{KindNotFound, "not_found"},
		{KindOperationFailed, "operation_failed"},
		{KindOutOfMemory, "out_of_memory"},
		{Kind(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if got := test.kind.String(); got != test.expected {
				t.Errorf("expected %s, got %s", test.expected, got)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"nil", nil, KindOK},
		{"no sample", ErrNoSample, KindNotFound},
		{"node name", ErrNodeNameNonExistent, KindNotFound},
		{"filter parse", ErrFilterParse, KindInvalidArgument},
		{"incorrect impl", ErrIncorrectImplementation, KindInvalidArgument},
		{"resource exhausted", ErrResourceExhausted, KindOutOfMemory},
		{"short buffer", &ShortBufferError{Required: 128}, KindOutOfMemory},
		{"unknown", errors.New("whatever"), KindOperationFailed},
		{"tagged", WithKind(KindNotFound, errors.New("gone")), KindNotFound},
		{"tagged wrapped", Wrap(WithKind(KindInvalidArgument, errors.New("bad")), "C", "M", "a"), KindInvalidArgument},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := KindOf(test.err); got != test.expected {
				t.Errorf("expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestRequiredSize(t *testing.T) {
	err := Wrap(&ShortBufferError{Required: 4096}, "Reader", "Take", "read sample")
	if got := RequiredSize(err); got != 4096 {
		t.Errorf("expected 4096, got %d", got)
	}
	if got := RequiredSize(errors.New("other")); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestShortBufferError_Message(t *testing.T) {
	err := &ShortBufferError{Required: 10}
	if !strings.Contains(err.Error(), "buffer too small") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
