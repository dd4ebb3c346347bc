package errors

import (
	"fmt"
	"testing"
)

func TestCodeOfAndIs(t *testing.T) {
	err := New(Overflow, "fp.Add")
	if CodeOf(err) != Overflow {
		t.Fatalf("CodeOf(New(Overflow,...)) = %v, want Overflow", CodeOf(err))
	}
	if !Is(err, Overflow) {
		t.Fatalf("Is(err, Overflow) should be true")
	}
	if Is(err, Underflow) {
		t.Fatalf("Is(err, Underflow) should be false")
	}
}

func TestCodeOfNonCoreError(t *testing.T) {
	if CodeOf(fmt.Errorf("plain error")) != 0 {
		t.Fatalf("CodeOf on a non-core error should return the zero Code")
	}
	if CodeOf(nil) != 0 {
		t.Fatalf("CodeOf(nil) should return the zero Code")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := Wrap(SqrtNoConverge, "isqrt.Sqrt256", cause)
	if err.Unwrap() != cause {
		t.Fatalf("Unwrap should return the wrapped cause")
	}
	if CodeOf(err) != SqrtNoConverge {
		t.Fatalf("CodeOf on a wrapped error should still return its Code")
	}
}

func TestClassGrouping(t *testing.T) {
	cases := []struct {
		code Code
		want Class
	}{
		{Overflow, ClassArithmetic},
		{InvalidTickRange, ClassDomain},
		{InsufficientLiquidity, ClassState},
		{SlippageExceeded, ClassSlippage},
		{Unauthorized, ClassAuth},
	}
	for _, c := range cases {
		if got := c.code.Class(); got != c.want {
			t.Fatalf("%v.Class() = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestErrorMessageFormat(t *testing.T) {
	err := New(DivideByZero, "fp.Div")
	if err.Error() == "" {
		t.Fatalf("Error() should not be empty")
	}

	wrapped := Wrap(DivideByZero, "fp.Div", fmt.Errorf("cause"))
	if wrapped.Error() == err.Error() {
		t.Fatalf("wrapped error message should differ from the unwrapped one (it includes the cause)")
	}
}
