package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		err   error
		check func(error) bool
		want  string
	}{
		{Validationf("bad input"), IsValidation, "validation"},
		{NotFoundf("no such zone"), IsNotFound, "not found"},
		{Decodef(errors.New("bad byte"), "malformed polyline"), IsDecode, "decode"},
		{OverAllocationf("too much"), IsOverAllocation, "over-allocation"},
		{Conflictf("zone busy"), IsConflict, "conflict"},
	}
	for _, c := range cases {
		if !c.check(c.err) {
			t.Errorf("Expected %v to be a %s error", c.err, c.want)
		}
	}

	if IsNotFound(Validationf("bad input")) {
		t.Error("Expected kinds to not cross-match")
	}
	if IsValidation(errors.New("plain")) {
		t.Error("Expected a plain error to match no kind")
	}
}

func TestWrappedErrorsStillMatch(t *testing.T) {
	err := fmt.Errorf("allocating activity: %w", NotFoundf("competition %s", "abc"))
	if !IsNotFound(err) {
		t.Error("Expected kind match through wrapping")
	}
}

func TestDecodeKeepsCause(t *testing.T) {
	cause := errors.New("unterminated sequence")
	err := Decodef(cause, "malformed polyline")
	if !errors.Is(err, cause) {
		t.Error("Expected the cause reachable through Unwrap")
	}
}
