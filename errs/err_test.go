package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErr(t *testing.T) {
	err := BadKey.Printf("key=%q", "")
	fmt.Println(err)
	if !errors.Is(err, BadKey) {
		t.Fatal("derived error should match by code")
	}
	if errors.Is(err, BadCount) {
		t.Fatal("different codes must not match")
	}
}

func TestWrap(t *testing.T) {
	err := WrapError(errors.New("boom"))
	if err.Code() != ErrCode_Unknown {
		t.Fatalf("wrap code: %d", err.Code())
	}
	if WrapError(AtomicState) != AtomicState {
		t.Fatal("wrapping a CodeError should return it unchanged")
	}
}
