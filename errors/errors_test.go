package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKitErrorString(t *testing.T) {
	err := Config("serviceDescriptor.serviceName missing")
	want := "CONFIG_INVALID: serviceDescriptor.serviceName missing"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestKitErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Registration("redis unreachable", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to match the cause")
	}
	if err.Error() == "" || err.Unwrap() != cause {
		t.Error("expected cause to be preserved")
	}
}

func TestAsKitError(t *testing.T) {
	wrapped := fmt.Errorf("start: %w", Listen("bind failed", nil))

	ke, ok := AsKitError(wrapped)
	if !ok {
		t.Fatal("expected AsKitError to find the KitError")
	}
	if ke.Code != ErrCodeListen {
		t.Errorf("expected LISTEN_FAILED, got %s", ke.Code)
	}
}

func TestAsKitErrorPlainError(t *testing.T) {
	if _, ok := AsKitError(fmt.Errorf("plain")); ok {
		t.Error("expected false for a plain error")
	}
}

func TestHasCode(t *testing.T) {
	err := Plugin("telemetry", "config", fmt.Errorf("boom"))
	if !HasCode(err, ErrCodePlugin) {
		t.Error("expected PLUGIN_FAILED code")
	}
	if HasCode(err, ErrCodeConfig) {
		t.Error("did not expect CONFIG_INVALID code")
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(NotFound("/missing")); got != http.StatusNotFound {
		t.Errorf("expected 404, got %d", got)
	}
	if got := StatusOf(fmt.Errorf("plain")); got != http.StatusInternalServerError {
		t.Errorf("expected 500 for plain error, got %d", got)
	}
}

func TestToEnvelopeCarriesOnlyCode(t *testing.T) {
	env := ToEnvelope(NotFound("/x"))
	if env.Code != 404 {
		t.Errorf("expected code 404, got %d", env.Code)
	}
}
