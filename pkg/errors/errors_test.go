package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeSignature, status: http.StatusBadRequest, publicMsg: "signature verification failed"},
		{code: CodeProvider, status: http.StatusBadRequest, publicMsg: "payment provider rejected the request", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing amount")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing amount" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	withDetails := base.WithDetails(map[string]string{"amount": "required"})
	details, ok := withDetails.Details().(map[string]string)
	if !ok || details["amount"] != "required" {
		t.Fatalf("unexpected details %#v", withDetails.Details())
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "redis unavailable")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatal("wrapped error should unwrap to its cause")
	}
	if wrapped.Error() != "DEPENDENCY_ERROR: redis unavailable" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}

	if got := Wrap(CodeInternal, nil, "no cause").Unwrap(); got != nil {
		t.Fatalf("wrapping a nil cause should leave Unwrap nil, got %v", got)
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	typed := New(CodeNotFound, "contribution missing")
	wrapped := fmt.Errorf("loading contribution: %w", typed)

	found := As(wrapped)
	if found == nil {
		t.Fatal("expected typed error in chain")
	}
	if found.Code() != CodeNotFound {
		t.Fatalf("expected not-found code, got %s", found.Code())
	}

	if As(stdErrors.New("plain")) != nil {
		t.Fatal("plain errors must not match")
	}
	if As(nil) != nil {
		t.Fatal("nil errors must not match")
	}
}

func TestDumpExtractsPGFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "webhook_receipts_stripe_event_id_key",
		TableName:      "webhook_receipts",
		Detail:         "Key (stripe_event_id)=(evt_1) already exists.",
		Message:        "duplicate key value violates unique constraint",
	}
	wrapped := Wrap(CodeConflict, fmt.Errorf("claiming receipt: %w", pgErr), "event already claimed")

	dump := Dump(wrapped)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.PGCode != "23505" {
		t.Fatalf("expected pg code 23505, got %q", dump.PGCode)
	}
	if dump.PGConstraint != "webhook_receipts_stripe_event_id_key" {
		t.Fatalf("unexpected constraint %q", dump.PGConstraint)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected unwrap chain, got %v", dump.Chain)
	}
}

func TestDumpHandlesPlainAndNilErrors(t *testing.T) {
	if dump := Dump(nil); dump.TopMessage != "" {
		t.Fatalf("nil error should produce empty dump, got %#v", dump)
	}

	dump := Dump(stdErrors.New("plain failure"))
	if dump.TopMessage != "plain failure" {
		t.Fatalf("unexpected top message %q", dump.TopMessage)
	}
	if dump.PGCode != "" {
		t.Fatalf("plain errors should have no pg fields, got %q", dump.PGCode)
	}
}
