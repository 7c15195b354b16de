package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("lead not found"), http.StatusNotFound},
		{Validation("bad radius"), http.StatusBadRequest},
		{Forbidden("other client"), http.StatusForbidden},
		{Unavailable("storage disabled"), http.StatusServiceUnavailable},
		{Internal("boom", errors.New("db down")), http.StatusInternalServerError},
		{New(KindUnknown, "?"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("%q: expected %d, got %d", tc.err.Message, tc.want, got)
		}
	}
}

func TestGetKindFollowsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("load lead: %w", NotFound("lead not found").WithOp("service.ListLeadMatches"))

	if !Is(err, KindNotFound) {
		t.Fatalf("expected wrapped error to be KindNotFound, got %v", GetKind(err))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected plain errors to be KindUnknown")
	}
}
