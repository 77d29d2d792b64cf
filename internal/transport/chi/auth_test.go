package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecretGate_EmptySecret_PassThrough(t *testing.T) {
	handler := SecretGate("")(okHandler())

	req := httptest.NewRequest("GET", "/item/query", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("empty secret: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestSecretGate_MissingHeader_401(t *testing.T) {
	handler := SecretGate("hunter2")(okHandler())

	req := httptest.NewRequest("GET", "/item/query", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing header: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	var errResp errorBody
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != errCodeAccessDenied {
		t.Errorf("error code: got %q, want %q", errResp.Code, errCodeAccessDenied)
	}
}

func TestSecretGate_WrongSecret_401(t *testing.T) {
	handler := SecretGate("hunter2")(okHandler())

	req := httptest.NewRequest("GET", "/item/query", http.NoBody)
	req.Header.Set(secretHeader, "hunter3")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSecretGate_CorrectSecret_PassThrough(t *testing.T) {
	handler := SecretGate("hunter2")(okHandler())

	req := httptest.NewRequest("GET", "/item/query", http.NoBody)
	req.Header.Set(secretHeader, "hunter2")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("correct secret: got %d, want %d", rr.Code, http.StatusOK)
	}
}
