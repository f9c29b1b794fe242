package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteSuccess(w, []string{"BBC", "CNN"}, "source fetched successfully.")
	if err != nil {
		t.Fatalf("WriteSuccess failed: %v", err)
	}

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", w.Header().Get("Content-Type"))
	}

	body := decode(t, w)
	if string(body["success"]) != "true" {
		t.Errorf("Expected success true, got %s", body["success"])
	}
	if string(body["data"]) != `["BBC","CNN"]` {
		t.Errorf("Unexpected data %s", body["data"])
	}
	if string(body["message"]) != `"source fetched successfully."` {
		t.Errorf("Unexpected message %s", body["message"])
	}
}

func TestWriteSuccessWithNilData(t *testing.T) {
	w := httptest.NewRecorder()

	if err := WriteSuccess(w, nil, "Articles fetched successfully."); err != nil {
		t.Fatalf("WriteSuccess failed: %v", err)
	}

	body := decode(t, w)
	data, ok := body["data"]
	if !ok {
		t.Fatal("Expected data key to be present")
	}
	if string(data) != "null" {
		t.Errorf("Expected data null, got %s", data)
	}
	if string(body["success"]) != "true" {
		t.Errorf("Expected success true, got %s", body["success"])
	}
}

func TestWriteErrors(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter) error
		wantStatus int
	}{
		{"internal", WriteInternalError, http.StatusInternalServerError},
		{"unauthorized", WriteUnauthorized, http.StatusUnauthorized},
		{"not found", WriteNotFound, http.StatusNotFound},
		{"method not allowed", WriteMethodNotAllowed, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if err := tt.write(w); err != nil {
				t.Fatalf("write failed: %v", err)
			}

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}

			body := decode(t, w)
			if string(body["success"]) != "false" {
				t.Errorf("Expected success false, got %s", body["success"])
			}
			if string(body["data"]) != "null" {
				t.Errorf("Expected data null, got %s", body["data"])
			}
			if len(body["message"]) <= 2 {
				t.Error("Expected a non-empty message")
			}
		})
	}
}
