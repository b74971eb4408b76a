package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return stdout.String()
}

func TestSubmitCommand_Success(t *testing.T) {
	resetViper()

	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process-step" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		called = true

		var reqBody map[string]interface{}
		json.NewDecoder(r.Body).Decode(&reqBody)
		if reqBody["requestId"] != "req-1" {
			t.Errorf("expected requestId=req-1, got %v", reqBody["requestId"])
		}
		if reqBody["correlationId"] != "corr-1" {
			t.Errorf("expected correlationId=corr-1, got %v", reqBody["correlationId"])
		}
		if reqBody["targetProductType"] != float64(5) {
			t.Errorf("expected targetProductType=5, got %v", reqBody["targetProductType"])
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("expected Bearer token, got: %s", r.Header.Get("Authorization"))
		}

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"message": "Processing initiated for request req-1"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	output := execute(t, "submit", "--type", "5", "--request-id", "req-1", "--correlation-id", "corr-1")

	if !called {
		t.Error("expected process-step endpoint to be called")
	}
	if !strings.Contains(output, "Processing initiated for request req-1") {
		t.Errorf("expected success message, got: %s", output)
	}
	if !strings.Contains(output, "corr-1") {
		t.Errorf("expected correlation ID in output, got: %s", output)
	}
}

func TestSubmitCommand_GeneratesIDs(t *testing.T) {
	resetViper()

	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	execute(t, "submit", "--type", "7", "--request-id", "", "--correlation-id", "")

	for _, key := range []string{"requestId", "correlationId"} {
		id, _ := got[key].(string)
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("expected generated uuid for %s, got %q", key, id)
		}
	}
}

func TestSubmitCommand_MissingType(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called when validation fails")
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	output := execute(t, "submit", "--type", "0")
	if !strings.Contains(output, "--type is required") {
		t.Errorf("expected type required error, got: %s", output)
	}
}

func TestSubmitCommand_Conflict(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "Request req-1 already accepted", "code": "409"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	output := execute(t, "submit", "--type", "5", "--request-id", "req-1", "--correlation-id", "c")
	if !strings.Contains(output, "Submit failed (409): Request req-1 already accepted") {
		t.Errorf("expected conflict message, got: %s", output)
	}
}
