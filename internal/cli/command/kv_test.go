package command

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSet(t *testing.T) {
	server := newMockServer(t)
	server.reply("POST /kv", http.StatusOK, map[string]string{"key": "greeting"})

	out, err := runCLI(t, server.URL, "set", "greeting", "hello", "big", "world")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}
	if out != "OK\n" {
		t.Errorf("output = %q, want OK", out)
	}

	reqs := server.recorded()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if want := `{"key":"greeting","value":"hello big world"}`; reqs[0].Body != want {
		t.Errorf("body = %s, want %s", reqs[0].Body, want)
	}
}

func TestSet_Exists(t *testing.T) {
	server := newMockServer(t)
	server.fail("POST /kv", http.StatusConflict, "SKV-KEY-4090", nil)

	_, err := runCLI(t, server.URL, "set", "k", "v")
	if !errors.Is(err, errKeyExists) {
		t.Errorf("error = %v, want errKeyExists", err)
	}
}

func TestSet_MissingValue(t *testing.T) {
	server := newMockServer(t)
	if _, err := runCLI(t, server.URL, "set", "k"); err == nil {
		t.Error("expected error for missing value")
	}
	if len(server.recorded()) != 0 {
		t.Error("no request should be sent")
	}
}

func TestSet_ServerError(t *testing.T) {
	server := newMockServer(t)
	server.fail("POST /kv", http.StatusBadRequest, "SKV-ARG-4001", nil)

	_, err := runCLI(t, server.URL, "set", "k", "v")
	if err == nil || !strings.Contains(err.Error(), "SKV-ARG-4001") {
		t.Errorf("error = %v, want the server error code", err)
	}
}

func TestChange(t *testing.T) {
	server := newMockServer(t)
	server.reply("PUT /kv", http.StatusOK, map[string]string{"key": "k"})

	out, err := runCLI(t, server.URL, "change", "k", "new")
	if err != nil {
		t.Fatalf("change error = %v", err)
	}
	if out != "UPDATED\n" {
		t.Errorf("output = %q, want UPDATED", out)
	}

	server.fail("PUT /kv", http.StatusNotFound, "SKV-KEY-4040", nil)
	if _, err := runCLI(t, server.URL, "change", "k", "new"); !errors.Is(err, errKeyNotFound) {
		t.Errorf("error = %v, want errKeyNotFound", err)
	}
}

func TestGet(t *testing.T) {
	server := newMockServer(t)
	server.reply("GET /kv/a%2Fb", http.StatusOK, map[string]string{"key": "a/b", "value": "<v>"})

	out, err := runCLI(t, server.URL, "get", "a/b")
	if err != nil {
		t.Fatalf("get error = %v", err)
	}
	if out != "<v>\n" {
		t.Errorf("output = %q", out)
	}

	out, err = runCLI(t, server.URL, "-o", "json", "get", "a/b")
	if err != nil {
		t.Fatalf("get -o json error = %v", err)
	}
	if !strings.Contains(out, `"value": "<v>"`) {
		t.Errorf("json output = %q", out)
	}
}

func TestGet_NotFound(t *testing.T) {
	server := newMockServer(t)
	server.fail("GET /kv/missing", http.StatusNotFound, "SKV-KEY-4040", nil)

	if _, err := runCLI(t, server.URL, "get", "missing"); !errors.Is(err, errKeyNotFound) {
		t.Errorf("error = %v, want errKeyNotFound", err)
	}
}

func TestGetAll(t *testing.T) {
	server := newMockServer(t)
	server.reply("GET /kv", http.StatusOK, map[string]string{"b": "2", "a": "1"})

	out, err := runCLI(t, server.URL, "getall")
	if err != nil {
		t.Fatalf("getall error = %v", err)
	}
	want := "KEY  VALUE\na    1\nb    2\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	out, err = runCLI(t, server.URL, "-o", "yaml", "getall")
	if err != nil {
		t.Fatalf("getall -o yaml error = %v", err)
	}
	if out != "a: \"1\"\nb: \"2\"\n" {
		t.Errorf("yaml output = %q", out)
	}
}

func TestGetAll_Empty(t *testing.T) {
	server := newMockServer(t)
	server.reply("GET /kv", http.StatusOK, map[string]string{})

	out, err := runCLI(t, server.URL, "getall")
	if err != nil {
		t.Fatalf("getall error = %v", err)
	}
	if out != "Storage is empty\n" {
		t.Errorf("output = %q", out)
	}

	out, err = runCLI(t, server.URL, "-o", "json", "getall")
	if err != nil {
		t.Fatalf("getall -o json error = %v", err)
	}
	if strings.TrimSpace(out) != "{}" {
		t.Errorf("json output = %q, want {}", out)
	}
}

func TestDelete(t *testing.T) {
	server := newMockServer(t)
	server.reply("DELETE /kv/k", http.StatusOK, map[string]string{"key": "k"})

	out, err := runCLI(t, server.URL, "delete", "k")
	if err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if out != "DELETED\n" {
		t.Errorf("output = %q", out)
	}

	server.fail("DELETE /kv/k", http.StatusNotFound, "SKV-KEY-4040", nil)
	if _, err := runCLI(t, server.URL, "del", "k"); !errors.Is(err, errKeyNotFound) {
		t.Errorf("error = %v, want errKeyNotFound", err)
	}
}

func TestDelete_BulkKey(t *testing.T) {
	server := newMockServer(t)
	server.reply("DELETE /kv/bulk", http.StatusOK, map[string]any{"removed": 1, "absent": []string{}})

	if _, err := runCLI(t, server.URL, "delete", "bulk"); err != nil {
		t.Fatalf("delete bulk error = %v", err)
	}
	reqs := server.recorded()
	if len(reqs) != 1 || reqs[0].Body != `["bulk"]` {
		t.Errorf("requests = %+v, want one bulk removal of [\"bulk\"]", reqs)
	}

	server.fail("DELETE /kv/bulk", http.StatusNotFound, "SKV-KEY-4041", map[string]any{"absent": []string{"bulk"}})
	if _, err := runCLI(t, server.URL, "delete", "bulk"); !errors.Is(err, errKeyNotFound) {
		t.Errorf("error = %v, want errKeyNotFound", err)
	}
}

func TestDeleteAll(t *testing.T) {
	tests := []struct {
		name   string
		status int
		text   string
		json   string
	}{
		{"cleared", http.StatusOK, "CLEARED\n", `"cleared": true`},
		{"already empty", http.StatusNoContent, "Storage is already empty\n", `"cleared": false`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newMockServer(t)
			server.reply("DELETE /kv", tt.status, map[string]bool{"cleared": true})

			out, err := runCLI(t, server.URL, "deleteall")
			if err != nil {
				t.Fatalf("deleteall error = %v", err)
			}
			if out != tt.text {
				t.Errorf("output = %q, want %q", out, tt.text)
			}

			out, err = runCLI(t, server.URL, "-o", "json", "deleteall")
			if err != nil {
				t.Fatalf("deleteall -o json error = %v", err)
			}
			if !strings.Contains(out, tt.json) {
				t.Errorf("json output = %q, want %s", out, tt.json)
			}
		})
	}
}

func TestKeyValueArgs_DashKey(t *testing.T) {
	server := newMockServer(t)
	server.reply("POST /kv", http.StatusOK, map[string]string{"key": "-x"})

	if _, err := runCLI(t, server.URL, "set", "--", "-x", "v"); err != nil {
		t.Fatalf("set -- -x error = %v", err)
	}
	reqs := server.recorded()
	if diff := cmp.Diff(`{"key":"-x","value":"v"}`, reqs[0].Body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}
