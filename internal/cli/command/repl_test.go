package command

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/shardkv/internal/core/service"
	"github.com/yndnr/shardkv/internal/server/httpserver"
	"github.com/yndnr/shardkv/internal/storage/memory"
	"github.com/yndnr/shardkv/internal/telemetry/logger"
)

// newShardKVServer starts the real HTTP stack over an in-memory store.
func newShardKVServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Format: "json", Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	dataDir := t.TempDir()
	svc := service.NewKVService(memory.New(memory.WithShardCount(4)),
		service.WithDataDir(dataDir),
		service.WithLogger(log),
	)

	server := httptest.NewServer(httpserver.NewRouter(&httpserver.RouterConfig{
		Service:      svc,
		Logger:       log,
		MaxBodyBytes: 1 << 20,
	}))
	t.Cleanup(server.Close)
	return server, dataDir
}

func TestREPL_Session(t *testing.T) {
	server, dataDir := newShardKVServer(t)

	input := strings.Join([]string{
		"SET color red",
		"SET color blue",
		"CHANGE color green",
		"GET color",
		"SETMULT {a:1 b:2 color:x}",
		"CHANGEMULT {a:10 zz:0}",
		"GETALL",
		"DELMULT {a nope}",
		"DELETE b",
		"GET b",
		"DUMP snap.json",
		"DELETEALL",
		"DELETEALL",
		"LOAD snap.json",
		"GET color",
		"EXIT",
		"N",
	}, "\n") + "\n"

	out, err := runCLIWithInput(t, server.URL, input, "repl", "--no-history")
	if err != nil {
		t.Fatalf("repl error = %v\n%s", err, out)
	}

	for _, want := range []string{
		"shardkv> OK\n",
		"shardkv> Error: pair with such key already present, use change\n",
		"shardkv> UPDATED\n",
		"shardkv> green\n",
		"shardkv> Inserted 2. Skipped: color\n",
		"shardkv> Updated 1. Absent: zz\n",
		"shardkv> KEY    VALUE\na      10\nb      2\ncolor  green\n",
		"shardkv> Removed 1. Absent: nope\n",
		"shardkv> DELETED\n",
		"shardkv> Error: key not found\n",
		"shardkv> CLEARED\n",
		"shardkv> Storage is already empty\n",
		"LOADED 1 entries from " + filepath.Join(dataDir, "snap.json") + "\n",
		"Dump before exit? [Y/N]: Bye!\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("session output missing %q\nfull output:\n%s", want, out)
		}
	}

	if _, err := os.Stat(filepath.Join(dataDir, "snap.json")); err != nil {
		t.Errorf("dump file not written: %v", err)
	}
}

func TestREPL_LoadOffersBackup(t *testing.T) {
	server, dataDir := newShardKVServer(t)

	input := strings.Join([]string{
		"SET k v",
		"DUMP first.json",
		"LOAD first.json",
		"y",
		"backup.json",
		"EXIT",
		"n",
	}, "\n") + "\n"

	out, err := runCLIWithInput(t, server.URL, input, "repl", "--no-history")
	if err != nil {
		t.Fatalf("repl error = %v\n%s", err, out)
	}

	if !strings.Contains(out, "Current pairs will be lost. Dump first? [Y/N]: Path to dump: DUMPED") {
		t.Errorf("load should offer a dump first:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "backup.json")); err != nil {
		t.Errorf("backup dump not written: %v", err)
	}
}

func TestREPL_History(t *testing.T) {
	server, _ := newShardKVServer(t)

	history := filepath.Join(t.TempDir(), "history")
	cfgPath := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(cfgPath, []byte("history_file: "+history+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	app := App()
	app.Reader = strings.NewReader("GETALL\nEXIT\n")
	app.Writer = &out
	if err := app.Run([]string{AppName, "--config", cfgPath, "--server", server.URL, "repl"}); err != nil {
		t.Fatalf("repl error = %v", err)
	}

	data, err := os.ReadFile(history)
	if err != nil {
		t.Fatalf("history not written: %v", err)
	}
	if string(data) != "GETALL\nEXIT\n" {
		t.Errorf("history = %q", data)
	}
}
