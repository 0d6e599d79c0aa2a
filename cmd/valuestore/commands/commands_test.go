package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"

	"github.com/solidifylabs/valuestore/contract"
	"github.com/solidifylabs/valuestore/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--verbosity", "0"))
	err := cmd.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("valuestore %q error %v", args, err)
	}
	return out
}

func TestDeploySetGet(t *testing.T) {
	dir := t.TempDir()

	addr := mustRun(t, "deploy", "--datadir", dir, "--init", "42")
	if !common.IsHexAddress(addr) {
		t.Fatalf("deploy printed %q; want hex address", addr)
	}

	get := func(t *testing.T, want uint32) {
		t.Helper()
		if got := mustRun(t, "get", "--datadir", dir, "--contract", addr); got != fmt.Sprint(want) {
			t.Errorf("get printed %q; want %d", got, want)
		}
	}

	get(t, 42)
	mustRun(t, "set", "--datadir", dir, "--contract", addr, "7")
	get(t, 7)
	mustRun(t, "set", "--datadir", dir, "--contract", addr, "0xffffffff")
	get(t, 1<<32-1)

	def := mustRun(t, "deploy", "--datadir", dir)
	if def == addr {
		t.Errorf("second deploy printed same address %s", addr)
	}
	if got := mustRun(t, "get", "--datadir", dir, "--contract", def); got != "0" {
		t.Errorf("get of default() contract printed %q; want 0", got)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	addr := mustRun(t, "deploy", "--datadir", dir, "--init", "99")

	path := filepath.Join(t.TempDir(), "valuestore.yaml")
	contents := fmt.Sprintf("datadir: %s\ncontract: %q\n", dir, addr)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := mustRun(t, "get", "--config", path); got != "99" {
		t.Errorf("get with config file printed %q; want 99", got)
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "nested", "valuestore.yaml")
	from := common.Address{'m', 'e'}.Hex()

	if got := mustRun(t, "config", "init", "--config", path, "--datadir", dir, "--from", from, "--gas", "1000000"); got != path {
		t.Errorf("config init printed %q; want %q", got, path)
	}

	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load(%q) error %v", path, err)
	}
	want := config.Default()
	want.DataDir = dir
	want.From = from
	want.GasLimit = 1_000_000
	want.Verbosity = 0 // always passed by run()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config.Load() after config init diff (-want +got):\n%s", diff)
	}

	// The written file is then used by other commands.
	addr := mustRun(t, "deploy", "--config", path, "--init", "5")
	if got := mustRun(t, "get", "--config", path, "--contract", addr); got != "5" {
		t.Errorf("get with written config printed %q; want 5", got)
	}

	if _, err := run(t, "config", "init", "--config", path); err == nil {
		t.Errorf("config init over existing file got nil error")
	}
	mustRun(t, "config", "init", "--config", path, "--force", "--gas", "2000000")
	if got, err := config.Load(path); err != nil || got.GasLimit != 2_000_000 {
		t.Errorf("config.Load() after config init --force got %+v, err = %v; want GasLimit 2000000", got, err)
	}

	if _, err := run(t, "config", "init"); err == nil {
		t.Errorf("config init without --config got nil error")
	}
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	addr := mustRun(t, "deploy", "--datadir", dir)

	tests := []struct {
		name string
		args []string
	}{
		{
			name: "no contract",
			args: []string{"get", "--datadir", dir},
		},
		{
			name: "invalid contract",
			args: []string{"get", "--datadir", dir, "--contract", "0x1234"},
		},
		{
			name: "value beyond 32 bits",
			args: []string{"set", "--datadir", dir, "--contract", addr, "4294967296"},
		},
		{
			name: "negative value",
			args: []string{"set", "--datadir", dir, "--contract", addr, "-1"},
		},
		{
			name: "invalid sender",
			args: []string{"deploy", "--datadir", dir, "--from", "me"},
		},
		{
			name: "out of gas",
			args: []string{"set", "--datadir", dir, "--contract", addr, "--gas", "100", "1"},
		},
		{
			name: "debug without code",
			args: []string{"debug", "get", "--datadir", dir, "--contract", common.Address{'x'}.Hex()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("valuestore %q got nil error", tt.args)
			}
		})
	}

	if got := mustRun(t, "get", "--datadir", dir, "--contract", addr); got != "0" {
		t.Errorf("get after failed commands printed %q; want 0", got)
	}
}

func TestCompile(t *testing.T) {
	rt, err := contract.Runtime().Compile()
	if err != nil {
		t.Fatalf("contract.Runtime().Compile() error %v", err)
	}

	out := mustRun(t, "compile")
	if want := fmt.Sprintf("runtime: %#x", rt); !strings.Contains(out, want) {
		t.Errorf("compile printed %q; want to contain %q", out, want)
	}

	out = mustRun(t, "compile", "--disasm")
	for _, want := range []string{"constructor:", "runtime:", "CALLVALUE", "SSTORE", "RETURN"} {
		if !strings.Contains(out, want) {
			t.Errorf("compile --disasm printed %q; want to contain %q", out, want)
		}
	}
}
