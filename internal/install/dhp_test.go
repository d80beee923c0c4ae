package install

import (
	"bytes"
	"context"
	"io"
	"reflect"
	"strings"
	"testing"

	"licman/internal/config"
	"licman/internal/console"
)

func newTestDHParams(t *testing.T) (*DHParams, *fakeRunner, *bytes.Buffer) {
	t.Helper()
	runner := &fakeRunner{fail: map[string]int{}}
	out := &bytes.Buffer{}
	d := &DHParams{
		Layout: config.NewLayout(t.TempDir()),
		Bits:   DefaultDHBits,
		Runner: runner,
		Out:    console.New(out),
		Stderr: io.Discard,
	}
	return d, runner, out
}

func TestDHParams_Generate(t *testing.T) {
	d, runner, out := newTestDHParams(t)
	d.Bits = 4096

	if err := d.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := [][]string{{"openssl", "dhparam", "-out", d.Path(), "4096"}}
	if !reflect.DeepEqual(runner.calls, want) {
		t.Errorf("commands = %v, want %v", runner.calls, want)
	}
	if !strings.Contains(out.String(), "✓ DH parameters generated.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDHParams_SkipsExisting(t *testing.T) {
	d, runner, out := newTestDHParams(t)
	writeFile(t, d.Path(), "existing")

	if err := d.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("commands = %v, want none", runner.commands())
	}
	if !strings.Contains(out.String(), "...dhp file already exists. skipping...") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDHParams_Overwrite(t *testing.T) {
	d, runner, _ := newTestDHParams(t)
	writeFile(t, d.Path(), "existing")
	d.Overwrite = true

	if err := d.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("commands = %v, want one openssl call", runner.commands())
	}
}

func TestDHParams_Failure(t *testing.T) {
	d, runner, _ := newTestDHParams(t)
	runner.fail["openssl dhparam -out "+d.Path()+" 2048"] = 1

	err := d.Generate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "command failed: openssl dhparam") {
		t.Errorf("Generate() error = %v, want command failed", err)
	}
}

func TestDHParams_InvalidBits(t *testing.T) {
	d, runner, _ := newTestDHParams(t)
	d.Bits = 0

	if err := d.Generate(context.Background()); err == nil {
		t.Error("Generate() error = nil, want invalid bitdepth")
	}
	if len(runner.calls) != 0 {
		t.Errorf("commands = %v, want none", runner.commands())
	}
}
