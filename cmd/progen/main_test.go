package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestGenerateToStdout(t *testing.T) {
	out, _, err := runCommand(t, "--seed", "7")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Seed: 7", "int main() {", "void checksum() {"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestSameSeedSameOutput(t *testing.T) {
	a, _, err := runCommand(t, "--seed", "42")
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := runCommand(t, "--seed", "42")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("two runs with the same seed produced different programs")
	}
}

func TestGenerateToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.cpp")
	stdout, _, err := runCommand(t, "--seed", "3", "-o", path)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "" {
		t.Errorf("wrote to stdout despite -o: %q", stdout)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "int main() {") {
		t.Error("output file does not contain a program")
	}
}

func TestDumpStructure(t *testing.T) {
	out, _, err := runCommand(t, "--seed", "5", "--dump-structure")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "scope (") {
		t.Errorf("structure dump looks wrong:\n%s", out)
	}
	if strings.Contains(out, "int main()") {
		t.Error("structure dump emitted C++ source")
	}
}

func TestCheckAlgoFlag(t *testing.T) {
	out, _, err := runCommand(t, "--seed", "5", "--check-algo", "asserts")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Checking: asserts") {
		t.Error("check algorithm flag not honored")
	}
	if !strings.Contains(out, "bool value_mismatch = false;") {
		t.Error("asserts mode did not emit the mismatch flag")
	}
	if _, _, err := runCommand(t, "--check-algo", "crc32"); err == nil {
		t.Error("bad check algorithm was accepted")
	}
}

func TestBadConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("vals_number: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCommand(t, "--seed", "1", "--config", path); err == nil {
		t.Error("invalid policy config was accepted")
	}
}
