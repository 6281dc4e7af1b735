package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/staysite/internal/auth"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil || !strings.HasPrefix(out, "staysite dev") {
		t.Fatalf("got %q %v", out, err)
	}
}

func TestKeys(t *testing.T) {
	out, err := run(t, "", "keys", "--block-size", "16")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "COOKIE_HASH_KEY=") || !strings.Contains(out, "COOKIE_BLOCK_KEY=") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := run(t, "", "keys", "--block-size", "20"); err == nil {
		t.Fatalf("bad block size should fail")
	}
}

func TestOwnerHashPassword(t *testing.T) {
	out, err := run(t, "sandcastle\n", "owner", "hash-password")
	if err != nil {
		t.Fatal(err)
	}
	hash := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(out), "export OWNER_PASSWORD_HASH='"), "'")
	if !auth.CheckPassword(hash, "sandcastle") {
		t.Fatalf("hash does not verify: %q", out)
	}
	if _, err := run(t, "", "owner", "hash-password"); err == nil {
		t.Fatalf("empty password should fail")
	}
}

func TestCalendarRender(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "availability.json"), []byte(`{"booked":["2025-07-04"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CALENDAR_SOURCE", "dir")
	t.Setenv("CALENDAR_DATA_DIR", dir)
	t.Setenv("PROPERTY_TIMEZONE", "America/New_York")
	t.Setenv("LOG_LEVEL", "error")

	out, err := run(t, "", "calendar", "render", "--from", "2025-07", "--months", "2")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"July 2025", "August 2025", "[ 4]", " Su  Mo  Tu"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output is missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "September 2025") {
		t.Fatalf("rendered too many months:\n%s", out)
	}
}
