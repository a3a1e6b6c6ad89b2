package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

func TestInit_Run(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		force    bool
		existing bool
		wantErr  error
	}{
		{name: "create", force: false},
		{name: "overwrite with force", force: true, existing: true},
		{name: "exists", force: false, existing: true, wantErr: ErrWriteConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			confPath := filepath.Join(t.TempDir(), "conf", "config.yaml")

			if tt.existing {
				if err := os.MkdirAll(filepath.Dir(confPath), 0o700); err != nil {
					t.Fatal(err)
				}

				if err := os.WriteFile(confPath, []byte("old: true\n"), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			var cli struct {
				Store   StoreConfig   `embed:"" prefix:"store-"`
				Timeout time.Duration ``
				Verbose bool          ``
			}

			parser, err := kong.New(&cli, kong.Vars{
				ConfigIdentifier: confPath,
				StoreIdentifier:  "/var/itom",
				"storeTable":     "programs",
			})
			if err != nil {
				t.Fatal(err)
			}

			ktx, err := parser.Parse([]string{"--timeout=1m30s", "--verbose"})
			if err != nil {
				t.Fatal(err)
			}

			var buf bytes.Buffer

			ctx := WithSession(WithContext(t.Context(), ktx), &Session{Out: &buf})

			err = (&Init{Force: tt.force}).Run(ctx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Init.Run() error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if got := buf.String(); got != confPath+"\n" {
				t.Errorf("Init.Run() printed %q", got)
			}

			data, err := os.ReadFile(confPath)
			if err != nil {
				t.Fatal(err)
			}

			var conf map[string]any
			if err := yaml.Unmarshal(data, &conf); err != nil {
				t.Fatalf("generated config is not YAML: %v\n%s", err, data)
			}

			want := map[string]any{
				"store_dir":   "/var/itom",
				"store_table": "programs",
				"timeout":     "1m30s",
				"verbose":     true,
			}

			for k, v := range want {
				if conf[k] != v {
					t.Errorf("config[%q] = %#v, want %#v", k, conf[k], v)
				}
			}

			for _, k := range []string{"store_url", "help"} {
				if _, ok := conf[k]; ok {
					t.Errorf("config has unset flag %q", k)
				}
			}
		})
	}
}

func TestFlagValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{"", nil},
		{"x", "x"},
		{time.Duration(0), nil},
		{2 * time.Second, "2s"},
		{[]string{}, nil},
		{false, false},
		{3, 3},
	}

	for _, tt := range tests {
		if got := flagValue(tt.in); got != tt.want {
			t.Errorf("flagValue(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
