package cli

import (
	"reflect"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

func loadConfig(t *testing.T, text string) config {
	t.Helper()

	r, err := resolve(baseConfig)(strings.NewReader(text))
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}

	return r.(config)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		text string
		want config
	}{
		{
			name: "empty",
			text: "",
			want: config{},
		},
		{
			name: "flat",
			text: "log-level: debug\nstore_dir: /tmp/p\nmax_depth: 8\n",
			want: config{"log-level": "debug", "store-dir": "/tmp/p", "max-depth": "8"},
		},
		{
			name: "nested",
			text: "log:\n  level: trace\n  pretty: false\nminio:\n  access_key: k\n",
			want: config{"log-level": "trace", "log-pretty": false, "minio-access-key": "k"},
		},
		{
			name: "section",
			text: "config:\n  path: [a, b]\nother: 1\n",
			want: config{"path": []any{"a", "b"}},
		},
		{
			name: "numbers in lists",
			text: "ratio: 0.5\nids: [1, 2]\n",
			want: config{"ratio": "0.5", "ids": []any{"1", "2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := loadConfig(t, tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("resolve() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestResolve_Invalid(t *testing.T) {
	if _, err := resolve(baseConfig)(strings.NewReader("log: [unclosed")); err == nil {
		t.Error("resolve() error = nil, want parse error")
	}
}

func TestConfig_Resolve(t *testing.T) {
	cfg := loadConfig(t, "log:\n  format: text\n")

	v, err := cfg.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "log-format"}})
	if err != nil || v != "text" {
		t.Errorf("Resolve(log-format) = %v, %v", v, err)
	}

	v, err = cfg.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "log-level"}})
	if err != nil || v != nil {
		t.Errorf("Resolve(log-level) = %v, %v", v, err)
	}
}
