package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rickgao/deliveryfeed/internal/auth"
	"github.com/rickgao/deliveryfeed/internal/config"
	"github.com/rickgao/deliveryfeed/internal/connection"
	"github.com/rickgao/deliveryfeed/internal/router"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
		check   string
	}{
		{name: "text", cfg: config.LogConfig{Level: "info", Format: "text"}, check: "msg=hello"},
		{name: "json", cfg: config.LogConfig{Level: "debug", Format: "json"}, check: `"msg":"hello"`},
		{name: "bad level", cfg: config.LogConfig{Level: "loud", Format: "text"}, wantErr: true},
		{name: "bad format", cfg: config.LogConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(tt.cfg, &buf)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newLogger() error = %v", err)
			}
			logger.Info("hello")
			if !strings.Contains(buf.String(), tt.check) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.check)
			}
		})
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}

func TestTokenSource_Order(t *testing.T) {
	t.Setenv("FEED_USER_ID", "env-user")
	t.Setenv("FEED_ACCESS_TOKEN", "env-token")

	tokenPath := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(tokenPath, []byte("file-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		sc   config.SessionConfig
		want auth.Credentials
	}{
		{
			name: "static wins",
			sc:   config.SessionConfig{UserID: "m1", AccessToken: "static", TokenFile: tokenPath},
			want: auth.Credentials{UserID: "m1", AccessToken: "static"},
		},
		{
			name: "token file",
			sc:   config.SessionConfig{UserID: "m1", TokenFile: tokenPath},
			want: auth.Credentials{UserID: "m1", AccessToken: "file-token"},
		},
		{
			name: "static token without user",
			sc:   config.SessionConfig{AccessToken: "static"},
			want: auth.Credentials{UserID: "env-user", AccessToken: "env-token"},
		},
		{
			name: "environment",
			sc:   config.SessionConfig{},
			want: auth.Credentials{UserID: "env-user", AccessToken: "env-token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tokenSource(tt.sc).Credentials(context.Background())
			if err != nil {
				t.Fatalf("Credentials() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Credentials() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRootCmd_Version(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "dev") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestRootCmd_BadConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--env-file", ""})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestPrintEnvelope(t *testing.T) {
	frame, err := router.Decode(connection.RawMessage{
		Data:    []byte(`{"notification_id":"n1","status":"sent","channel":"sms"}`),
		Channel: "notifications",
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		env     router.Envelope
		verbose bool
		want    string
	}{
		{
			name: "typed",
			env:  frame,
			want: "[NOTIFICATION] channel=notifications id=n1 status=sent via=sms\n",
		},
		{
			name:    "verbose indents the frame",
			env:     frame,
			verbose: true,
			want:    "[notification_status] channel=notifications id=" + frame.ID.String() + "\n{\n  \"notification_id\": \"n1\",",
		},
		{
			name:    "verbose falls back to raw",
			env:     router.Envelope{Type: router.TypeOpaque, Channel: "dashboard"},
			verbose: true,
			want:    "[opaque] channel=dashboard \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printEnvelope(&buf, tt.env, tt.verbose)
			if !strings.HasPrefix(buf.String(), tt.want) {
				t.Errorf("output = %q, want prefix %q", buf.String(), tt.want)
			}
		})
	}
}
