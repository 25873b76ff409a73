package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

type pingResult struct {
	OK bool `json:"ok"`
}

func (r pingResult) Text() string {
	if r.OK {
		return "ok"
	}
	return "failed"
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{name: "string", data: "test message", want: "test message\n"},
		{name: "texter", data: pingResult{OK: true}, want: "ok\n"},
		{name: "number", data: 42, want: "42\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := (&TextFormatter{}).FormatTo(buf, tt.data); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&JSONFormatter{Indent: true}).FormatTo(buf, pingResult{OK: false}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var result map[string]bool
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("FormatTo() produced invalid JSON: %v", err)
	}
	if ok, present := result["ok"]; !present || ok {
		t.Errorf("FormatTo() = %v", result)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "json", want: FormatJSON},
		{in: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{format: FormatText, want: "*cli.TextFormatter"},
		{format: FormatJSON, want: "*cli.JSONFormatter"},
		{format: "unknown", want: "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := fmt.Sprintf("%T", NewFormatter(tt.format)); got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}
