package config

import (
	"testing"
	"time"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if _, err := asString(map[string]interface{}{"a": 1}); err == nil {
		t.Error("asString(map) error = nil, want error")
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input   interface{}
		want    int
		wantErr bool
	}{
		{123, 123, false},
		{" 456 ", 456, false},
		{int64(789), 789, false},
		{uint8(7), 7, false},
		{float64(10.0), 10, false},
		{2.5, 0, true},
		{"ten", 0, true},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("asInt(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{"45s", 45 * time.Second},
		{"2m", 2 * time.Minute},
		{"300", 300 * time.Second},
		{30, 30 * time.Second},
		{1.5, 1500 * time.Millisecond},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestAsStringSlice(t *testing.T) {
	got, err := asStringSlice([]interface{}{"id", "name"})
	if err != nil {
		t.Fatalf("asStringSlice() error = %v", err)
	}
	if len(got) != 2 || got[0] != "id" || got[1] != "name" {
		t.Errorf("asStringSlice() = %v, want [id name]", got)
	}

	got, err = asStringSlice("id")
	if err != nil || len(got) != 1 {
		t.Errorf("asStringSlice(string) = %v, %v, want [id]", got, err)
	}
}

func TestCleanColumns(t *testing.T) {
	got := cleanColumns([]string{"id, name", " ", "score\nage"})
	want := []string{"id", "name", "score", "age"}
	if len(got) != len(want) {
		t.Fatalf("cleanColumns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cleanColumns()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
