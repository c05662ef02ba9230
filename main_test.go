// ABOUTME: Tests for player CLI helpers
// ABOUTME: Tests marker flag parsing
package main

import (
	"slices"
	"testing"
)

func TestParseMarkers(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", []int{}, false},
		{"100", []int{100}, false},
		{"10, 20,30", []int{10, 20, 30}, false},
		{"10,x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMarkers(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
