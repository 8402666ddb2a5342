package main

import (
	"testing"

	"github.com/ovation22/triplederby-workers/internal/replay"
)

func TestParseServiceType(t *testing.T) {
	cases := map[string]replay.ServiceType{
		"breeding": replay.ServiceBreeding,
		"Feeding":  replay.ServiceFeeding,
		"TRAINING": replay.ServiceTraining,
		"racing":   replay.ServiceRacing,
	}
	for input, want := range cases {
		got, err := parseServiceType(input)
		if err != nil {
			t.Fatalf("parseServiceType(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("parseServiceType(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := parseServiceType("unknown"); err == nil {
		t.Fatalf("expected error for unknown service type")
	}
}
