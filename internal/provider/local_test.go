package provider

import (
	"testing"

	"github.com/curator-app/agent/internal/models"
)

func TestMatchesApplication(t *testing.T) {
	tests := []struct {
		name     string
		app      models.WatchedApplication
		procName string
		procExe  string
		want     bool
	}{
		{
			name:     "exact name match",
			app:      models.WatchedApplication{Name: "Viewer"},
			procName: "Viewer",
			want:     true,
		},
		{
			name:     "name match is case-insensitive",
			app:      models.WatchedApplication{Name: "viewer"},
			procName: "Viewer",
			want:     true,
		},
		{
			name:    "path prefix match",
			app:     models.WatchedApplication{Name: "Viewer", Path: "/Applications/Viewer.app"},
			procExe: "/Applications/Viewer.app/Contents/MacOS/Viewer",
			want:    true,
		},
		{
			name:     "unrelated process",
			app:      models.WatchedApplication{Name: "Viewer", Path: "/Applications/Viewer.app"},
			procName: "Finder",
			procExe:  "/System/Library/CoreServices/Finder.app/Contents/MacOS/Finder",
			want:     false,
		},
		{
			name: "empty process fields never match",
			app:  models.WatchedApplication{Name: "Viewer", Path: "/Applications/Viewer.app"},
			want: false,
		},
		{
			name:     "no configured path skips exe comparison",
			app:      models.WatchedApplication{Name: "Viewer"},
			procName: "other",
			procExe:  "/usr/bin/other",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesApplication(tt.app, tt.procName, tt.procExe); got != tt.want {
				t.Errorf("matchesApplication() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstIPv4(t *testing.T) {
	tests := []struct {
		name  string
		addrs []string
		want  string
	}{
		{"plain address", []string{"192.168.1.40"}, "192.168.1.40"},
		{"CIDR notation", []string{"192.168.1.40/24"}, "192.168.1.40"},
		{"skips loopback", []string{"127.0.0.1", "10.0.0.5"}, "10.0.0.5"},
		{"skips link-local", []string{"169.254.10.1", "10.0.0.5"}, "10.0.0.5"},
		{"skips IPv6", []string{"fe80::1/64", "2001:db8::1", "10.0.0.5/8"}, "10.0.0.5"},
		{"nothing usable", []string{"127.0.0.1", "fe80::1"}, ""},
		{"empty list", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstIPv4(tt.addrs); got != tt.want {
				t.Errorf("firstIPv4(%v) = %q, want %q", tt.addrs, got, tt.want)
			}
		})
	}
}

func TestMatchesSensor(t *testing.T) {
	if !matchesSensor("coretemp_core0", cpuSensorKeys) {
		t.Error("coretemp sensor should match")
	}
	if matchesSensor("acpitz_battery", []string{"coretemp", "k10temp"}) {
		t.Error("battery sensor should not match CPU keys")
	}
}
