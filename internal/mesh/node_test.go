package mesh

import "testing"

func TestIsNodeID(t *testing.T) {
	valid := []string{"!deadbeef", "!00000001", "!ABCDEF12", "!1a2B3c4D"}
	for _, id := range valid {
		if !IsNodeID(id) {
			t.Errorf("Expected %q to be a valid node id", id)
		}
	}

	invalid := []string{"", "deadbeef", "!deadbee", "!deadbeef1", "!deadbeeg", "! deadbee", "!DEADBEEF "}
	for _, id := range invalid {
		if IsNodeID(id) {
			t.Errorf("Expected %q to be rejected", id)
		}
	}
}

func TestLongName_Fallback(t *testing.T) {
	nodes := map[string]NodeInfo{
		"!11111111": {ID: "!11111111", LongName: "Base Camp"},
		"!22222222": {ID: "!22222222"},
	}

	if got := LongName(nodes, "!11111111"); got != "Base Camp" {
		t.Errorf("Expected 'Base Camp', got '%s'", got)
	}
	if got := LongName(nodes, "!22222222"); got != "Meshtastic_2222" {
		t.Errorf("Expected generated name 'Meshtastic_2222', got '%s'", got)
	}
	if got := LongName(nodes, "!33333333"); got != "Meshtastic_3333" {
		t.Errorf("Expected generated name for unknown node, got '%s'", got)
	}
}

func TestShortName_Fallback(t *testing.T) {
	nodes := map[string]NodeInfo{
		"!11111111": {ID: "!11111111", ShortName: "BASE"},
	}

	if got := ShortName(nodes, "!11111111"); got != "BASE" {
		t.Errorf("Expected 'BASE', got '%s'", got)
	}
	if got := ShortName(nodes, "!4a5b6c7d"); got != "6c7d" {
		t.Errorf("Expected last four id characters, got '%s'", got)
	}
}
