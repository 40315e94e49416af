package audio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/basnijholt/ai-assistant/internal/ui"
)

type listDevice struct {
	infos []Info
}

func (d listDevice) OpenInputStream(StreamParams) (Stream, error)  { return nil, nil }
func (d listDevice) OpenOutputStream(StreamParams) (Stream, error) { return nil, nil }
func (d listDevice) Devices() ([]Info, error)                      { return d.infos, nil }
func (d listDevice) Close() error                                  { return nil }

var testDevices = listDevice{infos: []Info{
	{Index: 0, Name: "Built-in Microphone", InputChannels: 2},
	{Index: 1, Name: "Built-in Output", OutputChannels: 2},
	{Index: 3, Name: "USB Headset", InputChannels: 1, OutputChannels: 2},
}}

func TestResolveInput_Default(t *testing.T) {
	idx, name, err := ResolveInput(testDevices, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if idx != nil || name != "" {
		t.Fatalf("no selector means system default, got %v %q", idx, name)
	}
}

func TestResolveInput_ByIndex(t *testing.T) {
	want := 3
	idx, name, err := ResolveInput(testDevices, "", &want)
	if err != nil {
		t.Fatal(err)
	}
	if idx == nil || *idx != 3 || name != "USB Headset" {
		t.Fatalf("got %v %q", idx, name)
	}
}

func TestResolveInput_IndexNotFound(t *testing.T) {
	want := 9
	if _, _, err := ResolveInput(testDevices, "", &want); err == nil {
		t.Fatal("expected an error for an unknown index")
	}
}

func TestResolveInput_KeywordPriority(t *testing.T) {
	// First keyword with a match wins, case-insensitively.
	idx, name, err := ResolveInput(testDevices, "bluetooth, usb", nil)
	if err != nil {
		t.Fatal(err)
	}
	if idx == nil || *idx != 3 || name != "USB Headset" {
		t.Fatalf("got %v %q", idx, name)
	}
}

func TestResolveInput_RespectsDirection(t *testing.T) {
	// "built-in" matches both devices, but only the microphone has inputs.
	idx, name, err := ResolveInput(testDevices, "built-in", nil)
	if err != nil {
		t.Fatal(err)
	}
	if idx == nil || *idx != 0 || name != "Built-in Microphone" {
		t.Fatalf("got %v %q", idx, name)
	}

	idx, name, err = ResolveOutput(testDevices, "built-in", nil)
	if err != nil {
		t.Fatal(err)
	}
	if idx == nil || *idx != 1 || name != "Built-in Output" {
		t.Fatalf("got %v %q", idx, name)
	}
}

func TestResolveInput_NoMatch(t *testing.T) {
	if _, _, err := ResolveInput(testDevices, "firewire", nil); err == nil {
		t.Fatal("expected an error when nothing matches")
	}
}

func TestListInputDevices(t *testing.T) {
	var out bytes.Buffer
	console := ui.NewConsole(&out, false)
	if err := ListInputDevices(testDevices, console); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "0: Built-in Microphone") || !strings.Contains(got, "3: USB Headset") {
		t.Fatalf("missing input devices:\n%s", got)
	}
	if strings.Contains(got, "Built-in Output") {
		t.Fatalf("output-only device listed as input:\n%s", got)
	}
}
