package audio

import (
	"fmt"
	"strings"

	"github.com/basnijholt/ai-assistant/internal/ui"
)

// ResolveInput picks an input device by explicit index or by a prioritized,
// comma-separated keyword list matched case-insensitively against device
// names. Both nil/empty means the system default.
func ResolveInput(dev Device, name string, index *int) (*int, string, error) {
	return resolve(dev, name, index, func(i Info) bool { return i.InputChannels > 0 }, "input")
}

// ResolveOutput is ResolveInput for playback devices.
func ResolveOutput(dev Device, name string, index *int) (*int, string, error) {
	return resolve(dev, name, index, func(i Info) bool { return i.OutputChannels > 0 }, "output")
}

func resolve(dev Device, name string, index *int, usable func(Info) bool, what string) (*int, string, error) {
	if name == "" && index == nil {
		return nil, "", nil
	}
	infos, err := dev.Devices()
	if err != nil {
		return nil, "", err
	}
	if index != nil {
		for _, info := range infos {
			if info.Index == *index {
				return index, info.Name, nil
			}
		}
		return nil, "", fmt.Errorf("audio: device index %d not found", *index)
	}

	var terms []string
	for _, t := range strings.Split(name, ",") {
		if t = strings.TrimSpace(strings.ToLower(t)); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, "", fmt.Errorf("audio: device name is empty")
	}
	for _, term := range terms {
		for _, info := range infos {
			if usable(info) && strings.Contains(strings.ToLower(info.Name), term) {
				idx := info.Index
				return &idx, info.Name, nil
			}
		}
	}
	return nil, "", fmt.Errorf("audio: no %s device matching any keyword in %q", what, name)
}

// ListInputDevices prints capture-capable devices.
func ListInputDevices(dev Device, console *ui.Console) error {
	return listDevices(dev, console, "input devices", func(i Info) bool { return i.InputChannels > 0 })
}

// ListOutputDevices prints playback-capable devices.
func ListOutputDevices(dev Device, console *ui.Console) error {
	return listDevices(dev, console, "output devices", func(i Info) bool { return i.OutputChannels > 0 })
}

func listDevices(dev Device, console *ui.Console, title string, usable func(Info) bool) error {
	infos, err := dev.Devices()
	if err != nil {
		return err
	}
	console.Print("Available %s:", title)
	for _, info := range infos {
		if usable(info) {
			console.Print("  %d: %s", info.Index, info.Name)
		}
	}
	return nil
}
