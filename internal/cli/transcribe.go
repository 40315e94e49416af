package cli

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/basnijholt/ai-assistant/internal/asr"
	"github.com/basnijholt/ai-assistant/internal/audio"
	"github.com/basnijholt/ai-assistant/internal/stop"
)

func newTranscribeCommand() *cobra.Command {
	var (
		asrHost        string
		asrPort        int
		devIndex       int
		devName        string
		listDevices    bool
		copyToClip     bool
		stopFlag       bool
		statusFlag     bool
		processControl = "transcribe"
	)

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Record from the microphone and print the transcript (Ctrl+C to finish)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			if handled, err := control(processControl, "transcriber", stopFlag, statusFlag, e.console); handled {
				return err
			}
			if asrHost == "" {
				asrHost = e.cfg.ASRHost
			}
			if asrPort == 0 {
				asrPort = e.cfg.ASRPort
			}

			dev, err := openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			if listDevices {
				return audio.ListInputDevices(dev, e.console)
			}

			idx, err := resolveInput(dev, e.console, devName, devIndex)
			if err != nil {
				return err
			}

			cleanup := trackPID(processControl, e.logger)
			defer cleanup()

			sig := stop.NewSignal()
			restore := stop.Install(sig, e.logger, e.console, exitFunc)
			defer restore()

			e.console.Print("Listening... press Ctrl+C to finish.")
			text, err := asr.Transcribe(cmd.Context(), sig, asr.Options{
				Host:        asrHost,
				Port:        asrPort,
				Device:      dev,
				DeviceIndex: idx,
				Logger:      e.logger,
				Console:     e.console,
				Progress:    progressStatus(e.console, "Listening"),
			})
			if err != nil {
				e.console.Error("transcription failed: %v", err)
				e.console.Suggest("is the ASR server running at %s:%d?", asrHost, asrPort)
				return err
			}
			if text == "" {
				e.console.Warn("No speech detected.")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)
			if copyToClip {
				if err := clipboard.WriteAll(text); err != nil {
					e.logger.Warn().Err(err).Msg("clipboard write failed")
					e.console.Warn("could not copy transcript to clipboard: %v", err)
				} else {
					e.console.Print("Transcript copied to clipboard.")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asrHost, "asr-host", "", "Wyoming ASR server host")
	cmd.Flags().IntVar(&asrPort, "asr-port", 0, "Wyoming ASR server port")
	cmd.Flags().IntVar(&devIndex, "input-device-index", -1, "audio input device index")
	cmd.Flags().StringVar(&devName, "input-device-name", "", "comma-separated keywords matching an input device name")
	cmd.Flags().BoolVar(&listDevices, "list-devices", false, "list input devices and exit")
	cmd.Flags().BoolVar(&copyToClip, "clipboard", true, "copy the transcript to the clipboard")
	cmd.Flags().BoolVar(&stopFlag, "stop", false, "stop a running transcriber")
	cmd.Flags().BoolVar(&statusFlag, "status", false, "report whether a transcriber is running")
	return cmd
}
