package cli

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/basnijholt/ai-assistant/internal/audio"
	"github.com/basnijholt/ai-assistant/internal/tts"
)

func newSpeakCommand() *cobra.Command {
	var (
		ttsHost        string
		ttsPort        int
		voice          string
		language       string
		speaker        string
		outIndex       int
		outName        string
		listOutputs    bool
		saveFile       string
		fromClipboard  bool
		stopFlag       bool
		statusFlag     bool
		processControl = "speak"
	)

	cmd := &cobra.Command{
		Use:   "speak [text]",
		Short: "Synthesize text to speech and play or save it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			if handled, err := control(processControl, "speaker", stopFlag, statusFlag, e.console); handled {
				return err
			}
			if ttsHost == "" {
				ttsHost = e.cfg.TTSHost
			}
			if ttsPort == 0 {
				ttsPort = e.cfg.TTSPort
			}
			if voice == "" {
				voice = e.cfg.Voice
			}
			if language == "" {
				language = e.cfg.Language
			}
			if speaker == "" {
				speaker = e.cfg.Speaker
			}

			var text string
			if len(args) == 1 {
				text = args[0]
			} else if fromClipboard {
				text, err = clipboard.ReadAll()
				if err != nil {
					return fmt.Errorf("read clipboard: %w", err)
				}
			}
			if strings.TrimSpace(text) == "" {
				e.console.Warn("Nothing to speak.")
				return nil
			}

			dev, err := openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			if listOutputs {
				return audio.ListOutputDevices(dev, e.console)
			}

			idx, err := resolveOutput(dev, e.console, outName, outIndex)
			if err != nil {
				return err
			}

			cleanup := trackPID(processControl, e.logger)
			defer cleanup()

			wav := tts.Speak(cmd.Context(), tts.Options{
				Host:        ttsHost,
				Port:        ttsPort,
				Voice:       voice,
				Language:    language,
				Speaker:     speaker,
				Device:      dev,
				DeviceIndex: idx,
				SaveFile:    saveFile,
				Play:        saveFile == "",
				Logger:      e.logger,
				Console:     e.console,
			}, text)
			if wav == nil {
				return fmt.Errorf("speech synthesis failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ttsHost, "tts-host", "", "Wyoming TTS server host")
	cmd.Flags().IntVar(&ttsPort, "tts-port", 0, "Wyoming TTS server port")
	cmd.Flags().StringVar(&voice, "voice", "", "TTS voice name")
	cmd.Flags().StringVar(&language, "language", "", "TTS language")
	cmd.Flags().StringVar(&speaker, "speaker", "", "TTS speaker name")
	cmd.Flags().IntVar(&outIndex, "output-device-index", -1, "audio output device index")
	cmd.Flags().StringVar(&outName, "output-device-name", "", "comma-separated keywords matching an output device name")
	cmd.Flags().BoolVar(&listOutputs, "list-output-devices", false, "list output devices and exit")
	cmd.Flags().StringVar(&saveFile, "save-file", "", "save audio to a WAV file instead of playing it")
	cmd.Flags().BoolVar(&fromClipboard, "clipboard", false, "read the text to speak from the clipboard")
	cmd.Flags().BoolVar(&stopFlag, "stop", false, "stop a running speaker")
	cmd.Flags().BoolVar(&statusFlag, "status", false, "report whether a speaker is running")
	return cmd
}
