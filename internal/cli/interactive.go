package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/basnijholt/ai-assistant/internal/agent"
	"github.com/basnijholt/ai-assistant/internal/asr"
	"github.com/basnijholt/ai-assistant/internal/audio"
	"github.com/basnijholt/ai-assistant/internal/history"
	"github.com/basnijholt/ai-assistant/internal/llm"
	"github.com/basnijholt/ai-assistant/internal/stop"
	"github.com/basnijholt/ai-assistant/internal/tts"
)

func newInteractiveCommand() *cobra.Command {
	var (
		asrHost     string
		asrPort     int
		ttsHost     string
		ttsPort     int
		ollamaHost  string
		model       string
		voice       string
		inIndex     int
		inName      string
		outIndex    int
		outName     string
		listInputs  bool
		listOutputs bool
		noTTS       bool
		stopFlag    bool
		statusFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Run a voice conversation loop with memory",
		Long: `Listens for a spoken instruction, sends it with the conversation
history to the model, speaks the reply, and repeats until interrupted.
Press Ctrl+C once to finish the current turn, twice to exit immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			if handled, err := control("interactive", "interactive agent", stopFlag, statusFlag, e.console); handled {
				return err
			}
			if asrHost == "" {
				asrHost = e.cfg.ASRHost
			}
			if asrPort == 0 {
				asrPort = e.cfg.ASRPort
			}
			if ttsHost == "" {
				ttsHost = e.cfg.TTSHost
			}
			if ttsPort == 0 {
				ttsPort = e.cfg.TTSPort
			}
			if ollamaHost == "" {
				ollamaHost = e.cfg.OllamaHost
			}
			if model == "" {
				model = e.cfg.Model
			}
			if voice == "" {
				voice = e.cfg.Voice
			}

			dev, err := openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			if listInputs {
				return audio.ListInputDevices(dev, e.console)
			}
			if listOutputs {
				return audio.ListOutputDevices(dev, e.console)
			}

			inputIdx, err := resolveInput(dev, e.console, inName, inIndex)
			if err != nil {
				return err
			}
			outputIdx, err := resolveOutput(dev, e.console, outName, outIndex)
			if err != nil {
				return err
			}

			cleanup := trackPID("interactive", e.logger)
			defer cleanup()

			sig := stop.NewSignal()
			uninstall := stop.Install(sig, e.logger, e.console, exitFunc)
			defer uninstall()

			transcriber := agent.TranscriberFunc(func(ctx context.Context) (string, error) {
				return asr.Transcribe(ctx, sig, asr.Options{
					Host:        asrHost,
					Port:        asrPort,
					Device:      dev,
					DeviceIndex: inputIdx,
					Logger:      e.logger,
					Console:     e.console,
					Progress:    progressStatus(e.console, "Listening"),
				})
			})

			var speaker agent.Speaker
			if !noTTS {
				speaker = agent.SpeakerFunc(func(ctx context.Context, text string) {
					tts.Speak(ctx, tts.Options{
						Host:        ttsHost,
						Port:        ttsPort,
						Voice:       voice,
						Language:    e.cfg.Language,
						Speaker:     e.cfg.Speaker,
						Device:      dev,
						DeviceIndex: outputIdx,
						Play:        true,
						Logger:      e.logger,
						Console:     e.console,
					}, text)
				})
			}

			conv := &agent.Conversation{
				Transcriber: transcriber,
				LLM:         llm.NewOllamaClient(ollamaHost, model),
				Speaker:     speaker,
				Store:       history.NewStore(filepath.Join(e.cfg.HistoryDir, "conversation.json")),
				Signal:      sig,
				Logger:      e.logger,
				Console:     e.console,
			}
			if err := conv.LoadHistory(); err != nil {
				return err
			}
			return conv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&asrHost, "asr-host", "", "Wyoming ASR server host")
	cmd.Flags().IntVar(&asrPort, "asr-port", 0, "Wyoming ASR server port")
	cmd.Flags().StringVar(&ttsHost, "tts-host", "", "Wyoming TTS server host")
	cmd.Flags().IntVar(&ttsPort, "tts-port", 0, "Wyoming TTS server port")
	cmd.Flags().StringVar(&ollamaHost, "ollama-host", "", "Ollama server URL")
	cmd.Flags().StringVar(&model, "model", "", "model name")
	cmd.Flags().StringVar(&voice, "voice", "", "TTS voice name")
	cmd.Flags().IntVar(&inIndex, "input-device-index", -1, "audio input device index")
	cmd.Flags().StringVar(&inName, "input-device-name", "", "comma-separated keywords matching an input device name")
	cmd.Flags().IntVar(&outIndex, "output-device-index", -1, "audio output device index")
	cmd.Flags().StringVar(&outName, "output-device-name", "", "comma-separated keywords matching an output device name")
	cmd.Flags().BoolVar(&listInputs, "list-devices", false, "list input devices and exit")
	cmd.Flags().BoolVar(&listOutputs, "list-output-devices", false, "list output devices and exit")
	cmd.Flags().BoolVar(&noTTS, "no-tts", false, "print replies instead of speaking them")
	cmd.Flags().BoolVar(&stopFlag, "stop", false, "stop a running interactive agent")
	cmd.Flags().BoolVar(&statusFlag, "status", false, "report whether an interactive agent is running")
	return cmd
}
