package cli

import (
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/basnijholt/ai-assistant/internal/asr"
	"github.com/basnijholt/ai-assistant/internal/audio"
	"github.com/basnijholt/ai-assistant/internal/llm"
	"github.com/basnijholt/ai-assistant/internal/stop"
	"github.com/basnijholt/ai-assistant/internal/tts"
	"github.com/basnijholt/ai-assistant/internal/wakeword"
)

const wakeSystemPrompt = `You are a helpful voice assistant. Respond to user questions and commands in a conversational, friendly manner.

Keep your responses concise but informative. If the user asks you to perform an action that requires external tools or systems, explain what you would do if you had access to those capabilities.

Always be helpful, accurate, and engaging in your responses.`

const wakeInstructions = `The user has spoken a voice command or question. Provide a helpful, conversational response.

If it's a question, answer it clearly and concisely.
If it's a command, explain what you would do or provide guidance on how to accomplish it.
If it's unclear, ask for clarification in a friendly way.

Respond as if you're having a natural conversation.`

func newWakeWordAssistantCommand() *cobra.Command {
	var (
		wakeHost     string
		wakePort     int
		wakeWord     string
		asrHost      string
		asrPort      int
		ttsHost      string
		ttsPort      int
		ollamaHost   string
		model        string
		voice        string
		inIndex      int
		inName       string
		outIndex     int
		outName      string
		listInputs   bool
		enableTTS    bool
		useClipboard bool
		saveFile     string
		stopFlag     bool
		statusFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "wake-word-assistant",
		Short: "Hands-free assistant gated on a wake word",
		Long: `Waits for the wake word, records until the wake word is spoken again,
transcribes the recording, asks the model, and optionally speaks the reply.
Runs until interrupted or stopped with --stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			if handled, err := control("wake-word-assistant", "wake word assistant", stopFlag, statusFlag, e.console); handled {
				return err
			}
			if wakeHost == "" {
				wakeHost = e.cfg.WakeHost
			}
			if wakePort == 0 {
				wakePort = e.cfg.WakePort
			}
			if wakeWord == "" {
				wakeWord = e.cfg.WakeWord
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

			inputIdx, err := resolveInput(dev, e.console, inName, inIndex)
			if err != nil {
				return err
			}
			var outputIdx *int
			if enableTTS {
				outputIdx, err = resolveOutput(dev, e.console, outName, outIndex)
				if err != nil {
					return err
				}
			}

			cleanup := trackPID("wake-word-assistant", e.logger)
			defer cleanup()

			sig := stop.NewSignal()
			uninstall := stop.Install(sig, e.logger, e.console, exitFunc)
			defer uninstall()

			ctx := cmd.Context()
			client := llm.NewOllamaClient(ollamaHost, model)

			e.console.Print("Listening for wake word: %s", wakeWord)
			e.console.Print("Say the wake word to start recording, then say it again to stop and process.")

			for !sig.IsSet() {
				e.console.Print("Waiting for wake word to start recording...")
				detected, err := wakeword.Detect(ctx, sig, wakeword.Options{
					Host:        wakeHost,
					Port:        wakePort,
					WakeWord:    wakeWord,
					Device:      dev,
					DeviceIndex: inputIdx,
					Logger:      e.logger,
				})
				if err != nil {
					e.logger.Error().Err(err).Msg("wake word detection failed")
					e.console.Error("wake word detection failed: %v", err)
					// Keep listening, but do not hammer a dead server.
					time.Sleep(time.Second)
					continue
				}
				if detected == "" || sig.IsSet() {
					break
				}
				e.console.Print("Wake word %q detected, recording...", detected)

				// The recorder gets its own stop signal: the second wake word
				// ends the recording, not the whole assistant.
				recSig := stop.NewSignal()
				recorded := make(chan []byte, 1)
				go func() {
					stream, err := dev.OpenInputStream(audio.InputParams(inputIdx))
					if err != nil {
						e.logger.Error().Err(err).Msg("could not open recording stream")
						recorded <- nil
						return
					}
					defer stream.Close()
					pcm, err := audio.RecordToBuffer(ctx, stream, recSig, e.logger, audio.ReadOptions{
						Params:   audio.InputParams(inputIdx),
						Progress: progressStatus(e.console, "Recording"),
					})
					if err != nil {
						e.logger.Error().Err(err).Msg("recording failed")
					}
					recorded <- pcm
				}()

				stopWord, err := wakeword.Detect(ctx, sig, wakeword.Options{
					Host:        wakeHost,
					Port:        wakePort,
					WakeWord:    wakeWord,
					Device:      dev,
					DeviceIndex: inputIdx,
					Logger:      e.logger,
				})
				recSig.Set()
				pcm := <-recorded
				if err != nil {
					e.logger.Error().Err(err).Msg("wake word detection failed")
					continue
				}
				if stopWord == "" || sig.IsSet() {
					break
				}
				e.console.Print("Wake word %q detected, stopping recording.", stopWord)

				if len(pcm) == 0 {
					e.console.Warn("No audio recorded.")
					continue
				}
				if saveFile != "" {
					wav := tts.EncodeWAV(pcm, audio.Rate, audio.SampleWidth, audio.Channels)
					if err := os.WriteFile(saveFile, wav, 0o644); err != nil {
						e.logger.Error().Err(err).Msg("could not save recording")
					} else {
						e.console.Print("Audio saved to %s", saveFile)
					}
				}

				e.console.Print("Processing recorded audio...")
				transcript, err := asr.TranscribeBuffer(ctx, pcm, asr.Options{
					Host:    asrHost,
					Port:    asrPort,
					Logger:  e.logger,
					Console: e.console,
				})
				if err != nil {
					e.logger.Error().Err(err).Msg("ASR processing failed")
					e.console.Error("ASR processing failed: %v", err)
					continue
				}
				if strings.TrimSpace(transcript) == "" {
					e.console.Warn("No speech detected in recording.")
					continue
				}
				e.console.Print("You: %s", transcript)

				response, err := client.Generate(ctx, wakeSystemPrompt, wakeInstructions, transcript)
				if err != nil {
					e.logger.Error().Err(err).Msg("LLM call failed")
					e.console.Error("LLM error: %v", err)
					continue
				}
				response = strings.TrimSpace(response)
				if response == "" {
					e.console.Warn("No response from LLM.")
					continue
				}
				e.console.Print("AI: %s", response)

				if useClipboard {
					if err := clipboard.WriteAll(response); err != nil {
						e.logger.Warn().Err(err).Msg("could not write clipboard")
					}
				}
				if enableTTS {
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
					}, response)
				}
				e.console.Print("Ready for next wake word.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&wakeHost, "wake-host", "", "Wyoming wake word server host")
	cmd.Flags().IntVar(&wakePort, "wake-port", 0, "Wyoming wake word server port")
	cmd.Flags().StringVar(&wakeWord, "wake-word", "", "wake word name to listen for")
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
	cmd.Flags().BoolVar(&enableTTS, "tts", false, "speak responses through the TTS server")
	cmd.Flags().BoolVar(&useClipboard, "clipboard", true, "copy responses to the clipboard")
	cmd.Flags().StringVar(&saveFile, "save-file", "", "save each recording to this WAV file")
	cmd.Flags().BoolVar(&stopFlag, "stop", false, "stop a running wake word assistant")
	cmd.Flags().BoolVar(&statusFlag, "status", false, "report whether a wake word assistant is running")
	return cmd
}
