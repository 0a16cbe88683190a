package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/lovabuddy/internal/platform/gcp"
	"github.com/yungbote/lovabuddy/internal/relay/engine"
)

// Synthesizer turns text into WAV audio using a named voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	Name() string
}

// Speaker is the slice of the Gemini engine used for speech.
type Speaker interface {
	Speak(ctx context.Context, model, text, voice, languageCode string) ([]byte, string, error)
}

// GeminiSynth uses a Gemini TTS model. The model returns raw PCM which is wrapped as WAV.
type GeminiSynth struct {
	Speaker      Speaker
	Model        string
	LanguageCode string
}

func (g *GeminiSynth) Name() string { return "gemini" }

func (g *GeminiSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	data, mime, err := g.Speaker.Speak(ctx, g.Model, text, voice, g.LanguageCode)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &engine.EmptyError{}
	}
	if IsWAV(data) {
		return data, nil
	}
	return WrapPCM(data, sampleRateFromMIME(mime)), nil
}

// GCPSynth uses Cloud Text-to-Speech with service-account credentials. Voices are resolved to
// Chirp 3 HD voices of the same name ("Fenrir" becomes "en-US-Chirp3-HD-Fenrir").
type GCPSynth struct {
	client       *texttospeech.Client
	languageCode string
}

func NewGCPSynth(ctx context.Context, languageCode string) (*GCPSynth, error) {
	client, err := texttospeech.NewClient(ctx, gcp.ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("texttospeech client: %w", err)
	}
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &GCPSynth{client: client, languageCode: languageCode}, nil
}

func (g *GCPSynth) Name() string { return "gcp" }

func (g *GCPSynth) Close() error { return g.client.Close() }

func (g *GCPSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.languageCode,
			Name:         gcpVoiceName(g.languageCode, voice),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: defaultSampleRate,
		},
	})
	if err != nil {
		return nil, fromGRPC(err)
	}
	audio := resp.GetAudioContent()
	if len(audio) == 0 {
		return nil, &engine.EmptyError{}
	}
	if IsWAV(audio) {
		return audio, nil
	}
	return WrapPCM(audio, defaultSampleRate), nil
}

func gcpVoiceName(languageCode, voice string) string {
	if strings.Count(voice, "-") >= 2 {
		return voice
	}
	return languageCode + "-Chirp3-HD-" + voice
}

// fromGRPC maps Cloud API status codes onto the relay's upstream error.
func fromGRPC(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	code := 502
	switch st.Code() {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		code = 400
	case codes.Unauthenticated:
		code = 401
	case codes.PermissionDenied:
		code = 403
	case codes.NotFound:
		code = 404
	case codes.ResourceExhausted:
		code = 429
	case codes.Unavailable:
		code = 503
	case codes.DeadlineExceeded:
		code = 504
	}
	return &engine.UpstreamError{StatusCode: code, Status: st.Code().String(), Message: st.Message()}
}
