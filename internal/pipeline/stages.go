package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lantern/internal/config"
	"lantern/internal/queue"
	"lantern/internal/services"
)

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Summarizer condenses a transcript into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// ImageGenerator derives a visual prompt from a summary and renders it.
type ImageGenerator interface {
	DeriveImagePrompt(ctx context.Context, summary string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// VideoPromptBuilder turns summary and image context into a motion prompt.
type VideoPromptBuilder interface {
	BuildVideoPrompt(ctx context.Context, summary, imagePrompt, transcriptExcerpt string) (string, error)
}

// VideoRenderer produces a short video clip, optionally seeded with a
// first frame.
type VideoRenderer interface {
	RenderVideo(ctx context.Context, prompt string, frame []byte, frameMIME string) ([]byte, error)
}

// TitleGenerator names the finished piece from its summary and image.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, summary string, imagePNG []byte) (string, error)
}

// Providers bundles the external backends the runner drives. The OpenAI
// client satisfies every interface except VideoRenderer, which the Veo
// client provides. Videos may be nil when video generation is not
// configured; submissions that need it are rejected upstream, and a
// video job that reaches the render stage anyway fails permanently.
type Providers struct {
	Transcriber  Transcriber
	Summarizer   Summarizer
	Images       ImageGenerator
	VideoPrompts VideoPromptBuilder
	Videos       VideoRenderer
	Titles       TitleGenerator
}

func (p Providers) validate() error {
	switch {
	case p.Transcriber == nil:
		return errors.New("pipeline: transcription provider is required")
	case p.Summarizer == nil:
		return errors.New("pipeline: summary provider is required")
	case p.Images == nil:
		return errors.New("pipeline: image provider is required")
	case p.VideoPrompts == nil:
		return errors.New("pipeline: video prompt provider is required")
	case p.Titles == nil:
		return errors.New("pipeline: title provider is required")
	}
	return nil
}

// stageDefinition describes one pipeline stage: the ledger status it
// records, the timeout budget an attempt runs under, whether the job's
// mode skips it, and the work itself.
type stageDefinition struct {
	name    string
	status  queue.Status
	timeout func(wf config.Workflow) time.Duration
	skip    func(mode queue.GenerationMode) bool
	run     func(r *Runner, ctx context.Context, jr *jobRun) error
}

var stageTable = []stageDefinition{
	{
		name:    "transcribe",
		status:  queue.StatusTranscribing,
		timeout: func(wf config.Workflow) time.Duration { return seconds(wf.TranscribeTimeoutSeconds) },
		run:     (*Runner).runTranscribe,
	},
	{
		name:    "summarize",
		status:  queue.StatusSummarizing,
		timeout: func(wf config.Workflow) time.Duration { return seconds(wf.SummarizeTimeoutSeconds) },
		run:     (*Runner).runSummarize,
	},
	{
		name:    "generate image",
		status:  queue.StatusGeneratingImage,
		timeout: func(wf config.Workflow) time.Duration { return seconds(wf.ImageTimeoutSeconds) },
		skip:    func(mode queue.GenerationMode) bool { return !mode.WantsImage() },
		run:     (*Runner).runGenerateImage,
	},
	{
		name:    "generate video",
		status:  queue.StatusGeneratingVideo,
		timeout: func(wf config.Workflow) time.Duration { return seconds(wf.VideoTimeoutSeconds) },
		skip:    func(mode queue.GenerationMode) bool { return !mode.WantsVideo() },
		run:     (*Runner).runGenerateVideo,
	},
	{
		name:    "generate title",
		status:  queue.StatusGeneratingTitle,
		timeout: func(wf config.Workflow) time.Duration { return seconds(wf.TitleTimeoutSeconds) },
		run:     (*Runner).runGenerateTitle,
	},
	{
		name:    "store result",
		status:  queue.StatusStoring,
		timeout: func(config.Workflow) time.Duration { return 0 },
		run:     (*Runner).runStoreResult,
	},
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// StageLabel renders a ledger status for human-facing output, turning
// "generating_image" into "Generating Image".
func StageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	label := strings.ReplaceAll(string(status), "_", " ")
	return cases.Title(language.Und).String(label)
}

func (r *Runner) runTranscribe(ctx context.Context, jr *jobRun) error {
	transcript, err := r.providers.Transcriber.Transcribe(ctx, jr.job.SourcePath)
	if err != nil {
		return err
	}
	jr.transcript = transcript
	return nil
}

func (r *Runner) runSummarize(ctx context.Context, jr *jobRun) error {
	summary, err := r.providers.Summarizer.Summarize(ctx, jr.transcript)
	if err != nil {
		return err
	}
	jr.summary = summary
	return nil
}

func (r *Runner) runGenerateImage(ctx context.Context, jr *jobRun) error {
	prompt, err := r.providers.Images.DeriveImagePrompt(ctx, jr.summary)
	if err != nil {
		return err
	}
	jr.imagePrompt = prompt

	payload, err := r.providers.Images.GenerateImage(ctx, prompt)
	if err != nil {
		return err
	}
	ref, err := r.files.SaveImage(jr.job.ID, payload)
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	jr.imagePNG = payload
	jr.imageRef = ref
	return nil
}

func (r *Runner) runGenerateVideo(ctx context.Context, jr *jobRun) error {
	if r.providers.Videos == nil {
		return services.Wrap(services.ErrConfiguration, "generate video", "", "video renderer is not configured", nil)
	}
	prompt, err := r.providers.VideoPrompts.BuildVideoPrompt(ctx, jr.summary, jr.imagePrompt, jr.transcript)
	if err != nil {
		return err
	}
	jr.videoPrompt = prompt

	payload, err := r.providers.Videos.RenderVideo(ctx, prompt, jr.imagePNG, "image/png")
	if err != nil {
		return err
	}
	ref, err := r.files.SaveVideo(jr.job.ID, payload)
	if err != nil {
		return fmt.Errorf("save video: %w", err)
	}
	jr.videoRef = ref
	return nil
}

func (r *Runner) runGenerateTitle(ctx context.Context, jr *jobRun) error {
	title, err := r.providers.Titles.GenerateTitle(ctx, jr.summary, jr.imagePNG)
	if err != nil {
		return err
	}
	jr.title = title
	return nil
}

// runStoreResult persists the job result. A result left behind by an
// interrupted run that already reached storing is kept as-is so the
// write-once guarantee holds across requeues.
func (r *Runner) runStoreResult(ctx context.Context, jr *jobRun) error {
	err := r.store.WriteResult(ctx, queue.Result{
		JobID:      jr.job.ID,
		Transcript: jr.transcript,
		Summary:    jr.summary,
		Title:      jr.title,
		ImagePath:  jr.imageRef,
		VideoPath:  jr.videoRef,
	})
	if err != nil && !errors.Is(err, queue.ErrResultExists) {
		return services.Wrap(services.ErrResultWrite, "store result", "write result", "persist job result", err)
	}
	return nil
}
