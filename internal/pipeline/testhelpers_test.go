package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"lantern/internal/config"
	"lantern/internal/logging"
	"lantern/internal/queue"
	"lantern/internal/storage"
	"lantern/internal/testsupport"
)

// fakeBackend satisfies every provider interface with canned output and
// scripted failures. Each errs slice is consumed one entry per call;
// an exhausted slice means success.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	transcript  string
	summary     string
	imagePrompt string
	videoPrompt string
	title       string
	imagePNG    []byte
	videoMP4    []byte

	transcribeErrs  []error
	summarizeErrs   []error
	imagePromptErrs []error
	imageErrs       []error
	videoPromptErrs []error
	renderErrs      []error
	titleErrs       []error

	onTranscribe func(ctx context.Context)
	onSummarize  func(ctx context.Context)
	onRender     func(ctx context.Context)

	lastFrame      []byte
	lastFrameMIME  string
	lastTitleImage []byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		transcript:  "a slow walk through the harbor at dawn, gulls overhead",
		summary:     "A narrator describes an early harbor walk as the fishing boats head out.",
		imagePrompt: "a misty harbor at sunrise, small fishing boats, muted watercolor palette",
		videoPrompt: "slow pan across a misty harbor while boats drift toward open water",
		title:       "Harbor at Dawn",
		imagePNG:    []byte("png-payload"),
		videoMP4:    []byte("mp4-payload"),
	}
}

func (f *fakeBackend) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeBackend) nextErr(errs *[]error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeBackend) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	copy(names, f.calls)
	return names
}

func (f *fakeBackend) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == op {
			count++
		}
	}
	return count
}

func (f *fakeBackend) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f.record("transcribe")
	if f.onTranscribe != nil {
		f.onTranscribe(ctx)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := f.nextErr(&f.transcribeErrs); err != nil {
		return "", err
	}
	return f.transcript, nil
}

func (f *fakeBackend) Summarize(ctx context.Context, transcript string) (string, error) {
	f.record("summarize")
	if f.onSummarize != nil {
		f.onSummarize(ctx)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := f.nextErr(&f.summarizeErrs); err != nil {
		return "", err
	}
	return f.summary, nil
}

func (f *fakeBackend) DeriveImagePrompt(ctx context.Context, summary string) (string, error) {
	f.record("derive image prompt")
	if err := f.nextErr(&f.imagePromptErrs); err != nil {
		return "", err
	}
	return f.imagePrompt, nil
}

func (f *fakeBackend) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	f.record("generate image")
	if err := f.nextErr(&f.imageErrs); err != nil {
		return nil, err
	}
	return f.imagePNG, nil
}

func (f *fakeBackend) BuildVideoPrompt(ctx context.Context, summary, imagePrompt, transcriptExcerpt string) (string, error) {
	f.record("build video prompt")
	if err := f.nextErr(&f.videoPromptErrs); err != nil {
		return "", err
	}
	return f.videoPrompt, nil
}

func (f *fakeBackend) RenderVideo(ctx context.Context, prompt string, frame []byte, frameMIME string) ([]byte, error) {
	f.record("render video")
	f.mu.Lock()
	f.lastFrame = frame
	f.lastFrameMIME = frameMIME
	f.mu.Unlock()
	if f.onRender != nil {
		f.onRender(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.nextErr(&f.renderErrs); err != nil {
		return nil, err
	}
	return f.videoMP4, nil
}

func (f *fakeBackend) GenerateTitle(ctx context.Context, summary string, imagePNG []byte) (string, error) {
	f.record("generate title")
	f.mu.Lock()
	f.lastTitleImage = imagePNG
	f.mu.Unlock()
	if err := f.nextErr(&f.titleErrs); err != nil {
		return "", err
	}
	return f.title, nil
}

type captureNotifier struct {
	mu        sync.Mutex
	completed []string
	titles    []string
	failed    []string
	stages    []string
	causes    []error
}

func (n *captureNotifier) NotifyJobCompleted(ctx context.Context, jobID, title string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, jobID)
	n.titles = append(n.titles, title)
	return nil
}

func (n *captureNotifier) NotifyJobFailed(ctx context.Context, jobID, stage string, cause error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, jobID)
	n.stages = append(n.stages, stage)
	n.causes = append(n.causes, cause)
	return nil
}

func (n *captureNotifier) TestNotification(context.Context) error { return nil }

func (n *captureNotifier) completedIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, len(n.completed))
	copy(ids, n.completed)
	return ids
}

func (n *captureNotifier) failedStages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	stages := make([]string, len(n.stages))
	copy(stages, n.stages)
	return stages
}

type runnerHarness struct {
	cfg      *config.Config
	store    *queue.Store
	files    *storage.Store
	backend  *fakeBackend
	notifier *captureNotifier
	runner   *Runner

	mu    sync.Mutex
	waits []time.Duration
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *runnerHarness {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	files, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}

	h := &runnerHarness{
		cfg:      cfg,
		store:    store,
		files:    files,
		backend:  newFakeBackend(),
		notifier: &captureNotifier{},
	}
	runner, err := NewRunner(cfg, store, files, h.providers(), h.notifier, logging.NewNop(), WithSleeper(h.recordSleep))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	h.runner = runner
	return h
}

func (h *runnerHarness) providers() Providers {
	return Providers{
		Transcriber:  h.backend,
		Summarizer:   h.backend,
		Images:       h.backend,
		VideoPrompts: h.backend,
		Videos:       h.backend,
		Titles:       h.backend,
	}
}

func (h *runnerHarness) recordSleep(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.waits = append(h.waits, d)
}

func (h *runnerHarness) sleeps() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	waits := make([]time.Duration, len(h.waits))
	copy(waits, h.waits)
	return waits
}

func (h *runnerHarness) newJob(t *testing.T, mode queue.GenerationMode) *queue.Job {
	t.Helper()
	return testsupport.NewJob(t, h.store, mode)
}

func (h *runnerHarness) history(t *testing.T, jobID string) []queue.StageRecord {
	t.Helper()
	history, err := h.store.History(context.Background(), jobID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	return history
}

func historyStatuses(history []queue.StageRecord) []queue.Status {
	statuses := make([]queue.Status, 0, len(history))
	for _, record := range history {
		statuses = append(statuses, record.Status)
	}
	return statuses
}

// assertStatuses checks the exact ledger contents and that sequence
// numbers count up from one without gaps.
func assertStatuses(t *testing.T, history []queue.StageRecord, want ...queue.Status) {
	t.Helper()
	got := historyStatuses(history)
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("history = %v, want %v", got, want)
		}
		if history[i].SequenceNumber != int64(i+1) {
			t.Fatalf("record %d sequence = %d, want %d", i, history[i].SequenceNumber, i+1)
		}
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
