// Package orchestrator drives generation tasks from Start to a terminal
// state. Callers get a task id immediately; a bounded pool of long-lived
// workers performs the matching, provider submission and polling off the
// request path.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tuneforge/internal/domain"
	"tuneforge/internal/domain/jsoncfg"
	"tuneforge/internal/infra"
	"tuneforge/internal/match"
	"tuneforge/internal/providers/suno"
	"tuneforge/internal/registry"
)

// Gateway is the provider surface the orchestrator drives. The concrete
// implementation is the suno client; tests swap in counting fakes.
type Gateway interface {
	Submit(ctx context.Context, req suno.SubmitRequest) (string, error)
	Poll(ctx context.Context, jobID string) (*suno.PollResult, error)
}

// PayloadStore persists a finished track's audio locally. Persistence is
// best-effort: a nil store or a failed download leaves the result pointing
// at the provider's URL.
type PayloadStore interface {
	SaveFromURL(ctx context.Context, name, rawURL string) (string, error)
}

// Options tunes the worker pool and the provider interaction loops. Zero
// values fall back to the defaults below.
type Options struct {
	Workers       int
	QueueCapacity int
	PollInterval  time.Duration
	PollBudget    time.Duration
	SubmitRetries int
	SubmitBackoff time.Duration
	ArtifactTTL   time.Duration
	Score         match.ScoreFunc
	Payloads      PayloadStore
}

const (
	defaultWorkers       = 4
	defaultQueueCapacity = 64
	defaultPollInterval  = 5 * time.Second
	defaultPollBudget    = 5 * time.Minute
	defaultSubmitRetries = 3
	defaultSubmitBackoff = 2 * time.Second
)

// Orchestrator owns the task lifecycle. Exactly one worker executes each
// task; the registry's terminal-state guard keeps a late cancellation from
// ever overwriting a finished result.
type Orchestrator struct {
	registry *registry.Registry
	matcher  *match.Matcher
	store    domain.ArtifactStore
	gateway  Gateway
	payloads PayloadStore
	score    match.ScoreFunc
	logger   infra.Logger

	workers       int
	queue         chan string
	pollInterval  time.Duration
	pollBudget    time.Duration
	submitRetries int
	submitBackoff time.Duration
	artifactTTL   time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func New(reg *registry.Registry, matcher *match.Matcher, store domain.ArtifactStore, gateway Gateway, logger infra.Logger, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = defaultQueueCapacity
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PollBudget <= 0 {
		opts.PollBudget = defaultPollBudget
	}
	if opts.SubmitRetries <= 0 {
		opts.SubmitRetries = defaultSubmitRetries
	}
	if opts.SubmitBackoff <= 0 {
		opts.SubmitBackoff = defaultSubmitBackoff
	}
	if opts.ArtifactTTL <= 0 {
		opts.ArtifactTTL = domain.DefaultArtifactTTL
	}
	if opts.Score == nil {
		opts.Score = match.DefaultScore
	}
	return &Orchestrator{
		registry:      reg,
		matcher:       matcher,
		store:         store,
		gateway:       gateway,
		payloads:      opts.Payloads,
		score:         opts.Score,
		logger:        logger,
		workers:       opts.Workers,
		queue:         make(chan string, opts.QueueCapacity),
		pollInterval:  opts.PollInterval,
		pollBudget:    opts.PollBudget,
		submitRetries: opts.SubmitRetries,
		submitBackoff: opts.SubmitBackoff,
		artifactTTL:   opts.ArtifactTTL,
		cancels:       make(map[string]context.CancelFunc),
	}
}

// Run starts the worker pool and blocks until ctx is cancelled. Workers
// drain whatever task they are executing before Run returns; queued tasks
// that never reached a worker stay pending in the registry.
func (o *Orchestrator) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-o.queue:
					o.execute(ctx, id)
				}
			}
		}(i)
	}
	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Start validates the request, registers a pending task and enqueues it for
// a worker. It returns the task id without touching the provider. A full
// queue makes Start wait for a slot; the caller's context bounds the wait.
func (o *Orchestrator) Start(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	task := &domain.Task{
		ID:        uuid.NewString(),
		Status:    domain.TaskStatusPending,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.registry.Create(task); err != nil {
		return "", fmt.Errorf("register task: %w", err)
	}

	select {
	case o.queue <- task.ID:
	case <-ctx.Done():
		o.fail(task.ID, "cancelled before scheduling")
		return "", fmt.Errorf("enqueue task: %w", ctx.Err())
	}

	o.logger.Info().
		Str("task_id", task.ID).
		Str("scope", req.Scope).
		Str("category", req.Category).
		Str("variant", string(req.Variant)).
		Msg("orchestrator: task accepted")
	return task.ID, nil
}

// GetStatus returns the current task snapshot.
func (o *Orchestrator) GetStatus(_ context.Context, id string) (domain.Task, error) {
	return o.registry.Get(id)
}

// Cancel marks a non-terminal task failed with a cancellation error and
// interrupts its execution at the next checkpoint. The provider-side job,
// if one was submitted, keeps running; only our polling stops.
func (o *Orchestrator) Cancel(_ context.Context, id string) error {
	err := o.registry.Update(id, func(t *domain.Task) {
		t.Status = domain.TaskStatusFailed
		t.ErrorMessage = domain.ErrCancelled.Error()
	})
	if err != nil {
		return err
	}

	o.mu.Lock()
	cancel, running := o.cancels[id]
	o.mu.Unlock()
	if running {
		cancel()
	}
	o.logger.Info().Str("task_id", id).Msg("orchestrator: task cancelled")
	return nil
}

// execute runs the full lifecycle of one task on a worker goroutine.
func (o *Orchestrator) execute(ctx context.Context, id string) {
	snapshot, err := o.registry.Get(id)
	if err != nil || snapshot.Status.Terminal() {
		// Cancelled while still queued, or evicted. Nothing to do.
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancels[id] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.cancels, id)
		o.mu.Unlock()
	}()

	req := snapshot.Request

	o.transition(id, domain.TaskStatusMatching, 5)
	artifact, err := o.matcher.Match(ctx, req.Scope, req.Category, req.Variant)
	switch {
	case err == nil:
		o.completeFromArtifact(ctx, id, artifact)
		return
	case errors.Is(err, domain.ErrNoMatch):
		// Fall through to the provider.
	case ctx.Err() != nil:
		o.fail(id, domain.ErrCancelled.Error())
		return
	default:
		o.logger.Error().Err(err).Str("task_id", id).Msg("orchestrator: match failed, generating fresh")
	}

	if o.terminal(id) {
		return
	}
	o.transition(id, domain.TaskStatusSubmitted, 10)
	jobID, err := o.submitWithRetry(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			o.fail(id, domain.ErrCancelled.Error())
			return
		}
		o.fail(id, fmt.Sprintf("submit: %v", err))
		return
	}
	o.logger.Info().Str("task_id", id).Str("job_id", jobID).Msg("orchestrator: batch submitted")

	o.transition(id, domain.TaskStatusPolling, 20)
	result, err := o.pollUntilDone(ctx, id, jobID)
	if err != nil {
		if ctx.Err() != nil {
			o.fail(id, domain.ErrCancelled.Error())
			return
		}
		o.fail(id, err.Error())
		return
	}
	if result.Status == suno.JobStatusFailed {
		msg := result.FailureMessage
		if msg == "" {
			msg = domain.ErrProviderFailure.Error()
		}
		o.fail(id, msg)
		return
	}

	o.completeFromProvider(ctx, id, jobID, req, result.Units)
}

// completeFromArtifact finalizes a cache hit: the reserved artifact is
// consumed and its payload becomes the task result. The provider is never
// invoked on this path.
func (o *Orchestrator) completeFromArtifact(ctx context.Context, id string, artifact *domain.Artifact) {
	if err := o.store.MarkConsumed(ctx, artifact.ID, id); err != nil {
		// The reservation is ours, so this only fails on storage trouble.
		// The task still gets its track; the row is reconciled by ops.
		o.logger.Error().Err(err).
			Str("task_id", id).
			Str("artifact_id", artifact.ID).
			Msg("orchestrator: consume after reservation failed")
	}
	err := o.registry.Update(id, func(t *domain.Task) {
		t.Status = domain.TaskStatusCompleted
		t.Progress = 100
		t.Result = &domain.TaskResult{
			PayloadRef:      artifact.PayloadRef,
			ImageRef:        artifact.ImageRef,
			Title:           artifact.Title,
			DurationSeconds: artifact.DurationSeconds,
			FromCache:       true,
			ArtifactID:      artifact.ID,
		}
	})
	if err != nil {
		o.logger.Warn().Err(err).Str("task_id", id).Msg("orchestrator: could not finalize hit")
		return
	}
	o.logger.Info().
		Str("task_id", id).
		Str("artifact_id", artifact.ID).
		Msg("orchestrator: served from artifact store")
}

// completeFromProvider commits unit 0 as the task result and parks every
// surplus unit as an available artifact for future reuse.
func (o *Orchestrator) completeFromProvider(ctx context.Context, id, jobID string, req domain.GenerationRequest, units []suno.Unit) {
	if len(units) == 0 {
		o.fail(id, "provider returned no units")
		return
	}

	consumed := units[0]
	payloadRef := consumed.PayloadRef
	if o.payloads != nil {
		if local, err := o.payloads.SaveFromURL(ctx, id, consumed.PayloadRef); err != nil {
			o.logger.Warn().Err(err).Str("task_id", id).Msg("orchestrator: payload download failed, keeping remote ref")
		} else {
			payloadRef = local
		}
	}

	now := time.Now().UTC()
	stored := 0
	for _, unit := range units[1:] {
		artifact := &domain.Artifact{
			ID:              uuid.NewString(),
			SourceRequestID: jobID,
			Scope:           req.Scope,
			Category:        req.Category,
			Variant:         req.Variant,
			Title:           unit.Title,
			PayloadRef:      unit.PayloadRef,
			ImageRef:        unit.ImageRef,
			DurationSeconds: unit.DurationSeconds,
			QualityScore:    o.score(unit.Title, unit.Tags),
			Status:          domain.ArtifactStatusAvailable,
			CreatedAt:       now,
			ExpiresAt:       now.Add(o.artifactTTL),
		}
		if err := o.store.Put(ctx, artifact); err != nil {
			o.logger.Error().Err(err).
				Str("task_id", id).
				Str("artifact_id", artifact.ID).
				Msg("orchestrator: could not park surplus unit")
			continue
		}
		stored++
	}

	err := o.registry.Update(id, func(t *domain.Task) {
		t.Status = domain.TaskStatusCompleted
		t.Progress = 100
		t.Result = &domain.TaskResult{
			PayloadRef:      payloadRef,
			ImageRef:        consumed.ImageRef,
			Title:           consumed.Title,
			DurationSeconds: consumed.DurationSeconds,
			ProviderBatchID: jobID,
		}
	})
	if err != nil {
		// Cancelled during finalization. The surplus artifacts stay parked;
		// they are valid reuse candidates regardless of this task's fate.
		o.logger.Warn().Err(err).Str("task_id", id).Msg("orchestrator: could not finalize generation")
		return
	}
	o.logger.Info().
		Str("task_id", id).
		Str("job_id", jobID).
		Int("surplus_artifacts", stored).
		Msg("orchestrator: generation completed")
}

// submitWithRetry calls the gateway, backing off exponentially on rate
// limiting. Every other error fails the task immediately; the gateway
// already retried transient transport trouble internally.
func (o *Orchestrator) submitWithRetry(ctx context.Context, req domain.GenerationRequest) (string, error) {
	style := jsoncfg.ParseStyleHints(req.StyleHints)
	submit := suno.SubmitRequest{
		Title:        req.Title,
		Style:        style.TagLine(),
		Prompt:       style.Prompt,
		Instrumental: req.Variant == domain.VariantInstrumental,
		Model:        style.Model,
	}
	if submit.Title == "" {
		// "lofi hip hop" → "Lofi Hip Hop"; the category doubles as a title
		// when the caller supplied none.
		submit.Title = cases.Title(language.English).String(req.Category)
	}

	var lastErr error
	backoff := o.submitBackoff
	for attempt := 0; attempt < o.submitRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		jobID, err := o.gateway.Submit(ctx, submit)
		if err == nil {
			return jobID, nil
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return "", err
		}
		lastErr = err
		o.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("orchestrator: submit rate limited, backing off")
	}
	return "", lastErr
}

// pollUntilDone polls the provider at a fixed interval until the job
// reaches a terminal state or the time budget runs out. Task progress moves
// along a synthetic curve since the provider reports phases, not percents.
func (o *Orchestrator) pollUntilDone(ctx context.Context, id, jobID string) (*suno.PollResult, error) {
	started := time.Now()
	deadline := started.Add(o.pollBudget)
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case now := <-ticker.C:
			// A cancellation that raced the worker's startup shows up here
			// as a terminal task rather than a context error.
			if o.terminal(id) {
				return nil, context.Canceled
			}
			if now.After(deadline) {
				return nil, fmt.Errorf("generation did not finish within %s", o.pollBudget)
			}
			result, err := o.gateway.Poll(ctx, jobID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if errors.Is(err, domain.ErrUnavailable) || errors.Is(err, domain.ErrRateLimited) {
					// Transient; the budget bounds how long we tolerate it.
					o.logger.Warn().Err(err).Str("job_id", jobID).Msg("orchestrator: poll failed, will retry")
					continue
				}
				return nil, err
			}
			switch result.Status {
			case suno.JobStatusCompleted, suno.JobStatusFailed:
				return result, nil
			}
			o.progress(id, syntheticProgress(result.Status, now.Sub(started), o.pollBudget))
		}
	}
}

// syntheticProgress maps a provider phase and the elapsed share of the poll
// budget onto a 0-100 progress value. Running jobs ramp from 30 to 85; the
// registry guarantees the reported value never regresses.
func syntheticProgress(status suno.JobStatus, elapsed, budget time.Duration) int {
	switch status {
	case suno.JobStatusQueued:
		return 25
	case suno.JobStatusRunning:
		frac := float64(elapsed) / float64(budget)
		if frac > 1 {
			frac = 1
		}
		p := 30 + int(frac*55)
		if p > 85 {
			p = 85
		}
		return p
	default:
		return 0
	}
}

// terminal reports whether the task already reached a terminal state, e.g.
// through a cancellation racing this execution.
func (o *Orchestrator) terminal(id string) bool {
	task, err := o.registry.Get(id)
	return err != nil || task.Status.Terminal()
}

func (o *Orchestrator) transition(id string, status domain.TaskStatus, progress int) {
	err := o.registry.Update(id, func(t *domain.Task) {
		t.Status = status
		t.Progress = progress
	})
	if err != nil && !errors.Is(err, domain.ErrAlreadyTerminal) {
		o.logger.Error().Err(err).Str("task_id", id).Str("status", string(status)).Msg("orchestrator: transition failed")
	}
}

func (o *Orchestrator) progress(id string, progress int) {
	_ = o.registry.Update(id, func(t *domain.Task) {
		t.Progress = progress
	})
}

func (o *Orchestrator) fail(id, message string) {
	err := o.registry.Update(id, func(t *domain.Task) {
		t.Status = domain.TaskStatusFailed
		t.ErrorMessage = message
	})
	if err != nil {
		// Already terminal: a cancel raced us and its verdict stands.
		return
	}
	o.logger.Warn().Str("task_id", id).Str("error", message).Msg("orchestrator: task failed")
}
