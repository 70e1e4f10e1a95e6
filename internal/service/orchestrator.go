package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"emotion-character-demo/backend/ai"
	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/repository"
	"emotion-character-demo/backend/pkg/lock"
	"emotion-character-demo/backend/pkg/logger"
	"emotion-character-demo/backend/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OrchestratorConfig tunes a chat turn
type OrchestratorConfig struct {
	TurnCost      int
	MaxMessageLen int
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
}

// DefaultOrchestratorConfig: 1 credit per turn, 1000 characters, 3 attempts, 0.2s..2s backoff
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		TurnCost:      1,
		MaxMessageLen: 1000,
		MaxAttempts:   3,
		BackoffBase:   200 * time.Millisecond,
		BackoffMax:    2 * time.Second,
	}
}

// TurnRequest is one user message sent to a conversation
type TurnRequest struct {
	UserID         uint
	ConversationID uint
	Message        string
	Locale         string
}

// TurnResult is what the client sees for a turn, successful or not
type TurnResult struct {
	Success           bool   `json:"success"`
	AIResponse        string `json:"ai_response,omitempty"`
	Error             string `json:"error,omitempty"`
	ErrorCode         string `json:"error_code,omitempty"`
	CreditsUsed       int    `json:"credits_used"`
	RemainingCredits  int    `json:"remaining_credits"`
	MessageID         uint   `json:"message_id,omitempty"`
	ConversationTitle string `json:"conversation_title,omitempty"`
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChatOrchestrator runs chat turns: validate, meter credits, prompt, generate
// with retries, persist.
type ChatOrchestrator struct {
	repos     *repository.Repositories
	generator ai.Generator
	locker    lock.Locker
	cfg       OrchestratorConfig
	log       *logger.Logger
	tracer    trace.Tracer
	sleep     Sleeper
}

type OrchestratorOption func(*ChatOrchestrator)

// WithSleeper replaces the backoff wait, mainly for tests
func WithSleeper(s Sleeper) OrchestratorOption {
	return func(o *ChatOrchestrator) { o.sleep = s }
}

func NewChatOrchestrator(repos *repository.Repositories, generator ai.Generator, locker lock.Locker, cfg OrchestratorConfig, log *logger.Logger, opts ...OrchestratorOption) *ChatOrchestrator {
	if log == nil {
		log = logger.GetGlobal()
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = cfg.BackoffBase
	}
	o := &ChatOrchestrator{
		repos:     repos,
		generator: generator,
		locker:    locker,
		cfg:       cfg,
		log:       log,
		tracer:    otel.Tracer("emotion-character-demo/backend/internal/service"),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *ChatOrchestrator) exponential() *backoff.ExponentialBackOff {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     o.cfg.BackoffBase,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         o.cfg.BackoffMax,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()
	return exp
}

// retrySchedule yields the waits between attempts and Stop once
// MaxAttempts-1 retries are used
func (o *ChatOrchestrator) retrySchedule() backoff.BackOff {
	if o.cfg.MaxAttempts <= 1 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(o.exponential(), uint64(o.cfg.MaxAttempts-1))
}

// Backoff is the wait after failed attempt n (1-based): min(max, base*2^(n-1))
func (o *ChatOrchestrator) Backoff(n int) time.Duration {
	exp := o.exponential()
	d := exp.NextBackOff()
	for i := 1; i < n; i++ {
		d = exp.NextBackOff()
	}
	return d
}

// SendMessage runs one turn. On failure the result carries the localized
// message and code, and err carries the typed cause.
func (o *ChatOrchestrator) SendMessage(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.Int64("conversation.id", int64(req.ConversationID)),
		attribute.Int64("user.id", int64(req.UserID)),
	))
	defer span.End()

	log := o.log.WithConversation(req.ConversationID).With("user_id", req.UserID)

	result, err := o.runTurn(ctx, req, log)

	outcome := "success"
	if err != nil {
		outcome = ErrorCode(err)
		if errors.Is(err, context.Canceled) {
			outcome = "canceled"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		o.fail(result, req.Locale, err)
	}
	metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())

	return result, err
}

func (o *ChatOrchestrator) fail(result *TurnResult, locale string, err error) {
	var reason string
	var validation *ValidationError
	if errors.As(err, &validation) {
		reason = validation.Reason
	}
	if locale == "" {
		locale = "en"
	}
	result.Success = false
	result.ErrorCode = ErrorCode(err)
	result.Error = UserMessage(locale, result.ErrorCode, reason)
	result.CreditsUsed = 0
}

func (o *ChatOrchestrator) runTurn(ctx context.Context, req TurnRequest, log *logger.Logger) (*TurnResult, error) {
	result := &TurnResult{}

	text := strings.TrimSpace(req.Message)
	if text == "" {
		return result, &ValidationError{Reason: "empty"}
	}
	if utf8.RuneCountInString(text) > o.cfg.MaxMessageLen {
		return result, &ValidationError{Reason: "too_long"}
	}

	conv, err := o.repos.Conversations.GetByID(ctx, req.ConversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result, ErrConversationNotFound
		}
		return result, fmt.Errorf("load conversation: %w", err)
	}
	if conv.UserID != req.UserID {
		return result, ErrConversationNotFound
	}
	if conv.Status == models.ConversationEnded {
		return result, &ValidationError{Reason: "conversation_ended"}
	}
	if conv.Character == nil {
		return result, fmt.Errorf("conversation %d has no character", conv.ID)
	}

	release, err := o.locker.Acquire(ctx, fmt.Sprintf("conversation:%d", conv.ID))
	if err != nil {
		return result, fmt.Errorf("lock conversation: %w", err)
	}
	defer release()

	// read before appending so the current message is not repeated in history
	history, err := o.repos.Messages.Recent(ctx, conv.ID, HistoryTurns)
	if err != nil {
		return result, fmt.Errorf("load history: %w", err)
	}

	// the user's turn is recorded even if generation later fails
	if _, err := o.repos.Messages.Append(ctx, &models.Message{
		ConversationID: conv.ID,
		Sender:         models.SenderUser,
		Content:        text,
	}); err != nil {
		return result, fmt.Errorf("save user message: %w", err)
	}

	credit, err := o.repos.Credits.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return result, fmt.Errorf("load credits: %w", err)
	}
	result.RemainingCredits = credit.FreeCredits
	if credit.FreeCredits < o.cfg.TurnCost {
		log.Info("Turn rejected for insufficient credits", "balance", credit.FreeCredits)
		return result, &InsufficientCreditsError{Balance: credit.FreeCredits, Required: o.cfg.TurnCost}
	}

	genReq := ai.Request{
		SystemInstruction: BuildCharacterPrompt(conv.Character, history),
		UserMessage:       text,
	}
	resp, err := o.generate(ctx, genReq, log)
	if err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	latency := resp.Latency.Seconds()
	aiMessage := &models.Message{
		ConversationID: conv.ID,
		Sender:         models.SenderCharacter,
		Content:        resp.Text,
		AIModelUsed:    resp.Model,
		GenerationTime: &latency,
	}
	count, err := o.repos.Messages.Append(ctx, aiMessage)
	if err != nil {
		return result, fmt.Errorf("save character message: %w", err)
	}

	result.Success = true
	result.AIResponse = resp.Text
	result.MessageID = aiMessage.ID

	remaining, err := o.repos.Credits.Debit(ctx, req.UserID, o.cfg.TurnCost)
	if err != nil {
		// the reply stands even when the debit does not
		metrics.CreditDebitFailures.Inc()
		log.LogError(err, "Credit debit failed after successful generation", "cost", o.cfg.TurnCost)
	} else {
		metrics.CreditsDebited.Add(float64(o.cfg.TurnCost))
		result.CreditsUsed = o.cfg.TurnCost
		result.RemainingCredits = remaining
	}

	result.ConversationTitle = conv.Title
	// only the first exchange names the conversation
	if count == 2 && conv.Title == "" {
		result.ConversationTitle = o.deriveTitle(ctx, conv.ID, log)
	}

	return result, nil
}

func (o *ChatOrchestrator) deriveTitle(ctx context.Context, conversationID uint, log *logger.Logger) string {
	first, err := o.repos.Messages.FirstUserMessage(ctx, conversationID)
	if err != nil {
		log.LogError(err, "Failed to load first user message for title")
		return ""
	}
	title := DeriveTitle(first.Content)
	if _, err := o.repos.Conversations.SetTitleIfEmpty(ctx, conversationID, title); err != nil {
		log.LogError(err, "Failed to set conversation title")
		return ""
	}
	return title
}

func (o *ChatOrchestrator) generate(ctx context.Context, req ai.Request, log *logger.Logger) (*ai.Response, error) {
	schedule := o.retrySchedule()

	for attempt := 1; ; attempt++ {
		attemptCtx, span := o.tracer.Start(ctx, "generation.attempt", trace.WithAttributes(
			attribute.Int("attempt", attempt),
		))
		started := time.Now()
		resp, err := o.generator.Generate(attemptCtx, req)
		elapsed := time.Since(started)
		if err == nil && (resp == nil || strings.TrimSpace(resp.Text) == "") {
			err = ai.ErrEmptyResponse
		}

		if err == nil {
			span.End()
			metrics.GenerationAttempts.WithLabelValues("success").Inc()
			log.Info("Generation succeeded",
				"attempt", attempt,
				"latency_ms", elapsed.Milliseconds(),
				"model", resp.Model,
			)
			if resp.Latency == 0 {
				resp.Latency = elapsed
			}
			resp.Text = strings.TrimSpace(resp.Text)
			return resp, nil
		}

		span.RecordError(err)
		span.End()

		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Info("Turn canceled during generation", "attempt", attempt, "error", ctxErr.Error())
			return nil, ctxErr
		}

		if !ai.IsTransient(err) {
			metrics.GenerationAttempts.WithLabelValues("permanent").Inc()
			log.Error("Generation failed permanently",
				"attempt", attempt,
				"latency_ms", elapsed.Milliseconds(),
				"error", err.Error(),
			)
			return nil, &PermanentGenerationError{Attempt: attempt, Err: err}
		}

		metrics.GenerationAttempts.WithLabelValues("transient").Inc()

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			log.Error("Generation retries exhausted", "attempts", attempt, "error", err.Error())
			return nil, &TransientGenerationError{Attempts: attempt, Err: err}
		}

		log.Warn("Generation attempt failed, will retry",
			"attempt", attempt,
			"max_attempts", o.cfg.MaxAttempts,
			"latency_ms", elapsed.Milliseconds(),
			"retry_in", delay.String(),
			"error", err.Error(),
		)
		if err := o.sleep(ctx, delay); err != nil {
			log.Info("Turn canceled during backoff", "attempt", attempt, "error", err.Error())
			return nil, err
		}
	}
}

func isEmptyResponse(err error) bool {
	return errors.Is(err, ai.ErrEmptyResponse)
}
