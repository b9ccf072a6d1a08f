package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/useyours/yours-backend/internal/lightward"
	"github.com/useyours/yours-backend/internal/models"
)

var (
	// ErrNotEntitled means the record is past its free first day and no
	// active subscription was found.
	ErrNotEntitled = errors.New("active subscription required")

	// ErrEmptyNarrative rejects integration of a day with nothing in it.
	ErrEmptyNarrative = errors.New("no narrative to integrate yet")
)

// exportDivider separates rendered turns in the plain-text export.
const exportDivider = "\n\n---\n\n"

// ResonanceStore is the persistence surface the chat service needs.
type ResonanceStore interface {
	FindOrCreate(credential string) (*models.Resonance, error)
	Find(credential string) (*models.Resonance, error)
	Save(r *models.Resonance) error
}

// EntitlementChecker answers whether a record has an active subscription.
// The billing service implements this against Stripe.
type EntitlementChecker interface {
	ActiveSubscription(r *models.Resonance) bool
}

// ChatService drives the day cycle: narrative accumulates turn by turn
// while a day is in progress, integrates into a replacement harmonic at the
// day boundary, and can reset to day 1 from anywhere.
type ChatService struct {
	store              ResonanceStore
	ai                 *lightward.Client
	billing            EntitlementChecker
	integrationTimeout time.Duration
}

func NewChatService(store ResonanceStore, ai *lightward.Client, billing EntitlementChecker, integrationTimeout time.Duration) *ChatService {
	return &ChatService{
		store:              store,
		ai:                 ai,
		billing:            billing,
		integrationTimeout: integrationTimeout,
	}
}

// CheckEntitlement gates append and integrate. Day 1 is free; day 2 onward
// needs an active subscription. Runs before the continuity guard and before
// any upstream call, so an unentitled request costs nothing.
func (s *ChatService) CheckEntitlement(r *models.Resonance) error {
	day, err := r.UniverseDay()
	if err != nil {
		return fmt.Errorf("read universe day: %w", err)
	}
	if day <= 1 {
		return nil
	}
	if s.billing.ActiveSubscription(r) {
		return nil
	}
	return ErrNotEntitled
}

// Stream relays one exchange: the upstream reply streams to downstream as
// it arrives, and once complete the user turn plus the accumulated
// assistant turn are appended to the narrative and persisted. On relay
// failure nothing is saved. Returns the post-save universe time.
func (s *ChatService) Stream(ctx context.Context, r *models.Resonance, message models.Turn, downstream io.Writer) (string, error) {
	narrative, err := r.Narrative()
	if err != nil {
		return "", fmt.Errorf("read narrative: %w", err)
	}
	harmonic, err := r.Harmonic()
	if err != nil {
		return "", fmt.Errorf("read harmonic: %w", err)
	}
	day, err := r.UniverseDay()
	if err != nil {
		return "", fmt.Errorf("read universe day: %w", err)
	}

	chatLog := append(introTurns(harmonic, day), narrative...)
	chatLog = append(chatLog, message)

	reply, err := s.ai.Stream(ctx, chatLog, downstream)
	if err != nil {
		return "", err
	}

	narrative = append(narrative, message, models.TextTurn(models.RoleAssistant, reply))
	if err := r.SetNarrative(narrative); err != nil {
		return "", fmt.Errorf("write narrative: %w", err)
	}
	if err := s.store.Save(r); err != nil {
		return "", fmt.Errorf("save narrative: %w", err)
	}
	return r.UniverseTime()
}

// Integrate starts the day-boundary transition. The narrative-empty check
// happens here, in the request; the slow upstream call runs in the
// background so the user's redirect is not held hostage to it. The
// credential is captured by value; the request context it came from will
// be gone by the time the goroutine runs.
func (s *ChatService) Integrate(r *models.Resonance) error {
	narrative, err := r.Narrative()
	if err != nil {
		return fmt.Errorf("read narrative: %w", err)
	}
	if len(narrative) == 0 {
		return ErrEmptyNarrative
	}

	credential := r.Credential()
	go s.runIntegration(credential)
	return nil
}

// runIntegration re-loads the record fresh, renders the new harmonic
// upstream, and applies the day transition. Any failure leaves the record
// exactly as it was: harmonic, narrative, and day all change only after the
// upstream call has succeeded, in one save.
func (s *ChatService) runIntegration(credential string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.integrationTimeout)
	defer cancel()

	r, err := s.store.Find(credential)
	if err != nil {
		s.reportIntegrationFailure("load record", err)
		return
	}
	if r == nil {
		slog.Warn("integration skipped: record vanished")
		return
	}

	narrative, err := r.Narrative()
	if err != nil {
		s.reportIntegrationFailure("read narrative", err)
		return
	}
	if len(narrative) == 0 {
		return
	}
	harmonic, err := r.Harmonic()
	if err != nil {
		s.reportIntegrationFailure("read harmonic", err)
		return
	}
	day, err := r.UniverseDay()
	if err != nil {
		s.reportIntegrationFailure("read universe day", err)
		return
	}

	rendered, err := s.ai.Complete(ctx, integrationChatLog(harmonic, narrative))
	if err != nil {
		s.reportIntegrationFailure("render harmonic", err)
		return
	}

	if err := r.SetHarmonic(rendered); err != nil {
		s.reportIntegrationFailure("write harmonic", err)
		return
	}
	if err := r.SetNarrative([]models.Turn{}); err != nil {
		s.reportIntegrationFailure("clear narrative", err)
		return
	}
	if err := r.SetUniverseDay(day + 1); err != nil {
		s.reportIntegrationFailure("advance day", err)
		return
	}
	if err := s.store.Save(r); err != nil {
		s.reportIntegrationFailure("save", err)
		return
	}

	slog.Info("integration complete", "universe_day", day+1)
}

func (s *ChatService) reportIntegrationFailure(stage string, err error) {
	slog.Error("integration failed", "stage", stage, "error", err)
	sentry.CaptureException(fmt.Errorf("integration %s: %w", stage, err))
}

// SaveTextarea persists the scratch buffer and returns the universe time.
func (s *ChatService) SaveTextarea(r *models.Resonance, contents string) (string, error) {
	if err := r.SetTextarea(contents); err != nil {
		return "", fmt.Errorf("write textarea: %w", err)
	}
	if err := s.store.Save(r); err != nil {
		return "", fmt.Errorf("save textarea: %w", err)
	}
	return r.UniverseTime()
}

// Reset begins again: harmonic cleared, narrative emptied, day 1.
func (s *ChatService) Reset(r *models.Resonance) (string, error) {
	if err := r.BeginAgain(); err != nil {
		return "", fmt.Errorf("reset record: %w", err)
	}
	if err := s.store.Save(r); err != nil {
		return "", fmt.Errorf("save reset: %w", err)
	}
	return r.UniverseTime()
}

// Export renders the current narrative as plain text for user-facing data
// export, turns joined by a fixed divider.
func (s *ChatService) Export(r *models.Resonance) (string, error) {
	narrative, err := r.Narrative()
	if err != nil {
		return "", fmt.Errorf("read narrative: %w", err)
	}

	rendered := make([]string, 0, len(narrative))
	for _, turn := range narrative {
		rendered = append(rendered, turn.Role+":\n"+turn.PlainText())
	}
	return strings.Join(rendered, exportDivider), nil
}
