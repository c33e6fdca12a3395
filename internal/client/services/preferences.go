package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/insubria-survive/survive/internal/client/repositories/exams"
	"github.com/insubria-survive/survive/internal/client/repositories/preferences"
	"github.com/insubria-survive/survive/internal/client/session"
	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/models"
)

// PreferenceService joins exams with the current user's statuses.
//
// Derive is the only operation that writes defaults: an exam without a
// preference is reported as UNDECIDED and a row with that status is stored
// through EnsureDefault. Lookup never writes.
type PreferenceService interface {
	Derive(ctx context.Context) (models.Partitions, error)
	Lookup(ctx context.Context, examID string) (models.Preference, bool, error)
	EnsureDefault(ctx context.Context, examID string) (models.Status, error)
	SetStatus(ctx context.Context, examID string, status models.Status) (models.Partitions, error)
	ByStatus(ctx context.Context, status models.Status) ([]models.ExamWithStatus, error)
	Subscribe(fn func(models.Partitions)) func()
	// OnSynced re-derives after the exam collection has been stored.
	OnSynced(ctx context.Context, collection string)
}

type preferenceService struct {
	exams   exams.Repository
	prefs   preferences.Repository
	session *session.Session
	logger  logging.Logger

	mu        sync.Mutex
	observers map[int]func(models.Partitions)
	nextObs   int
}

func NewPreferenceService(er exams.Repository, pr preferences.Repository, s *session.Session, l logging.Logger) PreferenceService {
	return &preferenceService{
		exams:     er,
		prefs:     pr,
		session:   s,
		logger:    l.With("module", "preferences"),
		observers: make(map[int]func(models.Partitions)),
	}
}

func (p *preferenceService) user() (string, error) {
	key, ok := p.session.UserKey()
	if !ok {
		return "", ErrNotLoggedIn
	}
	return key, nil
}

func (p *preferenceService) Derive(ctx context.Context) (models.Partitions, error) {
	userID, err := p.user()
	if err != nil {
		return models.Partitions{}, err
	}

	list, err := p.exams.GetAll(ctx)
	if err != nil {
		return models.Partitions{}, fmt.Errorf("failed to read exams: %w", err)
	}
	slices.SortStableFunc(list, models.CompareExams)

	var result models.Partitions
	for _, exam := range list {
		result.Add(models.ExamWithStatus{Exam: exam, Status: p.statusFor(ctx, exam.ID, userID)})
	}

	p.publish(result)
	return result, nil
}

// statusFor reads the stored status, materializing the default when there
// is none. Storage failures are logged and read as UNDECIDED.
func (p *preferenceService) statusFor(ctx context.Context, examID, userID string) models.Status {
	pref, err := p.prefs.Get(ctx, examID, userID)
	if err == nil {
		return pref.Status
	}
	if !errors.Is(err, common.ErrorNotFound) {
		p.logger.Error(ctx, "failed to read preference", "exam", examID, "error", err)
		return models.StatusUndecided
	}

	status, err := p.ensureDefault(ctx, examID, userID)
	if err != nil {
		p.logger.Error(ctx, "failed to store default preference", "exam", examID, "error", err)
		return models.StatusUndecided
	}
	return status
}

func (p *preferenceService) ensureDefault(ctx context.Context, examID, userID string) (models.Status, error) {
	inserted, err := p.prefs.InsertIfAbsent(ctx, models.Preference{
		ExamID: examID,
		UserID: userID,
		Status: models.StatusUndecided,
	})
	if err != nil {
		return models.StatusUndecided, err
	}
	if inserted {
		return models.StatusUndecided, nil
	}

	// A row appeared between the read and the insert; it wins.
	pref, err := p.prefs.Get(ctx, examID, userID)
	if err != nil {
		return models.StatusUndecided, err
	}
	return pref.Status, nil
}

func (p *preferenceService) Lookup(ctx context.Context, examID string) (models.Preference, bool, error) {
	userID, err := p.user()
	if err != nil {
		return models.Preference{}, false, err
	}
	pref, err := p.prefs.Get(ctx, examID, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return models.Preference{}, false, nil
	}
	if err != nil {
		return models.Preference{}, false, err
	}
	return pref, true, nil
}

func (p *preferenceService) EnsureDefault(ctx context.Context, examID string) (models.Status, error) {
	userID, err := p.user()
	if err != nil {
		return "", err
	}
	return p.ensureDefault(ctx, examID, userID)
}

func (p *preferenceService) SetStatus(ctx context.Context, examID string, status models.Status) (models.Partitions, error) {
	userID, err := p.user()
	if err != nil {
		return models.Partitions{}, err
	}
	if !status.Valid() {
		return models.Partitions{}, fmt.Errorf("%w: %q", common.ErrorInvalidStatus, status)
	}
	if _, err := p.exams.GetByID(ctx, examID); err != nil {
		return models.Partitions{}, fmt.Errorf("exam %s: %w", examID, err)
	}

	if err := p.prefs.Upsert(ctx, models.Preference{ExamID: examID, UserID: userID, Status: status}); err != nil {
		return models.Partitions{}, err
	}
	p.logger.Info(ctx, "status changed", "exam", examID, "status", string(status))

	return p.Derive(ctx)
}

// ByStatus queries stored preferences directly. Preferences whose exam is
// no longer in the local store are skipped.
func (p *preferenceService) ByStatus(ctx context.Context, status models.Status) ([]models.ExamWithStatus, error) {
	userID, err := p.user()
	if err != nil {
		return nil, err
	}
	prefs, err := p.prefs.GetByStatus(ctx, status, userID)
	if err != nil {
		return nil, err
	}

	result := make([]models.ExamWithStatus, 0, len(prefs))
	for _, pref := range prefs {
		exam, err := p.exams.GetByID(ctx, pref.ExamID)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, models.ExamWithStatus{Exam: exam, Status: pref.Status})
	}
	return result, nil
}

func (p *preferenceService) Subscribe(fn func(models.Partitions)) func() {
	p.mu.Lock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

func (p *preferenceService) publish(parts models.Partitions) {
	p.mu.Lock()
	observers := make([]func(models.Partitions), 0, len(p.observers))
	for _, fn := range p.observers {
		observers = append(observers, fn)
	}
	p.mu.Unlock()

	for _, fn := range observers {
		fn(parts)
	}
}

func (p *preferenceService) OnSynced(ctx context.Context, collection string) {
	if collection != common.CollectionExams {
		return
	}
	if _, err := p.Derive(ctx); err != nil && !errors.Is(err, ErrNotLoggedIn) {
		p.logger.Error(ctx, "derivation after sync failed", "error", err)
	}
}
