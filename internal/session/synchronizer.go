package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/internal/utils"
	"github.com/rajivgeraev/campus-market/pkg/logger"
	"github.com/rajivgeraev/campus-market/pkg/metrics"
)

var (
	// ErrNotAuthenticated возвращается, когда нет активной сессии
	ErrNotAuthenticated = errors.New("требуется вход")
	// ErrInvalidProfile возвращается при входе без токена
	ErrInvalidProfile = errors.New("профиль без токена")
	// ErrSuperseded означает, что ответ профиля устарел и отброшен
	ErrSuperseded = errors.New("ответ профиля устарел")

	errPurgeProfile = errors.New("не удалось удалить кэш профиля")
)

// ProfileFetcher запрашивает профиль владельца текущего токена
type ProfileFetcher interface {
	Profile(ctx context.Context) (*models.UserProfile, error)
}

// Decision - результат одного шага сверки
type Decision int

const (
	DecisionNone Decision = iota
	// Токена нет, личность и кэш очищены
	DecisionCleared
	// Принят кэшированный профиль, профиль обновляется в фоне
	DecisionAdopted
	// Кэша нет, профиль запрошен в фоне
	DecisionFetched
)

func (d Decision) String() string {
	switch d {
	case DecisionCleared:
		return "cleared"
	case DecisionAdopted:
		return "adopted"
	case DecisionFetched:
		return "fetched"
	default:
		return "none"
	}
}

// Options настраивает Synchronizer
type Options struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	Logger       *logger.Logger
	// OnDecision вызывается после каждой сверки в Run
	OnDecision func(Decision)
}

// Synchronizer держит личность в памяти согласованной с общим хранилищем
type Synchronizer struct {
	store  Store
	api    ProfileFetcher
	tokens *utils.JWTService
	log    *logger.Logger
	opts   Options

	// commitMu упорядочивает записи в хранилище вместе с изменением личности.
	// Порядок блокировок: commitMu, затем mu. Сетевые вызовы идут без блокировок.
	commitMu sync.Mutex

	mu         sync.Mutex
	identity   *models.UserProfile
	observed   string // последний увиденный токен
	generation uint64
	inflight   map[string]bool

	wg sync.WaitGroup
}

// NewSynchronizer создает новый экземпляр Synchronizer
func NewSynchronizer(store Store, api ProfileFetcher, opts Options) *Synchronizer {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	return &Synchronizer{
		store:    store,
		api:      api,
		tokens:   utils.NewJWTService(""),
		log:      opts.Logger.Named("session"),
		opts:     opts,
		inflight: make(map[string]bool),
	}
}

// Token отдает текущий токен из хранилища; подходит как источник для клиента бэкенда
func (s *Synchronizer) Token(ctx context.Context) (string, error) {
	return readToken(ctx, s.store)
}

// Current возвращает копию текущего профиля или nil
func (s *Synchronizer) Current() *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	profile := *s.identity
	return &profile
}

// Authenticated сообщает, есть ли личность в памяти
func (s *Synchronizer) Authenticated() bool {
	return s.Current() != nil
}

// Identity возвращает текущий профиль или ErrNotAuthenticated
func (s *Synchronizer) Identity() (*models.UserProfile, error) {
	profile := s.Current()
	if profile == nil {
		return nil, ErrNotAuthenticated
	}
	return profile, nil
}

// Login сохраняет токен и профиль и устанавливает личность
func (s *Synchronizer) Login(ctx context.Context, profile *models.UserProfile) error {
	if profile == nil || profile.Token == "" {
		return ErrInvalidProfile
	}
	token := profile.Token
	cached := profile.WithoutToken()

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if err := s.store.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("не удалось сохранить токен: %w", err)
	}
	if err := writeProfile(ctx, s.store, cached); err != nil {
		return err
	}

	s.mu.Lock()
	s.generation++
	s.identity = &cached
	s.observed = token
	s.mu.Unlock()

	s.log.Info("вход выполнен", zap.Int64("user_id", cached.UserID))
	return nil
}

// Logout очищает токен, кэш и личность; повторный вызов ничего не меняет
func (s *Synchronizer) Logout(ctx context.Context) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.logoutLocked(ctx)
}

func (s *Synchronizer) logoutLocked(ctx context.Context) error {
	// Сначала хранилище: сверка не должна увидеть токен без личности
	errToken := s.store.Remove(ctx, KeyToken)
	errProfile := s.store.Remove(ctx, KeyProfile)

	s.mu.Lock()
	wasAuthenticated := s.identity != nil
	s.generation++
	s.identity = nil
	s.observed = ""
	s.mu.Unlock()

	if wasAuthenticated {
		s.log.Info("выход выполнен")
	}
	return errors.Join(errToken, errProfile)
}

// ExpireToken выполняет выход, если бэкенд отклонил именно текущий токен.
// Поздний 401 по старому токену новую сессию не трогает.
func (s *Synchronizer) ExpireToken(ctx context.Context, token string) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	current, err := readToken(ctx, s.store)
	if err != nil {
		s.log.Warn("не удалось проверить токен после 401", zap.Error(err))
		return
	}
	if current == "" || current != token {
		return
	}

	if err := s.logoutLocked(ctx); err != nil {
		s.log.Warn("ошибка выхода после 401", zap.Error(err))
	}
}

// FetchProfile обновляет профиль по текущему токену. Без токена ничего не делает.
// Любая ошибка завершает сессию; ответ по замененному токену отбрасывается.
func (s *Synchronizer) FetchProfile(ctx context.Context) error {
	token, err := readToken(ctx, s.store)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	profile, fetchErr := s.api.Profile(ctx)
	if fetchErr == nil && profile == nil {
		fetchErr = errors.New("пустой профиль")
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	current, err := readToken(ctx, s.store)
	if err != nil {
		return err
	}

	s.mu.Lock()
	stale := s.generation != generation || current != token
	s.mu.Unlock()

	if stale {
		metrics.RecordProfileFetch("discarded")
		if fetchErr != nil {
			return fetchErr
		}
		return ErrSuperseded
	}

	if fetchErr != nil {
		metrics.RecordProfileFetch("failed")
		s.log.Info("профиль не получен, завершаем сессию", zap.Error(fetchErr))
		if err := s.logoutLocked(ctx); err != nil {
			return errors.Join(fetchErr, err)
		}
		return fetchErr
	}

	fresh := profile.WithoutToken()
	if err := writeProfile(ctx, s.store, fresh); err != nil {
		return err
	}

	s.mu.Lock()
	s.identity = &fresh
	s.observed = token
	s.mu.Unlock()

	metrics.RecordProfileFetch("ok")
	return nil
}

// Reconcile сверяет личность с хранилищем и принимает не более одного решения.
// Ошибка удаления кэша возвращается вместе с решением: личность к этому
// моменту уже сброшена.
func (s *Synchronizer) Reconcile(ctx context.Context) (Decision, error) {
	decision, token, err := s.reconcile(ctx)
	if decision == DecisionAdopted || decision == DecisionFetched {
		s.fetchInBackground(ctx, token)
	}
	if decision != DecisionNone || err == nil {
		metrics.RecordReconcile(decision.String())
	}
	return decision, err
}

func (s *Synchronizer) reconcile(ctx context.Context) (Decision, string, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	token, err := readToken(ctx, s.store)
	if err != nil {
		return DecisionNone, "", err
	}
	cached, err := readProfile(ctx, s.store)
	corrupt := errors.Is(err, errCorruptProfile)
	if corrupt {
		s.log.Warn("кэш профиля поврежден, удаляем")
		cached, err = nil, nil
	}
	if err != nil {
		return DecisionNone, "", err
	}

	s.mu.Lock()
	identity, observed := s.identity, s.observed
	s.mu.Unlock()

	// Токена нет: профиль без токена существовать не может
	if token == "" {
		decision := DecisionNone
		if identity != nil || observed != "" {
			s.setIdentity(nil, "")
			decision = DecisionCleared
		}
		return decision, "", s.purgeProfile(ctx, cached != nil || corrupt)
	}

	changed := token != observed
	mismatch := cached != nil && (identity == nil || identity.UserID != cached.UserID)

	if !changed && !mismatch && !corrupt {
		if identity == nil && cached == nil {
			return DecisionFetched, token, nil
		}
		return DecisionNone, "", nil
	}

	if cached != nil && s.belongsTo(cached, token) {
		adopted := *cached
		s.setIdentity(&adopted, token)
		return DecisionAdopted, token, nil
	}

	// Кэш чужого пользователя не показываем
	s.setIdentity(nil, token)
	return DecisionFetched, token, s.purgeProfile(ctx, cached != nil || corrupt)
}

// setIdentity заменяет личность и отменяет ответы, запрошенные до замены
func (s *Synchronizer) setIdentity(profile *models.UserProfile, token string) {
	s.mu.Lock()
	s.generation++
	s.identity = profile
	s.observed = token
	s.mu.Unlock()
}

func (s *Synchronizer) purgeProfile(ctx context.Context, needed bool) error {
	if !needed {
		return nil
	}
	if err := s.store.Remove(ctx, KeyProfile); err != nil {
		return errors.Join(errPurgeProfile, err)
	}
	return nil
}

// belongsTo сверяет профиль с userId из токена, если токен его содержит
func (s *Synchronizer) belongsTo(profile *models.UserProfile, token string) bool {
	userID, err := s.tokens.ExtractUserID(token)
	if err != nil {
		return true
	}
	return userID == profile.UserID
}

// fetchInBackground запускает не более одного запроса профиля на токен
func (s *Synchronizer) fetchInBackground(ctx context.Context, token string) {
	s.mu.Lock()
	if s.inflight[token] {
		s.mu.Unlock()
		return
	}
	s.inflight[token] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, token)
			s.mu.Unlock()
		}()

		// Запрос переживает отмену вызвавшего, но не дольше FetchTimeout
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.FetchTimeout)
		defer cancel()

		if err := s.FetchProfile(fctx); err != nil && !errors.Is(err, ErrSuperseded) {
			s.log.Debug("фоновое обновление профиля не удалось", zap.Error(err))
		}
	}()
}

// Wait дожидается завершения фоновых запросов профиля
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

// Run сверяет сессию при старте, на каждое изменение хранилища и по таймеру
func (s *Synchronizer) Run(ctx context.Context) error {
	changes, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.step(ctx, "start")
	for {
		select {
		case <-ctx.Done():
			s.Wait()
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				// Отписаны за медленное чтение: остается сверка по таймеру
				s.log.Warn("подписка на изменения закрыта")
				changes = nil
				continue
			}
			s.step(ctx, "change")
		case <-ticker.C:
			s.step(ctx, "tick")
		}
	}
}

func (s *Synchronizer) step(ctx context.Context, trigger string) {
	decision, err := s.Reconcile(ctx)
	if err != nil {
		s.log.Warn("сверка сессии не удалась", zap.String("trigger", trigger), zap.Error(err))
		if decision == DecisionNone {
			return
		}
	}
	if decision != DecisionNone {
		s.log.Debug("сверка сессии", zap.String("trigger", trigger), zap.Stringer("decision", decision))
	}
	if s.opts.OnDecision != nil {
		s.opts.OnDecision(decision)
	}
}
