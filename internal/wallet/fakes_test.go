package wallet

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/arbor-bot/internal/arbor"
	"github.com/Proton-105/arbor-bot/internal/domain"
	"github.com/Proton-105/arbor-bot/internal/i18n"
	"github.com/Proton-105/arbor-bot/internal/repository"
	"github.com/Proton-105/arbor-bot/internal/state"
)

const testUser = "1001"

type answer struct {
	text string
	err  error
}

type fakeConversation struct {
	answers  []answer
	prompts  []string
	sent     []string
	secrets  []string
	pages    []string
	choices  []Choice
	deferred bool
}

func (c *fakeConversation) Locale() string { return "en-US" }

func (c *fakeConversation) Defer(context.Context) error {
	c.deferred = true
	return nil
}

func (c *fakeConversation) Send(_ context.Context, content string) error {
	c.sent = append(c.sent, content)
	return nil
}

func (c *fakeConversation) next() (string, error) {
	if len(c.answers) == 0 {
		return "", ErrTimeout
	}
	a := c.answers[0]
	c.answers = c.answers[1:]
	return a.text, a.err
}

func (c *fakeConversation) Ask(_ context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.next()
}

func (c *fakeConversation) ShowSecret(_ context.Context, content string) error {
	c.secrets = append(c.secrets, content)
	return nil
}

func (c *fakeConversation) Choose(_ context.Context, prompt string, choices []Choice) (string, error) {
	c.prompts = append(c.prompts, prompt)
	c.choices = choices
	return c.next()
}

func (c *fakeConversation) Paginate(_ context.Context, pages []string) error {
	c.pages = pages
	return nil
}

func (c *fakeConversation) last() string {
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1]
}

func replies(texts ...string) []answer {
	out := make([]answer, 0, len(texts))
	for _, t := range texts {
		out = append(out, answer{text: t})
	}
	return out
}

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Keygen(ctx context.Context) (*arbor.KeygenResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*arbor.KeygenResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) CreateWallet(ctx context.Context, publicKey string) (*arbor.WalletResponse, error) {
	args := m.Called(ctx, publicKey)
	resp, _ := args.Get(0).(*arbor.WalletResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) Recover(ctx context.Context, phrase string) (*arbor.RecoverResponse, error) {
	args := m.Called(ctx, phrase)
	resp, _ := args.Get(0).(*arbor.RecoverResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) Balance(ctx context.Context, address string) (*arbor.BalanceResponse, error) {
	args := m.Called(ctx, address)
	resp, _ := args.Get(0).(*arbor.BalanceResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) Transactions(ctx context.Context, address string) (*arbor.TransactionsResponse, error) {
	args := m.Called(ctx, address)
	resp, _ := args.Get(0).(*arbor.TransactionsResponse)
	return resp, args.Error(1)
}

func (m *mockAPI) Send(ctx context.Context, privateKey string, amount decimal.Decimal, destination string) (*arbor.SendResponse, error) {
	args := m.Called(ctx, privateKey, amount, destination)
	resp, _ := args.Get(0).(*arbor.SendResponse)
	return resp, args.Error(1)
}

// store backs the in-memory repositories.
type store struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	wallets map[int64]*domain.Wallet
	nextID  int64
	reads   int
	writes  int
}

func newStore() *store {
	return &store{
		users:   make(map[string]*domain.User),
		wallets: make(map[int64]*domain.Wallet),
	}
}

func (s *store) ensureLocked(id string) *domain.User {
	if u, ok := s.users[id]; ok {
		return u
	}
	u := &domain.User{ID: id}
	s.users[id] = u
	return u
}

func (s *store) add(w domain.Wallet, selected bool) *domain.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	w.ID = s.nextID
	s.wallets[w.ID] = &w
	u := s.ensureLocked(w.UserID)
	if selected {
		u.WalletID = sql.NullInt64{Int64: w.ID, Valid: true}
	}
	copied := w
	return &copied
}

func (s *store) selected(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok && u.WalletID.Valid {
		return u.WalletID.Int64
	}
	return 0
}

func (s *store) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wallets)
}

type userStore struct{ *store }

func (s userStore) EnsureUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(id)
	return nil
}

func (s userStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s userStore) SelectWallet(_ context.Context, userID string, walletID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok || w.UserID != userID {
		return repository.ErrWalletNotFound
	}
	s.ensureLocked(userID).WalletID = sql.NullInt64{Int64: walletID, Valid: true}
	s.writes++
	return nil
}

type walletStore struct{ *store }

func (s walletStore) ExistsByName(ctx context.Context, userID, name string) (bool, error) {
	_, err := s.FindByName(ctx, userID, name)
	if errors.Is(err, repository.ErrWalletNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s walletStore) FindByName(_ context.Context, userID, name string) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	for _, w := range s.wallets {
		if w.UserID == userID && w.Name == name {
			copied := *w
			return &copied, nil
		}
	}
	return nil, repository.ErrWalletNotFound
}

func (s walletStore) FindByID(_ context.Context, id int64) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	w, ok := s.wallets[id]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	copied := *w
	return &copied, nil
}

func (s walletStore) FindSelected(ctx context.Context, userID string) (*domain.Wallet, error) {
	id := s.selected(userID)
	if id == 0 {
		return nil, repository.ErrWalletNotFound
	}
	return s.FindByID(ctx, id)
}

func (s walletStore) ListByUser(_ context.Context, userID string) ([]domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	var out []domain.Wallet
	for id := int64(1); id <= s.nextID; id++ {
		if w, ok := s.wallets[id]; ok && w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s walletStore) CreateAndSelect(_ context.Context, wallet *domain.Wallet) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.UserID == wallet.UserID && w.Name == wallet.Name {
			return 0, repository.ErrWalletExists
		}
	}
	s.nextID++
	wallet.ID = s.nextID
	copied := *wallet
	s.wallets[wallet.ID] = &copied
	s.ensureLocked(wallet.UserID).WalletID = sql.NullInt64{Int64: wallet.ID, Valid: true}
	s.writes++
	return wallet.ID, nil
}

func (s walletStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[id]; !ok {
		return repository.ErrWalletNotFound
	}
	delete(s.wallets, id)
	for _, u := range s.users {
		if u.WalletID.Valid && u.WalletID.Int64 == id {
			u.WalletID = sql.NullInt64{}
		}
	}
	s.writes++
	return nil
}

type harness struct {
	svc   *Service
	api   *mockAPI
	store *store
	fsm   state.StateMachine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	translations, err := i18n.Load("en")
	require.NoError(t, err)

	st := newStore()
	api := &mockAPI{}
	fsm := state.NewStateMachine(state.NewMemoryStorage(), nil, testLogger())
	require.NoError(t, fsm.Begin(context.Background(), testUser, "test"))

	t.Cleanup(func() { api.AssertExpectations(t) })

	return &harness{
		svc:   NewService(api, userStore{st}, walletStore{st}, fsm, translations, testLogger()),
		api:   api,
		store: st,
		fsm:   fsm,
	}
}

func (h *harness) finalState(t *testing.T) state.State {
	t.Helper()

	st, err := h.fsm.GetState(context.Background(), testUser)
	require.NoError(t, err)
	return st.CurrentState
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
