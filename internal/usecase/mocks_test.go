package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/adapter"
	"webgpt-server/internal/domain/ports/repository"
)

// ---- session store fake ----

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]map[string]*model.ChatSession // owner -> id -> session
	updates  int
	failNext error
}

var _ repository.SessionStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]map[string]*model.ChatSession{}}
}

func (f *fakeStore) clone(s *model.ChatSession) *model.ChatSession {
	cp := *s
	cp.Messages = append([]model.Message(nil), s.Messages...)
	return &cp
}

func (f *fakeStore) LoadAll(ctx context.Context, owner string) ([]*model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ChatSession
	for _, s := range f.sessions[owner] {
		out = append(out, f.clone(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeStore) SaveAll(ctx context.Context, owner string, sessions []*model.ChatSession) error {
	for _, s := range sessions {
		if err := f.UpdateOne(ctx, owner, s); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) GetOne(ctx context.Context, owner, sessionID string) (*model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[owner][sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return f.clone(s), nil
}

func (f *fakeStore) UpdateOne(ctx context.Context, owner string, session *model.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	if f.sessions[owner] == nil {
		f.sessions[owner] = map[string]*model.ChatSession{}
	}
	f.sessions[owner][session.ID] = f.clone(session)
	f.updates++
	return nil
}

func (f *fakeStore) DeleteOne(ctx context.Context, owner, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[owner][sessionID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.sessions[owner], sessionID)
	return nil
}

func (f *fakeStore) ClearAll(ctx context.Context, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, owner)
	return nil
}

func (f *fakeStore) Stats(ctx context.Context, owner string) (repository.StoreStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := repository.StoreStats{SessionCount: len(f.sessions[owner])}
	for _, s := range f.sessions[owner] {
		st.MessageCount += len(s.Messages)
	}
	return st, nil
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

// ---- AI adapter fake ----

type fakeAI struct {
	mu      sync.Mutex
	deltas  []string
	err     error
	delay   time.Duration
	gotMsgs []model.Message
	started chan struct{} // closed when a stream begins, if set
	release chan struct{} // stream blocks until closed, if set

	startOnce sync.Once
}

var _ adapter.AIStreamAdapter = (*fakeAI)(nil)

func (f *fakeAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{"fake-model"}, nil
}

func (f *fakeAI) CountTokens(ctx context.Context, modelName string, messages []model.Message) (int, error) {
	return len(messages), nil
}

func (f *fakeAI) ChatStream(ctx context.Context, modelName string, messages []model.Message, fn adapter.StreamHandler) error {
	f.mu.Lock()
	f.gotMsgs = append([]model.Message(nil), messages...)
	f.mu.Unlock()
	if f.started != nil {
		f.startOnce.Do(func() { close(f.started) })
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, d := range f.deltas {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		fn(d)
	}
	return f.err
}

func (f *fakeAI) upstreamMessages() []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotMsgs
}

// ---- auth-layer fakes ----

type fakeUserRepo struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	saves int
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]*model.User{}}
}

func (f *fakeUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, other := range f.byID {
		if other.Username == u.Username && id != u.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	f.saves++
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*model.User
	for _, u := range f.byID {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeUserRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID), nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	byCode map[string]*model.InviteToken
}

var _ repository.InviteTokenRepository = (*fakeTokenRepo)(nil)

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byCode: map[string]*model.InviteToken{}}
}

func (f *fakeTokenRepo) Save(ctx context.Context, tx repository.Tx, t *model.InviteToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byCode[t.Code]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *t
	f.byCode[t.Code] = &cp
	return nil
}

func (f *fakeTokenRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.InviteToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.byCode[code]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTokenRepo) MarkUsed(ctx context.Context, tx repository.Tx, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byCode[code]
	if !ok {
		return domain.ErrNotFound
	}
	if t.IsUsed {
		return domain.ErrTokenUsed
	}
	t.IsUsed = true
	return nil
}

func (f *fakeTokenRepo) List(ctx context.Context, tx repository.Tx) ([]*model.InviteToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.InviteToken
	for _, t := range f.byCode {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeTM struct{}

func (fakeTM) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

type fakeThrottle struct {
	allow bool
	err   error
}

func (f *fakeThrottle) AllowLogin(ctx context.Context, username string) (bool, error) {
	return f.allow, f.err
}
