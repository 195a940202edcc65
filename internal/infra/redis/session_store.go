package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/repository"
	"webgpt-server/internal/infra/metrics"
)

// SessionStore keeps each owner's sessions in one hash keyed by session id.
// Saves are bounded by the retention policy; records are upserted one by one
// with no implicit clear, so a record present only in storage survives a
// save of a smaller in-memory set.
var _ repository.SessionStore = (*SessionStore)(nil)

// RecordCipher seals session records at rest. Nil means plain JSON.
type RecordCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type SessionStore struct {
	client RedisClient
	policy model.RetentionPolicy
	cipher RecordCipher
	log    *zerolog.Logger
}

func NewSessionStore(client RedisClient, policy model.RetentionPolicy, logger *zerolog.Logger) *SessionStore {
	return &SessionStore{client: client, policy: policy, log: logger}
}

// WithCipher turns on at-rest encryption for every record written from now
// on. Plaintext records written before the switch still load.
func (s *SessionStore) WithCipher(c RecordCipher) *SessionStore {
	s.cipher = c
	return s
}

func sessionsKey(owner string) string { return "sessions:" + owner }

func (s *SessionStore) encodeRecord(sess *model.ChatSession) (string, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	if s.cipher == nil {
		return string(raw), nil
	}
	return s.cipher.Encrypt(string(raw))
}

func (s *SessionStore) decodeRecord(raw string) (*model.ChatSession, error) {
	if s.cipher != nil {
		if plain, err := s.cipher.Decrypt(raw); err == nil {
			raw = plain
		}
		// fall through: pre-encryption records are plain JSON
	}
	var sess model.ChatSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) LoadAll(ctx context.Context, owner string) ([]*model.ChatSession, error) {
	fields, err := s.client.HGetAll(ctx, sessionsKey(owner))
	metrics.ObserveStoreOp("load_all", err)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	out := make([]*model.ChatSession, 0, len(fields))
	for id, raw := range fields {
		sess, err := s.decodeRecord(raw)
		if err != nil {
			// Undecodable records are skipped, not fatal.
			s.log.Warn().Str("owner", owner).Str("session_id", id).Err(err).Msg("skip undecodable session record")
			continue
		}
		out = append(out, sess)
	}
	model.SortSessions(out)
	return out, nil
}

func (s *SessionStore) SaveAll(ctx context.Context, owner string, sessions []*model.ChatSession) error {
	kept := model.LimitSessions(sessions, s.policy.MaxSessions)

	var trimmed, dropped int
	for _, sess := range kept {
		before := len(sess.Messages)
		sess.TrimMessages(s.policy.MaxMessagesPerSession)
		trimmed += before - len(sess.Messages)

		images := countImages(sess)
		sess.CapImageBytes(s.policy.MaxImageBytes)
		dropped += images - countImages(sess)
	}
	metrics.ObserveRetention(len(sessions)-len(kept), trimmed, dropped)

	if len(kept) == 0 {
		return nil
	}

	// Per-record upsert: one failed record must not block the others.
	var firstErr error
	for _, sess := range kept {
		raw, err := s.encodeRecord(sess)
		if err == nil {
			err = s.client.HSet(ctx, sessionsKey(owner), sess.ID, raw)
		}
		if err != nil {
			s.log.Error().Str("owner", owner).Str("session_id", sess.ID).Err(err).Msg("save session record failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("save session %s: %w", sess.ID, err)
			}
		}
	}
	metrics.ObserveStoreOp("save_all", firstErr)
	return firstErr
}

func (s *SessionStore) GetOne(ctx context.Context, owner, sessionID string) (*model.ChatSession, error) {
	raw, err := s.client.HGet(ctx, sessionsKey(owner), sessionID)
	metrics.ObserveStoreOp("get_one", err)
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess, err := s.decodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) UpdateOne(ctx context.Context, owner string, session *model.ChatSession) error {
	// Point updates apply only the per-session trim, never cross-session
	// eviction.
	session.TrimMessages(s.policy.MaxMessagesPerSession)
	raw, err := s.encodeRecord(session)
	if err == nil {
		err = s.client.HSet(ctx, sessionsKey(owner), session.ID, raw)
	}
	metrics.ObserveStoreOp("update_one", err)
	if err != nil {
		return fmt.Errorf("update session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SessionStore) DeleteOne(ctx context.Context, owner, sessionID string) error {
	err := s.client.HDel(ctx, sessionsKey(owner), sessionID)
	metrics.ObserveStoreOp("delete_one", err)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SessionStore) ClearAll(ctx context.Context, owner string) error {
	err := s.client.Del(ctx, sessionsKey(owner))
	metrics.ObserveStoreOp("clear_all", err)
	if err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}

func (s *SessionStore) Stats(ctx context.Context, owner string) (repository.StoreStats, error) {
	sessions, err := s.LoadAll(ctx, owner)
	if err != nil {
		return repository.StoreStats{}, err
	}
	stats := repository.StoreStats{SessionCount: len(sessions)}
	for _, sess := range sessions {
		stats.MessageCount += len(sess.Messages)
		if raw, err := json.Marshal(sess); err == nil {
			stats.EstimatedSize += int64(len(raw))
		}
	}
	return stats, nil
}

func countImages(s *model.ChatSession) int {
	n := 0
	for _, m := range s.Messages {
		for _, p := range m.Content.Parts() {
			if p.Type == model.PartTypeImage {
				n++
			}
		}
	}
	return n
}
