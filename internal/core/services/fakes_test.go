package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"dialog/internal/core/domain"

	"github.com/google/uuid"
)

// In-memory collaborators. They mimic the store's observable behavior
// (not-found sentinels, copy-out semantics, ordering) so the services can be
// exercised without Postgres or Redis.

type memUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	r := &memUserRepo{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.users[id]
	return ok, nil
}

func (r *memUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type memPartRepo struct {
	rows map[uuid.UUID]*domain.Participant
}

func newMemPartRepo() *memPartRepo {
	return &memPartRepo{rows: make(map[uuid.UUID]*domain.Participant)}
}

func (r *memPartRepo) GetParticipant(_ context.Context, convID, userID uuid.UUID) (*domain.Participant, error) {
	for _, p := range r.rows {
		if p.ConversationID == convID && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memPartRepo) ListByConversation(_ context.Context, convID uuid.UUID) ([]domain.Participant, error) {
	var out []domain.Participant
	for _, p := range r.rows {
		if p.ConversationID == convID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

func (r *memPartRepo) CreateParticipant(_ context.Context, p *domain.Participant) error {
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memPartRepo) MarkLeft(_ context.Context, participantID uuid.UUID, at time.Time) error {
	p, ok := r.rows[participantID]
	if !ok || !p.Membership.IsActive() {
		return domain.ErrParticipantNotFound
	}
	p.Membership = p.Membership.Leave(at)
	return nil
}

func (r *memPartRepo) Reactivate(_ context.Context, participantID uuid.UUID, at time.Time) error {
	p, ok := r.rows[participantID]
	if !ok || p.Membership.IsActive() {
		return domain.ErrParticipantNotFound
	}
	p.Membership = domain.ActiveSince(at)
	return nil
}

func (r *memPartRepo) SetLastRead(_ context.Context, participantID uuid.UUID, at time.Time) error {
	p, ok := r.rows[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.LastReadAt = &at
	return nil
}

// stored returns the canonical row, bypassing copy-out. Test assertions only.
func (r *memPartRepo) stored(convID, userID uuid.UUID) *domain.Participant {
	for _, p := range r.rows {
		if p.ConversationID == convID && p.UserID == userID {
			return p
		}
	}
	return nil
}

type memConvRepo struct {
	convs map[uuid.UUID]*domain.Conversation
	parts *memPartRepo
}

func newMemConvRepo(parts *memPartRepo) *memConvRepo {
	return &memConvRepo{convs: make(map[uuid.UUID]*domain.Conversation), parts: parts}
}

func (r *memConvRepo) GetConversationByID(_ context.Context, convID uuid.UUID) (*domain.Conversation, error) {
	c, ok := r.convs[convID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memConvRepo) CreateConversation(_ context.Context, conv *domain.Conversation) error {
	cp := *conv
	r.convs[conv.ID] = &cp
	return nil
}

func (r *memConvRepo) Touch(_ context.Context, convID uuid.UUID, at time.Time) error {
	c, ok := r.convs[convID]
	if !ok {
		return domain.ErrConversationNotFound
	}
	if at.After(c.UpdatedAt) {
		c.UpdatedAt = at
	}
	return nil
}

func (r *memConvRepo) FindDirectBetween(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error) {
	for id, c := range r.convs {
		members := make(map[uuid.UUID]bool)
		for _, p := range r.parts.rows {
			if p.ConversationID == id {
				members[p.UserID] = true
			}
		}
		if len(members) == 2 && members[userA] && members[userB] {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memConvRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	var out []domain.Conversation
	for id, c := range r.convs {
		for _, p := range r.parts.rows {
			if p.ConversationID == id && p.UserID == userID {
				out = append(out, *c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type memMsgRepo struct {
	msgs []domain.Message
}

func (r *memMsgRepo) GetMessageByID(_ context.Context, msgID uuid.UUID) (*domain.Message, error) {
	for i := range r.msgs {
		if r.msgs[i].ID == msgID {
			cp := r.msgs[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func (r *memMsgRepo) CreateMessage(_ context.Context, msg *domain.Message) error {
	r.msgs = append(r.msgs, *msg)
	return nil
}

func (r *memMsgRepo) DeleteMessage(_ context.Context, msgID uuid.UUID) error {
	for i := range r.msgs {
		if r.msgs[i].ID == msgID {
			r.msgs = append(r.msgs[:i], r.msgs[i+1:]...)
			return nil
		}
	}
	return domain.ErrMessageNotFound
}

func (r *memMsgRepo) ListVisible(_ context.Context, convID uuid.UUID, since time.Time) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range r.msgs {
		if m.ConversationID == convID && m.SentAt.After(since) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

func (r *memMsgRepo) LatestPerConversation(_ context.Context, convIDs []uuid.UUID) (map[uuid.UUID]domain.Message, error) {
	out := make(map[uuid.UUID]domain.Message)
	for _, id := range convIDs {
		for _, m := range r.msgs {
			if m.ConversationID != id {
				continue
			}
			if latest, ok := out[id]; !ok || m.SentAt.After(latest.SentAt) {
				out[id] = m
			}
		}
	}
	return out, nil
}

type memOutbox struct {
	entries   []domain.OutboxEntry
	published map[uuid.UUID]bool
	failed    map[uuid.UUID]int
}

func newMemOutbox() *memOutbox {
	return &memOutbox{published: make(map[uuid.UUID]bool), failed: make(map[uuid.UUID]int)}
}

func (o *memOutbox) Append(_ context.Context, e *domain.OutboxEntry) error {
	o.entries = append(o.entries, *e)
	return nil
}

func (o *memOutbox) ClaimPending(_ context.Context, limit int) ([]domain.OutboxEntry, error) {
	var out []domain.OutboxEntry
	for _, e := range o.entries {
		if o.published[e.ID] {
			continue
		}
		e.Attempts = o.failed[e.ID]
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (o *memOutbox) MarkPublished(_ context.Context, id uuid.UUID) error {
	o.published[id] = true
	return nil
}

func (o *memOutbox) MarkFailed(_ context.Context, id uuid.UUID) error {
	o.failed[id]++
	return nil
}

// wireEnvelope re-reads an appended envelope with the payload kept raw so
// each test can decode it into the expected payload type.
type wireEnvelope struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

func (o *memOutbox) onChannel(channel string) []wireEnvelope {
	var out []wireEnvelope
	for _, e := range o.entries {
		if e.Channel != channel {
			continue
		}
		var env wireEnvelope
		if err := json.Unmarshal(e.Envelope, &env); err != nil {
			continue
		}
		out = append(out, env)
	}
	return out
}

// passTx runs the function directly; the fakes have no transactions to join.
type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// recordBus captures publishes for assertions and hands Subscribe handlers
// back to the test so it can push envelopes through them.
type recordBus struct {
	mu         sync.Mutex
	published  []busRecord
	publishErr error
	handlers   map[string]func(data []byte)
}

type busRecord struct {
	channel string
	env     domain.Envelope
	raw     []byte
}

func newRecordBus() *recordBus {
	return &recordBus{handlers: make(map[string]func(data []byte))}
}

func (b *recordBus) Publish(_ context.Context, channel string, env domain.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, busRecord{channel: channel, env: env})
	return nil
}

func (b *recordBus) PublishToUser(ctx context.Context, userID uuid.UUID, env domain.Envelope) error {
	return b.Publish(ctx, domain.UserChannel(userID), env)
}

func (b *recordBus) PublishRaw(_ context.Context, channel string, raw []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, busRecord{channel: channel, raw: raw})
	return nil
}

func (b *recordBus) Subscribe(_ context.Context, channel string, handler func(data []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = handler
	return nil
}

func (b *recordBus) records() []busRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]busRecord(nil), b.published...)
}

// fixture wires the full service graph over the in-memory collaborators.
type fixture struct {
	users      *memUserRepo
	parts      *memPartRepo
	convs      *memConvRepo
	msgs       *memMsgRepo
	outbox     *memOutbox
	bus        *recordBus
	userSvc    *UserService
	broadcast  *BroadcastService
	membership *MembershipService
	directory  *DirectoryService
	messages   *MessageService
	typing     *TypingService
}

func newFixture(users ...*domain.User) *fixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		users:  newMemUserRepo(users...),
		parts:  newMemPartRepo(),
		msgs:   &memMsgRepo{},
		outbox: newMemOutbox(),
		bus:    newRecordBus(),
	}
	f.convs = newMemConvRepo(f.parts)
	f.userSvc = NewUserService(log, f.users)
	f.broadcast = NewBroadcastService(log, f.outbox)
	f.membership = NewMembershipService(log, f.parts, f.convs, f.broadcast, passTx{})
	f.directory = NewDirectoryService(log, f.convs, f.parts, f.msgs, f.userSvc, f.membership, passTx{})
	f.messages = NewMessageService(log, f.msgs, f.convs, f.parts, f.userSvc, f.membership, f.broadcast, passTx{})
	f.typing = NewTypingService(log, f.bus)
	return f
}

func testUser(name string) *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     name + "@example.com",
		CreatedAt: time.Now(),
	}
}
