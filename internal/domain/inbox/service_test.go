package inbox

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockMessageRepo struct {
	messages map[uuid.UUID]*Message
	now      time.Time
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{
		messages: make(map[uuid.UUID]*Message),
		now:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (r *mockMessageRepo) Insert(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	m.CreatedAt = r.now
	r.now = r.now.Add(time.Minute)
	r.messages[m.ID] = m
	return nil
}

func (r *mockMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	m, ok := r.messages[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return m, nil
}

func (r *mockMessageRepo) ListRecent(ctx context.Context, limit int) ([]*Message, error) {
	var result []*Message
	for _, m := range r.messages {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *mockMessageRepo) ListByPhone(ctx context.Context, phone string) ([]*Message, error) {
	var result []*Message
	for _, m := range r.messages {
		if m.Phone != nil && *m.Phone == phone {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *mockMessageRepo) UpdateCategory(ctx context.Context, id uuid.UUID, category string) error {
	m, ok := r.messages[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	m.Category = &category
	return nil
}

func (r *mockMessageRepo) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status string) error {
	m, ok := r.messages[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	m.DeliveryStatus = &status
	return nil
}

type mockCategoryRepo struct {
	categories map[uuid.UUID]*Category
}

func newMockCategoryRepo(names ...string) *mockCategoryRepo {
	r := &mockCategoryRepo{categories: make(map[uuid.UUID]*Category)}
	for _, name := range names {
		c := &Category{ID: uuid.New(), Name: name}
		r.categories[c.ID] = c
	}
	return r
}

func (r *mockCategoryRepo) Create(ctx context.Context, c *Category) error {
	c.ID = uuid.New()
	r.categories[c.ID] = c
	return nil
}

func (r *mockCategoryRepo) List(ctx context.Context) ([]*Category, error) {
	var result []*Category
	for _, c := range r.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

type fakeCompleter struct {
	enabled bool
	reply   string
	err     error
	system  string
	user    string
	calls   int
}

func (f *fakeCompleter) Enabled() bool { return f.enabled }

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	return f.reply, f.err
}

type fakeDispatcher struct {
	enabled bool
	err     error
	phone   string
	message string
	calls   int
}

func (f *fakeDispatcher) Enabled() bool { return f.enabled }

func (f *fakeDispatcher) Send(ctx context.Context, phone, message string) error {
	f.calls++
	f.phone = phone
	f.message = message
	return f.err
}

type testEnv struct {
	svc        *Service
	messages   *mockMessageRepo
	categories *mockCategoryRepo
	completer  *fakeCompleter
	dispatcher *fakeDispatcher
}

func newTestService() *testEnv {
	env := &testEnv{
		messages:   newMockMessageRepo(),
		categories: newMockCategoryRepo("agendamento", "financeiro", "resposta", "informações"),
		completer:  &fakeCompleter{enabled: true},
		dispatcher: &fakeDispatcher{enabled: true},
	}
	env.svc = NewService(env.messages, env.categories, env.completer, env.dispatcher, zerolog.Nop(), 500)
	return env
}

func (e *testEnv) seed(sender, phone, body, direction, channel string, category *string) *Message {
	m := &Message{
		Sender:    sender,
		Body:      body,
		Direction: direction,
		Channel:   channel,
		Category:  category,
	}
	if phone != "" {
		m.Phone = &phone
	}
	_ = e.messages.Insert(nil, m)
	return m
}

func strPtr(s string) *string { return &s }

func TestFilterMessages_NoFilter(t *testing.T) {
	env := newTestService()
	env.seed("5511999990001", "5511999990001", "Quero marcar consulta", DirectionIn, ChannelWhatsApp, nil)
	env.seed("app-user", "", "Olá pelo app", DirectionIn, ChannelApp, nil)

	msgs, err := env.svc.ListRecent(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("expected 2 messages, got %d", len(msgs))
	}
}

func TestFilterMessages_SentinelMeansOff(t *testing.T) {
	env := newTestService()
	env.seed("a", "111", "oi", DirectionIn, ChannelWhatsApp, strPtr("agendamento"))
	env.seed("b", "222", "olá", DirectionIn, ChannelApp, nil)

	msgs, err := env.svc.ListRecent(context.Background(), Filter{Channel: "todos", Category: "todos"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("expected sentinel filters to pass everything, got %d messages", len(msgs))
	}
}

func TestFilterMessages_Conjunction(t *testing.T) {
	env := newTestService()
	env.seed("a", "111", "quero agendar exame", DirectionIn, ChannelWhatsApp, strPtr("agendamento"))
	env.seed("b", "222", "quero agendar retorno", DirectionIn, ChannelApp, strPtr("agendamento"))
	env.seed("c", "333", "boleto em aberto", DirectionIn, ChannelWhatsApp, strPtr("financeiro"))

	msgs, err := env.svc.ListRecent(context.Background(), Filter{
		Channel:  ChannelWhatsApp,
		Category: "agendamento",
		Search:   "agendar",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected exactly 1 message passing all filters, got %d", len(msgs))
	}
	if msgs[0].Sender != "a" {
		t.Errorf("expected message from sender a, got %s", msgs[0].Sender)
	}
}

func TestFilterMessages_SearchCaseInsensitive(t *testing.T) {
	env := newTestService()
	env.seed("a", "111", "Preciso REMARCAR minha consulta", DirectionIn, ChannelWhatsApp, nil)

	msgs, err := env.svc.ListRecent(context.Background(), Filter{Search: "remarcar"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("expected case-insensitive body match, got %d messages", len(msgs))
	}
}

func TestFilterMessages_SearchMatchesPhone(t *testing.T) {
	env := newTestService()
	env.seed("a", "5511999990001", "bom dia", DirectionIn, ChannelWhatsApp, nil)
	env.seed("b", "5521888880002", "boa tarde", DirectionIn, ChannelWhatsApp, nil)

	msgs, err := env.svc.ListRecent(context.Background(), Filter{Search: "5511"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message matched by phone, got %d", len(msgs))
	}
	if *msgs[0].Phone != "5511999990001" {
		t.Errorf("wrong message matched: %s", *msgs[0].Phone)
	}
}

func TestFilterMessages_CategoryOnUncategorized(t *testing.T) {
	env := newTestService()
	env.seed("a", "111", "sem categoria", DirectionIn, ChannelWhatsApp, nil)

	msgs, err := env.svc.ListRecent(context.Background(), Filter{Category: "agendamento"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("uncategorized message should not match a category filter, got %d", len(msgs))
	}
}

func TestConversations_KeepsNewestPerContact(t *testing.T) {
	env := newTestService()
	env.seed("5511999990001", "5511999990001", "primeira", DirectionIn, ChannelWhatsApp, nil)
	env.seed("5511999990001", "5511999990001", "segunda", DirectionIn, ChannelWhatsApp, nil)
	env.seed("app-user", "", "pelo app", DirectionIn, ChannelApp, nil)

	convs, err := env.svc.Conversations(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	byKey := make(map[string]*Conversation)
	for _, c := range convs {
		byKey[c.ContactKey] = c
	}
	phoneConv, ok := byKey["5511999990001"]
	if !ok {
		t.Fatal("expected a conversation keyed by phone")
	}
	if phoneConv.Message.Body != "segunda" {
		t.Errorf("expected newest message as preview, got %q", phoneConv.Message.Body)
	}
	if _, ok := byKey["app-user"]; !ok {
		t.Error("expected phoneless message grouped by sender")
	}
}

func TestThread_OldestFirst(t *testing.T) {
	env := newTestService()
	env.seed("5511999990001", "5511999990001", "primeira", DirectionIn, ChannelWhatsApp, nil)
	env.seed("clinica", "5511999990001", "resposta", DirectionOut, ChannelWhatsApp, nil)
	env.seed("5511999990001", "5511999990001", "terceira", DirectionIn, ChannelWhatsApp, nil)
	env.seed("outro", "5521888880002", "de outra pessoa", DirectionIn, ChannelWhatsApp, nil)

	thread, err := env.svc.Thread(context.Background(), "5511999990001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(thread) != 3 {
		t.Fatalf("expected 3 messages in thread, got %d", len(thread))
	}
	if thread[0].Body != "primeira" || thread[2].Body != "terceira" {
		t.Errorf("thread not in chronological order: %q .. %q", thread[0].Body, thread[2].Body)
	}
}

func TestThread_PhoneRequired(t *testing.T) {
	env := newTestService()
	if _, err := env.svc.Thread(context.Background(), "  "); err == nil {
		t.Error("expected error for blank phone")
	}
}

func TestSendReply_PersistsAndDispatches(t *testing.T) {
	env := newTestService()
	m, err := env.svc.SendReply(context.Background(), "5511999990001", "Sua consulta está confirmada.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Sender != "clinica" {
		t.Errorf("expected sender clinica, got %s", m.Sender)
	}
	if m.SenderName == nil || *m.SenderName != "Atendente" {
		t.Error("expected sender_name Atendente")
	}
	if m.Direction != DirectionOut {
		t.Errorf("expected direction out, got %s", m.Direction)
	}
	if m.Channel != ChannelWhatsApp {
		t.Errorf("expected channel whatsapp, got %s", m.Channel)
	}
	if m.Category == nil || *m.Category != "resposta" {
		t.Error("expected category resposta")
	}
	if m.DeliveryStatus == nil || *m.DeliveryStatus != DeliverySent {
		t.Error("expected delivery status sent")
	}
	if env.dispatcher.calls != 1 {
		t.Errorf("expected 1 dispatch, got %d", env.dispatcher.calls)
	}
	if env.dispatcher.phone != "5511999990001" {
		t.Errorf("dispatched to wrong phone: %s", env.dispatcher.phone)
	}
	stored, err := env.messages.GetByID(nil, m.ID)
	if err != nil {
		t.Fatalf("reply not persisted: %v", err)
	}
	if stored.DeliveryStatus == nil || *stored.DeliveryStatus != DeliverySent {
		t.Error("expected persisted delivery status sent")
	}
}

func TestSendReply_GatewayDisabled(t *testing.T) {
	env := newTestService()
	env.dispatcher.enabled = false

	m, err := env.svc.SendReply(context.Background(), "5511999990001", "olá")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.DeliveryStatus == nil || *m.DeliveryStatus != DeliverySkipped {
		t.Error("expected delivery status skipped when gateway is disabled")
	}
	if env.dispatcher.calls != 0 {
		t.Errorf("expected no dispatch, got %d", env.dispatcher.calls)
	}
}

func TestSendReply_GatewayFailureKeepsMessage(t *testing.T) {
	env := newTestService()
	env.dispatcher.err = fmt.Errorf("gateway unreachable")

	m, err := env.svc.SendReply(context.Background(), "5511999990001", "olá")
	if err != nil {
		t.Fatalf("dispatch failure must not fail the operation: %v", err)
	}
	if m.DeliveryStatus == nil || *m.DeliveryStatus != DeliveryFailed {
		t.Error("expected delivery status failed")
	}
	if _, err := env.messages.GetByID(nil, m.ID); err != nil {
		t.Error("reply must stay persisted after a dispatch failure")
	}
}

func TestSendReply_Validation(t *testing.T) {
	env := newTestService()
	if _, err := env.svc.SendReply(context.Background(), "", "olá"); err == nil {
		t.Error("expected error for missing phone")
	}
	if _, err := env.svc.SendReply(context.Background(), "5511999990001", "   "); err == nil {
		t.Error("expected error for blank message")
	}
	if len(env.messages.messages) != 0 {
		t.Errorf("invalid replies must not be persisted, found %d", len(env.messages.messages))
	}
}

func TestSuggest_UsesNewestInbound(t *testing.T) {
	env := newTestService()
	env.completer.reply = "Claro! Temos horário amanhã às 14h."
	env.seed("5511999990001", "5511999990001", "Quero marcar consulta", DirectionIn, ChannelWhatsApp, nil)
	env.seed("clinica", "5511999990001", "Um momento, por favor.", DirectionOut, ChannelWhatsApp, nil)
	env.seed("5511999990001", "5511999990001", "Tem horário amanhã?", DirectionIn, ChannelWhatsApp, nil)
	env.seed("clinica", "5511999990001", "Vou verificar.", DirectionOut, ChannelWhatsApp, nil)

	suggestion, err := env.svc.Suggest(context.Background(), "5511999990001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if suggestion != "Claro! Temos horário amanhã às 14h." {
		t.Errorf("unexpected suggestion: %q", suggestion)
	}
	if env.completer.user != "Tem horário amanhã?" {
		t.Errorf("expected prompt built from newest inbound message, got %q", env.completer.user)
	}
	if !strings.Contains(env.completer.system, "MedIntelli") {
		t.Errorf("system prompt missing clinic persona: %q", env.completer.system)
	}
	if !strings.Contains(env.completer.system, "Informações da clínica") {
		t.Errorf("system prompt missing knowledge base: %q", env.completer.system)
	}
}

func TestSuggest_NoInboundMessages(t *testing.T) {
	env := newTestService()
	env.seed("clinica", "5511999990001", "Aviso da clínica", DirectionOut, ChannelWhatsApp, nil)

	suggestion, err := env.svc.Suggest(context.Background(), "5511999990001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if suggestion != "" {
		t.Errorf("expected empty suggestion without inbound messages, got %q", suggestion)
	}
	if env.completer.calls != 0 {
		t.Errorf("expected no completion call, got %d", env.completer.calls)
	}
}

func TestSuggest_CompletionFailure(t *testing.T) {
	env := newTestService()
	env.completer.err = fmt.Errorf("upstream down")
	env.seed("5511999990001", "5511999990001", "Tem horário amanhã?", DirectionIn, ChannelWhatsApp, nil)

	suggestion, err := env.svc.Suggest(context.Background(), "5511999990001")
	if err != nil {
		t.Fatalf("completion failure must not fail the operation: %v", err)
	}
	if suggestion != SuggestionUnavailable {
		t.Errorf("expected placeholder suggestion, got %q", suggestion)
	}
}

func TestClassify_KnownCategory(t *testing.T) {
	env := newTestService()
	env.completer.reply = "Agendamento"
	m := env.seed("5511999990001", "5511999990001", "Quero marcar consulta", DirectionIn, ChannelWhatsApp, nil)

	result, err := env.svc.Classify(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Category != "agendamento" {
		t.Errorf("expected canonical category name, got %q", result.Category)
	}
	if !result.Known {
		t.Error("expected known=true for a vocabulary match")
	}
	if m.Category == nil || *m.Category != "agendamento" {
		t.Error("expected category persisted on the message")
	}
	if !strings.Contains(env.completer.system, "agendamento") || !strings.Contains(env.completer.system, "financeiro") {
		t.Errorf("classifier prompt must list the vocabulary: %q", env.completer.system)
	}
}

func TestClassify_UnknownLabelPersistedVerbatim(t *testing.T) {
	env := newTestService()
	env.completer.reply = "urgência"
	m := env.seed("5511999990001", "5511999990001", "Estou passando mal", DirectionIn, ChannelWhatsApp, nil)

	result, err := env.svc.Classify(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Category != "urgência" {
		t.Errorf("expected raw label kept verbatim, got %q", result.Category)
	}
	if result.Known {
		t.Error("expected known=false for an off-vocabulary label")
	}
	if m.Category == nil || *m.Category != "urgência" {
		t.Error("expected raw label persisted on the message")
	}
}

func TestClassify_FallbackOnFailure(t *testing.T) {
	env := newTestService()
	env.completer.err = fmt.Errorf("upstream down")
	m := env.seed("5511999990001", "5511999990001", "Bom dia", DirectionIn, ChannelWhatsApp, nil)

	result, err := env.svc.Classify(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("classifier failure must fall back, not error: %v", err)
	}
	if result.Category != "informações" {
		t.Errorf("expected fallback category, got %q", result.Category)
	}
	if !result.Known {
		t.Error("fallback category is part of the vocabulary")
	}
}

func TestClassify_MessageNotFound(t *testing.T) {
	env := newTestService()
	if _, err := env.svc.Classify(context.Background(), uuid.New()); err == nil {
		t.Error("expected error for unknown message")
	}
}

func TestSetCategory(t *testing.T) {
	env := newTestService()
	m := env.seed("5511999990001", "5511999990001", "Bom dia", DirectionIn, ChannelWhatsApp, nil)

	if err := env.svc.SetCategory(context.Background(), m.ID, "financeiro"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Category == nil || *m.Category != "financeiro" {
		t.Error("expected category updated")
	}
	if err := env.svc.SetCategory(context.Background(), m.ID, "  "); err == nil {
		t.Error("expected error for blank category")
	}
}

func TestIngestInbound(t *testing.T) {
	env := newTestService()
	m, err := env.svc.IngestInbound(context.Background(), &InboundRequest{
		Phone: "5511999990001",
		Body:  "Quero marcar consulta",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Direction != DirectionIn {
		t.Errorf("expected direction in, got %s", m.Direction)
	}
	if m.Channel != ChannelWhatsApp {
		t.Errorf("expected channel defaulted to whatsapp, got %s", m.Channel)
	}
	if m.Sender != "5511999990001" {
		t.Errorf("expected sender defaulted to phone, got %s", m.Sender)
	}
	if m.ID == uuid.Nil {
		t.Error("expected ID assigned")
	}
}

func TestIngestInbound_Validation(t *testing.T) {
	env := newTestService()
	if _, err := env.svc.IngestInbound(context.Background(), &InboundRequest{Body: "oi"}); err == nil {
		t.Error("expected error for missing phone")
	}
	if _, err := env.svc.IngestInbound(context.Background(), &InboundRequest{Phone: "111"}); err == nil {
		t.Error("expected error for missing message")
	}
	if _, err := env.svc.IngestInbound(context.Background(), &InboundRequest{
		Phone: "111", Body: "oi", Channel: "carrier-pigeon",
	}); err == nil {
		t.Error("expected error for invalid channel")
	}
}

func TestListRecent_RespectsWindow(t *testing.T) {
	env := newTestService()
	env.svc.recentLimit = 3
	for i := 0; i < 5; i++ {
		env.seed("a", "111", fmt.Sprintf("mensagem %d", i), DirectionIn, ChannelWhatsApp, nil)
	}
	msgs, err := env.svc.ListRecent(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected window of 3, got %d", len(msgs))
	}
	if msgs[0].Body != "mensagem 4" {
		t.Errorf("expected newest first, got %q", msgs[0].Body)
	}
}
