package inbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fixed identity for staff replies. Every outbound reply is attributed to the
// clinic and goes out over WhatsApp under the "resposta" category.
const (
	replySender     = "clinica"
	replySenderName = "Atendente"
	replyCategory   = "resposta"
)

// SuggestionUnavailable is shown when the completion call fails or returns
// nothing. The attendant can still type a reply by hand.
const SuggestionUnavailable = "Não foi possível gerar uma sugestão no momento."

// fallbackCategory is used when the classifier call itself fails.
const fallbackCategory = "informações"

// clinicKnowledgeBase is appended to the suggestion prompt so the model
// answers with the clinic's actual hours and policies.
const clinicKnowledgeBase = "Informações da clínica: " +
	"atendimento de segunda a sexta das 8h às 18h e sábado das 8h às 12h; " +
	"consultas por ordem de chegada ou agendamento; " +
	"aceitamos os principais convênios e atendimento particular; " +
	"resultados de exames são entregues na recepção ou pelo WhatsApp; " +
	"remarcações devem ser solicitadas com 24h de antecedência."

const suggestSystemPrompt = "Você é o assistente da Central Clínica MedIntelli. " +
	"Responda de forma educada, sucinta, sem diagnosticar. " +
	"Sugira algo que um atendente humano poderia enviar pelo WhatsApp. " +
	clinicKnowledgeBase

// Completer produces a chat completion for a system/user prompt pair.
// Enabled reports whether the upstream API is configured at all.
type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// Dispatcher delivers an outbound message to a phone number.
type Dispatcher interface {
	Enabled() bool
	Send(ctx context.Context, phone, message string) error
}

var validChannels = map[string]bool{
	ChannelWhatsApp: true, ChannelApp: true, ChannelInternal: true,
}

type Service struct {
	messages    MessageRepository
	categories  CategoryRepository
	completer   Completer
	dispatcher  Dispatcher
	logger      zerolog.Logger
	recentLimit int
}

func NewService(messages MessageRepository, categories CategoryRepository, completer Completer, dispatcher Dispatcher, logger zerolog.Logger, recentLimit int) *Service {
	return &Service{
		messages:    messages,
		categories:  categories,
		completer:   completer,
		dispatcher:  dispatcher,
		logger:      logger,
		recentLimit: recentLimit,
	}
}

// ListRecent returns the newest messages, most recent first, after applying
// the filter.
func (s *Service) ListRecent(ctx context.Context, f Filter) ([]*Message, error) {
	msgs, err := s.messages.ListRecent(ctx, s.recentLimit)
	if err != nil {
		return nil, err
	}
	return FilterMessages(msgs, f), nil
}

// FilterMessages keeps messages that pass every active filter dimension.
// Channel and category match case-insensitively; the search text matches the
// body case-insensitively or the phone verbatim.
func FilterMessages(msgs []*Message, f Filter) []*Message {
	channelOff := f.Channel == "" || strings.EqualFold(f.Channel, FilterAll)
	categoryOff := f.Category == "" || strings.EqualFold(f.Category, FilterAll)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var result []*Message
	for _, m := range msgs {
		if !channelOff && !strings.EqualFold(m.Channel, f.Channel) {
			continue
		}
		if !categoryOff {
			if m.Category == nil || !strings.EqualFold(*m.Category, f.Category) {
				continue
			}
		}
		if search != "" {
			inBody := strings.Contains(strings.ToLower(m.Body), search)
			inPhone := m.Phone != nil && strings.Contains(*m.Phone, strings.TrimSpace(f.Search))
			if !inBody && !inPhone {
				continue
			}
		}
		result = append(result, m)
	}
	return result
}

// Conversations groups the filtered recent messages by contact key, keeping
// the newest message per contact as the list-row preview.
func (s *Service) Conversations(ctx context.Context, f Filter) ([]*Conversation, error) {
	msgs, err := s.ListRecent(ctx, f)
	if err != nil {
		return nil, err
	}
	return GroupConversations(msgs), nil
}

// GroupConversations expects messages ordered newest first and keeps the
// first message seen for each contact key.
func GroupConversations(msgs []*Message) []*Conversation {
	seen := make(map[string]bool)
	var result []*Conversation
	for _, m := range msgs {
		key := m.ContactKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, &Conversation{ContactKey: key, Message: m})
	}
	return result
}

// Thread returns a contact's full history oldest first, independent of any
// active filter.
func (s *Service) Thread(ctx context.Context, phone string) ([]*Message, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, fmt.Errorf("phone is required")
	}
	return s.messages.ListByPhone(ctx, phone)
}

// SendReply persists an outbound staff reply, then attempts delivery. The
// persisted record is never rolled back on a dispatch failure; the outcome is
// recorded on the message's delivery status instead.
func (s *Service) SendReply(ctx context.Context, phone, text string) (*Message, error) {
	phone = strings.TrimSpace(phone)
	text = strings.TrimSpace(text)
	if phone == "" {
		return nil, fmt.Errorf("phone is required")
	}
	if text == "" {
		return nil, fmt.Errorf("message is required")
	}

	senderName := replySenderName
	category := replyCategory
	m := &Message{
		Sender:     replySender,
		SenderName: &senderName,
		Phone:      &phone,
		Body:       text,
		Direction:  DirectionOut,
		Channel:    ChannelWhatsApp,
		Category:   &category,
	}
	if err := s.messages.Insert(ctx, m); err != nil {
		return nil, err
	}

	status := DeliverySkipped
	if s.dispatcher.Enabled() {
		if err := s.dispatcher.Send(ctx, phone, text); err != nil {
			s.logger.Warn().Err(err).Str("phone", phone).Msg("reply dispatch failed")
			status = DeliveryFailed
		} else {
			status = DeliverySent
		}
	}

	if err := s.messages.UpdateDeliveryStatus(ctx, m.ID, status); err != nil {
		s.logger.Warn().Err(err).Str("message_id", m.ID.String()).Msg("failed to record delivery status")
	}
	m.DeliveryStatus = &status

	return m, nil
}

// Suggest drafts a reply for the most recent inbound message in a contact's
// thread. An empty suggestion means the thread has no inbound message to
// answer. Completion failures degrade to a fixed placeholder.
func (s *Service) Suggest(ctx context.Context, phone string) (string, error) {
	thread, err := s.Thread(ctx, phone)
	if err != nil {
		return "", err
	}

	var lastInbound *Message
	for i := len(thread) - 1; i >= 0; i-- {
		if thread[i].Direction == DirectionIn {
			lastInbound = thread[i]
			break
		}
	}
	if lastInbound == nil {
		return "", nil
	}

	suggestion, err := s.completer.Complete(ctx, suggestSystemPrompt, lastInbound.Body)
	if err != nil || suggestion == "" {
		if err != nil {
			s.logger.Warn().Err(err).Str("phone", phone).Msg("suggestion request failed")
		}
		return SuggestionUnavailable, nil
	}
	return suggestion, nil
}

// Classify asks the completion API to pick a category for a message and
// persists whatever label comes back. The label is resolved against the
// category table case-insensitively: a match stores the canonical name, a
// non-match stores the raw text and is flagged unknown so the caller can see
// the classifier drifted off the vocabulary.
func (s *Service) Classify(ctx context.Context, id uuid.UUID) (*ClassifyResult, error) {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("message not found")
	}

	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}

	system := fmt.Sprintf(
		"Classifique a mensagem em UMA das categorias: %s. Responda APENAS o nome exato da categoria.",
		strings.Join(names, ", "))

	label, err := s.completer.Complete(ctx, system, m.Body)
	if err != nil || label == "" {
		if err != nil {
			s.logger.Warn().Err(err).Str("message_id", id.String()).Msg("classification request failed")
		}
		label = fallbackCategory
	}

	result := &ClassifyResult{MessageID: id, Category: label}
	for _, name := range names {
		if strings.EqualFold(name, label) {
			result.Category = name
			result.Known = true
			break
		}
	}

	if err := s.messages.UpdateCategory(ctx, id, result.Category); err != nil {
		return nil, err
	}
	return result, nil
}

// SetCategory manually assigns a category label to a message.
func (s *Service) SetCategory(ctx context.Context, id uuid.UUID, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return fmt.Errorf("category is required")
	}
	return s.messages.UpdateCategory(ctx, id, category)
}

// InboundRequest is the ingestion webhook payload for received messages.
type InboundRequest struct {
	Sender     string  `json:"sender"`
	SenderName *string `json:"sender_name,omitempty"`
	Phone      string  `json:"phone"`
	Body       string  `json:"message"`
	Channel    string  `json:"channel"`
}

// IngestInbound records a message received from an external channel.
func (s *Service) IngestInbound(ctx context.Context, req *InboundRequest) (*Message, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.Body = strings.TrimSpace(req.Body)
	if req.Phone == "" {
		return nil, fmt.Errorf("phone is required")
	}
	if req.Body == "" {
		return nil, fmt.Errorf("message is required")
	}
	if req.Channel == "" {
		req.Channel = ChannelWhatsApp
	}
	if !validChannels[req.Channel] {
		return nil, fmt.Errorf("invalid channel: %s", req.Channel)
	}
	if req.Sender == "" {
		req.Sender = req.Phone
	}

	m := &Message{
		Sender:     req.Sender,
		SenderName: req.SenderName,
		Phone:      &req.Phone,
		Body:       req.Body,
		Direction:  DirectionIn,
		Channel:    req.Channel,
	}
	if err := s.messages.Insert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Categories returns the category vocabulary.
func (s *Service) Categories(ctx context.Context) ([]*Category, error) {
	return s.categories.List(ctx)
}
