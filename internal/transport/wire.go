package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cubewin07/movie-explorer-sub000/internal/core"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// flexID accepts ids sent as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// wireMessage is a message as the chat API returns it. created_at may be a
// zone-less string, which is UTC.
type wireMessage struct {
	ID        flexID          `json:"id"`
	ChatID    flexID          `json:"chat_id"`
	SenderID  flexID          `json:"sender_id"`
	Content   string          `json:"content"`
	CreatedAt json.RawMessage `json:"created_at"`
	ClientID  string          `json:"client_id,omitempty"`
}

func (w wireMessage) toMessage(conversationID string) (types.Message, error) {
	raw := strings.Trim(string(bytes.TrimSpace(w.CreatedAt)), `"`)
	createdAt, err := core.ParseTimestamp(raw)
	if err != nil {
		return types.Message{}, fmt.Errorf("message %s: %w", w.ID, err)
	}
	chatID := string(w.ChatID)
	if chatID == "" {
		chatID = conversationID
	}
	return types.Message{
		ID:             string(w.ID),
		ConversationID: chatID,
		SenderID:       string(w.SenderID),
		Text:           w.Content,
		CreatedAt:      createdAt,
		Status:         types.StatusConfirmed,
		ClientID:       w.ClientID,
	}, nil
}

type pageResponse struct {
	Messages   []wireMessage `json:"messages"`
	HasMore    bool          `json:"has_more"`
	NextCursor flexID        `json:"next_cursor"`
}

func (p pageResponse) toPage(conversationID string) (types.Page, error) {
	page := types.Page{
		Messages:   make([]types.Message, 0, len(p.Messages)),
		HasMore:    p.HasMore,
		NextCursor: string(p.NextCursor),
	}
	for _, w := range p.Messages {
		msg, err := w.toMessage(conversationID)
		if err != nil {
			return types.Page{}, err
		}
		page.Messages = append(page.Messages, msg)
	}
	return page, nil
}

type sendRequest struct {
	Content  string `json:"content"`
	ClientID string `json:"client_id,omitempty"`
}

type wireParticipant struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

type wireConversation struct {
	ID           flexID            `json:"id"`
	Participants []wireParticipant `json:"participants"`
	LastActivity json.RawMessage   `json:"last_activity"`
}

type conversationsResponse struct {
	Chats []wireConversation `json:"chats"`
}

func (r conversationsResponse) toConversations() ([]types.Conversation, error) {
	out := make([]types.Conversation, 0, len(r.Chats))
	for _, chat := range r.Chats {
		conv := types.Conversation{ID: string(chat.ID)}
		for _, p := range chat.Participants {
			conv.Participants = append(conv.Participants, types.Participant{ID: string(p.ID), Name: p.Name})
		}
		if raw := strings.Trim(string(bytes.TrimSpace(chat.LastActivity)), `"`); raw != "" && raw != "null" {
			ts, err := core.ParseTimestamp(raw)
			if err != nil {
				return nil, fmt.Errorf("chat %s: %w", chat.ID, err)
			}
			conv.LastActivity = ts
		}
		out = append(out, conv)
	}
	return out, nil
}
