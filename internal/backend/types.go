package backend

import (
	"bytes"
	"encoding/json"
	"time"
)

// ID is an identifier the backend may encode either as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Registration is the body of the register-or-update call.
type Registration struct {
	TelegramID  string `json:"telegramId"`
	ChatID      string `json:"chatId"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	GroupNumber string `json:"groupNumber,omitempty"`
	Subgroup    string `json:"subgroup,omitempty"`
	TeacherID   string `json:"teacherId,omitempty"`
}

// User is the backend record of a registered chat user.
type User struct {
	Role           string `json:"role"`
	Name           string `json:"name"`
	GroupNumber    string `json:"groupNumber"`
	Subgroup       string `json:"subgroup"`
	TeacherID      ID     `json:"teacherId"`
	TelegramChatID ID     `json:"telegramChatId"`
}

// Teacher is one entry of the teacher list.
type Teacher struct {
	ID   ID     `json:"_id"`
	Name string `json:"name"`
}

// Session is one scheduled class.
type Session struct {
	StartAt    time.Time `json:"startAt"`
	EndAt      time.Time `json:"endAt"`
	Type       string    `json:"type"`
	PairNumber int       `json:"pairNumber"`
	Course     *Named    `json:"course"`
	Teacher    *Named    `json:"teacher"`
	Room       *Room     `json:"room"`
	Groups     []string  `json:"groups"`
}

type Named struct {
	Name string `json:"name"`
}

type Room struct {
	Building string `json:"building"`
	Number   ID     `json:"number"`
}

// Schedule is a group or teacher schedule response. ByDate is only filled for
// the week period and is keyed by ISO date.
type Schedule struct {
	Success  bool                 `json:"success"`
	Sessions []Session            `json:"sessions"`
	ByDate   map[string][]Session `json:"schedule"`
}

// Notification is a pending outbound message.
type Notification struct {
	ID       string
	ChatID   string
	Message  string
	Metadata map[string]any
}

// wire shape of a pending notification
type rawNotification struct {
	ID      ID `json:"_id"`
	Payload *struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"payload"`
}

func (r rawNotification) decode() Notification {
	n := Notification{ID: string(r.ID)}
	if r.Payload == nil {
		return n
	}
	n.Message = r.Payload.Message
	if len(r.Payload.Data) == 0 {
		return n
	}
	var data struct {
		ChatID ID `json:"chatId"`
	}
	if json.Unmarshal(r.Payload.Data, &data) == nil {
		n.ChatID = string(data.ChatID)
	}
	var meta map[string]any
	if json.Unmarshal(r.Payload.Data, &meta) == nil {
		n.Metadata = meta
	}
	return n
}

// Delivery statuses accepted by ReportStatus.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// StatusReport is the delivery outcome of one notification.
type StatusReport struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}
