package model

// Role — класс участника переписки на момент отправки.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
)

// Message — одна запись канала. После добавления не меняется.
// ID и Timestamp выставляет сервер при записи, клиентские значения игнорируются.
type Message struct {
	ID          string `json:"id"`
	Timestamp   int64  `json:"timestamp"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
	Body        string `json:"body"`
}

// ChannelKind — тип канала для индекса переписок.
type ChannelKind string

const (
	KindPreBooking  ChannelKind = "pre"
	KindAppointment ChannelKind = "bk"
	KindOther       ChannelKind = "other"
)

// ConversationEntry — строка индекса переписок салона: последняя активность в одном канале.
type ConversationEntry struct {
	Channel         string      `json:"channel"`
	Kind            ChannelKind `json:"kind"`
	LastTimestamp   int64       `json:"last_timestamp"`
	LastBody        string      `json:"last_body"`
	LastRole        Role        `json:"last_role"`
	LastDisplayName string      `json:"last_display_name"`
}
