package support

import "time"

// Membership roles within a group.
const (
	RoleMember  = "member"
	RoleFounder = "founder"
)

// Topic groups related support groups under a shared subject.
type Topic struct {
	ID          string
	Name        string
	Description string
	Icon        string
	CreatedAt   time.Time
}

// Group is a peer support chat room. Private groups are joined by invite
// code only.
type Group struct {
	ID          string
	Name        string
	Description string
	TopicID     string
	Private     bool
	MaxMembers  int
	InviteCode  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Membership ties a user to a group under an anonymous display name.
type Membership struct {
	ID            string
	UserID        string
	GroupID       string
	AnonymousName string
	Role          string
	Admin         bool
	JoinedAt      time.Time
	LastActive    *time.Time
}

// MessageSentiment is the provider-assigned tone of a message, when scored.
type MessageSentiment struct {
	Score int    `json:"score"`
	Tone  string `json:"tone"`
}

// Message is a chat message posted to a group through a membership.
type Message struct {
	ID           string
	GroupID      string
	MembershipID string
	Content      string
	Anonymous    bool
	Sentiment    *MessageSentiment
	CreatedAt    time.Time
	EditedAt     *time.Time
}
