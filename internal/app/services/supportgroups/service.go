// Package supportgroups manages peer support topics, groups, memberships,
// and group chat. Members appear under generated anonymous names.
package supportgroups

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/support"
	"github.com/serenitylabs/wellness_layer/internal/app/services/insights"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

const defaultMaxMembers = 50

// GroupLimitGate enforces the plan's cap on concurrent group memberships.
type GroupLimitGate interface {
	CheckGroupLimit(ctx context.Context, userID string, currentGroups int) error
}

// Service manages support groups.
type Service struct {
	store    storage.SupportStore
	users    storage.UserStore
	provider insights.Provider
	limit    GroupLimitGate
	log      *logger.Logger
}

// New constructs a support groups service. Provider and limit are optional.
func New(store storage.SupportStore, users storage.UserStore, provider insights.Provider, limit GroupLimitGate, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("supportgroups")
	}
	return &Service{store: store, users: users, provider: provider, limit: limit, log: log}
}

// EnsureTopics seeds the default topic list, skipping any that exist.
func (s *Service) EnsureTopics(ctx context.Context) error {
	defaults := []support.Topic{
		{Name: "Anxiety", Description: "Managing worry and anxious thoughts", Icon: "cloud"},
		{Name: "Depression", Description: "Support through low moods", Icon: "umbrella"},
		{Name: "Grief", Description: "Coping with loss", Icon: "heart"},
		{Name: "Stress", Description: "Work and life pressure", Icon: "zap"},
		{Name: "Relationships", Description: "Family, friends, and partners", Icon: "users"},
		{Name: "Self-esteem", Description: "Building confidence and self-worth", Icon: "star"},
	}

	existing, err := s.store.ListTopics(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(existing))
	for _, t := range existing {
		present[t.Name] = true
	}

	for _, t := range defaults {
		if present[t.Name] {
			continue
		}
		if _, err := s.store.CreateTopic(ctx, t); err != nil {
			return fmt.Errorf("seed topic %s: %w", t.Name, err)
		}
	}
	return nil
}

// Topics lists all support topics.
func (s *Service) Topics(ctx context.Context) ([]support.Topic, error) {
	return s.store.ListTopics(ctx)
}

// CreateGroupInput carries the fields accepted when opening a group.
type CreateGroupInput struct {
	Name        string
	Description string
	TopicID     string
	Private     bool
	MaxMembers  int
}

// CreateGroup opens a new group with the creator as its founder. Private
// groups get an invite code; the creator's membership counts against their
// plan's group limit.
func (s *Service) CreateGroup(ctx context.Context, userID string, in CreateGroupInput) (support.Group, error) {
	if strings.TrimSpace(in.Name) == "" {
		return support.Group{}, fmt.Errorf("name is required")
	}
	if in.TopicID == "" {
		return support.Group{}, fmt.Errorf("topic_id is required")
	}
	if in.MaxMembers <= 0 {
		in.MaxMembers = defaultMaxMembers
	}

	if err := s.checkGroupLimit(ctx, userID); err != nil {
		return support.Group{}, err
	}

	group := support.Group{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		TopicID:     in.TopicID,
		Private:     in.Private,
		MaxMembers:  in.MaxMembers,
	}
	if in.Private {
		code, err := inviteCode()
		if err != nil {
			return support.Group{}, err
		}
		group.InviteCode = code
	}

	group, err := s.store.CreateGroup(ctx, group)
	if err != nil {
		return support.Group{}, err
	}

	if _, err := s.addMember(ctx, userID, group, support.RoleFounder, true); err != nil {
		return support.Group{}, err
	}

	s.log.WithField("group_id", group.ID).WithField("user_id", userID).Infof("support group created")
	return group, nil
}

// Groups lists all public groups plus private groups the user belongs to.
func (s *Service) Groups(ctx context.Context, userID string) ([]support.Group, error) {
	all, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	memberships, err := s.store.ListUserMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	member := make(map[string]bool, len(memberships))
	for _, m := range memberships {
		member[m.GroupID] = true
	}

	visible := make([]support.Group, 0, len(all))
	for _, g := range all {
		if g.Private && !member[g.ID] {
			continue
		}
		visible = append(visible, g)
	}
	return visible, nil
}

// Join adds the user to a public group.
func (s *Service) Join(ctx context.Context, userID, groupID string) (support.Membership, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return support.Membership{}, err
	}
	if group.Private {
		return support.Membership{}, fmt.Errorf("group %s requires an invite", groupID)
	}
	return s.join(ctx, userID, group)
}

// JoinByInvite adds the user to the private group behind the invite code.
func (s *Service) JoinByInvite(ctx context.Context, userID, code string) (support.Membership, error) {
	group, err := s.store.GetGroupByInviteCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return support.Membership{}, fmt.Errorf("invalid invite code")
	}
	return s.join(ctx, userID, group)
}

func (s *Service) join(ctx context.Context, userID string, group support.Group) (support.Membership, error) {
	if err := s.checkGroupLimit(ctx, userID); err != nil {
		return support.Membership{}, err
	}

	members, err := s.store.ListGroupMemberships(ctx, group.ID)
	if err != nil {
		return support.Membership{}, err
	}
	if group.MaxMembers > 0 && len(members) >= group.MaxMembers {
		return support.Membership{}, fmt.Errorf("group %s is full", group.ID)
	}

	return s.addMember(ctx, userID, group, support.RoleMember, false)
}

func (s *Service) addMember(ctx context.Context, userID string, group support.Group, role string, admin bool) (support.Membership, error) {
	name, err := anonymousName()
	if err != nil {
		return support.Membership{}, err
	}
	m, err := s.store.CreateMembership(ctx, support.Membership{
		UserID:        userID,
		GroupID:       group.ID,
		AnonymousName: name,
		Role:          role,
		Admin:         admin,
	})
	if err != nil {
		return support.Membership{}, err
	}
	s.log.WithField("group_id", group.ID).WithField("user_id", userID).Infof("member joined group")
	return m, nil
}

// Members lists a group's memberships. Only members may look.
func (s *Service) Members(ctx context.Context, userID, groupID string) ([]support.Membership, error) {
	if _, err := s.membership(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return s.store.ListGroupMemberships(ctx, groupID)
}

// PostMessage adds a chat message under the member's anonymous name. Tone
// analysis is best-effort and never blocks the post.
func (s *Service) PostMessage(ctx context.Context, userID, groupID, content string, anonymous bool) (support.Message, error) {
	if strings.TrimSpace(content) == "" {
		return support.Message{}, fmt.Errorf("content is required")
	}
	m, err := s.membership(ctx, userID, groupID)
	if err != nil {
		return support.Message{}, err
	}

	msg := support.Message{
		GroupID:      groupID,
		MembershipID: m.ID,
		Content:      content,
		Anonymous:    anonymous,
	}
	if s.provider != nil {
		if sentiment, err := s.provider.AnalyzeMessageTone(ctx, content); err == nil {
			msg.Sentiment = sentiment
		} else {
			s.log.WithError(err).Warnf("message tone analysis failed")
		}
	}

	return s.store.CreateMessage(ctx, msg)
}

// MessageView is a chat message with its author's display name resolved.
type MessageView struct {
	support.Message
	AuthorName string
}

// Messages returns a group's chat history for a member, oldest first.
// Authors of anonymous messages appear under their membership's anonymous
// name; everyone else under their username.
func (s *Service) Messages(ctx context.Context, userID, groupID string) ([]MessageView, error) {
	if _, err := s.membership(ctx, userID, groupID); err != nil {
		return nil, err
	}

	members, err := s.store.ListGroupMemberships(ctx, groupID)
	if err != nil {
		return nil, err
	}
	byMembership := make(map[string]support.Membership, len(members))
	for _, m := range members {
		byMembership[m.ID] = m
	}

	messages, err := s.store.ListMessages(ctx, groupID)
	if err != nil {
		return nil, err
	}
	usernames := make(map[string]string)
	views := make([]MessageView, 0, len(messages))
	for _, msg := range messages {
		member := byMembership[msg.MembershipID]
		name := member.AnonymousName
		if !msg.Anonymous {
			if resolved := s.username(ctx, usernames, member.UserID); resolved != "" {
				name = resolved
			}
		}
		views = append(views, MessageView{Message: msg, AuthorName: name})
	}
	return views, nil
}

// username resolves and memoizes a member's username. Falls back to empty
// when the account is gone, leaving the anonymous name in place.
func (s *Service) username(ctx context.Context, cache map[string]string, userID string) string {
	if name, ok := cache[userID]; ok {
		return name
	}
	name := ""
	if s.users != nil {
		if u, err := s.users.GetUser(ctx, userID); err == nil {
			name = u.Username
		}
	}
	cache[userID] = name
	return name
}

func (s *Service) membership(ctx context.Context, userID, groupID string) (support.Membership, error) {
	members, err := s.store.ListGroupMemberships(ctx, groupID)
	if err != nil {
		return support.Membership{}, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return m, nil
		}
	}
	return support.Membership{}, fmt.Errorf("not a member of group %s", groupID)
}

func (s *Service) checkGroupLimit(ctx context.Context, userID string) error {
	if s.limit == nil {
		return nil
	}
	memberships, err := s.store.ListUserMemberships(ctx, userID)
	if err != nil {
		return err
	}
	return s.limit.CheckGroupLimit(ctx, userID, len(memberships))
}

const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func inviteCode() (string, error) {
	code := make([]byte, 8)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		code[i] = inviteAlphabet[n.Int64()]
	}
	return string(code), nil
}

var (
	anonAdjectives = []string{"Gentle", "Quiet", "Brave", "Steady", "Warm", "Bright", "Calm", "Kind"}
	anonAnimals    = []string{"Otter", "Heron", "Fox", "Deer", "Owl", "Seal", "Wren", "Hare"}
)

func anonymousName() (string, error) {
	adj, err := rand.Int(rand.Reader, big.NewInt(int64(len(anonAdjectives))))
	if err != nil {
		return "", err
	}
	animal, err := rand.Int(rand.Reader, big.NewInt(int64(len(anonAnimals))))
	if err != nil {
		return "", err
	}
	num, err := rand.Int(rand.Reader, big.NewInt(100))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%02d", anonAdjectives[adj.Int64()], anonAnimals[animal.Int64()], num.Int64()), nil
}
