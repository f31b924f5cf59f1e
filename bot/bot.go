// Package bot interprets inbound chat messages as commands and replies
// through the chat provider. Commands are a fixed grammar of a verb plus
// an optional argument, dispatched through a verb table; each command
// declares whether it needs an argument, whether it is gated behind the
// special-items policy, and whether it is admin only.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gagstock-notifier/messenger"
	"gagstock-notifier/pkg/tracker"
	"gagstock-notifier/registry"
)

// Registry is the subscriber state the bot mutates.
type Registry interface {
	Get(userID string) *tracker.Subscriber
	Track(ctx context.Context, userID, name string) bool
	StopTracking(ctx context.Context, userID string) bool
	SetAlerting(ctx context.Context, userID string, on bool) bool
	AddTerm(ctx context.Context, userID, name, term string) error
	RemoveTerm(ctx context.Context, userID, term string) error
	CreateAccessRequest(ctx context.Context, userID, firstName string) string
	ApproveAccess(ctx context.Context, code string) (*tracker.Subscriber, error)
}

// ClearDigest removes a subscriber's digest dedup entry.
type ClearDigest interface {
	Delete(ctx context.Context, key string) error
}

// Bot handles inbound chat commands.
type Bot struct {
	registry Registry
	provider messenger.Provider
	digests  ClearDigest
	policy   Policy
	logger   *slog.Logger
	adminID  string
	commands map[string]command
}

type command struct {
	handler   func(ctx context.Context, s *session, arg string)
	usage     string
	needsArg  bool
	gated     bool
	adminOnly bool
}

// session carries per-message state through a command handler.
type session struct {
	userID  string
	profile *messenger.Profile
	sub     *tracker.Subscriber
}

func (s *session) firstName() string {
	if s.profile != nil && s.profile.FirstName != "" {
		return s.profile.FirstName
	}
	return "User"
}

func (s *session) fullName() string {
	if s.profile == nil {
		return "User"
	}
	name := strings.TrimSpace(s.profile.FirstName + " " + s.profile.LastName)
	if name == "" {
		return "User"
	}
	return name
}

// New creates a bot. adminID is the distinguished sender allowed to
// approve access requests.
func New(reg Registry, provider messenger.Provider, digests ClearDigest, policy Policy, adminID string, logger *slog.Logger) *Bot {
	b := &Bot{
		registry: reg,
		provider: provider,
		digests:  digests,
		policy:   policy,
		logger:   logger,
		adminID:  adminID,
	}
	b.commands = map[string]command{
		"help":    {handler: b.handleHelp},
		"start":   {handler: b.handleHelp},
		"track":   {handler: b.handleTrack},
		"stop":    {handler: b.handleStop},
		"vip":     {handler: b.handleVIP},
		"add":     {handler: b.handleAdd, needsArg: true, gated: true, usage: "add [item name]"},
		"remove":  {handler: b.handleRemove, needsArg: true, gated: true, usage: "remove [item name]"},
		"list":    {handler: b.handleList, gated: true},
		"approve": {handler: b.handleApprove, needsArg: true, adminOnly: true, usage: "approve [access code]"},
	}
	return b
}

// HandleMessage processes one inbound text message from userID.
func (b *Bot) HandleMessage(ctx context.Context, userID, text string) {
	verb, arg := parseCommand(text)
	b.logger.Info("handling command", "user", userID, "verb", verb)

	s := &session{userID: userID, sub: b.registry.Get(userID)}
	profile, err := b.provider.Profile(ctx, userID)
	if err != nil {
		b.logger.Warn("profile fetch failed, using fallback", "user", userID, "error", err)
	} else {
		s.profile = profile
	}

	cmd, ok := b.commands[verb]
	if !ok || (cmd.adminOnly && userID != b.adminID) {
		b.reply(ctx, userID, unknownCommandReply(b.policy.AllowSpecialItems(s.sub)))
		return
	}
	if cmd.gated && !b.policy.AllowSpecialItems(s.sub) {
		b.reply(ctx, userID, vipRequiredReply)
		return
	}
	if cmd.needsArg && arg == "" {
		b.reply(ctx, userID, invalidFormatReply(cmd.usage))
		return
	}

	cmd.handler(ctx, s, arg)
}

// parseCommand splits a message into a lowercase verb and its trimmed
// argument remainder.
func parseCommand(text string) (verb, arg string) {
	trimmed := strings.TrimSpace(text)
	verb, arg, _ = strings.Cut(trimmed, " ")
	return strings.ToLower(verb), strings.TrimSpace(arg)
}

// reply sends a message and logs delivery failures. Command replies are
// never retried.
func (b *Bot) reply(ctx context.Context, userID, text string) {
	if err := b.provider.SendMessage(ctx, userID, text); err != nil {
		b.logger.Error("reply delivery failed", "user", userID, "error", err)
	}
}

func (b *Bot) handleHelp(ctx context.Context, s *session, _ string) {
	b.reply(ctx, s.userID, helpReply(s.firstName(), b.policy.AllowSpecialItems(s.sub)))
}

func (b *Bot) handleTrack(ctx context.Context, s *session, _ string) {
	if s.sub != nil && s.sub.Active {
		b.reply(ctx, s.userID, alreadyTrackingReply)
		return
	}
	b.registry.Track(ctx, s.userID, s.fullName())
	if b.policy.AllowSpecialItems(b.registry.Get(s.userID)) {
		b.registry.SetAlerting(ctx, s.userID, true)
	}
	b.reply(ctx, s.userID, trackingStartedReply)
}

func (b *Bot) handleStop(ctx context.Context, s *session, _ string) {
	if !b.registry.StopTracking(ctx, s.userID) {
		b.reply(ctx, s.userID, notTrackingReply)
		return
	}
	if err := b.digests.Delete(ctx, s.userID); err != nil {
		b.logger.Error("digest cache clear failed", "user", s.userID, "error", err)
	}
	b.reply(ctx, s.userID, trackingStoppedReply)
}

func (b *Bot) handleVIP(ctx context.Context, s *session, _ string) {
	if b.policy.AllowSpecialItems(s.sub) || !b.policy.RequiresApproval() {
		var terms []string
		if s.sub != nil {
			terms = s.sub.WatchTerms
		}
		b.reply(ctx, s.userID, alreadyVIPReply(terms))
		return
	}

	code := b.registry.CreateAccessRequest(ctx, s.userID, s.firstName())
	if b.adminID != "" {
		b.reply(ctx, b.adminID, accessRequestAdminReply(s.fullName(), s.userID, code))
	}
	b.reply(ctx, s.userID, accessRequestedReply(code))
}

func (b *Bot) handleAdd(ctx context.Context, s *session, arg string) {
	err := b.registry.AddTerm(ctx, s.userID, s.fullName(), arg)
	if errors.Is(err, registry.ErrTermExists) {
		b.reply(ctx, s.userID, termExistsReply(arg))
		return
	}
	if err != nil {
		b.reply(ctx, s.userID, invalidFormatReply("add [item name]"))
		return
	}
	sub := b.registry.Get(s.userID)
	b.reply(ctx, s.userID, termAddedReply(arg, len(sub.WatchTerms)))
}

func (b *Bot) handleRemove(ctx context.Context, s *session, arg string) {
	if err := b.registry.RemoveTerm(ctx, s.userID, arg); err != nil {
		b.reply(ctx, s.userID, termNotFoundReply(arg))
		return
	}
	remaining := 0
	if sub := b.registry.Get(s.userID); sub != nil {
		remaining = len(sub.WatchTerms)
	}
	b.reply(ctx, s.userID, termRemovedReply(arg, remaining))
}

func (b *Bot) handleList(ctx context.Context, s *session, _ string) {
	var terms []string
	if s.sub != nil {
		terms = s.sub.WatchTerms
	}
	b.reply(ctx, s.userID, termListReply(terms))
}

func (b *Bot) handleApprove(ctx context.Context, s *session, arg string) {
	granted, err := b.registry.ApproveAccess(ctx, arg)
	if err != nil {
		b.reply(ctx, s.userID, invalidAccessCodeReply(arg))
		return
	}
	b.reply(ctx, b.adminID, accessApprovedAdminReply(granted.Name, granted.ID, arg))
	b.reply(ctx, granted.ID, accessApprovedUserReply(granted.Name))
}
