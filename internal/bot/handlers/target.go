package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
)

// commandArgs returns the text following the command itself, with the
// optional @botname suffix stripped. Returns "" when the message is
// only the command.
func commandArgs(text string) string {
	if !strings.HasPrefix(text, "/") {
		return strings.TrimSpace(text)
	}
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// target identifies the user an admin command acts on.
type target struct {
	UserID    int64
	FirstName string
}

// resolveTarget determines the target user of an admin command, either
// from the replied-to message or from a numeric user ID argument.
func resolveTarget(msg *models.Message) (*target, error) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		from := msg.ReplyToMessage.From
		return &target{UserID: from.ID, FirstName: from.FirstName}, nil
	}

	args := commandArgs(msg.Text)
	if args == "" {
		return nil, fmt.Errorf("reply to a message or provide a user ID")
	}

	idArg := strings.Fields(args)[0]
	userID, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("invalid user ID: %s", idArg)
	}

	return &target{UserID: userID, FirstName: idArg}, nil
}

// parseRestrictDuration parses a mute duration like "30s", "5m", "1h",
// or "2d". Returns 0 when s is empty, meaning restrict forever.
func parseRestrictDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}

	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}

	switch s[len(s)-1] {
	case 's':
		return time.Duration(value) * time.Second, nil
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid duration unit: %s (use s, m, h, or d)", s)
	}
}

// formatWelcome expands the {name}, {username}, {chat}, and {count}
// placeholders of a welcome template.
func formatWelcome(template string, user *models.User, chatTitle string, memberCount int) string {
	username := user.Username
	if username == "" {
		username = user.FirstName
	}

	r := strings.NewReplacer(
		"{name}", user.FirstName,
		"{username}", "@"+username,
		"{chat}", chatTitle,
		"{count}", strconv.Itoa(memberCount),
	)
	return r.Replace(template)
}
