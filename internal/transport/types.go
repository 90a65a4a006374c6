package transport

import "context"

// ChatTarget addresses a chat and, for forum groups, a topic thread.
type ChatTarget struct {
	ChatID   int64
	ThreadID int // telegram forum topic thread id (0 if none)
}

func (t ChatTarget) IsZero() bool { return t.ChatID == 0 }

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Silent         bool
}

// Sender delivers text to a chat. The bot never reads updates, so this is the
// whole messaging surface.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)

func (f SenderFunc) SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error) {
	return f(ctx, to, text, opt)
}
