package web

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/starford/rollbook/internal/i18n"
	"github.com/starford/rollbook/internal/session"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	langKey
)

func withSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

func withLang(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, langKey, tag)
}

func langFrom(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(langKey).(language.Tag); ok {
		return tag
	}
	return language.English
}

func printerFrom(ctx context.Context) *message.Printer {
	return i18n.Printer(langFrom(ctx))
}
