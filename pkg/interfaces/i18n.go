package interfaces

import "context"

type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// LanguageService resolves the language state of the current request.
type LanguageService interface {
	Translator
	CurrentLanguage(ctx context.Context) string
	SetLanguage(ctx context.Context, code string) bool
	PreferredLanguageOrder(ctx context.Context) []string
	Languages() []string
}
