package auth

import (
	"fmt"
	"sync"
)

// DefaultLanguage is used when a request carries no locale.
const DefaultLanguage = "en"

// Message keys produced by this package. Hosts load catalogs keyed by
// these; the core never emits hard coded user facing text.
const (
	MsgVerificationSent = "messages.verification_sent"
	MsgPasswordChanged  = "messages.password_changed"
	MsgResetSent        = "messages.reset_sent"
	MsgChangeEmailSent  = "messages.change_email_sent"
	MsgWelcome          = "messages.welcome"
)

// Catalog is an in memory Translator backed by per language message
// maps. Lookups fall back to the default language and finally to the
// key itself so a missing entry never produces an empty string.
type Catalog struct {
	mu          sync.RWMutex
	messages    map[string]map[string]string
	defaultLang string
}

// NewCatalog creates a Catalog with the given default language.
func NewCatalog(defaultLang string) *Catalog {
	if defaultLang == "" {
		defaultLang = DefaultLanguage
	}
	return &Catalog{
		messages:    map[string]map[string]string{},
		defaultLang: defaultLang,
	}
}

// Load merges a language's message map into the catalog.
func (c *Catalog) Load(lang string, messages map[string]string) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.messages[lang] == nil {
		c.messages[lang] = make(map[string]string, len(messages))
	}
	for k, v := range messages {
		c.messages[lang][k] = v
	}
	return c
}

// T resolves key for lang, formatting args into the template.
func (c *Catalog) T(lang, key string, args ...any) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if lang == "" {
		lang = c.defaultLang
	}

	template, ok := c.lookup(lang, key)
	if !ok {
		template, ok = c.lookup(c.defaultLang, key)
	}
	if !ok {
		template = key
	}

	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}

func (c *Catalog) lookup(lang, key string) (string, bool) {
	messages, ok := c.messages[lang]
	if !ok {
		return "", false
	}
	template, ok := messages[key]
	return template, ok
}

var _ Translator = (*Catalog)(nil)
