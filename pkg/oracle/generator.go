package oracle

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const translatorPrompt = `You are a Sign Language Translator. Convert this sequence of sign tokens into a natural, fluent, and polite English sentence.
Account for grammar, context, and potential emotional tone.

Tokens: [%s]

Output just the sentence.`

// TextModel is a plain prompt-in, text-out language model.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type modelGenerator struct {
	model TextModel
}

// NewModelGenerator wraps a language model with the sign translation prompt.
func NewModelGenerator(model TextModel) Generator {
	return &modelGenerator{model: model}
}

func (g *modelGenerator) Generate(ctx context.Context, tokens []string) (string, error) {
	return g.model.GenerateText(ctx, BuildPrompt(tokens))
}

func BuildPrompt(tokens []string) string {
	return fmt.Sprintf(translatorPrompt, strings.Join(tokens, " "))
}

// SentenceCache stores generated sentences keyed by token sequence.
type SentenceCache interface {
	GetSentence(ctx context.Context, key string) (string, bool, error)
	SetSentence(ctx context.Context, key string, sentence string, ttl time.Duration) error
}

type cachedGenerator struct {
	next  Generator
	cache SentenceCache
	ttl   time.Duration
	log   *logrus.Logger
}

// NewCachedGenerator serves repeated token sequences from cache. Cache
// errors are logged and never fail a generation.
func NewCachedGenerator(next Generator, cache SentenceCache, ttl time.Duration, log *logrus.Logger) Generator {
	return &cachedGenerator{next: next, cache: cache, ttl: ttl, log: log}
}

func (g *cachedGenerator) Generate(ctx context.Context, tokens []string) (string, error) {
	key := CacheKey(tokens)

	sentence, ok, err := g.cache.GetSentence(ctx, key)
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("Sentence cache lookup failed")
	} else if ok {
		return sentence, nil
	}

	sentence, err = g.next.Generate(ctx, tokens)
	if err != nil {
		return "", err
	}

	if err := g.cache.SetSentence(ctx, key, sentence, g.ttl); err != nil {
		g.log.WithFields(logrus.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("Sentence cache store failed")
	}

	return sentence, nil
}

func CacheKey(tokens []string) string {
	sum := sha1.Sum([]byte(strings.Join(tokens, "\x1f")))
	return "sentence:" + hex.EncodeToString(sum[:])
}

type translateRequest struct {
	Tokens []string `json:"tokens"`
}

type translateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

type httpGenerator struct {
	url     string
	timeout time.Duration
}

// NewHTTPGenerator calls a remote translate endpoint that accepts
// {"tokens": [...]} and answers {"response": "..."}.
func NewHTTPGenerator(url string, timeout time.Duration) Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpGenerator{url: url, timeout: timeout}
}

func (g *httpGenerator) Generate(ctx context.Context, tokens []string) (string, error) {
	timeout := g.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return "", context.DeadlineExceeded
	}

	var out translateResponse
	code, _, errs := fiber.Post(g.url).
		JSON(translateRequest{Tokens: tokens}).
		Timeout(timeout).
		Struct(&out)
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	if code != fiber.StatusOK {
		if out.Error != "" {
			return "", fmt.Errorf("translate endpoint returned %d: %s", code, out.Error)
		}
		return "", fmt.Errorf("translate endpoint returned %d", code)
	}

	return out.Response, nil
}
