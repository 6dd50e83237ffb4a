package dialback

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type issuedToken struct {
	url string
	at  time.Time
}

// TokenSource is the outbound half of dialback: it mints the tokens we attach
// to our own registration requests and answers the callbacks remote verifiers
// make about them. Tokens live in memory only and are single-use.
type TokenSource struct {
	mu     sync.Mutex
	tokens map[string]issuedToken
	now    func() time.Time
}

func NewTokenSource() *TokenSource {
	return &TokenSource{
		tokens: map[string]issuedToken{},
		now:    time.Now,
	}
}

// TokenFor mints a token for a request against requestURL and remembers it
// until the dialback window closes.
func (s *TokenSource) TokenFor(requestURL string) (token string, date time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date = s.now().UTC()
	s.prune(date)

	token = uuid.NewString()
	s.tokens[token] = issuedToken{url: requestURL, at: date}
	return token, date
}

// Confirm answers a remote verifier's callback. It succeeds once per token:
// the token must be known, minted for the same url, and the callback's date
// must be within the window. A confirmed token is forgotten.
func (s *TokenSource) Confirm(token, requestURL string, date time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)

	issued, ok := s.tokens[token]
	if !ok || issued.url != requestURL {
		return false
	}
	if skew := absDuration(now.Sub(date)); skew > Window {
		return false
	}

	delete(s.tokens, token)
	return true
}

// prune drops tokens whose window has passed. Callers hold mu.
func (s *TokenSource) prune(now time.Time) {
	for token, issued := range s.tokens {
		if now.Sub(issued.at) > Window {
			delete(s.tokens, token)
		}
	}
}
