package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sidereusnuntius/courier/internal/domain"
)

const (
	MaxHostnameLen = 255
	MaxNicknameLen = 64
)

// reserved are local parts that never belong to a real account and are
// rejected in claimed webfinger identities.
var reserved = map[string]bool{
	"anonymous": true,
	"system":    true,
	"admin":     true,
	"api":       true,
	"oauth":     true,
	"dialback":  true,
}

func Hostname(hostname string) error {
	switch l := len(hostname); {
	case l == 0:
		return errors.New("empty hostname")
	case l > MaxHostnameLen:
		return fmt.Errorf("hostname too long; max %d characters", MaxHostnameLen)
	}
	if strings.ContainsAny(hostname, "/@ ") {
		return fmt.Errorf("malformed hostname: %q", hostname)
	}
	return nil
}

// Webfinger checks a user@host address and returns its parts.
func Webfinger(address string) (user, host string, err error) {
	user, host, ok := domain.SplitAcct(address)
	if !ok {
		return "", "", fmt.Errorf("malformed webfinger address: %q", address)
	}
	if len(user) > MaxNicknameLen {
		return "", "", fmt.Errorf("local part too long; max %d characters", MaxNicknameLen)
	}
	if reserved[strings.ToLower(user)] {
		return "", "", fmt.Errorf("reserved local part: %q", user)
	}
	if err = Hostname(host); err != nil {
		return "", "", err
	}
	return user, host, nil
}

// Activity rejects activities the distributor must not accept. This is the
// only error the original poster ever sees from distribution.
func Activity(a *domain.Activity) error {
	if a == nil {
		return errors.New("no activity")
	}

	var errs = []error{}
	if a.ID == "" {
		errs = append(errs, errors.New("missing activity id"))
	}
	if a.Actor.ID == "" {
		errs = append(errs, errors.New("missing actor"))
	}
	if a.Verb == "" {
		errs = append(errs, errors.New("missing verb"))
	}

	for _, r := range a.Audience() {
		if r.ID == "" {
			errs = append(errs, errors.New("recipient without id"))
			break
		}
	}

	return errors.Join(errs...)
}
