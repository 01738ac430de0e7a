// Package registry holds the channel configuration rules: effective keyword
// resolution and the validation applied before a channel write is accepted.
package registry

import (
	"fmt"
	"strings"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
)

// ResolveEffectiveKeywords returns the lower-cased filter set for a channel.
//
// Primary channels collect everything, so the result is empty. Secondary
// channels match on their configured keywords plus the forecaster's name,
// which is always included even when the admin never added it.
func ResolveEffectiveKeywords(ch domain.Channel, forecasterName string) []string {
	if ch.IsPrimary {
		return nil
	}

	seen := make(map[string]bool, len(ch.Keywords)+1)
	keywords := make([]string, 0, len(ch.Keywords)+1)

	for _, kw := range ch.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}

	if name := strings.ToLower(strings.TrimSpace(forecasterName)); name != "" && !seen[name] {
		keywords = append(keywords, name)
	}

	return keywords
}

// ValidateChannelConfig rejects invalid channel writes.
//
// A secondary channel must end up with a non-empty effective keyword set. A
// second enabled primary channel of the same type for the same forecaster is
// rejected outright: demoting the existing primary is an explicit two-step
// operation left to the caller, never done implicitly here.
func ValidateChannelConfig(ch domain.Channel, forecasterName string, siblings []domain.Channel) error {
	if !ch.Type.IsValid() {
		return fmt.Errorf("%w: unknown channel type %q", domain.ErrInvalidChannelConfig, ch.Type)
	}
	if ch.ExternalID == "" {
		return fmt.Errorf("%w: external id is required", domain.ErrInvalidChannelConfig)
	}

	if !ch.IsPrimary {
		if len(ResolveEffectiveKeywords(ch, forecasterName)) == 0 {
			return fmt.Errorf("%w: secondary channel has empty effective keyword set", domain.ErrInvalidChannelConfig)
		}
		return nil
	}

	if !ch.Enabled {
		return nil
	}

	for _, sib := range siblings {
		if sib.ID == ch.ID {
			continue
		}
		if sib.IsPrimary && sib.Enabled && sib.Type == ch.Type {
			return fmt.Errorf("%w: forecaster %s already has an enabled primary %s channel",
				domain.ErrInvalidChannelConfig, ch.ForecasterID, ch.Type)
		}
	}

	return nil
}
