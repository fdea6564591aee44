package consumer

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// Verification is the contract a test asks for: the providers it talks to
// and, optionally, the fragments to use in order of preference. Empty lists
// mean "any provider" and "first fixture" respectively.
type Verification struct {
	Providers []string
	Fragments []string
}

// Description is what a test declares about itself.
type Description struct {
	DisplayName string
	// Verification selects a single fragment for the test.
	Verification *Verification
	// Verifications lists one entry per provider fragment for tests
	// talking to several providers. It takes precedence over Verification.
	Verifications []Verification
	// PactDirectory overrides where the pact file of this run is written.
	PactDirectory string
}

// candidate is a contract fixture whose provider expression has been
// resolved for the current run.
type candidate struct {
	Fixture
	provider string
}

func (c candidate) matchesProvider(provider string) bool {
	return c.provider == "" || c.provider == provider
}

// resolveCandidates expands the provider expression of every contract
// fixture, once per run.
func resolveCandidates(fixtures []Fixture, expressions ExpressionResolver) ([]candidate, error) {
	candidates := make([]candidate, 0, len(fixtures))
	for _, f := range fixtures {
		provider, err := expressions.Resolve(f.Provider)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{Fixture: f, provider: provider})
	}
	return candidates, nil
}

// resolve selects the fixture for provider. With fragment names, the first
// requested name that has a match wins; otherwise the first fixture does.
func resolve(candidates []candidate, provider string, fragments []string) (candidate, bool) {
	var matching []candidate
	for _, c := range candidates {
		if c.matchesProvider(provider) {
			matching = append(matching, c)
		}
	}
	if len(matching) == 0 {
		return candidate{}, false
	}

	names := nonBlank(fragments)
	if len(names) == 0 {
		return matching[0], true
	}

	for _, name := range names {
		for _, c := range matching {
			if c.Fragment == name {
				return c, true
			}
		}
	}
	return candidate{}, false
}

// resolveAll selects one fixture per verification. Every verification has
// explicitly asked for provider, so a missing fixture is an error.
func resolveAll(candidates []candidate, provider string, verifications []Verification) ([]candidate, error) {
	selected := make([]candidate, 0, len(verifications))
	for _, v := range verifications {
		fragment, err := v.fragment()
		if err != nil {
			return nil, err
		}

		found := false
		for _, c := range candidates {
			if c.matchesProvider(provider) && (fragment == "" || c.Fragment == fragment) {
				selected = append(selected, c)
				found = true
				break
			}
		}
		if !found {
			return nil, &UnresolvedFragmentError{Provider: provider, Fragment: fragment}
		}
		log.WithFields(log.Fields{"provider": provider, "fragment": fragment}).Debug("resolved pact fragment")
	}
	return selected, nil
}

// filterVerifications returns the verifications addressed to provider. Every
// entry must name exactly one provider, and no provider/fragment pair may be
// declared twice.
func filterVerifications(verifications []Verification, provider string) ([]Verification, error) {
	seen := map[string]bool{}
	var result []Verification
	for _, v := range verifications {
		providers := nonBlank(v.Providers)
		if len(providers) != 1 {
			return nil, configurationErrorf(
				"each verification must specify one and only one provider when several are declared, got %v", v.Providers)
		}

		fragment, err := v.fragment()
		if err != nil {
			return nil, err
		}
		key := providers[0] + "\x00" + fragment
		if seen[key] {
			return nil, configurationErrorf("provider %s is declared more than once with fragment %q", providers[0], fragment)
		}
		seen[key] = true

		if providers[0] == provider {
			result = append(result, v)
		}
	}
	return result, nil
}

// requestsProvider reports whether a single verification applies to provider.
func (v Verification) requestsProvider(provider string) bool {
	providers := nonBlank(v.Providers)
	if len(providers) == 0 {
		return true
	}
	for _, p := range providers {
		if p == provider {
			return true
		}
	}
	return false
}

// fragment returns the only fragment of a multi-provider verification.
func (v Verification) fragment() (string, error) {
	fragments := nonBlank(v.Fragments)
	switch len(fragments) {
	case 0:
		return "", nil
	case 1:
		return fragments[0], nil
	}
	return "", configurationErrorf("only one fragment may be given per provider when several are declared, got %v", fragments)
}

func nonBlank(values []string) []string {
	var result []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
