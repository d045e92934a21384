package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// DefaultBaseURL is the RealClearPolling polls root.
const DefaultBaseURL = "https://www.realclearpolling.com/polls/"

// Scenario names.
const (
	TwoCandidate   = "two_candidate"
	ThreeCandidate = "three_candidate"
	FiveCandidate  = "five_candidate"
)

var scenarioPaths = map[string]string{
	TwoCandidate:   "president/general/2024/trump-vs-biden",
	ThreeCandidate: "president/general/2024/trump-vs-biden-vs-kennedy",
	FiveCandidate:  "president/general/2024/trump-vs-biden-vs-kennedy-vs-west-vs-stein",
}

// ErrUnknownScenario is returned by Scenarios.URL for names with no entry.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenarios maps a scenario name to the polling page URL it is scraped from.
type Scenarios map[string]string

// DefaultScenarios returns the three general-election pages under baseURL.
func DefaultScenarios(baseURL string) Scenarios {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	out := make(Scenarios, len(scenarioPaths))
	for name, path := range scenarioPaths {
		out[name] = baseURL + path
	}
	return out
}

// URLs returns a copy of the name to URL mapping.
func (s Scenarios) URLs() map[string]string {
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// URL looks up a single scenario.
func (s Scenarios) URL(name string) (string, error) {
	url, ok := s[name]
	if !ok {
		return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownScenario, name, strings.Join(s.Names(), ", "))
	}
	return url, nil
}

// Names returns the scenario names sorted.
func (s Scenarios) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MergeFile overlays the JSON5 object in path on top of s. Entries in the
// file win; scenarios absent from the file keep their current URL.
func (s Scenarios) MergeFile(path string) (Scenarios, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read scenarios file: %w", err)
	}

	var override map[string]string
	if err := json5.Unmarshal(raw, &override); err != nil {
		return nil, fmt.Errorf("config: parse scenarios file %q: %w", path, err)
	}

	out := s.URLs()
	if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merge scenarios: %w", err)
	}
	return Scenarios(out), nil
}
