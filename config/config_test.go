package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultScenarios(t *testing.T) {
	s := DefaultScenarios("https://example.com/polls")

	require.Equal(t, []string{FiveCandidate, ThreeCandidate, TwoCandidate}, s.Names())
	require.Equal(t,
		"https://example.com/polls/president/general/2024/trump-vs-biden",
		s[TwoCandidate])
	require.Equal(t,
		"https://www.realclearpolling.com/polls/president/general/2024/trump-vs-biden-vs-kennedy-vs-west-vs-stein",
		DefaultScenarios(DefaultBaseURL)[FiveCandidate])
}

func TestScenariosURL(t *testing.T) {
	s := DefaultScenarios(DefaultBaseURL)

	url, err := s.URL(ThreeCandidate)
	require.NoError(t, err)
	require.Contains(t, url, "trump-vs-biden-vs-kennedy")

	_, err = s.URL("four_candidate")
	require.True(t, errors.Is(err, ErrUnknownScenario))
}

func TestScenariosURLsIsACopy(t *testing.T) {
	s := DefaultScenarios(DefaultBaseURL)
	urls := s.URLs()
	urls[TwoCandidate] = "changed"
	require.NotEqual(t, "changed", s[TwoCandidate])
}

func TestScenariosMergeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.json5")
	content := `{
		// local fixture for the head-to-head page
		two_candidate: "http://localhost:8080/two.html",
		primary: "http://localhost:8080/primary.html",
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	base := DefaultScenarios(DefaultBaseURL)
	merged, err := base.MergeFile(path)
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8080/two.html", merged[TwoCandidate])
	require.Equal(t, "http://localhost:8080/primary.html", merged["primary"])
	require.Equal(t, base[FiveCandidate], merged[FiveCandidate])
	require.NotEqual(t, "http://localhost:8080/two.html", base[TwoCandidate])
}

func TestScenariosMergeFileMissing(t *testing.T) {
	_, err := DefaultScenarios(DefaultBaseURL).MergeFile(filepath.Join(t.TempDir(), "nope.json5"))
	require.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POLLS_BASE_URL", "http://fixtures.local/")
	t.Setenv("RENDERER", "HTTP")
	t.Setenv("SETTLE_MS", "250")
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("SCENARIOS_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, RendererHTTP, cfg.Renderer)
	require.Equal(t, 250*time.Millisecond, cfg.SettleDelay)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, "http://fixtures.local/president/general/2024/trump-vs-biden", cfg.Scenarios[TwoCandidate])
}
