package rules

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
	"github.com/archlens/archlens/internal/graph"
)

// RuleSecretDetector is the identifier for the secret-scanning rule.
const RuleSecretDetector = "secret_detector"

// secretPattern pairs a stable label with a compiled credential shape. The
// list is ordered; findings for one scanned text follow this order.
type secretPattern struct {
	label   string
	pattern *regexp.Regexp
}

var secretPatterns = []secretPattern{
	{"aws_access_key", regexp.MustCompile(`(?i)(?:aws_access_key_id|aws_access_key)\s*[=:]\s*["']?([A-Z0-9]{20})["']?`)},
	{"aws_secret_key", regexp.MustCompile(`(?i)(?:aws_secret_access_key|aws_secret_key)\s*[=:]\s*["']?([A-Za-z0-9/+=]{40})["']?`)},
	{"github_token", regexp.MustCompile(`(?i)(?:gh_token|github_token)\s*[=:]\s*["']?([a-zA-Z0-9_]{36,})["']?`)},
	{"api_key", regexp.MustCompile(`(?i)(?:api_key|apikey)\s*[=:]\s*["']?([a-zA-Z0-9_-]{20,})["']?`)},
	{"password", regexp.MustCompile(`(?i)(?:password|passwd|pwd)\s*[=:]\s*["']?([^\s"']{8,})["']?`)},
	{"private_key", regexp.MustCompile(`-----BEGIN\s+(?:RSA\s+)?PRIVATE\s+KEY-----`)},
	{"jwt_token", regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`)},
	{"database_url", regexp.MustCompile(`(?i)(?:database_url|db_url)\s*[=:]\s*["']?(mysql|postgres|mongodb|redis)://[^\s"']+["']?`)},
	{"slack_token", regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`)},
	{"stripe_key", regexp.MustCompile(`(?:sk|pk)_(?:test|live)_[a-zA-Z0-9]{24,}`)},
}

// SecretDetectorRule scans for hardcoded credentials. It is the only rule
// with side-effecting I/O: nodes whose metadata carries a "source" or
// "dockerfile" path get that file re-read from disk and scanned in full
// (unreadable files are skipped silently). Every string-valued metadata
// entry is also scanned directly. Finding volume is therefore proportional
// to file content, not graph size.
type SecretDetectorRule struct {
	log *zap.Logger
}

func NewSecretDetectorRule(logger *zap.Logger) *SecretDetectorRule {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecretDetectorRule{log: logger.Named(RuleSecretDetector)}
}

func (r *SecretDetectorRule) ID() string { return RuleSecretDetector }

func (r *SecretDetectorRule) Evaluate(g *graph.Graph) []schemas.Finding {
	var findings []schemas.Finding

	for _, node := range g.Nodes() {
		if node.Metadata == nil {
			continue
		}
		if src, ok := node.Metadata["source"].(string); ok {
			findings = append(findings, r.scanFile(src, node.ID)...)
		}
		if df, ok := node.Metadata["dockerfile"].(string); ok {
			findings = append(findings, r.scanFile(df, node.ID)...)
		}
		// Metadata keys are visited in sorted order so finding order is
		// reproducible across runs.
		keys := make([]string, 0, len(node.Metadata))
		for key := range node.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if text, ok := node.Metadata[key].(string); ok {
				findings = append(findings, r.scanString(text, node.ID, key)...)
			}
		}
	}
	return findings
}

// scanFile reads path and emits one error finding per pattern match, with
// the 1-based line number computed from the match offset.
func (r *SecretDetectorRule) scanFile(path, nodeID string) []schemas.Finding {
	raw, err := os.ReadFile(path)
	if err != nil {
		r.log.Debug("secret scan target unreadable", zap.String("path", path), zap.Error(err))
		return nil
	}
	content := string(raw)

	var findings []schemas.Finding
	for _, sp := range secretPatterns {
		for _, loc := range sp.pattern.FindAllStringIndex(content, -1) {
			line := strings.Count(content[:loc[0]], "\n") + 1
			msg := fmt.Sprintf("Potential %s detected in %s (line %d)", sp.label, path, line)
			if sp.label == "private_key" {
				msg = fmt.Sprintf("Private key detected in %s (line %d)", path, line)
			}
			findings = append(findings, schemas.Finding{
				RuleID:   r.ID(),
				Severity: schemas.SeverityError,
				Message:  msg,
				NodeIDs:  []string{nodeID},
				Metadata: map[string]any{"file": path, "line": line, "type": sp.label},
			})
		}
	}
	return findings
}

// scanString checks a single metadata value against every pattern; one
// finding per matching pattern, tagged with the metadata key as context.
func (r *SecretDetectorRule) scanString(text, nodeID, context string) []schemas.Finding {
	var findings []schemas.Finding
	for _, sp := range secretPatterns {
		if sp.pattern.MatchString(text) {
			findings = append(findings, schemas.Finding{
				RuleID:   r.ID(),
				Severity: schemas.SeverityError,
				Message:  fmt.Sprintf("Potential %s detected in node metadata (%s)", sp.label, context),
				NodeIDs:  []string{nodeID},
				Metadata: map[string]any{"type": sp.label, "context": context},
			})
		}
	}
	return findings
}
